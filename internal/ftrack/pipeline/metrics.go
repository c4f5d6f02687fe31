package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the processor's Prometheus collectors.
type Metrics struct {
	events       prometheus.Counter
	hits         prometheus.Counter
	links        prometheus.Counter
	candidates   prometheus.Counter
	tracks       prometheus.Counter
	fitFailures  prometheus.Counter
	rejections   *prometheus.CounterVec
	eventSeconds prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil. Registration panics on duplicate names, as MustRegister does.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ftrack_events_total",
			Help: "Events processed",
		}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ftrack_hits_total",
			Help: "Hits read, virtual hits excluded",
		}),
		links: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ftrack_links_total",
			Help: "Segment pairs accepted by every criterion",
		}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ftrack_candidates_total",
			Help: "Track candidates emitted after deduplication",
		}),
		tracks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ftrack_tracks_total",
			Help: "Candidates fitted successfully",
		}),
		fitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ftrack_fit_failures_total",
			Help: "Candidates the fitter rejected",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ftrack_rejections_total",
			Help: "Segment pairs rejected, by first failing criterion",
		}, []string{"criterion"}),
		eventSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ftrack_event_duration_seconds",
			Help:    "Wall time to process one event",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.events, m.hits, m.links, m.candidates, m.tracks,
			m.fitFailures, m.rejections, m.eventSeconds)
	}
	return m
}

func (m *Metrics) observe(r *EventResult, realHits int) {
	m.events.Inc()
	m.hits.Add(float64(realHits))
	m.links.Add(float64(r.Build.Linked))
	m.candidates.Add(float64(len(r.Candidates)))
	m.tracks.Add(float64(len(r.Tracks)))
	m.fitFailures.Add(float64(r.FitFailures))
	for name, n := range r.Build.Rejected {
		m.rejections.WithLabelValues(name).Add(float64(n))
	}
	m.eventSeconds.Observe(r.Duration.Seconds())
}
