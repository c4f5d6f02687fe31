package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/ftrack/internal/config"
	"github.com/banshee-data/ftrack/internal/ftrack/hit"
	"github.com/banshee-data/ftrack/internal/ftrack/pipeline"
	"github.com/banshee-data/ftrack/internal/monitoring"
	"github.com/banshee-data/ftrack/internal/timeutil"
)

// ErrRunNotFound is returned when a run_id has no row.
var ErrRunNotFound = errors.New("sqlite: run not found")

// pragmas are applied to every pooled connection.
var pragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
}

// Store is a migrated SQLite database holding track-finder runs.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens or creates the database at path and migrates it to the latest
// schema.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	s := &Store{db: db, clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	monitoring.Debugf("[sqlite] opened %s", path)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for ad-hoc queries.
func (s *Store) DB() *sql.DB { return s.db }

// SetClock replaces the clock used to stamp run start and finish times.
func (s *Store) SetClock(c timeutil.Clock) { s.clock = c }

// RunInfo is one row of ftrack_runs.
type RunInfo struct {
	ID         string
	Started    time.Time
	Finished   time.Time // zero while the run is open
	ConfigJSON string
	Notes      string
	Summary    pipeline.Summary // Duration is not stored
}

// Run records one pass of the processor over a batch of events. It
// satisfies pipeline.DiagnosticsSink and pipeline.ResultSink.
type Run struct {
	store *Store
	id    string

	mu      sync.Mutex
	summary pipeline.Summary
}

var (
	_ pipeline.DiagnosticsSink = (*Run)(nil)
	_ pipeline.ResultSink      = (*Run)(nil)
)

// StartRun inserts a new run with a random id and the configuration it runs
// under.
func (s *Store) StartRun(ctx context.Context, cfg *config.TuningConfig, notes string) (*Run, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ftrack_runs (run_id, started_unix_nanos, config_json, notes) VALUES (?, ?, ?, ?)`,
		id, s.clock.Now().UnixNano(), string(cfgJSON), notes)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	monitoring.Logf("[sqlite] started run %s", id)
	return &Run{store: s, id: id}, nil
}

// ID returns the run's uuid.
func (r *Run) ID() string { return r.id }

// Summary returns the totals recorded so far.
func (r *Run) Summary() pipeline.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// RecordMeasures stores one row per measure of an event in a single
// transaction.
func (r *Run) RecordMeasures(event int, pairs []pipeline.PairMeasures) error {
	if len(pairs) == 0 {
		return nil
	}
	tx, err := r.store.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO ftrack_measures (run_id, event_id, stage, criterion, value, degenerate, true_pair)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, pair := range pairs {
		for _, m := range pair.Measures {
			if _, err := stmt.Exec(r.id, event, pair.Stage, m.Name, m.Value, m.Degenerate, pair.TruePair); err != nil {
				return fmt.Errorf("failed to insert measure %s of event %d: %w", m.Name, event, err)
			}
		}
	}
	return tx.Commit()
}

// RecordResult stores the event counters, its candidates and its tracks.
func (r *Run) RecordResult(res *pipeline.EventResult) error {
	tx, err := r.store.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO ftrack_events (
			run_id, event_id, hits, links, passes, segments, state_pruned, singlets_pruned,
			candidates, duplicates, truncated, tracks, fit_failures, duration_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.id, res.Event, res.Hits, res.Build.Linked, res.Passes, res.Segments,
		res.Clean.StatePruned, res.Clean.SingletsPruned, len(res.Candidates), res.Duplicates,
		res.Truncated, len(res.Tracks), res.FitFailures, res.Duration.Nanoseconds())
	if err != nil {
		return fmt.Errorf("failed to insert event %d: %w", res.Event, err)
	}

	for i, c := range res.Candidates {
		_, err = tx.Exec(`INSERT INTO ftrack_candidates (run_id, event_id, candidate_index, hit_key, layers, particles)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.id, res.Event, i, c.Key(), joinInts(c.Layers(), ","), joinInts(particles(c.Hits), ","))
		if err != nil {
			return fmt.Errorf("failed to insert candidate %d of event %d: %w", i, res.Event, err)
		}
	}
	for i, tr := range res.Tracks {
		_, err = tx.Exec(`INSERT INTO ftrack_tracks (run_id, event_id, track_index, hit_key, pt_gev, charge, tan_lambda, z0, radius, rms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.id, res.Event, i, hitKey(tr.Hits), tr.PtGeV, tr.Charge, tr.TanLambda, tr.Z0, tr.Radius, tr.RMS)
		if err != nil {
			return fmt.Errorf("failed to insert track %d of event %d: %w", i, res.Event, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	r.mu.Lock()
	r.summary.Add(res)
	r.mu.Unlock()
	return nil
}

// Finish stamps the run with its finish time and totals.
func (r *Run) Finish(ctx context.Context) error {
	s := r.Summary()
	_, err := r.store.db.ExecContext(ctx, `UPDATE ftrack_runs SET
			finished_unix_nanos = ?, events = ?, hits = ?, candidates = ?, tracks = ?,
			fit_failures = ?, truncated_events = ?
		WHERE run_id = ?`,
		r.store.clock.Now().UnixNano(), s.Events, s.Hits, s.Candidates, s.Tracks,
		s.FitFailures, s.Truncated, r.id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", r.id, err)
	}
	monitoring.Logf("[sqlite] finished run %s: %d events, %d candidates, %d tracks",
		r.id, s.Events, s.Candidates, s.Tracks)
	return nil
}

const runColumns = `run_id, started_unix_nanos, finished_unix_nanos, config_json, COALESCE(notes, ''),
	events, hits, candidates, tracks, fit_failures, truncated_events`

func scanRun(row interface{ Scan(...any) error }) (RunInfo, error) {
	var (
		ri       RunInfo
		started  int64
		finished sql.NullInt64
	)
	err := row.Scan(&ri.ID, &started, &finished, &ri.ConfigJSON, &ri.Notes,
		&ri.Summary.Events, &ri.Summary.Hits, &ri.Summary.Candidates, &ri.Summary.Tracks,
		&ri.Summary.FitFailures, &ri.Summary.Truncated)
	if err != nil {
		return RunInfo{}, err
	}
	ri.Started = time.Unix(0, started).UTC()
	if finished.Valid {
		ri.Finished = time.Unix(0, finished.Int64).UTC()
	}
	return ri, nil
}

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, id string) (RunInfo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM ftrack_runs WHERE run_id = ?`, id)
	ri, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return ri, err
}

// Runs lists every run, most recent first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM ftrack_runs ORDER BY started_unix_nanos DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		ri, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ri)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything recorded under it.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ftrack_runs WHERE run_id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return nil
}

// MeasureNames returns the criteria with at least one measure in the run.
func (s *Store) MeasureNames(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT criterion FROM ftrack_measures WHERE run_id = ? ORDER BY criterion`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Measures returns the recorded values of one criterion in ascending order.
// Only pairs made of a single labelled particle are returned unless
// allPairs is set. Degenerate sentinel values are left out unless
// withDegenerate is set.
func (s *Store) Measures(ctx context.Context, runID, criterion string, allPairs, withDegenerate bool) ([]float64, error) {
	q := `SELECT value FROM ftrack_measures WHERE run_id = ? AND criterion = ?`
	if !allPairs {
		q += ` AND true_pair = 1`
	}
	if !withDegenerate {
		q += ` AND degenerate = 0`
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY value`, runID, criterion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// CandidateRow is one stored candidate. Layers and Particles are parallel
// to the dash-separated hit IDs in HitKey.
type CandidateRow struct {
	Event     int
	Index     int
	HitKey    string
	Layers    []int
	Particles []int
}

// Candidates returns the candidates of one event in enumeration order.
func (s *Store) Candidates(ctx context.Context, runID string, event int) ([]CandidateRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT event_id, candidate_index, hit_key, layers, particles
		FROM ftrack_candidates WHERE run_id = ? AND event_id = ? ORDER BY candidate_index`, runID, event)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CandidateRow
	for rows.Next() {
		var (
			c                 CandidateRow
			layers, particles string
		)
		if err := rows.Scan(&c.Event, &c.Index, &c.HitKey, &layers, &particles); err != nil {
			return nil, err
		}
		if c.Layers, err = splitInts(layers); err != nil {
			return nil, fmt.Errorf("candidate %d of event %d: %w", c.Index, c.Event, err)
		}
		if c.Particles, err = splitInts(particles); err != nil {
			return nil, fmt.Errorf("candidate %d of event %d: %w", c.Index, c.Event, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TrackRow is one stored fitted track.
type TrackRow struct {
	Event     int
	Index     int
	HitKey    string
	PtGeV     float64
	Charge    int
	TanLambda float64
	Z0        float64
	Radius    float64
	RMS       float64
}

// Tracks returns the fitted tracks of one event.
func (s *Store) Tracks(ctx context.Context, runID string, event int) ([]TrackRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT event_id, track_index, hit_key, pt_gev, charge, tan_lambda, z0, radius, rms
		FROM ftrack_tracks WHERE run_id = ? AND event_id = ? ORDER BY track_index`, runID, event)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackRow
	for rows.Next() {
		var t TrackRow
		if err := rows.Scan(&t.Event, &t.Index, &t.HitKey, &t.PtGeV, &t.Charge, &t.TanLambda, &t.Z0, &t.Radius, &t.RMS); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func particles(hits []*hit.Hit) []int {
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.ParticleID
	}
	return ids
}

func hitKey(hits []*hit.Hit) string {
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return joinInts(ids, "-")
}

func joinInts(vs []int, sep string) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}

func splitInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
