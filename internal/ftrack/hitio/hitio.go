// Package hitio reads events of detector hits from files.
package hitio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/ftrack/internal/ftrack/hit"
	"github.com/banshee-data/ftrack/internal/units"
)

// Event is one independent set of hits.
type Event struct {
	ID   int
	Hits []hit.Hit
}

// Required CSV columns, in any order. source_id and particle are optional.
var csvColumns = []string{"event", "layer", "x", "y", "z"}

// ReadCSV parses hits from CSV with a header row naming at least the event,
// layer, x, y and z columns. Events are returned in ascending ID order with
// hits in file order.
func ReadCSV(r io.Reader) ([]Event, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read hit CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("hit CSV is empty")
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range csvColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("invalid header in hit CSV, missing column %q (need %s)",
				name, strings.Join(csvColumns, ","))
		}
	}
	sourceCol, hasSource := col["source_id"]
	particleCol, hasParticle := col["particle"]

	byEvent := make(map[int][]hit.Hit)
	for i, record := range records[1:] {
		line := i + 2
		field := func(name string) string { return strings.TrimSpace(record[col[name]]) }

		ev, err := strconv.Atoi(field("event"))
		if err != nil {
			return nil, fmt.Errorf("invalid event at line %d: %w", line, err)
		}
		layer, err := strconv.Atoi(field("layer"))
		if err != nil {
			return nil, fmt.Errorf("invalid layer at line %d: %w", line, err)
		}
		var xyz [3]float64
		for j, name := range []string{"x", "y", "z"} {
			if xyz[j], err = strconv.ParseFloat(field(name), 64); err != nil {
				return nil, fmt.Errorf("invalid %s at line %d: %w", name, line, err)
			}
		}

		h := hit.Hit{X: xyz[0], Y: xyz[1], Z: xyz[2], Layer: layer}
		if hasSource {
			h.SourceID = strings.TrimSpace(record[sourceCol])
		}
		if hasParticle {
			if s := strings.TrimSpace(record[particleCol]); s != "" {
				if h.ParticleID, err = strconv.Atoi(s); err != nil {
					return nil, fmt.Errorf("invalid particle at line %d: %w", line, err)
				}
			}
		}
		byEvent[ev] = append(byEvent[ev], h)
	}
	return sortedEvents(byEvent), nil
}

type jsonHit struct {
	Layer    int     `json:"layer"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	SourceID string  `json:"source_id,omitempty"`
	Particle int     `json:"particle,omitempty"`
}

type jsonEvent struct {
	Event int       `json:"event"`
	Hits  []jsonHit `json:"hits"`
}

// ReadJSON parses an array of {"event": n, "hits": [...]} objects. Repeated
// event IDs are merged.
func ReadJSON(r io.Reader) ([]Event, error) {
	var raw []jsonEvent
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse hit JSON: %w", err)
	}

	byEvent := make(map[int][]hit.Hit)
	for _, ev := range raw {
		for _, h := range ev.Hits {
			byEvent[ev.Event] = append(byEvent[ev.Event], hit.Hit{
				X: h.X, Y: h.Y, Z: h.Z,
				Layer:      h.Layer,
				SourceID:   h.SourceID,
				ParticleID: h.Particle,
			})
		}
		if _, ok := byEvent[ev.Event]; !ok {
			byEvent[ev.Event] = nil
		}
	}
	return sortedEvents(byEvent), nil
}

// WriteJSON writes events in the format ReadJSON accepts.
func WriteJSON(w io.Writer, events []Event) error {
	out := make([]jsonEvent, len(events))
	for i, ev := range events {
		out[i].Event = ev.ID
		out[i].Hits = make([]jsonHit, len(ev.Hits))
		for j, h := range ev.Hits {
			out[i].Hits[j] = jsonHit{Layer: h.Layer, X: h.X, Y: h.Y, Z: h.Z, SourceID: h.SourceID, Particle: h.ParticleID}
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ReadFile reads events from a .csv or .json file.
func ReadFile(path string) ([]Event, error) {
	cleanPath := filepath.Clean(path)
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open hit file: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(cleanPath)); ext {
	case ".csv":
		return ReadCSV(f)
	case ".json":
		return ReadJSON(f)
	default:
		return nil, fmt.Errorf("hit file must have .csv or .json extension, got %q", ext)
	}
}

// Convert rescales hit positions given in unit to millimetres in place.
func Convert(events []Event, unit string) error {
	if !units.IsValid(unit) {
		return fmt.Errorf("invalid length unit %q, must be one of: %s", unit, units.GetValidUnitsString())
	}
	if unit == units.MM {
		return nil
	}
	for i := range events {
		for j := range events[i].Hits {
			h := &events[i].Hits[j]
			h.X = units.ToMillimetres(h.X, unit)
			h.Y = units.ToMillimetres(h.Y, unit)
			h.Z = units.ToMillimetres(h.Z, unit)
		}
	}
	return nil
}

func sortedEvents(byEvent map[int][]hit.Hit) []Event {
	events := make([]Event, 0, len(byEvent))
	for id, hits := range byEvent {
		events = append(events, Event{ID: id, Hits: hits})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events
}
