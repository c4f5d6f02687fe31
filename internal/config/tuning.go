package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/ftrack/internal/ftrack/criteria"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// SegmentLength is the number of hits in the segments whose links form
// track candidates. A candidate needs at least one link, so the detector
// needs SegmentLength+1 layers counting the virtual IP layer.
const SegmentLength = 3

// Root selection for candidate enumeration.
const (
	RootsAll       = "all"       // every parentless segment
	RootsInnermost = "innermost" // only the innermost populated layer
)

// TuningConfig is the numeric configuration of a track finding run. Fields
// left nil fall back to the defaults returned by the Get* methods, so
// partial files are safe.
type TuningConfig struct {
	// Detector
	BzTesla   *float64 `json:"bz_tesla,omitempty" yaml:"bz_tesla,omitempty"`
	NumLayers *int     `json:"num_layers,omitempty" yaml:"num_layers,omitempty"`

	// Graph building
	PtMin             *float64 `json:"pt_min,omitempty" yaml:"pt_min,omitempty"` // lower bound of Crit3_PT, GeV
	PruneIntermediate *bool    `json:"prune_intermediate,omitempty" yaml:"prune_intermediate,omitempty"`
	UseVirtualIP      *bool    `json:"use_virtual_ip,omitempty" yaml:"use_virtual_ip,omitempty"`
	Diagnostics       *bool    `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`

	// Enumeration and fitting
	MaxCandidates    *int     `json:"max_candidates,omitempty" yaml:"max_candidates,omitempty"`
	DedupeCandidates *bool    `json:"dedupe_candidates,omitempty" yaml:"dedupe_candidates,omitempty"`
	Roots            *string  `json:"roots,omitempty" yaml:"roots,omitempty"`
	MaxFitRMS        *float64 `json:"max_fit_rms,omitempty" yaml:"max_fit_rms,omitempty"` // mm, 0 disables

	Criteria []criteria.Spec `json:"criteria,omitempty" yaml:"criteria,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON or YAML file.
// The file is validated to ensure it has a known extension and is under the
// max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path as JSON or YAML, chosen by the
// extension.
func (c *TuningConfig) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch filepath.Ext(path) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		return fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,          // from internal/config/
		"../../../" + DefaultConfigPath,       // from internal/ftrack/sweep/
		"../../../../" + DefaultConfigPath,    // from internal/ftrack/storage/sqlite/
		"../../../../../" + DefaultConfigPath, // even deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. Criterion names
// are resolved later against the registry.
func (c *TuningConfig) Validate() error {
	if c.BzTesla != nil && (math.IsNaN(*c.BzTesla) || math.IsInf(*c.BzTesla, 0)) {
		return fmt.Errorf("bz_tesla must be finite, got %f", *c.BzTesla)
	}
	if n, want := c.GetNumLayers(), c.MinLayers(); n < want {
		if c.GetUseVirtualIP() {
			return fmt.Errorf("num_layers must be at least %d with use_virtual_ip, got %d", want, n)
		}
		return fmt.Errorf("num_layers must be at least %d, got %d", want, n)
	}
	if c.PtMin != nil && *c.PtMin < 0 {
		return fmt.Errorf("pt_min must be non-negative, got %f", *c.PtMin)
	}
	if c.MaxCandidates != nil && *c.MaxCandidates < 0 {
		return fmt.Errorf("max_candidates must be non-negative, got %d", *c.MaxCandidates)
	}
	if c.MaxFitRMS != nil && *c.MaxFitRMS < 0 {
		return fmt.Errorf("max_fit_rms must be non-negative, got %f", *c.MaxFitRMS)
	}
	if c.Roots != nil && *c.Roots != RootsAll && *c.Roots != RootsInnermost {
		return fmt.Errorf("roots must be %q or %q, got %q", RootsAll, RootsInnermost, *c.Roots)
	}

	seen := make(map[string]bool, len(c.Criteria))
	for i, s := range c.Criteria {
		if s.Name == "" {
			return fmt.Errorf("criteria[%d]: missing name", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("criteria[%d]: %s listed twice", i, s.Name)
		}
		seen[s.Name] = true
		if math.IsNaN(s.Min) || math.IsNaN(s.Max) {
			return fmt.Errorf("criteria[%d]: %s bounds must be numbers", i, s.Name)
		}
		if s.Min > s.Max {
			return fmt.Errorf("criteria[%d]: %s min %g exceeds max %g", i, s.Name, s.Min, s.Max)
		}
	}
	return nil
}

// MinLayers returns the smallest num_layers that can yield a candidate. The
// virtual IP layer counts towards SegmentLength+1.
func (c *TuningConfig) MinLayers() int {
	if c.GetUseVirtualIP() {
		return SegmentLength
	}
	return SegmentLength + 1
}

// GetBzTesla returns the bz_tesla value or the default.
func (c *TuningConfig) GetBzTesla() float64 {
	if c.BzTesla == nil {
		return 3.5
	}
	return *c.BzTesla
}

// GetNumLayers returns the num_layers value or the default.
func (c *TuningConfig) GetNumLayers() int {
	if c.NumLayers == nil {
		return 4
	}
	return *c.NumLayers
}

// GetPtMin returns the pt_min value, or 0 when unset.
func (c *TuningConfig) GetPtMin() float64 {
	if c.PtMin == nil {
		return 0
	}
	return *c.PtMin
}

// GetPruneIntermediate returns the prune_intermediate value or the default.
func (c *TuningConfig) GetPruneIntermediate() bool {
	if c.PruneIntermediate == nil {
		return true
	}
	return *c.PruneIntermediate
}

// GetUseVirtualIP returns the use_virtual_ip value or the default.
func (c *TuningConfig) GetUseVirtualIP() bool {
	if c.UseVirtualIP == nil {
		return false
	}
	return *c.UseVirtualIP
}

// GetDiagnostics returns the diagnostics value or the default.
func (c *TuningConfig) GetDiagnostics() bool {
	if c.Diagnostics == nil {
		return false
	}
	return *c.Diagnostics
}

// GetMaxCandidates returns the max_candidates value or the default.
func (c *TuningConfig) GetMaxCandidates() int {
	if c.MaxCandidates == nil {
		return 10000
	}
	return *c.MaxCandidates
}

// GetDedupeCandidates returns the dedupe_candidates value or the default.
func (c *TuningConfig) GetDedupeCandidates() bool {
	if c.DedupeCandidates == nil {
		return true
	}
	return *c.DedupeCandidates
}

// GetRoots returns the roots value or the default.
func (c *TuningConfig) GetRoots() string {
	if c.Roots == nil {
		return RootsAll
	}
	return *c.Roots
}

// GetMaxFitRMS returns the max_fit_rms value or the default.
func (c *TuningConfig) GetMaxFitRMS() float64 {
	if c.MaxFitRMS == nil {
		return 0
	}
	return *c.MaxFitRMS
}

// GetCriteria returns the criteria list, or DefaultCriteria when none is
// configured. A positive pt_min replaces the lower bound of Crit3_PT and adds
// the criterion if it is missing. The result is a copy.
func (c *TuningConfig) GetCriteria() []criteria.Spec {
	specs := slices.Clone(c.Criteria)
	if len(specs) == 0 {
		specs = DefaultCriteria()
	}
	if pt := c.GetPtMin(); pt > 0 {
		i := slices.IndexFunc(specs, func(s criteria.Spec) bool { return s.Name == criteria.PT })
		if i < 0 {
			specs = append(specs, criteria.Spec{Name: criteria.PT, Min: pt, Max: 1e9})
		} else {
			specs[i].Min = pt
			if specs[i].Max < pt {
				specs[i].Max = pt
			}
		}
	}
	return specs
}

// DefaultCriteria is the criteria list used when a configuration names none.
func DefaultCriteria() []criteria.Spec {
	return []criteria.Spec{
		{Name: criteria.RZRatio, Min: 1, Max: 1.4},
		{Name: criteria.DeltaPhi, Min: 0, Max: 10},
		{Name: criteria.StraightTrackRatio, Min: 0.9, Max: 1.1},
		{Name: criteria.HelixWithIP, Min: 0.5, Max: 2},
		{Name: criteria.PT, Min: 0.5, Max: 1e9},
		{Name: criteria.Angle2D, Min: 0, Max: 10},
		{Name: criteria.Angle3D, Min: 0, Max: 10},
		{Name: criteria.IPCircleDist, Min: 0, Max: 5},
		{Name: criteria.ChangeRZRatio, Min: 0.9, Max: 1.1},
		{Name: criteria.DistToExtrapolation, Min: 0, Max: 0.05},
		{Name: criteria.RChange, Min: 0.5, Max: 2},
		{Name: criteria.NoZigZag, Min: -1, Max: 1e9},
		{Name: criteria.PhiZRatioChange, Min: 0.5, Max: 2},
		{Name: criteria.AngleChange2D, Min: 0.2, Max: 5},
	}
}

// WithCriterion returns a copy of c whose criterion name has the given
// bounds, added if missing. Used by the parameter sweep.
func (c *TuningConfig) WithCriterion(name string, lo, hi float64) *TuningConfig {
	out := *c
	out.Criteria = c.GetCriteria()
	out.PtMin = nil
	i := slices.IndexFunc(out.Criteria, func(s criteria.Spec) bool { return s.Name == name })
	if i < 0 {
		out.Criteria = append(out.Criteria, criteria.Spec{Name: name, Min: lo, Max: hi})
	} else {
		out.Criteria[i].Min, out.Criteria[i].Max = lo, hi
	}
	return &out
}
