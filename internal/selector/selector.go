// Package selector maps complexity scores and stage types to concrete
// backend configurations from a static backend table.
package selector

import (
	"fmt"
	"log"
	"strings"

	"compforge/internal/estimator"
)

// Objective steers candidate scoring.
type Objective string

const (
	ObjectiveSpeed   Objective = "speed"
	ObjectiveCost    Objective = "cost"
	ObjectiveQuality Objective = "quality"
)

// ParseObjective normalizes a configured objective, defaulting to quality.
func ParseObjective(raw string) Objective {
	switch Objective(strings.ToLower(strings.TrimSpace(raw))) {
	case ObjectiveSpeed:
		return ObjectiveSpeed
	case ObjectiveCost:
		return ObjectiveCost
	default:
		return ObjectiveQuality
	}
}

// BackendConfig is the selected configuration for one stage invocation.
type BackendConfig struct {
	Provider    string
	Model       string
	Temperature float32
	MaxTokens   int
	StageType   StageType
}

// ConfigurationError reports a selector misconfiguration. It is surfaced at
// construction time so a bad table fails at process start, not mid-pipeline.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "selector configuration: " + e.Reason
}

// Options tune process-wide selection behavior.
type Options struct {
	// Objective applies when a call does not specify one.
	Objective Objective
	// Override names a backend model that bypasses scoring when present in
	// the table. An unknown override is ignored with a logged warning.
	Override string
}

// Selector picks a backend configuration per stage invocation.
type Selector struct {
	table     Catalog
	objective Objective
	override  string
}

// New builds a Selector over the given table. An empty table is a
// ConfigurationError.
func New(table Catalog, opts Options) (*Selector, error) {
	if len(table) == 0 {
		return nil, &ConfigurationError{Reason: "backend table is empty"}
	}
	obj := opts.Objective
	if obj == "" {
		obj = ObjectiveQuality
	}
	return &Selector{
		table:     table,
		objective: obj,
		override:  strings.TrimSpace(opts.Override),
	}, nil
}

// Unlimited ceilings participate in headroom scoring as this value.
const unlimitedCeiling = 100

func effectiveCeiling(opt BackendOption) float64 {
	if opt.MaxComplexity <= 0 {
		return unlimitedCeiling
	}
	return opt.MaxComplexity
}

// Select returns the backend configuration for one stage invocation.
// It never fails: when no table entry can handle the score, the single
// most-capable entry is used.
func (s *Selector) Select(score float64, stage StageType, features estimator.FeatureSet, objective Objective) BackendConfig {
	if objective == "" {
		objective = s.objective
	}

	if s.override != "" {
		if opt, ok := s.lookup(s.override); ok {
			return s.configFor(opt, stage)
		}
		log.Printf("selector: override %q is not in the backend table, selecting normally", s.override)
	}

	candidates := make([]BackendOption, 0, len(s.table))
	for _, opt := range s.table {
		if opt.MaxComplexity <= 0 || opt.MaxComplexity >= score {
			candidates = append(candidates, opt)
		}
	}
	if len(candidates) == 0 {
		return s.configFor(s.mostCapable(), stage)
	}

	best := candidates[0]
	bestScore := s.scoreOption(candidates[0], score, stage, features, objective)
	for _, opt := range candidates[1:] {
		// Strict > keeps declaration order as the tie break.
		if v := s.scoreOption(opt, score, stage, features, objective); v > bestScore {
			best, bestScore = opt, v
		}
	}
	return s.configFor(best, stage)
}

func (s *Selector) scoreOption(opt BackendOption, score float64, stage StageType, features estimator.FeatureSet, objective Objective) float64 {
	var v float64
	switch objective {
	case ObjectiveSpeed:
		v += opt.Speed * 3
		v -= score * 0.2
	case ObjectiveCost:
		if opt.CostPer1K > 0 {
			v += (1 / opt.CostPer1K) * 0.002
		}
		v += opt.Speed
	default: // quality: prefer the smallest model that fits the task
		v -= (effectiveCeiling(opt) - score) * 0.5
		if hasSpecialty(opt, specialtyFor(stage)) {
			v += 2
		}
	}

	if features.Interactive && hasSpecialty(opt, "code_generation") {
		v++
	}
	if len(features.Fields) > 5 && opt.MaxComplexity <= 0 {
		v += 2
	}
	return v
}

func specialtyFor(stage StageType) string {
	switch stage {
	case StageDialog:
		return "dialog_creation"
	case StageClientlib:
		return "styling"
	case StageAnalysis:
		return "complex_logic"
	default:
		return "code_generation"
	}
}

func hasSpecialty(opt BackendOption, name string) bool {
	for _, s := range opt.Specialties {
		if s == name {
			return true
		}
	}
	return false
}

func (s *Selector) lookup(model string) (BackendOption, bool) {
	for _, opt := range s.table {
		if strings.EqualFold(opt.Model, model) {
			return opt, true
		}
	}
	return BackendOption{}, false
}

func (s *Selector) mostCapable() BackendOption {
	best := s.table[0]
	for _, opt := range s.table[1:] {
		if effectiveCeiling(opt) > effectiveCeiling(best) {
			best = opt
		}
	}
	return best
}

func (s *Selector) configFor(opt BackendOption, stage StageType) BackendConfig {
	temp := stageTemperature(stage)
	if opt.MaxComplexity > 0 {
		// Lower-tier backends drift more; tighten sampling.
		temp *= 0.8
	}
	tokens := opt.MaxTokens
	if tokens <= 0 {
		tokens = 4000
	}
	return BackendConfig{
		Provider:    opt.Provider,
		Model:       opt.Model,
		Temperature: temp,
		MaxTokens:   tokens,
		StageType:   stage,
	}
}

// stageTemperature is a pure function of the stage type, independent of the
// chosen backend. Structured XML-like output wants near-zero temperature.
func stageTemperature(stage StageType) float32 {
	switch stage {
	case StageDialog, StageAnalysis:
		return 0.1
	case StageClientlib:
		return 0.3
	default:
		return 0.2
	}
}

// Describe returns a short human-readable identity for logs.
func (c BackendConfig) Describe() string {
	return fmt.Sprintf("%s:%s (temp=%.2f, stage=%s)", c.Provider, c.Model, c.Temperature, c.StageType)
}
