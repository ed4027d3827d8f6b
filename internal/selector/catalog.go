package selector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StageType identifies which pipeline stage a backend is being selected for.
type StageType string

const (
	StageAnalysis  StageType = "analysis"
	StageTemplate  StageType = "template"
	StageDialog    StageType = "dialog"
	StageClientlib StageType = "clientlib"
)

// BackendOption is one row of the static backend table.
// MaxComplexity <= 0 means the option has no complexity ceiling.
type BackendOption struct {
	Provider      string   `yaml:"provider"`
	Model         string   `yaml:"model"`
	MaxComplexity float64  `yaml:"max_complexity"`
	CostPer1K     float64  `yaml:"cost_per_1k"`
	Speed         float64  `yaml:"speed"`
	MaxTokens     int      `yaml:"max_tokens"`
	Specialties   []string `yaml:"specialties"`
}

// Catalog is an ordered backend table. Order is significant: earlier entries
// win score ties.
type Catalog []BackendOption

// DefaultCatalog returns the built-in backend table, ordered lowest tier
// first so cheap models win ties at low complexity.
func DefaultCatalog() Catalog {
	return Catalog{
		{
			Provider:      "groq",
			Model:         "llama-3.1-8b-instant",
			MaxComplexity: 6,
			CostPer1K:     0.00005,
			Speed:         2.2,
			MaxTokens:     4000,
			Specialties:   []string{"simple_components", "styling"},
		},
		{
			Provider:      "groq",
			Model:         "llama-3.3-70b-versatile",
			MaxComplexity: 8,
			CostPer1K:     0.00059,
			Speed:         1.8,
			MaxTokens:     4000,
			Specialties:   []string{"rapid_prototyping", "simple_logic"},
		},
		{
			Provider:      "gemini",
			Model:         "gemini-2.5-flash",
			MaxComplexity: 9,
			CostPer1K:     0.0003,
			Speed:         1.6,
			MaxTokens:     6000,
			Specialties:   []string{"code_generation", "dialog_creation"},
		},
		{
			Provider:      "gemini",
			Model:         "gemini-2.5-pro",
			MaxComplexity: 0, // no ceiling
			CostPer1K:     0.0125,
			Speed:         1.0,
			MaxTokens:     8000,
			Specialties:   []string{"complex_logic", "architecture", "code_generation"},
		},
	}
}

// LoadCatalog reads a backend table from a YAML file.
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backend catalog: %w", err)
	}
	var doc struct {
		Backends Catalog `yaml:"backends"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse backend catalog: %w", err)
	}
	if len(doc.Backends) == 0 {
		return nil, fmt.Errorf("backend catalog %s declares no backends", path)
	}
	for i, opt := range doc.Backends {
		if opt.Provider == "" || opt.Model == "" {
			return nil, fmt.Errorf("backend catalog %s: entry %d is missing provider or model", path, i)
		}
	}
	return doc.Backends, nil
}
