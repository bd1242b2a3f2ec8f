package model

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Capabilities flags what a model can do. The relay gates request options on
// these so unsupported knobs never reach the provider.
type Capabilities struct {
	Thinking    bool `yaml:"thinking" json:"thinking"`
	ImageInput  bool `yaml:"image_input" json:"imageInput"`
	ImageOutput bool `yaml:"image_output" json:"imageOutput"`
}

// Model describes one selectable generation model.
type Model struct {
	ID           string       `yaml:"id" json:"id"`
	Name         string       `yaml:"name" json:"name"`
	Description  string       `yaml:"description,omitempty" json:"description,omitempty"`
	Capabilities Capabilities `yaml:"capabilities" json:"capabilities"`
}

// defaultCatalog is the built-in model set, used when no catalog file is
// configured.
var defaultCatalog = []Model{
	{
		ID:          "gemini-2.5-flash",
		Name:        "Gemini 2.5 Flash",
		Description: "Fast general-purpose model",
		Capabilities: Capabilities{
			Thinking:   true,
			ImageInput: true,
		},
	},
	{
		ID:          "gemini-2.5-pro",
		Name:        "Gemini 2.5 Pro",
		Description: "Strongest reasoning model",
		Capabilities: Capabilities{
			Thinking:   true,
			ImageInput: true,
		},
	},
	{
		ID:          "gemini-2.5-flash-image",
		Name:        "Gemini 2.5 Flash Image",
		Description: "Image generation and editing",
		Capabilities: Capabilities{
			ImageInput:  true,
			ImageOutput: true,
		},
	},
}

// Registry is the static model catalog. It is read-only after construction.
type Registry struct {
	models []Model
	byID   map[string]*Model
}

// NewRegistry builds the catalog from catalogFile when set, otherwise from
// the built-in defaults.
func NewRegistry(catalogFile string, logger zerolog.Logger) (*Registry, error) {
	models := defaultCatalog

	if catalogFile != "" {
		raw, err := os.ReadFile(catalogFile)
		if err != nil {
			return nil, fmt.Errorf("read model catalog %s: %w", catalogFile, err)
		}
		var loaded struct {
			Models []Model `yaml:"models"`
		}
		if err := yaml.Unmarshal(raw, &loaded); err != nil {
			return nil, fmt.Errorf("parse model catalog %s: %w", catalogFile, err)
		}
		if len(loaded.Models) == 0 {
			return nil, fmt.Errorf("model catalog %s defines no models", catalogFile)
		}
		models = loaded.Models
		logger.Info().Int("models", len(models)).Str("file", catalogFile).Msg("loaded model catalog")
	}

	byID := make(map[string]*Model, len(models))
	for i := range models {
		if models[i].ID == "" {
			return nil, fmt.Errorf("model catalog entry %d has no id", i)
		}
		byID[models[i].ID] = &models[i]
	}

	return &Registry{models: models, byID: byID}, nil
}

// List returns the catalog in declaration order.
func (r *Registry) List() []Model {
	return r.models
}

// Find returns the model with the given ID.
func (r *Registry) Find(id string) (*Model, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// Default returns the first catalog entry, used when a request names no model.
func (r *Registry) Default() *Model {
	return &r.models[0]
}
