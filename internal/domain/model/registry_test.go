package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewRegistry_Defaults(t *testing.T) {
	reg, err := NewRegistry("", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if len(reg.List()) == 0 {
		t.Fatal("default catalog is empty")
	}

	m, ok := reg.Find("gemini-2.5-flash")
	if !ok {
		t.Fatal("default catalog missing gemini-2.5-flash")
	}
	if !m.Capabilities.Thinking {
		t.Error("gemini-2.5-flash should support thinking")
	}
	if m.Capabilities.ImageOutput {
		t.Error("gemini-2.5-flash should not support image output")
	}

	img, ok := reg.Find("gemini-2.5-flash-image")
	if !ok {
		t.Fatal("default catalog missing gemini-2.5-flash-image")
	}
	if !img.Capabilities.ImageOutput {
		t.Error("image model should support image output")
	}

	if reg.Default() == nil {
		t.Fatal("Default() returned nil")
	}
}

func TestNewRegistry_CatalogFile(t *testing.T) {
	catalog := `
models:
  - id: custom-model
    name: Custom Model
    capabilities:
      thinking: true
      image_input: true
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(catalog), 0o600); err != nil {
		t.Fatal(err)
	}

	reg, err := NewRegistry(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if len(reg.List()) != 1 {
		t.Fatalf("got %d models, want 1", len(reg.List()))
	}
	m, ok := reg.Find("custom-model")
	if !ok {
		t.Fatal("catalog model not found")
	}
	if !m.Capabilities.Thinking || !m.Capabilities.ImageInput {
		t.Errorf("capabilities = %+v, want thinking and image input", m.Capabilities)
	}
	if _, ok := reg.Find("gemini-2.5-flash"); ok {
		t.Error("catalog file should replace defaults, not extend them")
	}
}

func TestNewRegistry_BadCatalog(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty catalog", "models: []"},
		{"missing id", "models:\n  - name: NoID"},
		{"invalid yaml", "models: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := NewRegistry(path, zerolog.Nop()); err == nil {
				t.Fatal("NewRegistry() expected error")
			}
		})
	}

	if _, err := NewRegistry(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop()); err == nil {
		t.Fatal("NewRegistry() with missing file expected error")
	}
}
