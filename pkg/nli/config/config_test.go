package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/nli/pkg/nli/internalerr"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
language: en
store:
  driver: sqlite
  path: /tmp/graph.db
search:
  root_blend: 0.8
limits:
  predicate: 4
namespaces:
  ex: http://example.org/
custom_mappings:
  wife: [ex:spouse]
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Store.Driver != "sqlite" || cfg.Store.Path != "/tmp/graph.db" {
		t.Errorf("unexpected store %+v", cfg.Store)
	}
	if cfg.Store.CacheSize != 4096 {
		t.Errorf("cache size should keep its default, got %d", cfg.Store.CacheSize)
	}
	if cfg.Search.RootBlend != 0.8 {
		t.Errorf("root blend = %v, want 0.8", cfg.Search.RootBlend)
	}
	if cfg.Search.PreLimit != 50 {
		t.Errorf("pre limit should keep its default, got %d", cfg.Search.PreLimit)
	}
	if cfg.Limits.Predicate != 4 || cfg.Limits.Class != 3 {
		t.Errorf("unexpected limits %+v", cfg.Limits)
	}
	if got := cfg.CustomMappings["wife"]; len(got) != 1 || got[0] != "ex:spouse" {
		t.Errorf("unexpected custom mappings %v", cfg.CustomMappings)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"sqlite without path", "store: {driver: sqlite}", "store.path"},
		{"unknown driver", "store: {driver: postgres}", "unknown store driver"},
		{"unknown ranker", "ranker: {kind: cosine}", "unknown ranker"},
		{"embedding without model", "ranker: {kind: embedding}", "ranker.embedding"},
		{"blend out of range", "search: {root_blend: 1.5}", "root_blend"},
		{"zero range", "search: {range: 0}", "search.range"},
		{"zero limit", "limits: {class: 0}", "limits"},
		{"malformed", "store: [", ""},
	}

	for _, tt := range tests {
		_, err := Parse([]byte(tt.yaml))
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tt.name, err)
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: error %q should mention %q", tt.name, err, tt.want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/nli.yaml"); err == nil {
		t.Error("Should error on nonexistent config")
	}
}
