// Package config loads the pipeline configuration and builds its components.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/nli/pkg/nli/internalerr"
	"github.com/cognicore/nli/pkg/nli/querybuild"
	"github.com/cognicore/nli/pkg/nli/resolve"
	"github.com/cognicore/nli/pkg/nli/search"
)

// Config is the top-level configuration file.
type Config struct {
	Language string `yaml:"language"`
	// Rules replaces the embedded rule set of Language.
	Rules   string `yaml:"rules"`
	Lexicon string `yaml:"lexicon"`

	Store  Store  `yaml:"store"`
	Ranker Ranker `yaml:"ranker"`

	Search search.Config     `yaml:"search"`
	Limits resolve.Limits    `yaml:"limits"`
	Query  querybuild.Config `yaml:"query"`

	Namespaces     map[string]string   `yaml:"namespaces"`
	CustomMappings map[string][]string `yaml:"custom_mappings"`
}

// Store selects the graph store.
type Store struct {
	Driver    string `yaml:"driver"` // memory | sqlite
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cache_size"`
}

// Ranker selects the similarity used to rank candidates.
type Ranker struct {
	Kind      string    `yaml:"kind"` // jaro-winkler | levenshtein | jaccard | embedding
	Embedding Embedding `yaml:"embedding"`
}

// Embedding configures the embeddings endpoint.
type Embedding struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Language: "en",
		Store:    Store{Driver: "memory", CacheSize: 4096},
		Ranker:   Ranker{Kind: "jaro-winkler", Embedding: Embedding{APIKeyEnv: "NLI_EMBEDDING_API_KEY"}},
		Search:   search.DefaultConfig(),
		Limits:   resolve.DefaultLimits(),
		Query:    querybuild.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot use.
func (c Config) Validate() error {
	var problems []string
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store driver %q", c.Store.Driver))
	}
	switch c.Ranker.Kind {
	case "jaro-winkler", "levenshtein", "jaccard":
	case "embedding":
		if c.Ranker.Embedding.BaseURL == "" || c.Ranker.Embedding.Model == "" {
			problems = append(problems, "ranker.embedding needs base_url and model")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown ranker %q", c.Ranker.Kind))
	}
	if c.Search.RootBlend < 0 || c.Search.RootBlend > 1 {
		problems = append(problems, "search.root_blend must be within [0, 1]")
	}
	if c.Search.Range < 1 {
		problems = append(problems, "search.range must be at least 1")
	}
	if c.Search.PreLimit < 1 {
		problems = append(problems, "search.pre_limit must be at least 1")
	}
	if c.Limits.Class < 1 || c.Limits.Predicate < 1 || c.Limits.Pivot < 1 {
		problems = append(problems, "limits must be at least 1")
	}
	if c.Query.VarRange < 1 || c.Query.TypeRange < 1 {
		problems = append(problems, "query ranges must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
