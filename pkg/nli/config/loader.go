package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudwego/eino-ext/components/embedding/openai"

	"github.com/cognicore/nli/pkg/nli/analysis"
	"github.com/cognicore/nli/pkg/nli/annotate"
	"github.com/cognicore/nli/pkg/nli/entity"
	"github.com/cognicore/nli/pkg/nli/lexicon"
	"github.com/cognicore/nli/pkg/nli/querybuild"
	"github.com/cognicore/nli/pkg/nli/rank"
	"github.com/cognicore/nli/pkg/nli/resolve"
	"github.com/cognicore/nli/pkg/nli/rules"
	"github.com/cognicore/nli/pkg/nli/search"
	"github.com/cognicore/nli/pkg/nli/store"
	"github.com/cognicore/nli/pkg/nli/store/lookup"
	"github.com/cognicore/nli/pkg/nli/store/memstore"
	"github.com/cognicore/nli/pkg/nli/store/sqlite"
)

// Loader loads the configuration file and constructs components
type Loader struct {
	ConfigPath string
	Logger     *slog.Logger
}

// Components holds every component built from a configuration
type Components struct {
	Config     Config
	Registry   *analysis.Registry
	Lexicon    *lexicon.Lexicon
	Graph      store.Graph
	Lookup     *lookup.Cached
	Ranker     rank.Ranker
	Search     *search.Engine
	Searcher   resolve.Searcher
	Namespaces entity.Namespaces
	Builder    *querybuild.Builder
}

// Close releases the analyzer cache and the graph store.
func (c *Components) Close() error {
	var errs []error
	if c.Registry != nil {
		errs = append(errs, c.Registry.Close())
	}
	if c.Graph != nil {
		errs = append(errs, c.Graph.Close())
	}
	return errors.Join(errs...)
}

// Load reads the configuration file, if any, and returns initialized
// components.
func (l *Loader) Load(ctx context.Context) (*Components, error) {
	cfg := Default()
	if l.ConfigPath != "" {
		var err error
		if cfg, err = Load(l.ConfigPath); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	return Build(ctx, cfg, l.Logger)
}

// Build constructs components from cfg.
func Build(ctx context.Context, cfg Config, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	comp := &Components{
		Config:     cfg,
		Namespaces: entity.DefaultNamespaces().Merge(cfg.Namespaces),
		Builder:    querybuild.New(cfg.Query),
	}

	// Load lexicon
	if cfg.Lexicon != "" {
		lex, err := lexicon.LoadFromYAML(cfg.Lexicon)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Lexicon = lex
	} else {
		comp.Lexicon = lexicon.New()
	}

	// Load rules once up front so a broken file fails fast
	var custom *rules.RuleSet
	if cfg.Rules != "" {
		rs, err := rules.Load(cfg.Rules)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		custom = rs
	}
	comp.Registry = analysis.NewRegistry(func(ctx context.Context, language string) (*analysis.Analyzer, error) {
		rs := custom
		if rs == nil || rs.Language != language {
			var err error
			if rs, err = rules.Default(language); err != nil {
				return nil, err
			}
		}
		return analysis.New(rs, annotate.NewDictionaryTagger(), analysis.WithLogger(logger)), nil
	})

	ranker, err := newRanker(ctx, cfg.Ranker)
	if err != nil {
		return nil, err
	}
	comp.Ranker = ranker

	graph, err := openGraph(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	comp.Graph = graph

	cached, err := lookup.New(graph, cfg.Store.CacheSize)
	if err != nil {
		graph.Close()
		return nil, err
	}
	comp.Lookup = cached

	comp.Search = search.NewEngine(graph, ranker,
		search.WithConfig(cfg.Search),
		search.WithLexicon(comp.Lexicon),
		search.WithLogger(logger),
	)
	comp.Searcher = comp.Search
	if len(cfg.CustomMappings) > 0 {
		overrides := make(map[string][]string, len(cfg.CustomMappings))
		for term, ids := range cfg.CustomMappings {
			for _, id := range ids {
				overrides[term] = append(overrides[term], comp.Namespaces.Expand(id))
			}
		}
		comp.Searcher = resolve.NewCustomMappings(comp.Search, cached, overrides, logger)
	}

	return comp, nil
}

func openGraph(ctx context.Context, cfg Store) (store.Graph, error) {
	switch cfg.Driver {
	case "sqlite":
		g, err := sqlite.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open graph %s: %w", cfg.Path, err)
		}
		return g, nil
	default:
		return memstore.New(), nil
	}
}

func newRanker(ctx context.Context, cfg Ranker) (rank.Ranker, error) {
	switch cfg.Kind {
	case "levenshtein":
		return rank.Levenshtein(), nil
	case "jaccard":
		return rank.Jaccard(), nil
	case "embedding":
		emb, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
			APIKey:  os.Getenv(cfg.Embedding.APIKeyEnv),
		})
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
		return rank.NewEmbeddingRanker(emb), nil
	case "jaro-winkler", "":
		return rank.JaroWinkler(), nil
	}
	return nil, fmt.Errorf("unknown ranker %q", cfg.Kind)
}
