// Package compliance is the entry point used by tooling: it validates files
// and directories, builds reference graphs and merges schema fragments.
package compliance

import (
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/loader"
	"github.com/aretw0/csdlc/pkg/merger"
	"github.com/aretw0/csdlc/pkg/ports"
	"github.com/aretw0/csdlc/pkg/rules"
	"github.com/aretw0/csdlc/pkg/validation"
)

// Recorder receives telemetry from every layer of a run.
type Recorder interface {
	validation.Recorder
	FileValidated(compliant bool, d time.Duration)
	GraphBuilt(nodes, edges, cycles int)
	CacheLookup(hit bool)
}

// Validator ties the engine, loader and merger together.
type Validator struct {
	cfg        *validation.Config
	engine     *validation.Engine
	merger     *merger.Merger
	resolution merger.Resolution
	resolver   ports.Resolver
	cache      ports.ResultCache
	recorder   Recorder
	parser     *csdl.Parser
	logger     *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithConfig sets the validation configuration. The config is clamped.
func WithConfig(cfg *validation.Config) Option {
	return func(v *Validator) {
		if cfg != nil {
			v.cfg = cfg.Clone().Clamp()
		}
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// WithCache enables result caching keyed by content hash.
func WithCache(c ports.ResultCache) Option {
	return func(v *Validator) {
		v.cache = c
	}
}

// WithMetrics installs a telemetry recorder.
func WithMetrics(r Recorder) Option {
	return func(v *Validator) {
		v.recorder = r
	}
}

// WithEngine replaces the default engine (all built-in rules).
func WithEngine(e *validation.Engine) Option {
	return func(v *Validator) {
		v.engine = e
	}
}

// WithResolver sets the resolver used by BuildDependencyGraph.
func WithResolver(r ports.Resolver) Option {
	return func(v *Validator) {
		v.resolver = r
	}
}

// WithMergeResolution sets how MergeSchemas settles conflicting duplicates.
func WithMergeResolution(r merger.Resolution) Option {
	return func(v *Validator) {
		v.resolution = r
	}
}

// New creates a Validator with the standard configuration and every built-in rule.
func New(opts ...Option) *Validator {
	v := &Validator{
		cfg:      validation.Standard(),
		resolver: loader.DefaultChain(false),
		parser:   csdl.NewParser(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.merger = merger.New(merger.WithResolution(v.resolution), merger.WithLogger(v.logger.With("component", "merger")))
	if v.engine == nil {
		engineOpts := []validation.Option{
			validation.WithLogger(v.logger.With("component", "engine")),
			validation.WithRules(rules.Defaults()...),
		}
		if v.recorder != nil {
			engineOpts = append(engineOpts, validation.WithMetrics(v.recorder))
		}
		v.engine = validation.NewEngine(engineOpts...)
	}
	return v
}

// Config returns a copy of the active configuration.
func (v *Validator) Config() *validation.Config {
	return v.cfg.Clone()
}

// Engine returns the underlying validation engine.
func (v *Validator) Engine() *validation.Engine {
	return v.engine
}
