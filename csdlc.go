package csdlc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/csdlc/pkg/adapters/file"
	"github.com/aretw0/csdlc/pkg/adapters/memory"
	"github.com/aretw0/csdlc/pkg/adapters/redis"
	"github.com/aretw0/csdlc/pkg/compliance"
	"github.com/aretw0/csdlc/pkg/loader"
	"github.com/aretw0/csdlc/pkg/merger"
	"github.com/aretw0/csdlc/pkg/ports"
	"github.com/aretw0/csdlc/pkg/validation"
)

// Version is the release of this module.
const Version = "0.1.0"

// Compiler is a compliance.Validator configured from files and flags, plus
// the resources it owns.
type Compiler struct {
	*compliance.Validator
	closers []io.Closer
}

type options struct {
	configFile  string
	preset      string
	overrides   []func(*validation.Config)
	logger      *slog.Logger
	recorder    compliance.Recorder
	cacheTTL    time.Duration
	memoryCache bool
	cacheDir    string
	redisURL    string
	fetchRemote bool
	roots       []string
	resolution  merger.Resolution
}

// Option configures New.
type Option func(*options)

// WithConfigFile loads a YAML or JSON configuration file.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// WithPreset starts from a named preset (standard, strict, lenient,
// performance, security) instead of the standard configuration.
func WithPreset(name string) Option {
	return func(o *options) {
		o.preset = name
	}
}

// WithOverride applies fn to the loaded configuration. Overrides run in order
// after the file and preset.
func WithOverride(fn func(*validation.Config)) Option {
	return func(o *options) {
		o.overrides = append(o.overrides, fn)
	}
}

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics installs a telemetry recorder.
func WithMetrics(r compliance.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithMemoryCache caches results in process for ttl (zero keeps them).
func WithMemoryCache(ttl time.Duration) Option {
	return func(o *options) {
		o.memoryCache = true
		o.cacheTTL = ttl
	}
}

// WithFileCache caches results as files under dir.
func WithFileCache(dir string, ttl time.Duration) Option {
	return func(o *options) {
		o.cacheDir = dir
		o.cacheTTL = ttl
	}
}

// WithRedisCache caches results in the Redis instance at url.
func WithRedisCache(url string, ttl time.Duration) Option {
	return func(o *options) {
		o.redisURL = url
		o.cacheTTL = ttl
	}
}

// WithRemoteReferences lets the dependency graph fetch http(s) references.
func WithRemoteReferences(enabled bool) Option {
	return func(o *options) {
		o.fetchRemote = enabled
	}
}

// WithSearchRoots adds directories consulted for references not found next
// to the referencing document.
func WithSearchRoots(dirs ...string) Option {
	return func(o *options) {
		o.roots = append(o.roots, dirs...)
	}
}

// WithMergeResolution sets how merges settle conflicting duplicates.
func WithMergeResolution(r merger.Resolution) Option {
	return func(o *options) {
		o.resolution = r
	}
}

// New assembles a Compiler. The configuration is resolved in order: preset,
// then file (whose own preset key wins), then overrides.
func New(opts ...Option) (*Compiler, error) {
	o := &options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(o)
	}

	cfg, err := o.config()
	if err != nil {
		return nil, err
	}

	c := &Compiler{}
	vopts := []compliance.Option{
		compliance.WithConfig(cfg),
		compliance.WithLogger(o.logger),
		compliance.WithResolver(loader.DefaultChain(o.fetchRemote, o.roots...)),
		compliance.WithMergeResolution(o.resolution),
	}
	if o.recorder != nil {
		vopts = append(vopts, compliance.WithMetrics(o.recorder))
	}

	var cache ports.ResultCache
	switch {
	case o.redisURL != "":
		rc, err := redis.NewFromURL(o.redisURL, redis.WithTTL(o.cacheTTL))
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, rc)
		cache = rc
	case o.cacheDir != "":
		cache = file.New(o.cacheDir, file.WithTTL(o.cacheTTL))
	case o.memoryCache:
		cache = memory.NewCache(memory.WithTTL(o.cacheTTL))
	}
	if cache != nil {
		vopts = append(vopts, compliance.WithCache(cache))
	}

	c.Validator = compliance.New(vopts...)
	return c, nil
}

func (o *options) config() (*validation.Config, error) {
	cfg := validation.Standard()
	if o.preset != "" {
		p, ok := validation.Preset(o.preset)
		if !ok {
			return nil, fmt.Errorf("unknown validation preset %q", o.preset)
		}
		cfg = p
	}
	if o.configFile != "" {
		loaded, err := validation.LoadConfigOver(o.configFile, cfg)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	for _, fn := range o.overrides {
		fn(cfg)
	}
	return cfg.Clamp(), nil
}

// Ping checks that every external resource is reachable.
func (c *Compiler) Ping(ctx context.Context) error {
	for _, cl := range c.closers {
		if p, ok := cl.(interface{ Ping(context.Context) error }); ok {
			if err := p.Ping(ctx); err != nil {
				return fmt.Errorf("cache unreachable: %w", err)
			}
		}
	}
	return nil
}

// Close releases external resources.
func (c *Compiler) Close() error {
	var errs []error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
