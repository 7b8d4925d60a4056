// Package validation runs pluggable rules against schema documents.
//
// An Engine selects the first Strategy able to handle a Context, lets it
// prepare the context (read, parse, fan out over a directory) and executes
// the applicable rules either sequentially or in parallel under a timeout.
// Rule outcomes are values: a failing rule produces an issue in the context,
// a panicking rule is recovered and reported, and only infrastructure
// problems surface as Go errors.
package validation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/csdlc/pkg/domain"
)

// Recorder receives execution telemetry.
type Recorder interface {
	RuleExecuted(rule string, passed bool, d time.Duration)
	ValidationFinished(strategy string, valid bool, d time.Duration)
	ValidationTimedOut(strategy string)
}

// Engine holds the registered rules and strategies.
type Engine struct {
	mu         sync.RWMutex
	rules      map[string]Rule
	strategies []Strategy

	logger   *slog.Logger
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger configures the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics configures a telemetry recorder.
func WithMetrics(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithStrategies replaces the default strategies.
func WithStrategies(s ...Strategy) Option {
	return func(e *Engine) {
		e.strategies = append([]Strategy(nil), s...)
	}
}

// WithRules registers rules at construction.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) {
		for _, r := range rules {
			e.RegisterRule(r)
		}
	}
}

// NewEngine creates an engine with the default strategies and no rules.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		rules:      make(map[string]Rule),
		strategies: DefaultStrategies(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterRule adds r, replacing any rule with the same name.
func (e *Engine) RegisterRule(r Rule) {
	if r == nil {
		panic("validation: RegisterRule called with nil rule")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules[r.Name()] = r
}

// UnregisterRule removes the named rule and reports whether it existed.
func (e *Engine) UnregisterRule(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.rules[name]
	delete(e.rules, name)
	return ok
}

// RegisterStrategy appends s to the selection order.
func (e *Engine) RegisterStrategy(s Strategy) {
	if s == nil {
		panic("validation: RegisterStrategy called with nil strategy")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies = append(e.strategies, s)
}

// Rules returns the registered rules sorted by name.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Rule, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Rule returns the named rule.
func (e *Engine) Rule(name string) (Rule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.rules[name]
	return r, ok
}

// Strategies returns the strategies in selection order.
func (e *Engine) Strategies() []Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Strategy(nil), e.strategies...)
}

func (e *Engine) strategyFor(vctx *Context) Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, s := range e.strategies {
		if s.CanHandle(vctx) {
			return s
		}
	}
	return nil
}

// Validate runs the first matching strategy against vctx. A nil cfg means
// Standard(). When cfg.MaxProcessingTime is positive and the bound is hit,
// the result is a synthetic timeout failure, never a partial result.
func (e *Engine) Validate(ctx context.Context, vctx *Context, cfg *Config) (*Result, error) {
	if vctx == nil {
		return nil, errors.New("validation: nil context")
	}
	if cfg == nil {
		cfg = Standard()
	}
	strategy := e.strategyFor(vctx)
	if strategy == nil {
		return nil, domain.ErrUnsupportedContext
	}
	vctx.SetMetadata("strategy", strategy.Name())

	if cfg.MaxProcessingTime <= 0 {
		if err := strategy.Execute(ctx, vctx, cfg, e); err != nil {
			return nil, err
		}
		return e.finish(vctx, strategy), nil
	}

	tctx, cancel := context.WithTimeout(ctx, cfg.MaxProcessingTime)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("strategy %s panicked: %v", strategy.Name(), p)
			}
		}()
		done <- strategy.Execute(tctx, vctx, cfg, e)
	}()

	select {
	case err := <-done:
		if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return e.timedOut(vctx, strategy, cfg.MaxProcessingTime), nil
		}
		if err != nil {
			return nil, err
		}
		return e.finish(vctx, strategy), nil
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return e.timedOut(vctx, strategy, cfg.MaxProcessingTime), nil
	}
}

// RunRules executes every applicable rule. It implements Executor.
func (e *Engine) RunRules(ctx context.Context, vctx *Context, cfg *Config) error {
	rules := e.applicable(vctx, cfg)
	if len(rules) == 0 {
		return nil
	}
	if cfg.ParallelProcessing && len(rules) > 1 {
		return e.runParallel(ctx, vctx, cfg, rules)
	}
	return e.runSequential(ctx, vctx, cfg, rules)
}

func (e *Engine) applicable(vctx *Context, cfg *Config) []Rule {
	var out []Rule
	for _, r := range e.Rules() {
		if cfg.CategoryEnabled(r.Category()) && cfg.RuleEnabled(r.Name()) && r.IsApplicable(vctx, cfg) {
			out = append(out, r)
		}
	}
	return out
}

func (e *Engine) runSequential(ctx context.Context, vctx *Context, cfg *Config, rules []Rule) error {
	for _, r := range rules {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := invoke(ctx, vctx, cfg, r)
		if err != nil {
			e.crashed(vctx, res, err)
			continue
		}
		e.record(vctx, res)
	}
	return nil
}

func (e *Engine) runParallel(ctx context.Context, vctx *Context, cfg *Config, rules []Rule) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(cfg.MaxConcurrentValidations)
		for _, r := range rules {
			g.Go(func() error {
				res, err := invoke(ctx, vctx, cfg, r)
				if err != nil {
					e.crashed(vctx, res, err)
					return nil
				}
				e.record(vctx, res)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		vctx.AddIssue(domain.Issue{
			Kind:     domain.KindValidationTimeout,
			Severity: domain.SeverityError,
			Message:  fmt.Sprintf("Parallel rule execution failed: %v", ctx.Err()),
		})
		return fmt.Errorf("parallel rule execution failed: %w", ctx.Err())
	}
}

// crashed downgrades a rule that panicked to a warning, in either mode.
func (e *Engine) crashed(vctx *Context, res RuleResult, err error) {
	e.logger.Warn("rule panicked", "rule", res.RuleName, "error", err)
	vctx.RecordTiming(res.RuleName, res.Duration)
	vctx.AddWarning(res.RuleName, fmt.Sprintf("Rule execution failed: %s - %v", res.RuleName, err))
}

// invoke runs r and converts a panic into an error.
func invoke(ctx context.Context, vctx *Context, cfg *Config, r Rule) (res RuleResult, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = RuleResult{RuleName: r.Name(), Duration: time.Since(start)}
			err = fmt.Errorf("%v", p)
		}
	}()
	res = r.Validate(ctx, vctx, cfg)
	if res.RuleName == "" {
		res.RuleName = r.Name()
	}
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}
	return res, nil
}

func (e *Engine) record(vctx *Context, res RuleResult) {
	vctx.RecordTiming(res.RuleName, res.Duration)
	if e.recorder != nil {
		e.recorder.RuleExecuted(res.RuleName, res.Passed, res.Duration)
	}
	if res.Passed {
		return
	}
	kind := res.Kind
	if kind == "" {
		kind = domain.KindRuleFailure
	}
	vctx.AddIssue(domain.Issue{
		Kind:        kind,
		Severity:    e.severityOf(res.RuleName),
		Message:     res.Message,
		Rule:        res.RuleName,
		Element:     res.Element,
		ElementKind: res.ElementKind,
	})
}

// severityOf maps the declared severity of a rule. Results from unknown
// rules are errors.
func (e *Engine) severityOf(name string) domain.Severity {
	r, ok := e.Rule(name)
	if !ok {
		return domain.SeverityError
	}
	return domain.ParseSeverity(r.Severity())
}

func (e *Engine) finish(vctx *Context, s Strategy) *Result {
	res := newResult(vctx, s.Name())
	if e.recorder != nil {
		e.recorder.ValidationFinished(s.Name(), res.Valid(), res.ProcessingTime)
	}
	e.logger.Debug("validation finished",
		"strategy", s.Name(),
		"target", res.File,
		"valid", res.Valid(),
		"issues", len(res.Issues),
		"duration", res.ProcessingTime,
	)
	return res
}

func (e *Engine) timedOut(vctx *Context, s Strategy, bound time.Duration) *Result {
	if e.recorder != nil {
		e.recorder.ValidationTimedOut(s.Name())
	}
	e.logger.Warn("validation timed out", "strategy", s.Name(), "bound", bound)
	target := vctx.FilePath()
	if vctx.IsDirectory() {
		target = vctx.Directory()
	}
	return &Result{
		File:           target,
		Strategy:       s.Name(),
		ProcessingTime: bound,
		Issues: []domain.Issue{{
			Kind:     domain.KindValidationTimeout,
			Severity: domain.SeverityError,
			Message:  fmt.Sprintf("Validation timed out after %dms", bound.Milliseconds()),
			File:     target,
		}},
		Metadata: map[string]any{"strategy": s.Name(), "timedOut": true},
	}
}
