package validation_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/csdlc/pkg/csdl"
	"github.com/aretw0/csdlc/pkg/domain"
	"github.com/aretw0/csdlc/pkg/validation"
)

type stubRule struct {
	name     string
	category validation.Category
	severity string
	skip     bool
	fn       func(ctx context.Context, vctx *validation.Context) validation.RuleResult
}

func (r *stubRule) Name() string                  { return r.name }
func (r *stubRule) Description() string           { return "stub " + r.name }
func (r *stubRule) Category() validation.Category { return r.category }
func (r *stubRule) Severity() string              { return r.severity }

func (r *stubRule) IsApplicable(*validation.Context, *validation.Config) bool { return !r.skip }

func (r *stubRule) Validate(ctx context.Context, vctx *validation.Context, _ *validation.Config) validation.RuleResult {
	return r.fn(ctx, vctx)
}

func failing(name, severity, msg string) *stubRule {
	return &stubRule{
		name: name, category: validation.CategoryStructural, severity: severity,
		fn: func(context.Context, *validation.Context) validation.RuleResult {
			return validation.Fail(name, msg, time.Millisecond)
		},
	}
}

func passing(name string) *stubRule {
	return &stubRule{
		name: name, category: validation.CategoryStructural, severity: "error",
		fn: func(context.Context, *validation.Context) validation.RuleResult {
			return validation.Pass(name, time.Millisecond)
		},
	}
}

func schemaCtx() *validation.Context {
	return validation.NewSchemaContext(csdl.NewSchema("N").Entity("Person").Done().Build())
}

func sequential() *validation.Config {
	cfg := validation.Standard()
	cfg.ParallelProcessing = false
	return cfg
}

func TestEngine_UnsupportedContext(t *testing.T) {
	t.Run("No strategy matches", func(t *testing.T) {
		e := validation.NewEngine()
		_, err := e.Validate(context.Background(), validation.NewSchemaContext(), nil)
		assert.ErrorIs(t, err, domain.ErrUnsupportedContext)
	})

	t.Run("No strategies registered", func(t *testing.T) {
		e := validation.NewEngine(validation.WithStrategies())
		_, err := e.Validate(context.Background(), schemaCtx(), nil)
		assert.ErrorIs(t, err, domain.ErrUnsupportedContext)
	})

	t.Run("Nil context", func(t *testing.T) {
		_, err := validation.NewEngine().Validate(context.Background(), nil, nil)
		assert.Error(t, err)
	})
}

func TestEngine_SeverityMapping(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		cfg := validation.Standard()
		cfg.ParallelProcessing = parallel

		e := validation.NewEngine(validation.WithRules(
			failing("a-error", "error", "bad"),
			failing("b-warning", "warning", "meh"),
			failing("c-info", "note", "fyi"),
			passing("d-pass"),
		))

		res, err := e.Validate(context.Background(), schemaCtx(), cfg)
		require.NoError(t, err)

		assert.Equal(t, []string{"[a-error] bad"}, res.Errors())
		assert.Equal(t, []string{"[b-warning] meh"}, res.Warnings())
		assert.Equal(t, []string{"[c-info] fyi"}, res.Infos())
		assert.False(t, res.Valid())
		assert.Equal(t, "schema", res.Strategy)
		assert.Equal(t, "N", res.Metadata["schemaNamespace"])

		timings, ok := res.Metadata["ruleExecutionTimes"].(map[string]int64)
		require.True(t, ok)
		assert.Len(t, timings, 4, "timings are recorded regardless of outcome")
	}
}

func TestEngine_RuleSelection(t *testing.T) {
	sec := failing("sec", "error", "x")
	sec.category = validation.CategorySecurity
	skipped := failing("skipped", "error", "x")
	skipped.skip = true

	e := validation.NewEngine(validation.WithRules(failing("one", "error", "1"), failing("two", "error", "2"), sec, skipped))

	t.Run("Category flag", func(t *testing.T) {
		cfg := sequential()
		cfg.SecurityValidation = false
		res, err := e.Validate(context.Background(), schemaCtx(), cfg)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"[one] 1", "[two] 2"}, res.Errors())
	})

	t.Run("Disabled rules", func(t *testing.T) {
		cfg := sequential()
		cfg.DisabledRules = []string{"one", "sec"}
		res, err := e.Validate(context.Background(), schemaCtx(), cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"[two] 2"}, res.Errors())
	})

	t.Run("Enabled rules are exclusive", func(t *testing.T) {
		cfg := sequential()
		cfg.EnabledRules = []string{"sec"}
		cfg.DisabledRules = []string{"sec"}
		res, err := e.Validate(context.Background(), schemaCtx(), cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"[sec] x"}, res.Errors())
	})

	t.Run("Registry", func(t *testing.T) {
		names := func() []string {
			var out []string
			for _, r := range e.Rules() {
				out = append(out, r.Name())
			}
			return out
		}
		assert.Equal(t, []string{"one", "sec", "skipped", "two"}, names())
		assert.True(t, e.UnregisterRule("skipped"))
		assert.False(t, e.UnregisterRule("skipped"))
		_, ok := e.Rule("skipped")
		assert.False(t, ok)
		assert.Panics(t, func() { e.RegisterRule(nil) })
	})
}

func TestEngine_PanickingRule(t *testing.T) {
	boom := &stubRule{
		name: "boom", category: validation.CategoryStructural, severity: "error",
		fn: func(context.Context, *validation.Context) validation.RuleResult { panic("kaboom") },
	}

	t.Run("Sequential downgrades to warning", func(t *testing.T) {
		e := validation.NewEngine(validation.WithRules(boom, failing("next", "error", "still ran")))
		res, err := e.Validate(context.Background(), schemaCtx(), sequential())
		require.NoError(t, err)
		assert.Equal(t, []string{"[boom] Rule execution failed: boom - kaboom"}, res.Warnings())
		assert.Equal(t, []string{"[next] still ran"}, res.Errors())
	})

	t.Run("Parallel downgrades to warning", func(t *testing.T) {
		e := validation.NewEngine(validation.WithRules(boom, passing("other")))
		res, err := e.Validate(context.Background(), schemaCtx(), validation.Standard())
		require.NoError(t, err)
		assert.Empty(t, res.Errors())
		assert.Equal(t, []string{"[boom] Rule execution failed: boom - kaboom"}, res.Warnings())
		assert.True(t, res.Valid())
	})
}

func TestEngine_Timeout(t *testing.T) {
	slow := &stubRule{
		name: "slow", category: validation.CategoryStructural, severity: "error",
		fn: func(ctx context.Context, _ *validation.Context) validation.RuleResult {
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
			return validation.Pass("slow", 0)
		},
	}

	for _, parallel := range []bool{false, true} {
		cfg := validation.Standard()
		cfg.ParallelProcessing = parallel
		cfg.MaxProcessingTime = 50 * time.Millisecond

		e := validation.NewEngine(validation.WithRules(slow, passing("fast")))
		start := time.Now()
		res, err := e.Validate(context.Background(), schemaCtx(), cfg)
		require.NoError(t, err)

		assert.Less(t, time.Since(start), 2*time.Second)
		assert.False(t, res.Valid())
		assert.Equal(t, []string{"Validation timed out after 50ms"}, res.Errors())
		assert.Equal(t, 50*time.Millisecond, res.ProcessingTime)
		require.Len(t, res.IssuesOfKind(domain.KindValidationTimeout), 1)
	}

	t.Run("Caller cancellation is an error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cfg := sequential()
		_, err := validation.NewEngine(validation.WithRules(slow)).Validate(ctx, schemaCtx(), cfg)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEngine_FileStrategy(t *testing.T) {
	dir := t.TempDir()

	t.Run("Parses and records namespace", func(t *testing.T) {
		path := filepath.Join(dir, "ok.xml")
		require.NoError(t, os.WriteFile(path, []byte(`<Schema Namespace="Sales"><EntityType Name="Order"/></Schema>`), 0o644))

		var seen []*csdl.Schema
		probe := &stubRule{
			name: "probe", category: validation.CategoryStructural, severity: "error",
			fn: func(_ context.Context, vctx *validation.Context) validation.RuleResult {
				seen = vctx.Schemas()
				return validation.Pass("probe", 0)
			},
		}
		res, err := validation.NewEngine(validation.WithRules(probe)).Validate(context.Background(), validation.NewFileContext(path), nil)
		require.NoError(t, err)
		assert.True(t, res.Valid())
		assert.Equal(t, "file", res.Strategy)
		assert.Equal(t, path, res.File)
		assert.Equal(t, "Sales", res.Metadata["schemaNamespace"])
		require.Len(t, seen, 1)
		require.NotNil(t, res.Document)
	})

	t.Run("Parse failure is an issue", func(t *testing.T) {
		path := filepath.Join(dir, "bad.xml")
		require.NoError(t, os.WriteFile(path, []byte(`<Schema Namespace="X"><EntityType`), 0o644))

		res, err := validation.NewEngine().Validate(context.Background(), validation.NewFileContext(path), nil)
		require.NoError(t, err)
		assert.False(t, res.Valid())
		assert.Len(t, res.IssuesOfKind(domain.KindParsingError), 1)
	})

	t.Run("Oversized file skips rules", func(t *testing.T) {
		path := filepath.Join(dir, "big.xml")
		require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o644))
		cfg := validation.Standard()
		cfg.MaxFileSize = 1024

		res, err := validation.NewEngine(validation.WithRules(failing("never", "error", "ran"))).
			Validate(context.Background(), validation.NewFileContext(path), cfg)
		require.NoError(t, err)
		require.Len(t, res.Issues, 1)
		assert.Equal(t, domain.KindFileTooLarge, res.Issues[0].Kind)
	})

	t.Run("Missing file is an error", func(t *testing.T) {
		_, err := validation.NewEngine().Validate(context.Background(), validation.NewFileContext(filepath.Join(dir, "nope.xml")), nil)
		assert.Error(t, err)
	})
}

func TestEngine_ContentStrategy(t *testing.T) {
	res, err := validation.NewEngine().Validate(context.Background(),
		validation.NewContentContext([]byte(`<Schema Namespace="C"/>`)), nil)
	require.NoError(t, err)
	assert.Equal(t, "content", res.Strategy)
	assert.Equal(t, "C", res.Metadata["schemaNamespace"])
	assert.Empty(t, res.File)
}

func TestEngine_DirectoryStrategy(t *testing.T) {
	good := validation.NewDocumentContext("a.xml", []byte(`<Schema Namespace="A"/>`), nil)
	bad := validation.NewDocumentContext("b.xml", []byte(`<Schema Namespace="B"/>`), nil)

	rule := &stubRule{
		name: "no-b", category: validation.CategoryStructural, severity: "error",
		fn: func(_ context.Context, vctx *validation.Context) validation.RuleResult {
			if vctx.IsDeclared("B") {
				return validation.Fail("no-b", "namespace B is forbidden", 0)
			}
			return validation.Pass("no-b", 0)
		},
	}

	res, err := validation.NewEngine(validation.WithRules(rule)).
		Validate(context.Background(), validation.NewDirectoryContext("dir", good, bad), nil)
	require.NoError(t, err)

	assert.Equal(t, "directory", res.Strategy)
	assert.Equal(t, "dir", res.File)
	assert.False(t, res.Valid())
	require.Len(t, res.Files, 2)
	assert.True(t, res.Files[0].Valid())
	assert.Equal(t, []string{"[no-b] namespace B is forbidden"}, res.Files[1].Errors())
	assert.Equal(t, "b.xml", res.Files[1].Issues[0].File)
}

type countingRecorder struct {
	mu       sync.Mutex
	rules    int
	finished int
	timeouts int
}

func (c *countingRecorder) RuleExecuted(string, bool, time.Duration) {
	c.mu.Lock()
	c.rules++
	c.mu.Unlock()
}

func (c *countingRecorder) ValidationFinished(string, bool, time.Duration) {
	c.mu.Lock()
	c.finished++
	c.mu.Unlock()
}

func (c *countingRecorder) ValidationTimedOut(string) {
	c.mu.Lock()
	c.timeouts++
	c.mu.Unlock()
}

func TestEngine_Recorder(t *testing.T) {
	rec := &countingRecorder{}
	e := validation.NewEngine(validation.WithMetrics(rec), validation.WithRules(passing("a"), passing("b")))

	_, err := e.Validate(context.Background(), schemaCtx(), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.rules)
	assert.Equal(t, 1, rec.finished)
	assert.Zero(t, rec.timeouts)
}
