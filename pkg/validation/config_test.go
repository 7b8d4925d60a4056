package validation_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/csdlc/pkg/validation"
)

func TestConfig_Presets(t *testing.T) {
	std := validation.Standard()
	assert.Equal(t, 4, std.MaxConcurrentValidations)
	assert.Equal(t, int64(10*1024*1024), std.MaxFileSize)
	assert.Equal(t, 300*time.Second, std.MaxProcessingTime)
	assert.Equal(t, 10, std.MaxDependencyDepth)
	assert.False(t, std.AllowCircularDependencies)

	lenient := validation.Lenient()
	assert.True(t, lenient.AllowCircularDependencies)
	assert.False(t, lenient.SemanticValidation)

	for _, name := range []string{"standard", "strict", "lenient", "performance", "security"} {
		_, ok := validation.Preset(name)
		assert.True(t, ok, name)
	}
	_, ok := validation.Preset("paranoid")
	assert.False(t, ok)
}

func TestConfig_Clamp(t *testing.T) {
	cfg := &validation.Config{
		MaxConcurrentValidations: 0,
		MaxFileSize:              10,
		MaxProcessingTime:        time.Millisecond,
		MaxDependencyDepth:       -3,
	}
	cfg.Clamp()

	assert.Equal(t, 1, cfg.MaxConcurrentValidations)
	assert.Equal(t, int64(1024), cfg.MaxFileSize)
	assert.Equal(t, time.Second, cfg.MaxProcessingTime)
	assert.Equal(t, 1, cfg.MaxDependencyDepth)

	unbounded := &validation.Config{}
	assert.Zero(t, unbounded.Clamp().MaxProcessingTime, "zero disables the timeout")
}

func TestConfig_Clone(t *testing.T) {
	cfg := validation.Standard()
	cfg.DisabledRules = []string{"a"}
	cp := cfg.Clone()
	cp.DisabledRules[0] = "b"
	assert.Equal(t, "a", cfg.DisabledRules[0])
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	t.Run("Missing file yields defaults", func(t *testing.T) {
		cfg, err := validation.LoadConfig(filepath.Join(dir, "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, validation.Standard(), cfg)
	})

	t.Run("YAML over preset", func(t *testing.T) {
		p := write("csdlc.yaml", `
preset: lenient
max_processing_time: 30s
max_concurrent_validations: 2
disabled_rules: [xxe-attack]
`)
		cfg, err := validation.LoadConfig(p)
		require.NoError(t, err)
		assert.Equal(t, validation.LevelLenient, cfg.Level)
		assert.True(t, cfg.AllowCircularDependencies)
		assert.Equal(t, 30*time.Second, cfg.MaxProcessingTime)
		assert.Equal(t, 2, cfg.MaxConcurrentValidations)
		assert.False(t, cfg.RuleEnabled("xxe-attack"))
	})

	t.Run("JSON", func(t *testing.T) {
		p := write("csdlc.json", `{"allow_circular_dependencies": true, "max_dependency_depth": 3, "enabled_rules": "element-definition,xxe-attack"}`)
		cfg, err := validation.LoadConfig(p)
		require.NoError(t, err)
		assert.True(t, cfg.AllowCircularDependencies)
		assert.Equal(t, 3, cfg.MaxDependencyDepth)
		assert.Equal(t, []string{"element-definition", "xxe-attack"}, cfg.EnabledRules)
		assert.False(t, cfg.RuleEnabled("annotation-validation"))
	})

	t.Run("Over a base", func(t *testing.T) {
		base := validation.Strict()
		cfg, err := validation.LoadConfigOver(filepath.Join(dir, "absent.yaml"), base)
		require.NoError(t, err)
		assert.Equal(t, base, cfg)
		assert.NotSame(t, base, cfg)

		p := write("over.yaml", "max_dependency_depth: 4\n")
		cfg, err = validation.LoadConfigOver(p, base)
		require.NoError(t, err)
		assert.Equal(t, validation.LevelStrict, cfg.Level)
		assert.Equal(t, 4, cfg.MaxDependencyDepth)
		assert.NotEqual(t, 4, base.MaxDependencyDepth)
	})

	t.Run("Small limits are clamped", func(t *testing.T) {
		p := write("small.yaml", "max_file_size: 12\nmax_processing_time: 10ms\n")
		cfg, err := validation.LoadConfig(p)
		require.NoError(t, err)
		assert.Equal(t, int64(1024), cfg.MaxFileSize)
		assert.Equal(t, time.Second, cfg.MaxProcessingTime)
	})

	t.Run("Rejected input", func(t *testing.T) {
		cases := map[string]string{
			"unknown.yaml":  "no_such_option: true\n",
			"level.yaml":    "level: extreme\n",
			"negative.yaml": "max_concurrent_validations: -1\n",
			"preset.yaml":   "preset: paranoid\n",
			"syntax.json":   "{",
		}
		for name, body := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := validation.LoadConfig(write(name, body))
				assert.Error(t, err)
			})
		}
	})
}
