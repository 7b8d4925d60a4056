package validation

import (
	"time"
)

// Level is the overall strictness of a run.
type Level string

const (
	LevelStrict   Level = "strict"
	LevelStandard Level = "standard"
	LevelLenient  Level = "lenient"
)

// SecurityLevel tunes the security checks.
type SecurityLevel string

const (
	SecurityHigh   SecurityLevel = "high"
	SecurityMedium SecurityLevel = "medium"
	SecurityLow    SecurityLevel = "low"
)

const (
	DefaultMaxConcurrentValidations = 4
	DefaultMaxFileSize              = 10 * 1024 * 1024
	DefaultMaxProcessingTime        = 300 * time.Second
	DefaultMaxDependencyDepth       = 10

	minFileSize       = 1024
	minProcessingTime = time.Second
)

// Config selects which checks run and bounds their cost.
// A zero MaxProcessingTime disables the engine timeout.
type Config struct {
	Level    Level         `mapstructure:"level" json:"level" validate:"omitempty,oneof=strict standard lenient"`
	Security SecurityLevel `mapstructure:"security" json:"security" validate:"omitempty,oneof=high medium low"`

	StructuralValidation bool `mapstructure:"structural_validation" json:"structuralValidation"`
	SemanticValidation   bool `mapstructure:"semantic_validation" json:"semanticValidation"`
	SecurityValidation   bool `mapstructure:"security_validation" json:"securityValidation"`
	ComplianceValidation bool `mapstructure:"compliance_validation" json:"complianceValidation"`
	CrossFileValidation  bool `mapstructure:"cross_file_validation" json:"crossFileValidation"`
	ParallelProcessing   bool `mapstructure:"parallel_processing" json:"parallelProcessing"`

	MaxConcurrentValidations int           `mapstructure:"max_concurrent_validations" json:"maxConcurrentValidations" validate:"gte=0,lte=256"`
	MaxFileSize              int64         `mapstructure:"max_file_size" json:"maxFileSize" validate:"gte=0"`
	MaxProcessingTime        time.Duration `mapstructure:"max_processing_time" json:"maxProcessingTime" validate:"gte=0"`

	AllowCircularDependencies bool `mapstructure:"allow_circular_dependencies" json:"allowCircularDependencies"`
	MaxDependencyDepth        int  `mapstructure:"max_dependency_depth" json:"maxDependencyDepth" validate:"gte=0,lte=1000"`

	EnabledRules  []string `mapstructure:"enabled_rules" json:"enabledRules,omitempty"`
	DisabledRules []string `mapstructure:"disabled_rules" json:"disabledRules,omitempty"`
}

// Standard is the default configuration.
func Standard() *Config {
	return &Config{
		Level:                    LevelStandard,
		Security:                 SecurityMedium,
		StructuralValidation:     true,
		SemanticValidation:       true,
		SecurityValidation:       true,
		ComplianceValidation:     true,
		CrossFileValidation:      true,
		ParallelProcessing:       true,
		MaxConcurrentValidations: DefaultMaxConcurrentValidations,
		MaxFileSize:              DefaultMaxFileSize,
		MaxProcessingTime:        DefaultMaxProcessingTime,
		MaxDependencyDepth:       DefaultMaxDependencyDepth,
	}
}

// Strict enables everything and never tolerates cycles.
func Strict() *Config {
	c := Standard()
	c.Level = LevelStrict
	c.Security = SecurityHigh
	return c
}

// Lenient runs structural and security checks only and tolerates cycles.
func Lenient() *Config {
	c := Standard()
	c.Level = LevelLenient
	c.Security = SecurityLow
	c.SemanticValidation = false
	c.ComplianceValidation = false
	c.CrossFileValidation = false
	c.AllowCircularDependencies = true
	c.MaxDependencyDepth = 20
	return c
}

// PerformanceOptimized favours throughput over depth.
func PerformanceOptimized() *Config {
	c := Standard()
	c.SemanticValidation = false
	c.CrossFileValidation = false
	c.MaxConcurrentValidations = 8
	c.MaxProcessingTime = 60 * time.Second
	return c
}

// SecurityFocused runs the structural and security families with a tighter size cap.
func SecurityFocused() *Config {
	c := Standard()
	c.Security = SecurityHigh
	c.SemanticValidation = false
	c.CrossFileValidation = false
	c.MaxConcurrentValidations = 2
	c.MaxFileSize = 5 * 1024 * 1024
	return c
}

// Preset returns the named preset and whether it exists.
func Preset(name string) (*Config, bool) {
	switch name {
	case "", "standard":
		return Standard(), true
	case "strict":
		return Strict(), true
	case "lenient":
		return Lenient(), true
	case "performance":
		return PerformanceOptimized(), true
	case "security":
		return SecurityFocused(), true
	}
	return nil, false
}

// Clamp raises out-of-range limits to their minimums.
func (c *Config) Clamp() *Config {
	if c.MaxConcurrentValidations < 1 {
		c.MaxConcurrentValidations = 1
	}
	if c.MaxFileSize < minFileSize {
		c.MaxFileSize = minFileSize
	}
	if c.MaxProcessingTime < 0 {
		c.MaxProcessingTime = 0
	}
	if c.MaxProcessingTime > 0 && c.MaxProcessingTime < minProcessingTime {
		c.MaxProcessingTime = minProcessingTime
	}
	if c.MaxDependencyDepth < 1 {
		c.MaxDependencyDepth = 1
	}
	return c
}

// RuleEnabled reports whether the named rule may run. A non-empty
// EnabledRules list is exclusive; otherwise every rule not disabled runs.
func (c *Config) RuleEnabled(name string) bool {
	if len(c.EnabledRules) > 0 {
		return contains(c.EnabledRules, name)
	}
	return !contains(c.DisabledRules, name)
}

// CategoryEnabled reports whether the family flag of cat is on.
func (c *Config) CategoryEnabled(cat Category) bool {
	switch cat {
	case CategoryStructural:
		return c.StructuralValidation
	case CategorySecurity:
		return c.SecurityValidation
	case CategorySemantic:
		return c.SemanticValidation
	case CategoryCompliance:
		return c.ComplianceValidation
	}
	return true
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.EnabledRules = append([]string(nil), c.EnabledRules...)
	cp.DisabledRules = append([]string(nil), c.DisabledRules...)
	return &cp
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
