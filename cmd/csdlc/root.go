package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/csdlc"
	"github.com/aretw0/csdlc/internal/logging"
	"github.com/aretw0/csdlc/pkg/compliance"
	"github.com/aretw0/csdlc/pkg/merger"
	"github.com/aretw0/csdlc/pkg/validation"
)

// errNonCompliant is returned when a command completed but found errors.
// It is reported through the exit code only.
var errNonCompliant = errors.New("schemas are not compliant")

var rootCmd = &cobra.Command{
	Use:   "csdlc",
	Short: "csdlc validates OData CSDL schemas and their references",
	Long: `csdlc loads OData CSDL (EDMX) documents, follows their edmx:Reference
includes, and reports duplicate elements, unresolved types, circular
dependencies and cross-file conflicts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errNonCompliant) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Validation config file (YAML or JSON)")
	pf.String("preset", "", "Validation preset: standard, strict, lenient, performance, security")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text or json")
	pf.Bool("json", false, "Print machine readable JSON")
	pf.String("redis-url", "", "Cache results in Redis (redis://host:port/db)")
	pf.String("cache-dir", "", "Cache results as files in this directory")
	pf.Duration("cache-ttl", time.Hour, "Lifetime of cached results")
	pf.Bool("remote", false, "Fetch http(s) references")
	pf.StringSlice("roots", nil, "Extra directories searched for referenced documents")
	pf.Bool("allow-cycles", false, "Tolerate circular references")
	pf.Int("max-depth", 0, "Maximum reference depth (0 keeps the configured value)")
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	lvl, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	level, err := logging.ParseLevel(lvl)
	if err != nil {
		return nil, err
	}
	f, err := logging.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return logging.New(level, f), nil
}

// newCompiler builds a Compiler from the persistent flags. extra options are
// applied last.
func newCompiler(cmd *cobra.Command, extra ...csdlc.Option) (*csdlc.Compiler, *slog.Logger, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	configFile, _ := flags.GetString("config")
	preset, _ := flags.GetString("preset")
	redisURL, _ := flags.GetString("redis-url")
	cacheDir, _ := flags.GetString("cache-dir")
	ttl, _ := flags.GetDuration("cache-ttl")
	remote, _ := flags.GetBool("remote")
	roots, _ := flags.GetStringSlice("roots")

	opts := []csdlc.Option{
		csdlc.WithLogger(logger),
		csdlc.WithPreset(preset),
		csdlc.WithRemoteReferences(remote),
		csdlc.WithSearchRoots(roots...),
	}
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, nil, fmt.Errorf("config file: %w", err)
		}
		opts = append(opts, csdlc.WithConfigFile(configFile))
	}
	switch {
	case redisURL != "":
		opts = append(opts, csdlc.WithRedisCache(redisURL, ttl))
	case cacheDir != "":
		opts = append(opts, csdlc.WithFileCache(cacheDir, ttl))
	}
	if flags.Changed("allow-cycles") {
		allow, _ := flags.GetBool("allow-cycles")
		opts = append(opts, csdlc.WithOverride(func(c *validation.Config) { c.AllowCircularDependencies = allow }))
	}
	if depth, _ := flags.GetInt("max-depth"); depth > 0 {
		opts = append(opts, csdlc.WithOverride(func(c *validation.Config) { c.MaxDependencyDepth = depth }))
	}
	if flags.Lookup("resolution") != nil {
		name, _ := flags.GetString("resolution")
		r, err := merger.ParseResolution(name)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, csdlc.WithMergeResolution(r))
	}
	opts = append(opts, extra...)

	c, err := csdlc.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	return c, logger, nil
}

// verdict maps a run to the command error.
func verdict(res *compliance.Result) error {
	if res.Compliant() {
		return nil
	}
	return errNonCompliant
}
