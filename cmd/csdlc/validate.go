package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/csdlc/internal/presentation/report"
	"github.com/aretw0/csdlc/internal/watch"
	"github.com/aretw0/csdlc/pkg/compliance"
	"github.com/aretw0/csdlc/pkg/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Validate one or more schema files",
	Long: `Parses each file and runs every enabled rule against it. The exit code
is 1 when any file has an error-severity issue.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

var validateDirCmd = &cobra.Command{
	Use:   "validate-dir DIR",
	Short: "Validate every .xml schema in a directory",
	Long: `Validates every .xml file in DIR. With --cross-file the files are
indexed first so base types and references may resolve across files, and
elements or aliases declared inconsistently by several files are reported.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidateDir,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(validateDirCmd)

	validateDirCmd.Flags().BoolP("recursive", "r", false, "Include subdirectories")
	validateDirCmd.Flags().Bool("cross-file", false, "Resolve and check across files")
	validateDirCmd.Flags().BoolP("watch", "w", false, "Validate again whenever a schema changes")
}

func runValidate(cmd *cobra.Command, args []string) error {
	c, logger, err := newCompiler(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	var (
		results []*compliance.Result
		failed  []error
	)
	compliant := true
	for _, path := range args {
		res, err := c.ValidateFile(cmd.Context(), path)
		if err != nil {
			logger.Error("validation failed", "file", path, "err", err)
			failed = append(failed, fmt.Errorf("%s: %w", path, err))
			continue
		}
		compliant = compliant && res.Compliant()
		results = append(results, res)
	}

	var md string
	for _, res := range results {
		md += report.Result(res) + "\n"
	}
	var out any = results
	if len(results) == 1 {
		out = results[0]
	}
	if err := emit(cmd, out, md); err != nil {
		return err
	}

	if len(failed) > 0 {
		return &domain.AggregateError{Errors: failed}
	}
	if !compliant {
		return errNonCompliant
	}
	return nil
}

func runValidateDir(cmd *cobra.Command, args []string) error {
	recursive, _ := cmd.Flags().GetBool("recursive")
	crossFile, _ := cmd.Flags().GetBool("cross-file")
	watching, _ := cmd.Flags().GetBool("watch")

	c, logger, err := newCompiler(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	dir := args[0]
	opts := compliance.DirectoryOptions{Recursive: recursive, CrossFile: crossFile}
	once := func(ctx context.Context) error {
		res, err := c.ValidateDirectory(ctx, dir, opts)
		if err != nil {
			return err
		}
		if err := emit(cmd, res, report.Result(res)); err != nil {
			return err
		}
		return verdict(res)
	}
	if !watching {
		return once(cmd.Context())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(dir,
		watch.WithRecursive(recursive),
		watch.WithLogger(logger.With("component", "watch")),
	)
	return w.Run(ctx, func(ctx context.Context) error {
		err := once(ctx)
		if errors.Is(err, errNonCompliant) {
			return nil
		}
		return err
	})
}
