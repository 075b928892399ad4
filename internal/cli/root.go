// Package cli implements bakeryctl, the back-office command line tool.
package cli

import (
	"context"
	"errors"
	"fmt"

	"bakery_backend/internal/app"
	"bakery_backend/internal/config"
	"bakery_backend/internal/services"
	"bakery_backend/pkg/utils"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	SQLitePath string // overrides DB_DRIVER and SQLITE_PATH when set
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for bakeryctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "bakeryctl",
		Short:         "Bakery back office",
		Long:          "Manage the bakery inventory from the command line: data import and export, purchase lists, stock predictions and backups.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level := "warn"
			if opts.Verbose {
				level = "debug"
			}
			utils.InitLoggerWithWriter(cmd.ErrOrStderr(), level, "console")
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.SQLitePath, "sqlite", "", "use the SQLite database at this path instead of the configured one")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewSellCommand(opts))
	cmd.AddCommand(NewPurchaseListCommand(opts))
	cmd.AddCommand(NewPredictCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// withApp loads the configuration, builds the services, runs fn and closes everything.
func (o *RootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, out *OutputFormatter) error) error {
	out := o.formatter(cmd)
	cfg, err := config.Load()
	if err != nil {
		return fail(out, ExitCommandError, "CONFIG", err)
	}
	if o.SQLitePath != "" {
		cfg.DBDriver = "sqlite3"
		cfg.SQLitePath = o.SQLitePath
	}
	out.VerboseLog("Using %s database", cfg.DBDriver)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fail(out, ExitCommandError, "DATABASE", err)
	}
	defer a.Close()
	return fn(ctx, a, out)
}

// fail reports err through the formatter and returns it with an exit code.
func fail(out *OutputFormatter, code int, errCode string, err error) error {
	_ = out.Error(errCode, err.Error())
	return WrapExitError(code, errCode, err)
}

// serviceFailure classifies service errors for the exit code.
func serviceFailure(out *OutputFormatter, err error) error {
	switch {
	case errors.Is(err, services.ErrInsufficientStock):
		return fail(out, ExitFailure, "INSUFFICIENT_STOCK", err)
	case errors.Is(err, services.ErrValidation):
		return fail(out, ExitFailure, "VALIDATION_FAILED", err)
	case errors.Is(err, services.ErrNotFound):
		return fail(out, ExitFailure, "NOT_FOUND", err)
	case errors.Is(err, services.ErrReferentialIntegrity):
		return fail(out, ExitFailure, "REFERENTIAL_INTEGRITY", err)
	case errors.Is(err, services.ErrExternalService):
		return fail(out, ExitCommandError, "EXTERNAL_SERVICE_ERROR", err)
	}
	return fail(out, ExitCommandError, "INTERNAL", err)
}
