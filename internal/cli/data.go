package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bakery_backend/internal/app"
	"bakery_backend/internal/services"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// app.New migrates before it returns.
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				return out.Success(map[string]string{"schema": "up to date"}, func(w io.Writer) {
					fmt.Fprintln(w, "Schema is up to date.")
				})
			})
		},
	}
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace all data with the starter inventory and recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				result, err := a.Data.Import(ctx, services.SeedBundle(time.Now()))
				if err != nil {
					return serviceFailure(out, err)
				}
				return out.Success(result, importSummary(result))
			})
		},
	}
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	Output string
	As     string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write ingredients, recipes and sales as one document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				return runExport(ctx, cmd, a, out, opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&opts.As, "as", "", "document format (json|yaml), defaults to the output extension or json")

	return cmd
}

func runExport(ctx context.Context, cmd *cobra.Command, a *app.App, out *OutputFormatter, opts *ExportOptions) error {
	format := opts.As
	if format == "" {
		format = formatFromPath(opts.Output)
	}
	bundle, err := a.Data.Export(ctx)
	if err != nil {
		return serviceFailure(out, err)
	}
	data, err := services.EncodeBundle(bundle, format)
	if err != nil {
		return serviceFailure(out, err)
	}

	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.Output, data, 0o644); err != nil {
		return fail(out, ExitCommandError, "WRITE_FAILED", err)
	}
	out.VerboseLog("Wrote %d bytes", len(data))
	return out.Success(map[string]interface{}{"file": opts.Output, "bytes": len(data)}, func(w io.Writer) {
		fmt.Fprintf(w, "Exported %d ingredients, %d recipes and %d sales to %s\n",
			len(bundle.Ingredients), len(bundle.Recipes), len(bundle.Sales), opts.Output)
	})
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all data with the contents of an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				data, err := os.ReadFile(path)
				if err != nil {
					return fail(out, ExitCommandError, "READ_FAILED", err)
				}
				format := as
				if format == "" {
					format = formatFromPath(path)
				}
				bundle, err := services.DecodeBundle(data, format)
				if err != nil {
					return serviceFailure(out, err)
				}
				result, err := a.Data.Import(ctx, bundle)
				if err != nil {
					return serviceFailure(out, err)
				}
				return out.Success(result, importSummary(result))
			})
		},
	}

	cmd.Flags().StringVar(&as, "as", "", "document format (json|yaml), defaults to the file extension")

	return cmd
}

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Upload a JSON export to object storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withApp(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				result, err := a.Data.Backup(ctx)
				if err != nil {
					return serviceFailure(out, err)
				}
				return out.Success(result, func(w io.Writer) {
					fmt.Fprintf(w, "Uploaded %d bytes to %s\n", result.Bytes, result.Location)
				})
			})
		},
	}
}

func importSummary(result *services.ImportResult) func(w io.Writer) {
	return func(w io.Writer) {
		fmt.Fprintf(w, "Imported %d ingredients, %d recipes and %d sales\n",
			result.Ingredients, result.Recipes, result.Sales)
	}
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return services.FormatYAML
	}
	return services.FormatJSON
}
