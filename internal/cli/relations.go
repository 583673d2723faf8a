package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stratum/internal/catalog"
)

// RelationsOptions holds flags shared by the relations subcommands.
type RelationsOptions struct {
	*RootOptions
	Database string
}

// NewRelationsCommand creates the relations command group.
func NewRelationsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RelationsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "relations",
		Short: "Manage the stored relation catalog",
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "stratum.db", "catalog database path")

	cmd.AddCommand(newRelationsListCommand(opts))
	cmd.AddCommand(newRelationsApplyCommand(opts))
	cmd.AddCommand(newRelationsDropCommand(opts))

	return cmd
}

func newRelationsListCommand(opts *RelationsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List cataloged relations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelationsList(opts, cmd)
		},
	}
}

func newRelationsApplyCommand(opts *RelationsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "apply <manifest>",
		Short:         "Store a relation manifest into the catalog",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelationsApply(opts, args[0], cmd)
		},
	}
}

func newRelationsDropCommand(opts *RelationsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "drop <name>",
		Short:         "Remove a relation from the catalog",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelationsDrop(opts, args[0], cmd)
		},
	}
}

func newRelationsFormatter(opts *RelationsOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func runRelationsList(opts *RelationsOptions, cmd *cobra.Command) error {
	formatter := newRelationsFormatter(opts, cmd)

	cat, err := catalog.Open(opts.Database)
	if err != nil {
		return commandError(formatter, ErrCodeCatalog, fmt.Sprintf("opening catalog: %v", err))
	}
	defer cat.Close()

	records, err := cat.ListRelations(context.Background())
	if err != nil {
		return commandError(formatter, ErrCodeCatalog, err.Error())
	}

	if opts.Format == "json" {
		return formatter.Success(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(formatter.Writer, "No relations in catalog")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(formatter.Writer, "%s  arity %d  (%d key, %d value column(s))\n",
			rec.Name, rec.Arity, len(rec.Keys), len(rec.NonKeys))
	}
	return nil
}

func runRelationsApply(opts *RelationsOptions, manifestPath string, cmd *cobra.Command) error {
	formatter := newRelationsFormatter(opts, cmd)

	manifest, err := catalog.LoadManifest(manifestPath)
	if err != nil {
		return commandError(formatter, ErrCodeManifest, err.Error())
	}

	cat, err := catalog.Open(opts.Database)
	if err != nil {
		return commandError(formatter, ErrCodeCatalog, fmt.Sprintf("opening catalog: %v", err))
	}
	defer cat.Close()

	if err := manifest.Store(context.Background(), cat); err != nil {
		return commandError(formatter, ErrCodeCatalog, err.Error())
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]int{"relations": len(manifest.Relations)})
	}
	fmt.Fprintf(formatter.Writer, "✓ Stored %d relation(s) in %s\n", len(manifest.Relations), opts.Database)
	return nil
}

func runRelationsDrop(opts *RelationsOptions, name string, cmd *cobra.Command) error {
	formatter := newRelationsFormatter(opts, cmd)

	cat, err := catalog.Open(opts.Database)
	if err != nil {
		return commandError(formatter, ErrCodeCatalog, fmt.Sprintf("opening catalog: %v", err))
	}
	defer cat.Close()

	if err := cat.DeleteRelation(context.Background(), name); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return commandError(formatter, ErrCodeNotFound, fmt.Sprintf("relation %q not in catalog", name))
		}
		return commandError(formatter, ErrCodeCatalog, err.Error())
	}

	if opts.Format == "json" {
		return formatter.Success(map[string]string{"dropped": name})
	}
	fmt.Fprintf(formatter.Writer, "✓ Dropped relation %q\n", name)
	return nil
}
