package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stratum/internal/explain"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*CompileOptions
	Output string // optional file to write the rows to (JSON)
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{CompileOptions: &CompileOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "explain <script>",
		Short: "Show the compiled plan of a query script",
		Long: `Compile a query script and print one row per plan node: scans, joins
with their classification, filters, unifications and reorders.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Manifest, "manifest", "m", "", "relation manifest file (YAML)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "catalog database path")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write rows as JSON to file")

	return cmd
}

func runExplain(opts *ExplainOptions, script string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	strata, _, err := compileScript(opts.CompileOptions, script, formatter)
	if err != nil {
		return err
	}

	rows, err := explain.Program(strata)
	if err != nil {
		return compileError(formatter, err)
	}

	if opts.Output != "" {
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("marshaling rows: %v", err))
		}
		if err := os.WriteFile(opts.Output, data, 0644); err != nil {
			return commandError(formatter, ErrCodeGeneric, fmt.Sprintf("writing output file: %v", err))
		}
		formatter.VerboseLog("Wrote %d row(s) to %s", len(rows), opts.Output)
	}

	if opts.Format == "json" {
		return formatter.Success(rows)
	}
	fmt.Fprint(formatter.Writer, explain.Render(rows))
	return nil
}
