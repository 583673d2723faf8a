package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stratum/internal/catalog"
	"github.com/roach88/stratum/internal/compile"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Manifest string // relation manifest (YAML) declaring stored relations
	Database string // catalog database to load stored relations from
}

// CompilationSummary is the success payload of the compile command.
type CompilationSummary struct {
	Strata    int `json:"strata"`
	RuleSets  int `json:"rule_sets"`
	Clauses   int `json:"clauses"`
	Relations int `json:"relations"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <script>",
		Short: "Compile a query script into relational plans",
		Long: `Compile a stratified query script (CUE) into relational query plans.

Stored relations referenced by the script must be declared, either in a
YAML manifest (--manifest) or in a catalog database (--db).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Manifest, "manifest", "m", "", "relation manifest file (YAML)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "catalog database path")

	return cmd
}

func runCompile(opts *CompileOptions, script string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	strata, comp, err := compileScript(opts, script, formatter)
	if err != nil {
		return err
	}

	summary := summarize(strata)
	summary.Relations = len(comp.ListRelations())
	if opts.Format == "json" {
		return formatter.Success(summary)
	}
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d stratum(s), %d rule set(s), %d clause(s)\n",
		summary.Strata, summary.RuleSets, summary.Clauses)
	return nil
}

// compileScript runs the shared load-declare-compile pipeline used by
// the compile and explain commands.
func compileScript(opts *CompileOptions, script string, formatter *OutputFormatter) ([]*compile.CompiledProgram, *compile.Compiler, error) {
	comp := compile.NewCompiler()

	if opts.Database != "" {
		cat, err := catalog.Open(opts.Database)
		if err != nil {
			return nil, nil, commandError(formatter, ErrCodeCatalog, fmt.Sprintf("opening catalog: %v", err))
		}
		defer cat.Close()
		n, err := cat.LoadInto(context.Background(), comp)
		if err != nil {
			return nil, nil, commandError(formatter, ErrCodeCatalog, fmt.Sprintf("loading catalog: %v", err))
		}
		formatter.VerboseLog("Loaded %d relation(s) from %s", n, opts.Database)
	}

	if opts.Manifest != "" {
		manifest, err := catalog.LoadManifest(opts.Manifest)
		if err != nil {
			return nil, nil, commandError(formatter, ErrCodeManifest, err.Error())
		}
		if err := manifest.Declare(comp); err != nil {
			return nil, nil, compileError(formatter, err)
		}
		formatter.VerboseLog("Declared %d relation(s) from %s", len(manifest.Relations), opts.Manifest)
	}

	prog, err := LoadScript(script)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return nil, nil, commandError(formatter, loadErr.Code, loadErr.Message)
		}
		return nil, nil, commandError(formatter, ErrCodeGeneric, err.Error())
	}

	strata, err := comp.CompileStratified(prog)
	if err != nil {
		return nil, nil, compileError(formatter, err)
	}
	formatter.VerboseLog("Compiled %d stratum(s)", len(strata))
	return strata, comp, nil
}

func summarize(strata []*compile.CompiledProgram) CompilationSummary {
	summary := CompilationSummary{Strata: len(strata)}
	for _, prog := range strata {
		summary.RuleSets += len(prog.Entries)
		for _, entry := range prog.Entries {
			summary.Clauses += len(entry.RuleSet.Rules)
		}
	}
	return summary
}

// compileError reports a compilation failure (exit code 1).
func compileError(formatter *OutputFormatter, err error) error {
	code := compile.CodeOf(err)
	if code == "" {
		code = ErrCodeGeneric
	}
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitFailure, fmt.Sprintf("compilation failed [%s]", code), nil)
}

// commandError reports a command-level failure (exit code 2).
func commandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}
