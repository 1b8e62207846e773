// Package cli provides the command-line interface for polgen.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"polgen/internal/config"
)

// Version is set at build time.
var Version = "0.1.0"

// ErrRunFailed is returned when a batch finished with failed items or aborted.
var ErrRunFailed = errors.New("batch run had failures")

// globals holds state shared by every subcommand.
type globals struct {
	configFile string
	verbose    bool

	cfg      *config.Config
	closeLog func() error
}

// NewRootCmd builds the polgen command tree.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "polgen",
		Short: "Generate purchase order lines in the library ILS",
		Long: `polgen turns batches of identifiers (ISBN, ISSN, OCLC number) into
purchase order lines: it resolves a template per material type, fetches
bibliographic metadata from the union catalog, enriches price data from a
marketplace source and submits the POL to the ILS acquisitions API.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if g.verbose {
				cfg.Log.Level = "debug"
			}
			g.cfg = cfg

			logger, closeLog := config.SetupLogger(cfg.Log)
			slog.SetDefault(logger)
			g.closeLog = closeLog
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.closeLog != nil {
				if err := g.closeLog(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
				}
			}
		},
	}

	root.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newRunCmd(g))
	root.AddCommand(newPreviewCmd(g))
	root.AddCommand(newTemplatesCmd(g))
	root.AddCommand(newServeCmd(g))
	root.AddCommand(newTokenCmd(g))
	root.AddCommand(newMigrateCmd(g))

	return root
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		if !errors.Is(err, ErrRunFailed) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}
