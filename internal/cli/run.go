package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"polgen/internal/batchinput"
	"polgen/internal/domain"
	"polgen/internal/report"
	"polgen/internal/service"
)

// batchFlags are shared by run and preview.
type batchFlags struct {
	input        string
	inputFormat  string
	materialType string
	vendorCode   string
	fundCode     string
	reportPath   string
	reportFormat string
	concurrency  int
	fields       map[string]string
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "batch file (.json, .csv, .xlsx or .mrc)")
	cmd.Flags().StringVar(&f.inputFormat, "input-format", "", "input format: json, csv, xlsx, marc or amazon (default: from extension)")
	cmd.Flags().StringVar(&f.materialType, "material-type", "", "material type for rows that leave it blank")
	cmd.Flags().StringVar(&f.vendorCode, "vendor-code", "", "vendor code for rows that leave it blank")
	cmd.Flags().StringVar(&f.fundCode, "fund-code", "", "fund code for rows that leave it blank")
	cmd.Flags().StringToStringVar(&f.fields, "set", nil, "field=value applied to items that leave the field blank (repeatable)")
	cmd.Flags().StringVarP(&f.reportPath, "report", "r", "", "write the report to this file")
	cmd.Flags().StringVarP(&f.reportFormat, "format", "f", "", "report format: csv, json or xlsx")
	cmd.Flags().IntVarP(&f.concurrency, "concurrency", "n", 0, "items processed in parallel (default from config)")
}

func (f *batchFlags) readItems() ([]domain.BatchItem, error) {
	if f.input == "" {
		return nil, fmt.Errorf("--input is required")
	}
	var format batchinput.Format
	if f.inputFormat != "" {
		parsed, err := batchinput.ParseFormat(f.inputFormat)
		if err != nil {
			return nil, err
		}
		format = parsed
	}
	return batchinput.ReadFile(f.input, format, batchinput.Options{Defaults: domain.BatchItem{
		MaterialType: f.materialType,
		VendorCode:   f.vendorCode,
		FundCode:     f.fundCode,
		Overrides:    f.fields,
	}})
}

func newRunCmd(g *globals) *cobra.Command {
	var (
		flags  batchFlags
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create POLs for every item in a batch file",
		Long: `Run executes a batch: each item is resolved against its material-type
template, enriched from the catalog and marketplace, built into a POL and
submitted to the ILS. The exit status is 1 when any item failed or the run
aborted.

Examples:
  polgen run --input orders.csv --report results.csv
  polgen run --input amazon.csv --input-format amazon --vendor-code AMAZON --fund-code F100
  polgen run --input items.json --dry-run --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, g, &flags, dryRun)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "build and validate without submitting")
	return cmd
}

func newPreviewCmd(g *globals) *cobra.Command {
	var (
		flags      batchFlags
		identifier string
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Build and validate POLs without submitting them",
		Long: `Preview builds every item of a batch file (or a single --identifier)
without calling the ILS create endpoint. For a single identifier the built
POL document is printed as JSON.

Examples:
  polgen preview --input orders.csv
  polgen preview --identifier 9780306406157 --material-type book --vendor-code AMAZON --fund-code F100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if identifier != "" {
				return previewItem(cmd, g, domain.BatchItem{
					Identifier:   identifier,
					MaterialType: flags.materialType,
					VendorCode:   flags.vendorCode,
					FundCode:     flags.fundCode,
				})
			}
			return runBatch(cmd, g, &flags, true)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&identifier, "identifier", "", "preview a single identifier")
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runBatch(cmd *cobra.Command, g *globals, flags *batchFlags, dryRun bool) error {
	items, err := flags.readItems()
	if err != nil {
		return err
	}

	a, err := newApp(g.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	rep, runErr := a.batches.Run(ctx, items, service.RunOptions{
		DryRun:      dryRun,
		Concurrency: flags.concurrency,
		Source:      filepath.Base(flags.input),
	})
	if rep == nil {
		return runErr
	}

	if err := emitReport(cmd.OutOrStdout(), flags, rep); err != nil {
		return err
	}
	printSummary(cmd.ErrOrStderr(), rep)

	if runErr != nil {
		return fmt.Errorf("%w: %v", ErrRunFailed, runErr)
	}
	if rep.HasFailures() {
		return ErrRunFailed
	}
	return nil
}

// emitReport writes rep to --report, or to stdout when only --format is set.
func emitReport(stdout io.Writer, flags *batchFlags, rep *domain.BatchReport) error {
	if flags.reportPath == "" && flags.reportFormat == "" {
		return nil
	}
	format := report.FormatFromPath(flags.reportPath)
	if flags.reportFormat != "" {
		parsed, err := report.ParseFormat(flags.reportFormat)
		if err != nil {
			return err
		}
		format = parsed
	}
	if flags.reportPath == "" {
		return report.Write(stdout, rep, format)
	}
	if err := report.WriteFile(flags.reportPath, rep, format); err != nil {
		return err
	}
	return nil
}

func printSummary(w io.Writer, rep *domain.BatchReport) {
	s := rep.Summary
	mode := "run"
	if rep.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "%s %s: %d items, %d succeeded, %d validated, %d skipped, %d failed, %d not attempted\n",
		mode, rep.RunID, s.Total, s.Succeeded, s.Validated, s.Skipped, s.Failed, s.NotAttempted)
	if rep.Aborted {
		fmt.Fprintf(w, "aborted: %s\n", rep.AbortReason)
	}
	for i := range rep.Results {
		res := &rep.Results[i]
		if !res.Status.IsFailure() || res.Error == nil {
			continue
		}
		fmt.Fprintf(w, "  row %d %s: %s (%s)\n", res.Index+1, res.Identifier, res.Error.Message, res.Status)
	}
}

func previewItem(cmd *cobra.Command, g *globals, item domain.BatchItem) error {
	a, err := newApp(g.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	preview, err := a.batches.Preview(ctx, item)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(preview); err != nil {
		return fmt.Errorf("encoding preview: %w", err)
	}
	if preview.Result.Status.IsFailure() {
		return ErrRunFailed
	}
	return nil
}
