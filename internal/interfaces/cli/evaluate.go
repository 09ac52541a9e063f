package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/OperaLab/internal/app"
	"github.com/turtacn/OperaLab/internal/application/reporting"
	"github.com/turtacn/OperaLab/internal/application/validation"
	"github.com/turtacn/OperaLab/internal/domain/verdict"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OperaLab/internal/infrastructure/tabular"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// ExitRejected is the exit status of evaluate --fail-on-reject when a batch
// is NON_CONFORMING.
const ExitRejected = 2

type evaluateOptions struct {
	regulation   string
	duplicates   []string
	tolerance    float64
	exportDir    string
	failOnReject bool
}

// NewEvaluateCmd creates the evaluate command.
func NewEvaluateCmd() *cobra.Command {
	opts := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate <file>...",
		Short: "Evaluate one or more batch files",
		Long: "Runs the dissolved-vs-total and QC recovery checks on every file, the\n" +
			"requested duplicate comparisons and, with --regulation, the legislation\n" +
			"check.  Several files are evaluated concurrently.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(cc *CLIContext, a *app.App) error {
				return runEvaluate(cmd, cc, a, args, opts)
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.regulation, "regulation", "r", "", "regulation to check against")
	f.StringArrayVarP(&opts.duplicates, "duplicate", "d", nil, "duplicate pair as sample1:sample2 (repeatable)")
	f.Float64Var(&opts.tolerance, "tolerance", 0, "duplicate RPD tolerance in percent (default: validation.duplicate_tolerance_pct)")
	f.StringVar(&opts.exportDir, "export-dir", "", "write every result table below this directory")
	f.BoolVar(&opts.failOnReject, "fail-on-reject", false, "exit with status 2 when a batch is NON_CONFORMING")
	return cmd
}

// ParseDuplicatePairs converts "s1:s2" arguments into requests.
func ParseDuplicatePairs(pairs []string, tolerance float64) ([]validation.DuplicateRequest, error) {
	out := make([]validation.DuplicateRequest, 0, len(pairs))
	for _, p := range pairs {
		parts := strings.Split(p, ":")
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil, errors.InvalidParam("duplicate pair must be sample1:sample2").WithDetail(p)
		}
		out = append(out, validation.DuplicateRequest{
			Sample1:      strings.TrimSpace(parts[0]),
			Sample2:      strings.TrimSpace(parts[1]),
			TolerancePct: tolerance,
		})
	}
	return out, nil
}

func runEvaluate(cmd *cobra.Command, cc *CLIContext, a *app.App, files []string, opts *evaluateOptions) error {
	dups, err := ParseDuplicatePairs(opts.duplicates, opts.tolerance)
	if err != nil {
		return err
	}

	batches := make([]validation.Batch, 0, len(files))
	for _, path := range files {
		records, err := a.Reader.ReadFile(path)
		if err != nil {
			return err
		}
		batches = append(batches, validation.Batch{
			Records: records,
			Request: validation.EvaluationRequest{
				Regulation: opts.regulation,
				Duplicates: dups,
				Source:     filepath.Base(path),
			},
		})
	}

	ctx := cmd.Context()
	reports, err := a.Reports.EvaluateBatches(ctx, batches)
	if err != nil {
		return err
	}

	if opts.exportDir != "" {
		sink, err := a.ExportSink(ctx, opts.exportDir)
		if err != nil {
			return err
		}
		for _, r := range reports {
			tables, err := a.Reports.Export(ctx, r, sink)
			if err != nil {
				return err
			}
			PrintSuccess(cmd.ErrOrStderr(), fmt.Sprintf("%s: %d tables exported to %s", r.Source, len(tables), filepath.Join(opts.exportDir, r.ID)))
		}
	}

	if err := printReports(cmd, cc, a.Reports.Renderer(), reports); err != nil {
		return err
	}

	if opts.failOnReject {
		for _, r := range reports {
			if r.Batch == verdict.NonConforming {
				cc.Logger.Info("batch rejected", logging.String("source", r.Source), logging.String("report_id", r.ID))
				return &ExitError{
					Code: ExitRejected,
					Err:  errors.New(errors.ErrCodeValidation, "batch rejected").WithDetail(r.Source),
				}
			}
		}
	}
	return nil
}

func printReports(cmd *cobra.Command, cc *CLIContext, rd *reporting.Renderer, reports []*validation.Report) error {
	switch cc.OutputFormat {
	case OutputJSON:
		if len(reports) == 1 {
			return printJSON(cmd, reports[0])
		}
		return printJSON(cmd, reports)
	case OutputCSV:
		for _, r := range reports {
			if err := printTables(cmd, OutputCSV, rd, rd.Tables(r)...); err != nil {
				return err
			}
		}
		return nil
	}

	out := cmd.OutOrStdout()
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s: %s (%s), %d records, report %s\n",
			r.Source, r.Batch.Label(rd.Locale), r.Batch, r.RecordCount, r.ID)

		var tables []tabular.Table
		if cc.Verbose {
			tables = rd.Tables(r)
		} else if t, _ := rd.Table(r, reporting.TableSamples); t.Len() > 0 {
			tables = []tabular.Table{t}
		}
		if err := printTables(cmd, OutputText, rd, tables...); err != nil {
			return err
		}
	}
	return nil
}
