package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/turtacn/OperaLab/internal/app"
	"github.com/turtacn/OperaLab/internal/application/reporting"
	"github.com/turtacn/OperaLab/internal/application/validation"
	"github.com/turtacn/OperaLab/internal/infrastructure/tabular"
)

// NewDuplicatesCmd creates the duplicates command.
func NewDuplicatesCmd() *cobra.Command {
	var req validation.DuplicateRequest
	cmd := &cobra.Command{
		Use:   "duplicates <file>",
		Short: "Compare two samples of a batch as duplicates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(cc *CLIContext, a *app.App) error {
				records, err := a.Reader.ReadFile(args[0])
				if err != nil {
					return err
				}
				rep, err := a.Evaluator.Duplicates(cmd.Context(), records, req)
				if err != nil {
					return err
				}
				if cc.OutputFormat == OutputJSON {
					return printJSON(cmd, rep)
				}

				rd := a.Reports.Renderer()
				if cc.OutputFormat == OutputText {
					status := rep.Status()
					fmt.Fprintf(cmd.OutOrStdout(), "%s vs %s: %s (%s), tolerance %g%%\n",
						rep.Sample1, rep.Sample2, status.Label(rd.Locale), status, rep.TolerancePct)
				}
				t, _ := rd.Table(&validation.Report{Duplicates: []validation.DuplicateReport{rep}}, reporting.TableDuplicates)
				return printTables(cmd, cc.OutputFormat, rd, t)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Sample1, "sample1", "", "first sample number")
	f.StringVar(&req.Sample2, "sample2", "", "second sample number")
	f.Float64Var(&req.TolerancePct, "tolerance", 0, "RPD tolerance in percent (default: validation.duplicate_tolerance_pct)")
	_ = cmd.MarkFlagRequired("sample1")
	_ = cmd.MarkFlagRequired("sample2")
	return cmd
}

// NewLegislationCmd creates the legislation command.
func NewLegislationCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "legislation <file>",
		Short: "Check a batch against one regulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(cc *CLIContext, a *app.App) error {
				records, err := a.Reader.ReadFile(args[0])
				if err != nil {
					return err
				}
				rep, err := a.Evaluator.Legislation(cmd.Context(), records, name)
				if err != nil {
					return err
				}
				if cc.OutputFormat == OutputJSON {
					return printJSON(cmd, rep)
				}

				rd := a.Reports.Renderer()
				r := &validation.Report{Legislation: &rep}
				rows, _ := rd.Table(r, reporting.TableLegislation)
				rollup, _ := rd.Table(r, reporting.TableLegislationRollup)
				return printTables(cmd, cc.OutputFormat, rd, rows, rollup)
			})
		},
	}
	cmd.Flags().StringVarP(&name, "regulation", "r", "", "regulation name from the catalog")
	_ = cmd.MarkFlagRequired("regulation")
	return cmd
}

// NewSamplesCmd creates the samples command.
func NewSamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "samples <file>",
		Short: "List the sample numbers of a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(cc *CLIContext, a *app.App) error {
				records, err := a.Reader.ReadFile(args[0])
				if err != nil {
					return err
				}
				samples := validation.ListSampleNumbers(records)
				if samples == nil {
					samples = []string{}
				}
				switch cc.OutputFormat {
				case OutputJSON:
					return printJSON(cmd, map[string]interface{}{"file": filepath.Base(args[0]), "samples": samples})
				case OutputCSV:
					t := tabular.Table{Name: "samples", Header: []string{"sample_number"}}
					for _, s := range samples {
						t.Rows = append(t.Rows, []string{s})
					}
					return printTables(cmd, OutputCSV, a.Reports.Renderer(), t)
				}
				for _, s := range samples {
					fmt.Fprintln(cmd.OutOrStdout(), s)
				}
				return nil
			})
		},
	}
}
