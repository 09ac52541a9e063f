package cli

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/OperaLab/internal/app"
	"github.com/turtacn/OperaLab/internal/domain/regulation"
	"github.com/turtacn/OperaLab/internal/infrastructure/tabular"
)

// NewCatalogCmd creates the catalog command group.
func NewCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the regulatory catalog",
	}
	cmd.AddCommand(newCatalogListCmd(), newCatalogShowCmd())
	return cmd
}

func newCatalogListCmd() *cobra.Command {
	var filter, matrix string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List regulations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(cc *CLIContext, a *app.App) error {
				regs := listRegulations(a.Catalog, filter, matrix)
				if cc.OutputFormat == OutputJSON {
					return printJSON(cmd, regs)
				}
				t := tabular.Table{Name: "regulations", Header: []string{"name", "analytes", "prefer_total", "matrices", "description"}}
				for _, r := range regs {
					t.Rows = append(t.Rows, []string{
						r.Name,
						strconv.Itoa(len(r.Limits)),
						tabular.YesNo(r.PreferTotal),
						strings.Join(r.Matrices, ","),
						r.Description,
					})
				}
				return printTables(cmd, cc.OutputFormat, a.Reports.Renderer(), t)
			})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "keep names containing this text")
	cmd.Flags().StringVar(&matrix, "matrix", "", "keep regulations applying to this sample matrix")
	return cmd
}

func newCatalogShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the limits of one regulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(cc *CLIContext, a *app.App) error {
				reg, err := a.Catalog.Get(args[0])
				if err != nil {
					return err
				}
				if cc.OutputFormat == OutputJSON {
					return printJSON(cmd, reg)
				}
				rd := a.Reports.Renderer()
				analytes := make([]string, 0, len(reg.Limits))
				for k := range reg.Limits {
					analytes = append(analytes, k)
				}
				sort.Strings(analytes)
				t := tabular.Table{Name: reg.Name, Header: []string{"analyte", "limit_mg_l"}}
				for _, k := range analytes {
					v := reg.Limits[k]
					t.Rows = append(t.Rows, []string{k, rd.Writer.Number(&v)})
				}
				return printTables(cmd, cc.OutputFormat, rd, t)
			})
		},
	}
}

// listRegulations applies the name filter and the matrix filter.
func listRegulations(cat *regulation.Catalog, filter, matrix string) []regulation.Regulation {
	var keep map[string]bool
	if matrix != "" {
		keep = make(map[string]bool)
		for _, n := range cat.ForMatrix(matrix) {
			keep[n] = true
		}
	}
	regs := []regulation.Regulation{}
	for _, n := range cat.Filter(filter) {
		if keep != nil && !keep[n] {
			continue
		}
		if reg, err := cat.Get(n); err == nil {
			regs = append(regs, reg)
		}
	}
	return regs
}
