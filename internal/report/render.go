// Package report renders evaluation output for terminals: scenario tables,
// strategy summaries, and grids as CSV for external plotting.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/vaultrun/vaultrun/internal/application"
	"github.com/vaultrun/vaultrun/internal/domain/grid"
)

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// WriteScenarioTable prints the four-state valuation per vault.
func WriteScenarioTable(w io.Writer, rep *application.ClusterReport) error {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "VAULT\tSCENARIO\tUTIL\tSUPPLY APY\tBORROW APY\t\n")
	for _, vr := range rep.Vaults {
		for _, sc := range vr.Scenarios {
			flag := ""
			if sc.Clamped {
				flag = " (clamped)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%s\t\n",
				vr.Vault.Symbol, sc.Label, pct(sc.Utilization), pct(sc.SupplyAPY), pct(sc.BorrowAPY), flag)
		}
	}
	for _, f := range rep.Failures {
		fmt.Fprintf(tw, "%s\tEXCLUDED\t-\t-\t%s\t\n", f.Address, f.Reason)
	}
	return tw.Flush()
}

// WriteStrategyTable prints leveraged and single-sided summaries.
func WriteStrategyTable(w io.Writer, rep *application.ClusterReport) error {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "STRATEGY\tLTV\tMAX LEV\tCURRENT\tAT CAPS\t\n")
	for _, sr := range rep.Strategies {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2fx\t%s\t%s\t\n",
			sr.Name, sr.BorrowLTV, sr.MaxLeverage, pct(sr.CurrentYield), pct(sr.CapsYield))
	}
	for _, ss := range rep.SingleSided {
		fmt.Fprintf(tw, "Lend %s\t-\t1.00x\t%s\t%s\t\n",
			ss.Symbol, pct(ss.Current.NetAPY), pct(ss.AtCaps.NetAPY))
	}
	return tw.Flush()
}

// WriteGridCSV emits a grid with axis2 values as the header row and axis1
// values as the leading column. Undefined cells are left empty.
func WriteGridCSV(w io.Writer, g *grid.Grid) error {
	if _, err := fmt.Fprintf(w, "%s", g.Axis1.Name); err != nil {
		return err
	}
	for _, v := range g.Axis2Values {
		fmt.Fprintf(w, ",%s", formatCell(v))
	}
	if g.Axis2 == nil {
		fmt.Fprintf(w, ",%s", "value")
	}
	fmt.Fprintln(w)

	for i, row := range g.Cells {
		fmt.Fprintf(w, "%s", formatCell(g.Axis1Values[i]))
		for _, c := range row {
			if math.IsNaN(c) {
				fmt.Fprint(w, ",")
				continue
			}
			fmt.Fprintf(w, ",%s", formatCell(c))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func formatCell(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}
