// Package report renders cycle results as console tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rickgao/treasury-basis/internal/index"
	"github.com/rickgao/treasury-basis/internal/model"
	"github.com/rickgao/treasury-basis/internal/risk"
)

var printer = message.NewPrinter(language.English)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	return table
}

func dollars(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

func num(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func leg(l model.Leg) string {
	return fmt.Sprintf("%s %d %s", l.Hedge.Future.Symbol, l.Hedge.Future.Conid, l.Hedge.Source)
}

func flag(breach bool) string {
	if breach {
		return "FAIL"
	}
	return "ok"
}

// Pairs writes ranked pairs, best first.
func Pairs(w io.Writer, pairs []model.Pair) {
	table := newTable(w, []string{"#", "A", "B", "qA", "qB", "DV01 ratio", "notional", "adj net basis", "weight", "RENTD"})
	for i, p := range pairs {
		table.Append([]string{
			strconv.Itoa(i + 1),
			leg(p.A),
			leg(p.B),
			strconv.Itoa(p.A.Sign * p.A.Quantity),
			strconv.Itoa(p.B.Sign * p.B.Quantity),
			num(p.DV01Ratio, 4),
			dollars(p.Notional),
			num(p.AdjNetBasis, 4),
			num(p.VolumeWeight, 4),
			num(p.RENTD, 4),
		})
	}
	table.Render()
}

// Risk writes risk results in evaluation order.
func Risk(w io.Writer, results []model.RiskResult) {
	table := newTable(w, []string{"front", "back", "VaR", "position risk", "overlay", "net value", "overlay check", "convexity", "duration", "stress", "result"})
	for _, r := range results {
		result := "fail"
		if r.Passed() {
			result = "pass"
		}
		table.Append([]string{
			strconv.FormatInt(r.FrontConid, 10),
			strconv.FormatInt(r.BackConid, 10),
			num(r.VaR, 4),
			num(r.PositionRisk, 4),
			num(r.Overlay, 4),
			dollars(r.NetContractValue),
			flag(r.OverlayBreach),
			flag(r.ConvexityBreach),
			flag(r.DurationBreach),
			flag(r.StressBreach),
			result,
		})
	}
	table.Render()
}

// Bands writes price and volume bands by contract.
func Bands(w io.Writer, bands []risk.Band) {
	table := newTable(w, []string{"conid", "price lower", "price mean", "price upper", "volume lower", "volume mean", "volume upper"})
	for _, b := range bands {
		table.Append([]string{
			strconv.FormatInt(b.Conid, 10),
			num(b.PriceLower, 4),
			num(b.PriceMean, 4),
			num(b.PriceUpper, 4),
			printer.Sprintf("%.0f", b.VolumeLower),
			printer.Sprintf("%.0f", b.VolumeMean),
			printer.Sprintf("%.0f", b.VolumeUpper),
		})
	}
	table.Render()
}

// Files writes index file freshness.
func Files(w io.Writer, reports []index.FileReport) {
	table := newTable(w, []string{"file", "status", "size", "modified"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
	for _, r := range reports {
		modified := "-"
		if !r.ModTime.IsZero() {
			modified = r.ModTime.Format("2006-01-02 15:04")
		}
		table.Append([]string{r.Path, r.Status.String(), printer.Sprintf("%d", r.Size), modified})
	}
	table.Render()
}

// Cycle writes a summary of one cycle with its pairs, risk results and order.
func Cycle(w io.Writer, rec model.CycleRecord) {
	var b strings.Builder
	fmt.Fprintf(&b, "cycle %s  %s  hedges %d  sma %s\n",
		rec.ID, rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond), rec.Hedges, dollars(rec.SMA))
	if rec.Err != "" {
		fmt.Fprintf(&b, "error: %s\n", rec.Err)
	}
	io.WriteString(w, b.String())

	if len(rec.Pairs) > 0 {
		io.WriteString(w, "\nRanked pairs:\n")
		Pairs(w, rec.Pairs)
	}
	if len(rec.Risk) > 0 {
		io.WriteString(w, "\nRisk:\n")
		Risk(w, rec.Risk)
	}
	if len(rec.Cancelled) > 0 {
		fmt.Fprintf(w, "\ncancelled: %s\n", strings.Join(rec.Cancelled, ", "))
	}

	switch o := rec.Order; {
	case o == nil:
		io.WriteString(w, "\nno order\n")
	case rec.DryRun:
		fmt.Fprintf(w, "\ndry run: %s x%d @ %s\n", o.Conidex, o.Quantity, num(o.Price, 6))
	default:
		status := ""
		if rec.Ack != nil {
			status = fmt.Sprintf(" (order %s %s)", rec.Ack.OrderID, rec.Ack.OrderStatus)
		}
		fmt.Fprintf(w, "\nplaced: %s x%d @ %s%s\n", o.Conidex, o.Quantity, num(o.Price, 6), status)
	}
}
