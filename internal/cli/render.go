package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
	"github.com/rovshanmuradov/launchpad-curve/internal/scenario"
)

var (
	cyan   = lipgloss.Color("#00E5FF")
	green  = lipgloss.Color("#2AFFAA")
	red    = lipgloss.Color("#FF5555")
	yellow = lipgloss.Color("#FFB500")
	muted  = lipgloss.Color("#6C7280")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(cyan)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(cyan).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(muted)
)

func phaseColor(p curve.Phase) lipgloss.Color {
	switch p {
	case curve.PhaseGraduated:
		return yellow
	case curve.PhaseMigrated:
		return green
	default:
		return cyan
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// progressBar renders graduation progress as a fixed-width gauge.
func progressBar(pct decimal.Decimal, width int, phase curve.Phase) string {
	filled := int(pct.Mul(decimal.NewFromInt(int64(width))).Div(decimal.NewFromInt(100)).IntPart())
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	bar := lipgloss.NewStyle().Foreground(phaseColor(phase)).Render(strings.Repeat("█", filled))
	rest := mutedStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s%s %s%%", bar, rest, pct.StringFixed(2))
}

func sol(lamports uint64) string {
	return curve.LamportsToSOL(lamports).String()
}

func tokens(raw uint64) string {
	return curve.ToDecimal(raw, curve.TokenDecimals).String()
}

func stepOutcome(st scenario.StepResult) string {
	switch {
	case st.Err != nil:
		return mutedStyle.Render("rejected: " + st.Err.Error())
	case st.Receipt != nil && st.Receipt.Side == curve.SideBuy:
		return fmt.Sprintf("paid %s SOL, got %s tokens", sol(st.Receipt.AmountIn), tokens(st.Receipt.AmountOut))
	case st.Receipt != nil:
		return fmt.Sprintf("sold %s tokens, got %s SOL", tokens(st.Receipt.AmountIn), sol(st.Receipt.AmountOut))
	case st.Claimed > 0:
		return fmt.Sprintf("claimed %s SOL", sol(st.Claimed))
	case st.Migration != nil:
		return fmt.Sprintf("migrated with %s SOL", sol(st.Migration.FinalSolReserves))
	case st.Wrapper != nil:
		return fmt.Sprintf("%s %s SOL, fees %s SOL", st.Wrapper.Side, sol(st.Wrapper.Amount), sol(st.Wrapper.Fees.Total()))
	}
	return "ok"
}

func renderReport(w io.Writer, r *scenario.Report) {
	fmt.Fprintln(w, titleStyle.Render("Scenario "+r.Name))
	for _, c := range r.Curves {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s  %s\n", titleStyle.Render(c.Name), mutedStyle.Render(c.Final.Mint.String()))

		steps := newTable("#", "action", "account", "outcome")
		for _, st := range c.Steps {
			steps.Row(fmt.Sprint(st.Index), string(st.Action), st.Account, stepOutcome(st))
		}
		fmt.Fprintln(w, steps.String())
		renderState(w, c.Final)

		if c.Wrapper != nil {
			fmt.Fprintf(w, "wrapper: active=%t volume=%s SOL fees=%s SOL\n",
				c.Wrapper.Active, sol(c.Wrapper.TotalVolume), sol(c.Wrapper.TotalFeesCollected))
		}
	}
}

func renderState(w io.Writer, s curve.State) {
	t := newTable("phase", "real SOL", "tokens sold", "pending creator", "price (SOL)", "market cap (SOL)")
	t.Row(
		lipgloss.NewStyle().Foreground(phaseColor(s.Phase)).Render(s.Phase.String()),
		sol(s.RealSolReserves),
		tokens(s.TokensSold),
		sol(s.PendingCreatorFees),
		s.SpotPrice().String(),
		s.MarketCap().StringFixed(4),
	)
	fmt.Fprintln(w, t.String())
	fmt.Fprintln(w, "graduation "+progressBar(s.Progress(), 30, s.Phase))
}

func renderCurves(w io.Writer, states []curve.State) {
	if len(states) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no curves recorded"))
		return
	}
	t := newTable("mint", "phase", "real SOL", "tokens sold", "progress")
	for _, s := range states {
		t.Row(s.Mint.String(), s.Phase.String(), sol(s.RealSolReserves), tokens(s.TokensSold),
			s.Progress().StringFixed(2)+"%")
	}
	fmt.Fprintln(w, t.String())
}

func renderTrades(w io.Writer, receipts []curve.TradeReceipt) {
	if len(receipts) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no trades recorded"))
		return
	}
	t := newTable("time", "side", "trader", "in", "out", "fees (SOL)")
	for _, r := range receipts {
		in, out := sol(r.AmountIn), tokens(r.AmountOut)
		if r.Side == curve.SideSell {
			in, out = tokens(r.AmountIn), sol(r.AmountOut)
		}
		side := lipgloss.NewStyle().Foreground(green).Render(r.Side.String())
		if r.Side == curve.SideSell {
			side = lipgloss.NewStyle().Foreground(red).Render(r.Side.String())
		}
		t.Row(r.Timestamp.Format("2006-01-02 15:04:05"), side, r.Trader.String(), in, out, sol(r.Fees.Total()))
	}
	fmt.Fprintln(w, t.String())
}

func renderQuote(w io.Writer, q curve.Quote) {
	t := newTable("side", "in", "out", "platform", "creator", "auxiliary", "net")
	var aux uint64
	for _, a := range q.Fees.Auxiliary {
		aux += a
	}
	in, out := sol(q.AmountIn), tokens(q.AmountOut)
	if q.Side == curve.SideSell {
		in, out = tokens(q.AmountIn), sol(q.Fees.Net)
	}
	t.Row(q.Side.String(), in, out, sol(q.Fees.Platform), sol(q.Fees.Creator), sol(aux), sol(q.Fees.Net))
	fmt.Fprintln(w, t.String())
}
