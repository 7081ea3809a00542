package main

import (
	"fmt"
	"strings"

	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/aristath/alphaseeker/internal/modules/allocation"
	"github.com/aristath/alphaseeker/internal/modules/ledger"
	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	"github.com/aristath/alphaseeker/internal/modules/settlement"
)

func summaryMarkdown(s domain.PortfolioSummary) string {
	var b strings.Builder

	b.WriteString("# Portfolio Summary\n\n")
	b.WriteString("| | |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Total Value | %s |\n", domain.FormatCNY(s.TotalValue))
	fmt.Fprintf(&b, "| Total Cost | %s |\n", domain.FormatCNY(s.TotalCost))
	fmt.Fprintf(&b, "| Total Return | %s (%s) |\n", domain.FormatSignedCNY(s.TotalReturn), domain.FormatPercent(s.TotalReturnPercent))
	fmt.Fprintf(&b, "| Unrealized | %s |\n", domain.FormatSignedCNY(s.UnrealizedReturn))
	fmt.Fprintf(&b, "| Realized Profit | %s |\n", domain.FormatCNY(s.RealizedProfit))
	fmt.Fprintf(&b, "| Realized Loss | %s |\n", domain.FormatCNY(s.RealizedLoss))
	fmt.Fprintf(&b, "| Cash | %s |\n", domain.FormatCNY(s.CashBalance))

	b.WriteString("\n## By Asset Class\n\n")
	b.WriteString("| Class | Value | Cost | Return | Weight |\n|---|---:|---:|---:|---:|\n")
	for _, class := range domain.AllAssetClasses() {
		d := s.TypeDetails[class]
		if d.Value == 0 && d.Cost == 0 {
			continue
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s (%s) | %.2f%% |\n",
			class.Label(),
			domain.FormatCNY(d.Value),
			domain.FormatCNY(d.Cost),
			domain.FormatSignedCNY(d.Return),
			domain.FormatPercent(d.ReturnPercent),
			domain.RoundPercent(s.Allocation[class]))
	}

	return b.String()
}

func holdingsMarkdown(holdings []portfolio.HoldingView) string {
	var b strings.Builder

	b.WriteString("# Holdings\n\n")
	if len(holdings) == 0 {
		b.WriteString("_No holdings._\n")
		return b.String()
	}

	b.WriteString("| Symbol | Name | Class | Quantity | Cost | Price | Value | P&L | Weight |\n")
	b.WriteString("|---|---|---|---:|---:|---:|---:|---:|---:|\n")
	for _, h := range holdings {
		fmt.Fprintf(&b, "| %s | %s | %s | %g | %.4f | %.4f | %s | %s (%s) | %.2f%% |\n",
			h.Symbol,
			escapeCell(h.DisplayName),
			h.AssetClass.Label(),
			domain.RoundQuantity(h.Quantity),
			h.CostBasis,
			h.CurrentPrice,
			domain.FormatCNY(h.MarketValue),
			domain.FormatSignedCNY(h.UnrealizedPnL),
			domain.FormatPercent(h.UnrealizedPnLPercent),
			domain.RoundPercent(h.Weight))
	}

	return b.String()
}

func allocationMarkdown(r allocation.Report) string {
	var b strings.Builder

	b.WriteString("# Allocation\n\n")
	fmt.Fprintf(&b, "Max deviation: %.2f%%. Investable cash: %s (target cash %s).\n\n",
		r.MaxDeviation, domain.FormatCNY(r.InvestableCash), domain.FormatCNY(r.TargetCash))

	b.WriteString("| Class | Current | Target | Deviation | Status | Rebalance |\n")
	b.WriteString("|---|---:|---:|---:|---|---:|\n")
	for _, d := range r.Deviations {
		deviation := fmt.Sprintf("%.2f%%", domain.RoundPercent(d.RelativeDeviation))
		if d.Unbounded() {
			deviation = "∞"
		}
		fmt.Fprintf(&b, "| %s | %.2f%% | %.2f%% | %s | %s | %s |\n",
			d.AssetClass.Label(),
			domain.RoundPercent(d.CurrentPct),
			d.TargetPct,
			deviation,
			statusMarker(d.Status),
			domain.FormatSignedCNY(d.RebalanceAmount))
	}

	return b.String()
}

func statusMarker(s allocation.Status) string {
	switch s {
	case allocation.StatusOnTarget:
		return "🟢 on target"
	case allocation.StatusWarning:
		return "🟡 warning"
	case allocation.StatusCritical:
		return "🔴 critical"
	}
	return string(s)
}

func settlementMarkdown(r settlement.Result) string {
	var b strings.Builder

	b.WriteString("# Settlement\n\n")
	fmt.Fprintf(&b, "Return %s on cost %s (%s).\n\n",
		domain.FormatSignedCNY(r.TotalReturn), domain.FormatCNY(r.TotalCost), domain.FormatPercent(r.ReturnRate))

	b.WriteString("| | |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Bracket %g%%-%g%% at %g%% | %s |\n",
		r.Config.ProfitThreshold1, r.Config.ProfitThreshold2, r.Config.SharingRate1, domain.FormatCNY(r.Bracket1Amount))
	fmt.Fprintf(&b, "| Above %g%% at %g%% | %s |\n",
		r.Config.ProfitThreshold2, r.Config.SharingRate2, domain.FormatCNY(r.Bracket2Amount))
	fmt.Fprintf(&b, "| **Profit sharing** | **%s** |\n", domain.FormatCNY(r.SharingAmount))
	fmt.Fprintf(&b, "| Guarantee target (%g%%) | %s |\n", r.Config.GuaranteeThreshold, domain.FormatCNY(r.TargetValue))
	fmt.Fprintf(&b, "| **Guarantee owed** | **%s** |\n", domain.FormatCNY(r.GuaranteeAmount))

	if r.GuaranteeTriggered {
		b.WriteString("\n> The guarantee is triggered: value is below the guaranteed target.\n")
	}
	return b.String()
}

func sellMarkdown(r ledger.SellResult, applied bool) string {
	var b strings.Builder

	if applied {
		fmt.Fprintf(&b, "# Sold %s\n\n", r.Symbol)
	} else {
		fmt.Fprintf(&b, "# Sell preview for %s\n\n", r.Symbol)
	}
	b.WriteString("| | |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Proceeds | %s |\n", domain.FormatCNY(r.Proceeds))
	fmt.Fprintf(&b, "| Execution price | %.4f |\n", r.ExecutionPrice)
	fmt.Fprintf(&b, "| Quantity sold | %g |\n", domain.RoundQuantity(r.QuantitySold))
	fmt.Fprintf(&b, "| Cost of sold | %s |\n", domain.FormatCNY(r.CostOfSold))
	fmt.Fprintf(&b, "| Realized P&L | %s |\n", domain.FormatSignedCNY(r.PnL))
	fmt.Fprintf(&b, "| Remaining | %g |\n", domain.RoundQuantity(r.RemainingQuantity))

	if r.OverSell {
		b.WriteString("\n> The sell exceeds the held quantity. Re-run with `-force` to close the position.\n")
	} else if r.Closed {
		b.WriteString("\n> Position closed.\n")
	}
	return b.String()
}

func importMarkdown(r portfolio.ImportResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Imported %d holdings\n\n", len(r.Imported))
	for _, h := range r.Imported {
		fmt.Fprintf(&b, "- %s %s: %g @ %.4f\n", h.Symbol, escapeCell(h.DisplayName), domain.RoundQuantity(h.Quantity), h.CostBasis)
	}

	if len(r.Skipped) > 0 {
		fmt.Fprintf(&b, "\n## Skipped %d lines\n\n", len(r.Skipped))
		for _, s := range r.Skipped {
			fmt.Fprintf(&b, "- line %d `%s`: %s\n", s.Line, s.Text, s.Reason)
		}
	}
	return b.String()
}

func refreshMarkdown(r portfolio.RefreshResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Prices refreshed\n\nUpdated %d of %d holdings.\n", r.Updated, r.Requested)
	if len(r.Failed) > 0 {
		fmt.Fprintf(&b, "\nKept last price for: %s\n", strings.Join(r.Failed, ", "))
	}
	return b.String()
}

// escapeCell keeps user text from breaking table rows.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
