// Package advisor produces the natural-language strategy report through Gemini.
package advisor

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aristath/alphaseeker/internal/domain"
)

const (
	defaultObjective = "目标年化15%，对冲通胀与美债风险。"
	defaultThesis    = "做多黄金、比特币与人民币核心资产以对冲美元风险；做多纳斯达克科技龙头；以量化基金获取超额收益。"
)

// HoldingContext is one holding as presented to the model
type HoldingContext struct {
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	AssetClass  domain.AssetClass `json:"type"`
	MarketValue string            `json:"market_value"`
	PnLPercent  string            `json:"pnl_percent"`
}

// PortfolioContext summarizes the current portfolio
type PortfolioContext struct {
	TotalValue          float64                       `json:"total_value"`
	CashBalance         float64                       `json:"cash_balance"`
	AllocationBreakdown map[domain.AssetClass]float64 `json:"allocation_breakdown"`
	TopHoldings         []HoldingContext              `json:"top_holdings"`
}

// ReportContext is the JSON document embedded in the prompt
type ReportContext struct {
	Objective        string                        `json:"objective"`
	CurrentPortfolio PortfolioContext              `json:"current_portfolio"`
	TargetStrategy   map[domain.AssetClass]float64 `json:"target_strategy"`
	MarketThesis     string                        `json:"market_thesis"`
}

// Input is everything the report is built from
type Input struct {
	Summary   domain.PortfolioSummary
	Holdings  []domain.Holding
	Strategy  domain.TargetStrategy
	Objective string // defaults to the built-in objective
	Thesis    string // defaults to the built-in market thesis
}

// BuildContext assembles the report context. Holdings are listed by market value, largest first.
func BuildContext(in Input) ReportContext {
	holdings := make([]domain.Holding, len(in.Holdings))
	copy(holdings, in.Holdings)
	sort.SliceStable(holdings, func(i, j int) bool {
		return holdings[i].MarketValue() > holdings[j].MarketValue()
	})

	details := make([]HoldingContext, 0, len(holdings))
	for _, h := range holdings {
		pnl := "0%"
		if h.CostBasis > 0 {
			pnl = fmt.Sprintf("%.2f%%", (h.CurrentPrice-h.CostBasis)/h.CostBasis*100)
		}
		details = append(details, HoldingContext{
			Code:        h.Symbol,
			Name:        h.DisplayName,
			AssetClass:  h.AssetClass,
			MarketValue: fmt.Sprintf("%.2f", h.MarketValue()),
			PnLPercent:  pnl,
		})
	}

	allocation := make(map[domain.AssetClass]float64, len(in.Summary.Allocation))
	for class, pct := range in.Summary.Allocation {
		allocation[class] = domain.RoundPercent(pct)
	}
	targets := make(map[domain.AssetClass]float64, len(in.Strategy.Allocations))
	for class, pct := range in.Strategy.Allocations {
		targets[class] = pct
	}

	return ReportContext{
		Objective: firstNonEmpty(in.Objective, defaultObjective),
		CurrentPortfolio: PortfolioContext{
			TotalValue:          domain.RoundMoney(in.Summary.TotalValue),
			CashBalance:         domain.RoundMoney(in.Summary.CashBalance),
			AllocationBreakdown: allocation,
			TopHoldings:         details,
		},
		TargetStrategy: targets,
		MarketThesis:   firstNonEmpty(in.Thesis, defaultThesis),
	}
}

// BuildPrompt renders the strategist prompt around the indented context JSON
func BuildPrompt(ctx ReportContext) (string, error) {
	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report context: %w", err)
	}

	var b strings.Builder
	b.WriteString("你是一位资深投资策略师，从机构资金的视角审视个人投资组合。\n\n")
	b.WriteString("以下是组合数据（JSON）：\n```json\n")
	b.Write(data)
	b.WriteString("\n```\n\n")
	b.WriteString("请对照目标策略评估当前偏离，并用中文输出一份简洁的 Markdown 报告，包括：\n")
	b.WriteString("1. **健康度**：组合是否符合抗通胀与科技成长的主线？单独点评占比最大的标的。\n")
	b.WriteString("2. **持仓诊断**：对 top_holdings 中盈亏显著的标的给出止盈、止损或加仓意见。\n")
	b.WriteString("3. **偏离预警**：指出明显超配或低配的资产大类。\n")
	b.WriteString("4. **操作建议**：具体的买入、卖出与再平衡动作，并评估现金仓位是否合适。\n\n")
	b.WriteString("要求专业、直接、可执行。")
	return b.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
