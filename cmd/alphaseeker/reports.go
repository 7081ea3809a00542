package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/aristath/alphaseeker/internal/clients/advisor"
	"github.com/aristath/alphaseeker/internal/di"
	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/aristath/alphaseeker/internal/modules/settlement"
	"github.com/google/subcommands"
)

// summaryCmd prints the portfolio summary.
type summaryCmd struct{}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the portfolio summary" }
func (*summaryCmd) Usage() string {
	return `alphaseeker summary

  Displays total value, cost, return, realized P&L, cash and the per class breakdown.
`
}

func (*summaryCmd) SetFlags(*flag.FlagSet) {}

func (*summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	err := withPortfolio(ctx, func(c *di.Container) error {
		printMarkdown(summaryMarkdown(c.PortfolioService.Summary()))
		return nil
	})
	if err != nil {
		fail("opening portfolio", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// holdingsCmd lists every holding.
type holdingsCmd struct{}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "list holdings with market value and P&L" }
func (*holdingsCmd) Usage() string {
	return `alphaseeker holdings
`
}

func (*holdingsCmd) SetFlags(*flag.FlagSet) {}

func (*holdingsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	err := withPortfolio(ctx, func(c *di.Container) error {
		printMarkdown(holdingsMarkdown(c.PortfolioService.Holdings()))
		return nil
	})
	if err != nil {
		fail("opening portfolio", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// allocationCmd compares the allocation with the target strategy.
type allocationCmd struct{}

func (*allocationCmd) Name() string     { return "allocation" }
func (*allocationCmd) Synopsis() string { return "compare the allocation with the target strategy" }
func (*allocationCmd) Usage() string {
	return `alphaseeker allocation

  Shows the relative deviation of each asset class from its target and the amount to
  buy or sell to rebalance.
`
}

func (*allocationCmd) SetFlags(*flag.FlagSet) {}

func (*allocationCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	err := withPortfolio(ctx, func(c *di.Container) error {
		printMarkdown(allocationMarkdown(c.PortfolioService.Allocation()))
		return nil
	})
	if err != nil {
		fail("opening portfolio", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// settleCmd evaluates the profit sharing and guarantee formula.
type settleCmd struct {
	cost float64
	ret  float64
}

func (*settleCmd) Name() string     { return "settle" }
func (*settleCmd) Synopsis() string { return "compute profit sharing and the downside guarantee" }
func (*settleCmd) Usage() string {
	return `alphaseeker settle [-cost <amount> -return <amount>]

  Evaluates the settlement against the live portfolio, or a hypothetical
  cost and return when -cost is given. Nothing is stored.
`
}

func (c *settleCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.cost, "cost", 0, "Hypothetical total cost")
	f.Float64Var(&c.ret, "return", 0, "Hypothetical total return, may be negative")
}

func (c *settleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	scenario := isFlagSet(f, "cost")
	if scenario && c.cost < 0 {
		fmt.Fprintln(os.Stderr, "Error: -cost must not be negative")
		f.Usage()
		return subcommands.ExitUsageError
	}

	err := withPortfolio(ctx, func(container *di.Container) error {
		service := container.PortfolioService
		if scenario {
			printMarkdown(settlementMarkdown(settlement.Scenario(c.cost, c.ret, service.SettlementConfig())))
			return nil
		}
		printMarkdown(settlementMarkdown(service.Settlement()))
		return nil
	})
	if err != nil {
		fail("computing settlement", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// reportCmd asks the advisor for a strategy report.
type reportCmd struct {
	objective string
	thesis    string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "generate an AI strategy report (needs GEMINI_API_KEY)" }
func (*reportCmd) Usage() string {
	return `alphaseeker report [-objective <text>] [-thesis <text>]
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.objective, "objective", "", "Investment objective, defaults to the built-in one")
	f.StringVar(&c.thesis, "thesis", "", "Market thesis, defaults to the built-in one")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	err := withPortfolio(ctx, func(container *di.Container) error {
		if container.Advisor == nil {
			return errors.New("advisor is not configured, set GEMINI_API_KEY")
		}
		service := container.PortfolioService
		snapshot := service.Snapshot()
		summary := service.Summary()
		report, err := container.Advisor.GenerateReport(ctx, advisor.Input{
			Summary:   summary,
			Holdings:  snapshot.Ledger.Holdings,
			Strategy:  snapshot.Strategy,
			Objective: c.objective,
			Thesis:    c.thesis,
		})
		if err != nil {
			return err
		}
		printMarkdown(fmt.Sprintf("%s\n\n_Portfolio value %s, generated by %s._\n",
			report, domain.FormatCNY(summary.TotalValue), container.Advisor.Model()))
		return nil
	})
	if err != nil {
		fail("generating report", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
