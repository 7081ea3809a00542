package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aristath/alphaseeker/internal/di"
	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	"github.com/google/subcommands"
)

// buyCmd opens or adds to a position.
type buyCmd struct {
	symbol   string
	name     string
	class    string
	quantity float64
	cost     float64
	price    float64
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a purchase" }
func (*buyCmd) Usage() string {
	return `alphaseeker buy -s <symbol> -q <quantity> -c <unit cost> [-class <class>] [-name <name>] [-price <price>]

  Buys merge into an existing holding with the same symbol at a weighted
  average cost. Without -class the class is guessed from the name.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Fund or security code, e.g. 518880 or sh518880")
	f.StringVar(&c.name, "name", "", "Display name")
	f.StringVar(&c.class, "class", "", "Asset class: gold, quant_fund, bond, nasdaq100, bitcoin")
	f.Float64Var(&c.quantity, "q", 0, "Quantity")
	f.Float64Var(&c.cost, "c", 0, "Unit cost")
	f.Float64Var(&c.price, "price", 0, "Current price, skips the live lookup")
}

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.symbol == "" || c.quantity <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	class := domain.GuessAssetClass(c.name)
	if c.class != "" {
		parsed, err := domain.ParseAssetClass(c.class)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing class %q: %v\n", c.class, err)
			return subcommands.ExitUsageError
		}
		class = parsed
	}

	req := portfolio.BuyRequest{
		Symbol:      c.symbol,
		DisplayName: c.name,
		AssetClass:  class,
		Quantity:    c.quantity,
		UnitCost:    c.cost,
	}
	if isFlagSet(f, "price") {
		req.CurrentPrice = &c.price
	}

	err := withPortfolio(ctx, func(container *di.Container) error {
		holding, err := container.PortfolioService.Buy(ctx, req)
		if err != nil {
			return err
		}
		printMarkdown(fmt.Sprintf("# Bought %s\n\n%s now holds %g at an average cost of %.4f (%s).\n",
			holding.Symbol, escapeCell(holding.DisplayName), domain.RoundQuantity(holding.Quantity),
			holding.CostBasis, domain.FormatCNY(holding.Cost())))
		return nil
	})
	if err != nil {
		fail("recording buy", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// sellCmd liquidates part of a holding for a cash amount.
type sellCmd struct {
	proceeds float64
	price    float64
	force    bool
	dryRun   bool
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "sell part of a holding for an amount of cash" }
func (*sellCmd) Usage() string {
	return `alphaseeker sell -p <proceeds> [-price <price>] [-force] [-n] <symbol or id>

  The quantity sold is proceeds divided by the execution price, which defaults
  to the holding's current price. Proceeds are added to cash.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.proceeds, "p", 0, "Cash received")
	f.Float64Var(&c.price, "price", 0, "Execution price, defaults to the current price")
	f.BoolVar(&c.force, "force", false, "Allow selling more than is held, closing the position")
	f.BoolVar(&c.dryRun, "n", false, "Preview the sell without applying it")
}

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	err := withPortfolio(ctx, func(container *di.Container) error {
		service := container.PortfolioService
		holding, err := findHolding(service, f.Arg(0))
		if err != nil {
			return err
		}

		req := portfolio.SellRequest{HoldingID: holding.ID, Proceeds: c.proceeds, AllowOverSell: c.force}
		if isFlagSet(f, "price") {
			req.Price = &c.price
		}

		if c.dryRun {
			preview, err := service.PreviewSell(req)
			if err != nil {
				return err
			}
			printMarkdown(sellMarkdown(preview, false))
			return nil
		}

		result, err := service.Sell(ctx, req)
		if errors.Is(err, domain.ErrOverSell) {
			printMarkdown(sellMarkdown(result, false))
			return err
		}
		if err != nil {
			return err
		}
		printMarkdown(sellMarkdown(result, true))
		return nil
	})
	if err != nil {
		fail("recording sell", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// cashCmd overrides the cash balance.
type cashCmd struct{}

func (*cashCmd) Name() string     { return "cash" }
func (*cashCmd) Synopsis() string { return "set the cash balance" }
func (*cashCmd) Usage() string {
	return `alphaseeker cash <amount>
`
}

func (*cashCmd) SetFlags(*flag.FlagSet) {}

func (*cashCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, ok := amountArg(f)
	if !ok {
		return subcommands.ExitUsageError
	}

	err := withPortfolio(ctx, func(container *di.Container) error {
		if err := container.PortfolioService.SetCash(ctx, amount); err != nil {
			return err
		}
		printMarkdown(fmt.Sprintf("Cash balance set to **%s**.\n", domain.FormatCNY(amount)))
		return nil
	})
	if err != nil {
		fail("setting cash", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// lossCmd records a realized loss outside of a sell.
type lossCmd struct{}

func (*lossCmd) Name() string     { return "loss" }
func (*lossCmd) Synopsis() string { return "record a manual realized loss" }
func (*lossCmd) Usage() string {
	return `alphaseeker loss <amount>

  Adds a positive amount to the cumulative realized loss. Cash is unchanged.
`
}

func (*lossCmd) SetFlags(*flag.FlagSet) {}

func (*lossCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, ok := amountArg(f)
	if !ok {
		return subcommands.ExitUsageError
	}

	err := withPortfolio(ctx, func(container *di.Container) error {
		service := container.PortfolioService
		if err := service.RecordLoss(ctx, amount); err != nil {
			return err
		}
		printMarkdown(fmt.Sprintf("Recorded a loss of %s. Realized loss is now **%s**.\n",
			domain.FormatCNY(amount), domain.FormatCNY(service.Summary().RealizedLoss)))
		return nil
	})
	if err != nil {
		fail("recording loss", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// importCmd applies batch text from a file or stdin.
type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import holdings from batch text" }
func (*importCmd) Usage() string {
	return `alphaseeker import [<file>]

  Reads "name, type, code, cost, quantity" lines from the file or from stdin.
  Lines starting with # are ignored. Invalid lines are reported and skipped.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (*importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var in io.Reader = os.Stdin
	if f.NArg() > 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if f.NArg() == 1 {
		file, err := os.Open(f.Arg(0))
		if err != nil {
			fail("opening import file", err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		in = file
	}

	text, err := io.ReadAll(in)
	if err != nil {
		fail("reading import text", err)
		return subcommands.ExitFailure
	}

	err = withPortfolio(ctx, func(container *di.Container) error {
		result, err := container.PortfolioService.BatchImport(ctx, string(text))
		printMarkdown(importMarkdown(result))
		return err
	})
	if err != nil {
		fail("importing holdings", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// refreshCmd looks up current prices for every holding.
type refreshCmd struct{}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "refresh holding prices from the fund NAV source" }
func (*refreshCmd) Usage() string {
	return `alphaseeker refresh
`
}

func (*refreshCmd) SetFlags(*flag.FlagSet) {}

func (*refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	err := withPortfolio(ctx, func(container *di.Container) error {
		result, err := container.PortfolioService.RefreshPrices(ctx)
		if err != nil {
			return err
		}
		printMarkdown(refreshMarkdown(result))
		return nil
	})
	if err != nil {
		fail("refreshing prices", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// amountArg parses the single positional amount of cash and loss.
func amountArg(f *flag.FlagSet) (float64, bool) {
	if f.NArg() != 1 {
		f.Usage()
		return 0, false
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(f.Arg(0), ",", ""), 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing amount %q: %v\n", f.Arg(0), err)
		return 0, false
	}
	return amount, true
}
