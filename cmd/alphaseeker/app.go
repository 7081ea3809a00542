package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/aristath/alphaseeker/internal/config"
	"github.com/aristath/alphaseeker/internal/di"
	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/aristath/alphaseeker/internal/modules/portfolio"
	"github.com/aristath/alphaseeker/pkg/logger"
	"github.com/charmbracelet/glamour"
)

// The CLI has a short lived lifecycle, package level flags are fine.
var (
	verbose = flag.Bool("v", false, "Log at info level instead of warn")
	rawMD   = flag.Bool("raw", false, "Print markdown without terminal styling")
)

// openPortfolio wires the application against the configured data directory.
// The scheduler is never started: every command is a single read or mutation.
func openPortfolio(ctx context.Context) (*di.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := "warn"
	if *verbose {
		level = "info"
	}
	log := logger.New(logger.Config{Level: level, Pretty: true, Output: os.Stderr})
	logger.SetGlobalLogger(log)

	return di.Wire(ctx, cfg, log.With().Str("component", "cli").Logger())
}

// withPortfolio opens the portfolio, runs fn and closes the database.
func withPortfolio(ctx context.Context, fn func(*di.Container) error) error {
	container, err := openPortfolio(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			fail("closing database", err)
		}
	}()
	return fn(container)
}

// findHolding resolves a holding by id or by (normalized) symbol.
func findHolding(service *portfolio.Service, ref string) (portfolio.HoldingView, error) {
	symbol := domain.NormalizeSymbol(ref)
	for _, h := range service.Holdings() {
		if h.ID == ref || h.Symbol == symbol {
			return h, nil
		}
	}
	return portfolio.HoldingView{}, fmt.Errorf("%w: %s", domain.ErrHoldingNotFound, ref)
}

// printMarkdown renders md for the terminal, falling back to the raw text.
func printMarkdown(md string) {
	if *rawMD {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Print(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// isFlagSet reports whether name was given on the command line.
func isFlagSet(f *flag.FlagSet, name string) bool {
	found := false
	f.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

func fail(action string, err error) {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", action, strings.TrimSpace(err.Error()))
}
