package pricing

import (
	"context"
	"fmt"

	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/rs/zerolog"
)

// NamedResolver pairs a resolver with the name used in logs
type NamedResolver struct {
	Name     string
	Resolver domain.PriceResolver
}

// Chain tries resolvers in order and returns the first positive quote.
// Errors from individual resolvers are logged and the next resolver is tried;
// the chain only fails when the context is done.
type Chain struct {
	resolvers []NamedResolver
	log       zerolog.Logger
}

// NewChain creates a resolver chain
func NewChain(log zerolog.Logger, resolvers ...NamedResolver) *Chain {
	return &Chain{
		resolvers: resolvers,
		log:       log.With().Str("component", "price_chain").Logger(),
	}
}

// Resolve implements domain.PriceResolver
func (c *Chain) Resolve(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	for i, r := range c.resolvers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("price lookup for %s aborted: %w", symbol, err)
		}

		quote, err := r.Resolver.Resolve(ctx, symbol)
		if err != nil {
			c.log.Warn().
				Err(err).
				Str("symbol", symbol).
				Str("resolver", r.Name).
				Msg("Price lookup failed, trying next source")
			continue
		}
		if quote == nil || quote.Price <= 0 {
			continue
		}

		if i > 0 {
			c.log.Debug().
				Str("symbol", symbol).
				Str("resolver", r.Name).
				Float64("price", quote.Price).
				Msg("Resolved price from fallback source")
		}
		return quote, nil
	}

	c.log.Debug().Str("symbol", symbol).Msg("No source could price symbol")
	return nil, nil
}
