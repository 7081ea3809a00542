package domain

import "errors"

// Boundary errors. The calculation core never returns these for ordinary zero-value
// cases; they are produced by validation before input reaches the ledger.
var (
	ErrInvalidSymbol           = errors.New("symbol is required")
	ErrInvalidQuantity         = errors.New("quantity must be greater than zero")
	ErrInvalidCost             = errors.New("unit cost must not be negative")
	ErrInvalidPrice            = errors.New("price must not be negative")
	ErrInvalidProceeds         = errors.New("proceeds must be greater than zero")
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrHoldingNotFound         = errors.New("holding not found")
	ErrUnknownAssetClass       = errors.New("unknown asset class")
	ErrCashNotHoldable         = errors.New("cash is tracked as a balance, not a holding")
	ErrInvalidStrategy         = errors.New("invalid target strategy")
	ErrInvalidSettlementConfig = errors.New("invalid settlement config")
	ErrOverSell                = errors.New("sell quantity exceeds held quantity")
	ErrNothingImported         = errors.New("no valid lines to import")
)
