package market

import (
	"errors"
	"fmt"
)

// ErrSourceUnavailable marks a scrape or API target that is unreachable or
// returned an unexpected shape. Retryable; callers must propagate it rather
// than continue with an empty registry.
var ErrSourceUnavailable = errors.New("source unavailable")

// ErrInsufficientData marks an empty or malformed series handed to the
// adjustment or backtest engines. Fatal for that operation, not for the run.
var ErrInsufficientData = errors.New("insufficient data")

// SymbolError isolates a failure to one symbol so the batch can continue.
type SymbolError struct {
	Symbol string
	Err    error
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("symbol %s: %v", e.Symbol, e.Err)
}

func (e *SymbolError) Unwrap() error { return e.Err }
