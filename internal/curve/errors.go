// internal/curve/errors.go
package curve

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrTradingClosed         = errors.New("trading is closed for this curve")
	ErrSlippageExceeded      = errors.New("slippage tolerance exceeded")
	ErrInsufficientLiquidity = errors.New("insufficient curve liquidity")
	ErrInvalidComputation    = errors.New("invalid calculation result")
	ErrNotYetGraduated       = errors.New("curve has not graduated yet")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNoClaimableFees       = errors.New("no fees available to claim")
	ErrTransferFailed        = errors.New("transfer failed")

	ErrCurveNotFound   = errors.New("curve not found")
	ErrCurveExists     = errors.New("curve already exists")
	ErrInvalidParams   = errors.New("invalid curve parameters")
	ErrFeeTooHigh      = errors.New("fee rate too high")
	ErrAlreadyMigrated = errors.New("curve already migrated")
)

// SlippageError reports a quote that fell below the caller's floor.
type SlippageError struct {
	Side     Side
	Expected uint64
	Minimum  uint64
}

func (e *SlippageError) Error() string {
	return fmt.Sprintf("%s: %s quote %d is below minimum %d",
		ErrSlippageExceeded, e.Side, e.Expected, e.Minimum)
}

func (e *SlippageError) Unwrap() error {
	return ErrSlippageExceeded
}

// TransferError wraps a ledger rejection of a trade batch.
type TransferError struct {
	Legs int
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: batch of %d legs rejected: %v", ErrTransferFailed, e.Legs, e.Err)
}

func (e *TransferError) Unwrap() []error {
	return []error{ErrTransferFailed, e.Err}
}
