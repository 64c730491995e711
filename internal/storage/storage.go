// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad-curve/internal/storage/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrClosed   = errors.New("storage is closed")
)

// Storage is the audit store for curves and their trades.
type Storage interface {
	// Curves
	SaveCurve(ctx context.Context, c *models.Curve) error
	GetCurve(ctx context.Context, mint solana.PublicKey) (*models.Curve, error)
	ListCurves(ctx context.Context) ([]*models.Curve, error)

	// Trades, in the order they were saved per mint.
	SaveTrade(ctx context.Context, t *models.Trade) error
	ListTrades(ctx context.Context, mint solana.PublicKey, limit, offset int) ([]*models.Trade, error)

	Close() error
}
