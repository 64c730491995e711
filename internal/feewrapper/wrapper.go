// Package feewrapper charges a two-bucket fee on trades routed outside the
// bonding curve, typically against a graduated token's external market.
// It never reads or mutates curve state.
package feewrapper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
)

var ErrInactive = errors.New("fee wrapper is inactive")

// Config describes one wrapper.
type Config struct {
	Mint        solana.PublicKey
	Creator     solana.PublicKey
	Platform    solana.PublicKey
	PlatformBps uint16
	CreatorBps  uint16
}

// Publisher receives wrapper trade notifications.
type Publisher interface {
	PublishWrapperTrade(mint, user solana.PublicKey, side curve.Side, amount, platformFee, creatorFee uint64)
}

// Stats are the wrapper's running counters.
type Stats struct {
	Active             bool
	TotalVolume        uint64
	TotalFeesCollected uint64
	PlatformFeesEarned uint64
	CreatorFeesEarned  uint64
	CreatedAt          time.Time
}

// Result describes one charged trade.
type Result struct {
	Side      curve.Side
	Amount    uint64
	AfterFees uint64
	Fees      curve.FeeSplit
}

// Wrapper is safe for concurrent use.
type Wrapper struct {
	mu        sync.Mutex
	cfg       Config
	rates     curve.FeeRates
	stats     Stats
	ledger    curve.Ledger
	publisher Publisher
	logger    *zap.Logger
}

// Option customises a Wrapper.
type Option func(*Wrapper)

func WithPublisher(p Publisher) Option {
	return func(w *Wrapper) { w.publisher = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Wrapper) { w.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(w *Wrapper) { w.stats.CreatedAt = now().UTC() }
}

// New validates cfg and returns an active wrapper.
func New(cfg Config, ledger curve.Ledger, opts ...Option) (*Wrapper, error) {
	switch {
	case ledger == nil:
		return nil, errors.New("ledger is required")
	case cfg.Mint.IsZero(), cfg.Creator.IsZero(), cfg.Platform.IsZero():
		return nil, fmt.Errorf("%w: mint, creator and platform are required", curve.ErrInvalidParams)
	}
	rates := curve.FeeRates{PlatformBps: cfg.PlatformBps, CreatorBps: cfg.CreatorBps}
	if total := rates.TotalBps(); total > curve.MaxTotalFeeBps {
		return nil, fmt.Errorf("%w: wrapper fees total %d bps (max %d)", curve.ErrFeeTooHigh, total, curve.MaxTotalFeeBps)
	}

	w := &Wrapper{
		cfg:    cfg,
		rates:  rates,
		ledger: ledger,
		logger: zap.NewNop(),
		stats:  Stats{Active: true, CreatedAt: time.Now().UTC()},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named("fee_wrapper").With(zap.Stringer("mint", cfg.Mint))
	return w, nil
}

// Execute charges the wrapper fees on amount. Both fee legs are paid by user
// in one ledger batch; counters move only after the batch succeeds.
func (w *Wrapper) Execute(ctx context.Context, user solana.PublicKey, amount uint64, side curve.Side) (Result, error) {
	if amount == 0 {
		return Result{}, curve.ErrInvalidAmount
	}
	if user.IsZero() {
		return Result{}, fmt.Errorf("%w: user is required", curve.ErrInvalidParams)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.stats.Active {
		return Result{}, ErrInactive
	}
	split, err := curve.SplitFees(amount, w.rates)
	if err != nil {
		return Result{}, err
	}

	next := w.stats
	for _, c := range []struct {
		dst *uint64
		add uint64
	}{
		{&next.TotalVolume, amount},
		{&next.TotalFeesCollected, split.Total()},
		{&next.PlatformFeesEarned, split.Platform},
		{&next.CreatorFeesEarned, split.Creator},
	} {
		if *c.dst+c.add < *c.dst {
			return Result{}, fmt.Errorf("%w: wrapper counter overflow", curve.ErrInvalidComputation)
		}
		*c.dst += c.add
	}

	var transfers []curve.Transfer
	if split.Platform > 0 {
		transfers = append(transfers, curve.Transfer{
			Asset: curve.NativeMint, From: user, To: w.cfg.Platform, Amount: split.Platform,
		})
	}
	if split.Creator > 0 {
		transfers = append(transfers, curve.Transfer{
			Asset: curve.NativeMint, From: user, To: w.cfg.Creator, Amount: split.Creator,
		})
	}
	if len(transfers) > 0 {
		if err := w.ledger.Execute(ctx, transfers); err != nil {
			w.logger.Warn("Wrapper fee transfer failed",
				zap.Stringer("user", user),
				zap.Uint64("amount", amount),
				zap.Error(err))
			return Result{}, &curve.TransferError{Legs: len(transfers), Err: err}
		}
	}
	w.stats = next

	w.logger.Debug("Wrapper trade charged",
		zap.Stringer("user", user),
		zap.Stringer("side", side),
		zap.Uint64("amount", amount),
		zap.Uint64("platform_fee", split.Platform),
		zap.Uint64("creator_fee", split.Creator))

	if w.publisher != nil {
		w.publisher.PublishWrapperTrade(w.cfg.Mint, user, side, amount, split.Platform, split.Creator)
	}
	return Result{Side: side, Amount: amount, AfterFees: split.Net, Fees: split}, nil
}

// SetActive pauses or resumes the wrapper. Only the creator may call it.
func (w *Wrapper) SetActive(caller solana.PublicKey, active bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !caller.Equals(w.cfg.Creator) {
		return fmt.Errorf("%w: only the creator may change wrapper status", curve.ErrUnauthorized)
	}
	w.stats.Active = active
	w.logger.Info("Wrapper status updated", zap.Bool("active", active))
	return nil
}

// Stats returns a copy of the counters.
func (w *Wrapper) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Config returns the wrapper configuration.
func (w *Wrapper) Config() Config {
	return w.cfg
}
