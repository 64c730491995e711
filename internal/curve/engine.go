// internal/curve/engine.go
package curve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// DefaultProgramID is the program id vault addresses are derived under when
// Options.ProgramID is zero.
var DefaultProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

const vaultSeed = "bonding_curve"

// Options configures an Engine.
type Options struct {
	Ledger            Ledger
	Fees              FeeSchedule
	PlatformAuthority solana.PublicKey
	ProgramID         solana.PublicKey
	Recorder          Recorder  // optional
	Publisher         Publisher // optional
	Logger            *zap.Logger
	Now               func() time.Time
}

// CurveParams is the caller-supplied configuration of a new curve. It is
// validated once and immutable afterwards.
type CurveParams struct {
	Mint                   solana.PublicKey
	Creator                solana.PublicKey
	VirtualSolReserves     uint64
	VirtualTokenReserves   uint64
	InitialRealTokenSupply uint64
	GraduationThreshold    uint64
	Recipients             FeeRecipients
}

type entry struct {
	mu    sync.Mutex
	state State
	ready bool
}

// Engine owns every curve. Each curve is locked independently for the
// duration of a trade; different curves never contend.
type Engine struct {
	mu     sync.RWMutex
	curves map[solana.PublicKey]*entry

	ledger    Ledger
	fees      FeeSchedule
	authority solana.PublicKey
	programID solana.PublicKey
	recorder  Recorder
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewEngine validates opts and returns an empty engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if err := opts.Fees.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ProgramID.IsZero() {
		opts.ProgramID = DefaultProgramID
	}

	return &Engine{
		curves:    make(map[solana.PublicKey]*entry),
		ledger:    opts.Ledger,
		fees:      opts.Fees,
		authority: opts.PlatformAuthority,
		programID: opts.ProgramID,
		recorder:  opts.Recorder,
		publisher: opts.Publisher,
		logger:    opts.Logger.Named("curve_engine"),
		now:       opts.Now,
	}, nil
}

// Fees returns the engine's fee schedule.
func (e *Engine) Fees() FeeSchedule {
	return e.fees
}

// DeriveVault returns the account holding a curve's SOL and tokens.
func DeriveVault(mint, programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(vaultSeed), mint.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive curve vault: %w", err)
	}
	return addr, nil
}

func (e *Engine) validateParams(p CurveParams) error {
	switch {
	case p.Mint.IsZero():
		return fmt.Errorf("%w: mint is required", ErrInvalidParams)
	case p.Creator.IsZero():
		return fmt.Errorf("%w: creator is required", ErrInvalidParams)
	case p.VirtualSolReserves == 0:
		return fmt.Errorf("%w: virtual sol reserves must be positive", ErrInvalidParams)
	case p.VirtualTokenReserves == 0:
		return fmt.Errorf("%w: virtual token reserves must be positive", ErrInvalidParams)
	case p.InitialRealTokenSupply == 0:
		return fmt.Errorf("%w: initial token supply must be positive", ErrInvalidParams)
	case p.InitialRealTokenSupply > p.VirtualTokenReserves:
		return fmt.Errorf("%w: initial supply %d exceeds virtual token reserves %d",
			ErrInvalidParams, p.InitialRealTokenSupply, p.VirtualTokenReserves)
	case p.GraduationThreshold <= p.VirtualSolReserves:
		return fmt.Errorf("%w: graduation threshold %d must exceed virtual sol reserves %d",
			ErrInvalidParams, p.GraduationThreshold, p.VirtualSolReserves)
	case p.Recipients.Platform.IsZero():
		return fmt.Errorf("%w: platform fee recipient is required", ErrInvalidParams)
	}
	if need := e.fees.MaxAuxiliaryBuckets(); len(p.Recipients.Auxiliary) < need {
		return fmt.Errorf("%w: fee schedule has %d auxiliary buckets, %d recipients given",
			ErrInvalidParams, need, len(p.Recipients.Auxiliary))
	}
	for i, r := range p.Recipients.Auxiliary {
		if r.IsZero() {
			return fmt.Errorf("%w: auxiliary recipient %d is empty", ErrInvalidParams, i)
		}
	}
	return nil
}

// CreateCurve registers a new curve and funds its vault with the initial
// token supply.
func (e *Engine) CreateCurve(ctx context.Context, p CurveParams) (State, error) {
	if err := e.validateParams(p); err != nil {
		return State{}, err
	}
	vault, err := DeriveVault(p.Mint, e.programID)
	if err != nil {
		return State{}, err
	}

	// Reserve the slot so a concurrent create of the same mint fails fast
	// without holding the arena lock across the ledger call.
	ent := &entry{}
	ent.mu.Lock()
	defer ent.mu.Unlock()

	e.mu.Lock()
	if _, exists := e.curves[p.Mint]; exists {
		e.mu.Unlock()
		return State{}, fmt.Errorf("%w: %s", ErrCurveExists, p.Mint)
	}
	e.curves[p.Mint] = ent
	e.mu.Unlock()

	if err := e.ledger.MintInitialSupply(ctx, p.Mint, vault, p.InitialRealTokenSupply); err != nil {
		e.mu.Lock()
		delete(e.curves, p.Mint)
		e.mu.Unlock()
		return State{}, &TransferError{Legs: 1, Err: err}
	}

	state := State{
		Mint:                 p.Mint,
		Creator:              p.Creator,
		Vault:                vault,
		VirtualSolReserves:   p.VirtualSolReserves,
		VirtualTokenReserves: p.VirtualTokenReserves,
		RealTokenReserves:    p.InitialRealTokenSupply,
		Phase:                PhaseTrading,
		GraduationThreshold:  p.GraduationThreshold,
		Recipients: FeeRecipients{
			Platform:  p.Recipients.Platform,
			Auxiliary: append([]solana.PublicKey(nil), p.Recipients.Auxiliary...),
		},
		CreatedAt: e.now().UTC(),
	}
	ent.state = state
	ent.ready = true

	e.logger.Info("Curve created",
		zap.Stringer("mint", p.Mint),
		zap.Stringer("creator", p.Creator),
		zap.Stringer("vault", vault),
		zap.Uint64("virtual_sol_reserves", p.VirtualSolReserves),
		zap.Uint64("virtual_token_reserves", p.VirtualTokenReserves),
		zap.Uint64("initial_supply", p.InitialRealTokenSupply),
		zap.Uint64("graduation_threshold", p.GraduationThreshold))

	snapshot := state.Clone()
	e.record(ctx, snapshot, nil)
	if e.publisher != nil {
		e.publisher.PublishCurveCreated(snapshot)
	}
	return snapshot, nil
}

// Restore loads previously persisted curves. Existing mints are rejected.
// The engine's Ledger must already hold each vault's balances
// (RealSolReserves+PendingCreatorFees SOL and RealTokenReserves tokens);
// Restore does not move value.
func (e *Engine) Restore(states ...State) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, s := range states {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("curve %s: %w", s.Mint, err)
		}
		if _, exists := e.curves[s.Mint]; exists {
			return fmt.Errorf("%w: %s", ErrCurveExists, s.Mint)
		}
		e.curves[s.Mint] = &entry{state: s.Clone(), ready: true}
	}
	e.logger.Info("Curves restored", zap.Int("count", len(states)))
	return nil
}

// Curve returns a copy of the curve's current state.
func (e *Engine) Curve(mint solana.PublicKey) (State, error) {
	ent, err := e.lookup(mint)
	if err != nil {
		return State{}, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if !ent.ready {
		return State{}, fmt.Errorf("%w: %s", ErrCurveNotFound, mint)
	}
	return ent.state.Clone(), nil
}

// Curves returns copies of every curve ordered by creation time.
func (e *Engine) Curves() []State {
	e.mu.RLock()
	entries := make([]*entry, 0, len(e.curves))
	for _, ent := range e.curves {
		entries = append(entries, ent)
	}
	e.mu.RUnlock()

	states := make([]State, 0, len(entries))
	for _, ent := range entries {
		ent.mu.Lock()
		if ent.ready {
			states = append(states, ent.state.Clone())
		}
		ent.mu.Unlock()
	}
	sort.Slice(states, func(i, j int) bool {
		if states[i].CreatedAt.Equal(states[j].CreatedAt) {
			return states[i].Mint.String() < states[j].Mint.String()
		}
		return states[i].CreatedAt.Before(states[j].CreatedAt)
	})
	return states
}

// acquire returns the curve's entry locked. The caller must unlock it.
func (e *Engine) acquire(mint solana.PublicKey) (*entry, error) {
	ent, err := e.lookup(mint)
	if err != nil {
		return nil, err
	}
	ent.mu.Lock()
	if !ent.ready {
		ent.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrCurveNotFound, mint)
	}
	return ent, nil
}

func (e *Engine) lookup(mint solana.PublicKey) (*entry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ent, ok := e.curves[mint]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCurveNotFound, mint)
	}
	return ent, nil
}

// record writes the audit trail. Value has already moved when this runs, so
// failures are logged and swallowed.
func (e *Engine) record(ctx context.Context, state State, receipt *TradeReceipt) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordCurve(ctx, state); err != nil {
		e.logger.Error("Failed to record curve snapshot",
			zap.Stringer("mint", state.Mint), zap.Error(err))
	}
	if receipt == nil {
		return
	}
	if err := e.recorder.RecordTrade(ctx, *receipt); err != nil {
		e.logger.Error("Failed to record trade",
			zap.Stringer("mint", receipt.Mint),
			zap.String("receipt_id", receipt.ID),
			zap.Error(err))
	}
}
