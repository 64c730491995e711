// internal/ledger/memory.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
	ErrInvalidTransfer     = errors.New("invalid transfer")
)

type account struct {
	asset solana.PublicKey
	owner solana.PublicKey
}

// FailFunc is consulted before a batch is applied. A non-nil error rejects
// the whole batch.
type FailFunc func(transfers []curve.Transfer) error

// Memory is an in-process ledger keeping per-(asset, owner) balances.
// Every batch applies completely or not at all.
type Memory struct {
	mu       sync.Mutex
	balances map[account]uint64
	failFn   FailFunc
	batches  int
	logger   *zap.Logger
}

// NewMemory returns an empty ledger.
func NewMemory(logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		balances: make(map[account]uint64),
		logger:   logger.Named("ledger"),
	}
}

// SetFailFunc installs a hook that can reject batches. Pass nil to clear it.
func (m *Memory) SetFailFunc(fn FailFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFn = fn
}

// Airdrop credits amount of asset to owner out of thin air.
func (m *Memory) Airdrop(asset, owner solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.credit(m.balances, account{asset, owner}, amount)
}

// Balance returns owner's balance of asset.
func (m *Memory) Balance(asset, owner solana.PublicKey) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account{asset, owner}]
}

// Batches returns the number of batches applied so far.
func (m *Memory) Batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

// MintInitialSupply credits a freshly created mint's supply to the curve vault.
func (m *Memory) MintInitialSupply(ctx context.Context, mint, to solana.PublicKey, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if mint.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: mint and destination are required", ErrInvalidTransfer)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failFn != nil {
		leg := []curve.Transfer{{Asset: mint, To: to, Amount: amount}}
		if err := m.failFn(leg); err != nil {
			return err
		}
	}
	if err := m.credit(m.balances, account{mint, to}, amount); err != nil {
		return err
	}
	m.logger.Debug("Initial supply minted",
		zap.Stringer("mint", mint),
		zap.Stringer("to", to),
		zap.Uint64("amount", amount))
	return nil
}

// Execute applies transfers atomically. Legs are applied in order against a
// scratch copy of the touched balances, so a later leg may spend what an
// earlier leg of the same batch credited.
func (m *Memory) Execute(ctx context.Context, transfers []curve.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failFn != nil {
		if err := m.failFn(transfers); err != nil {
			return err
		}
	}

	scratch := make(map[account]uint64, 2*len(transfers))
	for i, t := range transfers {
		if t.Amount == 0 || t.From.IsZero() || t.To.IsZero() || t.Asset.IsZero() {
			return fmt.Errorf("%w: leg %d", ErrInvalidTransfer, i)
		}
		from := account{t.Asset, t.From}
		to := account{t.Asset, t.To}
		for _, a := range []account{from, to} {
			if _, ok := scratch[a]; !ok {
				scratch[a] = m.balances[a]
			}
		}
		if scratch[from] < t.Amount {
			return fmt.Errorf("%w: leg %d: %s holds %d of %s, needs %d",
				ErrInsufficientBalance, i, t.From, scratch[from], t.Asset, t.Amount)
		}
		scratch[from] -= t.Amount
		if err := m.credit(scratch, to, t.Amount); err != nil {
			return fmt.Errorf("leg %d: %w", i, err)
		}
	}

	for a, v := range scratch {
		if v == 0 {
			delete(m.balances, a)
			continue
		}
		m.balances[a] = v
	}
	m.batches++
	m.logger.Debug("Batch applied", zap.Int("legs", len(transfers)))
	return nil
}

func (m *Memory) credit(balances map[account]uint64, a account, amount uint64) error {
	cur := balances[a]
	if cur+amount < cur {
		return fmt.Errorf("%w: %s of %s", ErrBalanceOverflow, a.owner, a.asset)
	}
	balances[a] = cur + amount
	return nil
}
