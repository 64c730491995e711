package curve

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// ClaimCreatorFees pays the curve's pending creator fees out of the vault.
// The pending balance is cleared only once the transfer has succeeded.
func (e *Engine) ClaimCreatorFees(ctx context.Context, mint, caller solana.PublicKey) (uint64, error) {
	ent, err := e.acquire(mint)
	if err != nil {
		return 0, err
	}
	defer ent.mu.Unlock()

	s := &ent.state
	if !caller.Equals(s.Creator) {
		e.logger.Warn("Fee claim rejected",
			zap.Stringer("mint", mint),
			zap.Stringer("caller", caller),
			zap.String("reason", "not creator"))
		return 0, fmt.Errorf("%w: %s is not the creator of %s", ErrUnauthorized, caller, mint)
	}
	amount := s.PendingCreatorFees
	if amount == 0 {
		return 0, ErrNoClaimableFees
	}

	transfers := []Transfer{{Asset: NativeMint, From: s.Vault, To: s.Creator, Amount: amount}}
	if err := e.ledger.Execute(ctx, transfers); err != nil {
		e.logger.Warn("Fee claim transfer failed",
			zap.Stringer("mint", mint),
			zap.Uint64("amount", amount),
			zap.Error(err))
		return 0, &TransferError{Legs: 1, Err: err}
	}
	s.PendingCreatorFees = 0

	e.logger.Info("Creator fees claimed",
		zap.Stringer("mint", mint),
		zap.Stringer("creator", s.Creator),
		zap.Uint64("amount", amount))

	e.record(ctx, s.Clone(), nil)
	if e.publisher != nil {
		e.publisher.PublishFeesClaimed(mint, s.Creator, amount)
	}
	return amount, nil
}
