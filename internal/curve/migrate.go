package curve

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Migrate moves a graduated curve to its terminal phase and snapshots the
// reserves handed to the external market. Only the creator or the platform
// authority may call it.
func (e *Engine) Migrate(ctx context.Context, mint, caller solana.PublicKey) (MigrationRecord, error) {
	ent, err := e.acquire(mint)
	if err != nil {
		return MigrationRecord{}, err
	}
	defer ent.mu.Unlock()

	s := &ent.state
	switch s.Phase {
	case PhaseTrading:
		return MigrationRecord{}, fmt.Errorf("%w: curve %s", ErrNotYetGraduated, mint)
	case PhaseMigrated:
		return MigrationRecord{}, fmt.Errorf("%w: %s", ErrAlreadyMigrated, mint)
	}
	if !e.canMigrate(s, caller) {
		e.logger.Warn("Migration rejected",
			zap.Stringer("mint", mint),
			zap.Stringer("caller", caller))
		return MigrationRecord{}, fmt.Errorf("%w: %s may not migrate %s", ErrUnauthorized, caller, mint)
	}

	record := MigrationRecord{
		Mint:             s.Mint,
		Authority:        caller,
		FinalSolReserves: s.RealSolReserves,
		RemainingTokens:  s.RealTokenReserves,
		TokensSold:       s.TokensSold,
		MigratedAt:       e.now().UTC(),
	}
	s.Phase = PhaseMigrated
	s.Migration = &record

	e.logger.Info("Curve migrated",
		zap.Stringer("mint", mint),
		zap.Stringer("authority", caller),
		zap.Uint64("final_sol_reserves", record.FinalSolReserves),
		zap.Uint64("remaining_tokens", record.RemainingTokens))

	e.record(ctx, s.Clone(), nil)
	if e.publisher != nil {
		e.publisher.PublishMigrated(record)
	}
	return record, nil
}

func (e *Engine) canMigrate(s *State, caller solana.PublicKey) bool {
	if caller.IsZero() {
		return false
	}
	return caller.Equals(s.Creator) || caller.Equals(e.authority)
}
