// internal/curve/state.go
package curve

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Phase is the one-way lifecycle of a curve: Trading -> Graduated -> Migrated.
type Phase uint8

const (
	PhaseTrading Phase = iota
	PhaseGraduated
	PhaseMigrated
)

func (p Phase) String() string {
	switch p {
	case PhaseTrading:
		return "trading"
	case PhaseGraduated:
		return "graduated"
	case PhaseMigrated:
		return "migrated"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "trading":
		return PhaseTrading, nil
	case "graduated":
		return PhaseGraduated, nil
	case "migrated":
		return PhaseMigrated, nil
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// FeeRecipients are the accounts paid directly at trade time. Auxiliary[i]
// receives the i-th auxiliary bucket of the fee schedule.
type FeeRecipients struct {
	Platform  solana.PublicKey
	Auxiliary []solana.PublicKey
}

// MigrationRecord is the reserve snapshot taken when a curve is marked
// migrated. Pool creation on the external market happens elsewhere.
type MigrationRecord struct {
	Mint             solana.PublicKey
	Authority        solana.PublicKey
	FinalSolReserves uint64
	RemainingTokens  uint64
	TokensSold       uint64
	MigratedAt       time.Time
}

// State is the reserve ledger of one token. Values returned by the engine
// are copies; mutating them has no effect on the engine.
type State struct {
	Mint    solana.PublicKey
	Creator solana.PublicKey
	Vault   solana.PublicKey

	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64
	TokensSold           uint64

	Phase               Phase
	GraduationThreshold uint64

	PendingCreatorFees      uint64
	CumulativeFeesCollected uint64

	Recipients FeeRecipients

	CreatedAt   time.Time
	GraduatedAt time.Time
	Migration   *MigrationRecord
}

// EffectiveSolReserves is virtual + real SOL, the SOL side used for pricing.
func (s *State) EffectiveSolReserves() (uint64, error) {
	return checkedAdd(s.VirtualSolReserves, s.RealSolReserves)
}

// EffectiveTokenReserves is virtual tokens minus tokens sold.
func (s *State) EffectiveTokenReserves() (uint64, error) {
	return checkedSub(s.VirtualTokenReserves, s.TokensSold)
}

// GraduationReached reports whether effective SOL meets the threshold.
func (s *State) GraduationReached() bool {
	total, err := s.EffectiveSolReserves()
	if err != nil {
		// Saturated: an overflowing sum is certainly past any u64 threshold.
		return true
	}
	return total >= s.GraduationThreshold
}

// Validate checks the structural invariants that must hold between trades.
func (s *State) Validate() error {
	if s.TokensSold > s.VirtualTokenReserves {
		return fmt.Errorf("tokens sold %d exceed virtual token reserves %d", s.TokensSold, s.VirtualTokenReserves)
	}
	if s.Phase > PhaseMigrated {
		return fmt.Errorf("unknown phase %d", s.Phase)
	}
	if s.Phase == PhaseMigrated && s.Migration == nil {
		return fmt.Errorf("migrated curve has no migration record")
	}
	if _, err := s.EffectiveSolReserves(); err != nil {
		return err
	}
	return nil
}

// Clone returns a deep copy.
func (s *State) Clone() State {
	c := *s
	if s.Recipients.Auxiliary != nil {
		c.Recipients.Auxiliary = append([]solana.PublicKey(nil), s.Recipients.Auxiliary...)
	}
	if s.Migration != nil {
		m := *s.Migration
		c.Migration = &m
	}
	return c
}
