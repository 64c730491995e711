// internal/storage/models/curve.go
package models

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
)

// Curve is the stored snapshot of a curve. Keys are raw 32-byte accounts and
// times are unix nanoseconds so the record encodes as plain borsh.
type Curve struct {
	Version uint8

	Mint    [32]byte
	Creator [32]byte
	Vault   [32]byte

	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64
	TokensSold           uint64

	Phase               uint8
	GraduationThreshold uint64

	PendingCreatorFees      uint64
	CumulativeFeesCollected uint64

	PlatformRecipient   [32]byte
	AuxiliaryRecipients [][32]byte

	CreatedAt   int64
	GraduatedAt int64

	Migrated  bool
	Migration Migration
}

// Migration mirrors curve.MigrationRecord.
type Migration struct {
	Authority        [32]byte
	FinalSolReserves uint64
	RemainingTokens  uint64
	TokensSold       uint64
	MigratedAt       int64
}

const curveVersion = 1

// NewCurve converts an engine snapshot.
func NewCurve(s curve.State) *Curve {
	m := &Curve{
		Version:                 curveVersion,
		Mint:                    s.Mint,
		Creator:                 s.Creator,
		Vault:                   s.Vault,
		VirtualSolReserves:      s.VirtualSolReserves,
		VirtualTokenReserves:    s.VirtualTokenReserves,
		RealSolReserves:         s.RealSolReserves,
		RealTokenReserves:       s.RealTokenReserves,
		TokensSold:              s.TokensSold,
		Phase:                   uint8(s.Phase),
		GraduationThreshold:     s.GraduationThreshold,
		PendingCreatorFees:      s.PendingCreatorFees,
		CumulativeFeesCollected: s.CumulativeFeesCollected,
		PlatformRecipient:       s.Recipients.Platform,
		AuxiliaryRecipients:     make([][32]byte, len(s.Recipients.Auxiliary)),
		CreatedAt:               unixNano(s.CreatedAt),
		GraduatedAt:             unixNano(s.GraduatedAt),
	}
	for i, r := range s.Recipients.Auxiliary {
		m.AuxiliaryRecipients[i] = r
	}
	if s.Migration != nil {
		m.Migrated = true
		m.Migration = Migration{
			Authority:        s.Migration.Authority,
			FinalSolReserves: s.Migration.FinalSolReserves,
			RemainingTokens:  s.Migration.RemainingTokens,
			TokensSold:       s.Migration.TokensSold,
			MigratedAt:       unixNano(s.Migration.MigratedAt),
		}
	}
	return m
}

// State converts the record back to an engine snapshot.
func (m *Curve) State() (curve.State, error) {
	if m.Version != curveVersion {
		return curve.State{}, fmt.Errorf("unsupported curve record version %d", m.Version)
	}
	s := curve.State{
		Mint:                    m.Mint,
		Creator:                 m.Creator,
		Vault:                   m.Vault,
		VirtualSolReserves:      m.VirtualSolReserves,
		VirtualTokenReserves:    m.VirtualTokenReserves,
		RealSolReserves:         m.RealSolReserves,
		RealTokenReserves:       m.RealTokenReserves,
		TokensSold:              m.TokensSold,
		Phase:                   curve.Phase(m.Phase),
		GraduationThreshold:     m.GraduationThreshold,
		PendingCreatorFees:      m.PendingCreatorFees,
		CumulativeFeesCollected: m.CumulativeFeesCollected,
		Recipients:              curve.FeeRecipients{Platform: m.PlatformRecipient},
		CreatedAt:               fromUnixNano(m.CreatedAt),
		GraduatedAt:             fromUnixNano(m.GraduatedAt),
	}
	if len(m.AuxiliaryRecipients) > 0 {
		s.Recipients.Auxiliary = make([]solana.PublicKey, len(m.AuxiliaryRecipients))
		for i, r := range m.AuxiliaryRecipients {
			s.Recipients.Auxiliary[i] = r
		}
	}
	if m.Migrated {
		s.Migration = &curve.MigrationRecord{
			Mint:             m.Mint,
			Authority:        m.Migration.Authority,
			FinalSolReserves: m.Migration.FinalSolReserves,
			RemainingTokens:  m.Migration.RemainingTokens,
			TokensSold:       m.Migration.TokensSold,
			MigratedAt:       fromUnixNano(m.Migration.MigratedAt),
		}
	}
	return s, s.Validate()
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
