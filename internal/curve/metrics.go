package curve

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	SolDecimals   = 9
	TokenDecimals = 6
)

// LamportsToSOL converts lamports to SOL for display.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return ToDecimal(lamports, SolDecimals)
}

// ToDecimal scales a raw integer amount down by decimals.
func ToDecimal(amount uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromUint64(amount).Shift(-decimals)
}

// FromDecimal scales a display amount up to raw units, truncating any
// remaining fraction. Negative amounts yield zero; amounts that do not fit in
// a u64 fail with ErrInvalidComputation.
func FromDecimal(amount decimal.Decimal, decimals int32) (uint64, error) {
	raw := amount.Shift(decimals).Truncate(0)
	if raw.Sign() <= 0 {
		return 0, nil
	}
	n := raw.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: %s overflows u64", ErrInvalidComputation, raw.String())
	}
	return n.Uint64(), nil
}

// SpotPrice is the marginal price of one whole token in SOL at the current
// effective reserves. Display only; trades never use it.
func (s *State) SpotPrice() decimal.Decimal {
	sol, err := s.EffectiveSolReserves()
	if err != nil {
		return decimal.Zero
	}
	tokens, err := s.EffectiveTokenReserves()
	if err != nil || tokens == 0 {
		return decimal.Zero
	}
	return LamportsToSOL(sol).Div(ToDecimal(tokens, TokenDecimals))
}

// MarketCap values the virtual token supply at SpotPrice, in SOL.
func (s *State) MarketCap() decimal.Decimal {
	return s.SpotPrice().Mul(ToDecimal(s.VirtualTokenReserves, TokenDecimals))
}

// Progress is the share of the way to graduation in percent, capped at 100.
func (s *State) Progress() decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if s.Phase != PhaseTrading || s.GraduationReached() {
		return hundred
	}
	if s.GraduationThreshold <= s.VirtualSolReserves {
		return hundred
	}
	target := decimal.NewFromUint64(s.GraduationThreshold - s.VirtualSolReserves)
	progress := decimal.NewFromUint64(s.RealSolReserves).Div(target).Mul(hundred)
	return decimal.Min(progress, hundred).Round(2)
}
