// internal/curve/fees.go
package curve

import "fmt"

const (
	// BpsDenominator is 100% in basis points.
	BpsDenominator = 10_000
	// MaxTotalFeeBps caps the sum of all buckets in one row (10%).
	MaxTotalFeeBps = 1_000
)

// Side is the direction of a trade.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// FeeRates is one row of the fee schedule.
type FeeRates struct {
	PlatformBps  uint16
	CreatorBps   uint16
	AuxiliaryBps []uint16
}

// TotalBps returns the sum of all bucket rates.
func (r FeeRates) TotalBps() uint32 {
	total := uint32(r.PlatformBps) + uint32(r.CreatorBps)
	for _, bps := range r.AuxiliaryBps {
		total += uint32(bps)
	}
	return total
}

// FeeSchedule selects a FeeRates row by lifecycle phase and trade side.
// The post-graduation rows are only consulted for a non-Trading phase, which
// the engine never trades in.
type FeeSchedule struct {
	PreGraduationBuy   FeeRates
	PostGraduationBuy  FeeRates
	PreGraduationSell  FeeRates
	PostGraduationSell FeeRates
}

// DefaultFeeSchedule returns the launch schedule:
//
//	pre  buy : 1.00% platform, 0.50% creator, 0.30% prize pool, 0.20% reserves
//	post buy : 0.50% platform, 1.00% creator, 0.30% prize pool, 0.20% reserves
//	pre  sell: 1.00% platform, 0.50% creator
//	post sell: 0.50% platform, 1.00% creator
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		PreGraduationBuy:   FeeRates{PlatformBps: 100, CreatorBps: 50, AuxiliaryBps: []uint16{30, 20}},
		PostGraduationBuy:  FeeRates{PlatformBps: 50, CreatorBps: 100, AuxiliaryBps: []uint16{30, 20}},
		PreGraduationSell:  FeeRates{PlatformBps: 100, CreatorBps: 50},
		PostGraduationSell: FeeRates{PlatformBps: 50, CreatorBps: 100},
	}
}

// Rates returns the row for the given phase and side.
func (s FeeSchedule) Rates(phase Phase, side Side) FeeRates {
	pre := phase == PhaseTrading
	switch {
	case side == SideBuy && pre:
		return s.PreGraduationBuy
	case side == SideBuy:
		return s.PostGraduationBuy
	case pre:
		return s.PreGraduationSell
	default:
		return s.PostGraduationSell
	}
}

// Validate checks every row against MaxTotalFeeBps.
func (s FeeSchedule) Validate() error {
	rows := []struct {
		name  string
		rates FeeRates
	}{
		{"pre_graduation_buy", s.PreGraduationBuy},
		{"post_graduation_buy", s.PostGraduationBuy},
		{"pre_graduation_sell", s.PreGraduationSell},
		{"post_graduation_sell", s.PostGraduationSell},
	}
	for _, row := range rows {
		if total := row.rates.TotalBps(); total > MaxTotalFeeBps {
			return fmt.Errorf("%w: %s totals %d bps (max %d)", ErrFeeTooHigh, row.name, total, MaxTotalFeeBps)
		}
	}
	return nil
}

// MaxAuxiliaryBuckets is the widest auxiliary bucket list across all rows.
func (s FeeSchedule) MaxAuxiliaryBuckets() int {
	n := 0
	for _, r := range []FeeRates{s.PreGraduationBuy, s.PostGraduationBuy, s.PreGraduationSell, s.PostGraduationSell} {
		if len(r.AuxiliaryBps) > n {
			n = len(r.AuxiliaryBps)
		}
	}
	return n
}

// Split applies the row selected by phase and side to gross.
func (s FeeSchedule) Split(gross uint64, phase Phase, side Side) (FeeSplit, error) {
	return SplitFees(gross, s.Rates(phase, side))
}

// FeeSplit is the result of splitting a gross amount into fee buckets.
// Platform + Creator + sum(Auxiliary) + Net == Gross.
type FeeSplit struct {
	Gross     uint64
	Platform  uint64
	Creator   uint64
	Auxiliary []uint64
	Net       uint64
}

// Total returns the sum of all buckets.
func (f FeeSplit) Total() uint64 {
	return f.Gross - f.Net
}

// SplitFees computes every bucket independently as floor(gross*bps/10000).
func SplitFees(gross uint64, rates FeeRates) (FeeSplit, error) {
	if rates.TotalBps() > BpsDenominator {
		return FeeSplit{}, fmt.Errorf("%w: %d bps exceeds 100%%", ErrFeeTooHigh, rates.TotalBps())
	}

	split := FeeSplit{Gross: gross}
	var err error
	if split.Platform, err = mulDivFloor(gross, uint64(rates.PlatformBps), BpsDenominator); err != nil {
		return FeeSplit{}, err
	}
	if split.Creator, err = mulDivFloor(gross, uint64(rates.CreatorBps), BpsDenominator); err != nil {
		return FeeSplit{}, err
	}
	total := split.Platform + split.Creator

	if len(rates.AuxiliaryBps) > 0 {
		split.Auxiliary = make([]uint64, len(rates.AuxiliaryBps))
		for i, bps := range rates.AuxiliaryBps {
			if split.Auxiliary[i], err = mulDivFloor(gross, uint64(bps), BpsDenominator); err != nil {
				return FeeSplit{}, err
			}
			total += split.Auxiliary[i]
		}
	}

	// Sum of floors never exceeds gross while TotalBps <= 10000.
	if split.Net, err = checkedSub(gross, total); err != nil {
		return FeeSplit{}, err
	}
	return split, nil
}
