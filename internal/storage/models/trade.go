// internal/storage/models/trade.go
package models

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
)

// Trade is the stored form of a trade receipt.
type Trade struct {
	Version uint8
	Seq     uint64

	ID     string
	Mint   [32]byte
	Trader [32]byte
	Side   uint8

	AmountIn  uint64
	AmountOut uint64

	FeeGross     uint64
	FeePlatform  uint64
	FeeCreator   uint64
	FeeAuxiliary []uint64
	FeeNet       uint64

	RealSolReserves   uint64
	RealTokenReserves uint64
	TokensSold        uint64

	Phase     uint8
	Graduated bool
	Timestamp int64
}

const tradeVersion = 1

// NewTrade converts a receipt. Seq is assigned by the store.
func NewTrade(r curve.TradeReceipt) *Trade {
	return &Trade{
		Version:           tradeVersion,
		ID:                r.ID,
		Mint:              r.Mint,
		Trader:            r.Trader,
		Side:              uint8(r.Side),
		AmountIn:          r.AmountIn,
		AmountOut:         r.AmountOut,
		FeeGross:          r.Fees.Gross,
		FeePlatform:       r.Fees.Platform,
		FeeCreator:        r.Fees.Creator,
		FeeAuxiliary:      append([]uint64{}, r.Fees.Auxiliary...),
		FeeNet:            r.Fees.Net,
		RealSolReserves:   r.RealSolReserves,
		RealTokenReserves: r.RealTokenReserves,
		TokensSold:        r.TokensSold,
		Phase:             uint8(r.Phase),
		Graduated:         r.Graduated,
		Timestamp:         unixNano(r.Timestamp),
	}
}

// Receipt converts the record back to a receipt.
func (t *Trade) Receipt() (curve.TradeReceipt, error) {
	if t.Version != tradeVersion {
		return curve.TradeReceipt{}, fmt.Errorf("unsupported trade record version %d", t.Version)
	}
	r := curve.TradeReceipt{
		ID:        t.ID,
		Mint:      solana.PublicKey(t.Mint),
		Trader:    solana.PublicKey(t.Trader),
		Side:      curve.Side(t.Side),
		AmountIn:  t.AmountIn,
		AmountOut: t.AmountOut,
		Fees: curve.FeeSplit{
			Gross:    t.FeeGross,
			Platform: t.FeePlatform,
			Creator:  t.FeeCreator,
			Net:      t.FeeNet,
		},
		RealSolReserves:   t.RealSolReserves,
		RealTokenReserves: t.RealTokenReserves,
		TokensSold:        t.TokensSold,
		Phase:             curve.Phase(t.Phase),
		Graduated:         t.Graduated,
		Timestamp:         fromUnixNano(t.Timestamp),
	}
	if len(t.FeeAuxiliary) > 0 {
		r.Fees.Auxiliary = append([]uint64(nil), t.FeeAuxiliary...)
	}
	return r, nil
}
