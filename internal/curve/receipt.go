package curve

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// TradeReceipt describes one committed buy or sell.
//
// For a buy AmountIn is lamports paid and AmountOut tokens received; for a
// sell AmountIn is tokens paid and AmountOut the net lamports received.
// Fees.Gross is the amount the fee schedule was applied to: the SOL paid on a
// buy, the curve's SOL output on a sell.
type TradeReceipt struct {
	ID        string
	Mint      solana.PublicKey
	Trader    solana.PublicKey
	Side      Side
	AmountIn  uint64
	AmountOut uint64
	Fees      FeeSplit

	RealSolReserves   uint64
	RealTokenReserves uint64
	TokensSold        uint64

	Phase     Phase
	Graduated bool
	Timestamp time.Time
}

// Quote is a trade preview computed against the current state without
// mutating it.
type Quote struct {
	Side      Side
	AmountIn  uint64
	AmountOut uint64
	Fees      FeeSplit
}

// BuyRequest spends SolAmount lamports; the trade fails unless at least
// MinTokensOut tokens come back.
type BuyRequest struct {
	Mint         solana.PublicKey
	Buyer        solana.PublicKey
	SolAmount    uint64
	MinTokensOut uint64
}

// SellRequest returns TokenAmount tokens to the curve; the trade fails unless
// the curve's SOL output is at least MinSolOut.
type SellRequest struct {
	Mint        solana.PublicKey
	Seller      solana.PublicKey
	TokenAmount uint64
	MinSolOut   uint64
}

// MinAmountOut applies a slippage tolerance in basis points to an expected
// output, rounding down.
func MinAmountOut(expected uint64, slippageBps uint16) uint64 {
	if slippageBps >= BpsDenominator {
		return 0
	}
	v, err := mulDivFloor(expected, uint64(BpsDenominator-slippageBps), BpsDenominator)
	if err != nil {
		return 0
	}
	return v
}
