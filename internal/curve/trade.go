// internal/curve/trade.go
package curve

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// checkTradable rejects trades on curves past the Trading phase. It runs
// before any pricing or fee math.
func checkTradable(s *State, amount uint64) error {
	if s.Phase != PhaseTrading {
		return fmt.Errorf("%w: curve %s is %s", ErrTradingClosed, s.Mint, s.Phase)
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// planBuy prices a buy of solAmount and splits its fees.
func (e *Engine) planBuy(s *State, solAmount uint64) (Quote, error) {
	if err := checkTradable(s, solAmount); err != nil {
		return Quote{}, err
	}
	solReserves, err := s.EffectiveSolReserves()
	if err != nil {
		return Quote{}, err
	}
	tokenReserves, err := s.EffectiveTokenReserves()
	if err != nil {
		return Quote{}, err
	}
	tokensOut, err := QuoteBuy(solAmount, solReserves, tokenReserves)
	if err != nil {
		return Quote{}, err
	}
	split, err := e.fees.Split(solAmount, s.Phase, SideBuy)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Side: SideBuy, AmountIn: solAmount, AmountOut: tokensOut, Fees: split}, nil
}

// planSell prices a sell of tokenAmount and splits the fees of its SOL output.
func (e *Engine) planSell(s *State, tokenAmount uint64) (Quote, error) {
	if err := checkTradable(s, tokenAmount); err != nil {
		return Quote{}, err
	}
	solReserves, err := s.EffectiveSolReserves()
	if err != nil {
		return Quote{}, err
	}
	tokenReserves, err := s.EffectiveTokenReserves()
	if err != nil {
		return Quote{}, err
	}
	solOut, err := QuoteSell(tokenAmount, solReserves, tokenReserves)
	if err != nil {
		return Quote{}, err
	}
	split, err := e.fees.Split(solOut, s.Phase, SideSell)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Side: SideSell, AmountIn: tokenAmount, AmountOut: solOut, Fees: split}, nil
}

// QuoteBuy previews a buy against the current state. AmountOut is tokens.
func (e *Engine) QuoteBuy(mint solana.PublicKey, solAmount uint64) (Quote, error) {
	ent, err := e.acquire(mint)
	if err != nil {
		return Quote{}, err
	}
	defer ent.mu.Unlock()
	return e.planBuy(&ent.state, solAmount)
}

// QuoteSell previews a sell against the current state. AmountOut is the
// curve's gross SOL output; Fees.Net is what the seller would receive.
func (e *Engine) QuoteSell(mint solana.PublicKey, tokenAmount uint64) (Quote, error) {
	ent, err := e.acquire(mint)
	if err != nil {
		return Quote{}, err
	}
	defer ent.mu.Unlock()
	return e.planSell(&ent.state, tokenAmount)
}

// Buy spends req.SolAmount on the curve. The state is only mutated after the
// ledger has accepted every transfer of the trade.
func (e *Engine) Buy(ctx context.Context, req BuyRequest) (TradeReceipt, error) {
	if req.Buyer.IsZero() {
		return TradeReceipt{}, fmt.Errorf("%w: buyer is required", ErrInvalidParams)
	}
	ent, err := e.acquire(req.Mint)
	if err != nil {
		return TradeReceipt{}, err
	}
	defer ent.mu.Unlock()

	s := &ent.state
	q, err := e.planBuy(s, req.SolAmount)
	if err != nil {
		e.rejected(SideBuy, req.Mint, req.Buyer, req.SolAmount, err)
		return TradeReceipt{}, err
	}
	tokensOut := q.AmountOut

	if tokensOut < req.MinTokensOut {
		err := &SlippageError{Side: SideBuy, Expected: tokensOut, Minimum: req.MinTokensOut}
		e.rejected(SideBuy, req.Mint, req.Buyer, req.SolAmount, err)
		return TradeReceipt{}, err
	}
	if tokensOut > s.RealTokenReserves {
		err := fmt.Errorf("%w: %d tokens requested, %d available",
			ErrInsufficientLiquidity, tokensOut, s.RealTokenReserves)
		e.rejected(SideBuy, req.Mint, req.Buyer, req.SolAmount, err)
		return TradeReceipt{}, err
	}

	next, err := applyBuy(s, tokensOut, q.Fees)
	if err != nil {
		e.rejected(SideBuy, req.Mint, req.Buyer, req.SolAmount, err)
		return TradeReceipt{}, err
	}
	graduated := next.GraduationReached()
	if graduated {
		next.Phase = PhaseGraduated
		next.GraduatedAt = e.now().UTC()
	}

	transfers := buyTransfers(s, req.Buyer, tokensOut, q.Fees)
	if err := e.ledger.Execute(ctx, transfers); err != nil {
		terr := &TransferError{Legs: len(transfers), Err: err}
		e.rejected(SideBuy, req.Mint, req.Buyer, req.SolAmount, terr)
		return TradeReceipt{}, terr
	}
	*s = next

	receipt := e.receipt(s, req.Buyer, q, graduated)
	e.logger.Info("Buy executed",
		zap.Stringer("mint", s.Mint),
		zap.Stringer("buyer", req.Buyer),
		zap.Uint64("sol_in", req.SolAmount),
		zap.Uint64("tokens_out", tokensOut),
		zap.Uint64("sol_to_curve", q.Fees.Net),
		zap.Uint64("total_fees", q.Fees.Total()),
		zap.Uint64("real_sol_reserves", s.RealSolReserves),
		zap.Uint64("tokens_sold", s.TokensSold))

	e.afterTrade(ctx, s, receipt)
	return receipt, nil
}

// Sell returns req.TokenAmount to the curve for SOL. Fees are taken from the
// SOL output; the creator bucket stays in the vault until claimed.
func (e *Engine) Sell(ctx context.Context, req SellRequest) (TradeReceipt, error) {
	if req.Seller.IsZero() {
		return TradeReceipt{}, fmt.Errorf("%w: seller is required", ErrInvalidParams)
	}
	ent, err := e.acquire(req.Mint)
	if err != nil {
		return TradeReceipt{}, err
	}
	defer ent.mu.Unlock()

	s := &ent.state
	q, err := e.planSell(s, req.TokenAmount)
	if err != nil {
		e.rejected(SideSell, req.Mint, req.Seller, req.TokenAmount, err)
		return TradeReceipt{}, err
	}
	solOut := q.AmountOut

	if solOut < req.MinSolOut {
		err := &SlippageError{Side: SideSell, Expected: solOut, Minimum: req.MinSolOut}
		e.rejected(SideSell, req.Mint, req.Seller, req.TokenAmount, err)
		return TradeReceipt{}, err
	}
	if solOut > s.RealSolReserves {
		err := fmt.Errorf("%w: %d lamports requested, %d available",
			ErrInsufficientLiquidity, solOut, s.RealSolReserves)
		e.rejected(SideSell, req.Mint, req.Seller, req.TokenAmount, err)
		return TradeReceipt{}, err
	}

	next, err := applySell(s, req.TokenAmount, q.Fees)
	if err != nil {
		e.rejected(SideSell, req.Mint, req.Seller, req.TokenAmount, err)
		return TradeReceipt{}, err
	}

	transfers := sellTransfers(s, req.Seller, req.TokenAmount, q.Fees)
	if err := e.ledger.Execute(ctx, transfers); err != nil {
		terr := &TransferError{Legs: len(transfers), Err: err}
		e.rejected(SideSell, req.Mint, req.Seller, req.TokenAmount, terr)
		return TradeReceipt{}, terr
	}
	*s = next

	// The receipt reports what the seller actually received.
	q.AmountOut = q.Fees.Net
	receipt := e.receipt(s, req.Seller, q, false)
	e.logger.Info("Sell executed",
		zap.Stringer("mint", s.Mint),
		zap.Stringer("seller", req.Seller),
		zap.Uint64("tokens_in", req.TokenAmount),
		zap.Uint64("sol_out", solOut),
		zap.Uint64("sol_to_seller", q.Fees.Net),
		zap.Uint64("total_fees", q.Fees.Total()),
		zap.Uint64("real_sol_reserves", s.RealSolReserves),
		zap.Uint64("tokens_sold", s.TokensSold))

	e.afterTrade(ctx, s, receipt)
	return receipt, nil
}

// applyBuy returns the post-trade state without touching s.
func applyBuy(s *State, tokensOut uint64, fees FeeSplit) (State, error) {
	next := s.Clone()
	var err error
	if next.RealSolReserves, err = checkedAdd(s.RealSolReserves, fees.Net); err != nil {
		return State{}, err
	}
	if next.RealTokenReserves, err = checkedSub(s.RealTokenReserves, tokensOut); err != nil {
		return State{}, err
	}
	if next.TokensSold, err = checkedAdd(s.TokensSold, tokensOut); err != nil {
		return State{}, err
	}
	if next.TokensSold > next.VirtualTokenReserves {
		return State{}, fmt.Errorf("%w: tokens sold would exceed virtual supply", ErrInvalidComputation)
	}
	if err := applyFeeCounters(&next, fees); err != nil {
		return State{}, err
	}
	if _, err := next.EffectiveSolReserves(); err != nil {
		return State{}, err
	}
	return next, nil
}

func applySell(s *State, tokenAmount uint64, fees FeeSplit) (State, error) {
	next := s.Clone()
	var err error
	if next.RealSolReserves, err = checkedSub(s.RealSolReserves, fees.Gross); err != nil {
		return State{}, err
	}
	if next.RealTokenReserves, err = checkedAdd(s.RealTokenReserves, tokenAmount); err != nil {
		return State{}, err
	}
	if next.TokensSold, err = checkedSub(s.TokensSold, tokenAmount); err != nil {
		return State{}, err
	}
	if err := applyFeeCounters(&next, fees); err != nil {
		return State{}, err
	}
	return next, nil
}

func applyFeeCounters(next *State, fees FeeSplit) error {
	var err error
	if next.CumulativeFeesCollected, err = checkedAdd(next.CumulativeFeesCollected, fees.Total()); err != nil {
		return err
	}
	if next.PendingCreatorFees, err = checkedAdd(next.PendingCreatorFees, fees.Creator); err != nil {
		return err
	}
	return nil
}

// buyTransfers builds the ledger batch of a buy. The creator bucket is paid
// into the vault and only leaves it through ClaimCreatorFees.
func buyTransfers(s *State, buyer solana.PublicKey, tokensOut uint64, fees FeeSplit) []Transfer {
	transfers := make([]Transfer, 0, 3+len(fees.Auxiliary))
	transfers = append(transfers, Transfer{
		Asset: NativeMint, From: buyer, To: s.Vault, Amount: fees.Net + fees.Creator,
	})
	if fees.Platform > 0 {
		transfers = append(transfers, Transfer{
			Asset: NativeMint, From: buyer, To: s.Recipients.Platform, Amount: fees.Platform,
		})
	}
	for i, amount := range fees.Auxiliary {
		if amount > 0 {
			transfers = append(transfers, Transfer{
				Asset: NativeMint, From: buyer, To: s.Recipients.Auxiliary[i], Amount: amount,
			})
		}
	}
	transfers = append(transfers, Transfer{
		Asset: s.Mint, From: s.Vault, To: buyer, Amount: tokensOut,
	})
	return transfers
}

func sellTransfers(s *State, seller solana.PublicKey, tokenAmount uint64, fees FeeSplit) []Transfer {
	transfers := make([]Transfer, 0, 3+len(fees.Auxiliary))
	transfers = append(transfers, Transfer{
		Asset: s.Mint, From: seller, To: s.Vault, Amount: tokenAmount,
	})
	if fees.Net > 0 {
		transfers = append(transfers, Transfer{
			Asset: NativeMint, From: s.Vault, To: seller, Amount: fees.Net,
		})
	}
	if fees.Platform > 0 {
		transfers = append(transfers, Transfer{
			Asset: NativeMint, From: s.Vault, To: s.Recipients.Platform, Amount: fees.Platform,
		})
	}
	for i, amount := range fees.Auxiliary {
		if amount > 0 {
			transfers = append(transfers, Transfer{
				Asset: NativeMint, From: s.Vault, To: s.Recipients.Auxiliary[i], Amount: amount,
			})
		}
	}
	return transfers
}

func (e *Engine) receipt(s *State, trader solana.PublicKey, q Quote, graduated bool) TradeReceipt {
	fees := q.Fees
	if fees.Auxiliary != nil {
		fees.Auxiliary = append([]uint64(nil), fees.Auxiliary...)
	}
	return TradeReceipt{
		ID:                uuid.New().String(),
		Mint:              s.Mint,
		Trader:            trader,
		Side:              q.Side,
		AmountIn:          q.AmountIn,
		AmountOut:         q.AmountOut,
		Fees:              fees,
		RealSolReserves:   s.RealSolReserves,
		RealTokenReserves: s.RealTokenReserves,
		TokensSold:        s.TokensSold,
		Phase:             s.Phase,
		Graduated:         graduated,
		Timestamp:         e.now().UTC(),
	}
}

func (e *Engine) afterTrade(ctx context.Context, s *State, receipt TradeReceipt) {
	snapshot := s.Clone()
	e.record(ctx, snapshot, &receipt)

	if receipt.Graduated {
		e.logger.Info("Curve graduated",
			zap.Stringer("mint", s.Mint),
			zap.Uint64("real_sol_reserves", s.RealSolReserves),
			zap.Uint64("graduation_threshold", s.GraduationThreshold),
			zap.Uint64("tokens_sold", s.TokensSold))
	}
	if e.publisher == nil {
		return
	}
	e.publisher.PublishTrade(receipt)
	if receipt.Graduated {
		e.publisher.PublishGraduated(snapshot)
	}
}

func (e *Engine) rejected(side Side, mint, trader solana.PublicKey, amount uint64, err error) {
	e.logger.Warn("Trade rejected",
		zap.Stringer("side", side),
		zap.Stringer("mint", mint),
		zap.Stringer("trader", trader),
		zap.Uint64("amount", amount),
		zap.Error(err))
}
