package curve_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
)

func TestClaimCreatorFees_ScenarioC(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.launchCurve(t)

	buyer := f.trader(t, 2_000_000_000)
	for i := 0; i < 2; i++ {
		_, err := f.engine.Buy(ctx, curve.BuyRequest{Mint: s.Mint, Buyer: buyer, SolAmount: 1_000_000_000})
		require.NoError(t, err)
	}
	before := f.requireConsistent(t, s.Mint)
	require.Equal(t, uint64(10_000_000), before.PendingCreatorFees)

	paid, err := f.engine.ClaimCreatorFees(ctx, s.Mint, f.creator)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000), paid)
	assert.Equal(t, uint64(10_000_000), f.ledger.Balance(curve.NativeMint, f.creator))

	after := f.requireConsistent(t, s.Mint)
	assert.Zero(t, after.PendingCreatorFees)
	assert.Equal(t, before.RealSolReserves, after.RealSolReserves)

	_, err = f.engine.ClaimCreatorFees(ctx, s.Mint, f.creator)
	assert.ErrorIs(t, err, curve.ErrNoClaimableFees)
	assert.Equal(t, uint64(10_000_000), f.ledger.Balance(curve.NativeMint, f.creator))
	assert.Equal(t, []uint64{10_000_000}, f.publisher.claimed)
}

func TestClaimCreatorFees_Unauthorized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.launchCurve(t)
	buyer := f.trader(t, 1_000_000_000)
	_, err := f.engine.Buy(ctx, curve.BuyRequest{Mint: s.Mint, Buyer: buyer, SolAmount: 1_000_000_000})
	require.NoError(t, err)

	callers := map[string]solana.PublicKey{
		"platform authority": f.authority,
		"buyer":              buyer,
		"stranger":           newKey(),
	}
	for name, caller := range callers {
		t.Run(name, func(t *testing.T) {
			_, err := f.engine.ClaimCreatorFees(ctx, s.Mint, caller)
			assert.ErrorIs(t, err, curve.ErrUnauthorized)
		})
	}
	st := f.requireConsistent(t, s.Mint)
	assert.Equal(t, uint64(5_000_000), st.PendingCreatorFees)
}

func TestClaimCreatorFees_TransferFailureKeepsPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.launchCurve(t)
	buyer := f.trader(t, 1_000_000_000)
	_, err := f.engine.Buy(ctx, curve.BuyRequest{Mint: s.Mint, Buyer: buyer, SolAmount: 1_000_000_000})
	require.NoError(t, err)

	outage := errors.New("ledger unavailable")
	f.ledger.SetFailFunc(func([]curve.Transfer) error { return outage })
	_, err = f.engine.ClaimCreatorFees(ctx, s.Mint, f.creator)
	require.ErrorIs(t, err, curve.ErrTransferFailed)
	f.ledger.SetFailFunc(nil)

	st := f.requireConsistent(t, s.Mint)
	assert.Equal(t, uint64(5_000_000), st.PendingCreatorFees)

	paid, err := f.engine.ClaimCreatorFees(ctx, s.Mint, f.creator)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), paid)
}

func TestClaimCreatorFees_AfterGraduation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, err := f.engine.CreateCurve(ctx, f.params(30_000, 1_000_000_000, 1_000_000_000, 40_000))
	require.NoError(t, err)
	buyer := f.trader(t, 20_000)

	r, err := f.engine.Buy(ctx, curve.BuyRequest{Mint: s.Mint, Buyer: buyer, SolAmount: 20_000})
	require.NoError(t, err)
	require.True(t, r.Graduated)

	paid, err := f.engine.ClaimCreatorFees(ctx, s.Mint, f.creator)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), paid)
	f.requireConsistent(t, s.Mint)
}
