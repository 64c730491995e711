package scenario

import (
	"context"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad-curve/internal/config"
	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
	"github.com/rovshanmuradov/launchpad-curve/internal/ledger"
)

type wrapperTrades struct {
	mu    sync.Mutex
	count int
	fees  uint64
}

func (w *wrapperTrades) PublishWrapperTrade(_, _ solana.PublicKey, _ curve.Side, _, platformFee, creatorFee uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.count++
	w.fees += platformFee + creatorFee
}

func newRunner(t *testing.T, opts ...RunnerOption) (*Runner, *ledger.Memory) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	led := ledger.NewMemory(logger)
	engine, err := curve.NewEngine(curve.Options{
		Ledger: led,
		Fees:   curve.DefaultFeeSchedule(),
		Logger: logger,
	})
	require.NoError(t, err)

	defaults := config.CurveDefaults{
		VirtualSolReserves:   config.DefaultVirtualSolReserves,
		VirtualTokenReserves: config.DefaultVirtualTokenReserves,
		InitialSupply:        config.DefaultInitialSupply,
		GraduationThreshold:  config.DefaultGraduationThreshold,
	}
	opts = append(opts, WithLogger(logger))
	return NewRunner(engine, led, defaults, opts...), led
}

const lifecycle = `
name: lifecycle
accounts:
  - name: creator
  - name: platform
  - name: prize
  - name: reserve
  - name: alice
  - name: bob
  - name: carol
  - name: dave
curves:
  - name: graduating
    creator: creator
    platform: platform
    auxiliary: [prize, reserve]
    graduation_threshold: 60000000000
    steps:
      - {action: airdrop, account: alice, amount: 50}
      - {action: buy, account: alice, amount: 20, expect_phase: trading}
      - {action: buy, account: alice, amount: 20, expect_phase: graduated}
      - {action: buy, account: bob, amount: 1, expect_error: trading_closed}
      - {action: migrate, account: alice, expect_error: unauthorized}
      - {action: claim, account: alice, expect_error: unauthorized}
      - {action: claim, account: creator}
      - {action: claim, account: creator, expect_error: no_claimable_fees}
      - {action: migrate, account: creator, expect_phase: migrated}
      - {action: migrate, account: creator, expect_error: already_migrated}
  - name: trading
    creator: creator
    platform: platform
    auxiliary: [prize, reserve]
    wrapper: {platform_bps: 100, creator_bps: 100}
    steps:
      - {action: airdrop, account: carol, amount: 10}
      - {action: buy, account: carol, amount: 1, slippage_bps: 100}
      - {action: buy, account: carol, amount: 1, min_out: 1000000000, expect_error: slippage}
      - {action: buy, account: dave, amount: 1, expect_error: transfer_failed}
      - {action: sell, account: carol, percent: 50, slippage_bps: 100}
      - {action: sell, account: carol, amount: 0, expect_error: invalid_amount}
      - {action: migrate, account: creator, expect_error: not_graduated}
      - {action: wrapper, account: carol, side: buy, amount: 1}
      - {action: set_wrapper, account: carol, active: false, expect_error: unauthorized}
      - {action: set_wrapper, account: creator, active: false}
      - {action: wrapper, account: carol, side: sell, amount: 1, expect_error: wrapper_inactive}
`

func TestRun_Lifecycle(t *testing.T) {
	published := &wrapperTrades{}
	runner, led := newRunner(t, WithWrapperPublisher(published))

	sc, err := Parse([]byte(lifecycle))
	require.NoError(t, err)

	report, err := runner.Run(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, report.Curves, 2)

	grad := report.Curves[0]
	assert.Equal(t, "graduating", grad.Name)
	assert.Equal(t, curve.PhaseMigrated, grad.Final.Phase)
	require.NotNil(t, grad.Final.Migration)
	require.Len(t, grad.Steps, 10)

	first, second := grad.Steps[1].Receipt, grad.Steps[2].Receipt
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.False(t, first.Graduated)
	assert.True(t, second.Graduated)
	assert.Equal(t, uint64(19_600_000_000), first.RealSolReserves)
	assert.Equal(t, uint64(39_200_000_000), second.RealSolReserves)

	assert.ErrorIs(t, grad.Steps[3].Err, curve.ErrTradingClosed)
	assert.Equal(t, uint64(200_000_000), grad.Steps[6].Claimed)
	assert.Zero(t, grad.Final.PendingCreatorFees)
	require.NotNil(t, grad.Steps[8].Migration)
	assert.Equal(t, report.Accounts["creator"], grad.Steps[8].Migration.Authority)
	assert.Equal(t, uint64(39_200_000_000), grad.Steps[8].Migration.FinalSolReserves)

	alice := report.Accounts["alice"]
	assert.Equal(t, uint64(10_000_000_000), led.Balance(curve.NativeMint, alice))
	assert.Equal(t, second.TokensSold, led.Balance(grad.Final.Mint, alice))

	trading := report.Curves[1]
	assert.Equal(t, curve.PhaseTrading, trading.Final.Phase)
	require.Len(t, trading.Steps, 11)

	buy := trading.Steps[1].Receipt
	require.NotNil(t, buy)
	sell := trading.Steps[4].Receipt
	require.NotNil(t, sell)
	assert.Equal(t, curve.SideSell, sell.Side)
	assert.Equal(t, buy.AmountOut/2, sell.AmountIn)
	assert.Equal(t, buy.AmountOut-sell.AmountIn, led.Balance(trading.Final.Mint, report.Accounts["carol"]))

	require.NotNil(t, trading.Steps[7].Wrapper)
	assert.Equal(t, uint64(980_000_000), trading.Steps[7].Wrapper.AfterFees)
	require.NotNil(t, trading.Wrapper)
	assert.False(t, trading.Wrapper.Active)
	assert.Equal(t, uint64(1_000_000_000), trading.Wrapper.TotalVolume)
	assert.Equal(t, uint64(10_000_000), trading.Wrapper.CreatorFeesEarned)

	assert.Equal(t, 1, published.count)
	assert.Equal(t, uint64(20_000_000), published.fees)
}

func TestRun_UnexpectedFailure(t *testing.T) {
	runner, _ := newRunner(t)

	sc, err := Parse([]byte(`
accounts: [{name: creator}, {name: platform}, {name: a}, {name: b}, {name: broke}]
curves:
  - name: failing
    creator: creator
    platform: platform
    auxiliary: [a, b]
    steps:
      - {action: buy, account: broke, amount: 1}
`))
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), sc)
	require.Error(t, err)
	assert.ErrorIs(t, err, curve.ErrTransferFailed)
	assert.Contains(t, err.Error(), `curve "failing": step 0 (buy)`)
}

func TestRun_ExpectationNotMet(t *testing.T) {
	runner, _ := newRunner(t)

	sc, err := Parse([]byte(`
accounts: [{name: creator}, {name: platform}, {name: a}, {name: b}]
curves:
  - name: quiet
    creator: creator
    platform: platform
    auxiliary: [a, b]
    steps:
      - {action: airdrop, account: a, amount: 1, expect_error: slippage}
`))
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected slippage error, step succeeded")
}

func TestRun_WrongPhase(t *testing.T) {
	runner, _ := newRunner(t)

	sc, err := Parse([]byte(`
accounts: [{name: creator}, {name: platform}, {name: a}, {name: b}]
curves:
  - name: early
    creator: creator
    platform: platform
    auxiliary: [a, b]
    steps:
      - {action: airdrop, account: a, amount: 1, expect_phase: graduated}
`))
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected phase graduated, got trading")
}
