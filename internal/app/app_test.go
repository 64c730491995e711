package app_test

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad-curve/internal/app"
	"github.com/rovshanmuradov/launchpad-curve/internal/config"
	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
	"github.com/rovshanmuradov/launchpad-curve/internal/scenario"
	"github.com/rovshanmuradov/launchpad-curve/internal/storage"
)

const twoBuys = `
name: two-buys
accounts:
  - name: creator
  - name: platform
  - name: prize
  - name: reserve
  - name: alice
curves:
  - name: demo
    creator: creator
    platform: platform
    auxiliary: [prize, reserve]
    steps:
      - {action: airdrop, account: alice, amount: 5}
      - {action: buy, account: alice, amount: 1}
      - {action: buy, account: alice, amount: 1}
`

func newApp(t *testing.T) *app.App {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.InMemory = true

	a, err := app.Build(cfg, app.Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return a
}

func TestApp_RecordsScenario(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)

	sc, err := scenario.Parse([]byte(twoBuys))
	require.NoError(t, err)
	report, err := a.ScenarioRunner().Run(ctx, sc)
	require.NoError(t, err)
	require.Len(t, report.Curves, 1)
	mint := report.Curves[0].Final.Mint

	stored, err := a.Store.ListCurves(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, mint, solana.PublicKey(stored[0].Mint))
	assert.Equal(t, report.Curves[0].Final.TokensSold, stored[0].TokensSold)

	trades, err := a.Store.ListTrades(ctx, mint, 10, 0)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, report.Curves[0].Steps[1].Receipt.ID, trades[0].ID)

	restored, err := storage.LoadCurves(ctx, a.Store)
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, curve.PhaseTrading, restored[0].Phase)

	require.NoError(t, a.Close(ctx))
	stats := a.Bus.Stats()
	assert.Equal(t, uint64(3), stats.Published)
	assert.Zero(t, stats.Dropped)

	require.NoError(t, a.Close(ctx))
}

func TestBuild_InvalidProgramID(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.InMemory = true
	cfg.Engine.ProgramID = "not-a-key"

	_, err = app.Build(cfg, app.Options{Logger: zaptest.NewLogger(t)})
	assert.Error(t, err)
}
