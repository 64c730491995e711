// internal/scenario/runner.go
package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad-curve/internal/config"
	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
	"github.com/rovshanmuradov/launchpad-curve/internal/feewrapper"
	"github.com/rovshanmuradov/launchpad-curve/internal/ledger"
)

// expectedErrors maps expect_error names to the errors they match.
var expectedErrors = map[string]error{
	"invalid_amount":         curve.ErrInvalidAmount,
	"trading_closed":         curve.ErrTradingClosed,
	"slippage":               curve.ErrSlippageExceeded,
	"insufficient_liquidity": curve.ErrInsufficientLiquidity,
	"invalid_computation":    curve.ErrInvalidComputation,
	"not_graduated":          curve.ErrNotYetGraduated,
	"unauthorized":           curve.ErrUnauthorized,
	"no_claimable_fees":      curve.ErrNoClaimableFees,
	"transfer_failed":        curve.ErrTransferFailed,
	"already_migrated":       curve.ErrAlreadyMigrated,
	"wrapper_inactive":       feewrapper.ErrInactive,
}

// StepResult is the outcome of one step. Err is set only for steps that
// failed as expected.
type StepResult struct {
	Index     int
	Action    Action
	Account   string
	Receipt   *curve.TradeReceipt
	Claimed   uint64
	Migration *curve.MigrationRecord
	Wrapper   *feewrapper.Result
	Err       error
}

// CurveReport is the outcome of one curve's steps.
type CurveReport struct {
	Name    string
	Final   curve.State
	Steps   []StepResult
	Wrapper *feewrapper.Stats
}

// Report is the outcome of a whole scenario. Curves keep scenario order.
type Report struct {
	Name     string
	Accounts map[string]solana.PublicKey
	Curves   []CurveReport
}

// Runner drives an engine and its in-memory ledger from scenarios.
type Runner struct {
	engine    *curve.Engine
	ledger    *ledger.Memory
	defaults  config.CurveDefaults
	publisher feewrapper.Publisher
	logger    *zap.Logger
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithWrapperPublisher forwards wrapper trades to p.
func WithWrapperPublisher(p feewrapper.Publisher) RunnerOption {
	return func(r *Runner) { r.publisher = p }
}

func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner returns a runner creating curves on engine. The engine must have
// been built over led.
func NewRunner(engine *curve.Engine, led *ledger.Memory, defaults config.CurveDefaults, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:   engine,
		ledger:   led,
		defaults: defaults,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("scenario")
	return r
}

// Run executes every curve of sc. Curves run concurrently and share the
// account set, so steps on different curves should not depend on each
// other's balances. The first unexpected outcome cancels the remaining curves.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	accounts, err := resolveAccounts(sc.Accounts)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Name:     sc.Name,
		Accounts: accounts,
		Curves:   make([]CurveReport, len(sc.Curves)),
	}

	r.logger.Info("Running scenario",
		zap.String("name", sc.Name),
		zap.Int("accounts", len(accounts)),
		zap.Int("curves", len(sc.Curves)))

	g, gCtx := errgroup.WithContext(ctx)
	for i := range sc.Curves {
		i := i // per-iteration copy (go.mod targets go 1.21)
		cc := &sc.Curves[i]
		g.Go(func() error {
			cr, err := r.runCurve(gCtx, cc, accounts)
			if err != nil {
				return fmt.Errorf("curve %q: %w", cc.Name, err)
			}
			report.Curves[i] = cr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Error("Scenario failed", zap.String("name", sc.Name), zap.Error(err))
		return nil, err
	}

	r.logger.Info("Scenario completed", zap.String("name", sc.Name))
	return report, nil
}

func resolveAccounts(cfgs []AccountConfig) (map[string]solana.PublicKey, error) {
	accounts := make(map[string]solana.PublicKey, len(cfgs))
	for _, a := range cfgs {
		if a.PrivateKey == "" {
			accounts[a.Name] = solana.NewWallet().PublicKey()
			continue
		}
		key, err := solana.PrivateKeyFromBase58(a.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("account %q: invalid private key: %w", a.Name, err)
		}
		accounts[a.Name] = key.PublicKey()
	}
	return accounts, nil
}

func (r *Runner) params(cc *CurveConfig, accounts map[string]solana.PublicKey) (curve.CurveParams, error) {
	mint := solana.NewWallet().PublicKey()
	if cc.Mint != "" {
		parsed, err := solana.PublicKeyFromBase58(cc.Mint)
		if err != nil {
			return curve.CurveParams{}, fmt.Errorf("invalid mint: %w", err)
		}
		mint = parsed
	}

	p := curve.CurveParams{
		Mint:                   mint,
		Creator:                accounts[cc.Creator],
		VirtualSolReserves:     orDefault(cc.VirtualSolReserves, r.defaults.VirtualSolReserves),
		VirtualTokenReserves:   orDefault(cc.VirtualTokenReserves, r.defaults.VirtualTokenReserves),
		InitialRealTokenSupply: orDefault(cc.InitialSupply, r.defaults.InitialSupply),
		GraduationThreshold:    orDefault(cc.GraduationThreshold, r.defaults.GraduationThreshold),
		Recipients:             curve.FeeRecipients{Platform: accounts[cc.Platform]},
	}
	for _, name := range cc.Auxiliary {
		p.Recipients.Auxiliary = append(p.Recipients.Auxiliary, accounts[name])
	}
	return p, nil
}

func orDefault(v, def uint64) uint64 {
	if v == 0 {
		return def
	}
	return v
}

func (r *Runner) runCurve(ctx context.Context, cc *CurveConfig, accounts map[string]solana.PublicKey) (CurveReport, error) {
	log := r.logger.With(zap.String("curve", cc.Name))

	params, err := r.params(cc, accounts)
	if err != nil {
		return CurveReport{}, err
	}
	if _, err := r.engine.CreateCurve(ctx, params); err != nil {
		return CurveReport{}, fmt.Errorf("failed to create curve: %w", err)
	}

	var wrapper *feewrapper.Wrapper
	if cc.Wrapper != nil {
		opts := []feewrapper.Option{feewrapper.WithLogger(r.logger)}
		if r.publisher != nil {
			opts = append(opts, feewrapper.WithPublisher(r.publisher))
		}
		wrapper, err = feewrapper.New(feewrapper.Config{
			Mint:        params.Mint,
			Creator:     params.Creator,
			Platform:    params.Recipients.Platform,
			PlatformBps: cc.Wrapper.PlatformBps,
			CreatorBps:  cc.Wrapper.CreatorBps,
		}, r.ledger, opts...)
		if err != nil {
			return CurveReport{}, fmt.Errorf("failed to create fee wrapper: %w", err)
		}
	}

	report := CurveReport{Name: cc.Name, Steps: make([]StepResult, 0, len(cc.Steps))}
	for i := range cc.Steps {
		if err := ctx.Err(); err != nil {
			return CurveReport{}, err
		}
		st := &cc.Steps[i]
		res, err := r.runStep(ctx, params.Mint, wrapper, st, accounts[st.Account])
		res.Index = i
		if err := checkOutcome(st, err); err != nil {
			return CurveReport{}, fmt.Errorf("step %d (%s): %w", i, st.Action, err)
		}
		if err != nil {
			res.Err = err
			log.Debug("Step failed as expected",
				zap.Int("step", i),
				zap.String("action", string(st.Action)),
				zap.Error(err))
		}
		if st.ExpectPhase != "" {
			if err := r.checkPhase(params.Mint, st.ExpectPhase); err != nil {
				return CurveReport{}, fmt.Errorf("step %d (%s): %w", i, st.Action, err)
			}
		}
		report.Steps = append(report.Steps, res)
	}

	final, err := r.engine.Curve(params.Mint)
	if err != nil {
		return CurveReport{}, err
	}
	report.Final = final
	if wrapper != nil {
		stats := wrapper.Stats()
		report.Wrapper = &stats
	}

	log.Info("Curve finished",
		zap.Stringer("mint", params.Mint),
		zap.Stringer("phase", final.Phase),
		zap.Int("steps", len(report.Steps)))
	return report, nil
}

func (r *Runner) runStep(ctx context.Context, mint solana.PublicKey, w *feewrapper.Wrapper, st *Step, who solana.PublicKey) (StepResult, error) {
	res := StepResult{Action: st.Action, Account: st.Account}

	switch st.Action {
	case ActionAirdrop:
		amount, err := parseAmount(st.Amount, curve.SolDecimals)
		if err != nil {
			return res, err
		}
		return res, r.ledger.Airdrop(curve.NativeMint, who, amount)

	case ActionBuy:
		amount, err := parseAmount(st.Amount, curve.SolDecimals)
		if err != nil {
			return res, err
		}
		minOut, err := r.minOut(st, curve.TokenDecimals, func() (uint64, error) {
			q, err := r.engine.QuoteBuy(mint, amount)
			return q.AmountOut, err
		})
		if err != nil {
			return res, err
		}
		receipt, err := r.engine.Buy(ctx, curve.BuyRequest{
			Mint:         mint,
			Buyer:        who,
			SolAmount:    amount,
			MinTokensOut: minOut,
		})
		if err != nil {
			return res, err
		}
		res.Receipt = &receipt

	case ActionSell:
		amount, err := r.sellAmount(st, mint, who)
		if err != nil {
			return res, err
		}
		minOut, err := r.minOut(st, curve.SolDecimals, func() (uint64, error) {
			q, err := r.engine.QuoteSell(mint, amount)
			return q.AmountOut, err
		})
		if err != nil {
			return res, err
		}
		receipt, err := r.engine.Sell(ctx, curve.SellRequest{
			Mint:        mint,
			Seller:      who,
			TokenAmount: amount,
			MinSolOut:   minOut,
		})
		if err != nil {
			return res, err
		}
		res.Receipt = &receipt

	case ActionClaim:
		claimed, err := r.engine.ClaimCreatorFees(ctx, mint, who)
		if err != nil {
			return res, err
		}
		res.Claimed = claimed

	case ActionMigrate:
		record, err := r.engine.Migrate(ctx, mint, who)
		if err != nil {
			return res, err
		}
		res.Migration = &record

	case ActionWrapper:
		side, err := parseSide(st.Side)
		if err != nil {
			return res, err
		}
		amount, err := parseAmount(st.Amount, curve.SolDecimals)
		if err != nil {
			return res, err
		}
		result, err := w.Execute(ctx, who, amount, side)
		if err != nil {
			return res, err
		}
		res.Wrapper = &result

	case ActionSetWrapper:
		return res, w.SetActive(who, *st.Active)

	default:
		return res, fmt.Errorf("unknown action %q", st.Action)
	}
	return res, nil
}

func (r *Runner) sellAmount(st *Step, mint, who solana.PublicKey) (uint64, error) {
	if st.Percent == 0 {
		return parseAmount(st.Amount, curve.TokenDecimals)
	}
	balance := decimal.NewFromUint64(r.ledger.Balance(mint, who))
	share := balance.Mul(decimal.NewFromInt(int64(st.Percent))).Div(decimal.NewFromInt(100))
	return curve.FromDecimal(share, 0)
}

// minOut resolves the slippage floor of a step: an explicit min_out wins,
// otherwise slippage_bps is applied to a fresh quote. A failing quote yields
// no floor so the trade itself reports the error.
func (r *Runner) minOut(st *Step, decimals int32, quote func() (uint64, error)) (uint64, error) {
	if st.MinOut != "" {
		return parseAmount(st.MinOut, decimals)
	}
	if st.SlippageBps == 0 {
		return 0, nil
	}
	expected, err := quote()
	if err != nil {
		return 0, nil
	}
	return curve.MinAmountOut(expected, st.SlippageBps), nil
}

func (r *Runner) checkPhase(mint solana.PublicKey, want string) error {
	phase, err := curve.ParsePhase(want)
	if err != nil {
		return err
	}
	state, err := r.engine.Curve(mint)
	if err != nil {
		return err
	}
	if state.Phase != phase {
		return fmt.Errorf("expected phase %s, got %s", phase, state.Phase)
	}
	return nil
}

func checkOutcome(st *Step, err error) error {
	if st.ExpectError == "" {
		return err
	}
	if err == nil {
		return fmt.Errorf("expected %s error, step succeeded", st.ExpectError)
	}
	if want := expectedErrors[st.ExpectError]; !errors.Is(err, want) {
		return fmt.Errorf("expected %s error, got: %w", st.ExpectError, err)
	}
	return nil
}
