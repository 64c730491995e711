package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/launchpad-curve/internal/config"
	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
)

var (
	quoteAmount        string
	quoteSolReserves   uint64
	quoteTokenReserves uint64
)

var quoteCmd = &cobra.Command{
	Use:   "quote buy|sell",
	Short: "Quote a trade against the configured curve defaults",
	Long: `Quote a buy (--amount in SOL) or a sell (--amount in tokens). Reserves
default to the configured virtual reserves of a fresh curve and can be
overridden in base units.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"buy", "sell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		amount, err := decimal.NewFromString(quoteAmount)
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", quoteAmount, err)
		}

		solReserves := cfg.CurveDefaults.VirtualSolReserves
		if quoteSolReserves > 0 {
			solReserves = quoteSolReserves
		}
		tokenReserves := cfg.CurveDefaults.VirtualTokenReserves
		if quoteTokenReserves > 0 {
			tokenReserves = quoteTokenReserves
		}

		q, err := quote(cfg.FeeSchedule(), args[0], amount, solReserves, tokenReserves)
		if err != nil {
			return err
		}
		renderQuote(cmd.OutOrStdout(), q)
		return nil
	},
}

// quote prices a trade the way the engine does for a Trading curve.
func quote(fees curve.FeeSchedule, side string, amount decimal.Decimal, solReserves, tokenReserves uint64) (curve.Quote, error) {
	switch side {
	case "buy":
		in, err := curve.FromDecimal(amount, curve.SolDecimals)
		if err != nil {
			return curve.Quote{}, err
		}
		out, err := curve.QuoteBuy(in, solReserves, tokenReserves)
		if err != nil {
			return curve.Quote{}, err
		}
		split, err := fees.Split(in, curve.PhaseTrading, curve.SideBuy)
		if err != nil {
			return curve.Quote{}, err
		}
		return curve.Quote{Side: curve.SideBuy, AmountIn: in, AmountOut: out, Fees: split}, nil
	case "sell":
		in, err := curve.FromDecimal(amount, curve.TokenDecimals)
		if err != nil {
			return curve.Quote{}, err
		}
		out, err := curve.QuoteSell(in, solReserves, tokenReserves)
		if err != nil {
			return curve.Quote{}, err
		}
		split, err := fees.Split(out, curve.PhaseTrading, curve.SideSell)
		if err != nil {
			return curve.Quote{}, err
		}
		return curve.Quote{Side: curve.SideSell, AmountIn: in, AmountOut: out, Fees: split}, nil
	}
	return curve.Quote{}, fmt.Errorf("unknown side %q", side)
}

func init() {
	quoteCmd.Flags().StringVarP(&quoteAmount, "amount", "a", "", "trade amount in display units")
	quoteCmd.Flags().Uint64Var(&quoteSolReserves, "sol-reserves", 0, "effective SOL reserves in lamports")
	quoteCmd.Flags().Uint64Var(&quoteTokenReserves, "token-reserves", 0, "effective token reserves in base units")
	_ = quoteCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(quoteCmd)
}
