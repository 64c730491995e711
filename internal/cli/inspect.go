package cli

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/launchpad-curve/internal/app"
	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
	"github.com/rovshanmuradov/launchpad-curve/internal/export"
	"github.com/rovshanmuradov/launchpad-curve/internal/storage"
)

var (
	tradesLimit  int
	tradesOffset int

	exportFormat string
	exportDir    string
	exportSide   string
)

var curvesCmd = &cobra.Command{
	Use:   "curves",
	Short: "List curves recorded in the audit store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(app.Options{ConfigPath: configFile, Debug: debug})
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		states, err := storage.LoadCurves(cmd.Context(), a.Store)
		if err != nil {
			return err
		}
		renderCurves(cmd.OutOrStdout(), states)
		return nil
	},
}

var tradesCmd = &cobra.Command{
	Use:   "trades <mint>",
	Short: "List recorded trades of one curve, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mint, err := solana.PublicKeyFromBase58(args[0])
		if err != nil {
			return fmt.Errorf("invalid mint: %w", err)
		}

		a, err := app.New(app.Options{ConfigPath: configFile, Debug: debug})
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		receipts, err := loadTrades(cmd.Context(), a, mint, tradesLimit, tradesOffset)
		if err != nil {
			return err
		}
		renderTrades(cmd.OutOrStdout(), receipts)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <mint>",
	Short: "Export every recorded trade of one curve to CSV or JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mint, err := solana.PublicKeyFromBase58(args[0])
		if err != nil {
			return fmt.Errorf("invalid mint: %w", err)
		}

		a, err := app.New(app.Options{ConfigPath: configFile, Debug: debug})
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		receipts, err := loadTrades(cmd.Context(), a, mint, 0, 0)
		if err != nil {
			return err
		}
		path, err := export.NewTradeExporter(a.Log.Logger).ExportTrades(receipts, export.Options{
			Format:    export.Format(exportFormat),
			Side:      exportSide,
			OutputDir: exportDir,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func loadTrades(ctx context.Context, a *app.App, mint solana.PublicKey, limit, offset int) ([]curve.TradeReceipt, error) {
	stored, err := a.Store.ListTrades(ctx, mint, limit, offset)
	if err != nil {
		return nil, err
	}
	receipts := make([]curve.TradeReceipt, 0, len(stored))
	for _, t := range stored {
		r, err := t.Receipt()
		if err != nil {
			return nil, fmt.Errorf("trade %d: %w", t.Seq, err)
		}
		receipts = append(receipts, r)
	}
	return receipts, nil
}

func init() {
	tradesCmd.Flags().IntVar(&tradesLimit, "limit", 50, "maximum number of trades")
	tradesCmd.Flags().IntVar(&tradesOffset, "offset", 0, "trades to skip")
	exportCmd.Flags().StringVar(&exportFormat, "format", string(export.FormatCSV), "csv or json")
	exportCmd.Flags().StringVar(&exportDir, "out", "exports", "output directory")
	exportCmd.Flags().StringVar(&exportSide, "side", "", "only export buy or sell trades")
	rootCmd.AddCommand(curvesCmd, tradesCmd, exportCmd)
}
