package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/launchpad-curve/internal/app"
	"github.com/rovshanmuradov/launchpad-curve/internal/scenario"
)

var scenarioPath string

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a trading scenario against a fresh engine",
	Long: `Run a YAML scenario: curves are created with the configured defaults
unless the scenario overrides them, every step is executed against an
in-memory ledger and snapshots and receipts are written to the audit store.`,
	Example: "  curvectl simulate --scenario scenarios/launch.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := scenario.Load(scenarioPath)
		if err != nil {
			return err
		}

		a, err := app.New(app.Options{ConfigPath: configFile, Debug: debug})
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		end := a.Log.TrackPerformance("simulate")
		report, err := a.ScenarioRunner().Run(ctx, sc)
		end()
		if err != nil {
			return fmt.Errorf("scenario %q failed: %w", sc.Name, err)
		}

		renderReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	simulateCmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario YAML file")
	_ = simulateCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(simulateCmd)
}
