package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func generateTestTrades() []curve.TradeReceipt {
	mint := solana.NewWallet().PublicKey()
	alice := solana.NewWallet().PublicKey()
	bob := solana.NewWallet().PublicKey()

	return []curve.TradeReceipt{
		{
			ID: "t3", Mint: mint, Trader: alice, Side: curve.SideSell,
			AmountIn: 2_000_000, AmountOut: 49_000_000,
			Fees:      curve.FeeSplit{Gross: 50_000_000, Platform: 500_000, Creator: 250_000, Net: 49_250_000},
			Timestamp: base.Add(20 * time.Minute),
		},
		{
			ID: "t1", Mint: mint, Trader: alice, Side: curve.SideBuy,
			AmountIn: 1_000_000_000, AmountOut: 34_612_903_225_807,
			Fees: curve.FeeSplit{
				Gross: 1_000_000_000, Platform: 10_000_000, Creator: 5_000_000,
				Auxiliary: []uint64{3_000_000, 2_000_000}, Net: 980_000_000,
			},
			Timestamp: base,
		},
		{
			ID: "t2", Mint: mint, Trader: bob, Side: curve.SideBuy,
			AmountIn: 500_000_000, AmountOut: 16_000_000_000_000,
			Fees: curve.FeeSplit{
				Gross: 500_000_000, Platform: 5_000_000, Creator: 2_500_000,
				Auxiliary: []uint64{1_500_000, 1_000_000}, Net: 490_000_000,
			},
			Graduated: true,
			Timestamp: base.Add(10 * time.Minute),
		},
	}
}

func TestExportCSV(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())
	outputPath, err := exporter.ExportTrades(generateTestTrades(), Options{
		Format:    FormatCSV,
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Failed to export trades: %v", err)
	}
	if !strings.HasSuffix(outputPath, ".csv") {
		t.Errorf("unexpected file name %s", outputPath)
	}

	f, err := os.Open(outputPath)
	if err != nil {
		t.Fatalf("Failed to open export: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read CSV: %v", err)
	}

	if len(rows) != 4 {
		t.Fatalf("expected header and 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "id" {
		t.Errorf("unexpected header %v", rows[0])
	}
	// Sorted by time.
	for i, id := range []string{"t1", "t2", "t3"} {
		if rows[i+1][0] != id {
			t.Errorf("row %d: expected %s, got %s", i+1, id, rows[i+1][0])
		}
	}
	if rows[1][5] != "1" || rows[1][6] != "34612903.225807" {
		t.Errorf("unexpected buy amounts %v", rows[1][5:7])
	}
	if rows[1][9] != "0.005" {
		t.Errorf("unexpected auxiliary fees %s", rows[1][9])
	}
	if rows[3][5] != "2" || rows[3][6] != "0.049" {
		t.Errorf("unexpected sell amounts %v", rows[3][5:7])
	}
}

func TestExportJSON(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())
	outputPath, err := exporter.ExportTrades(generateTestTrades(), Options{
		Format:    FormatJSON,
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Failed to export trades: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}
	var doc struct {
		TradeCount int      `json:"trade_count"`
		Summary    Summary  `json:"summary"`
		Trades     []Record `json:"trades"`
	}
	if err := json.Unmarshal(content, &doc); err != nil {
		t.Fatalf("Failed to decode export: %v", err)
	}
	if doc.TradeCount != 3 || len(doc.Trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", doc.TradeCount)
	}
	if doc.Summary.BuyCount != 2 || doc.Summary.SellCount != 1 {
		t.Errorf("unexpected counts %+v", doc.Summary)
	}
	if doc.Summary.UniqueTraders != 2 {
		t.Errorf("expected 2 traders, got %d", doc.Summary.UniqueTraders)
	}
	if got := doc.Summary.BuyVolumeSOL.String(); got != "1.5" {
		t.Errorf("buy volume = %s", got)
	}
	if got := doc.Summary.FeesSOL.String(); got != "0.03075" {
		t.Errorf("fees = %s", got)
	}
	if !doc.Summary.Graduated {
		t.Error("expected graduated summary")
	}
}

func TestExportFilters(t *testing.T) {
	exporter := NewTradeExporter(zap.NewNop())
	trades := generateTestTrades()

	tests := []struct {
		name string
		opts Options
		want int
	}{
		{"sells only", Options{Side: "sell"}, 1},
		{"buys only", Options{Side: "buy"}, 2},
		{"time window", Options{StartTime: base.Add(5 * time.Minute), EndTime: base.Add(15 * time.Minute)}, 1},
		{"nothing", Options{StartTime: base.Add(time.Hour)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterTrades(trades, tt.opts)
			if len(got) != tt.want {
				t.Errorf("expected %d trades, got %d", tt.want, len(got))
			}
		})
	}

	_, err := exporter.ExportTrades(trades, Options{Format: FormatCSV, Side: "sell", StartTime: base.Add(time.Hour), OutputDir: t.TempDir()})
	if err == nil {
		t.Error("expected error for empty export")
	}
	_, err = exporter.ExportTrades(trades, Options{Format: "xml", OutputDir: t.TempDir()})
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}
