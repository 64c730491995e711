package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
)

// Format is the export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Options configures an export. Zero values disable the matching filter.
type Options struct {
	Format    Format
	StartTime time.Time
	EndTime   time.Time
	Side      string // "buy" or "sell"
	OutputDir string
}

// TradeExporter writes trade receipts to files.
type TradeExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TradeExporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// Summary aggregates exported trades. SOL amounts are in SOL, not lamports.
type Summary struct {
	TotalTrades    int             `json:"total_trades"`
	BuyCount       int             `json:"buy_count"`
	SellCount      int             `json:"sell_count"`
	UniqueTraders  int             `json:"unique_traders"`
	BuyVolumeSOL   decimal.Decimal `json:"buy_volume_sol"`
	SellVolumeSOL  decimal.Decimal `json:"sell_volume_sol"`
	FeesSOL        decimal.Decimal `json:"fees_sol"`
	CreatorFeesSOL decimal.Decimal `json:"creator_fees_sol"`
	Graduated      bool            `json:"graduated"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
}

// Record is the exported shape of one receipt.
type Record struct {
	ID                string          `json:"id"`
	Timestamp         time.Time       `json:"timestamp"`
	Mint              string          `json:"mint"`
	Trader            string          `json:"trader"`
	Side              string          `json:"side"`
	AmountIn          decimal.Decimal `json:"amount_in"`
	AmountOut         decimal.Decimal `json:"amount_out"`
	PlatformFee       decimal.Decimal `json:"platform_fee"`
	CreatorFee        decimal.Decimal `json:"creator_fee"`
	AuxiliaryFees     decimal.Decimal `json:"auxiliary_fees"`
	RealSolReserves   decimal.Decimal `json:"real_sol_reserves"`
	RealTokenReserves decimal.Decimal `json:"real_token_reserves"`
	Phase             string          `json:"phase"`
	Graduated         bool            `json:"graduated"`
}

var csvHeaders = []string{
	"id", "timestamp", "mint", "trader", "side",
	"amount_in", "amount_out", "platform_fee", "creator_fee", "auxiliary_fees",
	"real_sol_reserves", "real_token_reserves", "phase", "graduated",
}

// NewRecord converts a receipt into display units: SOL for lamport fields,
// whole tokens for token fields.
func NewRecord(r curve.TradeReceipt) Record {
	in := curve.LamportsToSOL(r.AmountIn)
	out := curve.ToDecimal(r.AmountOut, curve.TokenDecimals)
	if r.Side == curve.SideSell {
		in = curve.ToDecimal(r.AmountIn, curve.TokenDecimals)
		out = curve.LamportsToSOL(r.AmountOut)
	}
	var aux uint64
	for _, a := range r.Fees.Auxiliary {
		aux += a
	}
	return Record{
		ID:                r.ID,
		Timestamp:         r.Timestamp.UTC(),
		Mint:              r.Mint.String(),
		Trader:            r.Trader.String(),
		Side:              r.Side.String(),
		AmountIn:          in,
		AmountOut:         out,
		PlatformFee:       curve.LamportsToSOL(r.Fees.Platform),
		CreatorFee:        curve.LamportsToSOL(r.Fees.Creator),
		AuxiliaryFees:     curve.LamportsToSOL(aux),
		RealSolReserves:   curve.LamportsToSOL(r.RealSolReserves),
		RealTokenReserves: curve.ToDecimal(r.RealTokenReserves, curve.TokenDecimals),
		Phase:             r.Phase.String(),
		Graduated:         r.Graduated,
	}
}

func (r Record) csv() []string {
	return []string{
		r.ID, r.Timestamp.Format(time.RFC3339Nano), r.Mint, r.Trader, r.Side,
		r.AmountIn.String(), r.AmountOut.String(),
		r.PlatformFee.String(), r.CreatorFee.String(), r.AuxiliaryFees.String(),
		r.RealSolReserves.String(), r.RealTokenReserves.String(),
		r.Phase, strconv.FormatBool(r.Graduated),
	}
}

// ExportTrades filters receipts, sorts them by time and writes them to a new
// file under opts.OutputDir. It returns the file path.
func (te *TradeExporter) ExportTrades(receipts []curve.TradeReceipt, opts Options) (string, error) {
	filtered := filterTrades(receipts, opts)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(opts.OutputDir, te.filename(filtered[0].Mint.String(), opts))

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	switch opts.Format {
	case FormatCSV:
		err = writeCSV(file, filtered)
	case FormatJSON:
		err = te.writeJSON(file, filtered)
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(opts.Format)))
	return outputPath, nil
}

func filterTrades(receipts []curve.TradeReceipt, opts Options) []curve.TradeReceipt {
	var filtered []curve.TradeReceipt
	for _, r := range receipts {
		if !opts.StartTime.IsZero() && r.Timestamp.Before(opts.StartTime) {
			continue
		}
		if !opts.EndTime.IsZero() && r.Timestamp.After(opts.EndTime) {
			continue
		}
		if opts.Side != "" && r.Side.String() != opts.Side {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func (te *TradeExporter) filename(mint string, opts Options) string {
	prefix := "trades_all"
	if opts.Side != "" {
		prefix = "trades_" + opts.Side
	}
	if len(mint) > 8 {
		mint = mint[:8]
	}
	return fmt.Sprintf("%s_%s_%s.%s", prefix, mint, te.now().Format("20060102_150405"), opts.Format)
}

func writeCSV(w io.Writer, receipts []curve.TradeReceipt) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range receipts {
		if err := writer.Write(NewRecord(r).csv()); err != nil {
			return fmt.Errorf("failed to write trade %s: %w", r.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (te *TradeExporter) writeJSON(w io.Writer, receipts []curve.TradeReceipt) error {
	records := make([]Record, 0, len(receipts))
	for _, r := range receipts {
		records = append(records, NewRecord(r))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	data := struct {
		ExportTime time.Time `json:"export_time"`
		TradeCount int       `json:"trade_count"`
		Summary    Summary   `json:"summary"`
		Trades     []Record  `json:"trades"`
	}{
		ExportTime: te.now().UTC(),
		TradeCount: len(records),
		Summary:    Summarize(receipts),
		Trades:     records,
	}
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summarize computes aggregate statistics over receipts, which are expected
// in time order.
func Summarize(receipts []curve.TradeReceipt) Summary {
	s := Summary{
		TotalTrades:    len(receipts),
		BuyVolumeSOL:   decimal.Zero,
		SellVolumeSOL:  decimal.Zero,
		FeesSOL:        decimal.Zero,
		CreatorFeesSOL: decimal.Zero,
	}
	if len(receipts) == 0 {
		return s
	}
	s.StartDate = receipts[0].Timestamp.UTC()
	s.EndDate = receipts[len(receipts)-1].Timestamp.UTC()

	traders := make(map[string]struct{})
	for _, r := range receipts {
		traders[r.Trader.String()] = struct{}{}
		switch r.Side {
		case curve.SideBuy:
			s.BuyCount++
			s.BuyVolumeSOL = s.BuyVolumeSOL.Add(curve.LamportsToSOL(r.AmountIn))
		case curve.SideSell:
			s.SellCount++
			s.SellVolumeSOL = s.SellVolumeSOL.Add(curve.LamportsToSOL(r.Fees.Gross))
		}
		s.FeesSOL = s.FeesSOL.Add(curve.LamportsToSOL(r.Fees.Total()))
		s.CreatorFeesSOL = s.CreatorFeesSOL.Add(curve.LamportsToSOL(r.Fees.Creator))
		s.Graduated = s.Graduated || r.Graduated
	}
	s.UniqueTraders = len(traders)
	return s
}
