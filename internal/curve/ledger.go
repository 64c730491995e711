package curve

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// NativeMint identifies SOL in transfers.
var NativeMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// Transfer is one debit/credit leg of a batch.
type Transfer struct {
	Asset  solana.PublicKey
	From   solana.PublicKey
	To     solana.PublicKey
	Amount uint64
}

// Ledger moves value on behalf of the engine. Execute must apply every leg or
// none of them.
type Ledger interface {
	Execute(ctx context.Context, transfers []Transfer) error
	MintInitialSupply(ctx context.Context, mint, to solana.PublicKey, amount uint64) error
}

// Recorder persists curve snapshots and trade receipts for audit.
type Recorder interface {
	RecordCurve(ctx context.Context, state State) error
	RecordTrade(ctx context.Context, receipt TradeReceipt) error
}

// Publisher receives lifecycle notifications. Implementations must not block.
type Publisher interface {
	PublishCurveCreated(state State)
	PublishTrade(receipt TradeReceipt)
	PublishGraduated(state State)
	PublishMigrated(record MigrationRecord)
	PublishFeesClaimed(mint, creator solana.PublicKey, amount uint64)
}
