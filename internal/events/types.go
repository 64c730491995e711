// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
)

// EventType names an event.
type EventType string

const (
	// All subscribes to every event type.
	All EventType = "*"

	// Curve lifecycle
	CurveCreated   EventType = "curve.created"
	CurveGraduated EventType = "curve.graduated"
	CurveMigrated  EventType = "curve.migrated"

	// Trading
	TradeExecuted EventType = "trade.executed"
	FeesClaimed   EventType = "fees.claimed"

	// Fee wrapper
	WrapperTradeExecuted EventType = "wrapper.trade_executed"
)

// Event is implemented by every event.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent carries the fields common to all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func (e BaseEvent) Type() EventType {
	return e.EventType
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// CurveCreatedEvent is emitted once per curve.
type CurveCreatedEvent struct {
	BaseEvent
	State curve.State
}

// TradeExecutedEvent carries the full receipt, fee breakdown included.
type TradeExecutedEvent struct {
	BaseEvent
	Receipt curve.TradeReceipt
}

// CurveGraduatedEvent is emitted by the buy that crossed the threshold.
type CurveGraduatedEvent struct {
	BaseEvent
	State curve.State
}

// CurveMigratedEvent is emitted when a graduated curve is marked migrated.
type CurveMigratedEvent struct {
	BaseEvent
	Record curve.MigrationRecord
}

// FeesClaimedEvent is emitted after a creator fee payout.
type FeesClaimedEvent struct {
	BaseEvent
	Mint    solana.PublicKey
	Creator solana.PublicKey
	Amount  uint64
}

// WrapperTradeExecutedEvent is emitted by the fee wrapper for each routed
// trade it charged.
type WrapperTradeExecutedEvent struct {
	BaseEvent
	Mint        solana.PublicKey
	User        solana.PublicKey
	Side        curve.Side
	Amount      uint64
	PlatformFee uint64
	CreatorFee  uint64
}
