// internal/events/publisher.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
)

// CurvePublisher adapts a Bus to curve.Publisher. Publishing never blocks the
// engine; a full queue drops the event and the bus counts it.
type CurvePublisher struct {
	bus *Bus
	now func() time.Time
}

var _ curve.Publisher = (*CurvePublisher)(nil)

// NewCurvePublisher wraps bus.
func NewCurvePublisher(bus *Bus) *CurvePublisher {
	return &CurvePublisher{bus: bus, now: time.Now}
}

func (p *CurvePublisher) base(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: p.now().UTC()}
}

func (p *CurvePublisher) PublishCurveCreated(state curve.State) {
	_ = p.bus.Publish(CurveCreatedEvent{BaseEvent: p.base(CurveCreated), State: state})
}

func (p *CurvePublisher) PublishTrade(receipt curve.TradeReceipt) {
	_ = p.bus.Publish(TradeExecutedEvent{BaseEvent: p.base(TradeExecuted), Receipt: receipt})
}

func (p *CurvePublisher) PublishGraduated(state curve.State) {
	_ = p.bus.Publish(CurveGraduatedEvent{BaseEvent: p.base(CurveGraduated), State: state})
}

func (p *CurvePublisher) PublishMigrated(record curve.MigrationRecord) {
	_ = p.bus.Publish(CurveMigratedEvent{BaseEvent: p.base(CurveMigrated), Record: record})
}

func (p *CurvePublisher) PublishFeesClaimed(mint, creator solana.PublicKey, amount uint64) {
	_ = p.bus.Publish(FeesClaimedEvent{
		BaseEvent: p.base(FeesClaimed),
		Mint:      mint,
		Creator:   creator,
		Amount:    amount,
	})
}

// PublishWrapperTrade reports a fee wrapper charge.
func (p *CurvePublisher) PublishWrapperTrade(mint, user solana.PublicKey, side curve.Side, amount, platformFee, creatorFee uint64) {
	_ = p.bus.Publish(WrapperTradeExecutedEvent{
		BaseEvent:   p.base(WrapperTradeExecuted),
		Mint:        mint,
		User:        user,
		Side:        side,
		Amount:      amount,
		PlatformFee: platformFee,
		CreatorFee:  creatorFee,
	})
}
