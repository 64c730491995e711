// internal/storage/recorder.go
package storage

import (
	"context"
	"fmt"

	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
	"github.com/rovshanmuradov/launchpad-curve/internal/storage/models"
)

// Recorder adapts a Storage to curve.Recorder.
type Recorder struct {
	store Storage
}

var _ curve.Recorder = (*Recorder)(nil)

func NewRecorder(store Storage) *Recorder {
	return &Recorder{store: store}
}

func (r *Recorder) RecordCurve(ctx context.Context, state curve.State) error {
	return r.store.SaveCurve(ctx, models.NewCurve(state))
}

func (r *Recorder) RecordTrade(ctx context.Context, receipt curve.TradeReceipt) error {
	return r.store.SaveTrade(ctx, models.NewTrade(receipt))
}

// LoadCurves reads every stored curve back as engine state, ready for
// curve.Engine.Restore.
func LoadCurves(ctx context.Context, store Storage) ([]curve.State, error) {
	records, err := store.ListCurves(ctx)
	if err != nil {
		return nil, err
	}
	states := make([]curve.State, 0, len(records))
	for _, rec := range records {
		s, err := rec.State()
		if err != nil {
			return nil, fmt.Errorf("curve %x: %w", rec.Mint, err)
		}
		states = append(states, s)
	}
	return states, nil
}
