package prediction

import (
	"context"
	"sync/atomic"

	"codeberg.org/mutker/dcrmctl/internal/errors"
	"codeberg.org/mutker/dcrmctl/internal/waveform"
)

// Guard allows at most one in-flight prediction. A call made while
// another is running fails with ErrBusy; it is neither queued nor does
// it cancel the running one.
type Guard struct {
	next Predictor
	busy atomic.Bool
}

func NewGuard(next Predictor) *Guard {
	return &Guard{next: next}
}

func (g *Guard) Predict(ctx context.Context, series waveform.Series) (Record, error) {
	if !g.busy.CompareAndSwap(false, true) {
		return Record{}, errors.New().New(ErrBusy)
	}
	defer g.busy.Store(false)

	return g.next.Predict(ctx, series)
}

// InFlight reports whether a prediction is currently running
func (g *Guard) InFlight() bool {
	return g.busy.Load()
}
