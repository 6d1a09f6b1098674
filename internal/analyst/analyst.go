// Package analyst implements the research committee. Each analyst reads
// market data through its own lens and emits an independent signal; the
// committee fans them out concurrently and collects whatever succeeds.
package analyst

import (
	"context"
	"sync"
	"time"

	"alphadesk/internal/logger"
	"alphadesk/internal/types"

	"golang.org/x/sync/errgroup"
)

// Analyst produces one signal for one ticker at a point in time.
type Analyst interface {
	Name() string
	Analyze(ctx context.Context, ticker string, asOf time.Time) (types.AnalystSignal, error)
}

// Committee runs a fixed roster of analysts. A failing analyst is logged and
// skipped; the bundle carries whatever subset succeeded.
type Committee struct {
	analysts []Analyst
}

func NewCommittee(analysts ...Analyst) *Committee {
	return &Committee{analysts: analysts}
}

func (c *Committee) Size() int { return len(c.analysts) }

// Run gathers signals for one ticker. Only a cancelled context aborts the
// fan-out early.
func (c *Committee) Run(ctx context.Context, ticker string, asOf time.Time) (types.SignalBundle, error) {
	bundle := make(types.SignalBundle, len(c.analysts))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range c.analysts {
		a := a
		g.Go(func() error {
			signal, err := a.Analyze(gctx, ticker, asOf)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warnf("[analyst] %s failed for %s: %v", a.Name(), ticker, err)
				return nil
			}
			mu.Lock()
			bundle[a.Name()] = signal
			mu.Unlock()
			logger.Debugf("[analyst] %s %s: %s %.1f%%", a.Name(), ticker, signal.Direction, signal.Confidence)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bundle, nil
}
