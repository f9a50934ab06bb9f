package simulation

import (
	"context"

	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

// Progress is a snapshot of one of the engines passed to Train.
type Progress struct {
	Engine int
	State  EngineState
}

// Train ticks every engine as fast as it can, one goroutine per engine, until
// ctx is done. Every `every` ticks an engine reports a snapshot to progressFn,
// which is called from a single goroutine. When Train returns no engine is
// being ticked, so their state may be read directly.
func Train(
	ctx context.Context,
	engines []*Engine,
	every int,
	progressFn func(Progress),
) error {
	if every < 1 {
		every = 1
	}

	group, groupCtx := errgroup.WithContext(ctx)
	workers := make([]<-chan Progress, 0, len(engines))
	for i, engine := range engines {
		i, engine := i, engine
		progress := make(chan Progress)
		workers = append(workers, progress)

		group.Go(func() error {
			defer close(progress)
			for {
				// done-guard
				select {
				case <-groupCtx.Done():
					return nil
				default:
				}

				if engine.advance()%every != 0 {
					continue
				}

				select {
				case progress <- Progress{Engine: i, State: engine.State()}:
				case <-groupCtx.Done():
					return nil
				}
			}
		})
	}

	for update := range channerics.Merge(groupCtx.Done(), workers...) {
		if progressFn != nil {
			progressFn(update)
		}
	}
	return group.Wait()
}
