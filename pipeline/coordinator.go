package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/service/lgr"
)

// Coordinator owns the set of stream workers: starts one per camera, fans a
// single cooperative stop signal out to all of them and joins on completion.
// Workers never abort each other; one closed stream leaves the rest running.
type Coordinator struct {
	svcs       ServicesFactory
	openSource sourceFactory

	mu     sync.Mutex
	canxFn context.CancelFunc
}

func NewCoordinator(svcs ServicesFactory) *Coordinator {
	return &Coordinator{
		svcs:       svcs,
		openSource: openGocvSource,
	}
}

// Run blocks until every worker has reached Closed. On return all capture
// handles are released. Stop arrives either through the parent context or
// through RequestStop.
func (c *Coordinator) Run(canxCtx context.Context, cameras []model.Camera,
	errorStream, statsStream chan interface{}) error {
	runCtx, canxFn := context.WithCancel(canxCtx)
	defer canxFn()

	c.mu.Lock()
	c.canxFn = canxFn
	c.mu.Unlock()

	alertStream := runAlerter(runCtx, c.svcs, statsStream)

	lgr.Logger.Info(
		"pipeline starting",
		slog.Int("cameras", len(cameras)),
	)

	var wg sync.WaitGroup
	for _, camera := range cameras {
		w := newWorker(c.svcs, camera, c.openSource, errorStream, statsStream, alertStream)

		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			w.run(runCtx)
		}(w)
	}

	wg.Wait()

	lgr.Logger.Info(
		"pipeline stopped, all stream workers closed",
	)

	return nil
}

// RequestStop signals every running worker to stop at its next loop
// iteration. Safe to call from any goroutine, including a worker that
// observed a global abort condition; calling it before Run is a no-op.
func (c *Coordinator) RequestStop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.canxFn != nil {
		c.canxFn()
	}
}
