package mode

import (
	"context"
	"log/slog"
	"time"

	"github.com/tandau/firewatch-go/pipeline"
	"github.com/tandau/firewatch-go/service/lgr"
)

// Detect runs the multi-stream detection pipeline until all streams end or
// the context is cancelled. The stats and error streams of the workers are
// consumed here and persisted through the data service, including during the
// shutdown drain, so late-exiting goroutines can still report.
func Detect(canxCtx context.Context, svcs pipeline.ServicesFactory) error {
	cameras, err := svcs.DataSvc.RetrieveCameras()
	if err != nil {
		return err
	}

	errorStream := make(chan interface{}, 10)
	statsStream := make(chan interface{}, 10)

	coordinator := pipeline.NewCoordinator(svcs)

	coordResult := make(chan error, 1)
	go func() {
		coordResult <- coordinator.Run(canxCtx, cameras, errorStream, statsStream)
	}()

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"detect mode context cancelled",
			)
			coordinator.RequestStop()
			goto resume

		case err := <-coordResult:
			// All streams closed on their own (file sources exhausted
			// or devices gone)
			if err != nil {
				procError(svcs.DataSvc, err)
			}
			goto resume

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}

	// Drain stats and errors from exiting goroutines for a bounded period
resume:
	lgr.Logger.Info(
		"detect mode is waiting for all go routines to exit",
	)

	timer := time.NewTimer(time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime()) * time.Second)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			lgr.Logger.Info(
				"detect mode shutdown waiting period expired. Exiting now",
				slog.Duration("period", time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime())*time.Second),
			)
			return nil

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}
}
