package mode

import (
	"context"
	"log/slog"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/pipeline"
	"github.com/tandau/firewatch-go/service/data"
	"github.com/tandau/firewatch-go/service/lgr"
)

type Processor func(canxCtx context.Context, svcs pipeline.ServicesFactory) error

func procStats(dataSvc data.IService, stats interface{}) {
	switch stats := stats.(type) {
	case model.WorkerStats:
		procWorkerStats(dataSvc, stats)
	case model.DeliveryStats:
		procDeliveryStats(dataSvc, stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
	}
}

func procWorkerStats(dataSvc data.IService, stats model.WorkerStats) {
	err := dataSvc.NewWorkerStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store worker stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procDeliveryStats(dataSvc data.IService, stats model.DeliveryStats) {
	err := dataSvc.NewDeliveryStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store delivery stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procError(dataSvc data.IService, err interface{}) {
	errTemp := dataSvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
