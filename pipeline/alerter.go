package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/service/lgr"
)

// runAlerter consumes recorded fires and dispatches the site report and the
// telegram notification for each one on independent fire-and-forget
// goroutines. Failures are logged and counted here, never rejoined into any
// capture loop; the image stays on local storage for out-of-band resync.
func runAlerter(canxCtx context.Context, svcs ServicesFactory, statsStream chan interface{}) chan AlertData {
	in := make(chan AlertData, svcs.CfgSvc.GetAlertBufferSize())

	go func() {
		var deliveries, errors atomic.Int64
		beginTime := time.Now().Unix()

		defer func() {
			statsStream <- model.DeliveryStats{
				Name:       "alerter",
				Deliveries: int(deliveries.Load()),
				Errors:     int(errors.Load()),
				Uptime:     time.Now().Unix() - beginTime,
			}
		}()

		for {
			select {
			case <-canxCtx.Done():
				lgr.Logger.Info(
					"alerter context cancelled",
				)
				return

			case alert := <-in:
				dispatch(svcs, alert, &deliveries, &errors)
			}
		}
	}()

	return in
}

func dispatch(svcs ServicesFactory, alert AlertData, deliveries, errors *atomic.Int64) {
	// Deliveries run against their own deadline, not the pipeline context:
	// a stop request lets in-flight hazard reports finish within budget.
	budget := deliveryBudget(svcs)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()

		if err := svcs.ReporterSvc.Send(ctx, alert.Fire); err != nil {
			errors.Add(1)
			lgr.Logger.Error(
				"fire report delivery failed",
				slog.String("camera", alert.Camera.Location),
				slog.String("image", alert.Fire.ImagePath),
				slog.Any("error", err),
			)
			return
		}
		deliveries.Add(1)
		lgr.Logger.Info(
			"fire report delivered",
			slog.String("camera", alert.Camera.Location),
			slog.Time("time", alert.Fire.Time),
		)
	}()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), budget)
		defer cancel()

		caption := fmt.Sprintf("🔥 Fire detected!\n🕒 Time: %s\n📍 Coordinates: unknown",
			alert.Fire.Time.Format("15:04:05"))

		if err := svcs.NotifierSvc.Notify(ctx, alert.Fire.ImagePath, caption); err != nil {
			errors.Add(1)
			lgr.Logger.Error(
				"alert notification failed",
				slog.String("camera", alert.Camera.Location),
				slog.Any("error", err),
			)
			return
		}
		deliveries.Add(1)
		lgr.Logger.Info(
			"alert notification delivered",
			slog.String("camera", alert.Camera.Location),
		)
	}()
}

func deliveryBudget(svcs ServicesFactory) time.Duration {
	attempts := svcs.CfgSvc.GetDeliveryMaxAttempts()
	if attempts < 1 {
		attempts = 1
	}
	timeout := svcs.CfgSvc.GetDeliveryTimeout()
	backoff := svcs.CfgSvc.GetDeliveryBackoff()

	return time.Duration(attempts)*timeout + time.Duration(attempts-1)*backoff
}
