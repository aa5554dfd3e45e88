package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/service/config"
	"github.com/tandau/firewatch-go/service/notifier"
	"github.com/tandau/firewatch-go/service/reporter"
)

func alerterServices(t *testing.T) (ServicesFactory, *reporter.FakeService, *notifier.FakeService) {
	t.Helper()

	cfgSvc := config.NewHardCoded()
	cfgSvc.DeliveryTimeout = time.Second
	cfgSvc.DeliveryBackoff = 10 * time.Millisecond

	reporterSvc := reporter.NewFake()
	notifierSvc := notifier.NewFake()

	return ServicesFactory{
		CfgSvc:      cfgSvc,
		ReporterSvc: reporterSvc,
		NotifierSvc: notifierSvc,
	}, reporterSvc, notifierSvc
}

func alertFor(location string, confidence float32) AlertData {
	return AlertData{
		Fire: model.Fire{
			Location:   location,
			Time:       time.Now(),
			Confidence: confidence,
			ImagePath:  "/tmp/ignored.jpg",
		},
		Camera: model.Camera{ID: "cam-1", SourceURL: "test", Location: location},
	}
}

func TestAlerterDeliversReportAndNotification(t *testing.T) {
	svcs, reporterSvc, notifierSvc := alerterServices(t)

	canxCtx, canxFn := context.WithCancel(context.Background())
	defer canxFn()

	statsStream := make(chan interface{}, 1)
	alertStream := runAlerter(canxCtx, svcs, statsStream)

	alertStream <- alertFor("Gate", 0.91)

	require.Eventually(t, func() bool {
		return len(reporterSvc.Sent()) == 1 && len(notifierSvc.Notified()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	sent := reporterSvc.Sent()[0]
	assert.Equal(t, "Gate", sent.Location)
	assert.InDelta(t, 0.91, sent.Confidence, 1e-6)

	assert.Contains(t, notifierSvc.Notified()[0], "Fire detected")
}

func TestAlerterReporterFailureDoesNotGateNotifier(t *testing.T) {
	svcs, reporterSvc, notifierSvc := alerterServices(t)
	reporterSvc.Err = xerrors.New("site is down")

	canxCtx, canxFn := context.WithCancel(context.Background())
	defer canxFn()

	statsStream := make(chan interface{}, 1)
	alertStream := runAlerter(canxCtx, svcs, statsStream)

	alertStream <- alertFor("Gate", 0.9)
	alertStream <- alertFor("Yard", 0.85)

	// Both notifications arrive even though every report fails
	require.Eventually(t, func() bool {
		return len(notifierSvc.Notified()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	assert.Empty(t, reporterSvc.Sent())
}

func TestAlerterEmitsStatsOnShutdown(t *testing.T) {
	svcs, reporterSvc, _ := alerterServices(t)

	canxCtx, canxFn := context.WithCancel(context.Background())

	statsStream := make(chan interface{}, 1)
	alertStream := runAlerter(canxCtx, svcs, statsStream)

	alertStream <- alertFor("Gate", 0.9)
	require.Eventually(t, func() bool {
		return len(reporterSvc.Sent()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	canxFn()

	select {
	case s := <-statsStream:
		stats := s.(model.DeliveryStats)
		assert.Equal(t, "alerter", stats.Name)
		assert.GreaterOrEqual(t, stats.Deliveries, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("no delivery stats after shutdown")
	}
}
