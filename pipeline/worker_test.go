package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/service/config"
	"github.com/tandau/firewatch-go/service/detect"
	"github.com/tandau/firewatch-go/service/preview"
)

// stubSource serves generated frames; frames < 0 means endless.
type stubSource struct {
	mu     sync.Mutex
	frames int
	reads  int
	closed bool
}

func (s *stubSource) Read() (gocv.Mat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frames >= 0 && s.reads >= s.frames {
		return gocv.Mat{}, false
	}
	s.reads++
	return gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3), true
}

func (s *stubSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *stubSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func stubFactory(source frameSource, err error) sourceFactory {
	return func(_ string) (frameSource, error) {
		if err != nil {
			return nil, err
		}
		return source, nil
	}
}

func testServices(t *testing.T, script map[int][]model.Detection) ServicesFactory {
	t.Helper()

	cfgSvc := config.NewHardCoded()
	cfgSvc.StorageFolder = t.TempDir()

	return ServicesFactory{
		CfgSvc:     cfgSvc,
		DetectSvc:  detect.NewFake(script),
		PreviewSvc: preview.NewNoop(),
	}
}

func TestWorkerSingleFireScenario(t *testing.T) {
	svcs := testServices(t, map[int][]model.Detection{
		5: {det(0, 0.91)},
	})

	source := &stubSource{frames: 10}
	camera := model.Camera{ID: "cam-1", SourceURL: "test", Location: "Gate"}

	errorStream := make(chan interface{}, 10)
	statsStream := make(chan interface{}, 1)
	alertStream := make(chan AlertData, 10)

	w := newWorker(svcs, camera, stubFactory(source, nil), errorStream, statsStream, alertStream)
	w.run(context.Background())

	require.Len(t, alertStream, 1)
	alert := <-alertStream
	assert.InDelta(t, 0.91, alert.Fire.Confidence, 1e-6)
	assert.Equal(t, "Gate", alert.Fire.Location)
	assert.FileExists(t, alert.Fire.ImagePath)

	assert.True(t, source.isClosed())
	assert.Empty(t, errorStream)

	stats := (<-statsStream).(model.WorkerStats)
	assert.Equal(t, 10, stats.Frames)
	assert.Equal(t, 1, stats.Fires)
}

func TestWorkerNoTriggerBelowThreshold(t *testing.T) {
	svcs := testServices(t, map[int][]model.Detection{
		3: {det(0, 0.5)},
	})

	source := &stubSource{frames: 6}
	camera := model.Camera{ID: "cam-2", SourceURL: "test", Location: "Yard"}

	errorStream := make(chan interface{}, 10)
	statsStream := make(chan interface{}, 1)
	alertStream := make(chan AlertData, 10)

	w := newWorker(svcs, camera, stubFactory(source, nil), errorStream, statsStream, alertStream)
	w.run(context.Background())

	assert.Empty(t, alertStream)

	stats := (<-statsStream).(model.WorkerStats)
	assert.Equal(t, 6, stats.Frames)
	assert.Zero(t, stats.Fires)
}

func TestWorkerOpenFailureClosesImmediately(t *testing.T) {
	svcs := testServices(t, nil)
	camera := model.Camera{ID: "cam-3", SourceURL: "no-such-device", Location: "Roof"}

	errorStream := make(chan interface{}, 10)
	statsStream := make(chan interface{}, 1)
	alertStream := make(chan AlertData, 10)

	w := newWorker(svcs, camera, stubFactory(nil, ErrSourceUnavailable), errorStream, statsStream, alertStream)

	done := make(chan struct{})
	go func() {
		w.run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not close after open failure")
	}

	require.Len(t, errorStream, 1)
	custom := (<-errorStream).(model.CustomError)
	assert.Equal(t, "stream_worker", custom.Processor)
	assert.Empty(t, alertStream)
}

func TestWorkerObservesStop(t *testing.T) {
	svcs := testServices(t, nil)
	source := &stubSource{frames: -1}
	camera := model.Camera{ID: "cam-4", SourceURL: "test", Location: "Gate"}

	errorStream := make(chan interface{}, 10)
	statsStream := make(chan interface{}, 1)
	alertStream := make(chan AlertData, 10)

	canxCtx, canxFn := context.WithCancel(context.Background())

	done := make(chan struct{})
	w := newWorker(svcs, camera, stubFactory(source, nil), errorStream, statsStream, alertStream)
	go func() {
		w.run(canxCtx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	canxFn()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not observe stop")
	}

	assert.True(t, source.isClosed())
}

func TestWorkerDropsAlertsWhenStreamFull(t *testing.T) {
	svcs := testServices(t, map[int][]model.Detection{
		2: {det(0, 0.9)},
		4: {det(0, 0.95)},
	})

	source := &stubSource{frames: 8}
	camera := model.Camera{ID: "cam-5", SourceURL: "test", Location: "Gate"}

	errorStream := make(chan interface{}, 10)
	statsStream := make(chan interface{}, 1)
	// Nobody drains this one-slot channel: the second alert must be
	// dropped, never block the capture loop
	alertStream := make(chan AlertData, 1)

	w := newWorker(svcs, camera, stubFactory(source, nil), errorStream, statsStream, alertStream)
	w.run(context.Background())

	stats := (<-statsStream).(model.WorkerStats)
	assert.Equal(t, 8, stats.Frames)
	assert.Equal(t, 2, stats.Fires)
	assert.Len(t, alertStream, 1)
}
