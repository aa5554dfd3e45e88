package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/service/notifier"
	"github.com/tandau/firewatch-go/service/reporter"
)

func coordinatorServices(t *testing.T) ServicesFactory {
	t.Helper()

	svcs := testServices(t, nil)
	svcs.ReporterSvc = reporter.NewFake()
	svcs.NotifierSvc = notifier.NewFake()
	return svcs
}

func TestCoordinatorBadSourceDoesNotSinkSiblings(t *testing.T) {
	svcs := coordinatorServices(t)

	good := &stubSource{frames: 5}
	sources := map[string]frameSource{"good": good}

	c := NewCoordinator(svcs)
	c.openSource = func(sourceURL string) (frameSource, error) {
		source, ok := sources[sourceURL]
		if !ok {
			return nil, ErrSourceUnavailable
		}
		return source, nil
	}

	cameras := []model.Camera{
		{ID: "cam-bad", SourceURL: "missing", Location: "Roof"},
		{ID: "cam-good", SourceURL: "good", Location: "Gate"},
	}

	errorStream := make(chan interface{}, 10)
	statsStream := make(chan interface{}, 10)

	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background(), cameras, errorStream, statsStream)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("coordinator did not complete")
	}

	// The healthy stream ran to its end despite the dead sibling
	assert.True(t, good.isClosed())
	require.NotEmpty(t, errorStream)
	custom := (<-errorStream).(model.CustomError)
	assert.Equal(t, "stream_worker", custom.Processor)
}

func TestCoordinatorRequestStopReleasesAllSources(t *testing.T) {
	svcs := coordinatorServices(t)

	first := &stubSource{frames: -1}
	second := &stubSource{frames: -1}
	var mu sync.Mutex
	remaining := []frameSource{first, second}

	c := NewCoordinator(svcs)
	c.openSource = func(_ string) (frameSource, error) {
		mu.Lock()
		defer mu.Unlock()
		source := remaining[0]
		remaining = remaining[1:]
		return source, nil
	}

	cameras := []model.Camera{
		{ID: "cam-1", SourceURL: "a", Location: "Gate"},
		{ID: "cam-2", SourceURL: "b", Location: "Gate"},
	}

	errorStream := make(chan interface{}, 10)
	statsStream := make(chan interface{}, 10)

	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background(), cameras, errorStream, statsStream)
	}()

	time.Sleep(100 * time.Millisecond)
	c.RequestStop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("coordinator did not stop")
	}

	assert.True(t, first.isClosed())
	assert.True(t, second.isClosed())
}
