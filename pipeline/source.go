package pipeline

import (
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"
)

// ErrSourceUnavailable means the capture device or file could not be opened.
// Fatal to that stream only; the worker goes straight to Closed.
var ErrSourceUnavailable = xerrors.New("capture source unavailable")

// frameSource produces the ordered frame sequence of one stream.
type frameSource interface {
	// Read fills the next frame. ok is false at end-of-stream, which
	// includes a single failed read: retrying a dead device busy-loops,
	// so capture simply stops.
	Read() (gocv.Mat, bool)
	Close()
}

// sourceFactory lets tests substitute scripted sources for real devices.
type sourceFactory func(sourceURL string) (frameSource, error)

type gocvSource struct {
	capture *gocv.VideoCapture
}

// openGocvSource opens a device index ("0"), a file path or an RTSP URL.
func openGocvSource(sourceURL string) (frameSource, error) {
	capture, err := gocv.OpenVideoCapture(sourceURL)
	if err != nil {
		return nil, xerrors.Errorf("opening %s: %w", sourceURL, ErrSourceUnavailable)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, xerrors.Errorf("opening %s: %w", sourceURL, ErrSourceUnavailable)
	}

	return &gocvSource{capture: capture}, nil
}

func (s *gocvSource) Read() (gocv.Mat, bool) {
	img := gocv.NewMat()
	if ok := s.capture.Read(&img); !ok || img.Empty() {
		img.Close()
		return gocv.Mat{}, false
	}
	return img, true
}

func (s *gocvSource) Close() {
	_ = s.capture.Close()
}
