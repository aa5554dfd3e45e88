package detect

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/tandau/firewatch-go/model"
)

type fakeService struct {
	Script map[int][]model.Detection
	Err    error
}

// NewFake scripts detections per frame index (0-based, counted per session).
// Frames without a script entry produce no detections.
func NewFake(script map[int][]model.Detection) IService {
	return &fakeService{Script: script}
}

func NewFailingFake(err error) IService {
	return &fakeService{Err: err}
}

func (svc *fakeService) NewSession() (Session, error) {
	if svc.Err != nil {
		return nil, svc.Err
	}
	return &fakeSession{script: svc.Script}, nil
}

type fakeSession struct {
	mu     sync.Mutex
	script map[int][]model.Detection
	frames int
}

func (s *fakeSession) Infer(_ gocv.Mat) ([]model.Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dets := s.script[s.frames]
	s.frames++
	return dets, nil
}

func (s *fakeSession) Close() {}
