package notifier

import (
	"context"
	"sync"
)

type FakeService struct {
	mu       sync.Mutex
	Err      error
	Captions []string
}

func NewFake() *FakeService {
	return &FakeService{}
}

func (svc *FakeService) Notify(_ context.Context, _ string, caption string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.Err != nil {
		return svc.Err
	}
	svc.Captions = append(svc.Captions, caption)
	return nil
}

func (svc *FakeService) Notified() []string {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	out := make([]string, len(svc.Captions))
	copy(out, svc.Captions)
	return out
}
