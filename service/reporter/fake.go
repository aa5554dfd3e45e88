package reporter

import (
	"context"
	"sync"

	"github.com/tandau/firewatch-go/model"
)

type FakeService struct {
	mu    sync.Mutex
	Err   error
	Fires []model.Fire
}

func NewFake() *FakeService {
	return &FakeService{}
}

func (svc *FakeService) Send(_ context.Context, fire model.Fire) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.Err != nil {
		return svc.Err
	}
	svc.Fires = append(svc.Fires, fire)
	return nil
}

func (svc *FakeService) Sent() []model.Fire {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	out := make([]model.Fire, len(svc.Fires))
	copy(out, svc.Fires)
	return out
}
