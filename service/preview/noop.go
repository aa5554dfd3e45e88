package preview

import (
	"gocv.io/x/gocv"

	"github.com/tandau/firewatch-go/model"
)

type noopService struct{}

func NewNoop() IService {
	return &noopService{}
}

func (svc *noopService) Publish(_ model.Camera, _ gocv.Mat) {}

func (svc *noopService) Finalize() {}
