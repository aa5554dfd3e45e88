package preview

import (
	"gocv.io/x/gocv"

	"github.com/tandau/firewatch-go/model"
)

// IService is the optional per-frame observer. Publish must return without
// blocking regardless of how many viewers are connected or how slow they are;
// dropped frames are the expected cost.
type IService interface {
	Publish(camera model.Camera, frame gocv.Mat)
	Finalize()
}
