package detect

import (
	"gocv.io/x/gocv"

	"github.com/tandau/firewatch-go/model"
)

// Session runs inference for one stream worker. gocv networks are not
// thread-safe, so every worker owns its own session and closes it on drain.
type Session interface {
	Infer(img gocv.Mat) ([]model.Detection, error)
	Close()
}

type IService interface {
	NewSession() (Session, error)
}
