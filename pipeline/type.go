package pipeline

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/service/config"
	"github.com/tandau/firewatch-go/service/data"
	"github.com/tandau/firewatch-go/service/detect"
	"github.com/tandau/firewatch-go/service/notifier"
	"github.com/tandau/firewatch-go/service/preview"
	"github.com/tandau/firewatch-go/service/reporter"
)

// FrameData is one decoded frame. Index is monotonic within its stream.
// The worker that read the frame owns the Mat and closes it at the end of
// the iteration; anything that outlives the iteration works on a clone.
type FrameData struct {
	Mat       gocv.Mat
	Index     int
	Timestamp time.Time
}

// AlertData is the unit handed from a worker to the alerter once a fire has
// been recorded. The fire is complete and its image is already on disk.
type AlertData struct {
	Fire   model.Fire
	Camera model.Camera
}

// HazardDecision is the outcome of evaluating one frame's detections.
type HazardDecision struct {
	Triggered  bool
	Confidence float32
}

type ServicesFactory struct {
	CfgSvc      config.IService
	DataSvc     data.IService
	DetectSvc   detect.IService
	ReporterSvc reporter.IService
	NotifierSvc notifier.IService
	PreviewSvc  preview.IService
}
