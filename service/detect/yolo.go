package detect

import (
	"image"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/service/config"
)

const (
	inputSize = 640
	// Rows below this objectness score are noise and never reach the policy.
	objectnessFloor = float32(0.25)
)

type yoloService struct {
	CfgSvc config.IService
}

func NewYolo(cfgSvc config.IService) (IService, error) {
	modelPath := cfgSvc.GetModelPath()
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, xerrors.Errorf("no model exists at %s", modelPath)
	}

	return &yoloService{CfgSvc: cfgSvc}, nil
}

func (svc *yoloService) NewSession() (Session, error) {
	net := gocv.ReadNet(svc.CfgSvc.GetModelPath(), "")
	if net.Empty() {
		return nil, xerrors.Errorf("error reading model %s", svc.CfgSvc.GetModelPath())
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, xerrors.Errorf("error setting backend: %w", err)
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, xerrors.Errorf("error setting target: %w", err)
	}

	return &yoloSession{net: net}, nil
}

type yoloSession struct {
	net gocv.Net
}

func (s *yoloSession) Infer(img gocv.Mat) ([]model.Detection, error) {
	if img.Empty() {
		return nil, xerrors.New("empty frame")
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(inputSize, inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")

	output := s.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 {
		return nil, xerrors.Errorf("unexpected DNN output dims: %v", dims)
	}

	reshaped := output.Reshape(1, dims[1])
	if reshaped.Empty() || reshaped.Rows() == 0 || reshaped.Cols() < 5 {
		reshaped.Close()
		return nil, xerrors.New("reshape failed or invalid dimensions")
	}
	defer reshaped.Close()

	var detections []model.Detection
	for i := 0; i < reshaped.Rows(); i++ {
		row := reshaped.RowRange(i, i+1)
		data, err := row.DataPtrFloat32()
		row.Close()

		if err != nil || data == nil || len(data) < 5 {
			continue
		}

		if det, ok := extractDetection(img, data); ok {
			detections = append(detections, det)
		}
	}

	return detections, nil
}

func (s *yoloSession) Close() {
	s.net.Close()
}

// extractDetection converts one output row [cx cy w h objectness scores...]
// into a detection with the row's best class. The policy decides downstream
// whether the class and confidence are worth a fire record.
func extractDetection(frame gocv.Mat, data []float32) (model.Detection, bool) {
	objectness := data[4]
	if objectness < objectnessFloor {
		return model.Detection{}, false
	}

	classScores := data[5:]
	classID := -1
	classConfidence := float32(0.0)
	for j, score := range classScores {
		if score > classConfidence {
			classConfidence = score
			classID = j
		}
	}

	if classID == -1 {
		return model.Detection{}, false
	}

	cx := data[0] * float32(frame.Cols())
	cy := data[1] * float32(frame.Rows())
	w := data[2] * float32(frame.Cols())
	h := data[3] * float32(frame.Rows())
	x := int(cx - w/2)
	y := int(cy - h/2)

	return model.Detection{
		ClassID:    classID,
		Confidence: objectness * classConfidence,
		Rect:       image.Rect(x, y, x+int(w), y+int(h)),
	}, true
}
