package pipeline

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/service/config"
)

// Rolling log of every positive decision, delivery outcome aside. Lets an
// operator reconcile what was detected against what actually arrived.
var detectionsLogger = &lumberjack.Logger{
	Filename:   "detections.log",
	MaxSize:    10, // MB
	MaxBackups: 5,
	MaxAge:     7,    // days
	Compress:   true, // compress old logs
}

var overlayColor = color.RGBA{0, 0, 255, 0}

// recorder turns a triggering frame into a durable fire record: annotated
// copy rendered, image written under the storage folder, record built. The
// image always exists on disk before the record is handed to anyone.
type recorder struct {
	cfgSvc   config.IService
	camera   model.Camera
	workerID string
}

func newRecorder(cfgSvc config.IService, camera model.Camera, workerID string) *recorder {
	return &recorder{
		cfgSvc:   cfgSvc,
		camera:   camera,
		workerID: workerID,
	}
}

func (r *recorder) record(frame FrameData, detections []model.Detection, decision HazardDecision) (model.Fire, error) {
	annotated := frame.Mat.Clone()
	defer annotated.Close()

	for _, det := range detections {
		gocv.Rectangle(&annotated, det.Rect, overlayColor, 2)
		gocv.PutText(&annotated, fmt.Sprintf("fire %.2f", det.Confidence),
			image.Pt(det.Rect.Min.X, det.Rect.Min.Y-5),
			gocv.FontHersheySimplex, 0.6, overlayColor, 2)
	}

	folder := r.cfgSvc.GetStorageFolder()
	if err := os.MkdirAll(folder, 0755); err != nil {
		return model.Fire{}, xerrors.Errorf("creating storage folder %s: %w", folder, err)
	}

	// The worker-ID suffix keeps two streams with the same location name
	// from ever colliding on a frame index.
	filename := filepath.Join(folder, fmt.Sprintf("%s_fire_%d_%s.jpg",
		sanitizeLocation(r.camera.Location), frame.Index, shortID(r.workerID)))

	if ok := gocv.IMWrite(filename, annotated); !ok {
		return model.Fire{}, xerrors.Errorf("writing annotated frame %s", filename)
	}

	fire := model.Fire{
		Location:    r.camera.Location,
		Time:        time.Now(),
		Description: fmt.Sprintf("Automatic fire detection at %s", r.camera.Location),
		Confidence:  decision.Confidence,
		Latitude:    r.camera.Latitude,
		Longitude:   r.camera.Longitude,
		ImagePath:   filename,
	}

	logDetections(r.camera.Location, frame.Index, detections, decision)

	return fire, nil
}

func sanitizeLocation(location string) string {
	return strings.ReplaceAll(location, " ", "_")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func logDetections(location string, frameIndex int, detections []model.Detection, decision HazardDecision) {
	entry := map[string]interface{}{
		"time":       time.Now().Format(time.RFC3339),
		"camera":     location,
		"frame":      frameIndex,
		"confidence": decision.Confidence,
		"detections": detections,
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		fmt.Println("Error marshaling detections:", err)
		return
	}

	if _, err := detectionsLogger.Write(append(jsonData, '\n')); err != nil {
		fmt.Println("Error writing to detection log file:", err)
	}
}
