package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/service/detect"
	"github.com/tandau/firewatch-go/service/lgr"
)

// worker drives one stream: Opening -> Running -> Draining -> Closed.
// It owns its source, its inference session and its frame counter; nothing
// here is shared with sibling workers except the outbound channels.
type worker struct {
	id          string
	camera      model.Camera
	svcs        ServicesFactory
	openSource  sourceFactory
	errorStream chan interface{}
	statsStream chan interface{}
	alertStream chan AlertData
}

func newWorker(svcs ServicesFactory, camera model.Camera, openSource sourceFactory,
	errorStream, statsStream chan interface{}, alertStream chan AlertData) *worker {
	return &worker{
		id:          uuid.NewString(),
		camera:      camera,
		svcs:        svcs,
		openSource:  openSource,
		errorStream: errorStream,
		statsStream: statsStream,
		alertStream: alertStream,
	}
}

// run blocks until the worker reaches Closed. Errors never escape: a dead
// source or a failed frame ends this stream only, and the capture loop is
// never parked on network I/O.
func (w *worker) run(canxCtx context.Context) {
	lgr.Logger.Info(
		"stream worker opening",
		slog.String("workerID", w.id),
		slog.String("camera", w.camera.Location),
		slog.String("source", w.camera.SourceURL),
	)

	// Opening: device absence is permanent for this run, no retry
	source, err := w.openSource(w.camera.SourceURL)
	if err != nil {
		w.errorStream <- model.GenError("stream_worker",
			err,
			map[string]interface{}{"camera": w.camera.Location},
			"error opening capture source %s", w.camera.SourceURL)
		w.closed()
		return
	}

	session, err := w.svcs.DetectSvc.NewSession()
	if err != nil {
		source.Close()
		w.errorStream <- model.GenError("stream_worker",
			err,
			map[string]interface{}{"camera": w.camera.Location},
			"error creating inference session")
		w.closed()
		return
	}

	// Draining: release the device and the session on every exit path
	defer func() {
		source.Close()
		session.Close()
		w.closed()
	}()

	rec := newRecorder(w.svcs.CfgSvc, w.camera, w.id)
	threshold := w.svcs.CfgSvc.GetConfidenceThreshold()
	targetClassID := w.svcs.CfgSvc.GetTargetClassID()

	frames := 0
	fires := 0
	errors := 0
	beginTime := time.Now().Unix()
	var totalInferenceTime time.Duration

	defer func() {
		uptime := time.Now().Unix() - beginTime
		fps := 0
		if uptime > 0 {
			fps = int(float64(frames) / float64(uptime))
		}
		var avgInfTime float64
		if frames > 0 {
			avgInfTime = totalInferenceTime.Seconds() / float64(frames)
		}
		w.statsStream <- model.WorkerStats{
			ID:         w.id,
			Camera:     w.camera.Location,
			Frames:     frames,
			Fires:      fires,
			Errors:     errors,
			Uptime:     uptime,
			FPS:        fps,
			AvgInfTime: avgInfTime,
		}
	}()

	// Running: strict per-stream order, stop observed at the top of each
	// iteration (cooperative, a frame mid-inference finishes first)
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"stream worker context cancelled",
				slog.String("camera", w.camera.Location),
			)
			return
		default:
		}

		img, ok := source.Read()
		if !ok {
			// A single failed read is end-of-stream; retrying a dead
			// device busy-loops
			lgr.Logger.Info(
				"stream worker reached end of stream",
				slog.String("camera", w.camera.Location),
				slog.Int("frames", frames),
			)
			return
		}

		frame := FrameData{Mat: img, Index: frames, Timestamp: time.Now()}
		frames++

		w.processFrame(frame, session, rec, targetClassID, threshold, &fires, &errors, &totalInferenceTime)

		frame.Mat.Close()
	}
}

func (w *worker) processFrame(frame FrameData, session detect.Session,
	rec *recorder, targetClassID int, threshold float32, fires, errors *int, totalInferenceTime *time.Duration) {
	startInference := time.Now()
	detections, err := session.Infer(frame.Mat)
	*totalInferenceTime += time.Since(startInference)
	if err != nil {
		*errors++
		w.errorStream <- model.GenError("stream_worker",
			err,
			map[string]interface{}{"camera": w.camera.Location, "frame": frame.Index},
			"inference failed")
		return
	}

	w.svcs.PreviewSvc.Publish(w.camera, frame.Mat)

	decision := Evaluate(detections, targetClassID, threshold)
	if !decision.Triggered {
		return
	}

	fire, err := rec.record(frame, detections, decision)
	if err != nil {
		// Skip this frame's report and keep detecting; a failed save
		// must not halt a still-hazardous scene
		*errors++
		w.errorStream <- model.GenError("stream_worker",
			err,
			map[string]interface{}{"camera": w.camera.Location, "frame": frame.Index},
			"error persisting annotated frame")
		return
	}
	*fires++

	lgr.Logger.Info(
		"fire detected",
		slog.String("camera", w.camera.Location),
		slog.Int("frame", frame.Index),
		slog.Float64("confidence", float64(decision.Confidence)),
		slog.String("image", fire.ImagePath),
	)

	select {
	case w.alertStream <- AlertData{Fire: fire, Camera: w.camera}:
	default:
		lgr.Logger.Warn("alertStream full, dropping alert",
			slog.String("camera", w.camera.Location),
		)
	}
}

func (w *worker) closed() {
	lgr.Logger.Info(
		"stream worker closed",
		slog.String("workerID", w.id),
		slog.String("camera", w.camera.Location),
	)
}
