package model

import (
	"fmt"
	"image"
	"runtime/debug"
	"time"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	return fmt.Sprintf("%s: %s", e.Processor, e.Message)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// Camera is the static identity of one stream. SourceURL is whatever
// gocv.OpenVideoCapture accepts: a device index ("0") or a file/RTSP path.
// Coordinates are optional; a camera without them produces fires with null
// latitude/longitude.
type Camera struct {
	ID        string   `json:"id"`
	SourceURL string   `json:"sourceUrl"`
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Detection is one raw model output for one frame.
type Detection struct {
	ClassID    int             `json:"classId"`
	Confidence float32         `json:"confidence"`
	Rect       image.Rectangle `json:"rect"`
}

// Fire is the durable record produced when the detection policy triggers.
// Never mutated after creation; reporter and notifier receive copies.
type Fire struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Location    string    `json:"location"`
	Time        time.Time `json:"time"`
	Description string    `json:"description"`
	Confidence  float32   `json:"conf"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	ImagePath   string    `json:"image"`
}

type WorkerStats struct {
	ID         string  `json:"id"`
	Camera     string  `json:"camera"`
	Frames     int     `json:"frames"`
	Fires      int     `json:"fires"`
	Errors     int     `json:"errors"`
	FPS        int     `json:"fps"`
	Uptime     int64   `json:"uptime"`
	AvgInfTime float64 `json:"avgInfTime"`
	Timestamp  int64   `json:"timestamp"`
}

type DeliveryStats struct {
	Name       string `json:"name"`
	Deliveries int    `json:"deliveries"`
	Errors     int    `json:"errors"`
	Uptime     int64  `json:"uptime"`
	Timestamp  int64  `json:"timestamp"`
}
