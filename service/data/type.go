package data

import "github.com/tandau/firewatch-go/model"

type IService interface {
	// RetrieveCameras loads the stream roster once at startup. A camera with
	// an empty location or source is a configuration error.
	RetrieveCameras() ([]model.Camera, error)

	NewFire(fire *model.Fire) error
	RetrieveFires() ([]model.Fire, error)
	RetrieveMapFires() ([]model.Fire, error)

	NewWorkerStats(stats model.WorkerStats) error
	NewDeliveryStats(stats model.DeliveryStats) error
	NewError(err interface{}) error

	Finalize()
}
