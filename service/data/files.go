package data

import (
	"encoding/json"
	"os"

	"golang.org/x/xerrors"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/service/config"
)

func retrieveCamerasFromFile(cfgSvc config.IService) ([]model.Camera, error) {
	input := cfgSvc.GetCamerasInputFile()
	raw, err := os.ReadFile(input)
	if err != nil {
		return nil, xerrors.Errorf("reading cameras input file %s: %w", input, err)
	}

	cameras := []model.Camera{}
	if err := json.Unmarshal(raw, &cameras); err != nil {
		return nil, xerrors.Errorf("unmarshalling cameras input file %s: %w", input, err)
	}

	// A partially configured camera is a startup error, not a silent
	// per-event drop later on.
	for i, camera := range cameras {
		if camera.Location == "" {
			return nil, xerrors.Errorf("camera %d in %s has no location", i, input)
		}
		if camera.SourceURL == "" {
			return nil, xerrors.Errorf("camera %q in %s has no source", camera.Location, input)
		}
		if (camera.Latitude == nil) != (camera.Longitude == nil) {
			return nil, xerrors.Errorf("camera %q in %s has only one coordinate", camera.Location, input)
		}
	}

	return cameras, nil
}
