package mode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/pipeline"
	"github.com/tandau/firewatch-go/service/lgr"
)

// Serve runs the fire site API: fire intake from detection deployments plus
// the listing and map feeds the frontend consumes.
func Serve(canxCtx context.Context, svcs pipeline.ServicesFactory) error {
	if err := os.MkdirAll(svcs.CfgSvc.GetMediaFolder(), 0755); err != nil {
		return err
	}

	e := newRouter(svcs)

	go func() {
		<-canxCtx.Done()
		lgr.Logger.Info(
			"serve mode context cancelled",
		)
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime())*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			lgr.Logger.Error(
				"serve mode shutdown failed",
				slog.Any("error", err),
			)
		}
	}()

	addr := fmt.Sprintf(":%d", svcs.CfgSvc.GetAPIPort())
	lgr.Logger.Info(
		"fire site API starting",
		slog.String("addr", addr),
	)

	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func newRouter(svcs pipeline.ServicesFactory) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	api := &fireAPI{svcs: svcs}
	e.POST("/api/fire/", api.receiveFire)
	e.GET("/api/fires/", api.listFires)
	e.GET("/api/fires/map/", api.mapFires)
	e.Static("/media/fire_photos", svcs.CfgSvc.GetMediaFolder())

	return e
}

type fireAPI struct {
	svcs pipeline.ServicesFactory
}

func (api *fireAPI) receiveFire(c echo.Context) error {
	location := c.FormValue("location")
	if location == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"location": "this field is required"})
	}

	when, err := time.Parse(time.RFC3339, c.FormValue("time"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"time": "expected an ISO-8601 timestamp"})
	}

	fire := model.Fire{
		Location:    location,
		Time:        when,
		Description: c.FormValue("description"),
	}

	if conf := c.FormValue("conf"); conf != "" {
		parsed, err := strconv.ParseFloat(conf, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"conf": "expected a float"})
		}
		fire.Confidence = float32(parsed)
	}

	lat, latErr := parseOptionalFloat(c.FormValue("latitude"))
	lon, lonErr := parseOptionalFloat(c.FormValue("longitude"))
	if latErr != nil || lonErr != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"coordinates": "expected floats"})
	}
	fire.Latitude = lat
	fire.Longitude = lon

	if upload, err := c.FormFile("image"); err == nil {
		stored, err := api.storeImage(upload)
		if err != nil {
			lgr.Logger.Error(
				"failed to store uploaded fire image",
				slog.Any("error", err),
			)
			return c.JSON(http.StatusInternalServerError, map[string]string{"image": "could not be stored"})
		}
		fire.ImagePath = stored
	}

	if err := api.svcs.DataSvc.NewFire(&fire); err != nil {
		lgr.Logger.Error(
			"failed to persist fire",
			slog.Any("error", err),
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "could not persist fire"})
	}

	return c.JSON(http.StatusCreated, fire)
}

func (api *fireAPI) listFires(c echo.Context) error {
	fires, err := api.svcs.DataSvc.RetrieveFires()
	if err != nil {
		lgr.Logger.Error(
			"failed to retrieve fires",
			slog.Any("error", err),
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "could not retrieve fires"})
	}

	return c.JSON(http.StatusOK, fires)
}

func (api *fireAPI) mapFires(c echo.Context) error {
	fires, err := api.svcs.DataSvc.RetrieveMapFires()
	if err != nil {
		lgr.Logger.Error(
			"failed to retrieve map fires",
			slog.Any("error", err),
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "could not retrieve fires"})
	}

	out := make([]map[string]interface{}, 0, len(fires))
	for _, fire := range fires {
		imageURL := ""
		if fire.ImagePath != "" {
			imageURL = "/media/fire_photos/" + filepath.Base(fire.ImagePath)
		}
		out = append(out, map[string]interface{}{
			"location":  fire.Location,
			"time":      fire.Time.Format("2006-01-02 15:04:05"),
			"latitude":  fire.Latitude,
			"longitude": fire.Longitude,
			"image_url": imageURL,
		})
	}

	return c.JSON(http.StatusOK, out)
}

func parseOptionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func (api *fireAPI) storeImage(upload *multipart.FileHeader) (string, error) {
	src, err := upload.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := fmt.Sprintf("%s_%s", uuid.NewString()[:8], filepath.Base(upload.Filename))
	target := filepath.Join(api.svcs.CfgSvc.GetMediaFolder(), name)

	dst, err := os.Create(target)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	return target, nil
}
