package mode

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/pipeline"
	"github.com/tandau/firewatch-go/service/config"
	"github.com/tandau/firewatch-go/service/data"
)

func testRouter(t *testing.T) (*echo.Echo, pipeline.ServicesFactory) {
	t.Helper()

	dir := t.TempDir()
	cfgSvc := config.NewHardCoded()
	cfgSvc.DBPath = filepath.Join(dir, "test.db")
	cfgSvc.MediaFolder = filepath.Join(dir, "media")
	cfgSvc.CamerasInputFile = filepath.Join(dir, "cameras.json")
	require.NoError(t, os.MkdirAll(cfgSvc.MediaFolder, 0755))

	dataSvc, err := data.NewGorm(cfgSvc)
	require.NoError(t, err)
	t.Cleanup(dataSvc.Finalize)

	svcs := pipeline.ServicesFactory{
		CfgSvc:  cfgSvc,
		DataSvc: dataSvc,
	}

	return newRouter(svcs), svcs
}

func fireForm(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, form.WriteField(key, value))
	}
	if withImage {
		part, err := form.CreateFormFile("image", "frame.jpg")
		require.NoError(t, err)
		_, err = io.WriteString(part, "jpeg-bytes")
		require.NoError(t, err)
	}
	require.NoError(t, form.Close())

	return &body, form.FormDataContentType()
}

func TestReceiveFireCreatesRecord(t *testing.T) {
	e, svcs := testRouter(t)

	body, contentType := fireForm(t, map[string]string{
		"location":    "North Tower",
		"time":        "2025-06-01T12:30:00Z",
		"description": "Automatic fire detection at North Tower",
		"latitude":    "53.279068",
		"longitude":   "69.3852623",
		"conf":        "0.91",
	}, true)

	req := httptest.NewRequest(http.MethodPost, "/api/fire/", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.Fire
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "North Tower", created.Location)
	assert.InDelta(t, 0.91, created.Confidence, 1e-6)
	require.NotNil(t, created.Latitude)
	assert.InDelta(t, 53.279068, *created.Latitude, 1e-9)
	assert.FileExists(t, created.ImagePath)

	fires, err := svcs.DataSvc.RetrieveFires()
	require.NoError(t, err)
	require.Len(t, fires, 1)
}

func TestReceiveFireValidation(t *testing.T) {
	e, _ := testRouter(t)

	tests := []struct {
		name   string
		fields map[string]string
	}{
		{
			name:   "missing location",
			fields: map[string]string{"time": "2025-06-01T12:30:00Z"},
		},
		{
			name:   "malformed time",
			fields: map[string]string{"location": "Gate", "time": "yesterday"},
		},
		{
			name:   "malformed coordinates",
			fields: map[string]string{"location": "Gate", "time": "2025-06-01T12:30:00Z", "latitude": "north"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := fireForm(t, tt.fields, false)

			req := httptest.NewRequest(http.MethodPost, "/api/fire/", body)
			req.Header.Set(echo.HeaderContentType, contentType)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListFiresNewestFirst(t *testing.T) {
	e, svcs := testRouter(t)

	older := model.Fire{Location: "Gate", Time: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	newer := model.Fire{Location: "Yard", Time: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	require.NoError(t, svcs.DataSvc.NewFire(&older))
	require.NoError(t, svcs.DataSvc.NewFire(&newer))

	req := httptest.NewRequest(http.MethodGet, "/api/fires/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var fires []model.Fire
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fires))
	require.Len(t, fires, 2)
	assert.Equal(t, "Yard", fires[0].Location)
}

func TestMapFiresShape(t *testing.T) {
	e, svcs := testRouter(t)

	lat, lon := 56.8389, 60.6057
	located := model.Fire{
		Location:  "Gate",
		Time:      time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC),
		Latitude:  &lat,
		Longitude: &lon,
		ImagePath: "/data/media/abc_frame.jpg",
	}
	unlocated := model.Fire{Location: "Yard", Time: time.Now()}
	require.NoError(t, svcs.DataSvc.NewFire(&located))
	require.NoError(t, svcs.DataSvc.NewFire(&unlocated))

	req := httptest.NewRequest(http.MethodGet, "/api/fires/map/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)

	assert.Equal(t, "Gate", entries[0]["location"])
	assert.Equal(t, "2025-06-01 12:30:45", entries[0]["time"])
	assert.Equal(t, "/media/fire_photos/abc_frame.jpg", entries[0]["image_url"])
	assert.InDelta(t, 56.8389, entries[0]["latitude"].(float64), 1e-9)
}
