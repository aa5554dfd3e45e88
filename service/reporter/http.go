package reporter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/xerrors"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/service/config"
)

type httpService struct {
	CfgSvc config.IService
	Client *http.Client
}

func NewHTTP(cfgSvc config.IService) IService {
	return &httpService{
		CfgSvc: cfgSvc,
		Client: &http.Client{Timeout: cfgSvc.GetDeliveryTimeout()},
	}
}

// Send posts the fire as a multipart form to the site API. The site answers
// 201 on success; any other status or a transport failure counts as a
// delivery error. Attempts are bounded with a fixed backoff so a transient
// blip does not drop a fire, while a dead endpoint cannot hold goroutines
// hostage.
func (svc *httpService) Send(ctx context.Context, fire model.Fire) error {
	attempts := svc.CfgSvc.GetDeliveryMaxAttempts()
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return xerrors.Errorf("delivery cancelled after %d attempts: %w", attempt-1, ctx.Err())
			case <-time.After(svc.CfgSvc.GetDeliveryBackoff()):
			}
		}

		lastErr = svc.post(ctx, fire)
		if lastErr == nil {
			return nil
		}
	}

	return xerrors.Errorf("delivering fire at %s after %d attempts: %w", fire.Location, attempts, lastErr)
}

func (svc *httpService) post(ctx context.Context, fire model.Fire) error {
	img, err := os.Open(fire.ImagePath)
	if err != nil {
		return xerrors.Errorf("opening fire image %s: %w", fire.ImagePath, err)
	}
	defer img.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	fields := map[string]string{
		"location":    fire.Location,
		"time":        fire.Time.Format(time.RFC3339),
		"description": fire.Description,
		"conf":        fmt.Sprintf("%.6f", fire.Confidence),
	}
	if fire.Latitude != nil && fire.Longitude != nil {
		fields["latitude"] = fmt.Sprintf("%f", *fire.Latitude)
		fields["longitude"] = fmt.Sprintf("%f", *fire.Longitude)
	}

	for key, value := range fields {
		if err := form.WriteField(key, value); err != nil {
			return xerrors.Errorf("writing form field %s: %w", key, err)
		}
	}

	part, err := form.CreateFormFile("image", filepath.Base(fire.ImagePath))
	if err != nil {
		return xerrors.Errorf("creating image form part: %w", err)
	}
	if _, err := io.Copy(part, img); err != nil {
		return xerrors.Errorf("copying image bytes: %w", err)
	}
	if err := form.Close(); err != nil {
		return xerrors.Errorf("closing multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.CfgSvc.GetSiteAPIURL(), &body)
	if err != nil {
		return xerrors.Errorf("building site request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := svc.Client.Do(req)
	if err != nil {
		return xerrors.Errorf("posting to site: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return xerrors.Errorf("site rejected fire: status %d: %s", resp.StatusCode, string(payload))
	}

	return nil
}
