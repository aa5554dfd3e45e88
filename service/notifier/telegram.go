package notifier

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

	"github.com/tandau/firewatch-go/service/config"
)

type telegramService struct {
	CfgSvc config.IService
	Client *http.Client
}

func NewTelegram(cfgSvc config.IService) IService {
	return &telegramService{
		CfgSvc: cfgSvc,
		Client: &http.Client{Timeout: cfgSvc.GetDeliveryTimeout()},
	}
}

// Notify posts the photo through the bot sendPhoto endpoint. Telegram answers
// 200 on success. Same bounded retry scheme as the site reporter.
func (svc *telegramService) Notify(ctx context.Context, imagePath, caption string) error {
	attempts := svc.CfgSvc.GetDeliveryMaxAttempts()
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return xerrors.Errorf("notification cancelled after %d attempts: %w", attempt-1, ctx.Err())
			case <-time.After(svc.CfgSvc.GetDeliveryBackoff()):
			}
		}

		lastErr = svc.sendPhoto(ctx, imagePath, caption)
		if lastErr == nil {
			return nil
		}
	}

	return xerrors.Errorf("notifying alert channel after %d attempts: %w", attempts, lastErr)
}

func (svc *telegramService) sendPhoto(ctx context.Context, imagePath, caption string) error {
	photo, err := os.Open(imagePath)
	if err != nil {
		return xerrors.Errorf("opening alert photo %s: %w", imagePath, err)
	}
	defer photo.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	if err := form.WriteField("chat_id", svc.CfgSvc.GetTelegramChatID()); err != nil {
		return xerrors.Errorf("writing chat_id field: %w", err)
	}
	if err := form.WriteField("caption", caption); err != nil {
		return xerrors.Errorf("writing caption field: %w", err)
	}

	part, err := form.CreateFormFile("photo", filepath.Base(imagePath))
	if err != nil {
		return xerrors.Errorf("creating photo form part: %w", err)
	}
	if _, err := io.Copy(part, photo); err != nil {
		return xerrors.Errorf("copying photo bytes: %w", err)
	}
	if err := form.Close(); err != nil {
		return xerrors.Errorf("closing multipart form: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendPhoto", svc.CfgSvc.GetTelegramAPIBaseURL(), svc.CfgSvc.GetTelegramBotToken())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return xerrors.Errorf("building telegram request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := svc.Client.Do(req)
	if err != nil {
		return xerrors.Errorf("posting to telegram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return xerrors.Errorf("telegram rejected photo: status %d: %s", resp.StatusCode, string(payload))
	}

	return nil
}
