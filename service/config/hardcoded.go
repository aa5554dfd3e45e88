package config

import "time"

// HardCoded carries fixed values. Production uses the viper service; this one
// exists for tests and quick experiments where a config file is overkill.
type HardCoded struct {
	CamerasInputFile    string
	StorageFolder       string
	MediaFolder         string
	DBPath              string
	APIPort             int
	ModelPath           string
	ConfidenceThreshold float32
	TargetClassID       int
	SiteAPIURL          string
	TelegramAPIBaseURL  string
	TelegramBotToken    string
	TelegramChatID      string
	DeliveryTimeout     time.Duration
	DeliveryMaxAttempts int
	DeliveryBackoff     time.Duration
	AlertBufferSize     int
	PreviewEnabled      bool
	PreviewPort         int
	MaxShutdownTime     int
}

func NewHardCoded() *HardCoded {
	return &HardCoded{
		CamerasInputFile:    "./settings/cameras.json",
		StorageFolder:       "./fire_detections",
		MediaFolder:         "./media/fire_photos",
		DBPath:              "./firewatch.db",
		APIPort:             9999,
		ModelPath:           "./yolo/fire_v2.1.onnx",
		ConfidenceThreshold: 0.8,
		TargetClassID:       0,
		SiteAPIURL:          "http://localhost:9999/api/fire/",
		TelegramAPIBaseURL:  "https://api.telegram.org",
		DeliveryTimeout:     10 * time.Second,
		DeliveryMaxAttempts: 3,
		DeliveryBackoff:     2 * time.Second,
		AlertBufferSize:     100,
		PreviewPort:         8088,
		MaxShutdownTime:     5,
	}
}

func (svc *HardCoded) GetModeMaxShutdownTime() int          { return svc.MaxShutdownTime }
func (svc *HardCoded) GetCamerasInputFile() string          { return svc.CamerasInputFile }
func (svc *HardCoded) GetStorageFolder() string             { return svc.StorageFolder }
func (svc *HardCoded) GetMediaFolder() string               { return svc.MediaFolder }
func (svc *HardCoded) GetDBPath() string                    { return svc.DBPath }
func (svc *HardCoded) GetAPIPort() int                      { return svc.APIPort }
func (svc *HardCoded) GetModelPath() string                 { return svc.ModelPath }
func (svc *HardCoded) GetConfidenceThreshold() float32      { return svc.ConfidenceThreshold }
func (svc *HardCoded) GetTargetClassID() int                { return svc.TargetClassID }
func (svc *HardCoded) GetSiteAPIURL() string                { return svc.SiteAPIURL }
func (svc *HardCoded) GetTelegramAPIBaseURL() string        { return svc.TelegramAPIBaseURL }
func (svc *HardCoded) GetTelegramBotToken() string          { return svc.TelegramBotToken }
func (svc *HardCoded) GetTelegramChatID() string            { return svc.TelegramChatID }
func (svc *HardCoded) GetDeliveryTimeout() time.Duration    { return svc.DeliveryTimeout }
func (svc *HardCoded) GetDeliveryMaxAttempts() int          { return svc.DeliveryMaxAttempts }
func (svc *HardCoded) GetDeliveryBackoff() time.Duration    { return svc.DeliveryBackoff }
func (svc *HardCoded) GetAlertBufferSize() int              { return svc.AlertBufferSize }
func (svc *HardCoded) IsPreviewEnabled() bool               { return svc.PreviewEnabled }
func (svc *HardCoded) GetPreviewPort() int                  { return svc.PreviewPort }
