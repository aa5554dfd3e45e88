package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/xerrors"
)

type viperService struct {
	v *viper.Viper
}

// NewViper builds the config service. An empty configFile runs on defaults;
// a named file must exist and parse. Every key can be overridden through
// FIREWATCH_* environment variables, e.g. FIREWATCH_DETECT_THRESHOLD=0.65.
func NewViper(configFile string) (IService, error) {
	v := viper.New()

	v.SetDefault("mode.maxShutdownTime", 5)
	v.SetDefault("cameras.inputFile", "./settings/cameras.json")
	v.SetDefault("storage.folder", "./fire_detections")
	v.SetDefault("media.folder", "./media/fire_photos")
	v.SetDefault("db.path", "./firewatch.db")
	v.SetDefault("api.port", 9999)

	v.SetDefault("detect.modelPath", "./yolo/fire_v2.1.onnx")
	v.SetDefault("detect.threshold", 0.8)
	v.SetDefault("detect.targetClassId", 0)

	v.SetDefault("site.apiUrl", "http://localhost:9999/api/fire/")
	v.SetDefault("telegram.apiBaseUrl", "https://api.telegram.org")
	v.SetDefault("telegram.botToken", "")
	v.SetDefault("telegram.chatId", "")

	v.SetDefault("delivery.timeout", "10s")
	v.SetDefault("delivery.maxAttempts", 3)
	v.SetDefault("delivery.backoff", "2s")
	v.SetDefault("alert.bufferSize", 100)

	v.SetDefault("preview.enabled", false)
	v.SetDefault("preview.port", 8088)

	v.SetEnvPrefix("FIREWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, xerrors.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	return &viperService{v: v}, nil
}

func (svc *viperService) GetModeMaxShutdownTime() int {
	return svc.v.GetInt("mode.maxShutdownTime")
}

func (svc *viperService) GetCamerasInputFile() string {
	return svc.v.GetString("cameras.inputFile")
}

func (svc *viperService) GetStorageFolder() string {
	return svc.v.GetString("storage.folder")
}

func (svc *viperService) GetMediaFolder() string {
	return svc.v.GetString("media.folder")
}

func (svc *viperService) GetDBPath() string {
	return svc.v.GetString("db.path")
}

func (svc *viperService) GetAPIPort() int {
	return svc.v.GetInt("api.port")
}

func (svc *viperService) GetModelPath() string {
	return svc.v.GetString("detect.modelPath")
}

func (svc *viperService) GetConfidenceThreshold() float32 {
	return float32(svc.v.GetFloat64("detect.threshold"))
}

func (svc *viperService) GetTargetClassID() int {
	return svc.v.GetInt("detect.targetClassId")
}

func (svc *viperService) GetSiteAPIURL() string {
	return svc.v.GetString("site.apiUrl")
}

func (svc *viperService) GetTelegramAPIBaseURL() string {
	return svc.v.GetString("telegram.apiBaseUrl")
}

func (svc *viperService) GetTelegramBotToken() string {
	return svc.v.GetString("telegram.botToken")
}

func (svc *viperService) GetTelegramChatID() string {
	return svc.v.GetString("telegram.chatId")
}

func (svc *viperService) GetDeliveryTimeout() time.Duration {
	return svc.v.GetDuration("delivery.timeout")
}

func (svc *viperService) GetDeliveryMaxAttempts() int {
	return svc.v.GetInt("delivery.maxAttempts")
}

func (svc *viperService) GetDeliveryBackoff() time.Duration {
	return svc.v.GetDuration("delivery.backoff")
}

func (svc *viperService) GetAlertBufferSize() int {
	return svc.v.GetInt("alert.bufferSize")
}

func (svc *viperService) IsPreviewEnabled() bool {
	return svc.v.GetBool("preview.enabled")
}

func (svc *viperService) GetPreviewPort() int {
	return svc.v.GetInt("preview.port")
}
