package config

import "time"

type IService interface {
	GetModeMaxShutdownTime() int
	GetCamerasInputFile() string
	GetStorageFolder() string
	GetMediaFolder() string
	GetDBPath() string
	GetAPIPort() int

	GetModelPath() string
	GetConfidenceThreshold() float32
	GetTargetClassID() int

	GetSiteAPIURL() string
	GetTelegramAPIBaseURL() string
	GetTelegramBotToken() string
	GetTelegramChatID() string

	GetDeliveryTimeout() time.Duration
	GetDeliveryMaxAttempts() int
	GetDeliveryBackoff() time.Duration
	GetAlertBufferSize() int

	IsPreviewEnabled() bool
	GetPreviewPort() int
}
