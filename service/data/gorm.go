package data

import (
	"encoding/json"
	"time"

	"golang.org/x/xerrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tandau/firewatch-go/model"
	"github.com/tandau/firewatch-go/service/config"
)

type errorRow struct {
	ID        uint `gorm:"primaryKey"`
	Timestamp int64
	Processor string
	Message   string
	Detail    string `gorm:"type:text"`
}

type statsRow struct {
	ID        uint `gorm:"primaryKey"`
	Kind      string
	Timestamp int64
	Data      string `gorm:"type:text"`
}

type gormService struct {
	CfgSvc config.IService
	db     *gorm.DB
}

// NewGorm opens (and migrates) the sqlite database holding fires and stats.
// Cameras still come from the JSON input file; they are static configuration,
// not data.
func NewGorm(cfgSvc config.IService) (IService, error) {
	db, err := gorm.Open(sqlite.Open(cfgSvc.GetDBPath()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, xerrors.Errorf("opening sqlite database %s: %w", cfgSvc.GetDBPath(), err)
	}

	if err := db.AutoMigrate(&model.Fire{}, &statsRow{}, &errorRow{}); err != nil {
		return nil, xerrors.Errorf("migrating sqlite database: %w", err)
	}

	return &gormService{
		CfgSvc: cfgSvc,
		db:     db,
	}, nil
}

func (svc *gormService) RetrieveCameras() ([]model.Camera, error) {
	return retrieveCamerasFromFile(svc.CfgSvc)
}

func (svc *gormService) NewFire(fire *model.Fire) error {
	if err := svc.db.Create(fire).Error; err != nil {
		return xerrors.Errorf("creating fire record: %w", err)
	}
	return nil
}

func (svc *gormService) RetrieveFires() ([]model.Fire, error) {
	var fires []model.Fire
	if err := svc.db.Order("time desc").Find(&fires).Error; err != nil {
		return nil, xerrors.Errorf("retrieving fires: %w", err)
	}
	return fires, nil
}

func (svc *gormService) RetrieveMapFires() ([]model.Fire, error) {
	var fires []model.Fire
	err := svc.db.
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Order("time desc").
		Find(&fires).Error
	if err != nil {
		return nil, xerrors.Errorf("retrieving map fires: %w", err)
	}
	return fires, nil
}

func (svc *gormService) NewWorkerStats(stats model.WorkerStats) error {
	return svc.newStats("worker", stats)
}

func (svc *gormService) NewDeliveryStats(stats model.DeliveryStats) error {
	return svc.newStats("delivery", stats)
}

func (svc *gormService) newStats(kind string, stats interface{}) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return xerrors.Errorf("marshalling %s stats: %w", kind, err)
	}

	row := statsRow{
		Kind:      kind,
		Timestamp: time.Now().Unix(),
		Data:      string(raw),
	}
	if err := svc.db.Create(&row).Error; err != nil {
		return xerrors.Errorf("storing %s stats: %w", kind, err)
	}
	return nil
}

func (svc *gormService) NewError(err interface{}) error {
	// Determine if the error is custom
	var customErr model.CustomError
	if custom, ok := err.(model.CustomError); ok {
		customErr = custom
	} else if plain, ok := err.(error); ok {
		customErr.Processor = "N/A"
		customErr.Inner = plain
		customErr.Message = plain.Error()
	} else {
		customErr.Processor = "N/A"
		customErr.Message = "unknown error payload"
	}

	detail, _ := json.Marshal(map[string]interface{}{
		"stackTrace": customErr.StackTrace,
		"misc":       customErr.Misc,
	})

	row := errorRow{
		Timestamp: time.Now().Unix(),
		Processor: customErr.Processor,
		Message:   customErr.Message,
		Detail:    string(detail),
	}
	if dbErr := svc.db.Create(&row).Error; dbErr != nil {
		return xerrors.Errorf("storing error record: %w", dbErr)
	}
	return nil
}

func (svc *gormService) Finalize() {
	if sqlDB, err := svc.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
