package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/tandau/firewatch-go/mode"
	"github.com/tandau/firewatch-go/pipeline"
	"github.com/tandau/firewatch-go/service/config"
	"github.com/tandau/firewatch-go/service/data"
	"github.com/tandau/firewatch-go/service/detect"
	"github.com/tandau/firewatch-go/service/lgr"
	"github.com/tandau/firewatch-go/service/notifier"
	"github.com/tandau/firewatch-go/service/preview"
	"github.com/tandau/firewatch-go/service/reporter"
)

const (
	// WARNING: this has to be bigger than the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"detect": mode.Detect,
	"serve":  mode.Serve,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			lgr.Logger.Error("error loading .env file", slog.Any("error", xerrors.New(err.Error())))
			panic("error loading .env file")
		}
	}

	modeType := "detect"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		panic("invalid mode")
	}

	// Create the services needed for the mode processor
	// Config service
	cfgSvc, err := config.NewViper(os.Getenv("FIREWATCH_CONFIG"))
	if err != nil {
		lgr.Logger.Error("error loading configuration", slog.Any("error", err))
		panic("error loading configuration")
	}
	// Data service
	dataSvc, err := data.NewGorm(cfgSvc)
	if err != nil {
		lgr.Logger.Error("error opening data store", slog.Any("error", err))
		panic("error opening data store")
	}
	defer dataSvc.Finalize()
	// Reporter service
	reporterSvc := reporter.NewHTTP(cfgSvc)
	// Notifier service
	notifierSvc := notifier.NewTelegram(cfgSvc)
	// Preview service
	previewSvc := preview.NewNoop()
	if cfgSvc.IsPreviewEnabled() {
		previewSvc = preview.NewWS(cfgSvc)
	}
	defer previewSvc.Finalize()
	// Detection service: only detect mode pays the model-loading cost
	var detectSvc detect.IService
	if modeType == "detect" {
		detectSvc, err = detect.NewYolo(cfgSvc)
		if err != nil {
			lgr.Logger.Error("error loading detection model", slog.Any("error", err))
			panic("error loading detection model")
		}
	}

	svcs := pipeline.ServicesFactory{
		CfgSvc:      cfgSvc,
		DataSvc:     dataSvc,
		DetectSvc:   detectSvc,
		ReporterSvc: reporterSvc,
		NotifierSvc: notifierSvc,
		PreviewSvc:  previewSvc,
	}

	// Create mode processor result
	modeProcResult := make(chan error)
	defer close(modeProcResult)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs)
	}()

	// Wait for cancellation, mode proc or error
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"firewatch context cancelled",
			)
			goto resume

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"firewatch mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
			goto resume
		}
	}

	// Wait in a non-blocking way for `waitOnShutdown` for all the go routines to exit
	// This is needed because the go routines may need to report errors as they are exiting
resume:
	// Cancel the context if not already cancelled
	if canxCtx.Err() == nil {
		// Force cancel the context
		canxFn()
	}

	lgr.Logger.Info(
		"firewatch is waiting for all go routines to exit",
	)

	// The only way to exit the main function is to wait for the shutdown
	// duration
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			lgr.Logger.Info(
				"firewatch shutdown waiting period expired. Exiting now",
				slog.Duration("period", waitOnShutdown),
			)

			return

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"firewatch mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
		}
	}
}
