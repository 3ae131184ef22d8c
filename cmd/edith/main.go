// main package for the edith video service
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SriHarishb/edith/internal/api"
	"github.com/SriHarishb/edith/internal/audio"
	"github.com/SriHarishb/edith/internal/catalog"
	"github.com/SriHarishb/edith/internal/config"
	"github.com/SriHarishb/edith/internal/docstore"
	"github.com/SriHarishb/edith/internal/gemini"
	"github.com/SriHarishb/edith/internal/objectstore"
	"github.com/SriHarishb/edith/internal/studio"
	"github.com/SriHarishb/edith/internal/tts"
	"github.com/SriHarishb/edith/internal/video"
	"github.com/SriHarishb/edith/internal/worker"
	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func closeLogger(log *logger.Logger, name string) {
	closeErr := log.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "error closing %s logger: %v\n", name, closeErr)
	}
}

func loadConfig() (*config.Config, error) {
	bootstrapLog, err := setupLogger(os.TempDir(), "edith-bootstrap.log")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return nil, err
	}
	defer closeLogger(bootstrapLog, "bootstrap")

	bootstrapLog.Info("Bootstrap logger created.")

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		bootstrapLog.Error("Invalid configuration: %v", err)

		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	err = cfg.EnsureDirectories()
	if err != nil {
		bootstrapLog.Error("Failed to create directories: %v", err)

		return nil, err
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	return cfg, nil
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := setupLogger(cfg.Paths.BaseLogsDir, "edith.log")
	if err != nil {
		return err
	}
	defer closeLogger(log, "final")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	natsConnection, err := nats.Connect(cfg.NATS.URL, nats.Name("edith"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	objects, err := objectstore.New(jetstreamContext, cfg.NATS.VideoObjectBucket, cfg.NATS.PublicBaseURL)
	if err != nil {
		return err
	}

	documents, err := docstore.Open(ctx, cfg.Paths.DatabasePath)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := documents.Close()
		if closeErr != nil {
			log.Warn("Failed to close document store: %v", closeErr)
		}
	}()

	generator := gemini.NewClient(gemini.Config{
		APIKey:         cfg.Gemini.APIKey,
		BaseURL:        cfg.Gemini.BaseURL,
		TextModel:      cfg.Gemini.TextModel,
		ImageModel:     cfg.Gemini.ImageModel,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
	})

	speech, err := tts.New(cfg.TTS)
	if err != nil {
		return fmt.Errorf("failed to create speech synthesizer: %w", err)
	}

	defer func() {
		closeErr := speech.Close()
		if closeErr != nil {
			log.Warn("Failed to close speech synthesizer: %v", closeErr)
		}
	}()

	videoStudio, err := studio.New(studio.Dependencies{
		Text:      generator,
		Images:    generator,
		Speech:    speech,
		Meter:     audio.NewMP3Meter(),
		Assembler: video.NewFFmpegAssembler(
			video.WithBinary(cfg.Video.FFmpegPath),
			video.WithGeometry(cfg.Video.Width, cfg.Video.Height, cfg.Video.FPS),
		),
		Objects:   objects,
		Documents: documents,
	}, cfg.Paths.WorkDir, log)
	if err != nil {
		return fmt.Errorf("failed to create studio: %w", err)
	}

	requestTimeout := time.Duration(cfg.Video.TimeoutSeconds) * time.Second

	server := api.NewServer(cfg.API.Bind, videoStudio, catalog.New(documents, generator), log,
		api.WithGenerateTimeout(requestTimeout))

	err = server.Start(ctx)
	if err != nil {
		return err
	}

	natsWorker, err := worker.NewNatsWorker(
		natsConnection, cfg.NATS.VideoRequestedSubject, videoStudio, requestTimeout, log,
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	log.System("Edith successfully initialized. API on %s, video requests on subject: %s",
		server.Addr(), cfg.NATS.VideoRequestedSubject)

	err = natsWorker.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.System("Edith shutting down.")

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
