package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/hasanrafi/aistudio/internal/api"
	"github.com/hasanrafi/aistudio/internal/config"
	"github.com/hasanrafi/aistudio/internal/favorites"
	"github.com/hasanrafi/aistudio/internal/imagen"
	"github.com/hasanrafi/aistudio/internal/models"
	"github.com/hasanrafi/aistudio/internal/service"
	"github.com/hasanrafi/aistudio/internal/storage"
	"github.com/hasanrafi/aistudio/internal/store"
	"github.com/hasanrafi/aistudio/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := store.NewDispatcher(logr, initialSnapshot(cfg))

	provider := imagen.NewClient(imagen.Config{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Timeout: cfg.RequestTimeout,
	}, logr)

	var uploader service.ImageUploader
	if cfg.S3Enabled() {
		s3Uploader, err := storage.NewUploader(storage.Config{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
			Prefix:        cfg.S3Prefix,
		})
		if err != nil {
			log.Fatalf("storage uploader: %v", err)
		}
		uploader = s3Uploader
	}

	authService := service.NewAuthService(cfg, logr, dispatcher)
	generationService := service.NewGenerationService(logr, dispatcher, provider, uploader)

	server := api.NewServer(cfg.ListenAddr, logr, dispatcher, authService, generationService, favorites.NewStore())
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("server stopped", "err", err)
	}
}

func initialSnapshot(cfg config.Config) store.Snapshot {
	return store.Snapshot{
		Settings: models.Settings{
			PaymentDetails: models.PaymentDetails{
				MethodName:    cfg.PaymentMethodName,
				AccountNumber: cfg.PaymentAccountNo,
				QRCodeURL:     cfg.PaymentQRCodeURL,
				YoutubeLink:   cfg.PaymentYoutubeLink,
				TiktokLink:    cfg.PaymentTiktokLink,
			},
			CreditPackages: []models.CreditPackage{
				{ID: uuid.NewString(), Name: "Starter Pack", Credits: 100, Price: 50},
				{ID: uuid.NewString(), Name: "Pro Pack", Credits: 500, Price: 200},
			},
		},
	}
}
