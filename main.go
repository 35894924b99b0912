package main

import (
	"log"

	"go.uber.org/zap"

	"github.com/tramites-digitales/tramites-api/config"
	"github.com/tramites-digitales/tramites-api/models"
	"github.com/tramites-digitales/tramites-api/pkg/logger"
	"github.com/tramites-digitales/tramites-api/server"
	"github.com/tramites-digitales/tramites-api/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(&models.User{}, &models.Solicitud{}, &models.Tramite{}); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}
	zapLogger.Info("Database migration completed successfully")

	documents, err := newDocumentStore(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize document store", zap.Error(err))
	}

	tokens := services.NewTokenService(cfg.JWTSecret)
	passwords := services.NewPasswordService()
	email := services.NewSendGridEmailService(cfg.SendGridAPIKey, cfg.EmailSender, zapLogger)

	router := server.NewRouter(cfg, db, tokens, passwords, documents, email, zapLogger)

	addr := ":" + cfg.Port
	zapLogger.Info("Server starting", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}

// newDocumentStore selects the configured document backend.
func newDocumentStore(cfg *config.Config, zapLogger *zap.Logger) (services.DocumentStore, error) {
	if cfg.DocumentBackend == "s3" {
		return services.NewS3DocumentStore(cfg, zapLogger)
	}
	return services.NewLocalDocumentStore(cfg.UploadDir, zapLogger), nil
}
