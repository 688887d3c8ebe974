package main

import (
	"io"
	"log"
	"os"

	"github.com/evently/evently-api/internal/config"
	"github.com/evently/evently-api/internal/logging"
	"github.com/evently/evently-api/internal/media"
	miniorepo "github.com/evently/evently-api/internal/repository/minio"
	"github.com/evently/evently-api/internal/repository/ports"
	"github.com/evently/evently-api/internal/repository/postgres"
	"github.com/evently/evently-api/internal/service"
	transport "github.com/evently/evently-api/internal/transport/http"
	"github.com/evently/evently-api/internal/transport/mail"
	"github.com/evently/evently-api/internal/util"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			log.Printf("Warning: logstash writer disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stderr, writer))
		}
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	var storage ports.ObjectStorage
	if cfg.MinIOEndpoint != "" {
		client, err := miniorepo.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
		if err != nil {
			log.Fatalf("connect object storage: %v", err)
		}
		storage = miniorepo.NewStorage(client, cfg.MinIOPublicURL, cfg.MinIOUseSSL)
	}

	userRepo := postgres.NewUserRepo(db)
	eventRepo := postgres.NewEventRepo(db)
	bookingRepo := postgres.NewBookingRepo(db)

	jwtManager := util.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL, cfg.MFAChallengeTTL)
	mailer := mail.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.SMTPUseTLS)

	authService := service.NewAuthService(userRepo, jwtManager, mailer, cfg.GoogleAudience, cfg.FrontendBaseURL, cfg.PasswordResetTTL)
	eventService := service.NewEventService(eventRepo, storage, service.EventServiceConfig{
		PosterBucket:     cfg.MinIOBucketPosters,
		PosterMaxBytes:   cfg.PosterImageMaxBytes,
		PosterMaxDim:     media.DefaultMaxDimension,
		ApprovalRequired: cfg.EventApprovalRequired,
		ImageProcessor:   media.NewJPEGProcessor(media.DefaultMaxDimension),
	})
	bookingService := service.NewBookingService(bookingRepo, eventRepo)

	e := transport.NewRouter(cfg.AllowOrigins)
	transport.RegisterAuth(e, authService)
	transport.RegisterUsers(e, authService)
	transport.RegisterEvents(e, authService, eventService)
	transport.RegisterBookings(e, authService, bookingService)
	transport.RegisterSwagger(e)
	transport.RegisterPages(e)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
