package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/matchfyn/matchfyn-api/internal/config"
	"github.com/matchfyn/matchfyn-api/internal/database"
	"github.com/matchfyn/matchfyn-api/internal/handler"
	"github.com/matchfyn/matchfyn-api/internal/middleware"
	"github.com/matchfyn/matchfyn-api/internal/observability"
	"github.com/matchfyn/matchfyn-api/internal/repository"
	"github.com/matchfyn/matchfyn-api/internal/router"
	"github.com/matchfyn/matchfyn-api/internal/service"
	cloud "github.com/matchfyn/matchfyn-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, cross-node fan-out disabled")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, cross-node fan-out limited to redis")
			natsConn = nil
		} else {
			defer natsConn.Drain()
		}
	}

	var uploader service.FileStorage
	if cfg.CloudinaryName != "" {
		cloudService, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryName,
			APIKey:    cfg.CloudinaryKey,
			APISecret: cfg.CloudinarySecret,
			Folder:    cfg.CloudinaryFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cloudService
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	userRepo := repository.NewUserRepository(db)
	interestRepo := repository.NewInterestRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	voiceRepo := repository.NewVoiceSessionRepository(db)

	compatibilityService := service.NewCompatibilityService(userRepo, interestRepo, logger)
	matchingService := service.NewMatchingService(userRepo, interestRepo, matchRepo, compatibilityService, logger)
	authService := service.NewAuthService(userRepo, cfg, validate, logger)
	userService := service.NewUserService(userRepo, validate, logger)
	interestService := service.NewInterestService(interestRepo, logger)
	matchService := service.NewMatchService(matchRepo, userRepo, validate, metrics, logger)
	roomService := service.NewRoomService(roomRepo, participantRepo, messageRepo, userRepo, validate, logger)
	uploadService := service.NewUploadService(uploader, userRepo, logger)
	sessionService := service.NewRoomSessionService(
		roomRepo, participantRepo, messageRepo, userRepo, voiceRepo,
		redisClient, "matchfyn", natsConn, validate, metrics, logger,
	)
	lifecycleService := service.NewRoomLifecycleService(roomRepo, participantRepo, cfg, metrics, logger)

	authHandler := handler.NewAuthHandler(authService, logger)
	userHandler := handler.NewUserHandler(userService, uploadService, logger)
	interestHandler := handler.NewInterestHandler(interestService, logger)
	matchHandler := handler.NewMatchHandler(matchService, logger)
	matchingHandler := handler.NewMatchingHandler(matchingService, validate, logger)
	roomHandler := handler.NewRoomHandler(roomService, logger)
	sessionHandler := handler.NewSessionHandler(sessionService, userService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, Metrics: metrics})
	router.Register(app, cfg, router.Dependencies{
		DB:              db,
		AuthHandler:     authHandler,
		UserHandler:     userHandler,
		InterestHandler: interestHandler,
		MatchHandler:    matchHandler,
		MatchingHandler: matchingHandler,
		RoomHandler:     roomHandler,
		SessionHandler:  sessionHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	sessionService.Start(workerCtx)
	worker := service.NewLifecycleWorker(lifecycleService, cfg, metrics, logger)
	go worker.Run(workerCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopWorkers)
}

func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
