package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plansly/backend/internal/api"
	"plansly/backend/internal/audit"
	"plansly/backend/internal/config"
	"plansly/backend/internal/logger"
	"plansly/backend/internal/realtime"
	"plansly/backend/internal/repository/mongo"
	"plansly/backend/internal/service"
	"plansly/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("could not load config: " + err.Error())
	}

	log := logger.New(cfg.Log)
	log.Info().Msg("starting plansly server")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to MongoDB")
	}
	defer func() {
		log.Info().Msg("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Error().Err(err).Msg("failed to disconnect MongoDB")
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Info().Str("database", cfg.Database.Name).Msg("database connection established")

	// --- Ensure Indexes ---
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsurePlanIndexes(ctx, appDB.Collection("plans"))
		mongo.EnsureInvitationIndexes(ctx, appDB.Collection("invitations"))
		mongo.EnsureImageIndexes(ctx, appDB.Collection("images"))
		log.Info().Msg("index creation process completed")
	}()

	// --- Audit Recorder ---
	var recorder audit.Recorder = audit.NopRecorder{}
	if cfg.Audit.DSN != "" {
		recorder, err = audit.NewPostgresRecorder(cfg.Audit.DSN, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect audit store")
		}
		log.Info().Msg("audit recording enabled")
	}

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(cfg.S3, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize S3 storage")
	}

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	planRepo := mongo.NewMongoPlanRepository(appDB)
	inviteRepo := mongo.NewMongoInvitationRepository(appDB)
	imageRepo := mongo.NewMongoImageRepository(appDB)

	// --- Realtime Hub ---
	hub := realtime.NewHub(log)

	// --- Initialize Services ---
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	inviteService := service.NewInvitationService(inviteRepo, planRepo, userRepo, recorder, log)
	planService := service.NewPlanService(planRepo, userRepo, inviteService, hub, recorder, log)
	userService := service.NewUserService(userRepo)
	imageService := service.NewImageService(imageRepo, fileStorage)

	// --- Initialize Gin Engine ---
	// gin.SetMode(gin.ReleaseMode) // Uncomment for production
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	api.SetupRoutes(router, cfg.JWT.Secret, authService, planService, inviteService, userService, imageService, hub)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen and serve error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exiting")
}
