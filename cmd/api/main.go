package main

import (
	"context"
	"log"

	"docstash/config"
	"docstash/internal/domain/attachment"
	"docstash/internal/handler"
	"docstash/internal/redis"
	"docstash/internal/repository"
	"docstash/internal/server"
	"docstash/internal/services"
	"docstash/internal/storage"
	"docstash/pkg/database"
	"docstash/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == server.ReleaseMode {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)
	defer l.Logger.Sync()

	database.Connect(cfg)

	if err := database.DB.AutoMigrate(&attachment.Attachment{}); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}
	if err := database.ApplyRawMigrations("migrations"); err != nil {
		log.Fatalf("Failed to apply raw migrations: %v", err)
	}

	// Resolve the active storage driver once; an unknown driver name stops
	// the process here rather than failing on the first upload.
	st, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	l.Infof("Storage backend ready: %s", st.Name())

	redisClient := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	var limiter *redis.RateLimiter
	if err := redis.Ping(context.Background(), redisClient); err != nil {
		l.Warnf("Redis unavailable, upload rate limiting disabled: %s", err)
	} else {
		limiter = redis.NewRateLimiter(redisClient, redis.DefaultRateLimitConfig())
	}

	repo := repository.NewAttachmentRepository(database.DB)
	attachmentService := services.NewAttachmentService(repo, st, l, cfg.MaxUploadBytes)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Attachment: handler.NewAttachmentHandler(attachmentService),
	}, limiter)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}
}
