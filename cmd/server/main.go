package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/chromox/api/internal/client"
	"github.com/chromox/api/internal/config"
	"github.com/chromox/api/internal/handler"
	"github.com/chromox/api/internal/library"
	"github.com/chromox/api/internal/middleware"
	"github.com/chromox/api/internal/orchestrator"
	"github.com/chromox/api/internal/service"
	"github.com/chromox/api/internal/worker"
	ws "github.com/chromox/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	voiceClient := client.NewVoiceClient(&cfg.Voice)
	effectsClient := client.NewEffectsClient(&cfg.Effects)
	beatClient := client.NewBeatClient(&cfg.Beat)

	// Initialize R2 client (optional - continues if not configured)
	var r2Client *client.R2Client
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		var err error
		r2Client, err = client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		}
	} else {
		log.Println("Info: R2 storage not configured, using mock storage")
	}

	// Initialize services
	libraryService := service.NewLibraryService(redisClient, asynqClient)
	var storageClient client.StorageClient
	if r2Client != nil {
		storageClient = r2Client
	}
	folioService := service.NewFolioService(redisClient, libraryService, storageClient, beatClient)
	store := service.NewLibraryStore(libraryService, folioService)

	// Initialize views over the two collections
	renderView := library.NewView(library.RenderJobs(), libraryService.ListRenders)
	clipView := library.NewView(library.FolioClips(), folioService.ListClips)
	if err := renderView.Refresh(ctx); err != nil {
		log.Printf("Warning: initial render snapshot failed: %v", err)
	}
	if err := clipView.Refresh(ctx); err != nil {
		log.Printf("Warning: initial clip snapshot failed: %v", err)
	}

	// Initialize the action orchestrator
	orch := orchestrator.New(store, orchestrator.Options{
		Timeout:        time.Duration(cfg.Library.ActionTimeout) * time.Second,
		RefreshRenders: renderView.Refresh,
		Notify:         hub.BroadcastChanged,
	})

	// Initialize handlers
	libraryHandler := handler.NewLibraryHandler(renderView, orch, libraryService, validate)
	folioHandler := handler.NewFolioHandler(clipView, orch, folioService, validate)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // 50MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"voice":   voiceClient.IsConfigured(),
				"effects": effectsClient.IsConfigured(),
				"beat":    beatClient.IsConfigured(),
				"r2":      r2Client != nil,
				"auth":    cfg.JWT.Secret != "",
			},
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Library (render history) routes
	renders := api.Group("/library/renders")
	renders.Get("/", libraryHandler.List)
	renders.Post("/refresh", libraryHandler.Refresh)
	renders.Post("/groups/collapse", libraryHandler.Collapse)
	renders.Post("/:id/rating", rateLimiter.ActionLimit(cfg.RateLimit.ActionsPerMin), libraryHandler.Rate)
	renders.Post("/:id/label/edit", libraryHandler.BeginRename)
	renders.Delete("/:id/label/edit", libraryHandler.CancelRename)
	renders.Put("/:id/label", rateLimiter.ActionLimit(cfg.RateLimit.ActionsPerMin), libraryHandler.Rename)
	renders.Post("/:id/folio", rateLimiter.ActionLimit(cfg.RateLimit.ActionsPerMin), libraryHandler.SaveToFolio)
	renders.Post("/:id/replay", rateLimiter.ReplayLimit(cfg.RateLimit.ReplayPerHour), libraryHandler.Replay)
	api.Get("/library/replay/:jobId", libraryHandler.ReplayStatus)

	// Folio routes
	clips := api.Group("/folio/clips")
	clips.Get("/", folioHandler.List)
	clips.Post("/refresh", folioHandler.Refresh)
	clips.Post("/groups/collapse", folioHandler.Collapse)
	clips.Post("/", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour), folioHandler.Upload)
	clips.Delete("/:id", rateLimiter.ActionLimit(cfg.RateLimit.ActionsPerMin), folioHandler.Remove)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/replay/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, ws.TopicReplay(jobID))
	}))

	app.Get("/ws/library", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, ws.TopicLibrary)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, libraryService, voiceClient, effectsClient, beatClient, storageClient, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	libraryService *service.LibraryService,
	voiceClient *client.VoiceClient,
	effectsClient *client.EffectsClient,
	beatClient *client.BeatClient,
	storageClient client.StorageClient,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"replay": 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	replayWorker := worker.NewReplayWorker(libraryService, voiceClient, effectsClient, beatClient, storageClient, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeReplay, replayWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
