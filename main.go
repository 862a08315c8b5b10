package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/plantguardian/garden-helper/internal/api"
	"github.com/plantguardian/garden-helper/internal/bot"
	"github.com/plantguardian/garden-helper/internal/bot/handlers"
	"github.com/plantguardian/garden-helper/internal/bot/state"
	"github.com/plantguardian/garden-helper/internal/config"
	"github.com/plantguardian/garden-helper/internal/database"
	"github.com/plantguardian/garden-helper/internal/logger"
	"github.com/plantguardian/garden-helper/internal/services"
	"github.com/plantguardian/garden-helper/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Plant Guardian Bot...")

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	log.Println("Configuration loaded successfully")

	db, err := database.NewPostgresDB(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// State manager: Redis when configured, in-memory otherwise
	var stateManager state.StateManager
	if cfg.Redis.Host != "" {
		redisManager, err := state.NewRedisManager(cfg.Redis.Host, cfg.Redis.Port)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisManager.Close()
		stateManager = redisManager
		log.Println("Using Redis state manager")
	} else {
		stateManager = state.NewManager()
		log.Println("Using in-memory state manager")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Gemini fallback is optional; without a key the backend is the only path
	var aiService *services.AIService
	if cfg.GeminiAPIKey != "" {
		aiService, err = services.NewAIService(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		defer aiService.Close()
	} else {
		log.Println("GEMINI_API_KEY not set, diagnosis fallback disabled")
	}

	apiClient := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
	resourceStore := store.New()

	authService := services.NewAuthService(apiClient, resourceStore, stateManager, db)
	gardenService := services.NewGardenService(apiClient, resourceStore)
	diagnosisService := services.NewDiagnosisService(apiClient, aiService, db, cfg.API.Language)
	assistantService := services.NewAssistantService(apiClient, aiService)
	log.Println("Services initialized successfully")

	deps := handlers.Dependencies{
		AuthSvc:      authService,
		GardenSvc:    gardenService,
		DiagnosisSvc: diagnosisService,
		AssistantSvc: assistantService,
		Store:        resourceStore,
		AutoChecker:  handlers.NewAutoChecker(cfg.AutoCheck.Interval),
	}

	telegramBot, err := bot.NewBot(cfg.TelegramToken, deps, stateManager)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}
	log.Println("Bot initialized successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := telegramBot.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Bot stopped with error: %v", err)
		}
	}()

	log.Println("Bot is running. Press Ctrl+C to stop.")
	wg.Wait()
}
