package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"sjsage522/llmscraper/config"
	"sjsage522/llmscraper/internal/fetcher"
	"sjsage522/llmscraper/internal/llm"
	"sjsage522/llmscraper/internal/schema"
	"sjsage522/llmscraper/logger"
	"sjsage522/llmscraper/services/cache"
	"sjsage522/llmscraper/services/publisher"
	"sjsage522/llmscraper/services/scraper"
	"sjsage522/llmscraper/services/store"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("provider", cfg.Provider).
		Str("model", cfg.ResolvedModel()).
		Int("urls", len(cfg.URLs)).
		Bool("pagination", cfg.Pagination).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	sch, err := schema.New(cfg.Fields)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid extraction schema")
	}

	provider, err := llm.NewProvider(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create extraction provider")
	}

	session := scraper.NewSession(
		cfg,
		sch,
		provider,
		fetcher.New(cfg, services.Cache),
		services.Store,
		services.Publisher,
	)

	report := session.Run(ctx)
	if report.URLsFailed > 0 {
		log.Warn().
			Int("failed", report.URLsFailed).
			Msg("Batch finished with failures")
		os.Exit(1)
	}
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Store     *store.Store
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize cache service
	cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	services.Cache = cacheService

	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	// Initialize persistence
	st, err := store.NewStore(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	services.Store = st

	logger.Info("Opened database at %s", cfg.DatabasePath)

	// Initialize publisher
	redisPublisher := publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	services.Publisher = redisPublisher

	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	return services, nil
}
