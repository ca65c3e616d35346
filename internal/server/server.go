package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"squad-stash/internal/config"
	"squad-stash/internal/feed"
	custommiddleware "squad-stash/internal/middleware"
	"squad-stash/internal/registry"
	"squad-stash/internal/repository"
	"squad-stash/internal/service"
	"squad-stash/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config         *config.Config
	logger         *zap.Logger
	db             *sql.DB
	redisClient    *redis.Client
	catalogService service.CatalogService
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env != "production"))

	// Rate limiting needs Redis; skip it cleanly when none is configured.
	var redisClient *redis.Client
	if cfg.Redis.Host != "" && cfg.RateLimit.RequestsPerMinute > 0 {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerMinute,
			Window:            time.Minute,
			KeyPrefix:         "squadstash_rate_limit",
		}, logger))
	}

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Initialize repositories and the collection handle registry
	catalogRepo := repository.NewCatalogRepository(db)
	collectionRepo := repository.NewCollectionRepository(db)
	collectionRegistry := registry.New()

	// Initialize the price feed client
	priceFeed := feed.NewClient(cfg.Feed.URL, cfg.Feed.Timeout)

	// Initialize services
	catalogService := service.NewCatalogService(priceFeed, catalogRepo, logger)
	collectionService := service.NewCollectionService(collectionRegistry, collectionRepo, logger)

	// Initialize handlers
	catalogHandler := transport.NewCatalogHandler(catalogService, logger)
	collectionHandler := transport.NewCollectionHandler(collectionService, logger)

	// Register routes
	catalogHandler.RegisterRoutes(router)
	collectionHandler.RegisterRoutes(router)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:         cfg,
		logger:         logger,
		db:             db,
		redisClient:    redisClient,
		catalogService: catalogService,
	}

	return server
}

// StartBackgroundRefresh launches the periodic catalog refresh. It
// returns once the goroutine is running; cancel ctx to stop it.
func (s *Server) StartBackgroundRefresh(ctx context.Context) {
	go s.catalogService.RunPeriodicRefresh(ctx, s.config.Catalog.RefreshInterval)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
