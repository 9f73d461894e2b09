package main // Entry point package

import (
	"context"
	"log"       // Logging library
	"os"        // Signal handling
	"os/signal" // Signal handling
	"syscall"
	"time"

	"github.com/joho/godotenv"    // Load .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/pizza-rush/internal/config"   // Internal config loader
	"github.com/iliyamo/pizza-rush/internal/database" // MySQL connection pool
	"github.com/iliyamo/pizza-rush/internal/game"
	"github.com/iliyamo/pizza-rush/internal/geo"
	"github.com/iliyamo/pizza-rush/internal/handler"
	"github.com/iliyamo/pizza-rush/internal/llm"
	"github.com/iliyamo/pizza-rush/internal/middleware"
	"github.com/iliyamo/pizza-rush/internal/queue"
	"github.com/iliyamo/pizza-rush/internal/repository"
	"github.com/iliyamo/pizza-rush/internal/router" // Internal router setup
	queuepub "github.com/iliyamo/pizza-rush/internal/service"
	"github.com/iliyamo/pizza-rush/internal/spawner"
)

func main() {
	// A missing .env is fine in production where variables come from the
	// environment directly.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories over the shared pool.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	orders := repository.NewOrderRepo(db)
	sessions := repository.NewSessionRepo(db)
	addresses := repository.NewAddressRepo(db)
	profiles := repository.NewProfileRepo(db)
	stats := repository.NewStatsRepo(db)

	// External services.
	geocoder := geo.NewClient(cfg.GoogleMapsKey)
	items := llm.NewClient(cfg.OpenAIKey, cfg.OpenAIAssistantID)
	publisher := queuepub.NewPublisher(cfg.RabbitURL)

	// Game core: the generator feeds the queue, the service handles
	// claims and status changes, the spawner runs one loop per session.
	gen := game.NewGenerator(addresses, orders, geocoder, items, cfg.GeoState)
	svc := game.NewService(orders, sessions, addresses, profiles, publisher)
	manager := spawner.NewManager(sessions, gen, spawner.Config{
		IdleTimeout: cfg.SessionIdleTimeout,
		MinInterval: cfg.SpawnMinInterval,
		MaxInterval: cfg.SpawnMaxInterval,
	})

	// The delivered-events consumer maintains lifetime stats and
	// achievements off the hot path.
	go func() {
		if err := queue.StartDeliveredConsumer(stats); err != nil {
			log.Printf("delivered-consumer stopped: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, profiles), cfg.JWTSecret)

	// Redis backs both the token bucket on the gameplay routes and the
	// short-TTL cache on the shared queue listing.
	rdb := config.NewRedisClient()
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	queueCache := middleware.NewQueueCache(config.LoadCacheConfig(), rdb)

	router.RegisterGame(e,
		handler.NewSessionHandler(svc, manager),
		handler.NewOrderHandler(svc, orders, gen, manager),
		handler.NewWalletHandler(profiles, stats),
		cfg.JWTSecret, limiter, queueCache)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	go func() {
		if err := e.Start(addr); err != nil { // Start HTTP server
			log.Printf("server stopped: %v", err)
		}
	}()

	// Shut down cleanly: stop spawner loops first so no order lands in a
	// closing database pool, then drain the HTTP server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	manager.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
