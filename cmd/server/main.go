package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/playmatatu/balldrop/internal/api"
	"github.com/playmatatu/balldrop/internal/config"
	"github.com/playmatatu/balldrop/internal/database"
	"github.com/playmatatu/balldrop/internal/game"
	"github.com/playmatatu/balldrop/internal/layouts"
	"github.com/playmatatu/balldrop/internal/migrations"
	"github.com/playmatatu/balldrop/internal/players"
	"github.com/playmatatu/balldrop/internal/redis"
	"github.com/playmatatu/balldrop/internal/stats"
	"github.com/playmatatu/balldrop/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database. Without DATABASE_URL the server runs sessions only.
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if cfg.MigrateOnStart {
			log.Println("↗ Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}
	} else {
		log.Println("[DB] DATABASE_URL not set; player, layout and stats routes disabled")
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	// Frames go to websocket rooms, events to the stats recorder and Redis.
	hub := ws.NewHub()
	go hub.Run(ctx)

	recorder := stats.NewRecorder()
	publisher := stats.NewPublisher(rdb, cfg.EventsChannel, 1024)
	go publisher.Run(ctx)

	game.InitializeManager(ctx, rdb, cfg, hub, stats.MultiSink{recorder, publisher})
	ws.StartEventSubscriber(ctx, rdb, cfg.EventsChannel, hub)

	deps := api.Deps{
		Config:   cfg,
		Manager:  game.Manager,
		Hub:      hub,
		Recorder: recorder,
	}
	var statsStore *stats.Store
	if db != nil {
		statsStore = stats.NewStore(db, rdb)
		deps.Players = players.NewService(db, cfg)
		deps.Layouts = layouts.NewStore(db)
		deps.Stats = statsStore
		stats.StartFlushWorker(ctx, recorder, statsStore, time.Duration(cfg.StatsFlushSeconds)*time.Second)
	}

	// Set up Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, deps)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Printf("Starting balldrop server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}

	// Sessions autosave on the way out; their last play time lands in the
	// recorder before the final flush.
	game.Manager.Shutdown()
	if statsStore != nil {
		if err := recorder.Flush(shutdownCtx, statsStore); err != nil {
			log.Printf("[STATS] Final flush failed: %v", err)
		}
	}
	log.Println("Server stopped")
}
