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
	"github.com/joho/godotenv"
	"github.com/vectorlab/backend/internal/api"
	"github.com/vectorlab/backend/internal/config"
	"github.com/vectorlab/backend/internal/events"
	"github.com/vectorlab/backend/internal/lab"
	"github.com/vectorlab/backend/internal/redis"
	"github.com/vectorlab/backend/internal/ws"
	"golang.org/x/sync/errgroup"
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

	// Event bus: Redis when configured, in-process otherwise
	var bus events.Bus
	if cfg.RedisURL != "" {
		rdb, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("[EVENTS] Redis unavailable (%v); using in-process event bus", err)
			bus = events.NewLocalBus()
		} else {
			defer rdb.Close()
			bus = events.NewRedisBus(rdb)
			log.Printf("[EVENTS] Publishing lab events on Redis channel %s", events.Channel)
		}
	} else {
		bus = events.NewLocalBus()
		log.Println("[EVENTS] REDIS_URL not set; using in-process event bus")
	}
	defer bus.Close()

	g, ctx := errgroup.WithContext(ctx)

	// Initialize session manager and its expiry checker
	lab.InitializeManager(ctx, cfg, bus)
	defer lab.Manager.CloseAll()

	// Forward lab events to connected sockets
	ws.StartEventSubscriber(ctx, bus)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}

	g.Go(func() error {
		log.Printf("Starting VectorLab server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped with error: %v", err)
	}
}
