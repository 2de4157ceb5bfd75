package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/daruji/giveaway/internal/config"
	"github.com/daruji/giveaway/internal/database"
	"github.com/daruji/giveaway/internal/engine"
	"github.com/daruji/giveaway/internal/handler"
	"github.com/daruji/giveaway/internal/middleware"
	"github.com/daruji/giveaway/internal/queue"
	"github.com/daruji/giveaway/internal/repository"
	"github.com/daruji/giveaway/internal/router"
	"github.com/daruji/giveaway/internal/stream"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	schemaCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.EnsureSchema(schemaCtx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	// Redis may be absent; the hub degrades to in-process notifications
	// and rate limiting turns into a pass-through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; change notifications stay in-process")
	}

	repo := repository.NewItemRepo(db)
	hub := stream.NewHub(repo, rdb)
	go hub.Run(context.Background())

	eng := engine.New(repo, hub)

	// Background consumer appending reservation events to the log file.
	go func() {
		if err := queue.StartReservationConsumer(); err != nil {
			log.Printf("reservation-consumer: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAPI(e,
		handler.NewItemHandler(eng, repo),
		handler.NewReservationHandler(eng),
		&handler.IdentityHandler{Secret: cfg.IdentitySecret, TTLDays: cfg.IdentityTTLDays},
		handler.NewStreamHandler(hub),
		cfg.IdentitySecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err)
	}
}
