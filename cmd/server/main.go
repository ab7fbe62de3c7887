package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/cargoflow/cargoflow/internal/auth"
	"github.com/cargoflow/cargoflow/internal/config"
	"github.com/cargoflow/cargoflow/internal/database"
	"github.com/cargoflow/cargoflow/internal/handler"
	"github.com/cargoflow/cargoflow/internal/queue"
	"github.com/cargoflow/cargoflow/internal/repository"
	"github.com/cargoflow/cargoflow/internal/router"
)

// tokenSweepInterval controls how often expired refresh token records are
// purged from the database.
const tokenSweepInterval = time.Hour

func main() {
	// .env is optional; real deployments configure the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("database: %v", err)
	}

	users := repository.NewUserRepo(db)
	owners := repository.NewOwnerRepo(db)
	tokens := repository.NewTokenRepo(db)
	companies := repository.NewCompanyRepo(db)
	warehouses := repository.NewWarehouseRepo(db)
	deliveries := repository.NewDeliveryRepo(db)

	codec := auth.NewCodec(cfg.AccessSecret, cfg.RefreshSecret)
	sessions := auth.NewSessionManager(codec, tokens, users, owners)

	// Hourly sweep of expired refresh token records.
	go func() {
		ticker := time.NewTicker(tokenSweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := sessions.CleanupExpired(ctx)
			cancel()
			if err != nil {
				log.Printf("token sweep: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("token sweep: removed %d expired records", n)
			}
		}
	}()

	// Audit trail consumer; reconnects on its own.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}

	e := echo.New()
	router.Register(e, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, users, owners, sessions, codec),
		Platform:  handler.NewPlatformHandler(companies, users, deliveries),
		Company:   handler.NewCompanyHandler(companies, warehouses, deliveries, users),
		Warehouse: handler.NewWarehouseHandler(deliveries),
		Driver:    handler.NewDriverHandler(deliveries),
	}, codec, sessions, cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
