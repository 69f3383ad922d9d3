package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-events/internal/auth"
	"ms-events/internal/config"
	"ms-events/internal/database/migrations"
	"ms-events/internal/events"
	eventdb "ms-events/internal/events/db"
	"ms-events/internal/events/event_api"
	eventredis "ms-events/internal/events/redis"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
)

func openDatabase(cfg *config.Config, log *logger.Logger) *bun.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open sqlite: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to sqlite: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Connected to %s", cfg.Database.DSN))

	return bun.NewDB(sqldb, sqlitedialect.New())
}

func main() {
	_ = godotenv.Load() // Loads .env file if present

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	bunDB := openDatabase(cfg, log)
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.RunMigrations(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}

	service := events.NewEventService(
		&eventdb.DB{Bun: bunDB},
		cfg.Events.Timezone,
		cfg.Events.DefaultURLScheme,
	)
	service.Logger = log

	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal("REDIS", fmt.Sprintf("Failed to connect to redis: %v", err))
		}
		service.Locks = eventredis.NewRedis(redisClient)
		log.Info("REDIS", fmt.Sprintf("Squash locking via %s", cfg.Redis.Addr))
	}

	if cfg.Kafka.Enabled {
		if cfg.Kafka.MockMode {
			service.Producer = kafka.NewMockProducer()
			log.Info("KAFKA", "Producer running in mock mode")
		} else {
			if err := kafka.CreateTopicIfNotExists(cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
				log.Warn("KAFKA", fmt.Sprintf("Topic bootstrap failed: %v", err))
			}
			producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			defer producer.Close()
			service.Producer = producer
			log.Info("KAFKA", fmt.Sprintf("Publishing to %s", cfg.Kafka.Topic))
		}
	}

	handler := event_api.NewHandler(service, cfg, log)
	requireAuth := auth.Middleware(cfg.Auth)

	r := chi.NewRouter()
	r.Route("/event", func(r chi.Router) {
		r.Get("/{eventID}", handler.GetEvent)
		r.Get("/{eventID}/qr", handler.ShareQR)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", handler.ImportEvent)
			r.Put("/{eventID}", handler.UpdateEvent)
			r.Delete("/{eventID}", handler.DeleteEvent)
			r.Post("/{eventID}/squash/{canonicalID}", handler.SquashEvent)
			r.Post("/{eventID}/lock", handler.LockEvent)
			r.Post("/{eventID}/unlock", handler.UnlockEvent)
		})
	})
	r.Get("/events", handler.ListEvents)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Event service on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "Event service shutdown complete")
}
