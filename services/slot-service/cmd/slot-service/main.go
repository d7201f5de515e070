package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/a-voskov/delivera/libs/config"
	"github.com/a-voskov/delivera/libs/db"
	"github.com/a-voskov/delivera/libs/httpx"
	"github.com/a-voskov/delivera/libs/kafkax"
	otelx "github.com/a-voskov/delivera/libs/otel"
	"github.com/a-voskov/delivera/libs/runtime"
	"github.com/a-voskov/delivera/services/slot-service/internal/consumer"
	"github.com/a-voskov/delivera/services/slot-service/internal/handlers"
	"github.com/a-voskov/delivera/services/slot-service/internal/inbox"
	"github.com/a-voskov/delivera/services/slot-service/internal/schedule"
	"github.com/a-voskov/delivera/services/slot-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "slot-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	var rdb *redis.Client
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
	} else {
		logger.Warn("redis not configured; schedule reads go straight to the replica")
	}

	scheduleRepo := storage.NewScheduleRepository(pool)
	provider := schedule.NewCachedProvider(
		scheduleRepo,
		rdb,
		config.Minutes("SCHEDULE_CACHE_TTL_MINUTES", 5*time.Minute),
		logger,
	)

	brokers := config.String("KAFKA_BROKERS", "")
	topic := config.String("KAFKA_SCHEDULE_TOPIC", "merchant.schedule.updated.v1")
	if strings.TrimSpace(brokers) != "" {
		inboxRepo := inbox.NewRepository(pool)
		eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "slot-service"),
			Topic:   topic,
		}, func(ctx context.Context, msg kafka.Message) error {
			// The event payload is the full configuration document; store it
			// verbatim and drop the cached copy.
			var payload struct {
				AccountID string `json:"account_id"`
			}
			if err := json.Unmarshal(msg.Value, &payload); err != nil || payload.AccountID == "" {
				logger.Error("invalid schedule event payload", "err", err, "topic", msg.Topic)
				return nil
			}
			if err := scheduleRepo.Upsert(ctx, payload.AccountID, msg.Value); err != nil {
				return err
			}
			provider.Invalidate(ctx, payload.AccountID)
			logger.Info("schedule replica updated", "account_id", payload.AccountID)
			return nil
		})
		go eventConsumer.Run(ctx)
	} else {
		logger.Warn("kafka not configured; schedule replica will not receive updates")
	}

	slotsHandler := handlers.NewSlotsHandler(
		provider,
		logger,
		config.Minutes("SLOT_GRANULARITY_MINUTES", 0),
	)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if strings.TrimSpace(brokers) != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMux(checks...)
	mux.HandleFunc("/api/v1/public/slots", slotsHandler.Windows)
	mux.HandleFunc("/api/v1/public/slots/validate", slotsHandler.Validate)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "slots")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
