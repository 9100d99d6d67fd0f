package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/YehoanatnEzra/Callflow-AI/internal/availability"
	"github.com/YehoanatnEzra/Callflow-AI/internal/callflow"
	"github.com/YehoanatnEzra/Callflow-AI/internal/company"
	"github.com/YehoanatnEzra/Callflow-AI/internal/dialer"
	"github.com/YehoanatnEzra/Callflow-AI/internal/handlers"
	"github.com/YehoanatnEzra/Callflow-AI/internal/ledger"
	"github.com/YehoanatnEzra/Callflow-AI/internal/outbox"
	"github.com/YehoanatnEzra/Callflow-AI/internal/storage"
	"github.com/YehoanatnEzra/Callflow-AI/internal/turn"
	"github.com/YehoanatnEzra/Callflow-AI/libs/config"
	"github.com/YehoanatnEzra/Callflow-AI/libs/db"
	"github.com/YehoanatnEzra/Callflow-AI/libs/httpx"
	"github.com/YehoanatnEzra/Callflow-AI/libs/kafkax"
	otelx "github.com/YehoanatnEzra/Callflow-AI/libs/otel"
	"github.com/YehoanatnEzra/Callflow-AI/libs/runtime"
)

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	service := config.String("SERVICE_NAME", "callflow-service")
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

	// Storage: Postgres when DATABASE_URL is set, in-memory otherwise. The
	// in-memory ledger keeps dev and demo environments dependency-free.
	var (
		meetingLedger ledger.Ledger
		companySource company.Source
		readyChecks   []runtime.ReadyCheck
	)
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err := db.Open(ctx, dbURL)
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()

		outboxRepo := outbox.NewRepository(pool)
		meetingLedger = storage.NewMeetingRepository(pool, outboxRepo)
		companySource = storage.NewCompanyRepository(pool)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   config.String("KAFKA_BROKERS", ""),
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)
		if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
			readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
		}
	} else {
		logger.Info("no DATABASE_URL set; using in-memory meeting ledger")
		meetingLedger = ledger.NewMemory()
		companySource = company.NewStatic(
			config.String("COMPANY_NAME", ""),
			config.String("COMPANY_PITCH", ""),
			config.String("ASSISTANT_NAME", ""),
			config.String("COMPANY_TIMEZONE", ""),
		)
	}

	var rdb *redis.Client
	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "err", err)
			panic(err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping failed; continuing without it", "err", err)
			rdb = nil
		} else {
			readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}})
		}
	}

	var adapter turn.Adapter
	if apiKey := config.String("GEMINI_API_KEY", ""); apiKey != "" {
		gemini, err := turn.NewGemini(ctx, apiKey, config.String("GEMINI_MODEL", ""))
		if err != nil {
			logger.Error("gemini client init failed", "err", err)
			panic(err)
		}
		adapter = gemini
	} else {
		logger.Info("no GEMINI_API_KEY set; using scripted dialogue adapter")
		adapter = turn.Scripted{}
	}

	machine := callflow.NewMachine(adapter, meetingLedger, companySource, logger, callflow.Config{
		AdapterTimeout:     time.Duration(config.Int("ADAPTER_TIMEOUT_MS", 4000)) * time.Millisecond,
		MaxAdapterFailures: config.Int("MAX_ADAPTER_FAILURES", 2),
		OfferCount:         config.Int("OFFER_COUNT", 2),
		Slots: availability.Params{
			HorizonDays: config.Int("SLOT_HORIZON_DAYS", 14),
			Lead:        config.Minutes("SLOT_LEAD_MINUTES", 15*time.Minute),
		},
	})
	registry := callflow.NewRegistry(machine, logger, rdb,
		config.Int("MAX_SESSIONS", 100),
		config.Minutes("SESSION_TIMEOUT_MINUTES", 30*time.Minute),
	)
	go registry.Run(ctx)

	twilioDialer := dialer.NewTwilio(
		config.String("TWILIO_ACCOUNT_SID", ""),
		config.String("TWILIO_AUTH_TOKEN", ""),
		config.String("TWILIO_FROM_NUMBER", ""),
		config.String("PUBLIC_BASE_URL", ""),
	)

	voiceHandler := handlers.NewVoiceHandler(registry, logger)
	twilioHandler := handlers.NewTwilioHandler(registry, logger)
	meetingsHandler := handlers.NewMeetingsHandler(meetingLedger, companySource, logger, availability.Params{
		HorizonDays: config.Int("SLOT_HORIZON_DAYS", 14),
		Lead:        config.Minutes("SLOT_LEAD_MINUTES", 15*time.Minute),
	})
	callsHandler := handlers.NewCallsHandler(twilioDialer, logger)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/voice/events", voiceHandler.Events)
	mux.HandleFunc("/api/v1/voice/active", voiceHandler.ActiveCalls)
	mux.HandleFunc("/api/v1/meetings", meetingsHandler.List)
	mux.HandleFunc("/api/v1/meetings/cancel", meetingsHandler.Cancel)
	mux.HandleFunc("/api/v1/meetings/reschedule", meetingsHandler.Reschedule)
	mux.HandleFunc("/api/v1/meetings/clear", meetingsHandler.Clear)
	mux.HandleFunc("/api/v1/slots", meetingsHandler.Slots)
	mux.HandleFunc("/api/v1/calls", callsHandler.Create)
	if store, ok := companySource.(handlers.ProfileStore); ok {
		mux.HandleFunc("/api/v1/company", handlers.NewCompanyHandler(store, logger).Update)
	}
	mux.HandleFunc("/twilio/voice", twilioHandler.Voice)
	mux.HandleFunc("/twilio/turn", twilioHandler.Turn)
	mux.HandleFunc("/twilio/status", twilioHandler.Status)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         time.Hour,
		}),
	}
	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service)
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		middlewares = append(middlewares, httpx.NewRateLimiter(rateLimit, time.Minute).Middleware())
	}
	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "callflow")
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
	registry.Shutdown(shutdownCtx)
	logger.Info("http server stopped")
}
