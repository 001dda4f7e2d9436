package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/a-mestre/hilvan/libs/config"
	"github.com/a-mestre/hilvan/libs/db"
	"github.com/a-mestre/hilvan/libs/httpx"
	"github.com/a-mestre/hilvan/libs/kafkax"
	otelx "github.com/a-mestre/hilvan/libs/otel"
	"github.com/a-mestre/hilvan/libs/runtime"
	"github.com/a-mestre/hilvan/services/studio-service/internal/files"
	"github.com/a-mestre/hilvan/services/studio-service/internal/handlers"
	"github.com/a-mestre/hilvan/services/studio-service/internal/outbox"
	"github.com/a-mestre/hilvan/services/studio-service/internal/sessions"
	"github.com/a-mestre/hilvan/services/studio-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "studio-service")
	port, err := config.Port("PORT", "8080")
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
	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	loc, err := time.LoadLocation(config.String("STUDIO_TIMEZONE", "Europe/Madrid"))
	if err != nil {
		logger.Warn("invalid STUDIO_TIMEZONE, using UTC", "err", err)
		loc = time.UTC
	}

	users := storage.NewUserRepository(pool)
	clients := storage.NewClientRepository(pool)
	measurements := storage.NewMeasurementRepository(pool)
	projects := storage.NewProjectRepository(pool)
	alterations := storage.NewAlterationRepository(pool)
	appointments := storage.NewAppointmentRepository(pool)
	refreshRepo := sessions.NewRefreshRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	var objectStore files.ObjectStore
	if bucket := config.String("S3_BUCKET", ""); bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Error("aws config load failed, uploads disabled", "err", err)
			objectStore = files.NewStore(nil, "", "", logger)
		} else {
			objectStore = files.NewStore(s3.NewFromConfig(awsCfg), bucket, config.String("S3_PUBLIC_URL", ""), logger)
		}
	} else {
		objectStore = files.NewStore(nil, "", "", logger)
	}

	creator := handlers.NewTxCreator(appointments, outboxRepo, clients)
	authHandler := handlers.NewAuthHandler(users, refreshRepo, jwtSecret,
		time.Duration(config.Int("ACCESS_TTL_MINUTES", 60))*time.Minute,
		time.Duration(config.Int("REFRESH_TTL_HOURS", 720))*time.Hour)
	apptHandler := handlers.NewAppointmentsHandler(appointments, creator, clients, loc, logger)
	clientsHandler := handlers.NewClientsHandler(clients)
	measurementsHandler := handlers.NewMeasurementsHandler(measurements)
	projectsHandler := handlers.NewProjectsHandler(projects, alterations, creator, clients, loc, logger)
	dashboardHandler := handlers.NewDashboardHandler(appointments, projects, loc)
	uploadsHandler := handlers.NewUploadsHandler(objectStore)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	mux.HandleFunc("/api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("/api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("/api/v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("/api/v1/auth/logout", authHandler.Logout)

	requireAuth := handlers.RequireAuth(jwtSecret)
	protect := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }
	mux.Handle("/api/v1/auth/me", protect(authHandler.Me))
	mux.Handle("/api/v1/calendar", protect(apptHandler.Calendar))
	mux.Handle("/api/v1/appointments", protect(apptHandler.Appointments))
	mux.Handle("/api/v1/appointments/slots", protect(apptHandler.Slots))
	mux.Handle("/api/v1/clients", protect(clientsHandler.Clients))
	mux.Handle("/api/v1/clients/", protect(clientsHandler.Client))
	mux.Handle("/api/v1/measurements", protect(measurementsHandler.Measurements))
	mux.Handle("/api/v1/projects", protect(projectsHandler.Projects))
	mux.Handle("/api/v1/projects/", protect(projectsHandler.Project))
	mux.Handle("/api/v1/dashboard", protect(dashboardHandler.Dashboard))
	mux.Handle("/api/v1/uploads", protect(uploadsHandler.Upload))

	rateLimit := rateLimitMiddleware(ctx, logger)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS"),
		}),
		httpx.WithBodyLimit(10<<20),
		httpx.WithTimeout(30*time.Second),
		rateLimit,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "studio")

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

// rateLimitMiddleware prefers the redis fixed window when REDIS_ADDR is set,
// so limits hold across replicas; otherwise it falls back to per-process.
func rateLimitMiddleware(ctx context.Context, logger *slog.Logger) httpx.Middleware {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, using in-memory rate limit", "err", err)
		} else {
			return httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "studio").
				Middleware(logger, true)
		}
	}
	return httpx.NewRateLimiter(limit, time.Minute).Middleware()
}
