package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/princekumarofficial/submission-service/docs"
	"github.com/princekumarofficial/submission-service/internal/backend"
	"github.com/princekumarofficial/submission-service/internal/cache"
	"github.com/princekumarofficial/submission-service/internal/config"
	"github.com/princekumarofficial/submission-service/internal/events"
	"github.com/princekumarofficial/submission-service/internal/http/handlers/submissions"
	"github.com/princekumarofficial/submission-service/internal/http/handlers/users"
	wsHandler "github.com/princekumarofficial/submission-service/internal/http/handlers/websocket"
	"github.com/princekumarofficial/submission-service/internal/http/middleware"
	"github.com/princekumarofficial/submission-service/internal/metrics"
	"github.com/princekumarofficial/submission-service/internal/ratelimit"
	mediasvc "github.com/princekumarofficial/submission-service/internal/services/media"
	"github.com/princekumarofficial/submission-service/internal/services/submission"
	"github.com/princekumarofficial/submission-service/internal/session"
	"github.com/princekumarofficial/submission-service/internal/storage"
	minioStore "github.com/princekumarofficial/submission-service/internal/storage/minio"
	"github.com/princekumarofficial/submission-service/internal/storage/postgres"
	s3Store "github.com/princekumarofficial/submission-service/internal/storage/s3"
	wsClient "github.com/princekumarofficial/submission-service/internal/websocket"
)

const submitAction = "submissions"

func newObjectStore(ctx context.Context, cfg config.ObjectStore) (storage.ObjectStore, error) {
	switch cfg.Driver {
	case "", "minio":
		return minioStore.New(ctx, cfg)
	case "s3":
		return s3Store.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown object store driver %q", cfg.Driver)
	}
}

// @title Submission Service API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// load config
	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// database setup
	store, err := postgres.NewPostgres(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer store.Close()

	objects, err := newObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		log.Fatal("Failed to initialize object store:", err)
	}
	slog.Info("Object store ready",
		slog.String("driver", cfg.ObjectStore.Driver),
		slog.String("bucket", cfg.ObjectStore.Bucket))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis unreachable, idempotency guard will fail open", slog.String("error", err.Error()))
	}

	observer, err := metrics.NewObserver("", nil)
	if err != nil {
		log.Fatal("Failed to register metrics:", err)
	}

	hub := wsClient.NewHub()
	go hub.Run(ctx)

	logger := slog.Default()

	uploader := mediasvc.NewUploader(objects, logger)
	batch := mediasvc.NewBatchUploader(uploader, mediasvc.PathExtractor{}, cfg.Media.MaxConcurrent, logger)
	executor := submission.NewExecutor(backend.NewClient(cfg.Backend), store, store, observer, logger)
	linker := submission.NewLinker(store, observer, logger)

	pipeline := submission.NewPipeline(session.ContextProvider{}, mediasvc.NewPolicy(cfg.Media), batch, executor, linker, submission.Options{
		Bucket:   cfg.ObjectStore.Bucket,
		Timeout:  cfg.Submission.Timeout,
		Guard:    cache.NewIdempotencyGuard(redisClient, cfg.Submission.IdempotencyTTL),
		Notifier: events.NewEventPublisher(hub),
		Observer: observer,
		Logger:   logger,
	})

	rateLimits := middleware.NewRateLimitConfig()
	rateLimits.Register(submitAction, ratelimit.NewTokenBucket(redisClient, cfg.Submission.RateLimitPerMinute, cfg.Submission.RateLimitPerMinute))
	auth := middleware.AuthMiddleware(cfg.JWTSecret)

	uploadLimits := submissions.Limits{
		MaxFileSize:    cfg.Media.MaxFileSize,
		MaxFiles:       cfg.Media.MaxFiles,
		MaxRequestSize: cfg.Media.MaxRequestSize,
	}

	// setup router
	router := http.NewServeMux()

	router.HandleFunc("POST /signup", users.SignUp(store))
	router.HandleFunc("POST /login", users.Login(store, cfg.JWTSecret))
	router.Handle("POST /submissions", auth(rateLimits.RateLimitedHandler(submitAction, submissions.Create(pipeline, uploadLimits))))
	router.HandleFunc("GET /ws", wsHandler.WebSocketHandler(hub, cfg.JWTSecret))
	router.Handle("GET /metrics", promhttp.Handler())

	docs.SwaggerInfo.Host = cfg.HTTPServer.Address
	router.Handle("GET /swagger/", httpSwagger.WrapHandler)

	server := http.Server{
		Addr:              cfg.HTTPServer.Address,
		Handler:           middleware.RequestID(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("server started", slog.String("address", cfg.HTTPServer.Address))

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Submission.Timeout+5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}

	slog.Info("Server stopped")
}
