package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/gogotex/backend/userstore/handlers"
	"github.com/gogotex/gogotex/backend/userstore/internal/config"
	"github.com/gogotex/gogotex/backend/userstore/internal/database"
	"github.com/gogotex/gogotex/backend/userstore/internal/oidc"
	"github.com/gogotex/gogotex/backend/userstore/internal/storage"
	"github.com/gogotex/gogotex/backend/userstore/internal/user/handler"
	"github.com/gogotex/gogotex/backend/userstore/internal/user/repository"
	"github.com/gogotex/gogotex/backend/userstore/internal/user/service"
	"github.com/gogotex/gogotex/backend/userstore/pkg/logger"
	"github.com/gogotex/gogotex/backend/userstore/pkg/metrics"
	"github.com/gogotex/gogotex/backend/userstore/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL is read before the config so config errors are visible
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.SetFormat(cfg.Log.Format)
	logger.Infof("config loaded: mongo=%v redis=%v auth=%v minio=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.Auth.Enabled(), cfg.MinIO.Endpoint != "")

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the store is required, retry to tolerate startup races with the database container
	client, err := database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, cfg.MongoDB.ConnectAttempts, func(attempt int, err error) {
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, cfg.MongoDB.ConnectAttempts, err)
	})
	if err != nil {
		logger.Fatalf("could not connect to MongoDB after %d attempts: %v", cfg.MongoDB.ConnectAttempts, err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	repo := repository.NewMongoRepo(client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection))
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Warnf("failed to ensure user indexes: %v", err)
	}
	svc := service.New(repo)

	r := gin.New()
	r.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			rdb = nil
		} else {
			logger.Infof("connected to Redis %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	verifier, err := newVerifier(ctx, cfg.Auth)
	if err != nil {
		logger.Fatalf("failed to initialize token verifier: %v", err)
	}
	var opts handler.Options
	if verifier != nil {
		opts.Guard = middleware.AuthMiddleware(verifier)
	} else {
		logger.Warn("no token verifier configured, write routes are open")
	}

	if cfg.MinIO.Endpoint != "" {
		objects, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("snapshot export disabled: %v", err)
		} else {
			opts.Exporter = storage.NewExporter(objects)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readyHandler(client, rdb, cfg))

	handlers.RegisterSwagger(r)
	handler.RegisterUserRoutes(r, svc, opts)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting userstore on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// newVerifier picks the OIDC verifier when an issuer is configured, the
// shared-secret verifier when only JWT_SECRET is set, and nil otherwise.
func newVerifier(ctx context.Context, auth config.AuthConfig) (middleware.Verifier, error) {
	switch {
	case auth.OIDCIssuer != "" && auth.OIDCClientID != "":
		v, err := oidc.NewVerifier(ctx, auth.OIDCIssuer, auth.OIDCClientID)
		if err != nil {
			return nil, err
		}
		logger.Infof("write routes guarded by OIDC issuer %s", auth.OIDCIssuer)
		return v, nil
	case auth.JWTSecret != "":
		v, err := oidc.NewHMACVerifier(auth.JWTSecret)
		if err != nil {
			return nil, err
		}
		logger.Info("write routes guarded by HS256 shared secret")
		return v, nil
	}
	return nil, nil
}

// readyHandler returns 200 only when the critical dependencies answer.
func readyHandler(client *mongo.Client, rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ready := true
		deps := map[string]bool{}

		deps["mongo"] = client.Ping(ctx, nil) == nil
		ready = ready && deps["mongo"]

		if cfg.RateLimit.Enabled && cfg.RateLimit.UseRedis {
			deps["redis"] = rdb != nil && rdb.Ping(ctx).Err() == nil
			ready = ready && deps["redis"]
		}

		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	}
}
