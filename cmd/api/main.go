package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Anan1218/homehealth/internal/adapter/baas"
	cacheadapter "github.com/Anan1218/homehealth/internal/adapter/cache"
	"github.com/Anan1218/homehealth/internal/config"
	httptransport "github.com/Anan1218/homehealth/internal/http"
	"github.com/Anan1218/homehealth/internal/http/handler"
	"github.com/Anan1218/homehealth/internal/jwt"
	"github.com/Anan1218/homehealth/internal/observability"
	"github.com/Anan1218/homehealth/internal/repository"
	"github.com/Anan1218/homehealth/internal/server"
	"github.com/Anan1218/homehealth/internal/service"
	"github.com/Anan1218/homehealth/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newRedisClient,
			newSessionCache,
			newBaaSClient,
			newInspector,
			observability.NewMetrics,
			service.NewAuthService,
			handler.NewAuthHandler,
			handler.NewSystemHandler,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("service", cfg.ServiceName))
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

// newRedisClient returns nil when REDIS_ADDR is unset; the session cache then
// falls back to the noop implementation.
func newRedisClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (redis.UniversalClient, error) {
	if cfg.RedisAddr == "" {
		logger.Info("redis not configured, session cache disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newSessionCache(client redis.UniversalClient) repository.SessionCache {
	if client == nil {
		return cacheadapter.NoopSessionCache{}
	}
	return cacheadapter.NewRedisSessionCache(client)
}

func newBaaSClient(cfg config.Config) baas.AuthClient {
	return baas.NewHTTPClient(cfg.SupabaseURL, cfg.BaaSKey(), cfg.BaaSTimeout)
}

func newInspector(cfg config.Config) *jwt.Inspector {
	return jwt.NewInspector(cfg.SupabaseJWTSecret)
}

// startHTTPServer binds the port during OnStart so a busy address fails
// startup; a serve error after that stops the app with a non-zero exit code.
func startHTTPServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}

			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			logger.Info("http server listening", zap.String("addr", ln.Addr().String()), zap.String("api_prefix", cfg.APIPrefix))
			go func() {
				defer close(done)
				if err := srv.Serve(runCtx, ln); err != nil {
					logger.Error("http server stopped", zap.Error(err))
					if err := shutdowner.Shutdown(fx.ExitCode(1)); err != nil {
						logger.Error("fx shutdown failed", zap.Error(err))
					}
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
