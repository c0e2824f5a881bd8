package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"portfolioai/internal/ratelimit"
	"portfolioai/internal/util"
	"portfolioai/pkg/ai"
	"portfolioai/pkg/prompt"
	"portfolioai/pkg/store"
	"portfolioai/services/portfolio/internal/app"
	"portfolioai/services/portfolio/internal/config"
	"portfolioai/services/portfolio/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger, logCloser, err := util.InitLogger(util.LogConfig{Level: cfg.LogLevel, Service: "portfolio", Dir: cfg.LogsDir})
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logCloser.Close()

	ctx := context.Background()

	dataStore, err := newStore(cfg)
	if err != nil {
		util.Fatal(logger, "failed to init store", "driver", cfg.StoreDriver, "err", err)
	}
	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		util.Fatal(logger, "failed to init object store", "driver", cfg.ObjectStoreDriver, "err", err)
	}
	sessions, err := store.NewJWTSessionStore(cfg.JWTSecret, sessionTTL)
	if err != nil {
		util.Fatal(logger, "failed to init session store", "err", err)
	}

	generator, err := ai.NewGenerator(ai.ProviderConfig{
		Provider: cfg.GenerationProvider,
		BaseURL:  cfg.GenerationBaseURL,
		APIKey:   cfg.GenerationAPIKey,
		Model:    cfg.GenerationModel,
	})
	if err != nil {
		util.Fatal(logger, "failed to init generator", "provider", cfg.GenerationProvider, "err", err)
	}
	client, err := ai.NewClient(generator, prompt.SystemInstruction)
	if err != nil {
		util.Fatal(logger, "failed to init generation client", "err", err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			util.Fatal(logger, "failed to connect redis", "addr", cfg.RedisAddr, "err", err)
		}
		defer redisClient.Close()
	}

	var sequencer store.Sequencer = store.NewLocalSequencer()
	if redisClient != nil {
		sequencer = store.NewRedisSequencer(redisClient, "")
	}

	publisher, err := newPublisher(cfg, redisClient)
	if err != nil {
		util.Fatal(logger, "failed to init event publisher", "err", err)
	}
	defer publisher.Close()

	appCore, err := app.New(app.Config{
		Store:        dataStore,
		Sessions:     sessions,
		Objects:      objects,
		Generator:    client,
		Sequencer:    sequencer,
		Events:       publisher,
		InputBucket:  cfg.InputBucket,
		OutputBucket: cfg.OutputBucket,
	})
	if err != nil {
		util.Fatal(logger, "failed to init app", "err", err)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		util.Fatal(logger, "invalid trusted proxy cidrs", "err", err)
	}
	signupLimiter, err := newLimiter(redisClient, "portfolio:ratelimit:signup", cfg.SignupRateLimitPerMinute)
	if err != nil {
		util.Fatal(logger, "failed to init signup limiter", "err", err)
	}
	loginLimiter, err := newLimiter(redisClient, "portfolio:ratelimit:login", cfg.LoginRateLimitPerMinute)
	if err != nil {
		util.Fatal(logger, "failed to init login limiter", "err", err)
	}

	httpServer, err := server.New(server.Config{
		App:                appCore,
		Host:               cfg.Host,
		Port:               cfg.Port,
		SignupLimiter:      signupLimiter,
		LoginLimiter:       loginLimiter,
		TrustedProxies:     trusted,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxUploadBytes:     cfg.MaxUploadBytes,
	})
	if err != nil {
		util.Fatal(logger, "failed to init server", "err", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:        addr,
		Handler:     httpServer.Router(),
		ReadTimeout: 30 * time.Second,
		// page generation can take minutes
		WriteTimeout: 6 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "err", err)
		}
	}()

	slog.Info("portfolio server listening", "addr", addr, "store", cfg.StoreDriver, "objects", cfg.ObjectStoreDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
}

// newLimiter returns nil when perMinute is zero so the route stays unlimited.
func newLimiter(client *redis.Client, prefix string, perMinute int) (ratelimit.Limiter, error) {
	if perMinute <= 0 {
		return nil, nil
	}
	if client != nil {
		return ratelimit.NewRedisFixedWindowLimiter(client, prefix, perMinute, time.Minute)
	}
	return ratelimit.NewLocalFixedWindowLimiter(perMinute, time.Minute)
}
