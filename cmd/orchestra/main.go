package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	app "github.com/orchestra-dev/orchestra"
	"github.com/orchestra-dev/orchestra/internal/config"
	"github.com/orchestra-dev/orchestra/internal/events"
	"github.com/orchestra-dev/orchestra/internal/lifecycle"
	"github.com/orchestra-dev/orchestra/internal/runner"
	"github.com/orchestra-dev/orchestra/internal/server"
	"github.com/orchestra-dev/orchestra/internal/store"
	"github.com/orchestra-dev/orchestra/internal/upload"
	"github.com/orchestra-dev/orchestra/pkg/dsl"
	"github.com/orchestra-dev/orchestra/pkg/log"
)

type orchestra struct {
	cfg        *config.Config
	client     *redis.Client
	storage    *store.RedisStore
	mirror     *blob.Bucket
	manager    *lifecycle.Manager
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrCreateFileRoot = errors.New("failed to create file server root")
	ErrOpenMirror     = errors.New("failed to open archive mirror bucket")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &orchestra{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *orchestra) run() error {
	if err := s.initializeComponents(); err != nil {
		return err
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *orchestra) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Orchestra Manager starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("redis_addr", s.cfg.Store.Addr),
		slog.Int("redis_db", s.cfg.Store.DB),
		slog.String("file_server_root", s.cfg.FileServerRoot),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *orchestra) initializeComponents() error {
	if err := os.MkdirAll(s.cfg.FileServerRoot, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrCreateFileRoot, err)
	}

	s.client = redis.NewClient(&redis.Options{
		Addr:     s.cfg.Store.Addr,
		Password: s.cfg.Store.Password,
		DB:       s.cfg.Store.DB,
	})
	s.storage = store.NewRedisStoreWithClient(s.client, s.cfg.Store.Prefix)

	if s.cfg.ArchiveBucketURL != "" {
		mirror, err := blob.OpenBucket(
			context.Background(), s.cfg.ArchiveBucketURL)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrOpenMirror, err)
		}
		s.mirror = mirror
	}

	hub := events.NewHub(s.client, s.cfg.Store.Prefix)
	index := events.NewIndex(s.client, s.cfg.Store.Prefix)
	bus := events.NewBus(hub, index)

	engine := runner.NewLocal(s.storage)
	s.manager = lifecycle.NewManager(s.cfg, s.storage, engine, bus)

	resolver := upload.NewResolver(s.cfg, dsl.NewYAMLParser())
	s.apiServer = server.NewServer(s.cfg, server.Components{
		Storage:   s.storage,
		Receiver:  upload.NewReceiver(s.cfg),
		Extractor: upload.NewExtractor(s.cfg),
		Publisher: upload.NewPublisher(s.cfg, s.storage, resolver, s.mirror),
		Manager:   s.manager,
		Index:     index,
		Hub:       hub,
		Bus:       bus,
		Prober:    &server.StaticProber{Names: []string{"manager", "redis"}},
	})
	return nil
}

func (s *orchestra) startServer() {
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *orchestra) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	if s.mirror != nil {
		if err := s.mirror.Close(); err != nil {
			slog.Error("Mirror bucket close failed", log.Error(err))
		}
	}

	if err := s.storage.Close(); err != nil {
		slog.Error("Storage shutdown failed", log.Error(err))
	}

	slog.Info("Server exited")
}
