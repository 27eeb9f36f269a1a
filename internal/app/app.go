package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/playerbridge/internal/controller"
	frameWS "github.com/sharetube/playerbridge/internal/repository/frame/ws"
	listenerInmemory "github.com/sharetube/playerbridge/internal/repository/listener/inmemory"
	registryRedis "github.com/sharetube/playerbridge/internal/repository/registry/redis"
	subscriberInmemory "github.com/sharetube/playerbridge/internal/repository/subscriber/inmemory"
	"github.com/sharetube/playerbridge/internal/service/embed"
	"github.com/sharetube/playerbridge/pkg/ctxlogger"
	"github.com/sharetube/playerbridge/pkg/redisclient"
)

const registryNamespace = "playerbridge"

type AppConfig struct {
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	LogLevel      string        `json:"log_level"`
	PlayerOrigin  string        `json:"player_origin"`
	ReadyTimeout  time.Duration `json:"ready_timeout"`
	LayoutTimeout time.Duration `json:"layout_timeout"`
	RedisPort     int           `json:"redis_port"`
	RedisHost     string        `json:"redis_host"`
	RedisPassword string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.ReadyTimeout <= 0 {
		return errors.New("ready timeout must be greater than 0")
	}
	if cfg.LayoutTimeout <= 0 {
		return errors.New("layout timeout must be greater than 0")
	}

	u, err := url.Parse(cfg.PlayerOrigin)
	if err != nil {
		return fmt.Errorf("invalid player origin: %w", err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" || strings.TrimSuffix(u.Path, "/") != "" {
		return fmt.Errorf("player origin must be an http(s) origin without a path, got %q", cfg.PlayerOrigin)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	return nil
}

func newLogger(cfg *AppConfig) *slog.Logger {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h)
}

// Server is the wired application, ready to be served.
type Server struct {
	handler http.Handler
	service interface {
		Close(context.Context) error
	}
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Close(ctx context.Context) error {
	return s.service.Close(ctx)
}

func NewServer(ctx context.Context, cfg *AppConfig, rc *redis.Client, logger *slog.Logger) (*Server, error) {
	registryRepo := registryRedis.NewRepo(rc, registryNamespace, logger)
	// registrations do not outlive the process that owned the embeds
	if err := registryRepo.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear registry: %w", err)
	}

	embedService := embed.NewService(
		frameWS.NewRepo(logger),
		listenerInmemory.NewRepo(logger),
		registryRepo,
		subscriberInmemory.NewRepo(logger),
		&embed.Config{
			PlayerOrigin:  strings.TrimSuffix(cfg.PlayerOrigin, "/"),
			ReadyTimeout:  cfg.ReadyTimeout,
			LayoutTimeout: cfg.LayoutTimeout,
		},
		logger,
	)

	return &Server{
		handler: controller.NewController(embedService, logger).GetMux(),
		service: embedService,
	}, nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg)

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	app, err := NewServer(ctx, cfg, rc, logger)
	if err != nil {
		return err
	}

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: app.Handler()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := app.Close(shutdownCtx); err != nil {
			logger.WarnContext(shutdownCtx, "failed to close embeds", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
