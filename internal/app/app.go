package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sharetube/syncplay/internal/controller"
	"github.com/sharetube/syncplay/internal/repository/player/wsplayer"
	sessionRedis "github.com/sharetube/syncplay/internal/repository/session/redis"
	"github.com/sharetube/syncplay/internal/service/lifecycle"
	"github.com/sharetube/syncplay/internal/service/reconcile"
	"github.com/sharetube/syncplay/internal/settings"
	"github.com/sharetube/syncplay/internal/transport/tcp"
	"github.com/sharetube/syncplay/pkg/ctxlogger"
	"github.com/sharetube/syncplay/pkg/redisclient"
	"github.com/sharetube/syncplay/pkg/validator"
)

type AppConfig struct {
	Host            string        `json:"host" validate:"required"`
	Port            int           `json:"port" validate:"min=1,max=65535"`
	CoordinatorHost string        `json:"coordinator_host" validate:"required"`
	CoordinatorPort int           `json:"coordinator_port" validate:"min=1,max=65535"`
	Username        string        `json:"username" validate:"required"`
	LogLevel        string        `json:"log_level" validate:"required"`
	Sync            settings.Raw  `json:"sync"`
	RedisEnabled    bool          `json:"redis_enabled"`
	RedisHost       string        `json:"redis_host" validate:"required_if=RedisEnabled true"`
	RedisPort       int           `json:"redis_port" validate:"required_if=RedisEnabled true,max=65535"`
	RedisPassword   string        `json:"-"`
	RedisDB         int           `json:"redis_db" validate:"gte=0"`
	SessionTTL      time.Duration `json:"session_ttl"`
}

func (cfg *AppConfig) Validate() error {
	if err := validator.NewValidator().Check(cfg); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("%w: log_level: %w", validator.ErrValidation, err)
	}

	return nil
}

func newLogger(cfg *AppConfig) *slog.Logger {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		logLevel = slog.LevelInfo
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h)
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg)
	sessionID := uuid.NewString()
	ctx = ctxlogger.AppendCtx(ctx, slog.String("session_id", sessionID))

	clock := clockwork.NewRealClock()
	syncSettings := settings.Load(cfg.Sync)
	logger.InfoContext(ctx, "sync settings", "settings", syncSettings)

	conn := tcp.New(&tcp.Config{
		Addr: net.JoinHostPort(cfg.CoordinatorHost, strconv.Itoa(cfg.CoordinatorPort)),
	}, logger)
	if err := conn.Connect(ctx); err != nil {
		logger.WarnContext(ctx, "coordinator unreachable, retrying in background", "error", err)
	}
	defer conn.Close()

	var recorder iRecorder
	if cfg.RedisEnabled {
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()

		ttl := cfg.SessionTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		recorder = sessionRedis.NewRepo(rc, ttl)
	}

	playerRepo := wsplayer.NewRepo(clock, logger)
	sender := newHeartbeatSender(conn, recorder, sessionID, clock, logger)
	engine := reconcile.NewService(playerRepo, playerRepo, sender, &reconcile.Config{
		SelfID:   cfg.Username,
		Settings: syncSettings,
		Clock:    clock,
	}, logger)
	lifecycleService := lifecycle.NewService(engine, conn, &lifecycle.Config{Clock: clock}, logger)
	controller := controller.NewController(engine, lifecycleService, playerRepo, &controller.Config{
		SessionID: sessionID,
	}, logger)
	server := &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler: controller.GetMux(),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	router := newCoordinatorRouter(&coordinatorRouterConfig{
		engine:    engine,
		notifier:  playerRepo,
		recorder:  recorder,
		sessionID: sessionID,
		clock:     clock,
	}, logger)

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	go sender.RunRecorder(serverCtx)
	go runReceiver(serverCtx, conn, router, logger)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sig)
	go func() {
		select {
		case <-sig:
		case <-ctx.Done():
		}

		shutdownCtx, c := context.WithTimeout(context.WithoutCancel(serverCtx), 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		serverStopCtx()
		return err
	}

	<-serverCtx.Done()

	return nil
}
