package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/syncplay/internal/domain"
	"github.com/sharetube/syncplay/internal/repository/player/wsplayer"
	"github.com/sharetube/syncplay/pkg/validator"
	"github.com/sharetube/syncplay/pkg/wsrouter"
)

type iEngine interface {
	Snapshot() domain.LocalSnapshot
	IsSeeking() bool
}

type iLifecycle interface {
	Started(ctx context.Context, name string, duration float64) bool
	Paused(ctx context.Context, position float64) bool
	Resumed(ctx context.Context, position float64) bool
	Seeked(ctx context.Context) error
	Stopped(ctx context.Context) error
	Ended(ctx context.Context) error
}

type iPlayerRepo interface {
	Attach(conn *websocket.Conn) string
	Detach(connID string) bool
	UpdateStatus(params *wsplayer.UpdateStatusParams)
	Unload()
	Status() wsplayer.Status
	IsConnected() bool
	WriteTo(ctx context.Context, conn *websocket.Conn, msgType string, payload any) error
}

type Config struct {
	SessionID string
}

type controller struct {
	engine    iEngine
	lifecycle iLifecycle
	player    iPlayerRepo
	sessionID string
	upgrader  websocket.Upgrader
	validate  *validator.Validator
	wsmux     *wsrouter.WSRouter
	logger    *slog.Logger
}

func NewController(engine iEngine, lifecycle iLifecycle, player iPlayerRepo, cfg *Config, logger *slog.Logger) *controller {
	c := &controller{
		engine:    engine,
		lifecycle: lifecycle,
		player:    player,
		sessionID: cfg.SessionID,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
