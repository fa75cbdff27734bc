package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/syncplay/internal/domain"
	"github.com/sharetube/syncplay/internal/protocol"
	"github.com/sharetube/syncplay/internal/repository/session"
	"github.com/sharetube/syncplay/pkg/validator"
)

const notificationTitle = "Syncplay"

type iEngine interface {
	OnRemoteState(ctx context.Context, remote domain.RemoteState)
}

type iNotifier interface {
	Notify(ctx context.Context, title, message string) error
}

type iReceiver interface {
	Receive(ctx context.Context) ([]json.RawMessage, error)
}

type coordinatorRouterConfig struct {
	engine    iEngine
	notifier  iNotifier
	recorder  iRecorder
	sessionID string
	clock     clockwork.Clock
}

type coordinatorHandlers struct {
	*coordinatorRouterConfig
	validate *validator.Validator
	logger   *slog.Logger
}

func newCoordinatorRouter(cfg *coordinatorRouterConfig, logger *slog.Logger) *protocol.Router {
	h := coordinatorHandlers{
		coordinatorRouterConfig: cfg,
		validate:                validator.NewValidator(),
		logger:                  logger,
	}

	router := protocol.NewRouter()
	router.Handle(protocol.KeyState, h.handleState)
	router.Handle(protocol.KeyError, h.handleError)
	router.Handle(protocol.KeyChat, h.handleChat)
	router.Handle(protocol.KeySet, h.logOnly)
	router.Handle(protocol.KeyHello, h.logOnly)
	router.Handle(protocol.KeyList, h.logOnly)
	router.Handle(protocol.KeyTLS, h.logOnly)

	return router
}

// runReceiver feeds coordinator messages to router until ctx is done.
func runReceiver(ctx context.Context, conn iReceiver, router *protocol.Router, logger *slog.Logger) {
	for {
		msgs, err := conn.Receive(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.WarnContext(ctx, "failed to receive", "error", err)
			continue
		}

		for _, msg := range msgs {
			if err := router.Dispatch(ctx, msg); err != nil {
				logger.WarnContext(ctx, "failed to handle coordinator message", "error", err)
			}
		}
	}
}

func (h coordinatorHandlers) handleState(ctx context.Context, payload json.RawMessage) error {
	remote, err := protocol.DecodeState(payload, h.validate)
	if err != nil {
		return err
	}

	if h.recorder != nil {
		if err := h.recorder.RecordRemoteState(ctx, &session.RecordRemoteStateParams{
			SessionID:    h.sessionID,
			Position:     remote.Play.Position,
			Paused:       remote.Play.Paused,
			ExplicitSeek: remote.Play.ExplicitSeek,
			SetBy:        remote.Play.OriginID,
			Pending:      remote.Pending.String(),
			ReceivedAt:   h.clock.Now().UnixMilli(),
		}); err != nil {
			h.logger.WarnContext(ctx, "failed to record remote state", "error", err)
		}
	}

	h.engine.OnRemoteState(ctx, remote)

	return nil
}

func (h coordinatorHandlers) handleError(ctx context.Context, payload json.RawMessage) error {
	var e protocol.Error
	if err := json.Unmarshal(payload, &e); err != nil {
		return fmt.Errorf("failed to unmarshal error: %w", err)
	}

	h.logger.ErrorContext(ctx, "coordinator error", "message", e.Message)

	if err := h.notifier.Notify(ctx, notificationTitle, e.Message); err != nil {
		h.logger.DebugContext(ctx, "error not shown", "error", err)
	}

	return nil
}

type chat struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

func (h coordinatorHandlers) handleChat(ctx context.Context, payload json.RawMessage) error {
	var c chat
	if err := json.Unmarshal(payload, &c); err != nil {
		return fmt.Errorf("failed to unmarshal chat: %w", err)
	}

	if err := h.notifier.Notify(ctx, notificationTitle, c.Username+": "+c.Message); err != nil {
		h.logger.DebugContext(ctx, "chat not shown", "error", err)
	}

	return nil
}

func (h coordinatorHandlers) logOnly(ctx context.Context, payload json.RawMessage) error {
	h.logger.DebugContext(ctx, "coordinator message", "payload", string(payload))
	return nil
}
