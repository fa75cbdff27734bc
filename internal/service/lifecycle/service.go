package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/syncplay/internal/protocol"
	"github.com/sharetube/syncplay/internal/service/reconcile"
)

const defaultReconnectDelay = 500 * time.Millisecond

type iEngine interface {
	OnLocalEvent(ctx context.Context, ev reconcile.LocalEvent) bool
	HandleSeek(ctx context.Context) error
}

type iCoordinator interface {
	Send(ctx context.Context, v any) error
	Connect(ctx context.Context) error
	Close() error
}

type Config struct {
	Clock clockwork.Clock
	// ReconnectDelay is how long the client stays away from the coordinator after playback stops.
	ReconnectDelay time.Duration
}

type service struct {
	engine         iEngine
	coordinator    iCoordinator
	clock          clockwork.Clock
	reconnectDelay time.Duration
	logger         *slog.Logger
}

func NewService(engine iEngine, coordinator iCoordinator, cfg *Config, logger *slog.Logger) *service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}

	return &service{
		engine:         engine,
		coordinator:    coordinator,
		clock:          clock,
		reconnectDelay: delay,
		logger:         logger,
	}
}

func (s service) send(ctx context.Context, msg protocol.SetMessage) {
	if err := s.coordinator.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "set message not delivered", "error", err)
	}
}

// Started announces the new file, marks the client ready and reports playback from the start.
func (s service) Started(ctx context.Context, name string, duration float64) bool {
	s.logger.InfoContext(ctx, "playback started", "file", name, "duration", duration)

	s.send(ctx, protocol.NewFileMessage(name, duration))
	s.send(ctx, protocol.NewReadyMessage(true))

	return s.engine.OnLocalEvent(ctx, reconcile.LocalEvent{Position: 0, Paused: false})
}

func (s service) Paused(ctx context.Context, position float64) bool {
	s.send(ctx, protocol.NewReadyMessage(false))

	return s.engine.OnLocalEvent(ctx, reconcile.LocalEvent{Position: position, Paused: true})
}

func (s service) Resumed(ctx context.Context, position float64) bool {
	s.send(ctx, protocol.NewReadyMessage(true))

	return s.engine.OnLocalEvent(ctx, reconcile.LocalEvent{Position: position, Paused: false})
}

func (s service) Seeked(ctx context.Context) error {
	if err := s.engine.HandleSeek(ctx); err != nil {
		return fmt.Errorf("failed to handle seek: %w", err)
	}

	return nil
}

func (s service) Stopped(ctx context.Context) error {
	s.logger.InfoContext(ctx, "playback stopped")
	return s.reconnect(ctx)
}

func (s service) Ended(ctx context.Context) error {
	s.logger.InfoContext(ctx, "playback ended")
	return s.reconnect(ctx)
}

// reconnect drops the coordinator session for a moment so other clients see that nothing is
// playing here any more.
func (s service) reconnect(ctx context.Context) error {
	if err := s.coordinator.Close(); err != nil {
		s.logger.WarnContext(ctx, "failed to close coordinator connection", "error", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(s.reconnectDelay):
	}

	if err := s.coordinator.Connect(ctx); err != nil {
		return fmt.Errorf("failed to reconnect: %w", err)
	}

	return nil
}
