package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/syncplay/internal/domain"
	"github.com/sharetube/syncplay/internal/protocol"
	"github.com/sharetube/syncplay/internal/repository/session"
)

const (
	recordTimeout   = 500 * time.Millisecond
	recordQueueSize = 64
)

type iRecorder interface {
	RecordHeartbeat(ctx context.Context, params *session.RecordHeartbeatParams) error
	RecordRemoteState(ctx context.Context, params *session.RecordRemoteStateParams) error
}

type iCoordinatorConn interface {
	Send(ctx context.Context, v any) error
}

// heartbeatSender encodes engine snapshots as State messages. Heartbeats are mirrored to the
// recorder by RunRecorder, so a slow recorder never holds up the engine.
type heartbeatSender struct {
	conn      iCoordinatorConn
	recorder  iRecorder
	records   chan *session.RecordHeartbeatParams
	sessionID string
	clock     clockwork.Clock
	logger    *slog.Logger
}

func newHeartbeatSender(conn iCoordinatorConn, recorder iRecorder, sessionID string, clock clockwork.Clock, logger *slog.Logger) *heartbeatSender {
	s := &heartbeatSender{
		conn:      conn,
		recorder:  recorder,
		sessionID: sessionID,
		clock:     clock,
		logger:    logger,
	}
	if recorder != nil {
		s.records = make(chan *session.RecordHeartbeatParams, recordQueueSize)
	}

	return s
}

func (s *heartbeatSender) SendState(ctx context.Context, snapshot domain.LocalSnapshot) error {
	if err := s.conn.Send(ctx, protocol.NewStateMessage(snapshot)); err != nil {
		return fmt.Errorf("failed to send state: %w", err)
	}

	if s.records == nil {
		return nil
	}

	params := &session.RecordHeartbeatParams{
		SessionID:    s.sessionID,
		Position:     snapshot.Play.Position,
		Paused:       snapshot.Play.Paused,
		ExplicitSeek: snapshot.Play.ExplicitSeek,
		Pending:      snapshot.Pending.String(),
		ClientRTT:    snapshot.Ping.LastRTT.Seconds(),
		SentAt:       s.clock.Now().UnixMilli(),
	}

	select {
	case s.records <- params:
	default:
		s.logger.DebugContext(ctx, "heartbeat record dropped, recorder busy")
	}

	return nil
}

// RunRecorder writes queued heartbeats in order until ctx is done.
func (s *heartbeatSender) RunRecorder(ctx context.Context) {
	if s.records == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case params := <-s.records:
			recordCtx, cancel := context.WithTimeout(ctx, recordTimeout)
			if err := s.recorder.RecordHeartbeat(recordCtx, params); err != nil {
				s.logger.WarnContext(ctx, "failed to record heartbeat", "error", err)
			}
			cancel()
		}
	}
}
