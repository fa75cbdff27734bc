package redis

import (
	"context"
	"fmt"

	"github.com/sharetube/syncplay/internal/repository/session"
)

func (r repo) getHeartbeatKey(sessionID string) string {
	return "session:" + sessionID + ":heartbeat"
}

func (r repo) RecordHeartbeat(ctx context.Context, params *session.RecordHeartbeatParams) error {
	pipe := r.rc.TxPipeline()

	heartbeatKey := r.getHeartbeatKey(params.SessionID)
	pipe.HSet(ctx, heartbeatKey,
		"position", params.Position,
		"paused", params.Paused,
		"explicit_seek", params.ExplicitSeek,
		"pending", params.Pending,
		"client_rtt", params.ClientRTT,
		"sent_at", params.SentAt,
	)
	pipe.HIncrBy(ctx, heartbeatKey, "count", 1)
	pipe.Expire(ctx, heartbeatKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}

	return nil
}

func (r repo) GetHeartbeat(ctx context.Context, sessionID string) (session.Heartbeat, error) {
	heartbeatKey := r.getHeartbeatKey(sessionID)
	cmd := r.rc.HGetAll(ctx, heartbeatKey)
	if err := cmd.Err(); err != nil {
		return session.Heartbeat{}, fmt.Errorf("failed to get heartbeat: %w", err)
	}

	if len(cmd.Val()) == 0 {
		return session.Heartbeat{}, session.ErrHeartbeatNotFound
	}

	var heartbeat session.Heartbeat
	if err := cmd.Scan(&heartbeat); err != nil {
		return session.Heartbeat{}, fmt.Errorf("failed to scan heartbeat: %w", err)
	}

	return heartbeat, nil
}
