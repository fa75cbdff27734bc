package redis

import (
	"context"
	"fmt"

	"github.com/sharetube/syncplay/internal/repository/session"
)

func (r repo) getRemoteStateKey(sessionID string) string {
	return "session:" + sessionID + ":remote"
}

func (r repo) RecordRemoteState(ctx context.Context, params *session.RecordRemoteStateParams) error {
	pipe := r.rc.TxPipeline()

	remoteKey := r.getRemoteStateKey(params.SessionID)
	pipe.HSet(ctx, remoteKey,
		"position", params.Position,
		"paused", params.Paused,
		"explicit_seek", params.ExplicitSeek,
		"set_by", params.SetBy,
		"pending", params.Pending,
		"received_at", params.ReceivedAt,
	)
	pipe.HIncrBy(ctx, remoteKey, "count", 1)
	pipe.Expire(ctx, remoteKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to record remote state: %w", err)
	}

	return nil
}

func (r repo) GetRemoteState(ctx context.Context, sessionID string) (session.RemoteState, error) {
	remoteKey := r.getRemoteStateKey(sessionID)
	cmd := r.rc.HGetAll(ctx, remoteKey)
	if err := cmd.Err(); err != nil {
		return session.RemoteState{}, fmt.Errorf("failed to get remote state: %w", err)
	}

	if len(cmd.Val()) == 0 {
		return session.RemoteState{}, session.ErrRemoteStateNotFound
	}

	var state session.RemoteState
	if err := cmd.Scan(&state); err != nil {
		return session.RemoteState{}, fmt.Errorf("failed to scan remote state: %w", err)
	}

	return state, nil
}

func (r repo) RemoveSession(ctx context.Context, sessionID string) error {
	res, err := r.rc.Del(ctx, r.getHeartbeatKey(sessionID), r.getRemoteStateKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	if res == 0 {
		return session.ErrSessionNotFound
	}

	return nil
}
