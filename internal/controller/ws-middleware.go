package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sharetube/syncplay/pkg/ctxlogger"
	"github.com/sharetube/syncplay/pkg/wsrouter"
)

func (c controller) wsRequestIdMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", uuid.NewString()))
		return next(ctx, conn, payload)
	}
}

func (c controller) wsLoggerMw(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
		c.logger.DebugContext(ctx, "player message received", "payload", string(payload))

		start := time.Now()
		err := next(ctx, conn, payload)

		c.logger.DebugContext(ctx, "player message handled",
			"processing_time_us", time.Since(start).Microseconds(),
		)

		return err
	}
}
