package controller

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"
	"github.com/sharetube/syncplay/pkg/validator"
	"github.com/sharetube/syncplay/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdMw, c.wsLoggerMw)
	mux.OnError(c.handleWSError)

	mux.Handle("STATUS", wsrouter.Typed(c.handleStatus))

	// playback callbacks
	mux.Handle("STARTED", wsrouter.Typed(c.handleStarted))
	mux.Handle("PAUSED", wsrouter.Typed(c.handlePaused))
	mux.Handle("RESUMED", wsrouter.Typed(c.handleResumed))
	mux.Handle("SEEKED", wsrouter.Typed(c.handleSeeked))
	mux.Handle("STOPPED", wsrouter.Typed(c.handleStopped))
	mux.Handle("ENDED", wsrouter.Typed(c.handleEnded))

	return mux
}

// handleWSError reports handler failures to the page and keeps the connection open.
func (c controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) error {
	c.logger.WarnContext(ctx, "failed to handle player message", "error", err)

	errType := "ERROR"
	if errors.Is(err, validator.ErrValidation) {
		errType = "VALIDATION_ERROR"
	}

	return c.player.WriteTo(ctx, conn, errType, map[string]any{"message": err.Error()})
}
