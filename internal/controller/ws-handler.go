package controller

import (
	"context"

	"github.com/gorilla/websocket"
	"github.com/sharetube/syncplay/internal/repository/player/wsplayer"
)

type EmptyStruct struct{}

// background runs fn outside the read loop so the page keeps streaming status updates while
// fn waits. fn outlives the page connection.
func (c controller) background(ctx context.Context, name string, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := fn(ctx); err != nil {
			c.logger.WarnContext(ctx, name, "error", err)
		}
	}()
}

type StatusInput struct {
	Position *float64 `json:"position" validate:"required"`
	Paused   *bool    `json:"paused" validate:"required"`
}

func (c controller) handleStatus(ctx context.Context, conn *websocket.Conn, input StatusInput) error {
	if err := c.validate.Check(input); err != nil {
		return err
	}

	c.player.UpdateStatus(&wsplayer.UpdateStatusParams{
		Position: *input.Position,
		Paused:   *input.Paused,
	})

	return nil
}

type StartedInput struct {
	Name     string   `json:"name" validate:"required"`
	Duration float64  `json:"duration" validate:"gte=0"`
	Position *float64 `json:"position"`
}

func (c controller) handleStarted(ctx context.Context, conn *websocket.Conn, input StartedInput) error {
	if err := c.validate.Check(input); err != nil {
		return err
	}

	position := 0.0
	if input.Position != nil {
		position = *input.Position
	}

	c.player.UpdateStatus(&wsplayer.UpdateStatusParams{
		Position: position,
		Paused:   false,
	})

	if !c.lifecycle.Started(ctx, input.Name, input.Duration) {
		c.logger.DebugContext(ctx, "start not reported, change pending")
	}

	return nil
}

type PositionInput struct {
	Position *float64 `json:"position" validate:"required"`
}

func (c controller) handlePaused(ctx context.Context, conn *websocket.Conn, input PositionInput) error {
	if err := c.validate.Check(input); err != nil {
		return err
	}

	c.player.UpdateStatus(&wsplayer.UpdateStatusParams{
		Position: *input.Position,
		Paused:   true,
	})

	if !c.lifecycle.Paused(ctx, *input.Position) {
		c.logger.DebugContext(ctx, "pause not reported, change pending")
	}

	return nil
}

func (c controller) handleResumed(ctx context.Context, conn *websocket.Conn, input PositionInput) error {
	if err := c.validate.Check(input); err != nil {
		return err
	}

	c.player.UpdateStatus(&wsplayer.UpdateStatusParams{
		Position: *input.Position,
		Paused:   false,
	})

	if !c.lifecycle.Resumed(ctx, *input.Position) {
		c.logger.DebugContext(ctx, "resume not reported, change pending")
	}

	return nil
}

func (c controller) handleSeeked(ctx context.Context, conn *websocket.Conn, input PositionInput) error {
	if input.Position != nil {
		c.player.UpdateStatus(&wsplayer.UpdateStatusParams{
			Position: *input.Position,
			Paused:   c.player.Status().Paused,
		})
	}

	c.background(ctx, "failed to handle seek", c.lifecycle.Seeked)

	return nil
}

func (c controller) handleStopped(ctx context.Context, conn *websocket.Conn, input EmptyStruct) error {
	c.player.Unload()
	c.background(ctx, "failed to handle stop", c.lifecycle.Stopped)

	return nil
}

func (c controller) handleEnded(ctx context.Context, conn *websocket.Conn, input EmptyStruct) error {
	c.player.Unload()
	c.background(ctx, "failed to handle end", c.lifecycle.Ended)

	return nil
}
