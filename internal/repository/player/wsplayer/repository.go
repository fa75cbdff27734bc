package wsplayer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

var ErrNotConnected = errors.New("player not connected")

const defaultWriteTimeout = 5 * time.Second

type Status struct {
	Position  float64   `json:"position"`
	Paused    bool      `json:"paused"`
	Loaded    bool      `json:"loaded"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UpdateStatusParams struct {
	Position float64
	Paused   bool
}

type command struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// repo is the local end of the player page. It remembers the last status the page reported
// and forwards commands to it.
type repo struct {
	clock        clockwork.Clock
	logger       *slog.Logger
	writeTimeout time.Duration

	mu     sync.RWMutex
	conn   *websocket.Conn
	connID string
	status Status

	writeMu sync.Mutex
}

func NewRepo(clock clockwork.Clock, logger *slog.Logger) *repo {
	return &repo{
		clock:        clock,
		logger:       logger,
		writeTimeout: defaultWriteTimeout,
	}
}

// Attach makes conn the current player connection, closing the previous one.
func (r *repo) Attach(conn *websocket.Conn) string {
	funcName := "wsplayer.Attach"
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		r.logger.Info(funcName, "replaced_conn_id", r.connID)
		r.conn.Close()
	}

	r.conn = conn
	r.connID = uuid.NewString()
	r.status = Status{Paused: true}

	r.logger.Debug(funcName, "conn_id", r.connID)
	return r.connID
}

// Detach forgets the connection if connID is still the current one.
func (r *repo) Detach(connID string) bool {
	funcName := "wsplayer.Detach"
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connID != connID || r.conn == nil {
		r.logger.Debug(funcName, "conn_id", connID, "result", "stale")
		return false
	}

	r.conn = nil
	r.connID = ""
	r.status = Status{Paused: true}

	r.logger.Debug(funcName, "conn_id", connID, "result", "OK")
	return true
}

func (r *repo) UpdateStatus(params *UpdateStatusParams) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status = Status{
		Position:  params.Position,
		Paused:    params.Paused,
		Loaded:    true,
		UpdatedAt: r.clock.Now(),
	}
}

// Unload marks that nothing is playing any more.
func (r *repo) Unload() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.Loaded = false
	r.status.Paused = true
	r.status.UpdatedAt = r.clock.Now()
}

func (r *repo) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.status
}

func (r *repo) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.conn != nil
}

// Position extrapolates the last reported position while playing.
func (r *repo) Position() (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.status.Loaded {
		return 0, false
	}

	if r.status.Paused {
		return r.status.Position, true
	}

	return r.status.Position + r.clock.Since(r.status.UpdatedAt).Seconds(), true
}

func (r *repo) IsPlaying() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.conn != nil && r.status.Loaded
}

func (r *repo) SetPaused(ctx context.Context, paused bool) error {
	return r.write(ctx, &command{
		Type:    "SET_PAUSED",
		Payload: map[string]any{"paused": paused},
	})
}

func (r *repo) SeekTo(ctx context.Context, position float64) error {
	return r.write(ctx, &command{
		Type:    "SEEK",
		Payload: map[string]any{"position": position},
	})
}

func (r *repo) Notify(ctx context.Context, title, message string) error {
	r.logger.InfoContext(ctx, "notification", "title", title, "message", message)

	return r.write(ctx, &command{
		Type: "NOTIFY",
		Payload: map[string]any{
			"title":   title,
			"message": message,
		},
	})
}

func (r *repo) write(ctx context.Context, cmd *command) error {
	r.mu.RLock()
	conn := r.conn
	r.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	return r.writeConn(ctx, conn, cmd)
}

// WriteTo sends a message to a page connection that may not be the current one, such as an
// error reply from its read loop. It shares the lock of every other page write.
func (r *repo) WriteTo(ctx context.Context, conn *websocket.Conn, msgType string, payload any) error {
	return r.writeConn(ctx, conn, &command{
		Type:    msgType,
		Payload: payload,
	})
}

// writeConn is the only place that writes to a page connection; gorilla/websocket allows one
// writer at a time.
func (r *repo) writeConn(ctx context.Context, conn *websocket.Conn, cmd *command) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	deadline := time.Now().Add(r.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("failed to write %s: %w", cmd.Type, err)
	}

	return nil
}
