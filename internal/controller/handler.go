package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sharetube/syncplay/internal/repository/player/wsplayer"
)

type stateResponse struct {
	SessionID       string          `json:"session_id"`
	Position        float64         `json:"position"`
	Paused          bool            `json:"paused"`
	Pending         string          `json:"pending"`
	RTT             float64         `json:"rtt"`
	Seeking         bool            `json:"seeking"`
	PlayerConnected bool            `json:"player_connected"`
	Player          wsplayer.Status `json:"player"`
}

func (c controller) getState(w http.ResponseWriter, r *http.Request) {
	snapshot := c.engine.Snapshot()

	resp := stateResponse{
		SessionID:       c.sessionID,
		Position:        snapshot.Play.Position,
		Paused:          snapshot.Play.Paused,
		Pending:         snapshot.Pending.String(),
		RTT:             snapshot.Ping.LastRTT.Seconds(),
		Seeking:         c.engine.IsSeeking(),
		PlayerConnected: c.player.IsConnected(),
		Player:          c.player.Status(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		c.logger.WarnContext(r.Context(), "failed to write state", "error", err)
	}
}

func (c controller) connectPlayer(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	connID := c.player.Attach(conn)
	defer func() {
		if c.player.Detach(connID) {
			c.logger.InfoContext(context.WithoutCancel(r.Context()), "player disconnected", "conn_id", connID)
		}
	}()

	c.logger.InfoContext(r.Context(), "player connected", "conn_id", connID)

	if err := c.wsmux.ServeConn(r.Context(), conn); err != nil {
		c.logger.InfoContext(r.Context(), "player connection closed", "error", err)
		return
	}
}
