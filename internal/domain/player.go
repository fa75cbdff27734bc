package domain

import "math"

type PlayState struct {
	Position     float64 `json:"position"`
	Paused       bool    `json:"paused"`
	ExplicitSeek bool    `json:"explicit_seek,omitempty"`
	OriginID     string  `json:"origin_id,omitempty"`
}

// ClampPosition maps positions reported by a player that is not ready yet (negative or not a
// number) to 0.
func ClampPosition(position float64) float64 {
	if math.IsNaN(position) || math.IsInf(position, 0) || position < 0 {
		return 0
	}

	return position
}
