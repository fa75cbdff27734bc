package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sharetube/syncplay/internal/domain"
	"github.com/sharetube/syncplay/pkg/validator"
)

var ErrMalformedState = errors.New("malformed state message")

type Ping struct {
	LatencyCalculation       json.RawMessage `json:"latencyCalculation,omitempty"`
	ClientLatencyCalculation *float64        `json:"clientLatencyCalculation,omitempty"`
	ServerRtt                *float64        `json:"serverRtt,omitempty"`
	ClientRtt                *float64        `json:"clientRtt,omitempty"`
}

type PlayState struct {
	Position *float64 `json:"position" validate:"required"`
	Paused   *bool    `json:"paused" validate:"required"`
	DoSeek   *bool    `json:"doSeek,omitempty"`
	SetBy    *string  `json:"setBy,omitempty"`
}

// IgnoringOnTheFly carries exactly one of the two markers. The coordinator uses integer
// counters, anything else that is not null/false counts as set.
type IgnoringOnTheFly struct {
	Server json.RawMessage `json:"server,omitempty"`
	Client json.RawMessage `json:"client,omitempty"`
}

type State struct {
	Ping             *Ping             `json:"ping,omitempty"`
	PlayState        *PlayState        `json:"playstate" validate:"required"`
	IgnoringOnTheFly *IgnoringOnTheFly `json:"ignoringOnTheFly,omitempty"`
}

type StateMessage struct {
	State State `json:"State"`
}

// DecodeState turns the payload of a "State" message into a RemoteState. A missing or
// incomplete playstate makes the whole message invalid, a missing ping only means no
// latency update.
func DecodeState(payload json.RawMessage, v *validator.Validator) (domain.RemoteState, error) {
	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return domain.RemoteState{}, fmt.Errorf("%w: %w", ErrMalformedState, err)
	}

	if err := v.Check(&state); err != nil {
		return domain.RemoteState{}, fmt.Errorf("%w: %w", ErrMalformedState, err)
	}

	remote := domain.RemoteState{
		Probe: decodeProbe(state.Ping),
		Play: domain.PlayState{
			Position: *state.PlayState.Position,
			Paused:   *state.PlayState.Paused,
		},
		Pending: decodePending(state.IgnoringOnTheFly),
	}

	if state.PlayState.DoSeek != nil {
		remote.Play.ExplicitSeek = *state.PlayState.DoSeek
	}
	if state.PlayState.SetBy != nil {
		remote.Play.OriginID = *state.PlayState.SetBy
	}

	return remote, nil
}

func decodeProbe(p *Ping) domain.Probe {
	if p == nil {
		return domain.Probe{}
	}

	probe := domain.Probe{}
	if isSet(p.LatencyCalculation) {
		probe.ProbeID = domain.ProbeID(bytes.TrimSpace(p.LatencyCalculation))
	}

	if p.ClientLatencyCalculation != nil && *p.ClientLatencyCalculation > 0 {
		sentAt := secondsToTime(*p.ClientLatencyCalculation)
		probe.AckedLocalSentAt = &sentAt
	}

	if p.ServerRtt != nil && !math.IsNaN(*p.ServerRtt) {
		rtt := secondsToDuration(*p.ServerRtt)
		probe.RemoteRTT = &rtt
	}

	return probe
}

func decodePending(iotf *IgnoringOnTheFly) domain.PendingChange {
	if iotf == nil {
		return domain.NoPending()
	}

	if marker, ok := parseMarker(iotf.Server); ok {
		return domain.RemotePending(marker)
	}

	if marker, ok := parseMarker(iotf.Client); ok {
		return domain.LocalPending(marker)
	}

	return domain.NoPending()
}

func parseMarker(raw json.RawMessage) (int64, bool) {
	if !isSet(raw) {
		return 0, false
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, n != 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int64(f), f != 0
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return 1, true
		}
		return 0, false
	}

	// strings, objects: present is enough
	return 1, true
}

func isSet(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// NewStateMessage builds the heartbeat for a local snapshot.
func NewStateMessage(s domain.LocalSnapshot) StateMessage {
	probeID := json.RawMessage("0")
	if s.Ping.ProbeID != "" {
		probeID = json.RawMessage(s.Ping.ProbeID)
	}

	sentAt := timeToSeconds(s.Ping.LocalSentAt)
	rtt := s.Ping.LastRTT.Seconds()
	position := domain.ClampPosition(s.Play.Position)
	paused := s.Play.Paused

	msg := StateMessage{
		State: State{
			Ping: &Ping{
				LatencyCalculation:       probeID,
				ClientLatencyCalculation: &sentAt,
				ClientRtt:                &rtt,
			},
			PlayState: &PlayState{
				Position: &position,
				Paused:   &paused,
			},
		},
	}

	if s.Play.ExplicitSeek {
		doSeek := true
		msg.State.PlayState.DoSeek = &doSeek
	}

	if s.Play.OriginID != "" {
		setBy := s.Play.OriginID
		msg.State.PlayState.SetBy = &setBy
	}

	switch s.Pending.Kind {
	case domain.PendingLocal:
		msg.State.IgnoringOnTheFly = &IgnoringOnTheFly{Client: marker(s.Pending.Marker)}
	case domain.PendingRemote:
		msg.State.IgnoringOnTheFly = &IgnoringOnTheFly{Server: marker(s.Pending.Marker)}
	}

	return msg
}

func marker(n int64) json.RawMessage {
	if n == 0 {
		n = 1
	}
	return json.RawMessage(fmt.Sprintf("%d", n))
}

func secondsToTime(sec float64) time.Time {
	return time.Unix(0, int64(sec*float64(time.Second)))
}

func timeToSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
