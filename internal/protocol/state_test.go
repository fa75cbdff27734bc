package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sharetube/syncplay/internal/domain"
	"github.com/sharetube/syncplay/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStateFull(t *testing.T) {
	payload := json.RawMessage(`{
		"ping": {"latencyCalculation": 1700000000.123456, "clientLatencyCalculation": 1700000001.5, "serverRtt": 0.04},
		"playstate": {"position": 12.5, "paused": false, "doSeek": true, "setBy": "alice"},
		"ignoringOnTheFly": {"server": 3}
	}`)

	remote, err := DecodeState(payload, validator.NewValidator())
	require.NoError(t, err)

	assert.Equal(t, domain.ProbeID("1700000000.123456"), remote.Probe.ProbeID)
	require.True(t, remote.Probe.HasRoundTrip())
	assert.Equal(t, int64(1700000001), remote.Probe.AckedLocalSentAt.Unix())
	assert.Equal(t, 40*time.Millisecond, *remote.Probe.RemoteRTT)

	assert.Equal(t, domain.PlayState{Position: 12.5, Paused: false, ExplicitSeek: true, OriginID: "alice"}, remote.Play)
	assert.Equal(t, domain.RemotePending(3), remote.Pending)
}

func TestDecodeStateMinimal(t *testing.T) {
	payload := json.RawMessage(`{"playstate": {"position": 0, "paused": true, "setBy": null}}`)

	remote, err := DecodeState(payload, validator.NewValidator())
	require.NoError(t, err)

	assert.Equal(t, domain.Probe{}, remote.Probe)
	assert.Equal(t, domain.PlayState{Position: 0, Paused: true}, remote.Play)
	assert.True(t, remote.Pending.IsNone())
}

func TestDecodeStatePingWithoutRoundTrip(t *testing.T) {
	payload := json.RawMessage(`{"ping": {"latencyCalculation": 5}, "playstate": {"position": 1, "paused": true}}`)

	remote, err := DecodeState(payload, validator.NewValidator())
	require.NoError(t, err)
	assert.Equal(t, domain.ProbeID("5"), remote.Probe.ProbeID)
	assert.False(t, remote.Probe.HasRoundTrip())
}

func TestDecodeStateMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":         `{`,
		"no playstate":     `{"ping": {"latencyCalculation": 1}}`,
		"missing position": `{"playstate": {"paused": true}}`,
		"missing paused":   `{"playstate": {"position": 3}}`,
		"wrong type":       `{"playstate": {"position": "3", "paused": true}}`,
	}

	v := validator.NewValidator()
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeState(json.RawMessage(payload), v)
			assert.ErrorIs(t, err, ErrMalformedState)
		})
	}
}

func TestDecodePendingMarkers(t *testing.T) {
	cases := []struct {
		name string
		iotf string
		want domain.PendingChange
	}{
		{"server", `{"server": 2}`, domain.RemotePending(2)},
		{"client", `{"client": 1}`, domain.LocalPending(1)},
		{"client bool", `{"client": true}`, domain.LocalPending(1)},
		{"server zero", `{"server": 0}`, domain.NoPending()},
		{"empty", `{}`, domain.NoPending()},
		{"null", `null`, domain.NoPending()},
	}

	v := validator.NewValidator()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := json.RawMessage(`{"playstate": {"position": 1, "paused": true}, "ignoringOnTheFly": ` + tc.iotf + `}`)
			remote, err := DecodeState(payload, v)
			require.NoError(t, err)
			assert.Equal(t, tc.want, remote.Pending)
		})
	}
}

func TestNewStateMessageWireShape(t *testing.T) {
	sentAt := time.Unix(1700000000, 500_000_000)
	snapshot := domain.LocalSnapshot{
		Ping: domain.PingSample{
			ProbeID:     "1699999999.25",
			LocalSentAt: sentAt,
			LastRTT:     80 * time.Millisecond,
		},
		Play: domain.PlayState{
			Position:     50,
			Paused:       false,
			ExplicitSeek: true,
		},
		Pending: domain.LocalPending(4),
	}

	data, err := json.Marshal(NewStateMessage(snapshot))
	require.NoError(t, err)

	assert.JSONEq(t, `{"State":{
		"ping":{"latencyCalculation":1699999999.25,"clientLatencyCalculation":1700000000.5,"clientRtt":0.08},
		"playstate":{"position":50,"paused":false,"doSeek":true},
		"ignoringOnTheFly":{"client":4}
	}}`, string(data))
}

func TestNewStateMessageDefaults(t *testing.T) {
	data, err := json.Marshal(NewStateMessage(domain.NewLocalSnapshot()))
	require.NoError(t, err)

	assert.JSONEq(t, `{"State":{
		"ping":{"latencyCalculation":0,"clientLatencyCalculation":0,"clientRtt":0},
		"playstate":{"position":0,"paused":true}
	}}`, string(data))
}

func TestNewStateMessageEchoesServerMarker(t *testing.T) {
	snapshot := domain.NewLocalSnapshot()
	snapshot.Pending = domain.RemotePending(9)

	msg := NewStateMessage(snapshot)
	require.NotNil(t, msg.State.IgnoringOnTheFly)
	assert.JSONEq(t, `9`, string(msg.State.IgnoringOnTheFly.Server))
	assert.Nil(t, msg.State.IgnoringOnTheFly.Client)
}

func TestSetMessages(t *testing.T) {
	data, err := json.Marshal(NewFileMessage("movie.mkv", 5400.5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Set":{"file":{"name":"movie.mkv","duration":5400.5,"size":0}}}`, string(data))

	data, err = json.Marshal(NewReadyMessage(true))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Set":{"ready":{"isReady":true,"manuallyInitiated":false}}}`, string(data))
}
