package domain

import "time"

// ProbeID is the coordinator's latency probe token, kept as the raw JSON text it arrived as.
type ProbeID string

type PingSample struct {
	ProbeID     ProbeID       `json:"probe_id"`
	LocalSentAt time.Time     `json:"local_sent_at"`
	LastRTT     time.Duration `json:"last_rtt"`
}

// Probe is the ping section of a coordinator message. AckedLocalSentAt and RemoteRTT are
// only present once the coordinator completed a round trip of ours.
type Probe struct {
	ProbeID          ProbeID
	AckedLocalSentAt *time.Time
	RemoteRTT        *time.Duration
}

func (p Probe) HasRoundTrip() bool {
	return p.AckedLocalSentAt != nil && p.RemoteRTT != nil
}
