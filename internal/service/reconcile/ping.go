package reconcile

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/syncplay/internal/domain"
)

const defaultRTTWeight = 0.85

// LatencyEstimator turns a completed round trip into this side's RTT estimate. ackedSentAt
// is our own send time as echoed by the coordinator, remoteRTT the coordinator's measurement.
type LatencyEstimator interface {
	Estimate(ackedSentAt time.Time, remoteRTT time.Duration) time.Duration
}

// MovingAverageEstimator smooths RTT samples with an exponentially weighted moving average.
// When the coordinator reports a positive RTT of its own, the sample is the mean of both
// measurements of the same path.
type MovingAverageEstimator struct {
	clock  clockwork.Clock
	weight float64

	mu     sync.Mutex
	avg    time.Duration
	primed bool
}

func NewMovingAverageEstimator(clock clockwork.Clock) *MovingAverageEstimator {
	return &MovingAverageEstimator{
		clock:  clock,
		weight: defaultRTTWeight,
	}
}

func (e *MovingAverageEstimator) Estimate(ackedSentAt time.Time, remoteRTT time.Duration) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	raw := e.clock.Now().Sub(ackedSentAt)
	if raw < 0 {
		return e.avg
	}

	sample := raw
	if remoteRTT > 0 {
		sample = (raw + remoteRTT) / 2
	}

	if !e.primed {
		e.avg = sample
		e.primed = true
		return e.avg
	}

	e.avg = time.Duration(e.weight*float64(e.avg) + (1-e.weight)*float64(sample))
	return e.avg
}

type pinger struct {
	clock     clockwork.Clock
	estimator LatencyEstimator
}

// next returns the ping sample to send after receiving probe. Probes without an id are
// ignored and leave prev in place.
func (p *pinger) next(prev domain.PingSample, probe domain.Probe) domain.PingSample {
	if probe.ProbeID == "" {
		return prev
	}

	sample := domain.PingSample{
		ProbeID:     probe.ProbeID,
		LocalSentAt: p.clock.Now(),
		LastRTT:     prev.LastRTT,
	}

	if probe.HasRoundTrip() && *probe.RemoteRTT >= 0 {
		if rtt := p.estimator.Estimate(*probe.AckedLocalSentAt, *probe.RemoteRTT); rtt >= 0 {
			sample.LastRTT = rtt
		}
	}

	return sample
}
