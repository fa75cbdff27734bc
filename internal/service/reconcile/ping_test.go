package reconcile

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/syncplay/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestMovingAverageEstimator(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	e := NewMovingAverageEstimator(clock)

	sent := clock.Now()
	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, e.Estimate(sent, 0))

	sent = clock.Now()
	clock.Advance(200 * time.Millisecond)
	// 0.85*100ms + 0.15*200ms
	assert.Equal(t, 115*time.Millisecond, e.Estimate(sent, 0))
}

func TestMovingAverageEstimatorUsesRemoteRTT(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	e := NewMovingAverageEstimator(clock)

	sent := clock.Now()
	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, 80*time.Millisecond, e.Estimate(sent, 60*time.Millisecond))
}

func TestMovingAverageEstimatorIgnoresFutureTimestamps(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	e := NewMovingAverageEstimator(clock)

	sent := clock.Now()
	clock.Advance(50 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, e.Estimate(sent, 0))

	assert.Equal(t, 50*time.Millisecond, e.Estimate(clock.Now().Add(time.Hour), 0))
}

type fixedEstimator time.Duration

func (f fixedEstimator) Estimate(time.Time, time.Duration) time.Duration {
	return time.Duration(f)
}

func TestPingerNext(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(2000, 0))
	p := pinger{clock: clock, estimator: fixedEstimator(30 * time.Millisecond)}

	prev := domain.PingSample{ProbeID: "1", LocalSentAt: time.Unix(1999, 0), LastRTT: 10 * time.Millisecond}

	t.Run("probe without round trip keeps rtt", func(t *testing.T) {
		next := p.next(prev, domain.Probe{ProbeID: "2"})
		assert.Equal(t, domain.ProbeID("2"), next.ProbeID)
		assert.Equal(t, clock.Now(), next.LocalSentAt)
		assert.Equal(t, 10*time.Millisecond, next.LastRTT)
	})

	t.Run("completed round trip updates rtt", func(t *testing.T) {
		acked := time.Unix(1999, 0)
		rtt := 20 * time.Millisecond
		next := p.next(prev, domain.Probe{ProbeID: "3", AckedLocalSentAt: &acked, RemoteRTT: &rtt})
		assert.Equal(t, domain.ProbeID("3"), next.ProbeID)
		assert.Equal(t, 30*time.Millisecond, next.LastRTT)
	})

	t.Run("negative remote rtt is ignored", func(t *testing.T) {
		acked := time.Unix(1999, 0)
		rtt := -time.Second
		next := p.next(prev, domain.Probe{ProbeID: "4", AckedLocalSentAt: &acked, RemoteRTT: &rtt})
		assert.Equal(t, 10*time.Millisecond, next.LastRTT)
	})

	t.Run("malformed probe leaves sample in place", func(t *testing.T) {
		assert.Equal(t, prev, p.next(prev, domain.Probe{}))
	})
}
