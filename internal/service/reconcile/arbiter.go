package reconcile

import (
	"github.com/sharetube/syncplay/internal/domain"
)

type verdict int

const (
	// verdictRunDrift lets the drift policy correct the player.
	verdictRunDrift verdict = iota
	// verdictForceApply snaps the player to the remote state without tolerance checks.
	verdictForceApply
	// verdictSuppress leaves the player alone for this round.
	verdictSuppress
)

func (v verdict) String() string {
	switch v {
	case verdictRunDrift:
		return "run_drift"
	case verdictForceApply:
		return "force_apply"
	case verdictSuppress:
		return "suppress"
	default:
		return "unknown"
	}
}

// arbiter decides, from the single pending marker, whether a coordinator round may be used
// for drift correction. It only computes transitions; the caller stores the pending value.
type arbiter struct {
	localSeq int64
}

// remote returns the pending value after observing remote and what to do with its play state.
func (a *arbiter) remote(current domain.PendingChange, remote domain.RemoteState, selfID string) (domain.PendingChange, verdict) {
	if !current.Kind.Valid() {
		// unreachable through propose/remote; resync from this round
		current = domain.NoPending()
	}

	switch remote.Pending.Kind {
	case domain.PendingRemote:
		next := domain.RemotePending(remote.Pending.Marker)
		if remote.Play.OriginID == selfID {
			// our own change reflected back as authoritative, the player already has it
			return next, verdictSuppress
		}
		return next, verdictForceApply
	case domain.PendingLocal:
		// coordinator acknowledged a client proposal
		return domain.NoPending(), verdictSuppress
	case domain.PendingNone:
		if !current.IsNone() {
			return domain.NoPending(), verdictSuppress
		}
		return current, verdictRunDrift
	default:
		return domain.NoPending(), verdictSuppress
	}
}

// propose starts a local proposal. It fails while any change is pending.
func (a *arbiter) propose(current domain.PendingChange) (domain.PendingChange, bool) {
	if current.Kind.Valid() && !current.IsNone() {
		return current, false
	}

	a.localSeq++
	return domain.LocalPending(a.localSeq), true
}
