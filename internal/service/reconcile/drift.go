package reconcile

import (
	"fmt"
	"math"
)

type ActionKind int

const (
	NoAction ActionKind = iota
	SyncPause
	SeekTo
	NotifyOnly
)

func (k ActionKind) String() string {
	switch k {
	case NoAction:
		return "none"
	case SyncPause:
		return "sync_pause"
	case SeekTo:
		return "seek_to"
	case NotifyOnly:
		return "notify_only"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

type SeekReason int

const (
	SeekExplicit SeekReason = iota + 1
	SeekForward
	SeekBack
)

type Action struct {
	Kind     ActionKind
	Reason   SeekReason
	Position float64
	// Diff is remote minus local position: positive when behind, negative when ahead.
	Diff float64
}

// DriftInput holds everything Decide looks at. All durations are in seconds.
type DriftInput struct {
	LocalPosition   float64
	RemotePosition  float64
	LocalPaused     bool
	RemotePaused    bool
	ExplicitSeek    bool
	Tolerance       float64
	RewindThreshold float64
	RewindDisabled  bool
	HalfRTT         float64
}

// RewindThreshold never lets the rewind band get narrower than twice the forward band.
func RewindThreshold(tolerance, threshold float64) float64 {
	return math.Max(2*tolerance, threshold)
}

// Decide picks the correction for a measured drift. The first matching rule wins.
func Decide(in DriftInput) Action {
	effectiveTolerance := in.Tolerance
	if in.HalfRTT > 0 {
		effectiveTolerance += in.HalfRTT
	}
	rewindThreshold := RewindThreshold(in.Tolerance, in.RewindThreshold)
	diff := in.RemotePosition - in.LocalPosition

	switch {
	case in.LocalPaused != in.RemotePaused:
		return Action{Kind: SyncPause, Position: in.RemotePosition, Diff: diff}
	case in.ExplicitSeek:
		return Action{Kind: SeekTo, Reason: SeekExplicit, Position: in.RemotePosition, Diff: diff}
	case math.Abs(diff) <= effectiveTolerance:
		return Action{Kind: NoAction, Position: in.LocalPosition, Diff: diff}
	case diff > effectiveTolerance:
		return Action{Kind: SeekTo, Reason: SeekForward, Position: in.RemotePosition, Diff: diff}
	case diff < -rewindThreshold && !in.RewindDisabled:
		return Action{Kind: SeekTo, Reason: SeekBack, Position: in.RemotePosition, Diff: diff}
	case diff < -in.Tolerance && in.RewindDisabled:
		return Action{Kind: NotifyOnly, Position: in.LocalPosition, Diff: diff}
	default:
		// slightly ahead: left alone to avoid repeated micro-rewinds
		return Action{Kind: NoAction, Position: in.LocalPosition, Diff: diff}
	}
}
