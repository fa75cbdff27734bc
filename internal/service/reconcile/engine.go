package reconcile

import (
	"context"
	"fmt"
	"math"

	"github.com/sharetube/syncplay/internal/domain"
)

type LocalEvent struct {
	Position float64
	Paused   bool
	// Seek marks an explicit seek; Paused is ignored for seeks.
	Seek bool
}

// OnRemoteState reconciles the player with a coordinator state message. Every call ends
// with exactly one heartbeat, whatever the outcome.
func (s *service) OnRemoteState(ctx context.Context, remote domain.RemoteState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Ping = s.pinger.next(s.snapshot.Ping, remote.Probe)
	s.snapshot.Play.Position = s.currentPosition()

	if !s.snapshot.Pending.Kind.Valid() {
		s.logger.WarnContext(ctx, "invalid pending change reset", "pending", s.snapshot.Pending.String())
	}

	next, v := s.arbiter.remote(s.snapshot.Pending, remote, s.selfID)
	if next != s.snapshot.Pending {
		s.logger.DebugContext(ctx, "pending change updated",
			"from", s.snapshot.Pending.String(),
			"to", next.String(),
			"set_by", remote.Play.OriginID,
		)
	}
	s.snapshot.Pending = next

	switch v {
	case verdictForceApply:
		s.forceApply(ctx, remote.Play)
	case verdictRunDrift:
		if s.seeking > 0 {
			s.logger.DebugContext(ctx, "drift check skipped while seeking")
			break
		}
		s.applyDrift(ctx, remote.Play)
	}

	s.transmit(ctx)
}

// OnLocalEvent proposes a change made on the local player. It returns false when the event
// was dropped because another change is still pending.
func (s *service) OnLocalEvent(ctx context.Context, ev LocalEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.arbiter.propose(s.snapshot.Pending)
	if !ok {
		s.logger.DebugContext(ctx, "local event dropped, change already pending",
			"pending", s.snapshot.Pending.String(),
			"position", ev.Position,
			"seek", ev.Seek,
		)
		return false
	}

	s.snapshot.Play.Position = domain.ClampPosition(ev.Position)
	if ev.Seek {
		s.snapshot.Play.ExplicitSeek = true
	} else {
		s.snapshot.Play.Paused = ev.Paused
	}
	s.snapshot.Pending = next

	s.transmit(ctx)

	// one-shot signal, never part of the persisted state
	s.snapshot.Play.ExplicitSeek = false
	return true
}

// HandleSeek holds the seeking window while the player settles after a local seek, then
// proposes the new position. The window is released on every path.
func (s *service) HandleSeek(ctx context.Context) error {
	s.mu.Lock()
	s.seeking++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.seeking--
		s.mu.Unlock()
	}()

	if s.settings.SeekSettle > 0 {
		select {
		case <-s.clock.After(s.settings.SeekSettle):
		case <-ctx.Done():
			return fmt.Errorf("seek interrupted: %w", ctx.Err())
		}
	}

	position, _ := s.player.Position()
	s.OnLocalEvent(ctx, LocalEvent{Position: position, Seek: true})
	return nil
}

func (s *service) currentPosition() float64 {
	if !s.player.IsPlaying() {
		return 0
	}

	position, ok := s.player.Position()
	if !ok {
		return 0
	}

	return domain.ClampPosition(position)
}

// forceApply snaps the player to a state another peer set. The snapshot takes the remote
// values right away since the player reports its new state late.
func (s *service) forceApply(ctx context.Context, remote domain.PlayState) {
	local := s.snapshot.Play
	target := domain.ClampPosition(remote.Position)

	if s.player.IsPlaying() {
		if remote.Paused != local.Paused {
			if err := s.player.SetPaused(ctx, remote.Paused); err != nil {
				s.logger.WarnContext(ctx, "failed to set paused", "error", err)
			}
			s.notify(ctx, fmt.Sprintf("%s %s", remote.OriginID, pausedWord(remote.Paused)))
		}

		if target != local.Position {
			if err := s.player.SeekTo(ctx, target); err != nil {
				s.logger.WarnContext(ctx, "failed to seek", "error", err)
			}
			if remote.ExplicitSeek {
				s.notify(ctx, fmt.Sprintf("%s seeked to %s", remote.OriginID, formatClock(target)))
			}
		}
	}

	s.snapshot.Play.Paused = remote.Paused
	s.snapshot.Play.Position = target
}

func (s *service) applyDrift(ctx context.Context, remote domain.PlayState) {
	local := s.snapshot.Play
	action := Decide(DriftInput{
		LocalPosition:   local.Position,
		RemotePosition:  domain.ClampPosition(remote.Position),
		LocalPaused:     local.Paused,
		RemotePaused:    remote.Paused,
		ExplicitSeek:    remote.ExplicitSeek,
		Tolerance:       s.settings.ToleranceSeconds(),
		RewindThreshold: s.settings.RewindThreshold,
		RewindDisabled:  s.settings.RewindDisabled,
		HalfRTT:         s.snapshot.Ping.LastRTT.Seconds() / 2,
	})

	if action.Kind == NoAction {
		return
	}

	if !s.player.IsPlaying() {
		s.logger.DebugContext(ctx, "drift action skipped, nothing loaded", "action", action.Kind.String())
		return
	}

	s.logger.InfoContext(ctx, "drift correction",
		"action", action.Kind.String(),
		"diff", action.Diff,
		"position", action.Position,
		"set_by", remote.OriginID,
	)

	switch action.Kind {
	case SyncPause:
		if err := s.player.SetPaused(ctx, remote.Paused); err != nil {
			s.logger.WarnContext(ctx, "failed to set paused", "error", err)
		}
		s.snapshot.Play.Paused = remote.Paused
		s.notify(ctx, fmt.Sprintf("%s %s", remote.OriginID, pausedWord(remote.Paused)))
	case SeekTo:
		if err := s.player.SeekTo(ctx, action.Position); err != nil {
			s.logger.WarnContext(ctx, "failed to seek", "error", err)
		}
		s.snapshot.Play.Position = action.Position
		s.notify(ctx, seekMessage(action, remote.OriginID))
	case NotifyOnly:
		s.notify(ctx, fmt.Sprintf("Ahead by %.1fs (rewind disabled)", math.Abs(action.Diff)))
	}
}

func (s *service) transmit(ctx context.Context) {
	if err := s.sender.SendState(ctx, s.snapshot); err != nil {
		s.logger.WarnContext(ctx, "heartbeat not delivered", "error", err)
	}
}

func (s *service) notify(ctx context.Context, message string) {
	if err := s.notifier.Notify(ctx, notificationTitle, message); err != nil {
		s.logger.DebugContext(ctx, "failed to notify", "error", err, "message", message)
	}
}

func seekMessage(action Action, setBy string) string {
	switch action.Reason {
	case SeekForward:
		return fmt.Sprintf("Syncing forward (%.1fs behind) with %s", action.Diff, setBy)
	case SeekBack:
		return fmt.Sprintf("Syncing back (%.1fs ahead) with %s", math.Abs(action.Diff), setBy)
	default:
		return fmt.Sprintf("%s seeked to %s", setBy, formatClock(action.Position))
	}
}

func pausedWord(paused bool) string {
	if paused {
		return "paused"
	}
	return "resumed"
}

// formatClock renders seconds as h:mm:ss.
func formatClock(seconds float64) string {
	total := int64(math.Round(seconds))
	if total < 0 {
		total = 0
	}

	return fmt.Sprintf("%d:%02d:%02d", total/3600, total%3600/60, total%60)
}
