package reconcile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/sharetube/syncplay/internal/domain"
	"github.com/sharetube/syncplay/internal/settings"
)

const notificationTitle = "Syncplay"

type iPlayer interface {
	// Position reports the playback position, false when the player has nothing to report.
	Position() (float64, bool)
	// IsPlaying reports whether media is loaded, paused or not.
	IsPlaying() bool
	SetPaused(ctx context.Context, paused bool) error
	SeekTo(ctx context.Context, position float64) error
}

type iNotifier interface {
	Notify(ctx context.Context, title, message string) error
}

type iSender interface {
	SendState(ctx context.Context, snapshot domain.LocalSnapshot) error
}

type Config struct {
	// SelfID is the name the coordinator uses for this client in setBy.
	SelfID    string
	Settings  settings.Settings
	Clock     clockwork.Clock
	Estimator LatencyEstimator
}

type service struct {
	player   iPlayer
	notifier iNotifier
	sender   iSender
	clock    clockwork.Clock
	logger   *slog.Logger
	selfID   string
	settings settings.Settings

	pinger  pinger
	arbiter arbiter

	// mu guards everything below and serializes heartbeats.
	mu       sync.Mutex
	snapshot domain.LocalSnapshot
	seeking  int
}

func NewService(player iPlayer, notifier iNotifier, sender iSender, cfg *Config, logger *slog.Logger) *service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	estimator := cfg.Estimator
	if estimator == nil {
		estimator = NewMovingAverageEstimator(clock)
	}

	return &service{
		player:   player,
		notifier: notifier,
		sender:   sender,
		clock:    clock,
		logger:   logger,
		selfID:   cfg.SelfID,
		settings: cfg.Settings,
		pinger: pinger{
			clock:     clock,
			estimator: estimator,
		},
		snapshot: domain.NewLocalSnapshot(),
	}
}

// Snapshot returns a copy of the state broadcast with the next heartbeat.
func (s *service) Snapshot() domain.LocalSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot
}

func (s *service) IsSeeking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.seeking > 0
}
