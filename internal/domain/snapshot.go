package domain

// LocalSnapshot is the state this client broadcasts with every heartbeat.
type LocalSnapshot struct {
	Ping    PingSample    `json:"ping"`
	Play    PlayState     `json:"play"`
	Pending PendingChange `json:"pending"`
}

func NewLocalSnapshot() LocalSnapshot {
	return LocalSnapshot{
		Play: PlayState{
			Position: 0,
			Paused:   true,
		},
		Pending: NoPending(),
	}
}

// RemoteState is a state message received from the coordinator.
type RemoteState struct {
	Probe   Probe
	Play    PlayState
	Pending PendingChange
}
