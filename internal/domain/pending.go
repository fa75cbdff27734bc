package domain

import "fmt"

type PendingKind int

const (
	PendingNone PendingKind = iota
	// PendingLocal is a change proposed by this client and not yet acknowledged.
	PendingLocal
	// PendingRemote is a change the coordinator announced on behalf of some peer.
	PendingRemote
)

func (k PendingKind) String() string {
	switch k {
	case PendingNone:
		return "none"
	case PendingLocal:
		return "local"
	case PendingRemote:
		return "remote"
	default:
		return fmt.Sprintf("PendingKind(%d)", int(k))
	}
}

func (k PendingKind) Valid() bool {
	return k >= PendingNone && k <= PendingRemote
}

// PendingChange holds at most one in-flight proposal. Marker is the counter carried on the
// wire next to the proposal and is echoed back unchanged for remote proposals.
type PendingChange struct {
	Kind   PendingKind `json:"kind"`
	Marker int64       `json:"marker,omitempty"`
}

func NoPending() PendingChange {
	return PendingChange{Kind: PendingNone}
}

func LocalPending(marker int64) PendingChange {
	return PendingChange{Kind: PendingLocal, Marker: marker}
}

func RemotePending(marker int64) PendingChange {
	return PendingChange{Kind: PendingRemote, Marker: marker}
}

func (p PendingChange) IsNone() bool {
	return p.Kind == PendingNone
}

func (p PendingChange) String() string {
	if p.Kind == PendingNone {
		return p.Kind.String()
	}

	return fmt.Sprintf("%s(%d)", p.Kind, p.Marker)
}
