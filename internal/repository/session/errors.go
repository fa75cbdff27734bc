package session

import "errors"

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrHeartbeatNotFound   = errors.New("heartbeat not found")
	ErrRemoteStateNotFound = errors.New("remote state not found")
)
