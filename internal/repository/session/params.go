package session

type RecordHeartbeatParams struct {
	SessionID    string
	Position     float64
	Paused       bool
	ExplicitSeek bool
	Pending      string
	ClientRTT    float64
	SentAt       int64
}

type RecordRemoteStateParams struct {
	SessionID    string
	Position     float64
	Paused       bool
	ExplicitSeek bool
	SetBy        string
	Pending      string
	ReceivedAt   int64
}
