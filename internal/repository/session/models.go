package session

type Heartbeat struct {
	Position     float64 `redis:"position" json:"position"`
	Paused       bool    `redis:"paused" json:"paused"`
	ExplicitSeek bool    `redis:"explicit_seek" json:"explicit_seek"`
	Pending      string  `redis:"pending" json:"pending"`
	ClientRTT    float64 `redis:"client_rtt" json:"client_rtt"`
	SentAt       int64   `redis:"sent_at" json:"sent_at"`
	Count        int64   `redis:"count" json:"count"`
}

type RemoteState struct {
	Position     float64 `redis:"position" json:"position"`
	Paused       bool    `redis:"paused" json:"paused"`
	ExplicitSeek bool    `redis:"explicit_seek" json:"explicit_seek"`
	SetBy        string  `redis:"set_by" json:"set_by"`
	Pending      string  `redis:"pending" json:"pending"`
	ReceivedAt   int64   `redis:"received_at" json:"received_at"`
	Count        int64   `redis:"count" json:"count"`
}
