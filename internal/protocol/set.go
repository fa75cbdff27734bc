package protocol

type File struct {
	Name     string  `json:"name"`
	Duration float64 `json:"duration"`
	Size     int64   `json:"size"`
}

type Ready struct {
	IsReady           bool `json:"isReady"`
	ManuallyInitiated bool `json:"manuallyInitiated"`
}

type Set struct {
	File  *File  `json:"file,omitempty"`
	Ready *Ready `json:"ready,omitempty"`
}

type SetMessage struct {
	Set Set `json:"Set"`
}

func NewFileMessage(name string, duration float64) SetMessage {
	if duration < 0 {
		duration = 0
	}

	return SetMessage{Set: Set{File: &File{Name: name, Duration: duration}}}
}

func NewReadyMessage(isReady bool) SetMessage {
	return SetMessage{Set: Set{Ready: &Ready{IsReady: isReady}}}
}

type Error struct {
	Message string `json:"message"`
}
