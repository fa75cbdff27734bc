package settings

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const (
	DefaultTolerance       = 1000 * time.Millisecond
	DefaultRewindThreshold = 3.0
	DefaultRewindDisabled  = false
	DefaultSeekSettle      = 500 * time.Millisecond
)

// Raw holds sync settings as they come from flags, env or a settings file. Any field may be
// empty or garbage.
type Raw struct {
	ToleranceMs     string
	RewindThreshold string
	DisableRewind   string
	SeekSettleMs    string
}

// Settings are the validated, already-defaulted sync tunables.
type Settings struct {
	Tolerance       time.Duration `json:"tolerance"`
	RewindThreshold float64       `json:"rewind_threshold"`
	RewindDisabled  bool          `json:"rewind_disabled"`
	SeekSettle      time.Duration `json:"seek_settle"`
}

func Default() Settings {
	return Settings{
		Tolerance:       DefaultTolerance,
		RewindThreshold: DefaultRewindThreshold,
		RewindDisabled:  DefaultRewindDisabled,
		SeekSettle:      DefaultSeekSettle,
	}
}

// Load parses raw settings once. Values that are missing or invalid fall back to their
// defaults; it never fails.
func Load(raw Raw) Settings {
	s := Default()

	if ms, ok := parseNonNegative(raw.ToleranceMs); ok {
		s.Tolerance = time.Duration(ms * float64(time.Millisecond))
	}

	if sec, ok := parseNonNegative(raw.RewindThreshold); ok && sec > 0 {
		s.RewindThreshold = sec
	}

	if v := strings.TrimSpace(raw.DisableRewind); v != "" {
		if b, err := cast.ToBoolE(v); err == nil {
			s.RewindDisabled = b
		}
	}

	if ms, ok := parseNonNegative(raw.SeekSettleMs); ok {
		s.SeekSettle = time.Duration(ms * float64(time.Millisecond))
	}

	return s
}

func (s Settings) ToleranceSeconds() float64 {
	return s.Tolerance.Seconds()
}

func parseNonNegative(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}

	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}

	return f, true
}
