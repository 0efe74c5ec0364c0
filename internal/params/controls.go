package params

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
)

// SyncMode selects between a free-running delay time and a tempo-derived one.
type SyncMode int32

const (
	SyncFree SyncMode = iota
	SyncTempo
)

func (m SyncMode) String() string {
	if m == SyncTempo {
		return "Sync"
	}
	return "Free"
}

// ParseSyncMode accepts "free" or "sync" (case-insensitive).
func ParseSyncMode(s string) (SyncMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "free":
		return SyncFree, nil
	case "sync", "tempo":
		return SyncTempo, nil
	default:
		return SyncFree, fmt.Errorf("invalid sync mode %q (expected free|sync)", s)
	}
}

// NoteDivision is a musical note length used when the delay is tempo synced.
type NoteDivision int32

const (
	DivisionWhole NoteDivision = iota
	DivisionHalf
	DivisionQuarter
	DivisionEighth
	DivisionSixteenth
	DivisionEighthTriplet
	DivisionSixteenthTriplet
	DivisionQuarterTriplet

	NumDivisions = 8
)

var divisionNames = [NumDivisions]string{"1/1", "1/2", "1/4", "1/8", "1/16", "1/8T", "1/16T", "1/4T"}

// ClampDivision maps any stored index onto a valid division.
func ClampDivision(idx int) NoteDivision {
	if idx < 0 {
		return DivisionWhole
	}
	if idx >= NumDivisions {
		return DivisionQuarterTriplet
	}
	return NoteDivision(idx)
}

func (d NoteDivision) String() string {
	return divisionNames[ClampDivision(int(d))]
}

// ParseNoteDivision accepts the display names ("1/8T") case-insensitively.
func ParseNoteDivision(s string) (NoteDivision, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range divisionNames {
		if s == name {
			return NoteDivision(i), nil
		}
	}
	return DivisionQuarter, fmt.Errorf("invalid note division %q (expected one of %s)", s, strings.Join(divisionNames[:], "|"))
}

// Control ranges.
const (
	MinDelayTimeMs = 10.0
	MaxDelayTimeMs = 2000.0
	MaxFeedback    = 0.95
)

// Defaults used by NewControls.
const (
	DefaultSync         = SyncTempo
	DefaultDelayTimeMs  = 400.0
	DefaultNoteDivision = DivisionQuarter
	DefaultFeedback     = 0.35
	DefaultMix          = 0.5
)

// Controls holds the five user-facing delay controls. Every field is an
// independent atomic scalar: a UI goroutine writes, the render goroutine
// reads, and no multi-field consistency is promised.
type Controls struct {
	sync      atomic.Int32
	delayTime atomic.Uint64 // float64 bits
	division  atomic.Int32
	feedback  atomic.Uint64
	mix       atomic.Uint64
}

func NewControls() *Controls {
	c := &Controls{}
	c.SetSync(DefaultSync)
	c.SetDelayTime(DefaultDelayTimeMs)
	c.SetDivision(DefaultNoteDivision)
	c.SetFeedback(DefaultFeedback)
	c.SetMix(DefaultMix)
	return c
}

func (c *Controls) Sync() SyncMode { return SyncMode(c.sync.Load()) }

func (c *Controls) SetSync(m SyncMode) {
	if m != SyncTempo {
		m = SyncFree
	}
	c.sync.Store(int32(m))
}

// DelayTime returns the manual delay time in milliseconds.
func (c *Controls) DelayTime() float64 { return math.Float64frombits(c.delayTime.Load()) }

func (c *Controls) SetDelayTime(ms float64) {
	c.delayTime.Store(math.Float64bits(clamp(ms, MinDelayTimeMs, MaxDelayTimeMs, DefaultDelayTimeMs)))
}

func (c *Controls) Division() NoteDivision { return NoteDivision(c.division.Load()) }

func (c *Controls) SetDivision(d NoteDivision) {
	c.division.Store(int32(ClampDivision(int(d))))
}

func (c *Controls) Feedback() float64 { return math.Float64frombits(c.feedback.Load()) }

func (c *Controls) SetFeedback(v float64) {
	c.feedback.Store(math.Float64bits(clamp(v, 0, MaxFeedback, DefaultFeedback)))
}

func (c *Controls) Mix() float64 { return math.Float64frombits(c.mix.Load()) }

func (c *Controls) SetMix(v float64) {
	c.mix.Store(math.Float64bits(clamp(v, 0, 1, DefaultMix)))
}

// clamp bounds v to [lo, hi]; NaN falls back to def.
func clamp(v, lo, hi, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
