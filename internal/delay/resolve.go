package delay

import (
	"math"

	"github.com/cbegin/analogdelay-go/internal/params"
	"github.com/cbegin/analogdelay-go/internal/tempo"
)

// DefaultBPM is used in sync mode when the host reports no usable tempo.
const DefaultBPM = 120.0

// ControlReader is the read side of the parameter store.
type ControlReader interface {
	Sync() params.SyncMode
	DelayTime() float64
	Division() params.NoteDivision
	Feedback() float64
	Mix() float64
}

// Multiplier returns the length of d in quarter notes.
//
// 1/4T resolves to 1/6, the same as 1/16T, not the musical 2/3.
func Multiplier(d params.NoteDivision) float64 {
	switch params.ClampDivision(int(d)) {
	case params.DivisionWhole:
		return 4
	case params.DivisionHalf:
		return 2
	case params.DivisionQuarter:
		return 1
	case params.DivisionEighth:
		return 0.5
	case params.DivisionSixteenth:
		return 0.25
	case params.DivisionEighthTriplet:
		return 1.0 / 3
	case params.DivisionSixteenthTriplet:
		return 1.0 / 6
	case params.DivisionQuarterTriplet:
		return 1.0 / 6
	}
	return 1
}

// SyncedDelayMs is the length of division d at bpm. Non-positive or
// non-finite tempos fall back to DefaultBPM.
func SyncedDelayMs(bpm float64, d params.NoteDivision) float64 {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		bpm = DefaultBPM
	}
	return 60000 / bpm * Multiplier(d)
}

// Resolve computes the engine runtime from the current controls. It reads
// each control once and keeps no state, so it can run every block. A nil
// host means no tempo is available.
func Resolve(c ControlReader, host tempo.Source) Runtime {
	rt := Runtime{
		Feedback: float32(clamp(c.Feedback(), 0, params.MaxFeedback)),
		Mix:      float32(clamp(c.Mix(), 0, 1)),
	}
	if c.Sync() == params.SyncTempo {
		bpm := DefaultBPM
		if host != nil {
			if v, ok := host.BPM(); ok {
				bpm = v
			}
		}
		rt.DelayMs = SyncedDelayMs(bpm, c.Division())
	} else {
		rt.DelayMs = c.DelayTime()
	}
	return rt
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
