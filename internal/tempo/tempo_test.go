package tempo

import (
	"math"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

func TestFixedTempo(t *testing.T) {
	if bpm, ok := Fixed(98).BPM(); !ok || bpm != 98 {
		t.Fatalf("Fixed(98).BPM() = %v, %v", bpm, ok)
	}
	for _, v := range []float64{0, -120, math.NaN(), math.Inf(1)} {
		if _, ok := Fixed(v).BPM(); ok {
			t.Errorf("Fixed(%v) should report no tempo", v)
		}
	}
}

func feedClock(tr *ClockTracker, bpm float64, ticks int, startMs float64) float64 {
	perTickMs := 60000 / bpm / ClocksPerBeat
	at := startMs
	for i := 0; i < ticks; i++ {
		tr.HandleMessage(midi.Message{0xF8}, int32(math.Round(at)))
		at += perTickMs
	}
	return at
}

func TestClockTrackerLocksToTempo(t *testing.T) {
	tr := NewClockTracker()
	if _, ok := tr.BPM(); ok {
		t.Fatal("tracker should not report a tempo before any clock")
	}
	feedClock(tr, 120, MinClockIntervals, 0)
	if _, ok := tr.BPM(); ok {
		t.Fatalf("tracker reported tempo after only %d intervals", MinClockIntervals-1)
	}
	feedClock(tr, 120, 2*ClocksPerBeat, 1000)
	bpm, ok := tr.BPM()
	if !ok {
		t.Fatal("tracker should report a tempo after two beats of clock")
	}
	if math.Abs(bpm-120) > 0.5 {
		t.Fatalf("bpm = %v, want ~120", bpm)
	}
}

func TestClockTrackerFollowsTempoChange(t *testing.T) {
	tr := NewClockTracker()
	next := feedClock(tr, 90, 2*ClocksPerBeat, 0)
	feedClock(tr, 140, 2*ClocksPerBeat, next)
	bpm, ok := tr.BPM()
	if !ok || math.Abs(bpm-140) > 1 {
		t.Fatalf("bpm = %v (ok=%v), want ~140", bpm, ok)
	}
}

func TestClockTrackerStopAndStart(t *testing.T) {
	tr := NewClockTracker()
	next := feedClock(tr, 120, ClocksPerBeat, 0)
	tr.HandleMessage(midi.Message{0xFC}, int32(next)) // stop
	if _, ok := tr.BPM(); ok {
		t.Fatal("tracker should drop tempo on Stop")
	}
	feedClock(tr, 120, ClocksPerBeat, next)
	if _, ok := tr.BPM(); ok {
		t.Fatal("ticks while stopped should be ignored")
	}
	tr.HandleMessage(midi.Message{0xFA}, int32(next)) // start
	feedClock(tr, 100, ClocksPerBeat, next+1000)
	bpm, ok := tr.BPM()
	if !ok || math.Abs(bpm-100) > 0.5 {
		t.Fatalf("bpm after restart = %v (ok=%v), want ~100", bpm, ok)
	}
}

func TestClockTrackerIgnoresBackwardsTime(t *testing.T) {
	tr := NewClockTracker()
	for i := 0; i < 10; i++ {
		tr.Tick(time.Duration(i) * 20 * time.Millisecond)
	}
	tr.Tick(0)
	if bpm, ok := tr.BPM(); !ok || math.Abs(bpm-125) > 0.01 {
		t.Fatalf("bpm = %v (ok=%v); backwards tick should not publish a new tempo", bpm, ok)
	}
}

func TestFirstPrefersEarlierSource(t *testing.T) {
	tr := NewClockTracker()
	src := First{tr, nil, Fixed(95)}
	if bpm, ok := src.BPM(); !ok || bpm != 95 {
		t.Fatalf("without clock: %v, %v; want fallback 95", bpm, ok)
	}
	feedClock(tr, 132, ClocksPerBeat, 0)
	if bpm, ok := src.BPM(); !ok || math.Abs(bpm-132) > 0.5 {
		t.Fatalf("with clock: %v, %v; want ~132", bpm, ok)
	}
	if _, ok := (First{}).BPM(); ok {
		t.Fatal("empty First should report no tempo")
	}
}
