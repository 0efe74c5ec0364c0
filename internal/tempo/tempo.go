package tempo

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

// Source reports the host tempo. ok is false when no tempo is known.
// BPM must be safe to call from the audio thread.
type Source interface {
	BPM() (bpm float64, ok bool)
}

// Fixed is a constant tempo. Zero or negative values report no tempo.
type Fixed float64

func (f Fixed) BPM() (float64, bool) {
	v := float64(f)
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// First reports the tempo of the first source that has one.
type First []Source

func (f First) BPM() (float64, bool) {
	for _, src := range f {
		if src == nil {
			continue
		}
		if bpm, ok := src.BPM(); ok {
			return bpm, true
		}
	}
	return 0, false
}

const (
	// ClocksPerBeat is the MIDI timing clock resolution (24 PPQN).
	ClocksPerBeat = 24
	// MinClockIntervals is how many tick intervals are needed before a tempo is reported.
	MinClockIntervals = 6
)

// ClockTracker derives a tempo from MIDI timing clock messages. Message
// handling is serialized internally; BPM is a lock-free read.
type ClockTracker struct {
	mu      sync.Mutex
	ticks   [ClocksPerBeat + 1]time.Duration
	next    int
	count   int
	running bool

	bpm   atomic.Uint64 // float64 bits
	valid atomic.Bool
}

func NewClockTracker() *ClockTracker {
	return &ClockTracker{running: true}
}

// BPM returns the tempo averaged over up to one beat of clock ticks.
func (t *ClockTracker) BPM() (float64, bool) {
	if !t.valid.Load() {
		return 0, false
	}
	return math.Float64frombits(t.bpm.Load()), true
}

// HandleMessage feeds one MIDI message received at timestampms (milliseconds
// since listening started). Non-realtime messages are ignored.
func (t *ClockTracker) HandleMessage(msg midi.Message, timestampms int32) {
	switch {
	case msg.Is(midi.TimingClockMsg):
		t.Tick(time.Duration(timestampms) * time.Millisecond)
	case msg.Is(midi.StartMsg):
		t.Reset()
	case msg.Is(midi.ContinueMsg):
		t.mu.Lock()
		t.running = true
		t.mu.Unlock()
	case msg.Is(midi.StopMsg):
		t.mu.Lock()
		t.running = false
		t.count = 0
		t.mu.Unlock()
		t.valid.Store(false)
	}
}

// Tick records one timing clock at the given time.
func (t *ClockTracker) Tick(at time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	if t.count > 0 {
		last := t.ticks[(t.next+len(t.ticks)-1)%len(t.ticks)]
		if at <= last {
			// Clock went backwards or duplicated; start over from this tick.
			t.count = 0
		}
	}
	t.ticks[t.next] = at
	t.next = (t.next + 1) % len(t.ticks)
	if t.count < len(t.ticks) {
		t.count++
	}
	intervals := t.count - 1
	if intervals < MinClockIntervals {
		return
	}
	oldest := t.ticks[(t.next+len(t.ticks)-t.count)%len(t.ticks)]
	perTick := (at - oldest).Seconds() / float64(intervals)
	if perTick <= 0 {
		return
	}
	t.bpm.Store(math.Float64bits(60 / (perTick * ClocksPerBeat)))
	t.valid.Store(true)
}

// Reset drops all tick history and marks the transport as running.
func (t *ClockTracker) Reset() {
	t.mu.Lock()
	t.count = 0
	t.next = 0
	t.running = true
	t.mu.Unlock()
	t.valid.Store(false)
}
