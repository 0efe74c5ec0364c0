package delay

import (
	"errors"
	"math"
)

const (
	// MaxChannels is the number of channels the engine keeps history for.
	MaxChannels = 2
	// MaxDelayMs is the longest delay the buffers are sized for.
	MaxDelayMs = 2000.0

	// One-pole smoothing on the feedback path: y = 0.7*x + 0.3*y[n-1].
	smoothIn   float32 = 0.7
	smoothPrev float32 = 0.3
)

var (
	ErrInvalidSampleRate = errors.New("delay: sample rate must be positive and finite")
	ErrInvalidMaxDelay   = errors.New("delay: max delay must be positive and finite")
	ErrBufferTooLarge    = errors.New("delay: history buffer would exceed the size limit")
)

// maxCapacity bounds a single channel's history allocation.
const maxCapacity = 1 << 28

// Runtime is the resolved per-block input to the engine.
type Runtime struct {
	DelayMs  float64
	Feedback float32
	Mix      float32
}

// channelState is the circular history of one channel.
type channelState struct {
	buf      []float32
	writePos int
	lastOut  float32
}

// Engine is a feedback delay line with a smoothed feedback path. It is not
// safe for concurrent use; the render goroutine owns it.
type Engine struct {
	sampleRate float64
	capacity   int
	channels   [MaxChannels]channelState
}

// Capacity returns the number of samples needed to hold maxDelayMs at sampleRate.
func Capacity(sampleRate, maxDelayMs float64) int {
	return int(sampleRate*maxDelayMs/1000) + 1
}

// Prepare sizes and zeroes the per-channel buffers for sampleRate. It must
// be called again, and resets all history, whenever the sample rate changes.
func (e *Engine) Prepare(sampleRate, maxDelayMs float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return ErrInvalidSampleRate
	}
	if maxDelayMs <= 0 || math.IsNaN(maxDelayMs) || math.IsInf(maxDelayMs, 0) {
		return ErrInvalidMaxDelay
	}
	if sampleRate*maxDelayMs/1000 >= maxCapacity {
		return ErrBufferTooLarge
	}
	capacity := Capacity(sampleRate, maxDelayMs)
	if capacity < 2 {
		capacity = 2
	}
	for ch := range e.channels {
		st := &e.channels[ch]
		if cap(st.buf) >= capacity {
			st.buf = st.buf[:capacity]
			clear(st.buf)
		} else {
			st.buf = make([]float32, capacity)
		}
		st.writePos = 0
		st.lastOut = 0
	}
	e.sampleRate = sampleRate
	e.capacity = capacity
	return nil
}

func (e *Engine) Prepared() bool      { return e.capacity > 0 }
func (e *Engine) SampleRate() float64 { return e.sampleRate }
func (e *Engine) Capacity() int       { return e.capacity }

// DelaySamples converts ms to a whole number of samples within [1, capacity-1].
func (e *Engine) DelaySamples(ms float64) int {
	hi := e.capacity - 1
	if hi < 1 {
		return 1
	}
	exact := e.sampleRate * ms / 1000
	if math.IsNaN(exact) || exact < 1 {
		return 1
	}
	if exact >= float64(hi) {
		return hi
	}
	return int(math.Round(exact))
}

// Process runs one block in place. Only the first MaxChannels channels are
// touched; the delay time is fixed for the whole block.
func (e *Engine) Process(rt Runtime, channels [][]float32) {
	if e.capacity == 0 {
		return
	}
	delaySamples := e.DelaySamples(rt.DelayMs)
	n := min(len(channels), MaxChannels)
	for ch := 0; ch < n; ch++ {
		e.processChannel(&e.channels[ch], delaySamples, rt.Feedback, rt.Mix, channels[ch])
	}
}

func (e *Engine) processChannel(st *channelState, delaySamples int, feedback, mix float32, data []float32) {
	buf := st.buf
	size := len(buf)
	writePos := st.writePos
	lastOut := st.lastOut
	dry := 1 - mix
	for i, in := range data {
		readPos := writePos - delaySamples
		if readPos < 0 {
			readPos += size
		}
		lastOut = buf[readPos]*smoothIn + lastOut*smoothPrev
		buf[writePos] = in + lastOut*feedback
		data[i] = in*dry + lastOut*mix
		writePos++
		if writePos == size {
			writePos = 0
		}
	}
	st.writePos = writePos
	st.lastOut = lastOut
}
