package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// OutputChannels is the channel count of the ebiten float32 stream.
const OutputChannels = 2

// Renderer fills dst with interleaved stereo frames and reports whether
// more audio follows this block.
type Renderer interface {
	Render(dst []float32) (more bool)
}

// StreamReader adapts a Renderer to the little-endian float32 byte stream
// expected by ebiten's NewPlayerF32. The block on which the renderer
// reports no more audio is returned together with io.EOF; later reads
// return only io.EOF and do not call the renderer.
type StreamReader struct {
	mu     sync.Mutex
	source Renderer
	frames []float32
	ended  bool
}

func NewStreamReader(source Renderer) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return 0, io.EOF
	}
	const bytesPerFrame = OutputChannels * 4
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	need := frames * OutputChannels
	if cap(r.frames) < need {
		r.frames = make([]float32, need)
	}
	r.frames = r.frames[:need]
	more := r.source.Render(r.frames)
	for i, s := range r.frames {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	n := frames * bytesPerFrame
	if !more {
		r.ended = true
		return n, io.EOF
	}
	return n, nil
}

func (r *StreamReader) Close() error { return nil }

// Output is one ebiten player bound to a StreamReader.
type Output struct {
	player *ebitaudio.Player
	reader io.ReadCloser
}

var (
	contextOnce       sync.Once
	sharedContext     *ebitaudio.Context
	sharedContextRate int
)

// ebiten allows a single audio context per process.
func audioContext(sampleRate int) (*ebitaudio.Context, error) {
	contextOnce.Do(func() {
		sharedContextRate = sampleRate
		sharedContext = ebitaudio.NewContext(sampleRate)
	})
	if sharedContextRate != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz (requested %d Hz)", sharedContextRate, sampleRate)
	}
	return sharedContext, nil
}

func NewOutput(sampleRate int, source Renderer) (*Output, error) {
	ctx, err := audioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("create audio player: %w", err)
	}
	return &Output{player: pl, reader: reader}, nil
}

func (o *Output) Play()           { o.player.Play() }
func (o *Output) Pause()          { o.player.Pause() }
func (o *Output) IsPlaying() bool { return o.player.IsPlaying() }

// Position is what the listener currently hears.
func (o *Output) Position() time.Duration {
	return o.player.Position()
}

func (o *Output) Close() error {
	o.player.Pause()
	if err := o.player.Close(); err != nil {
		return err
	}
	return o.reader.Close()
}
