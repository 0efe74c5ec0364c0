package analogdelay

import (
	"errors"
	"log/slog"
	"sync"

	intaudio "github.com/cbegin/analogdelay-go/internal/audio"
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	loop      bool
	blockSize int
	sampleTap func([]float32)
	logger    *slog.Logger
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{blockSize: DefaultMaxBlockSize}
}

// WithLoop repeats the source clip until Stop is called.
func WithLoop(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loop = enabled
	}
}

// WithBlockSize sets the largest block the processor sees.
func WithBlockSize(frames int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.blockSize = frames
	}
}

// WithSampleTap installs a callback invoked with each processed stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

func WithPlayerLogger(l *slog.Logger) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.logger = l
	}
}

// clipSource feeds a stereo clip through the processor, then silence for
// the echo tail.
type clipSource struct {
	proc      *Processor
	samples   []float32
	pos       int
	loop      bool
	tailLeft  int // frames
	sampleTap func([]float32)
}

// Render reports false once the clip and its tail have played. A looping
// source always reports true.
func (s *clipSource) Render(dst []float32) bool {
	n := 0
	for n < len(dst) {
		if s.pos >= len(s.samples) {
			if s.loop && len(s.samples) > 0 {
				s.pos = 0
				continue
			}
			break
		}
		c := copy(dst[n:], s.samples[s.pos:])
		s.pos += c
		n += c
	}
	if n < len(dst) {
		clear(dst[n:])
		s.tailLeft -= (len(dst) - n) / intaudio.OutputChannels
	}
	_ = s.proc.ProcessInterleaved(dst, intaudio.OutputChannels)
	if s.sampleTap != nil {
		s.sampleTap(dst)
	}
	return s.loop || s.pos < len(s.samples) || s.tailLeft > 0
}

// Player plays a WAV clip through a Processor on the default audio device.
type Player struct {
	mu     sync.Mutex
	proc   *Processor
	clip   *intaudio.Clip
	cfg    playerConfig
	output *intaudio.Output
	done   chan struct{}
}

// NewPlayer prepares proc at the clip's sample rate. Mono clips are played
// on both channels.
func NewPlayer(proc *Processor, clip *intaudio.Clip, opts ...PlayerOption) (*Player, error) {
	if proc == nil || clip == nil {
		return nil, errors.New("player needs a processor and a clip")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	stereo, err := clip.Stereo()
	if err != nil {
		return nil, err
	}
	if err := proc.Prepare(float64(stereo.SampleRate), cfg.blockSize); err != nil {
		return nil, err
	}
	return &Player{proc: proc, clip: stereo, cfg: cfg}, nil
}

func (p *Player) Processor() *Processor { return p.proc }

// Play starts playback from the beginning of the clip with cleared echo history.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.output != nil {
		_ = p.output.Close()
		p.output = nil
	}
	if p.done != nil {
		close(p.done)
	}
	p.done = nil

	if err := p.proc.Prepare(float64(p.clip.SampleRate), p.cfg.blockSize); err != nil {
		return err
	}
	src := &clipSource{
		proc:      p.proc,
		samples:   p.clip.Samples,
		loop:      p.cfg.loop,
		tailLeft:  TailFrames(float64(p.clip.SampleRate)),
		sampleTap: p.cfg.sampleTap,
	}
	done := make(chan struct{})
	out, err := intaudio.NewOutput(p.clip.SampleRate, &doneSource{clipSource: src, onFinish: func() { p.signalDone(done) }})
	if err != nil {
		return err
	}
	p.output = out
	p.done = done
	p.output.Play()
	p.cfg.logger.Info("playback started", "sampleRate", p.clip.SampleRate, "seconds", p.clip.Seconds(), "loop", p.cfg.loop)
	return nil
}

// doneSource closes the player's done channel once the clip and tail end.
type doneSource struct {
	*clipSource
	once     sync.Once
	onFinish func()
}

func (d *doneSource) Render(dst []float32) bool {
	more := d.clipSource.Render(dst)
	if !more {
		d.once.Do(func() { go d.onFinish() })
	}
	return more
}

// signalDone closes done if it still belongs to the current playback.
func (p *Player) signalDone(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != done {
		return
	}
	p.done = nil
	close(done)
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.output != nil {
		p.output.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.output != nil {
		p.output.Play()
	}
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.output == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.output.Close()
	p.output = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until playback of the clip and its echo tail ends, or Stop is
// called. With looping enabled it blocks until Stop.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}
