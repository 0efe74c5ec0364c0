package analogdelay

import (
	"errors"
	"log/slog"
	"time"

	intdelay "github.com/cbegin/analogdelay-go/internal/delay"
	intparams "github.com/cbegin/analogdelay-go/internal/params"
	inttempo "github.com/cbegin/analogdelay-go/internal/tempo"
)

const (
	// DefaultMaxBlockSize is used when Prepare is given a non-positive block size.
	DefaultMaxBlockSize = 512
	// TailLength is how long echoes can ring after the input stops.
	TailLength = 2 * time.Second
)

var (
	ErrNotPrepared     = errors.New("processor has not been prepared")
	ErrTooManyChannels = errors.New("processor supports mono or stereo only")
)

type ProcessorOption func(*processorConfig)

type processorConfig struct {
	controls *intparams.Controls
	tempo    inttempo.Source
	logger   *slog.Logger
}

// WithControls shares an existing control store instead of creating one.
func WithControls(c *intparams.Controls) ProcessorOption {
	return func(cfg *processorConfig) {
		cfg.controls = c
	}
}

// WithTempoSource sets where sync mode reads the host tempo from.
func WithTempoSource(src inttempo.Source) ProcessorOption {
	return func(cfg *processorConfig) {
		cfg.tempo = src
	}
}

func WithLogger(l *slog.Logger) ProcessorOption {
	return func(cfg *processorConfig) {
		cfg.logger = l
	}
}

// Processor is the host-facing delay effect: it resolves the controls each
// block and runs the delay engine in place. Prepare and the Process methods
// must be called from the same goroutine; Controls may be written from any.
type Processor struct {
	controls *intparams.Controls
	tempo    inttempo.Source
	logger   *slog.Logger

	engine       intdelay.Engine
	runtime      intdelay.Runtime
	maxBlockSize int
	scratch      [intdelay.MaxChannels][]float32
	views        [][]float32
}

func NewProcessor(opts ...ProcessorOption) *Processor {
	var cfg processorConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.controls == nil {
		cfg.controls = intparams.NewControls()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Processor{
		controls: cfg.controls,
		tempo:    cfg.tempo,
		logger:   cfg.logger,
		views:    make([][]float32, 0, intdelay.MaxChannels),
	}
}

// Prepare allocates the delay history for sampleRate and clears all state.
// Call it before the first block and whenever the sample rate changes.
func (p *Processor) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := p.engine.Prepare(sampleRate, intdelay.MaxDelayMs); err != nil {
		p.logger.Error("delay prepare failed", "sampleRate", sampleRate, "err", err)
		return err
	}
	if maxBlockSize <= 0 {
		maxBlockSize = DefaultMaxBlockSize
	}
	p.maxBlockSize = maxBlockSize
	for ch := range p.scratch {
		p.scratch[ch] = make([]float32, maxBlockSize)
	}
	p.runtime = intdelay.Resolve(p.controls, p.tempo)
	p.logger.Debug("delay prepared",
		"sampleRate", sampleRate,
		"maxBlockSize", maxBlockSize,
		"historySamples", p.engine.Capacity(),
	)
	return nil
}

func (p *Processor) Prepared() bool { return p.engine.Prepared() }

func (p *Processor) SampleRate() float64 { return p.engine.SampleRate() }

func (p *Processor) Controls() *intparams.Controls { return p.controls }

// Runtime returns the values resolved for the most recent block. Only the
// render goroutine may call it; other goroutines use Resolve.
func (p *Processor) Runtime() intdelay.Runtime { return p.runtime }

// Resolve computes what the next block would use from the current controls
// and tempo. Safe from any goroutine.
func (p *Processor) Resolve() intdelay.Runtime {
	return intdelay.Resolve(p.controls, p.tempo)
}

// DelaySamples is the delay length in samples the next block would use.
func (p *Processor) DelaySamples() int {
	return p.engine.DelaySamples(p.Resolve().DelayMs)
}

// SupportsLayout reports whether the processor can run with the given bus
// widths: mono or stereo, with matching input and output.
func SupportsLayout(inputs, outputs int) bool {
	return inputs == outputs && (outputs == 1 || outputs == 2)
}

// Process runs one block of per-channel samples in place. Channels beyond
// the second pass through untouched.
func (p *Processor) Process(channels [][]float32) {
	p.runtime = intdelay.Resolve(p.controls, p.tempo)
	p.engine.Process(p.runtime, channels)
}

// ProcessInterleaved runs interleaved frames in place, splitting the buffer
// into blocks of at most the prepared block size. It does not allocate.
func (p *Processor) ProcessInterleaved(buf []float32, numChannels int) error {
	if !p.engine.Prepared() {
		return ErrNotPrepared
	}
	if numChannels < 1 || numChannels > intdelay.MaxChannels {
		return ErrTooManyChannels
	}
	frames := len(buf) / numChannels
	for start := 0; start < frames; start += p.maxBlockSize {
		n := min(p.maxBlockSize, frames-start)
		block := buf[start*numChannels : (start+n)*numChannels]
		p.views = p.views[:0]
		for ch := 0; ch < numChannels; ch++ {
			dst := p.scratch[ch][:n]
			for i := range dst {
				dst[i] = block[i*numChannels+ch]
			}
			p.views = append(p.views, dst)
		}
		p.Process(p.views)
		for ch, src := range p.views {
			for i, s := range src {
				block[i*numChannels+ch] = s
			}
		}
	}
	return nil
}
