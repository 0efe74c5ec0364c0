package analogdelay

import (
	"fmt"

	intaudio "github.com/cbegin/analogdelay-go/internal/audio"
)

// TailFrames is the number of silent frames appended so the echoes can ring out.
func TailFrames(sampleRate float64) int {
	return int(sampleRate * TailLength.Seconds())
}

// RenderSamples runs interleaved input through p and returns the processed
// copy with the echo tail appended. p must already be prepared.
func RenderSamples(p *Processor, input []float32, numChannels int, withTail bool) ([]float32, error) {
	if numChannels < 1 {
		return nil, ErrTooManyChannels
	}
	n := len(input)
	if withTail {
		n += TailFrames(p.SampleRate()) * numChannels
	}
	out := make([]float32, n)
	copy(out, input)
	if err := p.ProcessInterleaved(out, numChannels); err != nil {
		return nil, err
	}
	return out, nil
}

// RenderOptions controls RenderFile.
type RenderOptions struct {
	BitDepth  int  // output bit depth; 0 keeps the input's
	BlockSize int  // processing block size; 0 uses DefaultMaxBlockSize
	NoTail    bool // stop at the end of the input instead of letting echoes ring
}

// RenderFile decodes the WAV at inPath, runs it through p prepared at the
// file's sample rate, and writes the result to outPath.
func RenderFile(p *Processor, inPath, outPath string, opts RenderOptions) error {
	clip, err := intaudio.ReadWAV(inPath)
	if err != nil {
		return err
	}
	if !SupportsLayout(clip.Channels, clip.Channels) {
		return fmt.Errorf("%s has %d channels: %w", inPath, clip.Channels, ErrTooManyChannels)
	}
	if err := p.Prepare(float64(clip.SampleRate), opts.BlockSize); err != nil {
		return err
	}
	p.logger.Info("rendering delay",
		"input", inPath,
		"sampleRate", clip.SampleRate,
		"channels", clip.Channels,
		"seconds", clip.Seconds(),
		"delayMs", p.Runtime().DelayMs,
	)
	rendered, err := RenderSamples(p, clip.Samples, clip.Channels, !opts.NoTail)
	if err != nil {
		return err
	}
	bitDepth := opts.BitDepth
	if bitDepth == 0 {
		bitDepth = clip.BitDepth
	}
	out := &intaudio.Clip{
		SampleRate: clip.SampleRate,
		Channels:   clip.Channels,
		BitDepth:   bitDepth,
		Samples:    rendered,
	}
	if err := intaudio.WriteWAV(outPath, out); err != nil {
		return err
	}
	p.logger.Info("wrote delayed audio", "output", outPath, "seconds", out.Seconds(), "bitDepth", bitDepth)
	return nil
}
