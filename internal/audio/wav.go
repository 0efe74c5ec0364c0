package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cwbudde/algo-vecmath"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE

	// 8-bit WAV samples are unsigned with silence at 128.
	unsignedOffset8 = 128
)

var (
	ErrNotWAV            = errors.New("not a valid WAV file")
	ErrUnsupportedFormat = errors.New("unsupported WAV encoding (integer PCM only)")
	ErrBitDepth          = errors.New("bit depth must be 8, 16, 24 or 32")
)

// Clip is decoded audio with interleaved samples normalized to [-1, 1].
type Clip struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Samples    []float32
}

func (c *Clip) Frames() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration of the clip at its own sample rate.
func (c *Clip) Seconds() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// Stereo returns the clip as two interleaved channels. Mono is duplicated;
// stereo is returned as is.
func (c *Clip) Stereo() (*Clip, error) {
	switch c.Channels {
	case 2:
		return c, nil
	case 1:
		out := &Clip{SampleRate: c.SampleRate, Channels: 2, BitDepth: c.BitDepth, Samples: make([]float32, len(c.Samples)*2)}
		for i, s := range c.Samples {
			out.Samples[2*i] = s
			out.Samples[2*i+1] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot play %d-channel audio as stereo", c.Channels)
	}
}

func ReadWAV(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	clip, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return clip, nil
}

// DecodeWAV reads integer PCM, plain or WAVE_FORMAT_EXTENSIBLE with a PCM
// sub-format.
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	format, err := pcmFormat(r)
	if err != nil {
		return nil, err
	}
	if format != wavFormatPCM {
		return nil, ErrUnsupportedFormat
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWAV
	}
	bitDepth := int(dec.BitDepth)
	if !validBitDepth(bitDepth) {
		return nil, ErrBitDepth
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	raw := pcm.AsFloatBuffer().Data
	if bitDepth == 8 {
		for i := range raw {
			raw[i] -= unsignedOffset8
		}
	}
	scaled := make([]float64, len(raw))
	vecmath.ScaleBlock(scaled, raw, 1/math.Pow(2, float64(bitDepth-1)))

	clip := &Clip{
		SampleRate: pcm.Format.SampleRate,
		Channels:   pcm.Format.NumChannels,
		BitDepth:   bitDepth,
		Samples:    make([]float32, len(scaled)),
	}
	for i, v := range scaled {
		clip.Samples[i] = float32(v)
	}
	return clip, nil
}

func validBitDepth(bits int) bool {
	switch bits {
	case 8, 16, 24, 32:
		return true
	}
	return false
}

// fmtChunk is the fixed part of a WAVE fmt chunk.
type fmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// fmtExtension follows fmtChunk when AudioFormat is WAVE_FORMAT_EXTENSIBLE.
// SubFormat holds the first two bytes of the sub-format GUID, which is the
// plain format code.
type fmtExtension struct {
	Size        uint16
	ValidBits   uint16
	ChannelMask uint32
	SubFormat   uint16
}

// pcmFormat returns the effective audio format code of a WAV stream,
// resolving WAVE_FORMAT_EXTENSIBLE to its sub-format. r is left at an
// arbitrary position.
func pcmFormat(r io.Reader) (uint16, error) {
	p := riff.New(r)
	if err := p.ParseHeaders(); err != nil || p.Format != riff.WavFormatID {
		return 0, ErrNotWAV
	}
	for {
		ch, err := p.NextChunk()
		if err != nil {
			return 0, ErrNotWAV
		}
		if ch.ID != riff.FmtID {
			ch.Drain()
			continue
		}
		var head fmtChunk
		if err := ch.ReadLE(&head); err != nil {
			return 0, ErrNotWAV
		}
		if head.AudioFormat != wavFormatExtensible {
			return head.AudioFormat, nil
		}
		if ch.Size < 16+binary.Size(fmtExtension{}) {
			return 0, ErrNotWAV
		}
		var ext fmtExtension
		if err := ch.ReadLE(&ext); err != nil {
			return 0, ErrNotWAV
		}
		return ext.SubFormat, nil
	}
}

// WriteWAV encodes clip as integer PCM at clip.BitDepth. Samples outside
// [-1, 1] are hard clipped.
func WriteWAV(path string, clip *Clip) error {
	if !validBitDepth(clip.BitDepth) {
		return ErrBitDepth
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeWAV(f, clip); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func encodeWAV(w io.WriteSeeker, clip *Clip) error {
	enc := wav.NewEncoder(w, clip.SampleRate, clip.BitDepth, clip.Channels, wavFormatPCM)

	src := make([]float64, len(clip.Samples))
	for i, s := range clip.Samples {
		src[i] = float64(s)
	}
	peak := math.Pow(2, float64(clip.BitDepth-1)) - 1
	scaled := make([]float64, len(src))
	vecmath.ScaleBlock(scaled, src, peak)

	offset := 0
	if clip.BitDepth == 8 {
		offset = unsignedOffset8
	}
	data := make([]int, len(scaled))
	for i, v := range scaled {
		data[i] = int(math.Round(math.Max(-peak, math.Min(peak, v)))) + offset
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: clip.Channels, SampleRate: clip.SampleRate},
		Data:           data,
		SourceBitDepth: clip.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
