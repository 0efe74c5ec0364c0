package analogdelay

import (
	"math"
	"path/filepath"
	"testing"

	intaudio "github.com/cbegin/analogdelay-go/internal/audio"
	intparams "github.com/cbegin/analogdelay-go/internal/params"
)

func TestRenderSamplesAppendsTail(t *testing.T) {
	p := newTestProcessor(t, 1000, 128)
	p.Controls().SetSync(intparams.SyncFree)
	p.Controls().SetDelayTime(500)
	p.Controls().SetMix(1)

	in := make([]float32, 200) // ends before the first echo
	in[0] = 1
	out, err := RenderSamples(p, in, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 200+TailFrames(1000) {
		t.Fatalf("rendered %d samples, want %d", len(out), 200+TailFrames(1000))
	}
	if out[500] == 0 {
		t.Fatal("echo at 500 ms should land in the tail")
	}
	if in[0] != 1 {
		t.Fatal("RenderSamples must not modify its input")
	}

	noTail, err := RenderSamples(newTestProcessor(t, 1000, 128), in, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(noTail) != len(in) {
		t.Fatalf("without tail: %d samples, want %d", len(noTail), len(in))
	}
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.wav")
	outPath := filepath.Join(dir, "out.wav")

	src := &intaudio.Clip{SampleRate: 8000, Channels: 2, BitDepth: 16, Samples: make([]float32, 2*800)}
	for i := 0; i < 80; i++ {
		v := float32(0.5 * math.Sin(float64(i)*0.3))
		src.Samples[2*i] = v
		src.Samples[2*i+1] = v
	}
	if err := intaudio.WriteWAV(inPath, src); err != nil {
		t.Fatal(err)
	}

	p := NewProcessor(WithLogger(quietLogger()))
	p.Controls().SetSync(intparams.SyncFree)
	p.Controls().SetDelayTime(50)
	p.Controls().SetFeedback(0.5)
	p.Controls().SetMix(0.5)
	if err := RenderFile(p, inPath, outPath, RenderOptions{BitDepth: 24}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if p.SampleRate() != 8000 {
		t.Fatalf("processor prepared at %v Hz, want the file's 8000", p.SampleRate())
	}

	got, err := intaudio.ReadWAV(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if got.BitDepth != 24 || got.Channels != 2 || got.SampleRate != 8000 {
		t.Fatalf("output header: bits=%d ch=%d rate=%d", got.BitDepth, got.Channels, got.SampleRate)
	}
	if want := 800 + TailFrames(8000); got.Frames() != want {
		t.Fatalf("output frames = %d, want %d", got.Frames(), want)
	}
	// 50 ms at 8 kHz is 400 frames; the first echo starts there.
	var echo float32
	for i := 400; i < 480; i++ {
		echo = max(echo, float32(math.Abs(float64(got.Samples[2*i]))))
	}
	if echo < 0.05 {
		t.Fatalf("expected an audible echo around frame 400, peak %v", echo)
	}
}

func TestRenderFileRejectsMissingInput(t *testing.T) {
	p := NewProcessor(WithLogger(quietLogger()))
	dir := t.TempDir()
	if err := RenderFile(p, filepath.Join(dir, "missing.wav"), filepath.Join(dir, "out.wav"), RenderOptions{}); err == nil {
		t.Fatal("expected error for missing input")
	}
}
