package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/cbegin/analogdelay-go"
	intparams "github.com/cbegin/analogdelay-go/internal/params"
	inttempo "github.com/cbegin/analogdelay-go/internal/tempo"
)

func main() {
	var (
		inPath    = flag.String("in", "", "input WAV file (mono or stereo integer PCM, plain or extensible)")
		outPath   = flag.String("out", "", "output WAV file")
		bpm       = flag.Float64("bpm", 0, "host tempo for -sync=sync (0 = default 120)")
		bitDepth  = flag.Int("bits", 0, "output bit depth 8|16|24|32 (0 = same as input)")
		blockSize = flag.Int("block", analogdelay.DefaultMaxBlockSize, "processing block size in frames")
		noTail    = flag.Bool("no-tail", false, "cut the output at the end of the input")
		debug     = flag.Bool("debug", false, "verbose logging")
	)
	controlFlags := intparams.RegisterFlags(flag.CommandLine)
	flag.Parse()

	logger := initLogger(*debug)
	if *inPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: render_delay -in input.wav -out output.wav [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	controls := intparams.NewControls()
	if err := controlFlags.Apply(controls); err != nil {
		logger.Error("bad controls", "err", err)
		os.Exit(2)
	}
	proc := analogdelay.NewProcessor(
		analogdelay.WithControls(controls),
		analogdelay.WithTempoSource(inttempo.Fixed(*bpm)),
		analogdelay.WithLogger(logger),
	)
	opts := analogdelay.RenderOptions{BitDepth: *bitDepth, BlockSize: *blockSize, NoTail: *noTail}
	if err := analogdelay.RenderFile(proc, *inPath, *outPath, opts); err != nil {
		logger.Error("render failed", "err", err)
		os.Exit(1)
	}
	if err := controlFlags.Save(controls); err != nil {
		logger.Error("save preset", "path", controlFlags.SavePath(), "err", err)
		os.Exit(1)
	}
}

func initLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	}))
	slog.SetDefault(logger)
	return logger
}
