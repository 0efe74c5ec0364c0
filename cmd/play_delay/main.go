package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/cbegin/analogdelay-go"
	intaudio "github.com/cbegin/analogdelay-go/internal/audio"
	intpanel "github.com/cbegin/analogdelay-go/internal/panel"
	intparams "github.com/cbegin/analogdelay-go/internal/params"
	inttempo "github.com/cbegin/analogdelay-go/internal/tempo"
)

func main() {
	var (
		inPath    = flag.String("in", "", "WAV file to play through the delay")
		loop      = flag.Bool("loop", false, "loop the input until quit")
		bpm       = flag.Float64("bpm", 0, "tempo for -sync=sync when no MIDI clock is running (0 = 120)")
		midiIn    = flag.String("midi-in", "", "MIDI input to follow for clock tempo (\"auto\" picks the only one)")
		listMIDI  = flag.Bool("list-midi", false, "list MIDI inputs and exit")
		blockSize = flag.Int("block", analogdelay.DefaultMaxBlockSize, "processing block size in frames")
		debug     = flag.Bool("debug", false, "verbose logging")
	)
	controlFlags := intparams.RegisterFlags(flag.CommandLine)
	flag.Parse()

	logger := initLogger(*debug)
	if err := run(logger, controlFlags, options{
		inPath:    *inPath,
		loop:      *loop,
		bpm:       *bpm,
		midiIn:    *midiIn,
		listMIDI:  *listMIDI,
		blockSize: *blockSize,
	}); err != nil {
		logger.Error("play_delay failed", "err", err)
		os.Exit(1)
	}
}

type options struct {
	inPath    string
	loop      bool
	bpm       float64
	midiIn    string
	listMIDI  bool
	blockSize int
}

func run(logger *slog.Logger, controlFlags *intparams.FlagValues, opts options) error {
	if opts.listMIDI {
		return listInputs()
	}
	if opts.inPath == "" {
		return fmt.Errorf("-in is required")
	}

	controls := intparams.NewControls()
	if err := controlFlags.Apply(controls); err != nil {
		return err
	}
	host := inttempo.First{inttempo.Fixed(opts.bpm)}
	if opts.midiIn != "" {
		tracker := inttempo.NewClockTracker()
		stop, err := openClock(opts.midiIn, tracker, logger)
		if err != nil {
			return err
		}
		defer stop()
		host = inttempo.First{tracker, inttempo.Fixed(opts.bpm)}
	}

	clip, err := intaudio.ReadWAV(opts.inPath)
	if err != nil {
		return err
	}
	proc := analogdelay.NewProcessor(
		analogdelay.WithControls(controls),
		analogdelay.WithTempoSource(host),
		analogdelay.WithLogger(logger),
	)
	player, err := analogdelay.NewPlayer(proc, clip,
		analogdelay.WithLoop(opts.loop),
		analogdelay.WithBlockSize(opts.blockSize),
		analogdelay.WithPlayerLogger(logger),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	restore, keys := readKeys(logger)
	defer restore()

	if err := player.Play(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, intpanel.Help)

	g, ctx := errgroup.WithContext(ctx)
	finished := make(chan struct{})
	g.Go(func() error {
		player.Wait()
		close(finished)
		return nil
	})
	g.Go(func() error {
		return controlLoop(ctx, player, controls, keys, finished, func() { printStatus(proc) })
	})
	err = g.Wait()
	fmt.Fprint(os.Stderr, "\r\n")
	if err != nil {
		return err
	}
	return controlFlags.Save(controls)
}

// playback is the part of the player the key loop drives.
type playback interface {
	Pause()
	Resume()
	Stop() error
}

// controlLoop applies key presses until quit, cancellation or the end of
// playback. Every exit path stops the player.
func controlLoop(ctx context.Context, pl playback, controls *intparams.Controls, keys <-chan byte, finished <-chan struct{}, status func()) error {
	paused := false
	status()
	for {
		select {
		case <-ctx.Done():
			return pl.Stop()
		case <-finished:
			return pl.Stop()
		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			switch intpanel.HandleKey(controls, key) {
			case intpanel.ActionQuit:
				return pl.Stop()
			case intpanel.ActionTogglePause:
				if paused {
					pl.Resume()
				} else {
					pl.Pause()
				}
				paused = !paused
			case intpanel.ActionChanged:
				status()
			}
		}
	}
}

func printStatus(proc *analogdelay.Processor) {
	fmt.Fprintf(os.Stderr, "\r\033[K%s", intpanel.Status(proc.Controls(), proc.Resolve()))
}

// readKeys puts the terminal in raw mode and streams key presses. When
// stdin is not a terminal the returned channel never delivers.
func readKeys(logger *slog.Logger) (restore func(), keys <-chan byte) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		logger.Info("stdin is not a terminal; keyboard control disabled")
		return func() {}, make(chan byte)
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		logger.Warn("cannot enter raw mode; keyboard control disabled", "err", err)
		return func() {}, make(chan byte)
	}
	ch := make(chan byte, 16)
	go func() {
		defer close(ch)
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 1 {
				ch <- buf[0]
			}
		}
	}()
	return func() { _ = term.Restore(fd, state) }, ch
}

func openClock(name string, tracker *inttempo.ClockTracker, logger *slog.Logger) (func(), error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("open MIDI driver: %w", err)
	}
	if name == "auto" {
		name = ""
	}
	in, err := inttempo.FindIn(drv, name)
	if err != nil {
		drv.Close()
		return nil, err
	}
	stop, err := inttempo.ListenClock(in, tracker, logger)
	if err != nil {
		drv.Close()
		return nil, err
	}
	return func() {
		stop()
		drv.Close()
	}, nil
}

func listInputs() error {
	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("open MIDI driver: %w", err)
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return err
	}
	for _, in := range ins {
		fmt.Println(in.String())
	}
	return nil
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
