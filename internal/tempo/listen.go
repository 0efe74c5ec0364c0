package tempo

import (
	"fmt"
	"log/slog"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// FindIn returns the input port whose name matches, or the only port when
// name is empty and exactly one input exists.
func FindIn(drv drivers.Driver, name string) (drivers.In, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}
	if name == "" {
		if len(ins) == 1 {
			return ins[0], nil
		}
		return nil, fmt.Errorf("%d MIDI inputs available; pick one by name", len(ins))
	}
	for _, in := range ins {
		if in.String() == name {
			return in, nil
		}
	}
	return nil, fmt.Errorf("MIDI input %q not found", name)
}

// ListenClock opens in and feeds its realtime messages to tracker. The
// returned stop function ends listening and closes the port.
func ListenClock(in drivers.In, tracker *ClockTracker, logger *slog.Logger) (func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := in.Open(); err != nil {
		return nil, fmt.Errorf("open MIDI input %q: %w", in.String(), err)
	}
	stop, err := midi.ListenTo(in, tracker.HandleMessage,
		midi.UseTimeCode(),
		midi.HandleError(func(listenErr error) {
			logger.Warn("MIDI clock listener error", "device", in.String(), "err", listenErr)
			tracker.Reset()
		}),
	)
	if err != nil {
		_ = in.Close()
		return nil, fmt.Errorf("listen on MIDI input %q: %w", in.String(), err)
	}
	logger.Info("listening for MIDI clock", "device", in.String())
	return func() {
		stop()
		if err := in.Close(); err != nil {
			logger.Warn("close MIDI input", "device", in.String(), "err", err)
		}
	}, nil
}
