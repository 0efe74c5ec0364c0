package panel

import (
	"math"
	"strings"
	"testing"

	intdelay "github.com/cbegin/analogdelay-go/internal/delay"
	intparams "github.com/cbegin/analogdelay-go/internal/params"
	"github.com/cbegin/analogdelay-go/internal/tempo"
)

func TestHandleKeyWritesControls(t *testing.T) {
	c := intparams.NewControls()

	if got := HandleKey(c, 's'); got != ActionChanged || c.Sync() != intparams.SyncFree {
		t.Fatalf("s: action=%v sync=%v", got, c.Sync())
	}
	HandleKey(c, ']')
	if c.DelayTime() != 410 {
		t.Fatalf("] should add %v ms, got %v", DelayStepMs, c.DelayTime())
	}
	for i := 0; i < 100; i++ {
		HandleKey(c, '[')
	}
	if c.DelayTime() != intparams.MinDelayTimeMs {
		t.Fatalf("repeated [ should stop at the minimum, got %v", c.DelayTime())
	}

	HandleKey(c, '.')
	if c.Division() != intparams.DivisionEighth {
		t.Fatalf(". from 1/4 = %v, want 1/8", c.Division())
	}
	for i := 0; i < 10; i++ {
		HandleKey(c, ',')
	}
	if c.Division() != intparams.DivisionWhole {
		t.Fatalf("repeated , should stop at 1/1, got %v", c.Division())
	}

	for i := 0; i < 30; i++ {
		HandleKey(c, '=')
	}
	if c.Feedback() != intparams.MaxFeedback {
		t.Fatalf("feedback should cap at %v, got %v", intparams.MaxFeedback, c.Feedback())
	}
	HandleKey(c, '9')
	if math.Abs(c.Mix()-0.45) > 1e-9 {
		t.Fatalf("9 should lower mix to 0.45, got %v", c.Mix())
	}
}

func TestHandleKeyActions(t *testing.T) {
	c := intparams.NewControls()
	before := c.Snapshot()
	cases := map[byte]Action{'q': ActionQuit, 3: ActionQuit, ' ': ActionTogglePause, 'x': ActionNone}
	for key, want := range cases {
		if got := HandleKey(c, key); got != want {
			t.Errorf("key %q = %v, want %v", key, got, want)
		}
	}
	if c.Snapshot() != before {
		t.Fatal("non-control keys must not change controls")
	}
}

func TestStatus(t *testing.T) {
	c := intparams.NewControls()
	line := Status(c, intdelay.Resolve(c, tempo.Fixed(120)))
	for _, want := range []string{"[Sync]", "1/4", "500.0 ms", "feedback 0.35", "mix 0.50"} {
		if !strings.Contains(line, want) {
			t.Errorf("status %q missing %q", line, want)
		}
	}
	c.SetSync(intparams.SyncFree)
	line = Status(c, intdelay.Resolve(c, nil))
	if !strings.Contains(line, "[Free]") || !strings.Contains(line, "time  400.0 ms") {
		t.Errorf("free status = %q", line)
	}
}
