// Package panel maps control-surface key presses onto the delay controls.
package panel

import (
	"fmt"

	intdelay "github.com/cbegin/analogdelay-go/internal/delay"
	intparams "github.com/cbegin/analogdelay-go/internal/params"
)

// Step sizes for one key press.
const (
	DelayStepMs  = 10.0
	FeedbackStep = 0.05
	MixStep      = 0.05
)

// Action is what the caller should do after a key.
type Action int

const (
	ActionNone Action = iota
	ActionChanged
	ActionQuit
	ActionTogglePause
)

// Help lists the key bindings.
const Help = "keys: s sync | [ ] time | , . division | - = feedback | 9 0 mix | space pause | q quit"

// HandleKey applies one key to c.
func HandleKey(c *intparams.Controls, key byte) Action {
	switch key {
	case 's', 'S':
		if c.Sync() == intparams.SyncTempo {
			c.SetSync(intparams.SyncFree)
		} else {
			c.SetSync(intparams.SyncTempo)
		}
	case '[':
		c.SetDelayTime(c.DelayTime() - DelayStepMs)
	case ']':
		c.SetDelayTime(c.DelayTime() + DelayStepMs)
	case ',':
		c.SetDivision(c.Division() - 1)
	case '.':
		c.SetDivision(c.Division() + 1)
	case '-':
		c.SetFeedback(c.Feedback() - FeedbackStep)
	case '=', '+':
		c.SetFeedback(c.Feedback() + FeedbackStep)
	case '9':
		c.SetMix(c.Mix() - MixStep)
	case '0':
		c.SetMix(c.Mix() + MixStep)
	case ' ':
		return ActionTogglePause
	case 'q', 'Q', 3: // 3 is Ctrl-C in raw mode
		return ActionQuit
	default:
		return ActionNone
	}
	return ActionChanged
}

// Status formats the controls and the resolved delay on one line.
func Status(c *intparams.Controls, rt intdelay.Runtime) string {
	timing := fmt.Sprintf("time %6.1f ms", c.DelayTime())
	if c.Sync() == intparams.SyncTempo {
		timing = fmt.Sprintf("note %-5s", c.Division())
	}
	return fmt.Sprintf("[%s] %s -> %6.1f ms | feedback %.2f | mix %.2f",
		c.Sync(), timing, rt.DelayMs, rt.Feedback, rt.Mix)
}
