package params

import (
	"flag"
	"fmt"
)

// FlagValues holds the control flags shared by the commands.
type FlagValues struct {
	fs         *flag.FlagSet
	preset     string
	savePreset string
	sync       string
	delayTime  float64
	division   string
	feedback   float64
	mix        float64
}

// RegisterFlags defines -preset, -save-preset and one flag per control on fs.
func RegisterFlags(fs *flag.FlagSet) *FlagValues {
	v := &FlagValues{fs: fs}
	fs.StringVar(&v.preset, "preset", "", "load control values from a JSON preset")
	fs.StringVar(&v.savePreset, "save-preset", "", "write the final control values to a JSON preset")
	fs.StringVar(&v.sync, "sync", DefaultSync.String(), "delay timing: free|sync")
	fs.Float64Var(&v.delayTime, "time", DefaultDelayTimeMs, "delay time in ms when -sync=free (10..2000)")
	fs.StringVar(&v.division, "note", DefaultNoteDivision.String(), "note division when -sync=sync (1/1 1/2 1/4 1/8 1/16 1/8T 1/16T 1/4T)")
	fs.Float64Var(&v.feedback, "feedback", DefaultFeedback, "feedback amount (0..0.95)")
	fs.Float64Var(&v.mix, "mix", DefaultMix, "wet/dry mix (0..1)")
	return v
}

// Apply loads the preset, if any, then overrides it with the flags that
// were set explicitly on the command line.
func (v *FlagValues) Apply(c *Controls) error {
	if v.preset != "" {
		p, err := LoadPreset(v.preset)
		if err != nil {
			return err
		}
		c.Apply(p)
	}
	var err error
	v.fs.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "sync":
			var m SyncMode
			if m, err = ParseSyncMode(v.sync); err == nil {
				c.SetSync(m)
			}
		case "time":
			c.SetDelayTime(v.delayTime)
		case "note":
			var d NoteDivision
			if d, err = ParseNoteDivision(v.division); err == nil {
				c.SetDivision(d)
			}
		case "feedback":
			c.SetFeedback(v.feedback)
		case "mix":
			c.SetMix(v.mix)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid flag: %w", err)
	}
	return nil
}

// Save writes c to the -save-preset path when one was given.
func (v *FlagValues) Save(c *Controls) error {
	if v.savePreset == "" {
		return nil
	}
	return SavePreset(v.savePreset, c.Snapshot())
}

func (v *FlagValues) SavePath() string { return v.savePreset }
