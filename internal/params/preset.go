package params

import (
	"encoding/json"
	"fmt"
	"os"
)

// Preset is a plain snapshot of the controls, used for persistence.
type Preset struct {
	Sync         SyncMode     `json:"sync"`
	DelayTimeMs  float64      `json:"delayTime"`
	NoteDivision NoteDivision `json:"noteDivision"`
	Feedback     float64      `json:"feedback"`
	Mix          float64      `json:"mix"`
}

func DefaultPreset() Preset {
	return Preset{
		Sync:         DefaultSync,
		DelayTimeMs:  DefaultDelayTimeMs,
		NoteDivision: DefaultNoteDivision,
		Feedback:     DefaultFeedback,
		Mix:          DefaultMix,
	}
}

// Snapshot reads each control once. Fields may come from different writes
// if a UI goroutine is changing them concurrently.
func (c *Controls) Snapshot() Preset {
	return Preset{
		Sync:         c.Sync(),
		DelayTimeMs:  c.DelayTime(),
		NoteDivision: c.Division(),
		Feedback:     c.Feedback(),
		Mix:          c.Mix(),
	}
}

// Apply writes every preset field through the clamping setters.
func (c *Controls) Apply(p Preset) {
	c.SetSync(p.Sync)
	c.SetDelayTime(p.DelayTimeMs)
	c.SetDivision(p.NoteDivision)
	c.SetFeedback(p.Feedback)
	c.SetMix(p.Mix)
}

func (m SyncMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *SyncMode) UnmarshalText(b []byte) error {
	v, err := ParseSyncMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (d NoteDivision) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *NoteDivision) UnmarshalText(b []byte) error {
	v, err := ParseNoteDivision(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// LoadPreset reads a JSON preset. Fields missing from the file keep their defaults.
func LoadPreset(path string) (Preset, error) {
	p := DefaultPreset()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return DefaultPreset(), fmt.Errorf("parse preset %s: %w", path, err)
	}
	return p, nil
}

func SavePreset(path string, p Preset) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
