package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning is the runtime configuration surface of the simulation core.
// Zero values are replaced by defaults in ApplyDefaults.
type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	BaseStepMs int `yaml:"base_step_ms"`
	MinStepMs  int `yaml:"min_step_ms"`

	ViewWidth  int `yaml:"view_width"`
	ViewHeight int `yaml:"view_height"`

	MaxInputQueue int `yaml:"max_input_queue"`

	SpeedHackTolerance float64 `yaml:"speedhack_tolerance"`
	MaxTeleportDist    int     `yaml:"max_teleport_dist"`
	KickThreshold      int     `yaml:"kick_threshold"`

	SnapshotEveryTicks   int `yaml:"snapshot_every_ticks"`
	CheckpointEveryTicks int `yaml:"checkpoint_every_ticks"`

	// How long a participant survives in the world after its connection
	// drops, awaiting a resume re-attach.
	DisconnectLingerMs int `yaml:"disconnect_linger_ms"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ApplyDefaults()
	return t, nil
}

// Defaults returns a Tuning with every field set to its default.
func Defaults() Tuning {
	var t Tuning
	t.ApplyDefaults()
	return t
}

func (t *Tuning) ApplyDefaults() {
	if t.TickRateHz <= 0 {
		t.TickRateHz = 20
	}
	if t.BaseStepMs <= 0 {
		t.BaseStepMs = 250
	}
	if t.MinStepMs <= 0 {
		t.MinStepMs = 100
	}
	if t.ViewWidth <= 0 {
		t.ViewWidth = 30
	}
	if t.ViewHeight <= 0 {
		t.ViewHeight = 14
	}
	if t.MaxInputQueue <= 0 {
		t.MaxInputQueue = 32
	}
	if t.SpeedHackTolerance <= 0 {
		t.SpeedHackTolerance = 0.15
	}
	if t.MaxTeleportDist <= 0 {
		t.MaxTeleportDist = 2
	}
	if t.KickThreshold <= 0 {
		t.KickThreshold = 10
	}
	if t.SnapshotEveryTicks <= 0 {
		t.SnapshotEveryTicks = 5
	}
	if t.CheckpointEveryTicks <= 0 {
		t.CheckpointEveryTicks = 100
	}
	if t.DisconnectLingerMs <= 0 {
		t.DisconnectLingerMs = 15000
	}
}
