package config

import (
	"sort"

	"github.com/san-kum/cstrsim/internal/response"
)

func preset(modify func(*Config)) *Config {
	cfg := DefaultConfig()
	modify(cfg)
	return cfg
}

func gains(kp, ki float64) func(*Config) {
	return func(c *Config) {
		for i := range c.Channels {
			c.Channels[i].Kp, c.Channels[i].Ki = kp, ki
		}
	}
}

var Presets = map[string]*Config{
	"reference": DefaultConfig(),
	"setpoint": preset(func(c *Config) {
		c.Horizon, c.Samples = 200, 400
		c.Steps = []response.Step{{Input: SetpointInput("T"), At: 20, Value: 20}}
	}),
	"disturbance": preset(func(c *Config) {
		c.Steps = []response.Step{
			{Input: DisturbanceInput("C_A"), At: 50, Value: 1.5},
			{Input: DisturbanceInput("T"), At: 150, Value: -5},
		}
	}),
	"aggressive": preset(gains(2000, 400)),
	"sluggish":   preset(gains(100, 2)),
	"derivative": preset(func(c *Config) {
		for i := range c.Channels {
			c.Channels[i].Kd = 50
			c.Channels[i].Tf = 0.1
		}
	}),
	"slow-sensors": preset(func(c *Config) {
		for i := range c.Channels {
			c.Channels[i].SensorTau = 5
		}
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
