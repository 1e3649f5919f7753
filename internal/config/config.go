package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/san-kum/cstrsim/internal/loop"
	"github.com/san-kum/cstrsim/internal/lti"
	"github.com/san-kum/cstrsim/internal/plant"
	"github.com/san-kum/cstrsim/internal/response"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHorizon     = 300.0
	DefaultSamples     = 600
	DefaultKp          = 500.0
	DefaultKi          = 50.0
	DefaultActuatorTau = 1.0
	DefaultSensorTau   = 0.25
)

// ErrInvalidConfig indicates a configuration that cannot describe a run.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is one run scenario. Tolerance is the local error tolerance of
// rk45; zero keeps the integrator default.
type Config struct {
	Plant     plant.Params    `yaml:"plant" json:"plant"`
	Channels  []Channel       `yaml:"channels" json:"channels" validate:"required,min=1,dive"`
	Horizon   float64         `yaml:"horizon" json:"horizon" validate:"gt=0"`
	Samples   int             `yaml:"samples" json:"samples" validate:"min=2"`
	Method    string          `yaml:"method" json:"method"`
	MaxStep   float64         `yaml:"max_step,omitempty" json:"max_step,omitempty" validate:"gte=0"`
	Tolerance float64         `yaml:"tolerance,omitempty" json:"tolerance,omitempty" validate:"gte=0"`
	Steps     []response.Step `yaml:"steps" json:"steps" validate:"dive"`
}

// Channel pairs a controlled variable with the manipulated variable its PID
// drives, along with the instrument lags on that channel.
type Channel struct {
	CV          string  `yaml:"cv" json:"cv" validate:"required"`
	MV          string  `yaml:"mv" json:"mv" validate:"required"`
	Kp          float64 `yaml:"kp" json:"kp"`
	Ki          float64 `yaml:"ki" json:"ki"`
	Kd          float64 `yaml:"kd" json:"kd"`
	Tf          float64 `yaml:"tf,omitempty" json:"tf,omitempty" validate:"gte=0"`
	ActuatorTau float64 `yaml:"actuator_tau" json:"actuator_tau" validate:"gte=0"`
	SensorTau   float64 `yaml:"sensor_tau" json:"sensor_tau" validate:"gte=0"`
}

func (c Channel) Gains() lti.Gains {
	return lti.Gains{Kp: c.Kp, Ki: c.Ki, Kd: c.Kd, Tf: c.Tf}
}

// DefaultConfig is the reference scenario: both loops tuned with
// Kp = 500, Ki = 50, a +20 K temperature setpoint step at 100 s and a
// +1.5 concentration disturbance at 200 s.
func DefaultConfig() *Config {
	channels := make([]Channel, len(plant.CVs))
	for i := range plant.CVs {
		channels[i] = Channel{
			CV:          plant.CVs[i],
			MV:          plant.MVs[i],
			Kp:          DefaultKp,
			Ki:          DefaultKi,
			ActuatorTau: DefaultActuatorTau,
			SensorTau:   DefaultSensorTau,
		}
	}
	return &Config{
		Plant:    plant.DefaultParams(),
		Channels: channels,
		Horizon:  DefaultHorizon,
		Samples:  DefaultSamples,
		Method:   string(response.Exact),
		Steps: []response.Step{
			{Input: SetpointInput("T"), At: 100, Value: 20},
			{Input: DisturbanceInput("C_A"), At: 200, Value: 1.5},
		},
	}
}

// SetpointInput is the closed-loop input name of the setpoint of cv.
func SetpointInput(cv string) string {
	return loop.SetpointsBlock + "." + loop.SetpointPort(cv)
}

// DisturbanceInput is the closed-loop input name of the disturbance on cv.
func DisturbanceInput(cv string) string {
	return loop.PlantBlock + "." + loop.DisturbPort(cv)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// YAML encodes the configuration in the format Load reads.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the run settings and that every channel names a port of
// the reactor.
func (c *Config) Validate() error {
	if err := c.Plant.Validate(); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s fails %s", fe.Namespace(), strings.TrimSuffix(fe.Tag()+"="+fe.Param(), "="))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := response.ParseMethod(c.Method); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for i, ch := range c.Channels {
		if !slices.Contains(plant.CVs, ch.CV) {
			return fmt.Errorf("%w: channel %d: unknown controlled variable %q (have %v)", ErrInvalidConfig, i, ch.CV, plant.CVs)
		}
		if !slices.Contains(plant.MVs, ch.MV) {
			return fmt.Errorf("%w: channel %d: unknown manipulated variable %q (have %v)", ErrInvalidConfig, i, ch.MV, plant.MVs)
		}
	}
	return nil
}

// LoopSpec converts the channels into the loop builder's per-channel lists.
func (c *Config) LoopSpec() loop.Spec {
	var s loop.Spec
	for _, ch := range c.Channels {
		s.CVs = append(s.CVs, ch.CV)
		s.MVs = append(s.MVs, ch.MV)
		s.Gains = append(s.Gains, ch.Gains())
		s.ActuatorTaus = append(s.ActuatorTaus, ch.ActuatorTau)
		s.SensorTaus = append(s.SensorTaus, ch.SensorTau)
	}
	return s
}

// Times returns the sample grid [0, Horizon].
func (c *Config) Times() []float64 {
	return response.Linspace(0, c.Horizon, c.Samples)
}

// Channel returns the channel controlling cv.
func (c *Config) Channel(cv string) (*Channel, bool) {
	for i := range c.Channels {
		if c.Channels[i].CV == cv {
			return &c.Channels[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Channels = slices.Clone(c.Channels)
	out.Steps = slices.Clone(c.Steps)
	return &out
}

// Params returns the tunable channel parameters keyed "<cv>.<param>".
func (c *Config) Params() map[string]float64 {
	out := make(map[string]float64, len(channelParams)*len(c.Channels))
	for _, ch := range c.Channels {
		for _, p := range channelParams {
			out[ch.CV+"."+p.name] = *p.field(&ch)
		}
	}
	return out
}

// SetParam sets one channel parameter by its "<cv>.<param>" key.
func (c *Config) SetParam(name string, value float64) error {
	cv, param, ok := strings.Cut(name, ".")
	if !ok {
		return fmt.Errorf("%w: parameter %q, want <cv>.<param>", ErrInvalidConfig, name)
	}
	ch, ok := c.Channel(cv)
	if !ok {
		return fmt.Errorf("%w: parameter %q: no channel for %q", ErrInvalidConfig, name, cv)
	}
	for _, p := range channelParams {
		if p.name == param {
			*p.field(ch) = value
			return nil
		}
	}
	return fmt.Errorf("%w: parameter %q: unknown %q", ErrInvalidConfig, name, param)
}

var channelParams = []struct {
	name  string
	field func(*Channel) *float64
}{
	{"kp", func(c *Channel) *float64 { return &c.Kp }},
	{"ki", func(c *Channel) *float64 { return &c.Ki }},
	{"kd", func(c *Channel) *float64 { return &c.Kd }},
	{"tf", func(c *Channel) *float64 { return &c.Tf }},
	{"actuator_tau", func(c *Channel) *float64 { return &c.ActuatorTau }},
	{"sensor_tau", func(c *Channel) *float64 { return &c.SensorTau }},
}
