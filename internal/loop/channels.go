// Package loop builds the multi-channel controller, actuator, sensor and
// setpoint blocks of a MIMO PID loop and wires them around a plant.
package loop

import (
	"errors"
	"fmt"

	"github.com/san-kum/cstrsim/internal/lti"
)

// Block names used by the reference wiring.
const (
	SetpointsBlock   = "set_points"
	ControllersBlock = "pid"
	ActuatorsBlock   = "actuators"
	SensorsBlock     = "sensors"
	PlantBlock       = "plant"
)

// ErrChannelCount indicates a parameter list whose length differs from the
// channel list.
var ErrChannelCount = errors.New("loop: channel and parameter counts differ")

// ErrorPort is the controller input carrying the tracking error of cv.
func ErrorPort(cv string) string { return "e_" + cv }

// CommandPort is the controller output, and actuator input, commanding mv.
func CommandPort(mv string) string { return "command_" + mv }

// EffectPort is the actuator output applied to the plant input mv.
func EffectPort(mv string) string { return "effect_" + mv }

// SensedPort is the sensor output measuring cv.
func SensedPort(cv string) string { return "sense_" + cv }

// SetpointPort is both the input and the output of the setpoint block for cv.
func SetpointPort(cv string) string { return cv + "_sp" }

// DisturbPort is the plant input adding a disturbance directly to cv.
func DisturbPort(cv string) string { return cv + "_disturb" }

func mapNames(names []string, f func(string) string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = f(n)
	}
	return out
}

func checkCount(role string, channels, params int) error {
	if channels != params {
		return fmt.Errorf("%w: %s has %d channels and %d parameters", ErrChannelCount, role, channels, params)
	}
	return nil
}

// Controllers builds one PID per (cv, mv) pair. Channel i reads e_<cvs[i]>
// and drives command_<mvs[i]>.
func Controllers(cvs, mvs []string, gains []lti.Gains) (*lti.System, error) {
	if err := checkCount(ControllersBlock, len(cvs), len(mvs)); err != nil {
		return nil, err
	}
	if err := checkCount(ControllersBlock, len(cvs), len(gains)); err != nil {
		return nil, err
	}
	parts := make([]*lti.System, len(cvs))
	for i, g := range gains {
		pid, err := lti.NewPID(fmt.Sprintf("pid_%d", i), "e", "u", g)
		if err != nil {
			return nil, fmt.Errorf("controller for %s: %w", cvs[i], err)
		}
		parts[i] = pid
	}
	return lti.Append(ControllersBlock, mapNames(cvs, ErrorPort), mapNames(mvs, CommandPort), parts...)
}

// Actuators builds one first-order lag per manipulated variable, from
// command_<mv> to effect_<mv>.
func Actuators(mvs []string, taus []float64) (*lti.System, error) {
	return lags(ActuatorsBlock, mapNames(mvs, CommandPort), mapNames(mvs, EffectPort), taus)
}

// Sensors builds one first-order lag per controlled variable, from <cv> to
// sense_<cv>.
func Sensors(cvs []string, taus []float64) (*lti.System, error) {
	return lags(SensorsBlock, cvs, mapNames(cvs, SensedPort), taus)
}

func lags(name string, inputs, outputs []string, taus []float64) (*lti.System, error) {
	if err := checkCount(name, len(inputs), len(taus)); err != nil {
		return nil, err
	}
	parts := make([]*lti.System, len(taus))
	for i, tau := range taus {
		d, err := lti.NewDelay(fmt.Sprintf("%s_%d", name, i), "in", "out", tau)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", name, inputs[i], err)
		}
		parts[i] = d
	}
	return lti.Append(name, inputs, outputs, parts...)
}

// Setpoints builds the identity injector with ports <cv>_sp.
func Setpoints(cvs []string) (*lti.System, error) {
	ports := mapNames(cvs, SetpointPort)
	return lti.NewPassthrough(SetpointsBlock, ports, ports)
}
