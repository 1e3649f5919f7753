// Package plant linearizes a jacketed CSTR with a first-order exothermic
// reaction around its steady state.
//
// States and outputs are deviations of reactor concentration C_A and
// temperature T. Inputs are the manipulated inlet concentration I_A and
// coolant temperature T_c, followed by one additive disturbance per
// controlled variable.
package plant

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/cstrsim/internal/lti"
	"gonum.org/v1/gonum/mat"
)

// Channel names of the reactor model.
var (
	CVs = []string{"C_A", "T"}
	MVs = []string{"I_A", "T_c"}
)

// ErrInvalidParams indicates a physical parameter outside its valid range.
var ErrInvalidParams = errors.New("plant: invalid parameters")

// Params are the physical constants of the reactor. Units follow the
// kJ/kmol/K/m/s system.
type Params struct {
	HeatCapacity     float64 `yaml:"heat_capacity" json:"heat_capacity"`         // kJ/(kg K)
	FlowRate         float64 `yaml:"flow_rate" json:"flow_rate"`                 // m^3/s
	Volume           float64 `yaml:"volume" json:"volume"`                       // m^3
	Density          float64 `yaml:"density" json:"density"`                     // kg/m^3
	HeatTransfer     float64 `yaml:"heat_transfer" json:"heat_transfer"`         // kJ/(s m^2 K)
	Area             float64 `yaml:"area" json:"area"`                           // m^2
	ReactionEnthalpy float64 `yaml:"reaction_enthalpy" json:"reaction_enthalpy"` // kJ/kmol
	ActivationEnergy float64 `yaml:"activation_energy" json:"activation_energy"` // kJ/kmol
	RateConstant     float64 `yaml:"rate_constant" json:"rate_constant"`         // 1/s
	GasConstant      float64 `yaml:"gas_constant" json:"gas_constant"`           // kJ/(kmol K)
	SteadyTemp       float64 `yaml:"steady_temp" json:"steady_temp"`             // K
	SteadyConc       float64 `yaml:"steady_conc" json:"steady_conc"`             // kmol/m^3
}

// DefaultParams returns the reference reactor.
func DefaultParams() Params {
	return Params{
		HeatCapacity:     4.0,
		FlowRate:         3e-3,
		Volume:           1.0,
		Density:          1000,
		HeatTransfer:     1,
		Area:             5,
		ReactionEnthalpy: -24000,
		ActivationEnergy: 40000,
		RateConstant:     10000,
		GasConstant:      8.314,
		SteadyTemp:       350,
		SteadyConc:       1,
	}
}

// Validate checks that every strictly positive quantity is positive.
func (p Params) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"heat_capacity", p.HeatCapacity},
		{"flow_rate", p.FlowRate},
		{"volume", p.Volume},
		{"density", p.Density},
		{"rate_constant", p.RateConstant},
		{"gas_constant", p.GasConstant},
		{"steady_temp", p.SteadyTemp},
	}
	for _, q := range positive {
		if !(q.v > 0) || math.IsInf(q.v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidParams, q.name, q.v)
		}
	}
	if p.HeatTransfer < 0 || p.Area < 0 || p.SteadyConc < 0 || p.ActivationEnergy < 0 {
		return fmt.Errorf("%w: negative heat transfer, area, activation energy or concentration", ErrInvalidParams)
	}
	return nil
}

// ResidenceTime is V/q.
func (p Params) ResidenceTime() float64 { return p.Volume / p.FlowRate }

// ReactionRate is the Arrhenius rate at the steady-state temperature.
func (p Params) ReactionRate() float64 {
	return p.RateConstant * math.Exp(-p.ActivationEnergy/(p.GasConstant*p.SteadyTemp))
}

// Matrices returns A (2x2), B (2x4), C (2x2) and D (2x4) of the linearized
// reactor. The disturbance inputs enter both the state derivatives and the
// measured outputs directly.
func (p Params) Matrices() (a, b, c, d *mat.Dense) {
	tau := p.ResidenceTime()
	rhoCp := p.Density * p.HeatCapacity
	sensHeat := -p.ReactionEnthalpy / rhoCp
	ua := p.HeatTransfer * p.Area / (rhoCp * p.Volume)
	k := p.ReactionRate()
	sens := p.ActivationEnergy / (p.GasConstant * p.SteadyTemp * p.SteadyTemp)

	a11 := -(1/tau + k)
	a12 := -(sens * p.SteadyConc * k)
	a21 := -sensHeat * k
	a22 := -sensHeat*k*p.SteadyConc*sens - 1/tau - ua

	a = mat.NewDense(2, 2, []float64{
		a11, a12,
		a21, a22,
	})
	b = mat.NewDense(2, 4, []float64{
		1 / tau, 0, 1, 0,
		0, ua, 0, 1,
	})
	c = mat.NewDense(2, 2, []float64{
		1, 0,
		0, 1,
	})
	d = mat.NewDense(2, 4, []float64{
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	return a, b, c, d
}

// Inputs returns the plant's input port names: the manipulated variables
// followed by <cv>_disturb for each controlled variable.
func Inputs() []string {
	in := append([]string(nil), MVs...)
	for _, cv := range CVs {
		in = append(in, cv+"_disturb")
	}
	return in
}

// Name is the block name of the linearized reactor.
const Name = "plant"

// Linearize builds the reactor block from its physical parameters.
func Linearize(p Params) (*lti.System, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	a, b, c, d := p.Matrices()
	return lti.New(Name, Inputs(), CVs, a, b, c, d)
}
