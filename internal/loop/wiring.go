package loop

import (
	"fmt"

	"github.com/san-kum/cstrsim/internal/lti"
)

// ClosedLoopName is the name given to the composed system.
const ClosedLoopName = "closed_loop"

func ref(block, port string) lti.Ref {
	return lti.Ref{Block: block, Port: port, Sign: 1}
}

// Wiring returns the connections of a decentralized PID loop together with
// its external interface. For every channel pair (cv, mv):
//
//	pid.e_<cv>             <- set_points.<cv>_sp - sensors.sense_<cv>
//	actuators.command_<mv> <- pid.command_<mv>
//	plant.<mv>             <- actuators.effect_<mv>
//	sensors.<cv>           <- plant.<cv>
//
// The external inputs are the setpoints followed by the plant disturbance
// ports; the external outputs are the plant's controlled variables.
func Wiring(cvs, mvs []string) (conns []lti.Connection, inplist, outlist []lti.Ref, err error) {
	if err := checkCount("wiring", len(cvs), len(mvs)); err != nil {
		return nil, nil, nil, err
	}
	for i, cv := range cvs {
		mv := mvs[i]
		sensed := ref(SensorsBlock, SensedPort(cv))
		sensed.Sign = -1
		conns = append(conns,
			lti.Connection{
				Dest:    ref(ControllersBlock, ErrorPort(cv)),
				Sources: []lti.Ref{ref(SetpointsBlock, SetpointPort(cv)), sensed},
			},
			lti.Connection{
				Dest:    ref(ActuatorsBlock, CommandPort(mv)),
				Sources: []lti.Ref{ref(ControllersBlock, CommandPort(mv))},
			},
			lti.Connection{
				Dest:    ref(PlantBlock, mv),
				Sources: []lti.Ref{ref(ActuatorsBlock, EffectPort(mv))},
			},
			lti.Connection{
				Dest:    ref(SensorsBlock, cv),
				Sources: []lti.Ref{ref(PlantBlock, cv)},
			},
		)
		outlist = append(outlist, ref(PlantBlock, cv))
	}
	for _, cv := range cvs {
		inplist = append(inplist, ref(SetpointsBlock, SetpointPort(cv)))
	}
	for _, cv := range cvs {
		inplist = append(inplist, ref(PlantBlock, DisturbPort(cv)))
	}
	return conns, inplist, outlist, nil
}

// Close wires already-built blocks into the closed loop. blocks must contain
// the setpoint, controller, actuator, sensor and plant blocks under the names
// declared in this package.
func Close(blocks []*lti.System, cvs, mvs []string) (*lti.System, error) {
	conns, inplist, outlist, err := Wiring(cvs, mvs)
	if err != nil {
		return nil, err
	}
	return lti.Interconnect(ClosedLoopName, blocks, conns, inplist, outlist)
}

// Spec describes the loop around a plant, one entry per channel.
type Spec struct {
	CVs          []string
	MVs          []string
	Gains        []lti.Gains
	ActuatorTaus []float64
	SensorTaus   []float64
}

// Blocks builds the setpoint, controller, actuator and sensor blocks and
// returns them with the plant in wiring order.
func Blocks(plant *lti.System, s Spec) ([]*lti.System, error) {
	if plant.Name() != PlantBlock {
		return nil, fmt.Errorf("%w: plant block is named %q, want %q", lti.ErrInvalidName, plant.Name(), PlantBlock)
	}
	setpoints, err := Setpoints(s.CVs)
	if err != nil {
		return nil, err
	}
	controllers, err := Controllers(s.CVs, s.MVs, s.Gains)
	if err != nil {
		return nil, err
	}
	actuators, err := Actuators(s.MVs, s.ActuatorTaus)
	if err != nil {
		return nil, err
	}
	sensors, err := Sensors(s.CVs, s.SensorTaus)
	if err != nil {
		return nil, err
	}
	return []*lti.System{setpoints, controllers, actuators, plant, sensors}, nil
}

// Build assembles the full closed loop around plant.
func Build(plant *lti.System, s Spec) (*lti.System, error) {
	blocks, err := Blocks(plant, s)
	if err != nil {
		return nil, err
	}
	return Close(blocks, s.CVs, s.MVs)
}
