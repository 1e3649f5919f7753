package loop

import (
	"context"
	"math"

	"github.com/san-kum/cstrsim/internal/lti"
	"github.com/san-kum/cstrsim/internal/plant"
	"github.com/san-kum/cstrsim/internal/response"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func referenceSpec() Spec {
	return Spec{
		CVs:          plant.CVs,
		MVs:          plant.MVs,
		Gains:        []lti.Gains{{Kp: 500, Ki: 50}, {Kp: 500, Ki: 50}},
		ActuatorTaus: []float64{1, 1},
		SensorTaus:   []float64{0.25, 0.25},
	}
}

func window(times, ys []float64, from, to float64) []float64 {
	var out []float64
	for k, t := range times {
		if t >= from && t < to {
			out = append(out, ys[k])
		}
	}
	return out
}

var _ = Describe("Wiring", func() {
	It("should list four connections per channel", func() {
		conns, inplist, outlist, err := Wiring(cvs, mvs)
		Expect(err).NotTo(HaveOccurred())

		wired := make([]string, len(conns))
		for i, c := range conns {
			wired[i] = c.String()
		}
		Expect(wired).To(Equal([]string{
			"pid.e_C_A <- set_points.C_A_sp + -sensors.sense_C_A",
			"actuators.command_I_A <- pid.command_I_A",
			"plant.I_A <- actuators.effect_I_A",
			"sensors.C_A <- plant.C_A",
			"pid.e_T <- set_points.T_sp + -sensors.sense_T",
			"actuators.command_T_c <- pid.command_T_c",
			"plant.T_c <- actuators.effect_T_c",
			"sensors.T <- plant.T",
		}))

		names := func(refs []lti.Ref) []string {
			out := make([]string, len(refs))
			for i, r := range refs {
				out[i] = r.String()
			}
			return out
		}
		Expect(names(inplist)).To(Equal([]string{
			"set_points.C_A_sp", "set_points.T_sp", "plant.C_A_disturb", "plant.T_disturb",
		}))
		Expect(names(outlist)).To(Equal([]string{"plant.C_A", "plant.T"}))
	})

	It("should reject mismatched channel lists", func() {
		_, _, _, err := Wiring(cvs, mvs[:1])
		Expect(err).To(MatchError(ErrChannelCount))
	})
})

var _ = Describe("Reference CSTR loop", func() {
	var reactor *lti.System

	BeforeEach(func() {
		var err error
		reactor, err = plant.Linearize(plant.DefaultParams())
		Expect(err).NotTo(HaveOccurred())
	})

	It("should require the plant block name used by the wiring", func() {
		other, err := lti.New("reactor", reactor.Inputs(), reactor.Outputs(),
			reactor.A(), reactor.B(), reactor.C(), reactor.D())
		Expect(err).NotTo(HaveOccurred())
		_, err = Build(other, referenceSpec())
		Expect(err).To(MatchError(lti.ErrInvalidName))
	})

	It("should compose into one stable system", func() {
		cl, err := Build(reactor, referenceSpec())
		Expect(err).NotTo(HaveOccurred())

		Expect(cl.Name()).To(Equal(ClosedLoopName))
		Expect(cl.Inputs()).To(Equal([]string{
			"set_points.C_A_sp", "set_points.T_sp", "plant.C_A_disturb", "plant.T_disturb",
		}))
		Expect(cl.Outputs()).To(Equal([]string{"plant.C_A", "plant.T"}))
		// two integrators, two actuators, two plant states, two sensors
		Expect(cl.StateDim()).To(Equal(8))

		stable, err := lti.IsStable(cl)
		Expect(err).NotTo(HaveOccurred())
		Expect(stable).To(BeTrue())
	})

	It("should shrink only the external interface for a reduced allow-list", func() {
		blocks, err := Blocks(reactor, referenceSpec())
		Expect(err).NotTo(HaveOccurred())
		conns, inplist, outlist, err := Wiring(plant.CVs, plant.MVs)
		Expect(err).NotTo(HaveOccurred())

		full, err := lti.Interconnect("full", blocks, conns, inplist, outlist)
		Expect(err).NotTo(HaveOccurred())
		reduced, err := lti.Interconnect("reduced", blocks, conns, inplist[:2], outlist[1:])
		Expect(err).NotTo(HaveOccurred())

		Expect(reduced.InputDim()).To(Equal(2))
		Expect(reduced.OutputDim()).To(Equal(1))
		Expect(reduced.StateDim()).To(Equal(full.StateDim()))
	})

	Context("forced response", func() {
		var (
			times []float64
			res   *response.Result
		)

		simulate := func(stop float64, samples int) {
			cl, err := Build(reactor, referenceSpec())
			Expect(err).NotTo(HaveOccurred())
			times = response.Linspace(0, stop, samples)
			u, err := response.Steps(cl.Inputs(), times,
				response.Step{Input: "set_points.T_sp", At: 100, Value: 20},
				response.Step{Input: "plant.C_A_disturb", At: 200, Value: 1.5},
			)
			Expect(err).NotTo(HaveOccurred())
			res, err = response.Forced(context.Background(), cl, times, u)
			Expect(err).NotTo(HaveOccurred())
		}

		It("should stay at rest until the first step", func() {
			simulate(300, 600)
			for _, y := range window(times, res.Output("plant.T"), 0, 100) {
				Expect(y).To(BeNumerically("~", 0, 1e-9))
			}
			for _, y := range window(times, res.Output("plant.C_A"), 0, 100) {
				Expect(y).To(BeNumerically("~", 0, 1e-9))
			}
		})

		It("should track the temperature setpoint", func() {
			simulate(300, 600)
			temp := res.Output("plant.T")
			Expect(window(times, temp, 150, 200)).To(HaveEach(BeNumerically("~", 20, 0.1)))
			Expect(temp[len(temp)-1]).To(BeNumerically("~", 20, 0.01))
		})

		It("should reject the concentration disturbance", func() {
			simulate(300, 600)
			conc := window(times, res.Output("plant.C_A"), 200, 300)
			peak := 0.0
			for _, y := range conc {
				peak = math.Max(peak, y)
			}
			Expect(peak).To(BeNumerically(">", 1))
			Expect(conc[len(conc)-1]).To(BeNumerically("~", 0, 0.01))
		})

		It("should converge on a long horizon", func() {
			simulate(2000, 2001)
			temp, conc := res.Output("plant.T"), res.Output("plant.C_A")
			Expect(temp[len(temp)-1]).To(BeNumerically("~", 20, 1e-4))
			Expect(conc[len(conc)-1]).To(BeNumerically("~", 0, 1e-4))
		})
	})
})
