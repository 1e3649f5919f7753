package loop

import (
	"github.com/san-kum/cstrsim/internal/lti"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"
)

var (
	cvs = []string{"C_A", "T"}
	mvs = []string{"I_A", "T_c"}
)

func offDiagonalZero(m *mat.Dense) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if i != j {
				ExpectWithOffset(1, m.At(i, j)).To(BeZero(), "entry (%d,%d)", i, j)
			}
		}
	}
}

var _ = Describe("Channel blocks", func() {
	DescribeTable("port names",
		func(name func(string) string, channel, want string) {
			Expect(name(channel)).To(Equal(want))
		},
		Entry("error", ErrorPort, "T", "e_T"),
		Entry("command", CommandPort, "T_c", "command_T_c"),
		Entry("effect", EffectPort, "I_A", "effect_I_A"),
		Entry("sensed", SensedPort, "C_A", "sense_C_A"),
		Entry("setpoint", SetpointPort, "T", "T_sp"),
		Entry("disturbance", DisturbPort, "C_A", "C_A_disturb"),
	)

	Describe("Controllers", func() {
		It("should build one PI per channel with systematic ports", func() {
			gains := []lti.Gains{{Kp: 500, Ki: 50}, {Kp: 40, Ki: 4}}
			pid, err := Controllers(cvs, mvs, gains)
			Expect(err).NotTo(HaveOccurred())

			Expect(pid.Name()).To(Equal(ControllersBlock))
			Expect(pid.Inputs()).To(Equal([]string{"e_C_A", "e_T"}))
			Expect(pid.Outputs()).To(Equal([]string{"command_I_A", "command_T_c"}))
			Expect(pid.StateDim()).To(Equal(2))

			d := pid.D()
			Expect(d.At(0, 0)).To(Equal(500.0))
			Expect(d.At(1, 1)).To(Equal(40.0))
			offDiagonalZero(d)
			offDiagonalZero(pid.B())
			offDiagonalZero(pid.C())
			Expect(pid.C().At(1, 1)).To(Equal(4.0))
		})

		It("should drop the integrator state of a P-only channel", func() {
			pid, err := Controllers(cvs, mvs, []lti.Gains{{Kp: 1}, {Kp: 2, Ki: 1}})
			Expect(err).NotTo(HaveOccurred())
			Expect(pid.StateDim()).To(Equal(1))
		})

		It("should reject mismatched counts", func() {
			_, err := Controllers(cvs, mvs, []lti.Gains{{Kp: 1}})
			Expect(err).To(MatchError(ErrChannelCount))
			_, err = Controllers(cvs, mvs[:1], []lti.Gains{{Kp: 1}, {Kp: 1}})
			Expect(err).To(MatchError(ErrChannelCount))
		})

		It("should reject duplicate channel names", func() {
			_, err := Controllers([]string{"T", "T"}, mvs, []lti.Gains{{Kp: 1}, {Kp: 1}})
			Expect(err).To(MatchError(lti.ErrDuplicatePort))
		})

		It("should name the channel of an invalid derivative filter", func() {
			_, err := Controllers(cvs, mvs, []lti.Gains{{Kp: 1}, {Kp: 1, Kd: 1, Tf: -1}})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("controller for T"))
		})
	})

	Describe("Actuators and sensors", func() {
		It("should build one lag per manipulated variable", func() {
			act, err := Actuators(mvs, []float64{1, 4})
			Expect(err).NotTo(HaveOccurred())
			Expect(act.Name()).To(Equal(ActuatorsBlock))
			Expect(act.Inputs()).To(Equal([]string{"command_I_A", "command_T_c"}))
			Expect(act.Outputs()).To(Equal([]string{"effect_I_A", "effect_T_c"}))

			a := act.A()
			Expect(a.At(0, 0)).To(BeNumerically("~", -1, 1e-12))
			Expect(a.At(1, 1)).To(BeNumerically("~", -0.25, 1e-12))
			offDiagonalZero(a)
		})

		It("should build one lag per controlled variable", func() {
			sen, err := Sensors(cvs, []float64{0.25, 0.25})
			Expect(err).NotTo(HaveOccurred())
			Expect(sen.Name()).To(Equal(SensorsBlock))
			Expect(sen.Inputs()).To(Equal(cvs))
			Expect(sen.Outputs()).To(Equal([]string{"sense_C_A", "sense_T"}))
			Expect(sen.StateDim()).To(Equal(2))
		})

		It("should treat a zero time constant as an ideal instrument", func() {
			sen, err := Sensors(cvs, []float64{0, 0.5})
			Expect(err).NotTo(HaveOccurred())
			Expect(sen.StateDim()).To(Equal(1))
			Expect(sen.D().At(0, 0)).To(Equal(1.0))
		})

		It("should reject negative time constants and count mismatches", func() {
			_, err := Actuators(mvs, []float64{1, -1})
			Expect(err).To(MatchError(lti.ErrNegativeTimeConstant))
			Expect(err.Error()).To(ContainSubstring("command_T_c"))

			_, err = Sensors(cvs, []float64{1})
			Expect(err).To(MatchError(ErrChannelCount))
		})
	})

	It("should build setpoints as an identity injector", func() {
		sp, err := Setpoints(cvs)
		Expect(err).NotTo(HaveOccurred())
		Expect(sp.Name()).To(Equal(SetpointsBlock))
		Expect(sp.Inputs()).To(Equal([]string{"C_A_sp", "T_sp"}))
		Expect(sp.Outputs()).To(Equal(sp.Inputs()))
		Expect(sp.StateDim()).To(Equal(0))
		Expect(mat.Equal(sp.D(), mat.NewDiagDense(2, []float64{1, 1}))).To(BeTrue())
	})

	It("should allow an empty channel list", func() {
		sp, err := Setpoints(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(sp.InputDim()).To(BeZero())
	})
})
