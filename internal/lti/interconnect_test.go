package lti

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"
)

func mustRefs(names ...string) []Ref {
	refs, err := Refs(names...)
	Expect(err).NotTo(HaveOccurred())
	return refs
}

var _ = Describe("Interconnect", func() {
	var (
		pid, lag, sensor, sp *System
		blocks               []*System
	)

	BeforeEach(func() {
		var err error
		sp, err = NewPassthrough("sp", []string{"r"}, []string{"r"})
		Expect(err).NotTo(HaveOccurred())
		pid, err = NewPID("pid", "e", "u", Gains{Kp: 2, Ki: 1})
		Expect(err).NotTo(HaveOccurred())
		lag, err = NewDelay("lag", "u", "y", 1)
		Expect(err).NotTo(HaveOccurred())
		sensor, err = NewDelay("sensor", "y", "ym", 0.5)
		Expect(err).NotTo(HaveOccurred())
		blocks = []*System{sp, pid, lag, sensor}
	})

	loop := func() []Connection {
		return []Connection{
			Connect("pid.e", "sp.r", "-sensor.ym"),
			Connect("lag.u", "pid.u"),
			Connect("sensor.y", "lag.y"),
		}
	}

	It("should close a proportional loop around a lag", func() {
		gain, _ := NewPID("k", "e", "u", Gains{Kp: 2})
		conns := []Connection{
			Connect("k.e", "-lag.y"),
			Connect("lag.u", "k.u"),
		}
		cl, err := Interconnect("cl", []*System{gain, lag}, conns, mustRefs("k.e"), mustRefs("lag.y"))
		Expect(err).NotTo(HaveOccurred())

		// x' = -x + 2(w - x)
		Expect(cl.A().At(0, 0)).To(BeNumerically("~", -3, 1e-12))
		Expect(cl.B().At(0, 0)).To(BeNumerically("~", 2, 1e-12))
		Expect(cl.C().At(0, 0)).To(BeNumerically("~", 1, 1e-12))
		Expect(cl.D().At(0, 0)).To(BeNumerically("~", 0, 1e-12))
		Expect(cl.Inputs()).To(Equal([]string{"k.e"}))
		Expect(cl.Outputs()).To(Equal([]string{"lag.y"}))
	})

	It("should build summing junctions with signs", func() {
		a, _ := NewPassthrough("a", []string{"x"}, []string{"x"})
		b, _ := NewPassthrough("b", []string{"x"}, []string{"x"})
		sum, _ := NewPassthrough("sum", []string{"in"}, []string{"out"})
		conns := []Connection{Connect("sum.in", "a.x", "-b.x")}
		cl, err := Interconnect("diff", []*System{a, b, sum}, conns, mustRefs("a.x", "b.x"), mustRefs("sum.out"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cl.StateDim()).To(Equal(0))
		Expect(mat.Equal(cl.D(), mat.NewDense(1, 2, []float64{1, -1}))).To(BeTrue())
	})

	It("should accumulate repeated connections to one destination", func() {
		a, _ := NewPassthrough("a", []string{"x"}, []string{"x"})
		sum, _ := NewPassthrough("sum", []string{"in"}, []string{"out"})
		conns := []Connection{Connect("sum.in", "a.x"), Connect("sum.in", "a.x")}
		cl, err := Interconnect("twice", []*System{a, sum}, conns, mustRefs("a.x"), mustRefs("sum.out"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cl.D().At(0, 0)).To(BeNumerically("~", 2, 1e-12))
	})

	It("should let an external input share a port with internal wiring", func() {
		conns := loop()
		cl, err := Interconnect("cl", blocks, conns, mustRefs("sp.r", "lag.u"), mustRefs("lag.y"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cl.InputDim()).To(Equal(2))
		// The lag input column is the plain lag B, the pid path adds Kp on top.
		b := cl.B()
		lagState := pid.StateDim()
		Expect(b.At(lagState, 1)).To(BeNumerically("~", 1, 1e-12))
		Expect(b.At(lagState, 0)).To(BeNumerically("~", 2, 1e-12))
	})

	DescribeTable("state count is independent of wiring",
		func(conns []Connection) {
			cl, err := Interconnect("cl", blocks, conns, mustRefs("sp.r"), mustRefs("lag.y"))
			Expect(err).NotTo(HaveOccurred())
			want := 0
			for _, b := range blocks {
				want += b.StateDim()
			}
			Expect(cl.StateDim()).To(Equal(want))
			Expect(cl.StateDim()).To(Equal(3))
		},
		Entry("no connections", nil),
		Entry("open loop", []Connection{Connect("lag.u", "pid.u")}),
		Entry("closed loop", []Connection{
			Connect("pid.e", "sp.r", "-sensor.ym"),
			Connect("lag.u", "pid.u"),
			Connect("sensor.y", "lag.y"),
		}),
	)

	It("should shrink only the external interface when ports are dropped", func() {
		full, err := Interconnect("cl", blocks, loop(),
			mustRefs("sp.r", "lag.u"), mustRefs("lag.y", "sensor.ym"))
		Expect(err).NotTo(HaveOccurred())
		reduced, err := Interconnect("cl", blocks, loop(),
			mustRefs("sp.r"), mustRefs("lag.y"))
		Expect(err).NotTo(HaveOccurred())

		Expect(full.InputDim()).To(Equal(2))
		Expect(full.OutputDim()).To(Equal(2))
		Expect(reduced.InputDim()).To(Equal(1))
		Expect(reduced.OutputDim()).To(Equal(1))
		Expect(reduced.StateDim()).To(Equal(full.StateDim()))
		Expect(mat.Equal(reduced.A(), full.A())).To(BeTrue())
	})

	It("should make a passthrough in series with itself behave like one", func() {
		names := []string{"a", "b"}
		p1, _ := NewPassthrough("p1", names, names)
		p2, _ := NewPassthrough("p2", names, names)
		conns := []Connection{Connect("p2.a", "p1.a"), Connect("p2.b", "p1.b")}

		for _, order := range [][]*System{{p1, p2}, {p2, p1}} {
			cl, err := Interconnect("series", order, conns, mustRefs("p1.a", "p1.b"), mustRefs("p2.a", "p2.b"))
			Expect(err).NotTo(HaveOccurred())
			Expect(cl.StateDim()).To(Equal(0))
			Expect(mat.Equal(cl.D(), p1.D())).To(BeTrue())
		}
	})

	Context("algebraic loops", func() {
		var g1, g2 *System

		BeforeEach(func() {
			g1, _ = NewPassthrough("g1", []string{"in"}, []string{"out"})
			g2, _ = NewPassthrough("g2", []string{"in"}, []string{"out"})
		})

		It("should solve a well-posed instantaneous loop", func() {
			conns := []Connection{Connect("g1.in", "-g2.out"), Connect("g2.in", "g1.out")}
			cl, err := Interconnect("loop", []*System{g1, g2}, conns, mustRefs("g1.in"), mustRefs("g1.out"))
			Expect(err).NotTo(HaveOccurred())
			// y = w - y
			Expect(cl.D().At(0, 0)).To(BeNumerically("~", 0.5, 1e-12))
		})

		It("should reject a singular loop", func() {
			conns := []Connection{Connect("g1.in", "g2.out"), Connect("g2.in", "g1.out")}
			_, err := Interconnect("loop", []*System{g1, g2}, conns, mustRefs("g1.in"), mustRefs("g1.out"))
			Expect(err).To(MatchError(ErrAlgebraicLoop))
			Expect(err.Error()).To(ContainSubstring(`"loop"`))
		})

		It("should solve a well-posed loop with widely differing gains", func() {
			big, err := New("g1", []string{"in"}, []string{"out"}, nil, nil, nil, mat.NewDense(1, 1, []float64{1e7}))
			Expect(err).NotTo(HaveOccurred())
			small, err := New("g2", []string{"in"}, []string{"out"}, nil, nil, nil, mat.NewDense(1, 1, []float64{1e-7}))
			Expect(err).NotTo(HaveOccurred())

			conns := []Connection{Connect("g1.in", "-g2.out"), Connect("g2.in", "g1.out")}
			cl, err := Interconnect("loop", []*System{big, small}, conns, mustRefs("g1.in"), mustRefs("g1.out"))
			Expect(err).NotTo(HaveOccurred())
			// y = 1e7·(w - 1e-7·y)
			Expect(cl.D().At(0, 0)).To(BeNumerically("~", 5e6, 1e-3))
		})

		It("should accept the same wiring once a lag breaks the loop", func() {
			lagged, _ := NewDelay("g2", "in", "out", 0.1)
			conns := []Connection{Connect("g1.in", "g2.out"), Connect("g2.in", "g1.out")}
			_, err := Interconnect("loop", []*System{g1, lagged}, conns, mustRefs("g1.in"), mustRefs("g1.out"))
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("configuration errors", func() {
		DescribeTable("unresolved references name the offender",
			func(bs func() []*System, conns []Connection, ref string) {
				_, err := Interconnect("cl", bs(), conns, mustRefs("sp.r"), mustRefs("lag.y"))
				Expect(err).To(MatchError(ErrUnresolvedPort))
				var perr *PortError
				Expect(err).To(BeAssignableToTypeOf(perr))
				Expect(err.Error()).To(ContainSubstring(ref))
			},
			Entry("empty block list",
				func() []*System { return nil },
				[]Connection{Connect("pid.e", "sp.r")}, "pid.e"),
			Entry("wrong destination port",
				func() []*System { return blocks },
				[]Connection{Connect("pid.error", "sp.r")}, "pid.error"),
			Entry("wrong destination block",
				func() []*System { return blocks },
				[]Connection{Connect("pidx.e", "sp.r")}, "pidx.e"),
			Entry("wrong source port",
				func() []*System { return blocks },
				[]Connection{Connect("pid.e", "sp.setpoint")}, "sp.setpoint"),
			Entry("source naming an input port",
				func() []*System { return blocks },
				[]Connection{Connect("pid.e", "lag.u")}, "lag.u"),
		)

		It("should reject a reference sign other than +1 or -1", func() {
			scaled := Connection{
				Dest:    Ref{Block: "g1", Port: "in"},
				Sources: []Ref{{Block: "g2", Port: "out", Sign: 3}},
			}
			g1, _ := NewPassthrough("g1", []string{"in"}, []string{"out"})
			g2, _ := NewPassthrough("g2", []string{"in"}, []string{"out"})
			_, err := Interconnect("cl", []*System{g1, g2}, []Connection{scaled}, mustRefs("g2.in"), mustRefs("g1.out"))
			Expect(err).To(MatchError(ErrInvalidName))
			Expect(err.Error()).To(ContainSubstring("g2.out"))

			_, err = Interconnect("cl", []*System{g1, g2}, nil,
				[]Ref{{Block: "g1", Port: "in", Sign: 0.5}}, mustRefs("g1.out"))
			Expect(err).To(MatchError(ErrInvalidName))
		})

		It("should reject unresolved external ports", func() {
			_, err := Interconnect("cl", blocks, nil, mustRefs("plant.x"), nil)
			Expect(err).To(MatchError(ErrUnresolvedPort))
			_, err = Interconnect("cl", blocks, nil, nil, mustRefs("lag.nope"))
			Expect(err).To(MatchError(ErrUnresolvedPort))
			Expect(err.Error()).To(ContainSubstring("lag.nope"))
		})

		It("should reject duplicate block names", func() {
			other, _ := NewDelay("lag", "u", "y", 2)
			_, err := Interconnect("cl", []*System{lag, other}, nil, nil, nil)
			Expect(err).To(MatchError(ErrDuplicateBlock))
		})

		It("should reject connections without sources", func() {
			conns := []Connection{{Dest: MustRef("pid.e")}}
			_, err := Interconnect("cl", blocks, conns, nil, nil)
			Expect(err).To(MatchError(ErrEmptyConnection))
		})

		It("should reject duplicate external ports", func() {
			_, err := Interconnect("cl", blocks, nil, mustRefs("sp.r", "sp.r"), nil)
			Expect(err).To(MatchError(ErrDuplicatePort))
		})
	})

	It("should report closed-loop poles", func() {
		cl, err := Interconnect("cl", blocks, loop(), mustRefs("sp.r"), mustRefs("lag.y"))
		Expect(err).NotTo(HaveOccurred())
		poles, err := Poles(cl)
		Expect(err).NotTo(HaveOccurred())
		Expect(poles).To(HaveLen(3))
		stable, err := IsStable(cl)
		Expect(err).NotTo(HaveOccurred())
		Expect(stable).To(BeTrue())
	})
})
