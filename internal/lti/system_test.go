package lti

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"
)

// expectPortShape checks that port lists and matrices agree.
func expectPortShape(s *System) {
	n, m, p := s.Dims()
	Expect(s.Inputs()).To(HaveLen(m))
	Expect(s.Outputs()).To(HaveLen(p))
	if n > 0 {
		r, c := s.A().Dims()
		Expect([]int{r, c}).To(Equal([]int{n, n}))
	} else {
		Expect(s.A()).To(BeNil())
	}
	if n > 0 && m > 0 {
		r, c := s.B().Dims()
		Expect([]int{r, c}).To(Equal([]int{n, m}))
	}
	if p > 0 && n > 0 {
		r, c := s.C().Dims()
		Expect([]int{r, c}).To(Equal([]int{p, n}))
	}
	if p > 0 && m > 0 {
		r, c := s.D().Dims()
		Expect([]int{r, c}).To(Equal([]int{p, m}))
	}
}

var _ = Describe("New", func() {
	It("should build a static gain from D alone", func() {
		s, err := New("gain", []string{"u"}, []string{"y"}, nil, nil, nil, mat.NewDense(1, 1, []float64{3}))
		Expect(err).NotTo(HaveOccurred())
		Expect(s.StateDim()).To(Equal(0))
		Expect(s.IsStatic()).To(BeTrue())
		Expect(s.Output(nil, []float64{2})).To(Equal([]float64{6}))
		expectPortShape(s)
	})

	It("should reject a non-square A", func() {
		_, err := New("bad", []string{"u"}, []string{"y"}, mat.NewDense(1, 2, nil), nil, nil, nil)
		Expect(err).To(MatchError(ErrDimensionMismatch))
	})

	It("should reject B that disagrees with the input ports", func() {
		_, err := New("bad", []string{"u", "v"}, []string{"y"},
			mat.NewDense(1, 1, []float64{-1}), mat.NewDense(1, 1, []float64{1}), nil, nil)
		Expect(err).To(MatchError(ErrDimensionMismatch))
		Expect(err.Error()).To(ContainSubstring(`"bad"`))
		Expect(err.Error()).To(ContainSubstring("B is 1x1, want 1x2"))
	})

	It("should reject C that disagrees with the output ports", func() {
		_, err := New("bad", []string{"u"}, nil,
			mat.NewDense(1, 1, []float64{-1}), nil, mat.NewDense(1, 1, []float64{1}), nil)
		Expect(err).To(MatchError(ErrDimensionMismatch))
	})

	It("should reject duplicate and empty port names", func() {
		_, err := New("dup", []string{"u", "u"}, nil, nil, nil, nil, nil)
		Expect(err).To(MatchError(ErrDuplicatePort))
		_, err = New("empty", nil, []string{""}, nil, nil, nil, nil)
		Expect(err).To(MatchError(ErrDuplicatePort))
	})

	It("should reject block names that cannot be referenced", func() {
		for _, name := range []string{"", "a.b", "a b"} {
			_, err := New(name, nil, nil, nil, nil, nil, nil)
			Expect(err).To(MatchError(ErrInvalidName), name)
		}
	})

	It("should not share storage with the caller", func() {
		d := mat.NewDense(1, 1, []float64{1})
		s, err := New("g", []string{"u"}, []string{"y"}, nil, nil, nil, d)
		Expect(err).NotTo(HaveOccurred())
		d.Set(0, 0, 5)
		s.D().Set(0, 0, 7)
		Expect(s.D().At(0, 0)).To(Equal(1.0))
	})
})

var _ = Describe("NewPID", func() {
	It("should realize PI control with one integrator", func() {
		s, err := NewPID("pid", "e", "u", Gains{Kp: 500, Ki: 50})
		Expect(err).NotTo(HaveOccurred())
		expectPortShape(s)
		Expect(s.StateDim()).To(Equal(1))
		Expect(s.A().At(0, 0)).To(Equal(0.0))
		Expect(s.B().At(0, 0)).To(Equal(1.0))
		Expect(s.C().At(0, 0)).To(Equal(50.0))
		Expect(s.D().At(0, 0)).To(Equal(500.0))
	})

	It("should reduce to a static gain without integral or derivative action", func() {
		s, err := NewPID("p", "e", "u", Gains{Kp: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.IsStatic()).To(BeTrue())
		Expect(s.D().At(0, 0)).To(Equal(2.0))
	})

	It("should filter the derivative so the block stays proper", func() {
		s, err := NewPID("pid", "e", "u", Gains{Kp: 1, Ki: 2, Kd: 0.5, Tf: 0.1})
		Expect(err).NotTo(HaveOccurred())
		expectPortShape(s)
		Expect(s.StateDim()).To(Equal(2))
		Expect(s.A().At(1, 1)).To(BeNumerically("~", -10, 1e-12))
		Expect(s.C().At(0, 1)).To(BeNumerically("~", -50, 1e-12))
		// High-frequency gain is Kp + Kd/Tf, finite.
		Expect(s.D().At(0, 0)).To(BeNumerically("~", 6, 1e-12))
	})

	It("should use the default filter when Tf is zero", func() {
		s, err := NewPID("pid", "e", "u", Gains{Kd: 1})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.A().At(0, 0)).To(BeNumerically("~", -1/DefaultDerivativeFilter, 1e-9))
	})

	It("should reject a negative filter constant", func() {
		_, err := NewPID("pid", "e", "u", Gains{Kd: 1, Tf: -1})
		Expect(err).To(MatchError(ErrNegativeTimeConstant))
	})
})

var _ = Describe("NewDelay", func() {
	It("should realize a first-order lag", func() {
		s, err := NewDelay("act", "in", "out", 4)
		Expect(err).NotTo(HaveOccurred())
		expectPortShape(s)
		Expect(s.A().At(0, 0)).To(Equal(-0.25))
		Expect(s.B().At(0, 0)).To(Equal(0.25))
		Expect(s.C().At(0, 0)).To(Equal(1.0))
		Expect(s.D().At(0, 0)).To(Equal(0.0))

		gain, err := DCGain(s)
		Expect(err).NotTo(HaveOccurred())
		Expect(gain.At(0, 0)).To(BeNumerically("~", 1, 1e-12))
	})

	It("should degenerate to a pass-through when tau is zero", func() {
		s, err := NewDelay("wire", "in", "out", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.IsStatic()).To(BeTrue())
		Expect(s.Output(nil, []float64{1.25})).To(Equal([]float64{1.25}))
	})

	It("should reject a negative time constant", func() {
		_, err := NewDelay("bad", "in", "out", -0.1)
		Expect(err).To(MatchError(ErrNegativeTimeConstant))
	})
})

var _ = Describe("NewPassthrough", func() {
	It("should copy each input to its output", func() {
		s, err := NewPassthrough("set_points", []string{"a", "b", "c"}, []string{"a", "b", "c"})
		Expect(err).NotTo(HaveOccurred())
		expectPortShape(s)
		Expect(s.IsStatic()).To(BeTrue())
		Expect(s.Output(nil, []float64{1, -2, 3})).To(Equal([]float64{1, -2, 3}))
	})

	It("should reject unequal port counts", func() {
		_, err := NewPassthrough("bad", []string{"a"}, []string{"a", "b"})
		Expect(err).To(MatchError(ErrDimensionMismatch))
	})
})

var _ = Describe("Append", func() {
	It("should combine blocks without cross-coupling", func() {
		p1, _ := NewPID("p1", "e", "u", Gains{Kp: 1, Ki: 2})
		p2, _ := NewPID("p2", "e", "u", Gains{Kp: 3, Ki: 4})
		s, err := Append("pid", []string{"e_1", "e_2"}, []string{"u_1", "u_2"}, p1, p2)
		Expect(err).NotTo(HaveOccurred())
		expectPortShape(s)
		Expect(s.StateDim()).To(Equal(2))

		Expect(mat.Equal(s.D(), mat.NewDense(2, 2, []float64{1, 0, 0, 3}))).To(BeTrue())
		Expect(mat.Equal(s.B(), mat.NewDense(2, 2, []float64{1, 0, 0, 1}))).To(BeTrue())
		Expect(mat.Equal(s.C(), mat.NewDense(2, 2, []float64{2, 0, 0, 4}))).To(BeTrue())

		// Driving channel 1 leaves channel 2 untouched.
		y := s.Output([]float64{0, 0}, []float64{1, 0})
		Expect(y).To(Equal([]float64{1, 0}))
	})

	It("should mix static and dynamic blocks", func() {
		d1, _ := NewDelay("d1", "i", "o", 0)
		d2, _ := NewDelay("d2", "i", "o", 2)
		s, err := Append("lags", []string{"a", "b"}, []string{"x", "y"}, d1, d2)
		Expect(err).NotTo(HaveOccurred())
		expectPortShape(s)
		Expect(s.StateDim()).To(Equal(1))
		Expect(s.B().At(0, 1)).To(Equal(0.5))
		Expect(s.B().At(0, 0)).To(Equal(0.0))
	})

	It("should require one name per port", func() {
		d, _ := NewDelay("d", "i", "o", 1)
		_, err := Append("lags", []string{"a", "b"}, []string{"x"}, d)
		Expect(err).To(MatchError(ErrDimensionMismatch))
	})
})

var _ = Describe("ParseRef", func() {
	DescribeTable("valid references",
		func(in string, want Ref) {
			got, err := ParseRef(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("plain", "pid.e_T", Ref{Block: "pid", Port: "e_T", Sign: 1}),
		Entry("negated", "-sensors.sense_T", Ref{Block: "sensors", Port: "sense_T", Sign: -1}),
		Entry("explicit plus", "+plant.T", Ref{Block: "plant", Port: "T", Sign: 1}),
		Entry("dotted port", "cl.plant.T", Ref{Block: "cl", Port: "plant.T", Sign: 1}),
	)

	DescribeTable("malformed references",
		func(in string) {
			_, err := ParseRef(in)
			Expect(err).To(MatchError(ErrInvalidName))
		},
		Entry("no dot", "pid"),
		Entry("no block", ".e"),
		Entry("no port", "pid."),
		Entry("empty", ""),
	)

	It("should render signs in connections", func() {
		c := Connect("pid.e_T", "set_points.T_sp", "-sensors.sense_T")
		Expect(c.String()).To(Equal("pid.e_T <- set_points.T_sp + -sensors.sense_T"))
	})
})
