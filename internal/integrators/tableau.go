package integrators

// Tableau is an explicit Runge-Kutta scheme in Butcher form. A is strictly
// lower triangular, stored by row with row s holding s coefficients. Err
// holds the weights of the embedded error estimate (B minus the weights of
// the lower-order solution) and is empty for fixed-step schemes.
type Tableau struct {
	Name  string
	Order int
	C     []float64
	A     [][]float64
	B     []float64
	Err   []float64
}

func (t Tableau) Stages() int { return len(t.B) }

var (
	EulerTableau = Tableau{
		Name:  "euler",
		Order: 1,
		C:     []float64{0},
		A:     [][]float64{{}},
		B:     []float64{1},
	}

	RK4Tableau = Tableau{
		Name:  "rk4",
		Order: 4,
		C:     []float64{0, 1.0 / 2, 1.0 / 2, 1},
		A: [][]float64{
			{},
			{1.0 / 2},
			{0, 1.0 / 2},
			{0, 0, 1},
		},
		B: []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
	}

	// DormandPrince is the 5(4) pair; the last stage evaluates the
	// fifth-order solution.
	DormandPrince = Tableau{
		Name:  "rk45",
		Order: 5,
		C:     []float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1},
		A: [][]float64{
			{},
			{1.0 / 5},
			{3.0 / 40, 9.0 / 40},
			{44.0 / 45, -56.0 / 15, 32.0 / 9},
			{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
			{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
			{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
		},
		B: []float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0},
		Err: []float64{
			35.0/384 - 5179.0/57600,
			0,
			500.0/1113 - 7571.0/16695,
			125.0/192 - 393.0/640,
			-2187.0/6784 + 92097.0/339200,
			11.0/84 - 187.0/2100,
			-1.0 / 40,
		},
	}
)
