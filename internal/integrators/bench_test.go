package integrators

import (
	"testing"

	"github.com/san-kum/cstrsim/internal/dynamo"
)

func benchmarkStepper(b *testing.B, rk dynamo.Stepper) {
	f := &oscillator{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = rk.Step(f, x, 0, 0.01)
	}
}

func BenchmarkEuler(b *testing.B) { benchmarkStepper(b, NewEuler()) }
func BenchmarkRK4(b *testing.B)   { benchmarkStepper(b, NewRK4()) }
func BenchmarkRK45(b *testing.B)  { benchmarkStepper(b, NewRK45()) }
