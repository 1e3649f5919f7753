package response

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Linspace returns n evenly spaced samples from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Step adds Value to the named input from time At onwards.
type Step struct {
	Input string  `yaml:"input" json:"input" validate:"required"`
	At    float64 `yaml:"at" json:"at"`
	Value float64 `yaml:"value" json:"value"`
}

func (s Step) String() string {
	return fmt.Sprintf("%s += %g @ t=%g", s.Input, s.Value, s.At)
}

// Steps builds the input matrix for a system with the given input names,
// sampled on times. Steps on the same input add up.
func Steps(inputs []string, times []float64, steps ...Step) (*mat.Dense, error) {
	for _, s := range steps {
		if indexOf(inputs, s.Input) < 0 {
			return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownInput, s.Input, inputs)
		}
	}
	if len(inputs) == 0 || len(times) == 0 {
		return nil, nil
	}
	u := mat.NewDense(len(inputs), len(times), nil)
	for _, s := range steps {
		i := indexOf(inputs, s.Input)
		for k, t := range times {
			if t >= s.At {
				u.Set(i, k, u.At(i, k)+s.Value)
			}
		}
	}
	return u, nil
}
