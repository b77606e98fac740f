// Package dist provides the probability distributions used by call-center
// models. All sampling goes through an explicit *rand.Rand so that each
// simulation run can own an independent random stream.
package dist

import (
	"fmt"
	"math"
	"math/rand"
)

// A Distribution can draw random values. Implementations are immutable and
// safe to share across runs; only the *rand.Rand carries per-run state.
type Distribution interface {
	Sample(rng *rand.Rand) float64
}

// NonNegative draws from d, redrawing a bounded number of times if the value
// is negative and clamping to zero as a last resort.
func NonNegative(rng *rand.Rand, d Distribution) float64 {
	for i := 0; i < 100; i++ {
		v := d.Sample(rng)
		if v >= 0 {
			return v
		}
	}
	return 0
}

// Deterministic always returns the same value.
type Deterministic struct {
	Value float64
}

func (d Deterministic) Sample(_ *rand.Rand) float64 {
	return d.Value
}

// Uniform draws uniformly from [Min, Max).
type Uniform struct {
	Min, Max float64
}

func (d Uniform) Sample(rng *rand.Rand) float64 {
	return d.Min + rng.Float64()*(d.Max-d.Min)
}

// Exponential draws from an exponential distribution with the given mean.
type Exponential struct {
	Mean float64
}

func (d Exponential) Sample(rng *rand.Rand) float64 {
	return rng.ExpFloat64() * d.Mean
}

// Normal draws from a normal distribution.
type Normal struct {
	Mean, SD float64
}

func (d Normal) Sample(rng *rand.Rand) float64 {
	return rng.NormFloat64()*d.SD + d.Mean
}

// LogNormal draws from a log-normal distribution parameterized by the mean
// and standard deviation of the resulting values.
type LogNormal struct {
	Mean, SD float64
}

func (d LogNormal) Sample(rng *rand.Rand) float64 {
	if d.Mean <= 0 {
		return 0
	}
	sigma2 := math.Log(1 + (d.SD*d.SD)/(d.Mean*d.Mean))
	mu := math.Log(d.Mean) - sigma2/2
	return math.Exp(rng.NormFloat64()*math.Sqrt(sigma2) + mu)
}

// Empirical draws from a density array over equally sized slots spanning
// [0, SlotWidth*len(Density)). A zero-sum density always samples 0.
type Empirical struct {
	Density   []float64
	SlotWidth float64

	sum float64
}

// NewEmpirical creates an empirical distribution and precomputes the density
// sum.
func NewEmpirical(density []float64, slotWidth float64) *Empirical {
	e := &Empirical{Density: density, SlotWidth: slotWidth}
	for _, v := range density {
		e.sum += v
	}
	return e
}

func (d *Empirical) Sample(rng *rand.Rand) float64 {
	if d.sum <= 0 {
		return 0
	}
	p := rng.Float64() * d.sum
	for i, v := range d.Density {
		if p < v {
			return (float64(i) + rng.Float64()) * d.SlotWidth
		}
		p -= v
	}
	return float64(len(d.Density)) * d.SlotWidth
}

// Spec is the YAML-friendly description of a distribution.
type Spec struct {
	Type      string    `yaml:"type"`
	Value     float64   `yaml:"value,omitempty"`
	Mean      float64   `yaml:"mean,omitempty"`
	SD        float64   `yaml:"sd,omitempty"`
	Min       float64   `yaml:"min,omitempty"`
	Max       float64   `yaml:"max,omitempty"`
	Density   []float64 `yaml:"density,omitempty"`
	SlotWidth float64   `yaml:"slotWidth,omitempty"`
}

// Build turns a Spec into a Distribution.
func (s Spec) Build() (Distribution, error) {
	switch s.Type {
	case "deterministic":
		return Deterministic{Value: s.Value}, nil
	case "uniform":
		if s.Max < s.Min {
			return nil, fmt.Errorf("uniform distribution: max %f < min %f", s.Max, s.Min)
		}
		return Uniform{Min: s.Min, Max: s.Max}, nil
	case "exponential":
		return Exponential{Mean: s.Mean}, nil
	case "normal":
		return Normal{Mean: s.Mean, SD: s.SD}, nil
	case "lognormal":
		return LogNormal{Mean: s.Mean, SD: s.SD}, nil
	case "empirical":
		if len(s.Density) == 0 {
			return nil, fmt.Errorf("empirical distribution: density must not be empty")
		}
		w := s.SlotWidth
		if w == 0 {
			w = 1
		}
		return NewEmpirical(s.Density, w), nil
	case "":
		return nil, fmt.Errorf("distribution type missing")
	default:
		return nil, fmt.Errorf("unknown distribution type %q", s.Type)
	}
}
