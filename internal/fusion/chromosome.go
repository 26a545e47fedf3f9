// Package fusion combines the four upstream rankings of each category into a
// single consensus ranking by evolving per-request layer weights with a
// genetic algorithm.
package fusion

import (
	"fmt"
	"math"
	"math/rand"
)

// minWeightSum is the total below which weights are reset to uniform.
const minWeightSum = 1e-10

// Chromosome is one candidate weighting of the upstream layers. Weights are
// non-negative and sum to 1 after every constructor and mutation.
type Chromosome struct {
	Weights [Layers]float64 `json:"weights"`
	Fitness float64         `json:"fitness"`
}

// NewChromosome returns a chromosome with the given weights, normalized.
func NewChromosome(weights [Layers]float64) Chromosome {
	c := Chromosome{Weights: weights}
	c.normalize()
	return c
}

// RandomChromosome draws uniform weights from rng and normalizes them.
func RandomChromosome(rng *rand.Rand) Chromosome {
	var w [Layers]float64
	for i := range w {
		w[i] = rng.Float64()
	}
	return NewChromosome(w)
}

// normalize clamps negative weights to zero and rescales to a unit sum. A
// vanishing sum resets every weight to 1/Layers.
func (c *Chromosome) normalize() {
	sum := 0.0
	for i, w := range c.Weights {
		if w < 0 || math.IsNaN(w) {
			c.Weights[i] = 0
			continue
		}
		sum += w
	}

	if sum < minWeightSum || math.IsInf(sum, 0) {
		for i := range c.Weights {
			c.Weights[i] = 1.0 / Layers
		}
		return
	}
	for i := range c.Weights {
		c.Weights[i] /= sum
	}
}

// Mutate adds Gaussian noise with standard deviation strength to every
// weight, then renormalizes.
func (c *Chromosome) Mutate(rng *rand.Rand, strength float64) {
	for i := range c.Weights {
		c.Weights[i] += gaussian(rng) * strength
	}
	c.normalize()
}

// gaussian returns a standard normal sample using the Box-Muller transform.
func gaussian(rng *rand.Rand) float64 {
	u1 := 1 - rng.Float64() // (0, 1] keeps the log finite
	u2 := rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// Crossover blends two parents with a single alpha drawn from rng:
//
//	child1 = alpha*a + (1-alpha)*b
//	child2 = (1-alpha)*a + alpha*b
func Crossover(a, b Chromosome, rng *rand.Rand) (Chromosome, Chromosome) {
	alpha := rng.Float64()

	var w1, w2 [Layers]float64
	for i := range w1 {
		w1[i] = alpha*a.Weights[i] + (1-alpha)*b.Weights[i]
		w2[i] = (1-alpha)*a.Weights[i] + alpha*b.Weights[i]
	}
	return NewChromosome(w1), NewChromosome(w2)
}

// Estimate is the weighted rank of a candidate under c.
func (c Chromosome) Estimate(ranks [Layers]Rank) float64 {
	est := 0.0
	for i, r := range ranks {
		est += c.Weights[i] * float64(r)
	}
	return est
}

// Sum returns the total weight.
func (c Chromosome) Sum() float64 {
	sum := 0.0
	for _, w := range c.Weights {
		sum += w
	}
	return sum
}

func (c Chromosome) String() string {
	return fmt.Sprintf("weights [%.4f %.4f %.4f %.4f] fitness %.6f",
		c.Weights[0], c.Weights[1], c.Weights[2], c.Weights[3], c.Fitness)
}
