package ml

import "math"

type IModelCost interface {
	Cost(predicted, target float64) float64
	CostPrime(predicted, target float64) float64
}

type MSECost struct{}

func (*MSECost) Cost(predicted, target float64) float64 {
	var x = predicted - target
	return x * x
}

func (*MSECost) CostPrime(predicted, target float64) float64 {
	return 2 * (predicted - target)
}

// CrossEntropy of a target distribution against predicted probabilities.
func CrossEntropy(probs []float64, target []float32) float64 {
	const eps = 1e-12
	var result float64
	for i, t := range target {
		if t != 0 {
			result -= float64(t) * math.Log(probs[i]+eps)
		}
	}
	return result
}
