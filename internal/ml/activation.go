package ml

import "math"

type IActivationFn interface {
	Sigma(x float64) float64
	SigmaPrime(x float64) float64
}

type IdentityActivation struct{}

func (*IdentityActivation) Sigma(x float64) float64      { return x }
func (*IdentityActivation) SigmaPrime(x float64) float64 { return 1 }

type ReLuActivation struct{}

func (*ReLuActivation) Sigma(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func (*ReLuActivation) SigmaPrime(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

type TanhActivation struct{}

func (*TanhActivation) Sigma(x float64) float64 {
	return math.Tanh(x)
}

func (*TanhActivation) SigmaPrime(x float64) float64 {
	var y = math.Tanh(x)
	return 1 - y*y
}

// Softmax writes the normalized exponent of logits into probs. probs may be logits.
func Softmax(logits, probs []float64) {
	var maxLogit = math.Inf(-1)
	for _, x := range logits {
		if x > maxLogit {
			maxLogit = x
		}
	}
	var sum float64
	for i, x := range logits {
		probs[i] = math.Exp(x - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
}
