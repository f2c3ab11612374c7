package train

import (
	"math/rand"

	"github.com/ChizhovVadim/CounterZero/internal/ml"
)

type Neuron struct {
	Activation float64
	Error      float64
	Prime      float64
}

type Layer struct {
	activationFn ml.IActivationFn
	outputs      []Neuron
	weights      ml.Matrix
	biases       ml.Matrix
	wGradients   ml.Gradients
	bGradients   ml.Gradients
}

func (l *Layer) ThreadCopy() *Layer {
	return &Layer{
		activationFn: l.activationFn,
		outputs:      make([]Neuron, len(l.outputs)),
		weights:      l.weights,
		biases:       l.biases,
		wGradients:   ml.NewGradients(l.wGradients.Rows, l.wGradients.Cols),
		bGradients:   ml.NewGradients(l.bGradients.Rows, l.bGradients.Cols),
	}
}

func NewLayer(
	inputSize int,
	outputSize int,
	activationFn ml.IActivationFn,
) *Layer {
	return &Layer{
		outputs:      make([]Neuron, outputSize),
		activationFn: activationFn,
		weights:      ml.NewMatrix(outputSize, inputSize),
		biases:       ml.NewMatrix(outputSize, 1),
		wGradients:   ml.NewGradients(outputSize, inputSize),
		bGradients:   ml.NewGradients(outputSize, 1),
	}
}

func (layer *Layer) InitWeightsXavier(rnd *rand.Rand) *Layer {
	var outputSize = layer.weights.Rows
	var inputSize = layer.weights.Cols
	var variance = 2.0 / float64(inputSize+outputSize)
	ml.InitUniform(rnd, layer.weights.Data, variance)
	return layer
}

func (layer *Layer) InitWeightsReLU(rnd *rand.Rand) *Layer {
	var inputSize = layer.weights.Cols
	var variance = 2.0 / float64(inputSize)
	ml.InitUniform(rnd, layer.weights.Data, variance)
	return layer
}

// ForwardInput runs the layer on raw input planes. Zero inputs are skipped.
func (layer *Layer) ForwardInput(input []float32) {
	layer.startForward()
	for inputIndex, x := range input {
		if x == 0 {
			continue
		}
		var inputValue = float64(x)
		var column = layer.weights.Column(inputIndex)
		for outputIndex := range layer.outputs {
			layer.outputs[outputIndex].Activation += column[outputIndex] * inputValue
		}
	}
	layer.finishForward()
}

func (layer *Layer) Forward(input []Neuron) {
	layer.startForward()
	for inputIndex := range input {
		var inputValue = input[inputIndex].Activation
		if inputValue == 0 {
			continue
		}
		var column = layer.weights.Column(inputIndex)
		for outputIndex := range layer.outputs {
			layer.outputs[outputIndex].Activation += column[outputIndex] * inputValue
		}
	}
	layer.finishForward()
}

// startForward stores the pre-activation sum in Activation until finishForward.
func (layer *Layer) startForward() {
	for outputIndex := range layer.outputs {
		layer.outputs[outputIndex].Activation = layer.biases.Data[outputIndex]
	}
}

func (layer *Layer) finishForward() {
	for outputIndex := range layer.outputs {
		var n = &layer.outputs[outputIndex]
		var x = n.Activation
		n.Activation = layer.activationFn.Sigma(x)
		n.Prime = layer.activationFn.SigmaPrime(x)
	}
}

// Backward adds this layer's gradients and accumulates errors into input.
// The caller resets input errors before the first layer that feeds from them.
func (layer *Layer) Backward(input []Neuron) {
	for inputIndex := range input {
		var column = layer.weights.Column(inputIndex)
		var e float64
		for outputIndex := range layer.outputs {
			var n = &layer.outputs[outputIndex]
			e += column[outputIndex] * n.Error * n.Prime
		}
		input[inputIndex].Error += e
	}
	layer.addBiasGradients()
	for inputIndex := range input {
		layer.addWeightGradients(inputIndex, input[inputIndex].Activation)
	}
}

func (layer *Layer) BackwardInput(input []float32) {
	layer.addBiasGradients()
	for inputIndex, x := range input {
		if x != 0 {
			layer.addWeightGradients(inputIndex, float64(x))
		}
	}
}

func (layer *Layer) addBiasGradients() {
	for outputIndex := range layer.outputs {
		var n = &layer.outputs[outputIndex]
		layer.bGradients.Data[outputIndex].Value += n.Error * n.Prime
	}
}

func (layer *Layer) addWeightGradients(inputIndex int, inputValue float64) {
	if inputValue == 0 {
		return
	}
	var rows = layer.wGradients.Rows
	var column = layer.wGradients.Data[inputIndex*rows : (inputIndex+1)*rows]
	for outputIndex := range layer.outputs {
		var n = &layer.outputs[outputIndex]
		column[outputIndex].Value += n.Error * n.Prime * inputValue
	}
}

func (layer *Layer) AddGradients(main *Layer) {
	layer.wGradients.AddTo(&main.wGradients)
	layer.bGradients.AddTo(&main.bGradients)
}

func (layer *Layer) ApplyGradients(learningRate float64) {
	layer.wGradients.Apply(&layer.weights, learningRate)
	layer.bGradients.Apply(&layer.biases, learningRate)
}
