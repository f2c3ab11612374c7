package train

import (
	"math/rand"

	"github.com/ChizhovVadim/CounterZero/internal/domain"
	"github.com/ChizhovVadim/CounterZero/internal/ml"
)

// Config describes the network architecture and loss weighting.
// It is stored next to the weights as the generation config file.
type Config struct {
	Inputs           int     `json:"inputs"`
	Hidden           int     `json:"hidden"`
	Policy           int     `json:"policy"`
	PolicyLossWeight float64 `json:"policy_loss_weight"`
	ValueLossWeight  float64 `json:"value_loss_weight"`
	LearningRate     float64 `json:"learning_rate"`
}

func DefaultConfig() Config {
	return Config{
		Inputs:           domain.StateSize,
		Hidden:           128,
		Policy:           domain.PolicySize,
		PolicyLossWeight: 1.25,
		ValueLossWeight:  1.0,
		LearningRate:     ml.DefaultLearningRate,
	}
}

// Model is a policy/value network: a shared ReLU layer feeding a softmax policy head
// and a tanh value head.
type Model struct {
	hidden *Layer
	policy *Layer
	value  *Layer
	probs  []float64
	cost   ml.IModelCost
}

func NewModel(config Config, rnd *rand.Rand) *Model {
	return &Model{
		hidden: NewLayer(config.Inputs, config.Hidden, &ml.ReLuActivation{}).InitWeightsReLU(rnd),
		policy: NewLayer(config.Hidden, config.Policy, &ml.IdentityActivation{}).InitWeightsXavier(rnd),
		value:  NewLayer(config.Hidden, 1, &ml.TanhActivation{}).InitWeightsXavier(rnd),
		probs:  make([]float64, config.Policy),
		cost:   &ml.MSECost{},
	}
}

func (m *Model) ThreadCopy() *Model {
	return &Model{
		hidden: m.hidden.ThreadCopy(),
		policy: m.policy.ThreadCopy(),
		value:  m.value.ThreadCopy(),
		probs:  make([]float64, len(m.probs)),
		cost:   m.cost,
	}
}

func (m *Model) forward(state []float32) {
	m.hidden.ForwardInput(state)
	m.policy.Forward(m.hidden.outputs)
	m.value.Forward(m.hidden.outputs)
	for i := range m.policy.outputs {
		m.probs[i] = m.policy.outputs[i].Activation
	}
	ml.Softmax(m.probs, m.probs)
}

// Predict returns move probabilities and the value of a position.
func (m *Model) Predict(state []float32) ([]float64, float64) {
	m.forward(state)
	var probs = make([]float64, len(m.probs))
	copy(probs, m.probs)
	return probs, m.value.outputs[0].Activation
}

// CalcCost returns the policy and value losses of one example.
func (m *Model) CalcCost(state, policy []float32, value float32) (float64, float64) {
	m.forward(state)
	return ml.CrossEntropy(m.probs, policy),
		m.cost.Cost(m.value.outputs[0].Activation, float64(value))
}

// Train accumulates gradients of one example and returns its losses.
func (m *Model) Train(state, policy []float32, value float32, config *Config) (float64, float64) {
	m.forward(state)
	var policyCost = ml.CrossEntropy(m.probs, policy)
	var predicted = m.value.outputs[0].Activation
	var valueCost = m.cost.Cost(predicted, float64(value))

	// softmax with cross entropy: dL/dlogit = p - t
	for i := range m.policy.outputs {
		m.policy.outputs[i].Error = config.PolicyLossWeight * (m.probs[i] - float64(policy[i]))
	}
	m.value.outputs[0].Error = config.ValueLossWeight * m.cost.CostPrime(predicted, float64(value))

	for i := range m.hidden.outputs {
		m.hidden.outputs[i].Error = 0
	}
	m.policy.Backward(m.hidden.outputs)
	m.value.Backward(m.hidden.outputs)
	m.hidden.BackwardInput(state)
	return policyCost, valueCost
}

func (m *Model) AddGradients(mainModel *Model) {
	if m == mainModel {
		return
	}
	m.hidden.AddGradients(mainModel.hidden)
	m.policy.AddGradients(mainModel.policy)
	m.value.AddGradients(mainModel.value)
}

func (m *Model) ApplyGradients(learningRate float64) {
	m.hidden.ApplyGradients(learningRate)
	m.policy.ApplyGradients(learningRate)
	m.value.ApplyGradients(learningRate)
}
