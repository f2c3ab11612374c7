package train

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ChizhovVadim/CounterZero/internal/domain"
	"github.com/ChizhovVadim/CounterZero/internal/ml"
)

var ErrNonFinite = errors.New("non-finite loss")

type FitOptions struct {
	BatchSize       int
	Epochs          int
	Shuffle         bool
	ValidationSplit float64
}

type Metrics struct {
	Loss           float64
	PolicyLoss     float64
	ValueLoss      float64
	ValidationLoss float64
	Samples        int
	Steps          int
}

// Network is a trainable policy/value network.
type Network struct {
	config  Config
	main    *Model
	models  []*Model
	rnd     *rand.Rand
	logger  *log.Logger
	version uint32
}

func NewNetwork(config Config, threads int, seed int64, logger *log.Logger) *Network {
	if threads < 1 {
		threads = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	var n = &Network{
		config: config,
		rnd:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
	n.setModel(NewModel(config, n.rnd), threads)
	return n
}

func (n *Network) Config() Config {
	return n.config
}

func (n *Network) Predict(state []float32) ([]float64, float64) {
	return n.main.Predict(state)
}

func (n *Network) setModel(main *Model, threads int) {
	n.main = main
	n.models = make([]*Model, threads)
	n.models[0] = main
	for i := 1; i < len(n.models); i++ {
		n.models[i] = main.ThreadCopy()
	}
}

// Fit trains on the batch: the last ValidationSplit part is held out,
// the rest is optionally shuffled every epoch and processed in mini-batches.
func (n *Network) Fit(batch domain.Batch, opts FitOptions) (Metrics, error) {
	n.logger.Println("Train started",
		"samples", batch.Len(),
		"epochs", opts.Epochs)
	defer n.logger.Println("Train finished")

	if opts.BatchSize <= 0 {
		return Metrics{}, fmt.Errorf("bad batch size %v", opts.BatchSize)
	}
	if len(batch.States) != batch.Len()*n.config.Inputs || len(batch.Policies) != batch.Len()*n.config.Policy {
		return Metrics{}, fmt.Errorf("batch does not match network inputs %v policy %v", n.config.Inputs, n.config.Policy)
	}

	var validationSize = int(float64(batch.Len()) * opts.ValidationSplit)
	var trainingSize = batch.Len() - validationSize
	var training = make([]int, trainingSize)
	for i := range training {
		training[i] = i
	}
	var validation = make([]int, validationSize)
	for i := range validation {
		validation[i] = trainingSize + i
	}

	var metrics = Metrics{Samples: trainingSize}
	for epoch := 1; epoch <= opts.Epochs; epoch++ {
		if opts.Shuffle {
			n.rnd.Shuffle(len(training), func(i, j int) {
				training[i], training[j] = training[j], training[i]
			})
		}
		var policyCost, valueCost float64
		for i := 0; i < len(training); i += opts.BatchSize {
			var end = min(i+opts.BatchSize, len(training))
			var p, v = n.trainBatch(&batch, training[i:end])
			policyCost += p
			valueCost += v
			n.applyGradients()
			metrics.Steps++
		}
		if len(training) != 0 {
			metrics.PolicyLoss = policyCost / float64(len(training))
			metrics.ValueLoss = valueCost / float64(len(training))
		}
		metrics.Loss = n.config.PolicyLossWeight*metrics.PolicyLoss + n.config.ValueLossWeight*metrics.ValueLoss
		if len(validation) != 0 {
			var p, v = n.calcCost(&batch, validation)
			metrics.ValidationLoss = (n.config.PolicyLossWeight*p + n.config.ValueLossWeight*v) / float64(len(validation))
		}
		n.logger.Printf("Finished Epoch %v loss %f policy %f value %f validation %f\n",
			epoch, metrics.Loss, metrics.PolicyLoss, metrics.ValueLoss, metrics.ValidationLoss)
		if !isFinite(metrics.Loss) || !isFinite(metrics.ValidationLoss) {
			return metrics, fmt.Errorf("epoch %v: %w", epoch, ErrNonFinite)
		}
	}
	return metrics, nil
}

func (n *Network) trainBatch(batch *domain.Batch, indexes []int) (float64, float64) {
	return n.forEachSample(indexes, func(m *Model, sample int) (float64, float64) {
		return m.Train(n.state(batch, sample), n.policy(batch, sample), batch.Values[sample], &n.config)
	})
}

func (n *Network) applyGradients() {
	for i := 1; i < len(n.models); i++ {
		n.models[i].AddGradients(n.main)
	}
	n.main.ApplyGradients(n.config.LearningRate)
}

func (n *Network) calcCost(batch *domain.Batch, indexes []int) (float64, float64) {
	return n.forEachSample(indexes, func(m *Model, sample int) (float64, float64) {
		return m.CalcCost(n.state(batch, sample), n.policy(batch, sample), batch.Values[sample])
	})
}

// forEachSample hands out indexes to the thread models and sums the returned costs.
func (n *Network) forEachSample(indexes []int, f func(m *Model, sample int) (float64, float64)) (float64, float64) {
	var index int32 = -1
	var g errgroup.Group
	var policyCost, valueCost float64
	var mu = &sync.Mutex{}
	for i := range n.models {
		var m = n.models[i]
		g.Go(func() error {
			var localPolicy, localValue float64
			for {
				var i = int(atomic.AddInt32(&index, 1))
				if i >= len(indexes) {
					break
				}
				var p, v = f(m, indexes[i])
				localPolicy += p
				localValue += v
			}
			mu.Lock()
			policyCost += localPolicy
			valueCost += localValue
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return policyCost, valueCost
}

// Save writes the architecture config as JSON and the weights in binary form.
func (n *Network) Save(configPath, weightPath string) error {
	data, err := json.MarshalIndent(n.config, "", "  ")
	if err != nil {
		return err
	}
	err = os.WriteFile(configPath, data, 0644)
	if err != nil {
		return err
	}
	n.version++
	var file = &networkFile{
		Id: n.version,
		Topology: Topology{
			Inputs:        uint32(n.config.Inputs),
			Outputs:       uint32(n.config.Policy + 1),
			HiddenNeurons: []uint32{uint32(n.config.Hidden)},
		},
		Weights: []ml.Matrix{n.main.hidden.weights, n.main.policy.weights, n.main.value.weights},
		Biases:  []ml.Matrix{n.main.hidden.biases, n.main.policy.biases, n.main.value.biases},
	}
	return file.Save(weightPath)
}

// Load replaces the network with the one stored at configPath and weightPath.
// Optimizer state starts fresh.
func (n *Network) Load(configPath, weightPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}
	var config Config
	err = json.Unmarshal(data, &config)
	if err != nil {
		return fmt.Errorf("parse config %v: %w", configPath, err)
	}
	if config.LearningRate == 0 {
		config.LearningRate = n.config.LearningRate
	}
	file, err := loadNetworkFile(weightPath)
	if err != nil {
		return fmt.Errorf("load weights %v: %w", weightPath, err)
	}
	if file.Topology.Inputs != uint32(config.Inputs) ||
		file.Topology.Outputs != uint32(config.Policy+1) ||
		len(file.Topology.HiddenNeurons) != 1 ||
		file.Topology.HiddenNeurons[0] != uint32(config.Hidden) {
		return fmt.Errorf("%w: topology %+v does not match config %+v", errBadWeightFile, file.Topology, config)
	}

	var m = NewModel(config, n.rnd)
	m.hidden.weights, m.hidden.biases = file.Weights[0], file.Biases[0]
	m.policy.weights, m.policy.biases = file.Weights[1], file.Biases[1]
	m.value.weights, m.value.biases = file.Weights[2], file.Biases[2]
	n.config = config
	n.version = file.Id
	n.setModel(m, len(n.models))
	return nil
}

func (n *Network) state(batch *domain.Batch, i int) []float32 {
	return batch.States[i*n.config.Inputs : (i+1)*n.config.Inputs]
}

func (n *Network) policy(batch *domain.Batch, i int) []float32 {
	return batch.Policies[i*n.config.Policy : (i+1)*n.config.Policy]
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
