package train

import (
	"errors"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/ChizhovVadim/CounterZero/internal/domain"
)

var discardLogger = log.New(io.Discard, "", 0)

func smallConfig() Config {
	var config = DefaultConfig()
	config.Inputs = 6
	config.Hidden = 8
	config.Policy = 4
	config.LearningRate = 0.01
	return config
}

// smallBatch maps input i to a policy peaked on move i%4 and value +1 or -1.
func smallBatch(config Config, n int) domain.Batch {
	var batch domain.Batch
	for i := 0; i < n; i++ {
		var state = make([]float32, config.Inputs)
		state[i%config.Inputs] = 1
		var policy = make([]float32, config.Policy)
		policy[i%config.Policy] = 1
		var value float32 = 1
		if i%2 == 1 {
			value = -1
		}
		batch.States = append(batch.States, state...)
		batch.Policies = append(batch.Policies, policy...)
		batch.Values = append(batch.Values, value)
	}
	return batch
}

func TestFitReducesLoss(t *testing.T) {
	var config = smallConfig()
	var net = NewNetwork(config, 2, 1, discardLogger)
	var batch = smallBatch(config, 24)
	var opts = FitOptions{BatchSize: 4, Epochs: 1, Shuffle: true}

	first, err := net.Fit(batch, opts)
	if err != nil {
		t.Fatal(err)
	}
	opts.Epochs = 100
	last, err := net.Fit(batch, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !(last.Loss < first.Loss) {
		t.Error(first.Loss, last.Loss)
	}
	if last.Steps != 100*6 {
		t.Error("steps", last.Steps)
	}
}

func TestFitValidationSplit(t *testing.T) {
	var config = smallConfig()
	var net = NewNetwork(config, 1, 1, discardLogger)
	var metrics, err = net.Fit(smallBatch(config, 20), FitOptions{BatchSize: 8, Epochs: 1, ValidationSplit: 0.25})
	if err != nil {
		t.Fatal(err)
	}
	if metrics.Samples != 15 || metrics.Steps != 2 {
		t.Error(metrics.Samples, metrics.Steps)
	}
	if metrics.ValidationLoss <= 0 {
		t.Error(metrics.ValidationLoss)
	}
}

func TestFitNonFinite(t *testing.T) {
	var config = smallConfig()
	var net = NewNetwork(config, 1, 1, discardLogger)
	var batch = smallBatch(config, 4)
	batch.Values[2] = float32(math.NaN())
	var _, err = net.Fit(batch, FitOptions{BatchSize: 4, Epochs: 1})
	if !errors.Is(err, ErrNonFinite) {
		t.Error(err)
	}
}

func TestFitBadBatch(t *testing.T) {
	var config = smallConfig()
	var net = NewNetwork(config, 1, 1, discardLogger)
	var batch = smallBatch(config, 4)
	batch.States = batch.States[:len(batch.States)-1]
	if _, err := net.Fit(batch, FitOptions{BatchSize: 4, Epochs: 1}); err == nil {
		t.Error("expected error")
	}
	if _, err := net.Fit(smallBatch(config, 4), FitOptions{BatchSize: 0, Epochs: 1}); err == nil {
		t.Error("expected error")
	}
}

func TestSaveLoad(t *testing.T) {
	var dir = t.TempDir()
	var configPath = filepath.Join(dir, "model_config.json")
	var weightPath = filepath.Join(dir, "model_weight.bin")

	var config = smallConfig()
	var net = NewNetwork(config, 1, 7, discardLogger)
	if err := net.Save(configPath, weightPath); err != nil {
		t.Fatal(err)
	}

	var loaded = NewNetwork(DefaultConfig(), 1, 8, discardLogger)
	if err := loaded.Load(configPath, weightPath); err != nil {
		t.Fatal(err)
	}
	if loaded.Config() != config {
		t.Error(loaded.Config(), config)
	}

	var rnd = rand.New(rand.NewSource(1))
	var state = make([]float32, config.Inputs)
	for i := range state {
		state[i] = rnd.Float32()
	}
	var p1, v1 = net.Predict(state)
	var p2, v2 = loaded.Predict(state)
	if math.Abs(v1-v2) > 1e-4 {
		t.Error(v1, v2)
	}
	for i := range p1 {
		if math.Abs(p1[i]-p2[i]) > 1e-4 {
			t.Error(i, p1[i], p2[i])
		}
	}
}

func TestLoadErrors(t *testing.T) {
	var dir = t.TempDir()
	var configPath = filepath.Join(dir, "model_config.json")
	var weightPath = filepath.Join(dir, "model_weight.bin")
	var config = smallConfig()
	var net = NewNetwork(config, 1, 7, discardLogger)
	if err := net.Save(configPath, weightPath); err != nil {
		t.Fatal(err)
	}

	var other = smallConfig()
	other.Hidden = 9
	var otherDir = t.TempDir()
	var otherConfigPath = filepath.Join(otherDir, "model_config.json")
	if err := NewNetwork(other, 1, 7, discardLogger).Save(otherConfigPath, filepath.Join(otherDir, "w.bin")); err != nil {
		t.Fatal(err)
	}
	if err := net.Load(otherConfigPath, weightPath); !errors.Is(err, errBadWeightFile) {
		t.Error("topology mismatch", err)
	}

	if err := os.WriteFile(weightPath, []byte("XX\x02\x01"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := net.Load(configPath, weightPath); !errors.Is(err, errBadWeightFile) {
		t.Error("bad magic", err)
	}

	if err := net.Load(filepath.Join(dir, "missing.json"), weightPath); err == nil {
		t.Error("missing config")
	}
}
