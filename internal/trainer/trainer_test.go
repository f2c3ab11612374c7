package trainer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ChizhovVadim/CounterZero/internal/domain"
	"github.com/ChizhovVadim/CounterZero/internal/journal"
	"github.com/ChizhovVadim/CounterZero/internal/loader"
	"github.com/ChizhovVadim/CounterZero/internal/model"
	"github.com/ChizhovVadim/CounterZero/internal/train"
)

var testLogger = log.New(io.Discard, "", 0)

type fakeModel struct {
	fitSizes []int
	err      error
	onFit    func()
}

func (m *fakeModel) Load(configPath, weightPath string) error { return nil }
func (m *fakeModel) Save(configPath, weightPath string) error { return nil }

func (m *fakeModel) Fit(batch domain.Batch, opts train.FitOptions) (train.Metrics, error) {
	m.fitSizes = append(m.fitSizes, batch.Len())
	if m.onFit != nil {
		m.onFit()
	}
	if m.err != nil {
		return train.Metrics{}, m.err
	}
	return train.Metrics{Loss: 1, Samples: batch.Len()}, nil
}

type fakeStore struct {
	generations []model.Generation
}

func (s *fakeStore) Checkpoint(m model.Model) (model.Generation, error) {
	var g = model.Generation{Name: fmt.Sprintf("model_%03d", len(s.generations))}
	s.generations = append(s.generations, g)
	return g, nil
}

// examplesPerFile decodes every file into the same number of zero examples.
func examplesPerFile(n int) loader.Decoder {
	return loader.DecoderFunc(func(filename string) (domain.Examples, error) {
		return domain.Examples{
			States:   make([]float32, n*domain.StateSize),
			Policies: make([]float32, n*domain.PolicySize),
			Values:   make([]float32, n),
		}, nil
	})
}

func writeFiles(t *testing.T, dir string, from, to int) {
	for i := from; i < to; i++ {
		var path = filepath.Join(dir, fmt.Sprintf("play_%03d.json", i))
		if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func testConfig(dir string) Config {
	var config = DefaultConfig()
	config.DataDir = dir
	config.LoadCeiling = 40
	config.TrimSize = 20
	config.PoolSize = 2
	config.BatchSize = 8
	config.EpochsToCheckpoint = 2
	config.PollInterval = 5 * time.Millisecond
	return config
}

func TestRunCycle(t *testing.T) {
	var dir = t.TempDir()
	writeFiles(t, dir, 0, 6)
	var m = &fakeModel{}
	var store = &fakeStore{}
	var trainer = New(testConfig(dir), m, store, examplesPerFile(10), nil, testLogger)

	for i := 0; i < 2; i++ {
		if err := trainer.RunCycle(context.Background()); err != nil {
			t.Fatal(err)
		}
		if trainer.BufferLen() != 20 {
			t.Error("buffer after trim", trainer.BufferLen())
		}
	}
	if len(m.fitSizes) != 2 || m.fitSizes[0] != 40 || m.fitSizes[1] != 40 {
		t.Error(m.fitSizes)
	}
	if trainer.TotalSteps() != 2*2*(40/8) {
		t.Error(trainer.TotalSteps())
	}
	if len(store.generations) != 2 || trainer.Cycles() != 2 {
		t.Error(store.generations, trainer.Cycles())
	}
}

func TestRunCyclePicksUpNewFiles(t *testing.T) {
	var dir = t.TempDir()
	writeFiles(t, dir, 0, 2)
	var config = testConfig(dir)
	config.MinDataSize = 30
	var m = &fakeModel{}
	var trainer = New(config, m, &fakeStore{}, examplesPerFile(10), nil, testLogger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(30 * time.Millisecond)
		if err := os.WriteFile(filepath.Join(dir, "play_002.json"), []byte("[]"), 0644); err != nil {
			t.Error(err)
		}
	}()
	var ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var err = trainer.RunCycle(ctx)
	wg.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if len(m.fitSizes) != 1 || m.fitSizes[0] != 30 {
		t.Error(m.fitSizes)
	}
}

func TestRunCycleWaitsForDataDir(t *testing.T) {
	var dir = filepath.Join(t.TempDir(), "not_yet")
	var config = testConfig(dir)
	config.MinDataSize = 10
	var m = &fakeModel{}
	var trainer = New(config, m, &fakeStore{}, examplesPerFile(10), nil, testLogger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(30 * time.Millisecond)
		if err := os.Mkdir(dir, 0755); err != nil {
			t.Error(err)
			return
		}
		if err := os.WriteFile(filepath.Join(dir, "play_000.json"), []byte("[]"), 0644); err != nil {
			t.Error(err)
		}
	}()
	var ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var err = trainer.RunCycle(ctx)
	wg.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if len(m.fitSizes) != 1 || m.fitSizes[0] != 10 {
		t.Error(m.fitSizes)
	}
}

func TestRunCycleCancelledWhileWaiting(t *testing.T) {
	var m = &fakeModel{}
	var trainer = New(testConfig(t.TempDir()), m, &fakeStore{}, examplesPerFile(10), nil, testLogger)
	var ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := trainer.RunCycle(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Error(err)
	}
	if len(m.fitSizes) != 0 {
		t.Error(m.fitSizes)
	}
}

func TestRunFitError(t *testing.T) {
	var dir = t.TempDir()
	writeFiles(t, dir, 0, 4)
	var m = &fakeModel{err: fmt.Errorf("epoch 1: %w", train.ErrNonFinite)}
	var store = &fakeStore{}
	var trainer = New(testConfig(dir), m, store, examplesPerFile(10), nil, testLogger)
	var err = trainer.Run(context.Background())
	if !errors.Is(err, train.ErrNonFinite) {
		t.Error(err)
	}
	if len(store.generations) != 0 {
		t.Error(store.generations)
	}
}

func TestRunResumesStepsFromJournal(t *testing.T) {
	var dir = t.TempDir()
	writeFiles(t, dir, 0, 4)
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	if err := j.RecordGeneration("model_old", 100, 0, 0, 0); err != nil {
		t.Fatal(err)
	}

	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	var m = &fakeModel{onFit: cancel}
	var trainer = New(testConfig(dir), m, &fakeStore{}, examplesPerFile(10), j, testLogger)
	if err := trainer.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if trainer.TotalSteps() != 100+2*(40/8) {
		t.Error(trainer.TotalSteps())
	}
	steps, err := j.LastTotalSteps()
	if err != nil || steps != trainer.TotalSteps() {
		t.Error(steps, err)
	}
	count, examples, err := j.LoadedFiles()
	if err != nil || count != 4 || examples != 40 {
		t.Error(count, examples, err)
	}
}
