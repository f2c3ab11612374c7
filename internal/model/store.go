package model

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ChizhovVadim/CounterZero/internal/domain"
	"github.com/ChizhovVadim/CounterZero/internal/train"
)

var ErrNoModel = errors.New("no model generation and no baseline model")

const (
	ConfigFile         = "model_config.json"
	WeightFile         = "model_weight.bin"
	BaselineConfigFile = "model_best_config.json"
	BaselineWeightFile = "model_best_weight.bin"

	generationPrefix = "model_"
	tempPrefix       = ".tmp_"
	timestampLayout  = "20060102-150405.000000"
)

type Model interface {
	Load(configPath, weightPath string) error
	Save(configPath, weightPath string) error
	Fit(batch domain.Batch, opts train.FitOptions) (train.Metrics, error)
}

type Generation struct {
	Name string
	Dir  string
}

func (g Generation) ConfigPath() string {
	return filepath.Join(g.Dir, ConfigFile)
}

func (g Generation) WeightPath() string {
	return filepath.Join(g.Dir, WeightFile)
}

// Store knows where model generations and the baseline model live.
type Store struct {
	NextGenerationDir string
	ModelDir          string
	Logger            *log.Logger

	now func() time.Time
}

func NewStore(nextGenerationDir, modelDir string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		NextGenerationDir: nextGenerationDir,
		ModelDir:          modelDir,
		Logger:            logger,
		now:               time.Now,
	}
}

// Generations lists the generation directories, oldest first.
// A missing next-generation directory means there are none.
func (s *Store) Generations() ([]Generation, error) {
	entries, err := os.ReadDir(s.NextGenerationDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var result []Generation
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), generationPrefix) {
			continue
		}
		result = append(result, Generation{
			Name: entry.Name(),
			Dir:  filepath.Join(s.NextGenerationDir, entry.Name()),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// ResolveInitial loads the newest generation into m, or the baseline if there is no generation.
func (s *Store) ResolveInitial(m Model) error {
	generations, err := s.Generations()
	if err != nil {
		return err
	}
	if len(generations) != 0 {
		var latest = generations[len(generations)-1]
		s.Logger.Println("Load model generation", latest.Dir)
		err = m.Load(latest.ConfigPath(), latest.WeightPath())
		if err != nil {
			return fmt.Errorf("load generation %v: %w", latest.Name, err)
		}
		return nil
	}

	var configPath = filepath.Join(s.ModelDir, BaselineConfigFile)
	var weightPath = filepath.Join(s.ModelDir, BaselineWeightFile)
	if !fileExists(configPath) || !fileExists(weightPath) {
		return ErrNoModel
	}
	s.Logger.Println("Load baseline model", s.ModelDir)
	err = m.Load(configPath, weightPath)
	if err != nil {
		return fmt.Errorf("load baseline: %w", err)
	}
	return nil
}

// Checkpoint saves m as a new generation named by the current time.
// The files are written to a temporary directory that is renamed once complete,
// so a generation directory never holds a partial model.
func (s *Store) Checkpoint(m Model) (Generation, error) {
	var name = generationPrefix + s.now().Format(timestampLayout)
	var g = Generation{
		Name: name,
		Dir:  filepath.Join(s.NextGenerationDir, name),
	}
	err := os.MkdirAll(s.NextGenerationDir, 0755)
	if err != nil {
		return Generation{}, err
	}
	_, err = os.Stat(g.Dir)
	if err == nil {
		return Generation{}, fmt.Errorf("create generation %v: already exists", name)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return Generation{}, err
	}
	var tmp = Generation{
		Name: name,
		Dir:  filepath.Join(s.NextGenerationDir, tempPrefix+name),
	}
	err = os.Mkdir(tmp.Dir, 0755)
	if err != nil {
		return Generation{}, fmt.Errorf("create generation: %w", err)
	}
	err = m.Save(tmp.ConfigPath(), tmp.WeightPath())
	if err != nil {
		os.RemoveAll(tmp.Dir)
		return Generation{}, fmt.Errorf("save generation %v: %w", name, err)
	}
	err = os.Rename(tmp.Dir, g.Dir)
	if err != nil {
		os.RemoveAll(tmp.Dir)
		return Generation{}, fmt.Errorf("publish generation %v: %w", name, err)
	}
	s.Logger.Println("Saved model generation", g.Dir)
	return g, nil
}

func fileExists(path string) bool {
	var info, err = os.Stat(path)
	return err == nil && !info.IsDir()
}
