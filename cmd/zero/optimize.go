package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ChizhovVadim/CounterZero/internal/dataset"
	"github.com/ChizhovVadim/CounterZero/internal/journal"
	"github.com/ChizhovVadim/CounterZero/internal/loader"
	"github.com/ChizhovVadim/CounterZero/internal/model"
	"github.com/ChizhovVadim/CounterZero/internal/train"
	"github.com/ChizhovVadim/CounterZero/internal/trainer"
)

type optimizeConfig struct {
	trainer     trainer.Config
	modelDir    string
	nextDir     string
	journalPath string
	threads     int
	hidden      int
	seed        int64
	bootstrap   bool
}

func parseOptimizeFlags(args []string) (optimizeConfig, error) {
	var config = optimizeConfig{trainer: trainer.DefaultConfig()}
	var flags = flag.NewFlagSet("optimize", flag.ContinueOnError)
	flags.StringVar(&config.trainer.DataDir, "data", "./data", "Directory with self-play game files")
	flags.StringVar(&config.modelDir, "models", "./models", "Directory with the baseline model")
	flags.StringVar(&config.nextDir, "next", "", "Directory for new model generations (default <models>/next_generation)")
	flags.StringVar(&config.journalPath, "journal", "", "Path to the sqlite training journal")
	flags.IntVar(&config.trainer.LoadCeiling, "ceiling", config.trainer.LoadCeiling, "Examples to load before each fit")
	flags.IntVar(&config.trainer.TrimSize, "trim", 0, "Examples kept after each fit (default ceiling/2)")
	flags.IntVar(&config.trainer.PoolSize, "pool", defaultPoolSize(), "Number of game files decoded at once")
	flags.IntVar(&config.trainer.BatchSize, "batch", config.trainer.BatchSize, "Mini-batch size")
	flags.IntVar(&config.trainer.EpochsToCheckpoint, "epochs", config.trainer.EpochsToCheckpoint, "Epochs between checkpoints")
	flags.IntVar(&config.threads, "threads", runtime.NumCPU(), "Number of training threads")
	flags.IntVar(&config.hidden, "hidden", train.DefaultConfig().Hidden, "Hidden layer size of a bootstrapped network")
	flags.IntVar(&config.trainer.MinDataSize, "mindata", config.trainer.MinDataSize, "Examples required before fitting")
	flags.DurationVar(&config.trainer.PollInterval, "poll", config.trainer.PollInterval, "Wait between scans for new game files")
	flags.IntVar(&config.trainer.StartTotalSteps, "steps", 0, "Initial total step counter")
	flags.Int64Var(&config.seed, "seed", time.Now().UnixNano(), "Random seed")
	flags.BoolVar(&config.bootstrap, "bootstrap", false, "Start from random weights when there is no model")
	var err = flags.Parse(args)
	if err != nil {
		return optimizeConfig{}, err
	}
	if config.trainer.TrimSize <= 0 {
		config.trainer.TrimSize = config.trainer.LoadCeiling / 2
	}
	if config.nextDir == "" {
		config.nextDir = filepath.Join(config.modelDir, "next_generation")
	}
	if config.trainer.LoadCeiling <= 0 || config.trainer.BatchSize <= 0 || config.trainer.EpochsToCheckpoint <= 0 {
		return optimizeConfig{}, fmt.Errorf("bad optimize settings %+v", config.trainer)
	}
	if config.trainer.TrimSize >= config.trainer.LoadCeiling {
		return optimizeConfig{}, fmt.Errorf("trim %v must be less than ceiling %v",
			config.trainer.TrimSize, config.trainer.LoadCeiling)
	}
	return config, nil
}

func runOptimize(args []string, logger *log.Logger) error {
	config, err := parseOptimizeFlags(args)
	if err != nil {
		return err
	}
	logger.Printf("%+v", config)

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var networkConfig = train.DefaultConfig()
	networkConfig.Hidden = config.hidden
	var network = train.NewNetwork(networkConfig, config.threads, config.seed, logger)
	var store = model.NewStore(config.nextDir, config.modelDir, logger)
	err = store.ResolveInitial(network)
	if err != nil {
		if !errors.Is(err, model.ErrNoModel) || !config.bootstrap {
			return err
		}
		logger.Println("No model found, starting from random weights")
	}

	j, err := journal.Open(config.journalPath)
	if err != nil {
		return err
	}
	defer j.Close()

	var t = trainer.New(config.trainer, network, store,
		loader.DecoderFunc(dataset.Decode), j, logger)
	return t.Run(ctx)
}
