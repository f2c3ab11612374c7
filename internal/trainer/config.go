package trainer

import (
	"time"
)

type Config struct {
	DataDir            string
	LoadCeiling        int
	TrimSize           int
	PoolSize           int
	BatchSize          int
	EpochsToCheckpoint int
	ValidationSplit    float64
	MinDataSize        int
	PollInterval       time.Duration
	StartTotalSteps    int
}

func DefaultConfig() Config {
	return Config{
		LoadCeiling:        200_000,
		TrimSize:           100_000,
		PoolSize:           4,
		BatchSize:          384,
		EpochsToCheckpoint: 1,
		ValidationSplit:    0.05,
		MinDataSize:        1,
		PollInterval:       30 * time.Second,
	}
}
