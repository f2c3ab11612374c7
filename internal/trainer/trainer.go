package trainer

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ChizhovVadim/CounterZero/internal/dataset"
	"github.com/ChizhovVadim/CounterZero/internal/journal"
	"github.com/ChizhovVadim/CounterZero/internal/loader"
	"github.com/ChizhovVadim/CounterZero/internal/model"
	"github.com/ChizhovVadim/CounterZero/internal/replay"
	"github.com/ChizhovVadim/CounterZero/internal/train"
)

const tracerName = "github.com/ChizhovVadim/CounterZero/internal/trainer"

type Checkpointer interface {
	Checkpoint(m model.Model) (model.Generation, error)
}

// Trainer keeps a window of recent self-play examples in memory and
// repeatedly fits the model on it, saving a new generation after every fit.
type Trainer struct {
	config     Config
	model      model.Model
	store      Checkpointer
	journal    *journal.Journal
	logger     *log.Logger
	tracer     trace.Tracer
	buffer     *replay.Buffer
	backlog    *loader.Backlog
	loader     *loader.Loader
	totalSteps int
	cycles     int
}

// New creates a trainer. j may be nil.
func New(
	config Config,
	m model.Model,
	store Checkpointer,
	decoder loader.Decoder,
	j *journal.Journal,
	logger *log.Logger,
) *Trainer {
	if logger == nil {
		logger = log.Default()
	}
	var t = &Trainer{
		config:     config,
		model:      m,
		store:      store,
		journal:    j,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		buffer:     replay.NewBuffer(0),
		backlog:    loader.NewBacklog(nil),
		loader:     loader.NewLoader(decoder, config.PoolSize, config.LoadCeiling, logger),
		totalSteps: config.StartTotalSteps,
	}
	t.loader.OnFile = t.recordFile
	return t
}

func (t *Trainer) TotalSteps() int {
	return t.totalSteps
}

func (t *Trainer) Cycles() int {
	return t.cycles
}

func (t *Trainer) BufferLen() int {
	return t.buffer.Len()
}

// Run repeats training cycles until ctx is cancelled. Cancellation is not an error.
func (t *Trainer) Run(ctx context.Context) error {
	t.logger.Println("Optimizer started")
	defer t.logger.Println("Optimizer finished")

	if t.journal != nil {
		steps, err := t.journal.LastTotalSteps()
		if err != nil {
			return fmt.Errorf("read journal: %w", err)
		}
		if steps > t.totalSteps {
			t.totalSteps = steps
		}
		runID, err := t.journal.StartRun(fmt.Sprintf("%+v", t.config))
		if err != nil {
			return err
		}
		t.logger.Println("Journal run", runID, "total steps", t.totalSteps)
	}

	for {
		err := t.RunCycle(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// RunCycle loads examples up to the load ceiling, fits and checkpoints the model
// and trims the buffer back to the steady-state size.
func (t *Trainer) RunCycle(ctx context.Context) error {
	ctx, span := t.tracer.Start(ctx, "trainer.cycle",
		trace.WithAttributes(attribute.Int("trainer.cycle", t.cycles+1)))
	defer span.End()

	err := t.refill(ctx)
	if err != nil {
		return err
	}

	metrics, err := t.fit(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	generation, err := t.checkpoint(ctx, metrics)
	if err != nil {
		span.RecordError(err)
		return err
	}

	t.buffer.TrimTo(t.config.TrimSize)
	t.cycles++
	span.SetAttributes(
		attribute.String("trainer.generation", generation.Name),
		attribute.Int("trainer.total_steps", t.totalSteps),
		attribute.Int("trainer.examples", t.buffer.Len()))
	logMemory(t.logger, "trim", t.buffer)
	return nil
}

func (t *Trainer) refill(ctx context.Context) error {
	ctx, span := t.tracer.Start(ctx, "trainer.refill")
	defer span.End()

	var minSize = max(t.config.MinDataSize, 1)
	for {
		files, err := dataset.GameFiles(t.config.DataDir)
		if err != nil {
			return fmt.Errorf("list game files: %w", err)
		}
		var added = t.backlog.Refresh(files)
		updated, err := t.loader.Fill(ctx, t.buffer, t.backlog)
		if err != nil {
			return err
		}
		t.logger.Println("Refill",
			"new files", added,
			"backlog", t.backlog.Len(),
			"updated", updated,
			"examples", t.buffer.Len())
		if t.buffer.Len() >= minSize {
			span.SetAttributes(
				attribute.Int("refill.examples", t.buffer.Len()),
				attribute.Int("refill.backlog", t.backlog.Len()))
			logMemory(t.logger, "refill", t.buffer)
			return nil
		}
		t.logger.Println("Waiting for data",
			"examples", t.buffer.Len(),
			"required", minSize)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.config.PollInterval):
		}
	}
}

func (t *Trainer) fit(ctx context.Context) (train.Metrics, error) {
	_, span := t.tracer.Start(ctx, "trainer.fit")
	defer span.End()

	var batch = t.buffer.Snapshot()
	var start = time.Now()
	metrics, err := t.model.Fit(batch, train.FitOptions{
		BatchSize:       t.config.BatchSize,
		Epochs:          t.config.EpochsToCheckpoint,
		Shuffle:         true,
		ValidationSplit: t.config.ValidationSplit,
	})
	if err != nil {
		return metrics, fmt.Errorf("fit: %w", err)
	}
	t.totalSteps += t.config.EpochsToCheckpoint * (batch.Len() / t.config.BatchSize)
	span.SetAttributes(
		attribute.Int("fit.samples", batch.Len()),
		attribute.Float64("fit.loss", metrics.Loss),
		attribute.Float64("fit.validation_loss", metrics.ValidationLoss))
	t.logger.Println("Fit finished",
		"samples", batch.Len(),
		"loss", metrics.Loss,
		"validation", metrics.ValidationLoss,
		"total steps", t.totalSteps,
		"elapsed", time.Since(start))
	return metrics, nil
}

func (t *Trainer) checkpoint(ctx context.Context, metrics train.Metrics) (model.Generation, error) {
	_, span := t.tracer.Start(ctx, "trainer.checkpoint")
	defer span.End()

	generation, err := t.store.Checkpoint(t.model)
	if err != nil {
		return model.Generation{}, fmt.Errorf("checkpoint: %w", err)
	}
	err = t.journal.RecordGeneration(generation.Name, t.totalSteps, t.buffer.Len(),
		metrics.Loss, metrics.ValidationLoss)
	if err != nil {
		return model.Generation{}, err
	}
	return generation, nil
}

func (t *Trainer) recordFile(filename string, examples int, loadErr error) {
	var err = t.journal.RecordFile(filename, examples, loadErr)
	if err != nil {
		t.logger.Println("journal", err)
	}
}
