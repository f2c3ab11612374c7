package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	settings TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS generations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	name TEXT NOT NULL,
	total_steps INTEGER NOT NULL,
	examples INTEGER NOT NULL,
	loss REAL NOT NULL,
	validation_loss REAL NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS loaded_files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	examples INTEGER NOT NULL,
	error TEXT NOT NULL,
	loaded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generations_run ON generations(run_id);
CREATE INDEX IF NOT EXISTS idx_loaded_files_name ON loaded_files(filename);
`

type GenerationRecord struct {
	RunID          string
	Name           string
	TotalSteps     int
	Examples       int
	Loss           float64
	ValidationLoss float64
	CreatedAt      time.Time
}

// Journal records training runs in a sqlite database.
// A nil *Journal is valid and records nothing.
type Journal struct {
	db    *sql.DB
	runID string
}

// Open opens or creates the journal database. An empty path returns a nil journal.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, nil
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %v: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) RunID() string {
	if j == nil {
		return ""
	}
	return j.runID
}

// StartRun registers a new optimizer run. Later records belong to it.
func (j *Journal) StartRun(settings string) (string, error) {
	if j == nil {
		return "", nil
	}
	var runID = uuid.NewString()
	_, err := j.db.Exec(`INSERT INTO runs (run_id, started_at, settings) VALUES (?, ?, ?)`,
		runID, now(), settings)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	j.runID = runID
	return runID, nil
}

func (j *Journal) RecordGeneration(name string, totalSteps, examples int, loss, validationLoss float64) error {
	if j == nil {
		return nil
	}
	_, err := j.db.Exec(`INSERT INTO generations
		(run_id, name, total_steps, examples, loss, validation_loss, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.runID, name, totalSteps, examples, loss, validationLoss, now())
	if err != nil {
		return fmt.Errorf("record generation %v: %w", name, err)
	}
	return nil
}

func (j *Journal) RecordFile(filename string, examples int, loadErr error) error {
	if j == nil {
		return nil
	}
	var message string
	if loadErr != nil {
		message = loadErr.Error()
	}
	_, err := j.db.Exec(`INSERT INTO loaded_files (run_id, filename, examples, error, loaded_at)
		VALUES (?, ?, ?, ?, ?)`,
		j.runID, filename, examples, message, now())
	if err != nil {
		return fmt.Errorf("record file %v: %w", filename, err)
	}
	return nil
}

// LastTotalSteps returns the step counter of the newest recorded generation, 0 if there is none.
func (j *Journal) LastTotalSteps() (int, error) {
	if j == nil {
		return 0, nil
	}
	var steps int
	err := j.db.QueryRow(`SELECT total_steps FROM generations ORDER BY id DESC LIMIT 1`).Scan(&steps)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return steps, nil
}

// Generations returns up to limit most recent generations, newest first.
func (j *Journal) Generations(limit int) ([]GenerationRecord, error) {
	if j == nil {
		return nil, nil
	}
	rows, err := j.db.Query(`SELECT run_id, name, total_steps, examples, loss, validation_loss, created_at
		FROM generations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []GenerationRecord
	for rows.Next() {
		var r GenerationRecord
		var createdAt string
		err = rows.Scan(&r.RunID, &r.Name, &r.TotalSteps, &r.Examples, &r.Loss, &r.ValidationLoss, &createdAt)
		if err != nil {
			return nil, err
		}
		r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse time %v: %w", createdAt, err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// LoadedFiles returns the number of recorded file loads, failed ones included,
// and the total examples they gave.
func (j *Journal) LoadedFiles() (int, int, error) {
	if j == nil {
		return 0, 0, nil
	}
	var count, examples int
	err := j.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(examples), 0) FROM loaded_files`).Scan(&count, &examples)
	if err != nil {
		return 0, 0, err
	}
	return count, examples, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
