package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iulianpascalau/rollup-capabilities/services/capabilities/common"
	_ "github.com/mattn/go-sqlite3"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("storage")

// ErrJobNotFound signals that no job with the requested name is registered
var ErrJobNotFound = errors.New("job not found")

// sqliteStorage is the sqlite implementation for the rollup jobs registry
type sqliteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage creates the database and the schema
func NewSQLiteStorage(dbPath string) (*sqliteStorage, error) {
	err := prepareDirectories(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial empty DB file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every :memory: connection is a distinct database
	db.SetMaxOpenConns(1)

	err = createSchema(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteStorage{
		db: db,
	}, nil
}

func prepareDirectories(dbPath string) error {
	return os.MkdirAll(filepath.Dir(dbPath), os.ModePerm)
}

func createSchema(db *sql.DB) error {
	// rowid keeps the registration order, the first job of an index is the canonical one
	schema := `
	CREATE TABLE IF NOT EXISTS rollup_jobs (
		name         TEXT NOT NULL PRIMARY KEY,
		rollup_index TEXT NOT NULL DEFAULT '',
		definition   TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rollup_jobs_rollup_index ON rollup_jobs(rollup_index);
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveJob inserts the job definition or replaces the existing one, keeping its registration position
func (s *sqliteStorage) SaveJob(ctx context.Context, job common.Job) error {
	return s.SaveJobs(ctx, []common.Job{job})
}

// SaveJobs stores all the provided jobs in a single transaction
func (s *sqliteStorage) SaveJobs(ctx context.Context, jobs []common.Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, job := range jobs {
		if len(job.Name) == 0 {
			return errors.New("empty job name")
		}

		definition, errMarshal := json.Marshal(job)
		if errMarshal != nil {
			return fmt.Errorf("failed to encode job definition: %w", errMarshal)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO rollup_jobs (name, rollup_index, definition)
			VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				rollup_index=excluded.rollup_index,
				definition=excluded.definition
		`, job.Name, job.RollupIndex, string(definition))
		if err != nil {
			return fmt.Errorf("failed to upsert job definition %q: %w", job.Name, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit job definitions: %w", err)
	}

	log.Debug("saved job definitions", "num jobs", len(jobs))

	return nil
}

// GetJob returns the definition of a single job
func (s *sqliteStorage) GetJob(ctx context.Context, name string) (*common.Job, error) {
	var definition string
	err := s.db.QueryRowContext(ctx, "SELECT definition FROM rollup_jobs WHERE name = ?", name).Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	var job common.Job
	err = json.Unmarshal([]byte(definition), &job)
	if err != nil {
		return nil, fmt.Errorf("failed to decode job definition %q: %w", name, err)
	}

	return &job, nil
}

// GetJobs returns the jobs of a rollup index in registration order. An empty index returns all jobs.
func (s *sqliteStorage) GetJobs(ctx context.Context, rollupIndex string) ([]common.Job, error) {
	query := "SELECT name, definition FROM rollup_jobs ORDER BY rowid"
	args := make([]interface{}, 0, 1)
	if len(rollupIndex) > 0 {
		query = "SELECT name, definition FROM rollup_jobs WHERE rollup_index = ? ORDER BY rowid"
		args = append(args, rollupIndex)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	jobs := make([]common.Job, 0)
	for rows.Next() {
		var name string
		var definition string
		err = rows.Scan(&name, &definition)
		if err != nil {
			return nil, err
		}

		var job common.Job
		err = json.Unmarshal([]byte(definition), &job)
		if err != nil {
			return nil, fmt.Errorf("failed to decode job definition %q: %w", name, err)
		}

		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// DeleteJob removes a job definition
func (s *sqliteStorage) DeleteJob(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM rollup_jobs WHERE name = ?", name)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrJobNotFound
	}

	return nil
}

// Close closes the database
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *sqliteStorage) IsInterfaceNil() bool {
	return s == nil
}
