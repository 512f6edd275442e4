package runs

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/mmrzaf/fwgen/internal/domain"
)

type PostgresRepository struct {
	dsn string
	db  *sql.DB
}

func NewPostgresRepository(dsn string) *PostgresRepository {
	return &PostgresRepository{dsn: strings.TrimSpace(dsn)}
}

func (r *PostgresRepository) Init() error {
	if r.dsn == "" {
		return fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", r.dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return err
	}
	r.db = db

	_, err = r.db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		layout_file TEXT,
		input_file TEXT,
		rules_file TEXT,
		output_file TEXT NOT NULL,
		seed BIGINT,
		rules_hash TEXT,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ,
		stats JSONB,
		error TEXT
	)`)
	return err
}

func (r *PostgresRepository) Create(run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	var completedAt interface{}
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.Format(time.RFC3339)
	}

	var stats interface{}
	if len(run.Stats) > 0 {
		stats = string(run.Stats)
	}

	_, err := r.db.Exec(`
		INSERT INTO runs (
			id, kind, layout_file, input_file, rules_file, output_file,
			seed, rules_hash, status, started_at, completed_at, stats, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		run.ID, run.Kind, run.LayoutFile, run.InputFile, run.RulesFile, run.OutputFile,
		run.Seed, run.RulesHash, run.Status,
		run.StartedAt.Format(time.RFC3339), completedAt, stats, run.Error,
	)
	return err
}

func (r *PostgresRepository) Update(run *domain.Run) error {
	var completedAt interface{}
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.Format(time.RFC3339)
	}

	var stats interface{}
	if len(run.Stats) > 0 {
		stats = string(run.Stats)
	}

	_, err := r.db.Exec(
		`UPDATE runs SET status = $1, completed_at = $2, stats = $3, error = $4 WHERE id = $5`,
		run.Status, completedAt, stats, run.Error, run.ID,
	)
	return err
}

func (r *PostgresRepository) Get(id string) (*domain.Run, error) {
	row := r.db.QueryRow(`SELECT `+selectColumns+` FROM runs WHERE id = $1`, id)
	return scanRun(row)
}

func (r *PostgresRepository) List(limit int, status string) ([]*domain.Run, error) {
	query := `SELECT ` + selectColumns + ` FROM runs`

	args := make([]interface{}, 0)
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *PostgresRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
