package runs

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mmrzaf/fwgen/internal/domain"
)

type SQLiteRepository struct {
	dbPath string
	db     *sql.DB
}

func NewSQLiteRepository(dbPath string) *SQLiteRepository {
	return &SQLiteRepository{dbPath: dbPath}
}

func (r *SQLiteRepository) Init() error {
	db, err := sql.Open("sqlite3", r.dbPath)
	if err != nil {
		return err
	}
	r.db = db

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		layout_file TEXT,
		input_file TEXT,
		rules_file TEXT,
		output_file TEXT NOT NULL,
		seed INTEGER,
		rules_hash TEXT,
		status TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP,
		stats TEXT,
		error TEXT
	)`

	_, err = r.db.Exec(createTableSQL)
	return err
}

func (r *SQLiteRepository) Create(run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	var completedAt interface{}
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.Format(time.RFC3339)
	}

	query := `
		INSERT INTO runs (
			id, kind, layout_file, input_file, rules_file, output_file,
			seed, rules_hash, status, started_at, completed_at, stats, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID, run.Kind, run.LayoutFile, run.InputFile, run.RulesFile, run.OutputFile,
		run.Seed, run.RulesHash, run.Status,
		run.StartedAt.Format(time.RFC3339), completedAt,
		string(run.Stats), run.Error,
	)
	return err
}

func (r *SQLiteRepository) Update(run *domain.Run) error {
	var completedAt interface{}
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.Format(time.RFC3339)
	}

	query := `
		UPDATE runs SET
			status = ?, completed_at = ?, stats = ?, error = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query, run.Status, completedAt, string(run.Stats), run.Error, run.ID)
	return err
}

const selectColumns = `
	id, kind, layout_file, input_file, rules_file, output_file,
	seed, rules_hash, status, started_at, completed_at, stats, error
`

func (r *SQLiteRepository) Get(id string) (*domain.Run, error) {
	row := r.db.QueryRow(`SELECT `+selectColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

func (r *SQLiteRepository) List(limit int, status string) ([]*domain.Run, error) {
	query := `SELECT ` + selectColumns + ` FROM runs`

	args := make([]interface{}, 0)
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
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

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
