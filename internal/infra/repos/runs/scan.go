package runs

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mmrzaf/fwgen/internal/domain"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*domain.Run, error) {
	var run domain.Run
	var startedAt string
	var completedAt, stats, errMsg sql.NullString

	err := row.Scan(
		&run.ID, &run.Kind, &run.LayoutFile, &run.InputFile, &run.RulesFile, &run.OutputFile,
		&run.Seed, &run.RulesHash, &run.Status,
		&startedAt, &completedAt, &stats, &errMsg,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		run.CompletedAt = &t
	}
	if stats.Valid && stats.String != "" {
		run.Stats = json.RawMessage(stats.String)
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return &run, nil
}
