// Package app orchestrates profiling and generation runs, recording each
// in the run-history repository.
package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mmrzaf/fwgen/internal/domain"
	"github.com/mmrzaf/fwgen/internal/gen"
	"github.com/mmrzaf/fwgen/internal/hashing"
	"github.com/mmrzaf/fwgen/internal/infra/repos/rules"
	"github.com/mmrzaf/fwgen/internal/infra/repos/runs"
	"github.com/mmrzaf/fwgen/internal/layout"
	"github.com/mmrzaf/fwgen/internal/logging"
	"github.com/mmrzaf/fwgen/internal/profile"
	"github.com/mmrzaf/fwgen/internal/validation"
)

type RunService struct {
	runRepo      runs.Repository
	validator    *validation.Validator
	profilerOpts profile.Options
	baseLogger   *logging.Logger
	logger       *logging.Logger
}

func NewRunService(runRepo runs.Repository, logger *logging.Logger, profilerOpts profile.Options) *RunService {
	return &RunService{
		runRepo:      runRepo,
		validator:    validation.NewValidator(logger),
		profilerOpts: profilerOpts,
		baseLogger:   logger,
		logger:       logger.WithComponent("app"),
	}
}

// Profile decodes the fixed-width file at dataPath against the CSV layout
// at layoutPath, writes the column profiles to outPath and records the run.
func (s *RunService) Profile(layoutPath, dataPath, outPath string) (*domain.Run, map[string]domain.ColumnProfile, error) {
	run := &domain.Run{
		Kind:       domain.RunKindProfile,
		LayoutFile: filepath.Base(layoutPath),
		InputFile:  filepath.Base(dataPath),
		OutputFile: outPath,
		Status:     domain.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	if err := s.runRepo.Create(run); err != nil {
		return nil, nil, fmt.Errorf("failed to record run: %w", err)
	}

	profiles, err := s.runProfile(layoutPath, dataPath, outPath, run)
	if err != nil {
		s.finishRun(run, err)
		return run, nil, err
	}
	s.finishRun(run, nil)
	return run, profiles, nil
}

func (s *RunService) runProfile(layoutPath, dataPath, outPath string, run *domain.Run) (map[string]domain.ColumnProfile, error) {
	started := time.Now()

	layoutFile, err := os.Open(layoutPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open layout: %w", err)
	}
	defer layoutFile.Close()

	l, err := layout.ReadCSV(layoutFile)
	if err != nil {
		return nil, err
	}

	lines, err := readLines(dataPath)
	if err != nil {
		return nil, err
	}
	s.logger.Info("loaded %d records from %s", len(lines), dataPath)

	profiles, err := profile.New(s.baseLogger, s.profilerOpts).Run(l, lines, outPath)
	if err != nil {
		return nil, err
	}

	setStats(run, domain.RunStats{
		Rows:            int64(len(lines)),
		Columns:         len(l),
		DurationSeconds: time.Since(started).Seconds(),
	})
	return profiles, nil
}

// Generate validates the rules document at rulesPath, produces records
// fixed-width lines at outPath and records the run. A non-positive records
// count falls back to the document's effective row count; seedOverride
// replaces the document seed when non-nil.
func (s *RunService) Generate(rulesPath, outPath string, records int, seedOverride *int64) (*domain.Run, error) {
	run := &domain.Run{
		Kind:       domain.RunKindGenerate,
		RulesFile:  filepath.Base(rulesPath),
		OutputFile: outPath,
		Status:     domain.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	if err := s.runRepo.Create(run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	err := s.runGenerate(rulesPath, outPath, records, seedOverride, run)
	s.finishRun(run, err)
	return run, err
}

func (s *RunService) runGenerate(rulesPath, outPath string, records int, seedOverride *int64, run *domain.Run) error {
	started := time.Now()

	doc, err := rules.Load(rulesPath)
	if err != nil {
		return err
	}

	cleaned, err := s.validator.ValidateAndClean(doc)
	if err != nil {
		return err
	}
	if seedOverride != nil {
		cleaned.GlobalConfig.RandomSeed = seedOverride
	}

	hash, err := hashing.HashRules(cleaned)
	if err != nil {
		return fmt.Errorf("failed to hash rules: %w", err)
	}
	run.RulesHash = hash

	generator, err := gen.New(cleaned, s.logger)
	if err != nil {
		return err
	}
	run.Seed = generator.Seed()

	if records <= 0 {
		records = generator.RowCount()
	}

	lines, err := generator.GenerateRecords(records)
	if err != nil {
		return err
	}

	if err := writeLines(outPath, lines); err != nil {
		return err
	}
	s.logger.Info("wrote %d records to %s", len(lines), outPath)

	setStats(run, domain.RunStats{
		Rows:            int64(len(lines)),
		Columns:         len(cleaned.Fields),
		DurationSeconds: time.Since(started).Seconds(),
	})
	return nil
}

func (s *RunService) finishRun(run *domain.Run, runErr error) {
	now := time.Now().UTC()
	run.CompletedAt = &now
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.Error = runErr.Error()
	} else {
		run.Status = domain.RunStatusSuccess
	}
	if err := s.runRepo.Update(run); err != nil {
		s.logger.Error("failed to update run %s: %v", run.ID, err)
	}
}

func setStats(run *domain.Run, stats domain.RunStats) {
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	run.Stats = data
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	return lines, nil
}

func writeLines(path string, lines []string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
