// Package profile decodes fixed-width flat files against a record layout
// and aggregates per-column statistical profiles.
package profile

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mmrzaf/fwgen/internal/domain"
	"github.com/mmrzaf/fwgen/internal/layout"
	"github.com/mmrzaf/fwgen/internal/logging"
)

// WidthPolicy decides what happens to a line whose length differs from the
// declared record width.
type WidthPolicy int

const (
	// WidthLenient slices whatever is present: short lines yield empty
	// trailing values, bytes past the declared width are ignored.
	WidthLenient WidthPolicy = iota
	// WidthSkip drops mismatched lines and reports how many were dropped.
	WidthSkip
	// WidthStrict fails on the first mismatched line.
	WidthStrict
)

const (
	defaultCategoricalThreshold = 20
	defaultSampleSize           = 10
)

type Options struct {
	CategoricalThreshold int
	SampleSize           int
	WidthPolicy          WidthPolicy
}

type Profiler struct {
	opts   Options
	logger *logging.Logger
	rng    *rand.Rand
}

func New(logger *logging.Logger, opts Options) *Profiler {
	if opts.CategoricalThreshold <= 0 {
		opts.CategoricalThreshold = defaultCategoricalThreshold
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = defaultSampleSize
	}
	return &Profiler{
		opts:   opts,
		logger: logger.WithComponent("profiler"),
		// Sampling is diagnostic only; a fixed seed is not required.
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run decodes lines against l, profiles every column, writes the resulting
// name→profile mapping as indented JSON to outPath (creating parent
// directories as needed) and returns the same mapping.
func (p *Profiler) Run(l layout.Layout, lines []string, outPath string) (map[string]domain.ColumnProfile, error) {
	columns, rows, err := p.decode(l, lines)
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]domain.ColumnProfile, len(l))
	for i, entry := range l {
		profiles[entry.Name] = p.profileColumn(entry, columns[i], rows)
	}

	if outPath != "" {
		if err := writeJSON(outPath, profiles); err != nil {
			return nil, err
		}
		p.logger.Infow("profile.written", map[string]any{"path": outPath, "columns": len(profiles), "rows": rows})
	}
	return profiles, nil
}

// decode slices each line into per-column values. A trimmed-empty value is
// null, represented as absence from the column's value slice alongside a
// kept row count.
func (p *Profiler) decode(l layout.Layout, lines []string) ([][]string, int, error) {
	spans, total := layout.Spans(l)
	columns := make([][]string, len(l))
	rows := 0
	skipped := 0

	for n, line := range lines {
		if len(line) != total {
			switch p.opts.WidthPolicy {
			case WidthStrict:
				return nil, 0, fmt.Errorf("record %d is %d bytes, layout declares %d", n+1, len(line), total)
			case WidthSkip:
				skipped++
				continue
			}
		}

		for i, span := range spans {
			start, end := span.Start, span.End
			if start > len(line) {
				start = len(line)
			}
			if end > len(line) {
				end = len(line)
			}
			columns[i] = append(columns[i], strings.TrimSpace(line[start:end]))
		}
		rows++
	}

	if skipped > 0 {
		p.logger.Warn("skipped %d records with mismatched width", skipped)
	}
	return columns, rows, nil
}

func (p *Profiler) profileColumn(entry layout.Entry, values []string, rows int) domain.ColumnProfile {
	counts := make(map[string]int)
	nonNull := 0
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
		nonNull++
	}

	cp := domain.ColumnProfile{
		OriginalName: entry.Name,
		OriginalSpec: entry.Format.Source,
		Length:       entry.Format.ByteLength,
		TotalCount:   rows,
		NullCount:    rows - nonNull,
		UniqueCount:  len(counts),
	}
	if rows > 0 {
		cp.NullPercentage = round2(float64(cp.NullCount) / float64(rows) * 100)
		cp.UniquePercentage = round2(float64(cp.UniqueCount) / float64(rows) * 100)
	}

	if cp.UniqueCount <= p.opts.CategoricalThreshold && nonNull > 0 {
		cp.IsCategorical = true
		cp.EnumValues = counts
	} else {
		cp.SampleValues = p.sample(counts)
	}

	if entry.Format.Numeric() && nonNull > 0 {
		metrics, err := numericMetrics(values)
		if err != nil {
			// Non-fatal: only this column loses its metrics block.
			p.logger.Warn("column %q is not fully numeric, skipping metrics: %v", entry.Name, err)
		} else {
			cp.Metrics = metrics
		}
	}
	return cp
}

// sample draws up to SampleSize distinct values as a representative sample.
func (p *Profiler) sample(counts map[string]int) []string {
	distinct := make([]string, 0, len(counts))
	for v := range counts {
		distinct = append(distinct, v)
	}
	sort.Strings(distinct)
	p.rng.Shuffle(len(distinct), func(i, j int) {
		distinct[i], distinct[j] = distinct[j], distinct[i]
	})
	if len(distinct) > p.opts.SampleSize {
		distinct = distinct[:p.opts.SampleSize]
	}
	return distinct
}

func numericMetrics(values []string) (*domain.NumericMetrics, error) {
	var nums []float64
	for _, v := range values {
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", v, err)
		}
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return nil, fmt.Errorf("no numeric values")
	}

	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	mean := sum / float64(len(nums))

	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	// Sample standard deviation; a single value has none.
	std := 0.0
	if len(nums) > 1 {
		ss := 0.0
		for _, n := range nums {
			d := n - mean
			ss += d * d
		}
		std = math.Sqrt(ss / float64(len(nums)-1))
	}

	return &domain.NumericMetrics{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   mean,
		Median: median,
		StdDev: std,
	}, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func writeJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
