package domain

import (
	"encoding/json"
	"time"
)

// RulesDocument is the wire shape of a generation-rules file. Required
// members are pointer-typed so the validator can tell a missing key from a
// zero value.
type RulesDocument struct {
	GlobalConfig *GlobalConfig `json:"global_config" yaml:"global_config"`
	Fields       []FieldRule   `json:"fields" yaml:"fields"`
}

type GlobalConfig struct {
	DefaultRowCount int      `json:"default_row_count" yaml:"default_row_count"`
	RandomSeed      *int64   `json:"random_seed,omitempty" yaml:"random_seed,omitempty"`
	ScalingFactor   *float64 `json:"scaling_factor,omitempty" yaml:"scaling_factor,omitempty"`
}

// EffectiveRowCount is default_row_count scaled by scaling_factor, never
// below zero.
func (g *GlobalConfig) EffectiveRowCount() int {
	rows := g.DefaultRowCount
	if g.ScalingFactor != nil {
		rows = int(float64(rows)*(*g.ScalingFactor) + 0.5)
	}
	if rows < 0 {
		return 0
	}
	return rows
}

type FieldRule struct {
	Name            string          `json:"name" yaml:"name"`
	GenerationOrder *int            `json:"generation_order" yaml:"generation_order"`
	OriginalSpec    string          `json:"original_spec,omitempty" yaml:"original_spec,omitempty"`
	Generation      *GenerationSpec `json:"generation" yaml:"generation"`
	Dependencies    []Dependency    `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

type GenerationSpec struct {
	Method     string         `json:"method" yaml:"method"`
	Parameters map[string]any `json:"parameters" yaml:"parameters"`
}

// Dependency adjusts a field's generation based on an earlier field's value
// in the same record.
type Dependency struct {
	Field  string   `json:"field" yaml:"field"`
	Rule   string   `json:"rule" yaml:"rule"`
	Factor *float64 `json:"factor,omitempty" yaml:"factor,omitempty"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty"`
}

// ColumnProfile is the per-column output of a profiling run. Built fresh
// per run, never mutated after creation.
type ColumnProfile struct {
	OriginalName     string          `json:"original_name"`
	OriginalSpec     string          `json:"original_spec"`
	Length           int             `json:"length"`
	TotalCount       int             `json:"total_count"`
	NullCount        int             `json:"null_count"`
	NullPercentage   float64         `json:"null_percentage"`
	UniqueCount      int             `json:"unique_count"`
	UniquePercentage float64         `json:"unique_percentage"`
	IsCategorical    bool            `json:"is_categorical"`
	EnumValues       map[string]int  `json:"enum_values,omitempty"`
	SampleValues     []string        `json:"sample_values,omitempty"`
	Metrics          *NumericMetrics `json:"metrics,omitempty"`
}

type NumericMetrics struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

type RunKind string

const (
	RunKindProfile  RunKind = "profile"
	RunKindGenerate RunKind = "generate"
)

type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// Run is one recorded profiling or generation run.
type Run struct {
	ID          string          `json:"id"`
	Kind        RunKind         `json:"kind"`
	LayoutFile  string          `json:"layout_file,omitempty"`
	InputFile   string          `json:"input_file,omitempty"`
	RulesFile   string          `json:"rules_file,omitempty"`
	OutputFile  string          `json:"output_file"`
	Seed        int64           `json:"seed,omitempty"`
	RulesHash   string          `json:"rules_hash,omitempty"`
	Status      RunStatus       `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Stats       json.RawMessage `json:"stats,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type RunStats struct {
	Rows            int64   `json:"rows"`
	Columns         int     `json:"columns"`
	DurationSeconds float64 `json:"duration_seconds"`
}
