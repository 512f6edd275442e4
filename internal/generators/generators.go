// Package generators defines the generation-method dialect of a rules
// document. Each method's wire parameters compile into a statically-shaped
// payload so the record generator can dispatch exhaustively instead of
// branching on strings over untyped bags.
package generators

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmrzaf/fwgen/internal/timeutil"
)

// Method names as they appear in rules documents.
const (
	MethodSequentialID           = "sequential_unique_id"
	MethodCategoricalWeighted    = "categorical_weighted"
	MethodForeignKeyPool         = "foreign_key_pool"
	MethodConditionalCategorical = "conditional_categorical"
	MethodTruncatedNormal        = "truncated_normal"
	MethodUniformDateRange       = "uniform_date_range"
	MethodPersonalName           = "personal_name"
)

var ErrUnknownMethod = errors.New("unknown generation method")

var known = map[string]struct{}{
	MethodSequentialID:           {},
	MethodCategoricalWeighted:    {},
	MethodForeignKeyPool:         {},
	MethodConditionalCategorical: {},
	MethodTruncatedNormal:        {},
	MethodUniformDateRange:       {},
	MethodPersonalName:           {},
}

// Known reports whether method names a supported generation method.
func Known(method string) bool {
	_, ok := known[method]
	return ok
}

// Params is the compiled, method-specific payload of one field rule.
type Params interface {
	Method() string
}

type SequentialIDParams struct {
	StartValue int64
	Length     int
}

func (SequentialIDParams) Method() string { return MethodSequentialID }

type CategoricalWeightedParams struct {
	Values  []string
	Weights []float64
	Length  int
}

func (CategoricalWeightedParams) Method() string { return MethodCategoricalWeighted }

type ForeignKeyPoolParams struct {
	PoolSizeRatio float64
	Prefix        string
	Length        int
}

func (ForeignKeyPoolParams) Method() string { return MethodForeignKeyPool }

// WeightedValues is one candidate list of a conditional mapping.
type WeightedValues struct {
	Values  []string
	Weights []float64
}

// ConditionalCategoricalParams maps exact parent-field values to candidate
// lists; the "default" key, when present, catches unmapped parent values.
type ConditionalCategoricalParams struct {
	ParentField string
	Mappings    map[string]WeightedValues
	Length      int
}

func (ConditionalCategoricalParams) Method() string { return MethodConditionalCategorical }

type TruncatedNormalParams struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Length int
}

func (TruncatedNormalParams) Method() string { return MethodTruncatedNormal }

type UniformDateRangeParams struct {
	Start  time.Time
	End    time.Time
	Unique bool
	Length int
}

func (UniformDateRangeParams) Method() string { return MethodUniformDateRange }

type PersonalNameParams struct {
	Length int
}

func (PersonalNameParams) Method() string { return MethodPersonalName }

// Compile turns a wire-format parameter map into the method's typed payload.
// The validator must have resolved `length` before compilation.
func Compile(method string, params map[string]any) (Params, error) {
	length := int(toInt64(params["length"]))
	if length <= 0 {
		return nil, fmt.Errorf("method %s: missing or non-positive length", method)
	}

	switch method {
	case MethodSequentialID:
		start := int64(1)
		if v, ok := params["start_value"]; ok {
			start = toInt64(v)
		}
		return SequentialIDParams{StartValue: start, Length: length}, nil

	case MethodCategoricalWeighted:
		values, weights, err := weightedPair(params)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", method, err)
		}
		return CategoricalWeightedParams{Values: values, Weights: weights, Length: length}, nil

	case MethodForeignKeyPool:
		ratio := toFloat64(params["pool_size_ratio"])
		if ratio <= 0 {
			return nil, fmt.Errorf("method %s: 'pool_size_ratio' must be positive", method)
		}
		prefix := toString(params["prefix"])
		if len(prefix) >= length {
			return nil, fmt.Errorf("method %s: prefix %q leaves no room in %d bytes", method, prefix, length)
		}
		return ForeignKeyPoolParams{PoolSizeRatio: ratio, Prefix: prefix, Length: length}, nil

	case MethodConditionalCategorical:
		parent := strings.TrimSpace(toString(params["parent_field"]))
		if parent == "" {
			return nil, fmt.Errorf("method %s: 'parent_field' is required", method)
		}
		rawMappings, ok := params["mappings"].(map[string]any)
		if !ok || len(rawMappings) == 0 {
			return nil, fmt.Errorf("method %s: 'mappings' is required", method)
		}
		mappings := make(map[string]WeightedValues, len(rawMappings))
		for key, raw := range rawMappings {
			entry, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("method %s: mapping %q must be an object", method, key)
			}
			values, weights, err := weightedPair(entry)
			if err != nil {
				return nil, fmt.Errorf("method %s: mapping %q: %w", method, key, err)
			}
			mappings[key] = WeightedValues{Values: values, Weights: weights}
		}
		return ConditionalCategoricalParams{ParentField: parent, Mappings: mappings, Length: length}, nil

	case MethodTruncatedNormal:
		for _, key := range []string{"mean", "std_dev", "min", "max"} {
			if _, ok := params[key]; !ok {
				return nil, fmt.Errorf("method %s: %q is required", method, key)
			}
		}
		p := TruncatedNormalParams{
			Mean:   toFloat64(params["mean"]),
			StdDev: toFloat64(params["std_dev"]),
			Min:    toFloat64(params["min"]),
			Max:    toFloat64(params["max"]),
			Length: length,
		}
		if p.Max < p.Min {
			return nil, fmt.Errorf("method %s: max %v below min %v", method, p.Max, p.Min)
		}
		return p, nil

	case MethodUniformDateRange:
		start, err := timeutil.ParseYMD(toString(params["start_date"]))
		if err != nil {
			return nil, fmt.Errorf("method %s: 'start_date': %w", method, err)
		}
		end, err := timeutil.ParseYMD(toString(params["end_date"]))
		if err != nil {
			return nil, fmt.Errorf("method %s: 'end_date': %w", method, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("method %s: end_date before start_date", method)
		}
		unique, _ := params["unique"].(bool)
		return UniformDateRangeParams{Start: start, End: end, Unique: unique, Length: length}, nil

	case MethodPersonalName:
		return PersonalNameParams{Length: length}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

func weightedPair(params map[string]any) ([]string, []float64, error) {
	values := toStringSlice(params["values"])
	if len(values) == 0 {
		return nil, nil, errors.New("'values' cannot be empty")
	}
	weights := toFloat64Slice(params["weights"])
	if weights == nil {
		// Absent weights mean a uniform draw.
		weights = make([]float64, len(values))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(values) {
		return nil, nil, errors.New("'weights' and 'values' must have the same length")
	}
	for _, w := range weights {
		if w < 0 {
			return nil, nil, fmt.Errorf("negative weight: %v", w)
		}
	}
	return values, weights, nil
}
