// Package gen turns a validated rules document into deterministic
// fixed-width records.
package gen

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mmrzaf/fwgen/internal/domain"
	"github.com/mmrzaf/fwgen/internal/generators"
	"github.com/mmrzaf/fwgen/internal/logging"
	"github.com/mmrzaf/fwgen/internal/picture"
	"github.com/mmrzaf/fwgen/internal/timeutil"
)

var (
	ErrPoolExhausted  = errors.New("data pool exhausted")
	ErrMissingMapping = errors.New("no conditional mapping for parent value")
)

// The one supported dependency rule: multiply the mean by factor when the
// named earlier field's value is in the dependency's value set.
const depScaleMeanWhenIn = "scale_mean_when_in"

type compiledField struct {
	name       string
	length     int
	fracDigits int
	params     generators.Params
	deps       []domain.Dependency
}

// Generator owns all mutable generation state: one seeded random stream,
// one counter per sequential field and the pre-built pools. A Generator is
// not safe for concurrent use; run one instance per goroutine.
type Generator struct {
	logger     *logging.Logger
	rng        *rand.Rand
	seed       int64
	rowCount   int
	fields     []compiledField
	counters   map[string]int64
	keyPools   map[string][]string
	dateQueues map[string][]time.Time
}

// New compiles a validated rules document, seeds the random stream and runs
// the pre-generation pass (foreign-key pools, unique date queues). Fields
// are sorted once by generation_order; ties keep document order.
func New(doc *domain.RulesDocument, logger *logging.Logger) (*Generator, error) {
	if doc == nil || doc.GlobalConfig == nil || doc.Fields == nil {
		return nil, errors.New("rules document has not been validated")
	}

	seed := time.Now().UnixNano()
	if doc.GlobalConfig.RandomSeed != nil {
		seed = *doc.GlobalConfig.RandomSeed
	}

	g := &Generator{
		logger:     logger.WithComponent("generator"),
		rng:        rand.New(rand.NewSource(seed)),
		seed:       seed,
		rowCount:   doc.GlobalConfig.EffectiveRowCount(),
		counters:   make(map[string]int64),
		keyPools:   make(map[string][]string),
		dateQueues: make(map[string][]time.Time),
	}

	for _, field := range doc.Fields {
		if field.GenerationOrder == nil || field.Generation == nil {
			return nil, fmt.Errorf("rules document has not been validated: field %q", field.Name)
		}
	}

	ordered := append([]domain.FieldRule(nil), doc.Fields...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return *ordered[i].GenerationOrder < *ordered[j].GenerationOrder
	})

	for _, field := range ordered {
		params, err := generators.Compile(field.Generation.Method, field.Generation.Parameters)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Name, err)
		}

		cf := compiledField{
			name:   field.Name,
			length: paramsLength(params),
			params: params,
			deps:   field.Dependencies,
		}
		if field.OriginalSpec != "" {
			format, err := picture.Parse(field.OriginalSpec)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", field.Name, err)
			}
			cf.fracDigits = format.FractionalDigits
		}
		g.fields = append(g.fields, cf)
	}

	if err := g.buildPools(); err != nil {
		return nil, err
	}
	return g, nil
}

// Seed is the seed the random stream was initialized with.
func (g *Generator) Seed() int64 { return g.seed }

// RowCount is the document's effective row count (default_row_count scaled
// by scaling_factor).
func (g *Generator) RowCount() int { return g.rowCount }

// buildPools runs once per document, before any record is built, using the
// same random stream as record generation so identical seeds give identical
// pools.
func (g *Generator) buildPools() error {
	for _, f := range g.fields {
		switch p := f.params.(type) {
		case generators.ForeignKeyPoolParams:
			size := int(math.Round(float64(g.rowCount) * p.PoolSizeRatio))
			if size < 1 {
				g.logger.Warn("field %q: pool size rounded to zero, using 1", f.name)
				size = 1
			}
			width := p.Length - len(p.Prefix)
			pool := make([]string, size)
			for i := range pool {
				key := strconv.Itoa(i + 1)
				if len(key) > width {
					return fmt.Errorf("field %q: pool key %s does not fit %d bytes after prefix %q", f.name, key, p.Length, p.Prefix)
				}
				pool[i] = p.Prefix + strings.Repeat("0", width-len(key)) + key
			}
			g.keyPools[f.name] = pool
			g.logger.Debug("field %q: built foreign-key pool of %d keys", f.name, size)

		case generators.UniformDateRangeParams:
			if !p.Unique {
				continue
			}
			days := timeutil.DaysInclusive(p.Start, p.End)
			g.rng.Shuffle(len(days), func(i, j int) {
				days[i], days[j] = days[j], days[i]
			})
			g.dateQueues[f.name] = days
			g.logger.Debug("field %q: built unique date queue of %d days", f.name, len(days))
		}
	}
	return nil
}

// GenerateRecords produces n fixed-width text lines. Field evaluation order
// and output concatenation order are both the generation_order sort.
func (g *Generator) GenerateRecords(n int) ([]string, error) {
	// Faker's source is process-global; rebinding it here keeps name draws
	// on this generator's seeded stream so identical seeds give identical
	// output even after another generator has been constructed.
	for _, f := range g.fields {
		if _, ok := f.params.(generators.PersonalNameParams); ok {
			generators.SeedNames(g.rng)
			break
		}
	}

	records := make([]string, 0, n)
	for i := 0; i < n; i++ {
		rec, err := g.generateRecord()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	g.logger.Info("generated %d records", len(records))
	return records, nil
}

func (g *Generator) generateRecord() (string, error) {
	raw := make(map[string]any, len(g.fields))
	var sb strings.Builder

	for _, f := range g.fields {
		value, err := g.eval(f, raw)
		if err != nil {
			return "", err
		}
		raw[f.name] = value

		rendered, err := render(f, value)
		if err != nil {
			return "", err
		}
		sb.WriteString(rendered)
	}
	return sb.String(), nil
}

func (g *Generator) eval(f compiledField, raw map[string]any) (any, error) {
	switch p := f.params.(type) {
	case generators.SequentialIDParams:
		cur, ok := g.counters[f.name]
		if !ok {
			cur = p.StartValue
		}
		g.counters[f.name] = cur + 1
		return cur, nil

	case generators.CategoricalWeightedParams:
		v, err := generators.WeightedChoice(g.rng, p.Values, p.Weights)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.name, err)
		}
		return v, nil

	case generators.ForeignKeyPoolParams:
		pool := g.keyPools[f.name]
		return pool[g.rng.Intn(len(pool))], nil

	case generators.ConditionalCategoricalParams:
		parentValue, ok := raw[p.ParentField]
		if !ok {
			return nil, fmt.Errorf("field %q: parent %q is not generated earlier in the record", f.name, p.ParentField)
		}
		key := valueKey(parentValue)
		mapping, ok := p.Mappings[key]
		if !ok {
			mapping, ok = p.Mappings["default"]
		}
		if !ok {
			return nil, fmt.Errorf("%w: field %q, parent value %q", ErrMissingMapping, f.name, key)
		}
		v, err := generators.WeightedChoice(g.rng, mapping.Values, mapping.Weights)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.name, err)
		}
		return v, nil

	case generators.TruncatedNormalParams:
		mean, err := g.adjustMean(f, p.Mean, raw)
		if err != nil {
			return nil, err
		}
		v, clamped := generators.SampleTruncatedNormal(g.rng, mean, p.StdDev, p.Min, p.Max)
		if clamped {
			g.logger.Warn("field %q: rejection sampling exhausted, clamped to bound", f.name)
		}
		return v, nil

	case generators.UniformDateRangeParams:
		if p.Unique {
			queue := g.dateQueues[f.name]
			if len(queue) == 0 {
				return nil, fmt.Errorf("%w: field %q has no unused dates left", ErrPoolExhausted, f.name)
			}
			day := queue[0]
			g.dateQueues[f.name] = queue[1:]
			return timeutil.FormatYMD(day), nil
		}
		offset := g.rng.Intn(timeutil.DayCount(p.Start, p.End))
		return timeutil.FormatYMD(p.Start.AddDate(0, 0, offset)), nil

	case generators.PersonalNameParams:
		return generators.PersonalName(p.Length), nil
	}

	return nil, fmt.Errorf("%w: %T", generators.ErrUnknownMethod, f.params)
}

func (g *Generator) adjustMean(f compiledField, mean float64, raw map[string]any) (float64, error) {
	for _, dep := range f.deps {
		if dep.Rule != depScaleMeanWhenIn {
			return 0, fmt.Errorf("field %q: unknown dependency rule %q", f.name, dep.Rule)
		}
		parentValue, ok := raw[dep.Field]
		if !ok {
			return 0, fmt.Errorf("field %q: dependency on %q, which is not generated earlier", f.name, dep.Field)
		}
		key := valueKey(parentValue)
		for _, candidate := range dep.Values {
			if candidate == key {
				if dep.Factor != nil {
					mean *= *dep.Factor
				}
				break
			}
		}
	}
	return mean, nil
}

func paramsLength(p generators.Params) int {
	switch v := p.(type) {
	case generators.SequentialIDParams:
		return v.Length
	case generators.CategoricalWeightedParams:
		return v.Length
	case generators.ForeignKeyPoolParams:
		return v.Length
	case generators.ConditionalCategoricalParams:
		return v.Length
	case generators.TruncatedNormalParams:
		return v.Length
	case generators.UniformDateRangeParams:
		return v.Length
	case generators.PersonalNameParams:
		return v.Length
	}
	return 0
}

// valueKey is the raw (pre-rendering) string form of a generated value,
// used for conditional lookups and dependency matching.
func valueKey(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// render produces the field's fixed-width text. Values carrying an implied
// decimal point are scaled to integers first so a decode of the output
// recovers the value at declared precision. Personal names are already
// space-fitted; everything else is zero-padded on the left.
func render(f compiledField, v any) (string, error) {
	if _, ok := f.params.(generators.PersonalNameParams); ok {
		return v.(string), nil
	}

	var s string
	switch val := v.(type) {
	case string:
		s = val
	case int64:
		s = strconv.FormatInt(val, 10)
	case float64:
		scaled := val * math.Pow10(f.fracDigits)
		s = strconv.FormatInt(int64(math.Round(scaled)), 10)
	default:
		return "", fmt.Errorf("field %q: unrenderable value %T", f.name, v)
	}
	return zeroPad(f.name, s, f.length)
}

// zeroPad left-pads with zeros, keeping a leading minus sign in front.
func zeroPad(name, s string, width int) (string, error) {
	if len(s) > width {
		return "", fmt.Errorf("field %q: value %q is wider than the declared %d bytes", name, s, width)
	}
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	return sign + strings.Repeat("0", width-len(sign)-len(s)) + s, nil
}
