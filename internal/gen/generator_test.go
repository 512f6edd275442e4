package gen

import (
	"errors"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/mmrzaf/fwgen/internal/domain"
	"github.com/mmrzaf/fwgen/internal/generators"
	"github.com/mmrzaf/fwgen/internal/logging"
	"github.com/mmrzaf/fwgen/internal/validation"
)

func testLogger() *logging.Logger {
	return logging.NewLoggerWithWriter("error", os.Stderr)
}

func intPtr(i int) *int           { return &i }
func int64Ptr(i int64) *int64     { return &i }
func floatPtr(f float64) *float64 { return &f }

func buildDoc(t *testing.T, rows int, seed int64, fields ...domain.FieldRule) *domain.RulesDocument {
	t.Helper()
	doc := &domain.RulesDocument{
		GlobalConfig: &domain.GlobalConfig{DefaultRowCount: rows, RandomSeed: int64Ptr(seed)},
		Fields:       fields,
	}
	cleaned, err := validation.NewValidator(testLogger()).ValidateAndClean(doc)
	if err != nil {
		t.Fatal(err)
	}
	return cleaned
}

func field(name string, order int, method string, params map[string]any) domain.FieldRule {
	return domain.FieldRule{
		Name:            name,
		GenerationOrder: intPtr(order),
		Generation:      &domain.GenerationSpec{Method: method, Parameters: params},
	}
}

func TestDeterminismWithSeed(t *testing.T) {
	build := func() *domain.RulesDocument {
		return buildDoc(t, 50, 42,
			field("ID", 1, generators.MethodSequentialID, map[string]any{"length": 9}),
			field("CLIENT", 2, generators.MethodForeignKeyPool, map[string]any{"length": 11, "pool_size_ratio": 0.3}),
			field("STATUS", 3, generators.MethodCategoricalWeighted, map[string]any{"length": 1, "values": []any{"A", "B", "C"}, "weights": []any{5.0, 3.0, 2.0}}),
			field("OPENED", 4, generators.MethodUniformDateRange, map[string]any{"length": 8, "start_date": "20230101", "end_date": "20231231"}),
			field("NAME", 5, generators.MethodPersonalName, map[string]any{"length": 25}),
		)
	}

	g1, err := New(build(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	g2, err := New(build(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	r1, err := g1.GenerateRecords(50)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := g2.GenerateRecords(50)
	if err != nil {
		t.Fatal(err)
	}

	for i := range r1 {
		if r1[i] != r2[i] {
			t.Fatalf("record %d differs:\n%s\n%s", i, r1[i], r2[i])
		}
	}
}

func TestSequentialIDs(t *testing.T) {
	doc := buildDoc(t, 10, 1,
		field("ACCT", 1, generators.MethodSequentialID, map[string]any{"length": 9, "start_value": 100}),
	)
	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	records, err := g.GenerateRecords(25)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for i, rec := range records {
		if len(rec) != 9 {
			t.Fatalf("record %d has width %d", i, len(rec))
		}
		if seen[rec] {
			t.Fatalf("duplicate id %q", rec)
		}
		seen[rec] = true

		n, err := strconv.Atoi(rec)
		if err != nil {
			t.Fatalf("id %q is not numeric: %v", rec, err)
		}
		if n != 100+i {
			t.Fatalf("expected id %d, got %d", 100+i, n)
		}
	}
}

func TestForeignKeyPool(t *testing.T) {
	const rows = 40
	doc := buildDoc(t, rows, 7,
		field("CLIENT", 1, generators.MethodForeignKeyPool, map[string]any{"length": 11, "pool_size_ratio": 0.25, "prefix": "C"}),
	)
	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	wantPool := int(math.Round(rows * 0.25))
	pool := g.keyPools["CLIENT"]
	if len(pool) != wantPool {
		t.Fatalf("pool size %d, want %d", len(pool), wantPool)
	}

	members := make(map[string]bool, len(pool))
	for _, k := range pool {
		if len(k) != 11 || !strings.HasPrefix(k, "C") {
			t.Fatalf("malformed pool key %q", k)
		}
		members[k] = true
	}

	records, err := g.GenerateRecords(rows)
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range records {
		if !members[rec] {
			t.Fatalf("generated value %q is not a pool member", rec)
		}
	}
}

func TestForeignKeyPoolMinimumSize(t *testing.T) {
	doc := buildDoc(t, 2, 7,
		field("CLIENT", 1, generators.MethodForeignKeyPool, map[string]any{"length": 5, "pool_size_ratio": 0.1}),
	)
	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(g.keyPools["CLIENT"]) != 1 {
		t.Fatalf("pool should floor to 1, got %d", len(g.keyPools["CLIENT"]))
	}
}

func TestConditionalCategorical(t *testing.T) {
	doc := buildDoc(t, 100, 11,
		field("TYPE", 1, generators.MethodCategoricalWeighted, map[string]any{"length": 1, "values": []any{"P", "B"}, "weights": []any{1.0, 1.0}}),
		field("SUBTYPE", 2, generators.MethodConditionalCategorical, map[string]any{
			"length":       2,
			"parent_field": "TYPE",
			"mappings": map[string]any{
				"P":       map[string]any{"values": []any{"P1", "P2"}, "weights": []any{1.0, 1.0}},
				"default": map[string]any{"values": []any{"XX"}},
			},
		}),
	)
	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	records, err := g.GenerateRecords(100)
	if err != nil {
		t.Fatal(err)
	}

	sawDefault := false
	for _, rec := range records {
		parent, child := rec[:1], rec[1:]
		switch parent {
		case "P":
			if child != "P1" && child != "P2" {
				t.Fatalf("parent P produced %q", child)
			}
		case "B":
			if child != "XX" {
				t.Fatalf("unmapped parent should fall back to default, got %q", child)
			}
			sawDefault = true
		}
	}
	if !sawDefault {
		t.Fatal("expected at least one default fallback over 100 records")
	}
}

func TestConditionalMissingMappingIsFatal(t *testing.T) {
	doc := buildDoc(t, 10, 11,
		field("TYPE", 1, generators.MethodCategoricalWeighted, map[string]any{"length": 1, "values": []any{"Z"}}),
		field("SUBTYPE", 2, generators.MethodConditionalCategorical, map[string]any{
			"length":       2,
			"parent_field": "TYPE",
			"mappings": map[string]any{
				"P": map[string]any{"values": []any{"P1"}},
			},
		}),
	)
	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.GenerateRecords(1); !errors.Is(err, ErrMissingMapping) {
		t.Fatalf("expected ErrMissingMapping, got %v", err)
	}
}

func TestTruncatedNormalBoundsAndDependency(t *testing.T) {
	doc := buildDoc(t, 200, 3,
		field("SEGMENT", 1, generators.MethodCategoricalWeighted, map[string]any{"length": 1, "values": []any{"H"}}),
		field("BALANCE", 2, generators.MethodTruncatedNormal, map[string]any{
			"length": 7, "mean": 100.0, "std_dev": 10.0, "min": 0.0, "max": 100000.0,
		}),
	)
	doc.Fields[1].Dependencies = []domain.Dependency{{
		Field:  "SEGMENT",
		Rule:   "scale_mean_when_in",
		Factor: floatPtr(10.0),
		Values: []string{"H"},
	}}
	doc.Fields[1].OriginalSpec = "S9(5)V99"

	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	records, err := g.GenerateRecords(200)
	if err != nil {
		t.Fatal(err)
	}

	sum := 0.0
	for _, rec := range records {
		cents, err := strconv.ParseInt(rec[1:], 10, 64)
		if err != nil {
			t.Fatalf("balance %q not numeric: %v", rec[1:], err)
		}
		v := float64(cents) / 100
		if v < 0 || v > 100000 {
			t.Fatalf("value %v outside bounds", v)
		}
		sum += v
	}

	// Dependency scales the mean from 100 to 1000; the sample mean of 200
	// draws at std-dev 10 cannot plausibly sit near the unscaled mean.
	mean := sum / float64(len(records))
	if mean < 900 || mean > 1100 {
		t.Fatalf("dependency scaling not applied, sample mean %v", mean)
	}
}

func TestUniformDateRange(t *testing.T) {
	doc := buildDoc(t, 10, 5,
		field("D", 1, generators.MethodUniformDateRange, map[string]any{
			"length": 8, "start_date": "20240101", "end_date": "20240110",
		}),
	)
	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	records, err := g.GenerateRecords(50)
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range records {
		if rec < "20240101" || rec > "20240110" {
			t.Fatalf("date %q outside range", rec)
		}
	}
}

func TestUniqueDateQueueExhaustion(t *testing.T) {
	doc := buildDoc(t, 3, 5,
		field("D", 1, generators.MethodUniformDateRange, map[string]any{
			"length": 8, "start_date": "20240101", "end_date": "20240103", "unique": true,
		}),
	)
	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	records, err := g.GenerateRecords(3)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]bool)
	for _, rec := range records {
		if seen[rec] {
			t.Fatalf("duplicate unique date %q", rec)
		}
		seen[rec] = true
	}

	if _, err := g.GenerateRecords(1); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}
}

func TestImpliedDecimalRendering(t *testing.T) {
	doc := buildDoc(t, 1, 5,
		field("AMT", 1, generators.MethodTruncatedNormal, map[string]any{
			"mean": 12.34, "std_dev": 0.0, "min": 12.34, "max": 12.34,
		}),
	)
	doc.Fields[0].OriginalSpec = "S9(4)V99"
	doc.Fields[0].Generation.Parameters["length"] = 6

	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	records, err := g.GenerateRecords(1)
	if err != nil {
		t.Fatal(err)
	}
	if records[0] != "001234" {
		t.Fatalf("expected 001234, got %q", records[0])
	}
}

func TestOverWideValueIsFatal(t *testing.T) {
	doc := buildDoc(t, 1, 5,
		field("ID", 1, generators.MethodSequentialID, map[string]any{"length": 2, "start_value": 100}),
	)
	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.GenerateRecords(1); err == nil {
		t.Fatal("expected fatal error for over-wide value")
	}
}

func TestGenerationOrderIsStableSort(t *testing.T) {
	doc := buildDoc(t, 1, 5,
		field("B", 2, generators.MethodCategoricalWeighted, map[string]any{"length": 1, "values": []any{"b"}}),
		field("A", 1, generators.MethodCategoricalWeighted, map[string]any{"length": 1, "values": []any{"a"}}),
		field("C", 2, generators.MethodCategoricalWeighted, map[string]any{"length": 1, "values": []any{"c"}}),
	)
	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	records, err := g.GenerateRecords(1)
	if err != nil {
		t.Fatal(err)
	}
	if records[0] != "abc" {
		t.Fatalf("expected stable order abc, got %q", records[0])
	}
}

func TestPersonalNameFitsWidth(t *testing.T) {
	doc := buildDoc(t, 1, 5,
		field("NAME", 1, generators.MethodPersonalName, map[string]any{"length": 12}),
	)
	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	records, err := g.GenerateRecords(5)
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range records {
		if len(rec) != 12 {
			t.Fatalf("name %q has width %d", rec, len(rec))
		}
		if rec != strings.ToUpper(rec) {
			t.Fatalf("name %q not uppercased", rec)
		}
	}
}

func TestPersonalNameIsSeedDriven(t *testing.T) {
	build := func() *domain.RulesDocument {
		return buildDoc(t, 20, 42,
			field("NAME", 1, generators.MethodPersonalName, map[string]any{"length": 25}),
		)
	}

	g1, err := New(build(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	g2, err := New(build(), testLogger())
	if err != nil {
		t.Fatal(err)
	}

	r1, err := g1.GenerateRecords(20)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := g2.GenerateRecords(20)
	if err != nil {
		t.Fatal(err)
	}

	for i := range r1 {
		if r1[i] != r2[i] {
			t.Fatalf("record %d differs:\n%q\n%q", i, r1[i], r2[i])
		}
	}
}

func TestNilGenerationOrderIsError(t *testing.T) {
	doc := &domain.RulesDocument{
		GlobalConfig: &domain.GlobalConfig{DefaultRowCount: 1, RandomSeed: int64Ptr(5)},
		Fields: []domain.FieldRule{{
			Name:       "ID",
			Generation: &domain.GenerationSpec{Method: generators.MethodSequentialID, Parameters: map[string]any{"length": 4}},
		}},
	}
	if _, err := New(doc, testLogger()); err == nil {
		t.Fatal("expected error for unvalidated field, got nil")
	}
}

func TestRecordWidthMatchesDeclaredLengths(t *testing.T) {
	doc := buildDoc(t, 5, 5,
		field("ID", 1, generators.MethodSequentialID, map[string]any{"length": 9}),
		field("STATUS", 2, generators.MethodCategoricalWeighted, map[string]any{"length": 2, "values": []any{"OK", "NO"}}),
		field("D", 3, generators.MethodUniformDateRange, map[string]any{"length": 8, "start_date": "20240101", "end_date": "20241231"}),
	)
	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	records, err := g.GenerateRecords(5)
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range records {
		if len(rec) != 19 {
			t.Fatalf("record %q has width %d, want 19", rec, len(rec))
		}
	}
}

func TestSeedFallsBackToClock(t *testing.T) {
	doc := buildDoc(t, 1, 5,
		field("ID", 1, generators.MethodSequentialID, map[string]any{"length": 4}),
	)
	doc.GlobalConfig.RandomSeed = nil

	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if g.Seed() == 0 {
		t.Fatal("expected non-zero clock seed")
	}
}

func TestScalingFactorAffectsRowCount(t *testing.T) {
	doc := buildDoc(t, 10, 5,
		field("ID", 1, generators.MethodSequentialID, map[string]any{"length": 4}),
	)
	doc.GlobalConfig.ScalingFactor = floatPtr(2.5)

	g, err := New(doc, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if g.RowCount() != 25 {
		t.Fatalf("expected effective row count 25, got %d", g.RowCount())
	}
}
