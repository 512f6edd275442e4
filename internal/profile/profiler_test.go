package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmrzaf/fwgen/internal/layout"
	"github.com/mmrzaf/fwgen/internal/logging"
	"github.com/mmrzaf/fwgen/internal/picture"
)

func testLogger() *logging.Logger {
	return logging.NewLoggerWithWriter("error", os.Stderr)
}

func mustLayout(t *testing.T, fields ...[2]string) layout.Layout {
	t.Helper()
	var l layout.Layout
	for _, f := range fields {
		format, err := picture.Parse(f[1])
		if err != nil {
			t.Fatal(err)
		}
		l = append(l, layout.Entry{Name: f[0], Format: format})
	}
	return l
}

func TestRunBasicProfile(t *testing.T) {
	l := mustLayout(t, [2]string{"CODE", "X(2)"}, [2]string{"AMT", "S9(3)"})
	lines := []string{
		"AB123",
		"AB456",
		"CD789",
		"   12", // null CODE
	}

	p := New(testLogger(), Options{})
	out := filepath.Join(t.TempDir(), "nested", "profile.json")
	profiles, err := p.Run(l, lines, out)
	if err != nil {
		t.Fatal(err)
	}

	code := profiles["CODE"]
	if code.TotalCount != 4 || code.NullCount != 1 {
		t.Fatalf("unexpected CODE counts: %+v", code)
	}
	if code.NullPercentage != 25.0 {
		t.Fatalf("unexpected null percentage: %v", code.NullPercentage)
	}
	if !code.IsCategorical {
		t.Fatal("expected CODE to be categorical")
	}
	if code.EnumValues["AB"] != 2 || code.EnumValues["CD"] != 1 {
		t.Fatalf("unexpected histogram: %+v", code.EnumValues)
	}

	amt := profiles["AMT"]
	if amt.Metrics == nil {
		t.Fatal("expected numeric metrics for AMT")
	}
	if amt.Metrics.Min != 12 || amt.Metrics.Max != 789 {
		t.Fatalf("unexpected min/max: %+v", amt.Metrics)
	}
	if amt.Metrics.Mean != (123+456+789+12)/4.0 {
		t.Fatalf("unexpected mean: %v", amt.Metrics.Mean)
	}

	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected profile JSON written: %v", err)
	}
}

func TestCategoricalBoundary(t *testing.T) {
	l := mustLayout(t, [2]string{"V", "X(3)"})

	build := func(distinct int) []string {
		var lines []string
		for i := 0; i < distinct; i++ {
			lines = append(lines, fmt.Sprintf("%03d", i))
		}
		return lines
	}

	p := New(testLogger(), Options{})

	profiles, err := p.Run(l, build(20), "")
	if err != nil {
		t.Fatal(err)
	}
	if !profiles["V"].IsCategorical {
		t.Fatal("20 distinct values must be categorical")
	}

	profiles, err = p.Run(l, build(21), "")
	if err != nil {
		t.Fatal(err)
	}
	v := profiles["V"]
	if v.IsCategorical {
		t.Fatal("21 distinct values must not be categorical")
	}
	if len(v.SampleValues) != 10 {
		t.Fatalf("expected 10 sample values, got %d", len(v.SampleValues))
	}
}

func TestSampleSmallerThanLimit(t *testing.T) {
	l := mustLayout(t, [2]string{"V", "X(3)"})
	p := New(testLogger(), Options{CategoricalThreshold: 2})
	profiles, err := p.Run(l, []string{"aaa", "bbb", "ccc", "aaa"}, "")
	if err != nil {
		t.Fatal(err)
	}
	v := profiles["V"]
	if v.IsCategorical {
		t.Fatal("expected non-categorical with threshold 2")
	}
	if len(v.SampleValues) != 3 {
		t.Fatalf("sample size should be min(10, unique)=3, got %d", len(v.SampleValues))
	}
}

func TestNumericParseFailureIsColumnLocal(t *testing.T) {
	l := mustLayout(t, [2]string{"BAD", "S9(3)"}, [2]string{"GOOD", "S9(3)"})
	lines := []string{
		"1x2100",
		"003200",
	}

	p := New(testLogger(), Options{})
	profiles, err := p.Run(l, lines, "")
	if err != nil {
		t.Fatal(err)
	}
	if profiles["BAD"].Metrics != nil {
		t.Fatal("expected metrics skipped for unparsable column")
	}
	if profiles["GOOD"].Metrics == nil {
		t.Fatal("expected metrics for clean column")
	}
}

func TestWidthPolicies(t *testing.T) {
	l := mustLayout(t, [2]string{"A", "X(2)"}, [2]string{"B", "X(2)"})
	lines := []string{"abcd", "ab"}

	p := New(testLogger(), Options{WidthPolicy: WidthStrict})
	if _, err := p.Run(l, lines, ""); err == nil {
		t.Fatal("strict policy should fail on short line")
	}

	p = New(testLogger(), Options{WidthPolicy: WidthSkip})
	profiles, err := p.Run(l, lines, "")
	if err != nil {
		t.Fatal(err)
	}
	if profiles["A"].TotalCount != 1 {
		t.Fatalf("skip policy should keep 1 row, got %d", profiles["A"].TotalCount)
	}

	p = New(testLogger(), Options{WidthPolicy: WidthLenient})
	profiles, err = p.Run(l, lines, "")
	if err != nil {
		t.Fatal(err)
	}
	if profiles["B"].TotalCount != 2 {
		t.Fatalf("lenient policy should keep 2 rows, got %d", profiles["B"].TotalCount)
	}
	if profiles["B"].NullCount != 1 {
		t.Fatalf("short line should yield a null trailing column, got %d nulls", profiles["B"].NullCount)
	}
}

func TestStrictErrorMentionsWidth(t *testing.T) {
	l := mustLayout(t, [2]string{"A", "X(4)"})
	p := New(testLogger(), Options{WidthPolicy: WidthStrict})
	_, err := p.Run(l, []string{"toolongline"}, "")
	if err == nil || !strings.Contains(err.Error(), "4") {
		t.Fatalf("expected width in error, got %v", err)
	}
}
