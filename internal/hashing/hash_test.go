package hashing

import (
	"testing"

	"github.com/mmrzaf/fwgen/internal/domain"
)

func intPtr(i int) *int { return &i }

func doc(rowCount int) *domain.RulesDocument {
	return &domain.RulesDocument{
		GlobalConfig: &domain.GlobalConfig{DefaultRowCount: rowCount},
		Fields: []domain.FieldRule{
			{
				Name:            "F1",
				GenerationOrder: intPtr(1),
				Generation: &domain.GenerationSpec{
					Method:     "sequential_unique_id",
					Parameters: map[string]any{"length": 9, "start_value": 1},
				},
			},
		},
	}
}

func TestHashRulesStable(t *testing.T) {
	a, err := HashRules(doc(10))
	if err != nil {
		t.Fatal(err)
	}
	b, err := HashRules(doc(10))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("hash not stable: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected sha256 hex, got %q", a)
	}
}

func TestHashRulesDetectsChanges(t *testing.T) {
	a, _ := HashRules(doc(10))
	b, _ := HashRules(doc(11))
	if a == b {
		t.Fatal("different documents must hash differently")
	}
}
