package hashing

import (
	"testing"

	"github.com/mmrzaf/jsonlgen/internal/domain"
)

func testPlan() *domain.Plan {
	return &domain.Plan{Fields: []domain.PlanField{
		{Name: "id", Rule: domain.RandomInt(1, 10)},
		{Name: "tag", Rule: domain.ChoiceStr([]string{"a", "b"})},
	}}
}

func TestHashSchemaStableAndOrderSensitive(t *testing.T) {
	h1, err := HashSchema(testPlan())
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashSchema(testPlan())
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatal("expected identical plans to hash the same")
	}

	swapped := testPlan()
	swapped.Fields[0], swapped.Fields[1] = swapped.Fields[1], swapped.Fields[0]
	h3, err := HashSchema(swapped)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h3 {
		t.Fatal("expected field order to affect hash")
	}

	// rand(10, 1) compiles to the same rule as rand(1, 10)
	normalized := testPlan()
	normalized.Fields[0].Rule = domain.RandomInt(10, 1)
	h4, _ := HashSchema(normalized)
	if h1 != h4 {
		t.Fatal("expected normalized bounds to hash the same")
	}

	if _, err := HashSchema(nil); err == nil {
		t.Fatal("expected error for nil plan")
	}
}

func TestHashRunConfig_IncludesCountsSeedAndSink(t *testing.T) {
	seed := int64(11)
	other := int64(12)
	base := domain.GenerateRequest{FileCount: 10, DataLines: 5, FileName: "out", Prefix: "count", Seed: &seed}

	h1, err := HashRunConfig(testPlan(), &base, domain.SinkFiles)
	if err != nil {
		t.Fatal(err)
	}

	lines := base
	lines.DataLines = 6
	h2, _ := HashRunConfig(testPlan(), &lines, domain.SinkFiles)

	reseeded := base
	reseeded.Seed = &other
	h3, _ := HashRunConfig(testPlan(), &reseeded, domain.SinkFiles)

	h4, _ := HashRunConfig(testPlan(), &base, domain.SinkConsole)

	if h1 == h2 {
		t.Fatal("expected data lines to affect hash")
	}
	if h1 == h3 {
		t.Fatal("expected seed to affect hash")
	}
	if h1 == h4 {
		t.Fatal("expected sink to affect hash")
	}
}
