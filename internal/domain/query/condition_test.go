package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taules/taules/internal/domain/metadata"
	"github.com/taules/taules/internal/domain/record"
)

var testTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func testRecord() *record.Record {
	return &record.Record{
		ID: "rec-1",
		Attributes: record.Attributes{
			"title":    "get milk",
			"priority": float64(3),
			"done":     false,
			"owner":    "alice",
			"note":     nil,
		},
		Deleted: false,
		Metadata: metadata.Metadata{
			CreatedAt: metadata.CreatedAt(testTime),
			UpdatedAt: metadata.UpdatedAt(testTime),
			Version:   "v1",
		},
	}
}

func TestCondition_Matches(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		want      bool
	}{
		{
			name:      "eq on string attribute",
			condition: Where("title", Equals, "get milk"),
			want:      true,
		},
		{
			name:      "eq on string attribute, wrong value",
			condition: Where("title", Equals, "get eggs"),
			want:      false,
		},
		{
			name:      "ne on string attribute",
			condition: Where("title", NotEquals, "get eggs"),
			want:      true,
		},
		{
			name:      "eq on number with int literal",
			condition: Where("priority", Equals, 3),
			want:      true,
		},
		{
			name:      "gt on number",
			condition: Where("priority", GreaterThan, float64(2)),
			want:      true,
		},
		{
			name:      "le on number",
			condition: Where("priority", LessThanOrEqual, float64(2)),
			want:      false,
		},
		{
			name:      "eq on bool attribute",
			condition: Where("done", Equals, false),
			want:      true,
		},
		{
			name:      "eq on system id field",
			condition: Where("id", Equals, "rec-1"),
			want:      true,
		},
		{
			name:      "eq on system deleted field",
			condition: Where("deleted", Equals, false),
			want:      true,
		},
		{
			name:      "gt on updatedAt with time value",
			condition: Where("updatedAt", GreaterThan, testTime.Add(-time.Hour)),
			want:      true,
		},
		{
			name:      "lt on updatedAt with RFC3339 string value",
			condition: Where("updatedAt", LessThan, "2026-03-15T00:00:00Z"),
			want:      true,
		},
		{
			name:      "eq against null attribute",
			condition: Where("note", Equals, nil),
			want:      true,
		},
		{
			name:      "ne against absent field",
			condition: Where("ghost", NotEquals, "x"),
			want:      true,
		},
		{
			name:      "eq against absent field",
			condition: Where("ghost", Equals, "x"),
			want:      false,
		},
		{
			name:      "gt on incomparable types",
			condition: Where("title", GreaterThan, float64(1)),
			want:      false,
		},
		{
			name:      "startswith",
			condition: StartsWith("title", "get"),
			want:      true,
		},
		{
			name:      "endswith",
			condition: EndsWith("title", "milk"),
			want:      true,
		},
		{
			name:      "contains",
			condition: Contains("title", "t m"),
			want:      true,
		},
		{
			name:      "contains misses",
			condition: Contains("title", "beer"),
			want:      false,
		},
		{
			name:      "contains on non-string",
			condition: Contains("priority", "3"),
			want:      false,
		},
		{
			name: "and of two matches",
			condition: And(
				Where("owner", Equals, "alice"),
				Where("deleted", Equals, false),
			),
			want: true,
		},
		{
			name: "and with one miss",
			condition: And(
				Where("owner", Equals, "alice"),
				Where("deleted", Equals, true),
			),
			want: false,
		},
		{
			name:      "empty and matches everything",
			condition: And(),
			want:      true,
		},
		{
			name: "or with one match",
			condition: Or(
				Where("owner", Equals, "bob"),
				Where("owner", Equals, "alice"),
			),
			want: true,
		},
		{
			name:      "empty or matches nothing",
			condition: Or(),
			want:      false,
		},
		{
			name:      "not",
			condition: Not(Where("owner", Equals, "bob")),
			want:      true,
		},
		{
			name:      "everything",
			condition: Everything(),
			want:      true,
		},
		{
			name:      "nothing",
			condition: Nothing(),
			want:      false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.condition.Matches(testRecord()))
		})
	}
}

func TestCondition_String(t *testing.T) {
	condition := And(
		Where("owner", Equals, "alice"),
		Not(Where("priority", GreaterThan, float64(3))),
		Contains("title", "milk"),
	)
	assert.Equal(t, "(owner eq 'alice' and not (priority gt 3) and contains(title, 'milk'))", condition.String())
}
