package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taules/taules/internal/domain/metadata"
	"github.com/taules/taules/internal/domain/query"
	"github.com/taules/taules/internal/domain/record"
)

func filterTestRecord() *record.Record {
	return &record.Record{
		ID: "rec-1",
		Attributes: record.Attributes{
			"title":    "get milk",
			"priority": float64(3),
			"done":     false,
			"owner":    "alice",
		},
		Deleted: false,
		Metadata: metadata.Metadata{
			UpdatedAt: metadata.UpdatedAt(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)),
			Version:   "v1",
		},
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name        string
		dialect     Dialect
		input       string
		wantString  string
		wantMatches bool
		wantErr     bool
	}{
		{
			name:        "string equality",
			dialect:     DialectV3,
			input:       "title eq 'get milk'",
			wantString:  "title eq 'get milk'",
			wantMatches: true,
		},
		{
			name:        "string with escaped quote",
			dialect:     DialectV3,
			input:       "title eq 'it''s'",
			wantString:  "title eq 'it's'",
			wantMatches: false,
		},
		{
			name:        "number comparison",
			dialect:     DialectV3,
			input:       "priority gt 2",
			wantString:  "priority gt 2",
			wantMatches: true,
		},
		{
			name:        "negative number",
			dialect:     DialectV3,
			input:       "priority gt -1",
			wantString:  "priority gt -1",
			wantMatches: true,
		},
		{
			name:        "boolean literal",
			dialect:     DialectV3,
			input:       "done eq false",
			wantString:  "done eq false",
			wantMatches: true,
		},
		{
			name:        "null literal",
			dialect:     DialectV3,
			input:       "owner ne null",
			wantString:  "owner ne <nil>",
			wantMatches: true,
		},
		{
			name:        "and or precedence",
			dialect:     DialectV3,
			input:       "owner eq 'bob' or owner eq 'alice' and priority ge 3",
			wantString:  "(owner eq 'bob' or (owner eq 'alice' and priority ge 3))",
			wantMatches: true,
		},
		{
			name:        "parenthesized group",
			dialect:     DialectV3,
			input:       "(owner eq 'bob' or owner eq 'alice') and priority ge 3",
			wantString:  "((owner eq 'bob' or owner eq 'alice') and priority ge 3)",
			wantMatches: true,
		},
		{
			name:        "not",
			dialect:     DialectV3,
			input:       "not (owner eq 'bob')",
			wantString:  "not (owner eq 'bob')",
			wantMatches: true,
		},
		{
			name:        "bare datetime in the new dialect",
			dialect:     DialectV3,
			input:       "updatedAt gt 2026-03-01T00:00:00Z",
			wantString:  "updatedAt gt '2026-03-01T00:00:00Z'",
			wantMatches: true,
		},
		{
			name:        "quoted datetime in the old dialect",
			dialect:     DialectV2,
			input:       "updatedAt gt datetime'2026-03-01T00:00:00Z'",
			wantString:  "updatedAt gt '2026-03-01T00:00:00Z'",
			wantMatches: true,
		},
		{
			name:        "timezone-less datetime in the old dialect",
			dialect:     DialectV2,
			input:       "updatedAt gt datetime'2026-03-01T00:00:00'",
			wantString:  "updatedAt gt '2026-03-01T00:00:00Z'",
			wantMatches: true,
		},
		{
			name:        "contains in the new dialect",
			dialect:     DialectV3,
			input:       "contains(title, 'milk')",
			wantString:  "contains(title, 'milk')",
			wantMatches: true,
		},
		{
			name:        "substringof in the old dialect flips arguments",
			dialect:     DialectV2,
			input:       "substringof('milk', title)",
			wantString:  "contains(title, 'milk')",
			wantMatches: true,
		},
		{
			name:        "startswith",
			dialect:     DialectV3,
			input:       "startswith(title, 'get')",
			wantString:  "startswith(title, 'get')",
			wantMatches: true,
		},
		{
			name:        "endswith",
			dialect:     DialectV2,
			input:       "endswith(title, 'milk')",
			wantString:  "endswith(title, 'milk')",
			wantMatches: true,
		},
		{
			name:    "contains rejected in the old dialect",
			dialect: DialectV2,
			input:   "contains(title, 'milk')",
			wantErr: true,
		},
		{
			name:    "substringof rejected in the new dialect",
			dialect: DialectV3,
			input:   "substringof('milk', title)",
			wantErr: true,
		},
		{
			name:    "unterminated string",
			dialect: DialectV3,
			input:   "title eq 'oops",
			wantErr: true,
		},
		{
			name:    "unknown operator",
			dialect: DialectV3,
			input:   "title like 'milk'",
			wantErr: true,
		},
		{
			name:    "trailing junk",
			dialect: DialectV3,
			input:   "title eq 'x' title",
			wantErr: true,
		},
		{
			name:    "missing closing parenthesis",
			dialect: DialectV3,
			input:   "(title eq 'x'",
			wantErr: true,
		},
		{
			name:    "bad literal",
			dialect: DialectV3,
			input:   "priority gt 12..3",
			wantErr: true,
		},
		{
			name:    "unexpected character",
			dialect: DialectV3,
			input:   "priority > 3",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(tt.dialect, tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFilter() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				assert.IsType(t, ParseError{}, err)
				return
			}
			assert.Equal(t, tt.wantString, got.String())
			assert.Equal(t, tt.wantMatches, got.Matches(filterTestRecord()))
		})
	}
}

func TestParseOrderBy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []query.Sort
		wantErr bool
	}{
		{
			name:  "single field",
			input: "title",
			want:  []query.Sort{{Field: "title"}},
		},
		{
			name:  "explicit directions",
			input: "priority desc, title asc",
			want: []query.Sort{
				{Field: "priority", Descending: true},
				{Field: "title"},
			},
		},
		{
			name:    "bad direction",
			input:   "priority sideways",
			wantErr: true,
		},
		{
			name:    "too many tokens",
			input:   "priority desc asc",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOrderBy(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseOrderBy() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				assert.EqualValues(t, tt.want, got)
			}
		})
	}
}
