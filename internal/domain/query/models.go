package query

import (
	"sort"

	"github.com/taules/taules/internal/domain/record"
)

// Sort orders results by a single field.
type Sort struct {
	Field      string
	Descending bool
}

// Spec is a complete listing specification: predicate, ordering and paging.
type Spec struct {
	// Where is the predicate; nil matches everything.
	Where Condition
	// Sort clauses, applied in order. Ties always break on id ascending.
	Sort []Sort
	// Skip is the number of matching records to drop from the front.
	Skip uint
	// Top caps the number of returned records. Zero means no cap.
	Top uint
	// WithCount asks for the total number of matching records, ignoring
	// Skip and Top.
	WithCount bool
}

// Matches reports whether the record satisfies the Spec's predicate.
func (s *Spec) Matches(r *record.Record) bool {
	if s.Where == nil {
		return true
	}
	return s.Where.Matches(r)
}

// Page is one window of query results.
type Page struct {
	Items []record.Record
	// TotalCount is only set when the Spec asked for it.
	TotalCount *int64
}

// Apply evaluates a Spec in process against the given records and builds the
// resulting Page. Backends without native filtering hand their full table
// scan to this; backends with native filtering use it as the reference
// semantics.
func Apply(spec Spec, items []*record.Record) Page {
	matched := make([]*record.Record, 0, len(items))
	for _, item := range items {
		if spec.Matches(item) {
			matched = append(matched, item)
		}
	}

	sortRecords(matched, spec.Sort)

	var totalCount *int64
	if spec.WithCount {
		count := int64(len(matched))
		totalCount = &count
	}

	if spec.Skip > 0 {
		if int(spec.Skip) >= len(matched) {
			matched = nil
		} else {
			matched = matched[spec.Skip:]
		}
	}
	if spec.Top > 0 && int(spec.Top) < len(matched) {
		matched = matched[:spec.Top]
	}

	page := Page{
		Items:      make([]record.Record, 0, len(matched)),
		TotalCount: totalCount,
	}
	for _, item := range matched {
		page.Items = append(page.Items, *item.Clone())
	}
	return page
}

func sortRecords(items []*record.Record, clauses []Sort) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, clause := range clauses {
			left, leftOk := items[i].Field(clause.Field)
			right, rightOk := items[j].Field(clause.Field)
			if !leftOk && !rightOk {
				continue
			}
			// records missing the field sort last regardless of direction
			if !leftOk {
				return false
			}
			if !rightOk {
				return true
			}
			ordering, comparable := compareValues(left, right)
			if !comparable || ordering == 0 {
				continue
			}
			if clause.Descending {
				return ordering > 0
			}
			return ordering < 0
		}
		return items[i].ID < items[j].ID
	})
}
