package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/taules/taules/internal/domain/record"
)

// Operator for field comparisons.
type Operator uint8

const (
	Equals Operator = iota
	NotEquals
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
)

var operatorNames = map[Operator]string{
	Equals:             "eq",
	NotEquals:          "ne",
	GreaterThan:        "gt",
	GreaterThanOrEqual: "ge",
	LessThan:           "lt",
	LessThanOrEqual:    "le",
}

func (o Operator) String() string {
	return operatorNames[o]
}

// Condition is a storage-agnostic predicate over records. Every Condition
// can be evaluated in process; backends are free to translate the concrete
// types into native queries instead.
type Condition interface {
	// Matches reports whether the given record satisfies the condition.
	Matches(r *record.Record) bool
	fmt.Stringer
}

// Where builds a field comparison condition.
func Where(field string, op Operator, value interface{}) Condition {
	return &Compare{Field: field, Op: op, Value: value}
}

// And combines conditions so that all must match. And() with no arguments
// matches everything.
func And(conditions ...Condition) Condition {
	return &AndOf{Conditions: conditions}
}

// Or combines conditions so that at least one must match.
func Or(conditions ...Condition) Condition {
	return &OrOf{Conditions: conditions}
}

// Not inverts a condition.
func Not(condition Condition) Condition {
	return &NotOf{Condition: condition}
}

// StartsWith matches string fields with the given prefix.
func StartsWith(field string, prefix string) Condition {
	return &TextMatch{Field: field, Kind: TextPrefix, Value: prefix}
}

// EndsWith matches string fields with the given suffix.
func EndsWith(field string, suffix string) Condition {
	return &TextMatch{Field: field, Kind: TextSuffix, Value: suffix}
}

// Contains matches string fields containing the given substring.
func Contains(field string, substring string) Condition {
	return &TextMatch{Field: field, Kind: TextSubstring, Value: substring}
}

// Everything matches all records.
func Everything() Condition {
	return &Always{Match: true}
}

// Nothing matches no records.
func Nothing() Condition {
	return &Always{Match: false}
}

type Compare struct {
	Field string
	Op    Operator
	Value interface{}
}

func (c *Compare) Matches(r *record.Record) bool {
	fieldValue, ok := r.Field(c.Field)
	if !ok {
		// ne against an absent field holds; everything else misses
		return c.Op == NotEquals && c.Value != nil
	}
	switch c.Op {
	case Equals:
		eq, comparable := equalValues(fieldValue, c.Value)
		return comparable && eq
	case NotEquals:
		eq, comparable := equalValues(fieldValue, c.Value)
		return comparable && !eq
	default:
		ordering, comparable := compareValues(fieldValue, c.Value)
		if !comparable {
			return false
		}
		switch c.Op {
		case GreaterThan:
			return ordering > 0
		case GreaterThanOrEqual:
			return ordering >= 0
		case LessThan:
			return ordering < 0
		case LessThanOrEqual:
			return ordering <= 0
		default:
			return false
		}
	}
}

func (c *Compare) String() string {
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, formatValue(c.Value))
}

type AndOf struct {
	Conditions []Condition
}

func (c *AndOf) Matches(r *record.Record) bool {
	for _, inner := range c.Conditions {
		if !inner.Matches(r) {
			return false
		}
	}
	return true
}

func (c *AndOf) String() string {
	return joinConditions(c.Conditions, "and")
}

type OrOf struct {
	Conditions []Condition
}

func (c *OrOf) Matches(r *record.Record) bool {
	for _, inner := range c.Conditions {
		if inner.Matches(r) {
			return true
		}
	}
	return false
}

func (c *OrOf) String() string {
	return joinConditions(c.Conditions, "or")
}

type NotOf struct {
	Condition Condition
}

func (c *NotOf) Matches(r *record.Record) bool {
	return !c.Condition.Matches(r)
}

func (c *NotOf) String() string {
	return fmt.Sprintf("not (%s)", c.Condition)
}

type TextMatchKind uint8

const (
	TextPrefix TextMatchKind = iota
	TextSuffix
	TextSubstring
)

type TextMatch struct {
	Field string
	Kind  TextMatchKind
	Value string
}

func (c *TextMatch) Matches(r *record.Record) bool {
	fieldValue, ok := r.Field(c.Field)
	if !ok {
		return false
	}
	s, isString := fieldValue.(string)
	if !isString {
		return false
	}
	switch c.Kind {
	case TextPrefix:
		return strings.HasPrefix(s, c.Value)
	case TextSuffix:
		return strings.HasSuffix(s, c.Value)
	case TextSubstring:
		return strings.Contains(s, c.Value)
	default:
		return false
	}
}

func (c *TextMatch) String() string {
	var fn string
	switch c.Kind {
	case TextPrefix:
		fn = "startswith"
	case TextSuffix:
		fn = "endswith"
	default:
		fn = "contains"
	}
	return fmt.Sprintf("%s(%s, %s)", fn, c.Field, formatValue(c.Value))
}

type Always struct {
	Match bool
}

func (c *Always) Matches(_ *record.Record) bool {
	return c.Match
}

func (c *Always) String() string {
	if c.Match {
		return "true"
	}
	return "false"
}

func joinConditions(conditions []Condition, word string) string {
	if len(conditions) == 0 {
		return "true"
	}
	parts := make([]string, len(conditions))
	for i, c := range conditions {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " "+word+" ") + ")"
}

func formatValue(v interface{}) string {
	switch typed := v.(type) {
	case string:
		return fmt.Sprintf("'%s'", typed)
	case time.Time:
		return fmt.Sprintf("'%s'", typed.Format(time.RFC3339Nano))
	default:
		return fmt.Sprintf("%v", typed)
	}
}
