// protocol implements the client-facing wire dialects of the table
// endpoint. Two incompatible generations are spoken: clients pick one per
// request via the ZUMO-API-VERSION header and everything else about query
// parsing follows from that choice.
package protocol

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/taules/taules/internal/domain/query"
)

// HeaderApiVersion is the request header that selects the dialect.
const HeaderApiVersion = "ZUMO-API-VERSION"

type Dialect uint8

const (
	// DialectV2 is the first supported generation ("2.0.0"): inline counts
	// via $inlinecount=allpages, soft-deleted rows via __includeDeleted,
	// substring matching via substringof('x', field), list envelope
	// {results, count} or a bare array.
	DialectV2 Dialect = iota
	// DialectV3 is the second generation ("3.0.0"): counts via $count=true,
	// soft-deleted rows via __includedeleted, substring matching via
	// contains(field, 'x'), list envelope {items, count?, nextLink?}.
	DialectV3

	versionV2 string = "2.0.0"
	versionV3 string = "3.0.0"
)

func (d Dialect) String() string {
	switch d {
	case DialectV2:
		return versionV2
	default:
		return versionV3
	}
}

// UnsupportedVersion is returned for an absent or unrecognized protocol
// version header. Requests carrying it never reach storage.
type UnsupportedVersion struct {
	Value string
}

func (e UnsupportedVersion) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("missing required [%s] header", HeaderApiVersion)
	}
	return fmt.Sprintf("unsupported [%s] value [%s]", HeaderApiVersion, e.Value)
}

// DialectFromHeader resolves the protocol generation from the version
// header value.
func DialectFromHeader(value string) (Dialect, error) {
	switch strings.TrimSpace(value) {
	case versionV2:
		return DialectV2, nil
	case versionV3:
		return DialectV3, nil
	default:
		return 0, UnsupportedVersion{Value: strings.TrimSpace(value)}
	}
}

// ListParams is a parsed table listing request, dialect differences already
// normalized away.
type ListParams struct {
	// Filter is the client's predicate; nil when none was sent.
	Filter query.Condition
	// OrderBy clauses in priority order.
	OrderBy []query.Sort
	// Skip is the number of records to drop from the front.
	Skip uint
	// Top is the requested window size; nil means use the table default.
	Top *uint
	// WithCount asks for the total count of matching records.
	WithCount bool
	// IncludeDeleted asks for soft-deleted records to be included.
	IncludeDeleted bool
	// Select lists the fields to project, empty meaning all.
	Select []string
}

const (
	paramFilter      = "$filter"
	paramOrderBy     = "$orderby"
	paramSkip        = "$skip"
	paramTop         = "$top"
	paramSelect      = "$select"
	paramCountV3     = "$count"
	paramInlineCount = "$inlinecount"

	paramIncludeDeletedV2 = "__includeDeleted"
	paramIncludeDeletedV3 = "__includedeleted"
)

// ParseListParams interprets the query string of a list request according
// to the dialect. Errors are ParseErrors and map to bad requests.
func ParseListParams(dialect Dialect, values url.Values) (*ListParams, error) {
	params := ListParams{}

	if raw := values.Get(paramFilter); raw != "" {
		filter, err := ParseFilter(dialect, raw)
		if err != nil {
			return nil, err
		}
		params.Filter = filter
	}

	if raw := values.Get(paramOrderBy); raw != "" {
		orderBy, err := ParseOrderBy(raw)
		if err != nil {
			return nil, err
		}
		params.OrderBy = orderBy
	}

	if raw := values.Get(paramSkip); raw != "" {
		skip, err := parseNonNegative(paramSkip, raw)
		if err != nil {
			return nil, err
		}
		params.Skip = skip
	}

	if raw := values.Get(paramTop); raw != "" {
		top, err := parseNonNegative(paramTop, raw)
		if err != nil {
			return nil, err
		}
		params.Top = &top
	}

	selected, err := ParseSelectParam(values)
	if err != nil {
		return nil, err
	}
	params.Select = selected

	switch dialect {
	case DialectV2:
		switch raw := values.Get(paramInlineCount); raw {
		case "", "none":
		case "allpages":
			params.WithCount = true
		default:
			return nil, ParseError{Input: raw, Message: fmt.Sprintf("[%s] must be [allpages] or [none]", paramInlineCount)}
		}
		params.IncludeDeleted = strings.EqualFold(values.Get(paramIncludeDeletedV2), "true")
	default:
		switch raw := values.Get(paramCountV3); raw {
		case "", "false":
		case "true":
			params.WithCount = true
		default:
			return nil, ParseError{Input: raw, Message: fmt.Sprintf("[%s] must be [true] or [false]", paramCountV3)}
		}
		params.IncludeDeleted = strings.EqualFold(values.Get(paramIncludeDeletedV3), "true")
	}

	return &params, nil
}

// ParseSelectParam reads the $select projection from a query string. It is
// shared by list requests and single-record reads; both dialects spell it
// the same way.
func ParseSelectParam(values url.Values) ([]string, error) {
	raw := values.Get(paramSelect)
	if raw == "" {
		return nil, nil
	}
	fields := make([]string, 0, strings.Count(raw, ",")+1)
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, ParseError{Input: raw, Message: fmt.Sprintf("empty field in [%s]", paramSelect)}
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func parseNonNegative(param string, raw string) (uint, error) {
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, ParseError{Input: raw, Message: fmt.Sprintf("[%s] must be a non-negative integer", param)}
	}
	return uint(parsed), nil
}
