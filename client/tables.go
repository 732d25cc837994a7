package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Record is the flat wire form of a table record: the server-owned system
// fields (id, createdAt, updatedAt, version, deleted) alongside the domain
// attributes.
type Record map[string]interface{}

func (r Record) ID() string {
	s, _ := r["id"].(string)
	return s
}

func (r Record) Version() string {
	s, _ := r["version"].(string)
	return s
}

func (r Record) Deleted() bool {
	d, _ := r["deleted"].(bool)
	return d
}

func (r Record) UpdatedAt() (time.Time, error) {
	s, _ := r["updatedAt"].(string)
	return time.Parse(time.RFC3339Nano, s)
}

// Query shapes a List call. Zero values mean server defaults.
type Query struct {
	// Filter is a predicate over record fields, e.g. "price gt 10".
	Filter string
	// OrderBy holds sort clauses, e.g. "price desc,title".
	OrderBy string
	// Skip drops records from the front of the result.
	Skip uint
	// Top caps the window size; the server clamps it to the table maximum.
	Top uint
	// Select projects the result down to the named fields.
	Select []string
	// IncludeDeleted asks for soft-deleted records too.
	IncludeDeleted bool
	// WithCount asks for the total count of matching records.
	WithCount bool
}

func (q *Query) values() url.Values {
	v := url.Values{}
	if q.Filter != "" {
		v.Set("$filter", q.Filter)
	}
	if q.OrderBy != "" {
		v.Set("$orderby", q.OrderBy)
	}
	if q.Skip > 0 {
		v.Set("$skip", strconv.FormatUint(uint64(q.Skip), 10))
	}
	if q.Top > 0 {
		v.Set("$top", strconv.FormatUint(uint64(q.Top), 10))
	}
	if len(q.Select) > 0 {
		v.Set("$select", strings.Join(q.Select, ","))
	}
	if q.IncludeDeleted {
		v.Set("__includedeleted", "true")
	}
	if q.WithCount {
		v.Set("$count", "true")
	}
	return v
}

// Page is one window of a listing.
type Page struct {
	Items []Record `json:"items"`
	// Count is only present when the query asked for it.
	Count *int64 `json:"count,omitempty"`
	// NextLink points at the next window when this one was full.
	NextLink *string `json:"nextLink,omitempty"`
}

// Table is a handle on one named table.
type Table struct {
	name   string
	client *Taules
}

func (t *Table) path(id string) string {
	if id == "" {
		return fmt.Sprintf("/tables/%s", t.name)
	}
	return fmt.Sprintf("/tables/%s/%s", t.name, url.PathEscape(id))
}

// List fetches one page of records.
func (t *Table) List(ctx context.Context, q Query) (*Page, error) {
	u := t.client.buildURL(t.path(""), q.values())
	return t.client.fetchPage(ctx, u)
}

// ListAll fetches pages, following nextLink until the server stops
// returning one, and concatenates the items.
func (t *Table) ListAll(ctx context.Context, q Query) ([]Record, error) {
	var all []Record
	page, err := t.List(ctx, q)
	if err != nil {
		return nil, err
	}
	for {
		all = append(all, page.Items...)
		if page.NextLink == nil {
			return all, nil
		}
		u, err := t.client.linkURL(*page.NextLink)
		if err != nil {
			return nil, err
		}
		page, err = t.client.fetchPage(ctx, u)
		if err != nil {
			return nil, err
		}
	}
}

func (c *Taules) fetchPage(ctx context.Context, u url.URL) (*Page, error) {
	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return nil, err
	}
	var page Page
	if err := parseResponse(resp, http.StatusOK, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get fetches one record by id, soft-deleted or not.
func (t *Table) Get(ctx context.Context, id string) (Record, error) {
	u := t.client.buildURL(t.path(id), nil)
	resp, err := t.client.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := parseResponse(resp, http.StatusOK, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Insert creates a record. The server assigns an id when the record carries
// none; a taken id surfaces as a ConflictError.
func (t *Table) Insert(ctx context.Context, rec Record) (Record, error) {
	u := t.client.buildURL(t.path(""), nil)
	resp, err := t.client.do(ctx, http.MethodPost, u, rec, "")
	if err != nil {
		return nil, err
	}
	var created Record
	if err := parseResponse(resp, http.StatusCreated, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// Update replaces the record wholesale. A non-empty expectedVersion makes
// the write conditional; a stale one surfaces as a ConflictError carrying
// the current record.
func (t *Table) Update(ctx context.Context, rec Record, expectedVersion string) (Record, error) {
	id := rec.ID()
	if id == "" {
		return nil, fmt.Errorf("record has no id")
	}
	u := t.client.buildURL(t.path(id), nil)
	resp, err := t.client.do(ctx, http.MethodPut, u, rec, expectedVersion)
	if err != nil {
		return nil, err
	}
	var updated Record
	if err := parseResponse(resp, http.StatusOK, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the record; on soft-delete tables it stays readable by id
// with deleted set to true. A non-empty expectedVersion makes the delete
// conditional.
func (t *Table) Delete(ctx context.Context, id string, expectedVersion string) error {
	u := t.client.buildURL(t.path(id), nil)
	resp, err := t.client.do(ctx, http.MethodDelete, u, nil, expectedVersion)
	if err != nil {
		return err
	}
	return parseResponse(resp, http.StatusNoContent, nil)
}

// Undelete resurrects a soft-deleted record by merging deleted=false into
// it.
func (t *Table) Undelete(ctx context.Context, id string, expectedVersion string) (Record, error) {
	u := t.client.buildURL(t.path(id), nil)
	resp, err := t.client.do(ctx, http.MethodPatch, u, Record{"deleted": false}, expectedVersion)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := parseResponse(resp, http.StatusOK, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}
