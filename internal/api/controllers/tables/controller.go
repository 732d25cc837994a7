package tables

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/taules/taules/internal/api/models/common"
	"github.com/taules/taules/internal/api/protocol"
	"github.com/taules/taules/internal/domain/caller"
	"github.com/taules/taules/internal/domain/policy"
	"github.com/taules/taules/internal/domain/query"
	"github.com/taules/taules/internal/domain/record"
	"github.com/taules/taules/internal/domain/storage"
	domainTable "github.com/taules/taules/internal/domain/table"

	"github.com/taules/taules/internal/api/models/tables"
)

// Definition is the resolved runtime shape of one configured table: its
// policy, delete behavior and paging caps.
type Definition struct {
	Name       domainTable.Name
	SoftDelete bool
	Policy     policy.Provider
	PolicyName string
	// DefaultPageSize applies when a list request names no $top.
	DefaultPageSize uint
	// MaxPageSize caps $top.
	MaxPageSize uint
	// PurgeOlderThan is the retention window for soft-deleted records,
	// nil when this table is never purged.
	PurgeOlderThan *time.Duration
}

// Controller is an interface that defines the methods that are available to
// the routing layer. It is framework-agnostic.
//
// Every record-touching method walks the same path: resolve the table,
// authorize the caller for the operation, apply the caller's data view,
// run the pre-commit hook for writes, and only then touch storage. A record
// outside the caller's data view is answered exactly like an absent one.
type Controller interface {

	// List runs a query against a table and returns one page of visible
	// records.
	List(ctx context.Context, tableName domainTable.Name, params protocol.ListParams) (*tables.ListResult, *common.ApiError)

	// Get returns a single record by id, soft-deleted or not.
	Get(ctx context.Context, tableName domainTable.Name, id record.Id) (*tables.Record, *common.ApiError)

	// Create inserts the given NewRecord, generating an id when the body
	// carries none.
	//
	// Never pass a nil here; it's a pointer because the struct isn't small
	Create(ctx context.Context, tableName domainTable.Name, newRecord *tables.NewRecord) (*tables.Record, *common.ApiError)

	// Replace overwrites a record completely, honoring the expected
	// version when one is given.
	Replace(ctx context.Context, tableName domainTable.Name, id record.Id, body *tables.NewRecord, expectedVersion *string) (*tables.Record, *common.ApiError)

	// Merge overlays the body's attributes onto the stored record,
	// honoring the expected version when one is given. A body with
	// deleted set to false resurrects a soft-deleted record.
	Merge(ctx context.Context, tableName domainTable.Name, id record.Id, body *tables.NewRecord, expectedVersion *string) (*tables.Record, *common.ApiError)

	// Delete removes a record: soft-delete tables flip the deleted flag
	// and keep the row for sync, others drop the row outright.
	Delete(ctx context.Context, tableName domainTable.Name, id record.Id, expectedVersion *string) *common.ApiError

	// Tables describes the configured tables.
	Tables(ctx context.Context) []tables.TableInfo
}

func New(repo storage.Repository, definitions []Definition) Controller {
	byName := make(map[domainTable.Name]Definition, len(definitions))
	order := make([]domainTable.Name, 0, len(definitions))
	for _, def := range definitions {
		byName[def.Name] = def
		order = append(order, def.Name)
	}
	return &impl{
		repo:        repo,
		definitions: byName,
		order:       order,
	}
}

type impl struct {
	repo        storage.Repository
	definitions map[domainTable.Name]Definition
	order       []domainTable.Name
}

func (c *impl) List(ctx context.Context, tableName domainTable.Name, params protocol.ListParams) (*tables.ListResult, *common.ApiError) {
	def, resolveErr := c.resolve(tableName)
	if resolveErr != nil {
		return nil, resolveErr
	}
	identity := caller.FromContext(ctx)
	view := def.Policy.DataView(ctx, identity)
	if err := def.Policy.Authorize(ctx, identity, policy.QUERY, nil); err != nil {
		return nil, handleErr(err, view)
	}

	// the data view goes in front of whatever the client asked for
	conditions := []query.Condition{view}
	if params.Filter != nil {
		conditions = append(conditions, params.Filter)
	}
	if !params.IncludeDeleted {
		conditions = append(conditions, query.Where(record.FieldDeleted, query.Equals, false))
	}

	top := def.DefaultPageSize
	if params.Top != nil {
		top = *params.Top
	}
	if top > def.MaxPageSize {
		top = def.MaxPageSize
	}
	if top == 0 {
		// an explicit zero-size window; only worth a storage roundtrip
		// when the total count was asked for
		result := tables.ListResult{Items: []tables.Record{}, Selected: params.Select}
		if !params.WithCount {
			return &result, nil
		}
		page, err := c.repo.Query(ctx, def.Name, query.Spec{
			Where:     query.And(conditions...),
			Top:       1,
			WithCount: true,
		})
		if err != nil {
			return nil, handleErr(err, view)
		}
		result.Count = page.TotalCount
		return &result, nil
	}

	spec := query.Spec{
		Where:     query.And(conditions...),
		Sort:      params.OrderBy,
		Skip:      params.Skip,
		Top:       top,
		WithCount: params.WithCount,
	}
	page, err := c.repo.Query(ctx, def.Name, spec)
	if err != nil {
		return nil, handleErr(err, view)
	}

	items := make([]tables.Record, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, tables.FromDomainRecord(&page.Items[i]))
	}
	result := tables.ListResult{
		Items:    items,
		Count:    page.TotalCount,
		Selected: params.Select,
	}
	if page.TotalCount != nil {
		result.HasMore = int64(params.Skip)+int64(len(items)) < *page.TotalCount
	} else {
		result.HasMore = uint(len(items)) == top
	}
	return &result, nil
}

func (c *impl) Get(ctx context.Context, tableName domainTable.Name, id record.Id) (*tables.Record, *common.ApiError) {
	def, resolveErr := c.resolve(tableName)
	if resolveErr != nil {
		return nil, resolveErr
	}
	identity := caller.FromContext(ctx)
	view := def.Policy.DataView(ctx, identity)
	if err := def.Policy.Authorize(ctx, identity, policy.READ, nil); err != nil {
		return nil, handleErr(err, view)
	}

	result, err := c.readVisible(ctx, def, view, id)
	if err != nil {
		return nil, handleErr(err, view)
	}
	apiRecord := tables.FromDomainRecord(result)
	return &apiRecord, nil
}

func (c *impl) Create(ctx context.Context, tableName domainTable.Name, newRecord *tables.NewRecord) (*tables.Record, *common.ApiError) {
	def, resolveErr := c.resolve(tableName)
	if resolveErr != nil {
		return nil, resolveErr
	}
	identity := caller.FromContext(ctx)
	view := def.Policy.DataView(ctx, identity)

	var id record.Id
	if newRecord.ID != nil {
		if err := record.ValidateId(*newRecord.ID); err != nil {
			return nil, handleErr(err, view)
		}
		id = record.Id(*newRecord.ID)
	}
	candidate := newRecord.ToDomainRecord(id)
	if err := def.Policy.Authorize(ctx, identity, policy.CREATE, &candidate); err != nil {
		return nil, handleErr(err, view)
	}
	if err := def.Policy.BeforeCommit(ctx, identity, policy.CREATE, &candidate); err != nil {
		return nil, handleErr(err, view)
	}

	domainNew := record.NewRecord{Attributes: candidate.Attributes}
	if newRecord.ID != nil {
		domainNew.ID = &id
	}
	result, err := c.repo.Create(ctx, def.Name, &domainNew)
	if err != nil {
		return nil, handleErr(err, view)
	}
	apiRecord := tables.FromDomainRecord(result)
	return &apiRecord, nil
}

func (c *impl) Replace(ctx context.Context, tableName domainTable.Name, id record.Id, body *tables.NewRecord, expectedVersion *string) (*tables.Record, *common.ApiError) {
	def, resolveErr := c.resolve(tableName)
	if resolveErr != nil {
		return nil, resolveErr
	}
	identity := caller.FromContext(ctx)
	view := def.Policy.DataView(ctx, identity)

	if apiErr := checkBodyId(body, id); apiErr != nil {
		return nil, apiErr
	}
	incoming := body.ToDomainRecord(id)
	if err := def.Policy.Authorize(ctx, identity, policy.REPLACE, &incoming); err != nil {
		return nil, handleErr(err, view)
	}

	current, err := c.readVisible(ctx, def, view, id)
	if err != nil {
		return nil, handleErr(err, view)
	}
	if current.Deleted && !resurrects(body) {
		// soft-deleted records only come back through an explicit
		// deleted=false
		return nil, handleErr(storage.NotFound{ID: id, TableName: def.Name}, view)
	}

	if err := def.Policy.BeforeCommit(ctx, identity, policy.REPLACE, &incoming); err != nil {
		return nil, handleErr(err, view)
	}
	result, err := c.repo.Replace(ctx, def.Name, &incoming, expected(expectedVersion))
	if err != nil {
		return nil, handleErr(err, view)
	}
	apiRecord := tables.FromDomainRecord(result)
	return &apiRecord, nil
}

func (c *impl) Merge(ctx context.Context, tableName domainTable.Name, id record.Id, body *tables.NewRecord, expectedVersion *string) (*tables.Record, *common.ApiError) {
	def, resolveErr := c.resolve(tableName)
	if resolveErr != nil {
		return nil, resolveErr
	}
	identity := caller.FromContext(ctx)
	view := def.Policy.DataView(ctx, identity)

	if apiErr := checkBodyId(body, id); apiErr != nil {
		return nil, apiErr
	}
	incoming := body.ToDomainRecord(id)
	if err := def.Policy.Authorize(ctx, identity, policy.REPLACE, &incoming); err != nil {
		return nil, handleErr(err, view)
	}

	current, err := c.readVisible(ctx, def, view, id)
	if err != nil {
		return nil, handleErr(err, view)
	}
	if current.Deleted && !resurrects(body) {
		return nil, handleErr(storage.NotFound{ID: id, TableName: def.Name}, view)
	}

	merged := current.Clone()
	if merged.Attributes == nil {
		merged.Attributes = record.Attributes{}
	}
	for k, v := range body.Attributes {
		if record.IsSystemField(k) {
			continue
		}
		merged.Attributes[k] = v
	}
	if body.Deleted != nil {
		merged.Deleted = *body.Deleted
	}

	if err := def.Policy.BeforeCommit(ctx, identity, policy.REPLACE, merged); err != nil {
		return nil, handleErr(err, view)
	}
	result, err := c.repo.Replace(ctx, def.Name, merged, expected(expectedVersion))
	if err != nil {
		return nil, handleErr(err, view)
	}
	apiRecord := tables.FromDomainRecord(result)
	return &apiRecord, nil
}

func (c *impl) Delete(ctx context.Context, tableName domainTable.Name, id record.Id, expectedVersion *string) *common.ApiError {
	def, resolveErr := c.resolve(tableName)
	if resolveErr != nil {
		return resolveErr
	}
	identity := caller.FromContext(ctx)
	view := def.Policy.DataView(ctx, identity)
	if err := def.Policy.Authorize(ctx, identity, policy.DELETE, nil); err != nil {
		return handleErr(err, view)
	}

	current, err := c.readVisible(ctx, def, view, id)
	if err != nil {
		return handleErr(err, view)
	}
	if current.Deleted {
		// already buried; indistinguishable from absent
		return handleErr(storage.NotFound{ID: id, TableName: def.Name}, view)
	}

	if def.SoftDelete {
		buried := current.Clone()
		buried.Deleted = true
		if hookErr := def.Policy.BeforeCommit(ctx, identity, policy.DELETE, buried); hookErr != nil {
			return handleErr(hookErr, view)
		}
		if _, replaceErr := c.repo.Replace(ctx, def.Name, buried, expected(expectedVersion)); replaceErr != nil {
			return handleErr(replaceErr, view)
		}
		return nil
	}
	if _, deleteErr := c.repo.Delete(ctx, def.Name, id, expected(expectedVersion)); deleteErr != nil {
		return handleErr(deleteErr, view)
	}
	return nil
}

func (c *impl) Tables(ctx context.Context) []tables.TableInfo {
	infos := make([]tables.TableInfo, 0, len(c.order))
	for _, name := range c.order {
		def := c.definitions[name]
		info := tables.TableInfo{
			Name:            string(def.Name),
			SoftDelete:      def.SoftDelete,
			Policy:          def.PolicyName,
			DefaultPageSize: def.DefaultPageSize,
			MaxPageSize:     def.MaxPageSize,
		}
		if def.PurgeOlderThan != nil {
			retention := common.Duration(*def.PurgeOlderThan)
			info.PurgeOlderThan = &retention
		}
		infos = append(infos, info)
	}
	return infos
}

func (c *impl) resolve(tableName domainTable.Name) (*Definition, *common.ApiError) {
	if def, ok := c.definitions[tableName]; ok {
		return &def, nil
	}
	return nil, &common.ApiError{
		StatusCode: http.StatusNotFound,
		Body: common.Body{
			Message: fmt.Sprintf("No table named [%v]", tableName),
		},
	}
}

// readVisible fetches a record and hides it when the caller's data view
// rejects it, so invisible and absent answer identically.
func (c *impl) readVisible(ctx context.Context, def *Definition, view query.Condition, id record.Id) (*record.Record, error) {
	result, err := c.repo.Read(ctx, def.Name, id)
	if err != nil {
		return nil, err
	}
	if !view.Matches(result) {
		return nil, storage.NotFound{ID: id, TableName: def.Name}
	}
	return result, nil
}

func checkBodyId(body *tables.NewRecord, id record.Id) *common.ApiError {
	if body.ID != nil && *body.ID != string(id) {
		return &common.ApiError{
			StatusCode: http.StatusBadRequest,
			Body: common.Body{
				Message: fmt.Sprintf("Body id [%v] does not match the id in the path [%v]", *body.ID, id),
			},
		}
	}
	return nil
}

func resurrects(body *tables.NewRecord) bool {
	return body.Deleted != nil && !*body.Deleted
}

func expected(expectedVersion *string) *storage.ExpectedVersion {
	if expectedVersion == nil {
		return nil
	}
	return &storage.ExpectedVersion{Version: *expectedVersion}
}

func handleErr(err error, view query.Condition) *common.ApiError {
	switch v := err.(type) {
	case storage.NotFound:
		return notFound(v)
	case storage.AlreadyExists:
		return conflict(v, view)
	case storage.InvalidVersion:
		return preconditionFailed(v, view)
	case policy.Denied:
		return deniedErr(v)
	case record.InvalidId:
		return badRequest(v)
	case storage.InvalidPersistedData:
		return invalidPersistedData(v)
	default:
		return unhandledErr(v)
	}
}

func notFound(notFound storage.NotFound) *common.ApiError {
	return &common.ApiError{
		StatusCode: http.StatusNotFound,
		Body: common.Body{
			Message: notFound.Error(),
		},
	}
}

func conflict(alreadyExists storage.AlreadyExists, view query.Condition) *common.ApiError {
	return &common.ApiError{
		StatusCode: http.StatusConflict,
		Body: common.Body{
			Message: alreadyExists.Error(),
			Current: visibleApiRecord(view, alreadyExists.Current),
		},
	}
}

func preconditionFailed(invalidVersion storage.InvalidVersion, view query.Condition) *common.ApiError {
	return &common.ApiError{
		StatusCode: http.StatusPreconditionFailed,
		Body: common.Body{
			Message: invalidVersion.Error(),
			Current: visibleApiRecord(view, invalidVersion.Current),
		},
	}
}

// visibleApiRecord shapes the authoritative copy attached to conflicts,
// dropping it entirely when the caller's data view would never have shown
// the record.
func visibleApiRecord(view query.Condition, current *record.Record) interface{} {
	if current == nil || !view.Matches(current) {
		return nil
	}
	apiRecord := tables.FromDomainRecord(current)
	return apiRecord
}

func deniedErr(denied policy.Denied) *common.ApiError {
	statusCode := http.StatusForbidden
	if denied.Anonymous {
		statusCode = http.StatusUnauthorized
	}
	return &common.ApiError{
		StatusCode: statusCode,
		Body: common.Body{
			Message: denied.Error(),
		},
	}
}

func badRequest(err error) *common.ApiError {
	return &common.ApiError{
		StatusCode: http.StatusBadRequest,
		Body: common.Body{
			Message: err.Error(),
		},
	}
}

func invalidPersistedData(err storage.InvalidPersistedData) *common.ApiError {
	return &common.ApiError{
		StatusCode: http.StatusInternalServerError,
		Body: common.Body{
			Message: err.Error(),
		},
	}
}

func unhandledErr(e error) *common.ApiError {
	return &common.ApiError{
		StatusCode: http.StatusInternalServerError,
		Body: common.Body{
			Message: e.Error(),
		},
	}
}
