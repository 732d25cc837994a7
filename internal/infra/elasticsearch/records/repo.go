package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/taules/taules/internal/config"
	"github.com/taules/taules/internal/domain/metadata"
	"github.com/taules/taules/internal/domain/query"
	"github.com/taules/taules/internal/domain/record"
	"github.com/taules/taules/internal/domain/storage"
	"github.com/taules/taules/internal/domain/table"
	"github.com/taules/taules/internal/infra/elasticsearch/common"
)

var TaulesTablePrefix = ".taules_table-"

// EsRepo is an Elasticsearch-backed Repository: one index per table. The
// opaque record version is a document field; the conditional writes
// underneath ride on the seq-no/primary-term pair of the read that checked
// the token.
type EsRepo struct {
	client   *elasticsearch.Client
	settings config.ElasticsearchStorage
	getUTC   func() time.Time // for mocking
}

// For testing
func (e *EsRepo) SetUTCGetter(getter func() time.Time) {
	e.getUTC = getter
}

func NewRepo(client *elasticsearch.Client, settings config.ElasticsearchStorage) storage.Repository {
	return &EsRepo{client: client, settings: settings, getUTC: func() time.Time {
		return time.Now().UTC()
	}}
}

func (e *EsRepo) Query(ctx context.Context, tableName table.Name, spec query.Spec) (*query.Page, error) {
	searchBody, err := e.buildSearchBody(spec)
	if err != nil {
		return nil, err
	}
	searchBodyBytes, err := json.Marshal(searchBody)
	if err != nil {
		return nil, common.JsonSerdesErr{Underlying: []error{err}}
	}

	searchReq := esapi.SearchRequest{
		Index:             []string{string(BuildIndexName(tableName))},
		IgnoreUnavailable: esapi.BoolPtr(true),
		AllowNoIndices:    esapi.BoolPtr(true),
		Body:              bytes.NewReader(searchBodyBytes),
	}
	rawResp, err := searchReq.Do(ctx, e.client)
	if err != nil {
		return nil, common.ElasticsearchErr{Underlying: err}
	}
	defer rawResp.Body.Close()

	switch rawResp.StatusCode {
	case 200:
		var searchResp esSearchResponse
		if err := json.NewDecoder(rawResp.Body).Decode(&searchResp); err != nil {
			return nil, common.JsonSerdesErr{Underlying: []error{err}}
		}
		items := make([]record.Record, 0, len(searchResp.Hits.Hits))
		for _, hit := range searchResp.Hits.Hits {
			items = append(items, hit.toDomainRecord())
		}
		page := query.Page{Items: items}
		if spec.WithCount {
			total := searchResp.Hits.Total.Value
			page.TotalCount = &total
		}
		return &page, nil
	case 404:
		// the index only exists once the first record lands
		page := query.Page{Items: []record.Record{}}
		if spec.WithCount {
			zero := int64(0)
			page.TotalCount = &zero
		}
		return &page, nil
	default:
		return nil, common.UnexpectedEsStatusError(rawResp)
	}
}

func (e *EsRepo) Create(ctx context.Context, tableName table.Name, newRecord *record.NewRecord) (*record.Record, error) {
	id := record.GenerateId()
	if newRecord.ID != nil {
		id = *newRecord.ID
	}
	now := e.getUTC()
	stored := record.Record{
		ID:         id,
		Attributes: newRecord.Attributes,
		Metadata: metadata.Metadata{
			CreatedAt: metadata.CreatedAt(now),
			UpdatedAt: metadata.UpdatedAt(now),
			Version:   metadata.GenerateVersion(),
		},
	}
	toPersistBytes, err := json.Marshal(toPersistedRecord(&stored))
	if err != nil {
		return nil, common.JsonSerdesErr{Underlying: []error{err}}
	}

	createReq := esapi.CreateRequest{
		Index:      string(BuildIndexName(tableName)),
		DocumentID: string(id),
		Body:       bytes.NewReader(toPersistBytes),
		Refresh:    "wait_for",
	}
	rawResp, err := createReq.Do(ctx, e.client)
	if err != nil {
		return nil, common.ElasticsearchErr{Underlying: err}
	}
	defer rawResp.Body.Close()
	statusCode := rawResp.StatusCode
	switch {
	case 200 <= statusCode && statusCode <= 299:
		return &stored, nil
	case statusCode == 409:
		hit, getErr := e.get(ctx, tableName, id)
		if getErr != nil {
			return nil, getErr
		}
		current := hit.toDomainRecord()
		return nil, storage.AlreadyExists{ID: id, TableName: tableName, Current: &current}
	default:
		return nil, common.UnexpectedEsStatusError(rawResp)
	}
}

func (e *EsRepo) Read(ctx context.Context, tableName table.Name, id record.Id) (*record.Record, error) {
	hit, err := e.get(ctx, tableName, id)
	if err != nil {
		return nil, err
	}
	retrieved := hit.toDomainRecord()
	return &retrieved, nil
}

func (e *EsRepo) Replace(ctx context.Context, tableName table.Name, rec *record.Record, expectedVersion *storage.ExpectedVersion) (*record.Record, error) {
	runUpdate := func() (*record.Record, error) {
		hit, err := e.get(ctx, tableName, rec.ID)
		if err != nil {
			return nil, err
		}
		current := hit.toDomainRecord()
		if expectedVersion != nil && string(current.Metadata.Version) != expectedVersion.Version {
			return nil, storage.InvalidVersion{ID: rec.ID, TableName: tableName, Current: &current}
		}
		stored := record.Record{
			ID:         rec.ID,
			Attributes: rec.Attributes,
			Deleted:    rec.Deleted,
			Metadata: metadata.Metadata{
				CreatedAt: current.Metadata.CreatedAt,
				UpdatedAt: metadata.UpdatedAt(e.getUTC()),
				Version:   metadata.GenerateVersion(),
			},
		}
		updatePayloadBytes, err := json.Marshal(toPersistedRecord(&stored))
		if err != nil {
			return nil, common.JsonSerdesErr{Underlying: []error{err}}
		}
		// Purposely using the Index API (rather than the update API) so as to
		// not get bit by old stale data due to partial updates. We send
		// optimistic locking data to ensure we are _updating_
		updateReq := esapi.IndexRequest{
			Index:         string(BuildIndexName(tableName)),
			DocumentID:    string(rec.ID),
			Body:          bytes.NewReader(updatePayloadBytes),
			IfSeqNo:       esapi.IntPtr(int(hit.SeqNum)),
			IfPrimaryTerm: esapi.IntPtr(int(hit.PrimaryTerm)),
			Refresh:       "wait_for",
		}
		rawResp, err := updateReq.Do(ctx, e.client)
		if err != nil {
			return nil, common.ElasticsearchErr{Underlying: err}
		}
		defer rawResp.Body.Close()
		respStatus := rawResp.StatusCode
		switch {
		case 200 <= respStatus && respStatus <= 299:
			return &stored, nil
		case respStatus == 409:
			return nil, seqNoRace{}
		case respStatus == 404:
			return nil, storage.NotFound{ID: rec.ID, TableName: tableName}
		default:
			return nil, common.UnexpectedEsStatusError(rawResp)
		}
	}
	result, err := e.withSeqNoRetries(runUpdate)
	if _, raced := err.(seqNoRace); raced {
		return e.raceLost(ctx, tableName, rec.ID)
	}
	return result, err
}

func (e *EsRepo) Delete(ctx context.Context, tableName table.Name, id record.Id, expectedVersion *storage.ExpectedVersion) (*record.Record, error) {
	runDelete := func() (*record.Record, error) {
		hit, err := e.get(ctx, tableName, id)
		if err != nil {
			return nil, err
		}
		current := hit.toDomainRecord()
		if expectedVersion != nil && string(current.Metadata.Version) != expectedVersion.Version {
			return nil, storage.InvalidVersion{ID: id, TableName: tableName, Current: &current}
		}
		deleteReq := esapi.DeleteRequest{
			Index:         string(BuildIndexName(tableName)),
			DocumentID:    string(id),
			IfSeqNo:       esapi.IntPtr(int(hit.SeqNum)),
			IfPrimaryTerm: esapi.IntPtr(int(hit.PrimaryTerm)),
			Refresh:       "wait_for",
		}
		rawResp, err := deleteReq.Do(ctx, e.client)
		if err != nil {
			return nil, common.ElasticsearchErr{Underlying: err}
		}
		defer rawResp.Body.Close()
		respStatus := rawResp.StatusCode
		switch {
		case 200 <= respStatus && respStatus <= 299:
			return &current, nil
		case respStatus == 409:
			return nil, seqNoRace{}
		case respStatus == 404:
			return nil, storage.NotFound{ID: id, TableName: tableName}
		default:
			return nil, common.UnexpectedEsStatusError(rawResp)
		}
	}
	result, err := e.withSeqNoRetries(runDelete)
	if _, raced := err.(seqNoRace); raced {
		return e.raceLost(ctx, tableName, id)
	}
	return result, err
}

func (e *EsRepo) Check(ctx context.Context) error {
	pingReq := esapi.PingRequest{}
	rawResp, err := pingReq.Do(ctx, e.client)
	if err != nil {
		return common.ElasticsearchErr{Underlying: err}
	}
	defer rawResp.Body.Close()
	if rawResp.StatusCode == 200 {
		return nil
	}
	return common.UnexpectedEsStatusError(rawResp)
}

// withSeqNoRetries reruns an operation that lost the race between its read
// and its conditional write. The version token check inside the rerun keeps
// this honest: a token mismatch surfaces as InvalidVersion, never a retry.
func (e *EsRepo) withSeqNoRetries(run func() (*record.Record, error)) (*record.Record, error) {
	result, err := run()
	timesRetried := uint(0)
	for {
		if _, raced := err.(seqNoRace); !raced || timesRetried >= e.settings.CasRetries {
			return result, err
		}
		timesRetried++
		result, err = run()
	}
}

// raceLost hands back the freshest copy after the retry budget ran out.
func (e *EsRepo) raceLost(ctx context.Context, tableName table.Name, id record.Id) (*record.Record, error) {
	hit, err := e.get(ctx, tableName, id)
	if err != nil {
		return nil, err
	}
	current := hit.toDomainRecord()
	return nil, storage.InvalidVersion{ID: id, TableName: tableName, Current: &current}
}

func (e *EsRepo) get(ctx context.Context, tableName table.Name, id record.Id) (*esHitPersistedRecord, error) {
	getReq := esapi.GetRequest{
		Index:      string(BuildIndexName(tableName)),
		DocumentID: string(id),
	}
	rawResp, err := getReq.Do(ctx, e.client)
	if err != nil {
		return nil, common.ElasticsearchErr{Underlying: err}
	}
	defer rawResp.Body.Close()

	switch rawResp.StatusCode {
	case 200:
		var response esHitPersistedRecord
		if err := json.NewDecoder(rawResp.Body).Decode(&response); err != nil {
			return nil, common.JsonSerdesErr{Underlying: []error{err}}
		}
		return &response, nil
	case 404:
		return nil, storage.NotFound{ID: id, TableName: tableName}
	default:
		return nil, common.UnexpectedEsStatusError(rawResp)
	}
}

// seqNoRace marks a conditional write that lost the seq-no race between its
// read and its index call. Retried internally; never escapes this package.
type seqNoRace struct{}

func (seqNoRace) Error() string {
	return "lost the sequence number race"
}

type jsonObjMap map[string]interface{}

func BuildIndexName(tableName table.Name) common.IndexName {
	return common.IndexName(fmt.Sprintf("%s%s", TaulesTablePrefix, string(tableName)))
}

func (e *EsRepo) buildSearchBody(spec query.Spec) (jsonObjMap, error) {
	dsl, err := conditionToDsl(spec.Where)
	if err != nil {
		return nil, err
	}

	size := spec.Top
	if size == 0 {
		size = e.settings.MaxResultWindow
	}

	sortClauses := make([]jsonObjMap, 0, len(spec.Sort)+1)
	for _, clause := range spec.Sort {
		order := "asc"
		if clause.Descending {
			order = "desc"
		}
		sortClauses = append(sortClauses, jsonObjMap{
			fieldPath(clause.Field): jsonObjMap{
				"order":         order,
				"missing":       "_last",
				"unmapped_type": "keyword",
			},
		})
	}
	// ties always break on id ascending
	sortClauses = append(sortClauses, jsonObjMap{"id": jsonObjMap{"order": "asc"}})

	searchBody := jsonObjMap{
		"from":  spec.Skip,
		"size":  size,
		"query": dsl,
		"sort":  sortClauses,
	}
	if spec.WithCount {
		searchBody["track_total_hits"] = true
	}
	return searchBody, nil
}

// conditionToDsl translates a Condition into the equivalent bool query. The
// set of condition types is closed, so the translation is total.
func conditionToDsl(cond query.Condition) (jsonObjMap, error) {
	switch typed := cond.(type) {
	case nil:
		return jsonObjMap{"match_all": jsonObjMap{}}, nil
	case *query.Compare:
		return compareToDsl(typed)
	case *query.AndOf:
		inner, err := conditionsToDsl(typed.Conditions)
		if err != nil {
			return nil, err
		}
		if len(inner) == 0 {
			return jsonObjMap{"match_all": jsonObjMap{}}, nil
		}
		return jsonObjMap{"bool": jsonObjMap{"filter": inner}}, nil
	case *query.OrOf:
		inner, err := conditionsToDsl(typed.Conditions)
		if err != nil {
			return nil, err
		}
		return jsonObjMap{"bool": jsonObjMap{
			"should":               inner,
			"minimum_should_match": 1,
		}}, nil
	case *query.NotOf:
		inner, err := conditionToDsl(typed.Condition)
		if err != nil {
			return nil, err
		}
		return jsonObjMap{"bool": jsonObjMap{"must_not": inner}}, nil
	case *query.TextMatch:
		return textMatchToDsl(typed), nil
	case *query.Always:
		if typed.Match {
			return jsonObjMap{"match_all": jsonObjMap{}}, nil
		}
		return jsonObjMap{"bool": jsonObjMap{"must_not": jsonObjMap{"match_all": jsonObjMap{}}}}, nil
	default:
		return nil, fmt.Errorf("no translation for condition [%v]", cond)
	}
}

func conditionsToDsl(conditions []query.Condition) ([]jsonObjMap, error) {
	out := make([]jsonObjMap, 0, len(conditions))
	for _, cond := range conditions {
		dsl, err := conditionToDsl(cond)
		if err != nil {
			return nil, err
		}
		out = append(out, dsl)
	}
	return out, nil
}

func compareToDsl(compare *query.Compare) (jsonObjMap, error) {
	path := fieldPath(compare.Field)
	switch compare.Op {
	case query.Equals:
		if compare.Value == nil {
			return jsonObjMap{"bool": jsonObjMap{"must_not": jsonObjMap{"exists": jsonObjMap{"field": path}}}}, nil
		}
		return jsonObjMap{"term": jsonObjMap{path: compare.Value}}, nil
	case query.NotEquals:
		if compare.Value == nil {
			return jsonObjMap{"exists": jsonObjMap{"field": path}}, nil
		}
		// absent fields count as not-equal, so no exists clause here
		return jsonObjMap{"bool": jsonObjMap{"must_not": jsonObjMap{"term": jsonObjMap{path: compare.Value}}}}, nil
	case query.GreaterThan:
		return rangeDsl(path, "gt", compare.Value), nil
	case query.GreaterThanOrEqual:
		return rangeDsl(path, "gte", compare.Value), nil
	case query.LessThan:
		return rangeDsl(path, "lt", compare.Value), nil
	case query.LessThanOrEqual:
		return rangeDsl(path, "lte", compare.Value), nil
	default:
		return nil, fmt.Errorf("no translation for operator [%v]", compare.Op)
	}
}

func rangeDsl(path string, bound string, value interface{}) jsonObjMap {
	if t, ok := value.(time.Time); ok {
		value = t.Format(time.RFC3339Nano)
	}
	return jsonObjMap{"range": jsonObjMap{path: jsonObjMap{bound: value}}}
}

func textMatchToDsl(match *query.TextMatch) jsonObjMap {
	path := fieldPath(match.Field)
	switch match.Kind {
	case query.TextPrefix:
		return jsonObjMap{"prefix": jsonObjMap{path: match.Value}}
	case query.TextSuffix:
		return jsonObjMap{"wildcard": jsonObjMap{path: jsonObjMap{"value": "*" + escapeWildcards(match.Value)}}}
	default:
		return jsonObjMap{"wildcard": jsonObjMap{path: jsonObjMap{"value": "*" + escapeWildcards(match.Value) + "*"}}}
	}
}

var wildcardEscaper = strings.NewReplacer("\\", "\\\\", "*", "\\*", "?", "\\?")

func escapeWildcards(s string) string {
	return wildcardEscaper.Replace(s)
}

// fieldPath maps a wire field name onto its place in the persisted document.
func fieldPath(field string) string {
	switch field {
	case record.FieldId:
		return "id"
	case record.FieldDeleted:
		return "deleted"
	case record.FieldVersion:
		return "version"
	case record.FieldCreatedAt:
		return "metadata.created_at"
	case record.FieldUpdatedAt:
		return "metadata.updated_at"
	default:
		return "attributes." + field
	}
}

// Private persistence doc structures based entirely on basic types for ease
// of guaranteeing serdes.

type persistedRecord struct {
	ID         string                 `json:"id"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Deleted    bool                   `json:"deleted"`
	Version    string                 `json:"version"`
	Metadata   persistedMetadata      `json:"metadata"`
}

type persistedMetadata struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPersistedRecord(rec *record.Record) persistedRecord {
	return persistedRecord{
		ID:         string(rec.ID),
		Attributes: rec.Attributes,
		Deleted:    rec.Deleted,
		Version:    string(rec.Metadata.Version),
		Metadata: persistedMetadata{
			CreatedAt: time.Time(rec.Metadata.CreatedAt),
			UpdatedAt: time.Time(rec.Metadata.UpdatedAt),
		},
	}
}

type esHitPersistedRecord struct {
	ID          string          `json:"_id"`
	SeqNum      uint64          `json:"_seq_no"`
	PrimaryTerm uint64          `json:"_primary_term"`
	Source      persistedRecord `json:"_source"`
}

func (hit *esHitPersistedRecord) toDomainRecord() record.Record {
	source := hit.Source
	return record.Record{
		ID:         record.Id(hit.ID),
		Attributes: source.Attributes,
		Deleted:    source.Deleted,
		Metadata: metadata.Metadata{
			CreatedAt: metadata.CreatedAt(source.Metadata.CreatedAt),
			UpdatedAt: metadata.UpdatedAt(source.Metadata.UpdatedAt),
			Version:   metadata.Version(source.Version),
		},
	}
}

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value    int64  `json:"value"`
			Relation string `json:"relation"`
		} `json:"total"`
		Hits []esHitPersistedRecord `json:"hits"`
	} `json:"hits"`
}
