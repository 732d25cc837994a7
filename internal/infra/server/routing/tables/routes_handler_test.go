package tables

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taules/taules/internal/api/models/common"
	"github.com/taules/taules/internal/api/models/tables"
	"github.com/taules/taules/internal/api/protocol"
	"github.com/taules/taules/internal/domain/record"
	domainTable "github.com/taules/taules/internal/domain/table"
	"github.com/taules/taules/internal/infra/server/auth"
	"github.com/taules/taules/internal/infra/server/routing"
)

type JsonObj = map[string]interface{}

func apiHeaders(version string) http.Header {
	h := http.Header{}
	h.Set(protocol.HeaderApiVersion, version)
	return h
}

func setupRouter() (*gin.Engine, *mockTablesController) {
	engine := gin.Default()
	mockController := mockTablesController{}
	topLevelRouterGroup := routing.NewTopLevelRoutesGroup(auth.NewAuthenticator(nil), engine)
	handler := RoutesHandler{Controller: &mockController, Challenge: "Bearer"}
	handler.RegisterRoutes(topLevelRouterGroup)

	return engine, &mockController
}

func performRequest(r http.Handler, method, url string, body interface{}, header http.Header) *httptest.ResponseRecorder {
	var bodyToSend io.Reader
	if body != nil {
		asBytes, _ := json.Marshal(body)
		bodyToSend = bytes.NewBuffer(asBytes)
	}
	req, _ := http.NewRequest(method, url, bodyToSend)
	if header != nil {
		req.Header = header
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListTables_Ok(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodGet, "/tables", nil, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 1, mockController.tablesCalled)
	var infos []tables.TableInfo
	if err := json.Unmarshal(resp.Body.Bytes(), &infos); err != nil {
		t.Error(err)
	} else {
		require.Len(t, infos, 1)
		assert.EqualValues(t, "todoitem", infos[0].Name)
		assert.True(t, infos[0].SoftDelete)
	}
}

func TestList_Ok(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodGet, "/tables/todoitem", nil, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 1, mockController.listCalled)
	var result tables.ListResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Error(err)
	} else {
		require.Len(t, result.Items, 1)
		assert.EqualValues(t, "1", result.Items[0].ID)
		assert.Nil(t, result.Count)
	}
}

func TestList_MissingApiVersion(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodGet, "/tables/todoitem", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.EqualValues(t, 0, mockController.listCalled)
}

func TestList_UnknownApiVersion(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodGet, "/tables/todoitem", nil, apiHeaders("1.0.0"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.EqualValues(t, 0, mockController.listCalled)
}

func TestList_BadFilter(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodGet, "/tables/todoitem?$filter=price%20eq", nil, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.EqualValues(t, 0, mockController.listCalled)
}

func TestList_V2_BareArray(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodGet, "/tables/todoitem", nil, apiHeaders("2.0.0"))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 1, mockController.listCalled)
	var items []tables.Record
	if err := json.Unmarshal(resp.Body.Bytes(), &items); err != nil {
		t.Error(err)
	} else {
		require.Len(t, items, 1)
		assert.EqualValues(t, "1", items[0].ID)
	}
}

func TestList_V2_InlineCount(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodGet, "/tables/todoitem?$inlinecount=allpages", nil, apiHeaders("2.0.0"))
	assert.Equal(t, http.StatusOK, resp.Code)
	var result tables.V2ListResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Error(err)
	} else {
		assert.EqualValues(t, 1, result.Count)
		require.Len(t, result.Results, 1)
	}
}

func TestList_V3_Count(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodGet, "/tables/todoitem?$count=true", nil, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusOK, resp.Code)
	var result tables.ListResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Error(err)
	} else {
		require.NotNil(t, result.Count)
		assert.EqualValues(t, 1, *result.Count)
	}
}

func TestList_V3_NextLink(t *testing.T) {
	router, mockController := setupRouter()
	mockController.listOverride = func(ctx context.Context, tableName domainTable.Name, params protocol.ListParams) (*tables.ListResult, *common.ApiError) {
		first := mockApiRecord()
		second := mockApiRecord()
		second.ID = "2"
		return &tables.ListResult{
			Items:   []tables.Record{first, second},
			HasMore: true,
		}, nil
	}
	resp := performRequest(router, http.MethodGet, "/tables/todoitem?$top=2", nil, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusOK, resp.Code)
	var result tables.ListResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Error(err)
	} else {
		require.NotNil(t, result.NextLink)
		link, parseErr := url.Parse(*result.NextLink)
		require.NoError(t, parseErr)
		assert.EqualValues(t, "/tables/todoitem", link.Path)
		assert.EqualValues(t, "2", link.Query().Get("$skip"))
		assert.EqualValues(t, "2", link.Query().Get("$top"))
	}
}

func TestList_V3_NextLinkAdvancesSkip(t *testing.T) {
	router, mockController := setupRouter()
	mockController.listOverride = func(ctx context.Context, tableName domainTable.Name, params protocol.ListParams) (*tables.ListResult, *common.ApiError) {
		item := mockApiRecord()
		return &tables.ListResult{
			Items:   []tables.Record{item},
			HasMore: true,
		}, nil
	}
	resp := performRequest(router, http.MethodGet, "/tables/todoitem?$skip=5&$top=1", nil, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusOK, resp.Code)
	var result tables.ListResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Error(err)
	} else {
		require.NotNil(t, result.NextLink)
		link, parseErr := url.Parse(*result.NextLink)
		require.NoError(t, parseErr)
		assert.EqualValues(t, "6", link.Query().Get("$skip"))
	}
}

func TestList_V3_Selected(t *testing.T) {
	router, _ := setupRouter()
	resp := performRequest(router, http.MethodGet, "/tables/todoitem?$select=id,title", nil, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Items []JsonObj `json:"items"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Error(err)
	} else {
		require.Len(t, envelope.Items, 1)
		assert.EqualValues(t, JsonObj{"id": "1", "title": "get milk"}, envelope.Items[0])
	}
}

func TestGet_Ok(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodGet, "/tables/todoitem/1", nil, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 1, mockController.getCalled)
	assert.Equal(t, `"v1"`, resp.Header().Get("ETag"))
	var rec tables.Record
	if err := json.Unmarshal(resp.Body.Bytes(), &rec); err != nil {
		t.Error(err)
	} else {
		assert.EqualValues(t, "1", rec.ID)
	}
}

func TestGet_NotFound(t *testing.T) {
	router, mockController := setupRouter()
	err := common.ApiError{
		StatusCode: http.StatusNotFound,
		Body:       common.Body{Message: "nope"},
	}
	mockController.getOverride = func(ctx context.Context, tableName domainTable.Name, id record.Id) (*tables.Record, *common.ApiError) {
		return nil, &err
	}
	resp := performRequest(router, http.MethodGet, "/tables/todoitem/1", nil, apiHeaders("3.0.0"))
	assert.Equal(t, err.StatusCode, resp.Code)
	assert.EqualValues(t, 1, mockController.getCalled)
}

func TestGet_IfNoneMatch_NotModified(t *testing.T) {
	router, mockController := setupRouter()
	h := apiHeaders("3.0.0")
	h.Set("If-None-Match", `"v1"`)
	resp := performRequest(router, http.MethodGet, "/tables/todoitem/1", nil, h)
	assert.Equal(t, http.StatusNotModified, resp.Code)
	assert.EqualValues(t, 1, mockController.getCalled)
	assert.Equal(t, `"v1"`, resp.Header().Get("ETag"))
	assert.Zero(t, resp.Body.Len())
}

func TestGet_IfNoneMatch_Miss(t *testing.T) {
	router, _ := setupRouter()
	h := apiHeaders("3.0.0")
	h.Set("If-None-Match", `"something-else"`)
	resp := performRequest(router, http.MethodGet, "/tables/todoitem/1", nil, h)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestGet_Selected(t *testing.T) {
	router, _ := setupRouter()
	resp := performRequest(router, http.MethodGet, "/tables/todoitem/1?$select=id,title", nil, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusOK, resp.Code)
	var flat JsonObj
	if err := json.Unmarshal(resp.Body.Bytes(), &flat); err != nil {
		t.Error(err)
	} else {
		assert.EqualValues(t, JsonObj{"id": "1", "title": "get milk"}, flat)
	}
}

func TestCreate_Ok(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodPost, "/tables/todoitem", JsonObj{"id": "abc", "title": "get milk"}, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.EqualValues(t, 1, mockController.createCalled)
	assert.Equal(t, "/tables/todoitem/abc", resp.Header().Get("Location"))
	assert.Equal(t, `"v1"`, resp.Header().Get("ETag"))
	var rec tables.Record
	if err := json.Unmarshal(resp.Body.Bytes(), &rec); err != nil {
		t.Error(err)
	} else {
		assert.EqualValues(t, "abc", rec.ID)
	}
}

func TestCreate_GeneratedId(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodPost, "/tables/todoitem", JsonObj{"title": "get milk"}, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.EqualValues(t, 1, mockController.createCalled)
	assert.Equal(t, "/tables/todoitem/generated-id", resp.Header().Get("Location"))
}

func TestCreate_NoBody(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodPost, "/tables/todoitem", nil, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.EqualValues(t, 0, mockController.createCalled)
}

func TestCreate_MissingApiVersion(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodPost, "/tables/todoitem", JsonObj{"title": "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.EqualValues(t, 0, mockController.createCalled)
}

func TestCreate_Conflict(t *testing.T) {
	router, mockController := setupRouter()
	current := mockApiRecord()
	current.ID = "abc"
	current.Metadata.Version = "v7"
	mockController.createOverride = func(ctx context.Context, tableName domainTable.Name, newRecord *tables.NewRecord) (*tables.Record, *common.ApiError) {
		return nil, &common.ApiError{
			StatusCode: http.StatusConflict,
			Body:       common.Body{Message: "id already in use", Current: current},
		}
	}
	resp := performRequest(router, http.MethodPost, "/tables/todoitem", JsonObj{"id": "abc"}, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.EqualValues(t, 1, mockController.createCalled)
	assert.Equal(t, `"v7"`, resp.Header().Get("ETag"))
	var body struct {
		Message string  `json:"message"`
		Current JsonObj `json:"current"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Error(err)
	} else {
		assert.NotEmpty(t, body.Message)
		assert.EqualValues(t, "v7", body.Current["version"])
	}
}

func TestReplace_Ok(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodPut, "/tables/todoitem/1", JsonObj{"title": "get oat milk"}, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 1, mockController.replaceCalled)
	assert.Equal(t, `"v2"`, resp.Header().Get("ETag"))
	var rec tables.Record
	if err := json.Unmarshal(resp.Body.Bytes(), &rec); err != nil {
		t.Error(err)
	} else {
		assert.EqualValues(t, "1", rec.ID)
	}
}

func TestReplace_IfMatchForms(t *testing.T) {
	strong := "v1"
	cases := []struct {
		name     string
		ifMatch  string
		expected *string
	}{
		{name: "absent means unconditional", ifMatch: "", expected: nil},
		{name: "asterisk means unconditional", ifMatch: "*", expected: nil},
		{name: "quoted tag", ifMatch: `"v1"`, expected: &strong},
		{name: "weak tag", ifMatch: `W/"v1"`, expected: &strong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, mockController := setupRouter()
			var captured *string
			mockController.replaceOverride = func(ctx context.Context, tableName domainTable.Name, id record.Id, body *tables.NewRecord, expectedVersion *string) (*tables.Record, *common.ApiError) {
				captured = expectedVersion
				rec := mockApiRecord()
				rec.ID = string(id)
				return &rec, nil
			}
			h := apiHeaders("3.0.0")
			if tc.ifMatch != "" {
				h.Set("If-Match", tc.ifMatch)
			}
			resp := performRequest(router, http.MethodPut, "/tables/todoitem/1", JsonObj{"title": "x"}, h)
			assert.Equal(t, http.StatusOK, resp.Code)
			if tc.expected == nil {
				assert.Nil(t, captured)
			} else {
				require.NotNil(t, captured)
				assert.EqualValues(t, *tc.expected, *captured)
			}
		})
	}
}

func TestReplace_PreconditionFailed(t *testing.T) {
	router, mockController := setupRouter()
	current := mockApiRecord()
	current.Metadata.Version = "v9"
	mockController.replaceOverride = func(ctx context.Context, tableName domainTable.Name, id record.Id, body *tables.NewRecord, expectedVersion *string) (*tables.Record, *common.ApiError) {
		return nil, &common.ApiError{
			StatusCode: http.StatusPreconditionFailed,
			Body:       common.Body{Message: "version mismatch", Current: current},
		}
	}
	h := apiHeaders("3.0.0")
	h.Set("If-Match", `"stale"`)
	resp := performRequest(router, http.MethodPut, "/tables/todoitem/1", JsonObj{"title": "x"}, h)
	assert.Equal(t, http.StatusPreconditionFailed, resp.Code)
	assert.EqualValues(t, 1, mockController.replaceCalled)
	assert.Equal(t, `"v9"`, resp.Header().Get("ETag"))
	var body struct {
		Current JsonObj `json:"current"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Error(err)
	} else {
		assert.EqualValues(t, "v9", body.Current["version"])
	}
}

func TestMerge_Ok(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodPatch, "/tables/todoitem/1", JsonObj{"done": true}, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.EqualValues(t, 1, mockController.mergeCalled)
	assert.Equal(t, `"v2"`, resp.Header().Get("ETag"))
}

func TestMerge_NoBody(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodPatch, "/tables/todoitem/1", nil, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.EqualValues(t, 0, mockController.mergeCalled)
}

func TestDelete_Ok(t *testing.T) {
	router, mockController := setupRouter()
	resp := performRequest(router, http.MethodDelete, "/tables/todoitem/1", nil, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.EqualValues(t, 1, mockController.deleteCalled)
	assert.Zero(t, resp.Body.Len())
}

func TestDelete_IfMatch(t *testing.T) {
	router, mockController := setupRouter()
	var captured *string
	mockController.deleteOverride = func(ctx context.Context, tableName domainTable.Name, id record.Id, expectedVersion *string) *common.ApiError {
		captured = expectedVersion
		return nil
	}
	h := apiHeaders("3.0.0")
	h.Set("If-Match", `"v1"`)
	resp := performRequest(router, http.MethodDelete, "/tables/todoitem/1", nil, h)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	require.NotNil(t, captured)
	assert.EqualValues(t, "v1", *captured)
}

func TestDelete_NotFound(t *testing.T) {
	router, mockController := setupRouter()
	mockController.deleteOverride = func(ctx context.Context, tableName domainTable.Name, id record.Id, expectedVersion *string) *common.ApiError {
		return &common.ApiError{
			StatusCode: http.StatusNotFound,
			Body:       common.Body{Message: "nope"},
		}
	}
	resp := performRequest(router, http.MethodDelete, "/tables/todoitem/1", nil, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.EqualValues(t, 1, mockController.deleteCalled)
}

func TestUnauthenticated_CarriesChallenge(t *testing.T) {
	router, mockController := setupRouter()
	mockController.getOverride = func(ctx context.Context, tableName domainTable.Name, id record.Id) (*tables.Record, *common.ApiError) {
		return nil, &common.ApiError{
			StatusCode: http.StatusUnauthorized,
			Body:       common.Body{Message: "credentials required"},
		}
	}
	resp := performRequest(router, http.MethodGet, "/tables/todoitem/1", nil, apiHeaders("3.0.0"))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Bearer", resp.Header().Get("WWW-Authenticate"))
}

// Mocks

func frozenTime() time.Time { return time.Date(2026, time.March, 2, 10, 30, 0, 0, time.UTC) }

func mockApiRecord() tables.Record {
	now := frozenTime()
	return tables.Record{
		ID:      "1",
		Deleted: false,
		Metadata: common.Metadata{
			CreatedAt: now,
			UpdatedAt: now,
			Version:   "v1",
		},
		Attributes: record.Attributes{
			"title": "get milk",
		},
	}
}

type mockTablesController struct {
	listCalled      uint
	listOverride    func(ctx context.Context, tableName domainTable.Name, params protocol.ListParams) (*tables.ListResult, *common.ApiError)
	getCalled       uint
	getOverride     func(ctx context.Context, tableName domainTable.Name, id record.Id) (*tables.Record, *common.ApiError)
	createCalled    uint
	createOverride  func(ctx context.Context, tableName domainTable.Name, newRecord *tables.NewRecord) (*tables.Record, *common.ApiError)
	replaceCalled   uint
	replaceOverride func(ctx context.Context, tableName domainTable.Name, id record.Id, body *tables.NewRecord, expectedVersion *string) (*tables.Record, *common.ApiError)
	mergeCalled     uint
	mergeOverride   func(ctx context.Context, tableName domainTable.Name, id record.Id, body *tables.NewRecord, expectedVersion *string) (*tables.Record, *common.ApiError)
	deleteCalled    uint
	deleteOverride  func(ctx context.Context, tableName domainTable.Name, id record.Id, expectedVersion *string) *common.ApiError
	tablesCalled    uint
	tablesOverride  func(ctx context.Context) []tables.TableInfo
}

func (m *mockTablesController) List(ctx context.Context, tableName domainTable.Name, params protocol.ListParams) (*tables.ListResult, *common.ApiError) {
	m.listCalled++
	if m.listOverride != nil {
		return m.listOverride(ctx, tableName, params)
	} else {
		result := tables.ListResult{
			Items:    []tables.Record{mockApiRecord()},
			Selected: params.Select,
		}
		if params.WithCount {
			count := int64(1)
			result.Count = &count
		}
		return &result, nil
	}
}

func (m *mockTablesController) Get(ctx context.Context, tableName domainTable.Name, id record.Id) (*tables.Record, *common.ApiError) {
	m.getCalled++
	if m.getOverride != nil {
		return m.getOverride(ctx, tableName, id)
	} else {
		rec := mockApiRecord()
		rec.ID = string(id)
		return &rec, nil
	}
}

func (m *mockTablesController) Create(ctx context.Context, tableName domainTable.Name, newRecord *tables.NewRecord) (*tables.Record, *common.ApiError) {
	m.createCalled++
	if m.createOverride != nil {
		return m.createOverride(ctx, tableName, newRecord)
	} else {
		rec := mockApiRecord()
		if newRecord.ID != nil {
			rec.ID = *newRecord.ID
		} else {
			rec.ID = "generated-id"
		}
		if title, ok := newRecord.Attributes["title"]; ok {
			rec.Attributes["title"] = title
		}
		return &rec, nil
	}
}

func (m *mockTablesController) Replace(ctx context.Context, tableName domainTable.Name, id record.Id, body *tables.NewRecord, expectedVersion *string) (*tables.Record, *common.ApiError) {
	m.replaceCalled++
	if m.replaceOverride != nil {
		return m.replaceOverride(ctx, tableName, id, body, expectedVersion)
	} else {
		rec := mockApiRecord()
		rec.ID = string(id)
		rec.Metadata.Version = "v2"
		return &rec, nil
	}
}

func (m *mockTablesController) Merge(ctx context.Context, tableName domainTable.Name, id record.Id, body *tables.NewRecord, expectedVersion *string) (*tables.Record, *common.ApiError) {
	m.mergeCalled++
	if m.mergeOverride != nil {
		return m.mergeOverride(ctx, tableName, id, body, expectedVersion)
	} else {
		rec := mockApiRecord()
		rec.ID = string(id)
		rec.Metadata.Version = "v2"
		return &rec, nil
	}
}

func (m *mockTablesController) Delete(ctx context.Context, tableName domainTable.Name, id record.Id, expectedVersion *string) *common.ApiError {
	m.deleteCalled++
	if m.deleteOverride != nil {
		return m.deleteOverride(ctx, tableName, id, expectedVersion)
	}
	return nil
}

func (m *mockTablesController) Tables(ctx context.Context) []tables.TableInfo {
	m.tablesCalled++
	if m.tablesOverride != nil {
		return m.tablesOverride(ctx)
	}
	return []tables.TableInfo{
		{
			Name:            "todoitem",
			SoftDelete:      true,
			Policy:          "personal",
			DefaultPageSize: 50,
			MaxPageSize:     1000,
		},
	}
}
