package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(server *httptest.Server, conf Config) *Taules {
	u, _ := url.Parse(server.URL)
	conf.Address = u.Host
	return New(conf)
}

func Test_Table_List(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tables/todoitem", r.URL.Path)
		assert.Equal(t, apiVersion, r.Header.Get(headerApiVersion))
		assert.Equal(t, "done eq false", r.URL.Query().Get("$filter"))
		assert.Equal(t, "true", r.URL.Query().Get("$count"))
		assert.Equal(t, "true", r.URL.Query().Get("__includedeleted"))
		assert.Equal(t, "5", r.URL.Query().Get("$skip"))
		assert.Equal(t, "2", r.URL.Query().Get("$top"))
		assert.Equal(t, "id,title", r.URL.Query().Get("$select"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"1","title":"get milk"}],"count":42}`))
	}))
	defer server.Close()

	page, err := testClient(server, Config{}).Table("todoitem").List(context.Background(), Query{
		Filter:         "done eq false",
		OrderBy:        "",
		Skip:           5,
		Top:            2,
		Select:         []string{"id", "title"},
		IncludeDeleted: true,
		WithCount:      true,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "1", page.Items[0].ID())
	require.NotNil(t, page.Count)
	assert.EqualValues(t, 42, *page.Count)
	assert.Nil(t, page.NextLink)
}

func Test_Table_ListAll_followsNextLink(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("$skip") == "" {
			_, _ = w.Write([]byte(`{"items":[{"id":"a"},{"id":"b"}],"nextLink":"/tables/todoitem?%24skip=2&%24top=2"}`))
		} else {
			assert.Equal(t, "2", r.URL.Query().Get("$skip"))
			_, _ = w.Write([]byte(`{"items":[{"id":"c"}]}`))
		}
	}))
	defer server.Close()

	all, err := testClient(server, Config{}).Table("todoitem").ListAll(context.Background(), Query{Top: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[2].ID())
}

func Test_Table_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/tables/todoitem/abc", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc","title":"get milk","version":"v1","deleted":true,"updatedAt":"2026-03-02T10:30:00.000Z"}`))
	}))
	defer server.Close()

	rec, err := testClient(server, Config{}).Table("todoitem").Get(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", rec.ID())
	assert.Equal(t, "v1", rec.Version())
	assert.True(t, rec.Deleted())
	updatedAt, err := rec.UpdatedAt()
	require.NoError(t, err)
	assert.Equal(t, 2026, updatedAt.Year())
}

func Test_Table_Get_notFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no such record"}`))
	}))
	defer server.Close()

	_, err := testClient(server, Config{}).Table("todoitem").Get(context.Background(), "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "no such record", apiErr.Message)
}

func Test_Table_Insert(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "get milk", body["title"])
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"generated-id","title":"get milk","version":"v1"}`))
	}))
	defer server.Close()

	created, err := testClient(server, Config{}).Table("todoitem").Insert(context.Background(), Record{"title": "get milk"})
	require.NoError(t, err)
	assert.Equal(t, "generated-id", created.ID())
	assert.Equal(t, "v1", created.Version())
}

func Test_Table_Insert_conflictCarriesCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"id [abc] is already in use","current":{"id":"abc","version":"v7"}}`))
	}))
	defer server.Close()

	_, err := testClient(server, Config{}).Table("todoitem").Insert(context.Background(), Record{"id": "abc"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, http.StatusConflict, conflict.StatusCode)
	assert.Equal(t, "v7", conflict.Current.Version())
}

func Test_Table_Update_sendsIfMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tables/todoitem/abc", r.URL.Path)
		assert.Equal(t, `"v1"`, r.Header.Get(headerIfMatch))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc","title":"get oat milk","version":"v2"}`))
	}))
	defer server.Close()

	updated, err := testClient(server, Config{}).Table("todoitem").
		Update(context.Background(), Record{"id": "abc", "title": "get oat milk"}, "v1")
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Version())
}

func Test_Table_Update_staleVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPreconditionFailed)
		_, _ = w.Write([]byte(`{"message":"version mismatch","current":{"id":"abc","version":"v9"}}`))
	}))
	defer server.Close()

	_, err := testClient(server, Config{}).Table("todoitem").
		Update(context.Background(), Record{"id": "abc"}, "v1")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, http.StatusPreconditionFailed, conflict.StatusCode)
	assert.Equal(t, "v9", conflict.Current.Version())
}

func Test_Table_Update_withoutId(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should have been sent")
	}))
	defer server.Close()

	_, err := testClient(server, Config{}).Table("todoitem").
		Update(context.Background(), Record{"title": "no id"}, "")
	assert.Error(t, err)
}

func Test_Table_Delete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/tables/todoitem/abc", r.URL.Path)
		assert.Empty(t, r.Header.Get(headerIfMatch))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := testClient(server, Config{}).Table("todoitem").Delete(context.Background(), "abc", "")
	assert.NoError(t, err)
}

func Test_Table_Undelete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"deleted": false}, body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc","deleted":false,"version":"v3"}`))
	}))
	defer server.Close()

	rec, err := testClient(server, Config{}).Table("todoitem").Undelete(context.Background(), "abc", "")
	require.NoError(t, err)
	assert.False(t, rec.Deleted())
	assert.Equal(t, "v3", rec.Version())
}

func Test_New_basicAuth(t *testing.T) {
	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:hunter2"))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, expected, r.Header.Get(headerAuthorization))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	conf := Config{BasicAuth: &BasicAuthUser{Name: "alice", Password: "hunter2"}}
	_, err := testClient(server, conf).Table("todoitem").List(context.Background(), Query{})
	assert.NoError(t, err)
}

func Test_New_bearerToken(t *testing.T) {
	token := "such-token"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer such-token", r.Header.Get(headerAuthorization))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	conf := Config{BearerToken: &token}
	_, err := testClient(server, conf).Table("todoitem").List(context.Background(), Query{})
	assert.NoError(t, err)
}
