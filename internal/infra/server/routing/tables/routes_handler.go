package tables

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	tablesController "github.com/taules/taules/internal/api/controllers/tables"
	"github.com/taules/taules/internal/api/models/common"
	"github.com/taules/taules/internal/api/models/tables"
	"github.com/taules/taules/internal/api/protocol"
	"github.com/taules/taules/internal/domain/record"
	domainTable "github.com/taules/taules/internal/domain/table"
	"github.com/taules/taules/internal/infra/server/routing"
)

var subPath = "tables"

// TableNamePathKey is the route parameter carrying the table name, exported
// so middleware can label observations with it.
var TableNamePathKey = "table_name"

var recordIdPathKey = "record_id"

const (
	headerETag        = "ETag"
	headerIfMatch     = "If-Match"
	headerIfNoneMatch = "If-None-Match"
	headerLocation    = "Location"
	headerChallenge   = "WWW-Authenticate"
)

// RoutesHandler answers the table routes. Challenge is the WWW-Authenticate
// value attached to 401 responses.
type RoutesHandler struct {
	Controller tablesController.Controller
	Challenge  string
}

func (h *RoutesHandler) RegisterRoutes(routerGroup *gin.RouterGroup) {
	subGroup := routerGroup.Group(subPath)
	subGroup.GET("", h.listTables)
	subGroup.GET("/:"+TableNamePathKey, h.list)
	subGroup.POST("/:"+TableNamePathKey, h.create)
	subGroup.GET("/:"+TableNamePathKey+"/:"+recordIdPathKey, h.get)
	subGroup.PUT("/:"+TableNamePathKey+"/:"+recordIdPathKey, h.replace)
	subGroup.PATCH("/:"+TableNamePathKey+"/:"+recordIdPathKey, h.merge)
	subGroup.DELETE("/:"+TableNamePathKey+"/:"+recordIdPathKey, h.delete)
}

// @Summary List configured tables
// @ID list-tables
// @Tags tables
// @Description Describes the tables this server exposes
// @Accept  json
// @Produce  json
// @Success 200 {array} tables.TableInfo
// @Router /tables [get]
func (h *RoutesHandler) listTables(c *gin.Context) {
	c.JSON(http.StatusOK, h.Controller.Tables(c.Request.Context()))
}

// @Summary List records
// @ID list-table-records
// @Tags tables
// @Description Returns one page of a table's records, shaped by the standard query parameters
// @Accept  json
// @Produce  json
// @Param   ZUMO-API-VERSION header string true "Protocol version (2.0.0 or 3.0.0)"
// @Param   table_name path string true "The name of the table"
// @Param   $filter query string false "Predicate over record fields"
// @Param   $orderby query string false "Sort clauses"
// @Param   $skip query int false "Records to drop from the front"
// @Param   $top query int false "Window size"
// @Param   $select query string false "Comma-separated fields to project"
// @Success 200 {object} tables.ListResult
// @Failure 400 {object} common.Body "Bad query or protocol version"
// @Failure 401 {object} common.Body "Credentials required"
// @Failure 404 {object} common.Body "Table does not exist"
// @Router /tables/{table_name} [get]
func (h *RoutesHandler) list(c *gin.Context) {
	dialect, ok := h.resolveDialect(c)
	if !ok {
		return
	}
	tableName := domainTable.Name(c.Param(TableNamePathKey))
	params, err := protocol.ParseListParams(dialect, c.Request.URL.Query())
	if err != nil {
		handleBadRequest(c, err)
		return
	}
	result, apiErr := h.Controller.List(c.Request.Context(), tableName, *params)
	if apiErr != nil {
		h.writeApiErr(c, apiErr)
		return
	}
	h.renderList(c, dialect, params, result)
}

// @Summary Get a record
// @ID get-table-record
// @Tags tables
// @Description Retrieves a single record by id, soft-deleted or not
// @Accept  json
// @Produce  json
// @Param   ZUMO-API-VERSION header string true "Protocol version (2.0.0 or 3.0.0)"
// @Param   table_name path string true "The name of the table"
// @Param   record_id path string true "The id of the record"
// @Success 200 {object} tables.Record
// @Failure 304 "Record matches If-None-Match"
// @Failure 404 {object} common.Body "Record does not exist"
// @Router /tables/{table_name}/{record_id} [get]
func (h *RoutesHandler) get(c *gin.Context) {
	if _, ok := h.resolveDialect(c); !ok {
		return
	}
	tableName := domainTable.Name(c.Param(TableNamePathKey))
	id := record.Id(c.Param(recordIdPathKey))
	selected, err := protocol.ParseSelectParam(c.Request.URL.Query())
	if err != nil {
		handleBadRequest(c, err)
		return
	}
	rec, apiErr := h.Controller.Get(c.Request.Context(), tableName, id)
	if apiErr != nil {
		h.writeApiErr(c, apiErr)
		return
	}
	c.Header(headerETag, quoteETag(rec.Metadata.Version))
	if etagMatches(c.GetHeader(headerIfNoneMatch), rec.Metadata.Version) {
		c.Status(http.StatusNotModified)
		return
	}
	if len(selected) > 0 {
		c.JSON(http.StatusOK, rec.Projected(selected))
	} else {
		c.JSON(http.StatusOK, rec)
	}
}

// @Summary Create a record
// @ID create-table-record
// @Tags tables
// @Description Inserts a record, generating an id when the body carries none
// @Accept  json
// @Produce  json
// @Param   ZUMO-API-VERSION header string true "Protocol version (2.0.0 or 3.0.0)"
// @Param   table_name path string true "The name of the table"
// @Param   newRecord body tables.NewRecord true "The request body"
// @Success 201 {object} tables.Record
// @Failure 400 {object} common.Body "Invalid JSON or id"
// @Failure 409 {object} common.Body "Id already in use; body carries the current record when visible"
// @Router /tables/{table_name} [post]
func (h *RoutesHandler) create(c *gin.Context) {
	if _, ok := h.resolveDialect(c); !ok {
		return
	}
	tableName := domainTable.Name(c.Param(TableNamePathKey))
	var newRecord tables.NewRecord
	if err := c.ShouldBindJSON(&newRecord); err != nil {
		routing.HandleJsonSerdesErr(c, err)
		return
	}
	rec, apiErr := h.Controller.Create(c.Request.Context(), tableName, &newRecord)
	if apiErr != nil {
		h.writeApiErr(c, apiErr)
		return
	}
	c.Header(headerLocation, fmt.Sprintf("%s/%s", c.Request.URL.Path, rec.ID))
	c.Header(headerETag, quoteETag(rec.Metadata.Version))
	c.JSON(http.StatusCreated, rec)
}

// @Summary Replace a record
// @ID replace-table-record
// @Tags tables
// @Description Overwrites a record completely; If-Match makes the write conditional on the current version
// @Accept  json
// @Produce  json
// @Param   ZUMO-API-VERSION header string true "Protocol version (2.0.0 or 3.0.0)"
// @Param   table_name path string true "The name of the table"
// @Param   record_id path string true "The id of the record"
// @Param   If-Match header string false "Expected version as an entity tag"
// @Param   recordBody body tables.NewRecord true "The request body"
// @Success 200 {object} tables.Record
// @Failure 404 {object} common.Body "Record does not exist"
// @Failure 412 {object} common.Body "Version mismatch; body carries the current record when visible"
// @Router /tables/{table_name}/{record_id} [put]
func (h *RoutesHandler) replace(c *gin.Context) {
	if _, ok := h.resolveDialect(c); !ok {
		return
	}
	tableName := domainTable.Name(c.Param(TableNamePathKey))
	id := record.Id(c.Param(recordIdPathKey))
	var body tables.NewRecord
	if err := c.ShouldBindJSON(&body); err != nil {
		routing.HandleJsonSerdesErr(c, err)
		return
	}
	rec, apiErr := h.Controller.Replace(c.Request.Context(), tableName, id, &body, expectedVersionHeader(c))
	if apiErr != nil {
		h.writeApiErr(c, apiErr)
		return
	}
	c.Header(headerETag, quoteETag(rec.Metadata.Version))
	c.JSON(http.StatusOK, rec)
}

// @Summary Merge into a record
// @ID merge-table-record
// @Tags tables
// @Description Overlays the body's fields onto the stored record; a body with deleted set to false resurrects a soft-deleted record
// @Accept  json
// @Produce  json
// @Param   ZUMO-API-VERSION header string true "Protocol version (2.0.0 or 3.0.0)"
// @Param   table_name path string true "The name of the table"
// @Param   record_id path string true "The id of the record"
// @Param   If-Match header string false "Expected version as an entity tag"
// @Param   recordBody body tables.NewRecord true "The request body"
// @Success 200 {object} tables.Record
// @Failure 404 {object} common.Body "Record does not exist"
// @Failure 412 {object} common.Body "Version mismatch; body carries the current record when visible"
// @Router /tables/{table_name}/{record_id} [patch]
func (h *RoutesHandler) merge(c *gin.Context) {
	if _, ok := h.resolveDialect(c); !ok {
		return
	}
	tableName := domainTable.Name(c.Param(TableNamePathKey))
	id := record.Id(c.Param(recordIdPathKey))
	var body tables.NewRecord
	if err := c.ShouldBindJSON(&body); err != nil {
		routing.HandleJsonSerdesErr(c, err)
		return
	}
	rec, apiErr := h.Controller.Merge(c.Request.Context(), tableName, id, &body, expectedVersionHeader(c))
	if apiErr != nil {
		h.writeApiErr(c, apiErr)
		return
	}
	c.Header(headerETag, quoteETag(rec.Metadata.Version))
	c.JSON(http.StatusOK, rec)
}

// @Summary Delete a record
// @ID delete-table-record
// @Tags tables
// @Description Soft-deletes on tables configured for it, removes outright elsewhere; If-Match makes the delete conditional
// @Accept  json
// @Produce  json
// @Param   ZUMO-API-VERSION header string true "Protocol version (2.0.0 or 3.0.0)"
// @Param   table_name path string true "The name of the table"
// @Param   record_id path string true "The id of the record"
// @Param   If-Match header string false "Expected version as an entity tag"
// @Success 204 "Deleted"
// @Failure 404 {object} common.Body "Record does not exist"
// @Failure 412 {object} common.Body "Version mismatch; body carries the current record when visible"
// @Router /tables/{table_name}/{record_id} [delete]
func (h *RoutesHandler) delete(c *gin.Context) {
	if _, ok := h.resolveDialect(c); !ok {
		return
	}
	tableName := domainTable.Name(c.Param(TableNamePathKey))
	id := record.Id(c.Param(recordIdPathKey))
	if apiErr := h.Controller.Delete(c.Request.Context(), tableName, id, expectedVersionHeader(c)); apiErr != nil {
		h.writeApiErr(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}

// resolveDialect rejects the request before any further work when the
// protocol version header is missing or unknown.
func (h *RoutesHandler) resolveDialect(c *gin.Context) (protocol.Dialect, bool) {
	dialect, err := protocol.DialectFromHeader(c.GetHeader(protocol.HeaderApiVersion))
	if err != nil {
		handleBadRequest(c, err)
		return 0, false
	}
	return dialect, true
}

// renderList shapes one page of records the way the dialect expects. The
// first generation answers a bare array unless an inline count was asked
// for; the second always answers the items envelope, with a next link when
// the window filled up.
func (h *RoutesHandler) renderList(c *gin.Context, dialect protocol.Dialect, params *protocol.ListParams, result *tables.ListResult) {
	projected := len(result.Selected) > 0
	switch dialect {
	case protocol.DialectV2:
		switch {
		case result.Count != nil && projected:
			c.JSON(http.StatusOK, gin.H{"results": projectItems(result), "count": *result.Count})
		case result.Count != nil:
			c.JSON(http.StatusOK, tables.V2ListResult{Results: result.Items, Count: *result.Count})
		case projected:
			c.JSON(http.StatusOK, projectItems(result))
		default:
			c.JSON(http.StatusOK, result.Items)
		}
	default:
		if result.HasMore {
			link := nextPageLink(c, params.Skip, len(result.Items))
			result.NextLink = &link
		}
		if projected {
			envelope := gin.H{"items": projectItems(result)}
			if result.Count != nil {
				envelope["count"] = *result.Count
			}
			if result.NextLink != nil {
				envelope["nextLink"] = *result.NextLink
			}
			c.JSON(http.StatusOK, envelope)
		} else {
			c.JSON(http.StatusOK, result)
		}
	}
}

// writeApiErr adds the headers that belong with certain error answers: the
// challenge on 401s, and the current version as an entity tag whenever the
// authoritative record rides along.
func (h *RoutesHandler) writeApiErr(c *gin.Context, apiErr *common.ApiError) {
	if apiErr.StatusCode == http.StatusUnauthorized {
		c.Header(headerChallenge, h.Challenge)
	}
	if current, ok := apiErr.Body.Current.(tables.Record); ok {
		c.Header(headerETag, quoteETag(current.Metadata.Version))
	}
	routing.HandleApiErr(c, apiErr)
}

func handleBadRequest(c *gin.Context, err error) {
	routing.HandleApiErr(c, &common.ApiError{
		StatusCode: http.StatusBadRequest,
		Body: common.Body{
			Message: err.Error(),
		},
	})
}

func projectItems(result *tables.ListResult) []map[string]interface{} {
	projected := make([]map[string]interface{}, 0, len(result.Items))
	for _, item := range result.Items {
		projected = append(projected, item.Projected(result.Selected))
	}
	return projected
}

// expectedVersionHeader reads If-Match into an expected version. An absent
// header or the match-anything asterisk both mean unconditional.
func expectedVersionHeader(c *gin.Context) *string {
	raw := strings.TrimSpace(c.GetHeader(headerIfMatch))
	if raw == "" || raw == "*" {
		return nil
	}
	version := unquoteETag(raw)
	return &version
}

func quoteETag(version string) string {
	return `"` + version + `"`
}

func unquoteETag(raw string) string {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "W/"))
	return strings.Trim(raw, `"`)
}

// etagMatches covers the comma-separated list form and the match-anything
// asterisk.
func etagMatches(headerValue string, version string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" {
		return false
	}
	for _, candidate := range strings.Split(headerValue, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || unquoteETag(candidate) == version {
			return true
		}
	}
	return false
}

// nextPageLink rebuilds the request URL with $skip advanced past the
// current window.
func nextPageLink(c *gin.Context, skip uint, pageLen int) string {
	u := *c.Request.URL
	q := u.Query()
	q.Set("$skip", strconv.Itoa(int(skip)+pageLen))
	u.RawQuery = q.Encode()
	return u.RequestURI()
}
