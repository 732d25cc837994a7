package routing

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taules/taules/internal/api/models/common"
	"github.com/taules/taules/internal/infra/server/auth"
)

var notFoundErr = common.ApiError{
	StatusCode: http.StatusNotFound,
	Body: common.Body{
		Message: "No such route.",
	},
}

var noMethodErr = common.ApiError{
	StatusCode: http.StatusMethodNotAllowed,
	Body: common.Body{
		Message: "No such route.",
	},
}

// NewTopLevelRoutesGroup returns the group every API route hangs off of,
// with the caller identity resolved before any handler runs.
func NewTopLevelRoutesGroup(authenticator *auth.Authenticator, ginEngine *gin.Engine) *gin.RouterGroup {
	return ginEngine.Group("", authenticator.Middleware())
}

func NoRoute(c *gin.Context) {
	c.JSON(notFoundErr.StatusCode, notFoundErr.Body)
}

func NoMethod(c *gin.Context) {
	c.JSON(noMethodErr.StatusCode, noMethodErr.Body)
}

func HandleApiErr(c *gin.Context, apiError *common.ApiError) {
	c.JSON(apiError.StatusCode, apiError.Body)
}

func HandleJsonSerdesErr(c *gin.Context, err error) {
	errResp := common.ApiError{
		StatusCode: http.StatusBadRequest,
		Body: common.Body{
			Message: err.Error(),
		},
	}
	HandleApiErr(c, &errResp)
}

// NewHealthCheckHandler answers 200 when the storage backend is reachable
// and 503 when it is not.
func NewHealthCheckHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := check(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, common.Body{Message: err.Error()})
		} else {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		}
	}
}
