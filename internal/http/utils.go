package http

import (
	"github.com/GriffinCanCode/podshell/internal/middleware"
	"github.com/GriffinCanCode/podshell/internal/shared/id"
	"github.com/GriffinCanCode/podshell/internal/types"
	"github.com/gin-gonic/gin"
)

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error     *types.Error `json:"error"`
	RequestID string       `json:"request_id,omitempty"`
}

// respondError writes err with the status its code maps to
func respondError(c *gin.Context, err error) {
	typed := types.AsError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(typed.HTTPStatus(), errorBody{
		Error:     typed,
		RequestID: middleware.GetRequestID(c),
	})
}

// sessionParam reads the :namespace/:pod route parameters
func sessionParam(c *gin.Context) (id.SessionID, bool) {
	sid, err := id.ParseSessionID(c.Param("namespace") + "/" + c.Param("pod"))
	if err != nil {
		respondError(c, types.InvalidRequest(err.Error()))
		return "", false
	}
	return sid, true
}
