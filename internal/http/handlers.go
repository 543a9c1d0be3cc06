package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/podshell/internal/app"
	"github.com/GriffinCanCode/podshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/podshell/internal/session"
	"github.com/GriffinCanCode/podshell/internal/types"
	"github.com/GriffinCanCode/podshell/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
)

// Version is reported by the root endpoint
const Version = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	app     *app.Manager
	metrics *monitoring.Metrics
}

// NewHandlers creates a new handler set
func NewHandlers(manager *app.Manager, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		app:     manager,
		metrics: metrics,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "podshell",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	view := h.app.Contexts()
	kube := gin.H{
		"loaded":   h.app.LoadError() == nil,
		"contexts": len(view.Contexts),
		"current":  view.Current,
	}
	if err := h.app.LoadError(); err != nil {
		kube["error"] = err.Message()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": h.app.Sessions().Count(),
		"kube":     kube,
		"metrics":  h.metrics.Snapshot(),
	})
}

// ListContexts lists kubeconfig contexts and the active one
func (h *Handlers) ListContexts(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Contexts())
}

// SwitchContextRequest selects a context
type SwitchContextRequest struct {
	Name string `json:"name" binding:"required"`
}

// SwitchContext makes a context active
func (h *Handlers) SwitchContext(c *gin.Context) {
	var req SwitchContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, types.InvalidRequest(err.Error()))
		return
	}
	if err := utils.ValidateContextName(req.Name); err != nil {
		respondError(c, err)
		return
	}

	if err := h.app.SwitchContext(req.Name); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.app.Contexts())
}

// ListPods lists pods in ?namespace= (default namespace when absent)
func (h *Handlers) ListPods(c *gin.Context) {
	namespace := c.Query("namespace")
	if namespace != "" {
		if err := utils.ValidateNamespace(namespace); err != nil {
			respondError(c, err)
			return
		}
	}

	pods, err := h.app.ListPods(c.Request.Context(), namespace)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pods": pods,
	})
}

// ListSessions lists live sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.app.Sessions().List()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// CreateSession opens a shell in a pod
func (h *Handlers) CreateSession(c *gin.Context) {
	var req session.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, types.InvalidRequest(err.Error()))
		return
	}

	info, err := h.app.Sessions().Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// GetSession returns one live session
func (h *Handlers) GetSession(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}

	info, found := h.app.Sessions().Get(sid)
	if !found {
		respondError(c, types.NotFound(sid.String()))
		return
	}
	c.JSON(http.StatusOK, info)
}

// CloseSession kills a session. The exit event on the stream acknowledges
// it. Closing an absent session succeeds with closing=false.
func (h *Handlers) CloseSession(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}

	closing := h.app.Sessions().Close(sid)
	c.JSON(http.StatusAccepted, gin.H{
		"session_id": sid,
		"closing":    closing,
	})
}

// Scrollback returns the retained output of a session, gzip-encoded when
// the client accepts it
func (h *Handlers) Scrollback(c *gin.Context) {
	sid, ok := sessionParam(c)
	if !ok {
		return
	}

	data, found := h.app.Sessions().Scrollback(sid)
	if !found {
		respondError(c, types.NotFound(sid.String()))
		return
	}

	c.Header("Vary", "Accept-Encoding")
	if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
		c.Data(http.StatusOK, "application/octet-stream", data)
		return
	}

	c.Header("Content-Encoding", "gzip")
	c.Header("X-Uncompressed-Length", strconv.Itoa(len(data)))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)

	zw := gzip.NewWriter(c.Writer)
	if _, err := zw.Write(data); err != nil {
		_ = c.Error(err)
		return
	}
	if err := zw.Close(); err != nil {
		_ = c.Error(err)
	}
}
