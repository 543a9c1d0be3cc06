package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/podshell/internal/app"
	"github.com/GriffinCanCode/podshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/podshell/internal/logging"
	"github.com/GriffinCanCode/podshell/internal/session"
	"github.com/GriffinCanCode/podshell/internal/shared/id"
	"github.com/GriffinCanCode/podshell/internal/types"
	"github.com/GriffinCanCode/podshell/internal/utils"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config tunes per-connection limits
type Config struct {
	// AllowedOrigins is matched against the Origin header; "*" allows all
	AllowedOrigins []string
	// InputPerSecond and InputBurst bound input frames per connection
	InputPerSecond int
	InputBurst     int
	// MaxPending is the outbound backlog at which a client is dropped
	MaxPending int
}

// DefaultConfig returns permissive limits suitable for local use
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
		InputPerSecond: 1000,
		InputBurst:     2000,
		MaxPending:     10000,
	}
}

// Handler manages WebSocket connections
type Handler struct {
	app      *app.Manager
	metrics  *monitoring.Metrics
	logger   *logging.Logger
	cfg      Config
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler
func NewHandler(manager *app.Manager, metrics *monitoring.Metrics, logger *logging.Logger, cfg Config) *Handler {
	h := &Handler{
		app:     manager,
		metrics: metrics,
		logger:  logger.Component("ws"),
		cfg:     cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// HandleConnection upgrades the request and serves the connection until the
// client goes away. Sessions outlive the connection that created them.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := newClient(conn, h.logger, h.metrics, h.cfg.MaxPending)
	h.metrics.IncWSConnections()
	cl.logger.Info("client connected", zap.String("remote", c.ClientIP()))

	for _, e := range h.app.Greeting() {
		cl.Deliver(e)
	}
	unsubscribe := h.app.Subscribe(cl)
	go cl.writePump()

	ctx, cancel := context.WithCancel(context.Background())
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		unsubscribe()
		cl.close()
		inflight.Wait()
		h.metrics.DecWSConnections()
		fields := []zap.Field{}
		if connected, err := id.Timestamp(cl.id.String()); err == nil {
			fields = append(fields, zap.Duration("connected_for", time.Since(connected)))
		}
		cl.logger.Info("client disconnected", fields...)
	}()

	h.readPump(ctx, cl, &inflight)
}

func (h *Handler) readPump(ctx context.Context, cl *client, inflight *sync.WaitGroup) {
	conn := cl.conn
	conn.SetReadLimit(utils.MaxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if h.cfg.InputPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.cfg.InputPerSecond), max(h.cfg.InputBurst, 1))
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var cmd Command
		if err := sonic.Unmarshal(data, &cmd); err != nil {
			cl.enqueue(frame{kind: FrameResult, v: failure("", types.InvalidRequest("malformed frame"))})
			continue
		}
		h.metrics.RecordWSMessage("in", cmd.label())

		if cmd.isRequest() {
			if cmd.RequestID == "" {
				cmd.RequestID = id.NewRequestID().String()
			}
			// Requests may block on the cluster; input keeps flowing meanwhile.
			inflight.Add(1)
			go func(cmd Command) {
				defer inflight.Done()
				res := h.handleRequest(ctx, cmd)
				cl.enqueue(frame{kind: FrameResult, v: res})
			}(cmd)
			continue
		}

		switch cmd.Type {
		case CmdPing:
			cl.enqueue(frame{kind: FramePong, v: Pong{
				Type:      FramePong,
				RequestID: cmd.RequestID,
				Timestamp: time.Now().UnixMilli(),
			}})
		case CmdInput:
			if err := limiter.WaitN(ctx, 1); err != nil {
				return
			}
			h.handleInput(cl, cmd)
		case CmdResize:
			if sid, ok := h.sessionID(cl, cmd); ok {
				h.app.Sessions().Resize(sid, cmd.geometry())
			}
		case CmdCloseSession:
			if sid, ok := h.sessionID(cl, cmd); ok {
				h.app.Sessions().Close(sid)
			}
		default:
			cl.enqueue(frame{kind: FrameResult, v: failure(cmd.RequestID,
				types.InvalidRequest("unknown message type: "+cmd.Type))})
		}
	}
}

func (h *Handler) handleRequest(ctx context.Context, cmd Command) Result {
	switch cmd.Type {
	case CmdListContexts:
		return success(cmd.RequestID, h.app.Contexts())

	case CmdSwitchContext:
		if err := utils.ValidateContextName(cmd.Context); err != nil {
			return failure(cmd.RequestID, err)
		}
		if err := h.app.SwitchContext(cmd.Context); err != nil {
			return failure(cmd.RequestID, err)
		}
		return success(cmd.RequestID, h.app.Contexts())

	case CmdListPods:
		if cmd.Namespace != "" {
			if err := utils.ValidateNamespace(cmd.Namespace); err != nil {
				return failure(cmd.RequestID, err)
			}
		}
		pods, err := h.app.ListPods(ctx, cmd.Namespace)
		if err != nil {
			return failure(cmd.RequestID, err)
		}
		return success(cmd.RequestID, gin.H{"pods": pods})

	case CmdCreateSession:
		info, err := h.app.Sessions().Create(ctx, session.CreateRequest{
			Pod:       cmd.Pod,
			Namespace: cmd.Namespace,
			Shell:     cmd.Shell,
			Geometry:  cmd.geometry(),
		})
		if err != nil {
			return failure(cmd.RequestID, err)
		}
		return success(cmd.RequestID, info)
	}
	return failure(cmd.RequestID, types.InvalidRequest("unknown message type: "+cmd.Type))
}

func (h *Handler) handleInput(cl *client, cmd Command) {
	sid, ok := h.sessionID(cl, cmd)
	if !ok {
		return
	}
	if err := utils.ValidateInput([]byte(cmd.Data)); err != nil {
		cl.enqueue(frame{kind: FrameResult, v: failure(cmd.RequestID, err)})
		return
	}
	h.app.Sessions().Write(sid, []byte(cmd.Data))
}

// sessionID parses the command's session_id, reporting malformed ones
func (h *Handler) sessionID(cl *client, cmd Command) (id.SessionID, bool) {
	sid, err := id.ParseSessionID(cmd.SessionID)
	if err != nil {
		cl.enqueue(frame{kind: FrameResult, v: failure(cmd.RequestID, types.InvalidRequest(err.Error()))})
		return "", false
	}
	return sid, true
}
