package ws

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/podshell/internal/events"
	"github.com/GriffinCanCode/podshell/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/podshell/internal/logging"
	"github.com/GriffinCanCode/podshell/internal/shared/id"
	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// frame is one queued outbound message
type frame struct {
	kind string
	v    interface{}
}

// client is one WebSocket consumer. Outbound frames go through an unbounded
// FIFO written by a single goroutine, so the bus drainers never block on the
// network. A client whose backlog exceeds maxPending is disconnected.
type client struct {
	id         id.ConnectionID
	conn       *websocket.Conn
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	maxPending int

	mu      sync.Mutex
	queue   []frame
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	closeMu sync.Once
}

func newClient(conn *websocket.Conn, logger *logging.Logger, metrics *monitoring.Metrics, maxPending int) *client {
	cid := id.NewConnectionID()
	return &client{
		id:         cid,
		conn:       conn,
		logger:     logger.WithFields(zap.String("connection_id", cid.String())),
		metrics:    metrics,
		maxPending: maxPending,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Deliver queues a bus event for this connection
func (c *client) Deliver(e events.Event) {
	c.enqueue(frame{kind: string(e.Kind), v: e})
}

func (c *client) enqueue(f frame) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.maxPending > 0 && len(c.queue) >= c.maxPending {
		c.mu.Unlock()
		c.logger.Warn("slow consumer, dropping connection", zap.Int("pending", c.maxPending))
		c.close()
		return
	}
	c.queue = append(c.queue, f)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// take removes every queued frame
func (c *client) take() []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.queue
	c.queue = nil
	return out
}

// writePump owns all writes to the socket
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
			for _, f := range c.take() {
				if err := c.write(f); err != nil {
					c.logger.Debug("write failed", zap.Error(err))
					c.close()
					return
				}
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *client) write(f frame) error {
	data, err := sonic.Marshal(f.v)
	if err != nil {
		c.logger.Error("failed to encode frame", zap.String("type", f.kind), zap.Error(err))
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	c.metrics.RecordWSMessage("out", f.kind)
	return nil
}

// close stops the writer and the socket. Safe to call more than once.
func (c *client) close() {
	c.closeMu.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.queue = nil
		c.mu.Unlock()
		close(c.done)
		_ = c.conn.Close()
	})
}
