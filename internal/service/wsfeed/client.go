package wsfeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SignalFlow/internal/domain/models"
	"SignalFlow/internal/engine"
	"SignalFlow/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client consumes snapshot envelopes pushed over a WebSocket feed and exposes
// them as a channel for the stream engine. The connection reconnects with a
// fixed delay until the context is cancelled.
type Client struct {
	url            string
	tables         []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	out  chan models.Snapshot
	conn *websocket.Conn
	mu   sync.Mutex
	wg   sync.WaitGroup
}

// Option configures Client.
type Option func(*Client)

// WithReconnectDelay sets the delay between reconnect attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

// WithPingInterval sets the keepalive ping interval.
func WithPingInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pingInterval = d
		}
	}
}

// WithBuffer sets the outbound snapshot buffer size.
func WithBuffer(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.out = make(chan models.Snapshot, n)
		}
	}
}

// New creates a feed client for the given URL. tables lists the source tables
// to subscribe to after each connect.
func New(url string, tables []string, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		url:            url,
		tables:         tables,
		reconnectDelay: 5 * time.Second,
		pingInterval:   30 * time.Second,
		log:            log,
		out:            make(chan models.Snapshot, 1024),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshots returns the outbound snapshot channel. It is closed when the run
// loop exits.
func (c *Client) Snapshots() <-chan models.Snapshot {
	return c.out
}

// Start launches the connect/read loop. It returns immediately.
func (c *Client) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.run(ctx)
}

// Wait blocks until the run loop has exited.
func (c *Client) Wait() {
	c.wg.Wait()
}

func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()
	defer close(c.out)

	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.connect(ctx); err != nil {
			c.log.Warn("feed connect failed",
				logger.String("url", c.url),
				logger.Error(err))
			if !sleepCtx(ctx, c.reconnectDelay) {
				return
			}
			continue
		}

		err := c.readLoop(ctx)
		c.closeConn()
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("feed disconnected, reconnecting",
			logger.Duration("delay", c.reconnectDelay),
			logger.Error(err))
		if !sleepCtx(ctx, c.reconnectDelay) {
			return
		}
	}
}

func (c *Client) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.subscribe(conn); err != nil {
		c.closeConn()
		return err
	}
	c.log.Info("feed connected", logger.String("url", c.url))
	return nil
}

func (c *Client) subscribe(conn *websocket.Conn) error {
	msg := map[string]interface{}{"type": "subscribe", "tables": c.tables}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("feed subscribe: %w", err)
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context) error {
	conn := c.current()
	if conn == nil {
		return fmt.Errorf("feed conn nil")
	}

	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go c.pingLoop(pingCtx, conn)

	// ReadMessage has no context form; closing this connection is the only
	// way to unblock it when the context ends.
	go func() {
		<-pingCtx.Done()
		_ = conn.Close()
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed read: %w", err)
		}
		snap, err := engine.ParseSnapshot(b)
		if err != nil {
			// ignore non-snapshot frames
			continue
		}
		select {
		case c.out <- snap:
		default:
			c.log.Warn("feed buffer full, dropping snapshot",
				logger.String("table", snap.Table),
				logger.String("symbol", snap.Symbol))
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.WriteMessage(websocket.PingMessage, nil)
		}
	}
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
