// Package command talks to the backend that persists widgets and renders
// page fragments. Commands travel as JSON messages over a WebSocket; the
// source of a remote widget is written back to its catalog over HTTP.
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/widgets/internal/errors"
	"github.com/vango-dev/widgets/internal/instantiate"
	"github.com/vango-dev/widgets/internal/metrics"
	"github.com/vango-dev/widgets/internal/registry"
)

// Commands understood by the backend.
const (
	CommandAppendWidget = "APPEND_WIDGET"
	CommandUpdate       = "UPDATE"
	CommandCreate       = "CREATE"
)

// Message is a command sent to the backend.
type Message struct {
	Command   string         `json:"command"`
	ID        string         `json:"id,omitempty"`
	PageID    string         `json:"pageId,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Callback  string         `json:"callback,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Reply is the backend's answer to a Message, matched by Callback.
type Reply struct {
	Command  string            `json:"command"`
	Callback string            `json:"callback"`
	Code     int               `json:"code"`
	Message  string            `json:"message,omitempty"`
	Result   []json.RawMessage `json:"result,omitempty"`
}

// OK reports whether the backend accepted the command. Replies without a
// code count as accepted.
func (r Reply) OK() bool {
	return r.Code == 0 || (r.Code >= 200 && r.Code < 300)
}

// Options configures a Client.
type Options struct {
	// URL is the ws:// or wss:// endpoint.
	URL string

	// SessionID identifies this client to the backend. A random one is
	// used when empty.
	SessionID string

	// Timeout bounds the wait for a reply and each HTTP request.
	// Defaults to 30s.
	Timeout time.Duration

	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Client is the command executor. It is safe for concurrent use.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	timeout   time.Duration
	http      *http.Client
	logger    *slog.Logger
	metrics   *metrics.Metrics

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Reply
	err     error
	done    chan struct{}
}

var (
	_ instantiate.Executor = (*Client)(nil)
	_ registry.Executor    = (*Client)(nil)
)

// Dial connects to the backend.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("E121").WithDetail("executor.url is not set")
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	conn, _, err := dialer.DialContext(ctx, opts.URL, nil)
	if err != nil {
		return nil, errors.New("E240").
			WithDetail("connect to " + opts.URL + ": " + err.Error()).
			WithSuggestion("Check executor.url in widgets.json and that the backend is running").
			Wrap(err)
	}

	c := &Client{
		conn:      conn,
		sessionID: opts.SessionID,
		timeout:   timeout,
		http:      opts.HTTPClient,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		pending:   map[string]chan Reply{},
		done:      make(chan struct{}),
	}
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: timeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	go c.readLoop()
	return c, nil
}

// SessionID returns the session the client identifies as.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Close closes the connection. Commands still waiting for a reply fail.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		var reply Reply
		if err := c.conn.ReadJSON(&reply); err != nil {
			c.mu.Lock()
			c.err = err
			for cb, ch := range c.pending {
				close(ch)
				delete(c.pending, cb)
			}
			c.mu.Unlock()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Debug("executor connection closed", "error", err)
			}
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[reply.Callback]
		delete(c.pending, reply.Callback)
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("unsolicited executor message", "command", reply.Command)
			continue
		}
		ch <- reply
	}
}

// Send sends msg and waits for the matching reply. A reply with an error
// code fails with E240.
func (c *Client) Send(ctx context.Context, msg Message) (Reply, error) {
	msg.SessionID = c.sessionID
	msg.Callback = uuid.NewString()

	ch := make(chan Reply, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return Reply{}, c.unavailable(msg.Command, err)
	}
	c.pending[msg.Callback] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(msg.Callback)
		c.metrics.RecordCommand(msg.Command, err)
		return Reply{}, c.unavailable(msg.Command, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	select {
	case reply, ok := <-ch:
		if !ok {
			err := fmt.Errorf("connection closed before reply")
			c.metrics.RecordCommand(msg.Command, err)
			return Reply{}, c.unavailable(msg.Command, err)
		}
		if !reply.OK() {
			err := errors.New("E240").
				WithDetail(fmt.Sprintf("%s rejected with %d: %s", msg.Command, reply.Code, reply.Message))
			c.metrics.RecordCommand(msg.Command, err)
			return reply, err
		}
		c.metrics.RecordCommand(msg.Command, nil)
		return reply, nil

	case <-ctx.Done():
		c.forget(msg.Callback)
		c.metrics.RecordCommand(msg.Command, ctx.Err())
		return Reply{}, c.unavailable(msg.Command, ctx.Err())
	}
}

func (c *Client) forget(callback string) {
	c.mu.Lock()
	delete(c.pending, callback)
	c.mu.Unlock()
}

func (c *Client) unavailable(command string, err error) error {
	return errors.New("E240").WithDetail(command + ": " + err.Error()).Wrap(err)
}
