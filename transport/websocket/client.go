// Package websocket implements transport.Transport over a ledger node's
// WebSocket RPC API. One connection serves a client; requests carry generated
// IDs and a reader loop matches replies to pending calls, so read-only queries
// may run fully concurrently over the single socket.
package websocket

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"nhooyr.io/websocket"

	"github.com/ledgerline/go-credentials-sdk/transport"
)

const defaultTimeout = 30 * time.Second

// Client is a WebSocket RPC connection to a ledger node.
type Client struct {
	endpoint string
	timeout  time.Duration
	conn     *websocket.Conn

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan *envelope

	done    chan struct{}
	doneErr error
	once    sync.Once
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	timeout     time.Duration
	httpClient  *http.Client
	dialRetries uint64
}

// WithTimeout sets the per-request timeout applied when the caller's context
// carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithHTTPClient overrides the HTTP client used for the WebSocket handshake.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithDialRetries sets how many times the initial dial is retried with
// exponential backoff. Retrying applies to connection establishment only,
// never to transaction submission.
func WithDialRetries(n uint64) Option {
	return func(o *options) { o.dialRetries = n }
}

// Dial connects to the node's WebSocket endpoint and starts the reader loop.
func Dial(ctx context.Context, endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	o := &options{
		timeout: defaultTimeout,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		dialRetries: 3,
	}
	for _, opt := range opts {
		opt(o)
	}

	var conn *websocket.Conn
	dial := func() error {
		var err error
		conn, _, err = websocket.Dial(ctx, endpoint, &websocket.DialOptions{
			HTTPClient: o.httpClient,
		})
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), o.dialRetries), ctx)
	if err := backoff.Retry(dial, policy); err != nil {
		return nil, &transport.TransportError{Op: "dial", Err: err}
	}
	conn.SetReadLimit(1 << 22)

	c := &Client{
		endpoint: endpoint,
		timeout:  o.timeout,
		conn:     conn,
		pending:  make(map[string]chan *envelope),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Close shuts down the connection. In-flight calls fail with a TransportError.
func (c *Client) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "client shutdown")
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		return &transport.TransportError{Op: "close", Err: err}
	}
	return nil
}

// envelope is the node's reply framing.
type envelope struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result"`
	ErrorCode    string          `json:"error"`
	ErrorMessage string          `json:"error_message"`
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			c.shutdown(err)
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("websocket: dropping undecodable frame: %v", err)
			continue
		}
		if env.ID == "" {
			// Unsolicited stream message; this client subscribes to nothing.
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[env.ID]
		delete(c.pending, env.ID)
		c.pendingMu.Unlock()
		if ok {
			ch <- &env
		}
	}
}

func (c *Client) shutdown(err error) {
	c.once.Do(func() {
		c.doneErr = err
		close(c.done)
	})
}

// call performs one request/response exchange.
func (c *Client) call(ctx context.Context, command string, params map[string]any) (json.RawMessage, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	id := uuid.NewString()
	req := map[string]any{"id": id, "command": command}
	for k, v := range params {
		req[k] = v
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, &transport.TransportError{Op: command, Err: err}
	}

	ch := make(chan *envelope, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.writeMu.Lock()
	err = c.conn.Write(ctx, websocket.MessageText, data)
	c.writeMu.Unlock()
	if err != nil {
		return nil, &transport.TransportError{Op: command, Err: err}
	}

	select {
	case env := <-ch:
		if env.Status != "success" {
			return nil, &transport.TransportError{
				Op:  command,
				Err: fmt.Errorf("node returned %s: %s", env.ErrorCode, env.ErrorMessage),
			}
		}
		return env.Result, nil
	case <-ctx.Done():
		return nil, &transport.TransportError{Op: command, Err: ctx.Err()}
	case <-c.done:
		return nil, &transport.TransportError{Op: command, Err: c.doneErr}
	}
}

func (c *Client) resultMap(raw json.RawMessage, op string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %s result is not an object: %v", transport.ErrResponseMalformed, op, err)
	}
	return m, nil
}

// submitReply is the node's submit result shape.
type submitReply struct {
	EngineResult string         `mapstructure:"engine_result"`
	TxJSON       map[string]any `mapstructure:"tx_json"`
	Validated    bool           `mapstructure:"validated"`
	Meta         map[string]any `mapstructure:"meta"`
}

// SubmitSignedTransaction implements transport.Transport.
func (c *Client) SubmitSignedTransaction(ctx context.Context, blob []byte) (*transport.TxResult, error) {
	raw, err := c.call(ctx, "submit", map[string]any{
		"tx_blob": hex.EncodeToString(blob),
	})
	if err != nil {
		return nil, err
	}
	m, err := c.resultMap(raw, "submit")
	if err != nil {
		return nil, err
	}

	var reply submitReply
	if err := mapstructure.Decode(m, &reply); err != nil {
		return nil, fmt.Errorf("%w: submit reply: %v", transport.ErrResponseMalformed, err)
	}
	if reply.EngineResult == "" {
		return nil, fmt.Errorf("%w: submit reply lacks engine_result", transport.ErrResponseMalformed)
	}

	res := &transport.TxResult{
		ResultCode: reply.EngineResult,
		Validated:  reply.Validated,
	}
	if h, ok := reply.TxJSON["hash"].(string); ok {
		res.Hash = h
	}
	if reply.Meta != nil {
		var meta transport.TxMeta
		if err := mapstructure.Decode(reply.Meta, &meta); err != nil {
			return nil, fmt.Errorf("%w: transaction metadata: %v", transport.ErrResponseMalformed, err)
		}
		res.Meta = &meta
	}
	return res, nil
}

// Query implements transport.Transport.
func (c *Client) Query(ctx context.Context, req *transport.QueryRequest) (*transport.QueryResult, error) {
	params := map[string]any{"account": req.Account}
	for k, v := range req.Filters {
		params[k] = v
	}
	raw, err := c.call(ctx, req.Command, params)
	if err != nil {
		return nil, err
	}
	m, err := c.resultMap(raw, req.Command)
	if err != nil {
		return nil, err
	}

	var reply struct {
		AccountObjects []map[string]any `mapstructure:"account_objects"`
	}
	if err := mapstructure.Decode(m, &reply); err != nil {
		return nil, fmt.Errorf("%w: %s reply: %v", transport.ErrResponseMalformed, req.Command, err)
	}
	return &transport.QueryResult{Entries: reply.AccountObjects}, nil
}

// AccountFlags implements transport.Transport.
func (c *Client) AccountFlags(ctx context.Context, account string) (uint32, error) {
	raw, err := c.call(ctx, transport.CommandAccountInfo, map[string]any{"account": account})
	if err != nil {
		return 0, err
	}
	m, err := c.resultMap(raw, transport.CommandAccountInfo)
	if err != nil {
		return 0, err
	}

	var reply struct {
		AccountData struct {
			Flags uint32 `mapstructure:"Flags"`
		} `mapstructure:"account_data"`
	}
	if err := mapstructure.Decode(m, &reply); err != nil {
		return 0, fmt.Errorf("%w: account_info reply: %v", transport.ErrResponseMalformed, err)
	}
	if _, ok := m["account_data"]; !ok {
		return 0, fmt.Errorf("%w: account_info reply lacks account_data", transport.ErrResponseMalformed)
	}
	return reply.AccountData.Flags, nil
}

var _ transport.Transport = (*Client)(nil)
