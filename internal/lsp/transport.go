package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/folioedit/folio/internal/log"
)

// Transport speaks JSON-RPC 2.0 over a byte stream using the LSP base
// protocol's Content-Length framing. One instance serves one server
// process.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer
	logger *log.Logger

	mu      sync.Mutex
	nextID  atomic.Int64
	pending map[int64]chan *Response

	handlersMu sync.RWMutex
	handlers   map[string]NotificationHandler

	closed atomic.Bool
	done   chan struct{}
}

// NotificationHandler receives server-initiated notifications.
type NotificationHandler func(method string, params json.RawMessage)

// Request is an outgoing JSON-RPC request or notification.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response is an incoming JSON-RPC reply to one of our requests.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// serverReply answers a server-to-client request. The ID stays raw
// because servers may use string ids.
type serverReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

// NewTransport wraps a reader/writer pair, typically the server's
// stdout and stdin pipes. closer, if non-nil, is closed with the
// transport.
func NewTransport(r io.Reader, w io.Writer, c io.Closer, logger *log.Logger) *Transport {
	if logger == nil {
		logger = log.Nop()
	}
	return &Transport{
		reader:   bufio.NewReaderSize(r, 64*1024),
		writer:   w,
		closer:   c,
		logger:   logger,
		pending:  make(map[int64]chan *Response),
		handlers: make(map[string]NotificationHandler),
		done:     make(chan struct{}),
	}
}

// Start launches the read loop. Call once.
func (t *Transport) Start(ctx context.Context) {
	go t.readLoop(ctx)
}

// Close shuts the transport down and abandons pending calls. Waiters
// observe ErrShutdown through the done channel.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	close(t.done)

	t.mu.Lock()
	t.pending = make(map[int64]chan *Response)
	t.mu.Unlock()

	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// IsClosed reports whether Close has run.
func (t *Transport) IsClosed() bool {
	return t.closed.Load()
}

// Call sends a request and blocks for its response or ctx expiry.
func (t *Transport) Call(ctx context.Context, method string, params, result any) error {
	if t.closed.Load() {
		return ErrShutdown
	}

	id := t.nextID.Add(1)
	ch := make(chan *Response, 1)

	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	req := &Request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := t.send(req); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrShutdown
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	}
}

// Notify sends a notification; no response is expected.
func (t *Transport) Notify(method string, params any) error {
	if t.closed.Load() {
		return ErrShutdown
	}
	return t.send(&Request{JSONRPC: "2.0", Method: method, Params: params})
}

// OnNotification registers the handler for a server notification
// method. "*" catches methods without a dedicated handler.
func (t *Transport) OnNotification(method string, handler NotificationHandler) {
	t.handlersMu.Lock()
	t.handlers[method] = handler
	t.handlersMu.Unlock()
}

func (t *Transport) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := io.WriteString(t.writer, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

func (t *Transport) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
		}

		msg, err := t.readMessage()
		if err != nil {
			if t.closed.Load() || err == io.EOF || err == io.ErrClosedPipe {
				return
			}
			t.logger.Debug("transport read error: %v", err)
			continue
		}

		t.dispatch(msg)
	}
}

// readMessage reads one framed message: headers, blank line, body.
func (t *Transport) readMessage() (json.RawMessage, error) {
	var contentLength int
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), "content-length:") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				if length, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
					contentLength = length
				}
			}
		}
		// Content-Type and anything else is ignored.
	}

	if contentLength <= 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(t.reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// dispatch classifies a message as a response to us, a server
// request, or a notification.
func (t *Transport) dispatch(data json.RawMessage) {
	var probe struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		t.logger.Debug("transport: undecodable message: %v", err)
		return
	}

	hasID := len(probe.ID) > 0 && string(probe.ID) != "null"

	switch {
	case hasID && probe.Method == "":
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return
		}
		t.handleResponse(&resp)
	case hasID:
		t.handleServerRequest(probe.ID, probe.Method, data)
	case probe.Method != "":
		var notif struct {
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(data, &notif); err != nil {
			return
		}
		t.handleNotification(probe.Method, notif.Params)
	}
}

func (t *Transport) handleResponse(resp *Response) {
	if t.closed.Load() {
		return
	}

	t.mu.Lock()
	ch, ok := t.pending[resp.ID]
	if ok {
		delete(t.pending, resp.ID)
	}
	t.mu.Unlock()

	if ok {
		select {
		case ch <- resp:
		default:
		}
	}
}

// handleServerRequest answers requests the server sends to the
// client. The stock replies keep servers that block on them (gopls's
// workspace/configuration, progress token creation) from stalling.
func (t *Transport) handleServerRequest(id json.RawMessage, method string, data json.RawMessage) {
	reply := serverReply{JSONRPC: "2.0", ID: id}

	switch method {
	case "workspace/configuration":
		var params struct {
			Params struct {
				Items []json.RawMessage `json:"items"`
			} `json:"params"`
		}
		_ = json.Unmarshal(data, &params)
		reply.Result = make([]any, len(params.Params.Items))
	case "window/workDoneProgress/create", "client/registerCapability", "client/unregisterCapability":
		reply.Result = nil
	default:
		reply.Error = &RPCError{Code: CodeMethodNotFound, Message: "unsupported request: " + method}
	}

	if err := t.send(&reply); err != nil {
		t.logger.Debug("transport: reply to %s failed: %v", method, err)
	}
}

func (t *Transport) handleNotification(method string, params json.RawMessage) {
	t.handlersMu.RLock()
	handler, ok := t.handlers[method]
	if !ok {
		handler, ok = t.handlers["*"]
	}
	t.handlersMu.RUnlock()

	if ok && handler != nil {
		// Handlers run off the read loop so a slow one cannot stall
		// response delivery.
		go handler(method, params)
	}
}
