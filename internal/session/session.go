// Package session maintains the persistent RPC connection to the editor
// process. A Session is long-lived: dispatch cycles borrow it, issue one or
// more request/response round-trips, and return it unchanged. Callers must
// not run concurrent dispatch cycles on one Session; requests themselves may
// be issued from any goroutine.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"foldsync/internal/jsonrpc"
)

// ErrClosed is returned when the session connection has been closed
var ErrClosed = fmt.Errorf("session closed")

// Session owns a single WebSocket connection to the editor and correlates
// responses to in-flight requests by ID
type Session struct {
	url    string
	logger zerolog.Logger

	conn    *websocket.Conn
	connMu  sync.RWMutex
	writeMu sync.Mutex

	pending   map[int64]chan *jsonrpc.Response
	pendingMu sync.Mutex
	reqID     int64

	wg sync.WaitGroup
}

// Dial connects to the editor at the given WebSocket URL
func Dial(ctx context.Context, url string, logger zerolog.Logger) (*Session, error) {
	s := &Session{
		url:     url,
		logger:  logger.With().Str("component", "session").Logger(),
		pending: make(map[int64]chan *jsonrpc.Response),
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to editor: %w", err)
	}
	s.conn = conn

	s.logger.Info().Str("url", url).Msg("connected")
	s.wg.Add(1)
	go s.readLoop()
	return s, nil
}

// Connected returns true if the connection is established
func (s *Session) Connected() bool {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.conn != nil
}

// Close closes the connection and fails all in-flight requests
func (s *Session) Close() {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	s.pendingMu.Lock()
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
	s.pendingMu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("disconnected")
}

// readLoop reads responses off the connection and routes them to waiters
func (s *Session) readLoop() {
	defer s.wg.Done()
	for {
		s.connMu.RLock()
		conn := s.conn
		s.connMu.RUnlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			s.failPending()
			return
		}

		resp, err := jsonrpc.ParseResponse(data)
		if err != nil {
			s.logger.Warn().Err(err).Msg("unparseable response")
			continue
		}

		id, ok := responseID(resp)
		if !ok {
			s.logger.Warn().Msg("response without numeric id")
			continue
		}

		s.pendingMu.Lock()
		ch, ok := s.pending[id]
		if ok {
			delete(s.pending, id)
		}
		s.pendingMu.Unlock()

		if !ok {
			s.logger.Warn().Int64("id", id).Msg("response for unknown request")
			continue
		}
		ch <- resp
	}
}

// failPending closes every waiting channel after a read failure
func (s *Session) failPending() {
	s.pendingMu.Lock()
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
	s.pendingMu.Unlock()
}

// responseID extracts the numeric request ID from a response
func responseID(resp *jsonrpc.Response) (int64, bool) {
	switch v := resp.ID.Value().(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// Call issues one request and waits for its response. A remote error is
// returned as a *jsonrpc.Error; transport failures are wrapped. There is no
// internal timeout: a hung remote blocks until ctx is done.
func (s *Session) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	req, err := jsonrpc.NewRequest(method, params, jsonrpc.NewIDNull())
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.HasError() {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// CallAtomic submits the ordered sub-calls as one atomic multi-call round
// trip. A transport or envelope failure is returned as err; a remote
// sub-call failure is reported inside the result.
func (s *Session) CallAtomic(ctx context.Context, calls []jsonrpc.AtomicCall) (jsonrpc.AtomicResult, error) {
	var result jsonrpc.AtomicResult

	raw, err := s.Call(ctx, jsonrpc.MethodCallAtomic, calls)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("failed to parse atomic result: %w", err)
	}
	return result, nil
}

// Send transmits req and waits for the correlated response. The request is
// cloned before sending: the wire ID is always session-assigned, and the
// caller's copy is left untouched.
func (s *Session) Send(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()
	if conn == nil {
		return nil, ErrClosed
	}

	reqID := atomic.AddInt64(&s.reqID, 1)
	wsReq := req.Clone()
	wsReq.ID = jsonrpc.NewIDInt(reqID)
	reqBytes, err := wsReq.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respChan := make(chan *jsonrpc.Response, 1)
	s.pendingMu.Lock()
	s.pending[reqID] = respChan
	s.pendingMu.Unlock()

	s.writeMu.Lock()
	writeErr := conn.WriteMessage(websocket.TextMessage, reqBytes)
	s.writeMu.Unlock()
	if writeErr != nil {
		s.pendingMu.Lock()
		delete(s.pending, reqID)
		s.pendingMu.Unlock()
		return nil, fmt.Errorf("failed to send request: %w", writeErr)
	}

	select {
	case resp, ok := <-respChan:
		if !ok || resp == nil {
			return nil, ErrClosed
		}
		return resp, nil
	case <-ctx.Done():
		s.pendingMu.Lock()
		delete(s.pending, reqID)
		s.pendingMu.Unlock()
		return nil, ctx.Err()
	}
}
