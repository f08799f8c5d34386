package editord

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"foldsync/internal/jsonrpc"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// Server exposes an Editor over WebSocket JSON-RPC
type Server struct {
	editor     *Editor
	httpServer *http.Server
	logger     zerolog.Logger
}

// NewServer creates a server for the given editor
func NewServer(editor *Editor, addr string, logger zerolog.Logger) *Server {
	s := &Server{
		editor: editor,
		logger: logger.With().Str("component", "server").Logger(),
	}
	mux := http.NewServeMux()
	mux.Handle("/", s)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// ServeHTTP handles WebSocket upgrade requests
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	s.logger.Info().Str("remoteAddr", r.RemoteAddr).Msg("new connection")
	s.serveConn(conn)
	s.logger.Info().Str("remoteAddr", r.RemoteAddr).Msg("connection closed")
}

// serveConn reads requests off one connection and writes responses back.
// Requests from a single connection are handled in arrival order.
func (s *Server) serveConn(conn *websocket.Conn) {
	defer conn.Close()

	var writeMu sync.Mutex
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Msg("read failed")
			}
			return
		}

		req, err := jsonrpc.ParseRequest(data)
		if err != nil {
			s.writeResponse(conn, &writeMu, jsonrpc.NewErrorResponse(jsonrpc.NewIDNull(), jsonrpc.ErrParse))
			continue
		}

		resp := s.editor.Handle(req)
		if req.IsNotification() {
			// Notifications carry no ID, so there is nothing to reply to.
			continue
		}
		s.writeResponse(conn, &writeMu, resp)
	}
}

func (s *Server) writeResponse(conn *websocket.Conn, writeMu *sync.Mutex, resp *jsonrpc.Response) {
	data, err := resp.Bytes()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal response")
		return
	}
	writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	writeMu.Unlock()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to write response")
	}
}

// Start begins listening; it does not block
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("editor listening")
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("server stopped")
		}
	}()
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
