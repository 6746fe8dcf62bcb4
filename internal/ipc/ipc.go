package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/berrythewa/clipstack/internal/types"
)

const (
	// DialTimeout bounds connecting to the daemon.
	DialTimeout = 2 * time.Second
	// RequestTimeout bounds reading a request and writing its response.
	RequestTimeout = 10 * time.Second
)

// ErrUnavailable is returned by the client when no daemon listens on the socket.
var ErrUnavailable = errors.New("daemon is not running")

// Handler answers one request.
type Handler func(ctx context.Context, req *Request) *Response

// StreamHandler serves a long-lived request. It calls send for every message
// and returns when ctx is done or send fails.
type StreamHandler func(ctx context.Context, req *Request, send func(v any) error) error

// Server serves requests on a Unix socket, one request per connection.
type Server struct {
	socketPath string
	handler    Handler
	streams    map[string]StreamHandler
	logger     *zap.Logger
	wg         sync.WaitGroup
}

// NewServer creates a server. handler answers every command without a
// stream handler.
func NewServer(socketPath string, handler Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		streams:    make(map[string]StreamHandler),
		logger:     logger,
	}
}

// HandleStream registers a streaming handler for command. It must be called
// before ListenAndServe.
func (s *Server) HandleStream(command string, h StreamHandler) {
	s.streams[command] = h
}

// ListenAndServe accepts connections until ctx is cancelled, then waits for
// in-flight requests and removes the socket.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if runtime.GOOS == "windows" {
		return errors.New("IPC server not implemented for Windows yet")
	}
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0700); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}
	if conn, err := net.DialTimeout("unix", s.socketPath, DialTimeout); err == nil {
		conn.Close()
		return fmt.Errorf("another daemon is listening on %s", s.socketPath)
	}
	// Remove any stale socket
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("failed to restrict socket permissions: %w", err)
	}
	s.logger.Info("IPC server listening", zap.String("socket", s.socketPath))

	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	defer func() {
		s.wg.Wait()
		os.Remove(s.socketPath)
		s.logger.Info("IPC server stopped")
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("Failed to accept IPC connection", zap.Error(err))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	dec := json.NewDecoder(reader)
	enc := json.NewEncoder(conn)

	conn.SetReadDeadline(time.Now().Add(RequestTimeout))
	var req Request
	if err := dec.Decode(&req); err != nil {
		conn.SetWriteDeadline(time.Now().Add(RequestTimeout))
		enc.Encode(Errorf(CodeInvalid, "invalid request: %v", err))
		return
	}
	conn.SetReadDeadline(time.Time{})
	s.logger.Debug("IPC request", zap.String("command", req.Command))

	if stream, ok := s.streams[req.Command]; ok {
		s.serveStream(ctx, conn, enc, &req, stream)
		return
	}

	resp := s.handler(ctx, &req)
	if resp == nil {
		resp = OK(nil)
	}
	conn.SetWriteDeadline(time.Now().Add(RequestTimeout))
	if err := enc.Encode(resp); err != nil {
		s.logger.Debug("Failed to write IPC response", zap.String("command", req.Command), zap.Error(err))
	}
}

func (s *Server) serveStream(ctx context.Context, conn net.Conn, enc *json.Encoder, req *Request, stream StreamHandler) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The client never writes after its request; a read returning means it
	// hung up.
	go func() {
		var buf [1]byte
		conn.Read(buf[:])
		cancel()
	}()

	if err := enc.Encode(OK(nil)); err != nil {
		return
	}
	var mu sync.Mutex
	send := func(v any) error {
		mu.Lock()
		defer mu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(RequestTimeout))
		return enc.Encode(v)
	}
	if err := stream(ctx, req, send); err != nil && ctx.Err() == nil {
		s.logger.Debug("IPC stream ended", zap.String("command", req.Command), zap.Error(err))
	}
}

func dial(socketPath string) (net.Conn, error) {
	if runtime.GOOS == "windows" {
		return nil, fmt.Errorf("%w: unix sockets are not supported on windows", ErrUnavailable)
	}
	conn, err := net.DialTimeout("unix", socketPath, DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return conn, nil
}

// SendRequest connects to the daemon, sends a request, and returns the response.
func SendRequest(socketPath string, req *Request) (*Response, error) {
	conn, err := dial(socketPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(RequestTimeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// Call sends command with args and decodes the response data into out,
// which may be nil.
func Call(socketPath, command string, args, out any) error {
	req, err := NewRequest(command, args)
	if err != nil {
		return err
	}
	resp, err := SendRequest(socketPath, req)
	if err != nil {
		return err
	}
	if out == nil {
		return resp.Err()
	}
	return resp.Decode(out)
}

// Subscribe streams newly stored items to fn until ctx is cancelled, fn
// returns an error, or the daemon goes away.
func Subscribe(ctx context.Context, socketPath string, fn func(item *types.ClipItem) error) error {
	conn, err := dial(socketPath)
	if err != nil {
		return err
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	req, err := NewRequest(CmdSubscribe, nil)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("failed to send subscribe request: %w", err)
	}

	dec := json.NewDecoder(conn)
	var ack Response
	if err := dec.Decode(&ack); err != nil {
		return fmt.Errorf("failed to read subscribe response: %w", err)
	}
	if err := ack.Err(); err != nil {
		return err
	}

	for {
		var item types.ClipItem
		if err := dec.Decode(&item); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("subscription closed: %w", err)
		}
		if err := fn(&item); err != nil {
			return err
		}
	}
}
