package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"clipfit/internal/api"
	"clipfit/internal/daemon"
	"clipfit/internal/logging"
)

// maxEventWait caps how long an Events call may block.
const maxEventWait = 20 * time.Second

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: serverCtx}
	if err := rpcServer.RegisterName(serviceName, srv); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String("component", "ipc"))
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	id, err := s.daemon.Submit(daemon.SubmitRequest{
		Path:       req.Path,
		Filename:   req.Filename,
		OutputPath: req.OutputPath,
		Settings:   req.Settings,
	})
	if err != nil {
		return err
	}
	resp.RunID = id
	s.log().Debug("run submitted via IPC", logging.String(logging.FieldRunID, id))
	return nil
}

func (s *service) Events(req EventsRequest, resp *EventsResponse) error {
	wait := min(time.Duration(req.WaitMillis)*time.Millisecond, maxEventWait)
	batch, err := s.daemon.Events(s.ctx, req.RunID, req.After, wait)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	resp.Events = batch.Envelopes
	resp.Next = batch.Next
	resp.Done = batch.Done
	resp.Missed = batch.Missed
	return nil
}

func (s *service) Cancel(_ CancelRequest, resp *CancelResponse) error {
	resp.Cancelled = s.daemon.Cancel()
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = daemon.StatusPayload(s.daemon.Status(s.ctx))
	return nil
}

func (s *service) Runs(req RunsRequest, resp *RunsResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.daemon.Runs(s.ctx, limit)
	if err != nil {
		return err
	}
	resp.Runs = api.FromRuns(runs)
	return nil
}

func (s *service) Run(req RunRequest, resp *RunResponse) error {
	run, attempts, err := s.daemon.Run(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Run = api.FromRun(*run)
	resp.Attempts = api.FromAttempts(attempts)
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
