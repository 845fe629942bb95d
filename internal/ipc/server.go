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

	"labwatch/internal/daemon"
	"labwatch/internal/logging"
)

const serviceName = "Labwatch"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server
	svc       *service

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
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

	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, logger: logger, ctx: ctx, stopped: make(chan struct{})}
	if err := rpcServer.RegisterName(serviceName, svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		svc:       svc,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
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
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.track(conn, true)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.track(c, false)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

func (s *Server) track(conn net.Conn, add bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
		return
	}
	delete(s.conns, conn)
}

// StopRequested is closed once a client asks the daemon to stop.
func (s *Server) StopRequested() <-chan struct{} {
	return s.svc.stopped
}

// Close stops the server and removes the socket file. Connected clients are
// disconnected.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.connMu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context

	stopOnce sync.Once
	stopped  chan struct{}
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return logging.NewComponentLogger(s.logger, "ipc")
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	s.stopOnce.Do(func() { close(s.stopped) })
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = statusResponse(s.daemon.Status())
	return nil
}

func (s *service) AddFile(req AddFileRequest, resp *AddFileResponse) error {
	ev, err := s.daemon.AddFile(s.ctx, req.Path)
	if err != nil {
		return err
	}
	resp.Path = ev.Path
	resp.Category = ev.Category
	s.log().Info("file added via IPC",
		logging.String(logging.FieldEventType, "file_added"),
		logging.String(logging.FieldFile, ev.Path),
		logging.String(logging.FieldCategory, ev.Category))
	return nil
}

func statusResponse(status daemon.Status) StatusResponse {
	p := status.Pipeline
	resp := StatusResponse{
		Running:         status.Running,
		RunID:           status.RunID,
		TotalProcessed:  p.Score.TotalProcessed,
		Streak:          p.Score.Streak,
		QueueDepth:      p.QueueDepth,
		Dropped:         p.Dropped,
		PendingDebounce: status.PendingDebounce,
		SinkBacklog:     status.SinkBacklog,
		SinkDropped:     status.SinkDropped,
		ReferenceShots:  status.ReferenceShots,
		Watching:        status.Watching,
		WatchDir:        status.WatchDir,
		Extensions:      status.Extensions,
		LastError:       p.LastError,
		LockPath:        status.LockPath,
		ResultsPath:     status.ResultsPath,
		LogPath:         status.LogPath,
		PID:             status.PID,
	}
	if p.LastFile != "" {
		resp.LastFile = &LastFile{
			Path:        p.LastFile,
			Artifact:    p.LastArtifact,
			Category:    p.LastCategory,
			Accepted:    p.LastAccepted,
			ProcessedAt: p.LastProcessedAt,
		}
	}
	return resp
}
