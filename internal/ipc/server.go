package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"updatenotifier/internal/daemon"
	"updatenotifier/internal/logging"
	"updatenotifier/internal/updates"
)

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

// NewServer configures the IPC server at the given socket path. shutdown is
// called for Stop requests and may be nil.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, shutdown func(), logger *slog.Logger) (*Server, error) {
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
	srv := &service{daemon: d, shutdown: shutdown, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
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
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
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
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may confuse status queries"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"))
	}
}

type service struct {
	daemon   *daemon.Daemon
	shutdown func()
	logger   *slog.Logger
	ctx      context.Context
}

func (s *service) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "ipc")
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status, err := s.daemon.Status(s.ctx)
	if err != nil {
		return err
	}
	*resp = StatusResponse{
		Running:        status.Running,
		PID:            status.PID,
		StartedAt:      status.StartedAt,
		Admin:          status.Admin,
		TrayBackend:    status.TrayBackend,
		LockPath:       status.LockFilePath,
		StorePath:      status.StorePath,
		LogPath:        status.LogPath,
		Watched:        status.Watched,
		Ready:          status.Loop.Ready,
		Ticks:          status.Loop.Ticks,
		SkippedTicks:   status.Loop.SkippedTicks,
		LastTick:       status.Loop.LastTick,
		IntervalSecs:   status.Loop.Interval.Seconds(),
		PluginsRunning: status.Loop.PluginsRunning,
		PluginRuns:     status.Loop.PluginRuns,
		Pending: Pending{
			DpkgRan:       status.Loop.Pending.DpkgRan,
			AptRunning:    status.Loop.Pending.AptRunning,
			HookPending:   status.Loop.Pending.HookPending,
			CrashPending:  status.Loop.Pending.CrashPending,
			AvahiPending:  status.Loop.Pending.AvahiPending,
			LastAptAction: status.Loop.Pending.LastAptAction,
		},
	}
	if status.Loop.Updates != nil {
		update := convertUpdate(*status.Loop.Updates)
		resp.Update = &update
	}
	for _, a := range status.Applets {
		resp.Applets = append(resp.Applets, Applet(a))
	}
	return nil
}

func (s *service) CheckNow(_ CheckRequest, resp *CheckResponse) error {
	s.log().Debug("update check requested")
	st, err := s.daemon.CheckNow(s.ctx)
	if err != nil {
		return err
	}
	resp.Update = convertUpdate(st)
	s.log().Info("update check run via IPC",
		logging.String(logging.FieldEventType, "ipc_check"),
		logging.String("state", st.State))
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	if err := s.daemon.TestNotification(s.ctx); err != nil {
		resp.Sent = false
		resp.Message = err.Error()
		return nil
	}
	resp.Sent = true
	resp.Message = "test notification sent"
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	if s.shutdown == nil {
		return errors.New("stop not supported by this server")
	}
	s.log().Info("daemon stop requested via IPC", logging.String(logging.FieldEventType, "daemon_stop"))
	// Reply first; the shutdown closes this server.
	go s.shutdown()
	resp.Stopping = true
	return nil
}

func convertUpdate(st updates.Status) UpdateStatus {
	return UpdateStatus{
		State:          st.State,
		Upgrades:       st.Result.NumUpgrades,
		Security:       st.Result.NumSecurity,
		RebootPending:  st.Result.RebootPending,
		Message:        st.Message,
		AptRunning:     st.AptRunning,
		NagScheduled:   st.NagScheduled,
		LastCheck:      st.LastCheck,
		LastAutoLaunch: st.LastAutoStart,
	}
}
