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
	"strings"
	"sync"
	"time"

	"doorman/internal/daemon"
	"doorman/internal/logging"
	"doorman/internal/logs"
)

// serviceName is the RPC receiver name on the wire.
const serviceName = "Doorman"

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
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName(serviceName, svc); err != nil {
		_ = listener.Close()
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
				s.logger.Warn("accept failed", logging.Error(err))
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
			logging.String("socket", s.path), logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Nickname = status.Bot.Nickname
	resp.HomeChannelID = status.Bot.HomeChannelID
	resp.ClientCount = status.Bot.ClientCount
	resp.StartedAt = status.Bot.StartedAt
	resp.DatabasePath = status.DatabasePath
	resp.LockPath = status.LockFilePath
	resp.LastError = status.LastError
	return nil
}

func (s *service) Clients(_ ClientsRequest, resp *ClientsResponse) error {
	clients := s.daemon.Clients()
	resp.Clients = make([]ClientInfo, 0, len(clients))
	for _, client := range clients {
		resp.Clients = append(resp.Clients, ClientInfo{
			ID:           client.ID,
			Name:         client.Name,
			UID:          client.UID,
			ChannelID:    client.ChannelID,
			ServerGroups: client.ServerGroups,
			Linked:       s.daemon.Linked(s.ctx, client.UID),
		})
	}
	return nil
}

func (s *service) Say(req SayRequest, resp *SayResponse) error {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return errors.New("message must not be empty")
	}
	if err := s.daemon.Say(s.ctx, message); err != nil {
		return err
	}
	resp.Sent = true
	s.logger.Info("broadcast sent via IPC")
	return nil
}

func (s *service) Sync(_ SyncRequest, resp *SyncResponse) error {
	if err := s.daemon.SyncRegulars(s.ctx); err != nil {
		return err
	}
	resp.Synced = true
	return nil
}

func (s *service) Link(req LinkRequest, resp *LinkResponse) error {
	if strings.TrimSpace(req.Token) == "" {
		return errors.New("token is required")
	}
	if req.UserID <= 0 {
		return errors.New("user id must be positive")
	}
	voiceUID, err := s.daemon.RedeemLinkToken(s.ctx, req.Token, req.UserID, req.GameID)
	if err != nil {
		return err
	}
	resp.VoiceUID = voiceUID
	s.logger.Info("account linked via IPC",
		logging.String(logging.FieldClientUID, voiceUID),
		logging.Int64("user_id", req.UserID))
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if req.Follow && wait <= 0 {
		wait = time.Second
	}

	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}

	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}
