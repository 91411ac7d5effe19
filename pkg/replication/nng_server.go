package replication

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-kv/pkg/logging"
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/rep"
)

const defaultNNGWorkers = 4

// NNGServer answers peer requests on a REP socket. Requests are served by
// a fixed pool of workers, each owning one socket context.
type NNGServer struct {
	addr    string
	nodeID  int
	workers int
	handler ApplyHandler
	logger  logging.Logger

	socket    mangos.Socket
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex
}

// NNGServerConfig configures the NNG server.
type NNGServerConfig struct {
	ListenAddr string
	NodeID     int
	Workers    int
}

// NewNNGServer creates a server that applies replicated writes through
// handler.
func NewNNGServer(config NNGServerConfig, handler ApplyHandler, logger logging.Logger) (*NNGServer, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	workers := config.Workers
	if workers <= 0 {
		workers = defaultNNGWorkers
	}

	socket, err := rep.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create rep socket: %w", err)
	}

	return &NNGServer{
		addr:    config.ListenAddr,
		nodeID:  config.NodeID,
		workers: workers,
		handler: handler,
		logger:  logger.With(logging.Component("nng-server")),
		socket:  socket,
	}, nil
}

// Start binds the socket and launches the workers.
func (s *NNGServer) Start() error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	if s.running {
		return nil
	}

	if err := s.socket.Listen(s.addr); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	for i := 0; i < s.workers; i++ {
		mctx, err := s.socket.OpenContext()
		if err != nil {
			s.socket.Close()
			s.wg.Wait()
			return fmt.Errorf("failed to open worker context: %w", err)
		}
		s.wg.Add(1)
		go s.serveLoop(mctx)
	}

	s.running = true
	s.logger.Info("nng server listening", logging.Addr(s.addr), logging.Count(s.workers))
	return nil
}

// Stop closes the socket and waits for the workers.
func (s *NNGServer) Stop() error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	err := s.socket.Close()
	s.wg.Wait()

	s.logger.Info("nng server stopped")
	return err
}

// Run starts the server and stops it when ctx is done.
func (s *NNGServer) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

func (s *NNGServer) serveLoop(mctx mangos.Context) {
	defer s.wg.Done()
	defer mctx.Close()

	for {
		frame, err := mctx.Recv()
		if err != nil {
			if errors.Is(err, mangos.ErrClosed) {
				return
			}
			continue
		}

		reply := s.handle(frame)
		out, err := EncodeFrame(reply)
		if err != nil {
			s.logger.Error("failed to encode reply", logging.Error(err))
			continue
		}
		if err := mctx.Send(out); err != nil {
			if errors.Is(err, mangos.ErrClosed) {
				return
			}
			s.logger.Warn("failed to send reply", logging.Error(err))
		}
	}
}

func (s *NNGServer) handle(frame []byte) *Message {
	msg, err := DecodeFrame(frame)
	if err != nil {
		s.logger.Warn("dropping undecodable frame", logging.Error(err))
		return s.errorReply(&Message{}, err)
	}

	switch msg.Type {
	case MsgPing:
		return s.ack(msg)
	case MsgReplicate:
		var r ReplicateRequest
		if err := msg.Decode(&r); err != nil {
			return s.errorReply(msg, err)
		}
		s.handler.Apply(string(r.Key), string(r.Value))
		return s.ack(msg)
	default:
		return s.errorReply(msg, fmt.Errorf("unsupported message type %s", msg.Type))
	}
}

func (s *NNGServer) ack(request *Message) *Message {
	reply, _ := NewReply(request, MsgAck, AckMessage{NodeID: s.nodeID})
	return reply
}

func (s *NNGServer) errorReply(request *Message, err error) *Message {
	reply, _ := NewReply(request, MsgError, ErrorMessage{Message: err.Error()})
	return reply
}
