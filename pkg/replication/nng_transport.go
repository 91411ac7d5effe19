package replication

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dd0wney/cluso-kv/pkg/cluster"
	"github.com/dd0wney/cluso-kv/pkg/logging"
	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/req"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

const defaultNNGCallTimeout = time.Second

// NNGTransport sends peer requests over mangos REQ sockets, one per
// peer, dialled asynchronously so a down peer never blocks construction.
// Every call runs on its own socket context with send and receive
// deadlines taken from the call's context.
type NNGTransport struct {
	routes map[string]string // internal addr -> nng dial addr
	logger logging.Logger

	mu      sync.Mutex
	sockets map[string]mangos.Socket
	closed  bool
}

var _ PeerClient = (*NNGTransport)(nil)

// NewNNGTransport creates a transport that dials each peer of dir at its
// NNG address. Addresses missing from dir are dialled as given.
func NewNNGTransport(dir *cluster.Directory, logger logging.Logger) *NNGTransport {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	routes := make(map[string]string)
	if dir != nil {
		for _, p := range dir.Peers() {
			if p.NNGAddr != "" {
				routes[p.Addr] = p.NNGAddr
			}
		}
	}
	return &NNGTransport{
		routes:  routes,
		logger:  logger.With(logging.Component("nng-transport")),
		sockets: make(map[string]mangos.Socket),
	}
}

// Probe sends a ping and waits for the ack.
func (t *NNGTransport) Probe(ctx context.Context, addr string) error {
	msg, err := NewMessage(MsgPing, nil)
	if err != nil {
		return err
	}
	_, err = t.call(ctx, addr, msg)
	return err
}

// Replicate sends one write and waits for the ack.
func (t *NNGTransport) Replicate(ctx context.Context, addr, key, value string) error {
	msg, err := NewMessage(MsgReplicate, ReplicateRequest{Key: []byte(key), Value: []byte(value)})
	if err != nil {
		return err
	}
	_, err = t.call(ctx, addr, msg)
	return err
}

func (t *NNGTransport) socketFor(addr string) (mangos.Socket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrTransportClosed
	}
	if sock, ok := t.sockets[addr]; ok {
		return sock, nil
	}

	dialAddr := addr
	if routed, ok := t.routes[addr]; ok {
		dialAddr = routed
	}

	sock, err := req.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create req socket: %w", err)
	}
	if err := sock.SetOption(mangos.OptionDialAsynch, true); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to set async dial: %w", err)
	}
	if err := sock.Dial(dialAddr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to dial %s: %w", dialAddr, err)
	}

	t.sockets[addr] = sock
	t.logger.Debug("peer socket dialled", logging.Addr(dialAddr))
	return sock, nil
}

func (t *NNGTransport) call(ctx context.Context, addr string, msg *Message) (*Message, error) {
	sock, err := t.socketFor(addr)
	if err != nil {
		return nil, err
	}

	mctx, err := sock.OpenContext()
	if err != nil {
		return nil, fmt.Errorf("failed to open socket context: %w", err)
	}
	defer mctx.Close()

	timeout := defaultNNGCallTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	mctx.SetOption(mangos.OptionSendDeadline, timeout)
	mctx.SetOption(mangos.OptionRecvDeadline, timeout)

	// Closing the socket context aborts a pending Send or Recv.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			mctx.Close()
		case <-done:
		}
	}()

	frame, err := EncodeFrame(msg)
	if err != nil {
		return nil, err
	}
	if err := mctx.Send(frame); err != nil {
		return nil, t.callError(ctx, "send", err)
	}
	replyFrame, err := mctx.Recv()
	if err != nil {
		return nil, t.callError(ctx, "receive", err)
	}

	reply, err := DecodeFrame(replyFrame)
	if err != nil {
		return nil, err
	}
	switch reply.Type {
	case MsgAck:
		return reply, nil
	case MsgError:
		var em ErrorMessage
		reply.Decode(&em)
		return nil, fmt.Errorf("%w: %s", ErrPeerRejected, em.Message)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedReply, reply.Type)
	}
}

func (t *NNGTransport) callError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("failed to %s: %w", op, ctxErr)
	}
	if errors.Is(err, mangos.ErrRecvTimeout) || errors.Is(err, mangos.ErrSendTimeout) {
		return fmt.Errorf("failed to %s: %w", op, context.DeadlineExceeded)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// Close closes every peer socket.
func (t *NNGTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	for addr, sock := range t.sockets {
		sock.Close()
		delete(t.sockets, addr)
	}
	return nil
}
