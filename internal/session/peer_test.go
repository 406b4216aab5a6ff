package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsdevblog/festwallet/internal/ledger"
	"github.com/fsdevblog/festwallet/internal/protocol"
	"github.com/fsdevblog/festwallet/internal/replication"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

var errConnClosed = errors.New("conn closed")

// blockingConn принимает запись только после закрытия соединения либо отмены ctx.
type blockingConn struct {
	block  bool
	sent   atomic.Int32
	closed chan struct{}
	once   sync.Once
}

func newBlockingConn(block bool) *blockingConn {
	return &blockingConn{block: block, closed: make(chan struct{})}
}

func (c *blockingConn) Send(ctx context.Context, _ []byte) error {
	if !c.block {
		c.sent.Add(1)
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return errConnClosed
	}
}

func (c *blockingConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, errConnClosed
	}
}

func (c *blockingConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *blockingConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *blockingConn) RemoteAddr() string { return "blocking" }

type PeerTestSuite struct {
	suite.Suite
	manager *Manager
}

func TestPeerSuite(t *testing.T) {
	suite.Run(t, new(PeerTestSuite))
}

func (s *PeerTestSuite) SetupTest() {
	l := logrus.New()
	l.SetOutput(io.Discard)
	log := replication.NewLog()
	s.manager = NewManager(ledger.New("node-a", log, l), log, nil, l)
}

func (s *PeerTestSuite) addPeer(conn Conn) *peer {
	p := newPeer("node-b", conn)
	s.manager.mu.Lock()
	s.manager.status = Status{State: StateActive, Role: RoleServer, Address: "hub", PeerCount: 1}
	s.manager.peers[p] = struct{}{}
	s.manager.mu.Unlock()
	return p
}

func (s *PeerTestSuite) TestTrySend() {
	conn := newBlockingConn(false)
	p := newPeer("node-b", conn)

	s.Require().NoError(p.trySend(s.T().Context(), protocol.ClientBye{NodeID: "node-a"}))
	s.Equal(int32(1), conn.sent.Load())

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	s.Require().ErrorIs(p.trySend(s.T().Context(), protocol.ClientBye{NodeID: "node-a"}), errPeerBusy)
	s.Equal(int32(1), conn.sent.Load())
}

func (s *PeerTestSuite) TestDisconnectSkipsByeForBusyPeer() {
	conn := newBlockingConn(true)
	p := s.addPeer(conn)

	// запись пиру висит, как у sendLoop на полуживом соединении.
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	start := time.Now()
	s.Require().NoError(s.manager.Disconnect(s.T().Context()))
	s.Less(time.Since(start), byeTimeout)
	s.True(conn.isClosed())
	s.Equal(StateIdle, s.manager.Status().State)
}

func (s *PeerTestSuite) TestDisconnectSendsByeToIdlePeer() {
	conn := newBlockingConn(false)
	s.addPeer(conn)

	s.Require().NoError(s.manager.Disconnect(s.T().Context()))
	s.Equal(int32(1), conn.sent.Load())
	s.True(conn.isClosed())
	s.Equal(StateIdle, s.manager.Status().State)
}
