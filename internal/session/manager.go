// Package session управляет синхронизацией узла с пирами: одна сессия это либо сервер,
// принимающий клиентов, либо клиент одного сервера. Состояние ledger сходится обменом полными
// снимками при подключении и рассылкой журнала изменений после него.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/metrics"
	"github.com/fsdevblog/festwallet/internal/protocol"
	"github.com/sirupsen/logrus"
)

const (
	defaultHandshakeTimeout = 5 * time.Second
	byeTimeout              = time.Second
	subscriberBuffer        = 16
)

var (
	ErrBusy        = errors.New("sync session already running")
	ErrInterrupted = errors.New("sync session interrupted by disconnect")

	errPeerLeft = errors.New("peer closed session")
	errPeerBusy = errors.New("peer connection is busy")
)

type Manager struct {
	ledger           Ledger
	feed             Feed
	transport        Transport
	l                *logrus.Entry
	handshakeTimeout time.Duration

	mu     sync.Mutex
	status Status
	// gen меняется при каждом запуске и остановке; горутины прошлых запусков по нему понимают,
	// что их результат уже не нужен.
	gen      uint64
	listener Listener
	peers    map[*peer]struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	subsMu sync.Mutex
	subs   map[chan Status]struct{}
}

func NewManager(lg Ledger, feed Feed, transport Transport, l *logrus.Logger) *Manager {
	return &Manager{
		ledger:    lg,
		feed:      feed,
		transport: transport,
		l: l.WithFields(logrus.Fields{
			"component": "session",
			"node":      lg.NodeID(),
		}),
		handshakeTimeout: defaultHandshakeTimeout,
		status:           Status{State: StateIdle},
		peers:            make(map[*peer]struct{}),
		subs:             make(map[chan Status]struct{}),
	}
}

// SetHandshakeTimeout устанавливает время ожидания client-hello сервером и снимка клиентом.
func (m *Manager) SetHandshakeTimeout(d time.Duration) *Manager {
	if d > 0 {
		m.handshakeTimeout = d
	}
	return m
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Subscribe возвращает канал уведомлений о смене статуса и функцию отписки. Медленный
// подписчик пропускает уведомления, актуальное значение всегда доступно через Status.
func (m *Manager) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, subscriberBuffer)
	m.subsMu.Lock()
	m.subs[ch] = struct{}{}
	m.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subsMu.Lock()
			delete(m.subs, ch)
			m.subsMu.Unlock()
		})
	}
}

// StartServer начинает принимать клиентов на address.
func (m *Manager) StartServer(ctx context.Context, address string) error {
	gen, err := m.begin(RoleServer, address)
	if err != nil {
		return err
	}

	ln, err := m.transport.Listen(ctx, address)
	if err != nil {
		err = fmt.Errorf("listen %s: %w: %w", address, domain.ErrBindFailed, err)
		m.fail(gen, err)
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		cancel()
		_ = ln.Close()
		return ErrInterrupted
	}
	m.listener = ln
	m.cancel = cancel
	m.setStatusLocked(Status{State: StateActive, Role: RoleServer, Address: ln.Addr()})
	m.wg.Add(1)
	m.mu.Unlock()

	m.l.WithField("address", ln.Addr()).Info("sync server started")
	go m.acceptLoop(runCtx, gen, ln)
	return nil
}

// Connect подключается к серверу address, обменивается с ним снимками и переходит в Active.
func (m *Manager) Connect(ctx context.Context, address string) error {
	gen, err := m.begin(RoleClient, address)
	if err != nil {
		return err
	}

	hsCtx, hsCancel := context.WithTimeout(ctx, m.handshakeTimeout)
	defer hsCancel()

	conn, err := m.transport.Dial(hsCtx, address)
	if err != nil {
		err = fmt.Errorf("dial %s: %w: %w", address, domain.ErrPeerUnreachable, err)
		m.fail(gen, err)
		return err
	}
	p, err := m.clientHandshake(hsCtx, conn)
	if err != nil {
		_ = conn.Close()
		m.fail(gen, err)
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		cancel()
		_ = conn.Close()
		return ErrInterrupted
	}
	m.cancel = cancel
	m.peers[p] = struct{}{}
	m.setStatusLocked(Status{State: StateActive, Role: RoleClient, PeerCount: 1, Address: address})
	m.wg.Add(1)
	m.mu.Unlock()

	m.l.WithFields(logrus.Fields{"address": address, "server": p.nodeID}).Info("connected to sync server")
	go func() {
		defer m.wg.Done()
		runErr := m.runPeer(runCtx, p)
		if errors.Is(runErr, errPeerLeft) {
			runErr = fmt.Errorf("%w: server closed session", domain.ErrPeerUnreachable)
		} else {
			runErr = fmt.Errorf("%w: connection lost: %w", domain.ErrPeerUnreachable, runErr)
		}
		m.fail(gen, runErr)
	}()
	return nil
}

// Disconnect останавливает сессию и возвращает менеджер в Idle. В Idle ничего не делает.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.status.State == StateIdle || m.status.State == StateDisconnecting {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	st := m.status
	st.State = StateDisconnecting
	st.Err = nil
	m.setStatusLocked(st)
	peers, ln, cancel := m.takeResourcesLocked()
	m.mu.Unlock()

	// client-bye не обязателен: пир, чья запись сейчас занята, узнает о разрыве по закрытию соединения.
	bye := protocol.ClientBye{NodeID: m.ledger.NodeID()}
	for _, p := range peers {
		byeCtx, byeCancel := context.WithTimeout(ctx, byeTimeout)
		if err := p.trySend(byeCtx, bye); err != nil {
			m.l.WithError(err).WithField("peer", p.nodeID).Debug("sending client-bye")
		}
		byeCancel()
	}
	closeResources(peers, ln, cancel)
	m.wg.Wait()

	m.mu.Lock()
	if m.status.State == StateDisconnecting {
		m.setStatusLocked(Status{State: StateIdle})
	}
	m.mu.Unlock()

	m.l.Info("sync session stopped")
	return nil
}

// begin переводит менеджер в Starting. Запуск возможен из Idle и из Error.
func (m *Manager) begin(role Role, address string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status.State != StateIdle && m.status.State != StateError {
		return 0, fmt.Errorf("%w: %s as %s", ErrBusy, m.status.State, m.status.Role)
	}
	m.gen++
	m.setStatusLocked(Status{State: StateStarting, Role: role, Address: address})
	return m.gen, nil
}

// fail переводит запуск gen в Error и освобождает его ресурсы. Роль сохраняется.
func (m *Manager) fail(gen uint64, err error) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	st := m.status
	m.setStatusLocked(Status{State: StateError, Role: st.Role, Address: st.Address, Err: err})
	peers, ln, cancel := m.takeResourcesLocked()
	m.mu.Unlock()

	closeResources(peers, ln, cancel)
	m.l.WithError(err).WithField("role", st.Role).Error("sync session failed")
}

func (m *Manager) takeResourcesLocked() ([]*peer, Listener, context.CancelFunc) {
	peers := make([]*peer, 0, len(m.peers))
	for p := range m.peers {
		peers = append(peers, p)
	}
	ln, cancel := m.listener, m.cancel
	m.peers = make(map[*peer]struct{})
	m.listener = nil
	m.cancel = nil
	return peers, ln, cancel
}

func closeResources(peers []*peer, ln Listener, cancel context.CancelFunc) {
	if cancel != nil {
		cancel()
	}
	if ln != nil {
		_ = ln.Close()
	}
	for _, p := range peers {
		_ = p.conn.Close()
	}
}

func (m *Manager) setStatusLocked(st Status) {
	prev := m.status
	m.status = st

	if prev.State != st.State {
		metrics.SyncStateChanges.WithLabelValues(string(st.State)).Inc()
	}
	if prev.Role != RoleNone && prev.Role != st.Role {
		metrics.SyncPeers.WithLabelValues(string(prev.Role)).Set(0)
	}
	if st.Role != RoleNone {
		metrics.SyncPeers.WithLabelValues(string(st.Role)).Set(float64(st.PeerCount))
	}

	m.subsMu.Lock()
	for ch := range m.subs {
		select {
		case ch <- st:
		default:
		}
	}
	m.subsMu.Unlock()
}

func (m *Manager) acceptLoop(ctx context.Context, gen uint64, ln Listener) {
	defer m.wg.Done()
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.fail(gen, fmt.Errorf("accept: %w", err))
			return
		}
		m.wg.Add(1)
		go m.serveConn(ctx, gen, conn)
	}
}

func (m *Manager) serveConn(ctx context.Context, gen uint64, conn Conn) {
	defer m.wg.Done()
	l := m.l.WithField("remote", conn.RemoteAddr())

	hsCtx, cancel := context.WithTimeout(ctx, m.handshakeTimeout)
	p, err := m.serverHandshake(hsCtx, conn)
	cancel()
	if err != nil {
		l.WithError(err).Warn("sync handshake failed")
		_ = conn.Close()
		return
	}

	if !m.addPeer(gen, p) {
		_ = conn.Close()
		return
	}
	l = l.WithField("peer", p.nodeID)
	l.Info("sync peer joined")

	runErr := m.runPeer(ctx, p)
	m.removePeer(gen, p)
	if runErr != nil && !errors.Is(runErr, errPeerLeft) && ctx.Err() == nil {
		l.WithError(runErr).Warn("sync peer lost")
		return
	}
	l.Info("sync peer left")
}

func (m *Manager) addPeer(gen uint64, p *peer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || m.status.State != StateActive {
		return false
	}
	m.peers[p] = struct{}{}
	st := m.status
	st.PeerCount = len(m.peers)
	m.setStatusLocked(st)
	return true
}

func (m *Manager) removePeer(gen uint64, p *peer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return
	}
	if _, ok := m.peers[p]; !ok {
		return
	}
	delete(m.peers, p)
	st := m.status
	st.PeerCount = len(m.peers)
	m.setStatusLocked(st)
}

func (m *Manager) serverHandshake(ctx context.Context, conn Conn) (*peer, error) {
	data, err := conn.Receive(ctx)
	if err != nil {
		return nil, handshakeErr(ctx, fmt.Errorf("waiting client-hello: %w", err))
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding client-hello: %w", err)
	}
	hello, ok := msg.(protocol.ClientHello)
	if !ok || hello.NodeID == "" {
		return nil, fmt.Errorf("expected client-hello, got %s: %w", msg.Type(), protocol.ErrMalformedMessage)
	}
	metrics.SyncMessages.WithLabelValues("in", string(msg.Type())).Inc()

	p := newPeer(hello.NodeID, conn)
	snap, seq := m.ledger.SnapshotAt()
	if err = p.send(ctx, protocol.Snapshot{Snapshot: snap}); err != nil {
		return nil, handshakeErr(ctx, fmt.Errorf("sending snapshot: %w", err))
	}
	p.fromSeq = seq
	return p, nil
}

func (m *Manager) clientHandshake(ctx context.Context, conn Conn) (*peer, error) {
	if err := sendMessage(ctx, conn, protocol.ClientHello{NodeID: m.ledger.NodeID()}); err != nil {
		return nil, handshakeErr(ctx, fmt.Errorf("sending client-hello: %w", err))
	}
	data, err := conn.Receive(ctx)
	if err != nil {
		return nil, handshakeErr(ctx, fmt.Errorf("waiting snapshot: %w", err))
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding snapshot: %w", domain.ErrPeerUnreachable, err)
	}
	snapMsg, ok := msg.(protocol.Snapshot)
	if !ok {
		return nil, fmt.Errorf("%w: expected snapshot, got %s", domain.ErrPeerUnreachable, msg.Type())
	}
	metrics.SyncMessages.WithLabelValues("in", string(msg.Type())).Inc()

	remoteID := snapMsg.Snapshot.NodeID
	if remoteID == "" {
		remoteID = conn.RemoteAddr()
	}
	res := m.ledger.MergeSnapshot(snapMsg.Snapshot, remoteID)
	m.l.WithFields(logrus.Fields{
		"server":       remoteID,
		"participants": res.Participants,
		"transactions": res.Transactions,
	}).Debug("server snapshot merged")

	// свой снимок уходит серверу, чтобы изменения, сделанные без связи, дошли до него.
	p := newPeer(remoteID, conn)
	own, seq := m.ledger.SnapshotAt()
	if err = p.send(ctx, protocol.Snapshot{Snapshot: own}); err != nil {
		return nil, handshakeErr(ctx, fmt.Errorf("sending snapshot: %w", err))
	}
	p.fromSeq = seq
	return p, nil
}

func handshakeErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrHandshakeTimeout, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrPeerUnreachable, err)
}
