package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsdevblog/festwallet/internal/metrics"
	"github.com/fsdevblog/festwallet/internal/protocol"
	"github.com/fsdevblog/festwallet/internal/replication"
	"github.com/sirupsen/logrus"
)

const sendTimeout = 10 * time.Second

type peer struct {
	nodeID string
	conn   Conn
	// fromSeq позиция журнала, с которой пиру отправляются изменения.
	fromSeq uint64
	writeMu sync.Mutex
}

func newPeer(nodeID string, conn Conn) *peer {
	return &peer{nodeID: nodeID, conn: conn}
}

func (p *peer) send(ctx context.Context, msg protocol.Message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return sendMessage(ctx, p.conn, msg)
}

// trySend отправляет сообщение, только если соединение сейчас не занято другой записью.
func (p *peer) trySend(ctx context.Context, msg protocol.Message) error {
	if !p.writeMu.TryLock() {
		return errPeerBusy
	}
	defer p.writeMu.Unlock()
	return sendMessage(ctx, p.conn, msg)
}

func sendMessage(ctx context.Context, conn Conn, msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err = conn.Send(sendCtx, data); err != nil {
		return fmt.Errorf("sending %s: %w", msg.Type(), err)
	}
	metrics.SyncMessages.WithLabelValues("out", string(msg.Type())).Inc()
	return nil
}

// runPeer обслуживает соединение до его разрыва или отмены ctx. Изменения журнала уходят пиру
// все, кроме созданных им самим или полученных от него.
func (m *Manager) runPeer(ctx context.Context, p *peer) error {
	peerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub := m.feed.Subscribe(p.fromSeq)
	defer sub.Close()

	sendErr := make(chan error, 1)
	go func() {
		err := m.sendLoop(peerCtx, p, sub)
		cancel()
		sendErr <- err
	}()

	recvErr := m.receiveLoop(peerCtx, p)
	cancel()
	_ = p.conn.Close()
	sErr := <-sendErr

	switch {
	case recvErr != nil && !errors.Is(recvErr, context.Canceled):
		return recvErr
	case sErr != nil && !errors.Is(sErr, context.Canceled) && !errors.Is(sErr, replication.ErrClosed):
		return sErr
	case recvErr != nil:
		return recvErr
	default:
		return sErr
	}
}

func (m *Manager) sendLoop(ctx context.Context, p *peer, sub *replication.Subscription) error {
	for {
		entry, err := sub.Next(ctx)
		if err != nil {
			return err
		}
		if entry.FromPeer(p.nodeID) {
			continue
		}
		msg, err := protocol.FromEntry(entry)
		if err != nil {
			m.l.WithError(err).Warn("skipping log entry")
			continue
		}
		if err = p.send(ctx, msg); err != nil {
			return err
		}
	}
}

func (m *Manager) receiveLoop(ctx context.Context, p *peer) error {
	l := m.l.WithField("peer", p.nodeID)
	for {
		data, err := p.conn.Receive(ctx)
		if err != nil {
			return err
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			l.WithError(err).Warn("skipping undecodable message")
			continue
		}
		metrics.SyncMessages.WithLabelValues("in", string(msg.Type())).Inc()
		if err = m.handle(l, p, msg); err != nil {
			return err
		}
	}
}

// handle применяет сообщение пира через идемпотентные операции ledger.
func (m *Manager) handle(l *logrus.Entry, p *peer, msg protocol.Message) error {
	switch msg := msg.(type) {
	case protocol.Snapshot:
		res := m.ledger.MergeSnapshot(msg.Snapshot, p.nodeID)
		l.WithFields(logrus.Fields{
			"participants": res.Participants,
			"transactions": res.Transactions,
		}).Debug("peer snapshot merged")
	case protocol.TransactionAdded:
		if _, err := m.ledger.ApplyReplicated(msg.Transaction, p.nodeID); err != nil {
			l.WithError(err).WithField("transaction", msg.Transaction.ID).Warn("rejecting replicated transaction")
		}
	case protocol.ParticipantChanged:
		m.ledger.MergeParticipant(msg.Participant, p.nodeID)
	case protocol.BoothChanged:
		m.ledger.MergeBooth(msg.Booth, p.nodeID)
	case protocol.ProductChanged:
		m.ledger.MergeProduct(msg.Product, p.nodeID)
	case protocol.ClientHello:
		l.Debug("ignoring repeated client-hello")
	case protocol.ClientBye:
		return errPeerLeft
	}
	return nil
}
