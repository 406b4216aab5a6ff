package session

import (
	"context"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/ledger"
	"github.com/fsdevblog/festwallet/internal/replication"
)

// Conn двунаправленный канал сообщений с одним пиром. Send и Receive можно вызывать из
// разных горутин, но каждый из них только из одной одновременно.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	Receive(ctx context.Context) ([]byte, error)
	Close() error
	RemoteAddr() string
}

type Listener interface {
	Accept(ctx context.Context) (Conn, error)
	Close() error
	Addr() string
}

type Transport interface {
	Listen(ctx context.Context, address string) (Listener, error)
	Dial(ctx context.Context, address string) (Conn, error)
}

// Ledger часть ledger.Ledger, нужная сессии.
type Ledger interface {
	NodeID() string
	SnapshotAt() (domain.Snapshot, uint64)
	MergeSnapshot(snap domain.Snapshot, via string) ledger.MergeResult
	ApplyReplicated(t domain.Transaction, via string) (bool, error)
	MergeParticipant(p domain.Participant, via string) bool
	MergeBooth(b domain.Booth, via string) bool
	MergeProduct(p domain.Product, via string) bool
}

// Feed источник изменений для рассылки пирам.
type Feed interface {
	Subscribe(fromSeq uint64) *replication.Subscription
}
