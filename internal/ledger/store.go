// Package ledger хранит авторитетное состояние узла (участники, транзакции, точки продаж,
// товары) и является единственным местом, где создаются транзакции и меняются балансы.
//
// Все изменения выполняются синхронно под одной блокировкой и не делают ввода-вывода.
// Каждое успешное изменение записывается в журнал репликации ровно один раз.
package ledger

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/replication"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ChangeLog журнал, в который ledger пишет свои изменения.
type ChangeLog interface {
	Append(entry replication.Entry) replication.Entry
	LastSeq() uint64
}

type Ledger struct {
	mu     sync.Mutex
	nodeID string
	log    ChangeLog
	l      *logrus.Entry
	now    func() time.Time
	newID  func() string

	participants  map[string]*domain.Participant
	cards         map[string]string // card number -> participant id
	transactions  map[string]*domain.Transaction
	order         []string            // id транзакций в порядке применения
	byParticipant map[string][]string // participant id -> id транзакций
	booths        map[string]*domain.Booth
	boothNames    map[string]string // booth name -> booth id
	products      map[string]*domain.Product
	// pending реплицированные транзакции, участник которых еще не известен.
	pending map[string]map[string]pendingTx
}

type pendingTx struct {
	tx  domain.Transaction
	via string
}

// New создает пустой ledger узла nodeID. log может быть nil, тогда изменения никуда не пишутся.
func New(nodeID string, log ChangeLog, l *logrus.Logger) *Ledger {
	return &Ledger{
		nodeID: nodeID,
		log:    log,
		l: l.WithFields(logrus.Fields{
			"component": "ledger",
			"node":      nodeID,
		}),
		now:           func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID:         func() string { return uuid.NewString() },
		participants:  make(map[string]*domain.Participant),
		cards:         make(map[string]string),
		transactions:  make(map[string]*domain.Transaction),
		order:         make([]string, 0),
		byParticipant: make(map[string][]string),
		booths:        make(map[string]*domain.Booth),
		boothNames:    make(map[string]string),
		products:      make(map[string]*domain.Product),
		pending:       make(map[string]map[string]pendingTx),
	}
}

// SetClock подменяет источник времени. Используется в тестах.
func (lg *Ledger) SetClock(now func() time.Time) *Ledger {
	lg.now = now
	return lg
}

func (lg *Ledger) NodeID() string {
	return lg.nodeID
}

// Snapshot возвращает полную копию коллекций в детерминированном порядке.
func (lg *Ledger) Snapshot() domain.Snapshot {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	return lg.snapshotLocked()
}

// SnapshotAt возвращает снимок вместе с номером последней записи журнала на момент снимка.
// Подписка с этого номера получит ровно те изменения, которых в снимке нет.
func (lg *Ledger) SnapshotAt() (domain.Snapshot, uint64) {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	var seq uint64
	if lg.log != nil {
		seq = lg.log.LastSeq()
	}
	return lg.snapshotLocked(), seq
}

func (lg *Ledger) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		NodeID:       lg.nodeID,
		TakenAt:      lg.now(),
		Participants: lg.participantsLocked(),
		Transactions: make([]domain.Transaction, 0, len(lg.order)),
		Booths:       lg.boothsLocked(),
		Products:     lg.productsLocked(),
	}
	for _, id := range lg.order {
		snap.Transactions = append(snap.Transactions, *lg.transactions[id])
	}
	return snap
}

func (lg *Ledger) participantsLocked() []domain.Participant {
	res := make([]domain.Participant, 0, len(lg.participants))
	for _, p := range lg.participants {
		res = append(res, *p)
	}
	slices.SortFunc(res, func(a, b domain.Participant) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return res
}

func (lg *Ledger) boothsLocked() []domain.Booth {
	res := make([]domain.Booth, 0, len(lg.booths))
	for _, b := range lg.booths {
		res = append(res, *b)
	}
	slices.SortFunc(res, func(a, b domain.Booth) int { return cmp.Compare(a.Name, b.Name) })
	return res
}

func (lg *Ledger) productsLocked() []domain.Product {
	res := make([]domain.Product, 0, len(lg.products))
	for _, p := range lg.products {
		res = append(res, *p)
	}
	slices.SortFunc(res, func(a, b domain.Product) int {
		return cmp.Or(cmp.Compare(a.Booth, b.Booth), cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return res
}

func (lg *Ledger) emit(entry replication.Entry) {
	if lg.log == nil {
		return
	}
	lg.log.Append(entry)
}

// stampLocked возвращает время изменения, строго большее prev, чтобы локальное изменение
// всегда выигрывало у уже известного. Время хранится с точностью до микросекунды, как в postgres.
func (lg *Ledger) stampLocked(prev time.Time) time.Time {
	now := lg.now()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}
