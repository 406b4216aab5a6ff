package ledger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/metrics"
	"github.com/fsdevblog/festwallet/internal/replication"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type TransactionSpec struct {
	ParticipantID string
	Type          domain.TransactionType
	Amount        decimal.Decimal
	// Booth название точки продаж, только для дебета.
	Booth        string
	Description  string
	OperatorName string
}

// TransactionFilter пустые поля не ограничивают выборку.
type TransactionFilter struct {
	ParticipantID string
	Booth         string
	Type          domain.TransactionType
}

// ApplyTransaction проверяет и проводит локальную транзакцию. При ошибке состояние ledger
// не меняется.
func (lg *Ledger) ApplyTransaction(ctx context.Context, spec TransactionSpec) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()
	return lg.applyLocalLocked(spec)
}

// ApplyByCard то же, что ApplyTransaction, но участник ищется по номеру карты.
func (lg *Ledger) ApplyByCard(ctx context.Context, card string, spec TransactionSpec) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()

	id, ok := lg.cards[strings.TrimSpace(card)]
	if !ok {
		err := domain.NewEntityError(domain.EntityParticipant, card, domain.ErrNotFound)
		metrics.TransactionsRejected.WithLabelValues(rejectReason(err)).Inc()
		return nil, err
	}
	spec.ParticipantID = id
	return lg.applyLocalLocked(spec)
}

func (lg *Ledger) applyLocalLocked(spec TransactionSpec) (*domain.Transaction, error) {
	if err := lg.validateLocked(spec); err != nil {
		metrics.TransactionsRejected.WithLabelValues(rejectReason(err)).Inc()
		lg.l.WithError(err).WithField("participant", spec.ParticipantID).Debug("transaction rejected")
		return nil, err
	}

	t := &domain.Transaction{
		ID:            lg.newID(),
		ParticipantID: spec.ParticipantID,
		Type:          spec.Type,
		Amount:        spec.Amount,
		Description:   spec.Description,
		Booth:         strings.TrimSpace(spec.Booth),
		OperatorName:  spec.OperatorName,
		Timestamp:     lg.now(),
		Origin:        lg.nodeID,
	}
	lg.commitLocked(t, "")

	res := *t
	return &res, nil
}

func (lg *Ledger) validateLocked(spec TransactionSpec) error {
	if !spec.Amount.IsPositive() {
		return fmt.Errorf("amount %s: %w", spec.Amount, domain.ErrInvalidAmount)
	}
	if !spec.Type.Valid() {
		return fmt.Errorf("type %q: %w", spec.Type, domain.ErrInvalidTransactionType)
	}
	p, ok := lg.participants[spec.ParticipantID]
	if !ok {
		return domain.NewEntityError(domain.EntityParticipant, spec.ParticipantID, domain.ErrNotFound)
	}
	if !p.IsActive {
		return domain.NewEntityError(domain.EntityParticipant, spec.ParticipantID, domain.ErrInactive)
	}

	booth := strings.TrimSpace(spec.Booth)
	if spec.Type == domain.TransactionCredit {
		if booth != "" {
			return fmt.Errorf("credit at booth %q: %w", booth, domain.ErrInvalidBooth)
		}
		return nil
	}
	if booth != "" {
		b := lg.boothByNameLocked(booth)
		if b == nil {
			return domain.NewEntityError(domain.EntityBooth, booth, domain.ErrNotFound)
		}
		if !b.IsActive {
			return domain.NewEntityError(domain.EntityBooth, booth, domain.ErrInactive)
		}
	}
	if p.Balance.LessThan(spec.Amount) {
		return domain.NewEntityError(domain.EntityParticipant, spec.ParticipantID,
			fmt.Errorf("balance %s, debit %s: %w", p.Balance, spec.Amount, domain.ErrInsufficientBalance))
	}
	return nil
}

// commitLocked единственное место, где транзакция попадает в ledger и меняет агрегаты.
// Участник транзакции должен существовать.
func (lg *Ledger) commitLocked(t *domain.Transaction, via string) {
	p := lg.participants[t.ParticipantID]

	lg.transactions[t.ID] = t
	lg.order = append(lg.order, t.ID)
	lg.byParticipant[t.ParticipantID] = append(lg.byParticipant[t.ParticipantID], t.ID)
	p.Balance = p.Balance.Add(t.Signed())
	if t.Type == domain.TransactionDebit && t.Booth != "" {
		if b := lg.boothByNameLocked(t.Booth); b != nil {
			b.TotalSales = b.TotalSales.Add(t.Amount)
		}
	}
	lg.emit(replication.TransactionEntry(*t, via))

	source := metrics.SourceLocal
	if via != "" {
		source = metrics.SourceReplication
	}
	metrics.TransactionsApplied.WithLabelValues(string(t.Type), source).Inc()

	if via != "" && p.Balance.IsNegative() {
		metrics.OverdrawnParticipants.Inc()
		lg.l.WithFields(logrus.Fields{
			"participant": p.ID,
			"transaction": t.ID,
			"balance":     p.Balance.String(),
			"via":         via,
		}).Warn("replicated debit overdrew participant")
	}
}

// ApplyReplicated применяет транзакцию, полученную от узла via. Повторное применение той же
// транзакции ничего не меняет. Если участник еще не известен, транзакция откладывается до
// его появления. Проверки баланса и активности не выполняются: транзакция уже состоялась.
func (lg *Ledger) ApplyReplicated(t domain.Transaction, via string) (bool, error) {
	if t.ID == "" {
		return false, fmt.Errorf("replicated transaction without id: %w", domain.ErrInvalidTransactionType)
	}
	if !t.Amount.IsPositive() {
		return false, fmt.Errorf("replicated transaction %s amount %s: %w", t.ID, t.Amount, domain.ErrInvalidAmount)
	}
	if !t.Type.Valid() {
		return false, fmt.Errorf("replicated transaction %s type %q: %w", t.ID, t.Type, domain.ErrInvalidTransactionType)
	}
	if t.Origin == "" {
		t.Origin = via
	}

	lg.mu.Lock()
	defer lg.mu.Unlock()
	return lg.applyReplicatedLocked(t, via), nil
}

func (lg *Ledger) applyReplicatedLocked(t domain.Transaction, via string) bool {
	if _, exists := lg.transactions[t.ID]; exists {
		metrics.ReplicatedDuplicates.Inc()
		return false
	}
	if _, known := lg.participants[t.ParticipantID]; !known {
		parked := lg.pending[t.ParticipantID]
		if parked == nil {
			parked = make(map[string]pendingTx)
			lg.pending[t.ParticipantID] = parked
		}
		if _, dup := parked[t.ID]; dup {
			metrics.ReplicatedDuplicates.Inc()
			return false
		}
		parked[t.ID] = pendingTx{tx: t, via: via}
		metrics.PendingTransactions.Inc()
		lg.l.WithFields(logrus.Fields{
			"participant": t.ParticipantID,
			"transaction": t.ID,
		}).Debug("transaction parked until participant arrives")
		return false
	}

	lg.commitLocked(&t, via)
	return true
}

// flushPendingLocked применяет отложенные транзакции участника в порядке их времени.
func (lg *Ledger) flushPendingLocked(participantID string) int {
	parked := lg.pending[participantID]
	if len(parked) == 0 {
		return 0
	}
	delete(lg.pending, participantID)

	list := make([]pendingTx, 0, len(parked))
	for _, ptx := range parked {
		list = append(list, ptx)
	}
	slices.SortFunc(list, func(a, b pendingTx) int {
		return cmp.Or(a.tx.Timestamp.Compare(b.tx.Timestamp), cmp.Compare(a.tx.ID, b.tx.ID))
	})

	applied := 0
	for _, ptx := range list {
		metrics.PendingTransactions.Dec()
		if lg.applyReplicatedLocked(ptx.tx, ptx.via) {
			applied++
		}
	}
	return applied
}

// PendingCount число отложенных транзакций.
func (lg *Ledger) PendingCount() int {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	n := 0
	for _, parked := range lg.pending {
		n += len(parked)
	}
	return n
}

// Transactions возвращает транзакции в порядке их применения на этом узле.
func (lg *Ledger) Transactions(filter TransactionFilter) []domain.Transaction {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	ids := lg.order
	if filter.ParticipantID != "" {
		ids = lg.byParticipant[filter.ParticipantID]
	}
	res := make([]domain.Transaction, 0, len(ids))
	for _, id := range ids {
		t := lg.transactions[id]
		if filter.Booth != "" && t.Booth != filter.Booth {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		res = append(res, *t)
	}
	return res
}

// Transaction возвращает транзакцию по id.
func (lg *Ledger) Transaction(id string) (*domain.Transaction, error) {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	t, ok := lg.transactions[id]
	if !ok {
		return nil, domain.NewEntityError(domain.EntityTransaction, id, domain.ErrNotFound)
	}
	res := *t
	return &res, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrInvalidTransactionType):
		return "invalid_type"
	case errors.Is(err, domain.ErrInvalidBooth):
		return "invalid_booth"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInactive):
		return "inactive"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	default:
		return "other"
	}
}
