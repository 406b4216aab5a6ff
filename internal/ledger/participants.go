package ledger

import (
	"fmt"
	"strings"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/metrics"
	"github.com/fsdevblog/festwallet/internal/replication"
	"github.com/shopspring/decimal"
)

type ParticipantSpec struct {
	CardNumber     string
	Name           string
	InitialBalance decimal.Decimal
	// OperatorName попадает в транзакцию начальной загрузки.
	OperatorName string
}

// ParticipantUpdate изменяемые поля участника. nil означает "не менять".
type ParticipantUpdate struct {
	Name     *string
	IsActive *bool
}

// AddParticipant регистрирует участника. При ненулевом начальном балансе дополнительно
// проводит кредитную транзакцию "initial load" тем же путем, что и любую другую.
func (lg *Ledger) AddParticipant(spec ParticipantSpec) (*domain.Participant, error) {
	card := strings.TrimSpace(spec.CardNumber)
	if card == "" {
		return nil, fmt.Errorf("adding participant: %w", domain.ErrInvalidCard)
	}
	if spec.InitialBalance.IsNegative() {
		return nil, fmt.Errorf("adding participant: %w", domain.ErrInvalidAmount)
	}

	lg.mu.Lock()
	defer lg.mu.Unlock()

	if _, exists := lg.cards[card]; exists {
		return nil, domain.NewEntityError(domain.EntityParticipant, card, domain.ErrDuplicateCard)
	}

	now := lg.now()
	p := &domain.Participant{
		ID:             lg.newID(),
		CardNumber:     card,
		Name:           strings.TrimSpace(spec.Name),
		Balance:        decimal.Zero,
		InitialBalance: spec.InitialBalance,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	lg.insertParticipantLocked(p)
	lg.emit(replication.ParticipantEntry(domain.OperationAdded, *p, lg.nodeID, ""))

	if spec.InitialBalance.IsPositive() {
		// участник только что создан и активен, поэтому валидация здесь не может не пройти.
		if _, err := lg.applyLocalLocked(TransactionSpec{
			ParticipantID: p.ID,
			Type:          domain.TransactionCredit,
			Amount:        spec.InitialBalance,
			Description:   domain.InitialLoadDescription,
			OperatorName:  spec.OperatorName,
		}); err != nil {
			return nil, fmt.Errorf("adding participant initial load: %w", err)
		}
	}

	res := *p
	return &res, nil
}

func (lg *Ledger) insertParticipantLocked(p *domain.Participant) {
	lg.participants[p.ID] = p
	lg.cards[p.CardNumber] = p.ID
}

// LookupByCard ищет участника по номеру карты.
func (lg *Ledger) LookupByCard(card string) (*domain.Participant, error) {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	id, ok := lg.cards[strings.TrimSpace(card)]
	if !ok {
		return nil, domain.NewEntityError(domain.EntityParticipant, card, domain.ErrNotFound)
	}
	res := *lg.participants[id]
	return &res, nil
}

func (lg *Ledger) Participant(id string) (*domain.Participant, error) {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	p, ok := lg.participants[id]
	if !ok {
		return nil, domain.NewEntityError(domain.EntityParticipant, id, domain.ErrNotFound)
	}
	res := *p
	return &res, nil
}

func (lg *Ledger) Participants() []domain.Participant {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	return lg.participantsLocked()
}

// UpdateParticipant меняет имя и/или признак активности. Баланс через этот метод не меняется никогда.
func (lg *Ledger) UpdateParticipant(id string, upd ParticipantUpdate) (*domain.Participant, error) {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	p, ok := lg.participants[id]
	if !ok {
		return nil, domain.NewEntityError(domain.EntityParticipant, id, domain.ErrNotFound)
	}
	if upd.Name != nil {
		p.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.IsActive != nil {
		p.IsActive = *upd.IsActive
	}
	p.UpdatedAt = lg.stampLocked(p.UpdatedAt)
	lg.emit(replication.ParticipantEntry(domain.OperationUpdated, *p, lg.nodeID, ""))

	res := *p
	return &res, nil
}

// DeleteParticipant удаляет участника. Если у участника есть транзакции, удаление возможно
// только с force; в этом случае удаляются и его транзакции, а итоги точек продаж пересчитываются.
func (lg *Ledger) DeleteParticipant(id string, force bool) error {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	p, ok := lg.participants[id]
	if !ok {
		return domain.NewEntityError(domain.EntityParticipant, id, domain.ErrNotFound)
	}
	txIDs := lg.byParticipant[id]
	if len(txIDs) > 0 && !force {
		return domain.NewEntityError(domain.EntityParticipant, id, domain.ErrReferencedEntity)
	}

	affectedBooths := make(map[string]struct{})
	removed := make(map[string]struct{}, len(txIDs))
	for _, txID := range txIDs {
		if t := lg.transactions[txID]; t != nil && t.Booth != "" {
			affectedBooths[t.Booth] = struct{}{}
		}
		delete(lg.transactions, txID)
		removed[txID] = struct{}{}
	}
	if len(removed) > 0 {
		kept := lg.order[:0]
		for _, txID := range lg.order {
			if _, ok := removed[txID]; !ok {
				kept = append(kept, txID)
			}
		}
		lg.order = kept
	}
	delete(lg.byParticipant, id)
	delete(lg.participants, id)
	if parked := len(lg.pending[id]); parked > 0 {
		metrics.PendingTransactions.Sub(float64(parked))
		delete(lg.pending, id)
	}

	if lg.cards[p.CardNumber] == id {
		delete(lg.cards, p.CardNumber)
		lg.reindexCardLocked(p.CardNumber)
	}
	for name := range affectedBooths {
		if b := lg.boothByNameLocked(name); b != nil {
			b.TotalSales = lg.boothTotalLocked(name)
		}
	}

	lg.l.WithField("participant", id).WithField("transactions", len(txIDs)).Warn("participant deleted")
	return nil
}

// reindexCardLocked назначает карту оставшемуся участнику с тем же номером, если такой есть
// (возможно после слияния конфликтующих регистраций).
func (lg *Ledger) reindexCardLocked(card string) {
	var winner *domain.Participant
	for _, p := range lg.participants {
		if p.CardNumber != card {
			continue
		}
		if winner == nil || cardOwnerWins(p, winner) {
			winner = p
		}
	}
	if winner != nil {
		lg.cards[card] = winner.ID
	}
}

// cardOwnerWins детерминированно выбирает владельца номера карты: раньше созданный участник,
// при равенстве - меньший id.
func cardOwnerWins(candidate, current *domain.Participant) bool {
	if c := candidate.CreatedAt.Compare(current.CreatedAt); c != 0 {
		return c < 0
	}
	return candidate.ID < current.ID
}
