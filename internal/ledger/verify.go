package ledger

import (
	"fmt"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/shopspring/decimal"
)

// Verify пересчитывает балансы и итоги точек продаж по журналу транзакций и сверяет их с
// хранимыми значениями.
func (lg *Ledger) Verify() error {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	for _, p := range lg.participantsLocked() {
		if expected := lg.balanceLocked(p.ID); !expected.Equal(p.Balance) {
			return domain.NewEntityError(domain.EntityParticipant, p.ID,
				fmt.Errorf("balance %s, transactions sum %s: %w", p.Balance, expected, domain.ErrInvariantViolation))
		}
	}
	for _, b := range lg.boothsLocked() {
		if expected := lg.boothTotalLocked(b.Name); !expected.Equal(b.TotalSales) {
			return domain.NewEntityError(domain.EntityBooth, b.Name,
				fmt.Errorf("total sales %s, debits sum %s: %w", b.TotalSales, expected, domain.ErrInvariantViolation))
		}
	}
	for card, id := range lg.cards {
		if p, ok := lg.participants[id]; !ok || p.CardNumber != card {
			return domain.NewEntityError(domain.EntityParticipant, card,
				fmt.Errorf("card index points to %q: %w", id, domain.ErrInvariantViolation))
		}
	}
	return nil
}

func (lg *Ledger) balanceLocked(participantID string) decimal.Decimal {
	sum := decimal.Zero
	for _, id := range lg.byParticipant[participantID] {
		sum = sum.Add(lg.transactions[id].Signed())
	}
	return sum
}
