package ledger

import (
	"fmt"
	"strings"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/replication"
	"github.com/shopspring/decimal"
)

type BoothSpec struct {
	Name string
}

// AddBooth создает точку продаж. Итог продаж сразу вычисляется по журналу: транзакции могли
// ссылаться на точку с таким именем раньше, чем она появилась на этом узле.
func (lg *Ledger) AddBooth(spec BoothSpec) (*domain.Booth, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("adding booth: %w", domain.ErrInvalidBooth)
	}

	lg.mu.Lock()
	defer lg.mu.Unlock()

	if _, exists := lg.boothNames[name]; exists {
		return nil, domain.NewEntityError(domain.EntityBooth, name, domain.ErrDuplicateBooth)
	}
	now := lg.now()
	b := &domain.Booth{
		ID:         lg.newID(),
		Name:       name,
		IsActive:   true,
		TotalSales: lg.boothTotalLocked(name),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	lg.insertBoothLocked(b)
	lg.emit(replication.BoothEntry(domain.OperationAdded, *b, lg.nodeID, ""))

	res := *b
	return &res, nil
}

func (lg *Ledger) insertBoothLocked(b *domain.Booth) {
	lg.booths[b.ID] = b
	lg.boothNames[b.Name] = b.ID
}

func (lg *Ledger) Booth(name string) (*domain.Booth, error) {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	b := lg.boothByNameLocked(strings.TrimSpace(name))
	if b == nil {
		return nil, domain.NewEntityError(domain.EntityBooth, name, domain.ErrNotFound)
	}
	res := *b
	return &res, nil
}

func (lg *Ledger) Booths() []domain.Booth {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	return lg.boothsLocked()
}

func (lg *Ledger) SetBoothActive(name string, active bool) (*domain.Booth, error) {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	b := lg.boothByNameLocked(strings.TrimSpace(name))
	if b == nil {
		return nil, domain.NewEntityError(domain.EntityBooth, name, domain.ErrNotFound)
	}
	b.IsActive = active
	b.UpdatedAt = lg.stampLocked(b.UpdatedAt)
	lg.emit(replication.BoothEntry(domain.OperationUpdated, *b, lg.nodeID, ""))

	res := *b
	return &res, nil
}

// DeleteBooth удаляет точку продаж. При наличии продаж нужен force; транзакции при этом
// сохраняют название точки.
func (lg *Ledger) DeleteBooth(name string, force bool) error {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	b := lg.boothByNameLocked(strings.TrimSpace(name))
	if b == nil {
		return domain.NewEntityError(domain.EntityBooth, name, domain.ErrNotFound)
	}
	if !force && lg.boothReferencedLocked(b.Name) {
		return domain.NewEntityError(domain.EntityBooth, name, domain.ErrReferencedEntity)
	}
	delete(lg.booths, b.ID)
	delete(lg.boothNames, b.Name)
	return nil
}

func (lg *Ledger) boothByNameLocked(name string) *domain.Booth {
	id, ok := lg.boothNames[name]
	if !ok {
		return nil
	}
	return lg.booths[id]
}

func (lg *Ledger) boothReferencedLocked(name string) bool {
	for _, t := range lg.transactions {
		if t.Booth == name {
			return true
		}
	}
	return false
}

// boothTotalLocked сумма дебетовых транзакций, отнесенных на точку продаж name.
func (lg *Ledger) boothTotalLocked(name string) decimal.Decimal {
	total := decimal.Zero
	for _, t := range lg.transactions {
		if t.Type == domain.TransactionDebit && t.Booth == name {
			total = total.Add(t.Amount)
		}
	}
	return total
}
