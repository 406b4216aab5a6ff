package ledger

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/replication"
	"github.com/shopspring/decimal"
)

type ProductSpec struct {
	Name  string
	Price decimal.Decimal
	Booth string
}

func (lg *Ledger) AddProduct(spec ProductSpec) (*domain.Product, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("adding product: %w", domain.ErrInvalidPurchase)
	}
	if spec.Price.IsNegative() {
		return nil, fmt.Errorf("adding product: %w", domain.ErrInvalidAmount)
	}

	lg.mu.Lock()
	defer lg.mu.Unlock()

	booth := lg.boothByNameLocked(strings.TrimSpace(spec.Booth))
	if booth == nil {
		return nil, domain.NewEntityError(domain.EntityBooth, spec.Booth, domain.ErrNotFound)
	}
	now := lg.now()
	p := &domain.Product{
		ID:        lg.newID(),
		Name:      name,
		Price:     spec.Price,
		Booth:     booth.Name,
		IsActive:  true,
		IsFree:    spec.Price.IsZero(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	lg.products[p.ID] = p
	lg.emit(replication.ProductEntry(domain.OperationAdded, *p, lg.nodeID, ""))

	res := *p
	return &res, nil
}

func (lg *Ledger) Product(id string) (*domain.Product, error) {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	p, ok := lg.products[id]
	if !ok {
		return nil, domain.NewEntityError(domain.EntityProduct, id, domain.ErrNotFound)
	}
	res := *p
	return &res, nil
}

// Products возвращает товары; при непустом booth только товары этой точки продаж.
func (lg *Ledger) Products(booth string) []domain.Product {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	all := lg.productsLocked()
	if booth == "" {
		return all
	}
	return slices.DeleteFunc(all, func(p domain.Product) bool { return p.Booth != booth })
}

func (lg *Ledger) SetProductActive(id string, active bool) (*domain.Product, error) {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	p, ok := lg.products[id]
	if !ok {
		return nil, domain.NewEntityError(domain.EntityProduct, id, domain.ErrNotFound)
	}
	p.IsActive = active
	p.UpdatedAt = lg.stampLocked(p.UpdatedAt)
	lg.emit(replication.ProductEntry(domain.OperationUpdated, *p, lg.nodeID, ""))

	res := *p
	return &res, nil
}

// DeleteProduct товары транзакциями не связаны, поэтому удаляются без ограничений.
func (lg *Ledger) DeleteProduct(id string) error {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	if _, ok := lg.products[id]; !ok {
		return domain.NewEntityError(domain.EntityProduct, id, domain.ErrNotFound)
	}
	delete(lg.products, id)
	return nil
}

type PurchaseItem struct {
	ProductID string
	Quantity  int
}

type PurchaseSpec struct {
	CardNumber   string
	Items        []PurchaseItem
	OperatorName string
}

// Purchase проводит одну дебетовую транзакцию на сумму товаров. Все товары должны быть
// активны и принадлежать одной точке продаж.
func (lg *Ledger) Purchase(ctx context.Context, spec PurchaseSpec) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(spec.Items) == 0 {
		return nil, fmt.Errorf("purchase: %w", domain.ErrInvalidPurchase)
	}

	lg.mu.Lock()
	defer lg.mu.Unlock()

	participantID, ok := lg.cards[strings.TrimSpace(spec.CardNumber)]
	if !ok {
		return nil, domain.NewEntityError(domain.EntityParticipant, spec.CardNumber, domain.ErrNotFound)
	}

	var booth string
	total := decimal.Zero
	lines := make([]string, 0, len(spec.Items))
	items := slices.Clone(spec.Items)
	slices.SortStableFunc(items, func(a, b PurchaseItem) int { return cmp.Compare(a.ProductID, b.ProductID) })

	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("purchase: quantity %d: %w", item.Quantity, domain.ErrInvalidPurchase)
		}
		p, found := lg.products[item.ProductID]
		if !found {
			return nil, domain.NewEntityError(domain.EntityProduct, item.ProductID, domain.ErrNotFound)
		}
		if !p.IsActive {
			return nil, domain.NewEntityError(domain.EntityProduct, item.ProductID, domain.ErrInactive)
		}
		if booth == "" {
			booth = p.Booth
		} else if booth != p.Booth {
			return nil, fmt.Errorf("purchase: products of booths %q and %q: %w", booth, p.Booth, domain.ErrInvalidPurchase)
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		lines = append(lines, fmt.Sprintf("%dx %s", item.Quantity, p.Name))
	}

	return lg.applyLocalLocked(TransactionSpec{
		ParticipantID: participantID,
		Type:          domain.TransactionDebit,
		Amount:        total,
		Booth:         booth,
		Description:   strings.Join(lines, ", "),
		OperatorName:  spec.OperatorName,
	})
}
