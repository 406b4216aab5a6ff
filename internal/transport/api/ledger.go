package api

import (
	"context"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/ledger"
)

// LedgerServicer операции ledger, доступные через API. Реализуется *ledger.Ledger.
type LedgerServicer interface {
	AddParticipant(spec ledger.ParticipantSpec) (*domain.Participant, error)
	Participant(id string) (*domain.Participant, error)
	Participants() []domain.Participant
	LookupByCard(card string) (*domain.Participant, error)
	UpdateParticipant(id string, upd ledger.ParticipantUpdate) (*domain.Participant, error)
	DeleteParticipant(id string, force bool) error

	ApplyTransaction(ctx context.Context, spec ledger.TransactionSpec) (*domain.Transaction, error)
	ApplyByCard(ctx context.Context, card string, spec ledger.TransactionSpec) (*domain.Transaction, error)
	Transactions(filter ledger.TransactionFilter) []domain.Transaction
	Transaction(id string) (*domain.Transaction, error)

	AddBooth(spec ledger.BoothSpec) (*domain.Booth, error)
	Booth(name string) (*domain.Booth, error)
	Booths() []domain.Booth
	SetBoothActive(name string, active bool) (*domain.Booth, error)
	DeleteBooth(name string, force bool) error

	AddProduct(spec ledger.ProductSpec) (*domain.Product, error)
	Products(booth string) []domain.Product
	SetProductActive(id string, active bool) (*domain.Product, error)
	DeleteProduct(id string) error
	Purchase(ctx context.Context, spec ledger.PurchaseSpec) (*domain.Transaction, error)
}
