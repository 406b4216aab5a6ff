// Package pgstore хранит снимок ledger в postgres. Все таблицы пишутся в одной транзакции.
package pgstore

import (
	"context"
	"fmt"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/persistence"
	"github.com/fsdevblog/festwallet/internal/repository/pgrepo"
	"github.com/fsdevblog/festwallet/pkg/uow"
)

type participantRepository interface {
	All(ctx context.Context) ([]domain.Participant, error)
	UpsertBatch(ctx context.Context, participants []domain.Participant) error
	DeleteExcept(ctx context.Context, ids []string) error
}

type transactionRepository interface {
	All(ctx context.Context) ([]domain.Transaction, error)
	InsertBatch(ctx context.Context, transactions []domain.Transaction) error
	DeleteExcept(ctx context.Context, ids []string) error
}

type boothRepository interface {
	All(ctx context.Context) ([]domain.Booth, error)
	UpsertBatch(ctx context.Context, booths []domain.Booth) error
	DeleteExcept(ctx context.Context, names []string) error
}

type productRepository interface {
	All(ctx context.Context) ([]domain.Product, error)
	UpsertBatch(ctx context.Context, products []domain.Product) error
	DeleteExcept(ctx context.Context, ids []string) error
}

type Store struct {
	uow    uow.UOW
	nodeID string
}

// New регистрирует репозитории pgrepo в u.
func New(u uow.UOW, nodeID string) (*Store, error) {
	if err := pgrepo.Register(u); err != nil {
		return nil, fmt.Errorf("pgstore: %w", err)
	}
	return &Store{uow: u, nodeID: nodeID}, nil
}

func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := domain.Snapshot{NodeID: s.nodeID}
	err := s.uow.Do(ctx, func(ctx context.Context, tx uow.TX) error {
		participants, booths, products, transactions, repoErr := repositories(tx)
		if repoErr != nil {
			return repoErr
		}

		var err error
		if snap.Booths, err = booths.All(ctx); err != nil {
			return err //nolint:wrapcheck
		}
		if snap.Products, err = products.All(ctx); err != nil {
			return err //nolint:wrapcheck
		}
		if snap.Participants, err = participants.All(ctx); err != nil {
			return err //nolint:wrapcheck
		}
		if snap.Transactions, err = transactions.All(ctx); err != nil {
			return err //nolint:wrapcheck
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore load: %w", err)
	}
	if snap.IsEmpty() {
		return nil, persistence.ErrEmpty
	}
	return &snap, nil
}

// Save приводит таблицы к снимку: удаляет отсутствующие в нем строки, обновляет изменяемые
// поля и дописывает новые транзакции.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	err := s.uow.Do(ctx, func(ctx context.Context, tx uow.TX) error {
		participants, booths, products, transactions, repoErr := repositories(tx)
		if repoErr != nil {
			return repoErr
		}

		if err := transactions.DeleteExcept(ctx, transactionIDs(snap.Transactions)); err != nil {
			return err //nolint:wrapcheck
		}
		if err := participants.DeleteExcept(ctx, participantIDs(snap.Participants)); err != nil {
			return err //nolint:wrapcheck
		}
		if err := booths.DeleteExcept(ctx, boothNames(snap.Booths)); err != nil {
			return err //nolint:wrapcheck
		}
		if err := products.DeleteExcept(ctx, productIDs(snap.Products)); err != nil {
			return err //nolint:wrapcheck
		}

		if err := booths.UpsertBatch(ctx, snap.Booths); err != nil {
			return err //nolint:wrapcheck
		}
		if err := products.UpsertBatch(ctx, snap.Products); err != nil {
			return err //nolint:wrapcheck
		}
		if err := participants.UpsertBatch(ctx, snap.Participants); err != nil {
			return err //nolint:wrapcheck
		}
		return transactions.InsertBatch(ctx, snap.Transactions) //nolint:wrapcheck
	})
	if err != nil {
		return fmt.Errorf("pgstore save: %w", err)
	}
	return nil
}

//nolint:nonamedreturns
func repositories(tx uow.TX) (
	participants participantRepository,
	booths boothRepository,
	products productRepository,
	transactions transactionRepository,
	err error,
) {
	if participants, err = uow.GetAs[participantRepository](tx, pgrepo.ParticipantRepoName); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("participants repository: %w", err)
	}
	if booths, err = uow.GetAs[boothRepository](tx, pgrepo.BoothRepoName); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("booths repository: %w", err)
	}
	if products, err = uow.GetAs[productRepository](tx, pgrepo.ProductRepoName); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("products repository: %w", err)
	}
	if transactions, err = uow.GetAs[transactionRepository](tx, pgrepo.TransactionRepoName); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("transactions repository: %w", err)
	}
	return participants, booths, products, transactions, nil
}

// списки ключей не должны быть nil: NULL в "= ANY($1)" не удалил бы ничего.

func participantIDs(list []domain.Participant) []string {
	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	return ids
}

func transactionIDs(list []domain.Transaction) []string {
	ids := make([]string, 0, len(list))
	for _, t := range list {
		ids = append(ids, t.ID)
	}
	return ids
}

func boothNames(list []domain.Booth) []string {
	names := make([]string, 0, len(list))
	for _, b := range list {
		names = append(names, b.Name)
	}
	return names
}

func productIDs(list []domain.Product) []string {
	ids := make([]string, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	return ids
}
