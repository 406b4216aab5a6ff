package pgrepo

import (
	"fmt"

	"github.com/fsdevblog/festwallet/pkg/uow"
)

const (
	ParticipantRepoName uow.RepositoryName = "participants"
	TransactionRepoName uow.RepositoryName = "transactions"
	BoothRepoName       uow.RepositoryName = "booths"
	ProductRepoName     uow.RepositoryName = "products"
)

// Register регистрирует все репозитории пакета в unit of work.
func Register(u uow.UOW) error {
	factories := map[uow.RepositoryName]uow.RepositoryFactory{
		ParticipantRepoName: func(conn uow.DBTX) uow.Repository { return NewParticipantRepository(conn) },
		TransactionRepoName: func(conn uow.DBTX) uow.Repository { return NewTransactionRepository(conn) },
		BoothRepoName:       func(conn uow.DBTX) uow.Repository { return NewBoothRepository(conn) },
		ProductRepoName:     func(conn uow.DBTX) uow.Repository { return NewProductRepository(conn) },
	}
	for name, factory := range factories {
		if err := u.Register(name, factory); err != nil {
			return fmt.Errorf("register %s repository: %w", name, err)
		}
	}
	return nil
}
