package uow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	conn DBTX
}

func fakeFactory(conn DBTX) Repository {
	return &fakeRepo{conn: conn}
}

func TestRegister(t *testing.T) {
	u := NewUnitOfWork(nil)
	require.NoError(t, u.Register("fake", fakeFactory))
	require.ErrorIs(t, u.Register("fake", fakeFactory), ErrRepositoryAlreadyRegistered)

	_, err := u.GetRepository("missing")
	require.ErrorIs(t, err, ErrRepositoryNotRegistered)

	repo, err := GetRepositoryAs[*fakeRepo](u, "fake")
	require.NoError(t, err)
	require.NotNil(t, repo)

	_, err = GetRepositoryAs[string](u, "fake")
	require.ErrorIs(t, err, ErrInvalidRepositoryType)
}

func TestTransactionGet(t *testing.T) {
	tx := NewTransaction(nil, map[RepositoryName]RepositoryFactory{"fake": fakeFactory})

	repo, err := GetAs[*fakeRepo](tx, "fake")
	require.NoError(t, err)
	require.NotNil(t, repo)

	_, err = GetAs[*fakeRepo](tx, "missing")
	require.ErrorIs(t, err, ErrRepositoryNotRegistered)

	_, err = GetAs[int](tx, "fake")
	require.ErrorIs(t, err, ErrInvalidRepositoryType)
}
