package filestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type FileStoreTestSuite struct {
	suite.Suite
	dir   string
	store *Store
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreTestSuite))
}

func (s *FileStoreTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.store = New(filepath.Join(s.dir, "state", "ledger.json"))
}

func (s *FileStoreTestSuite) TestLoadMissingFile() {
	_, err := s.store.Load(s.T().Context())
	s.Require().ErrorIs(err, persistence.ErrEmpty)
}

func (s *FileStoreTestSuite) TestSaveThenLoad() {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	snap := domain.Snapshot{
		NodeID: "node-a",
		Participants: []domain.Participant{{
			ID: "p1", CardNumber: "C1", Balance: decimal.RequireFromString("12.50"), IsActive: true,
			CreatedAt: now, UpdatedAt: now,
		}},
		Transactions: []domain.Transaction{{
			ID: "t1", ParticipantID: "p1", Type: domain.TransactionCredit,
			Amount: decimal.RequireFromString("12.50"), Timestamp: now, Origin: "node-a",
		}},
	}
	s.Require().NoError(s.store.Save(s.T().Context(), snap))

	loaded, err := s.store.Load(s.T().Context())
	s.Require().NoError(err)
	s.Require().Len(loaded.Participants, 1)
	s.Require().Len(loaded.Transactions, 1)
	s.Equal("C1", loaded.Participants[0].CardNumber)
	s.True(loaded.Participants[0].Balance.Equal(decimal.RequireFromString("12.5")))
	s.True(loaded.Transactions[0].Timestamp.Equal(now))
	s.Equal("node-a", loaded.Transactions[0].Origin)

	// временные файлы не остаются рядом с целевым.
	entries, err := os.ReadDir(filepath.Join(s.dir, "state"))
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *FileStoreTestSuite) TestSaveOverwrites() {
	ctx := s.T().Context()
	s.Require().NoError(s.store.Save(ctx, domain.Snapshot{Booths: []domain.Booth{{ID: "b1", Name: "bar"}}}))
	s.Require().NoError(s.store.Save(ctx, domain.Snapshot{Booths: []domain.Booth{{ID: "b2", Name: "food"}}}))

	loaded, err := s.store.Load(ctx)
	s.Require().NoError(err)
	s.Require().Len(loaded.Booths, 1)
	s.Equal("food", loaded.Booths[0].Name)
}

func (s *FileStoreTestSuite) TestEmptySnapshotLoadsAsEmpty() {
	s.Require().NoError(s.store.Save(s.T().Context(), domain.Snapshot{NodeID: "node-a"}))
	_, err := s.store.Load(s.T().Context())
	s.Require().ErrorIs(err, persistence.ErrEmpty)
}

func (s *FileStoreTestSuite) TestCorruptedFile() {
	path := filepath.Join(s.dir, "broken.json")
	s.Require().NoError(os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(path).Load(s.T().Context())
	s.Require().ErrorIs(err, domain.ErrIO)
}
