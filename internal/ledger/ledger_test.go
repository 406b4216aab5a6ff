package ledger

import (
	"io"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/replication"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type LedgerTestSuite struct {
	suite.Suite
	log    *replication.Log
	ledger *Ledger
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (s *LedgerTestSuite) SetupTest() {
	s.log = replication.NewLog()
	s.ledger = newTestLedger("node-a", s.log)
}

func newTestLedger(nodeID string, log *replication.Log) *Ledger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	var lg *Ledger
	if log == nil {
		lg = New(nodeID, nil, l)
	} else {
		lg = New(nodeID, log, l)
	}
	return lg.SetClock(steppingClock(time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)))
}

// steppingClock каждое обращение сдвигает время на миллисекунду.
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Millisecond)
		return current
	}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func (s *LedgerTestSuite) addParticipant(balance string) *domain.Participant {
	p, err := s.ledger.AddParticipant(ParticipantSpec{
		CardNumber:     gofakeit.Numerify("card-########"),
		Name:           gofakeit.Name(),
		InitialBalance: dec(balance),
		OperatorName:   "operator",
	})
	s.Require().NoError(err)
	return p
}

func (s *LedgerTestSuite) addBooth(name string) *domain.Booth {
	b, err := s.ledger.AddBooth(BoothSpec{Name: name})
	s.Require().NoError(err)
	return b
}

// snapshotState снимок без времени его создания, для сравнения состояний.
func snapshotState(lg *Ledger) domain.Snapshot {
	snap := lg.Snapshot()
	snap.TakenAt = time.Time{}
	return snap
}

func (s *LedgerTestSuite) TestAddParticipant() {
	existing := s.addParticipant("0")

	cases := []struct {
		name    string
		spec    ParticipantSpec
		wantErr error
		wantTx  int
	}{
		{name: "with initial balance", spec: ParticipantSpec{CardNumber: "A-1", InitialBalance: dec("50")}, wantTx: 1},
		{name: "zero initial balance", spec: ParticipantSpec{CardNumber: "A-2"}, wantTx: 0},
		{name: "blank card", spec: ParticipantSpec{CardNumber: "  "}, wantErr: domain.ErrInvalidCard},
		{name: "negative balance", spec: ParticipantSpec{CardNumber: "A-3", InitialBalance: dec("-1")}, wantErr: domain.ErrInvalidAmount},
		{name: "duplicate card", spec: ParticipantSpec{CardNumber: existing.CardNumber}, wantErr: domain.ErrDuplicateCard},
	}

	for _, c := range cases {
		s.Run(c.name, func() {
			before := s.log.Len()
			p, err := s.ledger.AddParticipant(c.spec)
			s.Require().ErrorIs(err, c.wantErr)
			if c.wantErr != nil {
				s.Nil(p)
				s.Equal(before, s.log.Len())
				return
			}
			s.True(p.Balance.Equal(c.spec.InitialBalance))
			s.True(p.IsActive)
			s.Len(s.ledger.Transactions(TransactionFilter{ParticipantID: p.ID}), c.wantTx)
			// participant-added плюс транзакция начальной загрузки.
			s.Equal(before+1+c.wantTx, s.log.Len())

			found, lookupErr := s.ledger.LookupByCard(c.spec.CardNumber)
			s.Require().NoError(lookupErr)
			s.Equal(p.ID, found.ID)
			s.True(found.Balance.Equal(c.spec.InitialBalance))
		})
	}
	s.Require().NoError(s.ledger.Verify())
}

func (s *LedgerTestSuite) TestTopUpAndPurchaseScenario() {
	ctx := s.T().Context()
	s.addBooth("bar")
	p := s.addParticipant("50")

	_, err := s.ledger.ApplyTransaction(ctx, TransactionSpec{
		ParticipantID: p.ID, Type: domain.TransactionCredit, Amount: dec("20"), OperatorName: "op",
	})
	s.Require().NoError(err)
	got, _ := s.ledger.Participant(p.ID)
	s.True(got.Balance.Equal(dec("70")))

	_, err = s.ledger.ApplyTransaction(ctx, TransactionSpec{
		ParticipantID: p.ID, Type: domain.TransactionDebit, Amount: dec("30"), Booth: "bar",
	})
	s.Require().NoError(err)
	got, _ = s.ledger.Participant(p.ID)
	s.True(got.Balance.Equal(dec("40")))
	booth, _ := s.ledger.Booth("bar")
	s.True(booth.TotalSales.Equal(dec("30")))

	before := snapshotState(s.ledger)
	logLen := s.log.Len()
	_, err = s.ledger.ApplyTransaction(ctx, TransactionSpec{
		ParticipantID: p.ID, Type: domain.TransactionDebit, Amount: dec("50"), Booth: "bar",
	})
	s.Require().ErrorIs(err, domain.ErrInsufficientBalance)
	s.Equal(before, snapshotState(s.ledger))
	s.Equal(logLen, s.log.Len())

	s.Len(s.ledger.Transactions(TransactionFilter{ParticipantID: p.ID}), 3)
	s.Require().NoError(s.ledger.Verify())
}

func (s *LedgerTestSuite) TestApplyTransactionValidation() {
	ctx := s.T().Context()
	s.addBooth("bar")
	closed := s.addBooth("closed")
	_, err := s.ledger.SetBoothActive(closed.Name, false)
	s.Require().NoError(err)

	active := s.addParticipant("100")
	inactive := s.addParticipant("100")
	off := false
	_, err = s.ledger.UpdateParticipant(inactive.ID, ParticipantUpdate{IsActive: &off})
	s.Require().NoError(err)

	cases := []struct {
		name    string
		spec    TransactionSpec
		wantErr error
	}{
		{name: "zero amount", spec: TransactionSpec{ParticipantID: active.ID, Type: domain.TransactionCredit, Amount: dec("0")}, wantErr: domain.ErrInvalidAmount},
		{name: "negative amount", spec: TransactionSpec{ParticipantID: active.ID, Type: domain.TransactionDebit, Amount: dec("-5")}, wantErr: domain.ErrInvalidAmount},
		{name: "unknown type", spec: TransactionSpec{ParticipantID: active.ID, Type: "refund", Amount: dec("5")}, wantErr: domain.ErrInvalidTransactionType},
		{name: "unknown participant", spec: TransactionSpec{ParticipantID: "missing", Type: domain.TransactionCredit, Amount: dec("5")}, wantErr: domain.ErrNotFound},
		{name: "inactive participant", spec: TransactionSpec{ParticipantID: inactive.ID, Type: domain.TransactionCredit, Amount: dec("5")}, wantErr: domain.ErrInactive},
		{name: "credit at booth", spec: TransactionSpec{ParticipantID: active.ID, Type: domain.TransactionCredit, Amount: dec("5"), Booth: "bar"}, wantErr: domain.ErrInvalidBooth},
		{name: "unknown booth", spec: TransactionSpec{ParticipantID: active.ID, Type: domain.TransactionDebit, Amount: dec("5"), Booth: "nope"}, wantErr: domain.ErrNotFound},
		{name: "inactive booth", spec: TransactionSpec{ParticipantID: active.ID, Type: domain.TransactionDebit, Amount: dec("5"), Booth: "closed"}, wantErr: domain.ErrInactive},
		{name: "debit whole balance", spec: TransactionSpec{ParticipantID: active.ID, Type: domain.TransactionDebit, Amount: dec("100"), Booth: "bar"}},
	}

	for _, c := range cases {
		s.Run(c.name, func() {
			before := snapshotState(s.ledger)
			tx, applyErr := s.ledger.ApplyTransaction(ctx, c.spec)
			s.Require().ErrorIs(applyErr, c.wantErr)
			if c.wantErr != nil {
				s.Nil(tx)
				s.Equal(before, snapshotState(s.ledger))
				return
			}
			s.Equal("node-a", tx.Origin)
			s.NotEmpty(tx.ID)
		})
	}
	s.Require().NoError(s.ledger.Verify())
}

func (s *LedgerTestSuite) TestApplyByCard() {
	p := s.addParticipant("10")
	tx, err := s.ledger.ApplyByCard(s.T().Context(), " "+p.CardNumber+" ", TransactionSpec{
		Type: domain.TransactionCredit, Amount: dec("5"),
	})
	s.Require().NoError(err)
	s.Equal(p.ID, tx.ParticipantID)

	_, err = s.ledger.ApplyByCard(s.T().Context(), "unknown", TransactionSpec{
		Type: domain.TransactionCredit, Amount: dec("5"),
	})
	s.Require().ErrorIs(err, domain.ErrNotFound)
}

func (s *LedgerTestSuite) TestPurchase() {
	ctx := s.T().Context()
	s.addBooth("bar")
	s.addBooth("food")
	beer, err := s.ledger.AddProduct(ProductSpec{Name: "beer", Price: dec("4.50"), Booth: "bar"})
	s.Require().NoError(err)
	water, err := s.ledger.AddProduct(ProductSpec{Name: "water", Price: dec("0"), Booth: "bar"})
	s.Require().NoError(err)
	s.True(water.IsFree)
	burger, err := s.ledger.AddProduct(ProductSpec{Name: "burger", Price: dec("8"), Booth: "food"})
	s.Require().NoError(err)
	_, err = s.ledger.AddProduct(ProductSpec{Name: "ghost", Price: dec("1"), Booth: "missing"})
	s.Require().ErrorIs(err, domain.ErrNotFound)

	p := s.addParticipant("20")

	cases := []struct {
		name       string
		items      []PurchaseItem
		wantErr    error
		wantAmount string
	}{
		{name: "ok", items: []PurchaseItem{{ProductID: beer.ID, Quantity: 2}, {ProductID: water.ID, Quantity: 1}}, wantAmount: "9"},
		{name: "no items", items: nil, wantErr: domain.ErrInvalidPurchase},
		{name: "zero quantity", items: []PurchaseItem{{ProductID: beer.ID, Quantity: 0}}, wantErr: domain.ErrInvalidPurchase},
		{name: "mixed booths", items: []PurchaseItem{{ProductID: beer.ID, Quantity: 1}, {ProductID: burger.ID, Quantity: 1}}, wantErr: domain.ErrInvalidPurchase},
		{name: "free only", items: []PurchaseItem{{ProductID: water.ID, Quantity: 3}}, wantErr: domain.ErrInvalidAmount},
		{name: "unknown product", items: []PurchaseItem{{ProductID: "missing", Quantity: 1}}, wantErr: domain.ErrNotFound},
		{name: "over balance", items: []PurchaseItem{{ProductID: burger.ID, Quantity: 2}}, wantErr: domain.ErrInsufficientBalance},
	}

	for _, c := range cases {
		s.Run(c.name, func() {
			tx, purchaseErr := s.ledger.Purchase(ctx, PurchaseSpec{CardNumber: p.CardNumber, Items: c.items, OperatorName: "op"})
			s.Require().ErrorIs(purchaseErr, c.wantErr)
			if c.wantErr == nil {
				s.True(tx.Amount.Equal(dec(c.wantAmount)))
				s.Equal(domain.TransactionDebit, tx.Type)
				s.Equal("bar", tx.Booth)
				s.Contains(tx.Description, "2x beer")
			}
		})
	}

	_, err = s.ledger.SetProductActive(beer.ID, false)
	s.Require().NoError(err)
	_, err = s.ledger.Purchase(ctx, PurchaseSpec{CardNumber: p.CardNumber, Items: []PurchaseItem{{ProductID: beer.ID, Quantity: 1}}})
	s.Require().ErrorIs(err, domain.ErrInactive)

	bar, _ := s.ledger.Booth("bar")
	s.True(bar.TotalSales.Equal(dec("9")))
	s.Len(s.ledger.Products("bar"), 2)
	s.Require().NoError(s.ledger.Verify())
}

func (s *LedgerTestSuite) TestAddBooth() {
	s.addBooth("bar")
	_, err := s.ledger.AddBooth(BoothSpec{Name: "bar"})
	s.Require().ErrorIs(err, domain.ErrDuplicateBooth)
	_, err = s.ledger.AddBooth(BoothSpec{Name: ""})
	s.Require().ErrorIs(err, domain.ErrInvalidBooth)
	s.Len(s.ledger.Booths(), 1)
}

func (s *LedgerTestSuite) TestReplicatedIsIdempotent() {
	p := s.addParticipant("10")
	tx := domain.Transaction{
		ID:            "tx-remote",
		ParticipantID: p.ID,
		Type:          domain.TransactionCredit,
		Amount:        dec("15"),
		Timestamp:     time.Now().UTC(),
		Origin:        "node-b",
	}

	applied, err := s.ledger.ApplyReplicated(tx, "node-b")
	s.Require().NoError(err)
	s.True(applied)
	logLen := s.log.Len()

	for range 3 {
		applied, err = s.ledger.ApplyReplicated(tx, "node-b")
		s.Require().NoError(err)
		s.False(applied)
	}
	s.Equal(logLen, s.log.Len())

	got, _ := s.ledger.Participant(p.ID)
	s.True(got.Balance.Equal(dec("25")))

	last := s.log.Since(uint64(logLen - 1)) //nolint:gosec
	s.Require().Len(last, 1)
	s.Equal("node-b", last[0].Origin)
	s.Equal("node-b", last[0].Via)
}

func (s *LedgerTestSuite) TestReplicatedBeforeParticipant() {
	remote := newTestLedger("node-b", nil)
	p, err := remote.AddParticipant(ParticipantSpec{CardNumber: "B-1", InitialBalance: dec("30")})
	s.Require().NoError(err)
	txs := remote.Transactions(TransactionFilter{ParticipantID: p.ID})
	s.Require().Len(txs, 1)

	applied, err := s.ledger.ApplyReplicated(txs[0], "node-b")
	s.Require().NoError(err)
	s.False(applied)
	s.Equal(1, s.ledger.PendingCount())
	s.Empty(s.ledger.Transactions(TransactionFilter{}))

	s.True(s.ledger.MergeParticipant(*p, "node-b"))
	s.Equal(0, s.ledger.PendingCount())
	got, err := s.ledger.LookupByCard("B-1")
	s.Require().NoError(err)
	s.True(got.Balance.Equal(dec("30")))
	s.Require().NoError(s.ledger.Verify())
}

func (s *LedgerTestSuite) TestReplicatedDebitMayOverdraw() {
	p := s.addParticipant("10")
	_, err := s.ledger.ApplyReplicated(domain.Transaction{
		ID:            "remote-debit",
		ParticipantID: p.ID,
		Type:          domain.TransactionDebit,
		Amount:        dec("25"),
		Origin:        "node-b",
	}, "node-b")
	s.Require().NoError(err)

	got, _ := s.ledger.Participant(p.ID)
	s.True(got.Balance.Equal(dec("-15")))
	s.Require().NoError(s.ledger.Verify())
}

func (s *LedgerTestSuite) TestMergeConvergesRegardlessOfOrder() {
	ctx := s.T().Context()
	a := newTestLedger("node-a", nil)
	b := newTestLedger("node-b", nil)

	_, err := a.AddBooth(BoothSpec{Name: "bar"})
	s.Require().NoError(err)
	pa, err := a.AddParticipant(ParticipantSpec{CardNumber: "A", InitialBalance: dec("40")})
	s.Require().NoError(err)
	_, err = a.ApplyTransaction(ctx, TransactionSpec{ParticipantID: pa.ID, Type: domain.TransactionDebit, Amount: dec("5"), Booth: "bar"})
	s.Require().NoError(err)

	_, err = b.AddBooth(BoothSpec{Name: "bar"})
	s.Require().NoError(err)
	pb, err := b.AddParticipant(ParticipantSpec{CardNumber: "B", InitialBalance: dec("25")})
	s.Require().NoError(err)
	_, err = b.ApplyTransaction(ctx, TransactionSpec{ParticipantID: pb.ID, Type: domain.TransactionDebit, Amount: dec("7"), Booth: "bar"})
	s.Require().NoError(err)

	snapA, snapB := a.Snapshot(), b.Snapshot()

	// каждый узел получает снимок другого, затем повторно свой же обратно.
	a.MergeSnapshot(snapB, "node-b")
	b.MergeSnapshot(snapA, "node-a")
	s.False(a.MergeSnapshot(snapB, "node-b").Changed())
	s.False(b.MergeSnapshot(b.Snapshot(), "node-a").Changed())

	// третий узел получает снимки в обратном порядке.
	c := newTestLedger("node-c", nil)
	c.MergeSnapshot(snapB, "node-b")
	c.MergeSnapshot(snapA, "node-a")

	for _, lg := range []*Ledger{a, b, c} {
		s.Require().NoError(lg.Verify())
	}
	stateA, stateB, stateC := snapshotState(a), snapshotState(b), snapshotState(c)
	s.Equal(stateA.Participants, stateB.Participants)
	s.Equal(stateA.Participants, stateC.Participants)
	s.Equal(stateA.Booths, stateB.Booths)
	s.Equal(stateA.Booths, stateC.Booths)
	s.ElementsMatch(stateA.Transactions, stateB.Transactions)
	s.ElementsMatch(stateA.Transactions, stateC.Transactions)

	bar, err := c.Booth("bar")
	s.Require().NoError(err)
	s.True(bar.TotalSales.Equal(dec("12")))
}

func (s *LedgerTestSuite) TestMergeParticipantLastWriterWins() {
	p := s.addParticipant("0")

	older := *p
	older.Name = "older"
	older.UpdatedAt = p.UpdatedAt.Add(-time.Second)
	s.False(s.ledger.MergeParticipant(older, "node-b"))

	newer := *p
	newer.Name = "newer"
	newer.Balance = dec("1000")
	newer.UpdatedAt = p.UpdatedAt.Add(time.Second)
	s.True(s.ledger.MergeParticipant(newer, "node-b"))

	got, _ := s.ledger.Participant(p.ID)
	s.Equal("newer", got.Name)
	s.True(got.Balance.IsZero())

	tie := *got
	tie.IsActive = false
	s.True(s.ledger.MergeParticipant(tie, "node-b"))
	got, _ = s.ledger.Participant(p.ID)
	s.False(got.IsActive)

	tie.IsActive = true
	s.False(s.ledger.MergeParticipant(tie, "node-b"))
}

func (s *LedgerTestSuite) TestMergeCardConflictKeepsBoth() {
	local, err := s.ledger.AddParticipant(ParticipantSpec{CardNumber: "SAME"})
	s.Require().NoError(err)

	remote := domain.Participant{
		ID:         "00000000-0000-4000-8000-000000000000",
		CardNumber: "SAME",
		Name:       "remote",
		IsActive:   true,
		CreatedAt:  local.CreatedAt.Add(-time.Minute),
		UpdatedAt:  local.CreatedAt.Add(-time.Minute),
	}
	s.True(s.ledger.MergeParticipant(remote, "node-b"))
	s.Len(s.ledger.Participants(), 2)

	owner, err := s.ledger.LookupByCard("SAME")
	s.Require().NoError(err)
	s.Equal(remote.ID, owner.ID)

	s.Require().NoError(s.ledger.DeleteParticipant(remote.ID, false))
	owner, err = s.ledger.LookupByCard("SAME")
	s.Require().NoError(err)
	s.Equal(local.ID, owner.ID)
}

func (s *LedgerTestSuite) TestMergeBoothConvergesToSmallerID() {
	b := s.addBooth("bar")
	remote := *b
	remote.ID = "0"
	remote.TotalSales = dec("999")
	s.True(s.ledger.MergeBooth(remote, "node-b"))

	got, err := s.ledger.Booth("bar")
	s.Require().NoError(err)
	s.Equal("0", got.ID)
	s.True(got.TotalSales.IsZero())
	s.Len(s.ledger.Booths(), 1)
}

func (s *LedgerTestSuite) TestDeleteParticipant() {
	s.addBooth("bar")
	p := s.addParticipant("30")
	_, err := s.ledger.ApplyTransaction(s.T().Context(), TransactionSpec{
		ParticipantID: p.ID, Type: domain.TransactionDebit, Amount: dec("10"), Booth: "bar",
	})
	s.Require().NoError(err)

	s.Require().ErrorIs(s.ledger.DeleteParticipant(p.ID, false), domain.ErrReferencedEntity)
	s.Require().ErrorIs(s.ledger.DeleteParticipant("missing", true), domain.ErrNotFound)
	s.Require().NoError(s.ledger.DeleteParticipant(p.ID, true))

	_, err = s.ledger.LookupByCard(p.CardNumber)
	s.Require().ErrorIs(err, domain.ErrNotFound)
	s.Empty(s.ledger.Transactions(TransactionFilter{}))
	bar, _ := s.ledger.Booth("bar")
	s.True(bar.TotalSales.IsZero())
	s.Require().NoError(s.ledger.Verify())
}

func (s *LedgerTestSuite) TestDeleteBoothAndProduct() {
	s.addBooth("bar")
	s.addBooth("empty")
	pr, err := s.ledger.AddProduct(ProductSpec{Name: "beer", Price: dec("5"), Booth: "bar"})
	s.Require().NoError(err)
	p := s.addParticipant("30")
	_, err = s.ledger.ApplyTransaction(s.T().Context(), TransactionSpec{
		ParticipantID: p.ID, Type: domain.TransactionDebit, Amount: dec("5"), Booth: "bar",
	})
	s.Require().NoError(err)

	s.Require().NoError(s.ledger.DeleteBooth("empty", false))
	s.Require().ErrorIs(s.ledger.DeleteBooth("bar", false), domain.ErrReferencedEntity)
	s.Require().NoError(s.ledger.DeleteBooth("bar", true))
	s.Empty(s.ledger.Booths())
	s.Equal("bar", s.ledger.Transactions(TransactionFilter{})[1].Booth)

	s.Require().NoError(s.ledger.DeleteProduct(pr.ID))
	s.Require().ErrorIs(s.ledger.DeleteProduct(pr.ID), domain.ErrNotFound)
}

func (s *LedgerTestSuite) TestEveryMutationEmitsOneEntry() {
	s.addBooth("bar")
	s.Equal(1, s.log.Len())
	p := s.addParticipant("0")
	s.Equal(2, s.log.Len())
	_, err := s.ledger.ApplyTransaction(s.T().Context(), TransactionSpec{
		ParticipantID: p.ID, Type: domain.TransactionCredit, Amount: dec("1"),
	})
	s.Require().NoError(err)
	s.Equal(3, s.log.Len())

	entries := s.log.Since(0)
	s.Equal(domain.EntityBooth, entries[0].EntityKind)
	s.Equal(domain.EntityParticipant, entries[1].EntityKind)
	s.Equal(domain.EntityTransaction, entries[2].EntityKind)
	for _, e := range entries {
		s.Equal("node-a", e.Origin)
		s.Empty(e.Via)
	}

	snap, seq := s.ledger.SnapshotAt()
	s.Equal(uint64(3), seq)
	s.Len(snap.Transactions, 1)
}
