package protocol

import (
	"testing"
	"time"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/replication"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ProtocolTestSuite struct {
	suite.Suite
}

func TestProtocolSuite(t *testing.T) {
	suite.Run(t, new(ProtocolTestSuite))
}

func (s *ProtocolTestSuite) TestDecodeTypes() {
	cases := []struct {
		name     string
		raw      string
		wantType Type
		wantErr  error
	}{
		{name: "hello", raw: `{"type":"client-hello","payload":{"nodeId":"n1"}}`, wantType: TypeClientHello},
		{name: "bye without payload", raw: `{"type":"client-bye"}`, wantType: TypeClientBye},
		{name: "transaction", raw: `{"type":"transaction-added","payload":{"id":"t1","type":"credit","amount":"10.5"}}`, wantType: TypeTransactionAdded},
		{name: "participant updated", raw: `{"type":"participant-updated","payload":{"id":"p1","cardNumber":"C"}}`, wantType: TypeParticipantUpdated},
		{name: "booth added", raw: `{"type":"booth-added","payload":{"id":"b1","name":"bar"}}`, wantType: TypeBoothAdded},
		{name: "product updated", raw: `{"type":"product-updated","payload":{"id":"x","price":"1"}}`, wantType: TypeProductUpdated},
		{name: "snapshot", raw: `{"type":"snapshot","payload":{"nodeId":"n1","participants":[]}}`, wantType: TypeSnapshot},
		{name: "unknown", raw: `{"type":"balance-changed","payload":{}}`, wantErr: ErrUnknownMessage},
		{name: "broken json", raw: `{"type":`, wantErr: ErrMalformedMessage},
		{name: "missing payload", raw: `{"type":"transaction-added"}`, wantErr: ErrMalformedMessage},
	}

	for _, c := range cases {
		s.Run(c.name, func() {
			msg, err := Decode([]byte(c.raw))
			s.Require().ErrorIs(err, c.wantErr)
			if c.wantErr == nil {
				s.Equal(c.wantType, msg.Type())
			}
		})
	}
}

func (s *ProtocolTestSuite) TestTransactionEnvelope() {
	tx := domain.Transaction{
		ID:            "t1",
		ParticipantID: "p1",
		Type:          domain.TransactionDebit,
		Amount:        decimal.RequireFromString("12.30"),
		Booth:         "bar",
		Timestamp:     time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
		Origin:        "n1",
	}
	data, err := Encode(TransactionAdded{Transaction: tx})
	s.Require().NoError(err)
	s.Contains(string(data), `"type":"transaction-added"`)
	s.Contains(string(data), `"amount":"12.3"`)

	msg, err := Decode(data)
	s.Require().NoError(err)
	got, ok := msg.(TransactionAdded)
	s.Require().True(ok)
	s.Equal(tx.ID, got.Transaction.ID)
	s.True(tx.Amount.Equal(got.Transaction.Amount))
	s.True(tx.Timestamp.Equal(got.Transaction.Timestamp))
}

func (s *ProtocolTestSuite) TestFromEntry() {
	p := domain.Participant{ID: "p1", CardNumber: "C"}
	msg, err := FromEntry(replication.ParticipantEntry(domain.OperationUpdated, p, "n1", ""))
	s.Require().NoError(err)
	s.Equal(TypeParticipantUpdated, msg.Type())

	msg, err = FromEntry(replication.BoothEntry(domain.OperationAdded, domain.Booth{ID: "b"}, "n1", ""))
	s.Require().NoError(err)
	s.Equal(TypeBoothAdded, msg.Type())

	_, err = FromEntry(replication.Entry{EntityKind: domain.EntityProduct})
	s.Require().ErrorIs(err, ErrUnknownMessage)
}
