package replication

import (
	"time"

	"github.com/fsdevblog/festwallet/internal/domain"
)

// Entry запись журнала изменений. Из указателей на сущности заполнен ровно один,
// соответствующий EntityKind.
type Entry struct {
	Seq        uint64
	EntityKind domain.EntityKind
	Operation  domain.OperationKind
	// Origin узел, на котором изменение возникло впервые.
	Origin string
	// Via узел, от которого изменение получено. Пусто для локальных изменений.
	Via       string
	CreatedAt time.Time

	Participant *domain.Participant
	Transaction *domain.Transaction
	Booth       *domain.Booth
	Product     *domain.Product
}

// FromPeer сообщает, нужно ли пропустить запись при отправке узлу peerID: узлу не отправляются
// его собственные изменения и изменения, полученные от него же.
func (e Entry) FromPeer(peerID string) bool {
	return peerID != "" && (e.Origin == peerID || e.Via == peerID)
}

func ParticipantEntry(op domain.OperationKind, p domain.Participant, origin, via string) Entry {
	return Entry{
		EntityKind:  domain.EntityParticipant,
		Operation:   op,
		Origin:      origin,
		Via:         via,
		Participant: &p,
	}
}

func TransactionEntry(t domain.Transaction, via string) Entry {
	return Entry{
		EntityKind:  domain.EntityTransaction,
		Operation:   domain.OperationAdded,
		Origin:      t.Origin,
		Via:         via,
		Transaction: &t,
	}
}

func BoothEntry(op domain.OperationKind, b domain.Booth, origin, via string) Entry {
	return Entry{
		EntityKind: domain.EntityBooth,
		Operation:  op,
		Origin:     origin,
		Via:        via,
		Booth:      &b,
	}
}

func ProductEntry(op domain.OperationKind, p domain.Product, origin, via string) Entry {
	return Entry{
		EntityKind: domain.EntityProduct,
		Operation:  op,
		Origin:     origin,
		Via:        via,
		Product:    &p,
	}
}
