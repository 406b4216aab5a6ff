package domain

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

func (t TransactionType) Valid() bool {
	return t == TransactionCredit || t == TransactionDebit
}

// InitialLoadDescription описание кредитной транзакции, создаваемой при регистрации
// участника с ненулевым начальным балансом.
const InitialLoadDescription = "initial load"

type EntityKind string

const (
	EntityParticipant EntityKind = "participant"
	EntityTransaction EntityKind = "transaction"
	EntityBooth       EntityKind = "booth"
	EntityProduct     EntityKind = "product"
)

type OperationKind string

const (
	OperationAdded   OperationKind = "added"
	OperationUpdated OperationKind = "updated"
)
