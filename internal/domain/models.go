package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Participant владелец карты/браслета. Balance производное значение и пересчитывается только
// через транзакции.
type Participant struct {
	ID             string          `json:"id"`
	CardNumber     string          `json:"cardNumber"`
	Name           string          `json:"name"`
	Balance        decimal.Decimal `json:"balance"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	IsActive       bool            `json:"isActive"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Transaction неизменяемая запись журнала.
type Transaction struct {
	ID            string          `json:"id"`
	ParticipantID string          `json:"participantId"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Booth         string          `json:"booth,omitempty"`
	OperatorName  string          `json:"operatorName"`
	Timestamp     time.Time       `json:"timestamp"`
	Origin        string          `json:"origin"`
}

// Signed возвращает сумму транзакции со знаком: кредит увеличивает баланс, дебет уменьшает.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

type Booth struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	IsActive   bool            `json:"isActive"`
	TotalSales decimal.Decimal `json:"totalSales"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Booth     string          `json:"booth"`
	IsActive  bool            `json:"isActive"`
	IsFree    bool            `json:"isFree"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Snapshot полная копия коллекций узла. Используется при синхронизации и для хранения.
type Snapshot struct {
	NodeID       string        `json:"nodeId"`
	TakenAt      time.Time     `json:"takenAt"`
	Participants []Participant `json:"participants"`
	Transactions []Transaction `json:"transactions"`
	Booths       []Booth       `json:"booths"`
	Products     []Product     `json:"products"`
}

// IsEmpty сообщает, что в снимке нет ни одной сущности.
func (s *Snapshot) IsEmpty() bool {
	return s == nil ||
		len(s.Participants) == 0 && len(s.Transactions) == 0 && len(s.Booths) == 0 && len(s.Products) == 0
}
