package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateCard          = errors.New("duplicate card number")
	ErrDuplicateBooth         = errors.New("duplicate booth name")
	ErrNotFound               = errors.New("not found")
	ErrInactive               = errors.New("inactive")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidCard            = errors.New("invalid card number")
	ErrInvalidBooth           = errors.New("invalid booth")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidPurchase        = errors.New("invalid purchase")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrReferencedEntity       = errors.New("entity is referenced by transactions")
	ErrInvariantViolation     = errors.New("ledger invariant violation")

	ErrBindFailed       = errors.New("bind failed")
	ErrHandshakeTimeout = errors.New("handshake timeout")
	ErrPeerUnreachable  = errors.New("peer unreachable")

	ErrIO           = errors.New("persistence io error")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrUnknown      = errors.New("unknown error")
)

// EntityError добавляет к ошибке бизнес-логики сущность, на которой она возникла.
type EntityError struct {
	Kind EntityKind
	Key  string
	Err  error
}

func NewEntityError(kind EntityKind, key string, err error) error {
	return &EntityError{Kind: kind, Key: key, Err: err}
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Kind, e.Key, e.Err.Error())
}

func (e *EntityError) Unwrap() error {
	return e.Err
}
