// Package protocol описывает сообщения синхронизации узлов. На проводе каждое сообщение
// это JSON-конверт {"type": ..., "payload": ...}.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/replication"
)

type Type string

const (
	TypeSnapshot           Type = "snapshot"
	TypeTransactionAdded   Type = "transaction-added"
	TypeParticipantAdded   Type = "participant-added"
	TypeParticipantUpdated Type = "participant-updated"
	TypeBoothAdded         Type = "booth-added"
	TypeBoothUpdated       Type = "booth-updated"
	TypeProductAdded       Type = "product-added"
	TypeProductUpdated     Type = "product-updated"
	TypeClientHello        Type = "client-hello"
	TypeClientBye          Type = "client-bye"
)

var (
	ErrUnknownMessage   = errors.New("unknown message type")
	ErrMalformedMessage = errors.New("malformed message")
)

type envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message сообщение протокола.
type Message interface {
	Type() Type
}

type Snapshot struct {
	Snapshot domain.Snapshot
}

type TransactionAdded struct {
	Transaction domain.Transaction
}

// ParticipantChanged participant-added или participant-updated, в зависимости от Updated.
type ParticipantChanged struct {
	Participant domain.Participant
	Updated     bool
}

type BoothChanged struct {
	Booth   domain.Booth
	Updated bool
}

type ProductChanged struct {
	Product domain.Product
	Updated bool
}

type ClientHello struct {
	NodeID string `json:"nodeId"`
}

type ClientBye struct {
	NodeID string `json:"nodeId"`
}

func (Snapshot) Type() Type         { return TypeSnapshot }
func (TransactionAdded) Type() Type { return TypeTransactionAdded }
func (ClientHello) Type() Type      { return TypeClientHello }
func (ClientBye) Type() Type        { return TypeClientBye }

func (m ParticipantChanged) Type() Type {
	if m.Updated {
		return TypeParticipantUpdated
	}
	return TypeParticipantAdded
}

func (m BoothChanged) Type() Type {
	if m.Updated {
		return TypeBoothUpdated
	}
	return TypeBoothAdded
}

func (m ProductChanged) Type() Type {
	if m.Updated {
		return TypeProductUpdated
	}
	return TypeProductAdded
}

// Encode сериализует сообщение в конверт.
func Encode(m Message) ([]byte, error) {
	var payload any
	switch msg := m.(type) {
	case Snapshot:
		payload = msg.Snapshot
	case TransactionAdded:
		payload = msg.Transaction
	case ParticipantChanged:
		payload = msg.Participant
	case BoothChanged:
		payload = msg.Booth
	case ProductChanged:
		payload = msg.Product
	case ClientHello, ClientBye:
		payload = msg
	default:
		return nil, fmt.Errorf("encoding %T: %w", m, ErrUnknownMessage)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", m.Type(), err)
	}
	data, err := json.Marshal(envelope{Type: m.Type(), Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", m.Type(), err)
	}
	return data, nil
}

// Decode разбирает конверт. Неизвестный тип возвращает ErrUnknownMessage, битый JSON
// ErrMalformedMessage.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	switch env.Type {
	case TypeSnapshot:
		var snap domain.Snapshot
		if err := decodePayload(env, &snap); err != nil {
			return nil, err
		}
		return Snapshot{Snapshot: snap}, nil
	case TypeTransactionAdded:
		var t domain.Transaction
		if err := decodePayload(env, &t); err != nil {
			return nil, err
		}
		return TransactionAdded{Transaction: t}, nil
	case TypeParticipantAdded, TypeParticipantUpdated:
		var p domain.Participant
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return ParticipantChanged{Participant: p, Updated: env.Type == TypeParticipantUpdated}, nil
	case TypeBoothAdded, TypeBoothUpdated:
		var b domain.Booth
		if err := decodePayload(env, &b); err != nil {
			return nil, err
		}
		return BoothChanged{Booth: b, Updated: env.Type == TypeBoothUpdated}, nil
	case TypeProductAdded, TypeProductUpdated:
		var p domain.Product
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		return ProductChanged{Product: p, Updated: env.Type == TypeProductUpdated}, nil
	case TypeClientHello:
		var hello ClientHello
		if err := decodePayload(env, &hello); err != nil {
			return nil, err
		}
		return hello, nil
	case TypeClientBye:
		var bye ClientBye
		if len(env.Payload) > 0 {
			if err := decodePayload(env, &bye); err != nil {
				return nil, err
			}
		}
		return bye, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}

func decodePayload(env envelope, dst any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: %s without payload", ErrMalformedMessage, env.Type)
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("%w: %s payload: %w", ErrMalformedMessage, env.Type, err)
	}
	return nil
}

// FromEntry переводит запись журнала в сообщение для пира.
func FromEntry(e replication.Entry) (Message, error) {
	updated := e.Operation == domain.OperationUpdated
	switch {
	case e.EntityKind == domain.EntityTransaction && e.Transaction != nil:
		return TransactionAdded{Transaction: *e.Transaction}, nil
	case e.EntityKind == domain.EntityParticipant && e.Participant != nil:
		return ParticipantChanged{Participant: *e.Participant, Updated: updated}, nil
	case e.EntityKind == domain.EntityBooth && e.Booth != nil:
		return BoothChanged{Booth: *e.Booth, Updated: updated}, nil
	case e.EntityKind == domain.EntityProduct && e.Product != nil:
		return ProductChanged{Product: *e.Product, Updated: updated}, nil
	default:
		return nil, fmt.Errorf("entry %d of kind %q: %w", e.Seq, e.EntityKind, ErrUnknownMessage)
	}
}
