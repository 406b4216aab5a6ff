package pgrepo

import (
	"context"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const (
	participantsSelectAll = `
SELECT id, card_number, name, balance, initial_balance, is_active, created_at, updated_at
FROM participants
ORDER BY created_at, id`

	participantUpsert = `
INSERT INTO participants (id, card_number, name, balance, initial_balance, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	balance = EXCLUDED.balance,
	is_active = EXCLUDED.is_active,
	updated_at = EXCLUDED.updated_at`

	participantsDeleteExcept = `DELETE FROM participants WHERE NOT (id = ANY($1))`
)

type ParticipantRepository struct {
	conn uow.DBTX
}

func NewParticipantRepository(conn uow.DBTX) *ParticipantRepository {
	return &ParticipantRepository{conn: conn}
}

func (r *ParticipantRepository) All(ctx context.Context) ([]domain.Participant, error) {
	rows, err := r.conn.Query(ctx, participantsSelectAll)
	if err != nil {
		return nil, convertErr(err, "selecting participants")
	}
	res, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Participant, error) {
		var p domain.Participant
		scanErr := row.Scan(&p.ID, &p.CardNumber, &p.Name, &p.Balance, &p.InitialBalance,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
		return p, scanErr
	})
	if err != nil {
		return nil, convertErr(err, "scanning participants")
	}
	return res, nil
}

// UpsertBatch вставляет новых участников и обновляет изменяемые поля существующих.
func (r *ParticipantRepository) UpsertBatch(ctx context.Context, participants []domain.Participant) error {
	batch := new(pgx.Batch)
	for _, p := range participants {
		batch.Queue(participantUpsert, p.ID, p.CardNumber, p.Name, p.Balance, p.InitialBalance,
			p.IsActive, p.CreatedAt, p.UpdatedAt)
	}
	return execBatch(ctx, r.conn, batch, "participants upsert")
}

// DeleteExcept удаляет участников, которых нет в ids.
func (r *ParticipantRepository) DeleteExcept(ctx context.Context, ids []string) error {
	if _, err := r.conn.Exec(ctx, participantsDeleteExcept, ids); err != nil {
		return convertErr(err, "deleting participants")
	}
	return nil
}
