package pgrepo

import (
	"context"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const (
	transactionsSelectAll = `
SELECT id, participant_id, type, amount, description, booth, operator_name, timestamp, origin
FROM transactions
ORDER BY timestamp, id`

	// транзакции неизменяемы, повторная вставка ничего не меняет.
	transactionInsert = `
INSERT INTO transactions (id, participant_id, type, amount, description, booth, operator_name, timestamp, origin)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO NOTHING`

	transactionsDeleteExcept = `DELETE FROM transactions WHERE NOT (id = ANY($1))`
)

type TransactionRepository struct {
	conn uow.DBTX
}

func NewTransactionRepository(conn uow.DBTX) *TransactionRepository {
	return &TransactionRepository{conn: conn}
}

func (r *TransactionRepository) All(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := r.conn.Query(ctx, transactionsSelectAll)
	if err != nil {
		return nil, convertErr(err, "selecting transactions")
	}
	res, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Transaction, error) {
		var t domain.Transaction
		var txType string
		scanErr := row.Scan(&t.ID, &t.ParticipantID, &txType, &t.Amount, &t.Description, &t.Booth,
			&t.OperatorName, &t.Timestamp, &t.Origin)
		t.Type = domain.TransactionType(txType)
		return t, scanErr
	})
	if err != nil {
		return nil, convertErr(err, "scanning transactions")
	}
	return res, nil
}

func (r *TransactionRepository) InsertBatch(ctx context.Context, transactions []domain.Transaction) error {
	batch := new(pgx.Batch)
	for _, t := range transactions {
		batch.Queue(transactionInsert, t.ID, t.ParticipantID, string(t.Type), t.Amount, t.Description,
			t.Booth, t.OperatorName, t.Timestamp, t.Origin)
	}
	return execBatch(ctx, r.conn, batch, "transactions insert")
}

// DeleteExcept удаляет транзакции, которых нет в ids. Нужно после принудительного удаления участника.
func (r *TransactionRepository) DeleteExcept(ctx context.Context, ids []string) error {
	if _, err := r.conn.Exec(ctx, transactionsDeleteExcept, ids); err != nil {
		return convertErr(err, "deleting transactions")
	}
	return nil
}
