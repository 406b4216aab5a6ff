package pgrepo

import (
	"context"

	"github.com/fsdevblog/festwallet/pkg/uow"
	"github.com/jackc/pgx/v5"
)

// execBatch отправляет batch одним обращением к базе и возвращает первую ошибку.
func execBatch(ctx context.Context, conn uow.DBTX, batch *pgx.Batch, what string) (err error) {
	if batch.Len() == 0 {
		return nil
	}
	br := conn.SendBatch(ctx, batch)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = convertErr(closeErr, "closing %s batch", what)
		}
	}()

	for i := range batch.Len() {
		if _, execErr := br.Exec(); execErr != nil {
			return convertErr(execErr, "%s batch item %d", what, i)
		}
	}
	return nil
}
