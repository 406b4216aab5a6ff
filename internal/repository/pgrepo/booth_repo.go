package pgrepo

import (
	"context"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const (
	boothsSelectAll = `
SELECT id, name, is_active, total_sales, created_at, updated_at
FROM booths
ORDER BY name`

	// точка продаж определяется названием, id может смениться при слиянии узлов.
	boothUpsert = `
INSERT INTO booths (id, name, is_active, total_sales, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name) DO UPDATE SET
	id = EXCLUDED.id,
	is_active = EXCLUDED.is_active,
	total_sales = EXCLUDED.total_sales,
	created_at = EXCLUDED.created_at,
	updated_at = EXCLUDED.updated_at`

	boothsDeleteExcept = `DELETE FROM booths WHERE NOT (name = ANY($1))`
)

type BoothRepository struct {
	conn uow.DBTX
}

func NewBoothRepository(conn uow.DBTX) *BoothRepository {
	return &BoothRepository{conn: conn}
}

func (r *BoothRepository) All(ctx context.Context) ([]domain.Booth, error) {
	rows, err := r.conn.Query(ctx, boothsSelectAll)
	if err != nil {
		return nil, convertErr(err, "selecting booths")
	}
	res, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Booth, error) {
		var b domain.Booth
		scanErr := row.Scan(&b.ID, &b.Name, &b.IsActive, &b.TotalSales, &b.CreatedAt, &b.UpdatedAt)
		return b, scanErr
	})
	if err != nil {
		return nil, convertErr(err, "scanning booths")
	}
	return res, nil
}

func (r *BoothRepository) UpsertBatch(ctx context.Context, booths []domain.Booth) error {
	batch := new(pgx.Batch)
	for _, b := range booths {
		batch.Queue(boothUpsert, b.ID, b.Name, b.IsActive, b.TotalSales, b.CreatedAt, b.UpdatedAt)
	}
	return execBatch(ctx, r.conn, batch, "booths upsert")
}

// DeleteExcept удаляет точки продаж, названий которых нет в names.
func (r *BoothRepository) DeleteExcept(ctx context.Context, names []string) error {
	if _, err := r.conn.Exec(ctx, boothsDeleteExcept, names); err != nil {
		return convertErr(err, "deleting booths")
	}
	return nil
}
