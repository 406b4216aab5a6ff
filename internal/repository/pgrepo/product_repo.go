package pgrepo

import (
	"context"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/pkg/uow"
	"github.com/jackc/pgx/v5"
)

const (
	productsSelectAll = `
SELECT id, name, price, booth, is_active, created_at, updated_at
FROM products
ORDER BY booth, name, id`

	productUpsert = `
INSERT INTO products (id, name, price, booth, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	price = EXCLUDED.price,
	is_active = EXCLUDED.is_active,
	updated_at = EXCLUDED.updated_at`

	productsDeleteExcept = `DELETE FROM products WHERE NOT (id = ANY($1))`
)

type ProductRepository struct {
	conn uow.DBTX
}

func NewProductRepository(conn uow.DBTX) *ProductRepository {
	return &ProductRepository{conn: conn}
}

func (r *ProductRepository) All(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.conn.Query(ctx, productsSelectAll)
	if err != nil {
		return nil, convertErr(err, "selecting products")
	}
	res, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Product, error) {
		var p domain.Product
		scanErr := row.Scan(&p.ID, &p.Name, &p.Price, &p.Booth, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
		p.IsFree = p.Price.IsZero()
		return p, scanErr
	})
	if err != nil {
		return nil, convertErr(err, "scanning products")
	}
	return res, nil
}

func (r *ProductRepository) UpsertBatch(ctx context.Context, products []domain.Product) error {
	batch := new(pgx.Batch)
	for _, p := range products {
		batch.Queue(productUpsert, p.ID, p.Name, p.Price, p.Booth, p.IsActive, p.CreatedAt, p.UpdatedAt)
	}
	return execBatch(ctx, r.conn, batch, "products upsert")
}

func (r *ProductRepository) DeleteExcept(ctx context.Context, ids []string) error {
	if _, err := r.conn.Exec(ctx, productsDeleteExcept, ids); err != nil {
		return convertErr(err, "deleting products")
	}
	return nil
}
