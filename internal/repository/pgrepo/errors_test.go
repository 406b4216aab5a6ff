package pgrepo

import (
	"errors"
	"testing"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestConvertErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: domain.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: uniqueViolationCode}, want: domain.ErrDuplicateKey},
		{name: "other pg error", err: &pgconn.PgError{Code: "42P01"}, want: domain.ErrIO},
		{name: "network", err: errors.New("connection reset"), want: domain.ErrIO},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := convertErr(c.err, "participants %s", "upsert")
			require.ErrorIs(t, got, c.want)
			require.Contains(t, got.Error(), "participants upsert")
		})
	}
	require.NoError(t, convertErr(nil, "noop"))
}
