// Package persistence сохраняет состояние ledger между запусками узла. Хранилище
// вторично: память узла авторитетна, ошибки записи не откатывают изменений.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/ledger"
	"github.com/sirupsen/logrus"
)

// RestoreVia значение Via для изменений, восстановленных из хранилища.
const RestoreVia = "persistence"

var ErrEmpty = errors.New("persistence: nothing stored")

type Adapter interface {
	// Load возвращает ErrEmpty, если сохраненного состояния нет.
	Load(ctx context.Context) (*domain.Snapshot, error)
	Save(ctx context.Context, snap domain.Snapshot) error
}

// Merger часть ledger, в которую восстанавливается снимок.
type Merger interface {
	MergeSnapshot(snap domain.Snapshot, via string) ledger.MergeResult
}

// Restore загружает сохраненный снимок и сливает его с ledger. Пустое хранилище не ошибка.
func Restore(ctx context.Context, adapter Adapter, lg Merger, l *logrus.Logger) error {
	snap, err := adapter.Load(ctx)
	if errors.Is(err, ErrEmpty) {
		l.Info("no stored state, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	res := lg.MergeSnapshot(*snap, RestoreVia)
	l.WithFields(logrus.Fields{
		"participants": res.Participants,
		"transactions": res.Transactions,
		"booths":       res.Booths,
		"products":     res.Products,
	}).Info("state restored")
	return nil
}
