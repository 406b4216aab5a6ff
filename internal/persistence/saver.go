package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/metrics"
	"github.com/fsdevblog/festwallet/internal/replication"
	"github.com/sirupsen/logrus"
)

const DefaultDebounce = 500 * time.Millisecond

type SnapshotSource interface {
	Snapshot() domain.Snapshot
}

type Feed interface {
	Subscribe(fromSeq uint64) *replication.Subscription
}

// Saver сохраняет снимок ledger после изменений. Изменения, пришедшие в течение окна
// debounce после первого, сохраняются одной записью.
type Saver struct {
	adapter  Adapter
	source   SnapshotSource
	feed     Feed
	l        *logrus.Entry
	debounce time.Duration

	mu sync.Mutex
}

func NewSaver(adapter Adapter, source SnapshotSource, feed Feed, l *logrus.Logger) *Saver {
	return &Saver{
		adapter: adapter,
		source:  source,
		feed:    feed,
		l: l.WithFields(logrus.Fields{
			"component": "persistence",
			"module":    "saver",
		}),
		debounce: DefaultDebounce,
	}
}

func (s *Saver) SetDebounce(d time.Duration) *Saver {
	if d > 0 {
		s.debounce = d
	}
	return s
}

// Run следит за журналом начиная после fromSeq до отмены контекста. Итоговую запись при
// остановке делает Flush.
func (s *Saver) Run(ctx context.Context, fromSeq uint64) {
	sub := s.feed.Subscribe(fromSeq)
	defer sub.Close()

	changed := make(chan struct{}, 1)
	go func() {
		for {
			if _, err := sub.Next(ctx); err != nil {
				return
			}
			select {
			case changed <- struct{}{}:
			default:
			}
		}
	}()

	s.l.WithField("debounce", s.debounce.String()).Info("Starting")
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.l.Info("Got stop signal, exiting...")
			return
		case <-changed:
			if fire == nil {
				timer = time.NewTimer(s.debounce)
				fire = timer.C
			}
		case <-fire:
			timer, fire = nil, nil
			_ = s.save(ctx)
		}
	}
}

// Flush немедленно сохраняет текущее состояние.
func (s *Saver) Flush(ctx context.Context) error {
	return s.save(ctx)
}

func (s *Saver) save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snap := s.source.Snapshot()
	err := s.adapter.Save(ctx, snap)
	metrics.PersistenceSaveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PersistenceSaves.WithLabelValues("error").Inc()
		s.l.WithError(err).Error("saving snapshot")
		return err
	}
	metrics.PersistenceSaves.WithLabelValues("ok").Inc()
	s.l.WithFields(logrus.Fields{
		"participants": len(snap.Participants),
		"transactions": len(snap.Transactions),
		"took":         time.Since(start).String(),
	}).Debug("snapshot saved")
	return nil
}
