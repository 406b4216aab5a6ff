package session

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultMinBackoff = 500 * time.Millisecond
	defaultMaxBackoff = 30 * time.Second
	jitterPercent     = 0.15
)

// Connector то, что Reconnector умеет переподключать.
type Connector interface {
	Connect(ctx context.Context, address string) error
	Status() Status
	Subscribe() (<-chan Status, func())
}

// Reconnector следит за клиентской сессией и переподключает её, пока она в Error. Сам
// менеджер сессий повторных попыток не делает.
type Reconnector struct {
	conn       Connector
	address    string
	l          *logrus.Entry
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewReconnector(conn Connector, address string, l *logrus.Logger) *Reconnector {
	return &Reconnector{
		conn:    conn,
		address: address,
		l: l.WithFields(logrus.Fields{
			"component": "session",
			"module":    "reconnector",
		}),
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}
}

// SetBackoff устанавливает начальную и максимальную паузу между попытками.
func (r *Reconnector) SetBackoff(minBackoff, maxBackoff time.Duration) *Reconnector {
	if minBackoff > 0 {
		r.minBackoff = minBackoff
	}
	if maxBackoff >= r.minBackoff {
		r.maxBackoff = maxBackoff
	}
	return r
}

// Run работает до отмены контекста. Ошибка клиентской сессии запускает серию попыток
// с экспоненциально растущей паузой; успешное подключение сбрасывает паузу.
func (r *Reconnector) Run(ctx context.Context) {
	updates, unsubscribe := r.conn.Subscribe()
	defer unsubscribe()

	r.l.WithField("address", r.address).Info("Starting")
	backoff := r.minBackoff

	for {
		st := r.conn.Status()
		if st.State == StateError && st.Role == RoleClient {
			wait := time.Duration(jitter(float64(backoff), jitterPercent, jitterPercent))
			r.l.WithError(st.Err).WithField("retryIn", wait.String()).Warn("sync client failed, reconnecting")

			select {
			case <-ctx.Done():
				r.l.Info("Got stop signal, exiting...")
				return
			case <-time.After(wait):
			}

			if r.conn.Status().State != StateError {
				continue
			}
			if err := r.conn.Connect(ctx, r.address); err != nil {
				backoff = min(backoff*2, r.maxBackoff)
				continue
			}
			r.l.Info("sync client reconnected")
			backoff = r.minBackoff
			continue
		}

		select {
		case <-ctx.Done():
			r.l.Info("Got stop signal, exiting...")
			return
		case <-updates:
		}
	}
}

// jitter возвращает число, рассыпавшееся относительно value на случайный процент в пределах
// [1-minPercent, 1+maxPercent].
//
// minPercent и maxPercent должны быть >= 0 (0.1 = 10%). Если указано иное, значение выставится в 0.15.
func jitter(value, minPercent, maxPercent float64) float64 {
	if minPercent < 0 || maxPercent < 0 {
		minPercent = 0.15
		maxPercent = 0.15
	}
	factor := 1 - minPercent + rand.Float64()*(minPercent+maxPercent) // nolint:gosec
	return value * factor
}
