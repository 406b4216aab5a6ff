// Package replication хранит упорядоченный журнал локальных изменений и раздает его
// произвольному числу независимых подписчиков.
package replication

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrClosed = errors.New("replication log closed")

// Log журнал изменений узла. Append никогда не ждет подписчиков: каждая подписка лишь
// хранит свою позицию в журнале.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	// notify закрывается и пересоздается при каждой новой записи.
	notify chan struct{}
	closed bool
}

func NewLog() *Log {
	return &Log{
		entries: make([]Entry, 0),
		notify:  make(chan struct{}),
	}
}

// Append присваивает записи следующий порядковый номер, сохраняет её и будит подписчиков.
func (l *Log) Append(entry Entry) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.Seq = uint64(len(l.entries)) + 1
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	l.entries = append(l.entries, entry)

	if !l.closed {
		close(l.notify)
		l.notify = make(chan struct{})
	}
	return entry
}

// LastSeq номер последней записи, 0 для пустого журнала.
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.entries))
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Since возвращает копию записей с номером больше seq.
func (l *Log) Since(seq uint64) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq >= uint64(len(l.entries)) {
		return []Entry{}
	}
	res := make([]Entry, len(l.entries)-int(seq)) //nolint:gosec
	copy(res, l.entries[seq:])
	return res
}

// Subscribe создает подписку, которая начнет выдавать записи с номера fromSeq+1.
func (l *Log) Subscribe(fromSeq uint64) *Subscription {
	return &Subscription{
		log:    l,
		cursor: fromSeq,
		done:   make(chan struct{}),
	}
}

// Close будит всех подписчиков. Уже записанные данные остаются доступны через Next.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.notify)
}

// next возвращает запись после cursor или канал, который закроется при появлении новой записи.
func (l *Log) next(cursor uint64) (*Entry, <-chan struct{}, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cursor < uint64(len(l.entries)) {
		e := l.entries[cursor]
		return &e, nil, l.closed
	}
	return nil, l.notify, l.closed
}

// Subscription независимый курсор по журналу. Не безопасна для использования из нескольких горутин.
type Subscription struct {
	log       *Log
	cursor    uint64
	done      chan struct{}
	closeOnce sync.Once
}

// Next блокируется до появления следующей записи, закрытия подписки/журнала или отмены контекста.
func (s *Subscription) Next(ctx context.Context) (Entry, error) {
	for {
		select {
		case <-s.done:
			return Entry{}, ErrClosed
		default:
		}

		entry, wait, closed := s.log.next(s.cursor)
		if entry != nil {
			s.cursor = entry.Seq
			return *entry, nil
		}
		if closed {
			return Entry{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return Entry{}, ctx.Err()
		case <-s.done:
			return Entry{}, ErrClosed
		case <-wait:
		}
	}
}

// Cursor номер последней выданной записи.
func (s *Subscription) Cursor() uint64 {
	return s.cursor
}

func (s *Subscription) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
