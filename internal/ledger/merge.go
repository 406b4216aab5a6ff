package ledger

import (
	"time"

	"github.com/fsdevblog/festwallet/internal/domain"
	"github.com/fsdevblog/festwallet/internal/metrics"
	"github.com/fsdevblog/festwallet/internal/replication"
	"github.com/sirupsen/logrus"
)

// MergeResult число сущностей снимка, изменивших локальное состояние.
type MergeResult struct {
	Participants int
	Transactions int
	Booths       int
	Products     int
}

func (r MergeResult) Changed() bool {
	return r.Participants+r.Transactions+r.Booths+r.Products > 0
}

// MergeSnapshot сливает снимок узла via с локальным состоянием. Операция идемпотентна и
// коммутативна: балансы и итоги точек продаж из снимка не берутся, а пересчитываются.
func (lg *Ledger) MergeSnapshot(snap domain.Snapshot, via string) MergeResult {
	lg.mu.Lock()
	defer lg.mu.Unlock()

	var res MergeResult
	for _, b := range snap.Booths {
		if lg.mergeBoothLocked(b, via) {
			res.Booths++
		}
	}
	for _, p := range snap.Products {
		if lg.mergeProductLocked(p, via) {
			res.Products++
		}
	}
	before := len(lg.transactions)
	for _, p := range snap.Participants {
		if lg.mergeParticipantLocked(p, via) {
			res.Participants++
		}
	}
	for _, t := range snap.Transactions {
		if !t.Amount.IsPositive() || !t.Type.Valid() || t.ID == "" {
			lg.l.WithField("transaction", t.ID).Warn("skipping malformed transaction in snapshot")
			continue
		}
		if t.Origin == "" {
			t.Origin = via
		}
		lg.applyReplicatedLocked(t, via)
	}
	res.Transactions = len(lg.transactions) - before

	if res.Changed() {
		lg.l.WithFields(logrus.Fields{
			"via":          via,
			"participants": res.Participants,
			"transactions": res.Transactions,
			"booths":       res.Booths,
			"products":     res.Products,
		}).Info("snapshot merged")
	}
	return res
}

// MergeParticipant добавляет неизвестного участника или применяет более новое изменение
// известного. Возвращает true, если локальное состояние изменилось.
func (lg *Ledger) MergeParticipant(p domain.Participant, via string) bool {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	return lg.mergeParticipantLocked(p, via)
}

func (lg *Ledger) mergeParticipantLocked(in domain.Participant, via string) bool {
	if in.ID == "" || in.CardNumber == "" {
		lg.l.WithField("via", via).Warn("skipping participant without id or card")
		return false
	}

	cur, exists := lg.participants[in.ID]
	if !exists {
		p := in
		p.Balance = lg.balanceLocked(p.ID)
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
		lg.participants[p.ID] = &p
		lg.indexCardLocked(&p, via)
		lg.emit(replication.ParticipantEntry(domain.OperationAdded, p, via, via))
		lg.flushPendingLocked(p.ID)
		return true
	}

	if !lwwWins(in.UpdatedAt, cur.UpdatedAt, in.IsActive, cur.IsActive, in.Name, cur.Name) {
		return false
	}
	cur.Name = in.Name
	cur.IsActive = in.IsActive
	cur.UpdatedAt = in.UpdatedAt
	lg.emit(replication.ParticipantEntry(domain.OperationUpdated, *cur, via, via))
	return true
}

// indexCardLocked ставит участника в индекс карт. Если номер уже занят другим участником,
// оба сохраняются, а индекс указывает на детерминированно выбранного победителя.
func (lg *Ledger) indexCardLocked(p *domain.Participant, via string) {
	ownerID, taken := lg.cards[p.CardNumber]
	if !taken {
		lg.cards[p.CardNumber] = p.ID
		return
	}
	owner := lg.participants[ownerID]
	metrics.CardConflicts.Inc()
	lg.l.WithFields(logrus.Fields{
		"card":     p.CardNumber,
		"existing": ownerID,
		"incoming": p.ID,
		"via":      via,
	}).Warn("card number registered on two nodes")
	if owner == nil || cardOwnerWins(p, owner) {
		lg.cards[p.CardNumber] = p.ID
	}
}

// MergeBooth точки продаж сопоставляются по названию; при расхождении id узлы сходятся к меньшему.
func (lg *Ledger) MergeBooth(b domain.Booth, via string) bool {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	return lg.mergeBoothLocked(b, via)
}

func (lg *Ledger) mergeBoothLocked(in domain.Booth, via string) bool {
	if in.ID == "" || in.Name == "" {
		lg.l.WithField("via", via).Warn("skipping booth without id or name")
		return false
	}

	cur := lg.boothByNameLocked(in.Name)
	if cur == nil {
		b := in
		b.TotalSales = lg.boothTotalLocked(b.Name)
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = b.CreatedAt
		}
		lg.insertBoothLocked(&b)
		lg.emit(replication.BoothEntry(domain.OperationAdded, b, via, via))
		return true
	}

	changed := false
	if in.ID < cur.ID {
		delete(lg.booths, cur.ID)
		cur.ID = in.ID
		lg.insertBoothLocked(cur)
		changed = true
	}
	if in.CreatedAt.Before(cur.CreatedAt) {
		cur.CreatedAt = in.CreatedAt
		changed = true
	}
	if lwwWins(in.UpdatedAt, cur.UpdatedAt, in.IsActive, cur.IsActive, in.Name, cur.Name) {
		cur.IsActive = in.IsActive
		cur.UpdatedAt = in.UpdatedAt
		changed = true
	}
	if changed {
		lg.emit(replication.BoothEntry(domain.OperationUpdated, *cur, via, via))
	}
	return changed
}

func (lg *Ledger) MergeProduct(p domain.Product, via string) bool {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	return lg.mergeProductLocked(p, via)
}

func (lg *Ledger) mergeProductLocked(in domain.Product, via string) bool {
	if in.ID == "" || in.Price.IsNegative() {
		lg.l.WithField("via", via).Warn("skipping malformed product")
		return false
	}

	cur, exists := lg.products[in.ID]
	if !exists {
		p := in
		p.IsFree = p.Price.IsZero()
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
		lg.products[p.ID] = &p
		lg.emit(replication.ProductEntry(domain.OperationAdded, p, via, via))
		return true
	}

	if !lwwWins(in.UpdatedAt, cur.UpdatedAt, in.IsActive, cur.IsActive, in.Name, cur.Name) {
		return false
	}
	cur.Name = in.Name
	cur.Price = in.Price
	cur.IsFree = in.Price.IsZero()
	cur.IsActive = in.IsActive
	cur.UpdatedAt = in.UpdatedAt
	lg.emit(replication.ProductEntry(domain.OperationUpdated, *cur, via, via))
	return true
}

// lwwWins побеждает более позднее изменение. При равном времени побеждает неактивное
// значение, затем большее имя; полностью равные значения не считаются изменением.
func lwwWins(inAt, curAt time.Time, inActive, curActive bool, inName, curName string) bool {
	if c := inAt.Compare(curAt); c != 0 {
		return c > 0
	}
	if inActive != curActive {
		return !inActive
	}
	return inName > curName
}
