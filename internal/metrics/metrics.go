// Package metrics описывает prometheus-метрики узла.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	SourceLocal       = "local"
	SourceReplication = "replication"
)

var (
	TransactionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "festwallet_transactions_applied_total",
		Help: "Transactions applied to the ledger, labeled by type and source",
	}, []string{"type", "source"})

	TransactionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "festwallet_transactions_rejected_total",
		Help: "Local transactions rejected by validation, labeled by reason",
	}, []string{"reason"})

	ReplicatedDuplicates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "festwallet_replicated_duplicates_total",
		Help: "Replicated transactions ignored because their id was already applied",
	})

	PendingTransactions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "festwallet_pending_transactions",
		Help: "Replicated transactions waiting for their participant",
	})

	OverdrawnParticipants = promauto.NewCounter(prometheus.CounterOpts{
		Name: "festwallet_overdrawn_replicated_debits_total",
		Help: "Replicated debits that left a participant with a negative balance",
	})

	CardConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "festwallet_card_conflicts_total",
		Help: "Participants merged from peers with a card number already used locally",
	})

	SyncPeers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "festwallet_sync_peers",
		Help: "Connected sync peers, labeled by role",
	}, []string{"role"})

	SyncStateChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "festwallet_sync_state_changes_total",
		Help: "Sync session state transitions, labeled by target state",
	}, []string{"state"})

	SyncMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "festwallet_sync_messages_total",
		Help: "Sync protocol messages, labeled by direction and type",
	}, []string{"direction", "type"})

	PersistenceSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "festwallet_persistence_saves_total",
		Help: "Ledger snapshot saves, labeled by result",
	}, []string{"result"})

	PersistenceSaveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "festwallet_persistence_save_duration_seconds",
		Help:    "Latency distribution of ledger snapshot saves",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
)
