// Package metrics holds the Prometheus instruments for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersRegistered     prometheus.Counter
	DocumentsUploaded   prometheus.Counter
	DocumentsShared     prometheus.Counter
	DocumentsDownloaded prometheus.Counter
	AuditEntriesWritten prometheus.Counter
	AuditEntriesDropped prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests pass a fresh
// registry so parallel suites don't collide on metric names.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "docvault_users_registered_total",
			Help: "Total number of user accounts created.",
		}),
		DocumentsUploaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "docvault_documents_uploaded_total",
			Help: "Total number of documents uploaded.",
		}),
		DocumentsShared: factory.NewCounter(prometheus.CounterOpts{
			Name: "docvault_documents_shared_total",
			Help: "Total number of sharing grants created.",
		}),
		DocumentsDownloaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "docvault_documents_downloaded_total",
			Help: "Total number of document downloads served.",
		}),
		AuditEntriesWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "docvault_audit_entries_written_total",
			Help: "Total number of audit entries persisted.",
		}),
		AuditEntriesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "docvault_audit_entries_dropped_total",
			Help: "Total number of audit entries dropped or failed to persist.",
		}),
	}
}
