package handler

import (
	"fmt"
	"net/http"

	"github.com/forkful/forkful/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "forkful_auth_cache_hits_total %d\n", snap.AuthCacheHits)
	writeMetric(w, "forkful_auth_cache_misses_total %d\n", snap.AuthCacheMisses)

	writeMetric(w, "forkful_users_registered_total %d\n", snap.UsersRegistered)
	writeMetric(w, "forkful_user_logins_total %d\n", snap.UserLogins)

	writeMetric(w, "forkful_tags_created_total %d\n", snap.TagsCreated)
	writeMetric(w, "forkful_tags_updated_total %d\n", snap.TagsUpdated)
	writeMetric(w, "forkful_tags_deleted_total %d\n", snap.TagsDeleted)

	writeMetric(w, "forkful_ingredients_created_total %d\n", snap.IngredientsCreated)
	writeMetric(w, "forkful_ingredients_updated_total %d\n", snap.IngredientsUpdated)
	writeMetric(w, "forkful_ingredients_deleted_total %d\n", snap.IngredientsDeleted)

	writeMetric(w, "forkful_recipes_created_total %d\n", snap.RecipesCreated)
	writeMetric(w, "forkful_recipes_updated_total %d\n", snap.RecipesUpdated)
	writeMetric(w, "forkful_recipes_deleted_total %d\n", snap.RecipesDeleted)

	writeMetric(w, "forkful_audit_events_published_total{status=\"success\"} %d\n", snap.AuditPublished)
	writeMetric(w, "forkful_audit_events_published_total{status=\"dropped\"} %d\n", snap.AuditPublishDropped)

	writeMetric(w, "forkful_audit_events_processed_total{status=\"success\"} %d\n", snap.AuditProcessed)
	writeMetric(w, "forkful_audit_events_processed_total{status=\"failed\"} %d\n", snap.AuditFailed)
	writeMetric(w, "forkful_audit_events_processed_total{status=\"dead_lettered\"} %d\n", snap.AuditDeadLettered)

	writeMetric(w, "forkful_audit_batches_total %d\n", snap.AuditBatches)
	writeMetric(w, "forkful_audit_batch_events_total %d\n", snap.AuditBatchEventsTotal)
	writeMetric(w, "forkful_audit_queue_depth %d\n", snap.AuditQueueDepth)
	writeMetric(w, "forkful_audit_batch_duration_seconds_sum %.6f\n", float64(snap.AuditBatchDurationNs)/1e9)
	writeMetric(w, "forkful_audit_ingest_lag_seconds_sum %.6f\n", float64(snap.AuditIngestLagTotalNs)/1e9)

	writeMetric(w, "forkful_webhook_deliveries_total{status=\"success\"} %d\n", snap.WebhooksDelivered)
	writeMetric(w, "forkful_webhook_deliveries_total{status=\"failed\"} %d\n", snap.WebhooksFailed)
	writeMetric(w, "forkful_webhook_deliveries_total{status=\"exhausted\"} %d\n", snap.WebhooksExhausted)
	writeMetric(w, "forkful_webhook_queue_depth %d\n", snap.WebhookQueueDepth)
	writeMetric(w, "forkful_webhook_delivery_duration_seconds_sum %.6f\n", float64(snap.WebhookDeliveryDurationNs)/1e9)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
