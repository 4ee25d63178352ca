package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	AuthCacheHits      uint64
	AuthCacheMisses    uint64
	UsersRegistered    uint64
	UserLogins         uint64
	TagsCreated        uint64
	TagsUpdated        uint64
	TagsDeleted        uint64
	IngredientsCreated uint64
	IngredientsUpdated uint64
	IngredientsDeleted uint64
	RecipesCreated     uint64
	RecipesUpdated     uint64
	RecipesDeleted     uint64

	AuditPublished          uint64
	AuditPublishDropped     uint64
	AuditProcessed          uint64
	AuditFailed             uint64
	AuditDeadLettered       uint64
	AuditBatches            uint64
	AuditBatchEventsTotal   uint64
	AuditBatchDurationNs    int64
	AuditIngestLagTotalNs   int64
	AuditQueueDepth         int64

	WebhooksDelivered         uint64
	WebhooksFailed            uint64
	WebhooksExhausted         uint64
	WebhookDeliveryDurationNs int64
	WebhookQueueDepth         int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	authCacheHits      uint64
	authCacheMisses    uint64
	usersRegistered    uint64
	userLogins         uint64
	tagsCreated        uint64
	tagsUpdated        uint64
	tagsDeleted        uint64
	ingredientsCreated uint64
	ingredientsUpdated uint64
	ingredientsDeleted uint64
	recipesCreated     uint64
	recipesUpdated     uint64
	recipesDeleted     uint64

	auditPublished        uint64
	auditPublishDropped   uint64
	auditProcessed        uint64
	auditFailed           uint64
	auditDeadLettered     uint64
	auditBatches          uint64
	auditBatchEventsTotal uint64
	auditBatchDurationNs  int64
	auditIngestLagTotalNs int64
	auditQueueDepth       int64

	webhooksDelivered         uint64
	webhooksFailed            uint64
	webhooksExhausted         uint64
	webhookDeliveryDurationNs int64
	webhookQueueDepth         int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		AuthCacheHits:      atomic.LoadUint64(&m.authCacheHits),
		AuthCacheMisses:    atomic.LoadUint64(&m.authCacheMisses),
		UsersRegistered:    atomic.LoadUint64(&m.usersRegistered),
		UserLogins:         atomic.LoadUint64(&m.userLogins),
		TagsCreated:        atomic.LoadUint64(&m.tagsCreated),
		TagsUpdated:        atomic.LoadUint64(&m.tagsUpdated),
		TagsDeleted:        atomic.LoadUint64(&m.tagsDeleted),
		IngredientsCreated: atomic.LoadUint64(&m.ingredientsCreated),
		IngredientsUpdated: atomic.LoadUint64(&m.ingredientsUpdated),
		IngredientsDeleted: atomic.LoadUint64(&m.ingredientsDeleted),
		RecipesCreated:     atomic.LoadUint64(&m.recipesCreated),
		RecipesUpdated:     atomic.LoadUint64(&m.recipesUpdated),
		RecipesDeleted:     atomic.LoadUint64(&m.recipesDeleted),

		AuditPublished:        atomic.LoadUint64(&m.auditPublished),
		AuditPublishDropped:   atomic.LoadUint64(&m.auditPublishDropped),
		AuditProcessed:        atomic.LoadUint64(&m.auditProcessed),
		AuditFailed:           atomic.LoadUint64(&m.auditFailed),
		AuditDeadLettered:     atomic.LoadUint64(&m.auditDeadLettered),
		AuditBatches:          atomic.LoadUint64(&m.auditBatches),
		AuditBatchEventsTotal: atomic.LoadUint64(&m.auditBatchEventsTotal),
		AuditBatchDurationNs:  atomic.LoadInt64(&m.auditBatchDurationNs),
		AuditIngestLagTotalNs: atomic.LoadInt64(&m.auditIngestLagTotalNs),
		AuditQueueDepth:       atomic.LoadInt64(&m.auditQueueDepth),

		WebhooksDelivered:         atomic.LoadUint64(&m.webhooksDelivered),
		WebhooksFailed:            atomic.LoadUint64(&m.webhooksFailed),
		WebhooksExhausted:         atomic.LoadUint64(&m.webhooksExhausted),
		WebhookDeliveryDurationNs: atomic.LoadInt64(&m.webhookDeliveryDurationNs),
		WebhookQueueDepth:         atomic.LoadInt64(&m.webhookQueueDepth),
	}
}

// IncAuthCacheHit increments the auth cache hit counter.
func (m *InMemoryRecorder) IncAuthCacheHit() {
	atomic.AddUint64(&m.authCacheHits, 1)
}

// IncAuthCacheMiss increments the auth cache miss counter.
func (m *InMemoryRecorder) IncAuthCacheMiss() {
	atomic.AddUint64(&m.authCacheMisses, 1)
}

// IncUserRegistered increments the user registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncUserLoggedIn increments the login counter.
func (m *InMemoryRecorder) IncUserLoggedIn() {
	atomic.AddUint64(&m.userLogins, 1)
}

// IncTagCreated increments the tag created counter.
func (m *InMemoryRecorder) IncTagCreated() {
	atomic.AddUint64(&m.tagsCreated, 1)
}

// IncTagUpdated increments the tag updated counter.
func (m *InMemoryRecorder) IncTagUpdated() {
	atomic.AddUint64(&m.tagsUpdated, 1)
}

// IncTagDeleted increments the tag deleted counter.
func (m *InMemoryRecorder) IncTagDeleted() {
	atomic.AddUint64(&m.tagsDeleted, 1)
}

// IncIngredientCreated increments the ingredient created counter.
func (m *InMemoryRecorder) IncIngredientCreated() {
	atomic.AddUint64(&m.ingredientsCreated, 1)
}

// IncIngredientUpdated increments the ingredient updated counter.
func (m *InMemoryRecorder) IncIngredientUpdated() {
	atomic.AddUint64(&m.ingredientsUpdated, 1)
}

// IncIngredientDeleted increments the ingredient deleted counter.
func (m *InMemoryRecorder) IncIngredientDeleted() {
	atomic.AddUint64(&m.ingredientsDeleted, 1)
}

// IncRecipeCreated increments the recipe created counter.
func (m *InMemoryRecorder) IncRecipeCreated() {
	atomic.AddUint64(&m.recipesCreated, 1)
}

// IncRecipeUpdated increments the recipe updated counter.
func (m *InMemoryRecorder) IncRecipeUpdated() {
	atomic.AddUint64(&m.recipesUpdated, 1)
}

// IncRecipeDeleted increments the recipe deleted counter.
func (m *InMemoryRecorder) IncRecipeDeleted() {
	atomic.AddUint64(&m.recipesDeleted, 1)
}

// IncAuditEventPublished counts publish outcomes by status.
func (m *InMemoryRecorder) IncAuditEventPublished(status string) {
	if status == "success" {
		atomic.AddUint64(&m.auditPublished, 1)
		return
	}
	atomic.AddUint64(&m.auditPublishDropped, 1)
}

// IncAuditEventProcessed counts worker outcomes by status.
func (m *InMemoryRecorder) IncAuditEventProcessed(status string) {
	switch status {
	case "success":
		atomic.AddUint64(&m.auditProcessed, 1)
	case "dead_lettered":
		atomic.AddUint64(&m.auditDeadLettered, 1)
	default:
		atomic.AddUint64(&m.auditFailed, 1)
	}
}

// ObserveAuditBatchSize records a processed batch size.
func (m *InMemoryRecorder) ObserveAuditBatchSize(size int) {
	atomic.AddUint64(&m.auditBatches, 1)
	atomic.AddUint64(&m.auditBatchEventsTotal, uint64(size))
}

// ObserveAuditBatchDuration records batch processing time.
func (m *InMemoryRecorder) ObserveAuditBatchDuration(duration time.Duration) {
	atomic.AddInt64(&m.auditBatchDurationNs, duration.Nanoseconds())
}

// SetAuditQueueDepth records the current stream backlog.
func (m *InMemoryRecorder) SetAuditQueueDepth(depth int64) {
	atomic.StoreInt64(&m.auditQueueDepth, depth)
}

// ObserveAuditIngestLag records publish-to-persist latency.
func (m *InMemoryRecorder) ObserveAuditIngestLag(lag time.Duration) {
	atomic.AddInt64(&m.auditIngestLagTotalNs, lag.Nanoseconds())
}

// IncWebhookDelivery counts delivery attempts by outcome.
func (m *InMemoryRecorder) IncWebhookDelivery(status string) {
	switch status {
	case "success":
		atomic.AddUint64(&m.webhooksDelivered, 1)
	case "exhausted":
		atomic.AddUint64(&m.webhooksExhausted, 1)
	default:
		atomic.AddUint64(&m.webhooksFailed, 1)
	}
}

// ObserveWebhookDeliveryDuration records the time spent on an attempt.
func (m *InMemoryRecorder) ObserveWebhookDeliveryDuration(duration time.Duration) {
	atomic.AddInt64(&m.webhookDeliveryDurationNs, duration.Nanoseconds())
}

// SetWebhookQueueDepth records the current delivery backlog.
func (m *InMemoryRecorder) SetWebhookQueueDepth(depth int64) {
	atomic.StoreInt64(&m.webhookQueueDepth, depth)
}
