// Package constants defines shared constant values.
package constants

// Database table names
const (
	TableUsers         = "users"
	TablePlans         = "plans"
	TableEntitlements  = "entitlements"
	TableSubscriptions = "subscriptions"
	TableUsageEvents   = "usage_events"
	TableVisitors      = "visitors"
	TableSessions      = "sessions"
)

// Plan codes shipped in the catalog seed.
const (
	PlanP99  = "p99"
	PlanP199 = "p199"
)

// Model kinds served per tier.
const (
	ModelKindLite  = "lite"
	ModelKindFlash = "flash"
)

// Response shaping modes per tier.
const (
	ResponseModeShieldOnly         = "blindaje_only"
	ResponseModeDiagnosisAndShield = "diagnostico_y_blindaje"
	ResponseModeFull               = "full"
)

// Context keys set by HTTP middleware.
const (
	CtxUserID    = "user_id"
	CtxVisitorID = "visitor_id"
	CtxIPHash    = "ip_hash"
)
