package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dropview_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// CacheLookups counts cache-aside lookups by key family and result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dropview_cache_lookups_total",
		Help: "Cache-aside lookups by key family and result",
	}, []string{"family", "result"})

	// Registrations counts successful signups, split by whether a referral code was used.
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dropview_registrations_total",
		Help: "Successful registrations",
	}, []string{"referred"})

	// Logins counts authentication attempts by result.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dropview_logins_total",
		Help: "Authentication attempts by result",
	}, []string{"result"})

	// ReferralIncrements counts referral ledger increments by result (applied, unknown_code, error).
	ReferralIncrements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dropview_referral_increments_total",
		Help: "Referral counter increments by result",
	}, []string{"result"})

	// RewardUnlocks counts first-time reward unlocks.
	RewardUnlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropview_reward_unlocks_total",
		Help: "Users whose engagement reward was unlocked",
	})

	// CommunityEvents counts content mutations by kind (post_created, comment_deleted, ...).
	CommunityEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dropview_community_events_total",
		Help: "Community content mutations by kind",
	}, []string{"event"})

	// AssetOperations counts asset store calls by operation and result.
	AssetOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dropview_asset_operations_total",
		Help: "Asset store operations by operation and result",
	}, []string{"operation", "result"})

	// AssetOperationLatency records asset store latency by operation.
	AssetOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dropview_asset_operation_latency_seconds",
		Help:    "Asset store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// CommentCountRepairs counts posts whose cached comment count was corrected.
	CommentCountRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dropview_comment_count_repairs_total",
		Help: "Posts whose cached comment count was reconciled",
	})

	// RateLimitRejections counts requests rejected by a named limiter.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dropview_rate_limit_rejections_total",
		Help: "Requests rejected by rate limiting",
	}, []string{"resource"})
)

// BoolLabel renders a boolean as a Prometheus label value.
func BoolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
