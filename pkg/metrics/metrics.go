package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
		[]string{"routing_key", "queue", "status"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"sql"},
	)

	// 慢查询耗时（秒）
	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	// 点赞/点踩切换计数
	ReactionToggleCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reaction_toggle_total",
			Help: "Total number of reaction toggles",
		},
		[]string{"subject", "action"}, // action: added, removed, switched
	)

	// 通知创建计数
	NotificationCreatedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_created_total",
			Help: "Total number of notifications created by triggers",
		},
		[]string{"type"},
	)

	// 已读标记计数
	NotificationReadCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_marked_read_total",
			Help: "Total number of notifications flipped to read",
		},
		[]string{"mode"}, // mode: single, all
	)

	// 未读数缓存命中
	UnreadCacheCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_unread_cache_total",
			Help: "Unread count cache lookups",
		},
		[]string{"result"}, // result: hit, miss, error, stale
	)

	// 变更事件投递
	ChangeEventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_event_total",
			Help: "Change feed events by stage",
		},
		[]string{"table", "stage"}, // stage: relayed, delivered, dropped
	)

	// 实时订阅数
	RealtimeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_subscribers",
			Help: "Number of open change feed subscriptions",
		},
	)

	// 附近患者检查
	ProximityCheckCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proximity_check_total",
			Help: "Nearby patient computations",
		},
		[]string{"location_source"}, // location_source: profile, fallback
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue, status string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue, status).Observe(float64(duration.Milliseconds()))
}

// IncrementSlowQuery 记录一次慢查询
func IncrementSlowQuery(sql string, duration time.Duration) {
	SlowQueryCount.WithLabelValues(sql).Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementReactionToggle 记录一次点赞切换
func IncrementReactionToggle(subject, action string) {
	ReactionToggleCount.WithLabelValues(subject, action).Inc()
}

// IncrementNotificationCreated 记录一次通知创建
func IncrementNotificationCreated(notificationType string) {
	NotificationCreatedCount.WithLabelValues(notificationType).Inc()
}

// AddNotificationsRead 记录被标记为已读的通知数
func AddNotificationsRead(mode string, n int64) {
	NotificationReadCount.WithLabelValues(mode).Add(float64(n))
}

// IncrementUnreadCache 记录未读数缓存查询结果
func IncrementUnreadCache(result string) {
	UnreadCacheCount.WithLabelValues(result).Inc()
}

// IncrementChangeEvent 记录变更事件在某一阶段的数量
func IncrementChangeEvent(table, stage string) {
	ChangeEventCount.WithLabelValues(table, stage).Inc()
}

// IncrementProximityCheck 记录一次附近患者计算
func IncrementProximityCheck(source string) {
	ProximityCheckCount.WithLabelValues(source).Inc()
}
