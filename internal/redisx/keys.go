package redisx

import "time"

const (
	// Session token -> identity JSON: sess:{token}
	KeySession = "sess:%s"

	// Cached admin dashboard stats: report:stats
	KeyReportStats = "report:stats"

	// Dedup event processing in stockwatch: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLSession    = 24 * time.Hour
	TTLStatsCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)
