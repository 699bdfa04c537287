package domain

// ServiceHealth describes one dependency's health check result.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latency_ms"`
	LastChecked string `json:"last_checked"`
}

// HealthStatus is the aggregate /healthz payload.
type HealthStatus struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
}

// UsageMetrics is a coarse usage summary exposed to admins.
type UsageMetrics struct {
	TotalRequests   int64   `json:"total_requests"`
	ErrorRate       float64 `json:"error_rate"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
	CSVRowsImported int64   `json:"csv_rows_imported"`
	CSVRowsRejected int64   `json:"csv_rows_rejected"`
	Period          string  `json:"period"`
}
