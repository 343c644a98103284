// Package report contains read-model types for the SOC dashboard views:
// system metrics, audit logs, incidents, and detected anomalies. All
// collections are supplied by the backend and treated as read-only.
package report

import "time"

// SystemMetrics is a point-in-time snapshot of platform health.
type SystemMetrics struct {
	// Timestamp is when the snapshot was taken (UTC).
	Timestamp time.Time `json:"timestamp"`
	// CPUPercent is the host CPU utilization percentage.
	CPUPercent float64 `json:"cpu_percent"`
	// MemoryPercent is the host memory utilization percentage.
	MemoryPercent float64 `json:"memory_percent"`
	// DiskPercent is the host disk utilization percentage.
	DiskPercent float64 `json:"disk_percent"`
	// ActiveAgents is the number of reporting endpoint agents.
	ActiveAgents int `json:"active_agents"`
	// ActiveConnections is the number of open network sessions.
	ActiveConnections int `json:"active_connections"`
	// AlertsCount is the number of open alerts.
	AlertsCount int `json:"alerts_count"`
	// OverallHealth summarizes tool availability: healthy, warning, critical.
	OverallHealth string `json:"overall_health"`
}

// AuditLog is one audit trail entry.
type AuditLog struct {
	ID        int       `json:"id"`
	UserSub   string    `json:"user_sub"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditQuery bounds an audit log listing.
type AuditQuery struct {
	// Action filters by action substring. Empty matches all.
	Action string
	// Limit caps the number of returned entries. Zero means server default.
	Limit int
}

// IncidentSeverity levels, lowest to highest.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Incident is a tracked security incident.
type Incident struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Severity    string    `json:"severity"`
	Status      string    `json:"status"` // open, investigating, resolved, closed
	AssignedTo  string    `json:"assigned_to,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Anomaly is one machine-detected anomaly.
type Anomaly struct {
	ID             int        `json:"id"`
	Timestamp      time.Time  `json:"timestamp"`
	Type           string     `json:"type"` // cpu_spike, memory_anomaly, login_anomaly, ...
	Severity       string     `json:"severity"`
	Score          float64    `json:"score"`
	Description    string     `json:"description"`
	Source         string     `json:"source,omitempty"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy int        `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// AnomalyQuery bounds an anomaly listing.
type AnomalyQuery struct {
	// Acknowledged includes already-acknowledged anomalies when true.
	Acknowledged bool
	// Limit caps the number of returned entries. Zero means server default.
	Limit int
}
