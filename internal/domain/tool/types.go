// Package tool contains domain types and the filter model for the SOC tool
// inventory.
package tool

// Status represents a tool's runtime status.
type Status string

const (
	// StatusRunning means the tool is up and serving.
	StatusRunning Status = "running"
	// StatusStopped means the tool is down.
	StatusStopped Status = "stopped"
	// StatusRestarting means a restart is in progress.
	StatusRestarting Status = "restarting"
	// StatusError means the tool failed to start or crashed.
	StatusError Status = "error"
)

// IsValid returns true if the status is a known valid status.
func (s Status) IsValid() bool {
	switch s {
	case StatusRunning, StatusStopped, StatusRestarting, StatusError:
		return true
	default:
		return false
	}
}

// Health represents a tool's reported health.
type Health string

const (
	// HealthOptimal means all health checks pass with headroom.
	HealthOptimal Health = "Optimal"
	// HealthHealthy means all health checks pass.
	HealthHealthy Health = "Healthy"
	// HealthDegraded means some health checks fail.
	HealthDegraded Health = "Degraded"
)

// Action is a lifecycle action applied to a tool.
type Action string

const (
	// ActionStart starts a stopped tool.
	ActionStart Action = "start"
	// ActionStop stops a running tool.
	ActionStop Action = "stop"
	// ActionRestart restarts a tool.
	ActionRestart Action = "restart"
)

// IsValid returns true if the action is a known valid action.
func (a Action) IsValid() bool {
	switch a {
	case ActionStart, ActionStop, ActionRestart:
		return true
	default:
		return false
	}
}

// Tool represents one entry of the SOC tool inventory.
// The collection is supplied externally (API or snapshot) and treated as
// read-only input to the filter model.
type Tool struct {
	// ID is the unique identifier for this tool.
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Category groups the tool (SIEM, DFIR, SOAR, Threat Intel, ...).
	Category string `json:"category"`

	// Status is the current runtime status.
	Status Status `json:"status"`

	// Description is an optional human-readable description.
	Description string `json:"description,omitempty"`

	// Health is the optional reported health.
	Health Health `json:"health,omitempty"`

	// UptimeMinutes is how long the tool has been up. Nil when unknown or
	// the tool is not running.
	UptimeMinutes *int `json:"uptimeMinutes,omitempty"`

	// Critical marks tools whose outage pages the on-call.
	Critical bool `json:"critical,omitempty"`

	// Tags are optional free-form labels.
	Tags []string `json:"tags,omitempty"`
}
