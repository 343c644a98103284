// Package outbound defines the ports to external collaborators: the SOC
// backend API and the identity introspection endpoint.
package outbound

import (
	"context"

	"github.com/cyberblue/soc-console/internal/domain/report"
	"github.com/cyberblue/soc-console/internal/domain/tool"
)

// DataSource supplies the dashboard's read models and tool lifecycle actions.
// Implementations: REST API client (prod), sqlite snapshot store (offline,
// demo, tests). The UI layer is agnostic to which one is wired in.
type DataSource interface {
	// Tools returns the current tool inventory.
	Tools(ctx context.Context) ([]tool.Tool, error)

	// ToolAction applies a lifecycle action to one tool.
	ToolAction(ctx context.Context, toolID string, action tool.Action) error

	// Metrics returns the latest system metrics snapshot.
	Metrics(ctx context.Context) (*report.SystemMetrics, error)

	// AuditLogs lists audit trail entries.
	AuditLogs(ctx context.Context, q report.AuditQuery) ([]report.AuditLog, error)

	// Incidents lists tracked incidents.
	Incidents(ctx context.Context) ([]report.Incident, error)

	// Anomalies lists detected anomalies.
	Anomalies(ctx context.Context, q report.AnomalyQuery) ([]report.Anomaly, error)

	// AcknowledgeAnomalies marks the given anomalies as acknowledged.
	AcknowledgeAnomalies(ctx context.Context, ids []int) error
}

// Introspector validates the stored bearer token against the backend and
// returns the authenticated profile. The backend is the authority; client-side
// claims decoding is a display hint only.
type Introspector interface {
	// Me calls the who-am-I endpoint with the stored token attached.
	// Returns ErrUnauthenticated (see the api adapter) when the token is
	// rejected.
	Me(ctx context.Context) (*Profile, error)
}

// Profile is the identity returned by the who-am-I endpoint.
type Profile struct {
	// Role is the backend-assigned role for the token's subject.
	Role string `json:"role"`
	// Username is the login name.
	Username string `json:"username,omitempty"`
	// Email is the profile email.
	Email string `json:"email,omitempty"`
	// FirstName and LastName are optional profile parts.
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}
