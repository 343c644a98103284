package tool

import (
	"reflect"
	"testing"
)

func intp(n int) *int { return &n }

func fixtureTools() []Tool {
	return []Tool{
		{ID: "velociraptor", Category: "DFIR", Status: StatusRunning, Critical: false, UptimeMinutes: intp(1440)},
		{ID: "wazuh", Category: "SIEM", Status: StatusStopped, Critical: true},
		{ID: "suricata", Category: "Intrusion Detection", Status: StatusRunning, UptimeMinutes: intp(30)},
		{ID: "cyberchef", Category: "Utility", Status: StatusRunning, UptimeMinutes: intp(60)},
		{ID: "shuffle", Category: "SOAR", Status: StatusStopped, UptimeMinutes: intp(61)},
	}
}

func ids(tools []Tool) []string {
	out := make([]string, len(tools))
	for i, t := range tools {
		out[i] = t.ID
	}
	return out
}

func TestFilterStatus(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   []string
	}{
		{name: "all", status: FilterAll, want: []string{"velociraptor", "wazuh", "suricata", "cyberchef", "shuffle"}},
		{name: "empty filter means all", status: "", want: []string{"velociraptor", "wazuh", "suricata", "cyberchef", "shuffle"}},
		{name: "running", status: FilterRunning, want: []string{"velociraptor", "suricata", "cyberchef"}},
		{name: "stopped", status: FilterStopped, want: []string{"wazuh", "shuffle"}},
		// critical matches the flag regardless of running/stopped status.
		{name: "critical", status: FilterCritical, want: []string{"wazuh"}},
		// recent: uptime defined and <= 60, boundary inclusive.
		{name: "recent", status: FilterRecent, want: []string{"suricata", "cyberchef"}},
		{name: "unknown filter matches nothing", status: "bogus", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(fixtureTools(), tt.status, FilterAll))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter(status=%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestFilterRecentExcludesUndefinedUptime(t *testing.T) {
	tools := []Tool{
		{ID: "no-uptime", Status: StatusRunning},
		{ID: "over", Status: StatusRunning, UptimeMinutes: intp(61)},
		{ID: "boundary", Status: StatusRunning, UptimeMinutes: intp(60)},
	}
	got := ids(Filter(tools, FilterRecent, FilterAll))
	want := []string{"boundary"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Filter(recent) = %v, want %v", got, want)
	}
}

func TestFilterCategory(t *testing.T) {
	got := ids(Filter(fixtureTools(), FilterAll, "SIEM"))
	if !reflect.DeepEqual(got, []string{"wazuh"}) {
		t.Errorf("Filter(category=SIEM) = %v, want [wazuh]", got)
	}

	// Category comparison is exact and case-sensitive.
	if got := Filter(fixtureTools(), FilterAll, "siem"); len(got) != 0 {
		t.Errorf("Filter(category=siem) = %v, want empty (case-sensitive)", ids(got))
	}
}

func TestFilterBothAxes(t *testing.T) {
	got := ids(Filter(fixtureTools(), FilterRunning, "DFIR"))
	if !reflect.DeepEqual(got, []string{"velociraptor"}) {
		t.Errorf("Filter(running, DFIR) = %v, want [velociraptor]", got)
	}
}

func TestFilterIdempotent(t *testing.T) {
	first := Filter(fixtureTools(), FilterRunning, FilterAll)
	second := Filter(first, FilterRunning, FilterAll)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Filter not idempotent: first = %v, second = %v", ids(first), ids(second))
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	got := ids(Filter(fixtureTools(), FilterRunning, FilterAll))
	want := []string{"velociraptor", "suricata", "cyberchef"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Filter changed input order: %v, want %v", got, want)
	}
}

func TestSelectionToggle(t *testing.T) {
	s := NewSelection()
	s.Toggle("wazuh")
	s.Toggle("misp")
	if !s.Contains("wazuh") || !s.Contains("misp") || s.Len() != 2 {
		t.Fatalf("selection after two toggles = %v", s.IDs())
	}

	s.Toggle("wazuh")
	if s.Contains("wazuh") || s.Len() != 1 {
		t.Errorf("toggle of a selected id must deselect it, got %v", s.IDs())
	}

	got := s.IDs()
	if !reflect.DeepEqual(got, []string{"misp"}) {
		t.Errorf("IDs() = %v, want [misp]", got)
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", s.Len())
	}
}

func TestSelectionToleratesStaleIDs(t *testing.T) {
	s := NewSelection()
	s.Toggle("decommissioned-tool")
	// Filtering a collection that no longer contains the id must not panic
	// and the stale id stays selected until the caller clears it.
	_ = Filter(fixtureTools(), FilterAll, FilterAll)
	if !s.Contains("decommissioned-tool") {
		t.Error("stale id dropped from selection")
	}
}
