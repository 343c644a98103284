package tool

// Filter values for the status axis. FilterAll disables the axis.
const (
	// FilterAll matches every record.
	FilterAll = "all"
	// FilterRunning matches tools with status running.
	FilterRunning = "running"
	// FilterStopped matches tools with status stopped.
	FilterStopped = "stopped"
	// FilterCritical matches tools flagged critical, regardless of status.
	FilterCritical = "critical"
	// FilterRecent matches tools up for at most RecentUptimeMinutes.
	FilterRecent = "recent"
)

// RecentUptimeMinutes is the inclusive upper bound for the "recent" filter.
const RecentUptimeMinutes = 60

// Filter returns the order-preserving subsequence of tools matching both the
// status and category filters. A record is kept only when every axis matches.
// Filtering is idempotent: applying the same filters to its own output
// returns an equal sequence.
func Filter(tools []Tool, statusFilter, categoryFilter string) []Tool {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		if !matchStatus(t, statusFilter) {
			continue
		}
		if !matchCategory(t, categoryFilter) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// matchStatus applies the status axis.
func matchStatus(t Tool, filter string) bool {
	switch filter {
	case FilterAll, "":
		return true
	case FilterRunning:
		return t.Status == StatusRunning
	case FilterStopped:
		return t.Status == StatusStopped
	case FilterCritical:
		return t.Critical
	case FilterRecent:
		return t.UptimeMinutes != nil && *t.UptimeMinutes <= RecentUptimeMinutes
	default:
		// Unknown filter values match nothing rather than everything, so a
		// typo in a caller surfaces as an empty view instead of a full one.
		return false
	}
}

// matchCategory applies the category axis. Comparison is exact and
// case-sensitive.
func matchCategory(t Tool, filter string) bool {
	if filter == FilterAll || filter == "" {
		return true
	}
	return t.Category == filter
}
