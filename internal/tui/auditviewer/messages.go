package auditviewer

import (
	"time"
)

// Row is one audit record flattened for display.
type Row struct {
	Timestamp time.Time
	PlanID    string
	Kind      string
	Summary   string

	// Status carries the terminal state for result rows, the report
	// status for report rows, and is empty otherwise.
	Status string
}

// Message types for tea.Cmd async operations

// recordsLoadedMsg is sent when the trail has been queried
type recordsLoadedMsg struct {
	rows []Row
	err  error
}

// tickMsg is used for periodic refresh
type tickMsg time.Time

// refreshMsg signals an immediate reload
type refreshMsg struct{}
