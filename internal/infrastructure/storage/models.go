package storage

import "time"

// Run statuses recorded in the ledger.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// ExportRun is one invocation of the export pipeline.
type ExportRun struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       string
	ErrorMessage string
	OrderCount   int
	RowCount     int
	WarningCount int
	ItemizedPath string
	PivotPath    string
}

// OrderRecord is one exported order as seen by the most recent run that
// touched it.
type OrderRecord struct {
	OrderID     string
	RunID       string
	OrderDate   string
	Store       string
	ItemCount   int
	PersonCount int
	// ItemsJSON holds the order's flat rows, serialized for the API.
	ItemsJSON string
}

// Stats summarizes the whole ledger.
type Stats struct {
	TotalRuns    int
	SuccessCount int
	ErrorCount   int
	TotalOrders  int
	TotalRows    int
	LastRunAt    *time.Time
}
