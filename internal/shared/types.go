package shared

// Task types handled by cmd/worker
const (
	TypeAvailabilitySync = "circulation:availability_sync"
	TypeOverdueScan      = "circulation:overdue_scan"
)

// Queue names and their asynq weights
const (
	QueueCirculation = "circulation"
	QueueMaintenance = "maintenance"
)

var QueueWeights = map[string]int{
	QueueCirculation: 10,
	QueueMaintenance: 3,
}

// AvailabilitySyncPayload asks the worker to refresh a book's cached
// availability. An empty BookID refreshes every book.
type AvailabilitySyncPayload struct {
	BookID        string `json:"book_id,omitempty"`
	Source        string `json:"source"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type OverdueScanPayload struct {
	// Limit caps the records logged individually; 0 logs none
	Limit int `json:"limit"`
}
