package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for published events.
const (
	EventTypeJobCompleted    = "import_job.completed"
	EventTypeJobFailed       = "import_job.failed"
	EventTypePaperImported   = "paper.imported"
	EventTypeResearcherMerge = "researcher.profile_refreshed"
)

// Event is the envelope published to the event stream for terminal job
// states and notable entity changes.
type Event struct {
	EventID       string                 `json:"event_id"`
	EventVersion  int                    `json:"event_version"`
	EventType     string                 `json:"event_type"`
	AggregateID   string                 `json:"aggregate_id"`
	AggregateType string                 `json:"aggregate_type"`
	Payload       json.RawMessage        `json:"payload"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// NewEvent creates an event envelope with a serialized payload.
func NewEvent(eventType, aggregateID, aggregateType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.New().String(),
		EventVersion:  1,
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Payload:       payloadBytes,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// JobCompletedPayload is the payload for import_job.completed and
// import_job.failed events.
type JobCompletedPayload struct {
	JobID      uuid.UUID `json:"job_id"`
	Status     JobStatus `json:"status"`
	Total      int       `json:"total"`
	Successful int       `json:"successful"`
	Duplicates int       `json:"duplicates"`
	Failed     int       `json:"failed"`
	ErrorCount int       `json:"error_count"`
}

// PaperImportedPayload is the payload for paper.imported events.
type PaperImportedPayload struct {
	PaperID    uuid.UUID  `json:"paper_id"`
	Title      string     `json:"title"`
	DOI        string     `json:"doi,omitempty"`
	DataSource SourceType `json:"data_source,omitempty"`
}
