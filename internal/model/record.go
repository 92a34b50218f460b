package model

// Level classifies a captured event. The set is closed: ambient output,
// manual calls and recovered failures all map onto these three.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// LogRecord is the canonical persisted unit for one captured event.
// Once persisted a record is immutable; the store offers insert and bulk
// clear only, never update.
type LogRecord struct {
	ID         int64   `json:"id,omitempty"`          // store-assigned, 0 on a draft
	Timestamp  int64   `json:"timestamp"`             // milliseconds since epoch, stamped at normalization
	Level      Level   `json:"level"`                 // INFO, WARN or ERROR
	Message    string  `json:"message"`               // always present, possibly empty
	StackTrace *string `json:"stack_trace,omitempty"` // nil unless the event carried a captured call stack
	Metadata   []any   `json:"metadata,omitempty"`    // ordered auxiliary values; nil when none were supplied
}
