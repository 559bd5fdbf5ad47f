package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Job represents one batch-extraction run over an uploaded spreadsheet
type Job struct {
	ID                  int64          `db:"id" json:"id"`
	UserID              int64          `db:"user_id" json:"user_id"`
	FileName            string         `db:"file_name" json:"file_name"`
	FilePath            string         `db:"file_path" json:"-"`
	TotalProfiles       int            `db:"total_profiles" json:"total_profiles"`
	ProcessedProfiles   int            `db:"processed_profiles" json:"processed_profiles"`
	SuccessfulProfiles  int            `db:"successful_profiles" json:"successful_profiles"`
	FailedProfiles      int            `db:"failed_profiles" json:"failed_profiles"`
	RetryingProfiles    int            `db:"retrying_profiles" json:"retrying_profiles"`
	BatchSize           int            `db:"batch_size" json:"batch_size"`
	Status              string         `db:"status" json:"status"`
	ProcessingRate      string         `db:"processing_rate" json:"processing_rate,omitempty"`
	ErrorBreakdown      ErrorBreakdown `db:"error_breakdown" json:"error_breakdown,omitempty"`
	ErrorMessage        *string        `db:"error_message" json:"error_message,omitempty"`
	ResultPath          *string        `db:"result_path" json:"result_path,omitempty"`
	StartedAt           *time.Time     `db:"started_at" json:"started_at,omitempty"`
	CompletedAt         *time.Time     `db:"completed_at" json:"completed_at,omitempty"`
	EstimatedCompletion *time.Time     `db:"estimated_completion" json:"estimated_completion,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
}

// Job lifecycle: pending → processing ⇄ paused → completed | failed
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusPaused     = "paused"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// ErrorBreakdown maps an error kind to the number of items that failed with it.
// Persisted as a JSON text column.
type ErrorBreakdown map[ErrorKind]int

// Add increments the count for a kind, allocating the map on first use
func (b *ErrorBreakdown) Add(kind ErrorKind) {
	if *b == nil {
		*b = make(ErrorBreakdown)
	}
	(*b)[kind]++
}

// Value implements driver.Valuer
func (b ErrorBreakdown) Value() (driver.Value, error) {
	if len(b) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (b *ErrorBreakdown) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*b = nil
		return nil
	case string:
		if v == "" || v == "{}" {
			*b = nil
			return nil
		}
		return json.Unmarshal([]byte(v), b)
	case []byte:
		if len(v) == 0 {
			*b = nil
			return nil
		}
		return json.Unmarshal(v, b)
	default:
		return fmt.Errorf("unsupported error_breakdown type %T", src)
	}
}
