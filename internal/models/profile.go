package models

import "time"

// Profile is one unit of work within a job: a single profile URL and its
// extraction outcome
type Profile struct {
	ID            string     `db:"id" json:"id"`
	JobID         int64      `db:"job_id" json:"job_id"`
	URL           string     `db:"url" json:"url"`
	RowIndex      int        `db:"row_index" json:"row_index"`
	Status        string     `db:"status" json:"status"`
	Data          *string    `db:"data" json:"-"`
	ErrorKind     *ErrorKind `db:"error_kind" json:"error_kind,omitempty"`
	ErrorMessage  *string    `db:"error_message" json:"error_message,omitempty"`
	RetryCount    int        `db:"retry_count" json:"retry_count"`
	LastAttemptAt *time.Time `db:"last_attempt_at" json:"last_attempt_at,omitempty"`
	ExtractedAt   *time.Time `db:"extracted_at" json:"extracted_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Profile item statuses. success and failed are terminal within a run;
// retrying marks an item eligible for another pass on resume.
const (
	ProfileStatusPending    = "pending"
	ProfileStatusProcessing = "processing"
	ProfileStatusRetrying   = "retrying"
	ProfileStatusSuccess    = "success"
	ProfileStatusFailed     = "failed"
)

// ProfileData is the structured payload extracted from a profile page.
// Stored on the profile record as a JSON text column.
type ProfileData struct {
	Name              string   `json:"name,omitempty"`
	Headline          string   `json:"headline,omitempty"`
	Location          string   `json:"location,omitempty"`
	Industry          string   `json:"industry,omitempty"`
	CurrentPosition   string   `json:"current_position,omitempty"`
	CurrentCompany    string   `json:"current_company,omitempty"`
	Summary           string   `json:"summary,omitempty"`
	Skills            []string `json:"skills,omitempty"`
	YearsOfExperience int      `json:"years_of_experience,omitempty"`
	LatestPosition    string   `json:"latest_position,omitempty"`
	LatestCompany     string   `json:"latest_company,omitempty"`
	Education         string   `json:"education,omitempty"`
}

// ProfileRow is one parsed row from an uploaded spreadsheet
type ProfileRow struct {
	URL      string
	RowIndex int
	Extra    map[string]string
}
