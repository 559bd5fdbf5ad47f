package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"prospector/internal/models"
)

// Type selects which items are included in an exported artifact
type Type string

const (
	TypeAll        Type = "all"
	TypeSuccessful Type = "successful"
	TypeFailed     Type = "failed"
)

// Valid reports whether t is a known export type
func (t Type) Valid() bool {
	switch t {
	case TypeAll, TypeSuccessful, TypeFailed:
		return true
	}
	return false
}

// header is the artifact column set: one row per item, success fields
// populated from the extracted payload, failure fields from the item's
// recorded error.
var header = []string{
	"URL", "Status",
	"Name", "Headline", "Location", "Industry",
	"Current Position", "Current Company", "Summary", "Skills",
	"Years of Experience", "Latest Position", "Latest Company", "Education",
	"Error Type", "Error Message", "Retry Count",
}

// ProfileLister returns a job's items
type ProfileLister interface {
	ListByJob(ctx context.Context, jobID int64) ([]models.Profile, error)
}

// ArtifactWriter persists tabular rows and returns an artifact reference
type ArtifactWriter interface {
	WriteArtifact(name string, header []string, rows [][]string) (string, error)
}

// Compiler aggregates per-item outcomes into a downloadable artifact
type Compiler struct {
	profiles ProfileLister
	writer   ArtifactWriter
}

// NewCompiler creates a new Compiler
func NewCompiler(profiles ProfileLister, writer ArtifactWriter) *Compiler {
	return &Compiler{profiles: profiles, writer: writer}
}

// Compile produces the full artifact (all items) for a job
func (c *Compiler) Compile(ctx context.Context, job *models.Job) (string, error) {
	return c.CompileType(ctx, job, TypeAll)
}

// CompileType produces an artifact for the selected subset of a job's items
func (c *Compiler) CompileType(ctx context.Context, job *models.Job, typ Type) (string, error) {
	profiles, err := c.profiles.ListByJob(ctx, job.ID)
	if err != nil {
		return "", fmt.Errorf("list profiles: %w", err)
	}

	rows := make([][]string, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		if !included(p.Status, typ) {
			continue
		}
		rows = append(rows, buildRow(p))
	}

	name := fmt.Sprintf("job_%d_%s_%s.xlsx", job.ID, typ, uuid.New().String()[:8])
	return c.writer.WriteArtifact(name, header, rows)
}

func included(status string, typ Type) bool {
	switch typ {
	case TypeSuccessful:
		return status == models.ProfileStatusSuccess
	case TypeFailed:
		return status == models.ProfileStatusFailed
	default:
		return true
	}
}

func buildRow(p *models.Profile) []string {
	var data models.ProfileData
	if p.Data != nil {
		// Undecodable payloads export with blank data fields rather than
		// aborting the whole artifact.
		_ = json.Unmarshal([]byte(*p.Data), &data)
	}

	var kind, message string
	if p.ErrorKind != nil {
		kind = string(*p.ErrorKind)
	}
	if p.ErrorMessage != nil {
		message = *p.ErrorMessage
	}

	var years string
	if data.YearsOfExperience > 0 {
		years = strconv.Itoa(data.YearsOfExperience)
	}

	return []string{
		p.URL, p.Status,
		data.Name, data.Headline, data.Location, data.Industry,
		data.CurrentPosition, data.CurrentCompany, data.Summary,
		strings.Join(data.Skills, ", "),
		years, data.LatestPosition, data.LatestCompany, data.Education,
		kind, message, strconv.Itoa(p.RetryCount),
	}
}
