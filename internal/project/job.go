package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/piwi3910/cutplan/internal/model"
	"github.com/piwi3910/cutplan/internal/planner"
)

// JobVersion is the format version written into saved jobs.
const JobVersion = "1"

// ErrNoVersion is returned when a job file carries no version field.
var ErrNoVersion = errors.New("invalid job file: missing version")

// Job is a saved optimization request, optionally with the plan it produced.
type Job struct {
	Version string                 `json:"version"`
	Name    string                 `json:"name"`
	SavedAt time.Time              `json:"savedAt"`
	Request planner.Request        `json:"request"`
	Plan    *model.CuttingPlan     `json:"plan,omitempty"`
	Offcuts []model.ReusableOffcut `json:"offcuts,omitempty"`
}

// NewJob wraps a request and, when resp succeeded, its plan and offcuts.
func NewJob(name string, req planner.Request, resp *planner.Response) Job {
	j := Job{Version: JobVersion, Name: name, Request: req}
	if resp != nil && resp.Success {
		j.Plan = resp.Plan
		j.Offcuts = resp.ReusableOffcuts
	}
	return j
}

// SaveJob writes the job to path, stamping SavedAt.
func SaveJob(path string, j Job) error {
	if j.Version == "" {
		j.Version = JobVersion
	}
	j.SavedAt = time.Now().UTC()
	if err := writeJSON(path, j); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// LoadJob reads a job file.
func LoadJob(path string) (Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("read job: %w", err)
	}
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return Job{}, fmt.Errorf("parse job: %w", err)
	}
	if j.Version == "" {
		return Job{}, ErrNoVersion
	}
	return j, nil
}

// ResolveCatalogueRefs fills in the sheets of the job request from catalogue
// presets: each preset ID in refs becomes a sheet with the given quantity.
func ResolveCatalogueRefs(c model.Catalogue, refs map[string]int) ([]model.SourceSheet, error) {
	sheets := make([]model.SourceSheet, 0, len(refs))
	for _, p := range c.Sheets {
		if qty, ok := refs[p.ID]; ok {
			sheets = append(sheets, p.ToSourceSheet(qty))
		}
	}
	if len(sheets) != len(refs) {
		for id := range refs {
			if c.FindByID(id) == nil {
				return nil, fmt.Errorf("unknown catalogue sheet %q", id)
			}
		}
	}
	return sheets, nil
}
