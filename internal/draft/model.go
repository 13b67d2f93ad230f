// Package draft persists the section data an applicant submits while moving
// through the profile wizard.
package draft

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when an applicant has not saved any section yet.
var ErrNotFound = errors.New("draft not found")

// Draft is the per-applicant bag of section data keyed by step id.
type Draft struct {
	ApplicantID string                     `json:"applicantId"`
	Sections    map[string]json.RawMessage `json:"sections"`
	// LastStep is the most recently saved step.
	LastStep  string    `json:"lastStep"`
	UpdatedAt time.Time `json:"updatedAt"`
}
