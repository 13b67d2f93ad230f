package draft

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.RWMutex
	drafts map[string]Draft
}

// NewMemoryRepository builds an in-memory draft store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{drafts: make(map[string]Draft)}
}

func (r *memoryRepository) SaveSection(_ context.Context, applicantID, stepID string, data json.RawMessage, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	applicantID, stepID = strings.Clone(applicantID), strings.Clone(stepID)
	d, ok := r.drafts[applicantID]
	if !ok {
		d = Draft{ApplicantID: applicantID, Sections: map[string]json.RawMessage{}}
	}
	d.Sections[stepID] = append(json.RawMessage(nil), data...)
	d.LastStep = stepID
	d.UpdatedAt = at.UTC()
	r.drafts[applicantID] = d
	return nil
}

func (r *memoryRepository) Get(_ context.Context, applicantID string) (Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drafts[applicantID]
	if !ok {
		return Draft{}, ErrNotFound
	}
	out := Draft{ApplicantID: d.ApplicantID, LastStep: d.LastStep, UpdatedAt: d.UpdatedAt, Sections: make(map[string]json.RawMessage, len(d.Sections))}
	for k, v := range d.Sections {
		out.Sections[k] = v
	}
	return out, nil
}
