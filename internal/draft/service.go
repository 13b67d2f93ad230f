package draft

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrInvalidSection is returned when section data is not a JSON object.
var ErrInvalidSection = errors.New("section data must be a JSON object")

// Service records wizard sections for applicants.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a draft service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SaveSection stores data for stepID and returns the updated draft.
func (s *Service) SaveSection(ctx context.Context, applicantID, stepID string, data []byte) (Draft, error) {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") || !json.Valid([]byte(trimmed)) {
		return Draft{}, ErrInvalidSection
	}
	if err := s.repo.SaveSection(ctx, applicantID, stepID, json.RawMessage(trimmed), s.now()); err != nil {
		return Draft{}, err
	}
	return s.repo.Get(ctx, applicantID)
}

// Get returns the applicant's draft. A missing draft is returned empty.
func (s *Service) Get(ctx context.Context, applicantID string) (Draft, error) {
	d, err := s.repo.Get(ctx, applicantID)
	if errors.Is(err, ErrNotFound) {
		return Draft{ApplicantID: applicantID, Sections: map[string]json.RawMessage{}}, nil
	}
	return d, err
}
