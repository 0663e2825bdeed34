// Package lead records evaluation requests submitted from the dashboard so the
// team can follow up on them.
package lead

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/makey/solar-forecast/internal/projection"
)

// ErrMissingContact is returned when a request carries no way to reach the client.
var ErrMissingContact = errors.New("a name and a phone or email are required")

// Contact identifies the person asking for an evaluation.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Validate checks that the contact can be reached.
func (c Contact) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrMissingContact
	}
	if strings.TrimSpace(c.Phone) == "" && strings.TrimSpace(c.Email) == "" {
		return ErrMissingContact
	}
	return nil
}

// EvaluationRequest is a request for a free evaluation, with the simulation
// the client was looking at when they sent it.
type EvaluationRequest struct {
	ID               string            `json:"id"`
	CreatedAt        time.Time         `json:"createdAt"`
	Contact          Contact           `json:"contact"`
	Inputs           projection.Inputs `json:"inputs"`
	OwnerInvestment  float64           `json:"ownerInvestment"`
	FirstYearSavings float64           `json:"firstYearSavings"`
	NetBenefit       float64           `json:"netBenefit"`
}

// NewEvaluationRequest builds a request with a fresh id.
func NewEvaluationRequest(contact Contact, p projection.Projection, now time.Time) (EvaluationRequest, error) {
	contact.Name = strings.TrimSpace(contact.Name)
	contact.Phone = strings.TrimSpace(contact.Phone)
	contact.Email = strings.TrimSpace(contact.Email)
	if err := contact.Validate(); err != nil {
		return EvaluationRequest{}, err
	}
	return EvaluationRequest{
		ID:               uuid.NewString(),
		CreatedAt:        now.UTC(),
		Contact:          contact,
		Inputs:           p.Inputs,
		OwnerInvestment:  p.Split.OwnerInvestment,
		FirstYearSavings: p.FirstYearSavings,
		NetBenefit:       p.Final().NetAccumulatedBenefit,
	}, nil
}

// Store persists evaluation requests.
type Store interface {
	Save(ctx context.Context, req EvaluationRequest) error
	List(ctx context.Context) ([]EvaluationRequest, error)
}

// MemoryStore keeps evaluation requests in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	requests []EvaluationRequest
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save appends req.
func (s *MemoryStore) Save(_ context.Context, req EvaluationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return nil
}

// List returns the stored requests in submission order.
func (s *MemoryStore) List(_ context.Context) ([]EvaluationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]EvaluationRequest(nil), s.requests...), nil
}
