package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
)

// PolicyInput describes a policy the user holds. A blank PolicyNumber is generated.
type PolicyInput struct {
	Provider     string
	PolicyNumber string
	StartDate    time.Time
	EndDate      time.Time
}

// PolicyService manages the user's own insurance records.
type PolicyService struct {
	repo store.Repository
	now  func() time.Time
}

// NewPolicyService returns the service.
func NewPolicyService(repo store.Repository) *PolicyService {
	return &PolicyService{repo: repo, now: time.Now}
}

// List returns every policy of userID.
func (s *PolicyService) List(ctx context.Context, userID string) ([]models.Insurance, error) {
	policies, err := s.repo.InsuranceFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load insurance: %w", err)
	}
	if policies == nil {
		policies = []models.Insurance{}
	}
	return policies, nil
}

// Add records a policy. It is active while now falls inside its validity window.
func (s *PolicyService) Add(ctx context.Context, userID string, in PolicyInput) (*models.Insurance, error) {
	in.Provider = strings.TrimSpace(in.Provider)
	in.PolicyNumber = strings.TrimSpace(in.PolicyNumber)
	if in.Provider == "" {
		return nil, invalid("provider is required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() || !in.EndDate.After(in.StartDate) {
		return nil, invalid("endDate must be after startDate")
	}
	if in.PolicyNumber == "" {
		in.PolicyNumber = "POL-" + strings.ToUpper(uuid.NewString()[:8])
	}
	now := s.now()
	p := &models.Insurance{
		UserID:       userID,
		Provider:     in.Provider,
		PolicyNumber: in.PolicyNumber,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Active:       !now.Before(in.StartDate) && now.Before(in.EndDate),
	}
	if err := s.repo.CreateInsurance(ctx, p); err != nil {
		return nil, fmt.Errorf("save insurance: %w", err)
	}
	return p, nil
}
