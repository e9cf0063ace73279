package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

// maxInterestsPerUser caps how many interests one profile may hold.
const maxInterestsPerUser = 20

// InterestService exposes the interest catalogue and per-user selections.
type InterestService interface {
	Catalogue(ctx context.Context) ([]models.Interest, error)
	ForUser(ctx context.Context, userID uint) ([]uint, error)
	SetForUser(ctx context.Context, userID uint, interestIDs []uint) error
}

type interestService struct {
	interests repository.InterestRepository
	logger    zerolog.Logger
}

// NewInterestService constructs the interest service.
func NewInterestService(interests repository.InterestRepository, logger zerolog.Logger) InterestService {
	return &interestService{
		interests: interests,
		logger:    logger.With().Str("component", "interest_service").Logger(),
	}
}

func (s *interestService) Catalogue(ctx context.Context) ([]models.Interest, error) {
	return s.interests.ListActive(ctx)
}

func (s *interestService) ForUser(ctx context.Context, userID uint) ([]uint, error) {
	return s.interests.ListIDsByUser(ctx, userID)
}

// SetForUser replaces the user's selection wholesale, deduplicating ids.
func (s *interestService) SetForUser(ctx context.Context, userID uint, interestIDs []uint) error {
	seen := make(map[uint]struct{}, len(interestIDs))
	unique := make([]uint, 0, len(interestIDs))
	for _, id := range interestIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	if len(unique) > maxInterestsPerUser {
		return fmt.Errorf("at most %d interests allowed", maxInterestsPerUser)
	}

	return s.interests.ReplaceUserInterests(ctx, userID, unique)
}
