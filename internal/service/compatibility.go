package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

// Sub-score weights. Interests dominate; location and activity are tiebreakers.
const (
	ageWeight      = 0.30
	interestWeight = 0.50
	locationWeight = 0.10
	activityWeight = 0.10
)

// CompatibilityService computes pairwise compatibility scores in [0, 1].
type CompatibilityService interface {
	Score(ctx context.Context, userA, userB uint) (float64, error)
	LoadProfile(ctx context.Context, userID uint) (MatchProfile, error)
}

// MatchProfile is the snapshot of a user the scorer works from. Loading it
// once per user lets the group optimizer run its quadratic comparison loop
// without touching the store again.
type MatchProfile struct {
	User      models.User
	Interests map[uint]struct{}
}

type compatibilityService struct {
	users     repository.UserRepository
	interests repository.InterestRepository
	logger    zerolog.Logger
	now       func() time.Time
}

// NewCompatibilityService constructs the scorer.
func NewCompatibilityService(users repository.UserRepository, interests repository.InterestRepository, logger zerolog.Logger) CompatibilityService {
	return &compatibilityService{
		users:     users,
		interests: interests,
		logger:    logger.With().Str("component", "compatibility_service").Logger(),
		now:       time.Now,
	}
}

// Score loads both profiles and blends the four sub-scores. Any lookup
// failure short-circuits to 0.0.
func (s *compatibilityService) Score(ctx context.Context, userA, userB uint) (float64, error) {
	profileA, err := s.LoadProfile(ctx, userA)
	if err != nil {
		s.logger.Debug().Err(err).Uint("user_id", userA).Msg("profile lookup failed, scoring zero")
		return 0.0, nil
	}

	profileB, err := s.LoadProfile(ctx, userB)
	if err != nil {
		s.logger.Debug().Err(err).Uint("user_id", userB).Msg("profile lookup failed, scoring zero")
		return 0.0, nil
	}

	return ScoreProfiles(profileA, profileB, s.now()), nil
}

func (s *compatibilityService) LoadProfile(ctx context.Context, userID uint) (MatchProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return MatchProfile{}, err
	}

	ids, err := s.interests.ListIDsByUser(ctx, userID)
	if err != nil {
		// Interests are optional for scoring; the Jaccard term falls back
		// to its neutral value when the set is empty.
		ids = nil
	}

	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return MatchProfile{User: user, Interests: set}, nil
}

// ScoreProfiles blends the weighted sub-scores and rounds to two decimals.
func ScoreProfiles(a, b MatchProfile, now time.Time) float64 {
	total := ageScore(a.User.Age(now), b.User.Age(now))*ageWeight +
		interestScore(a.Interests, b.Interests)*interestWeight +
		locationScore(a.User.City, b.User.City)*locationWeight +
		activityScore(a.User.LastLoginAt, b.User.LastLoginAt)*activityWeight

	return math.Round(total*100) / 100
}

// ageScore maps the absolute age gap onto a step curve: identical ages score
// 1.0 and every wider band drops the score.
func ageScore(ageA, ageB int) float64 {
	gap := ageA - ageB
	if gap < 0 {
		gap = -gap
	}

	switch {
	case gap == 0:
		return 1.0
	case gap <= 2:
		return 0.9
	case gap <= 5:
		return 0.7
	case gap <= 10:
		return 0.5
	case gap <= 15:
		return 0.3
	default:
		return 0.1
	}
}

// interestScore is the Jaccard similarity of the two interest sets, neutral
// 0.5 when either set is empty.
func interestScore(a, b map[uint]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.5
	}

	intersection := 0
	for id := range a {
		if _, ok := b[id]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// locationScore compares cities case-insensitively; a missing city on either
// side is neutral.
func locationScore(cityA, cityB string) float64 {
	if cityA == "" || cityB == "" {
		return 0.5
	}
	if strings.EqualFold(cityA, cityB) {
		return 1.0
	}
	return 0.3
}

// activityScore rewards users whose last logins are close together; a missing
// timestamp on either side is neutral.
func activityScore(lastA, lastB *time.Time) float64 {
	if lastA == nil || lastB == nil {
		return 0.5
	}

	hours := math.Abs(lastA.Sub(*lastB).Hours())
	switch {
	case hours <= 1:
		return 1.0
	case hours <= 6:
		return 0.8
	case hours <= 24:
		return 0.6
	case hours <= 168:
		return 0.4
	default:
		return 0.2
	}
}

// CompatibilityLevel buckets a score into a human-readable label.
func CompatibilityLevel(score float64) string {
	switch {
	case score >= 0.8:
		return "Excellent"
	case score >= 0.6:
		return "Very Good"
	case score >= 0.4:
		return "Good"
	case score >= 0.2:
		return "Fair"
	default:
		return "Low"
	}
}
