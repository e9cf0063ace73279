package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

// ErrSelfReference is returned when a user targets themselves.
var ErrSelfReference = errors.New("cannot target yourself")

// MatchingService implements the compatibility search, the group optimizer
// and reaction-driven match creation.
type MatchingService interface {
	FindCompatibleUsers(ctx context.Context, userID uint, query dto.CompatibleUsersQuery) (dto.CompatibleUsersResponse, error)
	CompatibilityScore(ctx context.Context, userID, targetID uint) (dto.CompatibilityResponse, error)
	BuildGroups(ctx context.Context, userIDs []uint, groupSize int) ([][]uint, error)
	ProcessReaction(ctx context.Context, userID, targetID uint, isLike bool) error
	MatchingData(ctx context.Context, userID uint) (dto.MatchingProfile, error)
}

type matchingService struct {
	users         repository.UserRepository
	interests     repository.InterestRepository
	matches       repository.MatchRepository
	compatibility CompatibilityService
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
	randIndex     func(n int) int
}

// NewMatchingService constructs the matching engine.
func NewMatchingService(
	users repository.UserRepository,
	interests repository.InterestRepository,
	matches repository.MatchRepository,
	compatibility CompatibilityService,
	logger zerolog.Logger,
) MatchingService {
	return &matchingService{
		users:         users,
		interests:     interests,
		matches:       matches,
		compatibility: compatibility,
		logger:        logger.With().Str("component", "matching_service").Logger(),
		tracer:        otel.Tracer("github.com/matchfyn/matchfyn-api/internal/service/matching"),
		now:           time.Now,
		randIndex:     rand.IntN,
	}
}

// FindCompatibleUsers scores every candidate against the caller and returns
// their ids best-first.
func (s *matchingService) FindCompatibleUsers(ctx context.Context, userID uint, query dto.CompatibleUsersQuery) (dto.CompatibleUsersResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "matching.find_compatible",
		trace.WithAttributes(attribute.Int64("matching.user_id", int64(userID))))
	defer span.End()

	self, err := s.compatibility.LoadProfile(spanCtx, userID)
	if err != nil {
		return dto.CompatibleUsersResponse{Filters: query}, nil
	}

	gender := models.GenderFilter(query.GenderFilter)
	if gender == "" {
		gender = models.GenderFilterMixed
	}

	now := s.now()
	candidates, err := s.users.FindCandidates(spanCtx, repository.CandidateFilter{
		ExcludeUserID: userID,
		GenderFilter:  gender,
		MinAge:        query.MinAge,
		MaxAge:        query.MaxAge,
	}, now)
	if err != nil {
		span.RecordError(err)
		return dto.CompatibleUsersResponse{}, err
	}

	type scored struct {
		id    uint
		score float64
	}

	results := make([]scored, 0, len(candidates))
	for _, candidate := range candidates {
		profile, err := s.profileFor(spanCtx, candidate)
		if err != nil {
			continue
		}
		results = append(results, scored{id: candidate.ID, score: ScoreProfiles(self, profile, now)})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	ids := make([]uint, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.id)
	}

	total := len(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	return dto.CompatibleUsersResponse{
		CompatibleUsers: ids,
		TotalFound:      total,
		Filters:         query,
	}, nil
}

func (s *matchingService) CompatibilityScore(ctx context.Context, userID, targetID uint) (dto.CompatibilityResponse, error) {
	if userID == targetID {
		return dto.CompatibilityResponse{}, ErrSelfReference
	}

	score, err := s.compatibility.Score(ctx, userID, targetID)
	if err != nil {
		return dto.CompatibilityResponse{}, err
	}

	return dto.CompatibilityResponse{
		UserID:             userID,
		TargetUserID:       targetID,
		CompatibilityScore: score,
		CompatibilityLevel: CompatibilityLevel(score),
		CalculatedAt:       s.now(),
	}, nil
}

// BuildGroups greedily buckets the pool into groups of groupSize: seed each
// group with a random remaining user, then repeatedly pull the candidate with
// the highest average score against the current members. Leftovers smaller
// than a group are spread round-robin over the formed groups, or become one
// undersized group when none were formed.
//
// Cost is quadratic in the pool size; this is only meant for the tens of
// users a matching room holds, not for bulk segmentation.
func (s *matchingService) BuildGroups(ctx context.Context, userIDs []uint, groupSize int) ([][]uint, error) {
	spanCtx, span := s.tracer.Start(ctx, "matching.build_groups",
		trace.WithAttributes(
			attribute.Int("matching.pool_size", len(userIDs)),
			attribute.Int("matching.group_size", groupSize),
		))
	defer span.End()

	profiles := make(map[uint]MatchProfile, len(userIDs))
	for _, id := range userIDs {
		profile, err := s.compatibility.LoadProfile(spanCtx, id)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		profiles[id] = profile
	}

	now := s.now()
	remaining := append([]uint(nil), userIDs...)
	var groups [][]uint

	for len(remaining) >= groupSize {
		seedIdx := s.randIndex(len(remaining))
		group := []uint{remaining[seedIdx]}
		remaining = append(remaining[:seedIdx], remaining[seedIdx+1:]...)

		for len(group) < groupSize && len(remaining) > 0 {
			bestIdx := -1
			bestScore := 0.0

			for i, candidate := range remaining {
				total := 0.0
				for _, member := range group {
					total += ScoreProfiles(profiles[member], profiles[candidate], now)
				}
				avg := total / float64(len(group))
				if avg > bestScore {
					bestScore = avg
					bestIdx = i
				}
			}

			if bestIdx < 0 {
				break
			}

			group = append(group, remaining[bestIdx])
			remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		}

		groups = append(groups, group)
	}

	if len(remaining) > 0 {
		if len(groups) > 0 {
			for i, id := range remaining {
				groups[i%len(groups)] = append(groups[i%len(groups)], id)
			}
		} else {
			groups = append(groups, remaining)
		}
	}

	s.logger.Debug().Int("groups", len(groups)).Int("pool", len(userIDs)).Msg("built optimized groups")
	return groups, nil
}

// ProcessReaction records a like or dislike. The first reaction between a
// pair creates the match row outright as accepted or rejected; later
// reactions in either direction are ignored. One-sided acceptance is the
// intended product semantics here, not a bug.
func (s *matchingService) ProcessReaction(ctx context.Context, userID, targetID uint, isLike bool) error {
	if userID == targetID {
		return ErrSelfReference
	}

	_, err := s.matches.FindByPair(ctx, userID, targetID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	status := models.MatchStatusRejected
	if isLike {
		status = models.MatchStatusAccepted
	}

	respondedAt := s.now()
	match := models.Match{
		SenderID:    userID,
		ReceiverID:  targetID,
		Status:      status,
		RespondedAt: &respondedAt,
	}

	if err := s.matches.Create(ctx, &match); err != nil {
		return err
	}

	s.logger.Info().
		Uint("user_id", userID).
		Uint("target_user_id", targetID).
		Bool("is_like", isLike).
		Msg("processed user reaction")

	return nil
}

func (s *matchingService) MatchingData(ctx context.Context, userID uint) (dto.MatchingProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.MatchingProfile{}, err
	}

	names, err := s.interests.ListNamesByUser(ctx, userID)
	if err != nil {
		names = nil
	}

	total, err := s.matches.CountByUser(ctx, userID)
	if err != nil {
		return dto.MatchingProfile{}, err
	}

	return dto.MatchingProfile{
		UserID:       userID,
		Age:          user.Age(s.now()),
		Gender:       user.Gender,
		City:         user.City,
		Interests:    names,
		TotalMatches: total,
		LastActive:   user.LastLoginAt,
	}, nil
}

func (s *matchingService) profileFor(ctx context.Context, user models.User) (MatchProfile, error) {
	ids, err := s.interests.ListIDsByUser(ctx, user.ID)
	if err != nil {
		ids = nil
	}

	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return MatchProfile{User: user, Interests: set}, nil
}
