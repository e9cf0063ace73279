package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

func newMatchingFixture(t *testing.T) (*gorm.DB, *matchingService) {
	t.Helper()

	db := openTestDB(t)
	users := repository.NewUserRepository(db)
	interests := repository.NewInterestRepository(db)
	matches := repository.NewMatchRepository(db)
	compatibility := NewCompatibilityService(users, interests, zerolog.Nop())

	svc := NewMatchingService(users, interests, matches, compatibility, zerolog.Nop()).(*matchingService)
	svc.randIndex = func(int) int { return 0 }
	return db, svc
}

func seedUsers(t *testing.T, db *gorm.DB, count int) []uint {
	t.Helper()

	ids := make([]uint, 0, count)
	for i := 0; i < count; i++ {
		user := models.User{
			Name:            fmt.Sprintf("User %d", i+1),
			Email:           fmt.Sprintf("user%d@example.com", i+1),
			PasswordHash:    "x",
			DateOfBirth:     time.Date(1990+i, 1, 1, 0, 0, 0, 0, time.UTC),
			Gender:          "Female",
			City:            "Oslo",
			IsEmailVerified: true,
			IsActive:        true,
		}
		require.NoError(t, db.Create(&user).Error)
		ids = append(ids, user.ID)
	}
	return ids
}

func TestBuildGroupsPartitionsThePool(t *testing.T) {
	db, svc := newMatchingFixture(t)
	ids := seedUsers(t, db, 7)

	groups, err := svc.BuildGroups(context.Background(), ids, 3)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	seen := map[uint]int{}
	total := 0
	for _, group := range groups {
		require.GreaterOrEqual(t, len(group), 3)
		total += len(group)
		for _, id := range group {
			seen[id]++
		}
	}

	// The single leftover lands in one of the formed groups.
	require.Equal(t, 7, total)
	for _, id := range ids {
		require.Equal(t, 1, seen[id], "user %d must appear exactly once", id)
	}
}

func TestBuildGroupsUndersizedPool(t *testing.T) {
	db, svc := newMatchingFixture(t)
	ids := seedUsers(t, db, 2)

	groups, err := svc.BuildGroups(context.Background(), ids, 4)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.ElementsMatch(t, ids, groups[0])
}

func TestBuildGroupsEmptyPool(t *testing.T) {
	_, svc := newMatchingFixture(t)

	groups, err := svc.BuildGroups(context.Background(), nil, 3)
	require.NoError(t, err)
	require.Empty(t, groups)
}

func TestProcessReactionCreatesMatchOnce(t *testing.T) {
	db, svc := newMatchingFixture(t)
	ids := seedUsers(t, db, 2)

	require.NoError(t, svc.ProcessReaction(context.Background(), ids[0], ids[1], true))

	var match models.Match
	require.NoError(t, db.Where("sender_id = ? AND receiver_id = ?", ids[0], ids[1]).First(&match).Error)
	require.Equal(t, models.MatchStatusAccepted, match.Status)
	require.NotNil(t, match.RespondedAt)

	// A later reaction in the opposite direction is ignored.
	require.NoError(t, svc.ProcessReaction(context.Background(), ids[1], ids[0], false))

	var count int64
	require.NoError(t, db.Model(&models.Match{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	require.NoError(t, db.First(&match, match.ID).Error)
	require.Equal(t, models.MatchStatusAccepted, match.Status)
}

func TestProcessReactionDislikeCreatesRejected(t *testing.T) {
	db, svc := newMatchingFixture(t)
	ids := seedUsers(t, db, 2)

	require.NoError(t, svc.ProcessReaction(context.Background(), ids[0], ids[1], false))

	var match models.Match
	require.NoError(t, db.Where("sender_id = ?", ids[0]).First(&match).Error)
	require.Equal(t, models.MatchStatusRejected, match.Status)
}

func TestProcessReactionRejectsSelf(t *testing.T) {
	_, svc := newMatchingFixture(t)
	require.ErrorIs(t, svc.ProcessReaction(context.Background(), 5, 5, true), ErrSelfReference)
}

func TestCompatibilityScoreRejectsSelf(t *testing.T) {
	_, svc := newMatchingFixture(t)
	_, err := svc.CompatibilityScore(context.Background(), 3, 3)
	require.ErrorIs(t, err, ErrSelfReference)
}

func TestFindCompatibleUsersOrdersBestFirst(t *testing.T) {
	db, svc := newMatchingFixture(t)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	self := models.User{
		Name:            "Self",
		Email:           "self@example.com",
		PasswordHash:    "x",
		DateOfBirth:     time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender:          "Female",
		City:            "Oslo",
		IsEmailVerified: true,
		IsActive:        true,
	}
	require.NoError(t, db.Create(&self).Error)

	// Same age and city as the caller.
	near := models.User{
		Name:            "Near",
		Email:           "near@example.com",
		PasswordHash:    "x",
		DateOfBirth:     time.Date(1996, 6, 1, 0, 0, 0, 0, time.UTC),
		Gender:          "Male",
		City:            "Oslo",
		IsEmailVerified: true,
		IsActive:        true,
	}
	require.NoError(t, db.Create(&near).Error)

	// Large age gap, different city.
	far := models.User{
		Name:            "Far",
		Email:           "far@example.com",
		PasswordHash:    "x",
		DateOfBirth:     time.Date(1970, 6, 1, 0, 0, 0, 0, time.UTC),
		Gender:          "Male",
		City:            "Bergen",
		IsEmailVerified: true,
		IsActive:        true,
	}
	require.NoError(t, db.Create(&far).Error)

	result, err := svc.FindCompatibleUsers(context.Background(), self.ID, dto.CompatibleUsersQuery{})
	require.NoError(t, err)
	require.Equal(t, 2, result.TotalFound)
	require.Equal(t, []uint{near.ID, far.ID}, result.CompatibleUsers)
}

func TestFindCompatibleUsersAppliesLimit(t *testing.T) {
	db, svc := newMatchingFixture(t)
	ids := seedUsers(t, db, 5)

	result, err := svc.FindCompatibleUsers(context.Background(), ids[0], dto.CompatibleUsersQuery{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 4, result.TotalFound)
	require.Len(t, result.CompatibleUsers, 2)
}
