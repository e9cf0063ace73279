package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matchfyn/matchfyn-api/internal/models"
)

func TestToggleReactionAddsAndRemoves(t *testing.T) {
	db := openTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	message := models.Message{RoomID: 1, SenderID: 2, Content: "hei"}
	require.NoError(t, repo.Create(ctx, &message))

	added, err := repo.ToggleReaction(ctx, message.ID, 3, models.ReactionHeart)
	require.NoError(t, err)
	require.True(t, added)

	counts, err := repo.ReactionCounts(ctx, message.ID)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	require.Equal(t, models.ReactionHeart, counts[0].ReactionType)
	require.EqualValues(t, 1, counts[0].Count)

	// Same user, same type: the reaction toggles off.
	added, err = repo.ToggleReaction(ctx, message.ID, 3, models.ReactionHeart)
	require.NoError(t, err)
	require.False(t, added)

	counts, err = repo.ReactionCounts(ctx, message.ID)
	require.NoError(t, err)
	require.Empty(t, counts)
}

func TestToggleReactionDistinctTypesCoexist(t *testing.T) {
	db := openTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	message := models.Message{RoomID: 1, SenderID: 2, Content: "hei"}
	require.NoError(t, repo.Create(ctx, &message))

	_, err := repo.ToggleReaction(ctx, message.ID, 3, models.ReactionHeart)
	require.NoError(t, err)
	_, err = repo.ToggleReaction(ctx, message.ID, 3, models.ReactionFire)
	require.NoError(t, err)
	_, err = repo.ToggleReaction(ctx, message.ID, 4, models.ReactionHeart)
	require.NoError(t, err)

	counts, err := repo.ReactionCounts(ctx, message.ID)
	require.NoError(t, err)
	require.Len(t, counts, 2)

	byType := map[models.ReactionType]int64{}
	for _, c := range counts {
		byType[c.ReactionType] = c.Count
	}
	require.EqualValues(t, 2, byType[models.ReactionHeart])
	require.EqualValues(t, 1, byType[models.ReactionFire])
}

func TestListByRoomReturnsChronologicalWindow(t *testing.T) {
	db := openTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		message := models.Message{
			RoomID:    7,
			SenderID:  2,
			Content:   string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&message).Error)
	}
	deleted := models.Message{RoomID: 7, SenderID: 2, Content: "gone", IsDeleted: true, CreatedAt: base.Add(10 * time.Minute)}
	require.NoError(t, db.Create(&deleted).Error)

	messages, err := repo.ListByRoom(ctx, 7, time.Time{}, 3)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	require.Equal(t, "c", messages[0].Content)
	require.Equal(t, "d", messages[1].Content)
	require.Equal(t, "e", messages[2].Content)

	// A before cursor pages further back, still oldest-first.
	messages, err = repo.ListByRoom(ctx, 7, base.Add(2*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "a", messages[0].Content)
	require.Equal(t, "b", messages[1].Content)
}
