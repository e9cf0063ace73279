package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextGridPositionFillsLowestFreeSlot(t *testing.T) {
	slot := NextGridPosition(nil)
	require.NotNil(t, slot)
	require.Equal(t, 1, *slot)

	slot = NextGridPosition([]int{1, 2, 4})
	require.NotNil(t, slot)
	require.Equal(t, 3, *slot)

	full := make([]int, 0, GridCapacity)
	for i := 1; i <= GridCapacity; i++ {
		full = append(full, i)
	}
	require.Nil(t, NextGridPosition(full))
}

func TestRoomExpired(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.False(t, Room{}.Expired(now))

	past := now.Add(-time.Second)
	require.True(t, Room{ExpiresAt: &past}.Expired(now))
	require.True(t, Room{ExpiresAt: &now}.Expired(now))

	future := now.Add(time.Second)
	require.False(t, Room{ExpiresAt: &future}.Expired(now))
}

func TestDefaultsForRoomType(t *testing.T) {
	waiting := DefaultsForRoomType(RoomTypeWaiting)
	require.Equal(t, 10, waiting.MaxCapacity)
	require.NotNil(t, waiting.DurationMinutes)
	require.Equal(t, 15, *waiting.DurationMinutes)

	matching := DefaultsForRoomType(RoomTypeMatching)
	require.Equal(t, 20, matching.MaxCapacity)
	require.NotNil(t, matching.DurationMinutes)
	require.Equal(t, 30, *matching.DurationMinutes)

	private := DefaultsForRoomType(RoomTypePrivate)
	require.Equal(t, 4, private.MaxCapacity)
	require.Nil(t, private.DurationMinutes)

	public := DefaultsForRoomType(RoomTypePublic)
	require.Equal(t, 20, public.MaxCapacity)
	require.Nil(t, public.DurationMinutes)
}
