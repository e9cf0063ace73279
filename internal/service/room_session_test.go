package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

func newSessionFixture(t *testing.T) (*gorm.DB, *roomSessionService, time.Time) {
	t.Helper()

	db := openTestDB(t)
	svc := NewRoomSessionService(
		repository.NewRoomRepository(db),
		repository.NewParticipantRepository(db),
		repository.NewMessageRepository(db),
		repository.NewUserRepository(db),
		repository.NewVoiceSessionRepository(db),
		nil, "", nil,
		validator.New(validator.WithRequiredStructEnabled()),
		nil, zerolog.Nop(),
	).(*roomSessionService)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return db, svc, now
}

func newSessionClient(svc *roomSessionService, userID uint, name string) *sessionClient {
	return &sessionClient{
		send:    make(chan dto.ChatEvent, sessionSendBufferSize),
		options: RoomSessionOptions{UserID: userID, UserName: name},
		service: svc,
		closed:  make(chan struct{}),
		baseCtx: context.Background(),
		joined:  make(map[uint]struct{}),
	}
}

// drainEvents empties the client's send buffer and groups events by name.
func drainEvents(client *sessionClient) map[string][]dto.ChatEvent {
	out := map[string][]dto.ChatEvent{}
	for {
		select {
		case event := <-client.send:
			out[event.Event] = append(out[event.Event], event)
		default:
			return out
		}
	}
}

func seedSessionRoom(t *testing.T, db *gorm.DB, room models.Room) models.Room {
	t.Helper()
	if room.RoomType == "" {
		room.RoomType = models.RoomTypeMatching
	}
	if room.Status == "" {
		room.Status = models.RoomStatusActive
	}
	room.IsActive = true
	require.NoError(t, db.Create(&room).Error)
	return room
}

func TestHandleJoinAdmitsNewParticipant(t *testing.T) {
	db, svc, _ := newSessionFixture(t)
	room := seedSessionRoom(t, db, models.Room{Name: "Mixed Matching Room", MaxCapacity: 20, GenderFilter: models.GenderFilterMixed})

	client := newSessionClient(svc, 7, "Ana")
	svc.hub.register(client)

	require.NoError(t, svc.handleJoin(context.Background(), client, room.ID))

	var participant models.RoomParticipant
	require.NoError(t, db.Where("room_id = ? AND user_id = ?", room.ID, 7).First(&participant).Error)
	require.True(t, participant.IsActive)
	require.Equal(t, "Ana", participant.DisplayName)
	require.NotNil(t, participant.GridPosition)
	require.Equal(t, 1, *participant.GridPosition)

	var reloaded models.Room
	require.NoError(t, db.First(&reloaded, room.ID).Error)
	require.Equal(t, 1, reloaded.CurrentParticipants)

	events := drainEvents(client)
	require.Len(t, events[dto.EventUserJoinedRoom], 1)
	require.Len(t, events[dto.EventSystemMessage], 1)
	require.Len(t, events[dto.EventJoinedRoom], 1)

	// The snapshot goes only to the joining client and carries the room view.
	var payload dto.RoomPresencePayload
	require.NoError(t, json.Unmarshal(events[dto.EventJoinedRoom][0].Payload, &payload))
	require.NotNil(t, payload.Room)
	require.Equal(t, room.ID, payload.Room.ID)
}

func TestHandleJoinRejectsFullRoom(t *testing.T) {
	db, svc, _ := newSessionFixture(t)
	room := seedSessionRoom(t, db, models.Room{Name: "Tiny", MaxCapacity: 1, CurrentParticipants: 1})

	client := newSessionClient(svc, 7, "Ana")
	require.ErrorIs(t, svc.handleJoin(context.Background(), client, room.ID), ErrRoomFull)

	var count int64
	require.NoError(t, db.Model(&models.RoomParticipant{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestHandleJoinRejectsClosedRoom(t *testing.T) {
	db, svc, _ := newSessionFixture(t)

	room := models.Room{Name: "Done", RoomType: models.RoomTypeMatching, Status: models.RoomStatusClosed, MaxCapacity: 20, IsActive: true}
	require.NoError(t, db.Create(&room).Error)

	client := newSessionClient(svc, 7, "Ana")
	require.ErrorIs(t, svc.handleJoin(context.Background(), client, room.ID), ErrRoomClosed)
}

func TestHandleJoinRejoinIsIdempotent(t *testing.T) {
	db, svc, _ := newSessionFixture(t)
	room := seedSessionRoom(t, db, models.Room{Name: "Mixed Matching Room", MaxCapacity: 20})

	client := newSessionClient(svc, 7, "Ana")
	svc.hub.register(client)

	require.NoError(t, svc.handleJoin(context.Background(), client, room.ID))
	require.NoError(t, svc.handleJoin(context.Background(), client, room.ID))

	var rows int64
	require.NoError(t, db.Model(&models.RoomParticipant{}).Where("room_id = ?", room.ID).Count(&rows).Error)
	require.EqualValues(t, 1, rows)

	var reloaded models.Room
	require.NoError(t, db.First(&reloaded, room.ID).Error)
	require.Equal(t, 1, reloaded.CurrentParticipants)
}

func TestHandleJoinReusesSoftClosedRow(t *testing.T) {
	db, svc, now := newSessionFixture(t)
	room := seedSessionRoom(t, db, models.Room{Name: "Mixed Matching Room", MaxCapacity: 20})

	left := now.Add(-time.Hour)
	stale := models.RoomParticipant{
		RoomID:         room.ID,
		UserID:         7,
		DisplayName:    "Old Name",
		Role:           models.ParticipantRoleMember,
		Status:         models.ParticipantStatusOffline,
		JoinedAt:       now.Add(-2 * time.Hour),
		LeftAt:         &left,
		LastActivityAt: left,
		IsActive:       true,
	}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Model(&models.RoomParticipant{}).
		Where("id = ?", stale.ID).
		UpdateColumn("is_active", false).Error)

	client := newSessionClient(svc, 7, "Ana")
	svc.hub.register(client)
	require.NoError(t, svc.handleJoin(context.Background(), client, room.ID))

	var rows int64
	require.NoError(t, db.Model(&models.RoomParticipant{}).Where("room_id = ?", room.ID).Count(&rows).Error)
	require.EqualValues(t, 1, rows)

	var participant models.RoomParticipant
	require.NoError(t, db.First(&participant, stale.ID).Error)
	require.True(t, participant.IsActive)
	require.Equal(t, "Ana", participant.DisplayName)
	require.Nil(t, participant.LeftAt)
	require.True(t, participant.JoinedAt.Equal(now))
}

func TestHandleJoinEnforcesRoomRestrictions(t *testing.T) {
	db, svc, _ := newSessionFixture(t)

	user := models.User{
		Name:         "Ana",
		Email:        "ana@example.com",
		PasswordHash: "x",
		DateOfBirth:  time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender:       "Female",
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)

	maleOnly := seedSessionRoom(t, db, models.Room{Name: "Male Room", MaxCapacity: 20, GenderFilter: models.GenderFilterMale})
	minAge := 40
	seniors := seedSessionRoom(t, db, models.Room{Name: "Seniors", MaxCapacity: 20, MinAge: &minAge})

	client := newSessionClient(svc, user.ID, "Ana")
	require.ErrorIs(t, svc.handleJoin(context.Background(), client, maleOnly.ID), ErrRoomRestricted)
	require.ErrorIs(t, svc.handleJoin(context.Background(), client, seniors.ID), ErrRoomRestricted)
}

func TestHandleMessageSanitizesAndBroadcasts(t *testing.T) {
	db, svc, _ := newSessionFixture(t)
	room := seedSessionRoom(t, db, models.Room{Name: "Mixed Matching Room", MaxCapacity: 20})

	client := newSessionClient(svc, 7, "Ana")
	svc.hub.register(client)
	require.NoError(t, svc.handleJoin(context.Background(), client, room.ID))
	drainEvents(client)

	frame := dto.ChatFrame{
		Action:  dto.ActionSendMessage,
		RoomID:  room.ID,
		Content: "<script>alert(1)</script>hei alle sammen",
	}
	require.NoError(t, svc.handleMessage(context.Background(), client, frame))

	var message models.Message
	require.NoError(t, db.Where("room_id = ? AND sender_id = ?", room.ID, 7).First(&message).Error)
	require.Equal(t, "hei alle sammen", message.Content)
	require.Equal(t, models.MessageTypeText, message.MessageType)

	events := drainEvents(client)
	require.Len(t, events[dto.EventNewMessage], 1)
}

func TestHandleMessageLimitCountsCharactersNotBytes(t *testing.T) {
	db, svc, _ := newSessionFixture(t)
	room := seedSessionRoom(t, db, models.Room{Name: "Mixed Matching Room", MaxCapacity: 20})

	client := newSessionClient(svc, 7, "Ana")
	svc.hub.register(client)
	require.NoError(t, svc.handleJoin(context.Background(), client, room.ID))
	drainEvents(client)

	// 1000 two-byte runes stay within the limit even though the byte count
	// is twice the cap.
	atLimit := strings.Repeat("ø", models.MaxMessageLength)
	frame := dto.ChatFrame{Action: dto.ActionSendMessage, RoomID: room.ID, Content: atLimit}
	require.NoError(t, svc.handleMessage(context.Background(), client, frame))

	var message models.Message
	require.NoError(t, db.Where("room_id = ? AND sender_id = ?", room.ID, 7).First(&message).Error)
	require.Equal(t, atLimit, message.Content)

	frame.Content = strings.Repeat("ø", models.MaxMessageLength+1)
	require.Error(t, svc.handleMessage(context.Background(), client, frame))
}

func TestHandleMessageRejectsSystemType(t *testing.T) {
	db, svc, _ := newSessionFixture(t)
	room := seedSessionRoom(t, db, models.Room{Name: "Mixed Matching Room", MaxCapacity: 20})

	client := newSessionClient(svc, 7, "Ana")
	svc.hub.register(client)
	require.NoError(t, svc.handleJoin(context.Background(), client, room.ID))

	frame := dto.ChatFrame{
		Action:      dto.ActionSendMessage,
		RoomID:      room.ID,
		Content:     "pretending to be the server",
		MessageType: string(models.MessageTypeSystem),
	}
	require.Error(t, svc.handleMessage(context.Background(), client, frame))
}

func TestHandleMessageRequiresMembership(t *testing.T) {
	db, svc, _ := newSessionFixture(t)
	room := seedSessionRoom(t, db, models.Room{Name: "Mixed Matching Room", MaxCapacity: 20})

	client := newSessionClient(svc, 7, "Ana")
	frame := dto.ChatFrame{Action: dto.ActionSendMessage, RoomID: room.ID, Content: "hei"}
	require.ErrorIs(t, svc.handleMessage(context.Background(), client, frame), ErrNotInRoom)
}

func TestHandleLeaveClosesMembership(t *testing.T) {
	db, svc, _ := newSessionFixture(t)
	room := seedSessionRoom(t, db, models.Room{Name: "Mixed Matching Room", MaxCapacity: 20})

	client := newSessionClient(svc, 7, "Ana")
	svc.hub.register(client)
	require.NoError(t, svc.handleJoin(context.Background(), client, room.ID))
	require.NoError(t, svc.handleLeave(context.Background(), client, room.ID))

	var participant models.RoomParticipant
	require.NoError(t, db.Where("room_id = ? AND user_id = ?", room.ID, 7).First(&participant).Error)
	require.False(t, participant.IsActive)
	require.Equal(t, models.ParticipantStatusOffline, participant.Status)
	require.NotNil(t, participant.LeftAt)

	var reloaded models.Room
	require.NoError(t, db.First(&reloaded, room.ID).Error)
	require.Zero(t, reloaded.CurrentParticipants)

	// Leaving a room the user is not in reports ErrNotInRoom.
	require.ErrorIs(t, svc.handleLeave(context.Background(), client, room.ID), ErrNotInRoom)
}

func TestHandleReactionTogglesAndBroadcastsCounts(t *testing.T) {
	db, svc, _ := newSessionFixture(t)
	room := seedSessionRoom(t, db, models.Room{Name: "Mixed Matching Room", MaxCapacity: 20})

	client := newSessionClient(svc, 7, "Ana")
	svc.hub.register(client)
	require.NoError(t, svc.handleJoin(context.Background(), client, room.ID))

	message := models.Message{RoomID: room.ID, SenderID: 7, Content: "hei"}
	require.NoError(t, db.Create(&message).Error)
	drainEvents(client)

	frame := dto.ChatFrame{
		Action:       dto.ActionReactToMessage,
		MessageID:    message.ID,
		ReactionType: string(models.ReactionFire),
	}
	require.NoError(t, svc.handleReaction(context.Background(), client, frame))

	var rows int64
	require.NoError(t, db.Model(&models.MessageReaction{}).Where("message_id = ?", message.ID).Count(&rows).Error)
	require.EqualValues(t, 1, rows)

	events := drainEvents(client)
	require.Len(t, events[dto.EventMessageReactionUpdate], 1)

	var payload dto.ReactionUpdatePayload
	require.NoError(t, json.Unmarshal(events[dto.EventMessageReactionUpdate][0].Payload, &payload))
	require.True(t, payload.IsAdded)
	require.Equal(t, string(models.ReactionFire), payload.ReactionType)

	// Reacting again toggles the row off.
	require.NoError(t, svc.handleReaction(context.Background(), client, frame))
	require.NoError(t, db.Model(&models.MessageReaction{}).Where("message_id = ?", message.ID).Count(&rows).Error)
	require.Zero(t, rows)
}

func TestHandleMicrophoneTracksVoiceSessions(t *testing.T) {
	db, svc, _ := newSessionFixture(t)
	room := seedSessionRoom(t, db, models.Room{Name: "Mixed Matching Room", MaxCapacity: 20})

	client := newSessionClient(svc, 7, "Ana")
	svc.hub.register(client)
	require.NoError(t, svc.handleJoin(context.Background(), client, room.ID))

	on := dto.ChatFrame{Action: dto.ActionToggleMic, RoomID: room.ID, Enabled: true}
	require.NoError(t, svc.handleMicrophone(context.Background(), client, on))

	var participant models.RoomParticipant
	require.NoError(t, db.Where("room_id = ? AND user_id = ?", room.ID, 7).First(&participant).Error)
	require.True(t, participant.IsMicrophoneEnabled)

	var active int64
	require.NoError(t, db.Model(&models.VoiceSession{}).
		Where("room_id = ? AND user_id = ? AND is_active = ?", room.ID, 7, true).
		Count(&active).Error)
	require.EqualValues(t, 1, active)

	off := dto.ChatFrame{Action: dto.ActionToggleMic, RoomID: room.ID}
	require.NoError(t, svc.handleMicrophone(context.Background(), client, off))

	require.NoError(t, db.Where("room_id = ? AND user_id = ?", room.ID, 7).First(&participant).Error)
	require.False(t, participant.IsMicrophoneEnabled)
	require.False(t, participant.IsSpeaking)

	require.NoError(t, db.Model(&models.VoiceSession{}).
		Where("room_id = ? AND user_id = ? AND is_active = ?", room.ID, 7, true).
		Count(&active).Error)
	require.Zero(t, active)
}

func TestHandleSpeakingRequiresOpenMicrophone(t *testing.T) {
	db, svc, _ := newSessionFixture(t)
	room := seedSessionRoom(t, db, models.Room{Name: "Mixed Matching Room", MaxCapacity: 20})

	client := newSessionClient(svc, 7, "Ana")
	svc.hub.register(client)
	require.NoError(t, svc.handleJoin(context.Background(), client, room.ID))

	speak := dto.ChatFrame{Action: dto.ActionUpdateSpeaking, RoomID: room.ID, Enabled: true}
	require.NoError(t, svc.handleSpeaking(context.Background(), client, speak))

	var participant models.RoomParticipant
	require.NoError(t, db.Where("room_id = ? AND user_id = ?", room.ID, 7).First(&participant).Error)
	require.False(t, participant.IsSpeaking, "speaking without an open microphone stays off")

	require.NoError(t, svc.handleMicrophone(context.Background(), client,
		dto.ChatFrame{Action: dto.ActionToggleMic, RoomID: room.ID, Enabled: true}))
	require.NoError(t, svc.handleSpeaking(context.Background(), client, speak))

	require.NoError(t, db.Where("room_id = ? AND user_id = ?", room.ID, 7).First(&participant).Error)
	require.True(t, participant.IsSpeaking)
	require.Equal(t, models.ParticipantStatusSpeaking, participant.Status)
}

func TestHandleFanoutSkipsEventsFromThisNode(t *testing.T) {
	db, svc, _ := newSessionFixture(t)
	room := seedSessionRoom(t, db, models.Room{Name: "Mixed Matching Room", MaxCapacity: 20})

	client := newSessionClient(svc, 7, "Ana")
	svc.hub.register(client)
	require.NoError(t, svc.handleJoin(context.Background(), client, room.ID))
	drainEvents(client)

	local, err := json.Marshal(fanoutEvent{
		Source: svc.nodeID,
		RoomID: room.ID,
		Event:  dto.NewChatEvent(dto.EventSystemMessage, nil),
	})
	require.NoError(t, err)
	svc.handleFanout(local)
	require.Empty(t, drainEvents(client))

	remote, err := json.Marshal(fanoutEvent{
		Source: "other-node",
		RoomID: room.ID,
		Event:  dto.NewChatEvent(dto.EventSystemMessage, nil),
	})
	require.NoError(t, err)
	svc.handleFanout(remote)

	events := drainEvents(client)
	require.Len(t, events[dto.EventSystemMessage], 1)
}

func TestHubTracksFirstAndLastConnectionPerUser(t *testing.T) {
	_, svc, _ := newSessionFixture(t)

	first := newSessionClient(svc, 7, "Ana")
	second := newSessionClient(svc, 7, "Ana")

	require.True(t, svc.hub.register(first))
	require.False(t, svc.hub.register(second))

	_, last := svc.hub.unregister(first)
	require.False(t, last)
	_, last = svc.hub.unregister(second)
	require.True(t, last)
}
