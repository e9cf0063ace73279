package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/observability"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

const (
	sessionSendBufferSize = 32
	sessionKeepalive      = 30 * time.Second
)

// Session manager errors surfaced to clients as Error events.
var (
	ErrRoomFull       = errors.New("room is full")
	ErrRoomClosed     = errors.New("room is not joinable")
	ErrNotInRoom      = errors.New("not an active participant of this room")
	ErrRoomRestricted = errors.New("room restrictions do not allow this user")
)

// RoomSessionOptions wraps metadata extracted during the HTTP upgrade.
type RoomSessionOptions struct {
	UserID          uint
	UserName        string
	ProfileImageURL string
	CorrelationID   string
	Context         context.Context
}

// RoomSessionService manages realtime room connections: presence, joins,
// chat delivery and the per-participant flags.
type RoomSessionService interface {
	ServeConnection(conn *websocket.Conn, opts RoomSessionOptions)
	Start(ctx context.Context)
}

type roomSessionService struct {
	rooms        repository.RoomRepository
	participants repository.ParticipantRepository
	messages     repository.MessageRepository
	users        repository.UserRepository
	voice        repository.VoiceSessionRepository
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	validator    *validator.Validate
	sanitizer    *bluemonday.Policy
	metrics      *observability.Metrics
	logger       zerolog.Logger
	tracer       trace.Tracer
	hub          *sessionHub
	joinLocks    *keyedMutex
	nodeID       string
	now          func() time.Time
}

// sessionHub tracks open connections grouped by room and by user.
type sessionHub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*sessionClient]struct{}
	users map[uint]map[*sessionClient]struct{}
	log   zerolog.Logger
}

type sessionClient struct {
	conn    *websocket.Conn
	send    chan dto.ChatEvent
	options RoomSessionOptions
	service *roomSessionService
	closed  chan struct{}
	once    sync.Once
	baseCtx context.Context

	// joined is guarded by the hub mutex.
	joined map[uint]struct{}
}

// fanoutEvent is the cross-node envelope published to redis and NATS. RoomID
// zero means the event is global (presence).
type fanoutEvent struct {
	Source string        `json:"source"`
	RoomID uint          `json:"room_id"`
	Event  dto.ChatEvent `json:"event"`
	SentAt time.Time     `json:"sent_at"`
}

// keyedMutex serialises joins per room so the capacity check and the counter
// increment cannot interleave across connections on this node.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uint]*sync.Mutex)}
}

func (k *keyedMutex) lock(key uint) *sync.Mutex {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m
}

// NewRoomSessionService creates the realtime session manager.
func NewRoomSessionService(
	rooms repository.RoomRepository,
	participants repository.ParticipantRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	voice repository.VoiceSessionRepository,
	redisClient *redis.Client,
	channelBase string,
	natsConn *nats.Conn,
	validate *validator.Validate,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) RoomSessionService {
	sanitizer := bluemonday.UGCPolicy()
	sanitizer.AllowElements("br")

	redisChannel := ""
	natsSubject := ""
	if channelBase != "" {
		redisChannel = channelBase + ":rooms"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".rooms"
	}

	return &roomSessionService{
		rooms:        rooms,
		participants: participants,
		messages:     messages,
		users:        users,
		voice:        voice,
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		validator:    validate,
		sanitizer:    sanitizer,
		metrics:      metrics,
		logger:       logger.With().Str("component", "room_session").Logger(),
		tracer:       otel.Tracer("github.com/matchfyn/matchfyn-api/internal/service/room_session"),
		hub: &sessionHub{
			rooms: make(map[uint]map[*sessionClient]struct{}),
			users: make(map[uint]map[*sessionClient]struct{}),
			log:   logger.With().Str("component", "session_hub").Logger(),
		},
		joinLocks: newKeyedMutex(),
		nodeID:    uuid.NewString(),
		now:       time.Now,
	}
}

// Start begins consuming cross-node fan-out from redis and NATS.
func (s *roomSessionService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *roomSessionService) ServeConnection(conn *websocket.Conn, opts RoomSessionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := &sessionClient{
		conn:    conn,
		send:    make(chan dto.ChatEvent, sessionSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
		joined:  make(map[uint]struct{}),
	}

	first := s.hub.register(client)
	if s.metrics != nil {
		s.metrics.ConnectionOpened()
	}

	if first {
		s.broadcastGlobal(baseCtx, dto.NewChatEvent(dto.EventUserOnline, dto.PresencePayload{
			UserID:   opts.UserID,
			UserName: opts.UserName,
		}))
	}

	go client.writer()
	client.reader()

	s.handleDisconnect(baseCtx, client)
	if s.metrics != nil {
		s.metrics.ConnectionClosed()
	}
}

func (s *roomSessionService) dispatch(ctx context.Context, client *sessionClient, frame dto.ChatFrame) {
	var err error
	switch frame.Action {
	case dto.ActionJoinRoom:
		err = s.handleJoin(ctx, client, frame.RoomID)
	case dto.ActionLeaveRoom:
		err = s.handleLeave(ctx, client, frame.RoomID)
	case dto.ActionSendMessage:
		err = s.handleMessage(ctx, client, frame)
	case dto.ActionReactToMessage:
		err = s.handleReaction(ctx, client, frame)
	case dto.ActionToggleMic:
		err = s.handleMicrophone(ctx, client, frame)
	case dto.ActionUpdateSpeaking:
		err = s.handleSpeaking(ctx, client, frame)
	default:
		err = fmt.Errorf("unknown action %q", frame.Action)
	}

	if err != nil {
		s.logger.Debug().Err(err).
			Str("action", frame.Action).
			Uint("user_id", client.options.UserID).
			Msg("realtime action failed")
		client.push(dto.NewChatEvent(dto.EventError, dto.ErrorPayload{Reason: err.Error()}))
	}
}

// handleJoin admits the user into the room. The capacity check, the row
// reuse and the counter increment run under a per-room lock.
func (s *roomSessionService) handleJoin(ctx context.Context, client *sessionClient, roomID uint) error {
	if roomID == 0 {
		return fmt.Errorf("room_id is required")
	}

	spanCtx, span := s.tracer.Start(ctx, "session.join_room", trace.WithAttributes(
		attribute.Int64("room.id", int64(roomID)),
		attribute.Int64("user.id", int64(client.options.UserID)),
	))
	defer span.End()

	lock := s.joinLocks.lock(roomID)
	defer lock.Unlock()

	room, err := s.rooms.GetByID(spanCtx, roomID)
	if err != nil {
		return ErrRoomClosed
	}
	if !room.IsActive || room.Status.Terminal() {
		return ErrRoomClosed
	}

	if err := s.checkRestrictions(spanCtx, room, client.options.UserID); err != nil {
		return err
	}

	now := s.now()

	// Rejoining while still active is idempotent; just refresh presence.
	if existing, err := s.participants.ActiveByRoomAndUser(spanCtx, roomID, client.options.UserID); err == nil {
		existing.Status = models.ParticipantStatusOnline
		existing.LastActivityAt = now
		if err := s.participants.Save(spanCtx, &existing); err != nil {
			return err
		}
		s.hub.join(client, roomID)
		return s.sendJoined(spanCtx, client, roomID)
	} else if !errors.Is(err, repository.ErrNoParticipant) {
		return err
	}

	if room.AtCapacity() {
		return ErrRoomFull
	}

	active, err := s.participants.ListActiveByRoom(spanCtx, roomID)
	if err != nil {
		return err
	}
	taken := make([]int, 0, len(active))
	for _, p := range active {
		if p.GridPosition != nil {
			taken = append(taken, *p.GridPosition)
		}
	}
	slot := models.NextGridPosition(taken)

	// Reuse the latest soft-closed row for this pair when one exists so the
	// membership history stays one row per stint.
	participant, err := s.participants.LatestInactiveByRoomAndUser(spanCtx, roomID, client.options.UserID)
	switch {
	case err == nil:
		participant.IsActive = true
		participant.Status = models.ParticipantStatusOnline
		participant.DisplayName = client.options.UserName
		participant.ProfileImageURL = client.options.ProfileImageURL
		participant.GridPosition = slot
		participant.JoinedAt = now
		participant.LeftAt = nil
		participant.LastActivityAt = now
		participant.IsMicrophoneEnabled = false
		participant.IsSpeaking = false
		if err := s.participants.Save(spanCtx, &participant); err != nil {
			return err
		}
	case errors.Is(err, repository.ErrNoParticipant):
		participant = models.RoomParticipant{
			RoomID:          roomID,
			UserID:          client.options.UserID,
			DisplayName:     client.options.UserName,
			ProfileImageURL: client.options.ProfileImageURL,
			Role:            models.ParticipantRoleMember,
			Status:          models.ParticipantStatusOnline,
			GridPosition:    slot,
			JoinedAt:        now,
			LastActivityAt:  now,
			IsActive:        true,
		}
		if err := s.participants.Create(spanCtx, &participant); err != nil {
			return err
		}
	default:
		return err
	}

	room.CurrentParticipants++
	if err := s.rooms.Save(spanCtx, &room); err != nil {
		return err
	}

	s.hub.join(client, roomID)

	s.broadcastRoom(spanCtx, roomID, dto.NewChatEvent(dto.EventUserJoinedRoom, dto.RoomPresencePayload{
		UserID:   client.options.UserID,
		UserName: client.options.UserName,
		RoomID:   roomID,
	}))
	s.systemMessage(spanCtx, roomID, models.MessageTypeJoin,
		fmt.Sprintf("%s joined the room", client.options.UserName))

	return s.sendJoined(spanCtx, client, roomID)
}

// sendJoined delivers the room snapshot to the joining client only.
func (s *roomSessionService) sendJoined(ctx context.Context, client *sessionClient, roomID uint) error {
	room, err := s.rooms.GetActiveWithParticipants(ctx, roomID)
	if err != nil {
		return err
	}

	view := dto.NewRoomResponse(room)
	client.push(dto.NewChatEvent(dto.EventJoinedRoom, dto.RoomPresencePayload{
		UserID:   client.options.UserID,
		UserName: client.options.UserName,
		RoomID:   roomID,
		Room:     &view,
	}))
	return nil
}

func (s *roomSessionService) checkRestrictions(ctx context.Context, room models.Room, userID uint) error {
	if room.GenderFilter == "" || room.GenderFilter == models.GenderFilterMixed {
		if room.MinAge == nil && room.MaxAge == nil {
			return nil
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if room.GenderFilter != "" && room.GenderFilter != models.GenderFilterMixed &&
		!strings.EqualFold(string(room.GenderFilter), user.Gender) {
		return ErrRoomRestricted
	}

	age := user.Age(s.now())
	if room.MinAge != nil && age < *room.MinAge {
		return ErrRoomRestricted
	}
	if room.MaxAge != nil && age > *room.MaxAge {
		return ErrRoomRestricted
	}

	return nil
}

func (s *roomSessionService) handleLeave(ctx context.Context, client *sessionClient, roomID uint) error {
	if roomID == 0 {
		return fmt.Errorf("room_id is required")
	}

	if err := s.removeParticipant(ctx, roomID, client.options.UserID); err != nil {
		return err
	}

	s.hub.leave(client, roomID)

	s.broadcastRoom(ctx, roomID, dto.NewChatEvent(dto.EventUserLeftRoom, dto.RoomPresencePayload{
		UserID:   client.options.UserID,
		UserName: client.options.UserName,
		RoomID:   roomID,
	}))
	s.systemMessage(ctx, roomID, models.MessageTypeLeave,
		fmt.Sprintf("%s left the room", client.options.UserName))

	return nil
}

// removeParticipant soft-closes the membership row, settles the time counter
// and decrements the room counter.
func (s *roomSessionService) removeParticipant(ctx context.Context, roomID, userID uint) error {
	lock := s.joinLocks.lock(roomID)
	defer lock.Unlock()

	participant, err := s.participants.ActiveByRoomAndUser(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNoParticipant) {
			return ErrNotInRoom
		}
		return err
	}

	now := s.now()
	left := now
	participant.IsActive = false
	participant.Status = models.ParticipantStatusOffline
	participant.LeftAt = &left
	participant.TotalTimeMinutes = int(now.Sub(participant.JoinedAt).Minutes())
	if err := s.participants.Save(ctx, &participant); err != nil {
		return err
	}

	if err := s.voice.CloseForUser(ctx, roomID, userID, now); err != nil {
		s.logger.Warn().Err(err).Uint("room_id", roomID).Msg("failed to close voice session")
	}

	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CurrentParticipants > 0 {
		room.CurrentParticipants--
		if err := s.rooms.Save(ctx, &room); err != nil {
			return err
		}
	}

	return nil
}

func (s *roomSessionService) handleMessage(ctx context.Context, client *sessionClient, frame dto.ChatFrame) error {
	if frame.RoomID == 0 {
		return fmt.Errorf("room_id is required")
	}

	participant, err := s.activeParticipant(ctx, frame.RoomID, client.options.UserID)
	if err != nil {
		return err
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(frame.Content))
	if clean == "" {
		return fmt.Errorf("message content empty after sanitization")
	}
	if utf8.RuneCountInString(clean) > models.MaxMessageLength {
		return fmt.Errorf("message exceeds %d characters", models.MaxMessageLength)
	}

	messageType := models.MessageType(frame.MessageType)
	if messageType == "" {
		messageType = models.MessageTypeText
	}
	if !messageType.Valid() || messageType == models.MessageTypeSystem {
		return fmt.Errorf("unsupported message type %q", frame.MessageType)
	}

	attrs := []attribute.KeyValue{
		attribute.Int64("room.id", int64(frame.RoomID)),
		attribute.Int64("user.id", int64(client.options.UserID)),
		attribute.String("message.type", string(messageType)),
	}
	if client.options.CorrelationID != "" {
		attrs = append(attrs, attribute.String("correlation_id", client.options.CorrelationID))
	}

	spanCtx, span := s.tracer.Start(ctx, "session.send_message", trace.WithAttributes(attrs...))
	defer span.End()

	message := models.Message{
		RoomID:      frame.RoomID,
		SenderID:    client.options.UserID,
		Content:     clean,
		MessageType: messageType,
	}
	if err := s.messages.Create(spanCtx, &message); err != nil {
		span.RecordError(err)
		return err
	}

	s.touchParticipant(spanCtx, &participant)
	if s.metrics != nil {
		s.metrics.MessagePersisted()
	}

	s.broadcastRoom(spanCtx, frame.RoomID, dto.NewChatEvent(dto.EventNewMessage, dto.NewMessagePayload{
		MessageResponse: dto.NewMessageResponse(message),
		SenderUserID:    client.options.UserID,
		SenderName:      client.options.UserName,
		Timestamp:       message.CreatedAt.UnixMilli(),
	}))

	return nil
}

func (s *roomSessionService) handleReaction(ctx context.Context, client *sessionClient, frame dto.ChatFrame) error {
	if frame.MessageID == 0 {
		return fmt.Errorf("message_id is required")
	}

	reaction := models.ReactionType(frame.ReactionType)
	if !reaction.Valid() {
		return fmt.Errorf("unknown reaction type %q", frame.ReactionType)
	}

	message, err := s.messages.GetByID(ctx, frame.MessageID)
	if err != nil {
		return fmt.Errorf("message not found")
	}

	participant, err := s.activeParticipant(ctx, message.RoomID, client.options.UserID)
	if err != nil {
		return err
	}

	added, err := s.messages.ToggleReaction(ctx, message.ID, client.options.UserID, reaction)
	if err != nil {
		return err
	}

	counts, err := s.messages.ReactionCounts(ctx, message.ID)
	if err != nil {
		return err
	}

	s.touchParticipant(ctx, &participant)
	if s.metrics != nil {
		s.metrics.ReactionToggled()
	}

	s.broadcastRoom(ctx, message.RoomID, dto.NewChatEvent(dto.EventMessageReactionUpdate, dto.ReactionUpdatePayload{
		MessageID:      message.ID,
		RoomID:         message.RoomID,
		ReactionType:   string(reaction),
		UserID:         client.options.UserID,
		IsAdded:        added,
		ReactionCounts: counts,
	}))

	return nil
}

func (s *roomSessionService) handleMicrophone(ctx context.Context, client *sessionClient, frame dto.ChatFrame) error {
	if frame.RoomID == 0 {
		return fmt.Errorf("room_id is required")
	}

	participant, err := s.activeParticipant(ctx, frame.RoomID, client.options.UserID)
	if err != nil {
		return err
	}

	now := s.now()
	participant.IsMicrophoneEnabled = frame.Enabled
	participant.LastActivityAt = now
	if !frame.Enabled {
		participant.IsSpeaking = false
		if participant.Status == models.ParticipantStatusSpeaking {
			participant.Status = models.ParticipantStatusOnline
		}
	}
	if err := s.participants.Save(ctx, &participant); err != nil {
		return err
	}

	if frame.Enabled {
		session := models.VoiceSession{
			RoomID:    frame.RoomID,
			UserID:    client.options.UserID,
			StartedAt: now,
			IsActive:  true,
		}
		if err := s.voice.Open(ctx, &session); err != nil {
			s.logger.Warn().Err(err).Uint("room_id", frame.RoomID).Msg("failed to open voice session")
		}
	} else if err := s.voice.CloseForUser(ctx, frame.RoomID, client.options.UserID, now); err != nil {
		s.logger.Warn().Err(err).Uint("room_id", frame.RoomID).Msg("failed to close voice session")
	}

	s.broadcastRoom(ctx, frame.RoomID, dto.NewChatEvent(dto.EventMicrophoneToggled, dto.ParticipantFlagPayload{
		UserID:        client.options.UserID,
		ParticipantID: participant.ID,
		RoomID:        frame.RoomID,
		Enabled:       frame.Enabled,
	}))

	return nil
}

func (s *roomSessionService) handleSpeaking(ctx context.Context, client *sessionClient, frame dto.ChatFrame) error {
	if frame.RoomID == 0 {
		return fmt.Errorf("room_id is required")
	}

	participant, err := s.activeParticipant(ctx, frame.RoomID, client.options.UserID)
	if err != nil {
		return err
	}

	participant.IsSpeaking = frame.Enabled && participant.IsMicrophoneEnabled
	if participant.IsSpeaking {
		participant.Status = models.ParticipantStatusSpeaking
	} else if participant.Status == models.ParticipantStatusSpeaking {
		participant.Status = models.ParticipantStatusOnline
	}
	participant.LastActivityAt = s.now()
	if err := s.participants.Save(ctx, &participant); err != nil {
		return err
	}

	s.broadcastRoom(ctx, frame.RoomID, dto.NewChatEvent(dto.EventSpeakingStatusUpdate, dto.ParticipantFlagPayload{
		UserID:        client.options.UserID,
		ParticipantID: participant.ID,
		RoomID:        frame.RoomID,
		Enabled:       participant.IsSpeaking,
		Status:        string(participant.Status),
	}))

	return nil
}

// handleDisconnect runs after the read loop ends. When the user's last
// connection drops, every active membership is closed out.
func (s *roomSessionService) handleDisconnect(ctx context.Context, client *sessionClient) {
	rooms, last := s.hub.unregister(client)

	if !last {
		return
	}

	memberships, err := s.participants.ListActiveByUser(ctx, client.options.UserID)
	if err != nil {
		s.logger.Error().Err(err).Uint("user_id", client.options.UserID).Msg("failed to list memberships on disconnect")
		memberships = nil
	}

	for _, membership := range memberships {
		if err := s.removeParticipant(ctx, membership.RoomID, client.options.UserID); err != nil && !errors.Is(err, ErrNotInRoom) {
			s.logger.Error().Err(err).Uint("room_id", membership.RoomID).Msg("failed to close membership on disconnect")
		}
	}

	if err := s.voice.CloseAllForUser(ctx, client.options.UserID, s.now()); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", client.options.UserID).Msg("failed to close voice sessions on disconnect")
	}

	seen := make(map[uint]struct{}, len(rooms)+len(memberships))
	for _, roomID := range rooms {
		seen[roomID] = struct{}{}
	}
	for _, membership := range memberships {
		seen[membership.RoomID] = struct{}{}
	}
	for roomID := range seen {
		s.broadcastRoom(ctx, roomID, dto.NewChatEvent(dto.EventUserLeftRoom, dto.RoomPresencePayload{
			UserID:   client.options.UserID,
			UserName: client.options.UserName,
			RoomID:   roomID,
		}))
	}

	s.broadcastGlobal(ctx, dto.NewChatEvent(dto.EventUserOffline, dto.PresencePayload{
		UserID:   client.options.UserID,
		UserName: client.options.UserName,
	}))
}

func (s *roomSessionService) activeParticipant(ctx context.Context, roomID, userID uint) (models.RoomParticipant, error) {
	participant, err := s.participants.ActiveByRoomAndUser(ctx, roomID, userID)
	if errors.Is(err, repository.ErrNoParticipant) {
		return models.RoomParticipant{}, ErrNotInRoom
	}
	return participant, err
}

func (s *roomSessionService) touchParticipant(ctx context.Context, participant *models.RoomParticipant) {
	participant.LastActivityAt = s.now()
	if participant.Status == models.ParticipantStatusAway {
		participant.Status = models.ParticipantStatusOnline
	}
	if err := s.participants.Save(ctx, participant); err != nil {
		s.logger.Warn().Err(err).Uint("participant_id", participant.ID).Msg("failed to touch participant activity")
	}
}

// systemMessage persists and broadcasts a server-generated room notice.
func (s *roomSessionService) systemMessage(ctx context.Context, roomID uint, messageType models.MessageType, content string) {
	message := models.Message{
		RoomID:      roomID,
		SenderID:    models.SystemSenderID,
		Content:     content,
		MessageType: messageType,
	}
	if err := s.messages.Create(ctx, &message); err != nil {
		s.logger.Warn().Err(err).Uint("room_id", roomID).Msg("failed to persist system message")
		return
	}

	s.broadcastRoom(ctx, roomID, dto.NewChatEvent(dto.EventSystemMessage, dto.SystemMessagePayload{
		ID:          message.ID,
		RoomID:      roomID,
		Content:     content,
		MessageType: string(messageType),
		CreatedAt:   message.CreatedAt.UnixMilli(),
	}))
}

func (s *roomSessionService) broadcastRoom(ctx context.Context, roomID uint, event dto.ChatEvent) {
	s.hub.broadcastRoom(roomID, event)
	s.publish(ctx, fanoutEvent{Source: s.nodeID, RoomID: roomID, Event: event, SentAt: s.now().UTC()})
}

func (s *roomSessionService) broadcastGlobal(ctx context.Context, event dto.ChatEvent) {
	s.hub.broadcastAll(event)
	s.publish(ctx, fanoutEvent{Source: s.nodeID, Event: event, SentAt: s.now().UTC()})
}

func (s *roomSessionService) publish(ctx context.Context, event fanoutEvent) {
	if (s.redis == nil || s.redisChannel == "") && (s.nats == nil || s.natsSubject == "") {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal fanout event")
		return
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish fanout event to redis")
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish fanout event to nats")
		}
	}
}

func (s *roomSessionService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("room session redis subscription closed")
			return
		}
		s.handleFanout([]byte(msg.Payload))
	}
}

func (s *roomSessionService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "matchfyn-rooms", func(msg *nats.Msg) {
		s.handleFanout(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats room subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain nats room subscription")
		}
	}()
}

// handleFanout delivers events published by other nodes to local clients.
func (s *roomSessionService) handleFanout(data []byte) {
	var event fanoutEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid fanout event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	if event.RoomID == 0 {
		s.hub.broadcastAll(event.Event)
		return
	}
	s.hub.broadcastRoom(event.RoomID, event.Event)
}

func (h *sessionHub) register(client *sessionClient) (firstForUser bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := client.options.UserID
	if _, exists := h.users[userID]; !exists {
		h.users[userID] = make(map[*sessionClient]struct{})
		firstForUser = true
	}
	h.users[userID][client] = struct{}{}

	h.log.Debug().Uint("user_id", userID).Msg("session client connected")
	return firstForUser
}

// unregister removes the client and reports the rooms it had joined and
// whether this was the user's last open connection.
func (h *sessionHub) unregister(client *sessionClient) (rooms []uint, lastForUser bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomID := range client.joined {
		rooms = append(rooms, roomID)
		if clients, ok := h.rooms[roomID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	client.joined = make(map[uint]struct{})

	userID := client.options.UserID
	if clients, ok := h.users[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.users, userID)
			lastForUser = true
		}
	}

	h.log.Debug().Uint("user_id", userID).Msg("session client disconnected")
	return rooms, lastForUser
}

func (h *sessionHub) join(client *sessionClient, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.rooms[roomID]; !exists {
		h.rooms[roomID] = make(map[*sessionClient]struct{})
	}
	h.rooms[roomID][client] = struct{}{}
	client.joined[roomID] = struct{}{}
}

func (h *sessionHub) leave(client *sessionClient, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(client.joined, roomID)
	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *sessionHub) broadcastRoom(roomID uint, event dto.ChatEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[roomID] {
		client.push(event)
	}
}

func (h *sessionHub) broadcastAll(event dto.ChatEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := make(map[*sessionClient]struct{})
	for _, clients := range h.users {
		for client := range clients {
			if _, ok := delivered[client]; ok {
				continue
			}
			delivered[client] = struct{}{}
			client.push(event)
		}
	}
}

// push enqueues an event, dropping it when the client cannot keep up.
func (c *sessionClient) push(event dto.ChatEvent) {
	select {
	case c.send <- event:
	default:
		c.service.logger.Warn().
			Uint("user_id", c.options.UserID).
			Str("event", event.Event).
			Msg("dropping event for slow client")
	}
}

func (c *sessionClient) reader() {
	defer c.close()

	for {
		var frame dto.ChatFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			c.service.logger.Debug().Err(err).Msg("session read loop ended")
			return
		}

		c.service.dispatch(c.baseCtx, c, frame)
	}
}

func (c *sessionClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("session write loop terminated")
				return
			}
		case <-time.After(sessionKeepalive):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("session ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *sessionClient) close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}
