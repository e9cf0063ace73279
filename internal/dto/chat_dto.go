package dto

import "encoding/json"

// Client -> server websocket actions.
const (
	ActionJoinRoom       = "join_room"
	ActionLeaveRoom      = "leave_room"
	ActionSendMessage    = "send_message"
	ActionReactToMessage = "react_to_message"
	ActionToggleMic      = "toggle_microphone"
	ActionUpdateSpeaking = "update_speaking"
)

// Server -> client websocket events.
const (
	EventUserOnline            = "UserOnline"
	EventUserOffline           = "UserOffline"
	EventUserJoinedRoom        = "UserJoinedRoom"
	EventUserLeftRoom          = "UserLeftRoom"
	EventJoinedRoom            = "JoinedRoom"
	EventNewMessage            = "NewMessage"
	EventMessageReactionUpdate = "MessageReactionUpdate"
	EventMicrophoneToggled     = "MicrophoneToggled"
	EventSpeakingStatusUpdate  = "SpeakingStatusUpdate"
	EventSystemMessage         = "SystemMessage"
	EventError                 = "Error"
)

// ChatFrame is one client request on the realtime channel.
type ChatFrame struct {
	Action       string `json:"action" validate:"required"`
	RoomID       uint   `json:"room_id,omitempty"`
	Content      string `json:"content,omitempty"`
	MessageType  string `json:"message_type,omitempty"`
	MessageID    uint   `json:"message_id,omitempty"`
	ReactionType string `json:"reaction_type,omitempty"`
	Enabled      bool   `json:"enabled,omitempty"`
}

// ChatEvent is one server push on the realtime channel.
type ChatEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewChatEvent marshals a payload into an event frame. Marshal failures
// degrade to an empty payload rather than dropping the event.
func NewChatEvent(event string, payload interface{}) ChatEvent {
	if payload == nil {
		return ChatEvent{Event: event}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return ChatEvent{Event: event}
	}

	return ChatEvent{Event: event, Payload: raw}
}

// PresencePayload announces a user going online or offline.
type PresencePayload struct {
	UserID   uint   `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
}

// RoomPresencePayload announces a join or leave inside a room.
type RoomPresencePayload struct {
	UserID   uint          `json:"user_id"`
	UserName string        `json:"user_name,omitempty"`
	RoomID   uint          `json:"room_id"`
	Room     *RoomResponse `json:"room,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// NewMessagePayload carries a freshly persisted chat message.
type NewMessagePayload struct {
	MessageResponse
	SenderUserID uint   `json:"sender_user_id"`
	SenderName   string `json:"sender_name"`
	Timestamp    int64  `json:"timestamp"`
}

// ReactionUpdatePayload carries refreshed per-type reaction counts.
type ReactionUpdatePayload struct {
	MessageID      uint        `json:"message_id"`
	RoomID         uint        `json:"room_id"`
	ReactionType   string      `json:"reaction_type"`
	UserID         uint        `json:"user_id"`
	IsAdded        bool        `json:"is_added"`
	ReactionCounts interface{} `json:"reaction_counts"`
}

// ParticipantFlagPayload carries microphone/speaking flag changes.
type ParticipantFlagPayload struct {
	UserID        uint   `json:"user_id"`
	ParticipantID uint   `json:"participant_id"`
	RoomID        uint   `json:"room_id"`
	Enabled       bool   `json:"enabled"`
	Status        string `json:"status,omitempty"`
}

// SystemMessagePayload carries a server-generated room notice.
type SystemMessagePayload struct {
	ID          uint   `json:"id"`
	RoomID      uint   `json:"room_id"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	CreatedAt   int64  `json:"created_at"`
}

// ErrorPayload carries a client-visible failure reason.
type ErrorPayload struct {
	Reason string `json:"reason"`
}
