package models

// RoomType classifies a chat room.
type RoomType string

const (
	RoomTypeWaiting  RoomType = "Waiting"
	RoomTypeMatching RoomType = "Matching"
	RoomTypePrivate  RoomType = "Private"
	RoomTypePublic   RoomType = "Public"
)

// Valid reports whether the room type is one of the known values.
func (t RoomType) Valid() bool {
	switch t {
	case RoomTypeWaiting, RoomTypeMatching, RoomTypePrivate, RoomTypePublic:
		return true
	}
	return false
}

// RoomTypeDefaults captures the default capacity and duration for a room type.
type RoomTypeDefaults struct {
	MaxCapacity     int
	DurationMinutes *int
}

func minutes(v int) *int { return &v }

// DefaultsForRoomType returns capacity and duration defaults per room type.
// Private and Public rooms have no time limit.
func DefaultsForRoomType(t RoomType) RoomTypeDefaults {
	switch t {
	case RoomTypeWaiting:
		return RoomTypeDefaults{MaxCapacity: 10, DurationMinutes: minutes(15)}
	case RoomTypeMatching:
		return RoomTypeDefaults{MaxCapacity: 20, DurationMinutes: minutes(30)}
	case RoomTypePrivate:
		return RoomTypeDefaults{MaxCapacity: 4}
	default:
		return RoomTypeDefaults{MaxCapacity: 20}
	}
}

// RoomStatus tracks the lifecycle state of a room. Closed, Expired and
// Inactive are terminal; a room is superseded by a new one, never revived.
type RoomStatus string

const (
	RoomStatusActive   RoomStatus = "Active"
	RoomStatusInactive RoomStatus = "Inactive"
	RoomStatusFull     RoomStatus = "Full"
	RoomStatusClosed   RoomStatus = "Closed"
	RoomStatusExpired  RoomStatus = "Expired"
)

// Valid reports whether the status is one of the known values.
func (s RoomStatus) Valid() bool {
	switch s {
	case RoomStatusActive, RoomStatusInactive, RoomStatusFull, RoomStatusClosed, RoomStatusExpired:
		return true
	}
	return false
}

// Terminal reports whether a room in this status can ever become active again.
func (s RoomStatus) Terminal() bool {
	switch s {
	case RoomStatusClosed, RoomStatusExpired, RoomStatusInactive:
		return true
	}
	return false
}

// GenderFilter restricts which users a waiting or matching room accepts.
type GenderFilter string

const (
	GenderFilterMale   GenderFilter = "Male"
	GenderFilterFemale GenderFilter = "Female"
	GenderFilterMixed  GenderFilter = "Mixed"
)

// AllGenderFilters lists the filters the lifecycle engine maintains rooms for.
func AllGenderFilters() []GenderFilter {
	return []GenderFilter{GenderFilterMale, GenderFilterFemale, GenderFilterMixed}
}

// Valid reports whether the filter is one of the known values.
func (g GenderFilter) Valid() bool {
	switch g {
	case GenderFilterMale, GenderFilterFemale, GenderFilterMixed:
		return true
	}
	return false
}

// ParticipantRole describes what a participant may do inside a room.
type ParticipantRole string

const (
	ParticipantRoleOwner     ParticipantRole = "Owner"
	ParticipantRoleModerator ParticipantRole = "Moderator"
	ParticipantRoleMember    ParticipantRole = "Member"
)

// ParticipantStatus describes the presence state of a participant.
type ParticipantStatus string

const (
	ParticipantStatusOnline   ParticipantStatus = "Online"
	ParticipantStatusAway     ParticipantStatus = "Away"
	ParticipantStatusOffline  ParticipantStatus = "Offline"
	ParticipantStatusSpeaking ParticipantStatus = "Speaking"
)

// MessageType classifies chat messages.
type MessageType string

const (
	MessageTypeText     MessageType = "Text"
	MessageTypeEmoji    MessageType = "Emoji"
	MessageTypeReaction MessageType = "Reaction"
	MessageTypeSystem   MessageType = "System"
	MessageTypeGift     MessageType = "Gift"
	MessageTypeJoin     MessageType = "Join"
	MessageTypeLeave    MessageType = "Leave"
)

// Valid reports whether the message type is one of the known values.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeEmoji, MessageTypeReaction, MessageTypeSystem,
		MessageTypeGift, MessageTypeJoin, MessageTypeLeave:
		return true
	}
	return false
}

// ReactionType enumerates the supported message reactions.
type ReactionType string

const (
	ReactionHeart ReactionType = "Heart"
	ReactionLike  ReactionType = "Like"
	ReactionLaugh ReactionType = "Laugh"
	ReactionWow   ReactionType = "Wow"
	ReactionSad   ReactionType = "Sad"
	ReactionAngry ReactionType = "Angry"
	ReactionFire  ReactionType = "Fire"
	ReactionClap  ReactionType = "Clap"
)

var reactionEmojis = map[ReactionType]string{
	ReactionHeart: "❤️",
	ReactionLike:  "👍",
	ReactionLaugh: "😂",
	ReactionWow:   "😮",
	ReactionSad:   "😢",
	ReactionAngry: "😠",
	ReactionFire:  "🔥",
	ReactionClap:  "👏",
}

// Valid reports whether the reaction type is one of the known values.
func (t ReactionType) Valid() bool {
	_, ok := reactionEmojis[t]
	return ok
}

// Emoji returns the glyph for a reaction type, defaulting to a heart.
func (t ReactionType) Emoji() string {
	if emoji, ok := reactionEmojis[t]; ok {
		return emoji
	}
	return reactionEmojis[ReactionHeart]
}

// MatchStatus tracks the state of a match between two users.
type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusAccepted MatchStatus = "accepted"
	MatchStatusRejected MatchStatus = "rejected"
)

// Valid reports whether the match status is one of the known values.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusPending, MatchStatusAccepted, MatchStatusRejected:
		return true
	}
	return false
}
