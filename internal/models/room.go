package models

import "time"

// Room is a chat room. Waiting and Matching rooms are created and recycled by
// the lifecycle engine; Private and Public rooms are user-created.
//
// CurrentParticipants is a denormalised counter maintained by every mutator.
// It must equal the number of participant rows with is_active=true at all
// times; it is never recomputed from the table.
type Room struct {
	ID                  uint         `gorm:"primaryKey" json:"id"`
	Name                string       `gorm:"size:100;not null" json:"name"`
	Description         string       `gorm:"size:500" json:"description,omitempty"`
	RoomType            RoomType     `gorm:"size:20;not null;index" json:"room_type"`
	Status              RoomStatus   `gorm:"size:20;not null;default:Active;index" json:"status"`
	MaxCapacity         int          `gorm:"not null" json:"max_capacity"`
	CurrentParticipants int          `gorm:"default:0" json:"current_participants"`
	CreatedByUserID     *uint        `json:"created_by_user_id,omitempty"`
	GenderFilter        GenderFilter `gorm:"size:10" json:"gender_filter,omitempty"`
	MinAge              *int         `json:"min_age,omitempty"`
	MaxAge              *int         `json:"max_age,omitempty"`
	DurationMinutes     *int         `json:"duration_minutes,omitempty"`
	ExpiresAt           *time.Time   `json:"expires_at,omitempty"`
	IsPremium           bool         `gorm:"default:false" json:"is_premium"`
	Price               *float64     `json:"price,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
	IsActive            bool         `gorm:"default:true;index" json:"is_active"`

	Participants []RoomParticipant `gorm:"constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	Messages     []Message         `gorm:"constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// Expired reports whether the room's expiry time has passed.
func (r Room) Expired(reference time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(reference)
}

// AtCapacity reports whether the counter says the room is full.
func (r Room) AtCapacity() bool {
	return r.CurrentParticipants >= r.MaxCapacity
}

// RoomParticipant tracks one user's membership in one room. At most one row
// per (room, user) pair may be active; leaving, eviction and expiry soft-close
// the row rather than deleting it.
type RoomParticipant struct {
	ID                  uint              `gorm:"primaryKey" json:"id"`
	RoomID              uint              `gorm:"not null;index" json:"room_id"`
	UserID              uint              `gorm:"not null;index" json:"user_id"`
	DisplayName         string            `gorm:"size:100;not null" json:"display_name"`
	ProfileImageURL     string            `gorm:"size:512" json:"profile_image_url,omitempty"`
	Role                ParticipantRole   `gorm:"size:20;default:Member" json:"role"`
	Status              ParticipantStatus `gorm:"size:20;default:Online" json:"status"`
	IsMicrophoneEnabled bool              `gorm:"default:false" json:"is_microphone_enabled"`
	IsSpeaking          bool              `gorm:"default:false" json:"is_speaking"`
	GridPosition        *int              `json:"grid_position,omitempty"`
	JoinedAt            time.Time         `json:"joined_at"`
	LeftAt              *time.Time        `json:"left_at,omitempty"`
	LastActivityAt      time.Time         `json:"last_activity_at"`
	TotalTimeMinutes    int               `gorm:"default:0" json:"total_time_minutes"`
	IsActive            bool              `gorm:"default:true;index" json:"is_active"`
	ConnectionID        string            `gorm:"size:100" json:"-"`

	Room Room `gorm:"foreignKey:RoomID" json:"-"`
}

// GridCapacity is the number of visual grid slots in a room layout.
const GridCapacity = 20

// NextGridPosition returns the lowest free slot in [1, GridCapacity] given the
// positions already held by active participants, or nil when all are taken.
func NextGridPosition(taken []int) *int {
	used := make(map[int]struct{}, len(taken))
	for _, p := range taken {
		used[p] = struct{}{}
	}
	for slot := 1; slot <= GridCapacity; slot++ {
		if _, ok := used[slot]; !ok {
			return &slot
		}
	}
	return nil
}
