package models

import "time"

// User is a registered account with the profile fields the matching engine
// scores on: date of birth, city, interests and last login recency.
type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Name               string     `gorm:"size:100;not null" json:"name"`
	Email              string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash       string     `gorm:"size:255;not null" json:"-"`
	PhoneNumber        string     `gorm:"size:20" json:"phone_number,omitempty"`
	DateOfBirth        time.Time  `gorm:"not null" json:"date_of_birth"`
	Gender             string     `gorm:"size:10" json:"gender,omitempty"`
	City               string     `gorm:"size:100" json:"city,omitempty"`
	Bio                string     `gorm:"size:500" json:"bio,omitempty"`
	ProfileImageURL    string     `gorm:"size:512" json:"profile_image_url,omitempty"`
	IsEmailVerified    bool       `gorm:"default:false" json:"is_email_verified"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	RefreshToken       string     `gorm:"size:255" json:"-"`
	RefreshTokenExpiry *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	IsActive           bool       `gorm:"default:true" json:"is_active"`

	Interests []UserInterest `gorm:"constraint:OnDelete:CASCADE" json:"interests,omitempty"`
}

// Age returns the user's age in whole years by plain year subtraction. The
// matching engine intentionally skips the birthday-not-yet-occurred adjustment.
func (u User) Age(reference time.Time) int {
	return reference.Year() - u.DateOfBirth.Year()
}

// Interest is a selectable topic users attach to their profile.
type Interest struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"size:500" json:"description,omitempty"`
	Category    string `gorm:"size:50" json:"category,omitempty"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
}

// UserInterest links a user to an interest.
type UserInterest struct {
	UserID     uint      `gorm:"primaryKey" json:"user_id"`
	InterestID uint      `gorm:"primaryKey" json:"interest_id"`
	Interest   Interest  `gorm:"constraint:OnDelete:CASCADE" json:"interest,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
