package dto

import "time"

// CompatibleUsersQuery filters the compatible-user search.
type CompatibleUsersQuery struct {
	GenderFilter string `json:"gender_filter" validate:"omitempty,oneof=Male Female Mixed"`
	MinAge       *int   `json:"min_age" validate:"omitempty,gte=18,lte=99"`
	MaxAge       *int   `json:"max_age" validate:"omitempty,gte=18,lte=99"`
	Limit        int    `json:"limit" validate:"omitempty,gte=1,lte=100"`
}

// CompatibleUsersResponse lists candidate user ids best-first.
type CompatibleUsersResponse struct {
	CompatibleUsers []uint               `json:"compatible_users"`
	TotalFound      int                  `json:"total_found"`
	Filters         CompatibleUsersQuery `json:"filters"`
}

// CompatibilityResponse reports the pairwise score between two users.
type CompatibilityResponse struct {
	UserID             uint      `json:"user_id"`
	TargetUserID       uint      `json:"target_user_id"`
	CompatibilityScore float64   `json:"compatibility_score"`
	CompatibilityLevel string    `json:"compatibility_level"`
	CalculatedAt       time.Time `json:"calculated_at"`
}

// UserReactionRequest records a like or dislike of another user.
type UserReactionRequest struct {
	TargetUserID uint `json:"target_user_id" validate:"required"`
	IsLike       bool `json:"is_like"`
}

// CreateGroupsRequest asks the optimizer to bucket users into groups.
type CreateGroupsRequest struct {
	UserIDs   []uint `json:"user_ids" validate:"required,min=1"`
	GroupSize int    `json:"group_size" validate:"required,gte=2,lte=20"`
}

// CreateGroupsResponse returns the optimized grouping.
type CreateGroupsResponse struct {
	Groups      [][]uint  `json:"groups"`
	TotalGroups int       `json:"total_groups"`
	TotalUsers  int       `json:"total_users"`
	GroupSize   int       `json:"group_size"`
	CreatedAt   time.Time `json:"created_at"`
}

// MatchingProfile summarises the data the matching engine holds for a user.
type MatchingProfile struct {
	UserID       uint       `json:"user_id"`
	Age          int        `json:"age"`
	Gender       string     `json:"gender,omitempty"`
	City         string     `json:"city,omitempty"`
	Interests    []string   `json:"interests"`
	TotalMatches int64      `json:"total_matches"`
	LastActive   *time.Time `json:"last_active,omitempty"`
}

// OptimalAgeRange recommends an age window relative to the user's own age.
type OptimalAgeRange struct {
	Recommendation string `json:"recommendation"`
	MinRecommended int    `json:"min_recommended"`
	MaxRecommended int    `json:"max_recommended"`
	Note           string `json:"note"`
}

// MatchingStatistics bundles a user's matching profile with general guidance.
type MatchingStatistics struct {
	UserProfile      MatchingProfile `json:"user_profile"`
	MatchingTips     []string        `json:"matching_tips"`
	PopularInterests []string        `json:"popular_interests"`
	OptimalAgeRange  OptimalAgeRange `json:"optimal_age_range"`
}

// MatchingStatisticsResponse is the statistics endpoint payload.
type MatchingStatisticsResponse struct {
	Statistics  MatchingStatistics `json:"statistics"`
	GeneratedAt time.Time          `json:"generated_at"`
}
