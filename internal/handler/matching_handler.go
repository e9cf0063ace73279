package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/service"
	"github.com/matchfyn/matchfyn-api/internal/utils"
)

// MatchingHandler exposes the compatibility scorer and the group optimizer.
type MatchingHandler struct {
	service   service.MatchingService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewMatchingHandler constructs a matching handler.
func NewMatchingHandler(service service.MatchingService, validate *validator.Validate, logger zerolog.Logger) *MatchingHandler {
	return &MatchingHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "matching_handler").Logger(),
	}
}

// Register wires the matching routes.
func (h *MatchingHandler) Register(router fiber.Router) {
	router.Get("/compatible", h.compatible)
	router.Get("/compatibility/:targetId", h.compatibility)
	router.Post("/reaction", h.reaction)
	router.Post("/groups", h.groups)
	router.Get("/profile", h.profile)
	router.Get("/statistics", h.statistics)
}

func (h *MatchingHandler) compatible(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	query := dto.CompatibleUsersQuery{GenderFilter: c.Query("gender_filter")}

	if minAge, err := parseQueryInt(c, "min_age"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid min_age")
	} else if minAge > 0 {
		query.MinAge = &minAge
	}
	if maxAge, err := parseQueryInt(c, "max_age"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid max_age")
	} else if maxAge > 0 {
		query.MaxAge = &maxAge
	}
	if limit, err := parseQueryInt(c, "limit"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	} else {
		query.Limit = limit
	}

	if err := h.validator.Struct(query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, validationMessage(err))
	}

	response, err := h.service.FindCompatibleUsers(c.Context(), userID, query)
	if err != nil {
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("compatible user search failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to find compatible users")
	}

	return utils.SendSuccess(c, "compatible users", response)
}

func (h *MatchingHandler) compatibility(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	targetID, err := parseIDParam(c, "targetId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.CompatibilityScore(c.Context(), userID, targetID)
	if err != nil {
		if errors.Is(err, service.ErrSelfReference) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		h.logger.Error().Err(err).Uint("target_id", targetID).Msg("compatibility score failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to compute compatibility")
	}

	return utils.SendSuccess(c, "compatibility", response)
}

func (h *MatchingHandler) reaction(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.UserReactionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, validationMessage(err))
	}

	if err := h.service.ProcessReaction(c.Context(), userID, payload.TargetUserID, payload.IsLike); err != nil {
		if errors.Is(err, service.ErrSelfReference) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to process reaction")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to process reaction")
	}

	return utils.SendSuccess(c, "reaction processed", nil)
}

func (h *MatchingHandler) groups(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.CreateGroupsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, validationMessage(err))
	}

	groups, err := h.service.BuildGroups(c.Context(), payload.UserIDs, payload.GroupSize)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusBadRequest, "one or more users do not exist")
		}
		h.logger.Error().Err(err).Msg("group optimization failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to build groups")
	}

	return utils.SendSuccess(c, "groups created", dto.CreateGroupsResponse{
		Groups:      groups,
		TotalGroups: len(groups),
		TotalUsers:  len(payload.UserIDs),
		GroupSize:   payload.GroupSize,
		CreatedAt:   time.Now().UTC(),
	})
}

func (h *MatchingHandler) profile(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	profile, err := h.service.MatchingData(c.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to load matching profile")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load matching profile")
	}

	return utils.SendSuccess(c, "matching profile", profile)
}

func (h *MatchingHandler) statistics(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	profile, err := h.service.MatchingData(c.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to load matching statistics")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load matching statistics")
	}

	return utils.SendSuccess(c, "matching statistics", dto.MatchingStatisticsResponse{
		Statistics: dto.MatchingStatistics{
			UserProfile:      profile,
			MatchingTips:     matchingTips(),
			PopularInterests: popularInterests(),
			OptimalAgeRange:  optimalAgeRange(),
		},
		GeneratedAt: time.Now().UTC(),
	})
}

func matchingTips() []string {
	return []string{
		"Complete your profile with interests for better matches",
		"Add a profile photo to increase compatibility",
		"Be active in chat rooms to meet more people",
		"Use voice chat to make stronger connections",
		"Be genuine and authentic in your interactions",
	}
}

func popularInterests() []string {
	return []string{
		"Music", "Sports", "Travel", "Food", "Cinema",
		"Books", "Art", "Technology", "Nature", "Dance",
	}
}

func optimalAgeRange() dto.OptimalAgeRange {
	return dto.OptimalAgeRange{
		Recommendation: "±5 years from your age typically yields best compatibility",
		MinRecommended: -5,
		MaxRecommended: 5,
		Note:           "Age preferences can be adjusted based on personal preference",
	}
}
