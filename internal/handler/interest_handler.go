package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/matchfyn/matchfyn-api/internal/service"
	"github.com/matchfyn/matchfyn-api/internal/utils"
)

// InterestHandler exposes the interest catalogue and per-user selections.
type InterestHandler struct {
	service service.InterestService
	logger  zerolog.Logger
}

// NewInterestHandler constructs an interest handler.
func NewInterestHandler(service service.InterestService, logger zerolog.Logger) *InterestHandler {
	return &InterestHandler{
		service: service,
		logger:  logger.With().Str("component", "interest_handler").Logger(),
	}
}

// Register wires the interest routes.
func (h *InterestHandler) Register(router fiber.Router) {
	router.Get("", h.catalogue)
	router.Get("/mine", h.mine)
	router.Put("/mine", h.setMine)
}

func (h *InterestHandler) catalogue(c *fiber.Ctx) error {
	interests, err := h.service.Catalogue(c.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load interest catalogue")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load interests")
	}

	return utils.SendSuccess(c, "interests", interests)
}

func (h *InterestHandler) mine(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	ids, err := h.service.ForUser(c.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to load user interests")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load interests")
	}

	return utils.SendSuccess(c, "interests", fiber.Map{"interest_ids": ids})
}

func (h *InterestHandler) setMine(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload struct {
		InterestIDs []uint `json:"interest_ids"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.service.SetForUser(c.Context(), userID, payload.InterestIDs); err != nil {
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to update interests")
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	return utils.SendSuccess(c, "interests updated", nil)
}
