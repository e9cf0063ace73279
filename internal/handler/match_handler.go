package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/service"
	"github.com/matchfyn/matchfyn-api/internal/utils"
)

// MatchHandler handles explicit match requests and responses.
type MatchHandler struct {
	service service.MatchService
	logger  zerolog.Logger
}

// NewMatchHandler constructs a match handler.
func NewMatchHandler(service service.MatchService, logger zerolog.Logger) *MatchHandler {
	return &MatchHandler{
		service: service,
		logger:  logger.With().Str("component", "match_handler").Logger(),
	}
}

// Register wires the match routes.
func (h *MatchHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("/:id/respond", h.respond)
	router.Delete("/:id", h.withdraw)
}

func (h *MatchHandler) create(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.MatchCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	match, err := h.service.Create(c.Context(), userID, payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, validationMessage(err))
		case errors.Is(err, service.ErrSelfReference):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrMatchExists):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, service.ErrMatchNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "receiver not found")
		default:
			h.logger.Error().Err(err).Msg("failed to create match")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to create match")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "match request sent", match)
}

func (h *MatchHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	status := models.MatchStatus(c.Query("status"))
	response, err := h.service.List(c.Context(), userID, status, page, pageSize)
	if err != nil {
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to list matches")
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	return utils.SendSuccess(c, "matches", response)
}

func (h *MatchHandler) get(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	matchID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	match, err := h.service.Get(c.Context(), userID, matchID)
	if err != nil {
		if errors.Is(err, service.ErrMatchNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		h.logger.Error().Err(err).Uint("match_id", matchID).Msg("failed to load match")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load match")
	}

	return utils.SendSuccess(c, "match", match)
}

func (h *MatchHandler) respond(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	matchID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.MatchRespondRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	match, err := h.service.Respond(c.Context(), userID, matchID, payload.Accept)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMatchNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrMatchNotAddressee):
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrMatchNotPending):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			h.logger.Error().Err(err).Uint("match_id", matchID).Msg("failed to respond to match")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to respond to match")
		}
	}

	return utils.SendSuccess(c, "match updated", match)
}

func (h *MatchHandler) withdraw(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	matchID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Withdraw(c.Context(), userID, matchID); err != nil {
		switch {
		case errors.Is(err, service.ErrMatchNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrMatchNotOwner):
			return utils.SendError(c, fiber.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrMatchNotPending):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			h.logger.Error().Err(err).Uint("match_id", matchID).Msg("failed to withdraw match")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to withdraw match")
		}
	}

	return utils.SendSuccess(c, "match withdrawn", nil)
}
