package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/repository"
	"github.com/matchfyn/matchfyn-api/internal/service"
	"github.com/matchfyn/matchfyn-api/internal/utils"
)

// RoomHandler exposes the REST surface over rooms and their history.
type RoomHandler struct {
	service service.RoomService
	logger  zerolog.Logger
}

// NewRoomHandler constructs a room handler.
func NewRoomHandler(service service.RoomService, logger zerolog.Logger) *RoomHandler {
	return &RoomHandler{
		service: service,
		logger:  logger.With().Str("component", "room_handler").Logger(),
	}
}

// Register wires the room routes.
func (h *RoomHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/mine", h.myRooms)
	router.Get("/:id", h.detail)
	router.Get("/:id/messages", h.messages)
}

func (h *RoomHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	filter := repository.RoomListFilter{
		RoomType: models.RoomType(c.Query("room_type")),
		Page:     page,
		PageSize: pageSize,
	}

	response, err := h.service.List(c.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list rooms")
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	return utils.SendSuccess(c, "rooms", response)
}

func (h *RoomHandler) create(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.RoomCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	room, err := h.service.Create(c.Context(), userID, payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, validationMessage(err))
		}
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to create room")
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "room created", room)
}

func (h *RoomHandler) detail(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	detail, err := h.service.Detail(c.Context(), roomID)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		}
		h.logger.Error().Err(err).Uint("room_id", roomID).Msg("failed to load room")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load room")
	}

	return utils.SendSuccess(c, "room", detail)
}

func (h *RoomHandler) messages(c *fiber.Ctx) error {
	roomID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	before := time.Time{}
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid before timestamp")
		}
		before = parsed
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	messages, err := h.service.Messages(c.Context(), roomID, before, limit)
	if err != nil {
		h.logger.Error().Err(err).Uint("room_id", roomID).Msg("failed to load messages")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load messages")
	}

	return utils.SendSuccess(c, "messages", messages)
}

func (h *RoomHandler) myRooms(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	rooms, err := h.service.MyRooms(c.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to list user rooms")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list rooms")
	}

	return utils.SendSuccess(c, "rooms", rooms)
}
