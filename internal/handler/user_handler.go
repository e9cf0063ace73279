package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/service"
	"github.com/matchfyn/matchfyn-api/internal/utils"
)

// UserHandler handles profile reads and updates.
type UserHandler struct {
	users   service.UserService
	uploads service.UploadService
	logger  zerolog.Logger
}

// NewUserHandler constructs a user handler.
func NewUserHandler(users service.UserService, uploads service.UploadService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:   users,
		uploads: uploads,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register wires the user routes. All of them require authentication.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/me", h.me)
	router.Put("/me", h.update)
	router.Delete("/me", h.deactivate)
	router.Post("/me/profile-image", h.uploadProfileImage)
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *UserHandler) me(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	user, err := h.users.Get(c.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to load profile")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load profile")
	}

	return utils.SendSuccess(c, "profile", user)
}

func (h *UserHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	user, err := h.users.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		h.logger.Error().Err(err).Uint("user_id", id).Msg("failed to load user")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load user")
	}

	return utils.SendSuccess(c, "user", user)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	users, meta, err := h.users.List(c.Context(), page, pageSize)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list users")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list users")
	}

	return utils.SendSuccess(c, "users", fiber.Map{"items": users, "pagination": meta})
}

func (h *UserHandler) update(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.UserUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	user, err := h.users.Update(c.Context(), userID, payload)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, validationMessage(err))
		}
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to update profile")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update profile")
	}

	return utils.SendSuccess(c, "profile updated", user)
}

func (h *UserHandler) deactivate(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	if err := h.users.Deactivate(c.Context(), userID); err != nil {
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to deactivate account")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to deactivate account")
	}

	return utils.SendSuccess(c, "account deactivated", nil)
}

func (h *UserHandler) uploadProfileImage(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	user, err := h.uploads.UploadProfileImage(c.Context(), userID, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUploadTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrUploadTypeNotAllowed):
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
		default:
			h.logger.Error().Err(err).Uint("user_id", userID).Msg("profile image upload failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to upload image")
		}
	}

	return utils.SendSuccess(c, "profile image updated", user)
}
