package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

// maxProfileImageBytes caps profile image uploads at 5 MB.
const maxProfileImageBytes = 5 * 1024 * 1024

// Upload errors surfaced to handlers.
var (
	ErrUploadTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// FileStorage abstracts the upload destination.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// UploadService validates and stores profile images.
type UploadService interface {
	UploadProfileImage(ctx context.Context, userID uint, file *multipart.FileHeader) (dto.UserResponse, error)
}

type uploadService struct {
	storage FileStorage
	users   repository.UserRepository
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewUploadService constructs the upload service.
func NewUploadService(storage FileStorage, users repository.UserRepository, logger zerolog.Logger) UploadService {
	return &uploadService{
		storage: storage,
		users:   users,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		tracer:  otel.Tracer("github.com/matchfyn/matchfyn-api/internal/service/upload"),
	}
}

// UploadProfileImage sniffs the real MIME type from the bytes, stores the
// image and points the user's profile at the new URL.
func (s *uploadService) UploadProfileImage(ctx context.Context, userID uint, file *multipart.FileHeader) (dto.UserResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.profile_image",
		trace.WithAttributes(attribute.Int64("user.id", int64(userID))))
	defer span.End()

	if file == nil {
		err := errors.New("file is required")
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.UserResponse{}, err
	}
	if file.Size > maxProfileImageBytes {
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.UserResponse{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.UserResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, maxProfileImageBytes+1)); err != nil {
		span.RecordError(err)
		return dto.UserResponse{}, err
	}
	if int64(buf.Len()) > maxProfileImageBytes {
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.UserResponse{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	mimeType := strings.ToLower(strings.TrimSpace(detected.String()))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	span.SetAttributes(attribute.String("upload.detected_mime", mimeType))

	if _, ok := allowedImageTypes[mimeType]; !ok {
		span.RecordError(ErrUploadTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return dto.UserResponse{}, ErrUploadTypeNotAllowed
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return dto.UserResponse{}, err
	}

	name := sanitizeFileName(file.Filename)
	url, err := s.storage.Upload(ctx, name, bytes.NewReader(buf.Bytes()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.UserResponse{}, err
	}

	user.ProfileImageURL = url
	if err := s.users.Save(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", userID).Msg("profile image updated")
	return dto.NewUserResponse(user), nil
}

func sanitizeFileName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, base)

	if base == "" || base == "." {
		base = "upload"
	}
	return base
}
