package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/observability"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

// Match errors surfaced to handlers.
var (
	ErrMatchExists       = errors.New("a match already exists between these users")
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchNotPending   = errors.New("match is not pending")
	ErrMatchNotAddressee = errors.New("only the receiver may respond")
	ErrMatchNotOwner     = errors.New("only the sender may withdraw")
)

// MatchService handles explicit match requests and responses.
type MatchService interface {
	Create(ctx context.Context, senderID uint, req dto.MatchCreateRequest) (dto.MatchResponse, error)
	Get(ctx context.Context, userID, matchID uint) (dto.MatchResponse, error)
	List(ctx context.Context, userID uint, status models.MatchStatus, page, pageSize int) (dto.MatchListResponse, error)
	Respond(ctx context.Context, userID, matchID uint, accept bool) (dto.MatchResponse, error)
	Withdraw(ctx context.Context, userID, matchID uint) error
}

type matchService struct {
	matches   repository.MatchRepository
	users     repository.UserRepository
	validator *validator.Validate
	metrics   *observability.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewMatchService constructs the match service.
func NewMatchService(matches repository.MatchRepository, users repository.UserRepository, validate *validator.Validate, metrics *observability.Metrics, logger zerolog.Logger) MatchService {
	return &matchService{
		matches:   matches,
		users:     users,
		validator: validate,
		metrics:   metrics,
		logger:    logger.With().Str("component", "match_service").Logger(),
		now:       time.Now,
	}
}

func (s *matchService) Create(ctx context.Context, senderID uint, req dto.MatchCreateRequest) (dto.MatchResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.MatchResponse{}, err
	}
	if senderID == req.ReceiverID {
		return dto.MatchResponse{}, ErrSelfReference
	}

	if _, err := s.users.GetByID(ctx, req.ReceiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MatchResponse{}, ErrMatchNotFound
		}
		return dto.MatchResponse{}, err
	}

	if _, err := s.matches.FindByPair(ctx, senderID, req.ReceiverID); err == nil {
		return dto.MatchResponse{}, ErrMatchExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.MatchResponse{}, err
	}

	match := models.Match{
		SenderID:   senderID,
		ReceiverID: req.ReceiverID,
		Status:     models.MatchStatusPending,
		Message:    req.Message,
	}
	if err := s.matches.Create(ctx, &match); err != nil {
		return dto.MatchResponse{}, err
	}

	if s.metrics != nil {
		s.metrics.MatchCreated(string(match.Status))
	}
	s.logger.Info().Uint("sender_id", senderID).Uint("receiver_id", req.ReceiverID).Msg("created match request")

	return dto.NewMatchResponse(match), nil
}

func (s *matchService) Get(ctx context.Context, userID, matchID uint) (dto.MatchResponse, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MatchResponse{}, ErrMatchNotFound
		}
		return dto.MatchResponse{}, err
	}

	if match.SenderID != userID && match.ReceiverID != userID {
		return dto.MatchResponse{}, ErrMatchNotFound
	}

	return dto.NewMatchResponse(match), nil
}

func (s *matchService) List(ctx context.Context, userID uint, status models.MatchStatus, page, pageSize int) (dto.MatchListResponse, error) {
	if status != "" && !status.Valid() {
		return dto.MatchListResponse{}, errors.New("unknown match status")
	}

	matches, total, err := s.matches.ListByUser(ctx, userID, status, page, pageSize)
	if err != nil {
		return dto.MatchListResponse{}, err
	}

	return dto.MatchListResponse{
		Items:      dto.NewMatchResponseSlice(matches),
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

// Respond settles a pending match. Only the receiver may respond and the
// transition is one-way.
func (s *matchService) Respond(ctx context.Context, userID, matchID uint, accept bool) (dto.MatchResponse, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MatchResponse{}, ErrMatchNotFound
		}
		return dto.MatchResponse{}, err
	}

	if match.ReceiverID != userID {
		return dto.MatchResponse{}, ErrMatchNotAddressee
	}
	if match.Status != models.MatchStatusPending {
		return dto.MatchResponse{}, ErrMatchNotPending
	}

	respondedAt := s.now()
	match.RespondedAt = &respondedAt
	if accept {
		match.Status = models.MatchStatusAccepted
	} else {
		match.Status = models.MatchStatusRejected
	}

	if err := s.matches.Save(ctx, &match); err != nil {
		return dto.MatchResponse{}, err
	}

	s.logger.Info().
		Uint("match_id", match.ID).
		Str("status", string(match.Status)).
		Msg("match responded")

	return dto.NewMatchResponse(match), nil
}

// Withdraw removes a still-pending request. Only the sender may withdraw.
func (s *matchService) Withdraw(ctx context.Context, userID, matchID uint) error {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMatchNotFound
		}
		return err
	}

	if match.SenderID != userID {
		return ErrMatchNotOwner
	}
	if match.Status != models.MatchStatusPending {
		return ErrMatchNotPending
	}

	return s.matches.Delete(ctx, match.ID)
}
