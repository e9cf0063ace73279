package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/matchfyn/matchfyn-api/internal/config"
	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/observability"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

// Age bounds for auto-created waiting and matching rooms.
const (
	autoRoomMinAge = 18
	autoRoomMaxAge = 65
)

// RoomLifecycleService owns the periodic room sweep. Each method is one step
// of the sweep and is safe to run on its own; the worker chains them and
// isolates their failures.
type RoomLifecycleService interface {
	ExpireRooms(ctx context.Context) (int, error)
	EvictIdleParticipants(ctx context.Context) (int, error)
	EnsureWaitingRooms(ctx context.Context) (int, error)
	PromoteFullWaitingRooms(ctx context.Context) (int, error)
	EnsureMatchingRooms(ctx context.Context) (int, error)
	CheckRoomHealth(ctx context.Context) error
}

type roomLifecycleService struct {
	rooms        repository.RoomRepository
	participants repository.ParticipantRepository
	cfg          config.Config
	metrics      *observability.Metrics
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

// NewRoomLifecycleService constructs the lifecycle engine.
func NewRoomLifecycleService(
	rooms repository.RoomRepository,
	participants repository.ParticipantRepository,
	cfg config.Config,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) RoomLifecycleService {
	return &roomLifecycleService{
		rooms:        rooms,
		participants: participants,
		cfg:          cfg,
		metrics:      metrics,
		logger:       logger.With().Str("component", "room_lifecycle").Logger(),
		tracer:       otel.Tracer("github.com/matchfyn/matchfyn-api/internal/service/lifecycle"),
		now:          time.Now,
	}
}

// ExpireRooms closes every waiting or matching room whose expiry has passed.
// All active participant rows are soft-closed and the counter is zeroed.
func (s *roomLifecycleService) ExpireRooms(ctx context.Context) (int, error) {
	spanCtx, span := s.tracer.Start(ctx, "lifecycle.expire_rooms")
	defer span.End()

	now := s.now()
	expired, err := s.rooms.ListExpired(spanCtx, now)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("list expired rooms: %w", err)
	}

	for i := range expired {
		if err := s.closeRoom(spanCtx, &expired[i], models.RoomStatusExpired, now); err != nil {
			return 0, err
		}
		s.logger.Info().
			Uint("room_id", expired[i].ID).
			Str("room_type", string(expired[i].RoomType)).
			Msg("expired room")
	}

	return len(expired), nil
}

// EvictIdleParticipants walks active participants whose last activity is
// stale. Past the away threshold they are marked Away with microphone and
// speaking flags cleared; past the evict threshold their row is soft-closed
// and the room counter decremented.
func (s *roomLifecycleService) EvictIdleParticipants(ctx context.Context) (int, error) {
	spanCtx, span := s.tracer.Start(ctx, "lifecycle.evict_idle")
	defer span.End()

	now := s.now()
	idle, err := s.participants.ListIdle(spanCtx, now.Add(-s.cfg.IdleAwayThreshold))
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("list idle participants: %w", err)
	}

	evicted := 0
	for i := range idle {
		p := &idle[i]

		if now.Sub(p.LastActivityAt) >= s.cfg.IdleEvictThreshold {
			s.deactivateParticipant(p, now)
			if err := s.participants.Save(spanCtx, p); err != nil {
				return evicted, err
			}

			room := p.Room
			if room.CurrentParticipants > 0 {
				room.CurrentParticipants--
				if err := s.rooms.Save(spanCtx, &room); err != nil {
					return evicted, err
				}
			}

			evicted++
			s.logger.Info().
				Uint("room_id", p.RoomID).
				Uint("user_id", p.UserID).
				Msg("evicted idle participant")
			continue
		}

		if p.Status != models.ParticipantStatusAway || p.IsMicrophoneEnabled || p.IsSpeaking {
			p.Status = models.ParticipantStatusAway
			p.IsMicrophoneEnabled = false
			p.IsSpeaking = false
			if err := s.participants.Save(spanCtx, p); err != nil {
				return evicted, err
			}
		}
	}

	return evicted, nil
}

// EnsureWaitingRooms tops up the pool of open waiting rooms so that every
// gender filter has at least the configured minimum.
func (s *roomLifecycleService) EnsureWaitingRooms(ctx context.Context) (int, error) {
	return s.ensureRooms(ctx, models.RoomTypeWaiting, s.cfg.MinWaitingRooms)
}

// EnsureMatchingRooms keeps at least one joinable matching room per gender
// filter so promotions and direct joins always have a target.
func (s *roomLifecycleService) EnsureMatchingRooms(ctx context.Context) (int, error) {
	return s.ensureRooms(ctx, models.RoomTypeMatching, 1)
}

func (s *roomLifecycleService) ensureRooms(ctx context.Context, roomType models.RoomType, minimum int) (int, error) {
	spanCtx, span := s.tracer.Start(ctx, "lifecycle.ensure_rooms")
	defer span.End()

	created := 0
	for _, gender := range models.AllGenderFilters() {
		count, err := s.rooms.CountActive(spanCtx, roomType, gender)
		if err != nil {
			span.RecordError(err)
			return created, fmt.Errorf("count %s rooms: %w", roomType, err)
		}

		for missing := minimum - int(count); missing > 0; missing-- {
			room := s.buildAutoRoom(roomType, gender)
			if err := s.rooms.Create(spanCtx, &room); err != nil {
				return created, fmt.Errorf("create %s room: %w", roomType, err)
			}
			created++
			s.logger.Info().
				Uint("room_id", room.ID).
				Str("room_type", string(roomType)).
				Str("gender_filter", string(gender)).
				Msg("created replacement room")
		}
	}

	return created, nil
}

func (s *roomLifecycleService) buildAutoRoom(roomType models.RoomType, gender models.GenderFilter) models.Room {
	defaults := models.DefaultsForRoomType(roomType)
	minAge, maxAge := autoRoomMinAge, autoRoomMaxAge

	room := models.Room{
		Name:            fmt.Sprintf("%s %s Room", gender, roomType),
		RoomType:        roomType,
		Status:          models.RoomStatusActive,
		MaxCapacity:     defaults.MaxCapacity,
		GenderFilter:    gender,
		MinAge:          &minAge,
		MaxAge:          &maxAge,
		DurationMinutes: defaults.DurationMinutes,
		IsActive:        true,
	}
	if defaults.DurationMinutes != nil {
		expires := s.now().Add(time.Duration(*defaults.DurationMinutes) * time.Minute)
		room.ExpiresAt = &expires
	}

	return room
}

// PromoteFullWaitingRooms moves every full waiting room's active participants
// into a fresh matching room. The new room gets brand-new participant rows
// with reassigned grid slots; the waiting room is closed behind them.
func (s *roomLifecycleService) PromoteFullWaitingRooms(ctx context.Context) (int, error) {
	spanCtx, span := s.tracer.Start(ctx, "lifecycle.promote_full_waiting")
	defer span.End()

	full, err := s.rooms.ListFullWaiting(spanCtx)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("list full waiting rooms: %w", err)
	}

	promoted := 0
	now := s.now()
	for i := range full {
		waiting := &full[i]

		matching := s.buildAutoRoom(models.RoomTypeMatching, waiting.GenderFilter)
		matching.Name = fmt.Sprintf("%s Matching Room", waiting.GenderFilter)
		if err := s.rooms.Create(spanCtx, &matching); err != nil {
			return promoted, fmt.Errorf("create matching room: %w", err)
		}

		moved := 0
		for _, old := range waiting.Participants {
			if !old.IsActive {
				continue
			}

			slot := moved + 1
			fresh := models.RoomParticipant{
				RoomID:              matching.ID,
				UserID:              old.UserID,
				DisplayName:         old.DisplayName,
				ProfileImageURL:     old.ProfileImageURL,
				Role:                models.ParticipantRoleMember,
				Status:              models.ParticipantStatusOnline,
				IsMicrophoneEnabled: old.IsMicrophoneEnabled,
				GridPosition:        &slot,
				JoinedAt:            now,
				LastActivityAt:      now,
				IsActive:            true,
			}
			if err := s.participants.Create(spanCtx, &fresh); err != nil {
				return promoted, fmt.Errorf("move participant: %w", err)
			}
			moved++
		}

		matching.CurrentParticipants = moved
		if err := s.rooms.Save(spanCtx, &matching); err != nil {
			return promoted, err
		}

		if err := s.closeRoom(spanCtx, waiting, models.RoomStatusClosed, now); err != nil {
			return promoted, err
		}

		promoted++
		s.logger.Info().
			Uint("waiting_room_id", waiting.ID).
			Uint("matching_room_id", matching.ID).
			Int("participants", moved).
			Msg("promoted full waiting room")
	}

	return promoted, nil
}

// CheckRoomHealth gathers pool statistics and retires non-public rooms that
// have sat empty past the configured threshold.
func (s *roomLifecycleService) CheckRoomHealth(ctx context.Context) error {
	spanCtx, span := s.tracer.Start(ctx, "lifecycle.check_health")
	defer span.End()

	now := s.now()

	stats, err := s.rooms.StatsByType(spanCtx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("room stats: %w", err)
	}

	totalRooms, err := s.rooms.CountAllActive(spanCtx)
	if err != nil {
		return fmt.Errorf("count active rooms: %w", err)
	}

	totalParticipants, err := s.participants.CountActive(spanCtx)
	if err != nil {
		return fmt.Errorf("count active participants: %w", err)
	}

	event := s.logger.Info().
		Int64("active_rooms", totalRooms).
		Int64("active_participants", totalParticipants)
	for _, stat := range stats {
		event = event.Int64(fmt.Sprintf("rooms_%s", stat.RoomType), stat.Count)
		if s.metrics != nil {
			s.metrics.SetActiveRooms(string(stat.RoomType), stat.Count)
		}
	}
	if s.metrics != nil {
		s.metrics.SetActiveParticipants(totalParticipants)
	}
	event.Msg("room pool health")

	empty, err := s.rooms.ListEmptySince(spanCtx, now.Add(-s.cfg.EmptyRoomThreshold))
	if err != nil {
		return fmt.Errorf("list empty rooms: %w", err)
	}

	for i := range empty {
		if err := s.closeRoom(spanCtx, &empty[i], models.RoomStatusInactive, now); err != nil {
			return err
		}
		s.logger.Info().
			Uint("room_id", empty[i].ID).
			Str("room_type", string(empty[i].RoomType)).
			Msg("retired long-empty room")
	}

	return nil
}

// closeRoom transitions a room into a terminal status, soft-closes its active
// participant rows and zeroes the counter.
func (s *roomLifecycleService) closeRoom(ctx context.Context, room *models.Room, status models.RoomStatus, now time.Time) error {
	active, err := s.participants.ListActiveByRoom(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("list participants of room %d: %w", room.ID, err)
	}

	for i := range active {
		s.deactivateParticipant(&active[i], now)
		if err := s.participants.Save(ctx, &active[i]); err != nil {
			return err
		}
	}

	room.Status = status
	room.IsActive = false
	room.CurrentParticipants = 0
	return s.rooms.Save(ctx, room)
}

func (s *roomLifecycleService) deactivateParticipant(p *models.RoomParticipant, now time.Time) {
	left := now
	p.IsActive = false
	p.Status = models.ParticipantStatusOffline
	p.IsMicrophoneEnabled = false
	p.IsSpeaking = false
	p.LeftAt = &left
	p.TotalTimeMinutes = int(now.Sub(p.JoinedAt).Minutes())
}
