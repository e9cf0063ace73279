package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/dto"
	"github.com/matchfyn/matchfyn-api/internal/models"
	"github.com/matchfyn/matchfyn-api/internal/repository"
)

func newMatchFixture(t *testing.T) (*gorm.DB, MatchService) {
	t.Helper()

	db := openTestDB(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewMatchService(
		repository.NewMatchRepository(db),
		repository.NewUserRepository(db),
		validate, nil, zerolog.Nop(),
	)
	return db, svc
}

func seedMatchUsers(t *testing.T, db *gorm.DB) (uint, uint) {
	t.Helper()

	sender := models.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x",
		DateOfBirth: time.Date(1995, 1, 1, 0, 0, 0, 0, time.UTC), IsActive: true}
	receiver := models.User{Name: "Mia", Email: "mia@example.com", PasswordHash: "x",
		DateOfBirth: time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC), IsActive: true}
	require.NoError(t, db.Create(&sender).Error)
	require.NoError(t, db.Create(&receiver).Error)
	return sender.ID, receiver.ID
}

func TestMatchCreateAndDuplicateGuard(t *testing.T) {
	db, svc := newMatchFixture(t)
	senderID, receiverID := seedMatchUsers(t, db)
	ctx := context.Background()

	match, err := svc.Create(ctx, senderID, dto.MatchCreateRequest{ReceiverID: receiverID, Message: "hei"})
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusPending, match.Status)

	// The guard holds in both directions.
	_, err = svc.Create(ctx, senderID, dto.MatchCreateRequest{ReceiverID: receiverID})
	require.ErrorIs(t, err, ErrMatchExists)
	_, err = svc.Create(ctx, receiverID, dto.MatchCreateRequest{ReceiverID: senderID})
	require.ErrorIs(t, err, ErrMatchExists)
}

func TestMatchCreateRejectsSelfAndUnknownReceiver(t *testing.T) {
	db, svc := newMatchFixture(t)
	senderID, _ := seedMatchUsers(t, db)
	ctx := context.Background()

	_, err := svc.Create(ctx, senderID, dto.MatchCreateRequest{ReceiverID: senderID})
	require.ErrorIs(t, err, ErrSelfReference)

	_, err = svc.Create(ctx, senderID, dto.MatchCreateRequest{ReceiverID: 9999})
	require.ErrorIs(t, err, ErrMatchNotFound)
}

func TestMatchRespondOnlyReceiverOnce(t *testing.T) {
	db, svc := newMatchFixture(t)
	senderID, receiverID := seedMatchUsers(t, db)
	ctx := context.Background()

	created, err := svc.Create(ctx, senderID, dto.MatchCreateRequest{ReceiverID: receiverID})
	require.NoError(t, err)

	_, err = svc.Respond(ctx, senderID, created.ID, true)
	require.ErrorIs(t, err, ErrMatchNotAddressee)

	responded, err := svc.Respond(ctx, receiverID, created.ID, true)
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusAccepted, responded.Status)
	require.NotNil(t, responded.RespondedAt)

	// The transition is one-way.
	_, err = svc.Respond(ctx, receiverID, created.ID, false)
	require.ErrorIs(t, err, ErrMatchNotPending)
}

func TestMatchWithdrawOnlySenderWhilePending(t *testing.T) {
	db, svc := newMatchFixture(t)
	senderID, receiverID := seedMatchUsers(t, db)
	ctx := context.Background()

	created, err := svc.Create(ctx, senderID, dto.MatchCreateRequest{ReceiverID: receiverID})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Withdraw(ctx, receiverID, created.ID), ErrMatchNotOwner)
	require.NoError(t, svc.Withdraw(ctx, senderID, created.ID))

	var count int64
	require.NoError(t, db.Model(&models.Match{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestMatchGetHidesForeignMatches(t *testing.T) {
	db, svc := newMatchFixture(t)
	senderID, receiverID := seedMatchUsers(t, db)
	ctx := context.Background()

	created, err := svc.Create(ctx, senderID, dto.MatchCreateRequest{ReceiverID: receiverID})
	require.NoError(t, err)

	_, err = svc.Get(ctx, 9999, created.ID)
	require.ErrorIs(t, err, ErrMatchNotFound)

	match, err := svc.Get(ctx, receiverID, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, match.ID)
}
