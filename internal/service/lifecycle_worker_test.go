package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/matchfyn/matchfyn-api/internal/config"
)

type stubLifecycle struct {
	calls       []string
	expireErr   error
	panicOnStep string
	healthCalls int
}

func (s *stubLifecycle) step(name string, err error) (int, error) {
	if s.panicOnStep == name {
		panic("boom")
	}
	s.calls = append(s.calls, name)
	return 0, err
}

func (s *stubLifecycle) ExpireRooms(context.Context) (int, error) {
	return s.step("expire_rooms", s.expireErr)
}
func (s *stubLifecycle) EvictIdleParticipants(context.Context) (int, error) {
	return s.step("evict_idle", nil)
}
func (s *stubLifecycle) EnsureWaitingRooms(context.Context) (int, error) {
	return s.step("ensure_waiting", nil)
}
func (s *stubLifecycle) PromoteFullWaitingRooms(context.Context) (int, error) {
	return s.step("promote_full_waiting", nil)
}
func (s *stubLifecycle) EnsureMatchingRooms(context.Context) (int, error) {
	return s.step("ensure_matching", nil)
}
func (s *stubLifecycle) CheckRoomHealth(context.Context) error {
	s.healthCalls++
	return nil
}

func newWorkerFixture(stub *stubLifecycle, minute int) *LifecycleWorker {
	worker := NewLifecycleWorker(stub, config.Config{SweepInterval: time.Minute}, nil, zerolog.Nop())
	worker.now = func() time.Time {
		return time.Date(2026, 8, 1, 12, minute, 0, 0, time.UTC)
	}
	return worker
}

func TestSweepRunsStepsInOrder(t *testing.T) {
	stub := &stubLifecycle{}
	worker := newWorkerFixture(stub, 1)

	require.True(t, worker.sweep(context.Background()))
	require.Equal(t, []string{
		"expire_rooms",
		"evict_idle",
		"ensure_waiting",
		"promote_full_waiting",
		"ensure_matching",
	}, stub.calls)
	require.Zero(t, stub.healthCalls)
}

func TestSweepStepErrorDoesNotStopTheChain(t *testing.T) {
	stub := &stubLifecycle{expireErr: errors.New("db down")}
	worker := newWorkerFixture(stub, 1)

	require.True(t, worker.sweep(context.Background()))
	require.Len(t, stub.calls, 5)
}

func TestSweepChecksHealthEveryFifthMinute(t *testing.T) {
	stub := &stubLifecycle{}
	worker := newWorkerFixture(stub, 10)

	require.True(t, worker.sweep(context.Background()))
	require.Equal(t, 1, stub.healthCalls)
}

func TestSweepRecoversFromPanic(t *testing.T) {
	stub := &stubLifecycle{panicOnStep: "ensure_waiting"}
	worker := newWorkerFixture(stub, 1)

	require.False(t, worker.sweep(context.Background()))
}
