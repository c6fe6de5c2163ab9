package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/mongo"

	reserrors "roomres/internal/reservations/errors"
	"roomres/internal/reservations/lifecycle"
	"roomres/internal/reservations/validator"
	"roomres/pkg/clock"
	"roomres/pkg/config"
	mongotx "roomres/pkg/db/mongo"
	apperrors "roomres/pkg/errors"
	"roomres/pkg/logger"
	"roomres/pkg/model"
)

// Mock repository for testing
type mockReservationRepository struct {
	createFunc            func(ctx context.Context, res *model.Reservation) error
	findByIDFunc          func(ctx context.Context, id string) (*model.Reservation, error)
	findByRoomFunc        func(ctx context.Context, roomID string, statuses []model.Status, limit int, offset int64) ([]*model.Reservation, error)
	countByRoomFunc       func(ctx context.Context, roomID string, statuses []model.Status) (int64, error)
	saveFunc              func(ctx context.Context, res *model.Reservation, expectedVersion int64) error
	findOngoingByRoomFunc func(ctx context.Context, roomID string) (*model.Reservation, error)
	findNextConflictFunc  func(ctx context.Context, roomID string, after time.Time) (*time.Time, error)
	findDueExpiryFunc     func(ctx context.Context, cutoff time.Time) ([]*model.Reservation, error)
	findDueCompletionFunc func(ctx context.Context, now time.Time) ([]*model.Reservation, error)
}

func (m *mockReservationRepository) Create(ctx context.Context, res *model.Reservation) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, res)
	}
	return nil
}

func (m *mockReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, reserrors.ErrNotFound
}

func (m *mockReservationRepository) FindByRoom(ctx context.Context, roomID string, statuses []model.Status, limit int, offset int64) ([]*model.Reservation, error) {
	if m.findByRoomFunc != nil {
		return m.findByRoomFunc(ctx, roomID, statuses, limit, offset)
	}
	return []*model.Reservation{}, nil
}

func (m *mockReservationRepository) CountByRoom(ctx context.Context, roomID string, statuses []model.Status) (int64, error) {
	if m.countByRoomFunc != nil {
		return m.countByRoomFunc(ctx, roomID, statuses)
	}
	return 0, nil
}

func (m *mockReservationRepository) Save(ctx context.Context, res *model.Reservation, expectedVersion int64) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, res, expectedVersion)
	}
	return nil
}

func (m *mockReservationRepository) FindOngoingByRoom(ctx context.Context, roomID string) (*model.Reservation, error) {
	if m.findOngoingByRoomFunc != nil {
		return m.findOngoingByRoomFunc(ctx, roomID)
	}
	return nil, nil
}

func (m *mockReservationRepository) FindNextConflict(ctx context.Context, roomID string, after time.Time) (*time.Time, error) {
	if m.findNextConflictFunc != nil {
		return m.findNextConflictFunc(ctx, roomID, after)
	}
	return nil, nil
}

func (m *mockReservationRepository) FindDueExpiry(ctx context.Context, cutoff time.Time) ([]*model.Reservation, error) {
	if m.findDueExpiryFunc != nil {
		return m.findDueExpiryFunc(ctx, cutoff)
	}
	return []*model.Reservation{}, nil
}

func (m *mockReservationRepository) FindDueCompletion(ctx context.Context, now time.Time) ([]*model.Reservation, error) {
	if m.findDueCompletionFunc != nil {
		return m.findDueCompletionFunc(ctx, now)
	}
	return []*model.Reservation{}, nil
}

func (m *mockReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	var sessCtx mongo.SessionContext
	return fn(sessCtx)
}

type mockLockRepository struct {
	createFunc func(ctx context.Context, lock *model.RoomLock) (*model.RoomLock, error)
	deleteFunc func(ctx context.Context, lockID string) error
}

func (m *mockLockRepository) Create(ctx context.Context, lock *model.RoomLock) (*model.RoomLock, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, lock)
	}
	return lock, nil
}

func (m *mockLockRepository) Delete(ctx context.Context, lockID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, lockID)
	}
	return nil
}

type mockNotifier struct {
	events []model.Event
	err    error
}

func (m *mockNotifier) Notify(ctx context.Context, event model.Event) error {
	m.events = append(m.events, event)
	return m.err
}

var manila = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		panic(err)
	}
	return loc
}()

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  "json",
			Service: "test",
		}),
		ReadTimeout:     5 * time.Second,
		StartWindow:     15 * time.Minute,
		ExpiryGrace:     15 * time.Minute,
		ExtensionBuffer: 5 * time.Minute,
		RoomLockTTL:     10 * time.Second,
	}
}

func newService(repo *mockReservationRepository, locks *mockLockRepository, clk clock.Clock, notifier Notifier, cfg *config.Config) *reservationService {
	return &reservationService{
		repo:      repo,
		lockRepo:  locks,
		validator: validator.NewReservationValidator(clk, cfg.Log),
		machine:   lifecycle.Machine{StartWindow: cfg.StartWindow},
		clock:     clk,
		notifier:  notifier,
		cfg:       cfg,
	}
}

func fixedClock(at time.Time) clock.Clock {
	return clock.In(clockwork.NewFakeClockAt(at), manila)
}

func storedReservation(status model.Status, start time.Time) *model.Reservation {
	return &model.Reservation{
		ID:        "64f000000000000000000001",
		RoomID:    "64f000000000000000000010",
		RoomName:  "AVR 2",
		Location:  "Main Building, 3F",
		UserID:    "stu-1001",
		NumUsers:  4,
		Purpose:   "Capstone group meeting",
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Status:    status,
		Version:   3,
	}
}

func TestApprove_Authorization(t *testing.T) {
	cfg := testConfig()
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, manila)
	clk := fixedClock(start.Add(-time.Hour))

	repo := &mockReservationRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return storedReservation(model.StatusPending, start), nil
		},
	}
	svc := newService(repo, &mockLockRepository{}, clk, nil, cfg)

	_, err := svc.Approve(context.Background(), model.Actor{UserID: "stu-1001", Role: model.RoleUser}, "64f000000000000000000001")
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeForbidden {
		t.Fatalf("expected forbidden for plain user, got %v", err)
	}

	res, err := svc.Approve(context.Background(), model.Actor{UserID: "staff-1", Role: model.RoleStaff}, "64f000000000000000000001")
	if err != nil {
		t.Fatalf("staff approve failed: %v", err)
	}
	if res.Status != model.StatusApproved {
		t.Errorf("status = %s, want approved", res.Status)
	}
}

func TestCancel_OnlyReserver(t *testing.T) {
	cfg := testConfig()
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, manila)
	clk := fixedClock(start.Add(-time.Hour))

	repo := &mockReservationRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return storedReservation(model.StatusApproved, start), nil
		},
	}
	svc := newService(repo, &mockLockRepository{}, clk, nil, cfg)

	_, err := svc.Cancel(context.Background(), model.Actor{UserID: "someone-else", Role: model.RoleStaff}, "64f000000000000000000001")
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeForbidden {
		t.Fatalf("expected forbidden for non-reserver, got %v", err)
	}

	res, err := svc.Cancel(context.Background(), model.Actor{UserID: "stu-1001", Role: model.RoleUser}, "64f000000000000000000001")
	if err != nil {
		t.Fatalf("reserver cancel failed: %v", err)
	}
	if res.Status != model.StatusCancelled {
		t.Errorf("status = %s, want cancelled", res.Status)
	}
}

func TestTransition_VersionConflict(t *testing.T) {
	cfg := testConfig()
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, manila)
	clk := fixedClock(start.Add(-time.Hour))

	repo := &mockReservationRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return storedReservation(model.StatusPending, start), nil
		},
		saveFunc: func(ctx context.Context, res *model.Reservation, expectedVersion int64) error {
			return reserrors.ErrVersionConflict
		},
	}
	svc := newService(repo, &mockLockRepository{}, clk, nil, cfg)

	_, err := svc.Approve(context.Background(), model.Actor{UserID: "staff-1", Role: model.RoleStaff}, "64f000000000000000000001")
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflictingUpdate {
		t.Fatalf("expected conflicting update, got code %s (%v)", appErr.Code, err)
	}
}

func TestStart_RoomBusy(t *testing.T) {
	cfg := testConfig()
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, manila)
	clk := fixedClock(start.Add(-10 * time.Minute))

	occupant := storedReservation(model.StatusOngoing, start.Add(-time.Hour))
	occupant.ID = "64f000000000000000000099"

	var lockDeleted bool
	repo := &mockReservationRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return storedReservation(model.StatusApproved, start), nil
		},
		findOngoingByRoomFunc: func(ctx context.Context, roomID string) (*model.Reservation, error) {
			return occupant, nil
		},
	}
	locks := &mockLockRepository{
		createFunc: func(ctx context.Context, lock *model.RoomLock) (*model.RoomLock, error) {
			if want := clk.Now().Add(cfg.RoomLockTTL); !lock.ExpiresAt.Equal(want) {
				t.Errorf("lock ExpiresAt = %v, want %v", lock.ExpiresAt, want)
			}
			return lock, nil
		},
		deleteFunc: func(ctx context.Context, lockID string) error {
			lockDeleted = true
			return nil
		},
	}
	svc := newService(repo, locks, clk, nil, cfg)

	_, err := svc.Start(context.Background(), model.Actor{UserID: "staff-1", Role: model.RoleStaff}, "64f000000000000000000001")
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeRoomBusy {
		t.Fatalf("expected room busy, got code %s (%v)", appErr.Code, err)
	}
	if !lockDeleted {
		t.Error("room lock was not released after failed start")
	}
}

func TestStart_TooEarly(t *testing.T) {
	cfg := testConfig()
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, manila)
	clk := fixedClock(start.Add(-16 * time.Minute))

	repo := &mockReservationRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return storedReservation(model.StatusApproved, start), nil
		},
	}
	svc := newService(repo, &mockLockRepository{}, clk, nil, cfg)

	_, err := svc.Start(context.Background(), model.Actor{UserID: "staff-1", Role: model.RoleStaff}, "64f000000000000000000001")
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeTooEarly {
		t.Fatalf("expected too early, got code %s (%v)", appErr.Code, err)
	}
}

func TestRequestExtension_SurfacesConflictTime(t *testing.T) {
	cfg := testConfig()
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, manila)
	clk := fixedClock(start.Add(90 * time.Minute))

	conflict := start.Add(3 * time.Hour)
	repo := &mockReservationRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return storedReservation(model.StatusOngoing, start), nil
		},
		findNextConflictFunc: func(ctx context.Context, roomID string, after time.Time) (*time.Time, error) {
			return &conflict, nil
		},
	}
	svc := newService(repo, &mockLockRepository{}, clk, nil, cfg)

	result, err := svc.RequestExtension(context.Background(), model.Actor{UserID: "stu-1001", Role: model.RoleUser}, "64f000000000000000000001", "overrun")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := conflict.Add(-cfg.ExtensionBuffer)
	if result.ConflictTime == nil || !result.ConflictTime.Equal(want) {
		t.Errorf("ConflictTime = %v, want %v", result.ConflictTime, want)
	}
	if result.Reservation.ExtensionStatus != model.ExtensionPending {
		t.Errorf("extension status = %s, want pending", result.Reservation.ExtensionStatus)
	}
}

func TestRequestExtension_OnlyReserver(t *testing.T) {
	cfg := testConfig()
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, manila)
	clk := fixedClock(start.Add(90 * time.Minute))

	repo := &mockReservationRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return storedReservation(model.StatusOngoing, start), nil
		},
	}
	svc := newService(repo, &mockLockRepository{}, clk, nil, cfg)

	_, err := svc.RequestExtension(context.Background(), model.Actor{UserID: "staff-1", Role: model.RoleStaff}, "64f000000000000000000001", "overrun")
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeForbidden {
		t.Fatalf("expected forbidden, got code %s (%v)", appErr.Code, err)
	}
}

func TestNotifierFailure_DoesNotFailTransition(t *testing.T) {
	cfg := testConfig()
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, manila)
	clk := fixedClock(start.Add(-time.Hour))

	repo := &mockReservationRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Reservation, error) {
			return storedReservation(model.StatusPending, start), nil
		},
	}
	broken := &mockNotifier{err: errors.New("broker unreachable")}
	svc := newService(repo, &mockLockRepository{}, clk, broken, cfg)

	res, err := svc.Approve(context.Background(), model.Actor{UserID: "staff-1", Role: model.RoleStaff}, "64f000000000000000000001")
	if err != nil {
		t.Fatalf("transition failed on notifier error: %v", err)
	}
	if res.Status != model.StatusApproved {
		t.Errorf("status = %s, want approved", res.Status)
	}
	if len(broken.events) != 1 {
		t.Errorf("notifier called %d times, want 1", len(broken.events))
	}
}

func TestGetByID_NotFound(t *testing.T) {
	cfg := testConfig()
	clk := fixedClock(time.Date(2026, 3, 10, 14, 0, 0, 0, manila))

	repo := &mockReservationRepository{}
	svc := newService(repo, &mockLockRepository{}, clk, nil, cfg)

	_, err := svc.GetByID(context.Background(), "64f000000000000000000001")
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got code %s (%v)", appErr.Code, err)
	}
}
