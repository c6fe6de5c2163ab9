package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	reserrors "roomres/internal/reservations/errors"
	"roomres/internal/reservations/lifecycle"
	"roomres/internal/reservations/repository"
	"roomres/internal/reservations/validator"
	"roomres/pkg/clock"
	"roomres/pkg/config"
	apperrors "roomres/pkg/errors"
	"roomres/pkg/model"
)

// Notifier delivers reservation events. Delivery is fire-and-forget: a
// failed notification never rolls back the transition it follows.
type Notifier interface {
	Notify(ctx context.Context, event model.Event) error
}

// ExtensionResult pairs the updated reservation with the conflict cap
// surfaced to the requester, when one applies.
type ExtensionResult struct {
	Reservation  *model.Reservation
	ConflictTime *time.Time
}

type ReservationService interface {
	Create(ctx context.Context, actor model.Actor, res *model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	ListByRoom(ctx context.Context, roomID string, statuses []model.Status, limit int, offset int64) ([]*model.Reservation, int64, error)

	Approve(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)
	Reject(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)
	Cancel(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)
	Start(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)
	EndEarly(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)

	RequestExtension(ctx context.Context, actor model.Actor, id string, reason string) (*ExtensionResult, error)
	ResolveExtension(ctx context.Context, actor model.Actor, id string, approve bool) (*model.Reservation, error)

	SweepExpired(ctx context.Context) (int, error)
	SweepCompleted(ctx context.Context) (int, error)
}

type reservationService struct {
	repo      repository.ReservationRepository
	lockRepo  repository.RoomLockRepository
	validator *validator.ReservationValidator
	machine   lifecycle.Machine
	clock     clock.Clock
	notifier  Notifier
	cfg       *config.Config
}

func NewReservationService(
	repo repository.ReservationRepository,
	lockRepo repository.RoomLockRepository,
	resValidator *validator.ReservationValidator,
	clk clock.Clock,
	notifier Notifier,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:      repo,
		lockRepo:  lockRepo,
		validator: resValidator,
		machine:   lifecycle.Machine{StartWindow: cfg.StartWindow},
		clock:     clk,
		notifier:  notifier,
		cfg:       cfg,
	}
}

func (s *reservationService) Create(ctx context.Context, actor model.Actor, res *model.Reservation) error {
	res.UserID = actor.UserID
	res.Status = model.StatusPending
	res.ExtensionStatus = model.ExtensionNone
	res.ExtensionRequested = false
	res.ExtendedEnd = nil
	res.ExtensionOpenEnded = false
	if res.NumUsers <= 0 {
		res.NumUsers = max(len(res.Participants), 1)
	}

	if err := s.validator.Validate(res); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "error", err)
		return apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	// New bookings are never blocked on overlap here; the schedule is only
	// consulted when capping extensions.
	if err := s.repo.Create(ctx, res); err != nil {
		s.cfg.Log.Error("Failed to create reservation", "error", err)
		return apperrors.Internal("Failed to create reservation", err)
	}

	s.emit(ctx, model.Event{
		Type:          "create",
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		Actor:         actor,
		Timestamp:     s.clock.Now(),
	})

	s.cfg.Log.Info("Reservation created",
		"id", res.ID,
		"room_id", res.RoomID,
		"user_id", res.UserID,
		"start_time", res.StartTime,
	)
	return nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id)
	}

	return res, nil
}

func (s *reservationService) ListByRoom(ctx context.Context, roomID string, statuses []model.Status, limit int, offset int64) ([]*model.Reservation, int64, error) {
	if roomID == "" {
		return nil, 0, apperrors.InvalidInput("Room ID cannot be empty")
	}
	for _, status := range statuses {
		if !status.IsValid() {
			return nil, 0, apperrors.InvalidInput(fmt.Sprintf("unknown status filter: %s", status))
		}
	}

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByRoom(ctx, roomID, statuses)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count reservations", "room_id", roomID, "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.FindByRoom(ctx, roomID, statuses, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list reservations", "room_id", roomID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return reservations, count, nil
}

func (s *reservationService) Approve(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	return s.transition(ctx, actor, id, model.ActionApprove, func(res *model.Reservation, now time.Time) error {
		if !actor.Staff() {
			return apperrors.Forbidden("only staff or admin may approve reservations")
		}
		return s.machine.Approve(res, now)
	})
}

func (s *reservationService) Reject(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	return s.transition(ctx, actor, id, model.ActionReject, func(res *model.Reservation, now time.Time) error {
		if !actor.Staff() {
			return apperrors.Forbidden("only staff or admin may reject reservations")
		}
		return s.machine.Reject(res, now)
	})
}

func (s *reservationService) Cancel(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	return s.transition(ctx, actor, id, model.ActionCancel, func(res *model.Reservation, now time.Time) error {
		if actor.UserID != res.UserID {
			return apperrors.Forbidden("only the main reserver may cancel this reservation")
		}
		return s.machine.Cancel(res, now)
	})
}

// Start moves an approved reservation to ongoing. An advisory lock on the
// room plus a transactional re-check enforce that at most one reservation
// is ongoing per room.
func (s *reservationService) Start(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	if !actor.Staff() {
		return nil, apperrors.Forbidden("only staff or admin may start reservations")
	}

	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	lockID, err := s.acquireRoomLock(ctx, res.RoomID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.releaseRoomLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release room lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	expectedVersion := res.Version
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		ongoing, err := s.repo.FindOngoingByRoom(sessCtx, res.RoomID)
		if err != nil {
			return apperrors.Internal("Failed to check room occupancy", err)
		}
		if ongoing != nil && ongoing.ID != res.ID {
			return apperrors.RoomBusy(res.RoomID)
		}

		if err := s.machine.Start(res, s.clock.Now()); err != nil {
			return s.translate(err, id)
		}

		if err := s.repo.Save(sessCtx, res, expectedVersion); err != nil {
			return s.translate(err, id)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to start reservation", "id", id, "error", err)
		return nil, err
	}

	s.emit(ctx, model.Event{
		Type:          model.ActionStart,
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		Actor:         actor,
		Timestamp:     s.clock.Now(),
	})

	s.cfg.Log.Info("Reservation started", "id", res.ID, "room_id", res.RoomID, "actor", actor.UserID)
	return res, nil
}

func (s *reservationService) EndEarly(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error) {
	return s.transition(ctx, actor, id, model.ActionEndEarly, func(res *model.Reservation, now time.Time) error {
		if !actor.Staff() {
			return apperrors.Forbidden("only staff or admin may end reservations")
		}
		return s.machine.EndEarly(res, now)
	})
}

func (s *reservationService) RequestExtension(ctx context.Context, actor model.Actor, id string, reason string) (*ExtensionResult, error) {
	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.UserID != res.UserID {
		return nil, apperrors.Forbidden("only the main reserver may request an extension")
	}

	now := s.clock.Now()
	end, bounded := res.CurrentEnd()
	var nextConflict *time.Time
	if bounded {
		nextConflict, err = s.repo.FindNextConflict(ctx, res.RoomID, end)
		if err != nil {
			return nil, apperrors.Internal("Failed to check room schedule", err)
		}
	}

	outcome, err := lifecycle.RequestExtension(res, reason, now, nextConflict, s.cfg.ExtensionBuffer)
	if err != nil {
		return nil, s.translate(err, id)
	}

	if err := s.repo.Save(ctx, res, res.Version); err != nil {
		return nil, s.translate(err, id)
	}

	s.emit(ctx, model.Event{
		Type:          "request_extension",
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		Actor:         actor,
		Timestamp:     now,
	})

	s.cfg.Log.Info("Extension requested",
		"id", res.ID,
		"room_id", res.RoomID,
		"bounded", outcome.ConflictTime != nil,
	)
	return &ExtensionResult{Reservation: res, ConflictTime: outcome.ConflictTime}, nil
}

func (s *reservationService) ResolveExtension(ctx context.Context, actor model.Actor, id string, approve bool) (*model.Reservation, error) {
	if !actor.Staff() {
		return nil, apperrors.Forbidden("only staff or admin may resolve extension requests")
	}

	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()

	// Recompute the cap: a reservation approved after the request was filed
	// must still bound the grant.
	var nextConflict *time.Time
	if approve {
		end, bounded := res.CurrentEnd()
		after := end
		if !bounded {
			after = now
		}
		nextConflict, err = s.repo.FindNextConflict(ctx, res.RoomID, after)
		if err != nil {
			return nil, apperrors.Internal("Failed to check room schedule", err)
		}
	}

	if err := lifecycle.ResolveExtension(res, approve, now, nextConflict, s.cfg.ExtensionBuffer); err != nil {
		return nil, s.translate(err, id)
	}

	if err := s.repo.Save(ctx, res, res.Version); err != nil {
		return nil, s.translate(err, id)
	}

	eventType := model.Action("approve_extension")
	if !approve {
		eventType = "reject_extension"
	}
	s.emit(ctx, model.Event{
		Type:          eventType,
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		Actor:         actor,
		Timestamp:     now,
	})

	s.cfg.Log.Info("Extension resolved", "id", res.ID, "approved", approve)
	return res, nil
}

// --- Helpers ---

// transition runs the common load/apply/save/notify path for actions that
// need no schedule facts beyond the reservation itself.
func (s *reservationService) transition(
	ctx context.Context,
	actor model.Actor,
	id string,
	action model.Action,
	apply func(res *model.Reservation, now time.Time) error,
) (*model.Reservation, error) {
	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(res, s.clock.Now()); err != nil {
		return nil, s.translate(err, id)
	}

	if err := s.repo.Save(ctx, res, res.Version); err != nil {
		return nil, s.translate(err, id)
	}

	s.emit(ctx, model.Event{
		Type:          action,
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		Actor:         actor,
		Timestamp:     s.clock.Now(),
	})

	s.cfg.Log.Info("Reservation transition applied",
		"id", res.ID,
		"action", action,
		"status", res.Status,
		"actor", actor.UserID,
	)
	return res, nil
}

func (s *reservationService) load(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id)
	}
	return res, nil
}

// translate maps domain errors to the structured results surfaced to
// callers. AppErrors pass through untouched.
func (s *reservationService) translate(err error, id string) error {
	if apperrors.IsAppError(err) {
		return err
	}

	var invalid *reserrors.InvalidTransitionError
	switch {
	case errors.As(err, &invalid):
		return apperrors.InvalidTransition(string(invalid.From), string(invalid.Action))
	case errors.Is(err, reserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Reservation", id)
	case errors.Is(err, reserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid reservation ID format")
	case errors.Is(err, reserrors.ErrVersionConflict):
		return apperrors.ConflictingUpdate("Reservation")
	case errors.Is(err, reserrors.ErrTooEarly):
		return apperrors.TooEarly(fmt.Sprintf("reservations may be started at most %s before their scheduled start", s.cfg.StartWindow))
	case errors.Is(err, reserrors.ErrNotOngoing):
		return apperrors.NotOngoing("extension requests only apply while the reservation is ongoing")
	case errors.Is(err, reserrors.ErrExtensionPending):
		return apperrors.ExtensionPending("an extension request is already awaiting review")
	case errors.Is(err, reserrors.ErrNoPendingExtension):
		return apperrors.NoPendingExtension("there is no extension request to resolve")
	case errors.Is(err, reserrors.ErrExtensionOverlap):
		return apperrors.Conflict("the next reservation on this room leaves no time to extend into")
	default:
		return apperrors.Internal("Reservation operation failed", err)
	}
}

// emit sends the notification without letting a delivery failure surface:
// the transition has already been persisted.
func (s *reservationService) emit(ctx context.Context, event model.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to deliver reservation event",
			"type", event.Type,
			"reservation_id", event.ReservationID,
			"error", err,
		)
	}
}

func (s *reservationService) acquireRoomLock(ctx context.Context, roomID string) (string, error) {
	lockID := fmt.Sprintf("room_lock_%s", roomID)

	lock := &model.RoomLock{
		ID:        lockID,
		ExpiresAt: s.clock.Now().Add(s.cfg.RoomLockTTL),
	}

	if _, err := s.lockRepo.Create(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("This room is currently being started by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire room lock", err)
	}

	return lockID, nil
}

func (s *reservationService) releaseRoomLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}
