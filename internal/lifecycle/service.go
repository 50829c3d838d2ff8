// Package lifecycle opens and closes operator/car assignments.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goldenkiwi/autoparc/backend/internal/cache"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/history"
	"github.com/goldenkiwi/autoparc/backend/internal/repository"
	"github.com/goldenkiwi/autoparc/backend/internal/validation"
)

// Store is the persistence the service needs. *repository.Repository
// satisfies it.
type Store interface {
	GetCarByID(ctx context.Context, id string) (*domain.Car, error)
	GetOperatorByID(ctx context.Context, id string) (*domain.Operator, error)
	GetAssignmentByID(ctx context.Context, id string) (*domain.Assignment, error)
	GetOpenAssignmentByOperator(ctx context.Context, operatorID string) (*domain.Assignment, error)
	GetOpenAssignmentByCar(ctx context.Context, carID string) (*domain.Assignment, error)
	CreateAssignment(ctx context.Context, assignment *domain.Assignment) error
	CloseAssignment(ctx context.Context, id string, endDate domain.Date, notes *string) (*domain.Assignment, error)
	UpdateAssignmentNotes(ctx context.Context, id string, notes *string) (*domain.Assignment, error)
	CreateActionLog(ctx context.Context, log *domain.ActionLog) error
}

type Invalidator interface {
	Invalidate(ctx context.Context, prefixes ...string) error
}

type Notifier interface {
	Publish(ctx context.Context, msg domain.MailMessage) error
}

type Service struct {
	store     Store
	cache     Invalidator
	mail      Notifier
	validator *validation.Validator
	now       func() time.Time
}

func NewService(store Store, cache Invalidator, mail Notifier, v *validation.Validator) *Service {
	return &Service{
		store:     store,
		cache:     cache,
		mail:      mail,
		validator: v,
		now:       time.Now,
	}
}

// WithClock replaces the time source used to decide what today is.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Assign opens an assignment of an operator to the car carID.
func (s *Service) Assign(ctx context.Context, carID string, req domain.AssignOperatorRequest, actor string) (*domain.Assignment, error) {
	if err := s.validator.Assignment(req, s.now()).Err(); err != nil {
		return nil, err
	}

	car, err := s.store.GetCarByID(ctx, carID)
	if err != nil {
		return nil, classify("load car", err)
	}
	if car.Status != domain.CarStatusActive {
		return nil, domain.NewConflict(domain.MsgCarNotActive)
	}

	operator, err := s.store.GetOperatorByID(ctx, req.OperatorID)
	if err != nil {
		return nil, classify("load operator", err)
	}
	if !operator.IsActive {
		return nil, domain.NewConflict(domain.MsgOperatorNotActive)
	}

	if err := s.ensureFree(ctx, operator.ID, car.ID); err != nil {
		return nil, err
	}

	start, _ := domain.ParseDate(req.StartDate)
	assignment := &domain.Assignment{
		CarID:      car.ID,
		OperatorID: operator.ID,
		StartDate:  start,
		Notes:      blankToNil(req.Notes),
		CreatedBy:  actorRef(actor),
	}
	if err := s.store.CreateAssignment(ctx, assignment); err != nil {
		return nil, classify("create assignment", err)
	}

	changes := map[string]any{
		"car_id":      car.ID,
		"operator_id": operator.ID,
		"start_date":  assignment.StartDate,
	}
	s.record(ctx, domain.EntityCar, car.ID, domain.ActionAssign, actor, changes)
	s.record(ctx, domain.EntityOperator, operator.ID, domain.ActionAssign, actor, changes)
	s.invalidate(ctx, assignment)
	s.notify(ctx, domain.MailOperatorAssigned, operator, car, assignment)

	return assignment, nil
}

// ensureFree fails when the operator or the car already has an open
// assignment. The store's unique indexes remain the final word.
func (s *Service) ensureFree(ctx context.Context, operatorID, carID string) error {
	if _, err := s.store.GetOpenAssignmentByOperator(ctx, operatorID); err == nil {
		return domain.NewConflict(domain.MsgOperatorHasAssignment)
	} else if !repository.IsNoRows(err) {
		return classify("check operator assignment", err)
	}

	if _, err := s.store.GetOpenAssignmentByCar(ctx, carID); err == nil {
		return domain.NewConflict(domain.MsgCarHasAssignment)
	} else if !repository.IsNoRows(err) {
		return classify("check car assignment", err)
	}

	return nil
}

// Unassign closes the open assignment assignmentID.
func (s *Service) Unassign(ctx context.Context, assignmentID string, req domain.UnassignOperatorRequest, actor string) (*domain.Assignment, error) {
	if err := s.validator.UnassignmentFields(req).Err(); err != nil {
		return nil, err
	}

	current, err := s.store.GetAssignmentByID(ctx, assignmentID)
	if err != nil {
		return nil, classify("load assignment", err)
	}
	return s.close(ctx, current, req, actor)
}

// UnassignCar closes whatever assignment is open on carID.
func (s *Service) UnassignCar(ctx context.Context, carID string, req domain.UnassignOperatorRequest, actor string) (*domain.Assignment, error) {
	if err := s.validator.UnassignmentFields(req).Err(); err != nil {
		return nil, err
	}

	if _, err := s.store.GetCarByID(ctx, carID); err != nil {
		return nil, classify("load car", err)
	}

	current, err := s.store.GetOpenAssignmentByCar(ctx, carID)
	if err != nil {
		return nil, classify("load car assignment", err)
	}
	return s.close(ctx, current, req, actor)
}

// close expects the request fields to be valid already; only the ordering
// against the start date is left to check.
func (s *Service) close(ctx context.Context, current *domain.Assignment, req domain.UnassignOperatorRequest, actor string) (*domain.Assignment, error) {
	if !current.IsOpen() {
		return nil, domain.NewConflict(domain.MsgAssignmentClosed)
	}

	if err := s.validator.Unassignment(req, current.StartDate).Err(); err != nil {
		return nil, err
	}

	end, _ := domain.ParseDate(req.EndDate)
	closed, err := s.store.CloseAssignment(ctx, current.ID, end, blankToNil(req.Notes))
	if err != nil {
		if repository.IsNoRows(err) {
			// closed by a concurrent request since we loaded it
			return nil, domain.NewConflict(domain.MsgAssignmentClosed)
		}
		return nil, classify("close assignment", err)
	}

	changes := map[string]any{
		"assignment_id": closed.ID,
		"end_date":      end,
	}
	s.record(ctx, domain.EntityCar, closed.CarID, domain.ActionUnassign, actor, changes)
	s.record(ctx, domain.EntityOperator, closed.OperatorID, domain.ActionUnassign, actor, changes)
	s.invalidate(ctx, closed)

	operator, err := s.store.GetOperatorByID(ctx, closed.OperatorID)
	if err == nil {
		car, err := s.store.GetCarByID(ctx, closed.CarID)
		if err == nil {
			s.notify(ctx, domain.MailOperatorUnassigned, operator, car, closed)
		}
	}

	return closed, nil
}

// UpdateNotes edits the notes of an assignment, open or closed. Nil or
// blank notes clear them.
func (s *Service) UpdateNotes(ctx context.Context, assignmentID string, notes *string, actor string) (*domain.Assignment, error) {
	if err := s.validator.Notes(notes).Err(); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateAssignmentNotes(ctx, assignmentID, blankToNil(notes))
	if err != nil {
		return nil, classify("update notes", err)
	}

	s.record(ctx, domain.EntityOperator, updated.OperatorID, domain.ActionUpdate, actor, map[string]any{
		"assignment_id": updated.ID,
		"notes":         updated.Notes,
	})
	prefixes := []string{
		cache.OperatorKey(updated.OperatorID),
		cache.OperatorHistoryKey(updated.OperatorID),
		cache.CarKey(updated.CarID),
		cache.CarHistoryKey(updated.CarID),
	}
	if err := s.cache.Invalidate(ctx, prefixes...); err != nil {
		slog.Warn("invalidation du cache impossible", slog.String("assignment", updated.ID), slog.String("error", err.Error()))
	}

	return updated, nil
}

func (s *Service) invalidate(ctx context.Context, a *domain.Assignment) {
	prefixes := []string{
		cache.PrefixOperators,
		cache.PrefixAvailableOperators,
		cache.OperatorKey(a.OperatorID),
		cache.OperatorHistoryKey(a.OperatorID),
		cache.CarHistoryKey(a.CarID),
		cache.PrefixCars,
		cache.CarKey(a.CarID),
	}
	if err := s.cache.Invalidate(ctx, prefixes...); err != nil {
		slog.Warn("invalidation du cache impossible", slog.String("assignment", a.ID), slog.String("error", err.Error()))
	}
}

func (s *Service) record(ctx context.Context, entity domain.EntityType, entityID string, action domain.ActionType, actor string, changes map[string]any) {
	if actor == "" {
		return
	}

	data, err := json.Marshal(changes)
	if err != nil {
		slog.Error("sérialisation du journal impossible", slog.String("error", err.Error()))
		return
	}

	log := &domain.ActionLog{
		EntityType:  entity,
		EntityID:    entityID,
		ActionType:  action,
		PerformedBy: actor,
		Changes:     data,
	}
	if err := s.store.CreateActionLog(ctx, log); err != nil {
		slog.Error("écriture du journal impossible",
			slog.String("entity", string(entity)),
			slog.String("id", entityID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) notify(ctx context.Context, typ domain.MailType, operator *domain.Operator, car *domain.Car, a *domain.Assignment) {
	if s.mail == nil || operator.Email == nil || *operator.Email == "" {
		return
	}

	data := domain.AssignmentMailData{
		FullName:     operator.FullName(),
		LicensePlate: car.LicensePlate,
		Brand:        car.Brand,
		Model:        car.Model,
		StartDate:    a.StartDate.French(),
	}
	if a.EndDate != nil {
		data.EndDate = a.EndDate.French()
		data.Duration = history.CalculateDuration(a.StartDate, a.EndDate, s.now(), s.validator.Location())
	}

	msg := domain.MailMessage{Type: typ, To: *operator.Email, Data: data}
	if err := s.mail.Publish(ctx, msg); err != nil {
		slog.Error("publication de l'e-mail impossible", slog.String("type", string(typ)), slog.String("error", err.Error()))
	}
}

// classify maps a store error onto the domain taxonomy.
func classify(op string, err error) error {
	switch {
	case repository.IsNoRows(err), repository.IsInvalidText(err):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case repository.IsUniqueViolation(err):
		switch repository.ConstraintName(err) {
		case repository.ConstraintOpenOperatorAssign:
			return domain.NewConflict(domain.MsgOperatorHasAssignment)
		case repository.ConstraintOpenCarAssign:
			return domain.NewConflict(domain.MsgCarHasAssignment)
		}
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return &domain.TransportError{Op: op, Err: err}
	}
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func actorRef(actor string) *string {
	if actor == "" {
		return nil
	}
	return &actor
}
