package lifecycle

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// memStore mimics the PostgreSQL repository, partial unique indexes included.
type memStore struct {
	mu          sync.Mutex
	cars        map[string]*domain.Car
	operators   map[string]*domain.Operator
	assignments map[string]*domain.Assignment
	logs        []domain.ActionLog

	calls int
	// hideOpen makes the open-assignment lookups miss, as if a concurrent
	// request committed between the check and the insert.
	hideOpen bool
	// closeRace makes CloseAssignment behave as if another request closed
	// the assignment first.
	closeRace bool
	failWith  error
}

func newMemStore() *memStore {
	return &memStore{
		cars:        map[string]*domain.Car{},
		operators:   map[string]*domain.Operator{},
		assignments: map[string]*domain.Assignment{},
	}
}

func (m *memStore) addCar(plate string, status domain.CarStatus) *domain.Car {
	m.mu.Lock()
	defer m.mu.Unlock()

	car := &domain.Car{ID: uuid.NewString(), LicensePlate: plate, Brand: "Renault", Model: "Clio", Status: status}
	m.cars[car.ID] = car
	return car
}

func (m *memStore) addOperator(number string, active bool, email *string) *domain.Operator {
	m.mu.Lock()
	defer m.mu.Unlock()

	operator := &domain.Operator{ID: uuid.NewString(), EmployeeNumber: number, FirstName: "Jean", LastName: "Dupont", IsActive: active, Email: email}
	m.operators[operator.ID] = operator
	return operator
}

func (m *memStore) available() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, operator := range m.operators {
		if !operator.IsActive || m.openFor(func(a *domain.Assignment) bool { return a.OperatorID == id }) != nil {
			continue
		}
		ids = append(ids, operator.EmployeeNumber)
	}
	sort.Strings(ids)
	return ids
}

func (m *memStore) openFor(match func(*domain.Assignment) bool) *domain.Assignment {
	for _, a := range m.assignments {
		if a.IsOpen() && match(a) {
			return a
		}
	}
	return nil
}

func (m *memStore) enter() error {
	m.calls++
	return m.failWith
}

func (m *memStore) GetCarByID(ctx context.Context, id string) (*domain.Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}

	car, ok := m.cars[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *car
	return &c, nil
}

func (m *memStore) GetOperatorByID(ctx context.Context, id string) (*domain.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}

	operator, ok := m.operators[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	o := *operator
	return &o, nil
}

func (m *memStore) GetAssignmentByID(ctx context.Context, id string) (*domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}

	a, ok := m.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *a
	return &c, nil
}

func (m *memStore) GetOpenAssignmentByOperator(ctx context.Context, operatorID string) (*domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}

	a := m.openFor(func(a *domain.Assignment) bool { return a.OperatorID == operatorID })
	if a == nil || m.hideOpen {
		return nil, sql.ErrNoRows
	}
	c := *a
	return &c, nil
}

func (m *memStore) GetOpenAssignmentByCar(ctx context.Context, carID string) (*domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}

	a := m.openFor(func(a *domain.Assignment) bool { return a.CarID == carID })
	if a == nil || m.hideOpen {
		return nil, sql.ErrNoRows
	}
	c := *a
	return &c, nil
}

func (m *memStore) CreateAssignment(ctx context.Context, assignment *domain.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return err
	}

	if m.openFor(func(a *domain.Assignment) bool { return a.OperatorID == assignment.OperatorID }) != nil {
		return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: repository.ConstraintOpenOperatorAssign}
	}
	if m.openFor(func(a *domain.Assignment) bool { return a.CarID == assignment.CarID }) != nil {
		return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: repository.ConstraintOpenCarAssign}
	}

	assignment.ID = uuid.NewString()
	assignment.CreatedAt = time.Now().UTC()
	c := *assignment
	m.assignments[c.ID] = &c
	return nil
}

func (m *memStore) CloseAssignment(ctx context.Context, id string, endDate domain.Date, notes *string) (*domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}

	a, ok := m.assignments[id]
	if !ok || !a.IsOpen() || m.closeRace {
		return nil, sql.ErrNoRows
	}
	a.EndDate = &endDate
	if notes != nil {
		a.Notes = notes
	}
	c := *a
	return &c, nil
}

func (m *memStore) UpdateAssignmentNotes(ctx context.Context, id string, notes *string) (*domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return nil, err
	}

	a, ok := m.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	a.Notes = notes
	c := *a
	return &c, nil
}

func (m *memStore) CreateActionLog(ctx context.Context, log *domain.ActionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(); err != nil {
		return err
	}

	m.logs = append(m.logs, *log)
	return nil
}

type recordingCache struct {
	prefixes []string
	err      error
}

func (c *recordingCache) Invalidate(ctx context.Context, prefixes ...string) error {
	c.prefixes = append(c.prefixes, prefixes...)
	return c.err
}

type recordingMail struct {
	sent []domain.MailMessage
}

func (r *recordingMail) Publish(ctx context.Context, msg domain.MailMessage) error {
	r.sent = append(r.sent, msg)
	return nil
}
