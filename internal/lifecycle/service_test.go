package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goldenkiwi/autoparc/backend/internal/cache"
	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *memStore
	cache *recordingCache
	mail  *recordingMail
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	v, err := validation.New(time.UTC)
	require.NoError(t, err)

	f := &fixture{store: newMemStore(), cache: &recordingCache{}, mail: &recordingMail{}}
	f.svc = NewService(f.store, f.cache, f.mail, v).WithClock(func() time.Time { return fixedNow })
	return f
}

func strPtr(s string) *string {
	return &s
}

func requireConflict(t *testing.T, err error, msg string) {
	t.Helper()

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, msg, conflict.Message)
}

func requireFieldError(t *testing.T, err error, field, msg string) {
	t.Helper()

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, msg, verr.Fields[field])
}

func TestAssignAndUnassignRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	operator := f.store.addOperator("EMP001", true, strPtr("jean.dupont@example.fr"))
	car := f.store.addCar("AB-123-CD", domain.CarStatusActive)
	assert.Equal(t, []string{"EMP001"}, f.store.available())

	assignment, err := f.svc.Assign(ctx, car.ID, domain.AssignOperatorRequest{
		OperatorID: operator.ID,
		StartDate:  "2024-03-20",
	}, "admin-1")
	require.NoError(t, err)
	assert.True(t, assignment.IsOpen())
	assert.Equal(t, "2024-03-20", assignment.StartDate.String())
	require.NotNil(t, assignment.CreatedBy)
	assert.Equal(t, "admin-1", *assignment.CreatedBy)
	assert.Empty(t, f.store.available())

	closed, err := f.svc.Unassign(ctx, assignment.ID, domain.UnassignOperatorRequest{EndDate: "2024-04-01"}, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, closed.EndDate)
	assert.Equal(t, "2024-04-01", closed.EndDate.String())
	assert.Equal(t, []string{"EMP001"}, f.store.available())

	assert.Len(t, f.store.logs, 4)
	require.Len(t, f.mail.sent, 2)
	assert.Equal(t, domain.MailOperatorAssigned, f.mail.sent[0].Type)
	assert.Equal(t, domain.MailOperatorUnassigned, f.mail.sent[1].Type)
	data := f.mail.sent[1].Data.(domain.AssignmentMailData)
	assert.Equal(t, "12 jours", data.Duration)
	assert.Equal(t, "01/04/2024", data.EndDate)

	assert.Subset(t, f.cache.prefixes, []string{
		cache.PrefixOperators,
		cache.PrefixAvailableOperators,
		cache.OperatorKey(operator.ID),
		cache.OperatorHistoryKey(operator.ID),
		cache.CarHistoryKey(car.ID),
		cache.PrefixCars,
		cache.CarKey(car.ID),
	})
}

func TestAssignWithoutOperatorNeverReachesStore(t *testing.T) {
	f := newFixture(t)
	car := f.store.addCar("AB-123-CD", domain.CarStatusActive)

	_, err := f.svc.Assign(context.Background(), car.ID, domain.AssignOperatorRequest{StartDate: "2024-03-20"}, "admin-1")
	requireFieldError(t, err, "operator_id", "Veuillez sélectionner un opérateur")
	assert.Zero(t, f.store.calls)
}

func TestAssignRejectsBackdatedStart(t *testing.T) {
	f := newFixture(t)
	operator := f.store.addOperator("EMP001", true, nil)
	car := f.store.addCar("AB-123-CD", domain.CarStatusActive)

	_, err := f.svc.Assign(context.Background(), car.ID, domain.AssignOperatorRequest{
		OperatorID: operator.ID,
		StartDate:  "2024-03-14",
	}, "admin-1")
	requireFieldError(t, err, "start_date", "La date de début ne peut pas être dans le passé")
	assert.Zero(t, f.store.calls)
}

func TestAssignPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active := f.store.addOperator("EMP001", true, nil)
	inactive := f.store.addOperator("EMP002", false, nil)
	busy := f.store.addOperator("EMP003", true, nil)
	car := f.store.addCar("AB-123-CD", domain.CarStatusActive)
	other := f.store.addCar("EF-456-GH", domain.CarStatusActive)
	repair := f.store.addCar("IJ-789-KL", domain.CarStatusMaintenance)

	_, err := f.svc.Assign(ctx, other.ID, domain.AssignOperatorRequest{OperatorID: busy.ID, StartDate: "2024-03-15"}, "admin-1")
	require.NoError(t, err)

	t.Run("unknown car", func(t *testing.T) {
		_, err := f.svc.Assign(ctx, "missing", domain.AssignOperatorRequest{OperatorID: active.ID, StartDate: "2024-03-15"}, "admin-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, err := f.svc.Assign(ctx, car.ID, domain.AssignOperatorRequest{OperatorID: "6f1c1a52-8f3e-4d0b-9a39-0c1f2b7d4e11", StartDate: "2024-03-15"}, "admin-1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("car not active", func(t *testing.T) {
		_, err := f.svc.Assign(ctx, repair.ID, domain.AssignOperatorRequest{OperatorID: active.ID, StartDate: "2024-03-15"}, "admin-1")
		requireConflict(t, err, domain.MsgCarNotActive)
	})

	t.Run("operator not active", func(t *testing.T) {
		_, err := f.svc.Assign(ctx, car.ID, domain.AssignOperatorRequest{OperatorID: inactive.ID, StartDate: "2024-03-15"}, "admin-1")
		requireConflict(t, err, domain.MsgOperatorNotActive)
	})

	t.Run("operator already holds a car", func(t *testing.T) {
		_, err := f.svc.Assign(ctx, car.ID, domain.AssignOperatorRequest{OperatorID: busy.ID, StartDate: "2024-03-15"}, "admin-1")
		requireConflict(t, err, domain.MsgOperatorHasAssignment)
	})

	t.Run("car already held", func(t *testing.T) {
		_, err := f.svc.Assign(ctx, other.ID, domain.AssignOperatorRequest{OperatorID: active.ID, StartDate: "2024-03-15"}, "admin-1")
		requireConflict(t, err, domain.MsgCarHasAssignment)
	})
}

func TestAssignStoreConflictIsAuthoritative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	operator := f.store.addOperator("EMP001", true, nil)
	first := f.store.addCar("AB-123-CD", domain.CarStatusActive)
	second := f.store.addCar("EF-456-GH", domain.CarStatusActive)

	_, err := f.svc.Assign(ctx, first.ID, domain.AssignOperatorRequest{OperatorID: operator.ID, StartDate: "2024-03-15"}, "admin-1")
	require.NoError(t, err)

	f.store.hideOpen = true
	_, err = f.svc.Assign(ctx, second.ID, domain.AssignOperatorRequest{OperatorID: operator.ID, StartDate: "2024-03-15"}, "admin-1")
	requireConflict(t, err, domain.MsgOperatorHasAssignment)
}

func TestSecondUnassignIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	operator := f.store.addOperator("EMP001", true, nil)
	car := f.store.addCar("AB-123-CD", domain.CarStatusActive)

	assignment, err := f.svc.Assign(ctx, car.ID, domain.AssignOperatorRequest{OperatorID: operator.ID, StartDate: "2024-03-15"}, "admin-1")
	require.NoError(t, err)

	_, err = f.svc.Unassign(ctx, assignment.ID, domain.UnassignOperatorRequest{EndDate: "2024-03-20"}, "admin-1")
	require.NoError(t, err)

	_, err = f.svc.Unassign(ctx, assignment.ID, domain.UnassignOperatorRequest{EndDate: "2024-03-25"}, "admin-1")
	requireConflict(t, err, domain.MsgAssignmentClosed)

	stored, err := f.store.GetAssignmentByID(ctx, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-20", stored.EndDate.String())
}

func TestUnassignValidatesBeforeLoading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	operator := f.store.addOperator("EMP001", true, nil)
	car := f.store.addCar("AB-123-CD", domain.CarStatusActive)

	assignment, err := f.svc.Assign(ctx, car.ID, domain.AssignOperatorRequest{OperatorID: operator.ID, StartDate: "2024-03-15"}, "admin-1")
	require.NoError(t, err)
	_, err = f.svc.Unassign(ctx, assignment.ID, domain.UnassignOperatorRequest{EndDate: "2024-03-20"}, "admin-1")
	require.NoError(t, err)

	calls := f.store.calls

	_, err = f.svc.Unassign(ctx, assignment.ID, domain.UnassignOperatorRequest{}, "admin-1")
	requireFieldError(t, err, "end_date", "La date de fin est requise")

	_, err = f.svc.Unassign(ctx, "missing", domain.UnassignOperatorRequest{EndDate: "20/03/2024"}, "admin-1")
	requireFieldError(t, err, "end_date", "Format de date invalide (AAAA-MM-JJ)")

	_, err = f.svc.UnassignCar(ctx, car.ID, domain.UnassignOperatorRequest{}, "admin-1")
	requireFieldError(t, err, "end_date", "La date de fin est requise")

	assert.Equal(t, calls, f.store.calls)
}

func TestUnassignLosingRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	operator := f.store.addOperator("EMP001", true, nil)
	car := f.store.addCar("AB-123-CD", domain.CarStatusActive)

	assignment, err := f.svc.Assign(ctx, car.ID, domain.AssignOperatorRequest{OperatorID: operator.ID, StartDate: "2024-03-15"}, "admin-1")
	require.NoError(t, err)

	f.store.closeRace = true
	_, err = f.svc.Unassign(ctx, assignment.ID, domain.UnassignOperatorRequest{EndDate: "2024-03-20"}, "admin-1")
	requireConflict(t, err, domain.MsgAssignmentClosed)
}

func TestUnassignEndBeforeStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	operator := f.store.addOperator("EMP001", true, nil)
	car := f.store.addCar("AB-123-CD", domain.CarStatusActive)

	assignment, err := f.svc.Assign(ctx, car.ID, domain.AssignOperatorRequest{OperatorID: operator.ID, StartDate: "2024-03-20"}, "admin-1")
	require.NoError(t, err)

	_, err = f.svc.Unassign(ctx, assignment.ID, domain.UnassignOperatorRequest{EndDate: "2024-03-19"}, "admin-1")
	requireFieldError(t, err, "end_date", "La date de fin ne peut pas être antérieure à la date de début (20/03/2024)")

	stored, err := f.store.GetAssignmentByID(ctx, assignment.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsOpen())
}

func TestSameDayReassignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	operator := f.store.addOperator("EMP001", true, nil)
	first := f.store.addCar("AB-123-CD", domain.CarStatusActive)
	second := f.store.addCar("EF-456-GH", domain.CarStatusActive)

	assignment, err := f.svc.Assign(ctx, first.ID, domain.AssignOperatorRequest{OperatorID: operator.ID, StartDate: "2024-03-15"}, "admin-1")
	require.NoError(t, err)
	_, err = f.svc.Unassign(ctx, assignment.ID, domain.UnassignOperatorRequest{EndDate: "2024-03-15"}, "admin-1")
	require.NoError(t, err)

	_, err = f.svc.Assign(ctx, second.ID, domain.AssignOperatorRequest{OperatorID: operator.ID, StartDate: "2024-03-15"}, "admin-1")
	assert.NoError(t, err)
}

func TestUnassignCar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	operator := f.store.addOperator("EMP001", true, nil)
	car := f.store.addCar("AB-123-CD", domain.CarStatusActive)

	_, err := f.svc.UnassignCar(ctx, car.ID, domain.UnassignOperatorRequest{EndDate: "2024-03-20"}, "admin-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Assign(ctx, car.ID, domain.AssignOperatorRequest{OperatorID: operator.ID, StartDate: "2024-03-15"}, "admin-1")
	require.NoError(t, err)

	closed, err := f.svc.UnassignCar(ctx, car.ID, domain.UnassignOperatorRequest{EndDate: "2024-03-20", Notes: strPtr("Retour anticipé")}, "admin-1")
	require.NoError(t, err)
	assert.False(t, closed.IsOpen())
	require.NotNil(t, closed.Notes)
	assert.Equal(t, "Retour anticipé", *closed.Notes)
}

func TestUpdateNotesOnClosedAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	operator := f.store.addOperator("EMP001", true, nil)
	car := f.store.addCar("AB-123-CD", domain.CarStatusActive)

	assignment, err := f.svc.Assign(ctx, car.ID, domain.AssignOperatorRequest{OperatorID: operator.ID, StartDate: "2024-03-15"}, "admin-1")
	require.NoError(t, err)
	_, err = f.svc.Unassign(ctx, assignment.ID, domain.UnassignOperatorRequest{EndDate: "2024-03-20"}, "admin-1")
	require.NoError(t, err)

	f.cache.prefixes = nil
	updated, err := f.svc.UpdateNotes(ctx, assignment.ID, strPtr("Rayure portière avant"), "admin-1")
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "Rayure portière avant", *updated.Notes)
	assert.Equal(t, "2024-03-20", updated.EndDate.String())

	// detail views embed the notes too
	assert.Subset(t, f.cache.prefixes, []string{
		cache.OperatorKey(operator.ID),
		cache.OperatorHistoryKey(operator.ID),
		cache.CarKey(car.ID),
		cache.CarHistoryKey(car.ID),
	})

	cleared, err := f.svc.UpdateNotes(ctx, assignment.ID, strPtr("   "), "admin-1")
	require.NoError(t, err)
	assert.Nil(t, cleared.Notes)

	_, err = f.svc.UpdateNotes(ctx, "missing", nil, "admin-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreFailureIsTransportError(t *testing.T) {
	f := newFixture(t)
	operator := f.store.addOperator("EMP001", true, nil)
	car := f.store.addCar("AB-123-CD", domain.CarStatusActive)

	refused := errors.New("dial tcp: connection refused")
	f.store.failWith = refused

	_, err := f.svc.Assign(context.Background(), car.ID, domain.AssignOperatorRequest{OperatorID: operator.ID, StartDate: "2024-03-15"}, "admin-1")

	var transport *domain.TransportError
	require.ErrorAs(t, err, &transport)
	assert.ErrorIs(t, err, refused)
}

func TestCacheFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.cache.err = errors.New("redis down")

	operator := f.store.addOperator("EMP001", true, nil)
	car := f.store.addCar("AB-123-CD", domain.CarStatusActive)

	_, err := f.svc.Assign(context.Background(), car.ID, domain.AssignOperatorRequest{OperatorID: operator.ID, StartDate: "2024-03-15"}, "admin-1")
	assert.NoError(t, err)
	assert.Empty(t, f.store.available())
}
