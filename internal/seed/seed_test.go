package seed

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/repository"
	"github.com/goldenkiwi/autoparc/backend/internal/validation"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore enforces the unique plate and employee number, and keeps
// nothing of a rejected row.
type fakeStore struct {
	operators   []*domain.Operator
	cars        []*domain.Car
	assignments []*domain.Assignment
}

func (s *fakeStore) CreateFleetEntry(_ context.Context, o *domain.Operator, c *domain.Car, a *domain.Assignment) error {
	for _, existing := range s.operators {
		if existing.EmployeeNumber == o.EmployeeNumber {
			return &pgconn.PgError{Code: "23505", ConstraintName: repository.ConstraintEmployeeNumber}
		}
	}
	for _, existing := range s.cars {
		if existing.LicensePlate == c.LicensePlate {
			return &pgconn.PgError{Code: "23505", ConstraintName: repository.ConstraintLicensePlate}
		}
	}

	o.ID = fmt.Sprintf("op-%d", len(s.operators)+1)
	c.ID = fmt.Sprintf("car-%d", len(s.cars)+1)
	s.operators = append(s.operators, o)
	s.cars = append(s.cars, c)
	if a != nil {
		a.OperatorID = o.ID
		a.CarID = c.ID
		s.assignments = append(s.assignments, a)
	}
	return nil
}

func newValidator(t *testing.T) *validation.Validator {
	t.Helper()
	v, err := validation.New(time.UTC)
	require.NoError(t, err)
	return v
}

const header = "employee_number,first_name,last_name,email,phone,department,license_plate,brand,model,status,start_date\n"

func TestImportFleet(t *testing.T) {
	data := header +
		"EMP001,Camille,Martin,camille.martin@autoparc.fr,,Logistique,ab-123-cd,Renault,Clio,active,2024-01-08\n" +
		"EMP002,Lucas,Bernard,,,,EF-456-GH,Peugeot,208,maintenance,2024-02-12\n" +
		"EMP003,Léa,Dubois,,,,IJ-789-KL,Citroën,Berlingo,,\n"

	store := &fakeStore{}
	report, err := ImportFleet(context.Background(), store, newValidator(t), strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, &Report{Operators: 3, Cars: 3, Assignments: 1}, report)
	assert.Equal(t, "AB-123-CD", store.cars[0].LicensePlate)
	assert.Nil(t, store.operators[1].Email)
	assert.Equal(t, domain.CarStatusActive, store.cars[2].Status)

	require.Len(t, store.assignments, 1)
	assert.Equal(t, "car-1", store.assignments[0].CarID)
	assert.Equal(t, "op-1", store.assignments[0].OperatorID)
	assert.Equal(t, "2024-01-08", store.assignments[0].StartDate.String())
}

func TestImportFleetSkipsBadRows(t *testing.T) {
	data := header +
		"EMP001,Camille,Martin,,,,AB-123-CD,Renault,Clio,active,08/01/2024\n" +
		"EMP002,Lucas,Bernard,,,,EF-456-GH,Peugeot,208,stolen,\n" +
		",Hugo,Thomas,,,,MN-012-OP,Toyota,Yaris,active,\n" +
		"EMP004,Chloé,Robert,,,,QR-345-ST,Dacia,Sandero,active,\n"

	store := &fakeStore{}
	report, err := ImportFleet(context.Background(), store, newValidator(t), strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, 1, report.Operators)
	assert.Empty(t, store.assignments)
}

func TestImportFleetAppliesRecordRules(t *testing.T) {
	data := header +
		"EMP001,Camille,Martin,camille.martin@,,,AB-123-CD,Renault,Clio,active,\n" +
		"EMP002,Lucas,Bernard,,,,AB123CD,Peugeot,208,active,\n" +
		"EMP003,Léa,Dubois,,,,IJ-789-KL,Citroën,Berlingo,active,2024-01-08\n"

	store := &fakeStore{}
	report, err := ImportFleet(context.Background(), store, newValidator(t), strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, &Report{Operators: 1, Cars: 1, Assignments: 1, Skipped: 2}, report)
	assert.Equal(t, "EMP003", store.operators[0].EmployeeNumber)
}

func TestImportFleetDuplicatePlateLeavesNoOperator(t *testing.T) {
	data := header +
		"EMP001,Camille,Martin,,,,AB-123-CD,Renault,Clio,active,2024-01-08\n" +
		"EMP002,Lucas,Bernard,,,,ab-123-cd,Peugeot,208,active,2024-02-12\n"

	store := &fakeStore{}
	report, err := ImportFleet(context.Background(), store, newValidator(t), strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, &Report{Operators: 1, Cars: 1, Assignments: 1, Skipped: 1}, report)
	require.Len(t, store.operators, 1)
	assert.Equal(t, "EMP001", store.operators[0].EmployeeNumber)
}

func TestImportFleetMissingColumn(t *testing.T) {
	_, err := ImportFleet(context.Background(), &fakeStore{}, newValidator(t), strings.NewReader("employee_number,first_name\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "last_name")
}
