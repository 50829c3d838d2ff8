package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/goldenkiwi/autoparc/backend/internal/repository"
	"github.com/goldenkiwi/autoparc/backend/internal/validation"
)

// Store is the subset of the repository the fleet import writes through.
// CreateFleetEntry must write all of a row or nothing.
type Store interface {
	CreateFleetEntry(ctx context.Context, operator *domain.Operator, car *domain.Car, assignment *domain.Assignment) error
}

// Columns expected in a fleet file. start_date may be empty, in which case the
// operator and the car are imported without an assignment.
var fleetHeaders = []string{
	"employee_number",
	"first_name",
	"last_name",
	"email",
	"phone",
	"department",
	"license_plate",
	"brand",
	"model",
	"status",
	"start_date",
}

type Report struct {
	Operators   int
	Cars        int
	Assignments int
	Skipped     int
}

// ImportFleet reads one operator and one car per row and links them when the
// row carries a start date.
// Rows are checked with the same rules as the API before anything is written.
func ImportFleet(ctx context.Context, store Store, v *validation.Validator, r io.Reader) (*Report, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("lecture de l'en-tête: %w", err)
	}
	index := make(map[string]int, len(headers))
	for i, header := range headers {
		index[strings.TrimSpace(header)] = i
	}
	for _, header := range fleetHeaders {
		if _, ok := index[header]; !ok {
			return nil, fmt.Errorf("colonne manquante: %s", header)
		}
	}

	report := &Report{}
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return report, fmt.Errorf("ligne %d: %w", line, err)
		}

		record := make(map[string]string, len(fleetHeaders))
		for _, header := range fleetHeaders {
			record[header] = strings.TrimSpace(row[index[header]])
		}

		if err := importRow(ctx, store, v, record, report); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			slog.Error("ligne ignorée", slog.Int("line", line), slog.String("error", err.Error()))
			report.Skipped++
		}
	}

	return report, nil
}

func importRow(ctx context.Context, store Store, v *validation.Validator, record map[string]string, report *Report) error {
	operatorReq := domain.CreateOperatorRequest{
		EmployeeNumber: record["employee_number"],
		FirstName:      record["first_name"],
		LastName:       record["last_name"],
		Email:          optional(record["email"]),
		Phone:          optional(record["phone"]),
		Department:     optional(record["department"]),
	}
	carReq := domain.CreateCarRequest{
		LicensePlate: record["license_plate"],
		Brand:        record["brand"],
		Model:        record["model"],
		Status:       domain.CarStatus(record["status"]),
	}
	if carReq.Status == "" {
		carReq.Status = domain.CarStatusActive
	}

	errs := v.Operator(operatorReq)
	for field, msg := range v.Car(carReq) {
		errs.Add(field, msg)
	}

	var startDate *domain.Date
	if record["start_date"] != "" {
		d, err := domain.ParseDate(record["start_date"])
		if err != nil {
			errs.Add("start_date", fmt.Sprintf("date invalide %q", record["start_date"]))
		} else {
			startDate = &d
		}
	}
	if err := errs.Err(); err != nil {
		return err
	}

	operator := &domain.Operator{
		EmployeeNumber: operatorReq.EmployeeNumber,
		FirstName:      operatorReq.FirstName,
		LastName:       operatorReq.LastName,
		Email:          operatorReq.Email,
		Phone:          operatorReq.Phone,
		Department:     operatorReq.Department,
	}
	car := &domain.Car{
		LicensePlate: strings.ToUpper(carReq.LicensePlate),
		Brand:        carReq.Brand,
		Model:        carReq.Model,
		Status:       carReq.Status,
	}

	var assignment *domain.Assignment
	switch {
	case startDate == nil:
	case car.Status != domain.CarStatusActive:
		slog.Warn("véhicule non actif, pas d'attribution", slog.String("license_plate", car.LicensePlate))
	default:
		assignment = &domain.Assignment{StartDate: *startDate}
	}

	if err := store.CreateFleetEntry(ctx, operator, car, assignment); err != nil {
		switch repository.ConstraintName(err) {
		case repository.ConstraintEmployeeNumber:
			return fmt.Errorf("numéro d'employé %s déjà présent", operator.EmployeeNumber)
		case repository.ConstraintLicensePlate:
			return fmt.Errorf("plaque %s déjà présente", car.LicensePlate)
		case repository.ConstraintOpenCarAssign, repository.ConstraintOpenOperatorAssign:
			return fmt.Errorf("attribution déjà ouverte pour %s", car.LicensePlate)
		default:
			return fmt.Errorf("ligne %s/%s: %w", operator.EmployeeNumber, car.LicensePlate, err)
		}
	}

	report.Operators++
	report.Cars++
	if assignment != nil {
		report.Assignments++
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
