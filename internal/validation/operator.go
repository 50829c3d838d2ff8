package validation

import (
	"strings"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
)

type operatorRecord struct {
	EmployeeNumber string `json:"employee_number" validate:"notblank,max=50"`
	FirstName      string `json:"first_name" validate:"notblank,max=100"`
	LastName       string `json:"last_name" validate:"notblank,max=100"`
	Email          string `json:"email" validate:"omitempty,emailfmt,max=255"`
	Phone          string `json:"phone" validate:"omitempty,max=50"`
	Department     string `json:"department" validate:"omitempty,max=100"`
}

// optional treats a missing or whitespace-only value as absent.
func optional(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return ""
	}
	return *s
}

// Operator checks a record about to be created.
func (v *Validator) Operator(req domain.CreateOperatorRequest) domain.FieldErrors {
	errs := domain.FieldErrors{}
	v.structInto(errs, operatorRecord{
		EmployeeNumber: req.EmployeeNumber,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          optional(req.Email),
		Phone:          optional(req.Phone),
		Department:     optional(req.Department),
	})
	return errs
}

// OperatorUpdate applies the creation rules to the fields that are present.
func (v *Validator) OperatorUpdate(req domain.UpdateOperatorRequest) domain.FieldErrors {
	errs := domain.FieldErrors{}
	if req.FirstName != nil {
		v.varInto(errs, "first_name", *req.FirstName, "notblank,max=100")
	}
	if req.LastName != nil {
		v.varInto(errs, "last_name", *req.LastName, "notblank,max=100")
	}
	if email := optional(req.Email); email != "" {
		v.varInto(errs, "email", email, "emailfmt,max=255")
	}
	if phone := optional(req.Phone); phone != "" {
		v.varInto(errs, "phone", phone, "max=50")
	}
	if department := optional(req.Department); department != "" {
		v.varInto(errs, "department", department, "max=100")
	}
	return errs
}

type filterRecord struct {
	Page   int    `json:"page" validate:"gte=1,lte=1000000"`
	Limit  int    `json:"limit" validate:"gte=1,lte=100"`
	SortBy string `json:"sort_by" validate:"omitempty,oneof=employee_number first_name last_name department created_at"`
	Order  string `json:"order" validate:"omitempty,oneof=asc desc"`
}

// OperatorFilters expects f to be normalized already.
func (v *Validator) OperatorFilters(f domain.OperatorFilters) domain.FieldErrors {
	errs := domain.FieldErrors{}
	v.structInto(errs, filterRecord{
		Page:   f.Page,
		Limit:  f.Limit,
		SortBy: f.SortBy,
		Order:  string(f.Order),
	})
	return errs
}
