package validation

import (
	"fmt"
	"time"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
)

type assignmentRecord struct {
	OperatorID string  `json:"operator_id" validate:"required,uuid"`
	StartDate  string  `json:"start_date" validate:"required,isodate"`
	Notes      *string `json:"notes" validate:"omitempty,max=1000"`
}

type unassignmentRecord struct {
	EndDate string  `json:"end_date" validate:"required,isodate"`
	Notes   *string `json:"notes" validate:"omitempty,max=1000"`
}

// Assignment checks an assign request. Back-dated starts are refused; the
// comparison is made on calendar days in the validator's location.
func (v *Validator) Assignment(req domain.AssignOperatorRequest, now time.Time) domain.FieldErrors {
	errs := domain.FieldErrors{}
	v.structInto(errs, assignmentRecord{
		OperatorID: req.OperatorID,
		StartDate:  req.StartDate,
		Notes:      req.Notes,
	})
	if _, failed := errs["start_date"]; failed {
		return errs
	}

	start, _ := domain.ParseDate(req.StartDate)
	if start.Before(domain.Today(now, v.location)) {
		errs.Add("start_date", msgStartDateInPast)
	}
	return errs
}

// UnassignmentFields checks the closing request on its own, before the
// assignment is known.
func (v *Validator) UnassignmentFields(req domain.UnassignOperatorRequest) domain.FieldErrors {
	errs := domain.FieldErrors{}
	v.structInto(errs, unassignmentRecord{
		EndDate: req.EndDate,
		Notes:   req.Notes,
	})
	return errs
}

// Unassignment checks a closing request against the start of the assignment
// being closed.
func (v *Validator) Unassignment(req domain.UnassignOperatorRequest, start domain.Date) domain.FieldErrors {
	errs := v.UnassignmentFields(req)
	if _, failed := errs["end_date"]; failed {
		return errs
	}

	end, _ := domain.ParseDate(req.EndDate)
	if end.Before(start) {
		errs.Add("end_date", fmt.Sprintf(msgEndBeforeStartFmt, start.French()))
	}
	return errs
}

func (v *Validator) Notes(notes *string) domain.FieldErrors {
	errs := domain.FieldErrors{}
	if notes != nil {
		v.varInto(errs, "notes", *notes, "max=1000")
	}
	return errs
}
