package domain

import "time"

// Assignment links one operator to one car. A nil EndDate means the
// assignment is open.
type Assignment struct {
	ID         string    `json:"id"`
	CarID      string    `json:"car_id"`
	OperatorID string    `json:"operator_id"`
	StartDate  Date      `json:"start_date"`
	EndDate    *Date     `json:"end_date,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  *string   `json:"created_by,omitempty"`
}

func (a *Assignment) IsOpen() bool {
	return a.EndDate == nil
}

type AssignOperatorRequest struct {
	OperatorID string  `json:"operator_id"`
	StartDate  string  `json:"start_date"`
	Notes      *string `json:"notes,omitempty"`
}

type UnassignOperatorRequest struct {
	EndDate string  `json:"end_date"`
	Notes   *string `json:"notes,omitempty"`
}

type UpdateAssignmentNotesRequest struct {
	Notes *string `json:"notes"`
}

type AssignmentFilters struct {
	CarID      *string
	OperatorID *string
	Open       *bool
}
