package domain

import "time"

type CarStatus string

const (
	CarStatusActive      CarStatus = "active"
	CarStatusMaintenance CarStatus = "maintenance"
	CarStatusRetired     CarStatus = "retired"
)

type Car struct {
	ID           string    `json:"id"`
	LicensePlate string    `json:"license_plate"`
	Brand        string    `json:"brand"`
	Model        string    `json:"model"`
	Status       CarStatus `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	CreatedBy    *string   `json:"created_by,omitempty"`
}

type CarDetail struct {
	Car
	CurrentAssignment *Assignment `json:"current_assignment,omitempty"`
}

type CreateCarRequest struct {
	LicensePlate string    `json:"license_plate"`
	Brand        string    `json:"brand"`
	Model        string    `json:"model"`
	Status       CarStatus `json:"status"`
}

// UpdateCarRequest carries the fields to change; absent fields are kept.
type UpdateCarRequest struct {
	LicensePlate *string    `json:"license_plate,omitempty"`
	Brand        *string    `json:"brand,omitempty"`
	Model        *string    `json:"model,omitempty"`
	Status       *CarStatus `json:"status,omitempty"`
}

type CarFilters struct {
	Search string     `json:"search,omitempty"`
	Status *CarStatus `json:"status,omitempty"`
	Page   int        `json:"page"`
	Limit  int        `json:"limit"`
}

func (f *CarFilters) Normalize() {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 || f.Limit > MaxLimit {
		f.Limit = DefaultLimit
	}
}
