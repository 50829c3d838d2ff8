package domain

import "time"

// Operator is an employee who may be assigned a vehicle.
type Operator struct {
	ID             string    `json:"id"`
	EmployeeNumber string    `json:"employee_number"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          *string   `json:"email,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Department     *string   `json:"department,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CreatedBy      *string   `json:"created_by,omitempty"`
}

func (o *Operator) FullName() string {
	return o.FirstName + " " + o.LastName
}

// CurrentCar summarises the vehicle held through an open assignment.
type CurrentCar struct {
	ID           string    `json:"id"`
	LicensePlate string    `json:"license_plate"`
	Brand        string    `json:"brand"`
	Model        string    `json:"model"`
	Since        time.Time `json:"since"`
}

type OperatorWithCurrentCar struct {
	Operator
	CurrentCar *CurrentCar `json:"current_car,omitempty"`
}

type OperatorDetail struct {
	Operator
	CurrentAssignment *Assignment  `json:"current_assignment,omitempty"`
	AssignmentHistory []Assignment `json:"assignment_history"`
}

type CreateOperatorRequest struct {
	EmployeeNumber string  `json:"employee_number"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Department     *string `json:"department,omitempty"`
}

// UpdateOperatorRequest has no employee number: it is fixed at creation.
type UpdateOperatorRequest struct {
	FirstName  *string `json:"first_name,omitempty"`
	LastName   *string `json:"last_name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Department *string `json:"department,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

type OperatorFilters struct {
	Search     string    `json:"search,omitempty"`
	Department string    `json:"department,omitempty"`
	IsActive   *bool     `json:"is_active,omitempty"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	SortBy     string    `json:"sort_by,omitempty"`
	Order      SortOrder `json:"order,omitempty"`
}

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Normalize fills in paging defaults.
func (f *OperatorFilters) Normalize() {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
}

type Page[T any] struct {
	Data       []T `json:"data"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

func NewPage[T any](data []T, total, page, limit int) *Page[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return &Page[T]{
		Data:       data,
		TotalCount: total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}
