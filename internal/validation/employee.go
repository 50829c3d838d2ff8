package validation

import "github.com/goldenkiwi/autoparc/backend/internal/domain"

type LoginRequest struct {
	Email    string `json:"email" validate:"notblank,emailfmt"`
	Password string `json:"password" validate:"required"`
}

type CreateEmployeeRequest struct {
	Email     string `json:"email" validate:"notblank,emailfmt,max=255"`
	FirstName string `json:"first_name" validate:"notblank,max=100"`
	LastName  string `json:"last_name" validate:"notblank,max=100"`
	Role      string `json:"role" validate:"required,oneof=admin manager"`
}

type UpdateEmployeeRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Role      *string `json:"role,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password"`
	ConfirmPassword string `json:"confirm_password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"notblank,emailfmt"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"notblank,emailfmt"`
	OTP      string `json:"otp" validate:"required"`
	Password string `json:"new_password" validate:"required,password"`
}

func (v *Validator) Login(req LoginRequest) domain.FieldErrors {
	errs := domain.FieldErrors{}
	v.structInto(errs, req)
	return errs
}

func (v *Validator) Employee(req CreateEmployeeRequest) domain.FieldErrors {
	errs := domain.FieldErrors{}
	v.structInto(errs, req)
	return errs
}

func (v *Validator) EmployeeUpdate(req UpdateEmployeeRequest) domain.FieldErrors {
	errs := domain.FieldErrors{}
	if req.FirstName != nil {
		v.varInto(errs, "first_name", *req.FirstName, "notblank,max=100")
	}
	if req.LastName != nil {
		v.varInto(errs, "last_name", *req.LastName, "notblank,max=100")
	}
	if req.Email != nil {
		v.varInto(errs, "email", *req.Email, "notblank,emailfmt,max=255")
	}
	if req.Role != nil {
		v.varInto(errs, "role", *req.Role, "required,oneof=admin manager")
	}
	return errs
}

func (v *Validator) PasswordChange(req ChangePasswordRequest) domain.FieldErrors {
	errs := domain.FieldErrors{}
	v.structInto(errs, req)
	if _, failed := errs["new_password"]; !failed && req.NewPassword != req.ConfirmPassword {
		errs.Add("confirm_password", msgPasswordMismatch)
	}
	return errs
}

func (v *Validator) PasswordReset(req ResetPasswordRequest) domain.FieldErrors {
	errs := domain.FieldErrors{}
	v.structInto(errs, req)
	return errs
}

func (v *Validator) ForgotPassword(req ForgotPasswordRequest) domain.FieldErrors {
	errs := domain.FieldErrors{}
	v.structInto(errs, req)
	return errs
}
