package validation

import "github.com/goldenkiwi/autoparc/backend/internal/domain"

type carRecord struct {
	LicensePlate string `json:"license_plate" validate:"notblank,plate"`
	Brand        string `json:"brand" validate:"notblank,max=100"`
	Model        string `json:"model" validate:"notblank,max=100"`
	Status       string `json:"status" validate:"required,oneof=active maintenance retired"`
}

// CarUpdate applies the creation rules to the fields that are present.
func (v *Validator) CarUpdate(req domain.UpdateCarRequest) domain.FieldErrors {
	errs := domain.FieldErrors{}
	if req.LicensePlate != nil {
		v.varInto(errs, "license_plate", *req.LicensePlate, "notblank,plate")
	}
	if req.Brand != nil {
		v.varInto(errs, "brand", *req.Brand, "notblank,max=100")
	}
	if req.Model != nil {
		v.varInto(errs, "model", *req.Model, "notblank,max=100")
	}
	if req.Status != nil {
		v.varInto(errs, "status", string(*req.Status), "required,oneof=active maintenance retired")
	}
	return errs
}

type carFilterRecord struct {
	Page   int    `json:"page" validate:"gte=1,lte=1000000"`
	Limit  int    `json:"limit" validate:"gte=1,lte=100"`
	Status string `json:"status" validate:"omitempty,oneof=active maintenance retired"`
}

// CarFilters expects f to be normalized already.
func (v *Validator) CarFilters(f domain.CarFilters) domain.FieldErrors {
	errs := domain.FieldErrors{}
	record := carFilterRecord{Page: f.Page, Limit: f.Limit}
	if f.Status != nil {
		record.Status = string(*f.Status)
	}
	v.structInto(errs, record)
	return errs
}

func (v *Validator) Car(req domain.CreateCarRequest) domain.FieldErrors {
	errs := domain.FieldErrors{}
	v.structInto(errs, carRecord{
		LicensePlate: req.LicensePlate,
		Brand:        req.Brand,
		Model:        req.Model,
		Status:       string(req.Status),
	})
	return errs
}
