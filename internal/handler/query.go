package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
)

const msgNotANumber = "Valeur numérique invalide"

func queryInt(q url.Values, name string, errs domain.FieldErrors) int {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		errs.Add(name, msgNotANumber)
		return 0
	}
	return n
}

func queryBool(q url.Values, name string, errs domain.FieldErrors) *bool {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		errs.Add(name, "Valeur booléenne invalide")
		return nil
	}
	return &b
}

// parseOperatorFilters reads the list query string. Parsing problems and
// rule violations are reported together.
func (h *Handler) parseOperatorFilters(q url.Values) (domain.OperatorFilters, domain.FieldErrors) {
	errs := domain.FieldErrors{}
	f := domain.OperatorFilters{
		Search:     strings.TrimSpace(q.Get("search")),
		Department: strings.TrimSpace(q.Get("department")),
		IsActive:   queryBool(q, "is_active", errs),
		Page:       queryInt(q, "page", errs),
		Limit:      queryInt(q, "limit", errs),
		SortBy:     q.Get("sort_by"),
		Order:      domain.SortOrder(q.Get("order")),
	}
	f.Normalize()

	for field, msg := range h.validator.OperatorFilters(f) {
		errs.Add(field, msg)
	}
	return f, errs
}

func (h *Handler) parseCarFilters(q url.Values) (domain.CarFilters, domain.FieldErrors) {
	errs := domain.FieldErrors{}
	f := domain.CarFilters{
		Search: strings.TrimSpace(q.Get("search")),
		Page:   queryInt(q, "page", errs),
		Limit:  queryInt(q, "limit", errs),
	}
	if raw := q.Get("status"); raw != "" {
		status := domain.CarStatus(raw)
		switch status {
		case domain.CarStatusActive, domain.CarStatusMaintenance, domain.CarStatusRetired:
			f.Status = &status
		default:
			errs.Add("status", "Statut invalide")
		}
	}
	f.Normalize()

	for field, msg := range h.validator.CarFilters(f) {
		errs.Add(field, msg)
	}
	return f, errs
}
