package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("not found")

// FieldErrors maps a JSON field name to a display message. Empty means valid.
type FieldErrors map[string]string

func (fe FieldErrors) Add(field, msg string) {
	if _, exists := fe[field]; !exists {
		fe[field] = msg
	}
}

func (fe FieldErrors) Valid() bool {
	return len(fe) == 0
}

// Err returns nil when there is nothing to report.
func (fe FieldErrors) Err() error {
	if fe.Valid() {
		return nil
	}
	return &ValidationError{Fields: fe}
}

type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError reports a uniqueness or state rule detected by the store.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflict(msg string) error {
	return &ConflictError{Message: msg}
}

// TransportError wraps a failure to reach the store or a broker.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

const (
	MsgOperatorHasAssignment  = "L'opérateur a déjà un véhicule attribué"
	MsgCarHasAssignment       = "Le véhicule a déjà un opérateur attribué"
	MsgCarNotActive           = "Le véhicule doit être actif pour recevoir un opérateur"
	MsgOperatorNotActive      = "L'opérateur doit être actif pour recevoir un véhicule"
	MsgAssignmentClosed       = "L'attribution est déjà terminée"
	MsgEmployeeNumberExists   = "Ce numéro d'employé existe déjà"
	MsgLicensePlateExists     = "Cette plaque d'immatriculation existe déjà"
	MsgEmployeeEmailExists    = "Cet email est déjà utilisé"
	MsgOperatorDeleteAssigned = "Impossible de supprimer un opérateur ayant un véhicule attribué"
	MsgCarStatusAssigned      = "Impossible de changer le statut d'un véhicule ayant un opérateur attribué"
	MsgCarDeleteAssigned      = "Impossible de supprimer un véhicule ayant un opérateur attribué"
	MsgRequestInFlight        = "Une requête est déjà en cours"
	MsgStaleEmployee          = "Les informations ont été modifiées entre-temps, veuillez réessayer"
)
