package domain

import (
	"encoding/json"
	"time"
)

type EntityType string

const (
	EntityCar      EntityType = "car"
	EntityOperator EntityType = "operator"
	EntityEmployee EntityType = "administrative_employee"
)

type ActionType string

const (
	ActionCreate   ActionType = "create"
	ActionUpdate   ActionType = "update"
	ActionDelete   ActionType = "delete"
	ActionAssign   ActionType = "assign"
	ActionUnassign ActionType = "unassign"
)

type ActionLog struct {
	ID          string          `json:"id"`
	EntityType  EntityType      `json:"entity_type"`
	EntityID    string          `json:"entity_id"`
	ActionType  ActionType      `json:"action_type"`
	PerformedBy string          `json:"performed_by"`
	Changes     json.RawMessage `json:"changes,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}
