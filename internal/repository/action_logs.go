package repository

import (
	"context"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"github.com/google/uuid"
)

func (r *Repository) CreateActionLog(ctx context.Context, log *domain.ActionLog) error {
	query := `
		INSERT INTO action_logs (id, entity_type, entity_id, action_type, performed_by, changes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING timestamp
	`

	if log.ID == "" {
		log.ID = uuid.NewString()
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var changes any
	if len(log.Changes) > 0 {
		changes = []byte(log.Changes)
	}

	args := []any{log.ID, log.EntityType, log.EntityID, log.ActionType, log.PerformedBy, changes}
	return r.dbpool.QueryRowContext(ctx, query, args...).Scan(&log.Timestamp)
}

func (r *Repository) ListActionLogs(ctx context.Context, entityType domain.EntityType, entityID string) ([]domain.ActionLog, error) {
	query := `
		SELECT id, entity_type, entity_id, action_type, COALESCE(performed_by::text, ''), changes, timestamp
		FROM action_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY timestamp DESC
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.ActionLog, 0)
	for rows.Next() {
		var (
			log     domain.ActionLog
			changes []byte
		)
		if err := rows.Scan(&log.ID, &log.EntityType, &log.EntityID, &log.ActionType, &log.PerformedBy, &changes, &log.Timestamp); err != nil {
			return nil, err
		}
		if len(changes) > 0 {
			log.Changes = changes
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}
