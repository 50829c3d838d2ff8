package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/goldenkiwi/autoparc/backend/internal/config"
)

type Repository struct {
	cfg     *config.Config
	dbpool  *sql.DB
	builder sq.StatementBuilderType
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:     cfg,
		dbpool:  dbpool,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.cfg.QueryTimeout())
}
