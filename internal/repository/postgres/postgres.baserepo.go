package postgres

import (
	"context"

	"github.com/itsatony/soundscape/hub/internal/database"
	"github.com/itsatony/soundscape/hub/internal/errors"
	"github.com/jmoiron/sqlx"
)

type PostgresBaseRepo struct {
	db database.DB
}

func (r *PostgresBaseRepo) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	rows, err := r.db.GetDB().QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to execute query", err)
	}
	return rows, nil
}
func (r *PostgresBaseRepo) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return errors.NewDatabaseError("failed to ping database", err)
	}
	return nil
}
func (r *PostgresBaseRepo) Close() error {
	if err := r.db.Close(); err != nil {
		return errors.NewDatabaseError("failed to close database", err)
	}
	return nil
}
