package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/docuflow/docuflow/internal/application/port"
	"github.com/docuflow/docuflow/internal/domain/entity"
	"go.uber.org/zap"
)

// StatusRepository implements port.StatusRepository
type StatusRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStatusRepository creates a new status repository
func NewStatusRepository(db *sql.DB, logger *zap.Logger) port.StatusRepository {
	return &StatusRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a status by ID
func (r *StatusRepository) GetByID(ctx context.Context, id int64) (*entity.Status, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetByCode retrieves a status by code
func (r *StatusRepository) GetByCode(ctx context.Context, code string) (*entity.Status, error) {
	return r.getOne(ctx, `WHERE code = ?`, code)
}

func (r *StatusRepository) getOne(ctx context.Context, where string, arg interface{}) (*entity.Status, error) {
	query := `SELECT id, code, label FROM statuses ` + where

	var status entity.Status
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&status.ID,
		&status.Code,
		&status.Label,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get status", zap.Error(err))
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &status, nil
}

// Verify interface compliance
var _ port.StatusRepository = (*StatusRepository)(nil)
