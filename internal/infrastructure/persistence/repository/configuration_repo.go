package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/docuflow/docuflow/internal/apperr"
	"github.com/docuflow/docuflow/internal/application/port"
	"go.uber.org/zap"
)

// ConfigurationRepository implements port.ConfigurationRepository
type ConfigurationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewConfigurationRepository creates a new configuration repository
func NewConfigurationRepository(db *sql.DB, logger *zap.Logger) port.ConfigurationRepository {
	return &ConfigurationRepository{
		db:     db,
		logger: logger,
	}
}

// GetBool returns the boolean value stored under key. Missing keys and
// unparsable values are errors; callers decide the fallback.
func (r *ConfigurationRepository) GetBool(ctx context.Context, key string) (bool, error) {
	query := `SELECT value FROM configurations WHERE key = ?`

	var value string
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, apperr.NotFound("configuration key %q not found", key)
	}
	if err != nil {
		r.logger.Error("Failed to get configuration", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("failed to get configuration: %w", err)
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("configuration %q is not a boolean: %w", key, err)
	}
	return parsed, nil
}

// Verify interface compliance
var _ port.ConfigurationRepository = (*ConfigurationRepository)(nil)
