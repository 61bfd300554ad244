package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rtdacademy/rtd-connect-api/internal/models"
)

const upsertSettingQuery = `INSERT INTO system_settings (key, value, type, description, updated_by, updated_at)
VALUES (:key, :value, :type, :description, :updated_by, :updated_at)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type, description = EXCLUDED.description,
              updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`

// ConfigurationRepository persists operator overrides for runtime settings.
type ConfigurationRepository struct {
	db *sqlx.DB
}

// NewConfigurationRepository constructs the repository.
func NewConfigurationRepository(db *sqlx.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

// ListByKeys returns the stored settings whose key is in keys.
func (r *ConfigurationRepository) ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT key, value, type, description, updated_by, updated_at
FROM system_settings WHERE key IN (%s) ORDER BY key ASC`, placeholders(len(keys)))
	args := make([]interface{}, len(keys))
	for i, key := range keys {
		args[i] = key
	}
	var settings []models.Configuration
	if err := r.db.SelectContext(ctx, &settings, query, args...); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// Get fetches one setting; sql.ErrNoRows means no override is stored.
func (r *ConfigurationRepository) Get(ctx context.Context, key string) (*models.Configuration, error) {
	const query = `SELECT key, value, type, description, updated_by, updated_at FROM system_settings WHERE key = $1`
	var setting models.Configuration
	if err := r.db.GetContext(ctx, &setting, query, key); err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert stores an override.
func (r *ConfigurationRepository) Upsert(ctx context.Context, setting *models.Configuration) error {
	setting.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, upsertSettingQuery, setting); err != nil {
		return fmt.Errorf("upsert setting %s: %w", setting.Key, err)
	}
	return nil
}

// BulkUpsert stores several overrides atomically.
func (r *ConfigurationRepository) BulkUpsert(ctx context.Context, settings []models.Configuration) error {
	if len(settings) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings tx: %w", err)
	}
	now := time.Now().UTC()
	for i := range settings {
		settings[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, upsertSettingQuery, settings[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bulk upsert setting %s: %w", settings[i].Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings tx: %w", err)
	}
	return nil
}

// Delete drops an override so the environment default applies again.
func (r *ConfigurationRepository) Delete(ctx context.Context, key string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM system_settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
