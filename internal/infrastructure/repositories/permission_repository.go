package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avatarctic/tabrefresh/internal/core/domain"
	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/avatarctic/tabrefresh/internal/core/ports"
	"github.com/avatarctic/tabrefresh/internal/infrastructure/db"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PermissionRepository resolves identity profiles from the Postgres permission store
type PermissionRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(database *db.Database, logger *logrus.Logger) ports.PermissionRepository {
	return &PermissionRepository{
		db:     database,
		logger: logger,
	}
}

// GetProfile returns the primary group and meta of an identity
func (r *PermissionRepository) GetProfile(ctx context.Context, id uuid.UUID) (identity.Profile, error) {
	query := `
		SELECT ig.group_name, g.weight, ig.prefix, ig.suffix
		FROM identity_groups ig
		JOIN groups g ON g.name = ig.group_name
		WHERE ig.identity_id = $1`

	var profile identity.Profile
	err := r.db.DB.GetContext(ctx, &profile, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.Profile{}, fmt.Errorf("identity %s: %w", id, domain.ErrProfileNotFound)
		}
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"identity": id}).WithError(err).Error("db: failed to get profile")
		}
		return identity.Profile{}, fmt.Errorf("failed to get profile for identity %s: %w", id, err)
	}

	return profile, nil
}

// AssignGroup sets the primary group and meta of an identity
func (r *PermissionRepository) AssignGroup(ctx context.Context, id uuid.UUID, group, prefix, suffix string) error {
	query := `
		INSERT INTO identity_groups (identity_id, group_name, prefix, suffix, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (identity_id)
		DO UPDATE SET group_name = EXCLUDED.group_name, prefix = EXCLUDED.prefix,
		              suffix = EXCLUDED.suffix, updated_at = NOW()`

	_, err := r.db.DB.ExecContext(ctx, query, id, group, prefix, suffix)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"identity": id, "group": group}).WithError(err).Error("db: failed to assign group")
		}
		return fmt.Errorf("failed to assign group %s to identity %s: %w", group, id, err)
	}

	return nil
}

// UpsertGroup creates or updates a group with its sort weight
func (r *PermissionRepository) UpsertGroup(ctx context.Context, group string, weight int) error {
	query := `
		INSERT INTO groups (name, weight)
		VALUES ($1, $2)
		ON CONFLICT (name)
		DO UPDATE SET weight = EXCLUDED.weight, updated_at = NOW()`

	_, err := r.db.DB.ExecContext(ctx, query, group, weight)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"group": group, "weight": weight}).WithError(err).Error("db: failed to upsert group")
		}
		return fmt.Errorf("failed to upsert group %s: %w", group, err)
	}

	return nil
}
