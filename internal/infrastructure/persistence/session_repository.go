package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stocktake/backend/internal/domain/session"
	"github.com/stocktake/backend/internal/domain/shared"
	"github.com/stocktake/backend/internal/infrastructure/persistence/models"
)

// GormSessionRepository implements session.Repository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// FindByID finds a session by its ID
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*session.CountSession, error) {
	var model models.CountSessionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByShortID finds a session by its 8-character short identifier
func (r *GormSessionRepository) FindByShortID(ctx context.Context, shortID string) (*session.CountSession, error) {
	var model models.CountSessionModel
	if err := r.db.WithContext(ctx).
		Where("short_id = ?", strings.ToUpper(shortID)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAll returns sessions ordered by creation time, newest first
func (r *GormSessionRepository) FindAll(ctx context.Context, limit, offset int) ([]session.CountSession, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.CountSessionModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainSessions(rows)
}

// FindExpired returns terminal sessions that finished before the cutoff
func (r *GormSessionRepository) FindExpired(ctx context.Context, cutoff time.Time) ([]session.CountSession, error) {
	var rows []models.CountSessionModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []string{session.StatusCompleted.String(), session.StatusFailed.String()}).
		Where("updated_at < ?", cutoff).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDomainSessions(rows)
}

// Save creates or updates a session
func (r *GormSessionRepository) Save(ctx context.Context, s *session.CountSession) error {
	var model models.CountSessionModel
	if err := model.FromDomain(s); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&model).Error
}

// Delete deletes a session
func (r *GormSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CountSessionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts all sessions
func (r *GormSessionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CountSessionModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func toDomainSessions(rows []models.CountSessionModel) ([]session.CountSession, error) {
	sessions := make([]session.CountSession, 0, len(rows))
	for i := range rows {
		s, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, nil
}

// allModels lists every persistence model for schema migration.
func allModels() []any {
	return []any{
		&models.CountSessionModel{},
	}
}
