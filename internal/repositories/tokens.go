package repositories

import (
	"context"
	"errors"
	"time"

	"task-tracker/backend/internal/models"

	"gorm.io/gorm"
)

type GormTokenStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ TokenStore = (*GormTokenStore)(nil)

func (s *GormTokenStore) Create(ctx context.Context, token *models.Token) error {
	return wrap("create token", s.db.WithContext(writeContext(ctx)).Create(token).Error)
}

// FindActive returns nil, nil for unknown or expired tokens.
func (s *GormTokenStore) FindActive(ctx context.Context, refreshToken string) (*models.Token, error) {
	var token models.Token
	err := s.db.WithContext(ctx).
		Where("refresh_token = ? AND expires_at > ?", refreshToken, s.now()).
		First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find token", err)
	}
	return &token, nil
}

func (s *GormTokenStore) Delete(ctx context.Context, refreshToken string) error {
	err := s.db.WithContext(writeContext(ctx)).
		Where("refresh_token = ?", refreshToken).
		Delete(&models.Token{}).Error
	return wrap("delete token", err)
}

func (s *GormTokenStore) DeleteExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(writeContext(ctx)).
		Where("expires_at <= ?", s.now()).
		Delete(&models.Token{})
	if result.Error != nil {
		return 0, wrap("purge tokens", result.Error)
	}
	return result.RowsAffected, nil
}
