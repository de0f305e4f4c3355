package repositories

import (
	"context"
	"errors"
	"strings"

	"task-tracker/backend/internal/models"

	"gorm.io/gorm"
)

type GormUserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

var _ UserStore = (*GormUserStore)(nil)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)

	err := s.db.WithContext(writeContext(ctx)).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateEmail
		}
		return tx.Create(user).Error
	})
	return wrap("create user", err)
}

func (s *GormUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find user", err)
	}
	return &user, nil
}

func (s *GormUserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find user", err)
	}
	return &user, nil
}

func (s *GormUserStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", normalizeEmail(email)).
		Count(&count).Error
	if err != nil {
		return false, wrap("check email", err)
	}
	return count > 0, nil
}

// Delete removes the user with their tasks and tokens. The rows are
// deleted explicitly as well as through the foreign key cascade, so the
// result does not depend on the driver enforcing constraints.
func (s *GormUserStore) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(writeContext(ctx)).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Token{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
	return wrap("delete user", err)
}
