package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"task-tracker/backend/internal/models"

	"gorm.io/gorm"
)

type GormTaskStore struct {
	db *gorm.DB
}

func NewTaskStore(db *gorm.DB) *GormTaskStore {
	return &GormTaskStore{db: db}
}

var _ TaskStore = (*GormTaskStore)(nil)

func (s *GormTaskStore) ListByUser(ctx context.Context, ownerID uint) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("date ASC").Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, wrap("list tasks", err)
	}
	return tasks, nil
}

func (s *GormTaskStore) ListByUserAndStatus(ctx context.Context, ownerID uint, status models.Status) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", ownerID, models.StatusOrBacklog(string(status))).
		Order("date ASC").Order("id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, wrap("list tasks by status", err)
	}
	return tasks, nil
}

func (s *GormTaskStore) GetByID(ctx context.Context, ownerID, id uint) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get task", err)
	}
	return &task, nil
}

func (s *GormTaskStore) Insert(ctx context.Context, ownerID uint, task models.Task) (uint, error) {
	record, err := prepare(ownerID, task)
	if err != nil {
		return 0, err
	}
	record.ID = 0
	if err := s.db.WithContext(writeContext(ctx)).Create(&record).Error; err != nil {
		return 0, wrap("insert task", err)
	}
	return record.ID, nil
}

func (s *GormTaskStore) InsertMany(ctx context.Context, ownerID uint, tasks []models.Task) ([]uint, error) {
	records, err := prepareAll(ownerID, tasks)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(records))
	err = s.db.WithContext(writeContext(ctx)).Transaction(func(tx *gorm.DB) error {
		for i := range records {
			if err := tx.Create(&records[i]).Error; err != nil {
				return err
			}
			ids = append(ids, records[i].ID)
		}
		return nil
	})
	if err != nil {
		return nil, wrap("insert tasks", err)
	}
	return ids, nil
}

func (s *GormTaskStore) Update(ctx context.Context, ownerID uint, task models.Task) error {
	record, err := prepare(ownerID, task)
	if err != nil {
		return err
	}
	record.UpdatedAt = time.Now()

	err = s.db.WithContext(writeContext(ctx)).
		Model(&models.Task{}).
		Where("id = ? AND user_id = ?", task.ID, ownerID).
		Select("title", "date", "tags", "status", "updated_at").
		Updates(&record).Error
	return wrap("update task", err)
}

func (s *GormTaskStore) Delete(ctx context.Context, ownerID, id uint) error {
	err := s.db.WithContext(writeContext(ctx)).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&models.Task{}).Error
	return wrap("delete task", err)
}

func (s *GormTaskStore) ReplaceAll(ctx context.Context, ownerID uint, tasks []models.Task) ([]uint, error) {
	records, err := prepareAll(ownerID, tasks)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(records))
	err = s.db.WithContext(writeContext(ctx)).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", ownerID).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		for i := range records {
			if err := tx.Create(&records[i]).Error; err != nil {
				return err
			}
			ids = append(ids, records[i].ID)
		}
		return nil
	})
	if err != nil {
		return nil, wrap("replace tasks", err)
	}
	return ids, nil
}

func (s *GormTaskStore) CountByUser(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("user_id = ?", ownerID).
		Count(&count).Error
	if err != nil {
		return 0, wrap("count tasks", err)
	}
	return count, nil
}

func (s *GormTaskStore) CountByUserAndStatus(ctx context.Context, ownerID uint, status models.Status) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("user_id = ? AND status = ?", ownerID, models.StatusOrBacklog(string(status))).
		Count(&count).Error
	if err != nil {
		return 0, wrap("count tasks by status", err)
	}
	return count, nil
}

// prepare normalises a task for writing and pins it to ownerID.
func prepare(ownerID uint, task models.Task) (models.Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return models.Task{}, ErrBlankTitle
	}
	task.UserID = ownerID
	task.Tags = task.Tags.Normalize()
	task.Status = models.StatusOrBacklog(string(task.Status))
	return task, nil
}

func prepareAll(ownerID uint, tasks []models.Task) ([]models.Task, error) {
	records := make([]models.Task, len(tasks))
	for i, task := range tasks {
		record, err := prepare(ownerID, task)
		if err != nil {
			return nil, err
		}
		record.ID = 0
		records[i] = record
	}
	return records, nil
}
