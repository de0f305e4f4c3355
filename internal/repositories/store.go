package repositories

import (
	"context"
	"errors"
	"fmt"

	"task-tracker/backend/internal/models"
)

var (
	ErrBlankTitle     = errors.New("task title must not be blank")
	ErrDuplicateEmail = errors.New("email already registered")
)

// StoreError wraps a backend failure with the operation that caused it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) || errors.Is(err, ErrBlankTitle) || errors.Is(err, ErrDuplicateEmail) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// TaskStore is the persistence contract for tasks. Every operation is
// scoped to an owner: tasks belonging to other users are never returned,
// updated or deleted.
type TaskStore interface {
	// ListByUser returns all of the owner's tasks. Callers must not rely on
	// the order.
	ListByUser(ctx context.Context, ownerID uint) ([]models.Task, error)
	ListByUserAndStatus(ctx context.Context, ownerID uint, status models.Status) ([]models.Task, error)
	// GetByID returns nil, nil when the task is missing or owned by someone
	// else.
	GetByID(ctx context.Context, ownerID, id uint) (*models.Task, error)
	Insert(ctx context.Context, ownerID uint, task models.Task) (uint, error)
	InsertMany(ctx context.Context, ownerID uint, tasks []models.Task) ([]uint, error)
	// Update is a no-op when the task does not belong to ownerID.
	Update(ctx context.Context, ownerID uint, task models.Task) error
	Delete(ctx context.Context, ownerID, id uint) error
	// ReplaceAll swaps the owner's whole task set in one transaction.
	ReplaceAll(ctx context.Context, ownerID uint, tasks []models.Task) ([]uint, error)
	CountByUser(ctx context.Context, ownerID uint) (int64, error)
	CountByUserAndStatus(ctx context.Context, ownerID uint, status models.Status) (int64, error)
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Delete(ctx context.Context, id uint) error
}

type TokenStore interface {
	Create(ctx context.Context, token *models.Token) error
	FindActive(ctx context.Context, refreshToken string) (*models.Token, error)
	Delete(ctx context.Context, refreshToken string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// writeContext keeps a write running after the caller's context is
// cancelled. Reads may be abandoned; writes complete or fail.
func writeContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
