package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"task-tracker/backend/internal/cache"
	"task-tracker/backend/internal/flatfile"
	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/query"
)

const DefaultTaskListTTL = 15 * time.Minute

func userTasksKey(userID uint) string {
	return fmt.Sprintf("user_tasks:%d", userID)
}

// CachedTaskService caches each user's unfiltered task set. Filtering and
// sorting always run on the loaded set, so cached entries never depend on
// the caller's view state. Every mutation drops the owner's entry.
//
// A per-user generation guards the read-through: a list loaded before an
// invalidation is returned but not written back. Writers in other
// processes are not seen; their staleness is bounded by the TTL.
type CachedTaskService struct {
	taskService TaskService
	cache       cache.Cache
	ttl         time.Duration
	logger      zerolog.Logger

	mu          sync.Mutex
	generations map[uint]uint64
}

func NewCachedTaskService(taskService TaskService, cacheInstance cache.Cache, ttl time.Duration, logger zerolog.Logger) *CachedTaskService {
	if ttl <= 0 {
		ttl = DefaultTaskListTTL
	}
	return &CachedTaskService{
		taskService: taskService,
		cache:       cacheInstance,
		ttl:         ttl,
		logger:      logger.With().Str("component", "cached_tasks").Logger(),
		generations: make(map[uint]uint64),
	}
}

func (s *CachedTaskService) All(ctx context.Context, userID uint) ([]models.Task, error) {
	key := userTasksKey(userID)

	var cached []models.Task
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn().Err(err).Str("key", key).Msg("task list cache read failed")
	}

	gen := s.generation(userID)
	tasks, err := s.taskService.All(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[userID] != gen {
		return tasks, nil
	}
	if err := s.cache.Set(ctx, key, tasks, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("task list cache write failed")
	}
	return tasks, nil
}

func (s *CachedTaskService) List(ctx context.Context, userID uint, state query.State) ([]models.Task, error) {
	tasks, err := s.All(ctx, userID)
	if err != nil {
		return nil, err
	}
	return query.Apply(tasks, state), nil
}

func (s *CachedTaskService) Get(ctx context.Context, userID, id uint) (*models.Task, error) {
	return s.taskService.Get(ctx, userID, id)
}

func (s *CachedTaskService) Create(ctx context.Context, userID uint, input TaskInput) (*models.Task, error) {
	task, err := s.taskService.Create(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return task, nil
}

func (s *CachedTaskService) Update(ctx context.Context, userID, id uint, input TaskInput) (*models.Task, error) {
	task, err := s.taskService.Update(ctx, userID, id, input)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return task, nil
}

func (s *CachedTaskService) SetStatus(ctx context.Context, userID, id uint, status string) (*models.Task, error) {
	task, err := s.taskService.SetStatus(ctx, userID, id, status)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return task, nil
}

func (s *CachedTaskService) Delete(ctx context.Context, userID, id uint) error {
	if err := s.taskService.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *CachedTaskService) Summary(ctx context.Context, userID uint) (*Summary, error) {
	return s.taskService.Summary(ctx, userID)
}

func (s *CachedTaskService) Export(ctx context.Context, userID uint, w io.Writer) (int, error) {
	return s.taskService.Export(ctx, userID, w)
}

func (s *CachedTaskService) Import(ctx context.Context, userID uint, r io.Reader, replace bool) (*ImportResult, error) {
	result, err := s.taskService.Import(ctx, userID, r, replace)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return result, nil
}

func (s *CachedTaskService) ImportTasks(ctx context.Context, userID uint, decoded *flatfile.Result, replace bool) (*ImportResult, error) {
	result, err := s.taskService.ImportTasks(ctx, userID, decoded, replace)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return result, nil
}

// Invalidate drops the cached task set for userID, e.g. after the account
// is deleted.
func (s *CachedTaskService) Invalidate(ctx context.Context, userID uint) {
	s.invalidate(ctx, userID)
}

func (s *CachedTaskService) generation(userID uint) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[userID]
}

// invalidate bumps the generation and drops the entry under the same lock
// the read-through holds while writing back.
func (s *CachedTaskService) invalidate(ctx context.Context, userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generations[userID]++
	if err := s.cache.Delete(context.WithoutCancel(ctx), userTasksKey(userID)); err != nil {
		s.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to invalidate task list cache")
	}
}

func (s *CachedTaskService) GetCacheStats() map[string]interface{} {
	return s.cache.Stats()
}
