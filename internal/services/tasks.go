package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"task-tracker/backend/internal/flatfile"
	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/query"
	"task-tracker/backend/internal/repositories"
)

// TaskInput is the caller-supplied part of a task. Date is YYYY-MM-DD; an
// empty Status means BACKLOG on create and "unchanged" on update.
type TaskInput struct {
	Title  string   `json:"title"`
	Date   string   `json:"date"`
	Tags   []string `json:"tags"`
	Status string   `json:"status"`
}

type Summary struct {
	Total         int64                   `json:"total"`
	ByStatus      map[models.Status]int64 `json:"by_status"`
	Tags          []string                `json:"tags"`
	StatusOptions []string                `json:"status_options"`
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type TaskService interface {
	// All returns the user's unfiltered task set.
	All(ctx context.Context, userID uint) ([]models.Task, error)
	List(ctx context.Context, userID uint, state query.State) ([]models.Task, error)
	Get(ctx context.Context, userID, id uint) (*models.Task, error)
	Create(ctx context.Context, userID uint, input TaskInput) (*models.Task, error)
	Update(ctx context.Context, userID, id uint, input TaskInput) (*models.Task, error)
	SetStatus(ctx context.Context, userID, id uint, status string) (*models.Task, error)
	Delete(ctx context.Context, userID, id uint) error
	Summary(ctx context.Context, userID uint) (*Summary, error)
	Export(ctx context.Context, userID uint, w io.Writer) (int, error)
	Import(ctx context.Context, userID uint, r io.Reader, replace bool) (*ImportResult, error)
	// ImportTasks stores tasks that were already decoded, e.g. by
	// flatfile.ReadFile.
	ImportTasks(ctx context.Context, userID uint, decoded *flatfile.Result, replace bool) (*ImportResult, error)
}

type TaskServiceImpl struct {
	store  repositories.TaskStore
	logger zerolog.Logger
}

func NewTaskService(store repositories.TaskStore, logger zerolog.Logger) *TaskServiceImpl {
	return &TaskServiceImpl{
		store:  store,
		logger: logger.With().Str("component", "tasks").Logger(),
	}
}

func (s *TaskServiceImpl) All(ctx context.Context, userID uint) ([]models.Task, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *TaskServiceImpl) List(ctx context.Context, userID uint, state query.State) ([]models.Task, error) {
	tasks, err := s.All(ctx, userID)
	if err != nil {
		return nil, err
	}
	return query.Apply(tasks, state), nil
}

func (s *TaskServiceImpl) Get(ctx context.Context, userID, id uint) (*models.Task, error) {
	task, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (s *TaskServiceImpl) Create(ctx context.Context, userID uint, input TaskInput) (*models.Task, error) {
	task, err := buildTask(input, models.StatusBacklog)
	if err != nil {
		return nil, err
	}

	id, err := s.store.Insert(ctx, userID, task)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Uint("user_id", userID).Uint("task_id", id).Msg("task created")
	return s.Get(ctx, userID, id)
}

func (s *TaskServiceImpl) Update(ctx context.Context, userID, id uint, input TaskInput) (*models.Task, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	task, err := buildTask(input, existing.Status)
	if err != nil {
		return nil, err
	}
	task.ID = id

	if err := s.store.Update(ctx, userID, task); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

func (s *TaskServiceImpl) SetStatus(ctx context.Context, userID, id uint, status string) (*models.Task, error) {
	parsed, ok := parseStatusInput(status)
	if !ok {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", status))
	}

	task, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if task.Status == parsed {
		return task, nil
	}

	task.Status = parsed
	if err := s.store.Update(ctx, userID, *task); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

func (s *TaskServiceImpl) Delete(ctx context.Context, userID, id uint) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, userID, id)
}

func (s *TaskServiceImpl) Summary(ctx context.Context, userID uint) (*Summary, error) {
	total, err := s.store.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byStatus := make(map[models.Status]int64, len(models.Statuses))
	for _, status := range models.Statuses {
		count, err := s.store.CountByUserAndStatus(ctx, userID, status)
		if err != nil {
			return nil, err
		}
		byStatus[status] = count
	}

	tasks, err := s.All(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Total:         total,
		ByStatus:      byStatus,
		Tags:          query.Tags(tasks),
		StatusOptions: query.StatusOptions(),
	}, nil
}

// Export writes the user's tasks in the flat-file format and returns how
// many were written.
func (s *TaskServiceImpl) Export(ctx context.Context, userID uint, w io.Writer) (int, error) {
	tasks, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := flatfile.Encode(w, tasks); err != nil {
		return 0, err
	}
	return len(tasks), nil
}

// Import reads flat-file lines and stores them for the user. Ids in the
// input are ignored; the store assigns new ones. With replace set the
// user's existing tasks are removed in the same transaction.
func (s *TaskServiceImpl) Import(ctx context.Context, userID uint, r io.Reader, replace bool) (*ImportResult, error) {
	decoded, err := flatfile.Decode(r)
	if err != nil {
		return nil, invalid("file", err.Error())
	}
	return s.ImportTasks(ctx, userID, decoded, replace)
}

func (s *TaskServiceImpl) ImportTasks(ctx context.Context, userID uint, decoded *flatfile.Result, replace bool) (*ImportResult, error) {
	var err error
	tasks := make([]models.Task, 0, len(decoded.Tasks))
	skipped := decoded.Skipped
	for _, task := range decoded.Tasks {
		if strings.TrimSpace(task.Title) == "" {
			skipped++
			continue
		}
		task.ID = 0
		tasks = append(tasks, task)
	}

	if replace {
		_, err = s.store.ReplaceAll(ctx, userID, tasks)
	} else {
		_, err = s.store.InsertMany(ctx, userID, tasks)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().Uint("user_id", userID).Int("imported", len(tasks)).Int("skipped", skipped).Bool("replace", replace).Msg("tasks imported")
	return &ImportResult{Imported: len(tasks), Skipped: skipped}, nil
}

func buildTask(input TaskInput, defaultStatus models.Status) (models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return models.Task{}, invalid("title", "title is required")
	}
	if !flatfile.ValidField(title) {
		return models.Task{}, invalid("title", "title must not contain \"|||\", a line break, or start or end with \"|\"")
	}
	if strings.TrimSpace(input.Date) == "" {
		return models.Task{}, invalid("date", "date is required")
	}
	date, err := models.ParseDate(strings.TrimSpace(input.Date))
	if err != nil {
		return models.Task{}, invalid("date", "date must be YYYY-MM-DD")
	}

	status := defaultStatus
	if strings.TrimSpace(input.Status) != "" {
		parsed, ok := parseStatusInput(input.Status)
		if !ok {
			return models.Task{}, invalid("status", fmt.Sprintf("unknown status %q", input.Status))
		}
		status = parsed
	}

	tags := models.Tags(input.Tags).Normalize()
	for _, tag := range tags {
		if strings.Contains(tag, ",") {
			return models.Task{}, invalid("tags", fmt.Sprintf("tag %q must not contain a comma", tag))
		}
		if !flatfile.ValidField(tag) {
			return models.Task{}, invalid("tags", fmt.Sprintf("tag %q must not contain \"|||\", a line break, or start or end with \"|\"", tag))
		}
	}

	return models.Task{
		Title:   title,
		DueDate: date,
		Tags:    tags,
		Status:  status,
	}, nil
}

// parseStatusInput accepts enum names and display labels ("In Progress").
func parseStatusInput(s string) (models.Status, bool) {
	return models.ParseStatus(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}
