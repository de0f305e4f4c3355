package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/repositories"
	"task-tracker/backend/internal/testutil"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type TaskStoreTestSuite struct {
	suite.Suite
	db    *gorm.DB
	store *repositories.GormTaskStore
	ctx   context.Context

	alice uint
	bob   uint
}

func (s *TaskStoreTestSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.store = repositories.NewTaskStore(s.db)
	s.ctx = context.Background()

	users := repositories.NewUserStore(s.db)
	alice := &models.User{Email: "alice@example.com", PasswordHash: "x", Name: "Alice"}
	bob := &models.User{Email: "bob@example.com", PasswordHash: "x", Name: "Bob"}
	s.Require().NoError(users.Create(s.ctx, alice))
	s.Require().NoError(users.Create(s.ctx, bob))
	s.alice, s.bob = alice.ID, bob.ID
}

func (s *TaskStoreTestSuite) newTask(title, date string, status models.Status, tags ...string) models.Task {
	return models.Task{
		Title:   title,
		DueDate: models.MustParseDate(date),
		Status:  status,
		Tags:    models.Tags(tags),
	}
}

func (s *TaskStoreTestSuite) TestInsertAssignsIDAndRoundTrips() {
	id, err := s.store.Insert(s.ctx, s.alice, s.newTask("  Write report ", "2025-04-09", models.StatusInProgress, "Work", "Work", "urgent"))
	s.Require().NoError(err)
	s.NotZero(id)

	got, err := s.store.GetByID(s.ctx, s.alice, id)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal("Write report", got.Title)
	s.Equal(s.alice, got.UserID)
	s.Equal(models.NewDate(2025, time.April, 9), got.DueDate)
	s.Equal(models.Tags{"Work", "Work", "urgent"}, got.Tags)
	s.Equal(models.StatusInProgress, got.Status)
	s.False(got.CreatedAt.IsZero())
}

func (s *TaskStoreTestSuite) TestInsertIgnoresCallerIDAndOwner() {
	task := s.newTask("Mine", "2025-01-01", models.StatusBacklog)
	task.ID = 999
	task.UserID = s.bob

	id, err := s.store.Insert(s.ctx, s.alice, task)
	s.Require().NoError(err)
	s.NotEqual(uint(999), id)

	got, err := s.store.GetByID(s.ctx, s.alice, id)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(s.alice, got.UserID)
}

func (s *TaskStoreTestSuite) TestInsertDefaultsAndEmptyTags() {
	id, err := s.store.Insert(s.ctx, s.alice, models.Task{Title: "Bare", DueDate: models.MustParseDate("2025-01-01")})
	s.Require().NoError(err)

	got, err := s.store.GetByID(s.ctx, s.alice, id)
	s.Require().NoError(err)
	s.Equal(models.StatusBacklog, got.Status)
	s.NotNil(got.Tags)
	s.Empty(got.Tags)
}

func (s *TaskStoreTestSuite) TestInsertRejectsBlankTitle() {
	_, err := s.store.Insert(s.ctx, s.alice, s.newTask("   ", "2025-01-01", models.StatusBacklog))
	s.ErrorIs(err, repositories.ErrBlankTitle)

	count, err := s.store.CountByUser(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *TaskStoreTestSuite) TestUnknownPersistedStatusReadsAsBacklog() {
	id, err := s.store.Insert(s.ctx, s.alice, s.newTask("Legacy", "2025-01-01", models.StatusDone))
	s.Require().NoError(err)
	s.Require().NoError(s.db.Exec("UPDATE tasks SET status = ? WHERE id = ?", "ARCHIVED", id).Error)

	got, err := s.store.GetByID(s.ctx, s.alice, id)
	s.Require().NoError(err)
	s.Equal(models.StatusBacklog, got.Status)
}

func (s *TaskStoreTestSuite) TestGetByIDIsOwnerScoped() {
	id, err := s.store.Insert(s.ctx, s.bob, s.newTask("Bob's", "2025-01-01", models.StatusBacklog))
	s.Require().NoError(err)

	got, err := s.store.GetByID(s.ctx, s.alice, id)
	s.NoError(err)
	s.Nil(got)

	got, err = s.store.GetByID(s.ctx, s.alice, 4242)
	s.NoError(err)
	s.Nil(got)
}

func (s *TaskStoreTestSuite) TestListByUserOnlyReturnsOwnTasks() {
	_, err := s.store.Insert(s.ctx, s.alice, s.newTask("A1", "2025-02-01", models.StatusBacklog))
	s.Require().NoError(err)
	_, err = s.store.Insert(s.ctx, s.alice, s.newTask("A2", "2025-01-01", models.StatusDone))
	s.Require().NoError(err)
	_, err = s.store.Insert(s.ctx, s.bob, s.newTask("B1", "2025-01-01", models.StatusBacklog))
	s.Require().NoError(err)

	tasks, err := s.store.ListByUser(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Len(tasks, 2)
	for _, task := range tasks {
		s.Equal(s.alice, task.UserID)
	}

	done, err := s.store.ListByUserAndStatus(s.ctx, s.alice, models.StatusDone)
	s.Require().NoError(err)
	s.Require().Len(done, 1)
	s.Equal("A2", done[0].Title)

	none, err := s.store.ListByUser(s.ctx, 12345)
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)
}

func (s *TaskStoreTestSuite) TestUpdate() {
	id, err := s.store.Insert(s.ctx, s.alice, s.newTask("Draft", "2025-01-01", models.StatusBacklog, "x"))
	s.Require().NoError(err)

	update := s.newTask("Final", "2025-03-01", models.StatusDone)
	update.ID = id
	s.Require().NoError(s.store.Update(s.ctx, s.alice, update))

	got, err := s.store.GetByID(s.ctx, s.alice, id)
	s.Require().NoError(err)
	s.Equal("Final", got.Title)
	s.Equal(models.MustParseDate("2025-03-01"), got.DueDate)
	s.Equal(models.StatusDone, got.Status)
	s.Empty(got.Tags)
}

func (s *TaskStoreTestSuite) TestUpdateForeignTaskIsSilentNoOp() {
	id, err := s.store.Insert(s.ctx, s.bob, s.newTask("Bob's", "2025-01-01", models.StatusBacklog))
	s.Require().NoError(err)

	update := s.newTask("Hijacked", "2025-01-01", models.StatusDone)
	update.ID = id
	s.NoError(s.store.Update(s.ctx, s.alice, update))

	got, err := s.store.GetByID(s.ctx, s.bob, id)
	s.Require().NoError(err)
	s.Equal("Bob's", got.Title)
	s.Equal(s.bob, got.UserID)
}

func (s *TaskStoreTestSuite) TestDeleteIsOwnerScoped() {
	id, err := s.store.Insert(s.ctx, s.bob, s.newTask("Bob's", "2025-01-01", models.StatusBacklog))
	s.Require().NoError(err)

	s.NoError(s.store.Delete(s.ctx, s.alice, id))
	got, err := s.store.GetByID(s.ctx, s.bob, id)
	s.Require().NoError(err)
	s.NotNil(got)

	s.NoError(s.store.Delete(s.ctx, s.bob, id))
	got, err = s.store.GetByID(s.ctx, s.bob, id)
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *TaskStoreTestSuite) TestIDsAreNotReusedAfterDeletingMax() {
	first, err := s.store.Insert(s.ctx, s.alice, s.newTask("one", "2025-01-01", models.StatusBacklog))
	s.Require().NoError(err)
	second, err := s.store.Insert(s.ctx, s.alice, s.newTask("two", "2025-01-01", models.StatusBacklog))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Delete(s.ctx, s.alice, second))

	third, err := s.store.Insert(s.ctx, s.alice, s.newTask("three", "2025-01-01", models.StatusBacklog))
	s.Require().NoError(err)
	s.Greater(third, first)
	s.NotEqual(second, third)
}

func (s *TaskStoreTestSuite) TestCounts() {
	for _, status := range []models.Status{models.StatusDone, models.StatusDone, models.StatusBacklog} {
		_, err := s.store.Insert(s.ctx, s.alice, s.newTask("t", "2025-01-01", status))
		s.Require().NoError(err)
	}
	_, err := s.store.Insert(s.ctx, s.bob, s.newTask("t", "2025-01-01", models.StatusDone))
	s.Require().NoError(err)

	total, err := s.store.CountByUser(s.ctx, s.alice)
	s.Require().NoError(err)
	s.EqualValues(3, total)

	done, err := s.store.CountByUserAndStatus(s.ctx, s.alice, models.StatusDone)
	s.Require().NoError(err)
	s.EqualValues(2, done)

	inProgress, err := s.store.CountByUserAndStatus(s.ctx, s.alice, models.StatusInProgress)
	s.Require().NoError(err)
	s.Zero(inProgress)
}

func (s *TaskStoreTestSuite) TestInsertManyIsAllOrNothing() {
	tasks := []models.Task{
		s.newTask("ok", "2025-01-01", models.StatusBacklog),
		s.newTask("", "2025-01-01", models.StatusBacklog),
	}

	_, err := s.store.InsertMany(s.ctx, s.alice, tasks)
	s.ErrorIs(err, repositories.ErrBlankTitle)

	count, err := s.store.CountByUser(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Zero(count)

	ids, err := s.store.InsertMany(s.ctx, s.alice, tasks[:1])
	s.Require().NoError(err)
	s.Len(ids, 1)
}

func (s *TaskStoreTestSuite) TestReplaceAllOnlyTouchesOwner() {
	_, err := s.store.Insert(s.ctx, s.alice, s.newTask("old", "2025-01-01", models.StatusBacklog))
	s.Require().NoError(err)
	_, err = s.store.Insert(s.ctx, s.bob, s.newTask("bob", "2025-01-01", models.StatusBacklog))
	s.Require().NoError(err)

	ids, err := s.store.ReplaceAll(s.ctx, s.alice, []models.Task{
		s.newTask("new 1", "2025-01-01", models.StatusDone),
		s.newTask("new 2", "2025-01-02", models.StatusBacklog),
	})
	s.Require().NoError(err)
	s.Len(ids, 2)

	tasks, err := s.store.ListByUser(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Len(tasks, 2)
	s.Equal("new 1", tasks[0].Title)

	bobCount, err := s.store.CountByUser(s.ctx, s.bob)
	s.Require().NoError(err)
	s.EqualValues(1, bobCount)
}

func (s *TaskStoreTestSuite) TestStoreErrorWrapsBackendFailure() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	s.Require().NoError(sqlDB.Close())

	_, err = s.store.ListByUser(s.ctx, s.alice)
	s.Require().Error(err)

	var storeErr *repositories.StoreError
	s.True(errors.As(err, &storeErr))
	s.Equal("list tasks", storeErr.Op)
}

func TestTaskStoreTestSuite(t *testing.T) {
	suite.Run(t, new(TaskStoreTestSuite))
}
