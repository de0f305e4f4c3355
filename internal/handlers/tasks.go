package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/query"
	"task-tracker/backend/internal/services"
)

const maxImportBytes = 5 << 20

type TaskHandler struct {
	taskService services.TaskService
	logger      zerolog.Logger
}

type TaskListResponse struct {
	Tasks []models.Task `json:"tasks"`
	Count int           `json:"count"`
	View  query.State   `json:"view"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func NewTaskHandler(taskService services.TaskService, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{taskService: taskService, logger: logger}
}

func (h *TaskHandler) userID(c *gin.Context) (uint, bool) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return 0, false
	}
	return session.UserID, true
}

func taskID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		abortWithError(c, http.StatusBadRequest, "invalid_id", "Task id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// viewState builds the filter/sort state from query parameters. select
// applies the column-toggle reducer on top of the other parameters.
func viewState(c *gin.Context) (query.State, error) {
	state := query.DefaultState().
		WithStatus(c.Query("status")).
		WithTag(c.Query("tag"))

	if sort := c.Query("sort"); sort != "" {
		state.SortKey = query.ParseSortKey(sort)
	}
	for param, flag := range map[string]*bool{
		"name_asc":     &state.NameAscending,
		"deadline_asc": &state.DeadlineAscending,
	} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return query.State{}, fmt.Errorf("%s must be a boolean", param)
		}
		*flag = value
	}
	if selected := c.Query("select"); selected != "" {
		state = query.Select(state, query.ParseSortKey(selected))
	}
	return state, nil
}

func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	state, err := viewState(c)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	tasks, err := h.taskService.List(c.Request.Context(), userID, state)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, TaskListResponse{Tasks: tasks, Count: len(tasks), View: state})
}

func (h *TaskHandler) Summary(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	summary, err := h.taskService.Summary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) Get(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, err := h.taskService.Get(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), userID, id, input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.taskService.SetStatus(c.Request.Context(), userID, id, req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Export streams the flat-file form of the user's tasks.
func (h *TaskHandler) Export(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	count, err := h.taskService.Export(c.Request.Context(), userID, &buf)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="tasks.txt"`)
	c.Header("X-Task-Count", strconv.Itoa(count))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}

// Import reads flat-file lines from the request body. replace=true swaps
// the whole task set; otherwise lines are appended.
func (h *TaskHandler) Import(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	replace, err := strconv.ParseBool(c.DefaultQuery("replace", "false"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_query", "replace must be a boolean")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Import file is too large")
			return
		}
		abortWithError(c, http.StatusBadRequest, "invalid_request", "Failed to read import body")
		return
	}

	result, err := h.taskService.Import(c.Request.Context(), userID, bytes.NewReader(body), replace)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
