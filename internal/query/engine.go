package query

import (
	"slices"
	"strings"

	"task-tracker/backend/internal/models"
)

// Apply filters tasks by status and tag, then sorts them by the active key.
// The input slice is left untouched; the result is a fresh slice.
//
// Ordering is stable in both directions: tasks that compare equal keep their
// input order.
func Apply(tasks []models.Task, state State) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	statusName := statusFilterName(state.StatusFilter)
	for _, task := range tasks {
		if state.StatusFilter != All && !strings.EqualFold(string(task.Status), statusName) {
			continue
		}
		if state.TagFilter != All && !task.HasTag(state.TagFilter) {
			continue
		}
		out = append(out, task)
	}

	switch state.SortKey {
	case SortByName:
		slices.SortStableFunc(out, directed(state.NameAscending, compareTitles))
	default:
		slices.SortStableFunc(out, directed(state.DeadlineAscending, compareDeadlines))
	}

	return out
}

// statusFilterName turns a display label such as "In Progress" into the
// enumerated form IN_PROGRESS.
func statusFilterName(label string) string {
	return strings.ToUpper(strings.ReplaceAll(label, " ", "_"))
}

func compareTitles(a, b models.Task) int {
	return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
}

func compareDeadlines(a, b models.Task) int {
	return a.DueDate.Compare(b.DueDate)
}

func directed(ascending bool, cmp func(a, b models.Task) int) func(a, b models.Task) int {
	if ascending {
		return cmp
	}
	return func(a, b models.Task) int { return cmp(b, a) }
}
