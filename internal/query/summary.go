package query

import (
	"sort"

	"task-tracker/backend/internal/models"
)

var statusLabels = map[models.Status]string{
	models.StatusBacklog:    "Backlog",
	models.StatusInProgress: "In Progress",
	models.StatusDone:       "Done",
}

// StatusLabel is the display label for s, e.g. "In Progress".
func StatusLabel(s models.Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return statusLabels[models.StatusBacklog]
}

// StatusOptions lists the status filter choices, All first.
func StatusOptions() []string {
	options := []string{All}
	for _, s := range models.Statuses {
		options = append(options, StatusLabel(s))
	}
	return options
}

// Tags returns the distinct tags across tasks in lexical order.
func Tags(tasks []models.Task) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, task := range tasks {
		for _, tag := range task.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}

// CountByStatus returns a count for every status, including zeros.
func CountByStatus(tasks []models.Task) map[models.Status]int {
	counts := make(map[models.Status]int, len(models.Statuses))
	for _, s := range models.Statuses {
		counts[s] = 0
	}
	for _, task := range tasks {
		counts[models.StatusOrBacklog(string(task.Status))]++
	}
	return counts
}
