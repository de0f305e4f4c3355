// Package flatfile reads and writes the line-oriented task export format:
//
//	id|||title|||YYYY-MM-DD|||tag1,tag2|||STATUS
//
// One task per line. It is an interchange format, not a store backend.
package flatfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"task-tracker/backend/internal/models"
)

const (
	Delimiter  = "|||"
	fieldCount = 5
)

var ErrDelimiterInField = errors.New("field contains the record delimiter or a line break")

// Result is the outcome of decoding a stream. Malformed lines are skipped
// and counted rather than failing the whole read.
type Result struct {
	Tasks   []models.Task
	Skipped int
}

// Decode parses every well-formed line of r. Lines with the wrong field
// count, a non-numeric id, an unparseable date or an unknown status are
// skipped. Blank lines are ignored without being counted.
func Decode(r io.Reader) (*Result, error) {
	result := &Result{Tasks: []models.Task{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		task, err := DecodeLine(line)
		if err != nil {
			result.Skipped++
			continue
		}
		result.Tasks = append(result.Tasks, task)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read task lines: %w", err)
	}
	return result, nil
}

// DecodeLine parses a single record.
func DecodeLine(line string) (models.Task, error) {
	parts := strings.Split(line, Delimiter)
	if len(parts) != fieldCount {
		return models.Task{}, fmt.Errorf("expected %d fields, got %d", fieldCount, len(parts))
	}

	id, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return models.Task{}, fmt.Errorf("invalid id %q: %w", parts[0], err)
	}
	date, err := models.ParseDate(parts[2])
	if err != nil {
		return models.Task{}, err
	}
	status := models.Status(strings.TrimSpace(parts[4]))
	if !status.Valid() {
		return models.Task{}, fmt.Errorf("unknown status %q", parts[4])
	}

	return models.Task{
		ID:      uint(id),
		Title:   parts[1],
		DueDate: date,
		Tags:    models.ParseTags(parts[3]),
		Status:  status,
	}, nil
}

// Encode writes one line per task. Nothing is written if any task has a
// field that would break the framing.
func Encode(w io.Writer, tasks []models.Task) error {
	lines := make([]string, 0, len(tasks))
	for _, task := range tasks {
		line, err := EncodeLine(task)
		if err != nil {
			return fmt.Errorf("task %d: %w", task.ID, err)
		}
		lines = append(lines, line)
	}

	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func EncodeLine(task models.Task) (string, error) {
	tags := task.Tags.String()
	for _, field := range []string{task.Title, tags} {
		if breaksFraming(field) {
			return "", ErrDelimiterInField
		}
	}

	status := task.Status
	if !status.Valid() {
		status = models.StatusBacklog
	}

	return strings.Join([]string{
		strconv.FormatUint(uint64(task.ID), 10),
		task.Title,
		task.DueDate.String(),
		tags,
		status.String(),
	}, Delimiter), nil
}

// ValidField reports whether s can be written as a title or tag without
// breaking the line format.
func ValidField(s string) bool {
	return !breaksFraming(s)
}

// breaksFraming reports whether field would split differently on decode. A
// leading or trailing pipe merges with the neighbouring delimiter.
func breaksFraming(field string) bool {
	return strings.Contains(field, Delimiter) ||
		strings.ContainsAny(field, "\r\n") ||
		strings.HasPrefix(field, "|") ||
		strings.HasSuffix(field, "|")
}
