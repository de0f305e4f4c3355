package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a task. Only the three constants below are
// valid; every string conversion goes through ParseStatus.
type Status string

const (
	StatusBacklog    Status = "BACKLOG"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusBacklog, StatusInProgress, StatusDone}

// ParseStatus maps a persisted or user supplied value onto a Status.
// Unrecognised input falls back to StatusBacklog; ok reports whether the
// value named a real status.
func ParseStatus(s string) (status Status, ok bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusBacklog:
		return StatusBacklog, true
	case StatusInProgress:
		return StatusInProgress, true
	case StatusDone:
		return StatusDone, true
	default:
		return StatusBacklog, false
	}
}

// StatusOrBacklog is ParseStatus without the ok flag.
func StatusOrBacklog(s string) Status {
	status, _ := ParseStatus(s)
	return status
}

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func (s Status) Value() (driver.Value, error) {
	return string(StatusOrBacklog(string(s))), nil
}

func (s *Status) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = StatusBacklog
	case string:
		*s = StatusOrBacklog(v)
	case []byte:
		*s = StatusOrBacklog(string(v))
	default:
		return fmt.Errorf("unsupported status type %T", value)
	}
	return nil
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = StatusOrBacklog(raw)
	return nil
}
