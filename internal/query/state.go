package query

import (
	"strings"
)

// All is the neutral value for both filters.
const All = "All"

type SortKey string

const (
	SortByName     SortKey = "Name"
	SortByDeadline SortKey = "Deadline"
)

// ParseSortKey maps user input onto a SortKey. Anything other than "name"
// (any case) is treated as Deadline, the default ordering.
func ParseSortKey(s string) SortKey {
	if strings.EqualFold(strings.TrimSpace(s), string(SortByName)) {
		return SortByName
	}
	return SortByDeadline
}

// State is the transient filter and sort selection for one task list view.
// Each sort key carries its own direction so switching keys does not lose
// the other key's direction.
type State struct {
	StatusFilter      string  `json:"status"`
	TagFilter         string  `json:"tag"`
	SortKey           SortKey `json:"sort"`
	NameAscending     bool    `json:"name_asc"`
	DeadlineAscending bool    `json:"deadline_asc"`
}

func DefaultState() State {
	return State{
		StatusFilter:      All,
		TagFilter:         All,
		SortKey:           SortByDeadline,
		NameAscending:     true,
		DeadlineAscending: true,
	}
}

// Select returns the state after the user picks a sort key. Picking the
// active key flips its direction; picking the other key only switches keys.
func Select(prev State, key SortKey) State {
	key = ParseSortKey(string(key))
	next := prev
	if ParseSortKey(string(prev.SortKey)) != key {
		next.SortKey = key
		return next
	}

	next.SortKey = key
	switch key {
	case SortByName:
		next.NameAscending = !prev.NameAscending
	default:
		next.DeadlineAscending = !prev.DeadlineAscending
	}
	return next
}

// WithStatus returns a copy of s filtering on the given status label. An
// empty label resets the filter.
func (s State) WithStatus(label string) State {
	if strings.TrimSpace(label) == "" {
		label = All
	}
	s.StatusFilter = label
	return s
}

// WithTag returns a copy of s filtering on the given tag. An empty tag
// resets the filter.
func (s State) WithTag(tag string) State {
	if tag == "" {
		tag = All
	}
	s.TagFilter = tag
	return s
}

// Ascending reports the direction of the active sort key.
func (s State) Ascending() bool {
	if ParseSortKey(string(s.SortKey)) == SortByName {
		return s.NameAscending
	}
	return s.DeadlineAscending
}

// IsFiltered reports whether either filter narrows the list.
func (s State) IsFiltered() bool {
	return s.StatusFilter != All || s.TagFilter != All
}
