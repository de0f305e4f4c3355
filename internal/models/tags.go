package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

const tagSeparator = ","

// Tags is an ordered list of short labels. Order and duplicates are kept as
// entered. Persisted as a comma-joined string.
type Tags []string

// ParseTags splits a comma-joined list, dropping blank entries. The result
// is never nil.
func ParseTags(s string) Tags {
	tags := Tags{}
	for _, part := range strings.Split(s, tagSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

func (t Tags) Contains(tag string) bool {
	for _, candidate := range t {
		if candidate == tag {
			return true
		}
	}
	return false
}

func (t Tags) String() string {
	return strings.Join(t, tagSeparator)
}

// Normalize trims every tag and drops blanks. The result is never nil.
func (t Tags) Normalize() Tags {
	out := make(Tags, 0, len(t))
	for _, tag := range t {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func (t Tags) Value() (driver.Value, error) {
	return t.String(), nil
}

func (t *Tags) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = Tags{}
	case string:
		*t = ParseTags(v)
	case []byte:
		*t = ParseTags(string(v))
	default:
		return fmt.Errorf("unsupported tags type %T", value)
	}
	return nil
}

func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

func (Tags) GormDataType() string {
	return "text"
}
