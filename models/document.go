package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"
)

// JSONMap type for JSONB fields
type JSONMap map[string]interface{}

// Scan implements sql.Scanner interface for JSONMap
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONMap)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Value implements driver.Valuer interface for JSONMap
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	return json.Marshal(j)
}

// Document is one stored record in the document store. Records are addressed
// by a slash-separated path of alternating collection and id segments, e.g.
// "reports/abc123" or "rooms/Room 12/students/uid9/reports/abc123".
type Document struct {
	Path       string  `gorm:"primaryKey;size:512" json:"path"`
	DocID      string  `gorm:"size:255;index" json:"id"`
	Collection string  `gorm:"size:255;index" json:"collection"` // leaf collection name
	Parent     string  `gorm:"size:512;index" json:"parent"`     // full collection path
	Fields     JSONMap `gorm:"type:jsonb" json:"fields"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Document) TableName() string {
	return "documents"
}

// SplitDocPath breaks "a/b/c/d" into the collection path "a/b/c" and id "d".
// Returns empty strings for a path that is not a document path (odd segments).
func SplitDocPath(path string) (parent, id string) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 || len(segments)%2 != 0 {
		return "", ""
	}
	return strings.Join(segments[:len(segments)-1], "/"), segments[len(segments)-1]
}

// LeafCollection returns the collection name a collection path ends in,
// e.g. "reports" for "rooms/Room 12/students/uid9/reports".
func LeafCollection(parent string) string {
	segments := strings.Split(strings.Trim(parent, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// FieldString reads a string field, tolerating absent or mistyped values.
func (j JSONMap) FieldString(key string) string {
	if j == nil {
		return ""
	}
	if s, ok := j[key].(string); ok {
		return s
	}
	return ""
}

// FieldBool reads a boolean field; legacy records sometimes store "true" as text.
func (j JSONMap) FieldBool(key string) bool {
	if j == nil {
		return false
	}
	switch v := j[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	}
	return false
}

// FieldStrings reads a string-array field. A nil result means the field was
// absent (or not an array) on the raw record; an empty non-nil slice means
// the field was present but empty. Callers rely on that distinction for
// legacy schema fallbacks.
func (j JSONMap) FieldStrings(key string) []string {
	if j == nil {
		return nil
	}
	raw, ok := j[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// FieldTime reads a timestamp field. Stored values arrive in several shapes:
// native time.Time from in-process writes, RFC3339 text after a JSONB round
// trip, unix seconds, or the legacy {"seconds": n} object.
func (j JSONMap) FieldTime(key string) time.Time {
	if j == nil {
		return time.Time{}
	}
	switch v := j[key].(type) {
	case time.Time:
		return v
	case *time.Time:
		if v != nil {
			return *v
		}
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	case float64:
		return time.Unix(int64(v), 0)
	case map[string]interface{}:
		if secs, ok := v["seconds"].(float64); ok {
			return time.Unix(int64(secs), 0)
		}
	}
	return time.Time{}
}

// FieldMap reads a nested object field.
func (j JSONMap) FieldMap(key string) JSONMap {
	if j == nil {
		return nil
	}
	switch v := j[key].(type) {
	case JSONMap:
		return v
	case map[string]interface{}:
		return JSONMap(v)
	}
	return nil
}
