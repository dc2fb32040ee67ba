package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSON is free-form transaction metadata stored as jsonb.
type JSON map[string]interface{}

// NewJSON copies m into a JSON value, returning nil for an empty map.
func NewJSON(m map[string]interface{}) JSON {
	if len(m) == 0 {
		return nil
	}
	out := make(JSON, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported metadata column type")
	}
	return json.Unmarshal(raw, (*map[string]interface{})(j))
}
