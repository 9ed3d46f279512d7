// File: /models/types.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// MatchedSegments stores proximity segments as a JSON column
type MatchedSegments []MatchedSegment

// Value implements driver.Valuer interface for database storage
func (ms MatchedSegments) Value() (driver.Value, error) {
	if ms == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]MatchedSegment(ms))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface for database retrieval
func (ms *MatchedSegments) Scan(value interface{}) error {
	if value == nil {
		*ms = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, ms)
	case string:
		return json.Unmarshal([]byte(v), ms)
	default:
		return fmt.Errorf("cannot scan %T into MatchedSegments", value)
	}
}

// GormDataType returns the data type for GORM
func (MatchedSegments) GormDataType() string {
	return "json"
}

// MarshalJSON implements json.Marshaler interface
func (ms MatchedSegments) MarshalJSON() ([]byte, error) {
	if ms == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]MatchedSegment(ms))
}
