package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ContentItem is a unit of source material handed to the AI stage
type ContentItem struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Source    string    `json:"source"`
	Score     float64   `json:"score"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentType constants
const (
	ContentTypeQuote  = "quote"
	ContentTypeFact   = "fact"
	ContentTypeStory  = "story"
	ContentTypeCustom = "custom"
)

// Metadata holds free-form provider metadata
type Metadata map[string]interface{}

// Value implements driver.Valuer for database storage
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for database retrieval
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(data, m)
}
