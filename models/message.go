package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Metadata is a free-form key/value bag attached to a message.
type Metadata map[string]interface{}

// Value implements driver.Valuer for JSON storage
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		m = Metadata{}
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSON storage
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	return scanJSON(value, m)
}

// Message represents a message in a channel. Immutable except for content
// and the edited markers under the edit operation.
type Message struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	MessageID string         `gorm:"uniqueIndex;not null" json:"message_id"`
	Channel   string         `gorm:"not null;index:idx_channel_ts,priority:1" json:"channel"`
	TS        time.Time      `gorm:"column:ts;not null;index:idx_channel_ts,priority:2,sort:desc" json:"ts"`
	Sender    string         `gorm:"not null" json:"sender"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Metadata  Metadata       `gorm:"type:json" json:"metadata"`
	Edited    bool           `gorm:"not null;default:false" json:"edited"`
	EditedAt  *time.Time     `json:"edited_at,omitempty"`
	CreatedAt time.Time      `json:"-"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}
