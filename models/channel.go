package models

import (
	"time"

	"gorm.io/gorm"
)

// Channel represents a named message topic. Channels are created lazily on
// first reference and never deleted except by administrative purge.
//
// MessageCount is approximate bookkeeping: it is bumped by a second write
// after each message insert/delete and can transiently lag. The stats view
// recomputes the real count from the messages table.
type Channel struct {
	ID           uint           `gorm:"primaryKey" json:"-"`
	Channel      string         `gorm:"uniqueIndex;not null" json:"channel"`
	ChannelID    string         `gorm:"not null" json:"channel_id"`
	MessageCount int64          `gorm:"not null;default:0" json:"message_count"`
	LastActivity time.Time      `json:"last_activity"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"-"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Channel model
func (Channel) TableName() string {
	return "channels"
}
