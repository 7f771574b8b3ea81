package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/kiwio/print-broker-api/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Feed event operations published to subscribers of a channel.
const (
	FeedOpInsert = "insert"
	FeedOpUpdate = "update"
	FeedOpDelete = "delete"
)

// FeedEvent is the change notification published over redis whenever a
// channel's message set changes.
type FeedEvent struct {
	Op        string          `json:"op"`
	Channel   string          `json:"channel"`
	Message   *models.Message `json:"message,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
}

func feedTopic(channel string) string {
	return "feed:" + channel
}

// ChatService stores channels and messages and publishes change events.
// Message rows are the source of truth; the per-channel message_count is an
// approximation maintained with best-effort increments.
type ChatService struct {
	db  *gorm.DB
	rdb *redis.Client
}

var chatServiceInstance *ChatService

// NewChatService creates a chat service over the given collaborators
func NewChatService(db *gorm.DB, rdb *redis.Client) *ChatService {
	return &ChatService{db: db, rdb: rdb}
}

// InitChatService initializes the global chat service instance
func InitChatService(db *gorm.DB, rdb *redis.Client) *ChatService {
	chatServiceInstance = NewChatService(db, rdb)
	return chatServiceInstance
}

// GetChatService returns the initialized chat service instance
func GetChatService() *ChatService {
	return chatServiceInstance
}

// SetChatService sets the chat service instance (primarily for testing)
func SetChatService(s *ChatService) {
	chatServiceInstance = s
}

// Redis exposes the underlying client so feed listeners can subscribe on
// the same connection pool.
func (s *ChatService) Redis() *redis.Client {
	return s.rdb
}

// EnsureChannel returns the channel with the given name, creating it on
// first use. Concurrent first-use races resolve through the unique index:
// the loser re-fetches the winner's row.
func (s *ChatService) EnsureChannel(ctx context.Context, name string) (*models.Channel, error) {
	if name == "" {
		return nil, validationErr("INVALID_CHANNEL", "Channel name is required")
	}

	var channel models.Channel
	err := s.db.WithContext(ctx).Where("channel = ?", name).First(&channel).Error
	if err == nil {
		return &channel, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, upstreamErr("failed to fetch channel", err)
	}

	channel = models.Channel{
		Channel:      name,
		ChannelID:    uuid.NewString(),
		LastActivity: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.Channel
			if err := s.db.WithContext(ctx).Where("channel = ?", name).First(&existing).Error; err != nil {
				return nil, upstreamErr("failed to fetch channel after create race", err)
			}
			return &existing, nil
		}
		return nil, upstreamErr("failed to create channel", err)
	}
	return &channel, nil
}

// Send stores a message in the channel, creating the channel if needed,
// and publishes an insert event. The count and last-activity bump is
// best-effort: a failure there is logged but the send still succeeds.
func (s *ChatService) Send(ctx context.Context, channel, sender, content string, metadata models.Metadata) (*models.Message, error) {
	if content == "" {
		return nil, validationErr("EMPTY_MESSAGE", "Message content is required")
	}
	if _, err := s.EnsureChannel(ctx, channel); err != nil {
		return nil, err
	}

	msg := models.Message{
		MessageID: uuid.NewString(),
		Channel:   channel,
		TS:        time.Now().UTC(),
		Sender:    sender,
		Content:   content,
		Metadata:  metadata,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, upstreamErr("failed to store message", err)
	}

	if err := s.bumpChannel(ctx, channel, 1, msg.TS); err != nil {
		log.Printf("warning: failed to bump channel %s: %v", channel, err)
	}

	s.publish(ctx, FeedEvent{Op: FeedOpInsert, Channel: channel, Message: &msg})
	return &msg, nil
}

func (s *ChatService) bumpChannel(ctx context.Context, channel string, delta int64, activity time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Channel{}).
		Where("channel = ?", channel).
		Updates(map[string]interface{}{
			"message_count": gorm.Expr("message_count + ?", delta),
			"last_activity": activity,
		}).Error
}

// Edit replaces the content of a message in the channel. It reports whether
// a message was actually changed.
func (s *ChatService) Edit(ctx context.Context, channel, messageID, content string) (bool, error) {
	if content == "" {
		return false, validationErr("EMPTY_MESSAGE", "Message content is required")
	}

	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("channel = ? AND message_id = ?", channel, messageID).
		Updates(map[string]interface{}{
			"content":   content,
			"edited":    true,
			"edited_at": now,
		})
	if res.Error != nil {
		return false, upstreamErr("failed to edit message", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if err := s.bumpChannel(ctx, channel, 0, now); err != nil {
		log.Printf("warning: failed to bump channel %s: %v", channel, err)
	}

	var msg models.Message
	if err := s.db.WithContext(ctx).
		Where("channel = ? AND message_id = ?", channel, messageID).
		First(&msg).Error; err == nil {
		s.publish(ctx, FeedEvent{Op: FeedOpUpdate, Channel: channel, Message: &msg})
	}
	return true, nil
}

// DeleteMessage removes a message from the channel. It reports whether a
// message was actually deleted.
func (s *ChatService) DeleteMessage(ctx context.Context, channel, messageID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("channel = ? AND message_id = ?", channel, messageID).
		Delete(&models.Message{})
	if res.Error != nil {
		return false, upstreamErr("failed to delete message", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if err := s.bumpChannel(ctx, channel, -1, time.Now().UTC()); err != nil {
		log.Printf("warning: failed to bump channel %s: %v", channel, err)
	}

	s.publish(ctx, FeedEvent{Op: FeedOpDelete, Channel: channel, MessageID: messageID})
	return true, nil
}

// GetMessages returns messages from the channel, newest first by default.
func (s *ChatService) GetMessages(ctx context.Context, channel string, limit, skip int, ascending bool) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	direction := "ts DESC"
	if ascending {
		direction = "ts ASC"
	}

	var messages []models.Message
	if err := s.db.WithContext(ctx).
		Where("channel = ?", channel).
		Order(direction).
		Limit(limit).
		Offset(skip).
		Find(&messages).Error; err != nil {
		return nil, upstreamErr("failed to fetch messages", err)
	}
	return messages, nil
}

// ChannelStats is the per-channel summary returned by GetChannelStats.
// Exists is false for a channel that was never created; the other fields
// are zero in that case.
type ChannelStats struct {
	Exists       bool      `json:"exists"`
	Channel      string    `json:"channel"`
	ChannelID    string    `json:"channel_id"`
	MessageCount int64     `json:"message_count"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

// GetChannelStats returns channel metadata with an exact message count.
// An unknown channel is not an error, it reports Exists false.
func (s *ChatService) GetChannelStats(ctx context.Context, channel string) (*ChannelStats, error) {
	var ch models.Channel
	if err := s.db.WithContext(ctx).Where("channel = ?", channel).First(&ch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ChannelStats{Channel: channel}, nil
		}
		return nil, upstreamErr("failed to fetch channel", err)
	}

	// The stored counter drifts under races; recount for the stats view.
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("channel = ?", channel).
		Count(&count).Error; err != nil {
		return nil, upstreamErr("failed to count messages", err)
	}

	return &ChannelStats{
		Exists:       true,
		Channel:      ch.Channel,
		ChannelID:    ch.ChannelID,
		MessageCount: count,
		LastActivity: ch.LastActivity,
		CreatedAt:    ch.CreatedAt,
	}, nil
}

// DeleteChannel removes a channel and all its messages. Messages go first;
// if the channel delete then fails the channel is left empty but intact.
func (s *ChatService) DeleteChannel(ctx context.Context, channel string) (int64, error) {
	var ch models.Channel
	if err := s.db.WithContext(ctx).Where("channel = ?", channel).First(&ch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, notFoundErr("CHANNEL_NOT_FOUND", fmt.Sprintf("Channel %s not found", channel))
		}
		return 0, upstreamErr("failed to fetch channel", err)
	}

	// Hard delete: the unique index on the channel name must allow the
	// name to be recreated later.
	res := s.db.WithContext(ctx).Unscoped().Where("channel = ?", channel).Delete(&models.Message{})
	if res.Error != nil {
		return 0, upstreamErr("failed to delete messages", res.Error)
	}
	if err := s.db.WithContext(ctx).Unscoped().Where("channel = ?", channel).Delete(&models.Channel{}).Error; err != nil {
		return res.RowsAffected, upstreamErr("failed to delete channel", err)
	}
	return res.RowsAffected, nil
}

// publish is fire-and-forget: feed delivery is best-effort and never fails
// the write that triggered it.
func (s *ChatService) publish(ctx context.Context, event FeedEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("warning: failed to marshal feed event: %v", err)
		return
	}
	if err := s.rdb.Publish(ctx, feedTopic(event.Channel), payload).Err(); err != nil {
		log.Printf("warning: failed to publish feed event for %s: %v", event.Channel, err)
	}
}
