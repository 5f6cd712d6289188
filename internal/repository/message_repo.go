package repository

import (
	"time"

	"github.com/damoang/angple-chat/internal/common"
	"github.com/damoang/angple-chat/internal/domain"
	"gorm.io/gorm"
)

// MessageRepository message data access interface
type MessageRepository interface {
	CreateWithConversationUpdate(msg *domain.Message, preview string) error
	FindByID(id string) (*domain.Message, error)
	FindByConversation(conversationID string, cursor *common.Cursor, limit int, ascending bool) ([]*domain.Message, error)
	FindLastVisible(conversationID string) (*domain.Message, error)
	FindBatchForCascade(conversationID string, batchSize int) ([]*domain.Message, error)
	UpdateText(id, text string, editedAt time.Time) error
	SoftDelete(id string, byMod bool, at time.Time) error
	HardDelete(id string) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// CreateWithConversationUpdate inserts the message and updates the parent
// conversation's activity columns and the author's read marker in one
// transaction. A message never appears without its conversation preview
// reflecting it.
func (r *messageRepository) CreateWithConversationUpdate(msg *domain.Message, preview string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		if err := tx.Model(&domain.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Updates(map[string]interface{}{
				"last_message_at":      msg.CreatedAt,
				"last_message_preview": preview,
			}).Error; err != nil {
			return err
		}

		// The author has read everything up to their own message
		return tx.Model(&domain.Participant{}).
			Where("conversation_id = ? AND user_id = ?", msg.ConversationID, msg.AuthorID).
			Update("last_read_at", msg.CreatedAt).Error
	})
}

// FindByID finds a message by ID
func (r *messageRepository) FindByID(id string) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.Where("id = ?", id).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindByConversation returns a page of visible messages. Ordering is
// (created_at, id); the cursor is the exclusive boundary of the last-seen
// item. limit is the caller's page size plus lookahead, already capped.
func (r *messageRepository) FindByConversation(conversationID string, cursor *common.Cursor, limit int, ascending bool) ([]*domain.Message, error) {
	query := r.db.Where("conversation_id = ? AND is_deleted = ?", conversationID, false)

	if cursor != nil {
		if ascending {
			query = query.Where("(created_at > ?) OR (created_at = ? AND id > ?)",
				cursor.Timestamp, cursor.Timestamp, cursor.ID)
		} else {
			query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
				cursor.Timestamp, cursor.Timestamp, cursor.ID)
		}
	}

	order := "created_at DESC, id DESC"
	if ascending {
		order = "created_at ASC, id ASC"
	}

	var messages []*domain.Message
	err := query.Order(order).Limit(limit).Find(&messages).Error
	return messages, err
}

// FindLastVisible returns the newest non-deleted message, if any
func (r *messageRepository) FindLastVisible(conversationID string) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.Where("conversation_id = ? AND is_deleted = ?", conversationID, false).
		Order("created_at DESC, id DESC").
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindBatchForCascade returns message rows (including soft-deleted ones)
// for the deletion cascade, oldest first so re-runs resume where they left off
func (r *messageRepository) FindBatchForCascade(conversationID string, batchSize int) ([]*domain.Message, error) {
	var messages []*domain.Message
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Limit(batchSize).
		Find(&messages).Error
	return messages, err
}

// UpdateText applies an edit
func (r *messageRepository) UpdateText(id, text string, editedAt time.Time) error {
	result := r.db.Model(&domain.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"text":      text,
			"edited_at": editedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SoftDelete marks a message deleted. The transition is one-way.
func (r *messageRepository) SoftDelete(id string, byMod bool, at time.Time) error {
	result := r.db.Model(&domain.Message{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{
			"is_deleted":     true,
			"deleted_by_mod": byMod,
			"deleted_at":     at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// HardDelete removes the message row (cascade path only)
func (r *messageRepository) HardDelete(id string) error {
	return r.db.Where("id = ?", id).Delete(&domain.Message{}).Error
}
