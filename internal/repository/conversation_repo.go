package repository

import (
	"github.com/damoang/angple-chat/internal/domain"
	"gorm.io/gorm"
)

// ConversationRepository conversation data access interface
type ConversationRepository interface {
	CreateWithParticipants(conv *domain.Conversation, participants []*domain.Participant) error
	FindByID(id string) (*domain.Conversation, error)
	FindDirectByMembers(userA, userB string) (*domain.Conversation, error)
	FindRecentForUser(userID string, limit int) ([]*domain.Conversation, error)
	UpdateFields(id string, fields map[string]interface{}) error
	Delete(id string) error
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// CreateWithParticipants persists a conversation and its full participant
// set in one transaction. A conversation is never visible with fewer than
// all of its initial participants.
func (r *conversationRepository) CreateWithParticipants(conv *domain.Conversation, participants []*domain.Participant) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		for _, p := range participants {
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID finds a conversation by ID
func (r *conversationRepository) FindByID(id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.Where("id = ?", id).First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindDirectByMembers finds the direct conversation both users are live
// participants of. This is the correctness backstop behind the pair-index
// cache: membership rows are the source of truth.
func (r *conversationRepository) FindDirectByMembers(userA, userB string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.
		Joins("JOIN chat_participants pa ON pa.conversation_id = chat_conversations.id AND pa.user_id = ? AND pa.is_banned = ?", userA, false).
		Joins("JOIN chat_participants pb ON pb.conversation_id = chat_conversations.id AND pb.user_id = ? AND pb.is_banned = ?", userB, false).
		Where("chat_conversations.type = ?", domain.ConversationDirect).
		Order("chat_conversations.created_at DESC").
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindRecentForUser returns the caller's conversations ordered by recent
// activity. The limit caps a single request's scan cost.
func (r *conversationRepository) FindRecentForUser(userID string, limit int) ([]*domain.Conversation, error) {
	var convs []*domain.Conversation
	err := r.db.
		Joins("JOIN chat_participants p ON p.conversation_id = chat_conversations.id AND p.user_id = ? AND p.is_banned = ?", userID, false).
		Order("chat_conversations.last_message_at DESC, chat_conversations.id DESC").
		Limit(limit).
		Find(&convs).Error
	return convs, err
}

// UpdateFields applies a partial update
func (r *conversationRepository) UpdateFields(id string, fields map[string]interface{}) error {
	result := r.db.Model(&domain.Conversation{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the conversation row. The cascade engine calls this last,
// after dependent records are gone.
func (r *conversationRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&domain.Conversation{}).Error
}
