package repository

import (
	"time"

	"github.com/damoang/angple-chat/internal/domain"
	"gorm.io/gorm"
)

// ParticipantRepository participant data access interface
type ParticipantRepository interface {
	Find(conversationID, userID string) (*domain.Participant, error)
	ListByConversation(conversationID string) ([]*domain.Participant, error)
	CreateWithCount(p *domain.Participant) error
	DeleteWithCount(conversationID, userID string) error
	DeleteByConversation(conversationID string) error
	SetBanned(conversationID, userID string, banned bool) error
	SetMuted(conversationID, userID string, muted bool) error
	SetLastReadAt(conversationID, userID string, at time.Time) error
}

type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository creates a new ParticipantRepository
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

// Find returns the participant row, banned or not. Callers that need
// "live" semantics check IsBanned themselves.
func (r *participantRepository) Find(conversationID, userID string) (*domain.Participant, error) {
	var p domain.Participant
	err := r.db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByConversation returns all participant rows for a conversation
func (r *participantRepository) ListByConversation(conversationID string) ([]*domain.Participant, error) {
	var participants []*domain.Participant
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}

// CreateWithCount inserts a participant and bumps member_count in one
// transaction, keeping the counter equal to the row count.
func (r *participantRepository) CreateWithCount(p *domain.Participant) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Conversation{}).
			Where("id = ?", p.ConversationID).
			UpdateColumn("member_count", gorm.Expr("member_count + 1")).Error
	})
}

// DeleteWithCount removes a participant and decrements member_count atomically
func (r *participantRepository) DeleteWithCount(conversationID, userID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			Delete(&domain.Participant{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&domain.Conversation{}).
			Where("id = ?", conversationID).
			UpdateColumn("member_count", gorm.Expr("member_count - 1")).Error
	})
}

// DeleteByConversation removes all participant rows (cascade path)
func (r *participantRepository) DeleteByConversation(conversationID string) error {
	return r.db.Where("conversation_id = ?", conversationID).Delete(&domain.Participant{}).Error
}

// SetBanned flips the ban flag. Ban is not removal: the row stays.
func (r *participantRepository) SetBanned(conversationID, userID string, banned bool) error {
	return r.updateFlag(conversationID, userID, "is_banned", banned)
}

// SetMuted flips the per-user mute flag
func (r *participantRepository) SetMuted(conversationID, userID string, muted bool) error {
	return r.updateFlag(conversationID, userID, "is_muted", muted)
}

// SetLastReadAt advances the read marker
func (r *participantRepository) SetLastReadAt(conversationID, userID string, at time.Time) error {
	result := r.db.Model(&domain.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("last_read_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *participantRepository) updateFlag(conversationID, userID, column string, value bool) error {
	result := r.db.Model(&domain.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
