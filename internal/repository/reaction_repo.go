package repository

import (
	"github.com/damoang/angple-chat/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository reaction data access interface
type ReactionRepository interface {
	Upsert(reaction *domain.Reaction) error
	Find(messageID, userID string) (*domain.Reaction, error)
	Delete(messageID, userID string) error
	DeleteByMessage(messageID string) error
	ListByMessage(messageID string) ([]*domain.Reaction, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new ReactionRepository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

// Upsert stores a reaction keyed by (message_id, user_id): a second add by
// the same user overwrites the value instead of duplicating the row.
func (r *reactionRepository) Upsert(reaction *domain.Reaction) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      reaction.Value,
			"created_at": reaction.CreatedAt,
		}),
	}).Create(reaction).Error
}

// Find returns the user's reaction on a message, if any
func (r *reactionRepository) Find(messageID, userID string) (*domain.Reaction, error) {
	var reaction domain.Reaction
	err := r.db.Where("message_id = ? AND user_id = ?", messageID, userID).First(&reaction).Error
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

// Delete removes the user's reaction
func (r *reactionRepository) Delete(messageID, userID string) error {
	result := r.db.Where("message_id = ? AND user_id = ?", messageID, userID).
		Delete(&domain.Reaction{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByMessage removes all reactions on a message (cascade path)
func (r *reactionRepository) DeleteByMessage(messageID string) error {
	return r.db.Where("message_id = ?", messageID).Delete(&domain.Reaction{}).Error
}

// ListByMessage returns all reactions on a message
func (r *reactionRepository) ListByMessage(messageID string) ([]*domain.Reaction, error) {
	var reactions []*domain.Reaction
	err := r.db.Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&reactions).Error
	return reactions, err
}
