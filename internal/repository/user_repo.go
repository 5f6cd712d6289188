package repository

import (
	"errors"

	"github.com/damoang/angple-chat/internal/domain"
	"gorm.io/gorm"
)

// UserRepository read-only member directory lookup. Hydration tolerates
// missing users: absent rows come back nil, never as an error.
type UserRepository interface {
	FindByID(id string) (*domain.User, error)
	FindByIDs(ids []string) (map[string]*domain.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByID returns a user or nil when the id is unknown
func (r *userRepository) FindByID(id string) (*domain.User, error) {
	var user domain.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs returns the users that exist, keyed by id
func (r *userRepository) FindByIDs(ids []string) (map[string]*domain.User, error) {
	result := make(map[string]*domain.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []*domain.User
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}
