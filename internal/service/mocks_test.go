package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/damoang/angple-chat/internal/common"
	"github.com/damoang/angple-chat/internal/domain"
	pkgcache "github.com/damoang/angple-chat/pkg/cache"
	pkglogger "github.com/damoang/angple-chat/pkg/logger"
	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	pkglogger.InitStructured("production")
	os.Exit(m.Run())
}

// MockConversationRepository is a mock implementation of ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) CreateWithParticipants(conv *domain.Conversation, participants []*domain.Participant) error {
	args := m.Called(conv, participants)
	return args.Error(0)
}

func (m *MockConversationRepository) FindByID(id string) (*domain.Conversation, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) FindDirectByMembers(userA, userB string) (*domain.Conversation, error) {
	args := m.Called(userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) FindRecentForUser(userID string, limit int) ([]*domain.Conversation, error) {
	args := m.Called(userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) UpdateFields(id string, fields map[string]interface{}) error {
	args := m.Called(id, fields)
	return args.Error(0)
}

func (m *MockConversationRepository) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockParticipantRepository is a mock implementation of ParticipantRepository
type MockParticipantRepository struct {
	mock.Mock
}

func (m *MockParticipantRepository) Find(conversationID, userID string) (*domain.Participant, error) {
	args := m.Called(conversationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Participant), args.Error(1)
}

func (m *MockParticipantRepository) ListByConversation(conversationID string) ([]*domain.Participant, error) {
	args := m.Called(conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Participant), args.Error(1)
}

func (m *MockParticipantRepository) CreateWithCount(p *domain.Participant) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *MockParticipantRepository) DeleteWithCount(conversationID, userID string) error {
	args := m.Called(conversationID, userID)
	return args.Error(0)
}

func (m *MockParticipantRepository) DeleteByConversation(conversationID string) error {
	args := m.Called(conversationID)
	return args.Error(0)
}

func (m *MockParticipantRepository) SetBanned(conversationID, userID string, banned bool) error {
	args := m.Called(conversationID, userID, banned)
	return args.Error(0)
}

func (m *MockParticipantRepository) SetMuted(conversationID, userID string, muted bool) error {
	args := m.Called(conversationID, userID, muted)
	return args.Error(0)
}

func (m *MockParticipantRepository) SetLastReadAt(conversationID, userID string, at time.Time) error {
	args := m.Called(conversationID, userID, at)
	return args.Error(0)
}

// MockMessageRepository is a mock implementation of MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) CreateWithConversationUpdate(msg *domain.Message, preview string) error {
	args := m.Called(msg, preview)
	return args.Error(0)
}

func (m *MockMessageRepository) FindByID(id string) (*domain.Message, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) FindByConversation(conversationID string, cursor *common.Cursor, limit int, ascending bool) ([]*domain.Message, error) {
	args := m.Called(conversationID, cursor, limit, ascending)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) FindLastVisible(conversationID string) (*domain.Message, error) {
	args := m.Called(conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) FindBatchForCascade(conversationID string, batchSize int) ([]*domain.Message, error) {
	args := m.Called(conversationID, batchSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) UpdateText(id, text string, editedAt time.Time) error {
	args := m.Called(id, text, editedAt)
	return args.Error(0)
}

func (m *MockMessageRepository) SoftDelete(id string, byMod bool, at time.Time) error {
	args := m.Called(id, byMod, at)
	return args.Error(0)
}

func (m *MockMessageRepository) HardDelete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockReactionRepository is a mock implementation of ReactionRepository
type MockReactionRepository struct {
	mock.Mock
}

func (m *MockReactionRepository) Upsert(reaction *domain.Reaction) error {
	args := m.Called(reaction)
	return args.Error(0)
}

func (m *MockReactionRepository) Find(messageID, userID string) (*domain.Reaction, error) {
	args := m.Called(messageID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reaction), args.Error(1)
}

func (m *MockReactionRepository) Delete(messageID, userID string) error {
	args := m.Called(messageID, userID)
	return args.Error(0)
}

func (m *MockReactionRepository) DeleteByMessage(messageID string) error {
	args := m.Called(messageID)
	return args.Error(0)
}

func (m *MockReactionRepository) ListByMessage(messageID string) ([]*domain.Reaction, error) {
	args := m.Called(messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Reaction), args.Error(1)
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(id string) (*domain.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByIDs(ids []string) (map[string]*domain.User, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*domain.User), args.Error(1)
}

// MockCacheService is a mock implementation of the chat cache
type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetDirectPair(ctx context.Context, userA, userB string) (string, error) {
	args := m.Called(userA, userB)
	return args.String(0), args.Error(1)
}

func (m *MockCacheService) SetDirectPair(ctx context.Context, userA, userB, conversationID string) error {
	args := m.Called(userA, userB, conversationID)
	return args.Error(0)
}

func (m *MockCacheService) DeleteDirectPair(ctx context.Context, userA, userB string) error {
	args := m.Called(userA, userB)
	return args.Error(0)
}

func (m *MockCacheService) SetTyping(ctx context.Context, conversationID, userID string, isTyping bool) error {
	args := m.Called(conversationID, userID, isTyping)
	return args.Error(0)
}

func (m *MockCacheService) TypingUsers(ctx context.Context, conversationID string) ([]string, error) {
	args := m.Called(conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCacheService) SetPresence(ctx context.Context, userID string, entry pkgcache.PresenceEntry) error {
	args := m.Called(userID, entry)
	return args.Error(0)
}

func (m *MockCacheService) GetPresence(ctx context.Context, userID string) (*pkgcache.PresenceEntry, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pkgcache.PresenceEntry), args.Error(1)
}

func (m *MockCacheService) IsAvailable() bool {
	return true
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	return nil
}

// MockBlobStore is a mock implementation of BlobStore
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Delete(ctx context.Context, key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockBlobStore) ObjectKeyFromURL(raw string) string {
	args := m.Called(raw)
	return args.String(0)
}
