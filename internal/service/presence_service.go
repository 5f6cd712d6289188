package service

import (
	"context"
	"errors"
	"time"

	"github.com/damoang/angple-chat/internal/common"
	"github.com/damoang/angple-chat/internal/domain"
	"github.com/damoang/angple-chat/internal/repository"
	pkgcache "github.com/damoang/angple-chat/pkg/cache"
	"gorm.io/gorm"
)

// PresenceService typing flags, read markers and global presence.
// Typing and presence are ephemeral redis state; only the read marker is
// durable, on the participant row.
type PresenceService interface {
	SetTyping(ctx context.Context, conversationID, userID string, isTyping bool) error
	TypingUsers(ctx context.Context, conversationID, callerID string) ([]string, error)
	MarkAsRead(ctx context.Context, conversationID, userID string, at *time.Time) error
	UpdatePresence(ctx context.Context, userID string, state domain.PresenceState) error
	GetPresence(ctx context.Context, userID string) (*domain.PresenceStatus, error)
}

type presenceService struct {
	partRepo repository.ParticipantRepository
	cache    pkgcache.Service
}

// NewPresenceService creates a new PresenceService
func NewPresenceService(partRepo repository.ParticipantRepository, cache pkgcache.Service) PresenceService {
	return &presenceService{partRepo: partRepo, cache: cache}
}

// SetTyping flips the caller's typing flag; it expires on its own
func (s *presenceService) SetTyping(ctx context.Context, conversationID, userID string, isTyping bool) error {
	if err := s.requireLiveParticipant(conversationID, userID); err != nil {
		return err
	}
	if err := s.cache.SetTyping(ctx, conversationID, userID, isTyping); err != nil {
		return common.NewInternalError(err)
	}
	return nil
}

// TypingUsers lists who is currently typing in a conversation
func (s *presenceService) TypingUsers(ctx context.Context, conversationID, callerID string) ([]string, error) {
	if err := s.requireLiveParticipant(conversationID, callerID); err != nil {
		return nil, err
	}
	users, err := s.cache.TypingUsers(ctx, conversationID)
	if err != nil {
		return nil, common.NewInternalError(err)
	}
	return users, nil
}

// MarkAsRead advances the caller's durable read marker
func (s *presenceService) MarkAsRead(ctx context.Context, conversationID, userID string, at *time.Time) error {
	if err := s.requireLiveParticipant(conversationID, userID); err != nil {
		return err
	}
	when := time.Now()
	if at != nil {
		when = *at
	}
	if err := s.partRepo.SetLastReadAt(conversationID, userID, when); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return common.NewInternalError(err)
	}
	return nil
}

// UpdatePresence sets global per-user presence with a last-seen timestamp
func (s *presenceService) UpdatePresence(ctx context.Context, userID string, state domain.PresenceState) error {
	switch state {
	case domain.PresenceOnline, domain.PresenceAway, domain.PresenceOffline:
	default:
		return common.NewValidationError("state must be online, away or offline")
	}
	entry := pkgcache.PresenceEntry{State: string(state), LastSeenAt: time.Now()}
	if err := s.cache.SetPresence(ctx, userID, entry); err != nil {
		return common.NewInternalError(err)
	}
	return nil
}

// GetPresence reads a user's presence; an expired or missing entry is offline
func (s *presenceService) GetPresence(ctx context.Context, userID string) (*domain.PresenceStatus, error) {
	entry, err := s.cache.GetPresence(ctx, userID)
	if err != nil {
		return nil, common.NewInternalError(err)
	}
	if entry == nil {
		return &domain.PresenceStatus{UserID: userID, State: domain.PresenceOffline}, nil
	}
	return &domain.PresenceStatus{
		UserID:     userID,
		State:      domain.PresenceState(entry.State),
		LastSeenAt: entry.LastSeenAt.Format(time.RFC3339),
	}, nil
}

func (s *presenceService) requireLiveParticipant(conversationID, userID string) error {
	p, err := s.partRepo.Find(conversationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.NewPermissionError(common.ReasonNotParticipant, "not a participant")
		}
		return common.NewInternalError(err)
	}
	if LiveParticipant(p) == nil {
		return common.NewPermissionError(common.ReasonNotParticipant, "not a participant")
	}
	return nil
}
