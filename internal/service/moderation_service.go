package service

import (
	"context"
	"errors"

	"github.com/damoang/angple-chat/internal/common"
	"github.com/damoang/angple-chat/internal/domain"
	"github.com/damoang/angple-chat/internal/repository"
	pkgcache "github.com/damoang/angple-chat/pkg/cache"
	pkgjwt "github.com/damoang/angple-chat/pkg/jwt"
	pkglogger "github.com/damoang/angple-chat/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// cascadeBatchSize bounds one pass over a conversation's messages during deletion
const cascadeBatchSize = 200

// ModerationService lock/ban controls and the conversation deletion cascade
type ModerationService interface {
	Lock(ctx context.Context, conversationID, callerID string) error
	Unlock(ctx context.Context, conversationID, callerID string) error
	BanUser(ctx context.Context, conversationID, moderatorID, targetID string) error
	UnbanUser(ctx context.Context, conversationID, moderatorID, targetID string) error
	DeleteConversation(ctx context.Context, conversationID, callerID string) error
}

type moderationService struct {
	convRepo     repository.ConversationRepository
	partRepo     repository.ParticipantRepository
	msgRepo      repository.MessageRepository
	reactionRepo repository.ReactionRepository
	userRepo     repository.UserRepository
	cache        pkgcache.Service
	blob         BlobStore
}

// NewModerationService creates a new ModerationService
func NewModerationService(
	convRepo repository.ConversationRepository,
	partRepo repository.ParticipantRepository,
	msgRepo repository.MessageRepository,
	reactionRepo repository.ReactionRepository,
	userRepo repository.UserRepository,
	cache pkgcache.Service,
	blob BlobStore,
) ModerationService {
	return &moderationService{
		convRepo:     convRepo,
		partRepo:     partRepo,
		msgRepo:      msgRepo,
		reactionRepo: reactionRepo,
		userRepo:     userRepo,
		cache:        cache,
		blob:         blob,
	}
}

// Lock closes a conversation to non-moderator sends
func (s *moderationService) Lock(ctx context.Context, conversationID, callerID string) error {
	return s.setLocked(conversationID, callerID, true)
}

// Unlock reopens a conversation
func (s *moderationService) Unlock(ctx context.Context, conversationID, callerID string) error {
	return s.setLocked(conversationID, callerID, false)
}

func (s *moderationService) setLocked(conversationID, callerID string, locked bool) error {
	conv, err := s.findConversation(conversationID)
	if err != nil {
		return err
	}
	if err := s.requireModerator(conversationID, callerID); err != nil {
		return err
	}

	if conv.IsLocked == locked {
		if locked {
			return common.NewConflictError(common.ReasonAlreadyLocked, "conversation already locked")
		}
		return common.NewConflictError(common.ReasonNotLocked, "conversation is not locked")
	}

	if err := s.convRepo.UpdateFields(conversationID, map[string]interface{}{"is_locked": locked}); err != nil {
		return common.NewInternalError(err)
	}
	return nil
}

// BanUser flags a participant as banned. The row stays, so the ban is
// visible to moderators and reversible; the user just stops being "live".
// The owner can never be banned.
func (s *moderationService) BanUser(ctx context.Context, conversationID, moderatorID, targetID string) error {
	if _, err := s.findConversation(conversationID); err != nil {
		return err
	}
	if err := s.requireModerator(conversationID, moderatorID); err != nil {
		return err
	}

	target, err := s.partRepo.Find(conversationID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.NewNotFoundError("participant")
		}
		return common.NewInternalError(err)
	}
	if target.Role == domain.RoleOwner {
		return common.NewPermissionError(common.ReasonOwnerUnbannable, "the owner cannot be banned")
	}
	if target.IsBanned {
		return common.NewConflictError(common.ReasonAlreadyBanned, "participant already banned")
	}

	if err := s.partRepo.SetBanned(conversationID, targetID, true); err != nil {
		return common.NewInternalError(err)
	}
	return nil
}

// UnbanUser lifts a ban
func (s *moderationService) UnbanUser(ctx context.Context, conversationID, moderatorID, targetID string) error {
	if _, err := s.findConversation(conversationID); err != nil {
		return err
	}
	if err := s.requireModerator(conversationID, moderatorID); err != nil {
		return err
	}

	target, err := s.partRepo.Find(conversationID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.NewNotFoundError("participant")
		}
		return common.NewInternalError(err)
	}
	if !target.IsBanned {
		return common.NewConflictError(common.ReasonNotBanned, "participant is not banned")
	}

	if err := s.partRepo.SetBanned(conversationID, targetID, false); err != nil {
		return common.NewInternalError(err)
	}
	return nil
}

// DeleteConversation runs the terminal, irreversible cascade. Only the
// conversation's owner or a platform admin may run it; a moderator role is
// deliberately insufficient. Every sub-step after authorization is
// best-effort and safe to re-run; the conversation row is deleted last.
func (s *moderationService) DeleteConversation(ctx context.Context, conversationID, callerID string) error {
	conv, err := s.findConversation(conversationID)
	if err != nil {
		return err
	}

	if err := s.authorizeDeletion(conversationID, callerID); err != nil {
		return err
	}

	log := pkglogger.WithConversationID(conversationID)

	// Capture the member pair before participant rows disappear, so the
	// direct-pair cache entry can be dropped afterwards.
	var pair []string
	if conv.Type == domain.ConversationDirect {
		if participants, err := s.partRepo.ListByConversation(conversationID); err == nil {
			for _, p := range participants {
				pair = append(pair, p.UserID)
			}
		}
	}

	s.deleteMessages(ctx, conversationID, &log)

	if err := s.partRepo.DeleteByConversation(conversationID); err != nil {
		log.Warn().Err(err).Msg("cascade: participant delete failed")
	}

	if conv.Icon != "" {
		s.deleteBlob(ctx, conv.Icon, &log)
	}

	if err := s.convRepo.Delete(conversationID); err != nil {
		return common.NewInternalError(err)
	}

	if len(pair) == 2 {
		if err := s.cache.DeleteDirectPair(ctx, pair[0], pair[1]); err != nil {
			log.Warn().Err(err).Msg("cascade: direct-pair cache delete failed")
		}
	}

	log.Info().Str("deleted_by", callerID).Msg("conversation deleted")
	return nil
}

// deleteMessages removes every message with its reactions and media, in
// bounded batches. A failure on one message is logged and skipped; a batch
// that makes no progress stops the loop instead of spinning.
func (s *moderationService) deleteMessages(ctx context.Context, conversationID string, log *zerolog.Logger) {
	for {
		batch, err := s.msgRepo.FindBatchForCascade(conversationID, cascadeBatchSize)
		if err != nil {
			log.Warn().Err(err).Msg("cascade: message batch query failed")
			return
		}
		if len(batch) == 0 {
			return
		}

		deleted := 0
		for _, msg := range batch {
			if err := s.reactionRepo.DeleteByMessage(msg.ID); err != nil {
				log.Warn().Err(err).Str("message_id", msg.ID).Msg("cascade: reaction delete failed")
			}
			if msg.Media != nil && msg.Media.URL != "" {
				s.deleteBlob(ctx, msg.Media.URL, log)
			}
			if err := s.msgRepo.HardDelete(msg.ID); err != nil {
				log.Warn().Err(err).Str("message_id", msg.ID).Msg("cascade: message delete failed")
				continue
			}
			deleted++
		}

		if deleted == 0 {
			log.Warn().Int("batch_size", len(batch)).Msg("cascade: no progress in batch, stopping")
			return
		}
	}
}

// deleteBlob resolves a stored URL shape to its object key and removes the
// blob. Unresolvable or failing deletes are logged, never surfaced.
func (s *moderationService) deleteBlob(ctx context.Context, rawURL string, log *zerolog.Logger) {
	key := s.blob.ObjectKeyFromURL(rawURL)
	if key == "" {
		log.Warn().Str("url", rawURL).Msg("cascade: could not resolve object key")
		return
	}
	if err := s.blob.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cascade: blob delete failed")
	}
}

// authorizeDeletion passes for the conversation owner or a platform admin
func (s *moderationService) authorizeDeletion(conversationID, callerID string) error {
	p, err := s.partRepo.Find(conversationID, callerID)
	if err == nil && IsOwner(p) {
		return nil
	}

	user, err := s.userRepo.FindByID(callerID)
	if err != nil {
		return common.NewInternalError(err)
	}
	if user != nil && user.Level >= pkgjwt.AdminLevel {
		return nil
	}

	return common.NewPermissionError(common.ReasonNotOwner, "only the owner or a platform admin may delete a conversation")
}

func (s *moderationService) requireModerator(conversationID, callerID string) error {
	p, err := s.partRepo.Find(conversationID, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.NewPermissionError(common.ReasonNotParticipant, "not a participant")
		}
		return common.NewInternalError(err)
	}
	if !IsModerator(p) {
		return common.NewPermissionError(common.ReasonNotModerator, "moderator role required")
	}
	return nil
}

func (s *moderationService) findConversation(conversationID string) (*domain.Conversation, error) {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("conversation")
		}
		return nil, common.NewInternalError(err)
	}
	return conv, nil
}
