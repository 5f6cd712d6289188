package service

import (
	"context"
	"errors"
	"time"

	"github.com/damoang/angple-chat/internal/common"
	"github.com/damoang/angple-chat/internal/domain"
	"github.com/damoang/angple-chat/internal/repository"
	"github.com/damoang/angple-chat/internal/sanitize"
	pkglogger "github.com/damoang/angple-chat/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxMessageScanWindow caps how many messages one history request may touch
const maxMessageScanWindow = 500

// BlobStore is the storage surface the delete paths need. Satisfied by
// pkg/storage.S3Client.
type BlobStore interface {
	Delete(ctx context.Context, key string) error
	ObjectKeyFromURL(raw string) string
}

// MessageService message lifecycle and reactions
type MessageService interface {
	Send(ctx context.Context, conversationID, authorID string, req *domain.SendMessageRequest) (*domain.MessageResponse, error)
	GetMessages(ctx context.Context, conversationID, callerID, cursorToken string, pageSize int, ascending bool) ([]*domain.MessageResponse, *common.Meta, error)
	Edit(ctx context.Context, messageID, callerID, newText string) (*domain.MessageResponse, error)
	Delete(ctx context.Context, messageID, callerID string) error
	AddReaction(ctx context.Context, messageID, userID, value string) error
	RemoveReaction(ctx context.Context, messageID, userID, value string) error
	ListReactions(ctx context.Context, messageID, callerID string) ([]*domain.Reaction, error)
}

type messageService struct {
	msgRepo      repository.MessageRepository
	convRepo     repository.ConversationRepository
	partRepo     repository.ParticipantRepository
	reactionRepo repository.ReactionRepository
	userRepo     repository.UserRepository
	blob         BlobStore
}

// NewMessageService creates a new MessageService
func NewMessageService(
	msgRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	partRepo repository.ParticipantRepository,
	reactionRepo repository.ReactionRepository,
	userRepo repository.UserRepository,
	blob BlobStore,
) MessageService {
	return &messageService{
		msgRepo:      msgRepo,
		convRepo:     convRepo,
		partRepo:     partRepo,
		reactionRepo: reactionRepo,
		userRepo:     userRepo,
		blob:         blob,
	}
}

// Send validates and persists a message. The insert, the conversation's
// preview update and the author's read marker commit in one transaction.
func (s *messageService) Send(ctx context.Context, conversationID, authorID string, req *domain.SendMessageRequest) (*domain.MessageResponse, error) {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("conversation")
		}
		return nil, common.NewInternalError(err)
	}

	participant, err := s.findParticipant(conversationID, authorID)
	if err != nil {
		return nil, err
	}
	if decision := CanSendMessage(participant, conv); !decision.Allowed {
		// Moderators may post into locked conversations
		if decision.Reason == common.ReasonConversationLocked && IsModerator(participant) {
			// fall through
		} else {
			return nil, permissionFor(decision)
		}
	}

	text, preview, err := validatePayload(req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		AuthorID:       authorID,
		Type:           req.Type,
		Text:           text,
		Media:          req.Media,
		CreatedAt:      now,
	}

	if err := s.msgRepo.CreateWithConversationUpdate(msg, preview); err != nil {
		return nil, common.NewInternalError(err)
	}

	author, err := s.userRepo.FindByID(authorID)
	if err != nil {
		author = nil
	}
	return msg.ToResponse(author), nil
}

// validatePayload enforces the type contract: text messages carry
// non-empty sanitized text and no media, media messages the reverse.
func validatePayload(req *domain.SendMessageRequest) (text, preview string, err error) {
	switch req.Type {
	case domain.MessageText:
		if req.Media != nil {
			return "", "", common.NewValidationError("text message cannot carry media")
		}
		if len([]rune(req.Text)) > domain.MaxMessageLength {
			return "", "", common.NewValidationError("message exceeds 5000 characters")
		}
		text = sanitize.Sanitize(req.Text)
		if text == "" {
			return "", "", common.NewValidationReasonError(common.ReasonEmptyAfterSanitize, "message text is empty")
		}
		return text, sanitize.BuildPreview(text, domain.MaxPreviewLength), nil

	case domain.MessageImage, domain.MessageAudio:
		if req.Media == nil || req.Media.URL == "" {
			return "", "", common.NewValidationError("media descriptor is required")
		}
		if req.Text != "" {
			return "", "", common.NewValidationError("media message cannot carry text")
		}
		preview = "[image]"
		if req.Type == domain.MessageAudio {
			preview = "[audio]"
		}
		return "", preview, nil

	default:
		return "", "", common.NewValidationError("type must be text, image or audio")
	}
}

// GetMessages returns a page of visible history. Permission failures
// propagate; internal store faults degrade to an empty page because chat
// history is best-effort-available, not critical-path.
func (s *messageService) GetMessages(ctx context.Context, conversationID, callerID, cursorToken string, pageSize int, ascending bool) ([]*domain.MessageResponse, *common.Meta, error) {
	if _, err := s.convRepo.FindByID(conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, common.NewNotFoundError("conversation")
		}
		return nil, nil, common.NewInternalError(err)
	}

	caller, err := s.findParticipant(conversationID, callerID)
	if err != nil {
		return nil, nil, err
	}
	if LiveParticipant(caller) == nil {
		return nil, nil, common.NewPermissionError(common.ReasonNotParticipant, "not a participant")
	}

	pageSize = normalizePageSize(pageSize)
	limit := pageSize + 1
	if limit > maxMessageScanWindow {
		limit = maxMessageScanWindow
	}

	cursor := common.DecodeCursor(cursorToken)
	messages, err := s.msgRepo.FindByConversation(conversationID, cursor, limit, ascending)
	if err != nil {
		pkglogger.GetLogger().Error().Err(err).
			Str("conversation_id", conversationID).
			Msg("message history query failed, degrading to empty")
		return []*domain.MessageResponse{}, &common.Meta{HasMore: false, Limit: pageSize}, nil
	}

	hasMore := len(messages) > pageSize
	if hasMore {
		messages = messages[:pageSize]
	}

	authorIDs := make([]string, 0, len(messages))
	for _, m := range messages {
		authorIDs = append(authorIDs, m.AuthorID)
	}
	authors, err := s.userRepo.FindByIDs(authorIDs)
	if err != nil {
		authors = map[string]*domain.User{}
	}

	responses := make([]*domain.MessageResponse, len(messages))
	for i, m := range messages {
		responses[i] = m.ToResponse(authors[m.AuthorID])
	}

	meta := &common.Meta{HasMore: hasMore, Limit: pageSize}
	if hasMore && len(messages) > 0 {
		last := messages[len(messages)-1]
		meta.NextCursor = common.EncodeCursor(common.Cursor{Timestamp: last.CreatedAt, ID: last.ID})
	}

	return responses, meta, nil
}

// Edit rewrites a text message within the author's edit window
func (s *messageService) Edit(ctx context.Context, messageID, callerID, newText string) (*domain.MessageResponse, error) {
	msg, err := s.findMessage(messageID)
	if err != nil {
		return nil, err
	}

	if decision := CanEditMessage(callerID, msg, time.Now()); !decision.Allowed {
		return nil, decisionError(decision)
	}
	if msg.Type != domain.MessageText {
		return nil, common.NewValidationError("only text messages can be edited")
	}
	if len([]rune(newText)) > domain.MaxMessageLength {
		return nil, common.NewValidationError("message exceeds 5000 characters")
	}

	text := sanitize.Sanitize(newText)
	if text == "" {
		return nil, common.NewValidationReasonError(common.ReasonEmptyAfterSanitize, "message text is empty")
	}

	editedAt := time.Now()
	if err := s.msgRepo.UpdateText(messageID, text, editedAt); err != nil {
		return nil, common.NewInternalError(err)
	}

	msg.Text = text
	msg.EditedAt = &editedAt
	author, err := s.userRepo.FindByID(msg.AuthorID)
	if err != nil {
		author = nil
	}
	return msg.ToResponse(author), nil
}

// Delete soft-deletes a message. deleted_by_mod records whether someone
// other than the author removed it. Media blob cleanup is best-effort.
func (s *messageService) Delete(ctx context.Context, messageID, callerID string) error {
	msg, err := s.findMessage(messageID)
	if err != nil {
		return err
	}

	participant, err := s.findParticipant(msg.ConversationID, callerID)
	if err != nil {
		return err
	}
	if decision := CanDeleteMessage(callerID, msg, participant); !decision.Allowed {
		return decisionError(decision)
	}

	byMod := callerID != msg.AuthorID
	if err := s.msgRepo.SoftDelete(messageID, byMod, time.Now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Lost the race to another delete
			return common.NewConflictError(common.ReasonAlreadyDeleted, "message already deleted")
		}
		return common.NewInternalError(err)
	}

	s.cleanupMedia(ctx, msg)
	return nil
}

// cleanupMedia removes an attached blob. Failure is logged and swallowed:
// a storage outage must never fail a message delete.
func (s *messageService) cleanupMedia(ctx context.Context, msg *domain.Message) {
	if msg.Media == nil || msg.Media.URL == "" {
		return
	}
	key := s.blob.ObjectKeyFromURL(msg.Media.URL)
	if key == "" {
		pkglogger.GetLogger().Warn().
			Str("message_id", msg.ID).
			Str("url", msg.Media.URL).
			Msg("could not resolve media object key, skipping blob delete")
		return
	}
	if err := s.blob.Delete(ctx, key); err != nil {
		pkglogger.GetLogger().Warn().Err(err).
			Str("message_id", msg.ID).
			Str("key", key).
			Msg("media blob delete failed")
	}
}

// AddReaction stores or overwrites the caller's reaction on a message
func (s *messageService) AddReaction(ctx context.Context, messageID, userID, value string) error {
	if value == "" || len([]rune(value)) > domain.MaxReactionLength {
		return common.NewValidationError("reaction value must be 1-10 characters")
	}

	msg, err := s.findMessage(messageID)
	if err != nil {
		return err
	}
	if msg.IsDeleted {
		return common.NewConflictError(common.ReasonMessageDeleted, "message is deleted")
	}
	caller, err := s.findParticipant(msg.ConversationID, userID)
	if err != nil {
		return err
	}
	if LiveParticipant(caller) == nil {
		return common.NewPermissionError(common.ReasonNotParticipant, "not a participant")
	}

	reaction := &domain.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Value:     value,
		CreatedAt: time.Now(),
	}
	if err := s.reactionRepo.Upsert(reaction); err != nil {
		return common.NewInternalError(err)
	}
	return nil
}

// RemoveReaction deletes the caller's reaction, but only when the supplied
// value matches the stored one. A stale client must not remove a reaction
// the user has since changed.
func (s *messageService) RemoveReaction(ctx context.Context, messageID, userID, value string) error {
	msg, err := s.findMessage(messageID)
	if err != nil {
		return err
	}
	caller, err := s.findParticipant(msg.ConversationID, userID)
	if err != nil {
		return err
	}
	if LiveParticipant(caller) == nil {
		return common.NewPermissionError(common.ReasonNotParticipant, "not a participant")
	}

	existing, err := s.reactionRepo.Find(messageID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.NewNotFoundError("reaction")
		}
		return common.NewInternalError(err)
	}
	if existing.Value != value {
		return common.NewConflictError(common.ReasonReactionMismatch, "reaction value does not match")
	}

	if err := s.reactionRepo.Delete(messageID, userID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return common.NewInternalError(err)
	}
	return nil
}

// ListReactions returns all reactions on a message for a live participant
func (s *messageService) ListReactions(ctx context.Context, messageID, callerID string) ([]*domain.Reaction, error) {
	msg, err := s.findMessage(messageID)
	if err != nil {
		return nil, err
	}
	caller, err := s.findParticipant(msg.ConversationID, callerID)
	if err != nil {
		return nil, err
	}
	if LiveParticipant(caller) == nil {
		return nil, common.NewPermissionError(common.ReasonNotParticipant, "not a participant")
	}
	reactions, err := s.reactionRepo.ListByMessage(messageID)
	if err != nil {
		return nil, common.NewInternalError(err)
	}
	return reactions, nil
}

func (s *messageService) findMessage(messageID string) (*domain.Message, error) {
	msg, err := s.msgRepo.FindByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("message")
		}
		return nil, common.NewInternalError(err)
	}
	return msg, nil
}

// findParticipant resolves a membership row. Absence is (nil, nil); a store
// fault is an internal error, never a permission verdict.
func (s *messageService) findParticipant(conversationID, userID string) (*domain.Participant, error) {
	p, err := s.partRepo.Find(conversationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, common.NewInternalError(err)
	}
	return p, nil
}

// permissionFor maps a denied send decision to the error taxonomy
func permissionFor(d Decision) error {
	switch d.Reason {
	case common.ReasonConversationLocked:
		return common.NewPermissionError(common.ReasonConversationLocked, "conversation is locked")
	default:
		return common.NewPermissionError(common.ReasonNotParticipant, "not a participant")
	}
}

// decisionError maps a denied edit/delete decision to the error taxonomy
func decisionError(d Decision) error {
	switch d.Reason {
	case common.ReasonNotAuthor:
		return common.NewPermissionError(common.ReasonNotAuthor, "not the author")
	case common.ReasonNotModerator:
		return common.NewPermissionError(common.ReasonNotModerator, "moderator role required")
	case common.ReasonMessageDeleted:
		return common.NewConflictError(common.ReasonMessageDeleted, "message is deleted")
	case common.ReasonAlreadyDeleted:
		return common.NewConflictError(common.ReasonAlreadyDeleted, "message already deleted")
	case common.ReasonEditWindowExpired:
		return common.NewConflictError(common.ReasonEditWindowExpired, "edit window has expired")
	default:
		return common.NewPermissionError(d.Reason, "operation not permitted")
	}
}
