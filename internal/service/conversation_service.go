package service

import (
	"context"
	"errors"
	"time"

	"github.com/damoang/angple-chat/internal/common"
	"github.com/damoang/angple-chat/internal/domain"
	"github.com/damoang/angple-chat/internal/repository"
	pkgcache "github.com/damoang/angple-chat/pkg/cache"
	pkglogger "github.com/damoang/angple-chat/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// maxConversationScanWindow caps how many recent conversations one
	// list request may touch
	maxConversationScanWindow = 200

	defaultPageSize = 20
	maxPageSize     = 50
)

// ConversationService conversation lifecycle and membership
type ConversationService interface {
	Create(ctx context.Context, creatorID string, req *domain.CreateConversationRequest) (*domain.ConversationResponse, error)
	Get(ctx context.Context, conversationID, callerID string) (*domain.ConversationResponse, error)
	List(ctx context.Context, callerID, cursorToken string, pageSize int) ([]*domain.ConversationResponse, *common.Meta, error)
	Join(ctx context.Context, conversationID, userID string) error
	Leave(ctx context.Context, conversationID, userID string) error
	Update(ctx context.Context, conversationID, callerID string, req *domain.UpdateConversationRequest) (*domain.ConversationResponse, error)
	ToggleMute(ctx context.Context, conversationID, userID string, muted bool) error
}

type conversationService struct {
	convRepo repository.ConversationRepository
	partRepo repository.ParticipantRepository
	msgRepo  repository.MessageRepository
	userRepo repository.UserRepository
	cache    pkgcache.Service
}

// NewConversationService creates a new ConversationService
func NewConversationService(
	convRepo repository.ConversationRepository,
	partRepo repository.ParticipantRepository,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	cache pkgcache.Service,
) ConversationService {
	return &conversationService{
		convRepo: convRepo,
		partRepo: partRepo,
		msgRepo:  msgRepo,
		userRepo: userRepo,
		cache:    cache,
	}
}

// Create validates the request and creates a conversation with its full
// participant set. Direct conversations are deduplicated: the pair-index
// cache is consulted first, then actual membership rows, and only a miss
// on both creates a new conversation.
func (s *conversationService) Create(ctx context.Context, creatorID string, req *domain.CreateConversationRequest) (*domain.ConversationResponse, error) {
	memberIDs := dedupeIDs(req.MemberIDs)

	switch req.Type {
	case domain.ConversationDirect:
		if len(memberIDs) != 2 {
			return nil, common.NewValidationError("direct conversation requires exactly 2 members")
		}
	case domain.ConversationGroup:
		if len(memberIDs) < 2 {
			return nil, common.NewValidationError("group conversation requires at least 2 members")
		}
		if req.Title == "" {
			return nil, common.NewValidationError("group conversation requires a title")
		}
		if len([]rune(req.Title)) > domain.MaxTitleLength {
			return nil, common.NewValidationError("title exceeds 80 characters")
		}
	default:
		return nil, common.NewValidationError("type must be direct or group")
	}

	if req.Type == domain.ConversationDirect {
		if existing := s.findExistingDirect(ctx, memberIDs[0], memberIDs[1]); existing != nil {
			return s.hydrate(existing, callerOf(memberIDs, creatorID))
		}
	}

	now := time.Now()
	conv := &domain.Conversation{
		ID:            uuid.NewString(),
		Type:          req.Type,
		Title:         req.Title,
		Icon:          req.Icon,
		CreatedBy:     creatorID,
		CreatedAt:     now,
		LastMessageAt: now,
		MemberCount:   len(memberIDs),
	}

	// The first supplied member is the owner; ownership is never
	// reassigned implicitly after this point.
	participants := make([]*domain.Participant, len(memberIDs))
	for i, id := range memberIDs {
		role := domain.RoleMember
		if i == 0 {
			role = domain.RoleOwner
		}
		participants[i] = &domain.Participant{
			ConversationID: conv.ID,
			UserID:         id,
			Role:           role,
			JoinedAt:       now,
		}
	}

	if err := s.convRepo.CreateWithParticipants(conv, participants); err != nil {
		return nil, common.NewInternalError(err)
	}

	if req.Type == domain.ConversationDirect {
		// Best-effort cache write: a redis fault must not fail creation
		if err := s.cache.SetDirectPair(ctx, memberIDs[0], memberIDs[1], conv.ID); err != nil {
			pkglogger.GetLogger().Warn().Err(err).
				Str("conversation_id", conv.ID).
				Msg("failed to write direct-pair cache")
		}
	}

	conv.Participants = nil
	return s.hydrate(conv, creatorID)
}

// findExistingDirect runs the dedup protocol: cache lookup with
// revalidation against live membership, then the membership-row query as
// the correctness backstop. Cache absence never means "no duplicate".
func (s *conversationService) findExistingDirect(ctx context.Context, userA, userB string) *domain.Conversation {
	log := pkglogger.GetLogger()

	cachedID, err := s.cache.GetDirectPair(ctx, userA, userB)
	if err != nil {
		log.Warn().Err(err).Msg("direct-pair cache read failed")
	}
	if cachedID != "" {
		conv, err := s.convRepo.FindByID(cachedID)
		if err == nil && conv.Type == domain.ConversationDirect &&
			s.isLiveParticipant(cachedID, userA) && s.isLiveParticipant(cachedID, userB) {
			return conv
		}
		// Stale entry: drop it and fall through to the backstop
		if err := s.cache.DeleteDirectPair(ctx, userA, userB); err != nil {
			log.Warn().Err(err).Msg("failed to drop stale direct-pair cache entry")
		}
	}

	conv, err := s.convRepo.FindDirectByMembers(userA, userB)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Msg("direct conversation lookup failed")
		}
		return nil
	}

	if err := s.cache.SetDirectPair(ctx, userA, userB, conv.ID); err != nil {
		log.Warn().Err(err).Str("conversation_id", conv.ID).
			Msg("failed to backfill direct-pair cache")
	}
	return conv
}

func (s *conversationService) isLiveParticipant(conversationID, userID string) bool {
	p, err := s.partRepo.Find(conversationID, userID)
	if err != nil {
		return false
	}
	return LiveParticipant(p) != nil
}

// Get returns the conversation with hydrated participants and its latest
// visible message. Only live participants may read it.
func (s *conversationService) Get(ctx context.Context, conversationID, callerID string) (*domain.ConversationResponse, error) {
	conv, err := s.findConversation(conversationID)
	if err != nil {
		return nil, err
	}

	if _, err := s.requireLiveParticipant(conversationID, callerID); err != nil {
		return nil, err
	}

	return s.hydrate(conv, callerID)
}

// List returns the caller's conversations by recent activity. The read is
// best-effort: internal faults degrade to an empty page, never an error.
func (s *conversationService) List(ctx context.Context, callerID, cursorToken string, pageSize int) ([]*domain.ConversationResponse, *common.Meta, error) {
	pageSize = normalizePageSize(pageSize)

	window, err := s.convRepo.FindRecentForUser(callerID, maxConversationScanWindow)
	if err != nil {
		pkglogger.GetLogger().Error().Err(err).
			Str("user_id", callerID).
			Msg("conversation list query failed, degrading to empty")
		return []*domain.ConversationResponse{}, &common.Meta{HasMore: false, Limit: pageSize}, nil
	}

	start := 0
	if cursor := common.DecodeCursor(cursorToken); cursor != nil {
		for i, c := range window {
			if c.ID == cursor.ID {
				start = i + 1
				break
			}
		}
	}

	end := start + pageSize
	if end > len(window) {
		end = len(window)
	}

	page := window[start:end]
	responses := make([]*domain.ConversationResponse, len(page))
	for i, c := range page {
		responses[i] = c.ToResponse()
	}

	meta := &common.Meta{HasMore: end < len(window), Limit: pageSize}
	if meta.HasMore && len(page) > 0 {
		last := page[len(page)-1]
		meta.NextCursor = common.EncodeCursor(common.Cursor{Timestamp: last.LastMessageAt, ID: last.ID})
	}

	return responses, meta, nil
}

// Join adds a member to a group conversation
func (s *conversationService) Join(ctx context.Context, conversationID, userID string) error {
	conv, err := s.findConversation(conversationID)
	if err != nil {
		return err
	}

	// Direct conversations hold exactly 2 participants for their lifetime
	if conv.Type == domain.ConversationDirect {
		return common.NewValidationError("cannot join a direct conversation")
	}

	if _, err := s.partRepo.Find(conversationID, userID); err == nil {
		return common.NewConflictError(common.ReasonAlreadyParticipant, "already a participant")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return common.NewInternalError(err)
	}

	p := &domain.Participant{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           domain.RoleMember,
		JoinedAt:       time.Now(),
	}
	if err := s.partRepo.CreateWithCount(p); err != nil {
		return common.NewInternalError(err)
	}
	return nil
}

// Leave removes the caller's membership. The owner cannot leave: there is
// no ownership transfer, so an owner's exit would orphan the conversation.
func (s *conversationService) Leave(ctx context.Context, conversationID, userID string) error {
	conv, err := s.findConversation(conversationID)
	if err != nil {
		return err
	}

	if conv.Type == domain.ConversationDirect {
		return common.NewValidationError("cannot leave a direct conversation")
	}

	p, err := s.partRepo.Find(conversationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.NewPermissionError(common.ReasonNotParticipant, "not a participant")
		}
		return common.NewInternalError(err)
	}
	if p.Role == domain.RoleOwner {
		return common.NewConflictError(common.ReasonOwnerCannotLeave, "owner cannot leave the conversation")
	}

	if err := s.partRepo.DeleteWithCount(conversationID, userID); err != nil {
		return common.NewInternalError(err)
	}
	return nil
}

// Update applies a moderator's partial update (title, icon, lock flag)
func (s *conversationService) Update(ctx context.Context, conversationID, callerID string, req *domain.UpdateConversationRequest) (*domain.ConversationResponse, error) {
	if _, err := s.findConversation(conversationID); err != nil {
		return nil, err
	}

	caller, err := s.requireLiveParticipant(conversationID, callerID)
	if err != nil {
		return nil, err
	}
	if !IsModerator(caller) {
		return nil, common.NewPermissionError(common.ReasonNotModerator, "moderator role required")
	}

	fields := make(map[string]interface{})
	if req.Title != nil {
		if *req.Title == "" {
			return nil, common.NewValidationError("title cannot be empty")
		}
		if len([]rune(*req.Title)) > domain.MaxTitleLength {
			return nil, common.NewValidationError("title exceeds 80 characters")
		}
		fields["title"] = *req.Title
	}
	if req.Icon != nil {
		fields["icon"] = *req.Icon
	}
	if req.IsLocked != nil {
		fields["is_locked"] = *req.IsLocked
	}
	if len(fields) == 0 {
		return nil, common.NewValidationError("no fields to update")
	}

	if err := s.convRepo.UpdateFields(conversationID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("conversation")
		}
		return nil, common.NewInternalError(err)
	}

	conv, err := s.findConversation(conversationID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(conv, callerID)
}

// ToggleMute sets the caller's own mute flag; it is per-user state
func (s *conversationService) ToggleMute(ctx context.Context, conversationID, userID string, muted bool) error {
	if _, err := s.requireLiveParticipant(conversationID, userID); err != nil {
		return err
	}
	if err := s.partRepo.SetMuted(conversationID, userID, muted); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return common.NewInternalError(err)
	}
	return nil
}

func (s *conversationService) findConversation(conversationID string) (*domain.Conversation, error) {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewNotFoundError("conversation")
		}
		return nil, common.NewInternalError(err)
	}
	return conv, nil
}

func (s *conversationService) requireLiveParticipant(conversationID, userID string) (*domain.Participant, error) {
	p, err := s.partRepo.Find(conversationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewPermissionError(common.ReasonNotParticipant, "not a participant")
		}
		return nil, common.NewInternalError(err)
	}
	if LiveParticipant(p) == nil {
		return nil, common.NewPermissionError(common.ReasonNotParticipant, "not a participant")
	}
	return p, nil
}

// hydrate joins participant rows with directory display info and attaches
// the latest visible message. Hydration is best-effort: a directory or
// last-message failure degrades the field rather than failing the read.
func (s *conversationService) hydrate(conv *domain.Conversation, callerID string) (*domain.ConversationResponse, error) {
	resp := conv.ToResponse()
	log := pkglogger.GetLogger()

	participants, err := s.partRepo.ListByConversation(conv.ID)
	if err != nil {
		return nil, common.NewInternalError(err)
	}

	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.UserID
	}
	users, err := s.userRepo.FindByIDs(ids)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conv.ID).
			Msg("participant hydration failed, returning bare rows")
		users = map[string]*domain.User{}
	}

	resp.Participants = make([]*domain.ParticipantResponse, len(participants))
	for i, p := range participants {
		resp.Participants[i] = p.ToResponse(users[p.UserID])
	}

	last, err := s.msgRepo.FindLastVisible(conv.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Err(err).Str("conversation_id", conv.ID).
				Msg("last message lookup failed, degrading to null")
		}
		return resp, nil
	}
	author, err := s.userRepo.FindByID(last.AuthorID)
	if err != nil {
		author = nil
	}
	resp.LastMessage = last.ToResponse(author)

	return resp, nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func callerOf(memberIDs []string, creatorID string) string {
	for _, id := range memberIDs {
		if id == creatorID {
			return creatorID
		}
	}
	if len(memberIDs) > 0 {
		return memberIDs[0]
	}
	return creatorID
}

func normalizePageSize(pageSize int) int {
	if pageSize < 1 {
		return defaultPageSize
	}
	if pageSize > maxPageSize {
		return maxPageSize
	}
	return pageSize
}
