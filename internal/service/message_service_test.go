package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/damoang/angple-chat/internal/common"
	"github.com/damoang/angple-chat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

type messageFixture struct {
	msgRepo      *MockMessageRepository
	convRepo     *MockConversationRepository
	partRepo     *MockParticipantRepository
	reactionRepo *MockReactionRepository
	userRepo     *MockUserRepository
	blob         *MockBlobStore
	svc          MessageService
}

func newMessageFixture() *messageFixture {
	f := &messageFixture{
		msgRepo:      new(MockMessageRepository),
		convRepo:     new(MockConversationRepository),
		partRepo:     new(MockParticipantRepository),
		reactionRepo: new(MockReactionRepository),
		userRepo:     new(MockUserRepository),
		blob:         new(MockBlobStore),
	}
	f.svc = NewMessageService(f.msgRepo, f.convRepo, f.partRepo, f.reactionRepo, f.userRepo, f.blob)
	return f
}

func TestSendTextMessage(t *testing.T) {
	f := newMessageFixture()
	conv := &domain.Conversation{ID: "conv-1", Type: domain.ConversationGroup}

	f.convRepo.On("FindByID", "conv-1").Return(conv, nil)
	f.partRepo.On("Find", "conv-1", "alice").Return(&domain.Participant{UserID: "alice"}, nil)
	f.msgRepo.On("CreateWithConversationUpdate", mock.MatchedBy(func(m *domain.Message) bool {
		return m.ConversationID == "conv-1" && m.AuthorID == "alice" &&
			m.Type == domain.MessageText && m.Text == "hello world"
	}), "hello world").Return(nil)
	f.userRepo.On("FindByID", "alice").Return(&domain.User{ID: "alice", Nickname: "Alice"}, nil)

	resp, err := f.svc.Send(context.Background(), "conv-1", "alice", &domain.SendMessageRequest{
		Type: domain.MessageText,
		Text: "  hello   world  ",
	})

	assert.NoError(t, err)
	assert.Equal(t, "hello world", resp.Text)
	assert.Equal(t, "Alice", resp.Author.Nickname)
}

func TestSendMessagePermissions(t *testing.T) {
	locked := &domain.Conversation{ID: "conv-1", Type: domain.ConversationGroup, IsLocked: true}

	t.Run("locked rejects members", func(t *testing.T) {
		f := newMessageFixture()
		f.convRepo.On("FindByID", "conv-1").Return(locked, nil)
		f.partRepo.On("Find", "conv-1", "bob").Return(&domain.Participant{UserID: "bob", Role: domain.RoleMember}, nil)

		_, err := f.svc.Send(context.Background(), "conv-1", "bob", &domain.SendMessageRequest{Type: domain.MessageText, Text: "hi"})

		assert.Equal(t, common.KindPermission, common.KindOf(err))
		assert.Equal(t, common.ReasonConversationLocked, common.ReasonOf(err))
	})

	t.Run("locked admits moderators", func(t *testing.T) {
		f := newMessageFixture()
		f.convRepo.On("FindByID", "conv-1").Return(locked, nil)
		f.partRepo.On("Find", "conv-1", "mod").Return(&domain.Participant{UserID: "mod", Role: domain.RoleModerator}, nil)
		f.msgRepo.On("CreateWithConversationUpdate", mock.Anything, mock.Anything).Return(nil)
		f.userRepo.On("FindByID", "mod").Return(nil, gorm.ErrRecordNotFound)

		_, err := f.svc.Send(context.Background(), "conv-1", "mod", &domain.SendMessageRequest{Type: domain.MessageText, Text: "notice"})

		assert.NoError(t, err)
	})

	t.Run("banned participant reads as non-participant", func(t *testing.T) {
		f := newMessageFixture()
		f.convRepo.On("FindByID", "conv-1").Return(&domain.Conversation{ID: "conv-1"}, nil)
		f.partRepo.On("Find", "conv-1", "mallory").Return(&domain.Participant{UserID: "mallory", IsBanned: true}, nil)

		_, err := f.svc.Send(context.Background(), "conv-1", "mallory", &domain.SendMessageRequest{Type: domain.MessageText, Text: "hi"})

		assert.Equal(t, common.ReasonNotParticipant, common.ReasonOf(err))
	})

	t.Run("missing conversation", func(t *testing.T) {
		f := newMessageFixture()
		f.convRepo.On("FindByID", "gone").Return(nil, gorm.ErrRecordNotFound)

		_, err := f.svc.Send(context.Background(), "gone", "alice", &domain.SendMessageRequest{Type: domain.MessageText, Text: "hi"})

		assert.Equal(t, common.KindNotFound, common.KindOf(err))
	})
}

// A store fault while resolving membership must surface as an opaque
// internal error, never as a permission verdict a client would trust.
func TestMembershipLookupFaultIsInternal(t *testing.T) {
	fault := errors.New("connection reset by peer")
	conv := &domain.Conversation{ID: "conv-1", Type: domain.ConversationGroup}
	liveMsg := &domain.Message{ID: "m1", ConversationID: "conv-1", AuthorID: "alice"}

	t.Run("send", func(t *testing.T) {
		f := newMessageFixture()
		f.convRepo.On("FindByID", "conv-1").Return(conv, nil)
		f.partRepo.On("Find", "conv-1", "alice").Return(nil, fault)

		_, err := f.svc.Send(context.Background(), "conv-1", "alice", &domain.SendMessageRequest{Type: domain.MessageText, Text: "hi"})

		assert.Equal(t, common.KindInternal, common.KindOf(err))
		assert.Empty(t, common.ReasonOf(err))
		f.msgRepo.AssertNotCalled(t, "CreateWithConversationUpdate", mock.Anything, mock.Anything)
	})

	t.Run("get messages", func(t *testing.T) {
		f := newMessageFixture()
		f.convRepo.On("FindByID", "conv-1").Return(conv, nil)
		f.partRepo.On("Find", "conv-1", "alice").Return(nil, fault)

		_, _, err := f.svc.GetMessages(context.Background(), "conv-1", "alice", "", 20, false)

		assert.Equal(t, common.KindInternal, common.KindOf(err))
		assert.Empty(t, common.ReasonOf(err))
	})

	t.Run("delete", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(liveMsg, nil)
		f.partRepo.On("Find", "conv-1", "bob").Return(nil, fault)

		err := f.svc.Delete(context.Background(), "m1", "bob")

		assert.Equal(t, common.KindInternal, common.KindOf(err))
		f.msgRepo.AssertNotCalled(t, "SoftDelete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("add reaction", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(liveMsg, nil)
		f.partRepo.On("Find", "conv-1", "bob").Return(nil, fault)

		err := f.svc.AddReaction(context.Background(), "m1", "bob", "👍")

		assert.Equal(t, common.KindInternal, common.KindOf(err))
		f.reactionRepo.AssertNotCalled(t, "Upsert", mock.Anything)
	})

	t.Run("remove reaction", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(liveMsg, nil)
		f.partRepo.On("Find", "conv-1", "bob").Return(nil, fault)

		err := f.svc.RemoveReaction(context.Background(), "m1", "bob", "👍")

		assert.Equal(t, common.KindInternal, common.KindOf(err))
	})

	t.Run("list reactions", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(liveMsg, nil)
		f.partRepo.On("Find", "conv-1", "bob").Return(nil, fault)

		_, err := f.svc.ListReactions(context.Background(), "m1", "bob")

		assert.Equal(t, common.KindInternal, common.KindOf(err))
	})
}

func TestSendMessagePayloadValidation(t *testing.T) {
	conv := &domain.Conversation{ID: "conv-1", Type: domain.ConversationGroup}

	tests := []struct {
		name   string
		req    *domain.SendMessageRequest
		reason string
	}{
		{"unknown type", &domain.SendMessageRequest{Type: "video", Text: "x"}, ""},
		{"text with media", &domain.SendMessageRequest{Type: domain.MessageText, Text: "x", Media: &domain.MessageMedia{URL: "u"}}, ""},
		{"script-only text", &domain.SendMessageRequest{Type: domain.MessageText, Text: "<script>alert(1)</script>"}, common.ReasonEmptyAfterSanitize},
		{"whitespace-only text", &domain.SendMessageRequest{Type: domain.MessageText, Text: "   \n\t  "}, common.ReasonEmptyAfterSanitize},
		{"image without media", &domain.SendMessageRequest{Type: domain.MessageImage}, ""},
		{"image with text", &domain.SendMessageRequest{Type: domain.MessageImage, Text: "cap", Media: &domain.MessageMedia{URL: "u"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMessageFixture()
			f.convRepo.On("FindByID", "conv-1").Return(conv, nil)
			f.partRepo.On("Find", "conv-1", "alice").Return(&domain.Participant{UserID: "alice"}, nil)

			_, err := f.svc.Send(context.Background(), "conv-1", "alice", tt.req)

			assert.Equal(t, common.KindValidation, common.KindOf(err))
			if tt.reason != "" {
				assert.Equal(t, tt.reason, common.ReasonOf(err))
			}
			f.msgRepo.AssertNotCalled(t, "CreateWithConversationUpdate", mock.Anything, mock.Anything)
		})
	}
}

func TestSendMediaMessagePreview(t *testing.T) {
	f := newMessageFixture()
	f.convRepo.On("FindByID", "conv-1").Return(&domain.Conversation{ID: "conv-1"}, nil)
	f.partRepo.On("Find", "conv-1", "alice").Return(&domain.Participant{UserID: "alice"}, nil)
	f.msgRepo.On("CreateWithConversationUpdate", mock.MatchedBy(func(m *domain.Message) bool {
		return m.Type == domain.MessageAudio && m.Text == "" && m.Media.URL == "https://cdn.angple.com/chat/a.ogg"
	}), "[audio]").Return(nil)
	f.userRepo.On("FindByID", "alice").Return(nil, gorm.ErrRecordNotFound)

	_, err := f.svc.Send(context.Background(), "conv-1", "alice", &domain.SendMessageRequest{
		Type:  domain.MessageAudio,
		Media: &domain.MessageMedia{URL: "https://cdn.angple.com/chat/a.ogg", Mime: "audio/ogg"},
	})

	assert.NoError(t, err)
}

func TestGetMessages(t *testing.T) {
	conv := &domain.Conversation{ID: "conv-1"}
	now := time.Now()

	t.Run("lookahead drives pagination", func(t *testing.T) {
		f := newMessageFixture()
		window := []*domain.Message{
			{ID: "m1", AuthorID: "a", CreatedAt: now.Add(-3 * time.Minute)},
			{ID: "m2", AuthorID: "a", CreatedAt: now.Add(-2 * time.Minute)},
			{ID: "m3", AuthorID: "b", CreatedAt: now.Add(-time.Minute)},
		}
		f.convRepo.On("FindByID", "conv-1").Return(conv, nil)
		f.partRepo.On("Find", "conv-1", "alice").Return(&domain.Participant{UserID: "alice"}, nil)
		f.msgRepo.On("FindByConversation", "conv-1", (*common.Cursor)(nil), 3, true).Return(window, nil)
		f.userRepo.On("FindByIDs", mock.Anything).Return(map[string]*domain.User{}, nil)

		resp, meta, err := f.svc.GetMessages(context.Background(), "conv-1", "alice", "", 2, true)

		assert.NoError(t, err)
		assert.Len(t, resp, 2)
		assert.True(t, meta.HasMore)

		cursor := common.DecodeCursor(meta.NextCursor)
		assert.NotNil(t, cursor)
		assert.Equal(t, "m2", cursor.ID)
	})

	t.Run("store fault degrades to empty", func(t *testing.T) {
		f := newMessageFixture()
		f.convRepo.On("FindByID", "conv-1").Return(conv, nil)
		f.partRepo.On("Find", "conv-1", "alice").Return(&domain.Participant{UserID: "alice"}, nil)
		f.msgRepo.On("FindByConversation", "conv-1", (*common.Cursor)(nil), 21, false).Return(nil, errors.New("store fault"))

		resp, meta, err := f.svc.GetMessages(context.Background(), "conv-1", "alice", "", 20, false)

		assert.NoError(t, err)
		assert.Empty(t, resp)
		assert.False(t, meta.HasMore)
	})

	t.Run("non-participant is refused, not degraded", func(t *testing.T) {
		f := newMessageFixture()
		f.convRepo.On("FindByID", "conv-1").Return(conv, nil)
		f.partRepo.On("Find", "conv-1", "eve").Return(nil, gorm.ErrRecordNotFound)

		_, _, err := f.svc.GetMessages(context.Background(), "conv-1", "eve", "", 20, false)

		assert.Equal(t, common.ReasonNotParticipant, common.ReasonOf(err))
	})
}

func TestEditMessage(t *testing.T) {
	fresh := func() *domain.Message {
		return &domain.Message{
			ID:             "m1",
			ConversationID: "conv-1",
			AuthorID:       "alice",
			Type:           domain.MessageText,
			Text:           "original",
			CreatedAt:      time.Now().Add(-time.Minute),
		}
	}

	t.Run("author edits within window", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(fresh(), nil)
		f.msgRepo.On("UpdateText", "m1", "updated text", mock.Anything).Return(nil)
		f.userRepo.On("FindByID", "alice").Return(nil, gorm.ErrRecordNotFound)

		resp, err := f.svc.Edit(context.Background(), "m1", "alice", "  updated   text ")

		assert.NoError(t, err)
		assert.Equal(t, "updated text", resp.Text)
		assert.NotEmpty(t, resp.EditedAt)
	})

	t.Run("non-author is refused", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(fresh(), nil)

		_, err := f.svc.Edit(context.Background(), "m1", "bob", "hijack")

		assert.Equal(t, common.ReasonNotAuthor, common.ReasonOf(err))
	})

	t.Run("expired window", func(t *testing.T) {
		f := newMessageFixture()
		stale := fresh()
		stale.CreatedAt = time.Now().Add(-EditWindow - time.Second)
		f.msgRepo.On("FindByID", "m1").Return(stale, nil)

		_, err := f.svc.Edit(context.Background(), "m1", "alice", "too late")

		assert.Equal(t, common.KindConflict, common.KindOf(err))
		assert.Equal(t, common.ReasonEditWindowExpired, common.ReasonOf(err))
	})

	t.Run("deleted message", func(t *testing.T) {
		f := newMessageFixture()
		deleted := fresh()
		deleted.IsDeleted = true
		f.msgRepo.On("FindByID", "m1").Return(deleted, nil)

		_, err := f.svc.Edit(context.Background(), "m1", "alice", "nope")

		assert.Equal(t, common.ReasonMessageDeleted, common.ReasonOf(err))
	})

	t.Run("sanitized-empty replacement", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(fresh(), nil)

		_, err := f.svc.Edit(context.Background(), "m1", "alice", "<b></b>")

		assert.Equal(t, common.ReasonEmptyAfterSanitize, common.ReasonOf(err))
		f.msgRepo.AssertNotCalled(t, "UpdateText", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDeleteMessage(t *testing.T) {
	msg := func() *domain.Message {
		return &domain.Message{
			ID:             "m1",
			ConversationID: "conv-1",
			AuthorID:       "alice",
			Type:           domain.MessageText,
			CreatedAt:      time.Now().Add(-time.Hour),
		}
	}

	t.Run("author deletes own message", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(msg(), nil)
		f.partRepo.On("Find", "conv-1", "alice").Return(&domain.Participant{UserID: "alice"}, nil)
		f.msgRepo.On("SoftDelete", "m1", false, mock.Anything).Return(nil)

		assert.NoError(t, f.svc.Delete(context.Background(), "m1", "alice"))
	})

	t.Run("moderator delete records byMod", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(msg(), nil)
		f.partRepo.On("Find", "conv-1", "mod").Return(&domain.Participant{UserID: "mod", Role: domain.RoleModerator}, nil)
		f.msgRepo.On("SoftDelete", "m1", true, mock.Anything).Return(nil)

		assert.NoError(t, f.svc.Delete(context.Background(), "m1", "mod"))
	})

	t.Run("plain member cannot delete another's message", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(msg(), nil)
		f.partRepo.On("Find", "conv-1", "bob").Return(&domain.Participant{UserID: "bob", Role: domain.RoleMember}, nil)

		err := f.svc.Delete(context.Background(), "m1", "bob")

		assert.Equal(t, common.ReasonNotModerator, common.ReasonOf(err))
	})

	t.Run("double delete is a conflict", func(t *testing.T) {
		f := newMessageFixture()
		gone := msg()
		gone.IsDeleted = true
		f.msgRepo.On("FindByID", "m1").Return(gone, nil)
		f.partRepo.On("Find", "conv-1", "alice").Return(&domain.Participant{UserID: "alice"}, nil)

		err := f.svc.Delete(context.Background(), "m1", "alice")

		assert.Equal(t, common.ReasonAlreadyDeleted, common.ReasonOf(err))
	})

	t.Run("lost delete race maps to conflict", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(msg(), nil)
		f.partRepo.On("Find", "conv-1", "alice").Return(&domain.Participant{UserID: "alice"}, nil)
		f.msgRepo.On("SoftDelete", "m1", false, mock.Anything).Return(gorm.ErrRecordNotFound)

		err := f.svc.Delete(context.Background(), "m1", "alice")

		assert.Equal(t, common.ReasonAlreadyDeleted, common.ReasonOf(err))
	})

	t.Run("blob cleanup failure is swallowed", func(t *testing.T) {
		f := newMessageFixture()
		withMedia := msg()
		withMedia.Type = domain.MessageImage
		withMedia.Media = &domain.MessageMedia{URL: "https://cdn.angple.com/chat/pic.jpg"}
		f.msgRepo.On("FindByID", "m1").Return(withMedia, nil)
		f.partRepo.On("Find", "conv-1", "alice").Return(&domain.Participant{UserID: "alice"}, nil)
		f.msgRepo.On("SoftDelete", "m1", false, mock.Anything).Return(nil)
		f.blob.On("ObjectKeyFromURL", withMedia.Media.URL).Return("chat/pic.jpg")
		f.blob.On("Delete", "chat/pic.jpg").Return(errors.New("storage outage"))

		assert.NoError(t, f.svc.Delete(context.Background(), "m1", "alice"))
	})
}

func TestReactions(t *testing.T) {
	liveMsg := &domain.Message{ID: "m1", ConversationID: "conv-1", AuthorID: "alice"}

	t.Run("add upserts the caller's reaction", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(liveMsg, nil)
		f.partRepo.On("Find", "conv-1", "bob").Return(&domain.Participant{UserID: "bob"}, nil)
		f.reactionRepo.On("Upsert", mock.MatchedBy(func(r *domain.Reaction) bool {
			return r.MessageID == "m1" && r.UserID == "bob" && r.Value == "👍"
		})).Return(nil)

		assert.NoError(t, f.svc.AddReaction(context.Background(), "m1", "bob", "👍"))
	})

	t.Run("value length is bounded in runes", func(t *testing.T) {
		f := newMessageFixture()

		err := f.svc.AddReaction(context.Background(), "m1", "bob", "엄청나게긴리액션값입니다")

		assert.Equal(t, common.KindValidation, common.KindOf(err))
	})

	t.Run("deleted message rejects reactions", func(t *testing.T) {
		f := newMessageFixture()
		gone := &domain.Message{ID: "m1", ConversationID: "conv-1", IsDeleted: true}
		f.msgRepo.On("FindByID", "m1").Return(gone, nil)

		err := f.svc.AddReaction(context.Background(), "m1", "bob", "👍")

		assert.Equal(t, common.ReasonMessageDeleted, common.ReasonOf(err))
	})

	t.Run("remove requires a matching value", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(liveMsg, nil)
		f.partRepo.On("Find", "conv-1", "bob").Return(&domain.Participant{UserID: "bob"}, nil)
		f.reactionRepo.On("Find", "m1", "bob").Return(&domain.Reaction{MessageID: "m1", UserID: "bob", Value: "❤️"}, nil)

		err := f.svc.RemoveReaction(context.Background(), "m1", "bob", "👍")

		assert.Equal(t, common.KindConflict, common.KindOf(err))
		assert.Equal(t, common.ReasonReactionMismatch, common.ReasonOf(err))
		f.reactionRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("remove matching value", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(liveMsg, nil)
		f.partRepo.On("Find", "conv-1", "bob").Return(&domain.Participant{UserID: "bob"}, nil)
		f.reactionRepo.On("Find", "m1", "bob").Return(&domain.Reaction{MessageID: "m1", UserID: "bob", Value: "👍"}, nil)
		f.reactionRepo.On("Delete", "m1", "bob").Return(nil)

		assert.NoError(t, f.svc.RemoveReaction(context.Background(), "m1", "bob", "👍"))
	})

	t.Run("remove absent reaction", func(t *testing.T) {
		f := newMessageFixture()
		f.msgRepo.On("FindByID", "m1").Return(liveMsg, nil)
		f.partRepo.On("Find", "conv-1", "bob").Return(&domain.Participant{UserID: "bob"}, nil)
		f.reactionRepo.On("Find", "m1", "bob").Return(nil, gorm.ErrRecordNotFound)

		err := f.svc.RemoveReaction(context.Background(), "m1", "bob", "👍")

		assert.Equal(t, common.KindNotFound, common.KindOf(err))
	})
}
