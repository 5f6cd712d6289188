package service

import (
	"testing"
	"time"

	"github.com/damoang/angple-chat/internal/common"
	"github.com/damoang/angple-chat/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestLiveParticipant(t *testing.T) {
	assert.Nil(t, LiveParticipant(nil))
	assert.Nil(t, LiveParticipant(&domain.Participant{UserID: "u1", IsBanned: true}))
	assert.NotNil(t, LiveParticipant(&domain.Participant{UserID: "u1"}))
}

func TestIsModeratorAndOwner(t *testing.T) {
	owner := &domain.Participant{UserID: "u1", Role: domain.RoleOwner}
	mod := &domain.Participant{UserID: "u2", Role: domain.RoleModerator}
	member := &domain.Participant{UserID: "u3", Role: domain.RoleMember}
	bannedMod := &domain.Participant{UserID: "u4", Role: domain.RoleModerator, IsBanned: true}

	assert.True(t, IsModerator(owner))
	assert.True(t, IsModerator(mod))
	assert.False(t, IsModerator(member))
	assert.False(t, IsModerator(bannedMod))
	assert.False(t, IsModerator(nil))

	assert.True(t, IsOwner(owner))
	assert.False(t, IsOwner(mod))
	assert.False(t, IsOwner(nil))
}

func TestCanSendMessage(t *testing.T) {
	open := &domain.Conversation{ID: "c1"}
	locked := &domain.Conversation{ID: "c1", IsLocked: true}
	member := &domain.Participant{UserID: "u1", Role: domain.RoleMember}
	banned := &domain.Participant{UserID: "u1", IsBanned: true}

	t.Run("member in open conversation", func(t *testing.T) {
		d := CanSendMessage(member, open)
		assert.True(t, d.Allowed)
	})

	t.Run("non-participant", func(t *testing.T) {
		d := CanSendMessage(nil, open)
		assert.False(t, d.Allowed)
		assert.Equal(t, common.ReasonNotParticipant, d.Reason)
	})

	t.Run("banned participant reads as non-participant, even when locked", func(t *testing.T) {
		d := CanSendMessage(banned, locked)
		assert.False(t, d.Allowed)
		assert.Equal(t, common.ReasonNotParticipant, d.Reason)
	})

	t.Run("locked conversation", func(t *testing.T) {
		d := CanSendMessage(member, locked)
		assert.False(t, d.Allowed)
		assert.Equal(t, common.ReasonConversationLocked, d.Reason)
	})
}

func TestCanEditMessage(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := &domain.Message{ID: "m1", AuthorID: "author", CreatedAt: t0}

	t.Run("author within window", func(t *testing.T) {
		d := CanEditMessage("author", msg, t0.Add(10*time.Minute))
		assert.True(t, d.Allowed)
	})

	t.Run("exactly at the window boundary", func(t *testing.T) {
		d := CanEditMessage("author", msg, t0.Add(15*time.Minute))
		assert.True(t, d.Allowed)
	})

	t.Run("one minute past the boundary", func(t *testing.T) {
		d := CanEditMessage("author", msg, t0.Add(16*time.Minute))
		assert.False(t, d.Allowed)
		assert.Equal(t, common.ReasonEditWindowExpired, d.Reason)
	})

	t.Run("one second past the boundary", func(t *testing.T) {
		d := CanEditMessage("author", msg, t0.Add(15*time.Minute+time.Second))
		assert.False(t, d.Allowed)
		assert.Equal(t, common.ReasonEditWindowExpired, d.Reason)
	})

	t.Run("not the author", func(t *testing.T) {
		d := CanEditMessage("someone-else", msg, t0.Add(time.Minute))
		assert.False(t, d.Allowed)
		assert.Equal(t, common.ReasonNotAuthor, d.Reason)
	})

	t.Run("deleted message", func(t *testing.T) {
		deleted := &domain.Message{ID: "m1", AuthorID: "author", CreatedAt: t0, IsDeleted: true}
		d := CanEditMessage("author", deleted, t0.Add(time.Minute))
		assert.False(t, d.Allowed)
		assert.Equal(t, common.ReasonMessageDeleted, d.Reason)
	})
}

func TestCanDeleteMessage(t *testing.T) {
	msg := &domain.Message{ID: "m1", AuthorID: "author"}
	mod := &domain.Participant{UserID: "mod", Role: domain.RoleModerator}
	member := &domain.Participant{UserID: "member", Role: domain.RoleMember}

	t.Run("author may delete", func(t *testing.T) {
		assert.True(t, CanDeleteMessage("author", msg, member).Allowed)
	})

	t.Run("moderator may delete others' messages", func(t *testing.T) {
		assert.True(t, CanDeleteMessage("mod", msg, mod).Allowed)
	})

	t.Run("plain member may not delete others' messages", func(t *testing.T) {
		d := CanDeleteMessage("member", msg, member)
		assert.False(t, d.Allowed)
		assert.Equal(t, common.ReasonNotModerator, d.Reason)
	})

	t.Run("second delete is a conflict", func(t *testing.T) {
		gone := &domain.Message{ID: "m1", AuthorID: "author", IsDeleted: true}
		d := CanDeleteMessage("author", gone, member)
		assert.False(t, d.Allowed)
		assert.Equal(t, common.ReasonAlreadyDeleted, d.Reason)
	})
}
