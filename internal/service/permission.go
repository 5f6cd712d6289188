package service

import (
	"time"

	"github.com/damoang/angple-chat/internal/common"
	"github.com/damoang/angple-chat/internal/domain"
)

// EditWindow is how long after sending a message its author may edit it
const EditWindow = 15 * time.Minute

// Decision is a structured permission verdict. Reason carries a stable
// code when denied, so callers map to the error taxonomy without
// matching on message strings.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// LiveParticipant filters out banned membership: a banned user keeps a row
// but is not a participant for any permission purpose.
func LiveParticipant(p *domain.Participant) *domain.Participant {
	if p == nil || p.IsBanned {
		return nil
	}
	return p
}

// IsModerator reports moderator-or-owner authority for a live participant
func IsModerator(p *domain.Participant) bool {
	live := LiveParticipant(p)
	return live != nil && live.IsModerator()
}

// IsOwner reports conversation ownership for a live participant
func IsOwner(p *domain.Participant) bool {
	live := LiveParticipant(p)
	return live != nil && live.Role == domain.RoleOwner
}

// CanSendMessage checks membership and the lock flag. The moderator
// exemption from locks is applied by the calling path, not here.
func CanSendMessage(p *domain.Participant, conv *domain.Conversation) Decision {
	if LiveParticipant(p) == nil {
		return deny(common.ReasonNotParticipant)
	}
	if conv.IsLocked {
		return deny(common.ReasonConversationLocked)
	}
	return allow()
}

// CanEditMessage checks authorship, deletion state and the edit window.
// The boundary is inclusive: an edit at exactly EditWindow still passes.
func CanEditMessage(userID string, msg *domain.Message, now time.Time) Decision {
	if msg.AuthorID != userID {
		return deny(common.ReasonNotAuthor)
	}
	if msg.IsDeleted {
		return deny(common.ReasonMessageDeleted)
	}
	if now.Sub(msg.CreatedAt) > EditWindow {
		return deny(common.ReasonEditWindowExpired)
	}
	return allow()
}

// CanDeleteMessage allows the author, or a moderator of the message's
// conversation. Deleting twice is a conflict, not a permission failure.
func CanDeleteMessage(userID string, msg *domain.Message, callerParticipant *domain.Participant) Decision {
	if msg.IsDeleted {
		return deny(common.ReasonAlreadyDeleted)
	}
	if msg.AuthorID == userID {
		return allow()
	}
	if IsModerator(callerParticipant) {
		return allow()
	}
	return deny(common.ReasonNotModerator)
}
