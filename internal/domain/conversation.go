package domain

import "time"

// ConversationType direct (1:1) or group
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

const (
	// MaxTitleLength group title limit
	MaxTitleLength = 80
	// MaxPreviewLength conversation preview limit
	MaxPreviewLength = 100
)

// Conversation represents a direct or group thread (chat_conversations table)
type Conversation struct {
	ID                 string           `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	Type               ConversationType `gorm:"column:type;type:varchar(10);not null;index" json:"type"`
	Title              string           `gorm:"column:title;size:80" json:"title,omitempty"`
	Icon               string           `gorm:"column:icon;size:500" json:"icon,omitempty"`
	CreatedBy          string           `gorm:"column:created_by;size:64;index" json:"created_by"`
	CreatedAt          time.Time        `gorm:"column:created_at" json:"created_at"`
	LastMessageAt      time.Time        `gorm:"column:last_message_at;index:idx_chat_conversations_last_message,sort:desc" json:"last_message_at"`
	LastMessagePreview string           `gorm:"column:last_message_preview;size:100" json:"last_message_preview,omitempty"`
	MemberCount        int              `gorm:"column:member_count" json:"member_count"`
	IsLocked           bool             `gorm:"column:is_locked" json:"is_locked"`

	Participants []Participant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
}

// TableName returns the table name for conversations
func (Conversation) TableName() string {
	return "chat_conversations"
}

// ParticipantRole role within a conversation
type ParticipantRole string

const (
	RoleMember    ParticipantRole = "member"
	RoleModerator ParticipantRole = "moderator"
	RoleOwner     ParticipantRole = "owner"
)

// Participant represents a user's membership in a conversation
// (chat_participants table, keyed by conversation + user).
// A banned participant keeps its row but is not treated as live.
type Participant struct {
	ConversationID string          `gorm:"column:conversation_id;type:char(36);primaryKey" json:"conversation_id"`
	UserID         string          `gorm:"column:user_id;size:64;primaryKey;index:idx_chat_participants_user" json:"user_id"`
	Role           ParticipantRole `gorm:"column:role;type:varchar(10);default:'member';not null" json:"role"`
	JoinedAt       time.Time       `gorm:"column:joined_at" json:"joined_at"`
	LastReadAt     *time.Time      `gorm:"column:last_read_at" json:"last_read_at,omitempty"`
	IsBanned       bool            `gorm:"column:is_banned" json:"is_banned"`
	IsMuted        bool            `gorm:"column:is_muted" json:"is_muted"`
}

// TableName returns the table name for participants
func (Participant) TableName() string {
	return "chat_participants"
}

// IsModerator reports whether the participant holds moderator authority
func (p *Participant) IsModerator() bool {
	return p.Role == RoleModerator || p.Role == RoleOwner
}

// CreateConversationRequest creation payload
type CreateConversationRequest struct {
	Type      ConversationType `json:"type" binding:"required"`
	Title     string           `json:"title,omitempty"`
	Icon      string           `json:"icon,omitempty"`
	MemberIDs []string         `json:"member_ids" binding:"required"`
}

// UpdateConversationRequest partial update payload (moderator only)
type UpdateConversationRequest struct {
	Title    *string `json:"title,omitempty"`
	Icon     *string `json:"icon,omitempty"`
	IsLocked *bool   `json:"is_locked,omitempty"`
}

// ParticipantResponse participant with hydrated display info
type ParticipantResponse struct {
	UserID     string          `json:"user_id"`
	Nickname   string          `json:"nickname,omitempty"`
	AvatarURL  string          `json:"avatar_url,omitempty"`
	Role       ParticipantRole `json:"role"`
	JoinedAt   string          `json:"joined_at"`
	LastReadAt string          `json:"last_read_at,omitempty"`
	IsBanned   bool            `json:"is_banned"`
	IsMuted    bool            `json:"is_muted"`
}

// ToResponse converts a Participant, attaching directory info when present
func (p *Participant) ToResponse(user *User) *ParticipantResponse {
	resp := &ParticipantResponse{
		UserID:   p.UserID,
		Role:     p.Role,
		JoinedAt: p.JoinedAt.Format(time.RFC3339),
		IsBanned: p.IsBanned,
		IsMuted:  p.IsMuted,
	}
	if p.LastReadAt != nil {
		resp.LastReadAt = p.LastReadAt.Format(time.RFC3339)
	}
	if user != nil {
		resp.Nickname = user.Nickname
		resp.AvatarURL = user.AvatarURL
	}
	return resp
}

// ConversationResponse conversation summary with hydrated participants
type ConversationResponse struct {
	ID                 string                 `json:"id"`
	Type               ConversationType       `json:"type"`
	Title              string                 `json:"title,omitempty"`
	Icon               string                 `json:"icon,omitempty"`
	CreatedBy          string                 `json:"created_by"`
	CreatedAt          string                 `json:"created_at"`
	LastMessageAt      string                 `json:"last_message_at"`
	LastMessagePreview string                 `json:"last_message_preview,omitempty"`
	MemberCount        int                    `json:"member_count"`
	IsLocked           bool                   `json:"is_locked"`
	Participants       []*ParticipantResponse `json:"participants,omitempty"`
	LastMessage        *MessageResponse       `json:"last_message,omitempty"`
}

// ToResponse converts a Conversation to its API shape
func (c *Conversation) ToResponse() *ConversationResponse {
	return &ConversationResponse{
		ID:                 c.ID,
		Type:               c.Type,
		Title:              c.Title,
		Icon:               c.Icon,
		CreatedBy:          c.CreatedBy,
		CreatedAt:          c.CreatedAt.Format(time.RFC3339),
		LastMessageAt:      c.LastMessageAt.Format(time.RFC3339),
		LastMessagePreview: c.LastMessagePreview,
		MemberCount:        c.MemberCount,
		IsLocked:           c.IsLocked,
	}
}
