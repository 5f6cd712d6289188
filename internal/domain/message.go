package domain

import "time"

// MessageType text, image or audio
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageAudio MessageType = "audio"
)

const (
	// MaxMessageLength pre-sanitization text limit
	MaxMessageLength = 5000
	// MaxReactionLength emoji value limit
	MaxReactionLength = 10
)

// MessageMedia describes an attached blob for image/audio messages
type MessageMedia struct {
	URL        string `json:"url"`
	Mime       string `json:"mime"`
	Size       int64  `json:"size"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
}

// Message represents a chat message (chat_messages table).
// ConversationID is a flat lookup key, not an ownership pointer: history
// reads and the deletion cascade both depend on querying by it directly.
type Message struct {
	ID               string        `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	ConversationID   string        `gorm:"column:conversation_id;type:char(36);not null;index" json:"conversation_id"`
	AuthorID         string        `gorm:"column:author_id;size:64;index" json:"author_id"`
	Type             MessageType   `gorm:"column:type;type:varchar(10);not null" json:"type"`
	Text             string        `gorm:"column:text;type:text" json:"text,omitempty"`
	Media            *MessageMedia `gorm:"column:media;serializer:json" json:"media,omitempty"`
	CreatedAt        time.Time     `gorm:"column:created_at" json:"created_at"`
	EditedAt         *time.Time    `gorm:"column:edited_at" json:"edited_at,omitempty"`
	IsDeleted        bool          `gorm:"column:is_deleted" json:"is_deleted"`
	DeletedByMod     bool          `gorm:"column:deleted_by_mod" json:"deleted_by_mod"`
	DeletedAt        *time.Time    `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
	ReplyToMessageID *string       `gorm:"column:reply_to_message_id;type:char(36)" json:"reply_to_message_id,omitempty"`
}

// TableName returns the table name for messages
func (Message) TableName() string {
	return "chat_messages"
}

// Reaction represents a user's reaction to a message (chat_reactions table).
// The (message_id, user_id) key means a second add overwrites, never duplicates.
type Reaction struct {
	MessageID string    `gorm:"column:message_id;type:char(36);primaryKey" json:"message_id"`
	UserID    string    `gorm:"column:user_id;size:64;primaryKey" json:"user_id"`
	Value     string    `gorm:"column:value;size:10;not null" json:"value"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName returns the table name for reactions
func (Reaction) TableName() string {
	return "chat_reactions"
}

// SendMessageRequest message creation payload
type SendMessageRequest struct {
	Type  MessageType   `json:"type" binding:"required"`
	Text  string        `json:"text,omitempty"`
	Media *MessageMedia `json:"media,omitempty"`
}

// EditMessageRequest message edit payload
type EditMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// ReactionRequest add/remove reaction payload
type ReactionRequest struct {
	Value string `json:"value" binding:"required"`
}

// UserSummary hydrated author display info
type UserSummary struct {
	UserID    string `json:"user_id"`
	Nickname  string `json:"nickname,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// MessageResponse message in API responses
type MessageResponse struct {
	ID               string        `json:"id"`
	ConversationID   string        `json:"conversation_id"`
	Type             MessageType   `json:"type"`
	Text             string        `json:"text,omitempty"`
	Media            *MessageMedia `json:"media,omitempty"`
	Author           *UserSummary  `json:"author,omitempty"`
	CreatedAt        string        `json:"created_at"`
	EditedAt         string        `json:"edited_at,omitempty"`
	ReplyToMessageID string        `json:"reply_to_message_id,omitempty"`
}

// ToResponse converts a Message, attaching directory info when present
func (m *Message) ToResponse(author *User) *MessageResponse {
	resp := &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Type:           m.Type,
		Text:           m.Text,
		Media:          m.Media,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
		Author:         &UserSummary{UserID: m.AuthorID},
	}
	if m.EditedAt != nil {
		resp.EditedAt = m.EditedAt.Format(time.RFC3339)
	}
	if m.ReplyToMessageID != nil {
		resp.ReplyToMessageID = *m.ReplyToMessageID
	}
	if author != nil {
		resp.Author.Nickname = author.Nickname
		resp.Author.AvatarURL = author.AvatarURL
	}
	return resp
}
