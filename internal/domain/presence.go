package domain

// PresenceState global per-user presence
type PresenceState string

const (
	PresenceOnline  PresenceState = "online"
	PresenceAway    PresenceState = "away"
	PresenceOffline PresenceState = "offline"
)

// PresenceStatus presence snapshot in API responses
type PresenceStatus struct {
	UserID     string        `json:"user_id"`
	State      PresenceState `json:"state"`
	LastSeenAt string        `json:"last_seen_at,omitempty"`
}

// TypingRequest typing flag payload
type TypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

// PresenceRequest presence update payload
type PresenceRequest struct {
	State PresenceState `json:"state" binding:"required"`
}
