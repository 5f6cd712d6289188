package common

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Cursor marks the last-seen item of a page: its sort timestamp and id.
// Id is the tie-break when two items share a timestamp.
type Cursor struct {
	Timestamp time.Time `json:"t"`
	ID        string    `json:"id"`
}

// EncodeCursor serializes a cursor into an opaque URL-safe token
func EncodeCursor(c Cursor) string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses an opaque cursor token. Cursors cross trust
// boundaries, so any malformed input means "no cursor", never an error.
func DecodeCursor(token string) *Cursor {
	if token == "" {
		return nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	if c.ID == "" && c.Timestamp.IsZero() {
		return nil
	}
	return &c
}
