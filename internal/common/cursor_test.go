package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	original := Cursor{Timestamp: ts, ID: "8f14e45f-ceea-467f-a8cb-9d2f4f1c2a10"}

	decoded := DecodeCursor(EncodeCursor(original))

	assert.NotNil(t, decoded)
	assert.True(t, decoded.Timestamp.Equal(original.Timestamp))
	assert.Equal(t, original.ID, decoded.ID)
}

func TestDecodeCursorGarbage(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not base64", "!!!not-base64!!!"},
		{"base64 but not json", "bm90LWpzb24"},
		{"json but wrong shape", "e30"}, // {}
		{"truncated", EncodeCursor(Cursor{ID: "x", Timestamp: time.Now()})[:5]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, DecodeCursor(tt.token))
		})
	}
}

func TestDecodeCursorIDOnly(t *testing.T) {
	// A cursor keyed by id alone (conversation listing) is still valid
	decoded := DecodeCursor(EncodeCursor(Cursor{ID: "conv-1"}))

	assert.NotNil(t, decoded)
	assert.Equal(t, "conv-1", decoded.ID)
}
