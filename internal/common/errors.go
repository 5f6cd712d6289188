package common

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures into the stable categories the API exposes
type ErrorKind string

const (
	KindValidation ErrorKind = "VALIDATION"
	KindNotFound   ErrorKind = "NOT_FOUND"
	KindPermission ErrorKind = "PERMISSION_DENIED"
	KindConflict   ErrorKind = "CONFLICT"
	KindInternal   ErrorKind = "INTERNAL"
)

// Stable reason codes. Clients branch on these, never on message text.
const (
	ReasonNotParticipant     = "NOT_PARTICIPANT"
	ReasonNotModerator       = "NOT_MODERATOR"
	ReasonNotAuthor          = "NOT_AUTHOR"
	ReasonNotOwner           = "NOT_OWNER"
	ReasonConversationLocked = "CONVERSATION_LOCKED"
	ReasonMessageDeleted     = "MESSAGE_DELETED"
	ReasonEditWindowExpired  = "EDIT_WINDOW_EXPIRED"
	ReasonAlreadyDeleted     = "MESSAGE_ALREADY_DELETED"
	ReasonAlreadyParticipant = "ALREADY_PARTICIPANT"
	ReasonAlreadyBanned      = "ALREADY_BANNED"
	ReasonNotBanned          = "NOT_BANNED"
	ReasonAlreadyLocked      = "ALREADY_LOCKED"
	ReasonNotLocked          = "NOT_LOCKED"
	ReasonOwnerCannotLeave   = "OWNER_CANNOT_LEAVE"
	ReasonOwnerUnbannable    = "OWNER_CANNOT_BE_BANNED"
	ReasonReactionMismatch   = "REACTION_VALUE_MISMATCH"
	ReasonEmptyAfterSanitize = "EMPTY_AFTER_SANITIZE"
)

// AppError is the typed error returned by services. Kind drives the HTTP
// status, Reason distinguishes cases within a kind (locked vs not a
// participant), Message is safe to show to clients.
type AppError struct {
	Kind    ErrorKind
	Reason  string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError reports malformed input
func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

// NewValidationReasonError reports malformed input with a stable reason code
func NewValidationReasonError(reason, message string) *AppError {
	return &AppError{Kind: KindValidation, Reason: reason, Message: message}
}

// NewNotFoundError reports an absent resource
func NewNotFoundError(resource string) *AppError {
	return &AppError{Kind: KindNotFound, Message: resource + " not found"}
}

// NewPermissionError reports a denied operation with a stable reason code
func NewPermissionError(reason, message string) *AppError {
	return &AppError{Kind: KindPermission, Reason: reason, Message: message}
}

// NewConflictError reports a state conflict with a stable reason code
func NewConflictError(reason, message string) *AppError {
	return &AppError{Kind: KindConflict, Reason: reason, Message: message}
}

// NewInternalError wraps a store/network fault without leaking detail
func NewInternalError(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf extracts the kind from an error chain; unclassified errors are internal
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// ReasonOf extracts the reason code from an error chain, if any
func ReasonOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}
