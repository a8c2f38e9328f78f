package websocket

import (
	"context"
	"errors"
	"fmt"

	"chat-relay/internal/models"
)

var (
	ErrClientDisconnected = errors.New("client disconnected")
	ErrSendBufferFull     = errors.New("send buffer full")
	ErrHubStopped         = errors.New("hub stopped")
)

// ErrorCode is the machine-readable code carried by message_error frames.
type ErrorCode string

const (
	ErrCodeValidation     ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidMessage ErrorCode = "INVALID_MESSAGE"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeInvalid        ErrorCode = "INVALID"
	ErrCodeStoreFault     ErrorCode = "STORE_FAULT"
)

const (
	reasonEmptyContent   = "Message content cannot be empty"
	reasonMissingPeer    = "receiverId is required"
	reasonInvalidFormat  = "Invalid message format"
	reasonUnknownType    = "Unknown message type"
	reasonUsersNotFound  = "One or both users not found"
	reasonNotFriends     = "You can only send messages to friends"
	reasonSendFailed     = "Failed to send message"
	reasonReadNotFound   = "Message not found or already read"
	reasonReadForbidden  = "Not allowed to mark this message as read"
	reasonReadFailed     = "Failed to mark message as read"
	reasonMissingMessage = "messageId is required"
	reasonMissingSender  = "senderId is required"
)

// AuthError is returned by OnConnect when the handshake credential is
// missing or invalid. Nothing has been registered when it is returned.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication error: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

type persistOp int

const (
	opSend persistOp = iota
	opMarkRead
)

// PersistError is a store failure classified for the sending client.
type PersistError struct {
	Code ErrorCode
	op   persistOp
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Reason returns the human-readable text shown to the client.
func (e *PersistError) Reason() string {
	if e.op == opMarkRead {
		switch e.Code {
		case ErrCodeNotFound:
			return reasonReadNotFound
		case ErrCodeForbidden:
			return reasonReadForbidden
		default:
			return reasonReadFailed
		}
	}
	switch e.Code {
	case ErrCodeNotFound:
		return reasonUsersNotFound
	case ErrCodeForbidden:
		return reasonNotFriends
	case ErrCodeInvalid:
		return reasonEmptyContent
	default:
		return reasonSendFailed
	}
}

// classifyPersistError maps store errors onto the client-facing taxonomy.
// Anything unrecognised, including timeouts, is a store fault.
func classifyPersistError(op persistOp, err error) *PersistError {
	code := ErrCodeStoreFault
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
	case errors.Is(err, models.ErrNotFound):
		code = ErrCodeNotFound
	case errors.Is(err, models.ErrForbidden):
		code = ErrCodeForbidden
	case errors.Is(err, models.ErrInvalidContent):
		code = ErrCodeInvalid
	}
	return &PersistError{Code: code, op: op, Err: err}
}
