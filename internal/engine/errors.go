// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// ErrorCode is the machine-readable class of a client error.
type ErrorCode string

const (
	CodeGameNotFound     ErrorCode = "GAME_NOT_FOUND"
	CodeQuestionNotFound ErrorCode = "QUESTION_NOT_FOUND"
	CodePlayerNotFound   ErrorCode = "PLAYER_NOT_FOUND"
	CodeInvalidRole      ErrorCode = "INVALID_ROLE"
	CodeInvalidPhase     ErrorCode = "INVALID_PHASE"
	CodeValidation       ErrorCode = "VALIDATION"
	CodeNotYourTurn      ErrorCode = "NOT_YOUR_TURN"
	CodeGamePaused       ErrorCode = "GAME_PAUSED"
)

// ClientError is a caller-caused failure: surfaced to the originating caller
// as a typed, user-readable error and never retried automatically.
type ClientError struct {
	Code    ErrorCode
	Message string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewClientError builds a client error with a formatted message.
func NewClientError(code ErrorCode, format string, args ...interface{}) *ClientError {
	return &ClientError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ServerError is an invariant violation: logged with context, surfaced
// generically, and the failed action's effects are not persisted.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server error: " + e.Message
}

// NewServerError builds a server error with a formatted message.
func NewServerError(format string, args ...interface{}) *ServerError {
	return &ServerError{Message: fmt.Sprintf(format, args...)}
}

// IsClientError reports whether err is caller-caused and extracts it.
func IsClientError(err error) (*ClientError, bool) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
