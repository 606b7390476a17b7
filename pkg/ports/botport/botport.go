package botport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Package botport provides the outbound interface between the dialog handler and chat adapters.

// BotMessage captures adapter-agnostic identifiers for previously sent messages.
type BotMessage struct {
	ChatID    int64
	MessageID int
	Transport string
	Payload   string
	Meta      map[string]string
}

// BotError wraps adapter failures with retry hints and normalized codes.
type BotError struct {
	Op         string
	Code       string
	RetryAfter time.Duration
	Wrapped    error
}

func (e *BotError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

// Unwrap exposes the underlying adapter error for errors.Is/As.
func (e *BotError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Wrapped
}

// NewBotError builds a BotError with the provided operation/code, preserving the wrapped error.
func NewBotError(op, code string, err error) *BotError {
	return &BotError{
		Op:      op,
		Code:    code,
		Wrapped: err,
	}
}

// IsCode determines whether err represents a BotError with the provided code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var be *BotError
	if errors.As(err, &be) {
		return be != nil && be.Code == code
	}
	return false
}

// Error codes shared by adapters.
const (
	CodeContextCanceled = "context_canceled"
	CodeContextDeadline = "context_deadline"
	CodeRateLimited     = "rate_limited"
	CodeForbidden       = "forbidden"
	CodeBadRequest      = "bad_request"
	CodeBadPayload      = "bad_payload"
)

// BotPort abstracts outbound message operations for adapters (Telegram, fake, etc.).
// Text is HTML formatted; markup is an adapter-specific keyboard or nil.
type BotPort interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup interface{}) (BotMessage, error)
	SendTyping(ctx context.Context, chatID int64) error
}
