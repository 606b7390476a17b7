package fakeadapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bottlecangowhere/pkg/ports/botport"
)

// FakeAdapter implements botport.BotPort for headless tests.
type FakeAdapter struct {
	mu            sync.Mutex
	Calls         []Call
	NextMessageID int
	FailNext      map[string]error
}

// Call captures a bot operation invocation.
type Call struct {
	Op        string
	ChatID    int64
	MessageID int
	Text      string
	Markup    interface{}
}

var _ botport.BotPort = (*FakeAdapter)(nil)

// SendMessage records a send operation and returns a synthetic BotMessage.
func (f *FakeAdapter) SendMessage(ctx context.Context, chatID int64, text string, markup interface{}) (botport.BotMessage, error) {
	if err := ctx.Err(); err != nil {
		return botport.BotMessage{}, wrapContextError("send_message", err)
	}
	if err := f.maybeFail("send_message"); err != nil {
		return botport.BotMessage{}, err
	}
	msgID := f.nextMessageID()
	f.record(Call{Op: "send_message", ChatID: chatID, MessageID: msgID, Text: text, Markup: markup})
	return f.botMessage(chatID, msgID, text), nil
}

// SendTyping records a typing indicator.
func (f *FakeAdapter) SendTyping(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return wrapContextError("send_typing", err)
	}
	if err := f.maybeFail("send_typing"); err != nil {
		return err
	}
	f.record(Call{Op: "send_typing", ChatID: chatID})
	return nil
}

// Fail configures the next call for op to return err (wrapped as BotError if needed).
func (f *FakeAdapter) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext == nil {
		f.FailNext = make(map[string]error)
	}
	f.FailNext[op] = err
}

// LastCall returns the most recent call for the given op.
func (f *FakeAdapter) LastCall(op string) *Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Calls) - 1; i >= 0; i-- {
		if f.Calls[i].Op == op {
			c := f.Calls[i]
			return &c
		}
	}
	return nil
}

// Texts returns the texts of all messages sent to chatID, oldest first.
func (f *FakeAdapter) Texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Calls {
		if c.Op == "send_message" && c.ChatID == chatID {
			out = append(out, c.Text)
		}
	}
	return out
}

// Count returns how many calls for op were recorded.
func (f *FakeAdapter) Count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset drops recorded calls.
func (f *FakeAdapter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = nil
}

func (f *FakeAdapter) botMessage(chatID int64, messageID int, text string) botport.BotMessage {
	return botport.BotMessage{
		ChatID:    chatID,
		MessageID: messageID,
		Transport: "telegram",
		Payload:   text,
		Meta:      map[string]string{"fake": "true"},
	}
}

func (f *FakeAdapter) nextMessageID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NextMessageID == 0 {
		f.NextMessageID = 1
	}
	id := f.NextMessageID
	f.NextMessageID++
	return id
}

func (f *FakeAdapter) record(call Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

func (f *FakeAdapter) maybeFail(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext == nil {
		return nil
	}
	err, ok := f.FailNext[op]
	if !ok {
		return nil
	}
	delete(f.FailNext, op)
	if _, ok := err.(*botport.BotError); ok {
		return err
	}
	return &botport.BotError{Op: op, Code: "fake_error", Wrapped: err}
}

func wrapContextError(op string, err error) error {
	switch err {
	case context.Canceled:
		return &botport.BotError{Op: op, Code: botport.CodeContextCanceled, Wrapped: err}
	case context.DeadlineExceeded:
		return &botport.BotError{Op: op, Code: botport.CodeContextDeadline, Wrapped: err}
	default:
		return &botport.BotError{Op: op, Code: "context_error", Wrapped: err}
	}
}

// Helpers to script common BotError cases in tests.
func Forbidden(op string) *botport.BotError {
	return &botport.BotError{Op: op, Code: botport.CodeForbidden, Wrapped: fmt.Errorf("bot was blocked by the user")}
}

func RateLimited(op string, retry time.Duration) *botport.BotError {
	return &botport.BotError{Op: op, Code: botport.CodeRateLimited, RetryAfter: retry, Wrapped: fmt.Errorf("rate limited")}
}
