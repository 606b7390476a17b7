package telegramadapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"bottlecangowhere/pkg/ports/botport"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestAdapterSendMessageSuccess(t *testing.T) {
	var gotMarkup interface{}
	fc := &fakeClient{
		sendFn: func(chatID int64, text string, markup interface{}) (tgbotapi.Message, error) {
			gotMarkup = markup
			return tgbotapi.Message{
				MessageID: 42,
				Text:      text,
				Chat:      &tgbotapi.Chat{ID: chatID},
			}, nil
		},
	}
	adapter, err := New(fc, testLogger{t})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Working"),
			tgbotapi.NewKeyboardButton("Full"),
		),
	)

	msg, err := adapter.SendMessage(context.Background(), 7, "hello", keyboard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMarkup == nil {
		t.Fatalf("expected markup to reach the client")
	}
	if msg.ChatID != 7 || msg.MessageID != 42 {
		t.Fatalf("unexpected bot message: %+v", msg)
	}
	if msg.Transport != "telegram" {
		t.Fatalf("expected transport 'telegram', got %s", msg.Transport)
	}
	if msg.Payload != "hello" {
		t.Fatalf("expected payload 'hello', got %s", msg.Payload)
	}
	if msg.Meta["markup_type"] == "" {
		t.Fatalf("expected markup metadata to be set")
	}
	if msg.Meta["buttons"] != `["Working","Full"]` {
		t.Fatalf("expected button labels, got %q", msg.Meta["buttons"])
	}
}

func TestAdapterSendMessageWrapsRateLimitError(t *testing.T) {
	expectedErr := errors.New("Too Many Requests: retry after 3")
	fc := &fakeClient{
		sendFn: func(int64, string, interface{}) (tgbotapi.Message, error) {
			return tgbotapi.Message{}, expectedErr
		},
	}
	adapter, err := New(fc, testLogger{t})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = adapter.SendMessage(context.Background(), 1, "hi", nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	var be *botport.BotError
	if !errors.As(err, &be) {
		t.Fatalf("expected BotError, got %T", err)
	}
	if be.Code != botport.CodeRateLimited {
		t.Fatalf("expected rate_limited code, got %s", be.Code)
	}
	if be.RetryAfter != 3*time.Second {
		t.Fatalf("expected RetryAfter=3s, got %v", be.RetryAfter)
	}
}

func TestAdapterSendMessageRejectsInvalidMarkup(t *testing.T) {
	called := false
	fc := &fakeClient{
		sendFn: func(int64, string, interface{}) (tgbotapi.Message, error) {
			called = true
			return tgbotapi.Message{}, nil
		},
	}
	adapter, err := New(fc, testLogger{t})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = adapter.SendMessage(context.Background(), 1, "text", "bad markup")
	if !botport.IsCode(err, botport.CodeBadPayload) {
		t.Fatalf("expected bad_payload, got %v", err)
	}
	if called {
		t.Fatalf("client must not be called with invalid markup")
	}
}

func TestAdapterCanceledContext(t *testing.T) {
	adapter, err := New(&fakeClient{}, testLogger{t})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := adapter.SendMessage(ctx, 1, "x", nil); !botport.IsCode(err, botport.CodeContextCanceled) {
		t.Fatalf("expected context_canceled, got %v", err)
	}
	if err := adapter.SendTyping(ctx, 1); !botport.IsCode(err, botport.CodeContextCanceled) {
		t.Fatalf("expected context_canceled, got %v", err)
	}
}

func TestAdapterSendTypingClassifiesForbidden(t *testing.T) {
	fc := &fakeClient{
		typingFn: func(int64) error {
			return errors.New("Forbidden: bot was blocked by the user")
		},
	}
	adapter, err := New(fc, testLogger{t})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := adapter.SendTyping(context.Background(), 5); !botport.IsCode(err, botport.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

type fakeClient struct {
	sendFn   func(chatID int64, text string, markup interface{}) (tgbotapi.Message, error)
	typingFn func(chatID int64) error
}

func (f *fakeClient) SendMessage(chatID int64, text string, markup interface{}) (tgbotapi.Message, error) {
	if f.sendFn == nil {
		return tgbotapi.Message{}, nil
	}
	return f.sendFn(chatID, text, markup)
}

func (f *fakeClient) SendTypingAction(chatID int64) error {
	if f.typingFn == nil {
		return nil
	}
	return f.typingFn(chatID)
}

type testLogger struct {
	t *testing.T
}

func (l testLogger) Printf(format string, args ...any) {
	l.t.Logf(format, args...)
}
