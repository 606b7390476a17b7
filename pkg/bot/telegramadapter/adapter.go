package telegramadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"bottlecangowhere/pkg/bot"
	"bottlecangowhere/pkg/ports/botport"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Package telegramadapter implements botport.BotPort using the Telegram client.

// Logger defines the minimal logging interface used by the adapter.
type Logger interface {
	Printf(format string, args ...any)
}

type telegramClient interface {
	SendMessage(chatID int64, text string, markup interface{}) (tgbotapi.Message, error)
	SendTypingAction(chatID int64) error
}

// Adapter wraps a Telegram client and satisfies botport.BotPort.
type Adapter struct {
	client telegramClient
	logger Logger
}

var _ telegramClient = (*bot.Client)(nil)
var _ botport.BotPort = (*Adapter)(nil)

// New constructs a Telegram adapter with the provided bot client and logger.
func New(client telegramClient, logger Logger) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("telegramadapter: client is nil")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{
		client: client,
		logger: logger,
	}, nil
}

// SendMessage dispatches a new Telegram message and returns a botport.BotMessage record.
func (a *Adapter) SendMessage(ctx context.Context, chatID int64, text string, markup interface{}) (botport.BotMessage, error) {
	if err := ctx.Err(); err != nil {
		return botport.BotMessage{}, wrapContextError("send_message", err)
	}
	if err := checkMarkup(markup); err != nil {
		return botport.BotMessage{}, botport.NewBotError("send_message", botport.CodeBadPayload, err)
	}
	msg, err := a.client.SendMessage(chatID, text, markup)
	if err != nil {
		return botport.BotMessage{}, a.wrapAndLogError("send_message", chatID, err)
	}
	bm := toBotMessage(msg, markup)
	a.log("send_message", map[string]any{"chat_id": bm.ChatID, "message_id": bm.MessageID})
	return bm, nil
}

// SendTyping shows the typing indicator in chatID.
func (a *Adapter) SendTyping(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return wrapContextError("send_typing", err)
	}
	if err := a.client.SendTypingAction(chatID); err != nil {
		return a.wrapAndLogError("send_typing", chatID, err)
	}
	return nil
}

func (a *Adapter) wrapAndLogError(op string, chatID int64, err error) error {
	wrapped := wrapTelegramError(op, err)
	a.log(op, map[string]any{
		"chat_id": chatID,
		"code":    getBotErrorCode(wrapped),
		"error":   err.Error(),
	})
	return wrapped
}

func (a *Adapter) log(op string, attrs map[string]any) {
	if a.logger == nil {
		return
	}
	a.logger.Printf("botport op=%s attrs=%v", op, attrs)
}

func checkMarkup(markup interface{}) error {
	switch markup.(type) {
	case nil,
		tgbotapi.ReplyKeyboardMarkup, *tgbotapi.ReplyKeyboardMarkup,
		tgbotapi.ReplyKeyboardRemove, *tgbotapi.ReplyKeyboardRemove,
		tgbotapi.InlineKeyboardMarkup, *tgbotapi.InlineKeyboardMarkup:
		return nil
	default:
		return fmt.Errorf("unsupported markup type %T", markup)
	}
}

func toBotMessage(msg tgbotapi.Message, markup interface{}) botport.BotMessage {
	payload := msg.Text
	if payload == "" {
		payload = msg.Caption
	}
	return botport.BotMessage{
		ChatID:    chatIDFromMessage(msg),
		MessageID: msg.MessageID,
		Transport: "telegram",
		Payload:   payload,
		Meta:      metaFromMarkup(markup),
	}
}

func metaFromMarkup(markup interface{}) map[string]string {
	if markup == nil {
		return nil
	}
	meta := map[string]string{
		"markup_type": fmt.Sprintf("%T", markup),
	}
	if labels, ok := keyboardLabels(markup); ok {
		if raw, err := json.Marshal(labels); err == nil {
			meta["buttons"] = string(raw)
		}
	}
	return meta
}

// keyboardLabels flattens the button texts of a reply keyboard.
func keyboardLabels(markup interface{}) ([]string, bool) {
	var kb *tgbotapi.ReplyKeyboardMarkup
	switch v := markup.(type) {
	case tgbotapi.ReplyKeyboardMarkup:
		kb = &v
	case *tgbotapi.ReplyKeyboardMarkup:
		kb = v
	default:
		return nil, false
	}
	if kb == nil {
		return nil, false
	}
	var labels []string
	for _, row := range kb.Keyboard {
		for _, btn := range row {
			labels = append(labels, btn.Text)
		}
	}
	return labels, true
}

func chatIDFromMessage(msg tgbotapi.Message) int64 {
	if msg.Chat != nil {
		return msg.Chat.ID
	}
	return 0
}

func wrapContextError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return &botport.BotError{Op: op, Code: botport.CodeContextCanceled, Wrapped: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &botport.BotError{Op: op, Code: botport.CodeContextDeadline, Wrapped: err}
	}
	return &botport.BotError{Op: op, Code: "context_error", Wrapped: err}
}

func wrapTelegramError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return wrapContextError(op, err)
	}
	code, retry := classifyTelegramError(err)
	return &botport.BotError{
		Op:         op,
		Code:       code,
		RetryAfter: retry,
		Wrapped:    err,
	}
}

var retryAfterRegex = regexp.MustCompile(`(?i)retry after (\d+)`)

func classifyTelegramError(err error) (string, time.Duration) {
	if err == nil {
		return "unknown", 0
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "too many requests"):
		return botport.CodeRateLimited, extractRetryAfter(msg)
	case strings.Contains(msg, "bot was blocked"), strings.Contains(msg, "forbidden"):
		return botport.CodeForbidden, 0
	case strings.Contains(msg, "bad request"):
		return botport.CodeBadRequest, 0
	default:
		return "unknown", 0
	}
}

func extractRetryAfter(msg string) time.Duration {
	matches := retryAfterRegex.FindStringSubmatch(msg)
	if len(matches) != 2 {
		return 0
	}
	seconds, err := time.ParseDuration(matches[1] + "s")
	if err != nil {
		return 0
	}
	return seconds
}

func getBotErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var be *botport.BotError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
