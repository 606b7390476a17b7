package bot

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Client struct {
	api  *tgbotapi.BotAPI
	Self *tgbotapi.User
}

func NewClient(token string, debug bool) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token cannot be empty")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api instance: %w", err)
	}

	api.Debug = debug

	log.Printf("Verifying API token...")
	ok, err := api.GetMe()
	if err != nil {
		return nil, fmt.Errorf("failed to verify bot token with GetMe(): %w", err)
	}
	log.Printf("Token verified successfully.")

	client := &Client{
		api:  api,
		Self: &ok,
	}

	return client, nil
}

// SendMessage sends an HTML formatted message with link previews disabled.
func (c *Client) SendMessage(chatID int64, text string, markup interface{}) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)

	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if markup != nil {
		msg.ReplyMarkup = markup
	}

	sentMsg, err := c.api.Send(msg)
	if err != nil {
		return tgbotapi.Message{}, fmt.Errorf("failed to send message: %w", err)
	}
	return sentMsg, nil
}

func (c *Client) GetUpdatesChan(timeout int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	u.AllowedUpdates = []string{"message"}

	return c.api.GetUpdatesChan(u)
}

// StopReceivingUpdates ends long polling and closes the updates channel.
func (c *Client) StopReceivingUpdates() {
	c.api.StopReceivingUpdates()
}

func (c *Client) SendTypingAction(chatID int64) error {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, err := c.api.Request(action)
	if err != nil {
		return fmt.Errorf("failed to send typing action: %w", err)
	}
	return nil
}
