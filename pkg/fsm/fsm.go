package fsm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"time"

	"bottlecangowhere/pkg/config"
	"bottlecangowhere/pkg/events"
	"bottlecangowhere/pkg/finder"
	"bottlecangowhere/pkg/geo"
	"bottlecangowhere/pkg/geocoder"
	"bottlecangowhere/pkg/journal"
	"bottlecangowhere/pkg/metrics"
	"bottlecangowhere/pkg/ports/botport"
	"bottlecangowhere/pkg/registry"
	"bottlecangowhere/pkg/state"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MachineRegistry is the part of the registry the dialogs read and mutate.
type MachineRegistry interface {
	finder.Source
	SetStatus(name string, status registry.Status) (registry.Status, error)
}

// Journal records accepted reports and confirmed reminders.
type Journal interface {
	RecordReport(ctx context.Context, r journal.Report) error
	SaveReminder(ctx context.Context, r journal.Reminder) error
}

// Deps wires a Handler. Journal, Events and Metrics are optional.
type Deps struct {
	Bot      botport.BotPort
	Store    *state.Store
	Registry MachineRegistry
	Geocoder geocoder.Geocoder
	Journal  Journal
	Events   events.Publisher
	Metrics  *metrics.Metrics
	Config   *config.BotConfig
}

// Handler runs the dialogs of every session.
type Handler struct {
	bot      botport.BotPort
	store    *state.Store
	registry MachineRegistry
	finder   *finder.Finder
	geocoder geocoder.Geocoder
	journal  Journal
	events   events.Publisher
	metrics  *metrics.Metrics
	cfg      *config.BotConfig
}

func NewHandler(d Deps) (*Handler, error) {
	switch {
	case d.Bot == nil:
		return nil, fmt.Errorf("fsm: bot port is nil")
	case d.Store == nil:
		return nil, fmt.Errorf("fsm: store is nil")
	case d.Registry == nil:
		return nil, fmt.Errorf("fsm: registry is nil")
	case d.Geocoder == nil:
		return nil, fmt.Errorf("fsm: geocoder is nil")
	}
	cfg := d.Config
	if cfg == nil {
		cfg = config.Default()
	}
	return &Handler{
		bot:      d.Bot,
		store:    d.Store,
		registry: d.Registry,
		finder:   finder.New(d.Registry),
		geocoder: d.Geocoder,
		journal:  d.Journal,
		events:   d.Events,
		metrics:  d.Metrics,
		cfg:      cfg,
	}, nil
}

// Input is one user message inside a flow: either text or a shared location.
type Input struct {
	Text     string
	Location *geo.Point
}

type Reply struct {
	Text   string
	Markup interface{}
}

// Outcome is what a step produced. Done means the flow reached a terminal state.
type Outcome struct {
	Replies []Reply
	Done    bool
	Result  string
}

func reply(text string, markup interface{}) Outcome {
	return Outcome{Replies: []Reply{{Text: text, Markup: markup}}}
}

func finished(o Outcome) Outcome {
	return finishedWith(FlowOutcomeCompleted, o)
}

func finishedWith(result string, o Outcome) Outcome {
	o.Done = true
	o.Result = result
	return o
}

// Step feeds in to the session's active flow. Callers must hold sess.Mu.
// The flow is cleared once it reaches a terminal state.
func (h *Handler) Step(ctx context.Context, sess *state.Session, in Input) (Outcome, error) {
	in.Text = strings.TrimSpace(in.Text)

	var (
		out Outcome
		err error
	)
	switch flow := sess.Flow.(type) {
	case nil:
		return reply(msgUseStart, nil), nil
	case *state.FindFlow:
		out, err = h.stepFind(ctx, sess, flow, in)
	case *state.ReportFlow:
		out, err = h.stepReport(ctx, sess, flow, in)
	case *state.ReminderFlow:
		out, err = h.stepReminder(ctx, sess, flow, in)
	default:
		return Outcome{}, fmt.Errorf("unknown flow type %T", flow)
	}
	if err != nil {
		return Outcome{}, err
	}
	if out.Done {
		h.finish(sess, out.Result)
	}
	return out, nil
}

// Command runs a slash command. Flow entry commands replace the active flow;
// every other command cancels it first. Callers must hold sess.Mu.
func (h *Handler) Command(sess *state.Session, command string) Outcome {
	switch command {
	case CommandFind:
		h.abandon(sess)
		return h.startFind(sess)
	case CommandReport:
		h.abandon(sess)
		return h.startReport(sess)
	case CommandSet:
		h.abandon(sess)
		return h.startReminder(sess)
	}

	h.abandon(sess)
	switch command {
	case CommandStart:
		return reply(msgWelcome, startKeyboard())
	case CommandAbout:
		return reply(msgAbout, nil)
	case CommandCancel:
		return reply(msgCancelled, removeKeyboard())
	default:
		return reply(msgUseStart, nil)
	}
}

func (h *Handler) abandon(sess *state.Session) {
	if sess.Flow == nil {
		return
	}
	log.Printf("[abandon] User %d left %s flow in state %s", sess.UserID, sess.Flow.Name(), sess.CurrentState())
	h.finish(sess, FlowOutcomeCancelled)
}

func (h *Handler) finish(sess *state.Session, result string) {
	var took time.Duration
	if !sess.StartedAt.IsZero() {
		took = time.Since(sess.StartedAt)
	}
	log.Printf("[finish] User %d %s flow %s after %s", sess.UserID, sess.Flow.Name(), result, took.Round(time.Millisecond))
	h.metrics.FlowFinished(sess.Flow.Name(), result, took)
	sess.Clear()
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil {
		log.Printf("Ignoring update type: %d", update.UpdateID)
		h.metrics.Update("ignored")
		return
	}
	if message.From == nil || message.Chat == nil {
		log.Printf("Warning: Received message with nil From or Chat field")
		h.metrics.Update("ignored")
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID
	userName := message.From.FirstName
	if message.From.LastName != "" {
		userName += " " + message.From.LastName
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[HandleUpdate] panic handling update %d for user %d chat %d: %v\n%s", update.UpdateID, userID, chatID, r, debug.Stack())
			h.metrics.HandlerError()
			h.sendGenericError(ctx, chatID)
		}
	}()

	sess := h.store.GetOrCreateSession(userID, userName, chatID)
	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	var (
		out Outcome
		err error
	)
	switch {
	case message.IsCommand():
		h.metrics.Update("command")
		log.Printf("[HandleUpdate] User %d command /%s (flow state %q)", userID, message.Command(), sess.CurrentState())
		out = h.Command(sess, strings.ToLower(message.Command()))
	case message.Location != nil:
		h.metrics.Update("location")
		out, err = h.Step(ctx, sess, Input{Location: &geo.Point{Lat: message.Location.Latitude, Lon: message.Location.Longitude}})
	default:
		h.metrics.Update("text")
		out, err = h.Step(ctx, sess, Input{Text: message.Text})
	}
	if err != nil {
		log.Printf("[HandleUpdate] Error handling update %d for user %d chat %d in state %q: %v", update.UpdateID, userID, chatID, sess.CurrentState(), err)
		h.metrics.HandlerError()
		h.sendGenericError(ctx, chatID)
		return
	}

	h.send(ctx, chatID, out)
}

// maxRetryAfter caps how long a rate-limited reply waits before its retry.
const maxRetryAfter = 30 * time.Second

func (h *Handler) send(ctx context.Context, chatID int64, out Outcome) {
	for _, r := range out.Replies {
		if err := h.sendReply(ctx, chatID, r); err != nil {
			return
		}
	}
}

// sendReply delivers one reply. A rate-limited send is retried once after
// the transport's RetryAfter.
func (h *Handler) sendReply(ctx context.Context, chatID int64, r Reply) error {
	_, err := h.bot.SendMessage(ctx, chatID, r.Text, r.Markup)
	var be *botport.BotError
	if botport.IsCode(err, botport.CodeRateLimited) && errors.As(err, &be) {
		wait := min(max(be.RetryAfter, 0), maxRetryAfter)
		log.Printf("[send] Rate limited on chat %d, retrying in %s", chatID, wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			h.metrics.SendFailure(botport.CodeRateLimited)
			return ctx.Err()
		case <-timer.C:
		}
		_, err = h.bot.SendMessage(ctx, chatID, r.Text, r.Markup)
	}
	if err == nil {
		return nil
	}

	code := "unknown"
	if errors.As(err, &be) && be.Code != "" {
		code = be.Code
	}
	h.metrics.SendFailure(code)
	if botport.IsCode(err, botport.CodeForbidden) {
		log.Printf("[send] Chat %d blocked the bot or is unreachable, dropping reply", chatID)
	} else {
		log.Printf("[send] Error sending reply to chat %d: %v", chatID, err)
	}
	return err
}

func (h *Handler) sendGenericError(ctx context.Context, chatID int64) {
	if chatID == 0 {
		return
	}
	_ = h.sendReply(ctx, chatID, Reply{Text: msgGenericError})
}
