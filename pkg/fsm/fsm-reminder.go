package fsm

import (
	"context"
	"fmt"
	"log"

	"bottlecangowhere/pkg/journal"
	"bottlecangowhere/pkg/state"

	"github.com/looplab/fsm"
)

func NewReminderFSM(initialState string) *fsm.FSM {
	callbacks := fsm.Callbacks{
		"enter_state": logTransition,
	}

	events := fsm.Events{
		{Name: EventFrequencyChosen, Src: []string{StateReminderAwaitingFrequency}, Dst: StateReminderAwaitingDay},
		{Name: EventUnsupported, Src: []string{StateReminderAwaitingFrequency}, Dst: StateReminderDone},
		{Name: EventDayChosen, Src: []string{StateReminderAwaitingDay}, Dst: StateReminderAwaitingTime},
		{Name: EventTimeChosen, Src: []string{StateReminderAwaitingTime}, Dst: StateReminderDone},
	}

	return fsm.NewFSM(initialState, events, callbacks)
}

func (h *Handler) startReminder(sess *state.Session) Outcome {
	h.store.StartReminder(sess)
	return reply(msgReminderPrompt, frequencyKeyboard())
}

func (h *Handler) stepReminder(ctx context.Context, sess *state.Session, flow *state.ReminderFlow, in Input) (Outcome, error) {
	switch current := flow.FSM.Current(); current {
	case StateReminderAwaitingFrequency:
		if in.Text != ButtonMonthly {
			if err := fire(ctx, flow.FSM, EventUnsupported); err != nil {
				return Outcome{}, fmt.Errorf("reminder flow: %w", err)
			}
			return finishedWith(FlowOutcomeAborted, reply(msgReminderUnsupported, removeKeyboard())), nil
		}
		flow.Frequency = in.Text
		if err := fire(ctx, flow.FSM, EventFrequencyChosen); err != nil {
			return Outcome{}, fmt.Errorf("reminder flow: %w", err)
		}
		return reply(msgReminderMonthly, removeKeyboard()), nil

	case StateReminderAwaitingDay:
		day, ok := ValidateReminderDay(in.Text)
		if !ok {
			return reply(msgReminderInvalidDay, nil), nil
		}
		flow.Day = day
		if err := fire(ctx, flow.FSM, EventDayChosen); err != nil {
			return Outcome{}, fmt.Errorf("reminder flow: %w", err)
		}
		return reply(msgReminderAskTime, nil), nil

	case StateReminderAwaitingTime:
		if !ValidateReminderTime(in.Text) {
			return reply(msgReminderInvalidTime, nil), nil
		}
		flow.Time = in.Text
		if err := fire(ctx, flow.FSM, EventTimeChosen); err != nil {
			return Outcome{}, fmt.Errorf("reminder flow: %w", err)
		}
		h.saveReminder(ctx, sess, flow)
		text, err := renderReminderDone(flow.Day, flow.Time)
		if err != nil {
			return Outcome{}, err
		}
		return finished(reply(text, nil)), nil

	default:
		return Outcome{}, fmt.Errorf("reminder flow in unexpected state %q", current)
	}
}

func (h *Handler) saveReminder(ctx context.Context, sess *state.Session, flow *state.ReminderFlow) {
	if h.journal == nil {
		return
	}
	err := h.journal.SaveReminder(ctx, journal.Reminder{
		UserID:    sess.UserID,
		ChatID:    sess.ChatID,
		Frequency: flow.Frequency,
		Day:       flow.Day,
		Time:      flow.Time,
	})
	if err != nil {
		log.Printf("[saveReminder] Error saving reminder for user %d: %v", sess.UserID, err)
	}
}
