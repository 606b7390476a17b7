package fsm

import (
	"context"
	"errors"
	"log"

	"bottlecangowhere/pkg/registry"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/looplab/fsm"
)

func isNoTransitionError(err error) bool {
	if err == nil {
		return false
	}
	var noTransitionError fsm.NoTransitionError
	return errors.As(err, &noTransitionError)
}

// fire triggers event and treats a refused self-transition as success.
func fire(ctx context.Context, machine *fsm.FSM, event string) error {
	if err := machine.Event(ctx, event); err != nil && !isNoTransitionError(err) {
		return err
	}
	return nil
}

func logTransition(_ context.Context, e *fsm.Event) {
	log.Printf("[fsm] %s: %s -> %s", e.Event, e.Src, e.Dst)
}

func singleColumnKeyboard(labels []string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(label)))
	}
	return oneTime(tgbotapi.NewReplyKeyboard(rows...))
}

func oneTime(kb tgbotapi.ReplyKeyboardMarkup) tgbotapi.ReplyKeyboardMarkup {
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	return kb
}

func startKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return singleColumnKeyboard([]string{"/" + CommandFind, "/" + CommandReport, "/" + CommandSet})
}

func shareLocationKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return oneTime(tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation(ButtonShareLocation)),
	))
}

// statusKeyboard lays the statuses out two per row.
func statusKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(registry.Statuses); i += 2 {
		row := tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(string(registry.Statuses[i])))
		if i+1 < len(registry.Statuses) {
			row = append(row, tgbotapi.NewKeyboardButton(string(registry.Statuses[i+1])))
		}
		rows = append(rows, row)
	}
	return oneTime(tgbotapi.NewReplyKeyboard(rows...))
}

func frequencyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return singleColumnKeyboard([]string{ButtonMonthly})
}

func removeKeyboard() tgbotapi.ReplyKeyboardRemove {
	return tgbotapi.NewRemoveKeyboard(true)
}
