package fsm

import (
	"context"
	"fmt"
	"log"

	"bottlecangowhere/pkg/geo"
	"bottlecangowhere/pkg/geocoder"
	"bottlecangowhere/pkg/state"

	"github.com/looplab/fsm"
)

func NewFindFSM(initialState string) *fsm.FSM {
	callbacks := fsm.Callbacks{
		"enter_state": logTransition,
	}

	events := fsm.Events{
		{Name: EventLocationResolved, Src: []string{StateFindAwaitingLocation}, Dst: StateFindDone},
	}

	return fsm.NewFSM(initialState, events, callbacks)
}

func (h *Handler) startFind(sess *state.Session) Outcome {
	h.store.StartFind(sess)
	return reply(msgFindPrompt, shareLocationKeyboard())
}

func (h *Handler) stepFind(ctx context.Context, sess *state.Session, flow *state.FindFlow, in Input) (Outcome, error) {
	if current := flow.FSM.Current(); current != StateFindAwaitingLocation {
		return Outcome{}, fmt.Errorf("find flow in unexpected state %q", current)
	}

	origin, ok := h.resolveOrigin(ctx, sess, in)
	if !ok {
		return reply(msgFindRetry, nil), nil
	}

	results := h.finder.FindNearest(origin.Lat, origin.Lon, h.cfg.Finder.Results)
	if err := fire(ctx, flow.FSM, EventLocationResolved); err != nil {
		return Outcome{}, fmt.Errorf("find flow: %w", err)
	}
	if len(results) == 0 {
		return finished(reply(msgNoMachines, removeKeyboard())), nil
	}

	text, err := renderNearest(results, h.cfg.Finder.DirectionsBaseURL)
	if err != nil {
		return Outcome{}, err
	}
	log.Printf("[stepFind] User %d: %d machines near (%.5f, %.5f)", sess.UserID, len(results), origin.Lat, origin.Lon)
	return finished(reply(text, removeKeyboard())), nil
}

// resolveOrigin turns a shared location or a free-text query into a point.
// It returns false when the user must try again.
func (h *Handler) resolveOrigin(ctx context.Context, sess *state.Session, in Input) (geo.Point, bool) {
	if in.Location != nil {
		if !in.Location.Valid() {
			log.Printf("[resolveOrigin] User %d shared out of range location %+v", sess.UserID, *in.Location)
			return geo.Point{}, false
		}
		return *in.Location, true
	}

	if err := geocoder.ValidateQuery(in.Text); err != nil {
		h.metrics.Geocode("invalid_query")
		return geo.Point{}, false
	}

	if sess.ChatID != 0 {
		if err := h.bot.SendTyping(ctx, sess.ChatID); err != nil {
			log.Printf("[resolveOrigin] Error sending typing action to chat %d: %v", sess.ChatID, err)
		}
	}

	point, err := h.geocoder.Geocode(ctx, in.Text)
	if err != nil {
		if geocoder.IsLookupFailure(err) {
			h.metrics.Geocode("not_found")
		} else {
			h.metrics.Geocode("error")
		}
		log.Printf("[resolveOrigin] Geocoding %q for user %d failed: %v", in.Text, sess.UserID, err)
		return geo.Point{}, false
	}
	h.metrics.Geocode("ok")
	return point, true
}
