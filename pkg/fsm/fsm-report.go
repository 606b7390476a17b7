package fsm

import (
	"context"
	"errors"
	"fmt"
	"log"

	"bottlecangowhere/pkg/events"
	"bottlecangowhere/pkg/finder"
	"bottlecangowhere/pkg/journal"
	"bottlecangowhere/pkg/registry"
	"bottlecangowhere/pkg/state"

	"github.com/looplab/fsm"
)

func NewReportFSM(initialState string) *fsm.FSM {
	callbacks := fsm.Callbacks{
		"enter_state": logTransition,
	}

	events := fsm.Events{
		{Name: EventLocationShared, Src: []string{StateReportAwaitingLocation}, Dst: StateReportAwaitingMachine},
		{Name: EventMachineChosen, Src: []string{StateReportAwaitingMachine}, Dst: StateReportAwaitingStatus},
		{Name: EventChooseAgain, Src: []string{StateReportAwaitingStatus}, Dst: StateReportAwaitingMachine},
		{Name: EventStatusReported, Src: []string{StateReportAwaitingStatus}, Dst: StateReportDone},
	}

	return fsm.NewFSM(initialState, events, callbacks)
}

func (h *Handler) startReport(sess *state.Session) Outcome {
	h.store.StartReport(sess)
	return reply(msgReportPrompt, shareLocationKeyboard())
}

func (h *Handler) stepReport(ctx context.Context, sess *state.Session, flow *state.ReportFlow, in Input) (Outcome, error) {
	switch current := flow.FSM.Current(); current {
	case StateReportAwaitingLocation:
		return h.reportLocation(ctx, flow, in)
	case StateReportAwaitingMachine:
		return h.reportMachine(ctx, flow, in)
	case StateReportAwaitingStatus:
		return h.reportStatus(ctx, sess, flow, in)
	default:
		return Outcome{}, fmt.Errorf("report flow in unexpected state %q", current)
	}
}

func (h *Handler) reportLocation(ctx context.Context, flow *state.ReportFlow, in Input) (Outcome, error) {
	if in.Location == nil || !in.Location.Valid() {
		return reply(msgReportNeedLocation, shareLocationKeyboard()), nil
	}

	candidates := h.finder.FindNearest(in.Location.Lat, in.Location.Lon, h.cfg.Finder.Results)
	if len(candidates) == 0 {
		return finished(reply(msgNoMachines, removeKeyboard())), nil
	}
	flow.Origin = *in.Location
	flow.Candidates = candidates

	if err := fire(ctx, flow.FSM, EventLocationShared); err != nil {
		return Outcome{}, fmt.Errorf("report flow: %w", err)
	}
	return reply(renderCandidatesPrompt(len(candidates)), singleColumnKeyboard(flow.CandidateNames())), nil
}

func (h *Handler) reportMachine(ctx context.Context, flow *state.ReportFlow, in Input) (Outcome, error) {
	if in.Location != nil || !flow.HasCandidate(in.Text) {
		return reply(msgReportChooseMachine, singleColumnKeyboard(flow.CandidateNames())), nil
	}
	flow.Selected = in.Text

	if err := fire(ctx, flow.FSM, EventMachineChosen); err != nil {
		return Outcome{}, fmt.Errorf("report flow: %w", err)
	}
	text, err := renderSelected(flow.Selected)
	if err != nil {
		return Outcome{}, err
	}
	return reply(text, statusKeyboard()), nil
}

func (h *Handler) reportStatus(ctx context.Context, sess *state.Session, flow *state.ReportFlow, in Input) (Outcome, error) {
	status, err := registry.ParseStatus(in.Text)
	if in.Location != nil || err != nil {
		return reply(msgReportChooseStatus, statusKeyboard()), nil
	}

	previous, err := h.registry.SetStatus(flow.Selected, status)
	if errors.Is(err, registry.ErrNotFound) {
		log.Printf("[reportStatus] User %d reported on missing machine %q, asking to choose again", sess.UserID, flow.Selected)
		flow.Candidates = dropCandidate(flow.Candidates, flow.Selected)
		flow.Selected = ""
		if len(flow.Candidates) == 0 {
			return finished(reply(msgNoMachines, removeKeyboard())), nil
		}
		if err := fire(ctx, flow.FSM, EventChooseAgain); err != nil {
			return Outcome{}, fmt.Errorf("report flow: %w", err)
		}
		return reply(msgReportChooseAgain, singleColumnKeyboard(flow.CandidateNames())), nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("set status of %q: %w", flow.Selected, err)
	}
	flow.Status = status
	log.Printf("[reportStatus] User %d set %q: %s -> %s", sess.UserID, flow.Selected, previous, status)
	h.recordReport(ctx, sess, flow.Selected, previous, status)

	if err := fire(ctx, flow.FSM, EventStatusReported); err != nil {
		return Outcome{}, fmt.Errorf("report flow: %w", err)
	}

	var alternatives []finder.Result
	if !status.IsWorking() {
		alternatives = h.finder.FindAlternatives(flow.Selected, flow.Origin.Lat, flow.Origin.Lon, h.cfg.Finder.AlternativeCount())
	}
	text, err := renderReportResult(flow.Selected, status, alternatives, h.cfg.Finder.DirectionsBaseURL)
	if err != nil {
		return Outcome{}, err
	}
	return finished(reply(text, removeKeyboard())), nil
}

// recordReport fans an accepted report out to the journal, the event bus and
// metrics. Failures are logged only.
func (h *Handler) recordReport(ctx context.Context, sess *state.Session, machine string, previous, status registry.Status) {
	h.metrics.StatusReport(string(status))

	if h.journal != nil {
		err := h.journal.RecordReport(ctx, journal.Report{
			Machine:  machine,
			Previous: string(previous),
			Status:   string(status),
			UserID:   sess.UserID,
		})
		if err != nil {
			log.Printf("[recordReport] Error journaling report for user %d: %v", sess.UserID, err)
		}
	}

	if h.events != nil {
		change := events.NewStatusChange(machine, string(previous), string(status), sess.UserID)
		if err := h.events.PublishStatusChange(ctx, change); err != nil {
			log.Printf("[recordReport] Error publishing status change %s: %v", change.ID, err)
		}
	}
}

func dropCandidate(candidates []finder.Result, name string) []finder.Result {
	out := make([]finder.Result, 0, len(candidates))
	for _, c := range candidates {
		if c.Machine.Name != name {
			out = append(out, c)
		}
	}
	return out
}
