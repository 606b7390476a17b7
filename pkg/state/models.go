package state

import (
	"sync"
	"time"

	"bottlecangowhere/pkg/finder"
	"bottlecangowhere/pkg/geo"
	"bottlecangowhere/pkg/registry"

	"github.com/looplab/fsm"
)

// Flow is the active dialog of a session. A nil Flow means the session is idle.
type Flow interface {
	Name() string
	Machine() *fsm.FSM
}

type FindFlow struct {
	FSM *fsm.FSM
}

func (f *FindFlow) Name() string      { return "find" }
func (f *FindFlow) Machine() *fsm.FSM { return f.FSM }

type ReportFlow struct {
	FSM        *fsm.FSM
	Origin     geo.Point
	Candidates []finder.Result
	Selected   string
	Status     registry.Status
}

func (f *ReportFlow) Name() string      { return "report" }
func (f *ReportFlow) Machine() *fsm.FSM { return f.FSM }

// CandidateNames returns the offered machine names in ranking order.
func (f *ReportFlow) CandidateNames() []string {
	return finder.Names(f.Candidates)
}

// HasCandidate reports whether name exactly matches one of the offered machines.
func (f *ReportFlow) HasCandidate(name string) bool {
	for _, c := range f.Candidates {
		if c.Machine.Name == name {
			return true
		}
	}
	return false
}

type ReminderFlow struct {
	FSM       *fsm.FSM
	Frequency string
	Day       int
	Time      string
}

func (f *ReminderFlow) Name() string      { return "reminder" }
func (f *ReminderFlow) Machine() *fsm.FSM { return f.FSM }

type Session struct {
	UserID    int64
	UserName  string
	ChatID    int64
	Flow      Flow
	StartedAt time.Time
	Mu        sync.Mutex
}

// Idle reports whether no flow is active.
func (s *Session) Idle() bool {
	return s.Flow == nil
}

// CurrentState returns the state of the active flow, or "" when idle.
func (s *Session) CurrentState() string {
	if s.Flow == nil || s.Flow.Machine() == nil {
		return ""
	}
	return s.Flow.Machine().Current()
}

// Clear drops the active flow and its scratch data.
func (s *Session) Clear() {
	s.Flow = nil
	s.StartedAt = time.Time{}
}
