package state

import "github.com/looplab/fsm"

type FSMCreator interface {
	NewFindFSM() *fsm.FSM
	NewReportFSM() *fsm.FSM
	NewReminderFSM() *fsm.FSM
}
