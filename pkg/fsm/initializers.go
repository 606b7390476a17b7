package fsm

import (
	"bottlecangowhere/pkg/state"

	"github.com/looplab/fsm"
)

type fsmCreatorImpl struct{}

func (fc *fsmCreatorImpl) NewFindFSM() *fsm.FSM {
	return NewFindFSM(StateFindAwaitingLocation)
}

func (fc *fsmCreatorImpl) NewReportFSM() *fsm.FSM {
	return NewReportFSM(StateReportAwaitingLocation)
}

func (fc *fsmCreatorImpl) NewReminderFSM() *fsm.FSM {
	return NewReminderFSM(StateReminderAwaitingFrequency)
}

func NewFSMCreator() state.FSMCreator {
	return &fsmCreatorImpl{}
}
