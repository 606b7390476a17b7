package state

import (
	"log"
	"sync"
	"time"
)

type Store struct {
	sessions   map[int64]*Session
	fsmCreator FSMCreator
	mu         sync.Mutex
}

func NewStore(f FSMCreator) *Store {
	return &Store{
		sessions:   make(map[int64]*Session),
		fsmCreator: f,
	}
}

func (s *Store) GetOrCreateSession(userID int64, userName string, chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[userID]
	if exists {
		if sess.UserName != userName {
			log.Printf("Updating username for user %d: '%s' -> '%s'", userID, sess.UserName, userName)
			sess.UserName = userName
		}
		if chatID != 0 {
			sess.ChatID = chatID
		}
		return sess
	}

	log.Printf("Creating new session for user %d ('%s')", userID, userName)
	sess = &Session{
		UserID:   userID,
		UserName: userName,
		ChatID:   chatID,
	}
	s.sessions[userID] = sess
	return sess
}

// Len returns the number of known sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartFind replaces the session's flow with a fresh find flow.
// Callers must hold sess.Mu.
func (s *Store) StartFind(sess *Session) *FindFlow {
	flow := &FindFlow{FSM: s.fsmCreator.NewFindFSM()}
	s.replace(sess, flow)
	return flow
}

// StartReport replaces the session's flow with a fresh report flow.
// Callers must hold sess.Mu.
func (s *Store) StartReport(sess *Session) *ReportFlow {
	flow := &ReportFlow{FSM: s.fsmCreator.NewReportFSM()}
	s.replace(sess, flow)
	return flow
}

// StartReminder replaces the session's flow with a fresh reminder flow.
// Callers must hold sess.Mu.
func (s *Store) StartReminder(sess *Session) *ReminderFlow {
	flow := &ReminderFlow{FSM: s.fsmCreator.NewReminderFSM()}
	s.replace(sess, flow)
	return flow
}

func (s *Store) replace(sess *Session, flow Flow) {
	if sess.Flow != nil {
		log.Printf("Session %d: replacing %s flow in state %s with %s", sess.UserID, sess.Flow.Name(), sess.CurrentState(), flow.Name())
	}
	sess.Flow = flow
	sess.StartedAt = time.Now()
}
