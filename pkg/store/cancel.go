package store

// SetCancel stores a cancellation handle for aggregateID, overwriting
// any previous handle. Executors install this at startup (§4.6/§4.7).
func (s *Store) SetCancel(aggregateID string, canceller func()) {
	s.cancelsMu.Lock()
	defer s.cancelsMu.Unlock()
	s.cancels[aggregateID] = canceller
}

// ClearCancel removes the cancellation handle once the executor exits.
func (s *Store) ClearCancel(aggregateID string) {
	s.cancelsMu.Lock()
	defer s.cancelsMu.Unlock()
	delete(s.cancels, aggregateID)
}

// CancelRun invokes the run's cancellation handle, if any.
func (s *Store) CancelRun(runID string) error {
	s.invokeCancel(runID)
	_, err := s.UpdateRun(runID, func(r *Run) {
		if r.Status == RunRunning || r.Status == RunWaitingApproval || r.Status == RunQueued {
			r.Status = RunCanceled
		}
	})
	return err
}

// CancelSession invokes the session's cancellation handle and
// transitions the head to canceled if still active/waiting.
func (s *Store) CancelSession(sessionID string) error {
	s.invokeCancel(sessionID)
	_, err := s.UpdateSession(sessionID, func(sess *Session) {
		if sess.Status == SessionActive || sess.Status == SessionWaitingApproval {
			sess.Status = SessionCanceled
		}
	})
	return err
}

func (s *Store) invokeCancel(aggregateID string) {
	s.cancelsMu.Lock()
	canceller, ok := s.cancels[aggregateID]
	s.cancelsMu.Unlock()
	if ok && canceller != nil {
		canceller()
	}
}
