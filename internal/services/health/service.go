package health

// SessionCounter reports the number of live page sessions.
type SessionCounter interface {
	Len() int
}

// Service encapsulates health-related checks.
type Service struct {
	sessions SessionCounter
}

// NewService constructs a new health service. sessions may be nil.
func NewService(sessions SessionCounter) *Service {
	return &Service{sessions: sessions}
}

// Status returns the health payload.
func (s *Service) Status() map[string]any {
	status := map[string]any{"ok": true}
	if s.sessions != nil {
		status["sessions"] = s.sessions.Len()
	}
	return status
}
