package server

import (
	"fmt"
	"time"
)

func revealTimerKey(roomID uint) string {
	return fmt.Sprintf("reveal-%d", roomID)
}

// setTimer schedules fn after d, replacing any pending timer under the
// same key.
func (s *Server) setTimer(key string, d time.Duration, fn func()) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if existing, ok := s.timers[key]; ok {
		existing.Stop()
	}
	s.timers[key] = time.AfterFunc(d, fn)
}

func (s *Server) cancelTimer(key string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
	}
}
