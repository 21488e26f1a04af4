package ledger

import "time"

// SetClock is a test helper that replaces the service's time source so
// history timestamps are deterministic.
func SetClock(s *Service, now func() time.Time) {
	s.now = now
}
