package aggregator

// Smoother keeps an exponential moving average of CPU usage per process name.
//
// Entries are keyed by name, not PID: a restarted process inherits the
// history of its predecessor, and processes sharing a name share one entry.
// With ttl == 0 entries are never evicted.
type Smoother struct {
	alpha   float64
	ttl     int
	window  int
	entries map[string]*emaEntry
}

type emaEntry struct {
	value float64
	seen  int // window of the last update
}

func NewSmoother(alpha float64, ttl int) *Smoother {
	return &Smoother{alpha: alpha, ttl: ttl, entries: make(map[string]*emaEntry)}
}

// Update folds x into the entry for name, seeding it with x on first sight.
func (s *Smoother) Update(name string, x float64) float64 {
	e, ok := s.entries[name]
	if !ok {
		e = &emaEntry{value: x}
		s.entries[name] = e
	}
	e.value = s.alpha*x + (1-s.alpha)*e.value
	e.seen = s.window
	return e.value
}

func (s *Smoother) Value(name string) (float64, bool) {
	e, ok := s.entries[name]
	if !ok {
		return 0, false
	}
	return e.value, true
}

func (s *Smoother) Len() int { return len(s.entries) }

// EndWindow closes the current emission window and forgets processes not
// updated during the last ttl windows.
func (s *Smoother) EndWindow() {
	if s.ttl > 0 {
		for name, e := range s.entries {
			if s.window-e.seen >= s.ttl {
				delete(s.entries, name)
			}
		}
	}
	s.window++
}
