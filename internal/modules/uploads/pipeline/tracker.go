package pipeline

import "sync"

// Tracker hands out attempt tokens per field key. Only one attempt per key
// may be in flight, and events of an attempt that is no longer current are
// dropped.
type Tracker struct {
	mu     sync.Mutex
	seq    uint64
	active map[string]uint64
}

func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]uint64)}
}

// Attempt is one upload to a field key.
type Attempt struct {
	Key   string
	Token uint64
	t     *Tracker
}

// Begin starts an attempt for key, or fails with ErrUploadInFlight.
func (t *Tracker) Begin(key string) (*Attempt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.active[key]; busy {
		return nil, ErrUploadInFlight
	}
	t.seq++
	t.active[key] = t.seq
	return &Attempt{Key: key, Token: t.seq, t: t}, nil
}

// Abandon forgets the current attempt for key so a new one can begin. Late
// events of the abandoned attempt are dropped.
func (t *Tracker) Abandon(key string) {
	t.mu.Lock()
	delete(t.active, key)
	t.mu.Unlock()
}

// InFlight reports whether key has a current attempt.
func (t *Tracker) InFlight(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[key]
	return ok
}

// Current reports whether a is still the latest attempt for its key.
func (a *Attempt) Current() bool {
	a.t.mu.Lock()
	defer a.t.mu.Unlock()
	return a.t.active[a.Key] == a.Token
}

// End releases the key if a is still current.
func (a *Attempt) End() {
	a.t.mu.Lock()
	defer a.t.mu.Unlock()
	if a.t.active[a.Key] == a.Token {
		delete(a.t.active, a.Key)
	}
}
