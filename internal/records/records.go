// Package records keeps the best (fewest attempts) result for each game mode.
package records

import (
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/guessbot/internal/session"
)

// NoHolder is the holder name of a record that was never set.
const NoHolder = "none"

// HolderPolicy decides whose name is stored when a record improves.
type HolderPolicy string

const (
	// HolderFirst keeps the first name ever stored for a mode. Later, better
	// results still lower the attempt count but leave the name alone.
	HolderFirst HolderPolicy = "first"
	// HolderLatest stores the name of whoever set the current record.
	HolderLatest HolderPolicy = "latest"
)

// ParseHolderPolicy validates a policy name from configuration.
func ParseHolderPolicy(s string) (HolderPolicy, error) {
	switch HolderPolicy(s) {
	case HolderFirst, HolderLatest:
		return HolderPolicy(s), nil
	case "":
		return HolderFirst, nil
	default:
		return "", fmt.Errorf("unknown record holder policy %q", s)
	}
}

// Entry is the record for one mode.
type Entry struct {
	Set      bool      `json:"set"`
	Attempts int       `json:"attempts,omitempty"`
	Holder   string    `json:"holder"`
	SetAt    time.Time `json:"set_at"`
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries map[session.Mode]Entry
	policy  HolderPolicy
	clock   quartz.Clock
}

// NewTracker creates a tracker with unset entries for both modes.
func NewTracker(policy HolderPolicy, clock quartz.Clock) *Tracker {
	if policy == "" {
		policy = HolderFirst
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Tracker{
		entries: map[session.Mode]Entry{
			session.ModeHumanPicks: {Holder: NoHolder},
			session.ModeAgentPicks: {Holder: NoHolder},
		},
		policy: policy,
		clock:  clock,
	}
}

// TryRecord stores attempts as the new record for mode if it is strictly
// better than the current one, and reports whether it did.
func (t *Tracker) TryRecord(mode session.Mode, attempts int, holder string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[mode]
	if !ok {
		return false
	}
	if e.Set && attempts >= e.Attempts {
		return false
	}

	e.Set = true
	e.Attempts = attempts
	e.SetAt = t.clock.Now()
	if t.policy == HolderLatest || e.Holder == NoHolder {
		e.Holder = holder
	}
	t.entries[mode] = e
	return true
}

// Get returns the record for mode.
func (t *Tracker) Get(mode session.Mode) Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[mode]
}

// Snapshot returns a copy of both records.
func (t *Tracker) Snapshot() map[session.Mode]Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[session.Mode]Entry, len(t.entries))
	for m, e := range t.entries {
		out[m] = e
	}
	return out
}

// Policy returns the configured holder policy.
func (t *Tracker) Policy() HolderPolicy {
	return t.policy
}
