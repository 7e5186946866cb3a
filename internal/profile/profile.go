/*
Package profile holds the self-reported health profile of a single UI session.
A profile lives only in memory and is replaced wholesale on every update.
*/
package profile

import (
	"strings"
	"sync"
)

// HealthProfile is the user's self-reported health blueprint.
type HealthProfile struct {
	Goals        string   `json:"goals"`
	Conditions   string   `json:"conditions"`
	Routines     string   `json:"routines"`
	Preferences  []string `json:"preferences"`
	Restrictions []string `json:"restrictions"`
}

// Default returns the sample profile every new session starts with.
func Default() HealthProfile {
	return HealthProfile{
		Goals:        "Lose 10 pounds in 3 months, Improve cardiovascular health",
		Conditions:   "None",
		Routines:     "30-minute walk 3x/week",
		Preferences:  []string{"Vegetarian", "Low carb"},
		Restrictions: []string{"No dairy", "No nuts"},
	}
}

// IsEmpty reports whether no field carries any content.
// Blank strings and lists made only of blank entries count as empty.
func (p HealthProfile) IsEmpty() bool {
	for _, s := range []string{p.Goals, p.Conditions, p.Routines} {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return blankList(p.Preferences) && blankList(p.Restrictions)
}

// Clone returns a deep copy so callers never share slices with the store.
func (p HealthProfile) Clone() HealthProfile {
	out := p
	out.Preferences = cloneList(p.Preferences)
	out.Restrictions = cloneList(p.Restrictions)
	return out
}

func blankList(items []string) bool {
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			return false
		}
	}
	return true
}

func cloneList(items []string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, len(items))
	copy(out, items)
	return out
}

// ParseList splits a textarea value into list entries, one per line.
// Entries are trimmed and blank lines are dropped.
func ParseList(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

/* =================================================================================
									STORE
=================================================================================*/

// Store holds the profile of one session.
type Store struct {
	mu      sync.RWMutex
	current *HealthProfile
}

// NewStore returns an empty store. Defaults are created on first Get.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current profile, creating the defaults on first access.
func (s *Store) Get() HealthProfile {
	s.mu.RLock()
	if s.current != nil {
		p := s.current.Clone()
		s.mu.RUnlock()
		return p
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		d := Default()
		s.current = &d
	}
	return s.current.Clone()
}

// Set replaces the profile. Nothing from the previous record is kept.
func (s *Store) Set(p HealthProfile) {
	next := p.Clone()
	s.mu.Lock()
	s.current = &next
	s.mu.Unlock()
}
