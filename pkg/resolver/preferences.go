package resolver

import (
	"strings"
	"sync"
	"time"

	"github.com/kestrel-data/resolve-engine/pkg/models"
)

// preference records one confirmed mention-to-entity mapping.
type preference struct {
	entry       *models.ValueEntry
	confirmedAt time.Time
}

// UserPreferenceStore remembers which candidate a user picked when asked
// to clarify an ambiguous mention, so the same user is never asked the
// same question twice. Last confirmation wins per (user, mention) pair.
//
// The store is in-memory and scoped to the process lifetime; preferences
// do not survive a restart or transfer between users.
type UserPreferenceStore struct {
	mu    sync.RWMutex
	prefs map[string]preference
}

// NewUserPreferenceStore creates an empty preference store.
func NewUserPreferenceStore() *UserPreferenceStore {
	return &UserPreferenceStore{
		prefs: make(map[string]preference),
	}
}

// Confirm records that userID resolved mention to entry. Overwrites any
// earlier confirmation for the same pair.
func (s *UserPreferenceStore) Confirm(userID, mention string, entry *models.ValueEntry) {
	if userID == "" || entry == nil {
		return
	}
	key := preferenceKey(userID, mention)
	if key == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[key] = preference{entry: entry, confirmedAt: time.Now().UTC()}
}

// Lookup returns the confirmed entry for a (user, mention) pair, if any.
func (s *UserPreferenceStore) Lookup(userID, mention string) (*models.ValueEntry, bool) {
	key := preferenceKey(userID, mention)
	if key == "" {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[key]
	if !ok {
		return nil, false
	}
	return p.entry, true
}

// Forget drops a user's confirmation for a mention, if present.
func (s *UserPreferenceStore) Forget(userID, mention string) {
	key := preferenceKey(userID, mention)
	if key == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prefs, key)
}

// Len reports how many confirmations are stored.
func (s *UserPreferenceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prefs)
}

// preferenceKey folds the mention so "ACME" and "acme" share one
// preference. Returns empty for blank inputs.
func preferenceKey(userID, mention string) string {
	mention = strings.ToLower(strings.Join(strings.Fields(mention), " "))
	if userID == "" || mention == "" {
		return ""
	}
	return userID + "\x00" + mention
}
