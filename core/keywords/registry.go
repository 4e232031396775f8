package keywords

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

// Action runs when a binding's keyword is heard.
type Action func()

// Match is one binding fired by a transcript.
type Match struct {
	// Keyword is the registered key found in the transcript; it may be an alias.
	Keyword string
	// Key is the canonical keyword of the binding.
	Key    string
	action Action
}

type binding struct {
	key    string
	action Action
}

// Registry maps normalized keywords and their aliases to actions. Keys are
// matched as case-insensitive substrings of a transcript, so "player" also
// fires on "players" and "playoffs".
type Registry struct {
	mu   sync.RWMutex
	keys map[string]*binding
}

func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]*binding)}
}

func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Register binds keyword and each alias to action. A key registered again is
// rebound to the newer action.
func (r *Registry) Register(keyword string, action Action, aliases ...string) error {
	key := Normalize(keyword)
	if key == "" {
		return errors.New("keyword must not be empty")
	}
	if action == nil {
		return errors.New("keyword action must not be nil")
	}

	b := &binding{key: key, action: action}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.keys[key] = b
	for _, alias := range aliases {
		if alias := Normalize(alias); alias != "" {
			r.keys[alias] = b
		}
	}
	return nil
}

// Unregister removes keyword. Removing a canonical keyword also removes the
// aliases still bound with it; removing an alias removes only the alias.
// It reports whether anything was removed.
func (r *Registry) Unregister(keyword string) bool {
	key := Normalize(keyword)

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.keys[key]
	if !ok {
		return false
	}
	delete(r.keys, key)

	if b.key == key {
		for other, owner := range r.keys {
			if owner == b {
				delete(r.keys, other)
			}
		}
	}
	return true
}

// Keywords returns every registered key, aliases included, sorted.
func (r *Registry) Keywords() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.keys))
	for key := range r.keys {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Match returns the bindings whose keys occur in transcript, each binding at
// most once, ordered by the first matching key.
func (r *Registry) Match(transcript string) []Match {
	text := Normalize(transcript)
	if text == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.keys))
	for key := range r.keys {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var matches []Match
	fired := make(map[*binding]bool)
	for _, key := range keys {
		b := r.keys[key]
		if fired[b] || !strings.Contains(text, key) {
			continue
		}
		fired[b] = true
		matches = append(matches, Match{Keyword: key, Key: b.key, action: b.action})
	}
	return matches
}
