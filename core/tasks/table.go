// Package tasks resolves voice command keys to task descriptors and renders
// the argument list used to launch a task's process.
package tasks

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTask is returned when a key does not name a task in the table.
var ErrUnknownTask = errors.New("unknown task")

// Descriptor maps a voice command key to a human-readable task name.
// Aliases are alternative spoken forms that trigger the same task.
type Descriptor struct {
	Key     string
	Name    string
	Aliases []string
}

// Table is an immutable, ordered set of descriptors keyed by normalized key.
// Aliases resolve to the descriptor that owns them.
type Table struct {
	order   []string
	byKey   map[string]Descriptor
	aliases map[string]string
}

// NormalizeKey lower-cases and trims a key.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// NewTable builds a table. Keys and aliases are normalized. An empty key, an
// empty name, a repeated key or an alias claimed twice is an error.
func NewTable(descriptors ...Descriptor) (*Table, error) {
	t := &Table{
		byKey:   make(map[string]Descriptor, len(descriptors)),
		aliases: make(map[string]string),
	}
	for _, d := range descriptors {
		d.Key = NormalizeKey(d.Key)
		if d.Key == "" {
			return nil, fmt.Errorf("task %q: empty key", d.Name)
		}
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("task %q: empty name", d.Key)
		}
		if _, exists := t.byKey[d.Key]; exists {
			return nil, fmt.Errorf("task %q: duplicate key", d.Key)
		}
		d.Aliases = append([]string(nil), d.Aliases...)
		t.byKey[d.Key] = d
		t.order = append(t.order, d.Key)
	}

	for _, key := range t.order {
		for _, alias := range t.byKey[key].Aliases {
			alias = NormalizeKey(alias)
			if alias == "" || alias == key {
				continue
			}
			if _, isKey := t.byKey[alias]; isKey {
				return nil, fmt.Errorf("task %q: alias %q is another task's key", key, alias)
			}
			if owner, claimed := t.aliases[alias]; claimed && owner != key {
				return nil, fmt.Errorf("task %q: alias %q already belongs to %q", key, alias, owner)
			}
			t.aliases[alias] = key
		}
	}
	return t, nil
}

// Resolve returns the descriptor for key or one of its aliases, or an error
// wrapping ErrUnknownTask.
func (t *Table) Resolve(key string) (Descriptor, error) {
	if t != nil {
		key := NormalizeKey(key)
		if owner, ok := t.aliases[key]; ok {
			key = owner
		}
		if d, ok := t.byKey[key]; ok {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownTask, key)
}

// Canonical returns the task key that key or alias resolves to. Unknown keys
// are returned normalized.
func (t *Table) Canonical(key string) string {
	if d, err := t.Resolve(key); err == nil {
		return d.Key
	}
	return NormalizeKey(key)
}

func (t *Table) Has(key string) bool {
	_, err := t.Resolve(key)
	return err == nil
}

// Descriptors returns the descriptors in registration order.
func (t *Table) Descriptors() []Descriptor {
	if t == nil {
		return nil
	}
	out := make([]Descriptor, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.byKey[key])
	}
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}
