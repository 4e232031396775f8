package keywords

import (
	"slices"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestRegistryMatchesAliasesAsSubstrings(t *testing.T) {
	registry := NewRegistry()
	var fired []string
	mustRegister(t, registry, "glove", func() { fired = append(fired, "glove") })
	mustRegister(t, registry, "pliers", func() { fired = append(fired, "pliers") }, "player", "players", "playoffs")

	for _, match := range registry.Match("give me the player") {
		match.action()
	}

	if !slices.Equal(fired, []string{"pliers"}) {
		t.Fatalf("expected only pliers to fire, got %v", fired)
	}
}

func TestRegistryFiresEachBindingOncePerTranscript(t *testing.T) {
	registry := NewRegistry()
	mustRegister(t, registry, "pliers", func() {}, "player", "players")
	mustRegister(t, registry, "glove", func() {})

	matches := registry.Match("The PLAYERS want the glove")
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %+v", matches)
	}
	keys := []string{matches[0].Key, matches[1].Key}
	slices.Sort(keys)
	if !slices.Equal(keys, []string{"glove", "pliers"}) {
		t.Fatalf("unexpected matched keys %v", keys)
	}
}

func TestRegistryNormalizesKeys(t *testing.T) {
	registry := NewRegistry()
	mustRegister(t, registry, "  Syringe ", func() {}, " SYRIAN")

	if got := registry.Keywords(); !slices.Equal(got, []string{"syrian", "syringe"}) {
		t.Fatalf("unexpected keywords %v", got)
	}
	if len(registry.Match("hand me the Syrian")) != 1 {
		t.Fatalf("expected alias match regardless of case")
	}
	if registry.Match("   ") != nil {
		t.Fatalf("expected blank transcript to match nothing")
	}
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	registry := NewRegistry()
	var fired []string
	mustRegister(t, registry, "stop", func() { fired = append(fired, "first") }, "step")
	mustRegister(t, registry, "step", func() { fired = append(fired, "second") })

	for _, match := range registry.Match("step") {
		match.action()
	}
	for _, match := range registry.Match("stop") {
		match.action()
	}

	if !slices.Equal(fired, []string{"second", "first"}) {
		t.Fatalf("unexpected firing order %v", fired)
	}
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewRegistry()
	mustRegister(t, registry, "pliers", func() {}, "player", "players")
	mustRegister(t, registry, "glove", func() {})

	if !registry.Unregister("players") {
		t.Fatalf("expected alias to be removed")
	}
	if got := registry.Keywords(); !slices.Equal(got, []string{"glove", "player", "pliers"}) {
		t.Fatalf("alias removal touched other keys: %v", got)
	}

	if !registry.Unregister("PLIERS") {
		t.Fatalf("expected canonical keyword to be removed")
	}
	if got := registry.Keywords(); !slices.Equal(got, []string{"glove"}) {
		t.Fatalf("expected canonical removal to drop its aliases, got %v", got)
	}

	if registry.Unregister("pliers") {
		t.Fatalf("expected second removal to report nothing removed")
	}
}

func TestRegistryRejectsInvalidBindings(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(" ", func() {}); err == nil {
		t.Fatalf("expected empty keyword to be rejected")
	}
	if err := registry.Register("glove", nil); err == nil {
		t.Fatalf("expected nil action to be rejected")
	}
}

func TestRegistryMatchProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		type registration struct {
			keyword string
			aliases []string
		}
		keyGen := rapid.StringMatching(`[abc]{1,3}`)
		registrations := rapid.SliceOfN(rapid.Custom(func(t *rapid.T) registration {
			return registration{
				keyword: keyGen.Draw(t, "keyword"),
				aliases: rapid.SliceOfN(keyGen, 0, 2).Draw(t, "aliases"),
			}
		}), 1, 5).Draw(t, "registrations")
		transcript := rapid.StringMatching(`[abc ]{0,12}`).Draw(t, "transcript")

		registry := NewRegistry()
		owner := make(map[string]int)
		fired := make([]int, len(registrations))
		for i, reg := range registrations {
			if err := registry.Register(reg.keyword, func() { fired[i]++ }, reg.aliases...); err != nil {
				t.Fatalf("register: %v", err)
			}
			owner[reg.keyword] = i
			for _, alias := range reg.aliases {
				owner[alias] = i
			}
		}

		expected := make([]int, len(registrations))
		for key, i := range owner {
			if strings.Contains(transcript, key) {
				expected[i] = 1
			}
		}

		for _, match := range registry.Match(transcript) {
			match.action()
		}

		if !slices.Equal(fired, expected) {
			t.Fatalf("transcript %q: fired %v, expected %v", transcript, fired, expected)
		}
	})
}

func mustRegister(t *testing.T, registry *Registry, keyword string, action Action, aliases ...string) {
	t.Helper()
	if err := registry.Register(keyword, action, aliases...); err != nil {
		t.Fatalf("register %q: %v", keyword, err)
	}
}
