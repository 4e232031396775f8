package tasks

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func defaultTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(
		Descriptor{Key: "glove", Name: "Pick up and give the glove"},
		Descriptor{Key: "Syringe", Name: "Pick up and give the syringe", Aliases: []string{"syrian", "surrender"}},
		Descriptor{Key: "pliers", Name: "Pick up and give the pliers", Aliases: []string{"player", "players", "playoffs"}},
	)
	if err != nil {
		t.Fatalf("expected table to build, got %v", err)
	}
	return table
}

func TestTableResolve(t *testing.T) {
	table := defaultTable(t)

	d, err := table.Resolve(" SYRINGE ")
	if err != nil {
		t.Fatalf("expected syringe to resolve, got %v", err)
	}
	if d.Key != "syringe" || d.Name != "Pick up and give the syringe" {
		t.Fatalf("unexpected descriptor %+v", d)
	}

	if _, err := table.Resolve("hammer"); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
	if table.Has("hammer") || !table.Has("glove") {
		t.Fatalf("unexpected Has results")
	}
}

func TestTableResolvesAliasesToOwner(t *testing.T) {
	table := defaultTable(t)

	d, err := table.Resolve(" Player ")
	if err != nil {
		t.Fatalf("expected alias to resolve, got %v", err)
	}
	if d.Key != "pliers" {
		t.Fatalf("expected alias to resolve to pliers, got %+v", d)
	}
	if got := table.Canonical("playoffs"); got != "pliers" {
		t.Fatalf("expected canonical key pliers, got %q", got)
	}
	if got := table.Canonical(" Hammer "); got != "hammer" {
		t.Fatalf("expected unknown key to be normalized, got %q", got)
	}
}

func TestTableKeepsRegistrationOrder(t *testing.T) {
	table := defaultTable(t)

	var keys []string
	for _, d := range table.Descriptors() {
		keys = append(keys, d.Key)
	}
	if !slices.Equal(keys, []string{"glove", "syringe", "pliers"}) {
		t.Fatalf("expected registration order, got %v", keys)
	}
}

func TestNewTableRejectsInvalidDescriptors(t *testing.T) {
	testCases := []struct {
		name        string
		descriptors []Descriptor
	}{
		{name: "empty key", descriptors: []Descriptor{{Key: " ", Name: "x"}}},
		{name: "empty name", descriptors: []Descriptor{{Key: "glove"}}},
		{name: "duplicate key", descriptors: []Descriptor{{Key: "glove", Name: "a"}, {Key: "GLOVE", Name: "b"}}},
		{name: "alias is a key", descriptors: []Descriptor{{Key: "glove", Name: "a", Aliases: []string{"pliers"}}, {Key: "pliers", Name: "b"}}},
		{name: "shared alias", descriptors: []Descriptor{{Key: "glove", Name: "a", Aliases: []string{"love"}}, {Key: "pliers", Name: "b", Aliases: []string{"Love"}}}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := NewTable(testCase.descriptors...); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLaunchTemplateRendersRecorderArguments(t *testing.T) {
	launch, err := NewLaunchTemplate(
		[]string{"lerobot-record", "--robot.type=so101_follower"},
		[]string{"--dataset.repo_id={{.RepoID}}", "--dataset.single_task={{.Name}}"},
		"lleeoogg/eval_LeCoup-De-Pouce_{{.SafeName}}_{{.Timestamp}}",
	)
	if err != nil {
		t.Fatalf("expected template to parse, got %v", err)
	}

	d, _ := defaultTable(t).Resolve("glove")
	args, err := launch.Args(d, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("expected args to render, got %v", err)
	}

	expected := []string{
		"lerobot-record",
		"--robot.type=so101_follower",
		"--dataset.repo_id=lleeoogg/eval_LeCoup-De-Pouce_Pick_up_and_give_the_glove_1700000000",
		"--dataset.single_task=Pick up and give the glove",
	}
	if !slices.Equal(args, expected) {
		t.Fatalf("expected %q, got %q", expected, args)
	}
}

func TestLaunchTemplateErrors(t *testing.T) {
	if _, err := NewLaunchTemplate(nil, nil, ""); err == nil {
		t.Fatalf("expected empty command to fail")
	}
	if _, err := NewLaunchTemplate([]string{"sleep"}, []string{"{{.Name"}, ""); err == nil {
		t.Fatalf("expected malformed template to fail")
	}

	launch, err := NewLaunchTemplate([]string{"sleep"}, []string{"{{.Missing}}"}, "")
	if err != nil {
		t.Fatalf("expected template to parse, got %v", err)
	}
	if _, err := launch.Args(Descriptor{Key: "glove", Name: "glove"}, time.Now()); err == nil {
		t.Fatalf("expected unknown field to fail at render time")
	}
}

func TestSanitizeName(t *testing.T) {
	if got := SanitizeName("Pick up-and give"); got != "Pick_up_and_give" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}
