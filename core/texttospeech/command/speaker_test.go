package command

import (
	"context"
	"os/exec"
	"slices"
	"testing"
)

func TestArgs(t *testing.T) {
	testCases := []struct {
		name     string
		speaker  Speaker
		expected []string
	}{
		{
			name:     "espeak",
			speaker:  Speaker{program: "/usr/bin/espeak-ng", rate: 150},
			expected: []string{"-s", "150", "--", "Task completed"},
		},
		{
			name:     "say with voice",
			speaker:  Speaker{program: "/usr/bin/say", rate: 180, voice: "Samantha"},
			expected: []string{"-r", "180", "-v", "Samantha", "--", "Task completed"},
		},
		{
			name:     "default rate omitted",
			speaker:  Speaker{program: "espeak"},
			expected: []string{"--", "Task completed"},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.speaker.args("Task completed"); !slices.Equal(got, testCase.expected) {
				t.Fatalf("expected %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestSpeakRunsProgram(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}

	speaker, err := New("true")
	if err != nil {
		t.Fatalf("expected true to resolve, got %v", err)
	}
	if err := speaker.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	failing, err := New("false")
	if err != nil {
		t.Skip("false not available")
	}
	if err := failing.Speak(context.Background(), "hello"); err == nil {
		t.Fatalf("expected failing synthesizer to return an error")
	}
}

func TestNewFailsForMissingProgram(t *testing.T) {
	if _, err := New("ema-commander-no-such-synth"); err == nil {
		t.Fatalf("expected missing program to fail")
	}
}
