package events

import (
	"errors"
	"testing"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	ref := TaskRef{RunID: "run", TaskKey: "glove", Name: "Pick up and give the glove", PID: 42}
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "transcript partial", event: NewTranscriptPartial("gl"), expected: KindTranscriptPartial},
		{name: "transcript final", event: NewTranscriptFinal("glove"), expected: KindTranscriptFinal},
		{name: "keyword matched", event: NewKeywordMatched("glove", "glove", "glove"), expected: KindKeywordMatched},
		{name: "callback fault", event: NewCallbackFault("glove", errors.New("boom")), expected: KindCallbackFault},
		{name: "recognition stopped", event: NewRecognitionStopped(nil), expected: KindRecognitionStopped},
		{name: "command enqueued", event: NewCommandEnqueued("start", "glove", "voice"), expected: KindCommandEnqueued},
		{name: "command rejected", event: NewCommandRejected("start", "glove", "duplicate"), expected: KindCommandRejected},
		{name: "task started", event: NewTaskStarted(ref), expected: KindTaskStarted},
		{name: "task start failed", event: NewTaskStartFailed("glove", errors.New("missing")), expected: KindTaskStartFailed},
		{name: "task unknown", event: NewTaskUnknown("hammer"), expected: KindTaskUnknown},
		{name: "task duplicate ignored", event: NewTaskDuplicateIgnored(ref), expected: KindTaskDuplicateIgnored},
		{name: "task interrupt sent", event: NewTaskInterruptSent(ref, StopReasonRequested), expected: KindTaskInterruptSent},
		{name: "task escalated", event: NewTaskEscalated(ref), expected: KindTaskEscalated},
		{name: "task orphaned", event: NewTaskOrphaned(ref, errors.New("eperm")), expected: KindTaskOrphaned},
		{name: "task stopped", event: NewTaskStopped(ref, StopReasonTimeout, true, 0), expected: KindTaskStopped},
		{name: "task completed", event: NewTaskCompleted(ref, 0, 0), expected: KindTaskCompleted},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatalf("expected timestamp to be set")
			}
		})
	}
}

func TestSafeFallsBackToNoop(t *testing.T) {
	emit := Safe(nil)
	emit(NewTranscriptFinal("glove"))

	var got []Kind
	emit = Safe(func(event Event) { got = append(got, event.Kind()) })
	emit(NewTranscriptFinal("glove"))
	if len(got) != 1 || got[0] != KindTranscriptFinal {
		t.Fatalf("expected configured emitter to receive the event, got %v", got)
	}
}
