// Package events defines the typed event contract of the command pipeline.
//
// Event kinds are grouped by namespace:
//
//   - recognition.*
//   - command.*
//   - task.*
//
// recognition events
//
//   - TranscriptPartial (recognition.transcript_partial): in-progress text,
//     feedback only.
//   - TranscriptFinal (recognition.transcript_final): completed utterance.
//   - KeywordMatched (recognition.keyword_matched): a registered key was found
//     in a final transcript.
//   - CallbackFault (recognition.callback_fault): a keyword action failed; the
//     capture loop keeps running.
//   - RecognitionStopped (recognition.stopped): the capture loop exited.
//
// command events
//
//   - CommandEnqueued (command.enqueued): a command entered the bus.
//   - CommandRejected (command.rejected): a producer refused a command, e.g. a
//     duplicate start for the running task.
//
// task events
//
//   - TaskStarted, TaskStartFailed, TaskUnknown, TaskDuplicateIgnored
//   - TaskInterruptSent, TaskEscalated, TaskOrphaned: steps of the
//     graceful-then-forced termination sequence.
//   - TaskStopped (task.stopped): termination finished, with its StopReason.
//   - TaskCompleted (task.completed): the process exited on its own.
package events
