package events

const (
	// KindTranscriptPartial identifies an in-progress transcript segment.
	KindTranscriptPartial Kind = "recognition.transcript_partial"
	// KindTranscriptFinal identifies a completed utterance transcript.
	KindTranscriptFinal Kind = "recognition.transcript_final"
	// KindKeywordMatched identifies a registered key found in a final transcript.
	KindKeywordMatched Kind = "recognition.keyword_matched"
	// KindCallbackFault identifies a recovered failure inside a keyword action.
	KindCallbackFault Kind = "recognition.callback_fault"
	// KindRecognitionStopped identifies the end of the capture loop.
	KindRecognitionStopped Kind = "recognition.stopped"
)

// TranscriptPartial carries in-progress text. It is feedback only and never
// drives commands.
type TranscriptPartial struct {
	Base
	Text string
}

func NewTranscriptPartial(text string) TranscriptPartial {
	return TranscriptPartial{Base: NewBase(KindTranscriptPartial), Text: text}
}

// TranscriptFinal carries the text of a completed utterance.
type TranscriptFinal struct {
	Base
	Text string
}

func NewTranscriptFinal(text string) TranscriptFinal {
	return TranscriptFinal{Base: NewBase(KindTranscriptFinal), Text: text}
}

// KeywordMatched reports that Key (canonical keyword Keyword) was found in
// Transcript.
type KeywordMatched struct {
	Base
	Keyword    string
	Key        string
	Transcript string
}

func NewKeywordMatched(keyword, key, transcript string) KeywordMatched {
	return KeywordMatched{Base: NewBase(KindKeywordMatched), Keyword: keyword, Key: key, Transcript: transcript}
}

// CallbackFault reports a keyword action that failed or panicked.
type CallbackFault struct {
	Base
	Keyword string
	Err     error
}

func NewCallbackFault(keyword string, err error) CallbackFault {
	return CallbackFault{Base: NewBase(KindCallbackFault), Keyword: keyword, Err: err}
}

// RecognitionStopped reports that the capture loop exited. Err is nil when
// the loop was stopped on request.
type RecognitionStopped struct {
	Base
	Err error
}

func NewRecognitionStopped(err error) RecognitionStopped {
	return RecognitionStopped{Base: NewBase(KindRecognitionStopped), Err: err}
}
