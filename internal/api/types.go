package api

import "quranalign/internal/align"

// Message is the single envelope carried over both transports (gRPC
// bidirectional stream and WebSocket): one struct with many optional
// fields so the same JSON codec serves both, scoped to the three
// operations this service exposes.
type Message struct {
	Type  string `json:"type"`
	RunID string `json:"runId,omitempty"`

	// Request fields, set by the caller depending on Type.
	AudioPath    string            `json:"audioPath,omitempty"`
	Intervals    []IntervalRequest `json:"intervals,omitempty"`
	RawVAD       []RawIntervalJSON `json:"rawVad,omitempty"`
	MinSilenceMs int               `json:"minSilenceMs,omitempty"`
	MinSpeechMs  int               `json:"minSpeechMs,omitempty"`
	PadMs        int               `json:"padMs,omitempty"`
	AsrModel     string            `json:"asrModel,omitempty"`

	// Response fields.
	Progress *ProgressEvent         `json:"progress,omitempty"`
	Report   *align.AlignmentReport `json:"report,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// IntervalRequest is the wire form of a Realign second-offset interval.
type IntervalRequest struct {
	StartS float64 `json:"startS"`
	EndS   float64 `json:"endS"`
}

// RawIntervalJSON is the wire form of a Resegment raw VAD interval.
type RawIntervalJSON struct {
	StartSample uint64 `json:"startSample"`
	EndSample   uint64 `json:"endSample"`
	IsComplete  bool   `json:"isComplete"`
}

// ProgressEvent reports one emitted segment of a run. The pipeline runs
// synchronously, so runAndStream sends these only after the run has
// completed, one per segment, ahead of the final report.
type ProgressEvent struct {
	Index      int     `json:"index"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	MatchedRef string  `json:"matchedRef"`
	Confidence float64 `json:"confidence"`
}

// Message types understood by processMessage.
const (
	TypeAlign     = "align"
	TypeRealign   = "realign"
	TypeResegment = "resegment"

	TypeProgress = "progress"
	TypeReport   = "report"
	TypeError    = "error"
)
