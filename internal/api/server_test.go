package api

import (
	"encoding/json"
	"testing"

	"quranalign/internal/align"
)

func TestSegmentationParamsMergesDefaults(t *testing.T) {
	s := &Server{Defaults: align.SegmentationParams{MinSilenceMs: 300, MinSpeechMs: 200, PadMs: 100, AsrModel: "default.onnx"}}

	cases := []struct {
		name string
		msg  Message
		want align.SegmentationParams
	}{
		{
			name: "all zero falls back to defaults",
			msg:  Message{},
			want: align.SegmentationParams{MinSilenceMs: 300, MinSpeechMs: 200, PadMs: 100, AsrModel: "default.onnx"},
		},
		{
			name: "caller overrides take precedence",
			msg:  Message{MinSilenceMs: 500, AsrModel: "custom.onnx"},
			want: align.SegmentationParams{MinSilenceMs: 500, MinSpeechMs: 200, PadMs: 100, AsrModel: "custom.onnx"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.segmentationParams(tc.msg)
			if got != tc.want {
				t.Errorf("segmentationParams() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestMessageJSONRoundTrip(t *testing.T) {
	msg := Message{
		Type:      TypeAlign,
		RunID:     "run-1",
		AudioPath: "/tmp/fixture.wav",
		Intervals: []IntervalRequest{{StartS: 1.5, EndS: 3.0}},
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Message
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != msg.Type || got.RunID != msg.RunID || got.AudioPath != msg.AudioPath {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, msg)
	}
	if len(got.Intervals) != 1 || got.Intervals[0] != msg.Intervals[0] {
		t.Errorf("intervals round trip mismatch: got %+v", got.Intervals)
	}
}

func TestProcessMessageUnknownType(t *testing.T) {
	s := &Server{}
	var gotErr string
	send := func(m Message) error {
		if m.Type == TypeError {
			gotErr = m.Error
		}
		return nil
	}

	s.processMessage(nil, send, Message{Type: "bogus"})
	if gotErr == "" {
		t.Fatal("expected an error message for an unknown type")
	}
}
