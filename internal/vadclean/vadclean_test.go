package vadclean

import "testing"

func TestCleanMergesSmallGaps(t *testing.T) {
	p := Params{MinSilenceMs: 300, MinSpeechMs: 0, PadMs: 0, SampleRate: 16000}
	raw := []RawInterval{
		{StartSample: 0, EndSample: 16000},     // 0-1s
		{StartSample: 17600, EndSample: 32000}, // gap = 1600 samples = 100ms < 300ms -> merge
	}
	out := Clean(raw, p, 10)
	if len(out) != 1 {
		t.Fatalf("expected 1 merged interval, got %d: %+v", len(out), out)
	}
	if out[0].StartS != 0 || out[0].EndS != 2 {
		t.Fatalf("unexpected merged bounds: %+v", out[0])
	}
}

func TestCleanKeepsLargeGapsSeparate(t *testing.T) {
	p := Params{MinSilenceMs: 300, MinSpeechMs: 0, PadMs: 0, SampleRate: 16000}
	raw := []RawInterval{
		{StartSample: 0, EndSample: 16000},
		{StartSample: 32000, EndSample: 48000}, // gap = 16000 samples = 1s > 300ms
	}
	out := Clean(raw, p, 10)
	if len(out) != 2 {
		t.Fatalf("expected 2 intervals, got %d: %+v", len(out), out)
	}
}

func TestCleanDropsShortIntervals(t *testing.T) {
	p := Params{MinSilenceMs: 0, MinSpeechMs: 500, PadMs: 0, SampleRate: 16000}
	raw := []RawInterval{
		{StartSample: 0, EndSample: 4000}, // 250ms, below min_speech_ms
		{StartSample: 20000, EndSample: 40000},
	}
	out := Clean(raw, p, 10)
	if len(out) != 1 {
		t.Fatalf("expected short interval dropped, got %+v", out)
	}
	if out[0].StartS != 1.25 {
		t.Fatalf("unexpected start: %+v", out[0])
	}
}

func TestCleanPadsAndClampsToAudioBounds(t *testing.T) {
	p := Params{MinSilenceMs: 0, MinSpeechMs: 0, PadMs: 200, SampleRate: 16000}
	raw := []RawInterval{{StartSample: 0, EndSample: 1600}} // 0-0.1s
	out := Clean(raw, p, 0.15)
	if len(out) != 1 {
		t.Fatalf("expected 1 interval, got %+v", out)
	}
	if out[0].StartS != 0 {
		t.Fatalf("expected start clamped to 0, got %v", out[0].StartS)
	}
	if out[0].EndS != 0.15 {
		t.Fatalf("expected end clamped to audio duration, got %v", out[0].EndS)
	}
}

func TestCleanEmptyInputIsValid(t *testing.T) {
	out := Clean(nil, Params{SampleRate: 16000}, 10)
	if out != nil {
		t.Fatalf("expected nil/empty result, got %+v", out)
	}
}

func TestCleanSortsAndDeduplicatesOverlap(t *testing.T) {
	p := Params{MinSilenceMs: 100, MinSpeechMs: 0, PadMs: 500, SampleRate: 16000}
	raw := []RawInterval{
		{StartSample: 32000, EndSample: 48000},
		{StartSample: 0, EndSample: 16000},
	}
	out := Clean(raw, p, 10)
	for i := 1; i < len(out); i++ {
		if out[i].StartS < out[i-1].EndS {
			t.Fatalf("overlapping output intervals: %+v", out)
		}
		if out[i].StartS < out[i-1].StartS {
			t.Fatalf("output not sorted: %+v", out)
		}
	}
}
