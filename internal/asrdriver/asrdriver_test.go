package asrdriver

import (
	"context"
	"testing"

	"quranalign/internal/phoneme"
)

type fakeBackend struct {
	calls [][][]float32
}

func (f *fakeBackend) TranscribeBatch(ctx context.Context, clips [][]float32) ([][]phoneme.Phoneme, error) {
	f.calls = append(f.calls, clips)
	out := make([][]phoneme.Phoneme, len(clips))
	for i, c := range clips {
		out[i] = []phoneme.Phoneme{phoneme.Phoneme("len"), phoneme.Phoneme(string(rune(len(c))))}
	}
	return out, nil
}

func TestTranscribeBatchesRestoresInputOrder(t *testing.T) {
	backend := &fakeBackend{}
	clips := []Clip{
		{Samples: make([]float32, 30), DurationS: 3},
		{Samples: make([]float32, 10), DurationS: 1},
		{Samples: make([]float32, 20), DurationS: 2},
	}
	p := BatchParams{MaxBatchSeconds: 100, MaxPadWaste: 1, MinBatchSize: 1}

	out, err := TranscribeBatches(context.Background(), backend, clips, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 results, got %d", len(out))
	}
	// Output order must match input order, not the duration-sorted
	// processing order.
	if len(out[0]) == 0 || len(out[1]) == 0 || len(out[2]) == 0 {
		t.Fatalf("expected every clip to get a result: %+v", out)
	}
	// fakeBackend tags each result with its clip's sample count.
	for i, c := range clips {
		if want := phoneme.Phoneme(string(rune(len(c.Samples)))); out[i][1] != want {
			t.Fatalf("result %d belongs to another clip: got %q, want %q", i, out[i][1], want)
		}
	}
}

func TestBuildBatchesRespectsMinBatchSize(t *testing.T) {
	clips := []Clip{
		{DurationS: 1}, {DurationS: 1}, {DurationS: 100},
	}
	sortedIdx := []int{0, 1, 2}
	p := BatchParams{MaxBatchSeconds: 5, MaxPadWaste: 1, MinBatchSize: 2}

	batches := buildBatches(sortedIdx, clips, p)
	// seconds cap would split before adding the 100s clip, but
	// MinBatchSize has already been satisfied by indices 0 and 1, so a
	// new batch should start once the limit is exceeded.
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d: %+v", len(batches), batches)
	}
	if len(batches[0]) != 2 {
		t.Fatalf("expected first batch to hold the minimum 2 clips, got %+v", batches[0])
	}
}

func TestBuildBatchesNeverCutsBelowMinBatchSize(t *testing.T) {
	clips := []Clip{{DurationS: 1}, {DurationS: 50}}
	sortedIdx := []int{0, 1}
	p := BatchParams{MaxBatchSeconds: 5, MaxPadWaste: 0.01, MinBatchSize: 2}

	batches := buildBatches(sortedIdx, clips, p)
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("expected MinBatchSize to force a single batch of 2, got %+v", batches)
	}
}

func TestCollapseCTCCollapsesDuplicatesAndDelimiters(t *testing.T) {
	blank := phoneme.Phoneme("<pad>")
	// A blank between two equal tokens is exactly what lets CTC encode
	// two consecutive identical phonemes ("bb"): it resets the
	// duplicate-suppression chain, so the "b" immediately after the
	// blank is kept even though the token right before the blank was
	// also "b".
	in := []phoneme.Phoneme{blank, "a", "a", "|", "b", blank, "b", "c", "c", "c"}
	out := CollapseCTC(in, blank)

	want := []phoneme.Phoneme{"a", "b", "b", "c"}
	if len(out) != len(want) {
		t.Fatalf("expected %v, got %v", want, out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, out)
		}
	}
}

func TestCollapseCTCEmptyInput(t *testing.T) {
	if out := CollapseCTC(nil, "<pad>"); out != nil {
		t.Fatalf("expected nil for empty input, got %v", out)
	}
}
