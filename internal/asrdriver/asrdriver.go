// Package asrdriver batches cleaned VAD clips for the acoustic model
// and applies the CTC greedy-decode contract to its output.
package asrdriver

import (
	"context"
	"sort"

	"quranalign/internal/alignerr"
	"quranalign/internal/phoneme"
)

// AsrBackend is the opaque acoustic model the driver calls: CTC logits
// argmax over a batch of 16 kHz mono clips, already collapsed (spec
// §6). The driver never inspects raw logits itself; collapse happens
// inside the backend, mirroring the Python reference's own split
// between model inference and `ids_to_phoneme_list`.
type AsrBackend interface {
	TranscribeBatch(ctx context.Context, clips [][]float32) ([][]phoneme.Phoneme, error)
}

// BatchParams bounds how clips are grouped for one acoustic-model call.
type BatchParams struct {
	MaxBatchSeconds float64
	MaxPadWaste     float64
	MinBatchSize    int
}

// Clip is one cleaned interval's audio, paired with its duration so
// batching never has to recompute it from sample count/rate.
type Clip struct {
	Samples   []float32
	DurationS float64
}

// TranscribeBatches sorts clips by ascending duration, batches them
// under BatchParams, invokes backend once per batch, and restores
// input order before returning.
func TranscribeBatches(ctx context.Context, backend AsrBackend, clips []Clip, p BatchParams) ([][]phoneme.Phoneme, error) {
	if len(clips) == 0 {
		return nil, nil
	}

	order := make([]int, len(clips))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return clips[order[i]].DurationS < clips[order[j]].DurationS })

	batches := buildBatches(order, clips, p)

	results := make([][]phoneme.Phoneme, len(clips))
	for _, batch := range batches {
		batchClips := make([][]float32, len(batch))
		for i, idx := range batch {
			batchClips[i] = clips[idx].Samples
		}
		out, err := backend.TranscribeBatch(ctx, batchClips)
		if err != nil {
			return nil, alignerr.AcousticBackend("asr", err)
		}
		for i, idx := range batch {
			results[idx] = out[i]
		}
	}
	return results, nil
}

// buildBatches implements build_batches: greedy grouping of
// duration-sorted indices under a total-seconds cap and a pad-waste
// cap, never cutting a batch below MinBatchSize.
func buildBatches(sortedIdx []int, clips []Clip, p BatchParams) [][]int {
	var batches [][]int
	var current []int
	var currentSeconds float64

	for _, i := range sortedIdx {
		dur := clips[i].DurationS

		if len(current) == 0 {
			current = []int{i}
			currentSeconds = dur
			continue
		}

		maxDur := dur // sorted ascending: the newest clip is the longest so far
		newSeconds := currentSeconds + dur
		newSize := len(current) + 1
		var padWaste float64
		if maxDur > 0 {
			padWaste = 1.0 - newSeconds/(float64(newSize)*maxDur)
		}

		secondsExceeded := newSeconds > p.MaxBatchSeconds
		wasteExceeded := padWaste > p.MaxPadWaste

		if (secondsExceeded || wasteExceeded) && len(current) >= p.MinBatchSize {
			batches = append(batches, current)
			current = []int{i}
			currentSeconds = dur
		} else {
			current = append(current, i)
			currentSeconds = newSeconds
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// CollapseCTC applies the CTC greedy-decode contract to a raw token
// sequence: consecutive duplicates collapsed, blank/pad removed, the
// word-delimiter "|" removed. Backends that already return
// collapsed phonemes (the common case, since collapse is cheapest done
// inside the model's own tokenizer loop) do not need this; it exists
// for backends that hand the driver raw per-frame tokens instead.
func CollapseCTC(tokens []phoneme.Phoneme, blank phoneme.Phoneme) []phoneme.Phoneme {
	if len(tokens) == 0 {
		return nil
	}
	const delimiter = phoneme.Phoneme("|")

	var collapsed []phoneme.Phoneme
	var prev phoneme.Phoneme
	havePrev := false
	for _, t := range tokens {
		if t == blank || t == delimiter {
			prev = t
			havePrev = true
			continue
		}
		if havePrev && t == prev {
			continue
		}
		collapsed = append(collapsed, t)
		prev = t
		havePrev = true
	}
	return collapsed
}
