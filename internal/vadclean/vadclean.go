// Package vadclean turns raw, per-frame VAD output into the disjoint,
// padded speech intervals the rest of the pipeline aligns against.
package vadclean

import (
	"context"
	"sort"
)

// Backend is the opaque VAD frame classifier the pipeline consumes but
// does not define: it maps a waveform to raw per-frame speech
// intervals plus a completeness flag per interval.
type Backend interface {
	Segment(ctx context.Context, waveform []float32, sampleRate int) ([]RawInterval, error)
}

// RawInterval is one frame-level speech interval as reported by the VAD
// backend, in samples at the backend's sample rate. IsComplete mirrors
// the backend's own completeness flag; the cleaner accepts it
// as part of the contract but the merge/drop/pad rules below do not
// consume it themselves.
type RawInterval struct {
	StartSample uint64
	EndSample   uint64
	IsComplete  bool
}

// Params are the three tunable cleaning constraints.
type Params struct {
	MinSilenceMs int
	MinSpeechMs  int
	PadMs        int
	SampleRate   int
}

// Interval is a cleaned, disjoint speech interval in seconds.
type Interval struct {
	StartS float64
	EndS   float64
}

// Clean merges raw intervals separated by less than MinSilenceMs,
// drops the resulting intervals shorter than MinSpeechMs, pads each
// survivor symmetrically by PadMs (clamped to [0, audioDurationS]), and
// returns them sorted by start time, non-overlapping. An empty slice is
// a valid result.
func Clean(raw []RawInterval, p Params, audioDurationS float64) []Interval {
	if len(raw) == 0 {
		return nil
	}

	sorted := make([]RawInterval, len(raw))
	copy(sorted, raw)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartSample < sorted[j].StartSample })

	minSilenceSamples := msToSamples(p.MinSilenceMs, p.SampleRate)
	merged := []RawInterval{sorted[0]}
	for _, cur := range sorted[1:] {
		last := &merged[len(merged)-1]
		gap := int64(cur.StartSample) - int64(last.EndSample)
		if gap < minSilenceSamples {
			if cur.EndSample > last.EndSample {
				last.EndSample = cur.EndSample
			}
			continue
		}
		merged = append(merged, cur)
	}

	minSpeechSamples := msToSamples(p.MinSpeechMs, p.SampleRate)
	padSamples := msToSamples(p.PadMs, p.SampleRate)
	sampleRate := float64(p.SampleRate)

	out := make([]Interval, 0, len(merged))
	for _, iv := range merged {
		length := int64(iv.EndSample) - int64(iv.StartSample)
		if length < minSpeechSamples {
			continue
		}
		startSample := int64(iv.StartSample) - padSamples
		endSample := int64(iv.EndSample) + padSamples
		if startSample < 0 {
			startSample = 0
		}
		maxSample := int64(audioDurationS * sampleRate)
		if endSample > maxSample {
			endSample = maxSample
		}
		out = append(out, Interval{
			StartS: float64(startSample) / sampleRate,
			EndS:   float64(endSample) / sampleRate,
		})
	}
	return mergeOverlaps(out)
}

// mergeOverlaps collapses any overlap symmetric padding introduced
// between neighbours whose silence gap was close to MinSilenceMs, so
// the final output stays disjoint.
func mergeOverlaps(intervals []Interval) []Interval {
	if len(intervals) < 2 {
		return intervals
	}
	out := make([]Interval, 1, len(intervals))
	out[0] = intervals[0]
	for _, cur := range intervals[1:] {
		last := &out[len(out)-1]
		if cur.StartS <= last.EndS {
			if cur.EndS > last.EndS {
				last.EndS = cur.EndS
			}
			continue
		}
		out = append(out, cur)
	}
	return out
}

func msToSamples(ms, sampleRate int) int64 {
	return int64(ms) * int64(sampleRate) / 1000
}
