// Package align is the sequential alignment state machine and result
// assembly layer — the heart of the pipeline. It
// drives the DP engine (internal/dp) segment by segment, advancing a
// word pointer through the current chapter, handling chapter
// transitions, liturgical specials, retry tiers, and global
// re-anchoring, and emits a time-stamped, reference-annotated result
// per input segment.
package align

import (
	"quranalign/internal/anchor"
	"quranalign/internal/dp"
	"quranalign/internal/phoneme"
)

// Segment is one ASR-transcribed speech interval, already past VAD cleaning and special-segment detection.
type Segment struct {
	StartS, EndS float64
	Index        int
	Phonemes     []phoneme.Phoneme
}

// SegmentOutput is one emitted, time-stamped, reference-annotated
// result.
type SegmentOutput struct {
	StartTime, EndTime        float64
	MatchedText               string
	MatchedRef                string
	Confidence                float64
	Error                     string
	HasMissingWords           bool
	PotentiallyUndersegmented bool
}

// AlignmentReport is the alignment surface's return value: the
// emitted segments plus any run-level warnings.
type AlignmentReport struct {
	Segments        []SegmentOutput
	SourceSurahHint *uint8
	Warnings        []string

	// Stats is non-nil only when Params.Profiling is set.
	Stats *RunStats
}

// RunStats accumulates per-run profiling counters: DP call count,
// tier attempt/pass counts, reanchor and special-merge totals. Gated
// behind Params.Profiling and off by default.
type RunStats struct {
	DPCalls int

	Tier1Attempts, Tier1Passes int
	Tier1Segments              []int

	Tier2Attempts, Tier2Passes int
	Tier2Segments              []int

	ReanchorCount int

	SegmentsAttempted, SegmentsPassed int
	SpecialMergeCount                 int
}

// Params bounds the state machine's behaviour: window sizes, edit
// distance thresholds, and the anchor sub-algorithm's parameters.
type Params struct {
	NormalLookbackWords, NormalLookaheadWords int
	RetryLookbackWords, RetryLookaheadWords   int

	MaxEditDistance        float64
	MaxEditDistanceRelaxed float64
	SpecialThreshold       float64
	MaxTransitionEditDist  float64

	MaxConsecutiveFailures int
	AnchorSegments         int
	Anchor                 anchor.Params

	Costs       dp.Costs
	PriorWeight float64

	Profiling bool
}

// DefaultParams mirrors the reference implementation's tuned
// constants (ANCHOR_SEGMENTS, MAX_EDIT_DISTANCE, RETRY_LOOKBACK_WORDS,
// etc. from spec §4.5-§4.7).
func DefaultParams() Params {
	return Params{
		NormalLookbackWords:    2,
		NormalLookaheadWords:   8,
		RetryLookbackWords:     5,
		RetryLookaheadWords:    20,
		MaxEditDistance:        0.25,
		MaxEditDistanceRelaxed: 0.5,
		SpecialThreshold:       0.3,
		MaxTransitionEditDist:  0.4,
		MaxConsecutiveFailures: 2,
		AnchorSegments:         3,
		Anchor: anchor.Params{
			TopCandidates:  5,
			RunTrimRatio:   0.2,
			RarityWeighted: true,
		},
		Costs:       dp.Costs{Del: 1, Ins: 1},
		PriorWeight: 0.01,
	}
}
