package align

import (
	"context"

	"quranalign/internal/alignerr"
	"quranalign/internal/anchor"
	"quranalign/internal/asrdriver"
	"quranalign/internal/phoneme"
	"quranalign/internal/refstore"
	"quranalign/internal/special"
	"quranalign/internal/vadclean"
)

// SegmentationParams bounds VAD cleaning for one run.
type SegmentationParams struct {
	MinSilenceMs int
	MinSpeechMs  int
	PadMs        int
	AsrModel     string
}

// Pipeline wires the reference store and the two acoustic backends
// into the three entry points the core exposes: Align,
// Realign, and Resegment. It holds no per-run state; every call builds
// its own state machine run.
type Pipeline struct {
	Store      *refstore.Store
	Vad        vadclean.Backend
	Asr        asrdriver.AsrBackend
	SampleRate int
	Batch      asrdriver.BatchParams
	Params     Params
}

// Align runs the full pipeline from a raw waveform: VAD segmentation,
// ASR transcription, special-segment detection, global anchoring, and
// the alignment state machine.
func (pl *Pipeline) Align(ctx context.Context, waveform []float32, sp SegmentationParams) (*AlignmentReport, error) {
	raw, err := pl.Vad.Segment(ctx, waveform, pl.SampleRate)
	if err != nil {
		return nil, alignerr.AcousticBackend("vad", err)
	}
	intervals := vadclean.Clean(raw, pl.vadParams(sp), audioDurationS(waveform, pl.SampleRate))
	return pl.runFromIntervals(ctx, waveform, intervals)
}

// Realign bypasses VAD, running ASR + alignment directly over
// caller-supplied (start,end) second intervals.
func (pl *Pipeline) Realign(ctx context.Context, waveform []float32, intervals []vadclean.Interval, asrModel string) (*AlignmentReport, error) {
	return pl.runFromIntervals(ctx, waveform, intervals)
}

// Resegment reuses a previously-computed raw VAD output, re-running
// only the cleaning step before ASR + alignment — useful
// when the host wants to retune MinSilenceMs/MinSpeechMs/PadMs without
// re-invoking the VAD backend.
func (pl *Pipeline) Resegment(ctx context.Context, rawVAD []vadclean.RawInterval, waveform []float32, sp SegmentationParams) (*AlignmentReport, error) {
	intervals := vadclean.Clean(rawVAD, pl.vadParams(sp), audioDurationS(waveform, pl.SampleRate))
	return pl.runFromIntervals(ctx, waveform, intervals)
}

func (pl *Pipeline) vadParams(sp SegmentationParams) vadclean.Params {
	return vadclean.Params{
		MinSilenceMs: sp.MinSilenceMs,
		MinSpeechMs:  sp.MinSpeechMs,
		PadMs:        sp.PadMs,
		SampleRate:   pl.SampleRate,
	}
}

func audioDurationS(waveform []float32, sampleRate int) float64 {
	return float64(len(waveform)) / float64(sampleRate)
}

// runFromIntervals slices the waveform into clips, transcribes them in
// batches, then hands the phoneme segments to runAligned.
func (pl *Pipeline) runFromIntervals(ctx context.Context, waveform []float32, intervals []vadclean.Interval) (*AlignmentReport, error) {
	if len(intervals) == 0 {
		return &AlignmentReport{Warnings: []string{"no speech detected"}}, nil
	}

	clips := make([]asrdriver.Clip, len(intervals))
	for i, iv := range intervals {
		start := clampSample(iv.StartS, pl.SampleRate, len(waveform))
		end := clampSample(iv.EndS, pl.SampleRate, len(waveform))
		if start > end {
			start = end
		}
		clips[i] = asrdriver.Clip{Samples: waveform[start:end], DurationS: iv.EndS - iv.StartS}
	}

	phonemeLists, err := asrdriver.TranscribeBatches(ctx, pl.Asr, clips, pl.Batch)
	if err != nil {
		return nil, err
	}

	segments := make([]Segment, len(intervals))
	for i, iv := range intervals {
		segments[i] = Segment{StartS: iv.StartS, EndS: iv.EndS, Index: i, Phonemes: phonemeLists[i]}
	}
	return pl.runAligned(ctx, segments)
}

func clampSample(timeS float64, sampleRate int, max int) int {
	s := int(timeS * float64(sampleRate))
	if s < 0 {
		return 0
	}
	if s > max {
		return max
	}
	return s
}

// runAligned applies initial special-segment detection, runs the
// global anchor over the remaining Qur'an-content segments, then
// drives the state machine.
func (pl *Pipeline) runAligned(ctx context.Context, segments []Segment) (*AlignmentReport, error) {
	var seg0, seg1 []phoneme.Phoneme
	if len(segments) > 0 {
		seg0 = segments[0].Phonemes
	}
	if len(segments) > 1 {
		seg1 = segments[1].Phonemes
	}
	initial := special.DetectInitial(seg0, seg1, pl.Params.SpecialThreshold)

	var specialOutputs []SegmentOutput
	qStart := 0

	switch {
	case initial.SplitSeg0 && len(segments) > 0:
		s := segments[0]
		mid := s.StartS + (s.EndS-s.StartS)/2
		specialOutputs = append(specialOutputs,
			SegmentOutput{StartTime: s.StartS, EndTime: mid, MatchedText: special.CanonicalText[special.Istiadha], MatchedRef: string(special.Istiadha), Confidence: initial.Specials[0].Confidence},
			SegmentOutput{StartTime: mid, EndTime: s.EndS, MatchedText: special.CanonicalText[special.Basmala], MatchedRef: string(special.Basmala), Confidence: initial.Specials[1].Confidence},
		)
		qStart = 1
	case len(initial.Specials) > 0:
		for k, m := range initial.Specials {
			s := segments[k]
			specialOutputs = append(specialOutputs, SegmentOutput{StartTime: s.StartS, EndTime: s.EndS, MatchedText: special.CanonicalText[m.Name], MatchedRef: string(m.Name), Confidence: m.Confidence})
		}
		qStart = initial.SegmentsConsumed
	}

	var quranSegments []Segment
	if qStart < len(segments) {
		quranSegments = segments[qStart:]
	}

	var anchorInput [][]phoneme.Phoneme
	for _, s := range quranSegments {
		if len(s.Phonemes) == 0 {
			continue
		}
		anchorInput = append(anchorInput, s.Phonemes)
		if len(anchorInput) >= pl.Params.AnchorSegments {
			break
		}
	}
	anchorRes := anchor.FindGlobal(pl.Store.NgramIndex(), anchorInput, pl.Params.Anchor)
	if anchorRes.Surah == 0 {
		return nil, alignerr.AnchorFailed("no n-gram votes for the recitation")
	}

	report, err := Run(ctx, pl.Store, pl.Store.NgramIndex(), quranSegments, anchorRes, pl.Params)
	if err != nil {
		return nil, err
	}

	report.Segments = append(specialOutputs, report.Segments...)
	hint := anchorRes.Surah
	report.SourceSurahHint = &hint
	return report, nil
}
