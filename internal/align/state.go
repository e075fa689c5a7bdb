package align

import (
	"context"
	"log"

	"quranalign/internal/alignerr"
	"quranalign/internal/anchor"
	"quranalign/internal/dp"
	"quranalign/internal/phoneme"
	"quranalign/internal/refstore"
	"quranalign/internal/special"
)

// matchRecord is the bookkeeping the post-processing gap pass needs
// for every segment that landed a real DP match; specials and failure placeholders
// never produce one.
type matchRecord struct {
	segIdx    int
	surah     uint8
	startWord int
	endWord   int
}

// state is the pipeline state owned exclusively by the driving task
// for the lifetime of one run.
type state struct {
	store    *refstore.Store
	ngramIdx *refstore.NgramIndex
	params   Params
	stats    *RunStats

	currentSurah uint8
	chapterRef   *refstore.ChapterRef
	pointer      int

	consecutiveFailures int
	transitionMode      bool

	pendingSpecials  []SegmentOutput
	skipCount        int
	tahmeedMergeSkip int

	mergedInto map[int]int
	gapSegments map[int]bool

	transitionExpectedPointer int64 // -1 = none
	isFirstAfterTransition    bool

	matches []matchRecord
}

// Run drives the sequential alignment state machine over segments
// (already past special-segment detection and split), starting from
// the given global anchor result. segments are Qur'an-content segments
// only; indices in the returned report line up 1:1 with them (spec
// §4.7, §5's ordering guarantee).
func Run(ctx context.Context, store *refstore.Store, ngramIdx *refstore.NgramIndex, segments []Segment, anchorRes anchor.Result, p Params) (*AlignmentReport, error) {
	if anchorRes.Surah == 0 {
		return nil, alignerr.AnchorFailed("global n-gram vote returned no candidate")
	}
	ref, err := store.Chapter(anchorRes.Surah)
	if err != nil {
		return nil, err
	}

	st := &state{
		store:                     store,
		ngramIdx:                  ngramIdx,
		params:                    p,
		currentSurah:              anchorRes.Surah,
		chapterRef:                ref,
		pointer:                   anchor.VerseToWordIndex(ref, anchorRes.Ayah),
		mergedInto:                make(map[int]int),
		gapSegments:               make(map[int]bool),
		transitionExpectedPointer: -1,
	}
	if p.Profiling {
		st.stats = &RunStats{}
	}

	initialSurah, initialPointer := st.currentSurah, st.pointer

	outputs := make([]SegmentOutput, len(segments))
	for i, seg := range segments {
		select {
		case <-ctx.Done():
			return nil, alignerr.Cancelled()
		default:
		}
		outputs[i] = st.processSegment(i, seg, segments)
	}

	st.postProcess(outputs, len(segments), initialSurah, initialPointer)

	hint := st.currentSurah
	return &AlignmentReport{Segments: outputs, SourceSurahHint: &hint, Stats: st.stats}, nil
}

// processSegment implements spec §4.7's per-segment flow: the first
// matching branch (a) through (g) handles the segment.
func (st *state) processSegment(i int, seg Segment, segments []Segment) SegmentOutput {
	// (a) skip consumption.
	if st.skipCount > 0 {
		st.skipCount--
		out := st.pendingSpecials[0]
		st.pendingSpecials = st.pendingSpecials[1:]
		return out
	}
	if st.tahmeedMergeSkip > 0 {
		st.tahmeedMergeSkip--
		st.mergedInto[i] = i - 1
		return SegmentOutput{}
	}

	// (b) transition mode.
	if st.transitionMode {
		if m, ok := special.DetectTransition(seg.Phonemes, st.params.MaxTransitionEditDist, nil); ok {
			out := specialOutput(seg, m)
			if m.Name == special.Tahmeed {
				st.peekTahmeedMerge(i, segments, &out)
			}
			return out
		}
		st.transitionMode = false
		st.globalReanchor(i, segments, false)
	}

	if st.stats != nil {
		st.stats.SegmentsAttempted++
	}

	// (e) Basmala-fused retry, only immediately after a transition.
	if st.isFirstAfterTransition {
		st.isFirstAfterTransition = false
		if out, ok := st.basmalaFusedRetry(seg); ok {
			return out
		}
	}

	// (c) normal alignment attempt.
	if res, ok := st.attemptAlign(seg, st.params.NormalLookbackWords, st.params.NormalLookaheadWords, st.params.MaxEditDistance); ok {
		return st.accept(i, seg, res)
	}

	// (d) chapter end.
	if st.chapterRef != nil && st.pointer >= st.chapterRef.NumWords() {
		if out, consumed, handled := st.handleChapterEnd(i, seg, segments); handled {
			if consumed {
				return out
			}
			// handleChapterEnd just routed this same segment into the
			// new chapter with no inter-chapter special consuming it,
			// arming isFirstAfterTransition for it; the Basmala-fused
			// retry has to run now, against this segment, not on the
			// next processSegment call.
			if st.isFirstAfterTransition {
				st.isFirstAfterTransition = false
				if out, ok := st.basmalaFusedRetry(seg); ok {
					return out
				}
			}
			if res, ok := st.attemptAlign(seg, st.params.NormalLookbackWords, st.params.NormalLookaheadWords, st.params.MaxEditDistance); ok {
				return st.accept(i, seg, res)
			}
		}
	}

	// (f) retry tiers.
	if st.stats != nil {
		st.stats.Tier1Attempts++
	}
	if res, ok := st.attemptAlign(seg, st.params.RetryLookbackWords, st.params.RetryLookaheadWords, st.params.MaxEditDistance); ok {
		if st.stats != nil {
			st.stats.Tier1Passes++
			st.stats.Tier1Segments = append(st.stats.Tier1Segments, i)
		}
		return st.accept(i, seg, res)
	}

	if st.stats != nil {
		st.stats.Tier2Attempts++
	}
	if res, ok := st.attemptAlign(seg, st.params.RetryLookbackWords, st.params.RetryLookaheadWords, st.params.MaxEditDistanceRelaxed); ok {
		if st.stats != nil {
			st.stats.Tier2Passes++
			st.stats.Tier2Segments = append(st.stats.Tier2Segments, i)
		}
		return st.accept(i, seg, res)
	}

	if m, ok := special.DetectTransition(seg.Phonemes, st.params.MaxTransitionEditDist, nil); ok {
		out := specialOutput(seg, m)
		st.transitionMode = true
		st.transitionExpectedPointer = 0
		if m.Name == special.Tahmeed {
			st.peekTahmeedMerge(i, segments, &out)
		}
		return out
	}

	st.consecutiveFailures++
	if st.consecutiveFailures >= st.params.MaxConsecutiveFailures {
		st.globalReanchor(i, segments, false)
	}
	return SegmentOutput{StartTime: seg.StartS, EndTime: seg.EndS, Error: "Low confidence (0%)"}
}

// attemptAlign runs the DP engine over the word-window
// [pointer-lookback, pointer+lookahead] of the current chapter and
// accepts the candidate only if its normalised distance clears
// maxEditDist.
func (st *state) attemptAlign(seg Segment, lookback, lookahead int, maxEditDist float64) (dp.Result, bool) {
	if st.chapterRef == nil || len(seg.Phonemes) == 0 {
		return dp.Result{}, false
	}
	r, owners := window(st.chapterRef, st.pointer-lookback, st.pointer+lookahead+1)
	if r == nil {
		return dp.Result{}, false
	}
	if st.stats != nil {
		st.stats.DPCalls++
	}
	res, ok := dp.Align(dp.Input{
		P:            seg.Phonemes,
		R:            r,
		RPhoneToWord: owners,
		ExpectedWord: int32(st.pointer),
		Costs:        st.params.Costs,
		SubCost:      st.store.SubCost,
		PriorWeight:  st.params.PriorWeight,
	})
	if !ok || res.NormDist > maxEditDist {
		return dp.Result{}, false
	}
	return res, true
}

// basmalaFusedRetry tries the DP once with the canonical Basmala
// phonemes virtually prepended to the reference window; it is
// accepted over the plain attempt only if the fused match actually
// crossed into the prepended region and its confidence strictly beats
// the plain attempt's.
func (st *state) basmalaFusedRetry(seg Segment) (SegmentOutput, bool) {
	if st.chapterRef == nil || len(seg.Phonemes) == 0 {
		return SegmentOutput{}, false
	}
	r, owners := window(st.chapterRef, st.pointer-st.params.NormalLookbackWords, st.pointer+st.params.NormalLookaheadWords+1)
	if r == nil {
		return SegmentOutput{}, false
	}
	basmala := special.CanonicalPhonemes(special.Basmala)
	fusedR, fusedOwners := prependBasmala(basmala, r, owners)

	if st.stats != nil {
		st.stats.DPCalls += 2
	}
	plain, plainOK := dp.Align(dp.Input{
		P: seg.Phonemes, R: r, RPhoneToWord: owners,
		ExpectedWord: int32(st.pointer), Costs: st.params.Costs,
		SubCost: st.store.SubCost, PriorWeight: st.params.PriorWeight,
	})
	fused, fusedOK := dp.Align(dp.Input{
		P: seg.Phonemes, R: fusedR, RPhoneToWord: fusedOwners,
		ExpectedWord: int32(st.pointer), Costs: st.params.Costs,
		SubCost: st.store.SubCost, PriorWeight: st.params.PriorWeight,
		BasmalaPrefixLen: len(basmala),
	})

	if !fusedOK || !fused.BasmalaConsumed || fused.NormDist > st.params.MaxEditDistance {
		return SegmentOutput{}, false
	}
	if plainOK && plain.Confidence >= fused.Confidence {
		return SegmentOutput{}, false
	}

	if st.stats != nil {
		st.stats.SpecialMergeCount++
	}
	text, ref := renderMatch(st.chapterRef.Words, dp.Result{StartWordIdx: fused.StartWordIdx, EndWordIdx: fused.EndWordIdx})
	out := SegmentOutput{
		StartTime:   seg.StartS,
		EndTime:     seg.EndS,
		MatchedText: special.CanonicalText[special.Basmala] + " " + text,
		MatchedRef:  "Basmala+" + ref,
		Confidence:  fused.Confidence,
	}
	st.pointer = int(fused.EndWordIdx) + 1
	st.consecutiveFailures = 0
	return out, true
}

// accept finalises a winning DP candidate: renders its text, advances
// the pointer, resets the failure counter, records it for the
// post-processing gap pass, and resolves the transition-gap check.
func (st *state) accept(i int, seg Segment, res dp.Result) SegmentOutput {
	if st.stats != nil {
		st.stats.SegmentsPassed++
	}
	if st.transitionExpectedPointer >= 0 {
		if int64(res.StartWordIdx) > st.transitionExpectedPointer {
			st.gapSegments[i] = true
		}
		st.transitionExpectedPointer = -1
	}

	text, ref := renderMatch(st.chapterRef.Words, res)
	und := underSegmented(st.chapterRef.Words, res, seg)

	st.pointer = int(res.EndWordIdx) + 1
	st.consecutiveFailures = 0
	st.matches = append(st.matches, matchRecord{
		segIdx: i, surah: st.currentSurah,
		startWord: int(res.StartWordIdx), endWord: int(res.EndWordIdx),
	})

	return SegmentOutput{
		StartTime: seg.StartS, EndTime: seg.EndS,
		MatchedText: text, MatchedRef: ref,
		Confidence:                res.Confidence,
		PotentiallyUndersegmented: und,
	}
}

// handleChapterEnd implements spec §4.7d. It returns handled=false
// only when the next chapter itself could not be loaded (a
// ReferenceUnavailable build failure, left to the normal retry tiers
// to fail out gracefully as a per-segment failure).
func (st *state) handleChapterEnd(i int, seg Segment, segments []Segment) (out SegmentOutput, consumed, handled bool) {
	if st.currentSurah == 1 {
		if m, ok := special.DetectTransition(seg.Phonemes, st.params.MaxTransitionEditDist, map[special.Name]bool{special.Amin: true}); ok {
			out = specialOutput(seg, m)
			st.globalReanchor(i+1, segments, true)
			return out, true, true
		}
	} else if m, ok := special.DetectTransition(seg.Phonemes, st.params.MaxTransitionEditDist, nil); ok {
		out = specialOutput(seg, m)
		next := st.currentSurah + 1
		if next > 114 {
			next = 114
		}
		if ref, err := st.store.Chapter(next); err == nil {
			st.currentSurah, st.chapterRef, st.pointer = next, ref, 0
		}
		st.transitionMode = true
		st.transitionExpectedPointer = 0
		return out, true, true
	}

	var seg1 []phoneme.Phoneme
	if i+1 < len(segments) {
		seg1 = segments[i+1].Phonemes
	}
	ic := special.DetectInterChapter(seg.Phonemes, seg1, st.params.SpecialThreshold)

	if st.currentSurah == 1 {
		st.globalReanchor(i+len(ic.Specials), segments, true)
	} else {
		next := st.currentSurah + 1
		if next > 114 {
			next = 114
		}
		ref, err := st.store.Chapter(next)
		if err != nil {
			return SegmentOutput{}, false, false
		}
		st.currentSurah, st.chapterRef, st.pointer = next, ref, 0
	}

	if len(ic.Specials) == 0 {
		st.isFirstAfterTransition = true
		return SegmentOutput{}, false, true
	}

	out = specialOutput(seg, ic.Specials[0])
	if len(ic.Specials) > 1 {
		st.pendingSpecials = []SegmentOutput{specialOutput(segments[i+1], ic.Specials[1])}
		st.skipCount = 1
	}
	st.isFirstAfterTransition = true
	return out, true, true
}

// peekTahmeedMerge checks whether the next segment is itself Tahmeed
// (the congregational response "rabbanā wa-laka-l-ḥamd"); if so the
// current segment's end time is extended to cover it and the next
// segment is consumed as a merged placeholder.
func (st *state) peekTahmeedMerge(i int, segments []Segment, out *SegmentOutput) {
	if i+1 >= len(segments) {
		return
	}
	if _, ok := special.DetectTransition(segments[i+1].Phonemes, st.params.MaxTransitionEditDist, map[special.Name]bool{special.Tahmeed: true}); ok {
		st.tahmeedMergeSkip = 1
		out.EndTime = segments[i+1].EndS
		if st.stats != nil {
			st.stats.SpecialMergeCount++
		}
	}
}

// globalReanchor re-runs the n-gram vote (unconstrained by surah) over
// the first Params.AnchorSegments non-empty phoneme lists from
// segments[from:], falling back to surah 2 ayah 1 if voting finds
// nothing (mirroring the Al-Fatiha chapter-end fallback, spec §4.7d).
// suppressGapCheck skips arming the transition-expected-pointer check,
// used when gaps are expected by construction (the Al-Fatiha
// boundary).
func (st *state) globalReanchor(from int, segments []Segment, suppressGapCheck bool) {
	var lists [][]phoneme.Phoneme
	for _, s := range segments[min(from, len(segments)):] {
		if len(s.Phonemes) == 0 {
			continue
		}
		lists = append(lists, s.Phonemes)
		if len(lists) >= st.params.AnchorSegments {
			break
		}
	}

	res := anchor.FindGlobal(st.ngramIdx, lists, st.params.Anchor)
	if st.stats != nil {
		st.stats.ReanchorCount++
	}
	surah, ayah := res.Surah, res.Ayah
	if surah == 0 {
		log.Printf("[GLOBAL-REANCHOR] no votes from segment %d onward; falling back to surah 2", from)
		surah, ayah = 2, 1
	}
	ref, err := st.store.Chapter(surah)
	if err != nil {
		log.Printf("[GLOBAL-REANCHOR] failed to load surah %d: %v", surah, err)
		return
	}

	st.currentSurah = surah
	st.chapterRef = ref
	st.pointer = anchor.VerseToWordIndex(ref, ayah)
	st.consecutiveFailures = 0
	if suppressGapCheck {
		st.transitionExpectedPointer = -1
	} else {
		st.transitionExpectedPointer = int64(st.pointer)
	}
	log.Printf("[GLOBAL-REANCHOR] resumed at surah %d ayah %d (segment %d)", surah, ayah, from)
}

// postProcess implements spec §4.7's post-processing gap detection and
// §4.8's final-segment confidence penalty, once every segment has
// been emitted.
func (st *state) postProcess(outputs []SegmentOutput, total int, initialSurah uint8, initialPointer int) {
	for idx := range st.mergedInto {
		outputs[idx] = SegmentOutput{}
	}

	if len(st.matches) == 0 {
		return
	}

	for k := 1; k < len(st.matches); k++ {
		prev, cur := st.matches[k-1], st.matches[k]
		if prev.surah == cur.surah && cur.startWord > prev.endWord+1 {
			st.gapSegments[prev.segIdx] = true
			st.gapSegments[cur.segIdx] = true
		}
	}

	first := st.matches[0]
	if first.surah == initialSurah && first.startWord > initialPointer {
		st.gapSegments[first.segIdx] = true
	}

	last := st.matches[len(st.matches)-1]
	if last.segIdx == total-1 {
		if ref, err := st.store.Chapter(last.surah); err == nil && last.endWord < len(ref.Words) {
			ayah := ref.Words[last.endWord].Ayah
			lastOfAyah := last.endWord
			for idx := last.endWord; idx < len(ref.Words) && ref.Words[idx].Ayah == ayah; idx++ {
				lastOfAyah = idx
			}
			if lastOfAyah > last.endWord {
				st.gapSegments[last.segIdx] = true
				conf := outputs[last.segIdx].Confidence - 0.25
				if conf < 0 {
					conf = 0
				}
				outputs[last.segIdx].Confidence = conf
			}
		}
	}

	for _, m := range st.matches {
		if st.gapSegments[m.segIdx] {
			outputs[m.segIdx].HasMissingWords = true
		}
	}
}

func specialOutput(seg Segment, m special.Match) SegmentOutput {
	return SegmentOutput{
		StartTime: seg.StartS, EndTime: seg.EndS,
		MatchedText: special.CanonicalText[m.Name],
		MatchedRef:  string(m.Name),
		Confidence:  m.Confidence,
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
