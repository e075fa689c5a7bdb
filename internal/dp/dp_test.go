package dp

import (
	"testing"

	"quranalign/internal/phoneme"
)

func ph(ss ...string) []phoneme.Phoneme {
	out := make([]phoneme.Phoneme, len(ss))
	for i, s := range ss {
		out[i] = phoneme.Phoneme(s)
	}
	return out
}

func unitCosts() Costs { return Costs{Del: 1, Ins: 1} }

func unitSubCost(a, b phoneme.Phoneme) float64 {
	if a == b {
		return 0
	}
	return 1
}

// wordsOf builds an RPhoneToWord slice assigning n phonemes per word,
// word indices starting at startWord.
func wordsOf(startWord int32, phonemesPerWord ...int) []int32 {
	var out []int32
	w := startWord
	for _, n := range phonemesPerWord {
		for i := 0; i < n; i++ {
			out = append(out, w)
		}
		w++
	}
	return out
}

func TestAlignExactMatchZeroCost(t *testing.T) {
	// R = three two-phoneme words: [b i][s m][aa h], P matches word 1 exactly.
	r := ph("b", "i", "s", "m", "aa", "h")
	w := wordsOf(0, 2, 2, 2)
	p := ph("s", "m")

	res, ok := Align(Input{
		P: p, R: r, RPhoneToWord: w,
		ExpectedWord: 1, Costs: unitCosts(), SubCost: unitSubCost, PriorWeight: 0.01,
	})
	if !ok {
		t.Fatalf("expected a candidate")
	}
	if res.StartWordIdx != 1 || res.EndWordIdx != 1 {
		t.Fatalf("expected word 1 matched, got start=%d end=%d", res.StartWordIdx, res.EndWordIdx)
	}
	if res.EditCost != 0 || res.NormDist != 0 || res.Confidence != 1 {
		t.Fatalf("expected zero-cost exact match, got %+v", res)
	}
}

func TestAlignToleratesOneSubstitution(t *testing.T) {
	r := ph("b", "i", "s", "m", "aa", "h")
	w := wordsOf(0, 2, 2, 2)
	p := ph("s", "x") // one substitution vs word 1 ("s","m")

	res, ok := Align(Input{
		P: p, R: r, RPhoneToWord: w,
		ExpectedWord: 1, Costs: unitCosts(), SubCost: unitSubCost, PriorWeight: 0.01,
	})
	if !ok {
		t.Fatalf("expected a candidate")
	}
	if res.StartWordIdx != 1 || res.EndWordIdx != 1 {
		t.Fatalf("expected word 1 matched despite substitution, got %+v", res)
	}
	if res.EditCost != 1 {
		t.Fatalf("expected edit cost 1, got %v", res.EditCost)
	}
}

func TestAlignRejectsNonBoundaryStart(t *testing.T) {
	// P matches the tail of word0 + head of word1 ("i","s") — not a
	// valid word-boundary-respecting substring, so the engine must
	// instead settle for a boundary-respecting (worse) candidate.
	r := ph("b", "i", "s", "m")
	w := wordsOf(0, 2, 2)
	p := ph("i", "s")

	res, ok := Align(Input{
		P: p, R: r, RPhoneToWord: w,
		ExpectedWord: 0, Costs: unitCosts(), SubCost: unitSubCost, PriorWeight: 0.01,
	})
	if !ok {
		t.Fatalf("expected a candidate")
	}
	// The start column must land on a word boundary (0 or 2), never
	// column 1 (mid-word0), even though a mid-word match would be
	// cheaper in raw edit distance.
	if res.WindowPhoneStart != 0 && res.WindowPhoneStart != 2 {
		t.Fatalf("start column %d is not a word boundary", res.WindowPhoneStart)
	}
}

func TestAlignPositionPriorBreaksTiesTowardExpectedWord(t *testing.T) {
	// Four two-phoneme words; word 0 and word 3 are both exact matches
	// for P at zero cost, so the tie is broken entirely by the
	// position prior comparing each candidate's end-boundary word
	// index) against ExpectedWord.
	r := ph("a", "b", "x", "y", "p", "q", "a", "b")
	w := wordsOf(0, 2, 2, 2, 2)
	p := ph("a", "b")

	res, ok := Align(Input{
		P: p, R: r, RPhoneToWord: w,
		ExpectedWord: 3, Costs: unitCosts(), SubCost: unitSubCost, PriorWeight: 0.1,
	})
	if !ok {
		t.Fatalf("expected a candidate")
	}
	if res.StartWordIdx != 3 {
		t.Fatalf("expected the prior to favour word 3 (end boundary closest to expected), got %d", res.StartWordIdx)
	}
}

func TestAlignBasmalaPrefixConsumedWhenMatchCrossesIn(t *testing.T) {
	// Prefix "bb" (NoWord) followed by word 0 = "aa". ASR recites the
	// tail of the prefix fused with word 0.
	prefix := ph("b", "b")
	word0 := ph("a", "a")
	r := append(append([]phoneme.Phoneme{}, prefix...), word0...)
	w := append(wordsOf(NoWord, 2), wordsOf(0, 2)...)
	p := ph("b", "a", "a")

	res, ok := Align(Input{
		P: p, R: r, RPhoneToWord: w,
		ExpectedWord: 0, Costs: unitCosts(), SubCost: unitSubCost, PriorWeight: 0.01,
		BasmalaPrefixLen: len(prefix),
	})
	if !ok {
		t.Fatalf("expected a candidate")
	}
	if !res.BasmalaConsumed {
		t.Fatalf("expected BasmalaConsumed=true, got %+v", res)
	}
	if res.StartWordIdx != 0 {
		t.Fatalf("expected verse word 0 as the resolved start, got %d", res.StartWordIdx)
	}
}

func TestAlignEmptyASRHasNoCandidate(t *testing.T) {
	_, ok := Align(Input{
		P: nil, R: ph("a", "b"), RPhoneToWord: wordsOf(0, 2),
		Costs: unitCosts(), SubCost: unitSubCost,
	})
	if ok {
		t.Fatalf("expected no candidate for empty ASR input")
	}
}

func TestAlignConfidenceClampedWhenCostExceedsLength(t *testing.T) {
	r := ph("a", "a", "a")
	w := wordsOf(0, 3)
	p := ph("x", "y", "z", "w", "v") // nothing matches, plus extra deletions

	res, ok := Align(Input{
		P: p, R: r, RPhoneToWord: w,
		ExpectedWord: 0, Costs: unitCosts(), SubCost: unitSubCost, PriorWeight: 0,
	})
	if !ok {
		t.Fatalf("expected a candidate")
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		t.Fatalf("confidence out of bounds: %v", res.Confidence)
	}
}
