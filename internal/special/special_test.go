package special

import (
	"testing"

	"quranalign/internal/phoneme"
)

func TestNormalizedEditDistanceIdentical(t *testing.T) {
	seq := canonicalPhonemes[Basmala]
	if d := NormalizedEditDistance(seq, seq); d != 0 {
		t.Fatalf("expected 0 distance for identical sequences, got %v", d)
	}
}

func TestNormalizedEditDistanceBothEmpty(t *testing.T) {
	if d := NormalizedEditDistance(nil, nil); d != 0 {
		t.Fatalf("expected 0 for two empty sequences, got %v", d)
	}
}

func TestDetectInitialCombinedSplitsSegment0(t *testing.T) {
	res := DetectInitial(canonicalPhonemes[Combined], nil, 0.3)
	if !res.SplitSeg0 {
		t.Fatalf("expected SplitSeg0=true for a combined match")
	}
	if len(res.Specials) != 2 {
		t.Fatalf("expected 2 specials (Isti'adha, Basmala), got %+v", res.Specials)
	}
	if res.Specials[0].Name != Istiadha || res.Specials[1].Name != Basmala {
		t.Fatalf("unexpected special order: %+v", res.Specials)
	}
	if res.SegmentsConsumed != 1 {
		t.Fatalf("expected 1 original segment consumed, got %d", res.SegmentsConsumed)
	}
}

func TestDetectInitialIstiadhaThenBasmalaOnSeg1(t *testing.T) {
	res := DetectInitial(canonicalPhonemes[Istiadha], canonicalPhonemes[Basmala], 0.3)
	if res.SplitSeg0 {
		t.Fatalf("expected no split for separate segments")
	}
	if len(res.Specials) != 2 || res.Specials[0].Name != Istiadha || res.Specials[1].Name != Basmala {
		t.Fatalf("expected Isti'adha then Basmala, got %+v", res.Specials)
	}
	if res.SegmentsConsumed != 2 {
		t.Fatalf("expected 2 segments consumed, got %d", res.SegmentsConsumed)
	}
}

func TestDetectInitialIstiadhaAloneWhenSeg1DoesNotMatch(t *testing.T) {
	res := DetectInitial(canonicalPhonemes[Istiadha], []phoneme.Phoneme{"x", "y", "z"}, 0.3)
	if len(res.Specials) != 1 || res.Specials[0].Name != Istiadha {
		t.Fatalf("expected Isti'adha alone, got %+v", res.Specials)
	}
	if res.SegmentsConsumed != 1 {
		t.Fatalf("expected 1 segment consumed, got %d", res.SegmentsConsumed)
	}
}

func TestDetectInitialBasmalaOnly(t *testing.T) {
	res := DetectInitial(canonicalPhonemes[Basmala], nil, 0.3)
	if len(res.Specials) != 1 || res.Specials[0].Name != Basmala {
		t.Fatalf("expected Basmala alone, got %+v", res.Specials)
	}
}

func TestDetectInitialNoMatch(t *testing.T) {
	res := DetectInitial([]phoneme.Phoneme{"q", "u", "r", "a", "n"}, nil, 0.1)
	if len(res.Specials) != 0 {
		t.Fatalf("expected no specials, got %+v", res.Specials)
	}
	if res.SegmentsConsumed != 0 {
		t.Fatalf("expected 0 segments consumed, got %d", res.SegmentsConsumed)
	}
}

func TestDetectTransitionRespectsAllowedSet(t *testing.T) {
	allowed := map[Name]bool{Amin: true}
	_, ok := DetectTransition(canonicalPhonemes[Takbir], 0.3, allowed)
	if ok {
		t.Fatalf("expected Takbir to be rejected when not in the allowed set")
	}
	m, ok := DetectTransition(canonicalPhonemes[Amin], 0.3, allowed)
	if !ok || m.Name != Amin {
		t.Fatalf("expected Amin to match when allowed, got %+v ok=%v", m, ok)
	}
}

func TestDetectTransitionAllowsEveryNameByDefault(t *testing.T) {
	m, ok := DetectTransition(canonicalPhonemes[Tahmeed], 0.3, nil)
	if !ok || m.Name != Tahmeed {
		t.Fatalf("expected Tahmeed to match with nil allowed set, got %+v ok=%v", m, ok)
	}
}
