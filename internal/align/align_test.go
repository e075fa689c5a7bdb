package align

import (
	"context"
	"testing"

	"quranalign/internal/anchor"
	"quranalign/internal/phoneme"
	"quranalign/internal/refstore"
	"quranalign/internal/special"
)

// buildChapterRef constructs a flattened ChapterRef from a list of
// ayahs, each a list of single-phoneme words named after their text,
// so test phoneme sequences can be written as plain word lists.
func buildChapterRef(surah uint8, ayahWords [][]string) *refstore.ChapterRef {
	var words []phoneme.Word
	var flat []phoneme.Phoneme
	var owners []uint32
	offsets := []uint32{0}

	wordIdx := uint32(0)
	for ayahIdx, ws := range ayahWords {
		ayah := uint16(ayahIdx + 1)
		for wn, w := range ws {
			ph := []phoneme.Phoneme{phoneme.Phoneme(w)}
			words = append(words, phoneme.Word{
				ArabicText: w, DisplayText: w, Phonemes: ph,
				Surah: surah, Ayah: ayah, WordNum: uint16(wn + 1),
			})
			flat = append(flat, ph...)
			owners = append(owners, wordIdx)
			offsets = append(offsets, uint32(len(flat)))
			wordIdx++
		}
	}
	return &refstore.ChapterRef{
		Surah: surah, Words: words,
		FlatPhonemes: flat, FlatPhoneToWord: owners, WordPhoneOffsets: offsets,
	}
}

func testStore(chapters map[uint8]*refstore.ChapterRef) *refstore.Store {
	idx := &refstore.NgramIndex{N: 2, Positions: map[string][]refstore.SurahAyah{}, Counts: map[string]uint32{}}
	return refstore.New(chapters, idx, refstore.NewSubCostTable(1), nil, nil)
}

func segOf(start, end float64, words ...string) Segment {
	ph := make([]phoneme.Phoneme, len(words))
	for i, w := range words {
		ph[i] = phoneme.Phoneme(w)
	}
	return Segment{StartS: start, EndS: end, Phonemes: ph}
}

func TestRunAlIkhlasFourAyahsAllMatch(t *testing.T) {
	ref := buildChapterRef(112, [][]string{
		{"qul", "huwa"},
		{"allahu", "ahad"},
		{"allahu", "assamad"},
		{"lam", "yalid"},
	})
	store := testStore(map[uint8]*refstore.ChapterRef{112: ref})

	segments := []Segment{
		segOf(0, 6, "qul", "huwa"),
		segOf(6, 12, "allahu", "ahad"),
		segOf(12, 18, "allahu", "assamad"),
		segOf(18, 24, "lam", "yalid"),
	}

	report, err := Run(context.Background(), store, store.NgramIndex(), segments, anchor.Result{Surah: 112, Ayah: 1}, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(report.Segments))
	}
	for i, seg := range report.Segments {
		if seg.HasMissingWords {
			t.Errorf("segment %d: expected no missing words, got HasMissingWords=true (%+v)", i, seg)
		}
		if seg.Confidence < 0.8 {
			t.Errorf("segment %d: expected confidence >= 0.8, got %v", i, seg.Confidence)
		}
	}
	last := report.Segments[3]
	if last.MatchedRef != "112:4:1-112:4:2" {
		t.Errorf("expected last ref 112:4:1-112:4:2, got %q", last.MatchedRef)
	}
}

func TestRunGapDetectionFlagsBothSides(t *testing.T) {
	ref := buildChapterRef(2, [][]string{
		{"w0", "w1", "w2", "w3", "w4", "w5", "w6", "w7"},
	})
	store := testStore(map[uint8]*refstore.ChapterRef{2: ref})

	// Segment 1 skips words 2 and 3, landing on word 4 directly.
	segments := []Segment{
		segOf(0, 2, "w0", "w1"),
		segOf(2, 4, "w4", "w5"),
	}

	report, err := Run(context.Background(), store, store.NgramIndex(), segments, anchor.Result{Surah: 2, Ayah: 1}, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Segments[0].HasMissingWords || !report.Segments[1].HasMissingWords {
		t.Fatalf("expected both segments flagged with missing words, got %+v", report.Segments)
	}
}

func TestRunTahmeedMergePlaceholder(t *testing.T) {
	ref := buildChapterRef(1, [][]string{{"x0", "x1", "x2"}})
	store := testStore(map[uint8]*refstore.ChapterRef{1: ref})

	tahmeed := special.CanonicalPhonemes(special.Tahmeed)
	segments := []Segment{
		segOf(0, 1, "x0"),
		{StartS: 1, EndS: 2, Phonemes: tahmeed},
		{StartS: 2, EndS: 3, Phonemes: tahmeed},
	}

	report, err := Run(context.Background(), store, store.NgramIndex(), segments, anchor.Result{Surah: 1, Ayah: 1}, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Segments[1].MatchedRef != string(special.Tahmeed) {
		t.Fatalf("expected segment 1 to be Tahmeed, got %+v", report.Segments[1])
	}
	if report.Segments[1].EndTime != 3 {
		t.Fatalf("expected Tahmeed segment's end time extended to 3, got %v", report.Segments[1].EndTime)
	}
	if report.Segments[2].MatchedRef != "" || report.Segments[2].MatchedText != "" {
		t.Fatalf("expected segment 2 to be an empty merged placeholder, got %+v", report.Segments[2])
	}
}

func TestRunChapterEndBasmalaFusedRetrySameSegment(t *testing.T) {
	ref2 := buildChapterRef(2, [][]string{{"c2w0", "c2w1"}})
	ref3 := buildChapterRef(3, [][]string{{"c3w0", "c3w1"}})
	store := testStore(map[uint8]*refstore.ChapterRef{2: ref2, 3: ref3})

	// The reciter moves from surah 2 straight into surah 3 with no
	// pause, and the Basmala gets fused into the same audio segment as
	// 3:1:1-3:1:2 (no separate Basmala segment for DetectInterChapter
	// to pick off). A low SpecialThreshold keeps this test isolated
	// from that detector entirely, so it only exercises the fused
	// retry that handleChapterEnd hands off mid-call.
	fused := append(append([]phoneme.Phoneme{}, special.CanonicalPhonemes(special.Basmala)...),
		phoneme.Phoneme("c3w0"), phoneme.Phoneme("c3w1"))

	segments := []Segment{
		segOf(0, 4, "c2w0", "c2w1"),
		{StartS: 4, EndS: 10, Phonemes: fused},
	}

	params := DefaultParams()
	params.SpecialThreshold = 0.05

	report, err := Run(context.Background(), store, store.NgramIndex(), segments, anchor.Result{Surah: 2, Ayah: 1}, params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(report.Segments))
	}

	last := report.Segments[1]
	if last.MatchedRef != "Basmala+3:1:1-3:1:2" {
		t.Fatalf("expected the fused segment to merge Basmala with 3:1:1-3:1:2, got %+v", last)
	}
	if last.Confidence < 0.99 {
		t.Fatalf("expected near-exact confidence on the fused match, got %v", last.Confidence)
	}
}

func TestRunAnchorFailedSurfacesError(t *testing.T) {
	store := testStore(map[uint8]*refstore.ChapterRef{})
	_, err := Run(context.Background(), store, store.NgramIndex(), nil, anchor.Result{}, DefaultParams())
	if err == nil {
		t.Fatal("expected an AnchorFailed error for a zero anchor result")
	}
}
