package anchor

import (
	"testing"

	"quranalign/internal/phoneme"
	"quranalign/internal/refstore"
)

func buildIndex(n int, entries map[string][]refstore.SurahAyah, counts map[string]uint32) *refstore.NgramIndex {
	return &refstore.NgramIndex{N: n, Positions: entries, Counts: counts}
}

func ph(ss ...string) []phoneme.Phoneme {
	out := make([]phoneme.Phoneme, len(ss))
	for i, s := range ss {
		out[i] = phoneme.Phoneme(s)
	}
	return out
}

func TestFindGlobalPicksHighestRunWeightSurah(t *testing.T) {
	// Bigram "a b" occurs often in surah 2 (noise, scattered ayahs) but
	// surah 1 has a tight consecutive run; the run-weight re-rank must
	// prefer surah 1 even though surah 2's raw total is larger.
	idx := buildIndex(2,
		map[string][]refstore.SurahAyah{
			refstore.Key(ph("a", "b")): {
				{Surah: 1, Ayah: 1}, {Surah: 1, Ayah: 2}, {Surah: 1, Ayah: 3},
				{Surah: 2, Ayah: 5}, {Surah: 2, Ayah: 50}, {Surah: 2, Ayah: 120}, {Surah: 2, Ayah: 200},
			},
		},
		map[string]uint32{refstore.Key(ph("a", "b")): 7},
	)

	segments := [][]phoneme.Phoneme{ph("a", "b")}
	res := FindGlobal(idx, segments, Params{TopCandidates: 5, RunTrimRatio: 0.0, RarityWeighted: false})

	if res.Surah != 1 || res.Ayah != 1 {
		t.Fatalf("expected surah 1 ayah 1, got %+v", res)
	}
}

func TestFindGlobalNoVotesReturnsZero(t *testing.T) {
	idx := buildIndex(2, map[string][]refstore.SurahAyah{}, map[string]uint32{})
	res := FindGlobal(idx, [][]phoneme.Phoneme{ph("x", "y")}, Params{TopCandidates: 3, RunTrimRatio: 0.5})
	if res.Surah != 0 || res.Ayah != 0 {
		t.Fatalf("expected zero result, got %+v", res)
	}
}

func TestFindGlobalSkipsEmptySegments(t *testing.T) {
	key := refstore.Key(ph("a", "b"))
	idx := buildIndex(2,
		map[string][]refstore.SurahAyah{key: {{Surah: 3, Ayah: 10}}},
		map[string]uint32{key: 1},
	)
	segments := [][]phoneme.Phoneme{nil, ph("a", "b"), nil}
	res := FindGlobal(idx, segments, Params{TopCandidates: 1, RunTrimRatio: 0})
	if res.Surah != 3 || res.Ayah != 10 {
		t.Fatalf("expected surah 3 ayah 10, got %+v", res)
	}
}

func TestBestContiguousRunTrimsWeakEdges(t *testing.T) {
	// Run 10-14, but ayah 10 and 14 carry negligible weight relative to
	// the run's max and should be trimmed off.
	weights := map[uint16]float64{
		10: 0.05,
		11: 1.0,
		12: 1.0,
		13: 1.0,
		14: 0.04,
	}
	r := bestContiguousRun(weights, 0.2)
	if r.start != 11 || r.end != 13 {
		t.Fatalf("expected trimmed run 11-13, got %+v", r)
	}
}

func TestBestContiguousRunPicksHighestWeightAmongGaps(t *testing.T) {
	weights := map[uint16]float64{
		1: 0.5, 2: 0.5, // run A: weight 1.0
		10: 2.0, 11: 2.0, 12: 2.0, // run B: weight 6.0, with a gap before it
	}
	r := bestContiguousRun(weights, 0)
	if r.start != 10 || r.end != 12 {
		t.Fatalf("expected run B (10-12) to win, got %+v", r)
	}
}

func TestReanchorWithinSurahRestrictsToSurah(t *testing.T) {
	key := refstore.Key(ph("a", "b"))
	idx := buildIndex(2,
		map[string][]refstore.SurahAyah{
			key: {{Surah: 1, Ayah: 5}, {Surah: 2, Ayah: 5}},
		},
		map[string]uint32{key: 2},
	)
	ayah := ReanchorWithinSurah(idx, [][]phoneme.Phoneme{ph("a", "b")}, 2, Params{RunTrimRatio: 0})
	if ayah != 5 {
		t.Fatalf("expected ayah 5 within surah 2, got %d", ayah)
	}
}

func TestReanchorWithinSurahNoMatchReturnsZero(t *testing.T) {
	idx := buildIndex(2, map[string][]refstore.SurahAyah{}, map[string]uint32{})
	ayah := ReanchorWithinSurah(idx, [][]phoneme.Phoneme{ph("a", "b")}, 1, Params{})
	if ayah != 0 {
		t.Fatalf("expected 0, got %d", ayah)
	}
}

func TestVerseToWordIndexFindsFirstWordOfAyah(t *testing.T) {
	ref := &refstore.ChapterRef{
		Words: []phoneme.Word{
			{Ayah: 1, WordNum: 1},
			{Ayah: 1, WordNum: 2},
			{Ayah: 2, WordNum: 1},
			{Ayah: 2, WordNum: 2},
		},
	}
	if idx := VerseToWordIndex(ref, 2); idx != 2 {
		t.Fatalf("expected index 2, got %d", idx)
	}
}

func TestVerseToWordIndexMissingAyahReturnsZero(t *testing.T) {
	ref := &refstore.ChapterRef{Words: []phoneme.Word{{Ayah: 1, WordNum: 1}}}
	if idx := VerseToWordIndex(ref, 99); idx != 0 {
		t.Fatalf("expected 0, got %d", idx)
	}
}
