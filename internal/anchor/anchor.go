// Package anchor locates a recitation's starting position in the
// Qur'an text by rarity-weighted phoneme n-gram voting,
// and can repeat the vote restricted to a known surah.
package anchor

import (
	"sort"

	"quranalign/internal/phoneme"
	"quranalign/internal/refstore"
)

// Params bounds the voting algorithm's behaviour.
type Params struct {
	TopCandidates  int     // shortlist size for phase 1 (ANCHOR_TOP_CANDIDATES)
	RunTrimRatio   float64 // trims a run's edges below ratio*max_weight_in_run
	RarityWeighted bool    // weight votes by 1/count[ngram] instead of 1.0
}

// Result is a resolved (surah, ayah) anchor. Surah 0 means no anchor
// was found.
type Result struct {
	Surah uint8
	Ayah  uint16
}

// run is a maximal span of consecutive voted ayahs within one surah.
type run struct {
	start, end uint16
	weight     float64
}

// collectNgrams concatenates the first non-empty phoneme lists in
// segments (up to len(segments)) and extracts all contiguous n-grams
// of size n.
func collectNgrams(segments [][]phoneme.Phoneme, n int) []string {
	var combined []phoneme.Phoneme
	for _, seg := range segments {
		if len(seg) > 0 {
			combined = append(combined, seg...)
		}
	}
	if len(combined) < n {
		return nil
	}
	ngrams := make([]string, 0, len(combined)-n+1)
	for i := 0; i+n <= len(combined); i++ {
		ngrams = append(ngrams, refstore.Key(combined[i:i+n]))
	}
	return ngrams
}

// vote accumulates (surah, ayah) weights for the given n-grams against
// the index, restricted to surah when onlySurah is non-zero.
func vote(idx *refstore.NgramIndex, ngrams []string, rarityWeighted bool, onlySurah uint8) map[refstore.SurahAyah]float64 {
	votes := make(map[refstore.SurahAyah]float64)
	for _, ng := range ngrams {
		positions, ok := idx.Positions[ng]
		if !ok {
			continue
		}
		weight := 1.0
		if rarityWeighted {
			weight = 1.0 / float64(idx.Counts[ng])
		}
		for _, sa := range positions {
			if onlySurah != 0 && sa.Surah != onlySurah {
				continue
			}
			votes[sa] += weight
		}
	}
	return votes
}

// bestContiguousRun finds the highest-weight run of consecutive ayahs
// in ayahWeights, then trims its leading/trailing ayahs whose
// individual weight falls below trimRatio*max_weight_in_run.
func bestContiguousRun(ayahWeights map[uint16]float64, trimRatio float64) run {
	if len(ayahWeights) == 0 {
		return run{}
	}

	ayahs := make([]uint16, 0, len(ayahWeights))
	for a := range ayahWeights {
		ayahs = append(ayahs, a)
	}
	sort.Slice(ayahs, func(i, j int) bool { return ayahs[i] < ayahs[j] })

	var runs []run
	cur := run{start: ayahs[0], end: ayahs[0], weight: ayahWeights[ayahs[0]]}
	for _, a := range ayahs[1:] {
		if a == cur.end+1 {
			cur.end = a
			cur.weight += ayahWeights[a]
			continue
		}
		runs = append(runs, cur)
		cur = run{start: a, end: a, weight: ayahWeights[a]}
	}
	runs = append(runs, cur)

	best := runs[0]
	for _, r := range runs[1:] {
		if r.weight > best.weight {
			best = r
		}
	}

	maxW := ayahWeights[best.start]
	for a := best.start; a <= best.end; a++ {
		if w := ayahWeights[a]; w > maxW {
			maxW = w
		}
	}
	threshold := trimRatio * maxW

	for best.start < best.end && ayahWeights[best.start] < threshold {
		best.weight -= ayahWeights[best.start]
		best.start++
	}
	for best.end > best.start && ayahWeights[best.end] < threshold {
		best.weight -= ayahWeights[best.end]
		best.end--
	}

	return best
}

// FindGlobal votes across the whole index to locate the chapter and
// starting verse for a recitation. segments should be the
// first ANCHOR_SEGMENTS non-empty Qur'an-content segments' phoneme
// lists; Result.Surah is 0 if nothing was voted for.
func FindGlobal(idx *refstore.NgramIndex, segments [][]phoneme.Phoneme, p Params) Result {
	ngrams := collectNgrams(segments, idx.N)
	votes := vote(idx, ngrams, p.RarityWeighted, 0)
	if len(votes) == 0 {
		return Result{}
	}

	surahTotals := make(map[uint8]float64)
	for sa, w := range votes {
		surahTotals[sa.Surah] += w
	}

	type ranked struct {
		surah uint8
		total float64
	}
	rankedSurahs := make([]ranked, 0, len(surahTotals))
	for s, total := range surahTotals {
		rankedSurahs = append(rankedSurahs, ranked{s, total})
	}
	sort.Slice(rankedSurahs, func(i, j int) bool { return rankedSurahs[i].total > rankedSurahs[j].total })

	top := p.TopCandidates
	if top <= 0 || top > len(rankedSurahs) {
		top = len(rankedSurahs)
	}

	var bestSurah uint8
	bestRun := run{weight: -1}
	for _, cand := range rankedSurahs[:top] {
		ayahWeights := make(map[uint16]float64)
		for sa, w := range votes {
			if sa.Surah == cand.surah {
				ayahWeights[sa.Ayah] = w
			}
		}
		r := bestContiguousRun(ayahWeights, p.RunTrimRatio)
		if r.weight > bestRun.weight {
			bestRun = r
			bestSurah = cand.surah
		}
	}

	return Result{Surah: bestSurah, Ayah: bestRun.start}
}

// ReanchorWithinSurah repeats the voting algorithm restricted to a
// known surah. The alignment state machine does not call it: after
// MAX_CONSECUTIVE_FAILURES DP rejections it re-anchors with FindGlobal.
// Returns ayah 0 if no votes landed in the surah.
func ReanchorWithinSurah(idx *refstore.NgramIndex, segments [][]phoneme.Phoneme, surah uint8, p Params) uint16 {
	ngrams := collectNgrams(segments, idx.N)
	votes := vote(idx, ngrams, p.RarityWeighted, surah)
	if len(votes) == 0 {
		return 0
	}

	ayahWeights := make(map[uint16]float64, len(votes))
	for sa, w := range votes {
		ayahWeights[sa.Ayah] = w
	}

	r := bestContiguousRun(ayahWeights, p.RunTrimRatio)
	return r.start
}

// VerseToWordIndex finds the index of the first word in ayah within
// ref.Words, or 0 if the ayah isn't present.
func VerseToWordIndex(ref *refstore.ChapterRef, ayah uint16) int {
	for i, w := range ref.Words {
		if w.Ayah == ayah {
			return i
		}
	}
	return 0
}
