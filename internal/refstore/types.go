// Package refstore loads and serves the three precomputed artifacts the
// alignment pipeline treats as immutable, shared, read-only reference
// data: per-chapter word/phoneme references, the
// Qur'an-wide phoneme n-gram index, and the phoneme substitution cost
// table.
package refstore

import (
	"strconv"
	"strings"

	"quranalign/internal/phoneme"
)

// ScriptWord is one location-keyed entry from the dual-script Qur'an
// JSON documents, after verse-marker filtering: Text is the compute
// (QPC Hafs-equivalent) script driving phonemisation and word indices,
// DisplayText is the rendering-only script, falling back to Text when
// the display document has no entry for the location.
type ScriptWord struct {
	Surah       uint8
	Ayah        uint16
	Word        uint16
	Text        string
	DisplayText string
}

// ChapterRef is the flattened, DP-ready representation of one surah's
// text: the ordered word list plus the same phonemes laid out as one
// flat slice with a parallel "which word owns this phoneme" index, so
// the DP engine (internal/dp) never has to re-walk word boundaries.
type ChapterRef struct {
	Surah            uint8
	Words            []phoneme.Word // ayah-sorted, word_num-sorted within ayah
	AvgPhonesPerWord float64

	FlatPhonemes     []phoneme.Phoneme
	FlatPhoneToWord  []uint32 // same length as FlatPhonemes; owning word index
	WordPhoneOffsets []uint32 // len(Words)+1; prefix-sum offsets into FlatPhonemes
}

// NumWords returns the word count of the chapter.
func (c *ChapterRef) NumWords() int { return len(c.Words) }

// PhonemeRange returns the flat-phoneme slice belonging to word index i.
func (c *ChapterRef) PhonemeRange(i int) []phoneme.Phoneme {
	return c.FlatPhonemes[c.WordPhoneOffsets[i]:c.WordPhoneOffsets[i+1]]
}

// SurahAyah identifies a verse.
type SurahAyah struct {
	Surah uint8
	Ayah  uint16
}

// String renders "surah:ayah".
func (sa SurahAyah) String() string {
	return strconv.Itoa(int(sa.Surah)) + ":" + strconv.Itoa(int(sa.Ayah))
}

// NgramIndex maps observed phoneme n-grams to the (surah, ayah) pairs
// they occur in, plus their total occurrence counts, built once from all
// 114 chapter references and used read-only thereafter.
type NgramIndex struct {
	N         int
	Positions map[string][]SurahAyah
	Counts    map[string]uint32
}

// Key joins an n-gram of phonemes into a map key. Phoneme slices aren't
// comparable, so n-grams are interned as strings joined on a separator
// that cannot appear inside a phoneme symbol.
func Key(ngram []phoneme.Phoneme) string {
	b := make([]string, len(ngram))
	for i, p := range ngram {
		b[i] = string(p)
	}
	return strings.Join(b, "\x1f")
}

// SubCostTable is a symmetric phoneme-pair substitution cost table
//. Missing entries fall back to a configured default; identical
// phonemes always cost 0.
type SubCostTable struct {
	costs   map[[2]string]float64
	Default float64
}

// NewSubCostTable creates an empty table with the given default cost for
// unlisted phoneme pairs.
func NewSubCostTable(defaultCost float64) *SubCostTable {
	return &SubCostTable{costs: make(map[[2]string]float64), Default: defaultCost}
}

// Set stores the cost for (a, b), mirrored for (b, a) so lookups never
// depend on argument order.
func (t *SubCostTable) Set(a, b phoneme.Phoneme, cost float64) {
	t.costs[[2]string{string(a), string(b)}] = cost
	t.costs[[2]string{string(b), string(a)}] = cost
}

// Cost returns the substitution cost for (a, b): 0 if equal, the stored
// value if present, otherwise Default.
func (t *SubCostTable) Cost(a, b phoneme.Phoneme) float64 {
	if a == b {
		return 0
	}
	if c, ok := t.costs[[2]string{string(a), string(b)}]; ok {
		return c
	}
	return t.Default
}
