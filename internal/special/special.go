// Package special detects the liturgical segments that are not part of
// the Qur'anic text proper: the two opening invocations (Isti'adha,
// Basmala) and inter-ayah transitions (Amin, Takbir, Tahmeed, Tasleem,
// Sadaqa), per spec §4.4.
package special

import "quranalign/internal/phoneme"

// Name identifies a special segment kind.
type Name string

const (
	Istiadha Name = "Isti'adha"
	Basmala  Name = "Basmala"
	Combined Name = "combined" // Isti'adha + Basmala fused into one segment
	Amin     Name = "Amin"
	Takbir   Name = "Takbir"
	Tahmeed  Name = "Tahmeed"
	Tasleem  Name = "Tasleem"
	Sadaqa   Name = "Sadaqa"
)

// Canonical phoneme sequences for each special segment, hard-coded
// constants as in the reference implementation. These are
// loaded once and compared against ASR output via normalised edit
// distance; they never change at runtime.
var canonicalPhonemes = map[Name][]phoneme.Phoneme{
	Istiadha: phonemize("a", "3", "uu", "dh", "u", "b", "i", "l", "l", "aa", "h", "i",
		"m", "i", "n", "a", "sh", "sh", "ay", "t", "aa", "n", "i", "r", "r", "aj", "ii", "m"),
	Basmala: phonemize("b", "i", "s", "m", "i", "l", "l", "aa", "h", "i",
		"r", "r", "a7", "m", "aa", "n", "i", "r", "r", "a7", "ii", "m"),
	Amin:    phonemize("aa", "m", "ii", "n"),
	Takbir:  phonemize("a", "l", "l", "aa", "h", "u", "a", "k", "b", "a", "r"),
	Tahmeed: phonemize("a", "l", "7", "a", "m", "d", "u", "l", "i", "l", "l", "aa", "h"),
	Tasleem: phonemize("a", "s", "s", "a", "l", "aa", "m", "u", "3", "a", "l", "ay", "k", "u", "m"),
	Sadaqa:  phonemize("s", "a", "d", "a", "q", "a", "l", "l", "aa", "h", "u", "l", "3", "a", "dh", "ii", "m"),
}

func init() {
	canonicalPhonemes[Combined] = append(append([]phoneme.Phoneme{}, canonicalPhonemes[Istiadha]...), canonicalPhonemes[Basmala]...)
}

func phonemize(ps ...string) []phoneme.Phoneme {
	out := make([]phoneme.Phoneme, len(ps))
	for i, p := range ps {
		out[i] = phoneme.Phoneme(p)
	}
	return out
}

// CanonicalText is the Arabic text emitted for a fully-matched special
// segment, independent of the phoneme sequence used for detection.
var CanonicalText = map[Name]string{
	Istiadha: "أَعُوذُ بِٱللَّهِ مِنَ ٱلشَّيْطَٰنِ ٱلرَّجِيمِ",
	Basmala:  "بِسْمِ ٱللَّهِ ٱلرَّحْمَٰنِ ٱلرَّحِيمِ",
	Amin:     "آمِين",
	Takbir:   "ٱللَّهُ أَكْبَر",
	Tahmeed:  "ٱلْحَمْدُ لِلَّٰه",
	Tasleem:  "ٱلسَّلَامُ عَلَيْكُمْ",
	Sadaqa:   "صَدَقَ ٱللَّهُ ٱلْعَظِيم",
}

// CanonicalPhonemes returns the hard-coded detection sequence for name,
// exposed so callers outside this package (the alignment state machine's
// Basmala-fused retry, spec §4.7e) can splice it into a DP window.
func CanonicalPhonemes(name Name) []phoneme.Phoneme {
	return canonicalPhonemes[name]
}

// Match is a detected special segment.
type Match struct {
	Name       Name
	Confidence float64 // 1 - normalised edit distance
	Dist       float64
}

// NormalizedEditDistance computes edit(asr, ref) / max(len(asr), len(ref))
//. Two empty sequences are defined as distance 0.
func NormalizedEditDistance(asr, ref []phoneme.Phoneme) float64 {
	if len(asr) == 0 && len(ref) == 0 {
		return 0
	}
	edit := levenshtein(asr, ref)
	denom := len(asr)
	if len(ref) > denom {
		denom = len(ref)
	}
	if denom == 0 {
		return 0
	}
	return float64(edit) / float64(denom)
}

// levenshtein computes the classic edit distance between two phoneme
// sequences, operating on interned Phoneme tokens instead of runes.
func levenshtein(a, b []phoneme.Phoneme) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			matrix[i][j] = minInt(
				minInt(matrix[i-1][j]+1, matrix[i][j-1]+1),
				matrix[i-1][j-1]+cost,
			)
		}
	}
	return matrix[len(a)][len(b)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// detect tries every candidate name, returning the one with the lowest
// normalised distance within threshold; on equal distance the earlier
// name wins. Callers that need a strict priority (DetectInitial,
// DetectInterChapter) call it with one name at a time, in order.
func detect(asr []phoneme.Phoneme, names []Name, threshold float64) (Match, bool) {
	best := Match{}
	found := false
	for _, name := range names {
		dist := NormalizedEditDistance(asr, canonicalPhonemes[name])
		if dist <= threshold && (!found || dist < best.Dist) {
			best = Match{Name: name, Confidence: 1 - dist, Dist: dist}
			found = true
		}
	}
	return best, found
}
