package align

import (
	"strconv"
	"strings"

	"quranalign/internal/dp"
	"quranalign/internal/phoneme"
)

const ayahMarker = "۝" // end-of-ayah glyph

var arabicIndicDigit = [10]rune{'٠', '١', '٢', '٣', '٤', '٥', '٦', '٧', '٨', '٩'}

func arabicIndicNumber(n uint16) string {
	s := strconv.Itoa(int(n))
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(arabicIndicDigit[r-'0'])
	}
	return b.String()
}

// renderMatch concatenates the chapter's display text across
// [res.StartWordIdx, res.EndWordIdx], inserting an end-of-ayah marker
// after every word that is the last of its ayah in the *chapter*
// (not merely the last of the matched range), and returns the
// "surah:ayah:word[-surah:ayah:word]" matched_ref string.
func renderMatch(words []phoneme.Word, res dp.Result) (text, ref string) {
	var b strings.Builder
	for idx := res.StartWordIdx; idx <= res.EndWordIdx; idx++ {
		w := words[idx]
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w.DisplayText)
		if int(idx) == len(words)-1 || words[idx+1].Ayah != w.Ayah {
			b.WriteString(ayahMarker)
			b.WriteString(arabicIndicNumber(w.Ayah))
		}
	}
	startLoc := words[res.StartWordIdx].Location()
	endLoc := words[res.EndWordIdx].Location()
	if startLoc == endLoc {
		return b.String(), startLoc
	}
	return b.String(), startLoc + "-" + endLoc
}

// underSegmented flags a matched span spanning too much text in too
// little time to plausibly be one utterance: at least 25
// words or a 2+ ayah span, and at least 15 seconds of audio.
func underSegmented(words []phoneme.Word, res dp.Result, seg Segment) bool {
	wordCount := int(res.EndWordIdx-res.StartWordIdx) + 1
	ayahSpan := int(words[res.EndWordIdx].Ayah) - int(words[res.StartWordIdx].Ayah) + 1
	duration := seg.EndS - seg.StartS
	return (wordCount >= 25 || ayahSpan >= 2) && duration >= 15.0
}
