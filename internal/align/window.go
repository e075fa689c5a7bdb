package align

import (
	"quranalign/internal/dp"
	"quranalign/internal/phoneme"
	"quranalign/internal/refstore"
)

// window carves out [wordStart, wordEnd) of ref's flat phoneme stream,
// re-expressed as a DP-ready (R, RPhoneToWord) pair. FlatPhoneToWord
// already carries global chapter word indices, so no offset shift is
// needed: the same indices double as dp.Input.ExpectedWord's frame of
// reference.
func window(ref *refstore.ChapterRef, wordStart, wordEnd int) ([]phoneme.Phoneme, []int32) {
	if wordStart < 0 {
		wordStart = 0
	}
	if wordEnd > ref.NumWords() {
		wordEnd = ref.NumWords()
	}
	if wordStart >= wordEnd {
		return nil, nil
	}
	ps, pe := ref.WordPhoneOffsets[wordStart], ref.WordPhoneOffsets[wordEnd]
	r := ref.FlatPhonemes[ps:pe]
	owners := make([]int32, pe-ps)
	for i, w := range ref.FlatPhoneToWord[ps:pe] {
		owners[i] = int32(w)
	}
	return r, owners
}

// prependBasmala builds a virtual window with the canonical Basmala
// phonemes spliced in front of r, tagged dp.NoWord so they never
// resolve to a real chapter word.
func prependBasmala(basmala []phoneme.Phoneme, r []phoneme.Phoneme, owners []int32) ([]phoneme.Phoneme, []int32) {
	fusedR := make([]phoneme.Phoneme, 0, len(basmala)+len(r))
	fusedR = append(fusedR, basmala...)
	fusedR = append(fusedR, r...)

	fusedOwners := make([]int32, 0, len(basmala)+len(owners))
	for range basmala {
		fusedOwners = append(fusedOwners, dp.NoWord)
	}
	fusedOwners = append(fusedOwners, owners...)
	return fusedR, fusedOwners
}
