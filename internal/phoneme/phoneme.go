// Package phoneme holds the small, widely-shared data types the rest of
// the alignment pipeline is built on: phonemes and reference words.
package phoneme

import "strconv"

// Phoneme is a short opaque phonetic unit, typically <=4 Unicode
// characters. Phonemes compare by value; they are ordered only by their
// position in a sequence, never lexicographically.
type Phoneme string

// Word is a single reference word from the canonical Qur'anic text.
type Word struct {
	ArabicText  string // compute script, drives phonemisation
	DisplayText string // rendering script, falls back to ArabicText
	Phonemes    []Phoneme
	Surah       uint8
	Ayah        uint16
	WordNum     uint16 // 1-based within the ayah
}

// Location renders the word's surah:ayah:word_num address.
func (w Word) Location() string {
	return strconv.Itoa(int(w.Surah)) + ":" + strconv.Itoa(int(w.Ayah)) + ":" + strconv.Itoa(int(w.WordNum))
}

// Location is a bare surah:ayah:word_num address, used to resolve
// matched_ref strings without requiring a loaded chapter reference.
type Location struct {
	Surah   uint8
	Ayah    uint16
	WordNum uint16
}

// String renders "surah:ayah:word_num".
func (l Location) String() string {
	return strconv.Itoa(int(l.Surah)) + ":" + strconv.Itoa(int(l.Ayah)) + ":" + strconv.Itoa(int(l.WordNum))
}
