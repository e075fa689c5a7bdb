package refstore

import (
	"encoding/gob"
	"os"

	"quranalign/internal/alignerr"
)

// Chapter references and the n-gram index round-trip through
// encoding/gob: the standard library's own general-purpose binary
// serialization, needing no schema file, unlike the protobuf wire
// format already committed to the gRPC surface for a different
// concern (RPC, not on-disk caching).

// LoadChapterCache reads a gob-encoded `map[uint8]*ChapterRef` cache
// file. A missing file is not an error: the caller falls back to
// on-demand construction per chapter.
func LoadChapterCache(path string) (map[uint8]*ChapterRef, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, alignerr.DataCorruption(path, err.Error())
	}
	defer f.Close()

	var chapters map[uint8]*ChapterRef
	if err := gob.NewDecoder(f).Decode(&chapters); err != nil {
		return nil, alignerr.DataCorruption(path, err.Error())
	}
	return chapters, nil
}

// SaveChapterCache writes the chapter reference cache in the same
// format LoadChapterCache reads.
func SaveChapterCache(path string, chapters map[uint8]*ChapterRef) error {
	f, err := os.Create(path)
	if err != nil {
		return alignerr.DataCorruption(path, err.Error())
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(chapters); err != nil {
		return alignerr.DataCorruption(path, err.Error())
	}
	return nil
}

type ngramCacheFile struct {
	N         int
	Positions map[string][]SurahAyah
	Counts    map[string]uint32
}

// LoadNgramCache reads the gob-encoded n-gram index cache. A missing
// file is not an error: the caller must build the index from chapter
// references instead (see internal/anchor for the consumer).
func LoadNgramCache(path string) (*NgramIndex, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, alignerr.DataCorruption(path, err.Error())
	}
	defer f.Close()

	var raw ngramCacheFile
	if err := gob.NewDecoder(f).Decode(&raw); err != nil {
		return nil, alignerr.DataCorruption(path, err.Error())
	}
	return &NgramIndex{N: raw.N, Positions: raw.Positions, Counts: raw.Counts}, nil
}

// SaveNgramCache writes the n-gram index cache in the same format
// LoadNgramCache reads: N, Positions and Counts. No total_ngrams
// count is stored, and NgramIndex carries no such field.
func SaveNgramCache(path string, idx *NgramIndex) error {
	f, err := os.Create(path)
	if err != nil {
		return alignerr.DataCorruption(path, err.Error())
	}
	defer f.Close()
	raw := ngramCacheFile{N: idx.N, Positions: idx.Positions, Counts: idx.Counts}
	if err := gob.NewEncoder(f).Encode(raw); err != nil {
		return alignerr.DataCorruption(path, err.Error())
	}
	return nil
}

// BuildNgramIndex derives the n-gram index from a full set of chapter
// references, for when no cache file is present.
func BuildNgramIndex(chapters map[uint8]*ChapterRef, n int) *NgramIndex {
	idx := &NgramIndex{
		N:         n,
		Positions: make(map[string][]SurahAyah),
		Counts:    make(map[string]uint32),
	}
	// Walk each chapter's flat phoneme stream so n-grams may span word
	// boundaries within an ayah run, same as the reference phonemiser's
	// concatenated-word view.
	for _, ref := range chapters {
		indexChapterNgrams(idx, ref, n)
	}
	return idx
}

func indexChapterNgrams(idx *NgramIndex, ref *ChapterRef, n int) {
	flat := ref.FlatPhonemes
	owners := ref.FlatPhoneToWord
	if len(flat) < n {
		return
	}
	seen := make(map[string]bool)
	for i := 0; i+n <= len(flat); i++ {
		gram := flat[i : i+n]
		key := Key(gram)
		wordIdx := owners[i]
		sa := SurahAyah{Surah: ref.Surah, Ayah: ref.Words[wordIdx].Ayah}
		dedupeKey := key + "\x00" + sa.String()
		if seen[dedupeKey] {
			continue
		}
		seen[dedupeKey] = true
		idx.Positions[key] = append(idx.Positions[key], sa)
		idx.Counts[key]++
	}
}
