package refstore

import (
	"sync"

	"gonum.org/v1/gonum/stat"

	"quranalign/internal/alignerr"
	"quranalign/internal/phoneme"
)

// Phonemizer converts a reference word's Arabic text into its phoneme
// sequence. The store treats it as an opaque external collaborator,
// reached only when a chapter was not precomputed.
type Phonemizer interface {
	Phonemize(arabicText string) []phoneme.Phoneme
}

// ScriptStore holds the canonical word order and dual-script text for
// every surah, as read by LoadScripts.
type ScriptStore struct {
	BySurah map[uint8][]ScriptWord
}

// Store serves chapter references, the n-gram index, and the
// substitution cost table. Chapter references and the
// n-gram index are immutable after construction and shareable
// read-only across concurrent alignment runs; only the first on-demand
// build of a given surah needs synchronisation.
type Store struct {
	mu       sync.RWMutex
	chapters map[uint8]*ChapterRef
	once     map[uint8]*sync.Once

	ngramIdx *NgramIndex
	subCost  *SubCostTable
	scripts  *ScriptStore
	phon     Phonemizer
}

// New builds a Store from precomputed artifacts already loaded into
// memory (e.g. via LoadChapterCache/LoadNgramCache/LoadSubCostJSON),
// plus the script store and phonemizer needed for on-demand chapter
// construction.
func New(cached map[uint8]*ChapterRef, ngramIdx *NgramIndex, subCost *SubCostTable, scripts *ScriptStore, phon Phonemizer) *Store {
	if cached == nil {
		cached = make(map[uint8]*ChapterRef)
	}
	once := make(map[uint8]*sync.Once, 114)
	for s := uint8(1); s <= 114; s++ {
		once[s] = &sync.Once{}
	}
	return &Store{
		chapters: cached,
		once:     once,
		ngramIdx: ngramIdx,
		subCost:  subCost,
		scripts:  scripts,
		phon:     phon,
	}
}

// Chapter returns the reference for surah, building it on demand (and
// caching the result) if it was not precomputed.
func (s *Store) Chapter(surah uint8) (*ChapterRef, error) {
	s.mu.RLock()
	ref, ok := s.chapters[surah]
	s.mu.RUnlock()
	if ok {
		return ref, nil
	}

	once := s.once[surah]
	var buildErr error
	once.Do(func() {
		built, err := s.buildChapter(surah)
		if err != nil {
			buildErr = err
			return
		}
		s.mu.Lock()
		s.chapters[surah] = built
		s.mu.Unlock()
	})
	if buildErr != nil {
		return nil, buildErr
	}

	s.mu.RLock()
	ref, ok = s.chapters[surah]
	s.mu.RUnlock()
	if !ok {
		// once.Do ran on a prior, failed attempt; retry is not attempted
		// here since Once never re-runs the func.
		return nil, alignerr.ReferenceUnavailable(int(surah), buildErr)
	}
	return ref, nil
}

func (s *Store) buildChapter(surah uint8) (*ChapterRef, error) {
	if s.scripts == nil || s.phon == nil {
		return nil, alignerr.ReferenceUnavailable(int(surah), nil)
	}
	words, ok := s.scripts.BySurah[surah]
	if !ok || len(words) == 0 {
		return nil, alignerr.ReferenceUnavailable(int(surah), nil)
	}

	refWords := make([]phoneme.Word, len(words))
	offsets := make([]uint32, len(words)+1)
	var flat []phoneme.Phoneme
	var flatOwners []uint32
	phoneCounts := make([]float64, len(words))

	for i, w := range words {
		phones := s.phon.Phonemize(w.Text)
		refWords[i] = phoneme.Word{
			ArabicText:  w.Text,
			DisplayText: w.DisplayText,
			Phonemes:    phones,
			Surah:       w.Surah,
			Ayah:        w.Ayah,
			WordNum:     w.Word,
		}
		offsets[i] = uint32(len(flat))
		for range phones {
			flatOwners = append(flatOwners, uint32(i))
		}
		flat = append(flat, phones...)
		phoneCounts[i] = float64(len(phones))
	}
	offsets[len(words)] = uint32(len(flat))

	return &ChapterRef{
		Surah:            surah,
		Words:            refWords,
		AvgPhonesPerWord: stat.Mean(phoneCounts, nil),
		FlatPhonemes:     flat,
		FlatPhoneToWord:  flatOwners,
		WordPhoneOffsets: offsets,
	}, nil
}

// NgramIndex returns the Qur'an-wide phoneme n-gram index.
func (s *Store) NgramIndex() *NgramIndex { return s.ngramIdx }

// SubCost returns the substitution cost between two phonemes.
func (s *Store) SubCost(a, b phoneme.Phoneme) float64 { return s.subCost.Cost(a, b) }
