package refstore

import (
	"encoding/json"
	"os"
	"strconv"

	"quranalign/internal/alignerr"
)

// VerseWordCount is one ayah's word count, as used to place
// end-of-ayah markers in rendered text.
type VerseWordCount struct {
	Verse    uint16
	NumWords uint16
}

type verseWordCountJSON struct {
	Verse    uint16 `json:"verse"`
	NumWords uint16 `json:"num_words"`
}

type surahWordCountJSON struct {
	Verses []verseWordCountJSON `json:"verses"`
}

// WordCountTable maps surah -> ayah -> word count, built from the
// per-surah word-count table JSON: `{"<surah>": {"verses": [...]}}`.
type WordCountTable struct {
	BySurah map[uint8]map[uint16]uint16
}

// NumWords returns the word count of the given ayah, or 0 if unknown.
func (t *WordCountTable) NumWords(surah uint8, ayah uint16) uint16 {
	if t == nil {
		return 0
	}
	verses, ok := t.BySurah[surah]
	if !ok {
		return 0
	}
	return verses[ayah]
}

// LoadWordCountTable reads the per-surah word-count JSON document.
func LoadWordCountTable(path string) (*WordCountTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, alignerr.DataCorruption(path, err.Error())
	}
	var raw map[string]surahWordCountJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, alignerr.DataCorruption(path, err.Error())
	}

	table := &WordCountTable{BySurah: make(map[uint8]map[uint16]uint16, len(raw))}
	for surahKey, entry := range raw {
		surahNum, err := strconv.Atoi(surahKey)
		if err != nil {
			continue
		}
		verses := make(map[uint16]uint16, len(entry.Verses))
		for _, v := range entry.Verses {
			verses[v.Verse] = v.NumWords
		}
		table.BySurah[uint8(surahNum)] = verses
	}
	return table, nil
}
