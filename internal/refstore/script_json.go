package refstore

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"strings"

	"quranalign/internal/alignerr"
	"quranalign/internal/phoneme"
)

// VerseMarkerPrefix is the reserved end-of-ayah glyph that can appear as
// a stray entry in a script file; such entries are not real words and
// are filtered out at load time.
const VerseMarkerPrefix = "۝"

type scriptEntry struct {
	Surah int    `json:"surah"`
	Ayah  int    `json:"ayah"`
	Word  int    `json:"word"`
	Text  string `json:"text"`
}

// LoadScripts reads the compute (canonical, used for phonemisation and
// indices) and display (rendered) Qur'an script JSON documents, keyed
// by "surah:ayah:word", and returns a ScriptStore built from the
// compute script in location-key sorted order. Verse-marker
// entries (text beginning with VerseMarkerPrefix) are skipped; a
// missing display entry falls back to the compute text.
func LoadScripts(computePath, displayPath string) (*ScriptStore, error) {
	computeData, err := loadScriptJSON(computePath)
	if err != nil {
		return nil, err
	}
	displayData, err := loadScriptJSON(displayPath)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(computeData))
	for k := range computeData {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessLocationKey(keys[i], keys[j])
	})

	store := &ScriptStore{BySurah: make(map[uint8][]ScriptWord)}
	for _, key := range keys {
		entry := computeData[key]
		if strings.HasPrefix(entry.Text, VerseMarkerPrefix) {
			continue
		}
		displayText := entry.Text
		if dk, ok := displayData[key]; ok {
			displayText = dk.Text
		}

		surah := uint8(entry.Surah)
		store.BySurah[surah] = append(store.BySurah[surah], ScriptWord{
			Surah:       surah,
			Ayah:        uint16(entry.Ayah),
			Word:        uint16(entry.Word),
			Text:        entry.Text,
			DisplayText: displayText,
		})
	}
	return store, nil
}

func loadScriptJSON(path string) (map[string]scriptEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, alignerr.DataCorruption(path, err.Error())
	}
	var parsed map[string]scriptEntry
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, alignerr.DataCorruption(path, err.Error())
	}
	return parsed, nil
}

func lessLocationKey(a, b string) bool {
	sa, aa, wa := parseLocationKey(a)
	sb, ab, wb := parseLocationKey(b)
	if sa != sb {
		return sa < sb
	}
	if aa != ab {
		return aa < ab
	}
	return wa < wb
}

func parseLocationKey(key string) (surah, ayah, word int) {
	parts := strings.Split(key, ":")
	if len(parts) < 3 {
		return 0, 0, 0
	}
	surah, _ = strconv.Atoi(parts[0])
	ayah, _ = strconv.Atoi(parts[1])
	word, _ = strconv.Atoi(parts[2])
	return
}

// ParseRef resolves a matched_ref string ("2:255:1-2:255:5" or a bare
// "2:255:5") into its (surah, ayah, word) start and end addresses. It
// does not consult global word indices: callers needing global indices
// look the addresses up in a ChapterRef's Words themselves.
func ParseRef(ref string) (start, end phoneme.Location, ok bool) {
	if ref == "" || !strings.Contains(ref, ":") {
		return phoneme.Location{}, phoneme.Location{}, false
	}
	startRef, endRef := ref, ref
	if idx := strings.Index(ref, "-"); idx >= 0 {
		startRef, endRef = ref[:idx], ref[idx+1:]
	}
	s, okS := parseLocation(startRef)
	e, okE := parseLocation(endRef)
	if !okS || !okE {
		return phoneme.Location{}, phoneme.Location{}, false
	}
	return s, e, true
}

func parseLocation(ref string) (phoneme.Location, bool) {
	parts := strings.Split(ref, ":")
	if len(parts) < 3 {
		return phoneme.Location{}, false
	}
	surah, err1 := strconv.Atoi(parts[0])
	ayah, err2 := strconv.Atoi(parts[1])
	word, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return phoneme.Location{}, false
	}
	return phoneme.Location{Surah: uint8(surah), Ayah: uint16(ayah), WordNum: uint16(word)}, true
}

