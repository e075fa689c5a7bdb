package refstore

import (
	"encoding/json"
	"log"
	"os"
	"strings"

	"quranalign/internal/alignerr"
	"quranalign/internal/phoneme"
)

// KnownSubCostSections lists the substitution-cost JSON's expected
// top-level section names. Any other top-level key is ignored with a
// warning rather than rejected as corrupt data: the rest of this store
// already falls back instead of hard-failing on anything short of an
// unreadable or unparsable file (§4.1), and a new section name is more
// likely a forward-compatible addition to the cost file than a sign of
// a corrupt one.
var KnownSubCostSections = []string{
	"vowels",
	"consonants",
	"emphatics",
	"similar_place",
	"similar_manner",
}

// LoadSubCostJSON reads the substitution cost file: JSON with top-level
// sections whose values map "phoneme_a|phoneme_b" -> cost.
// defaultCost is used for any pair absent from every section.
func LoadSubCostJSON(path string, defaultCost float64) (*SubCostTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, alignerr.DataCorruption(path, err.Error())
	}

	var raw map[string]map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, alignerr.DataCorruption(path, err.Error())
	}

	known := make(map[string]bool, len(KnownSubCostSections))
	for _, s := range KnownSubCostSections {
		known[s] = true
	}

	table := NewSubCostTable(defaultCost)
	for section, pairs := range raw {
		if !known[section] {
			log.Printf("[REFSTORE] ignoring unknown substitution-cost section %q in %s", section, path)
			continue
		}
		for pairKey, cost := range pairs {
			a, b, ok := splitPairKey(pairKey)
			if !ok {
				log.Printf("[REFSTORE] skipping malformed substitution-cost key %q in %s/%s", pairKey, path, section)
				continue
			}
			table.Set(a, b, cost)
		}
	}
	return table, nil
}

func splitPairKey(key string) (phoneme.Phoneme, phoneme.Phoneme, bool) {
	parts := strings.SplitN(key, "|", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return phoneme.Phoneme(parts[0]), phoneme.Phoneme(parts[1]), true
}
