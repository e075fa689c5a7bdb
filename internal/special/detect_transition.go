package special

import "quranalign/internal/phoneme"

// TransitionNames lists every liturgical interjection that can appear
// between ayat.
var TransitionNames = []Name{Amin, Takbir, Tahmeed, Tasleem, Sadaqa}

// DetectTransition tries to match seg against the transition-segment
// canonical sequences using the looser MAX_TRANSITION_EDIT_DISTANCE
// threshold. allowed, if non-nil, restricts which names may match;
// pass nil to permit all of TransitionNames.
func DetectTransition(seg []phoneme.Phoneme, threshold float64, allowed map[Name]bool) (Match, bool) {
	candidates := TransitionNames
	if allowed != nil {
		candidates = make([]Name, 0, len(TransitionNames))
		for _, n := range TransitionNames {
			if allowed[n] {
				candidates = append(candidates, n)
			}
		}
	}
	return detect(seg, candidates, threshold)
}
