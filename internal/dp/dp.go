// Package dp implements the word-boundary-constrained substring
// Levenshtein alignment engine: the core routine that
// scores an ASR phoneme segment against a window of reference
// phonemes and picks the best-scoring word-aligned substring.
package dp

import (
	"math"

	"quranalign/internal/phoneme"
)

// NoWord marks a reference phoneme that belongs to no chapter word
// (a prepended special-segment prefix, see Input.BasmalaPrefixLen).
const NoWord int32 = -1

// Costs are the three edit operation costs used by the recurrence.
// Substitution is table-driven (Input.SubCost); Del/Ins are scalar.
type Costs struct {
	Del float64
	Ins float64
}

// Input bundles everything one DP call needs.
type Input struct {
	P []phoneme.Phoneme // ASR phonemes, length m

	R            []phoneme.Phoneme // reference phoneme window, length n
	RPhoneToWord []int32           // length n; word index owning R[j], or NoWord

	ExpectedWord int32 // pointer position, drives the position prior
	Costs        Costs
	SubCost      func(a, b phoneme.Phoneme) float64
	PriorWeight  float64

	// BasmalaPrefixLen is the length of a virtually-prepended Basmala
	// phoneme prefix at R[0:BasmalaPrefixLen); those phonemes carry
	// NoWord in RPhoneToWord. Zero when no prefix was prepended.
	BasmalaPrefixLen int
}

// Result is a candidate alignment (spec's "Alignment result" record).
type Result struct {
	StartWordIdx int32
	EndWordIdx   int32 // inclusive

	EditCost   float64
	NormDist   float64
	Confidence float64 // 1 - NormDist, clamped to [0,1]

	WindowPhoneStart int // column index into R
	WindowPhoneEnd   int

	// BasmalaConsumed is true when the winning alignment's start
	// column falls inside the prepended prefix, i.e. the match
	// actually crossed into it.
	BasmalaConsumed bool
}

func isBoundary(j int, n int, wordOf []int32) bool {
	if j == 0 || j == n {
		return true
	}
	return wordOf[j] != wordOf[j-1]
}

// boundaryWord returns the word index associated with end-boundary
// column j, used by the position prior: the word of R[j] itself when
// j is within range, or one past the last word when j==n.
func boundaryWord(j, n int, wordOf []int32) int32 {
	if j < n {
		return wordOf[j]
	}
	if n == 0 {
		return NoWord
	}
	return wordOf[n-1] + 1
}

// Align runs the DP and returns the single best-scoring candidate
// alignment, or false if no candidate exists (e.g. P is empty, or no
// reachable end boundary consumes at least one reference phoneme).
// Acceptance against a max-edit-distance threshold is the caller's
// responsibility.
func Align(in Input) (Result, bool) {
	m := len(in.P)
	n := len(in.R)
	if m == 0 {
		return Result{}, false
	}

	inf := math.Inf(1)

	cost := make([]float64, n+1)
	start := make([]int, n+1)
	for j := 0; j <= n; j++ {
		if isBoundary(j, n, in.RPhoneToWord) {
			cost[j] = 0
			start[j] = j
		} else {
			cost[j] = inf
			start[j] = -1
		}
	}

	nextCost := make([]float64, n+1)
	nextStart := make([]int, n+1)

	for i := 1; i <= m; i++ {
		if math.IsInf(cost[0], 1) {
			nextCost[0] = inf
			nextStart[0] = -1
		} else {
			nextCost[0] = cost[0] + in.Costs.Del
			nextStart[0] = start[0]
		}

		for j := 1; j <= n; j++ {
			bestCost := inf
			bestStart := -1

			// On equal cost the path with the earlier start column wins,
			// so a deletion-only path (start == j, no reference phoneme
			// consumed) never displaces an equally cheap real span.
			if !math.IsInf(cost[j], 1) {
				if c := cost[j] + in.Costs.Del; c < bestCost || (c == bestCost && start[j] < bestStart) {
					bestCost = c
					bestStart = start[j]
				}
			}
			if !math.IsInf(nextCost[j-1], 1) {
				if c := nextCost[j-1] + in.Costs.Ins; c < bestCost || (c == bestCost && nextStart[j-1] < bestStart) {
					bestCost = c
					bestStart = nextStart[j-1]
				}
			}
			if !math.IsInf(cost[j-1], 1) {
				sub := in.SubCost(in.P[i-1], in.R[j-1])
				if c := cost[j-1] + sub; c < bestCost || (c == bestCost && start[j-1] < bestStart) {
					bestCost = c
					bestStart = start[j-1]
				}
			}

			nextCost[j] = bestCost
			nextStart[j] = bestStart
		}

		cost, nextCost = nextCost, cost
		start, nextStart = nextStart, start
	}

	best := Result{}
	haveBest := false
	var bestScore, bestNormDist float64
	var bestRefLen int

	for j := 0; j <= n; j++ {
		if math.IsInf(cost[j], 1) || start[j] < 0 {
			continue
		}
		if !isBoundary(j, n, in.RPhoneToWord) {
			continue
		}
		s := start[j]
		refLen := j - s
		if refLen <= 0 {
			continue // must consume at least one reference phoneme
		}

		denom := float64(maxInt(m, maxInt(refLen, 1)))
		normDist := cost[j] / denom
		word := boundaryWord(j, n, in.RPhoneToWord)
		score := normDist + in.PriorWeight*math.Abs(float64(word)-float64(in.ExpectedWord))

		better := !haveBest ||
			score < bestScore ||
			(score == bestScore && normDist < bestNormDist) ||
			(score == bestScore && normDist == bestNormDist && refLen < bestRefLen)

		if better {
			haveBest = true
			bestScore = score
			bestNormDist = normDist
			bestRefLen = refLen

			startWord, endWord := resolveWordRange(in.RPhoneToWord, s, j)
			conf := 1 - normDist
			if conf < 0 {
				conf = 0
			} else if conf > 1 {
				conf = 1
			}

			best = Result{
				StartWordIdx:     startWord,
				EndWordIdx:       endWord,
				EditCost:         cost[j],
				NormDist:         normDist,
				Confidence:       conf,
				WindowPhoneStart: s,
				WindowPhoneEnd:   j,
				BasmalaConsumed:  in.BasmalaPrefixLen > 0 && s < in.BasmalaPrefixLen,
			}
		}
	}

	return best, haveBest
}

// resolveWordRange maps a [start,end) phoneme column range to the
// first and last real (non-NoWord) chapter word index it touches.
func resolveWordRange(wordOf []int32, start, end int) (startWord, endWord int32) {
	startWord, endWord = NoWord, NoWord
	for k := start; k < end; k++ {
		if wordOf[k] != NoWord {
			startWord = wordOf[k]
			break
		}
	}
	for k := end - 1; k >= start; k-- {
		if wordOf[k] != NoWord {
			endWord = wordOf[k]
			break
		}
	}
	return startWord, endWord
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
