package app

import (
	"math"
	"sort"
	"strings"
)

const (
	basePoints  = 500
	bonusPoints = 500
)

// Score computes the points for one answer. Wrong answers earn 0. Correct
// answers earn a 500 base plus a speed bonus that decays linearly to zero
// at the time limit; late answers still get the base. A zero or negative
// time limit yields no bonus rather than a division by zero.
func Score(isCorrect bool, timeTaken, timeLimit float64) int {
	if !isCorrect {
		return 0
	}
	ratio := 0.0
	if timeLimit > 0 {
		ratio = 1 - timeTaken/timeLimit
		if ratio < 0 {
			ratio = 0
		}
	}
	return int(math.Round(basePoints + bonusPoints*ratio))
}

// answerSetsEqual compares two answer sets order-independently with exact
// membership: {"A","B"} equals {"B","A"} but not {"A"}.
func answerSetsEqual(submitted, correct []string) bool {
	return canonical(submitted) == canonical(correct)
}

func canonical(values []string) string {
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x1f")
}
