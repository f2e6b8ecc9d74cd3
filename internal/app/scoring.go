package app

import "contest-engine/internal/domain"

// Tally counts passed outcomes.
func Tally(outcomes []domain.TestOutcome) (passed, total int) {
	for _, o := range outcomes {
		if o.Passed {
			passed++
		}
	}
	return passed, len(outcomes)
}

// AttemptScore is round(points * passed / total), rounding halves up. Zero when
// there are no test cases.
func AttemptScore(points, passed, total int) int {
	if total <= 0 || passed <= 0 || points <= 0 {
		return 0
	}
	if passed > total {
		passed = total
	}
	return (2*points*passed + total) / (2 * total)
}

// FullyPassed reports whether every test case passed.
func FullyPassed(passed, total int) bool {
	return total > 0 && passed == total
}

// Standing derives the authoritative score from the best-per-question sum.
// Violations permanently discount it; the result never drops below zero.
func Standing(bestSum, violations, penalty int) int {
	score := bestSum - violations*penalty
	if score < 0 {
		return 0
	}
	return score
}
