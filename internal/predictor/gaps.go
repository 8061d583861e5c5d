package predictor

import (
	"fmt"
	"math"
	"math/rand"

	"powerball-bot/internal/database"
)

const (
	gapShortlistSize = 15
	gapMostOverdue   = 3
	gapModerate      = 7
)

// GapStrategy 遗漏分析算法
type GapStrategy struct{}

// NewGapStrategy 创建遗漏分析算法
func NewGapStrategy() *GapStrategy {
	return &GapStrategy{}
}

// ID 算法标识
func (s *GapStrategy) ID() StrategyID { return StrategyGaps }

// Name 算法名称
func (s *GapStrategy) Name() string { return "Gap Analysis" }

// Generate 先从遗漏最严重的3个号码中取，再从其后7个中补足；强力球取当前遗漏最大者
func (s *GapStrategy) Generate(history []database.Drawing, rng *rand.Rand) (Candidate, error) {
	if len(history) == 0 {
		return Candidate{}, ErrInsufficientHistory
	}

	scores := overdueScores(history)
	shortlist := rankNumbers(scores, gapShortlistSize)

	most := append([]int(nil), shortlist[:gapMostOverdue]...)
	moderate := append([]int(nil), shortlist[gapMostOverdue:gapMostOverdue+gapModerate]...)
	shuffleInts(rng, most)
	shuffleInts(rng, moderate)

	numbers := make([]int, 0, numbersPerSet)
	numbers = append(numbers, most...)
	for _, n := range moderate {
		if len(numbers) == numbersPerSet {
			break
		}
		numbers = append(numbers, n)
	}
	numbers = fillRandom(rng, numbers)

	powerball := mostOverduePowerball(history)

	return Candidate{
		Numbers:   numbers,
		Powerball: powerball,
		Analysis:  fmt.Sprintf("Overdue analysis, most overdue number %d (score %.2f)", shortlist[0], scores[shortlist[0]]),
	}, nil
}

// overdueScores 遗漏指数 = 当前遗漏 / 平均遗漏
func overdueScores(history []database.Drawing) []float64 {
	total := len(history)
	occurrences := make([][]int, maxMainNumber+1)
	for i, d := range history {
		for _, n := range d.Numbers {
			occurrences[n] = append(occurrences[n], i)
		}
	}

	scores := make([]float64, maxMainNumber+1)
	for n := 1; n <= maxMainNumber; n++ {
		occ := occurrences[n]

		currentGap := float64(total)
		if len(occ) > 0 {
			currentGap = float64(occ[0])
		}

		averageGap := float64(total)
		if len(occ) >= 2 {
			averageGap = float64(occ[len(occ)-1]-occ[0]) / float64(len(occ)-1)
		}

		scores[n] = currentGap / math.Max(averageGap, 1)
	}
	return scores
}

// mostOverduePowerball 当前遗漏最大的强力球，同值取小号
func mostOverduePowerball(history []database.Drawing) int {
	gaps := make([]int, maxPowerball+1)
	for pb := 1; pb <= maxPowerball; pb++ {
		gaps[pb] = len(history)
	}
	seen := make([]bool, maxPowerball+1)
	for i, d := range history {
		if !seen[d.Powerball] {
			seen[d.Powerball] = true
			gaps[d.Powerball] = i
		}
	}

	best := 1
	for pb := 2; pb <= maxPowerball; pb++ {
		if gaps[pb] > gaps[best] {
			best = pb
		}
	}
	return best
}
