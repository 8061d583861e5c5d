package predictor

import (
	"fmt"
	"math/rand"

	"powerball-bot/internal/database"
)

const (
	ewmaShortlistSize          = 15
	ewmaPowerballShortlistSize = 8
)

// EWMAStrategy 指数加权频率算法，越近的开奖权重越高
type EWMAStrategy struct {
	alpha float64
}

// NewEWMAStrategy 创建EWMA频率算法
func NewEWMAStrategy(alpha float64) *EWMAStrategy {
	return &EWMAStrategy{alpha: alpha}
}

// ID 算法标识
func (s *EWMAStrategy) ID() StrategyID { return StrategyEWMA }

// Name 算法名称
func (s *EWMAStrategy) Name() string { return "EWMA Frequency" }

// Generate 取加权频率前15的号码打乱后依次选取5个，强力球在前8中随机选取
func (s *EWMAStrategy) Generate(history []database.Drawing, rng *rand.Rand) (Candidate, error) {
	if len(history) == 0 {
		return Candidate{}, ErrInsufficientHistory
	}

	mainScores, pbScores := s.weightedFrequencies(history)

	shortlist := rankNumbers(mainScores, ewmaShortlistSize)
	shuffleInts(rng, shortlist)

	used := make(map[int]bool, numbersPerSet)
	numbers := make([]int, 0, numbersPerSet)
	for i := 0; len(numbers) < numbersPerSet && i < 2*len(shortlist); i++ {
		n := shortlist[i%len(shortlist)]
		if used[n] {
			continue
		}
		used[n] = true
		numbers = append(numbers, n)
	}
	numbers = fillRandom(rng, numbers)

	pbShortlist := rankNumbers(pbScores, ewmaPowerballShortlistSize)
	shuffleInts(rng, pbShortlist)
	powerball := pbShortlist[rng.Intn(len(pbShortlist))]

	return Candidate{
		Numbers:   numbers,
		Powerball: powerball,
		Analysis:  fmt.Sprintf("EWMA frequency (alpha=%.2f) over %d drawings, top-%d shortlist", s.alpha, len(history), ewmaShortlistSize),
	}, nil
}

// weightedFrequencies 第 i 期（0为最新）贡献 alpha·(1-alpha)^i
func (s *EWMAStrategy) weightedFrequencies(history []database.Drawing) ([]float64, []float64) {
	mainScores := make([]float64, maxMainNumber+1)
	pbScores := make([]float64, maxPowerball+1)

	decay := 1.0
	for i := range history {
		w := s.alpha * decay
		for _, n := range history[i].Numbers {
			mainScores[n] += w
		}
		pbScores[history[i].Powerball] += w
		decay *= 1 - s.alpha
	}
	return mainScores, pbScores
}
