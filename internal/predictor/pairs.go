package predictor

import (
	"fmt"
	"math/rand"
	"sort"

	"powerball-bot/internal/database"
)

const pairPowerballShortlistSize = 8

type numberPair struct {
	a, b  int
	count int
}

// PairStrategy 号码共现关系算法
type PairStrategy struct{}

// NewPairStrategy 创建号码对算法
func NewPairStrategy() *PairStrategy {
	return &PairStrategy{}
}

// ID 算法标识
func (s *PairStrategy) ID() StrategyID { return StrategyPairs }

// Name 算法名称
func (s *PairStrategy) Name() string { return "Pair Relationship" }

// Generate 按共现次数降序取号码对填充，强力球在出现最多的8个中随机选取
func (s *PairStrategy) Generate(history []database.Drawing, rng *rand.Rand) (Candidate, error) {
	if len(history) == 0 {
		return Candidate{}, ErrInsufficientHistory
	}

	pairs := countPairs(history)

	used := make(map[int]bool, numbersPerSet)
	numbers := make([]int, 0, numbersPerSet)
	for _, p := range pairs {
		if len(numbers) == numbersPerSet {
			break
		}
		for _, n := range [2]int{p.a, p.b} {
			if !used[n] && len(numbers) < numbersPerSet {
				used[n] = true
				numbers = append(numbers, n)
			}
		}
	}
	numbers = fillRandom(rng, numbers)

	pbFreq := make([]float64, maxPowerball+1)
	for _, d := range history {
		pbFreq[d.Powerball]++
	}
	top := rankNumbers(pbFreq, pairPowerballShortlistSize)
	powerball := top[rng.Intn(len(top))]

	analysis := fmt.Sprintf("Pair co-occurrence across %d drawings", len(history))
	if len(pairs) > 0 {
		analysis = fmt.Sprintf("%s, strongest pair %d-%d seen %d times", analysis, pairs[0].a, pairs[0].b, pairs[0].count)
	}

	return Candidate{Numbers: numbers, Powerball: powerball, Analysis: analysis}, nil
}

// countPairs 统计无序号码对出现次数，按次数降序、号码升序排列
func countPairs(history []database.Drawing) []numberPair {
	counts := make(map[[2]int]int)
	for _, d := range history {
		sorted := sortedCopy(d.Numbers)
		for i := 0; i < len(sorted); i++ {
			for j := i + 1; j < len(sorted); j++ {
				counts[[2]int{sorted[i], sorted[j]}]++
			}
		}
	}

	pairs := make([]numberPair, 0, len(counts))
	for key, c := range counts {
		pairs = append(pairs, numberPair{a: key[0], b: key[1], count: c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})
	return pairs
}
