package predictor

import (
	"fmt"
	"math"
	"math/rand"

	"powerball-bot/internal/database"
)

const (
	sumMaxAttempts = 100
	sumJitter      = 10
	// 5个不同号码的最小与最大和值
	minPossibleSum = 1 + 2 + 3 + 4 + 5
	maxPossibleSum = 65 + 66 + 67 + 68 + 69
	// 强力球映射的和值区间
	sumMapLow  = 75
	sumMapHigh = 275
)

// SumRangeStrategy 和值区间算法
type SumRangeStrategy struct{}

// NewSumRangeStrategy 创建和值区间算法
func NewSumRangeStrategy() *SumRangeStrategy {
	return &SumRangeStrategy{}
}

// ID 算法标识
func (s *SumRangeStrategy) ID() StrategyID { return StrategySum }

// Name 算法名称
func (s *SumRangeStrategy) Name() string { return "Sum Range" }

// Generate 以历史和值均值附近的目标和值贪心构造号码，第5个号码强制命中目标
func (s *SumRangeStrategy) Generate(history []database.Drawing, rng *rand.Rand) (Candidate, error) {
	if len(history) == 0 {
		return Candidate{}, ErrInsufficientHistory
	}

	mean, stdDev := sumStatistics(history)
	target := int(math.Round(mean + (rng.Float64()-0.5)*stdDev))
	target = clampInt(target, minPossibleSum, maxPossibleSum)

	numbers, ok := buildForSum(rng, target)
	if !ok {
		numbers = randomNumbers(rng)
	}

	ratio := float64(target-sumMapLow) / float64(sumMapHigh-sumMapLow)
	powerball := clampInt(int(math.Round(ratio*(maxPowerball-1)))+1, 1, maxPowerball)

	return Candidate{
		Numbers:   numbers,
		Powerball: powerball,
		Analysis:  fmt.Sprintf("Target sum %d (historical mean %.1f, std dev %.1f)", target, mean, stdDev),
	}, nil
}

// buildForSum 最多尝试100次构造和值恰为 target 的5个不同号码
func buildForSum(rng *rand.Rand, target int) ([]int, bool) {
	for attempt := 0; attempt < sumMaxAttempts; attempt++ {
		used := make(map[int]bool, numbersPerSet)
		numbers := make([]int, 0, numbersPerSet)
		remaining := target
		ok := true

		for slot := 0; slot < numbersPerSet-1; slot++ {
			share := int(math.Round(float64(remaining) / float64(numbersPerSet-slot)))
			v := clampInt(share+randInt(rng, -sumJitter, sumJitter), 1, maxMainNumber)
			if used[v] {
				ok = false
				break
			}
			used[v] = true
			numbers = append(numbers, v)
			remaining -= v
		}

		if ok && remaining >= 1 && remaining <= maxMainNumber && !used[remaining] {
			return append(numbers, remaining), true
		}
	}
	return nil, false
}

// sumStatistics 历史和值的均值与总体标准差
func sumStatistics(history []database.Drawing) (float64, float64) {
	n := float64(len(history))
	var total float64
	for _, d := range history {
		total += float64(d.Sum())
	}
	mean := total / n

	var variance float64
	for _, d := range history {
		diff := float64(d.Sum()) - mean
		variance += diff * diff
	}
	return mean, math.Sqrt(variance / n)
}
