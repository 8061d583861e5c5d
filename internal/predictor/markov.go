package predictor

import (
	"fmt"
	"math"
	"math/rand"

	"powerball-bot/internal/database"
)

const (
	markovTopTargets     = 5
	markovPickFrom       = 3
	markovPowerballSpan  = 5
	markovPowerballDrift = 3
)

// MarkovStrategy 一阶转移矩阵算法
type MarkovStrategy struct{}

// NewMarkovStrategy 创建马尔可夫链算法
func NewMarkovStrategy() *MarkovStrategy {
	return &MarkovStrategy{}
}

// ID 算法标识
func (s *MarkovStrategy) ID() StrategyID { return StrategyMarkov }

// Name 算法名称
func (s *MarkovStrategy) Name() string { return "Markov Chain" }

// Generate 以最新一期号码为种子，在每个种子转移概率最高的前3个目标中随机选取
func (s *MarkovStrategy) Generate(history []database.Drawing, rng *rand.Rand) (Candidate, error) {
	if len(history) < 2 {
		return Candidate{}, ErrInsufficientHistory
	}

	matrix := buildTransitionMatrix(history)

	used := make(map[int]bool, numbersPerSet)
	numbers := make([]int, 0, numbersPerSet)
	for _, seed := range sortedCopy(history[0].Numbers) {
		if len(numbers) == numbersPerSet {
			break
		}
		targets := topTransitions(matrix[seed], markovTopTargets)
		if len(targets) == 0 {
			continue
		}
		pick := targets[rng.Intn(min(markovPickFrom, len(targets)))]
		if used[pick] {
			continue
		}
		used[pick] = true
		numbers = append(numbers, pick)
	}
	numbers = fillRandom(rng, numbers)

	span := min(markovPowerballSpan, len(history))
	total := 0
	for _, d := range history[:span] {
		total += d.Powerball
	}
	avg := int(math.Round(float64(total) / float64(span)))
	powerball := clampInt(avg+randInt(rng, -markovPowerballDrift, markovPowerballDrift), 1, maxPowerball)

	return Candidate{
		Numbers:   numbers,
		Powerball: powerball,
		Analysis:  fmt.Sprintf("First-order transitions from %d consecutive drawing pairs", len(history)-1),
	}, nil
}

// buildTransitionMatrix 统计相邻两期（旧→新）号码之间的转移并按行归一化
func buildTransitionMatrix(history []database.Drawing) [][]float64 {
	matrix := make([][]float64, maxMainNumber+1)
	for i := range matrix {
		matrix[i] = make([]float64, maxMainNumber+1)
	}

	for i := len(history) - 1; i >= 1; i-- {
		current, next := history[i], history[i-1]
		for _, a := range current.Numbers {
			for _, b := range next.Numbers {
				matrix[a][b]++
			}
		}
	}

	for a := 1; a <= maxMainNumber; a++ {
		var rowSum float64
		for _, v := range matrix[a] {
			rowSum += v
		}
		if rowSum == 0 {
			continue
		}
		for b := range matrix[a] {
			matrix[a][b] /= rowSum
		}
	}
	return matrix
}

// topTransitions 转移概率最高且大于0的前 n 个目标
func topTransitions(row []float64, n int) []int {
	ranked := rankNumbers(row, n)
	out := ranked[:0]
	for _, target := range ranked {
		if row[target] > 0 {
			out = append(out, target)
		}
	}
	return out
}
