package predictor

import (
	"math/rand"
	"time"

	"powerball-bot/internal/database"
)

var baseDrawDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

// makeHistory 生成 n 期合法的随机开奖，最新在前
func makeHistory(rng *rand.Rand, n int) []database.Drawing {
	history := make([]database.Drawing, n)
	for i := range history {
		history[i] = database.Drawing{
			DrawDate:  baseDrawDate.AddDate(0, 0, -3*i),
			Numbers:   randomNumbers(rng),
			Powerball: randInt(rng, 1, maxPowerball),
		}
	}
	return history
}

// repeatDrawing 生成 n 期相同号码的开奖
func repeatDrawing(n int, numbers []int, powerball int) []database.Drawing {
	history := make([]database.Drawing, n)
	for i := range history {
		history[i] = database.Drawing{
			DrawDate:  baseDrawDate.AddDate(0, 0, -3*i),
			Numbers:   append([]int(nil), numbers...),
			Powerball: powerball,
		}
	}
	return history
}

func newTestEngine(seed int64) *Engine {
	return NewEngine(DefaultConfig(), WithRand(rand.New(rand.NewSource(seed))))
}

// disjointDrawing 返回与预测完全不相交的开奖号码
func disjointDrawing(p Prediction) ([]int, int) {
	numbers := make([]int, 0, numbersPerSet)
	for n := 1; len(numbers) < numbersPerSet; n++ {
		if !containsInt(p.Numbers, n) {
			numbers = append(numbers, n)
		}
	}
	return numbers, p.Powerball%maxPowerball + 1
}

type panicStrategy struct {
	id StrategyID
}

func (s panicStrategy) ID() StrategyID { return s.id }
func (s panicStrategy) Name() string   { return "panic" }
func (s panicStrategy) Generate([]database.Drawing, *rand.Rand) (Candidate, error) {
	panic("boom")
}

type invalidStrategy struct {
	id StrategyID
}

func (s invalidStrategy) ID() StrategyID { return s.id }
func (s invalidStrategy) Name() string   { return "invalid" }
func (s invalidStrategy) Generate([]database.Drawing, *rand.Rand) (Candidate, error) {
	return Candidate{Numbers: []int{1, 1, 2, 3, 70}, Powerball: 30}, nil
}
