package predictor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func TestCalculateMatchScore(t *testing.T) {
	actual := []int{1, 2, 3, 4, 5}

	assert.InDelta(t, 1.0, CalculateMatchScore([]int{1, 2, 3, 4, 5}, 6, actual, 6), 1e-9)
	assert.InDelta(t, 0.5, CalculateMatchScore([]int{1, 2, 3, 40, 50}, 7, actual, 6), 1e-9)
	assert.Zero(t, CalculateMatchScore([]int{10, 20, 30, 40, 50}, 7, actual, 6))
}

func TestCalculateConfidence(t *testing.T) {
	numbers := []int{10, 21, 30, 45, 60} // 和值166，偶数3个

	// 70+30*0.2=76，与80取均值78，+5+3，无扰动
	assert.Equal(t, 86, CalculateConfidence(fixedRand(0.5), 0.2, 80, numbers))
	assert.Equal(t, 91, CalculateConfidence(fixedRand(1), 0.2, 80, numbers))
	assert.Equal(t, MaxConfidence, CalculateConfidence(fixedRand(1), 1, 100, numbers))
	assert.Equal(t, MinConfidence, CalculateConfidence(fixedRand(0), 0, 0, []int{1, 3, 5, 7, 9}))
}

func TestCalculateConfidence_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		c := CalculateConfidence(rng, rng.Float64(), 60+40*rng.Float64(), randomNumbers(rng))
		assert.GreaterOrEqual(t, c, MinConfidence)
		assert.LessOrEqual(t, c, MaxConfidence)
	}
}

func TestBuildMetadata(t *testing.T) {
	m := BuildMetadata([]int{2, 15, 35, 36, 69})
	assert.Equal(t, Metadata{Sum: 157, EvenCount: 2, OddCount: 3, LowCount: 3, HighCount: 2, Range: 67}, m)
	assert.Equal(t, Metadata{}, BuildMetadata(nil))
}

func TestIsHistoryUsable(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.False(t, IsHistoryUsable(nil))
	assert.False(t, IsHistoryUsable(makeHistory(rng, 9)))
	assert.True(t, IsHistoryUsable(makeHistory(rng, 10)))

	h := makeHistory(rng, 12)
	h[11].Powerball = 0
	assert.False(t, IsHistoryUsable(h))
}

func TestRankNumbers_TieBreaksLow(t *testing.T) {
	scores := make([]float64, 10)
	scores[7] = 2
	scores[3] = 1
	scores[5] = 1
	assert.Equal(t, []int{7, 3, 5, 1}, rankNumbers(scores, 4))
}
