package predictor

import (
	"math/rand"
)

// GenerateRandomPrediction 生成一组均匀随机的兜底预测，置信度在[70,85)
func GenerateRandomPrediction(rng *rand.Rand, slotIndex int) Prediction {
	numbers := randomNumbers(rng)
	return Prediction{
		SlotIndex:  slotIndex,
		Numbers:    numbers,
		Powerball:  randInt(rng, 1, maxPowerball),
		Confidence: 70 + rng.Intn(15),
		StrategyID: StrategyRandom,
		Analysis:   "Random selection (fallback)",
		Metadata:   BuildMetadata(numbers),
	}
}

// GenerateFallbackPredictions 生成 count 组兜底预测
func GenerateFallbackPredictions(rng *rand.Rand, count int) []Prediction {
	predictions := make([]Prediction, 0, count)
	for i := 0; i < count; i++ {
		predictions = append(predictions, GenerateRandomPrediction(rng, i))
	}
	return predictions
}
