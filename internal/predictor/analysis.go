package predictor

import (
	"fmt"
	"math"

	"powerball-bot/internal/database"
)

// IsHistoryUsable 历史数据至少10期且每期都合法时才可用
func IsHistoryUsable(history []database.Drawing) bool {
	return isHistoryUsable(history, DefaultConfig().MinHistory)
}

func isHistoryUsable(history []database.Drawing, minHistory int) bool {
	if len(history) < minHistory {
		return false
	}
	for i := range history {
		if !history[i].IsValid() {
			return false
		}
	}
	return true
}

// ValidatePrediction 校验预测号码是否合法
func ValidatePrediction(p Prediction) error {
	if err := database.ValidateNumbers(p.Numbers, p.Powerball); err != nil {
		return fmt.Errorf("prediction from %s: %w", p.StrategyID, err)
	}
	return nil
}

// BuildMetadata 计算和值、奇偶、大小及跨度
func BuildMetadata(numbers []int) Metadata {
	var m Metadata
	if len(numbers) == 0 {
		return m
	}

	lo, hi := numbers[0], numbers[0]
	for _, n := range numbers {
		m.Sum += n
		if n%2 == 0 {
			m.EvenCount++
		} else {
			m.OddCount++
		}
		if n > highThreshold {
			m.HighCount++
		} else {
			m.LowCount++
		}
		lo = min(lo, n)
		hi = max(hi, n)
	}
	m.Range = hi - lo
	return m
}

// CalculateMatchScore 命中得分 = (命中主号码数 + 强力球命中) / 6
func CalculateMatchScore(predicted []int, predictedPowerball int, actual []int, actualPowerball int) float64 {
	actualSet := make(map[int]bool, len(actual))
	for _, n := range actual {
		actualSet[n] = true
	}

	matched := 0
	for _, n := range predicted {
		if actualSet[n] {
			matched++
		}
	}
	if predictedPowerball == actualPowerball {
		matched++
	}
	return float64(matched) / float64(numbersPerSet+1)
}

// CalculateConfidence 置信度：基准70，按成功率上调并与算法平均置信度取均值，
// 和值在[100,250]加5，偶数个数为2或3加3，再加±5随机扰动，最终限制在[65,95]
func CalculateConfidence(rng randSource, successRate, averageConfidence float64, numbers []int) int {
	confidence := 70 + 30*successRate
	if averageConfidence > 0 {
		confidence = (confidence + averageConfidence) / 2
	}

	meta := BuildMetadata(numbers)
	if meta.Sum >= 100 && meta.Sum <= 250 {
		confidence += 5
	}
	if meta.EvenCount == 2 || meta.EvenCount == 3 {
		confidence += 3
	}
	confidence += (rng.Float64()*2 - 1) * 5

	return clampInt(int(math.Round(confidence)), MinConfidence, MaxConfidence)
}

// randSource 置信度计算所需的最小随机源
type randSource interface {
	Float64() float64
}
