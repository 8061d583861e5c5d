package predictor

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"powerball-bot/internal/database"
)

const (
	neuralInputSize  = 10
	neuralHiddenSize = 20
	neuralLookback   = 10
)

// NeuralStrategy 固定随机投影打分器（10→20→69，tanh/sigmoid）。
// 权重只在构造时按种子初始化一次，不做任何训练。
type NeuralStrategy struct {
	w1 [neuralInputSize][neuralHiddenSize]float64
	b1 [neuralHiddenSize]float64
	w2 [neuralHiddenSize][maxMainNumber]float64
	b2 [maxMainNumber]float64
}

// NewNeuralStrategy 按种子初始化投影权重
func NewNeuralStrategy(seed int64) *NeuralStrategy {
	r := rand.New(rand.NewSource(seed))
	s := &NeuralStrategy{}

	for i := range s.w1 {
		for j := range s.w1[i] {
			s.w1[i][j] = r.Float64() - 0.5
		}
	}
	for j := range s.b1 {
		s.b1[j] = r.Float64() - 0.5
	}
	for j := range s.w2 {
		for k := range s.w2[j] {
			s.w2[j][k] = r.Float64() - 0.5
		}
	}
	for k := range s.b2 {
		s.b2[k] = r.Float64() - 0.5
	}
	return s
}

// ID 算法标识
func (s *NeuralStrategy) ID() StrategyID { return StrategyNeural }

// Name 算法名称
func (s *NeuralStrategy) Name() string { return "Neural Pattern" }

// Generate 按输出概率降序遍历，以 min(1, p+0.3) 的概率接受号码
func (s *NeuralStrategy) Generate(history []database.Drawing, rng *rand.Rand) (Candidate, error) {
	if len(history) == 0 {
		return Candidate{}, ErrInsufficientHistory
	}

	recent := history[:min(neuralLookback, len(history))]
	probs := s.forward(extractFeatures(recent))

	order := make([]int, maxMainNumber)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return probs[order[i]] > probs[order[j]]
	})

	numbers := make([]int, 0, numbersPerSet)
	for _, idx := range order {
		if len(numbers) == numbersPerSet {
			break
		}
		if rng.Float64() < math.Min(1, probs[idx]+0.3) {
			numbers = append(numbers, idx+1)
		}
	}
	numbers = fillRandom(rng, numbers)

	// 前5个输出概率的均值映射到 1-26
	var head float64
	for _, p := range probs[:numbersPerSet] {
		head += p
	}
	powerball := clampInt(int(math.Floor(head/numbersPerSet*maxPowerball))+1, 1, maxPowerball)

	return Candidate{
		Numbers:   numbers,
		Powerball: powerball,
		Analysis:  fmt.Sprintf("Fixed random projection scoring over the last %d drawings", len(recent)),
	}, nil
}

// forward 前向计算，返回69个号码的分数（0-1）
func (s *NeuralStrategy) forward(x [neuralInputSize]float64) [maxMainNumber]float64 {
	var hidden [neuralHiddenSize]float64
	for j := range hidden {
		sum := s.b1[j]
		for i := range x {
			sum += x[i] * s.w1[i][j]
		}
		hidden[j] = math.Tanh(sum)
	}

	var out [maxMainNumber]float64
	for k := range out {
		sum := s.b2[k]
		for j := range hidden {
			sum += hidden[j] * s.w2[j][k]
		}
		out[k] = 1 / (1 + math.Exp(-sum))
	}
	return out
}

// extractFeatures 10维特征：5个位置均值、平均和值、和值趋势、偶数比例、大号比例、最热号码距今期数
func extractFeatures(recent []database.Drawing) [neuralInputSize]float64 {
	var f [neuralInputSize]float64
	n := float64(len(recent))
	maxSum := float64(numbersPerSet * maxMainNumber)

	sums := make([]int, len(recent))
	freq := make([]int, maxMainNumber+1)
	evens, highs := 0, 0

	for i, d := range recent {
		sorted := sortedCopy(d.Numbers)
		for pos, num := range sorted {
			f[pos] += float64(num)
			if num%2 == 0 {
				evens++
			}
			if num > highThreshold {
				highs++
			}
			freq[num]++
		}
		sums[i] = database.CalculateSum(sorted)
	}

	for pos := 0; pos < numbersPerSet; pos++ {
		f[pos] = f[pos] / n / maxMainNumber
	}

	total := 0
	for _, s := range sums {
		total += s
	}
	f[5] = float64(total) / n / maxSum

	if len(sums) >= 3 {
		f[6] = float64(sums[0]-sums[2]) / maxSum
	}

	f[7] = float64(evens) / (n * numbersPerSet)
	f[8] = float64(highs) / (n * numbersPerSet)

	hottest := 1
	for num := 2; num <= maxMainNumber; num++ {
		if freq[num] > freq[hottest] {
			hottest = num
		}
	}
	for i, d := range recent {
		if containsInt(d.Numbers, hottest) {
			f[9] = float64(i) / n
			break
		}
	}

	return f
}

func containsInt(nums []int, target int) bool {
	for _, n := range nums {
		if n == target {
			return true
		}
	}
	return false
}
