package predictor

import (
	"math"
	"math/rand"
	"sort"
)

// randInt 返回 [lo, hi] 区间内的随机整数
func randInt(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

func shuffleInts(rng *rand.Rand, nums []int) {
	rng.Shuffle(len(nums), func(i, j int) {
		nums[i], nums[j] = nums[j], nums[i]
	})
}

// fillRandom 用均匀随机且不重复的号码补足到5个
func fillRandom(rng *rand.Rand, nums []int) []int {
	used := make(map[int]bool, numbersPerSet)
	for _, n := range nums {
		used[n] = true
	}
	for len(nums) < numbersPerSet {
		n := randInt(rng, 1, maxMainNumber)
		if used[n] {
			continue
		}
		used[n] = true
		nums = append(nums, n)
	}
	return nums
}

func randomNumbers(rng *rand.Rand) []int {
	nums := fillRandom(rng, make([]int, 0, numbersPerSet))
	sort.Ints(nums)
	return nums
}

// rankNumbers 按分数降序返回前 n 个号码（下标即号码，同分取小号）
func rankNumbers(scores []float64, n int) []int {
	nums := make([]int, 0, len(scores)-1)
	for num := 1; num < len(scores); num++ {
		nums = append(nums, num)
	}
	sort.SliceStable(nums, func(i, j int) bool {
		return scores[nums[i]] > scores[nums[j]]
	})
	if n < len(nums) {
		nums = nums[:n]
	}
	return nums
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sortedCopy(nums []int) []int {
	out := append([]int(nil), nums...)
	sort.Ints(out)
	return out
}
