package database

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// 号码范围
const (
	MainNumberCount = 5
	MainNumberMax   = 69
	PowerballMax    = 26
)

// DateLayout 开奖日期格式，对应 DATE 列
const DateLayout = "2006-01-02"

// ErrInvalidNumbers 号码格式或范围不合法
var ErrInvalidNumbers = errors.New("invalid drawing numbers")

// Drawing 开奖数据模型
type Drawing struct {
	ID         int64     `json:"id" db:"id"`
	DrawDate   time.Time `json:"draw_date" db:"draw_date"`
	Numbers    []int     `json:"numbers" db:"numbers"`
	Powerball  int       `json:"powerball" db:"powerball"`
	Multiplier int       `json:"multiplier,omitempty" db:"multiplier"`
	Jackpot    *float64  `json:"jackpot,omitempty" db:"jackpot"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// IsValid 5个互不相同的主号码（1-69）以及1个强力球（1-26）
func (d *Drawing) IsValid() bool {
	return ValidateNumbers(d.Numbers, d.Powerball) == nil
}

// Sum 主号码和值
func (d *Drawing) Sum() int {
	return CalculateSum(d.Numbers)
}

// DateString 开奖日期字符串
func (d *Drawing) DateString() string {
	return FormatDrawDate(d.DrawDate)
}

// FormatDrawDate 按时间自身时区取日历日期。
// DATE 列以字符串绑定，驱动不会再按连接时区转换。
func FormatDrawDate(t time.Time) string {
	return t.Format(DateLayout)
}

// PredictionRecord 预测记录模型
type PredictionRecord struct {
	ID              int64      `json:"id" db:"id"`
	BatchID         string     `json:"batch_id" db:"batch_id"`
	SlotIndex       int        `json:"slot_index" db:"slot_index"`
	StrategyID      string     `json:"strategy_id" db:"strategy_id"`
	Numbers         []int      `json:"numbers" db:"numbers"`
	Powerball       int        `json:"powerball" db:"powerball"`
	Confidence      int        `json:"confidence" db:"confidence"`
	Weight          float64    `json:"weight" db:"weight"`
	ActualNumbers   []int      `json:"actual_numbers,omitempty" db:"actual_numbers"`
	ActualPowerball *int       `json:"actual_powerball,omitempty" db:"actual_powerball"`
	MatchScore      *float64   `json:"match_score,omitempty" db:"match_score"`
	PredictedAt     time.Time  `json:"predicted_at" db:"predicted_at"`
	SourceDrawDate  time.Time  `json:"source_draw_date" db:"source_draw_date"` // 生成批次时最新的开奖日期
	VerifiedAt      *time.Time `json:"verified_at,omitempty" db:"verified_at"`
}

// IsVerified 是否已与实际开奖比对
func (p *PredictionRecord) IsVerified() bool {
	return p.MatchScore != nil
}

// PerformanceRecord 算法表现快照
type PerformanceRecord struct {
	StrategyID         string    `json:"strategy_id" db:"strategy_id"`
	Weight             float64   `json:"weight" db:"weight"`
	SuccessRate        float64   `json:"success_rate" db:"success_rate"`
	TotalPredictions   int       `json:"total_predictions" db:"total_predictions"`
	CorrectPredictions float64   `json:"correct_predictions" db:"correct_predictions"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// PredictionStats 预测统计模型
type PredictionStats struct {
	TotalPredictions    int       `json:"total_predictions" db:"total_predictions"`
	VerifiedPredictions int       `json:"verified_predictions" db:"verified_predictions"`
	AverageMatchScore   float64   `json:"average_match_score" db:"average_match_score"`
	BestMatchScore      float64   `json:"best_match_score" db:"best_match_score"`
	FirstPrediction     time.Time `json:"first_prediction" db:"first_prediction"`
	LastPrediction      time.Time `json:"last_prediction" db:"last_prediction"`
}

// StrategyStats 按算法分组的统计
type StrategyStats struct {
	StrategyID        string  `json:"strategy_id" db:"strategy_id"`
	Verified          int     `json:"verified" db:"verified"`
	AverageMatchScore float64 `json:"average_match_score" db:"average_match_score"`
	AverageConfidence float64 `json:"average_confidence" db:"average_confidence"`
}

// ValidateNumbers 校验主号码与强力球
func ValidateNumbers(numbers []int, powerball int) error {
	if len(numbers) != MainNumberCount {
		return fmt.Errorf("%w: expected %d main numbers, got %d", ErrInvalidNumbers, MainNumberCount, len(numbers))
	}
	seen := make(map[int]bool, MainNumberCount)
	for _, n := range numbers {
		if n < 1 || n > MainNumberMax {
			return fmt.Errorf("%w: main number %d out of range 1-%d", ErrInvalidNumbers, n, MainNumberMax)
		}
		if seen[n] {
			return fmt.Errorf("%w: duplicate main number %d", ErrInvalidNumbers, n)
		}
		seen[n] = true
	}
	if powerball < 1 || powerball > PowerballMax {
		return fmt.Errorf("%w: powerball %d out of range 1-%d", ErrInvalidNumbers, powerball, PowerballMax)
	}
	return nil
}

// FormatNumbers 格式化号码，升序且补零，如 "03 15 22 41 69"
func FormatNumbers(nums []int) string {
	sorted := append([]int(nil), nums...)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, " ")
}

// ParseNumbers 解析空格分隔的号码字符串
func ParseNumbers(s string) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty number string", ErrInvalidNumbers)
	}

	nums := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse number %q", ErrInvalidNumbers, f)
		}
		nums = append(nums, n)
	}
	return nums, nil
}

// CalculateSum 计算和值
func CalculateSum(nums []int) int {
	sum := 0
	for _, num := range nums {
		sum += num
	}
	return sum
}
