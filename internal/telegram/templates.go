package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"powerball-bot/internal/database"
	"powerball-bot/internal/predictor"
)

const startText = `🎱 Welcome to the Powerball Prediction Bot!

🤖 Six statistical strategies vote on every drawing:
• 📈 EWMA frequency
• 🧠 Neural pattern scoring
• 🔗 Pair relationships
• ⏳ Gap analysis
• 🔄 Markov transitions
• ➕ Sum range

📝 Available commands:
/latest - Latest drawing and current predictions
/predict [n] - Generate n fresh sets (1-10)
/history - Recent drawings
/stats - Prediction statistics
/performance - Strategy weights and success rates
/help - Help information

⚠️ Note: This bot only provides services in private chats`

const helpText = `📖 Command Help:

/start - Start using the bot
/latest - Latest drawing and the current prediction batch
/predict [n] - Generate n fresh prediction sets (default 5, max 10)
/history - View the recent 10 drawings
/stats - Match statistics of verified predictions
/performance - Current strategy weights and success rates
/help - Show this help information

💡 Usage Tips:
• A new batch is generated and pushed after every drawing
• Each set is scored by matched numbers: (mains + powerball) / 6
• Predictions are for entertainment only, please play responsibly`

// formatPredictionSet 单组号码，如 "`03 15 22 41 69` PB `07`"
func formatPredictionSet(numbers []int, powerball int) string {
	return fmt.Sprintf("`%s` PB `%02d`", database.FormatNumbers(numbers), powerball)
}

// formatBatchMessage 格式化一批预测
func (b *Bot) formatBatchMessage(title string, batch []predictor.Prediction) string {
	var builder strings.Builder

	builder.WriteString(title + "\n\n")
	if len(batch) == 0 {
		builder.WriteString("No prediction data")
		return builder.String()
	}

	for i, p := range batch {
		builder.WriteString(fmt.Sprintf("*%d.* %s\n", i+1, formatPredictionSet(p.Numbers, p.Powerball)))
		builder.WriteString(fmt.Sprintf("   %s · confidence %d%% · sum %d\n",
			strategyLabel(p.StrategyID), p.Confidence, p.Metadata.Sum))
	}

	builder.WriteString("\n💡 *Tips*: Predictions are for entertainment only")
	return builder.String()
}

// formatLatestMessage 最新开奖与当前批次
func (b *Bot) formatLatestMessage(latest *database.Drawing, batch []predictor.Prediction) string {
	var builder strings.Builder

	builder.WriteString("📊 *Latest Powerball Information*\n\n")
	builder.WriteString(formatDrawing(latest))
	builder.WriteString("\n")

	if len(batch) == 0 {
		builder.WriteString("🔮 *No Pending Predictions*\nSend /predict to generate a batch")
		return builder.String()
	}

	builder.WriteString(b.formatBatchMessage("🔮 *Current Predictions*", batch))
	return builder.String()
}

func formatDrawing(d *database.Drawing) string {
	var builder strings.Builder
	builder.WriteString("🎯 *Latest Drawing*\n")
	builder.WriteString(fmt.Sprintf("Date: `%s`\n", d.DateString()))
	builder.WriteString(fmt.Sprintf("Numbers: %s\n", formatPredictionSet(d.Numbers, d.Powerball)))
	builder.WriteString(fmt.Sprintf("Sum: `%d`\n", d.Sum()))
	if d.Multiplier > 0 {
		builder.WriteString(fmt.Sprintf("Power Play: `%dx`\n", d.Multiplier))
	}
	return builder.String()
}

// formatDrawingHistoryMessage 最近开奖记录
func (b *Bot) formatDrawingHistoryMessage(history []database.Drawing) string {
	var builder strings.Builder

	builder.WriteString("📈 *Recent Drawings*\n\n")
	if len(history) == 0 {
		builder.WriteString("No drawing records")
		return builder.String()
	}

	evens, highs := 0, 0
	for _, d := range history {
		builder.WriteString(fmt.Sprintf("`%s` %s sum %d\n", d.DateString(), formatPredictionSet(d.Numbers, d.Powerball), d.Sum()))

		meta := predictor.BuildMetadata(d.Numbers)
		evens += meta.EvenCount
		highs += meta.HighCount
	}

	total := len(history) * database.MainNumberCount
	builder.WriteString(fmt.Sprintf("\n📊 *Recent Pattern*: Even %d/%d, High %d/%d", evens, total, highs, total))
	return builder.String()
}

// formatStatsMessage 格式化统计信息消息
func (b *Bot) formatStatsMessage(stats *database.PredictionStats, recent []database.PredictionRecord) string {
	var builder strings.Builder

	builder.WriteString("📊 *Prediction Statistics*\n\n")

	builder.WriteString("🎯 *Overall Performance*\n")
	builder.WriteString(fmt.Sprintf("Total Predictions: `%d`\n", stats.TotalPredictions))
	builder.WriteString(fmt.Sprintf("Verified Predictions: `%d`\n", stats.VerifiedPredictions))
	builder.WriteString(fmt.Sprintf("Average Match Score: `%.3f`\n", stats.AverageMatchScore))
	builder.WriteString(fmt.Sprintf("Best Match Score: `%.3f`\n\n", stats.BestMatchScore))

	if !stats.FirstPrediction.IsZero() {
		builder.WriteString("⏰ *Time Span*\n")
		builder.WriteString(fmt.Sprintf("First Prediction: `%s`\n", stats.FirstPrediction.Format("2006-01-02 15:04")))
		builder.WriteString(fmt.Sprintf("Latest Prediction: `%s`\n", stats.LastPrediction.Format("2006-01-02 15:04")))

		days := int(stats.LastPrediction.Sub(stats.FirstPrediction).Hours() / 24)
		builder.WriteString(fmt.Sprintf("Running Days: `%d days`\n\n", days))
	}

	verified := 0
	for _, r := range recent {
		if !r.IsVerified() {
			continue
		}
		if verified == 0 {
			builder.WriteString("🧾 *Recently Verified*\n")
		}
		builder.WriteString(fmt.Sprintf("%s %s score `%.2f`\n",
			formatPredictionSet(r.Numbers, r.Powerball), strategyLabel(predictor.StrategyID(r.StrategyID)), *r.MatchScore))
		verified++
	}
	if verified > 0 {
		builder.WriteString("\n")
	}

	builder.WriteString(fmt.Sprintf("🏆 *Performance Rating*: %s\n\n", calculatePerformanceRating(stats.AverageMatchScore)))
	builder.WriteString("💡 *Note*: Statistics are based on verified prediction results")
	return builder.String()
}

// formatPerformanceMessage 引擎表现报告
func (b *Bot) formatPerformanceMessage(report predictor.PerformanceReport) string {
	var builder strings.Builder

	builder.WriteString("⚙️ *Strategy Performance*\n\n")
	for _, a := range report.Algorithms {
		builder.WriteString(fmt.Sprintf("%s\n   weight `%.3f` · success `%.3f` · scored `%d`\n",
			strategyLabel(a.StrategyID), a.Weight, a.SuccessRate, a.TotalPredictions))
	}

	status := "⏳ Waiting for the first drawing feedback"
	if report.IsLearning {
		status = "🧠 Learning from drawing feedback"
	}
	builder.WriteString(fmt.Sprintf("\nPredictions kept: `%d`\n%s", report.PredictionHistoryLength, status))
	return builder.String()
}

// formatNewPredictionBroadcast 新开奖后的推送
func (b *Bot) formatNewPredictionBroadcast(batch []predictor.Prediction, latest *database.Drawing) string {
	var builder strings.Builder

	builder.WriteString("🚨 *New Drawing Prediction Push*\n\n")
	if latest != nil {
		builder.WriteString(formatDrawing(latest))
		builder.WriteString("\n")
	}

	builder.WriteString(b.formatBatchMessage("🔮 *Next Drawing Predictions*", batch))
	builder.WriteString("\n💡 Send /performance for strategy details")
	return builder.String()
}

// calculatePerformanceRating 按平均命中得分评级
func calculatePerformanceRating(avgScore float64) string {
	switch {
	case avgScore >= 0.5:
		return "🏆 Excellent (≥0.50)"
	case avgScore >= 0.33:
		return "🥇 Great (≥0.33)"
	case avgScore >= 0.2:
		return "🥈 Good (≥0.20)"
	case avgScore >= 0.1:
		return "🥉 Fair (≥0.10)"
	default:
		return "📚 Needs Improvement (<0.10)"
	}
}

var strategyLabels = map[predictor.StrategyID]string{
	predictor.StrategyEWMA:   "📈 EWMA",
	predictor.StrategyNeural: "🧠 Neural",
	predictor.StrategyPairs:  "🔗 Pairs",
	predictor.StrategyGaps:   "⏳ Gaps",
	predictor.StrategyMarkov: "🔄 Markov",
	predictor.StrategySum:    "➕ Sum Range",
	predictor.StrategyRandom: "🎲 Random",
}

func strategyLabel(id predictor.StrategyID) string {
	if label, ok := strategyLabels[id]; ok {
		return label
	}
	return string(id)
}

// CreateInlineKeyboard 创建内联键盘
func (b *Bot) CreateInlineKeyboard() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		{
			tgbotapi.NewInlineKeyboardButtonData("🔮 Latest", "view_latest"),
			tgbotapi.NewInlineKeyboardButtonData("🎱 New Prediction", "new_prediction"),
		},
		{
			tgbotapi.NewInlineKeyboardButtonData("📈 Drawings", "view_history"),
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Performance", "view_performance"),
		},
	}
}
