package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"powerball-bot/internal/config"
	"powerball-bot/internal/database"
	"powerball-bot/internal/logger"
	"powerball-bot/internal/predictor"
)

// 单次 /predict 允许的组数
const (
	minPredictSets = 1
	maxPredictSets = 10
)

// DataSource 机器人读取的缓存数据
type DataSource interface {
	GetLatestDrawing() (*database.Drawing, error)
	GetDrawingHistory(limit int) ([]database.Drawing, error)
	GetLatestPredictions(limit int) ([]database.PredictionRecord, error)
	GetPredictionStats() (*database.PredictionStats, error)
}

// Engine 机器人使用的预测引擎操作
type Engine interface {
	PreviewEnsemblePrediction(history []database.Drawing, requestedSets int) []predictor.Prediction
	GetPerformanceReport() predictor.PerformanceReport
	LastBatch() []predictor.Prediction
}

// Bot Telegram机器人
type Bot struct {
	api           *tgbotapi.BotAPI
	data          DataSource
	engine        Engine
	subscribers   []int64
	historyLimit  int
	defaultSets   int
	updateChannel tgbotapi.UpdatesChannel
	stopChannel   chan struct{}
}

// NewBot 创建新的Telegram机器人
func NewBot(cfg *config.Telegram, data DataSource, engine Engine, historyLimit, defaultSets int) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	api.Debug = false
	logger.Infof("Telegram bot authorized on account: %s", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(cfg.Timeout.Seconds())

	return &Bot{
		api:           api,
		data:          data,
		engine:        engine,
		subscribers:   cfg.Subscribers,
		historyLimit:  historyLimit,
		defaultSets:   defaultSets,
		updateChannel: api.GetUpdatesChan(u),
		stopChannel:   make(chan struct{}),
	}, nil
}

// Start 启动机器人
func (b *Bot) Start() {
	logger.Info("Starting Telegram bot...")
	go b.handleUpdates()
	logger.Info("Telegram bot started successfully")
}

// Stop 停止机器人
func (b *Bot) Stop() {
	logger.Info("Stopping Telegram bot...")
	close(b.stopChannel)
	b.api.StopReceivingUpdates()
	logger.Info("Telegram bot stopped")
}

// handleUpdates 处理更新，只响应私聊
func (b *Bot) handleUpdates() {
	for {
		select {
		case update, ok := <-b.updateChannel:
			if !ok {
				return
			}
			if update.Message != nil && update.Message.Chat.IsPrivate() {
				go b.handleMessage(update.Message)
			} else if update.CallbackQuery != nil && update.CallbackQuery.Message != nil &&
				update.CallbackQuery.Message.Chat.IsPrivate() {
				go b.handleCallbackQuery(update.CallbackQuery)
			}
		case <-b.stopChannel:
			return
		}
	}
}

// handleMessage 处理消息
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if !message.IsCommand() {
		b.handleTextMessage(chatID, message.Text)
		return
	}

	command := message.Command()
	logger.Debugf("Received private command: %s from user: %d", command, chatID)

	switch command {
	case "start":
		b.sendMessageWithKeyboard(chatID, startText, b.CreateInlineKeyboard())
	case "help":
		b.sendMessage(chatID, helpText)
	case "latest":
		b.handleLatestCommand(chatID)
	case "predict":
		b.handlePredictCommand(chatID, message.CommandArguments())
	case "history":
		b.handleHistoryCommand(chatID)
	case "stats":
		b.handleStatsCommand(chatID)
	case "performance":
		b.handlePerformanceCommand(chatID)
	default:
		b.sendMessage(chatID, "Unknown command. Type /help to view available commands.")
	}
}

// handleTextMessage 简单关键字回复
func (b *Bot) handleTextMessage(chatID int64, text string) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "latest":
		b.handleLatestCommand(chatID)
	case "predict":
		b.handlePredictCommand(chatID, "")
	case "history":
		b.handleHistoryCommand(chatID)
	case "stats":
		b.handleStatsCommand(chatID)
	default:
		b.sendMessage(chatID, "Please use commands or keywords, type /help for help.")
	}
}

// handleCallbackQuery 处理内联键盘回调
func (b *Bot) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	logger.Debugf("Received private callback: %s from user: %d", callback.Data, chatID)

	switch callback.Data {
	case "view_latest":
		b.handleLatestCommand(chatID)
	case "new_prediction":
		b.handlePredictCommand(chatID, "")
	case "view_history":
		b.handleHistoryCommand(chatID)
	case "view_performance":
		b.handlePerformanceCommand(chatID)
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		logger.Warnf("Failed to answer callback query: %v", err)
	}
}

// handleLatestCommand 最新开奖与当前批次
func (b *Bot) handleLatestCommand(chatID int64) {
	latest, err := b.data.GetLatestDrawing()
	if err != nil {
		b.sendMessage(chatID, "❌ Failed to get the latest drawing, please try again later.")
		logger.Errorf("Failed to get latest drawing: %v", err)
		return
	}

	b.sendMessage(chatID, b.formatLatestMessage(latest, b.engine.LastBatch()))
}

// handlePredictCommand 按需生成一批预测
func (b *Bot) handlePredictCommand(chatID int64, args string) {
	sets, err := parsePredictCount(args, b.defaultSets)
	if err != nil {
		b.sendMessage(chatID, fmt.Sprintf("❌ %v\nUsage: /predict [%d-%d]", err, minPredictSets, maxPredictSets))
		return
	}

	history, err := b.data.GetDrawingHistory(b.historyLimit)
	if err != nil {
		// 引擎在历史不可用时自动退化为随机预测
		logger.Warnf("Failed to load drawing history for on-demand prediction: %v", err)
	}

	// 按需预测不替换定时任务保存的待评估批次
	batch := b.engine.PreviewEnsemblePrediction(history, sets)
	b.sendMessage(chatID, b.formatBatchMessage("🔮 *Fresh Prediction Batch*", batch))
}

// handleHistoryCommand 最近10期开奖
func (b *Bot) handleHistoryCommand(chatID int64) {
	history, err := b.data.GetDrawingHistory(10)
	if err != nil {
		b.sendMessage(chatID, "❌ Failed to get history records, please try again later.")
		logger.Errorf("Failed to get drawing history: %v", err)
		return
	}

	b.sendMessage(chatID, b.formatDrawingHistoryMessage(history))
}

// handleStatsCommand 已验证预测的统计
func (b *Bot) handleStatsCommand(chatID int64) {
	stats, err := b.data.GetPredictionStats()
	if err != nil {
		b.sendMessage(chatID, "❌ Failed to get statistics, please try again later.")
		logger.Errorf("Failed to get prediction stats: %v", err)
		return
	}

	records, err := b.data.GetLatestPredictions(10)
	if err != nil {
		logger.Warnf("Failed to get recent predictions: %v", err)
	}

	b.sendMessage(chatID, b.formatStatsMessage(stats, records))
}

// handlePerformanceCommand 引擎各算法表现
func (b *Bot) handlePerformanceCommand(chatID int64) {
	b.sendMessage(chatID, b.formatPerformanceMessage(b.engine.GetPerformanceReport()))
}

// parsePredictCount 解析 /predict 参数，为空时使用默认组数
func parsePredictCount(args string, defaultSets int) (int, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return clampSets(defaultSets), nil
	}

	n, err := strconv.Atoi(args)
	if err != nil {
		return 0, fmt.Errorf("invalid number of sets: %q", args)
	}
	if n < minPredictSets || n > maxPredictSets {
		return 0, errors.New("number of sets out of range")
	}
	return n, nil
}

func clampSets(n int) int {
	if n < minPredictSets {
		return minPredictSets
	}
	if n > maxPredictSets {
		return maxPredictSets
	}
	return n
}

// sendMessage 发送消息（仅发送给私聊）
func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(chatID, text, nil)
}

func (b *Bot) sendMessageWithKeyboard(chatID int64, text string, keyboard [][]tgbotapi.InlineKeyboardButton) {
	markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)
	b.send(chatID, text, &markup)
}

func (b *Bot) send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	// 正数ID为用户，负数ID为群组
	if chatID < 0 {
		logger.Debugf("Skipping message to group chat %d", chatID)
		return
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = *markup
	}

	if _, err := b.api.Send(msg); err != nil {
		logger.Errorf("Failed to send message to user %d: %v", chatID, err)
	}
}

// BroadcastPredictions 向订阅用户推送新开奖与新批次
func (b *Bot) BroadcastPredictions(batch []predictor.Prediction, latest *database.Drawing) int {
	message := b.formatNewPredictionBroadcast(batch, latest)

	sent := 0
	for _, userID := range b.subscribers {
		if userID <= 0 {
			continue
		}
		b.sendMessage(userID, message)
		sent++
	}

	logger.Infof("Broadcasted prediction batch to %d private users", sent)
	return sent
}

// GetBotInfo 获取机器人信息
func (b *Bot) GetBotInfo() map[string]interface{} {
	return map[string]interface{}{
		"username":    b.api.Self.UserName,
		"id":          b.api.Self.ID,
		"first_name":  b.api.Self.FirstName,
		"is_bot":      b.api.Self.IsBot,
		"subscribers": len(b.subscribers),
	}
}
