package telegram

import (
	"fmt"

	"keno-bot/internal/config"
	"keno-bot/internal/database"
	"keno-bot/internal/logger"
	"keno-bot/internal/predictor"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot Telegram机器人
type Bot struct {
	api           *tgbotapi.BotAPI
	commands      *Commands
	subscribers   []int64
	updateChannel tgbotapi.UpdatesChannel
	stopChannel   chan struct{}
}

// NewBot 创建新的Telegram机器人
func NewBot(cfg *config.Telegram, commands *Commands) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot.Debug = false
	logger.Infof("Telegram bot authorized on account: %s", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(cfg.Timeout.Seconds())

	return &Bot{
		api:           bot,
		commands:      commands,
		subscribers:   cfg.Subscribers,
		updateChannel: bot.GetUpdatesChan(u),
		stopChannel:   make(chan struct{}),
	}, nil
}

// Start 启动机器人
func (b *Bot) Start() {
	logger.Info("Starting Telegram bot...")
	go b.handleUpdates()
}

// Stop 停止机器人
func (b *Bot) Stop() {
	logger.Info("Stopping Telegram bot...")
	close(b.stopChannel)
	b.api.StopReceivingUpdates()
	logger.Info("Telegram bot stopped")
}

func (b *Bot) handleUpdates() {
	for {
		select {
		case update, ok := <-b.updateChannel:
			if !ok {
				return
			}
			switch {
			case update.Message != nil && update.Message.Chat.IsPrivate():
				go b.handleMessage(update.Message)
			case update.CallbackQuery != nil && update.CallbackQuery.Message != nil &&
				update.CallbackQuery.Message.Chat.IsPrivate():
				go b.handleCallbackQuery(update.CallbackQuery)
			}
		case <-b.stopChannel:
			return
		}
	}
}

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if message.IsCommand() {
		command := message.Command()
		logger.Debugf("Received private command: %s from user: %d", command, chatID)

		reply := b.commands.Handle(command, message.CommandArguments())
		if command == "start" {
			b.sendWithKeyboard(chatID, reply)
			return
		}
		b.sendMessage(chatID, reply)
		return
	}

	b.sendMessage(chatID, b.commands.HandleText(message.Text))
}

func (b *Bot) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	logger.Debugf("Received private callback: %s from user: %d", callback.Data, chatID)

	b.sendMessage(chatID, b.commands.Handle(callback.Data, ""))

	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		logger.Warnf("Failed to answer callback %s: %v", callback.ID, err)
	}
}

// sendMessage 发送消息（仅发送给私聊）
func (b *Bot) sendMessage(chatID int64, text string) {
	if chatID < 0 {
		logger.Debugf("Skipping message to group chat %d", chatID)
		return
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		logger.Errorf("Failed to send message to user %d: %v", chatID, err)
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = CreateInlineKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		logger.Errorf("Failed to send message to user %d: %v", chatID, err)
	}
}

// BroadcastPredictions 向配置的私聊订阅者推送新一轮预测
func (b *Bot) BroadcastPredictions(latest *database.Round, target string, predictions map[predictor.Method][]int) {
	if len(b.subscribers) == 0 || len(predictions) == 0 {
		return
	}

	message := formatBroadcast(latest, target, predictions)
	sent := 0
	for _, userID := range b.subscribers {
		if userID > 0 {
			b.sendMessage(userID, message)
			sent++
		}
	}

	logger.Infof("Broadcasted predictions for %s to %d private users", target, sent)
}

// GetBotInfo 获取机器人信息
func (b *Bot) GetBotInfo() map[string]interface{} {
	return map[string]interface{}{
		"username":    b.api.Self.UserName,
		"id":          b.api.Self.ID,
		"subscribers": len(b.subscribers),
	}
}
