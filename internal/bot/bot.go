package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/xaenox/shopbot-experiment/internal/experiment"
	"github.com/xaenox/shopbot-experiment/internal/storage"
)

type Bot struct {
	api      *tgbotapi.BotAPI
	service  *experiment.Service
	sessions *cache.Cache
	logger   *zap.Logger

	// guards session creation so one chat never starts two sessions
	startMu sync.Mutex
}

// New connects to Telegram. Chat sessions expire after sessionTTL of inactivity.
func New(token string, service *experiment.Service, sessionTTL time.Duration, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:      api,
		service:  service,
		sessions: cache.New(sessionTTL, 10*time.Minute),
		logger:   logger,
	}, nil
}

// Start polls for updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Telegram bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if content == "" {
		content = message.Caption
	}
	if content == "" {
		b.sendMessage(message.Chat.ID, "请发送文字描述你想要的耳机。")
		return
	}

	sessionID, err := b.sessionFor(ctx, message.Chat.ID)
	if err != nil {
		b.logger.Error("Failed to start session",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "无法开始会话，请稍后再试。")
		return
	}

	result, err := b.service.HandleMessage(ctx, sessionID, content)
	if errors.Is(err, experiment.ErrSessionEnded) || errors.Is(err, storage.ErrNotFound) {
		// The cached session is stale; start over once
		if sessionID, err = b.replaceSession(ctx, message.Chat.ID, sessionID); err == nil {
			result, err = b.service.HandleMessage(ctx, sessionID, content)
		}
	}
	if err != nil {
		b.logger.Error("Failed to handle message",
			zap.Error(err),
			zap.String("session_id", sessionID),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "处理消息失败，请稍后再试。")
		return
	}

	b.sendMarkdown(message.Chat.ID, message.MessageID, formatReply(result.Reply, result.Products))
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(ctx, message)
	case "help":
		b.sendMessage(message.Chat.ID, helpText)
	case "end":
		b.handleEnd(ctx, message)
	case "products":
		b.handleProducts(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "未知命令，使用 /help 查看可用命令。")
	}
}

const welcomeText = `欢迎使用耳机导购助手！🎧
告诉我你的预算、喜欢的品牌、需要的功能或使用场景，我会为你推荐合适的耳机。

使用 /help 查看所有命令。`

const helpText = `可用命令：
/start - 开始新的会话
/help - 显示帮助
/products - 查看最近推荐的商品
/end - 结束当前会话

直接发送文字即可与导购助手对话。`

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	if _, err := b.replaceSession(ctx, message.Chat.ID, ""); err != nil {
		b.logger.Error("Failed to start session",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "无法开始会话，请稍后再试。")
		return
	}
	b.sendMessage(message.Chat.ID, welcomeText)
}

func (b *Bot) handleEnd(ctx context.Context, message *tgbotapi.Message) {
	key := chatKey(message.Chat.ID)
	sessionID, ok := b.sessions.Get(key)
	if !ok {
		b.sendMessage(message.Chat.ID, "当前没有进行中的会话。")
		return
	}
	b.sessions.Delete(key)

	if err := b.service.EndSession(ctx, sessionID.(string)); err != nil {
		b.logger.Error("Failed to end session",
			zap.Error(err),
			zap.String("session_id", sessionID.(string)))
		b.sendErrorMessage(message.Chat.ID, "结束会话失败。")
		return
	}
	b.sendMessage(message.Chat.ID, "会话已结束，感谢参与！发送 /start 可以重新开始。")
}

func (b *Bot) handleProducts(ctx context.Context, message *tgbotapi.Message) {
	sessionID, ok := b.sessions.Get(chatKey(message.Chat.ID))
	if !ok {
		b.sendMessage(message.Chat.ID, "还没有推荐记录。")
		return
	}

	products, err := b.service.LatestProducts(ctx, sessionID.(string))
	if err != nil {
		b.logger.Error("Failed to get latest products",
			zap.Error(err),
			zap.String("session_id", sessionID.(string)))
		b.sendErrorMessage(message.Chat.ID, "获取推荐记录失败。")
		return
	}
	if len(products) == 0 {
		b.sendMessage(message.Chat.ID, "还没有推荐记录。")
		return
	}

	b.sendMarkdown(message.Chat.ID, 0, formatProducts(products))
}

// sessionFor returns the chat's active session, starting one if needed.
// The participant is identified by the chat.
func (b *Bot) sessionFor(ctx context.Context, chatID int64) (string, error) {
	key := chatKey(chatID)
	if id, ok := b.sessions.Get(key); ok {
		// Touch to extend the expiry
		b.sessions.SetDefault(key, id)
		return id.(string), nil
	}

	b.startMu.Lock()
	defer b.startMu.Unlock()

	// Another update may have started one while we waited
	if id, ok := b.sessions.Get(key); ok {
		return id.(string), nil
	}
	return b.startSession(ctx, key)
}

// replaceSession starts a new session for the chat. A non-empty stale id
// is only replaced if it is still the cached one.
func (b *Bot) replaceSession(ctx context.Context, chatID int64, stale string) (string, error) {
	b.startMu.Lock()
	defer b.startMu.Unlock()

	key := chatKey(chatID)
	if id, ok := b.sessions.Get(key); ok && stale != "" && id.(string) != stale {
		return id.(string), nil
	}
	return b.startSession(ctx, key)
}

func (b *Bot) startSession(ctx context.Context, key string) (string, error) {
	session, err := b.service.StartSession(ctx, "tg-"+key)
	if err != nil {
		return "", err
	}
	b.sessions.SetDefault(key, session.ID)
	return session.ID, nil
}

func chatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendMarkdown(chatID int64, replyToID int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyToMessageID = replyToID

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send reply",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	b.sendMessage(chatID, "⚠️ "+text)
}
