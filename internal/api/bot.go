package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	app "object-detector/internal/application"
	"object-detector/internal/domain/entity"
	"object-detector/internal/domain/port"
)

const (
	msgStart = `👋 Привет! Я сообщаю о ходе распознавания объектов на изображениях.

🔔 Вы подписаны на уведомления о найденных объектах.

📋 Команды:
/status — прогресс текущего прогона
/cancel — остановить прогон
/stop — отписаться от уведомлений
/help — справка`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Запустите детектор на каталоге с изображениями
2️⃣ Бот пришлёт метки, найденные в каждом файле
3️⃣ В конце придёт сводка по всем меткам

📋 Команды:
/start — подписаться на уведомления
/stop — отписаться
/status — прогресс
/cancel — остановить прогон`

	msgStopped        = "🔕 Уведомления отключены. Отправьте /start, чтобы подписаться снова."
	msgNoRun          = "💤 Сейчас нет ни одного прогона."
	msgCancelRequest  = "🛑 Отмена запрошена. Уже начатые файлы будут дообработаны."
	msgNothingToStop  = "🤷 Нечего отменять: прогон не выполняется."
	msgUnknownCommand = "❓ Неизвестная команда. Используйте /help для справки."
	msgUseCommands    = "📋 Используйте /help, чтобы увидеть список команд."
	msgError          = "⚠️ Не удалось выполнить команду. Попробуйте позже."
)

// botAPI часть tgbotapi.BotAPI, которой пользуется бот
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
}

// RunController управление текущим прогоном из чата
type RunController interface {
	Cancel() bool
	Progress() (entity.Progress, bool)
}

// Bot представляет Telegram-бота и одновременно наблюдателя прогона
type Bot struct {
	api    botAPI
	subs   *app.SubscriptionService
	runs   RunController
	logger logrus.FieldLogger
}

// NewBot создаёт нового бота
func NewBot(token string, subs *app.SubscriptionService, runs RunController, logger logrus.FieldLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	logger.Infof("Authorized on account %s", api.Self.UserName)

	return newBot(api, subs, runs, logger), nil
}

func newBot(api botAPI, subs *app.SubscriptionService, runs RunController, logger logrus.FieldLogger) *Bot {
	return &Bot{
		api:    api,
		subs:   subs,
		runs:   runs,
		logger: logger,
	}
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.sendMessage(msg.Chat.ID, msgUseCommands)
		return
	}

	var userID int64
	if msg.From != nil {
		userID = msg.From.ID
	}

	switch msg.Command() {
	case "start":
		if _, err := b.subs.Subscribe(ctx, userID, msg.Chat.ID); err != nil {
			b.logger.WithError(err).Error("subscribe failed")
			b.sendMessage(msg.Chat.ID, msgError)
			return
		}
		b.sendMessage(msg.Chat.ID, msgStart)

	case "stop":
		if _, err := b.subs.Unsubscribe(ctx, userID, msg.Chat.ID); err != nil {
			b.logger.WithError(err).Error("unsubscribe failed")
			b.sendMessage(msg.Chat.ID, msgError)
			return
		}
		b.sendMessage(msg.Chat.ID, msgStopped)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "status":
		b.sendMessage(msg.Chat.ID, b.status())

	case "cancel":
		if b.runs.Cancel() {
			b.sendMessage(msg.Chat.ID, msgCancelRequest)
		} else {
			b.sendMessage(msg.Chat.ID, msgNothingToStop)
		}

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

func (b *Bot) status() string {
	p, ok := b.runs.Progress()
	if !ok {
		return msgNoRun
	}

	text := fmt.Sprintf("📊 Обработано %d из %d (%d %%)", p.Completed, p.Total, p.Percent())
	if p.Canceled {
		text += ", прогон отменён"
	}
	return text
}

// OnItem сообщает подписчикам о файлах, где что-то найдено или произошла ошибка
func (b *Bot) OnItem(ctx context.Context, ev entity.ItemEvent) error {
	if !ev.Result.Failed() && len(ev.Result.Detections) == 0 {
		return nil
	}
	return b.broadcast(ctx, app.FormatItem(ev))
}

// OnRunFinished отправляет подписчикам сводку прогона
func (b *Bot) OnRunFinished(ctx context.Context, result *entity.RunResult) error {
	return b.broadcast(ctx, "✅ "+strings.Join(app.Summary(result), "\n"))
}

func (b *Bot) broadcast(ctx context.Context, text string) error {
	chats, err := b.subs.ActiveChats(ctx)
	if err != nil {
		return err
	}

	var firstErr error
	for _, chatID := range chats {
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("send to chat %d: %w", chatID, err)
		}
	}
	return firstErr
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.WithError(err).Warn("Error sending message")
	}
}

var (
	_ port.Observer    = (*Bot)(nil)
	_ port.RunFinisher = (*Bot)(nil)
)
