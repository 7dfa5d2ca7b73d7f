package telegram

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	app "object-detector/internal/application"
	"object-detector/internal/domain/entity"
	"object-detector/internal/infrastructure/storage"
)

type sent struct {
	chatID int64
	text   string
}

type fakeAPI struct {
	mu      sync.Mutex
	updates chan tgbotapi.Update
	sent    []sent
	stopped bool
	fail    error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return tgbotapi.Message{}, f.fail
	}
	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, sent{chatID: msg.ChatID, text: msg.Text})
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeAPI) messages() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

type fakeRuns struct {
	canceled bool
	progress *entity.Progress
}

func (r *fakeRuns) Cancel() bool { return r.canceled }

func (r *fakeRuns) Progress() (entity.Progress, bool) {
	if r.progress == nil {
		return entity.Progress{}, false
	}
	return *r.progress, true
}

func command(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: chatID * 10},
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func newTestBot(runs RunController) (*Bot, *fakeAPI, *app.SubscriptionService) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	api := newFakeAPI()
	subs := app.NewSubscriptionService(storage.NewMemorySubscriberRepository())
	return newBot(api, subs, runs, logger), api, subs
}

func TestBot_StartAndStopManageSubscription(t *testing.T) {
	bot, api, subs := newTestBot(&fakeRuns{})
	ctx := context.Background()

	bot.handleMessage(ctx, command(1, "/start"))
	chats, err := subs.ActiveChats(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{1}, chats)

	bot.handleMessage(ctx, command(1, "/stop"))
	chats, err = subs.ActiveChats(ctx)
	require.NoError(t, err)
	require.Empty(t, chats)

	msgs := api.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, msgStart, msgs[0].text)
	require.Equal(t, msgStopped, msgs[1].text)
}

func TestBot_StatusAndCancel(t *testing.T) {
	runs := &fakeRuns{}
	bot, api, _ := newTestBot(runs)
	ctx := context.Background()

	bot.handleMessage(ctx, command(2, "/status"))
	bot.handleMessage(ctx, command(2, "/cancel"))

	runs.progress = &entity.Progress{Completed: 1, Total: 4}
	runs.canceled = true
	bot.handleMessage(ctx, command(2, "/status"))
	bot.handleMessage(ctx, command(2, "/cancel"))

	msgs := api.messages()
	require.Len(t, msgs, 4)
	require.Equal(t, msgNoRun, msgs[0].text)
	require.Equal(t, msgNothingToStop, msgs[1].text)
	require.Equal(t, "📊 Обработано 1 из 4 (25 %)", msgs[2].text)
	require.Equal(t, msgCancelRequest, msgs[3].text)
}

func TestBot_UnknownInput(t *testing.T) {
	bot, api, _ := newTestBot(&fakeRuns{})
	ctx := context.Background()

	bot.handleMessage(ctx, command(3, "/foo"))
	bot.handleMessage(ctx, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 3}, Text: "hello"})

	msgs := api.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, msgUnknownCommand, msgs[0].text)
	require.Equal(t, msgUseCommands, msgs[1].text)
}

func TestBot_NotifiesActiveChats(t *testing.T) {
	bot, api, subs := newTestBot(&fakeRuns{})
	ctx := context.Background()

	_, err := subs.Subscribe(ctx, 10, 1)
	require.NoError(t, err)
	_, err = subs.Subscribe(ctx, 20, 2)
	require.NoError(t, err)
	_, err = subs.Unsubscribe(ctx, 20, 2)
	require.NoError(t, err)

	// пустые файлы не шлём
	require.NoError(t, bot.OnItem(ctx, entity.ItemEvent{
		Result:   entity.ItemResult{Item: "/images/empty.jpg", Detections: []entity.Detection{}},
		Progress: entity.Progress{Completed: 1, Total: 2},
	}))
	require.NoError(t, bot.OnItem(ctx, entity.ItemEvent{
		Result:   entity.ItemResult{Item: "/images/cat.jpg", Detections: []entity.Detection{{Label: "cat"}}},
		Progress: entity.Progress{Completed: 2, Total: 2},
	}))
	require.NoError(t, bot.OnRunFinished(ctx, &entity.RunResult{
		Folder: "/images",
		Total:  2,
		Items:  []entity.ItemResult{{Item: "cat.jpg", Detections: []entity.Detection{{Label: "cat"}}}, {Item: "empty.jpg"}},
	}))

	msgs := api.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, sent{chatID: 1, text: "100 % cat.jpg : cat, "}, msgs[0])
	require.Equal(t, int64(1), msgs[1].chatID)
	require.Contains(t, msgs[1].text, "1 cat(s)")
}

func TestBot_BroadcastReportsSendErrors(t *testing.T) {
	bot, api, subs := newTestBot(&fakeRuns{})
	ctx := context.Background()

	_, err := subs.Subscribe(ctx, 10, 1)
	require.NoError(t, err)
	api.fail = errors.New("telegram is down")

	err = bot.OnItem(ctx, entity.ItemEvent{
		Result:   entity.ItemResult{Item: "/images/cat.jpg", Detections: []entity.Detection{{Label: "cat"}}},
		Progress: entity.Progress{Completed: 1, Total: 1},
	})
	require.ErrorIs(t, err, api.fail)
}

func TestBot_RunStopsOnContextCancel(t *testing.T) {
	bot, api, _ := newTestBot(&fakeRuns{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	api.updates <- tgbotapi.Update{Message: command(5, "/help")}
	require.Eventually(t, func() bool { return len(api.messages()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	require.True(t, api.stopped)
	require.Equal(t, msgHelp, api.sent[0].text)
}
