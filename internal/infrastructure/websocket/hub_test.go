package websocket

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"object-detector/internal/domain/entity"
)

func startHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	hub := NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return hub, conn
}

func TestHub_BroadcastsItemEvents(t *testing.T) {
	hub, conn := startHub(t)

	err := hub.OnItem(context.Background(), entity.ItemEvent{
		Result: entity.ItemResult{
			Item:       "/images/a.jpg",
			Detections: []entity.Detection{{Label: "cat", Confidence: 0.9, Box: entity.BBox{X2: 10, Y2: 10}}},
		},
		Progress: entity.Progress{RunID: "run-1", Completed: 1, Total: 3},
	})
	require.NoError(t, err)

	var msg Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "item", msg.Type)
	require.Equal(t, "run-1", msg.Run)
	require.Equal(t, "a.jpg", msg.File)
	require.Len(t, msg.Detections, 1)
	require.Equal(t, 3, msg.Total)
}

func TestHub_BroadcastsFailuresAndSummary(t *testing.T) {
	hub, conn := startHub(t)
	ctx := context.Background()

	require.NoError(t, hub.OnItem(ctx, entity.ItemEvent{
		Result:   entity.ItemResult{Item: "/images/b.jpg", Err: errors.New("corrupt file")},
		Progress: entity.Progress{RunID: "run-2", Completed: 1, Total: 1},
	}))
	require.NoError(t, hub.OnRunFinished(ctx, &entity.RunResult{ID: "run-2", Total: 1, Items: []entity.ItemResult{{Item: "b.jpg"}}}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var item, done Message
	require.NoError(t, conn.ReadJSON(&item))
	require.NoError(t, conn.ReadJSON(&done))

	require.Equal(t, "corrupt file", item.Error)
	require.Equal(t, "finished", done.Type)
	require.Equal(t, 1, done.Completed)
}

func TestHub_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	hub := NewHub(logger) // цикл рассылки не запущен, очередь никто не читает

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3*sendBacklog; i++ {
			assert.NoError(t, hub.OnItem(context.Background(), entity.ItemEvent{Result: entity.ItemResult{Item: "a.jpg"}}))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full queue")
	}
	require.Len(t, hub.broadcast, sendBacklog)
}

func TestHub_StalledClientDoesNotBlockPublishers(t *testing.T) {
	hub, _ := startHub(t) // клиент подключён, но ничего не читает

	dets := make([]entity.Detection, 200)
	for i := range dets {
		dets[i] = entity.Detection{Label: "person", Confidence: 0.5, Box: entity.BBox{X2: 1, Y2: 1}}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 2000; i++ {
			_ = hub.OnItem(context.Background(), entity.ItemEvent{
				Result:   entity.ItemResult{Item: "/images/crowd.jpg", Detections: dets},
				Progress: entity.Progress{Completed: i, Total: 2000},
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishers blocked by a client that does not read")
	}
}
