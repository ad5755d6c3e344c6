package service

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"debate_hub/internal/models"
)

// newTestClient 建立沒有真實連線的訂閱端，直接從 SendChan 讀事件
func newTestClient(buffer int) *Client {
	return &Client{
		ID:       "test-client",
		SendChan: make(chan *models.Event, buffer),
	}
}

func TestHubBroadcastOrder(t *testing.T) {
	hub := NewHub()
	clientA := newTestClient(16)
	clientB := newTestClient(16)
	hub.subscribe(clientA, 1)
	hub.subscribe(clientB, 1)

	events := []*models.Event{
		models.StatusUpdatedEvent(1, models.StatusActive, nil),
		models.NewMessageEvent(1, &models.Message{Text: "first"}),
		models.NewMessageEvent(1, &models.Message{Text: "second"}),
	}
	for _, e := range events {
		hub.BroadcastEvent(1, e)
	}

	// 每個訂閱端都以送出順序收到同一串事件
	for _, client := range []*Client{clientA, clientB} {
		for i, want := range events {
			got := <-client.SendChan
			if got != want {
				t.Errorf("event %d = %+v, want %+v", i, got, want)
			}
		}
	}
}

func TestHubSubscriptionScoping(t *testing.T) {
	hub := NewHub()
	client := newTestClient(16)
	hub.subscribe(client, 1)

	// 別場辯論的事件不會送到這個訂閱端
	hub.BroadcastEvent(2, models.NewMessageEvent(2, &models.Message{Text: "elsewhere"}))
	select {
	case e := <-client.SendChan:
		t.Fatalf("unexpected event: %+v", e)
	default:
	}

	if got := hub.SubscriberCount(1); got != 1 {
		t.Errorf("subscriber count = %d, want 1", got)
	}
	if got := hub.SubscriberCount(2); got != 0 {
		t.Errorf("subscriber count for other debate = %d, want 0", got)
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	client := newTestClient(16)
	hub.subscribe(client, 1)
	hub.unsubscribe(client, 1)

	hub.BroadcastEvent(1, models.NewMessageEvent(1, &models.Message{Text: "after leave"}))
	select {
	case e := <-client.SendChan:
		t.Fatalf("unexpected event after unsubscribe: %+v", e)
	default:
	}
	if got := hub.SubscriberCount(1); got != 0 {
		t.Errorf("subscriber count = %d, want 0", got)
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub()
	slow := newTestClient(1) // 通道塞滿一個事件就算消化不動
	hub.subscribe(slow, 1)

	hub.BroadcastEvent(1, models.NewMessageEvent(1, &models.Message{Text: "one"}))
	hub.BroadcastEvent(1, models.NewMessageEvent(1, &models.Message{Text: "two"}))

	// 消化太慢的訂閱端被移除，靠重連補抓完整狀態
	if got := hub.SubscriberCount(1); got != 0 {
		t.Errorf("subscriber count = %d, want 0 after drop", got)
	}
}

func TestHubConcurrentBroadcastsSameOrderForAllSubscribers(t *testing.T) {
	hub := NewHub()
	clientA := newTestClient(128)
	clientB := newTestClient(128)
	hub.subscribe(clientA, 1)
	hub.subscribe(clientB, 1)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				hub.BroadcastEvent(1, models.NewMessageEvent(1, &models.Message{Text: fmt.Sprintf("%d-%d", g, i)}))
			}
		}(g)
	}
	wg.Wait()

	if len(clientA.SendChan) != 100 || len(clientB.SendChan) != 100 {
		t.Fatalf("queued events = %d/%d, want 100/100", len(clientA.SendChan), len(clientB.SendChan))
	}
	// 併發廣播不交錯：兩個訂閱端收到一模一樣的事件串
	for i := 0; i < 100; i++ {
		a := <-clientA.SendChan
		b := <-clientB.SendChan
		if a != b {
			t.Fatalf("subscribers diverge at event %d: %q vs %q", i, a.Message.Text, b.Message.Text)
		}
	}
}

func TestHubBroadcastDuringDisconnect(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.HandleConnection(conn, 1)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	for i := 0; i < 10; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		if err := conn.WriteJSON(subscribeFrame{Action: "join", DebateID: 1}); err != nil {
			t.Fatalf("join frame: %v", err)
		}
		waitForSubscribers(t, hub, 1, 1)

		// 廣播與斷線同時進行，送往退場連線的事件被安靜丟棄
		done := make(chan struct{})
		go func() {
			for j := 0; j < 100; j++ {
				hub.BroadcastEvent(1, models.NewMessageEvent(1, &models.Message{Text: "mid-disconnect"}))
			}
			close(done)
		}()
		conn.Close()
		<-done
		waitForSubscribers(t, hub, 1, 0)
	}
}

func waitForSubscribers(t *testing.T, hub *Hub, debateID uint, want int) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if hub.SubscriberCount(debateID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("subscriber count for debate %d never reached %d", debateID, want)
}

func TestHubRemoveClientClearsAllSubscriptions(t *testing.T) {
	hub := NewHub()
	client := newTestClient(16)
	hub.subscribe(client, 1)
	hub.subscribe(client, 2)

	hub.removeClient(client)

	if hub.SubscriberCount(1) != 0 || hub.SubscriberCount(2) != 0 {
		t.Error("client should be removed from every debate")
	}
}
