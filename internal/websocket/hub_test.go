package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pdfchat-backend/internal/models"
)

type staticTokens map[string]uuid.UUID

func (s staticTokens) ParseToken(token string) (uuid.UUID, error) {
	id, ok := s[token]
	if !ok {
		return uuid.Nil, errors.New("invalid token")
	}
	return id, nil
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func readUpdate(t *testing.T, conn *websocket.Conn) models.StatusUpdate {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read err: %v", err)
	}

	var msg struct {
		Type    string              `json:"type"`
		Payload models.StatusUpdate `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if msg.Type != "status_update" {
		t.Fatalf("unexpected message type %q", msg.Type)
	}
	return msg.Payload
}

func statusMessage(sessionID uuid.UUID, state string) models.WSMessage {
	return models.WSMessage{
		Type:    "status_update",
		Payload: models.StatusUpdate{SessionID: sessionID, State: state, Model: "gpt-4", TurnCount: 2},
	}
}

func TestHub_RejectsBadToken(t *testing.T) {
	hub := NewHub(nil, staticTokens{}, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	for _, token := range []string{"", "unknown"} {
		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Fatalf("expected dial to fail for token %q", token)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for token %q, got %v", token, resp)
		}
	}
}

func TestHub_LocalBroadcast(t *testing.T) {
	mine, other := uuid.New(), uuid.New()
	hub := NewHub(nil, staticTokens{"mine": mine, "other": other}, zap.NewNop())
	defer hub.Close()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv, "mine")
	dial(t, srv, "other")
	waitFor(t, func() bool { return hub.connectionCount(mine) == 1 && hub.connectionCount(other) == 1 })

	hub.Publish(context.Background(), mine, statusMessage(mine, models.StateCallingModel))

	update := readUpdate(t, conn)
	if update.SessionID != mine || update.State != models.StateCallingModel {
		t.Fatalf("unexpected update: %+v", update)
	}
}

func TestHub_UnregistersOnClose(t *testing.T) {
	id := uuid.New()
	hub := NewHub(nil, staticTokens{"tok": id}, zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv, "tok")
	waitFor(t, func() bool { return hub.connectionCount(id) == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.connectionCount(id) == 0 })
}

func TestHub_RedisPubSub(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	id := uuid.New()
	hub := NewHub(client, staticTokens{"tok": id}, zap.NewNop())
	defer hub.Close()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv, "tok")
	ctx := context.Background()
	// registration completes only after the subscription is confirmed
	waitFor(t, func() bool { return hub.connectionCount(id) == 1 })

	counts, err := client.PubSubNumSub(ctx, channelName(id)).Result()
	if err != nil || counts[channelName(id)] != 1 {
		t.Fatalf("expected an active subscription once registered, got %v (err %v)", counts, err)
	}

	hub.Publish(ctx, id, statusMessage(id, models.StateAssistantTurnAppended))

	update := readUpdate(t, conn)
	if update.State != models.StateAssistantTurnAppended || update.TurnCount != 2 {
		t.Fatalf("unexpected update: %+v", update)
	}
}

func TestHub_StalledClientDoesNotBlockOthers(t *testing.T) {
	stalled, healthy := uuid.New(), uuid.New()
	hub := NewHub(nil, staticTokens{"stalled": stalled, "healthy": healthy}, zap.NewNop())
	hub.writeWait = 200 * time.Millisecond
	defer hub.Close()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	dial(t, srv, "stalled") // never read from
	healthyConn := dial(t, srv, "healthy")
	waitFor(t, func() bool { return hub.connectionCount(stalled) == 1 && hub.connectionCount(healthy) == 1 })

	ctx := context.Background()
	big := strings.Repeat("x", 1<<20)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 32; i++ {
			hub.Publish(ctx, stalled, models.WSMessage{
				Type:    "status_update",
				Payload: models.StatusUpdate{SessionID: stalled, State: models.StateCallingModel, Error: big},
			})
		}
	}()

	hub.Publish(ctx, healthy, statusMessage(healthy, models.StateCallingModel))
	if update := readUpdate(t, healthyConn); update.SessionID != healthy {
		t.Fatalf("unexpected update: %+v", update)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publishing to a stalled client did not give up")
	}
	waitFor(t, func() bool { return hub.connectionCount(stalled) == 0 })
}
