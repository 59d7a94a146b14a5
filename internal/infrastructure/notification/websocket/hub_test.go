package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/self-configuration/internal/application/conversation"
	"github.com/dreschagin/self-configuration/internal/application/dto"
	"github.com/dreschagin/self-configuration/pkg/logger"
	"github.com/gorilla/websocket"
)

type fakeChat struct {
	err      error
	sessions chan string
}

func (f *fakeChat) Process(ctx context.Context, req conversation.Request) (conversation.Reply, error) {
	if f.sessions != nil {
		f.sessions <- req.SessionID
	}
	if f.err != nil {
		return conversation.Reply{}, f.err
	}
	return conversation.Reply{Intent: conversation.IntentCheckStatus, Text: "echo: " + req.Message}, nil
}

func startHub(t *testing.T, chat ChatProcessor) (*Hub, string) {
	t.Helper()
	return startSessionHub(t, chat, "")
}

func startSessionHub(t *testing.T, chat ChatProcessor, sessionID string) (*Hub, string) {
	t.Helper()

	log := logger.New("error")
	hub := NewHub(log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, chat, sessionID, log)
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
		client.Greet()
	}))
	t.Cleanup(server.Close)

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type received struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg received
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestHubBroadcastsProfilesAndAlerts(t *testing.T) {
	hub, url := startHub(t, nil)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	hub.BroadcastProfile(&dto.ProfileDTO{ID: "profile-1", HealthScore: 90})
	msg := readMessage(t, conn)
	if msg.Type != MessageTypeProfile || msg.Data["id"] != "profile-1" {
		t.Errorf("unexpected profile message: %+v", msg)
	}

	hub.BroadcastAlert(&dto.AlertDTO{Level: "critical", Metric: "error_rate"})
	msg = readMessage(t, conn)
	if msg.Type != MessageTypeAlert || msg.Data["level"] != "critical" {
		t.Errorf("unexpected alert message: %+v", msg)
	}
}

func TestClientRoutesChatMessages(t *testing.T) {
	hub, url := startHub(t, &fakeChat{})
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	if err := conn.WriteJSON(map[string]string{"type": "chat", "message": "how are we doing"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeChatReply {
		t.Fatalf("expected chat_reply, got %+v", msg)
	}
	if msg.Data["text"] != "echo: how are we doing" {
		t.Errorf("unexpected reply text: %v", msg.Data["text"])
	}
}

func TestClientBindsConversationSession(t *testing.T) {
	tests := []struct {
		name         string
		connection   string
		messageField string
		wantSession  string
		wantGreeting bool
	}{
		{"connection session wins", "conv-1", "forged", "conv-1", true},
		{"message session without connection session", "", "conv-2", "conv-2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{sessions: make(chan string, 1)}
			hub, url := startSessionHub(t, chat, tt.connection)
			conn := dial(t, url)
			waitForClients(t, hub, 1)

			if tt.wantGreeting {
				greeting := readMessage(t, conn)
				if greeting.Type != MessageTypeSession || greeting.Data["session_id"] != tt.connection {
					t.Fatalf("unexpected greeting: %+v", greeting)
				}
			}

			_ = conn.WriteJSON(map[string]string{"type": "chat", "message": "status", "session_id": tt.messageField})

			select {
			case got := <-chat.sessions:
				if got != tt.wantSession {
					t.Errorf("chat session = %q, want %q", got, tt.wantSession)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("chat was not called")
			}
		})
	}
}

func TestClientReportsChatErrors(t *testing.T) {
	hub, url := startHub(t, &fakeChat{err: errors.New("boom")})
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	_ = conn.WriteJSON(map[string]string{"type": "chat", "message": "status"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != MessageTypeError {
		t.Errorf("expected error message, got %+v", msg)
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, url := startHub(t, nil)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	_ = conn.Close()
	waitForClients(t, hub, 0)
}
