package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"helpdesk_chat/internal/domain"
	"helpdesk_chat/pkg/logger"
)

// startEchoServer поднимает сервер, где каждое соединение обслуживает Client:
// событие "boom" паникует, остальные возвращаются отправителю.
func startEchoServer(t *testing.T, clients chan<- *Client) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(conn, 8, 1024, logger.Nop())
		if clients != nil {
			clients <- client
		}
		go client.WritePump()
		client.ReadPump(func(env Envelope) {
			if env.Event == "boom" {
				panic("handler exploded")
			}
			frame, _ := Encode(env.Event, env.Data)
			client.Push(frame)
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestClient_PanicInHandlerDoesNotKillConnection(t *testing.T) {
	req := require.New(t)
	srv := startEchoServer(t, nil)
	conn := dial(t, srv)

	// When the handler panics
	req.NoError(conn.WriteJSON(Envelope{Event: "boom"}))

	// Then the client gets an internal error event
	env := readEnvelope(t, conn)
	req.Equal(EventError, env.Event)
	var payload ErrorPayload
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal(CodeInternal, payload.Code)
	req.Equal("boom", payload.Event)

	// And the connection keeps serving events
	req.NoError(conn.WriteJSON(Envelope{Event: "ping", Data: json.RawMessage(`{"n":1}`)}))
	env = readEnvelope(t, conn)
	req.Equal("ping", env.Event)
	req.JSONEq(`{"n":1}`, string(env.Data))
}

func TestClient_MalformedFrameAnsweredWithBadRequest(t *testing.T) {
	req := require.New(t)
	srv := startEchoServer(t, nil)
	conn := dial(t, srv)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	env := readEnvelope(t, conn)
	req.Equal(EventError, env.Event)
	var payload ErrorPayload
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal(CodeBadRequest, payload.Code)
}

func TestClient_CloseSendsCloseFrameAndRejectsPush(t *testing.T) {
	req := require.New(t)
	clients := make(chan *Client, 1)
	srv := startEchoServer(t, clients)
	conn := dial(t, srv)
	client := <-clients

	client.Close()

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure))
	req.False(client.Push([]byte("late")))

	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("done channel was not closed")
	}
}

func TestPresenceEvent(t *testing.T) {
	req := require.New(t)
	req.Equal("active_hr_users", PresenceEvent(domain.RoleRequester))
	req.Equal("active_employee_users", PresenceEvent(domain.RoleResponder))
}

func TestEncode(t *testing.T) {
	req := require.New(t)
	frame, err := Encode(EventTyping, TypingPayload{IsTyping: true})
	req.NoError(err)

	var env Envelope
	req.NoError(json.Unmarshal(frame, &env))
	req.Equal(EventTyping, env.Event)
	req.Contains(string(env.Data), `"isTyping":true`)
}
