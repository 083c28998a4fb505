package handlers

import (
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/realtime"
)

func listen(t *testing.T, e *apiEnv) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = e.app.Listener(ln) }()
	t.Cleanup(func() { _ = e.app.Shutdown() })
	return "ws://" + ln.Addr().String() + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// next reads frames until one carries the wanted event.
func next(t *testing.T, conn *websocket.Conn, want string) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Event == want {
			return f
		}
	}
}

func TestSocketRejectsAnonymous(t *testing.T) {
	e := newAPI(t)
	url := listen(t, e)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSocketPlainRequestNeedsUpgrade(t *testing.T) {
	e := newAPI(t)
	resp, _ := e.do(t, "GET", "/ws?token="+e.token(t, e.customer), "", nil)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestSocketJoinAndReceiveMessage(t *testing.T) {
	e := newAPI(t)
	url := listen(t, e)
	p := e.openProject()

	rival := dial(t, url+"?token="+e.token(t, e.rival))
	require.NoError(t, rival.WriteJSON(realtime.Inbound{Event: realtime.EventPing}))
	next(t, rival, realtime.EventPong)

	require.NoError(t, rival.WriteJSON(realtime.Inbound{Event: realtime.EventJoinProject, ProjectID: p.ID.String()}))
	f := next(t, rival, realtime.EventError)
	assert.Equal(t, "you are not a participant of this project", f.Data["message"])

	require.NoError(t, rival.WriteJSON(realtime.Inbound{Event: "dance"}))
	f = next(t, rival, realtime.EventError)
	assert.Equal(t, "unknown event", f.Data["message"])

	owner := dial(t, url+"?token="+e.token(t, e.customer))
	require.NoError(t, owner.WriteJSON(realtime.Inbound{Event: realtime.EventJoinProject, ProjectID: p.ID.String()}))
	f = next(t, owner, realtime.EventJoined)
	assert.Equal(t, p.ID.String(), f.Data["projectId"])

	resp, env := e.do(t, "POST", "/api/messages", e.token(t, e.freelancer), fiber.Map{
		"projectId":   p.ID,
		"recipientId": e.customer.ID,
		"content":     "Ready when you are.",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)

	f = next(t, owner, realtime.EventNewMessage)
	assert.Equal(t, "Ready when you are.", f.Data["content"])
	assert.Equal(t, "frank", f.Data["senderName"])

	f = next(t, owner, realtime.EventUnreadCount)
	assert.EqualValues(t, 1, f.Data["count"])
}

func TestSocketReconnectChurn(t *testing.T) {
	e := newAPI(t)
	url := listen(t, e) + "?token=" + e.token(t, e.customer)

	for i := 0; i < 30; i++ {
		conn := dial(t, url)
		require.NoError(t, conn.WriteJSON(realtime.Inbound{Event: realtime.EventPing}))
		next(t, conn, realtime.EventPong)
		require.NoError(t, conn.Close())
	}

	last := dial(t, url)
	require.NoError(t, last.WriteJSON(realtime.Inbound{Event: realtime.EventPing}))
	next(t, last, realtime.EventPong)
}
