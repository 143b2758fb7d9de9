package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview/internal/api"
	"interview/internal/auth"
	"interview/internal/lifecycle"
	"interview/internal/models"
	"interview/internal/routers"
	"interview/internal/signal"
	"interview/internal/store"
)

type testEnv struct {
	server *httptest.Server
	tokens *auth.Tokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens := auth.NewTokens("test-secret-key-at-least-16", time.Minute)
	lc := lifecycle.New(store.NewMemory(), nil)
	handlers := api.NewHandlers(lc, signal.NewRegistry(), tokens)
	server := httptest.NewServer(routers.New(handlers, tokens))
	t.Cleanup(server.Close)
	return &testEnv{server: server, tokens: tokens}
}

func (e *testEnv) userToken(t *testing.T, user models.User) string {
	t.Helper()
	token, err := e.tokens.IssueUserToken(user, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) request(t *testing.T, token, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (e *testEnv) dialRoom(t *testing.T, roomID, roomToken string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(e.wsURL(roomID, roomToken), nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (e *testEnv) wsURL(roomID, roomToken string) string {
	base := "ws" + strings.TrimPrefix(e.server.URL, "http")
	return fmt.Sprintf("%s/ws/room/%s?token=%s", base, roomID, url.QueryEscape(roomToken))
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame models.WSFrame) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(frame))
}

// readUntil reads frames until one of the wanted type arrives. Membership
// snapshots and join announcements may interleave in either order, so tests
// must not assume a fixed sequence.
func readUntil(t *testing.T, conn *websocket.Conn, frameType string) models.WSFrame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var frame models.WSFrame
		require.NoError(t, conn.ReadJSON(&frame), "waiting for %q frame", frameType)
		if frame.Type == frameType {
			return frame
		}
	}
}

func asMap(t *testing.T, data any) map[string]any {
	t.Helper()
	m, ok := data.(map[string]any)
	require.True(t, ok, "expected object payload, got %#v", data)
	return m
}

var (
	candidate   = models.User{ID: "cand-1", Name: "Ada", Role: models.RoleCandidate}
	interviewer = models.User{ID: "int-1", Name: "Grace", Role: models.RoleInterviewer}
)

func createInterview(t *testing.T, env *testEnv, token string) map[string]any {
	t.Helper()
	resp, body := env.request(t, token, http.MethodPost, "/api/v1/interviews", models.CreateInterviewRequest{
		ScheduledAt: time.Now().Add(time.Hour),
		Duration:    60,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body
}

func roomTokenFor(t *testing.T, env *testEnv, userToken, roomID string) string {
	t.Helper()
	resp, body := env.request(t, userToken, http.MethodGet, "/api/v1/interviews/room/"+roomID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["roomToken"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/api/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.request(t, "", http.MethodGet, "/api/v1/interviews", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["code"])
}

func TestCreateRejectsPastSchedule(t *testing.T) {
	env := newTestEnv(t)
	token := env.userToken(t, candidate)
	resp, body := env.request(t, token, http.MethodPost, "/api/v1/interviews", models.CreateInterviewRequest{
		ScheduledAt: time.Now().Add(-time.Hour),
		Duration:    60,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "scheduling_conflict", body["code"])
}

func TestErrorCodeMapping(t *testing.T) {
	env := newTestEnv(t)
	candToken := env.userToken(t, candidate)
	intToken := env.userToken(t, interviewer)
	int2Token := env.userToken(t, models.User{ID: "int-2", Name: "Alan", Role: models.RoleInterviewer})
	strangerToken := env.userToken(t, models.User{ID: "who-1", Name: "Eve", Role: models.RoleCandidate})

	created := createInterview(t, env, candToken)
	id := created["id"].(string)

	resp, body := env.request(t, candToken, http.MethodGet, "/api/v1/interviews/unknown-id", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body["code"])

	resp, body = env.request(t, strangerToken, http.MethodGet, "/api/v1/interviews/"+id, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "access_denied", body["code"])

	resp, _ = env.request(t, intToken, http.MethodPost, "/api/v1/interviews/"+id+"/accept", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.request(t, int2Token, http.MethodPost, "/api/v1/interviews/"+id+"/accept", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_assigned", body["code"])

	resp, _ = env.request(t, candToken, http.MethodPost, "/api/v1/interviews/"+id+"/cancel", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.request(t, intToken, http.MethodPost, "/api/v1/interviews/"+id+"/complete", models.CompleteInterviewRequest{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_transition", body["code"])
}

func TestLifecycleEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	candToken := env.userToken(t, candidate)
	intToken := env.userToken(t, interviewer)

	created := createInterview(t, env, candToken)
	id := created["id"].(string)
	assert.Equal(t, string(models.StatusScheduled), created["status"])
	assert.NotEmpty(t, created["roomId"])
	assert.Nil(t, created["interviewer"])

	// Interviewer discovers the open pool and accepts.
	resp, _ := env.request(t, intToken, http.MethodGet, "/api/v1/interviews?filter=open", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, accepted := env.request(t, intToken, http.MethodPost, "/api/v1/interviews/"+id+"/accept", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.StatusScheduled), accepted["status"])
	assert.Equal(t, interviewer.ID, asMap(t, accepted["interviewer"])["id"])

	resp, started := env.request(t, candToken, http.MethodPost, "/api/v1/interviews/"+id+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.StatusInProgress), started["status"])
	assert.NotEmpty(t, started["startedAt"])

	score := 82
	resp, completed := env.request(t, intToken, http.MethodPost, "/api/v1/interviews/"+id+"/complete",
		models.CompleteInterviewRequest{Score: &score})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(models.StatusCompleted), completed["status"])
	assert.Equal(t, float64(82), completed["score"])
	assert.NotEmpty(t, completed["completedAt"])

	resp, body := env.request(t, intToken, http.MethodPost, "/api/v1/interviews/"+id+"/complete",
		models.CompleteInterviewRequest{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_transition", body["code"])
}

func TestSignalingEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	candToken := env.userToken(t, candidate)
	intToken := env.userToken(t, interviewer)

	created := createInterview(t, env, candToken)
	id := created["id"].(string)
	roomID := created["roomId"].(string)

	resp, _ := env.request(t, intToken, http.MethodPost, "/api/v1/interviews/"+id+"/accept", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	candConn := env.dialRoom(t, roomID, roomTokenFor(t, env, candToken, roomID))
	sendFrame(t, candConn, models.WSFrame{Type: "join-room", Data: models.JoinRoom{RoomID: roomID}})
	first := readUntil(t, candConn, "room-users")
	users, _ := first.Data.([]any)
	assert.Empty(t, users, "first joiner sees an empty room")

	intConn := env.dialRoom(t, roomID, roomTokenFor(t, env, intToken, roomID))
	sendFrame(t, intConn, models.WSFrame{Type: "join-room", Data: models.JoinRoom{RoomID: roomID}})
	second := readUntil(t, intConn, "room-users")
	peers, _ := second.Data.([]any)
	require.Len(t, peers, 1)
	candConnID := asMap(t, peers[0])["connectionId"].(string)

	joined := readUntil(t, candConn, "user-joined")
	intConnID := asMap(t, joined.Data)["connectionId"].(string)
	assert.Equal(t, interviewer.ID, asMap(t, joined.Data)["userId"])

	// Offer relayed verbatim to exactly the target, tagged with the sender.
	sendFrame(t, intConn, models.WSFrame{Type: "offer", Data: map[string]any{
		"roomId":             roomID,
		"targetConnectionId": candConnID,
		"payload":            map[string]any{"sdp": "v=0"},
	}})
	offer := readUntil(t, candConn, "offer")
	offerData := asMap(t, offer.Data)
	assert.Equal(t, intConnID, offerData["connectionId"])
	assert.Equal(t, "v=0", asMap(t, offerData["payload"])["sdp"])

	sendFrame(t, candConn, models.WSFrame{Type: "answer", Data: map[string]any{
		"roomId":             roomID,
		"targetConnectionId": intConnID,
		"payload":            map[string]any{"sdp": "v=0 answer"},
	}})
	answer := readUntil(t, intConn, "answer")
	assert.Equal(t, candConnID, asMap(t, answer.Data)["connectionId"])

	// Chat reaches every member including the sender.
	sendFrame(t, candConn, models.WSFrame{Type: "chat-message", Data: models.ChatMessage{
		RoomID:  roomID,
		Message: "hello there",
	}})
	for _, conn := range []*websocket.Conn{candConn, intConn} {
		chat := asMap(t, readUntil(t, conn, "chat-message").Data)
		assert.Equal(t, "hello there", chat["message"])
		assert.Equal(t, candidate.Name, chat["userName"])
		assert.Equal(t, candConnID, chat["senderId"])
		assert.NotEmpty(t, chat["timestamp"])
	}

	// Departure is announced to the remaining member.
	require.NoError(t, candConn.Close())
	left := readUntil(t, intConn, "user-left")
	assert.Equal(t, candConnID, asMap(t, left.Data)["connectionId"])
}

func TestWSSupersedesPreviousConnection(t *testing.T) {
	env := newTestEnv(t)
	candToken := env.userToken(t, candidate)
	created := createInterview(t, env, candToken)
	roomID := created["roomId"].(string)
	roomToken := roomTokenFor(t, env, candToken, roomID)

	first := env.dialRoom(t, roomID, roomToken)
	sendFrame(t, first, models.WSFrame{Type: "join-room", Data: models.JoinRoom{RoomID: roomID}})
	readUntil(t, first, "room-users")

	second := env.dialRoom(t, roomID, roomToken)
	sendFrame(t, second, models.WSFrame{Type: "join-room", Data: models.JoinRoom{RoomID: roomID}})
	members := readUntil(t, second, "room-users")
	users, _ := members.Data.([]any)
	assert.Empty(t, users, "superseded connection must already be gone")

	// The first connection was force-closed by the server.
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame models.WSFrame
	for {
		if err := first.ReadJSON(&frame); err != nil {
			break
		}
	}
}

func TestWSRejectsInvalidToken(t *testing.T) {
	env := newTestEnv(t)
	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL("rm-whatever", "garbage"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSRejectsTokenForOtherRoom(t *testing.T) {
	env := newTestEnv(t)
	candToken := env.userToken(t, candidate)
	created := createInterview(t, env, candToken)
	roomID := created["roomId"].(string)
	roomToken := roomTokenFor(t, env, candToken, roomID)

	_, resp, err := websocket.DefaultDialer.Dial(env.wsURL("rm-other", roomToken), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWSRejectsCancelledRoom(t *testing.T) {
	env := newTestEnv(t)
	candToken := env.userToken(t, candidate)
	created := createInterview(t, env, candToken)
	id := created["id"].(string)
	roomID := created["roomId"].(string)

	// Token minted while the interview was still joinable.
	roomToken := roomTokenFor(t, env, candToken, roomID)

	resp, _ := env.request(t, candToken, http.MethodPost, "/api/v1/interviews/"+id+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, wsResp, err := websocket.DefaultDialer.Dial(env.wsURL(roomID, roomToken), nil)
	require.Error(t, err)
	require.NotNil(t, wsResp)
	defer wsResp.Body.Close()
	assert.Equal(t, http.StatusConflict, wsResp.StatusCode)

	// And the lookup no longer hands out a token.
	resp, body := env.request(t, candToken, http.MethodGet, "/api/v1/interviews/room/"+roomID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["roomToken"])
}

func TestWSRequiresJoinBeforeSignaling(t *testing.T) {
	env := newTestEnv(t)
	candToken := env.userToken(t, candidate)
	created := createInterview(t, env, candToken)
	roomID := created["roomId"].(string)

	conn := env.dialRoom(t, roomID, roomTokenFor(t, env, candToken, roomID))
	sendFrame(t, conn, models.WSFrame{Type: "offer", Data: map[string]any{
		"roomId":             roomID,
		"targetConnectionId": "conn-x",
		"payload":            map[string]any{},
	}})
	errFrame := readUntil(t, conn, "error")
	assert.Equal(t, "not_joined", errFrame.Data)
}
