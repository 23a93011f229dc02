package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sembrant/chatdir/internal/api"
	"github.com/sembrant/chatdir/internal/api/response"
	"github.com/sembrant/chatdir/internal/factory"
	"github.com/sembrant/chatdir/internal/testutil"
)

// testServer wires the router over an in-memory app
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()

	router := api.NewRouter(api.RouterConfig{
		Logger:  testutil.NopLogger(),
		Users:   app.Users,
		Rooms:   app.Rooms,
		Servers: app.Servers,
	})

	return &testServer{
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) createUser(t *testing.T, name string) {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/users", map[string]string{
		"name": name, "password": "secret",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
}

func (ts *testServer) login(t *testing.T, name string, connectionID int64) {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/users/"+name+"/login", map[string]any{
		"password": "secret", "connection_id": connectionID,
	})
	require.Equal(t, http.StatusOK, rr.Code)
}

func (ts *testServer) createRoom(t *testing.T, number int64, owner string) {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/rooms", map[string]any{
		"number": number, "title": "room", "owner": owner, "server_id": "srv-1",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

// User endpoints

func TestCreateUser(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/users", map[string]string{
		"name": "alice", "password": "secret",
	})
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestCreateUserMissingName(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/users", map[string]string{
		"password": "secret",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "INVALID_REQUEST")
}

func TestCreateUserDuplicate(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/users", map[string]string{
		"name": "alice", "password": "secret",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "USER_EXISTS")
}

func TestGetUser(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")
	ts.login(t, "alice", 42)

	rr := ts.request(http.MethodGet, "/api/v1/users/alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var u response.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &u))
	assert.Equal(t, "alice", u.Name)
	assert.True(t, u.LoggedIn)
	assert.Equal(t, int64(42), u.ConnectionID)
}

func TestGetUserNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/users/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "USER_NOT_FOUND")
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/users/alice/login", map[string]any{
		"password": "wrong", "connection_id": 1,
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "AUTH_FAILED")
}

func TestLoginOverride(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")
	ts.login(t, "alice", 100)

	rr := ts.request(http.MethodPost, "/api/v1/users/alice/login", map[string]any{
		"password": "secret", "connection_id": 200,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var res response.Login
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res.SessionReplaced)
	assert.Equal(t, int64(100), res.PreviousConnectionID)
}

func TestLogoutNotLoggedIn(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/users/alice/logout", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "NOT_LOGGED_IN")
}

func TestChangeUsername(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")

	rr := ts.request(http.MethodPatch, "/api/v1/users/alice/username", map[string]string{
		"password": "secret", "new_username": "alicia",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/users/alicia", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/users/alice", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestChangeUsernameUnchanged(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")

	rr := ts.request(http.MethodPatch, "/api/v1/users/alice/username", map[string]string{
		"password": "secret", "new_username": "alice",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "UNCHANGED")
}

func TestBlockAndStatus(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/users/alice/block", map[string]any{
		"minutes": 30,
	})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/users/alice/block", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var status response.BlockStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, "active", status.State)
	assert.NotZero(t, status.Until)
}

func TestBlockExpiryVisibleOverAPI(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/users/alice/block", map[string]any{
		"minutes": 30,
	})
	require.Equal(t, http.StatusNoContent, rr.Code)

	ts.app.MockClock.Advance(31 * time.Minute)

	rr = ts.request(http.MethodGet, "/api/v1/users/alice/block", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var status response.BlockStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, "cleared", status.State)
}

func TestUnblockNotSuspended(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")

	rr := ts.request(http.MethodDelete, "/api/v1/users/alice/block", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "NOT_SUSPENDED")
}

func TestAddMessages(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/users/alice/messages", map[string]any{
		"delta": 5,
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var count response.MessageCount
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &count))
	assert.Equal(t, int64(5), count.Count)
}

func TestUsersTop(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")
	ts.createUser(t, "bob")
	ts.request(http.MethodPost, "/api/v1/users/alice/messages", map[string]any{"delta": 10})
	ts.request(http.MethodPost, "/api/v1/users/bob/messages", map[string]any{"delta": 20})

	rr := ts.request(http.MethodGet, "/api/v1/users/top?n=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var entries []response.RankedEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "bob", entries[0].Key)
	assert.Equal(t, int64(20), entries[0].Score)
	assert.Equal(t, int64(1), entries[0].Rank)
}

func TestUsersTopLoggedInStripsBias(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")
	ts.createUser(t, "bob")
	ts.request(http.MethodPost, "/api/v1/users/alice/messages", map[string]any{"delta": 10})
	ts.request(http.MethodPost, "/api/v1/users/bob/messages", map[string]any{"delta": 20})
	ts.login(t, "alice", 1)

	rr := ts.request(http.MethodGet, "/api/v1/users/top?logged_in=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var entries []response.RankedEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Key)
	// True message count, not the intersect-composed score.
	assert.Equal(t, int64(10), entries[0].Score)
}

// Room endpoints

func TestCreateRoom(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")
	ts.createRoom(t, 1, "alice")

	rr := ts.request(http.MethodGet, "/api/v1/rooms/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var rm response.Room
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rm))
	assert.Equal(t, int64(1), rm.Number)
	assert.Equal(t, "alice", rm.Owner)
	assert.Equal(t, int64(1), rm.Population)
}

func TestCreateRoomZeroNumberRejected(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/rooms", map[string]any{
		"number": 0, "title": "room", "owner": "alice", "server_id": "srv-1",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRoomNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/99", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "ROOM_NOT_FOUND")
}

func TestAddAndRemoveMember(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")
	ts.createUser(t, "bob")
	ts.createRoom(t, 1, "alice")

	rr := ts.request(http.MethodPost, "/api/v1/rooms/1/members", map[string]string{
		"username": "bob",
	})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodDelete, "/api/v1/rooms/1/members/alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var res response.RemoveMember
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.False(t, res.RoomDestroyed)
	assert.Equal(t, "bob", res.NewOwner)
}

func TestJoinSecondRoomLeavesFirst(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")
	ts.createUser(t, "bob")
	ts.createUser(t, "carol")
	ts.createRoom(t, 1, "alice")
	ts.createRoom(t, 2, "carol")

	rr := ts.request(http.MethodPost, "/api/v1/rooms/1/members", map[string]string{
		"username": "bob",
	})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/rooms/2/members", map[string]string{
		"username": "bob",
	})
	require.Equal(t, http.StatusNoContent, rr.Code)

	// Bob is counted and listed in room 2 only.
	rr = ts.request(http.MethodGet, "/api/v1/rooms/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var rm response.Room
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rm))
	assert.Equal(t, int64(1), rm.Population)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/1/members", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "bob")

	rr = ts.request(http.MethodGet, "/api/v1/users/bob", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var u response.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &u))
	assert.Equal(t, int64(2), u.RoomNumber)
}

func TestRemoveLastMemberDestroysRoom(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")
	ts.createRoom(t, 1, "alice")

	rr := ts.request(http.MethodDelete, "/api/v1/rooms/1/members/alice", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var res response.RemoveMember
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.True(t, res.RoomDestroyed)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/1", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateRoomTitle(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")
	ts.createRoom(t, 1, "alice")

	rr := ts.request(http.MethodPatch, "/api/v1/rooms/1", map[string]string{
		"title": "renamed",
	})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var rm response.Room
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rm))
	assert.Equal(t, "renamed", rm.Title)
}

func TestUpdateRoomNoFields(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")
	ts.createRoom(t, 1, "alice")

	rr := ts.request(http.MethodPatch, "/api/v1/rooms/1", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPurgeRoom(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")
	ts.createUser(t, "bob")
	ts.createRoom(t, 1, "alice")
	ts.request(http.MethodPost, "/api/v1/rooms/1/members", map[string]string{"username": "bob"})

	rr := ts.request(http.MethodDelete, "/api/v1/rooms/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var res response.Purge
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, 0, res.Failed)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/1", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// Server endpoints

func TestGetServer(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")
	ts.createRoom(t, 1, "alice")

	rr := ts.request(http.MethodGet, "/api/v1/servers/srv-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var srv response.Server
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &srv))
	assert.Equal(t, "srv-1", srv.ID)
	assert.Equal(t, int64(1), srv.RoomCount)
	assert.Equal(t, []int64{1}, srv.Rooms)
}

func TestGetServerNotFound(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/servers/srv-none", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "SERVER_NOT_FOUND")
}

func TestServersTop(t *testing.T) {
	ts := newTestServer(t)
	ts.createUser(t, "alice")
	ts.createUser(t, "bob")
	ts.createUser(t, "carol")
	ts.createRoom(t, 1, "alice")
	ts.request(http.MethodPost, "/api/v1/rooms", map[string]any{
		"number": 2, "title": "other", "owner": "bob", "server_id": "srv-2",
	})
	ts.request(http.MethodPost, "/api/v1/rooms", map[string]any{
		"number": 3, "title": "third", "owner": "carol", "server_id": "srv-2",
	})

	rr := ts.request(http.MethodGet, "/api/v1/servers/top", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var entries []response.RankedEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "srv-2", entries[0].Key)
	assert.Equal(t, int64(2), entries[0].Score)
}
