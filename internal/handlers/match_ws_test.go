// internal/handlers/match_ws_test.go
package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pidr-game/pidr-engine/internal/engine"
)

// dialMatchWS opens a socket against the handler and returns the close code
// the server answers with.
func dialMatchWS(t *testing.T, srv *httptest.Server, path string) websocket.StatusCode {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, srv.URL+path, &websocket.DialOptions{
		Subprotocols: []string{"match"},
	})
	require.NoError(t, err)
	defer c.CloseNow()

	_, _, err = c.Read(ctx)
	require.Error(t, err)
	return websocket.CloseStatus(err)
}

func TestMatchWSRejectsUnknownMatch(t *testing.T) {
	ms := newTestServer(t)
	srv := httptest.NewServer(http.HandlerFunc(MatchWSHandler(ms.Log, ms)))
	defer srv.Close()

	status := dialMatchWS(t, srv, "/match/ws/"+uuid.NewString())
	assert.Equal(t, websocket.StatusCode(InvalidMatchIDError), status)
}

func TestMatchWSRejectsForeignSeat(t *testing.T) {
	ms := newTestServer(t)
	session, err := ms.CreateMatch([]engine.SeatInfo{{Name: "a"}, {Name: "b"}}, "")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(MatchWSHandler(ms.Log, ms)))
	defer srv.Close()

	status := dialMatchWS(t, srv, "/match/ws/"+session.ID.String()+"?seat="+uuid.NewString())
	assert.Equal(t, websocket.StatusCode(InvalidSeatIDError), status)
}

func TestMatchWSRejectsWrongPrivateKey(t *testing.T) {
	ms := newTestServer(t)
	session, err := ms.CreateMatch([]engine.SeatInfo{{Name: "a"}, {Name: "b"}}, "sekrit")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(MatchWSHandler(ms.Log, ms)))
	defer srv.Close()

	path := "/match/ws/" + session.ID.String() +
		"?seat=" + session.Seats[0].ID.String() + "&key=wrong"
	status := dialMatchWS(t, srv, path)
	assert.Equal(t, websocket.StatusCode(InvalidAuthTokenError), status)
}
