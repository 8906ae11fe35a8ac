// internal/handlers/match_test.go
package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pidr-game/pidr-engine/internal/auth"
	"github.com/pidr-game/pidr-engine/internal/engine"
)

func TestMain(m *testing.M) {
	auth.Init()
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) *MatchServer {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	ms := NewMatchServer(logger)
	t.Cleanup(ms.Tasks.Stop)
	return ms
}

func TestCreateMatchHandler(t *testing.T) {
	ms := newTestServer(t)
	handler := CreateMatchHandler(ms)

	body := `{"seats":[{"name":"alice"},{"name":"bob"},{"name":"cpu","isBot":true}]}`
	req := httptest.NewRequest(http.MethodPost, "/match/create", strings.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		MatchID uuid.UUID `json:"match_id"`
		Seats   []struct {
			ID    uuid.UUID `json:"id"`
			Name  string    `json:"name"`
			IsBot bool      `json:"isBot"`
			Token string    `json:"token"`
		} `json:"seats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Seats, 3)

	session, ok := ms.Store.GetMatch(resp.MatchID)
	require.True(t, ok, "created match is registered in the store")
	assert.Equal(t, engine.StageOne, session.CurrentStage())

	// Humans get session tokens, bots do not.
	for _, seat := range resp.Seats {
		if seat.IsBot {
			assert.Empty(t, seat.Token)
			continue
		}
		require.NotEmpty(t, seat.Token)
		sub, err := auth.AuthenticateJWT(seat.Token)
		require.NoError(t, err)
		assert.Equal(t, seat.ID.String(), sub)
	}
}

func TestCreateMatchHandlerRejectsBadRequests(t *testing.T) {
	ms := newTestServer(t)
	handler := CreateMatchHandler(ms)

	req := httptest.NewRequest(http.MethodGet, "/match/create", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	// One seat is below the table minimum; the engine refuses the deal.
	req = httptest.NewRequest(http.MethodPost, "/match/create", strings.NewReader(`{"seats":[{"name":"solo"}]}`))
	w = httptest.NewRecorder()
	handler(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatchResultsHandler(t *testing.T) {
	ms := newTestServer(t)
	session, err := ms.CreateMatch([]engine.SeatInfo{{Name: "a"}, {Name: "b"}}, "")
	require.NoError(t, err)

	handler := MatchResultsHandler(ms)
	req := httptest.NewRequest(http.MethodGet, "/match/results/"+session.ID.String(), nil)
	w := httptest.NewRecorder()
	handler(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/match/results/"+uuid.NewString(), nil)
	w = httptest.NewRecorder()
	handler(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPrivateMatchStoresPasswordHash(t *testing.T) {
	ms := newTestServer(t)
	session, err := ms.CreateMatch([]engine.SeatInfo{{Name: "a"}, {Name: "b"}}, "sekrit")
	require.NoError(t, err)

	hash, private := ms.passwordHashFor(session.ID)
	require.True(t, private)
	match, err := auth.ComparePasswordAndHash("sekrit", hash)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = auth.ComparePasswordAndHash("wrong", hash)
	require.NoError(t, err)
	assert.False(t, match)

	_, private = ms.passwordHashFor(uuid.New())
	assert.False(t, private)
}

func TestAdoptSnapshotResumesMatch(t *testing.T) {
	ms := newTestServer(t)
	session, err := ms.CreateMatch([]engine.SeatInfo{{Name: "a"}, {Name: "b"}}, "")
	require.NoError(t, err)
	snap := session.Snapshot()

	// A fresh server (as after a restart) adopts the persisted snapshot.
	ms2 := newTestServer(t)
	restored, err := ms2.AdoptSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, session.ID, restored.ID)

	got, ok := ms2.Store.GetMatch(session.ID)
	require.True(t, ok)
	assert.Same(t, restored, got)
	assert.NotNil(t, ms2.replayerFor(session.ID), "resumed matches accept remote moves")
}

func TestActiveMatchHandler(t *testing.T) {
	ms := newTestServer(t)
	session, err := ms.CreateMatch([]engine.SeatInfo{{Name: "a"}, {Name: "b"}}, "")
	require.NoError(t, err)
	require.Contains(t, ms.Store.MatchIDs(), session.ID)

	handler := ActiveMatchHandler(ms)
	req := httptest.NewRequest(http.MethodGet, "/match/active/"+session.Seats[1].ID.String(), nil)
	w := httptest.NewRecorder()
	handler(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		MatchID uuid.UUID `json:"match_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, session.ID, resp.MatchID)

	req = httptest.NewRequest(http.MethodGet, "/match/active/"+uuid.NewString(), nil)
	w = httptest.NewRecorder()
	handler(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFinishedMatchEvictedAfterRetention(t *testing.T) {
	ms := newTestServer(t)
	ms.resultRetention = 10 * time.Millisecond
	session, err := ms.CreateMatch([]engine.SeatInfo{{Name: "a"}, {Name: "b"}}, "")
	require.NoError(t, err)

	session.OnMatchEnd(nil)

	require.Eventually(t, func() bool {
		_, ok := ms.Store.GetMatch(session.ID)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestCreateMatchBotDelayFromEnv(t *testing.T) {
	t.Setenv("PIDR_BOT_DELAY", "50ms")
	ms := newTestServer(t)
	session, err := ms.CreateMatch([]engine.SeatInfo{{Name: "a"}, {Name: "cpu", IsBot: true}}, "")
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, session.BotDelay)
}
