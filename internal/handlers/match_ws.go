// internal/handlers/match_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pidr-game/pidr-engine/internal/auth"
	"github.com/pidr-game/pidr-engine/internal/engine"
	"github.com/pidr-game/pidr-engine/internal/middleware"
	matchsync "github.com/pidr-game/pidr-engine/internal/sync"
)

// wsClientMessage is the incoming WebSocket frame: either a control frame
// (ping, sync) or one move message for the replayer.
type wsClientMessage struct {
	Type string `json:"type"`

	Seq        uint64    `json:"seq,omitempty"`
	CardID     uuid.UUID `json:"cardId,omitempty"`
	TargetSeat uuid.UUID `json:"targetSeat,omitempty"`
	Origin     string    `json:"origin,omitempty"`
}

// MatchWSHandler upgrades the HTTP connection to WebSocket for one seat of a
// running match: /match/ws/{match_id}?seat={seat_id}. It authenticates the
// seat, registers the connection, sends the seat its private sync state, and
// runs the read loop until the peer goes away.
func MatchWSHandler(logger *logrus.Logger, ms *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"match"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "internal server error during handler exit")

		if c.Subprotocol() != "match" {
			c.Close(BadSubprotocolError, "client must use the 'match' subprotocol")
			return
		}

		matchIDStr := strings.TrimPrefix(r.URL.Path, "/match/ws/")
		matchID, err := uuid.Parse(strings.Split(matchIDStr, "/")[0])
		if err != nil {
			c.Close(InvalidMatchIDError, "invalid match id format")
			return
		}
		session, ok := ms.Store.GetMatch(matchID)
		if !ok {
			c.Close(InvalidMatchIDError, "match not found")
			return
		}
		if session.CurrentStage() == engine.StageFinished {
			c.Close(websocket.StatusNormalClosure, "match has already ended")
			return
		}

		seatID, tokenOK, err := authenticateSeat(r, session)
		if err != nil {
			if errors.Is(err, errBadAuthToken) {
				c.Close(InvalidAuthTokenError, "invalid auth token for this seat")
			} else {
				c.Close(InvalidSeatIDError, err.Error())
			}
			return
		}
		if hash, private := ms.passwordHashFor(matchID); private && !tokenOK {
			match, err := auth.ComparePasswordAndHash(r.URL.Query().Get("key"), hash)
			if err != nil || !match {
				c.Close(InvalidAuthTokenError, "private match: wrong or missing key")
				return
			}
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ms.registerConn(matchID, seatID, c)
		ms.handleSeatConnect(session, seatID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readMatchMessages(ctx, c, ms, session, seatID, logger)

		ms.unregisterConn(matchID, seatID, c)
		ms.handleSeatDisconnect(session, seatID)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
	}
}

// errBadAuthToken distinguishes token failures from seat failures so the
// handler can pick the matching close code.
var errBadAuthToken = errors.New("invalid auth token")

// authenticateSeat resolves which seat this connection speaks for. The seat
// id comes from the query string; when an auth token is present its subject
// must match the seat. Tokenless connections are accepted for ephemeral
// (guest) seats, mirroring match creation which hands out seat ids directly;
// private matches additionally require the match key.
func authenticateSeat(r *http.Request, session *engine.MatchSession) (uuid.UUID, bool, error) {
	seatID, err := uuid.Parse(r.URL.Query().Get("seat"))
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("missing or invalid seat query parameter")
	}

	found := false
	for _, seat := range session.Seats {
		if seat.ID == seatID {
			found = true
			break
		}
	}
	if !found {
		return uuid.Nil, false, fmt.Errorf("seat is not part of this match")
	}

	if token := extractCookieToken(r.Header.Get("Cookie"), "auth_token"); token != "" {
		sub, err := auth.AuthenticateJWT(token)
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("%w: %v", errBadAuthToken, err)
		}
		if sub != seatID.String() {
			return uuid.Nil, false, fmt.Errorf("%w: subject does not match seat", errBadAuthToken)
		}
		return seatID, true, nil
	}
	return seatID, false, nil
}

// handleSeatConnect marks the seat connected and replays its private state.
func (ms *MatchServer) handleSeatConnect(session *engine.MatchSession, seatID uuid.UUID) {
	session.Mu.Lock()
	for _, seat := range session.Seats {
		if seat.ID == seatID {
			seat.Connected = true
		}
	}
	session.Mu.Unlock()
	session.SendSyncState(seatID)
}

// handleSeatDisconnect marks the seat disconnected. Its cards stay on the
// table; bots and other seats play on.
func (ms *MatchServer) handleSeatDisconnect(session *engine.MatchSession, seatID uuid.UUID) {
	session.Mu.Lock()
	defer session.Mu.Unlock()
	for _, seat := range session.Seats {
		if seat.ID == seatID {
			seat.Connected = false
		}
	}
}

// readMatchMessages reads frames until the connection dies: control frames
// are answered inline, move frames go through the match replayer so
// duplicates and replays stay idempotent.
func readMatchMessages(ctx context.Context, c *websocket.Conn, ms *MatchServer, session *engine.MatchSession, seatID uuid.UUID, logger *logrus.Logger) {
	replayer := ms.replayerFor(session.ID)

	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for seat %s in match %s", seatID, session.ID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("error reading from WebSocket for seat %s in match %s: %v", seatID, session.ID, err)
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg wsClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendWsError(ctx, c, "invalid JSON format")
			continue
		}

		switch msg.Type {
		case "ping":
			sendWsMessage(ctx, c, map[string]string{"type": "pong"})
			continue
		case "sync":
			session.SendSyncState(seatID)
			continue
		}

		if replayer == nil {
			sendWsError(ctx, c, "match is no longer accepting moves")
			continue
		}
		move := &matchsync.MoveMessage{
			MatchID:    session.ID,
			SeatID:     seatID,
			Seq:        msg.Seq,
			Type:       matchsync.MoveType(msg.Type),
			CardID:     msg.CardID,
			TargetSeat: msg.TargetSeat,
			Origin:     msg.Origin,
		}
		if err := replayer.Apply(move); err != nil {
			if errors.Is(err, matchsync.ErrStaleMove) {
				// Retransmit of a consumed move; ack and move on.
				sendWsMessage(ctx, c, map[string]interface{}{
					"type": "ack",
					"seq":  replayer.LastApplied(seatID),
				})
				continue
			}
			sendWsError(ctx, c, err.Error())
			continue
		}
		sendWsMessage(ctx, c, map[string]interface{}{
			"type": "ack",
			"seq":  msg.Seq,
		})

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// marshalEvent serializes one engine event for the wire.
func marshalEvent(ev engine.MatchEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// writeWithTimeout writes one frame with a bounded deadline so a stalled
// peer cannot back up the broadcast goroutine.
func writeWithTimeout(c *websocket.Conn, data []byte, logger *logrus.Logger, matchID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Write(ctx, websocket.MessageText, data); err != nil {
		logger.WithError(err).WithField("match", matchID).Warn("failed to write WebSocket frame")
	}
}

// sendWsMessage marshals a message and sends it to the WebSocket client.
func sendWsMessage(ctx context.Context, c *websocket.Conn, message interface{}) {
	if c == nil {
		log.Println("error: attempted to send WebSocket message on nil connection")
		return
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		log.Printf("error marshaling WebSocket message: %v", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Write(writeCtx, websocket.MessageText, msgBytes); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			log.Printf("error writing WebSocket message: %v (status: %d)", err, status)
		}
	}
}

// sendWsError sends a structured error message to the client.
func sendWsError(ctx context.Context, c *websocket.Conn, errorMsg string) {
	sendWsMessage(ctx, c, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}
