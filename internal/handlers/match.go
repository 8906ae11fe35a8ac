// internal/handlers/match.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pidr-game/pidr-engine/internal/auth"
	"github.com/pidr-game/pidr-engine/internal/engine"
)

// createMatchRequest is the POST /match/create body. Seats are dealt in the
// given order; omitted ids get fresh ones assigned by the engine.
type createMatchRequest struct {
	Seats []struct {
		ID    uuid.UUID `json:"id,omitempty"`
		Name  string    `json:"name"`
		IsBot bool      `json:"isBot,omitempty"`
	} `json:"seats"`

	// Password makes the match private: tokenless WebSocket connections must
	// present it as the "key" query parameter.
	Password string `json:"password,omitempty"`
}

// CreateMatchHandler deals a new match and answers with the match id, the
// seat ids, and a session token per human seat so peers can open their
// WebSockets.
func CreateMatchHandler(ms *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req createMatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}

		infos := make([]engine.SeatInfo, 0, len(req.Seats))
		for _, s := range req.Seats {
			infos = append(infos, engine.SeatInfo{ID: s.ID, Name: s.Name, IsBot: s.IsBot})
		}
		session, err := ms.CreateMatch(infos, req.Password)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		type seatOut struct {
			ID    uuid.UUID `json:"id"`
			Name  string    `json:"name"`
			IsBot bool      `json:"isBot"`
			Token string    `json:"token,omitempty"`
		}
		seats := make([]seatOut, 0, len(session.Seats))
		for _, seat := range session.Seats {
			out := seatOut{ID: seat.ID, Name: seat.Name, IsBot: seat.IsBot}
			if !seat.IsBot {
				if token, err := auth.CreateJWT(seat.ID.String()); err == nil {
					out.Token = token
				}
			}
			seats = append(seats, out)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"match_id": session.ID,
			"seats":    seats,
		})
	}
}

// ActiveMatchHandler answers GET /match/active/{seat_id} with the id of the
// match the seat currently plays in, so a reloading client can find its way
// back without having stored the match id.
func ActiveMatchHandler(ms *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seatIDStr := strings.TrimPrefix(r.URL.Path, "/match/active/")
		seatID, err := uuid.Parse(seatIDStr)
		if err != nil {
			http.Error(w, "invalid seat id", http.StatusBadRequest)
			return
		}
		session := ms.Store.FindBySeat(seatID)
		if session == nil {
			http.Error(w, "no active match for seat", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"match_id": session.ID,
		})
	}
}

// MatchResultsHandler answers GET /match/results/{match_id} with the current
// standings: final places for a finished match, partial places otherwise.
func MatchResultsHandler(ms *MatchServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchIDStr := strings.TrimPrefix(r.URL.Path, "/match/results/")
		matchID, err := uuid.Parse(matchIDStr)
		if err != nil {
			http.Error(w, "invalid match id", http.StatusBadRequest)
			return
		}
		session, ok := ms.Store.GetMatch(matchID)
		if !ok {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"match_id": session.ID,
			"stage":    session.CurrentStage(),
			"results":  session.FinalResults(),
		})
	}
}
