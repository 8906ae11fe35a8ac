// internal/handlers/match_server.go
package handlers

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pidr-game/pidr-engine/internal/auth"
	"github.com/pidr-game/pidr-engine/internal/config"
	"github.com/pidr-game/pidr-engine/internal/database"
	"github.com/pidr-game/pidr-engine/internal/engine"
	"github.com/pidr-game/pidr-engine/internal/history"
	"github.com/pidr-game/pidr-engine/internal/store"
	matchsync "github.com/pidr-game/pidr-engine/internal/sync"
)

// MatchServer owns every running match: the store, the shared bot scheduler,
// per-match replayers for remote moves, and the WebSocket connections.
type MatchServer struct {
	Store *store.MatchStore
	Tasks *engine.TaskScheduler
	Log   *logrus.Logger

	// Finished matches stay in the store this long so the results endpoint
	// can answer late pollers, then they are evicted.
	resultRetention time.Duration

	mu        sync.Mutex
	replayers map[uuid.UUID]*matchsync.Replayer
	passwords map[uuid.UUID]string                         // match -> argon2id hash, private matches only
	conns     map[uuid.UUID]map[uuid.UUID]*websocket.Conn // match -> seat -> conn
}

func NewMatchServer(logger *logrus.Logger) *MatchServer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MatchServer{
		Store:           store.NewMatchStore(),
		Tasks:           engine.NewTaskScheduler(),
		Log:             logger,
		resultRetention: config.GetEnvDuration("PIDR_RESULT_RETENTION", time.Hour),
		replayers:       make(map[uuid.UUID]*matchsync.Replayer),
		passwords:       make(map[uuid.UUID]string),
		conns:           make(map[uuid.UUID]map[uuid.UUID]*websocket.Conn),
	}
}

// CreateMatch deals a new match, wires its callbacks, registers it, and
// starts play. A non-empty password makes the match private: its hash gates
// tokenless WebSocket connections.
func (ms *MatchServer) CreateMatch(infos []engine.SeatInfo, password string) (*engine.MatchSession, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	session, err := engine.NewMatchSession(infos, rng)
	if err != nil {
		return nil, err
	}
	if password != "" {
		hash, err := auth.CreateHash(password, auth.Params)
		if err != nil {
			return nil, err
		}
		ms.mu.Lock()
		ms.passwords[session.ID] = hash
		ms.mu.Unlock()
	}
	ms.wireSession(session)
	session.Begin()
	return session, nil
}

// wireSession attaches the server-side callbacks and registers the session
// with the store and the replayer map. The bot pacing delay is env-tunable.
func (ms *MatchServer) wireSession(session *engine.MatchSession) {
	session.Log = ms.Log
	session.Tasks = ms.Tasks
	session.BotDelay = config.GetEnvDuration("PIDR_BOT_DELAY", session.BotDelay)
	session.BroadcastFn = ms.makeBroadcastFn(session)
	session.BroadcastToSeatFn = ms.makeBroadcastToSeatFn(session)
	session.HistoryFn = ms.makeHistoryFn(session)
	session.OnMatchEnd = ms.makeMatchEndFn(session)

	ms.mu.Lock()
	ms.replayers[session.ID] = matchsync.NewReplayer(session, ms.Log)
	ms.mu.Unlock()
	ms.Store.AddMatch(session)
}

// AdoptSnapshot rebuilds one persisted match and puts it back in play. Seats
// come back disconnected; play resumes as peers re-attach or bots act.
func (ms *MatchServer) AdoptSnapshot(snap engine.Snapshot) (*engine.MatchSession, error) {
	session, err := engine.RestoreSession(snap)
	if err != nil {
		return nil, err
	}
	ms.wireSession(session)
	session.Begin()
	return session, nil
}

// ResumeMatches restores every in-progress match persisted in Postgres.
// Call once at startup, after the database is connected.
func (ms *MatchServer) ResumeMatches(ctx context.Context) int {
	if database.DB == nil {
		return 0
	}
	snaps, err := database.LoadOpenMatchSnapshots(ctx)
	if err != nil {
		ms.Log.WithError(err).Error("failed to load persisted matches")
		return 0
	}
	resumed := 0
	for _, snap := range snaps {
		if _, err := ms.AdoptSnapshot(snap); err != nil {
			ms.Log.WithError(err).WithField("match", snap.MatchID).Warn("skipping unresumable match")
			continue
		}
		resumed++
	}
	if resumed > 0 {
		ms.Log.WithField("matches", resumed).Info("resumed persisted matches")
	}
	return resumed
}

func (ms *MatchServer) replayerFor(matchID uuid.UUID) *matchsync.Replayer {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.replayers[matchID]
}

// passwordHashFor returns the private-match password hash, if one was set.
func (ms *MatchServer) passwordHashFor(matchID uuid.UUID) (string, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	hash, ok := ms.passwords[matchID]
	return hash, ok
}

// --- connection registry ---

func (ms *MatchServer) registerConn(matchID, seatID uuid.UUID, c *websocket.Conn) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.conns[matchID] == nil {
		ms.conns[matchID] = make(map[uuid.UUID]*websocket.Conn)
	}
	ms.conns[matchID][seatID] = c
}

func (ms *MatchServer) unregisterConn(matchID, seatID uuid.UUID, c *websocket.Conn) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.conns[matchID][seatID] == c {
		delete(ms.conns[matchID], seatID)
		if len(ms.conns[matchID]) == 0 {
			delete(ms.conns, matchID)
		}
	}
}

func (ms *MatchServer) connFor(matchID, seatID uuid.UUID) *websocket.Conn {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.conns[matchID][seatID]
}

func (ms *MatchServer) connsFor(matchID uuid.UUID) []*websocket.Conn {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := make([]*websocket.Conn, 0, len(ms.conns[matchID]))
	for _, c := range ms.conns[matchID] {
		out = append(out, c)
	}
	return out
}

// --- engine callback wiring ---

// makeBroadcastFn returns the session's BroadcastFn. The engine calls it with
// the match lock held, so the marshal and every socket write happen on a
// separate goroutine.
func (ms *MatchServer) makeBroadcastFn(session *engine.MatchSession) func(ev engine.MatchEvent) {
	matchID := session.ID
	return func(ev engine.MatchEvent) {
		targets := ms.connsFor(matchID)
		if len(targets) == 0 {
			return
		}
		go func() {
			data, err := marshalEvent(ev)
			if err != nil {
				ms.Log.WithError(err).WithField("match", matchID).Error("failed to marshal broadcast event")
				return
			}
			for _, c := range targets {
				writeWithTimeout(c, data, ms.Log, matchID)
			}
		}()
	}
}

// makeBroadcastToSeatFn returns the session's BroadcastToSeatFn, same locking
// contract as makeBroadcastFn.
func (ms *MatchServer) makeBroadcastToSeatFn(session *engine.MatchSession) func(seatID uuid.UUID, ev engine.MatchEvent) {
	matchID := session.ID
	return func(seatID uuid.UUID, ev engine.MatchEvent) {
		c := ms.connFor(matchID, seatID)
		if c == nil {
			return
		}
		go func() {
			data, err := marshalEvent(ev)
			if err != nil {
				ms.Log.WithError(err).WithField("match", matchID).Error("failed to marshal private event")
				return
			}
			writeWithTimeout(c, data, ms.Log, matchID)
		}()
	}
}

// makeHistoryFn runs once per accepted move: push the record onto the Redis
// history queue and refresh the persisted snapshot, so a crashed server
// resumes at most one move behind. Called with the match lock held; all I/O
// runs on its own goroutine (Snapshot retakes the lock there, after the
// engine has released it).
func (ms *MatchServer) makeHistoryFn(session *engine.MatchSession) func(rec engine.ActionRecord) {
	matchID := session.ID
	return func(rec engine.ActionRecord) {
		if history.Rdb == nil && database.DB == nil {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if history.Rdb != nil {
				if err := history.PublishAction(ctx, rec); err != nil {
					ms.Log.WithError(err).WithField("match", matchID).Warn("failed to publish action record")
				}
			}
			if database.DB != nil {
				if err := database.StoreMatchSnapshot(ctx, matchID, session.Snapshot()); err != nil {
					ms.Log.WithError(err).WithField("match", matchID).Warn("failed to persist match snapshot")
				}
			}
		}()
	}
}

// makeMatchEndFn persists the final places and rewards. The engine invokes it
// on its own goroutine, outside the match lock.
func (ms *MatchServer) makeMatchEndFn(session *engine.MatchSession) func(results []engine.SeatResult) {
	matchID := session.ID
	return func(results []engine.SeatResult) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if history.Rdb != nil {
			if err := history.PublishRewards(ctx, matchID, results); err != nil {
				ms.Log.WithError(err).WithField("match", matchID).Warn("failed to publish reward report")
			}
		}
		if database.DB != nil {
			if err := database.RecordMatchAndResults(ctx, matchID, results); err != nil {
				ms.Log.WithError(err).WithField("match", matchID).Error("failed to persist match results")
			}
		}

		ms.Log.WithFields(logrus.Fields{
			"match": matchID,
			"seats": len(results),
		}).Info("match finished")

		ms.mu.Lock()
		delete(ms.replayers, matchID)
		delete(ms.passwords, matchID)
		ms.mu.Unlock()

		// The session itself lingers for the results endpoint, then goes.
		time.AfterFunc(ms.resultRetention, func() {
			ms.Store.DeleteMatch(matchID)
		})
	}
}
