// internal/database/match.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pidr-game/pidr-engine/internal/engine"
)

// RecordMatchAndResults persists the final outcome of a match: one upsert for
// the match row, one row per seat with its place and reward, and one rating
// delta per seat applied to its profile.
func RecordMatchAndResults(ctx context.Context, matchID uuid.UUID, results []engine.SeatResult) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertMatch := `
			INSERT INTO matches (id, status, end_time)
			VALUES ($1, 'completed', NOW())
			ON CONFLICT (id) DO UPDATE SET status = 'completed', end_time = NOW()
		`
		if _, e := tx.Exec(ctx, upsertMatch, matchID); e != nil {
			return e
		}

		for _, r := range results {
			q := `
				INSERT INTO match_results (match_id, seat_id, place, coins, rating_delta)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (match_id, seat_id)
				DO UPDATE SET place=$3, coins=$4, rating_delta=$5
			`
			if _, e := tx.Exec(ctx, q, matchID, r.SeatID, r.Place, r.Reward.Coins, r.Reward.RatingDelta); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx upsert match or results: %w", err)
	}

	// Apply coin and rating deltas to player profiles in a second transaction;
	// the result rows above are the source of truth if this one is retried.
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, r := range results {
			q := `
				UPDATE players
				SET coins = coins + $1, rating = GREATEST(0, rating + $2)
				WHERE id = $3
			`
			if _, e := tx.Exec(ctx, q, r.Reward.Coins, r.Reward.RatingDelta, r.SeatID); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx apply rewards: %w", err)
	}
	return nil
}

// StoreMatchSnapshot updates the matches.snapshot column so a crashed server
// can restore in-flight matches on restart.
func StoreMatchSnapshot(ctx context.Context, matchID uuid.UUID, snap engine.Snapshot) error {
	jsonData, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal match snapshot: %w", err)
	}
	q := `
		INSERT INTO matches (id, status, snapshot)
		VALUES ($1, 'in_progress', $2)
		ON CONFLICT (id)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, status = 'in_progress'
	`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, matchID, jsonData)
		return e
	})
	if err != nil {
		return fmt.Errorf("storing match snapshot: %w", err)
	}
	return nil
}

// LoadOpenMatchSnapshots fetches every in-progress snapshot, for restoring
// matches after a server restart.
func LoadOpenMatchSnapshots(ctx context.Context) ([]engine.Snapshot, error) {
	q := `SELECT snapshot FROM matches WHERE status = 'in_progress' AND snapshot IS NOT NULL`
	rows, err := DB.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing open match snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []engine.Snapshot
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning match snapshot: %w", err)
		}
		var snap engine.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decoding match snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// LoadMatchSnapshot fetches the stored snapshot for one in-progress match.
func LoadMatchSnapshot(ctx context.Context, matchID uuid.UUID) (*engine.Snapshot, error) {
	var data []byte
	q := `SELECT snapshot FROM matches WHERE id = $1 AND status = 'in_progress'`
	if err := DB.QueryRow(ctx, q, matchID).Scan(&data); err != nil {
		return nil, fmt.Errorf("loading match snapshot: %w", err)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding match snapshot: %w", err)
	}
	return &snap, nil
}
