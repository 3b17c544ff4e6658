package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/cardlink/internal/models"
	"github.com/jason-s-yu/cardlink/internal/rating"
)

// RecordMatches stores a batch of finished-match events in one transaction
// and rates every decided match. Events already stored are skipped.
func (s *Store) RecordMatches(ctx context.Context, events []models.MatchEvent) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, ev := range events {
			if err := recordMatchTx(ctx, tx, ev); err != nil {
				return fmt.Errorf("record game %d: %w", ev.GameID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Debugf("recorded %d matches", len(events))
	return nil
}

func recordMatchTx(ctx context.Context, tx pgx.Tx, ev models.MatchEvent) error {
	q := `
		INSERT INTO matches (event_id, game_id, player1, player2, play_state1, play_state2, reason, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING
	`
	tag, err := tx.Exec(ctx, q, ev.ID, ev.GameID, ev.Accounts[0], ev.Accounts[1],
		ev.PlayStates[0], ev.PlayStates[1], ev.Reason, time.UnixMilli(ev.Timestamp))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	score, ok := rating.Score(ev.PlayStates[0])
	if !ok {
		return nil
	}
	ratings := [2]rating.Rating{}
	for i, name := range ev.Accounts {
		r := rating.Default()
		err := tx.QueryRow(ctx, `SELECT rating, deviation, volatility FROM accounts WHERE name=$1 FOR UPDATE`, name).
			Scan(&r.Value, &r.Deviation, &r.Volatility)
		if errors.Is(err, pgx.ErrNoRows) {
			// unverified accounts are not rated
			return nil
		}
		if err != nil {
			return err
		}
		ratings[i] = r
	}

	ratings[0], ratings[1] = rating.Update1v1(ratings[0], ratings[1], score)
	for i, name := range ev.Accounts {
		_, err := tx.Exec(ctx, `UPDATE accounts SET rating=$2, deviation=$3, volatility=$4 WHERE name=$1`,
			name, ratings[i].Value, ratings[i].Deviation, ratings[i].Volatility)
		if err != nil {
			return err
		}
	}
	return nil
}
