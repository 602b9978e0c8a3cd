package queue

import (
	"context"
	"fmt"
)

// SaveBeatTimes replaces the persisted beat grid for an asset key. The rows
// form an ordered table (beat_index, beat_time_seconds); reanalysis simply
// overwrites the prior grid.
func (s *Store) SaveBeatTimes(ctx context.Context, assetKey string, beatTimes []float64) error {
	ctx = ensureContext(ctx)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin beat tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM beat_times WHERE asset_key = ?`, assetKey); err != nil {
		return fmt.Errorf("clear beat times: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO beat_times (asset_key, beat_index, beat_time_seconds) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare beat insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range beatTimes {
		if _, err := stmt.ExecContext(ctx, assetKey, i, t); err != nil {
			return fmt.Errorf("insert beat %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit beat times: %w", err)
	}
	return nil
}

// LoadBeatTimes returns the persisted beat times for an asset key in beat
// order. A missing key returns (nil, nil).
func (s *Store) LoadBeatTimes(ctx context.Context, assetKey string) ([]float64, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT beat_time_seconds FROM beat_times WHERE asset_key = ? ORDER BY beat_index`,
		assetKey,
	)
	if err != nil {
		return nil, fmt.Errorf("load beat times: %w", err)
	}
	defer rows.Close()

	var times []float64
	for rows.Next() {
		var t float64
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan beat time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}
