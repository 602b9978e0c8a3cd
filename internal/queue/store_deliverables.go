package queue

import (
	"context"
	"fmt"
	"time"
)

// RecordDeliverable appends one assembled output to the deliverable history.
func (s *Store) RecordDeliverable(ctx context.Context, d *Deliverable) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	result, err := s.execWithRetry(
		ctx,
		`INSERT INTO deliverables (output_path, audio_path, clip_count, sync_mode, created_at) VALUES (?, ?, ?, ?, ?)`,
		d.OutputPath,
		d.AudioPath,
		d.ClipCount,
		d.SyncMode,
		d.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record deliverable: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("deliverable id: %w", err)
	}
	d.ID = id
	return nil
}

// ListDeliverables returns the recorded outputs newest first.
func (s *Store) ListDeliverables(ctx context.Context) ([]*Deliverable, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, output_path, audio_path, clip_count, sync_mode, created_at FROM deliverables ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list deliverables: %w", err)
	}
	defer rows.Close()

	var out []*Deliverable
	for rows.Next() {
		var d Deliverable
		var created string
		if err := rows.Scan(&d.ID, &d.OutputPath, &d.AudioPath, &d.ClipCount, &d.SyncMode, &created); err != nil {
			return nil, fmt.Errorf("scan deliverable: %w", err)
		}
		d.CreatedAt = parseTimestamp(created)
		out = append(out, &d)
	}
	return out, rows.Err()
}
