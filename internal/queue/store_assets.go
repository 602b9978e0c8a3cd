package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const assetColumns = "id, source_path, base_name, kind, status, error_message, created_at, updated_at"

// NewAsset inserts a newly observed pipeline asset.
func (s *Store) NewAsset(ctx context.Context, sourcePath, baseName string, kind Kind, status Status) (*Asset, error) {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO assets (source_path, base_name, kind, status, error_message, created_at, updated_at)
         VALUES (?, ?, ?, ?, '', ?, ?)`,
		sourcePath, baseName, string(kind), string(status), timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches an asset by identifier. Missing rows return (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Asset, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

// FindBySourcePath returns the newest asset recorded for a source path.
func (s *Store) FindBySourcePath(ctx context.Context, sourcePath string) (*Asset, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+assetColumns+` FROM assets WHERE source_path = ? ORDER BY id DESC LIMIT 1`,
		sourcePath,
	)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find asset: %w", err)
	}
	return asset, nil
}

// Update persists mutable asset fields.
func (s *Store) Update(ctx context.Context, asset *Asset) error {
	if asset == nil || asset.ID == 0 {
		return errors.New("asset with ID required")
	}
	asset.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ensureContext(ctx),
		`UPDATE assets SET source_path = ?, base_name = ?, kind = ?, status = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		asset.SourcePath,
		asset.BaseName,
		string(asset.Kind),
		string(asset.Status),
		asset.ErrorMessage,
		asset.UpdatedAt.Format(time.RFC3339Nano),
		asset.ID,
	)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	return nil
}

// List returns assets ordered newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Asset, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + assetColumns + ` FROM assets`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (?` + repeatPlaceholder(len(statuses)-1) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// Health aggregates asset counts for status reporting.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM assets GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("health query: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan health row: %w", err)
		}
		summary.Total += count
		parsed, ok := ParseStatus(status)
		if !ok {
			continue
		}
		switch {
		case parsed == StatusPending:
			summary.Pending += count
		case parsed == StatusFailed:
			summary.Failed += count
		case parsed == StatusFinalized:
			summary.Finalized += count
		default:
			if _, processing := processingStatuses[parsed]; processing {
				summary.Processing += count
			}
		}
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*Asset, error) {
	var (
		asset     Asset
		kind      string
		status    string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&asset.ID, &asset.SourcePath, &asset.BaseName, &kind, &status, &asset.ErrorMessage, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	asset.Kind = Kind(kind)
	if parsed, ok := ParseStatus(status); ok {
		asset.Status = parsed
	} else {
		asset.Status = Status(status)
	}
	asset.CreatedAt = parseTimestamp(createdAt)
	asset.UpdatedAt = parseTimestamp(updatedAt)
	return &asset, nil
}

func parseTimestamp(value string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	return time.Time{}
}

func repeatPlaceholder(n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		out = append(out, ',', '?')
	}
	return string(out)
}
