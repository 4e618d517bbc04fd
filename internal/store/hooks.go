package store

import (
	"context"
	"fmt"
	"time"
)

// HookRecord is the persisted state of one hook file.
type HookRecord struct {
	Filename string
	Mtime    int64
	Digest   string
	CmdRun   bool
	Seen     bool
}

// LoadHooks returns every stored hook record keyed by filename.
func (s *Store) LoadHooks(ctx context.Context) (map[string]HookRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT filename, mtime, digest, cmd_run, seen FROM hooks")
	if err != nil {
		return nil, fmt.Errorf("load hooks: %w", err)
	}
	defer rows.Close()

	records := make(map[string]HookRecord)
	for rows.Next() {
		var rec HookRecord
		var cmdRun, seen int
		if err := rows.Scan(&rec.Filename, &rec.Mtime, &rec.Digest, &cmdRun, &seen); err != nil {
			return nil, fmt.Errorf("scan hook: %w", err)
		}
		rec.CmdRun = cmdRun != 0
		rec.Seen = seen != 0
		records[rec.Filename] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hooks: %w", err)
	}
	return records, nil
}

// SaveHook inserts or replaces the record for rec.Filename.
func (s *Store) SaveHook(ctx context.Context, rec HookRecord) error {
	if rec.Filename == "" {
		return fmt.Errorf("save hook: filename is required")
	}
	err := s.exec(ctx, `INSERT INTO hooks (filename, mtime, digest, cmd_run, seen, updated_at) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(filename) DO UPDATE SET mtime = excluded.mtime, digest = excluded.digest,
    cmd_run = excluded.cmd_run, seen = excluded.seen, updated_at = excluded.updated_at`,
		rec.Filename, rec.Mtime, rec.Digest, boolInt(rec.CmdRun), boolInt(rec.Seen),
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save hook %s: %w", rec.Filename, err)
	}
	return nil
}

// DeleteHook forgets a hook that no longer exists on disk.
func (s *Store) DeleteHook(ctx context.Context, filename string) error {
	if err := s.exec(ctx, "DELETE FROM hooks WHERE filename = ?", filename); err != nil {
		return fmt.Errorf("delete hook %s: %w", filename, err)
	}
	return nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
