package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/angle-app/angle/internal/timeline"
)

// ClipStore keeps a project's audio clips as BLOB rows. Save replaces the
// whole list in one transaction and fails with ErrNotFound for an unknown
// project.
type ClipStore struct {
	db *sql.DB
}

func NewClipStore(db *sql.DB) *ClipStore {
	return &ClipStore{db: db}
}

func (s *ClipStore) Save(ctx context.Context, projectID string, clips []timeline.AudioClip) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM projects WHERE id = ?", projectID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lookup project: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM audio_clips WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("clear clips: %w", err)
	}

	for i, c := range clips {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO audio_clips (id, project_id, position, name, start_time, duration, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.ID, projectID, i, c.Name, c.StartTime, c.Duration, c.Source)
		if err != nil {
			return fmt.Errorf("insert clip %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

func (s *ClipStore) Load(ctx context.Context, projectID string) ([]timeline.AudioClip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_time, duration, payload
		FROM audio_clips WHERE project_id = ? ORDER BY position
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clips []timeline.AudioClip
	for rows.Next() {
		var c timeline.AudioClip
		if err := rows.Scan(&c.ID, &c.Name, &c.StartTime, &c.Duration, &c.Source); err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}
	return clips, rows.Err()
}
