package store

import (
	"context"
	"database/sql"
	"time"
)

// Repository is the SQL surface. Getters return nil, nil when the row does
// not exist.
type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	DeleteProject(ctx context.Context, id string) error
	UpdateProjectVideo(ctx context.Context, id, videoPath string) error
	CountProjects(ctx context.Context) (int, error)

	AddPrompt(ctx context.Context, p *Prompt) error
	ListPrompts(ctx context.Context, projectID string) ([]*Prompt, error)

	CreateExport(ctx context.Context, e *ExportRecord) error
	GetExport(ctx context.Context, id string) (*ExportRecord, error)
	// ListExports returns the newest exports first. An empty projectID
	// lists across all projects, stateless exports included.
	ListExports(ctx context.Context, projectID string, limit int) ([]*ExportRecord, error)
	FinishExport(ctx context.Context, e *ExportRecord) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, video_path, created_at)
		VALUES (?, ?, ?, ?)
	`, p.ID, p.Name, nullString(p.VideoPath), p.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, video_path, created_at FROM projects WHERE id = ?
	`, id)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, video_path, created_at FROM projects ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) UpdateProjectVideo(ctx context.Context, id, videoPath string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE projects SET video_path = ? WHERE id = ?", nullString(videoPath), id)
	return err
}

func (r *SQLiteRepository) CountProjects(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects").Scan(&count)
	return count, err
}

func (r *SQLiteRepository) AddPrompt(ctx context.Context, p *Prompt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prompts (id, project_id, timestamp, usr_msg, llm_res)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.ProjectID, p.Timestamp, p.UsrMsg, p.LlmRes)
	return err
}

func (r *SQLiteRepository) ListPrompts(ctx context.Context, projectID string) ([]*Prompt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, timestamp, usr_msg, llm_res
		FROM prompts WHERE project_id = ? ORDER BY timestamp ASC, id
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prompts []*Prompt
	for rows.Next() {
		var p Prompt
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Timestamp, &p.UsrMsg, &p.LlmRes); err != nil {
			return nil, err
		}
		prompts = append(prompts, &p)
	}
	return prompts, rows.Err()
}

func (r *SQLiteRepository) CreateExport(ctx context.Context, e *ExportRecord) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exports (id, project_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, nullString(e.ProjectID), e.Status, now, now)
	return err
}

func (r *SQLiteRepository) GetExport(ctx context.Context, id string) (*ExportRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, status, filename, bytes, clips_mixed, error, created_at, updated_at
		FROM exports WHERE id = ?
	`, id)

	e, err := scanExport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (r *SQLiteRepository) ListExports(ctx context.Context, projectID string, limit int) ([]*ExportRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, project_id, status, filename, bytes, clips_mixed, error, created_at, updated_at
		FROM exports WHERE project_id = ? ORDER BY created_at DESC LIMIT ?
	`
	args := []any{projectID, limit}
	if projectID == "" {
		query = `
		SELECT id, project_id, status, filename, bytes, clips_mixed, error, created_at, updated_at
		FROM exports ORDER BY created_at DESC LIMIT ?
	`
		args = args[1:]
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*ExportRecord
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, e)
	}
	return records, rows.Err()
}

func (r *SQLiteRepository) FinishExport(ctx context.Context, e *ExportRecord) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE exports SET status = ?, filename = ?, bytes = ?, clips_mixed = ?, error = ?, updated_at = datetime('now')
		WHERE id = ?
	`, e.Status, nullString(e.Filename), e.Bytes, e.ClipsMixed, nullString(e.Error), e.ID)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*Project, error) {
	var p Project
	var videoPath sql.NullString
	var createdAt string

	if err := s.Scan(&p.ID, &p.Name, &videoPath, &createdAt); err != nil {
		return nil, err
	}
	p.VideoPath = videoPath.String
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func scanExport(s scanner) (*ExportRecord, error) {
	var e ExportRecord
	var projectID, filename, errMsg sql.NullString
	var createdAt, updatedAt string

	if err := s.Scan(&e.ID, &projectID, &e.Status, &filename, &e.Bytes, &e.ClipsMixed, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.ProjectID = projectID.String
	e.Filename = filename.String
	e.Error = errMsg.String
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

// parseTime accepts RFC 3339 and SQLite's datetime('now') format.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02 15:04:05", s)
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
