package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Service applies validation and logging on top of the repository.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) CreateProject(ctx context.Context, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}

	p := &Project{ID: NewID(), Name: name, CreatedAt: time.Now()}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("project created", "project_id", p.ID)
	}
	return p, nil
}

func (s *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.repo.ListProjects(ctx)
}

func (s *Service) CountProjects(ctx context.Context) (int, error) {
	return s.repo.CountProjects(ctx)
}

// DeleteProject removes the project with its prompts, clips and exports.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("project deleted", "project_id", id)
	}
	return nil
}

func (s *Service) SetProjectVideo(ctx context.Context, id, videoPath string) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}
	return s.repo.UpdateProjectVideo(ctx, id, strings.TrimSpace(videoPath))
}

func (s *Service) AddPrompt(ctx context.Context, projectID, usrMsg, llmRes string) (*Prompt, error) {
	if strings.TrimSpace(usrMsg) == "" {
		return nil, fmt.Errorf("%w: usr_msg is required", ErrInvalidInput)
	}
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	p := &Prompt{
		ID:        NewID(),
		ProjectID: projectID,
		Timestamp: time.Now().UnixMilli(),
		UsrMsg:    usrMsg,
		LlmRes:    llmRes,
	}
	if err := s.repo.AddPrompt(ctx, p); err != nil {
		return nil, fmt.Errorf("add prompt: %w", err)
	}
	return p, nil
}

func (s *Service) ListPrompts(ctx context.Context, projectID string) ([]*Prompt, error) {
	return s.repo.ListPrompts(ctx, projectID)
}

// StartExport records a running export. projectID may be empty for
// stateless exports.
func (s *Service) StartExport(ctx context.Context, projectID string) (*ExportRecord, error) {
	rec := &ExportRecord{ID: NewID(), ProjectID: projectID, Status: ExportStatusRunning}
	if err := s.repo.CreateExport(ctx, rec); err != nil {
		return nil, fmt.Errorf("record export: %w", err)
	}
	return rec, nil
}

// FinishExport marks rec completed, or failed when exportErr is non-nil.
func (s *Service) FinishExport(ctx context.Context, rec *ExportRecord, filename string, size, clipsMixed int, exportErr error) error {
	rec.Filename = filename
	rec.Bytes = size
	rec.ClipsMixed = clipsMixed
	rec.Status = ExportStatusCompleted
	rec.Error = ""
	if exportErr != nil {
		rec.Status = ExportStatusFailed
		rec.Error = exportErr.Error()
	}
	if err := s.repo.FinishExport(ctx, rec); err != nil {
		return fmt.Errorf("finish export: %w", err)
	}
	return nil
}

func (s *Service) ListExports(ctx context.Context, projectID string, limit int) ([]*ExportRecord, error) {
	return s.repo.ListExports(ctx, projectID, limit)
}
