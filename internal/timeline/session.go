package timeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

var (
	ErrClipNotFound   = errors.New("audio clip not found")
	ErrNoVideo        = errors.New("video duration not set")
	ErrEmptyCandidate = errors.New("audio candidate has no payload")
)

// Session is one project's editor state. It owns the clip list exclusively;
// readers outside the session get deep copies.
type Session struct {
	projectID string
	store     ClipStore

	mu            sync.Mutex
	videoDuration float64
	trim          VideoTrim
	audioTrim     VideoTrim
	clips         []AudioClip
	resolved      float64
	looping       bool

	exporting atomic.Bool
}

// Snapshot is an immutable copy of a session taken at export time.
type Snapshot struct {
	ProjectID     string
	VideoDuration float64
	Trim          VideoTrim
	AudioTrim     VideoTrim
	Clips         []AudioClip
}

// State is the session as reported to the editor UI.
type State struct {
	ProjectID         string      `json:"project_id"`
	VideoDuration     float64     `json:"video_duration"`
	EffectiveDuration float64     `json:"effective_duration"`
	Trim              VideoTrim   `json:"trim"`
	AudioTrim         VideoTrim   `json:"audio_trim"`
	Looping           bool        `json:"looping"`
	Exporting         bool        `json:"exporting"`
	Clips             []AudioClip `json:"clips"`
	Markers           []Marker    `json:"markers"`
}

func NewSession(projectID string, store ClipStore) *Session {
	return &Session{projectID: projectID, store: store}
}

// Load restores clips from the store.
func (s *Session) Load(ctx context.Context) error {
	clips, err := s.store.Load(ctx, s.projectID)
	if err != nil {
		return fmt.Errorf("load clips: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips = clips
	s.recompute()
	return nil
}

func (s *Session) ProjectID() string {
	return s.projectID
}

// SetVideoDuration records the native video length once its metadata is
// known and resets both trim windows to cover the whole timeline.
func (s *Session) SetVideoDuration(d float64) error {
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return fmt.Errorf("invalid video duration %v", d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoDuration = d
	s.resolved = Resolve(d, s.clips)
	s.trim = VideoTrim{Start: 0, End: s.resolved}
	s.audioTrim = s.trim
	return nil
}

func (s *Session) SetTrim(start, end float64) (VideoTrim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.videoDuration <= 0 {
		return VideoTrim{}, ErrNoVideo
	}
	t, err := ClampTrim(start, end, s.resolved)
	if err != nil {
		return VideoTrim{}, err
	}
	s.trim = t
	return t, nil
}

func (s *Session) SetAudioTrim(start, end float64) (VideoTrim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.videoDuration <= 0 {
		return VideoTrim{}, ErrNoVideo
	}
	t, err := ClampTrim(start, end, s.resolved)
	if err != nil {
		return VideoTrim{}, err
	}
	s.audioTrim = t
	return t, nil
}

func (s *Session) ResetTrim() VideoTrim {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trim = VideoTrim{Start: 0, End: s.resolved}
	s.audioTrim = s.trim
	return s.trim
}

func (s *Session) SetLooping(on bool) {
	s.mu.Lock()
	s.looping = on
	s.mu.Unlock()
}

func (s *Session) Looping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.looping
}

func (s *Session) EffectiveDuration() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolved
}

// InsertAudio runs the insertion rules against the native video duration.
// With autoTrim set, an over-long candidate is trimmed instead of returning
// a decision.
func (s *Session) InsertAudio(ctx context.Context, c Candidate, requestedStart float64, autoTrim bool) (*AudioClip, *NeedsUserDecision, error) {
	if len(c.Source) == 0 {
		return nil, nil, ErrEmptyCandidate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.videoDuration <= 0 {
		return nil, nil, ErrNoVideo
	}

	clip, decision := Insert(c, requestedStart, s.videoDuration)
	if decision != nil {
		if !autoTrim {
			return nil, decision, nil
		}
		trimmed := AutoTrim(c, requestedStart, s.videoDuration, s.resolved)
		clip = &trimmed
	}

	next := append(CloneClips(s.clips), clip.Clone())
	if err := s.store.Save(ctx, s.projectID, next); err != nil {
		return nil, nil, fmt.Errorf("save clips: %w", err)
	}
	s.clips = next
	s.recompute()

	out := clip.Clone()
	return &out, nil, nil
}

// MoveAudio applies a drag that began with the clip at originStart and has
// moved deltaSeconds in total since.
func (s *Session) MoveAudio(ctx context.Context, clipID string, originStart, deltaSeconds float64) (AudioClip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(clipID)
	if idx < 0 {
		return AudioClip{}, ErrClipNotFound
	}

	moved := s.clips[idx]
	origin := moved
	origin.StartTime = originStart
	moved.StartTime = Reposition(origin, deltaSeconds, s.resolved)

	next := CloneClips(s.clips)
	next[idx] = moved.Clone()
	if err := s.store.Save(ctx, s.projectID, next); err != nil {
		return AudioClip{}, fmt.Errorf("save clips: %w", err)
	}
	s.clips = next
	s.recompute()
	return moved.Clone(), nil
}

func (s *Session) RemoveAudio(ctx context.Context, clipID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(clipID)
	if idx < 0 {
		return ErrClipNotFound
	}

	next := make([]AudioClip, 0, len(s.clips)-1)
	next = append(next, s.clips[:idx]...)
	next = append(next, s.clips[idx+1:]...)
	if err := s.store.Save(ctx, s.projectID, next); err != nil {
		return fmt.Errorf("save clips: %w", err)
	}
	s.clips = next
	s.recompute()
	return nil
}

func (s *Session) ClearAudio(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(ctx, s.projectID, nil); err != nil {
		return fmt.Errorf("save clips: %w", err)
	}
	s.clips = nil
	s.recompute()
	return nil
}

func (s *Session) Clip(clipID string) (AudioClip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(clipID)
	if idx < 0 {
		return AudioClip{}, ErrClipNotFound
	}
	return s.clips[idx].Clone(), nil
}

func (s *Session) Clips() []AudioClip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CloneClips(s.clips)
}

// Snapshot copies everything an export needs. Later edits do not affect it.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ProjectID:     s.projectID,
		VideoDuration: s.videoDuration,
		Trim:          s.trim,
		AudioTrim:     s.audioTrim,
		Clips:         CloneClips(s.clips),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	clips := make([]AudioClip, len(s.clips))
	for i, c := range s.clips {
		c.Source = nil
		clips[i] = c
	}
	return State{
		ProjectID:         s.projectID,
		VideoDuration:     s.videoDuration,
		EffectiveDuration: s.resolved,
		Trim:              s.trim,
		AudioTrim:         s.audioTrim,
		Looping:           s.looping,
		Exporting:         s.exporting.Load(),
		Clips:             clips,
		Markers:           Markers(s.resolved),
	}
}

// BeginExport claims the session's single export slot.
func (s *Session) BeginExport() bool {
	return s.exporting.CompareAndSwap(false, true)
}

func (s *Session) EndExport() {
	s.exporting.Store(false)
}

func (s *Session) indexOf(clipID string) int {
	for i, c := range s.clips {
		if c.ID == clipID {
			return i
		}
	}
	return -1
}

// recompute refreshes the resolved duration. Growth extends trim ends that
// were pinned to the old maximum; shrinkage pulls them back inside.
func (s *Session) recompute() {
	next := Resolve(s.videoDuration, s.clips)
	prev := s.resolved

	s.trim.End = ExtendBound(s.trim.End, prev, next)
	s.audioTrim.End = ExtendBound(s.audioTrim.End, prev, next)

	if s.trim.End > next {
		s.trim.End = next
	}
	if s.audioTrim.End > next {
		s.audioTrim.End = next
	}
	if s.trim.Start > s.trim.End {
		s.trim.Start = 0
	}
	if s.audioTrim.Start > s.audioTrim.End {
		s.audioTrim.Start = 0
	}
	s.resolved = next
}
