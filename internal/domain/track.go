package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Track progression constants.
const (
	LevelGateThreshold = 3
	DefaultTargetLevel = 5
	DefaultTrackName   = "Focus"

	MaxLevelTitleLen       = 50
	MaxLevelDescriptionLen = 400
	MaxLevelFocusGoalLen   = 100

	DefaultLevelTitle       = "New Level"
	DefaultLevelDescription = "Journey starting..."
	DefaultLevelFocusGoal   = "Continue making progress"
)

// TrackStatus is the lifecycle state of a track.
type TrackStatus string

const (
	TrackActive    TrackStatus = "active"
	TrackCompleted TrackStatus = "completed"
	TrackArchived  TrackStatus = "archived"
)

// Valid reports whether s is a known status.
func (s TrackStatus) Valid() bool {
	return s == TrackActive || s == TrackCompleted || s == TrackArchived
}

// TrackLevel is one stage of a track.
type TrackLevel struct {
	LevelNumber int        `json:"level_number"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	FocusGoal   string     `json:"focus_goal"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Track is a multi-level goal journey.
type Track struct {
	ID           uuid.UUID    `json:"id"`
	UserID       uuid.UUID    `json:"user_id"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	Description  string       `json:"description"`
	CurrentLevel int          `json:"current_level"`
	TargetLevel  int          `json:"target_level"`
	Status       TrackStatus  `json:"status"`
	Levels       []TrackLevel `json:"levels"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// LevelDraft is the content of a new level before it is appended.
type LevelDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	FocusGoal   string `json:"focus_goal"`
}

// Empty reports whether no content was supplied.
func (d LevelDraft) Empty() bool {
	return strings.TrimSpace(d.Title) == "" &&
		strings.TrimSpace(d.Description) == "" &&
		strings.TrimSpace(d.FocusGoal) == ""
}

// Sanitize strips markdown emphasis, trims, caps lengths and fills defaults.
func (d LevelDraft) Sanitize() LevelDraft {
	clean := func(s string, max int, fallback string) string {
		s = strings.NewReplacer("`", "", "*", "").Replace(s)
		s = truncateRunes(strings.TrimSpace(s), max)
		if s == "" {
			return fallback
		}
		return s
	}
	return LevelDraft{
		Title:       clean(d.Title, MaxLevelTitleLen, DefaultLevelTitle),
		Description: clean(d.Description, MaxLevelDescriptionLen, DefaultLevelDescription),
		FocusGoal:   clean(d.FocusGoal, MaxLevelFocusGoalLen, DefaultLevelFocusGoal),
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// NewTrack builds an active track at level 1 from the given first level content.
func NewTrack(userID uuid.UUID, name, description string, targetLevel int, first LevelDraft, now time.Time) *Track {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTrackName
	}
	if targetLevel < 1 {
		targetLevel = DefaultTargetLevel
	}
	first = first.Sanitize()

	return &Track{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         name,
		Slug:         slug.Make(name),
		Description:  description,
		CurrentLevel: 1,
		TargetLevel:  targetLevel,
		Status:       TrackActive,
		Levels: []TrackLevel{{
			LevelNumber: 1,
			Title:       first.Title,
			Description: first.Description,
			FocusGoal:   first.FocusGoal,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Rename changes the display name and its slug.
func (t *Track) Rename(name string, now time.Time) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	t.Name = name
	t.Slug = slug.Make(name)
	t.UpdatedAt = now
}

// Level returns the level with the given number.
func (t *Track) Level(number int) (*TrackLevel, bool) {
	for i := range t.Levels {
		if t.Levels[i].LevelNumber == number {
			return &t.Levels[i], true
		}
	}
	return nil, false
}

// MarkLevelComplete flags a level as complete. Completion is monotonic: an
// already complete level keeps its original timestamp. It reports whether the
// level changed.
func (t *Track) MarkLevelComplete(number int, now time.Time) bool {
	lvl, ok := t.Level(number)
	if !ok || lvl.Completed {
		return false
	}
	lvl.Completed = true
	lvl.CompletedAt = &now
	t.UpdatedAt = now
	return true
}

// ApplyLevelGate marks the level complete once completedTasks reaches the gate
// threshold. Only active tracks progress.
func (t *Track) ApplyLevelGate(number, completedTasks int, now time.Time) bool {
	if t.Status != TrackActive || completedTasks < LevelGateThreshold {
		return false
	}
	return t.MarkLevelComplete(number, now)
}

// CompleteCurrentLevel marks the current level complete regardless of the
// gate. It reports whether the level changed; a level that is already
// complete keeps its timestamp.
func (t *Track) CompleteCurrentLevel(now time.Time) (bool, error) {
	if t.Status != TrackActive {
		return false, ErrConflict("track is " + string(t.Status))
	}
	if _, ok := t.Level(t.CurrentLevel); !ok {
		return false, ErrConflict("track has no current level")
	}
	return t.MarkLevelComplete(t.CurrentLevel, now), nil
}

// AdvanceLevel appends the next level and moves currentLevel onto it. The
// current level must already be complete, or reach the gate with
// completedTasks.
func (t *Track) AdvanceLevel(draft LevelDraft, completedTasks int, now time.Time) error {
	if t.Status != TrackActive {
		return ErrConflict("track is " + string(t.Status))
	}
	current, ok := t.Level(t.CurrentLevel)
	if !ok {
		return ErrConflict("track has no current level")
	}
	if !current.Completed {
		if completedTasks < LevelGateThreshold {
			return ErrLevelGateNotMet(t.CurrentLevel, completedTasks, LevelGateThreshold)
		}
		t.MarkLevelComplete(t.CurrentLevel, now)
	}

	draft = draft.Sanitize()
	next := t.CurrentLevel + 1
	t.Levels = append(t.Levels, TrackLevel{
		LevelNumber: next,
		Title:       draft.Title,
		Description: draft.Description,
		FocusGoal:   draft.FocusGoal,
	})
	t.CurrentLevel = next
	t.UpdatedAt = now
	return nil
}

// Completable reports whether the track reached its target level.
func (t *Track) Completable() bool {
	return t.CurrentLevel >= t.TargetLevel
}

// Complete is the terminal transition of a track.
func (t *Track) Complete(now time.Time) error {
	switch t.Status {
	case TrackCompleted:
		return ErrAlreadyCompleted("track")
	case TrackArchived:
		return ErrConflict("track is archived")
	}
	if !t.Completable() {
		return ErrConflict("track not completable before its target level")
	}
	t.Status = TrackCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

// SetStatus switches between active and archived. Completion goes through Complete.
func (t *Track) SetStatus(status TrackStatus, now time.Time) error {
	if t.Status == TrackCompleted {
		return ErrAlreadyCompleted("track")
	}
	if status != TrackActive && status != TrackArchived {
		return ErrValidation("status must be active or archived")
	}
	t.Status = status
	t.UpdatedAt = now
	return nil
}

// SetTargetLevel changes the completion target.
func (t *Track) SetTargetLevel(target int, now time.Time) error {
	if target < 1 {
		return ErrValidation("target level must be at least 1")
	}
	t.TargetLevel = target
	t.UpdatedAt = now
	return nil
}

// LevelGateStatus describes a level's progress towards the gate.
type LevelGateStatus struct {
	TrackID        uuid.UUID `json:"track_id"`
	LevelNumber    int       `json:"level_number"`
	CompletedTasks int       `json:"completed_tasks"`
	Required       int       `json:"required"`
	Passed         bool      `json:"passed"`
	LevelCompleted bool      `json:"level_completed"`
}
