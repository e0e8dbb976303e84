package domain

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// ChallengeDifficulty determines the base XP of a challenge.
type ChallengeDifficulty string

const (
	DifficultyEasy   ChallengeDifficulty = "easy"
	DifficultyMedium ChallengeDifficulty = "medium"
	DifficultyHard   ChallengeDifficulty = "hard"
)

// Valid reports whether d is a known difficulty.
func (d ChallengeDifficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ChallengeStatus is the lifecycle state of a challenge.
type ChallengeStatus string

const (
	ChallengePending   ChallengeStatus = "pending"
	ChallengeAccepted  ChallengeStatus = "accepted"
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeSkipped   ChallengeStatus = "skipped"
	ChallengeExpired   ChallengeStatus = "expired"
)

// Valid reports whether s is a known status.
func (s ChallengeStatus) Valid() bool {
	switch s {
	case ChallengePending, ChallengeAccepted, ChallengeActive,
		ChallengeCompleted, ChallengeSkipped, ChallengeExpired:
		return true
	}
	return false
}

// Running reports whether the challenge is underway (accepted or active).
func (s ChallengeStatus) Running() bool {
	return s == ChallengeAccepted || s == ChallengeActive
}

// Terminal reports whether no further transition is possible.
func (s ChallengeStatus) Terminal() bool {
	return s == ChallengeCompleted || s == ChallengeSkipped || s == ChallengeExpired
}

// OpenChallengeStatuses are the statuses returned by the "active challenge" lookup.
func OpenChallengeStatuses() []ChallengeStatus {
	return []ChallengeStatus{ChallengeActive, ChallengeAccepted, ChallengePending}
}

// ChallengeCategory is a display grouping.
type ChallengeCategory string

const (
	CategoryProductivity ChallengeCategory = "productivity"
	CategoryWellness     ChallengeCategory = "wellness"
	CategoryLearning     ChallengeCategory = "learning"
	CategorySocial       ChallengeCategory = "social"
	CategoryCreativity   ChallengeCategory = "creativity"
	CategoryFitness      ChallengeCategory = "fitness"
)

// CategoryInfo holds the display attributes of a category.
type CategoryInfo struct {
	Icon  string `json:"icon"`
	Color string `json:"color"`
	Label string `json:"label"`
}

var challengeCategories = map[ChallengeCategory]CategoryInfo{
	CategoryProductivity: {Icon: "📊", Color: "#3b82f6", Label: "Productivity"},
	CategoryWellness:     {Icon: "🧘", Color: "#10b981", Label: "Wellness"},
	CategoryLearning:     {Icon: "📚", Color: "#8b5cf6", Label: "Learning"},
	CategorySocial:       {Icon: "👥", Color: "#f59e0b", Label: "Social"},
	CategoryCreativity:   {Icon: "🎨", Color: "#ec4899", Label: "Creativity"},
	CategoryFitness:      {Icon: "💪", Color: "#ef4444", Label: "Fitness"},
}

// Valid reports whether c is a known category.
func (c ChallengeCategory) Valid() bool {
	_, ok := challengeCategories[c]
	return ok
}

var timedDurations = map[string]int{
	"quick":    15,
	"standard": 30,
	"extended": 60,
	"marathon": 120,
}

var challengeXP = map[ChallengeDifficulty]int{
	DifficultyEasy:   XPFor(RewardChallengeEasy),
	DifficultyMedium: XPFor(RewardChallengeMedium),
	DifficultyHard:   XPFor(RewardChallengeHard),
}

var celebrationMessages = map[ChallengeDifficulty][]string{
	DifficultyEasy:   {"Nice work! 🎉", "Good job! ✨", "Well done! 👏"},
	DifficultyMedium: {"Impressive! 🌟", "You're on fire! 🔥", "Fantastic effort! 💪"},
	DifficultyHard:   {"AMAZING! 🏆", "You're a champion! 👑", "Legendary performance! ⚡"},
}

// TimedBonusNumerator and TimedBonusDenominator express the x1.5 timed bonus.
const (
	TimedBonusNumerator   = 3
	TimedBonusDenominator = 2
)

// ChallengeMeta is the static catalog served to clients.
type ChallengeMeta struct {
	Categories     map[ChallengeCategory]CategoryInfo `json:"categories"`
	XPRewards      map[ChallengeDifficulty]int        `json:"xp_rewards"`
	TimedDurations map[string]int                     `json:"timed_durations"`
}

// ChallengeCatalog returns copies of the category, XP and duration tables.
func ChallengeCatalog() ChallengeMeta {
	meta := ChallengeMeta{
		Categories:     make(map[ChallengeCategory]CategoryInfo, len(challengeCategories)),
		XPRewards:      make(map[ChallengeDifficulty]int, len(challengeXP)),
		TimedDurations: make(map[string]int, len(timedDurations)),
	}
	for k, v := range challengeCategories {
		meta.Categories[k] = v
	}
	for k, v := range challengeXP {
		meta.XPRewards[k] = v
	}
	for k, v := range timedDurations {
		meta.TimedDurations[k] = v
	}
	return meta
}

// ChallengeBaseXP returns the untimed XP for a difficulty; unknown values earn 50.
func ChallengeBaseXP(d ChallengeDifficulty) int {
	if xp, ok := challengeXP[d]; ok {
		return xp
	}
	return XPFor(RewardChallengeMedium)
}

// CelebrationMessage picks one of the messages for the difficulty.
func CelebrationMessage(d ChallengeDifficulty) string {
	msgs, ok := celebrationMessages[d]
	if !ok {
		msgs = celebrationMessages[DifficultyMedium]
	}
	return msgs[rand.IntN(len(msgs))]
}

// CelebrationMessages returns the candidate messages for a difficulty.
func CelebrationMessages(d ChallengeDifficulty) []string {
	msgs, ok := celebrationMessages[d]
	if !ok {
		msgs = celebrationMessages[DifficultyMedium]
	}
	return append([]string(nil), msgs...)
}

// Challenge is a discrete, optionally time-boxed mission.
type Challenge struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"user_id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Difficulty      ChallengeDifficulty `json:"difficulty"`
	Category        ChallengeCategory   `json:"category"`
	Status          ChallengeStatus     `json:"status"`
	WeekOf          time.Time           `json:"week_of"`
	IsTimed         bool                `json:"is_timed"`
	DurationMinutes *int                `json:"duration_minutes,omitempty"`
	StartedAt       *time.Time          `json:"started_at,omitempty"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	XPAwarded       int                 `json:"xp_awarded"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// Deadline returns startedAt + duration for started timed challenges.
func (c *Challenge) Deadline() (time.Time, bool) {
	if !c.IsTimed || c.StartedAt == nil || c.DurationMinutes == nil || *c.DurationMinutes <= 0 {
		return time.Time{}, false
	}
	return c.StartedAt.Add(time.Duration(*c.DurationMinutes) * time.Minute), true
}

// IsExpired reports whether a started timed challenge is past its deadline.
func (c *Challenge) IsExpired(now time.Time) bool {
	deadline, ok := c.Deadline()
	return ok && now.After(deadline)
}

// RemainingSeconds returns the whole seconds left, clamped at 0, or nil when
// the challenge is not a started timed challenge.
func (c *Challenge) RemainingSeconds(now time.Time) *int {
	deadline, ok := c.Deadline()
	if !ok {
		return nil
	}
	remaining := int(deadline.Sub(now) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// CalculateXP returns the completion XP, applying the floored x1.5 timed bonus.
func (c *Challenge) CalculateXP() int {
	xp := ChallengeBaseXP(c.Difficulty)
	if c.IsTimed {
		xp = xp * TimedBonusNumerator / TimedBonusDenominator
	}
	return xp
}

// Start begins a timed challenge.
func (c *Challenge) Start(now time.Time) error {
	if !c.IsTimed {
		return ErrConflict("not a timed challenge")
	}
	if c.StartedAt != nil {
		return ErrConflict("challenge already started")
	}
	if c.Status.Terminal() {
		return ErrConflict("challenge is " + string(c.Status))
	}
	c.StartedAt = &now
	c.Status = ChallengeAccepted
	c.UpdatedAt = now
	return nil
}

// Complete finishes the challenge and sets XPAwarded. A timed challenge past
// its deadline moves to expired instead and ErrChallengeExpired is returned;
// the caller must still persist the challenge.
func (c *Challenge) Complete(now time.Time) error {
	switch c.Status {
	case ChallengeCompleted:
		return ErrAlreadyCompleted("challenge")
	case ChallengeSkipped, ChallengeExpired:
		return ErrConflict("challenge is " + string(c.Status))
	}

	if c.IsTimed && c.IsExpired(now) {
		c.Status = ChallengeExpired
		c.UpdatedAt = now
		return ErrChallengeExpired()
	}

	c.Status = ChallengeCompleted
	c.CompletedAt = &now
	c.XPAwarded = c.CalculateXP()
	c.UpdatedAt = now
	return nil
}

// Skip abandons the challenge without XP.
func (c *Challenge) Skip(now time.Time) error {
	if c.Status == ChallengeCompleted {
		return ErrAlreadyCompleted("challenge")
	}
	c.Status = ChallengeSkipped
	c.UpdatedAt = now
	return nil
}

// ExpireIfDue moves a running timed challenge past its deadline to expired.
func (c *Challenge) ExpireIfDue(now time.Time) bool {
	if !c.Status.Running() || !c.IsExpired(now) {
		return false
	}
	c.Status = ChallengeExpired
	c.UpdatedAt = now
	return true
}

// PrepareNew fills creation defaults: pending status, medium difficulty,
// productivity category, weekOf=now, and startedAt=now for timed challenges
// created directly as active.
func (c *Challenge) PrepareNew(now time.Time) {
	if c.Status == "" {
		c.Status = ChallengePending
	}
	if c.Difficulty == "" {
		c.Difficulty = DifficultyMedium
	}
	if c.Category == "" {
		c.Category = CategoryProductivity
	}
	if c.WeekOf.IsZero() {
		c.WeekOf = now
	}
	if c.IsTimed && c.Status == ChallengeActive && c.StartedAt == nil {
		c.StartedAt = &now
	}
	c.XPAwarded = 0
	c.CompletedAt = nil
	c.CreatedAt = now
	c.UpdatedAt = now
}

// ChallengeCompletion is the result of completing a challenge.
type ChallengeCompletion struct {
	Challenge    *Challenge         `json:"challenge"`
	Gamification *GamificationDelta `json:"gamification"`
	Celebration  Celebration        `json:"celebration"`
}

// Celebration is the client-facing completion flourish.
type Celebration struct {
	Type      ChallengeDifficulty `json:"type"`
	XPAwarded int                 `json:"xp_awarded"`
	Message   string              `json:"message"`
}

// ChallengeStart is the result of starting a timed challenge.
type ChallengeStart struct {
	Challenge     *Challenge `json:"challenge"`
	RemainingTime *int       `json:"remaining_time"`
}
