package domain

import (
	"time"

	"github.com/google/uuid"
)

// GamificationProfile is the per-user aggregate holding XP, level, streak,
// counters and earned badges. Level is always derived from XP.
type GamificationProfile struct {
	UserID                   uuid.UUID     `json:"user_id"`
	XP                       int           `json:"xp"`
	Level                    int           `json:"level"`
	WeeklyXP                 int           `json:"weekly_xp"`
	WeeklyTasksCompleted     int           `json:"weekly_tasks_completed"`
	TotalTasksCompleted      int           `json:"total_tasks_completed"`
	TotalChallengesCompleted int           `json:"total_challenges_completed"`
	CurrentStreak            int           `json:"current_streak"`
	LongestStreak            int           `json:"longest_streak"`
	LastActiveDate           *time.Time    `json:"last_active_date"`
	Badges                   []EarnedBadge `json:"badges"`
	WeekStartDate            time.Time     `json:"week_start_date"`
	DailyRewardClaimed       bool          `json:"daily_reward_claimed"`
	WeeklyRewardClaimed      bool          `json:"weekly_reward_claimed"`
	CreatedAt                time.Time     `json:"created_at"`
	UpdatedAt                time.Time     `json:"updated_at"`
}

// NewGamificationProfile returns the zero-state profile of a user.
func NewGamificationProfile(userID uuid.UUID, now time.Time) *GamificationProfile {
	return &GamificationProfile{
		UserID:        userID,
		Level:         1,
		Badges:        []EarnedBadge{},
		WeekStartDate: StartOfWeek(now),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// XPResult reports the effect of AddXP.
type XPResult struct {
	XPGained       int  `json:"xp_gained"`
	TotalXP        int  `json:"total_xp"`
	LeveledUp      bool `json:"leveled_up"`
	LevelsGained   int  `json:"levels_gained"`
	NewLevel       int  `json:"new_level"`
	CurrentLevelXP int  `json:"current_level_xp"`
	XPForNextLevel int  `json:"xp_for_next_level"`
}

// StreakResult reports the effect of UpdateStreak.
type StreakResult struct {
	StreakUpdated bool `json:"streak_updated"`
	NewStreak     int  `json:"new_streak"`
	StreakBroken  bool `json:"streak_broken"`
}

// Continued reports whether the streak grew from a previous day. A first
// activity or a restart after a gap does not count.
func (r StreakResult) Continued() bool {
	return r.StreakUpdated && !r.StreakBroken && r.NewStreak > 1
}

// LevelInfo returns the level breakdown of the current XP total.
func (p *GamificationProfile) LevelInfo() LevelInfo {
	return CalculateLevel(p.XP)
}

// AddXP adds amount to lifetime and weekly XP and recomputes the level.
// Negative amounts are ignored.
func (p *GamificationProfile) AddXP(amount int) XPResult {
	if amount < 0 {
		amount = 0
	}
	oldLevel := CalculateLevel(p.XP).Level

	p.XP += amount
	p.WeeklyXP += amount

	info := CalculateLevel(p.XP)
	p.Level = info.Level

	return XPResult{
		XPGained:       amount,
		TotalXP:        p.XP,
		LeveledUp:      info.Level > oldLevel,
		LevelsGained:   info.Level - oldLevel,
		NewLevel:       info.Level,
		CurrentLevelXP: info.CurrentLevelXP,
		XPForNextLevel: info.XPForNextLevel,
	}
}

// UpdateStreak records activity on now's calendar day in loc. The streak moves
// at most once per day; a gap of more than one day restarts it at 1.
func (p *GamificationProfile) UpdateStreak(now time.Time, loc *time.Location) StreakResult {
	today := CalendarDay(now, loc)

	if p.LastActiveDate == nil {
		p.CurrentStreak = 1
		p.LastActiveDate = &today
		p.raiseLongestStreak()
		return StreakResult{StreakUpdated: true, NewStreak: 1}
	}

	last := CalendarDay(*p.LastActiveDate, time.UTC)
	diff := DaysBetween(last, today)

	switch {
	case diff <= 0:
		return StreakResult{StreakUpdated: false, NewStreak: p.CurrentStreak}
	case diff == 1:
		p.CurrentStreak++
		p.LastActiveDate = &today
		p.raiseLongestStreak()
		return StreakResult{StreakUpdated: true, NewStreak: p.CurrentStreak}
	default:
		p.CurrentStreak = 1
		p.LastActiveDate = &today
		p.raiseLongestStreak()
		return StreakResult{StreakUpdated: true, NewStreak: 1, StreakBroken: true}
	}
}

func (p *GamificationProfile) raiseLongestStreak() {
	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
}

// HasBadge reports whether the badge id was already earned.
func (p *GamificationProfile) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

func (p *GamificationProfile) award(b Badge, now time.Time) bool {
	if p.HasBadge(b.ID) {
		return false
	}
	p.Badges = append(p.Badges, EarnedBadge{Badge: b, EarnedAt: now})
	return true
}

// CheckAndAwardBadges evaluates the counter thresholds and appends every badge
// not yet held. It returns only the badges earned by this call.
func (p *GamificationProfile) CheckAndAwardBadges(now time.Time) []Badge {
	newBadges := []Badge{}
	for _, rule := range counterBadgeRules {
		if rule.earned(p) && p.award(rule.badge, now) {
			newBadges = append(newBadges, rule.badge)
		}
	}
	return newBadges
}

// AwardTimeOfDayBadges awards early_bird before 08:00 and night_owl from 22:00,
// local to loc.
func (p *GamificationProfile) AwardTimeOfDayBadges(now time.Time, loc *time.Location) []Badge {
	if loc == nil {
		loc = time.UTC
	}
	hour := now.In(loc).Hour()

	newBadges := []Badge{}
	if hour < EarlyBirdBeforeHour && p.award(earlyBirdBadge, now) {
		newBadges = append(newBadges, earlyBirdBadge)
	}
	if hour >= NightOwlFromHour && p.award(nightOwlBadge, now) {
		newBadges = append(newBadges, nightOwlBadge)
	}
	return newBadges
}

// ResetWeek clears the weekly counters and starts a new week at now.
func (p *GamificationProfile) ResetWeek(now time.Time) {
	p.WeeklyXP = 0
	p.WeeklyTasksCompleted = 0
	p.WeeklyRewardClaimed = false
	p.WeekStartDate = StartOfWeek(now)
}

// GamificationDelta is the per-command gamification summary returned to clients.
type GamificationDelta struct {
	XPResult
	Streak    *StreakResult `json:"streak,omitempty"`
	NewBadges []Badge       `json:"new_badges"`

	TotalTasksCompleted      int `json:"total_tasks_completed"`
	TotalChallengesCompleted int `json:"total_challenges_completed"`
}

// ApplyTaskCompletion runs the task-completion rules in order: streak, XP
// (with the non-broken streak bonus), counters, counter badges and
// time-of-day badges.
func (p *GamificationProfile) ApplyTaskCompletion(priority TaskPriority, now time.Time, loc *time.Location) *GamificationDelta {
	amount := TaskXP(priority)

	streak := p.UpdateStreak(now, loc)
	if streak.Continued() {
		amount += XPFor(RewardDailyStreakBonus)
	}

	xp := p.AddXP(amount)
	p.TotalTasksCompleted++
	p.WeeklyTasksCompleted++

	badges := p.CheckAndAwardBadges(now)
	badges = append(badges, p.AwardTimeOfDayBadges(now, loc)...)
	p.UpdatedAt = now

	return &GamificationDelta{
		XPResult:                 xp,
		Streak:                   &streak,
		NewBadges:                badges,
		TotalTasksCompleted:      p.TotalTasksCompleted,
		TotalChallengesCompleted: p.TotalChallengesCompleted,
	}
}

// ApplyChallengeCompletion adds the challenge XP, bumps the challenge counter
// and evaluates counter badges.
func (p *GamificationProfile) ApplyChallengeCompletion(xpAmount int, now time.Time) *GamificationDelta {
	xp := p.AddXP(xpAmount)
	p.TotalChallengesCompleted++
	badges := p.CheckAndAwardBadges(now)
	p.UpdatedAt = now

	return &GamificationDelta{
		XPResult:                 xp,
		NewBadges:                badges,
		TotalTasksCompleted:      p.TotalTasksCompleted,
		TotalChallengesCompleted: p.TotalChallengesCompleted,
	}
}
