package domain

import "time"

// BadgeCategory groups badges for display.
type BadgeCategory string

const (
	BadgeCategoryTasks      BadgeCategory = "tasks"
	BadgeCategoryStreaks    BadgeCategory = "streaks"
	BadgeCategoryChallenges BadgeCategory = "challenges"
	BadgeCategoryMilestones BadgeCategory = "milestones"
	BadgeCategorySpecial    BadgeCategory = "special"
)

// Badge ids.
const (
	BadgeFirstTask      = "first_task"
	BadgeTaskMaster10   = "task_master_10"
	BadgeTaskMaster50   = "task_master_50"
	BadgeTaskMaster100  = "task_master_100"
	BadgeStreak3        = "streak_3"
	BadgeStreak7        = "streak_7"
	BadgeStreak30       = "streak_30"
	BadgeFirstChallenge = "first_challenge"
	BadgeChallenge5     = "challenge_5"
	BadgeLevel5         = "level_5"
	BadgeLevel10        = "level_10"
	BadgeEarlyBird      = "early_bird"
	BadgeNightOwl       = "night_owl"
)

// Local hours bounding the time-of-day badges.
const (
	EarlyBirdBeforeHour = 8
	NightOwlFromHour    = 22
)

// Badge is a one-time achievement definition.
type Badge struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Category    BadgeCategory `json:"category"`
}

// EarnedBadge is a badge held by a user.
type EarnedBadge struct {
	Badge
	EarnedAt time.Time `json:"earned_at"`
}

type badgeRule struct {
	badge  Badge
	earned func(p *GamificationProfile) bool
}

// Evaluation order is the order new badges are reported in.
var counterBadgeRules = []badgeRule{
	{Badge{BadgeFirstTask, "First Step", "Complete your first task", "🎯", BadgeCategoryTasks},
		func(p *GamificationProfile) bool { return p.TotalTasksCompleted >= 1 }},
	{Badge{BadgeTaskMaster10, "Task Master", "Complete 10 tasks", "✅", BadgeCategoryTasks},
		func(p *GamificationProfile) bool { return p.TotalTasksCompleted >= 10 }},
	{Badge{BadgeTaskMaster50, "Task Champion", "Complete 50 tasks", "🏅", BadgeCategoryTasks},
		func(p *GamificationProfile) bool { return p.TotalTasksCompleted >= 50 }},
	{Badge{BadgeTaskMaster100, "Task Legend", "Complete 100 tasks", "👑", BadgeCategoryTasks},
		func(p *GamificationProfile) bool { return p.TotalTasksCompleted >= 100 }},
	{Badge{BadgeStreak3, "On Fire", "Maintain a 3-day streak", "🔥", BadgeCategoryStreaks},
		func(p *GamificationProfile) bool { return p.CurrentStreak >= 3 }},
	{Badge{BadgeStreak7, "Week Warrior", "Maintain a 7-day streak", "⚡", BadgeCategoryStreaks},
		func(p *GamificationProfile) bool { return p.CurrentStreak >= 7 }},
	{Badge{BadgeStreak30, "Monthly Master", "Maintain a 30-day streak", "💎", BadgeCategoryStreaks},
		func(p *GamificationProfile) bool { return p.CurrentStreak >= 30 }},
	{Badge{BadgeFirstChallenge, "Challenge Accepted", "Complete your first challenge", "🎮", BadgeCategoryChallenges},
		func(p *GamificationProfile) bool { return p.TotalChallengesCompleted >= 1 }},
	{Badge{BadgeChallenge5, "Challenge Seeker", "Complete 5 challenges", "🎯", BadgeCategoryChallenges},
		func(p *GamificationProfile) bool { return p.TotalChallengesCompleted >= 5 }},
	{Badge{BadgeLevel5, "Rising Star", "Reach level 5", "⭐", BadgeCategoryMilestones},
		func(p *GamificationProfile) bool { return p.Level >= 5 }},
	{Badge{BadgeLevel10, "Shining Star", "Reach level 10", "🌟", BadgeCategoryMilestones},
		func(p *GamificationProfile) bool { return p.Level >= 10 }},
}

var (
	earlyBirdBadge = Badge{BadgeEarlyBird, "Early Bird", "Complete a task before 8 AM", "🌅", BadgeCategorySpecial}
	nightOwlBadge  = Badge{BadgeNightOwl, "Night Owl", "Complete a task after 10 PM", "🦉", BadgeCategorySpecial}
)

// BadgeCatalog returns every badge definition in display order.
func BadgeCatalog() []Badge {
	out := make([]Badge, 0, len(counterBadgeRules)+2)
	for _, r := range counterBadgeRules {
		out = append(out, r.badge)
	}
	return append(out, earlyBirdBadge, nightOwlBadge)
}

// LookupBadge returns the definition for a badge id.
func LookupBadge(id string) (Badge, bool) {
	for _, b := range BadgeCatalog() {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}
