package domain

import "math"

// XPSource identifies what earned an XP ledger entry.
type XPSource string

const (
	XPSourceTask      XPSource = "task"
	XPSourceChallenge XPSource = "challenge"
)

// XPReward names an entry of the reward table.
type XPReward string

const (
	RewardTaskHighPriority   XPReward = "task_complete_high_priority"
	RewardTaskMediumPriority XPReward = "task_complete_medium_priority"
	RewardTaskLowPriority    XPReward = "task_complete_low_priority"
	RewardChallengeEasy      XPReward = "challenge_complete_easy"
	RewardChallengeMedium    XPReward = "challenge_complete_medium"
	RewardChallengeHard      XPReward = "challenge_complete_hard"
	RewardDailyStreakBonus   XPReward = "daily_streak_bonus"
	RewardWeeklyStreakBonus  XPReward = "weekly_streak_bonus"
	RewardReflection         XPReward = "reflection_submitted"
	RewardDailyGoalMet       XPReward = "daily_goal_met"
	RewardWeeklyGoalMet      XPReward = "weekly_goal_met"
)

var xpRewards = map[XPReward]int{
	RewardTaskHighPriority:   20,
	RewardTaskMediumPriority: 15,
	RewardTaskLowPriority:    10,
	RewardChallengeEasy:      25,
	RewardChallengeMedium:    50,
	RewardChallengeHard:      100,
	RewardDailyStreakBonus:   5,
	RewardWeeklyStreakBonus:  50,
	RewardReflection:         5,
	RewardDailyGoalMet:       25,
	RewardWeeklyGoalMet:      100,
}

// XPFor returns the XP amount of a reward table entry, or 0 if unknown.
func XPFor(r XPReward) int {
	return xpRewards[r]
}

// XPRewardTable returns a copy of the reward table.
func XPRewardTable() map[XPReward]int {
	out := make(map[XPReward]int, len(xpRewards))
	for k, v := range xpRewards {
		out[k] = v
	}
	return out
}

// TaskXP returns the base XP for completing a task of the given priority.
// Unknown priorities earn the medium amount.
func TaskXP(p TaskPriority) int {
	switch p {
	case PriorityHigh:
		return XPFor(RewardTaskHighPriority)
	case PriorityLow:
		return XPFor(RewardTaskLowPriority)
	default:
		return XPFor(RewardTaskMediumPriority)
	}
}

// LevelInfo is the result of mapping a lifetime XP total onto the level curve.
type LevelInfo struct {
	Level          int `json:"level"`
	CurrentLevelXP int `json:"current_level_xp"`
	XPForNextLevel int `json:"xp_for_next_level"`
	TotalXP        int `json:"total_xp"`
}

// XPRequiredForLevel returns the XP needed to go from level to level+1:
// floor(100 * 1.5^(level-1)), saturating at math.MaxInt.
func XPRequiredForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	f := math.Floor(100 * math.Pow(1.5, float64(level-1)))
	if f >= float64(math.MaxInt) {
		return math.MaxInt
	}
	return int(f)
}

// CalculateLevel maps a lifetime XP total to a level and the progress inside it.
func CalculateLevel(totalXP int) LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}

	level := 1
	accumulated := 0
	required := XPRequiredForLevel(level)
	for required <= totalXP-accumulated {
		accumulated += required
		level++
		required = XPRequiredForLevel(level)
	}

	return LevelInfo{
		Level:          level,
		CurrentLevelXP: totalXP - accumulated,
		XPForNextLevel: required,
		TotalXP:        totalXP,
	}
}
