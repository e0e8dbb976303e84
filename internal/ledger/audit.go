package ledger

import (
	"context"
	"fmt"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/google/uuid"
)

// InvariantCheck records a single invariant validation.
type InvariantCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// AuditResult holds the outcome of a profile audit.
type AuditResult struct {
	UserID     uuid.UUID        `json:"user_id"`
	EntryCount int              `json:"entry_count"`
	LedgerXP   int              `json:"ledger_xp"`
	ProfileXP  int              `json:"profile_xp"`
	Invariants []InvariantCheck `json:"invariants"`
	AllPassed  bool             `json:"all_passed"`
}

// AuditProfile compares the stored profile against the XP ledger.
//
// Invariants:
//  1. XP parity: profile xp equals the sum of ledger amounts
//  2. Level derivation: level == CalculateLevel(xp).Level
//  3. Streak bound: longestStreak >= currentStreak
//  4. Badge uniqueness: no badge id held twice
func (e *Engine) AuditProfile(ctx context.Context, db repository.DBTX, userID uuid.UUID) (*AuditResult, error) {
	profile, err := e.profiles.FindByUserID(ctx, db, userID)
	if err != nil {
		return nil, fmt.Errorf("audit fetch profile: %w", err)
	}
	if profile == nil {
		return nil, domain.ErrNotFound("gamification profile", userID.String())
	}

	count, total, err := e.entries.SumByUser(ctx, db, userID)
	if err != nil {
		return nil, fmt.Errorf("audit sum ledger: %w", err)
	}

	checks := CheckInvariants(profile, total)
	allPassed := true
	for _, c := range checks {
		if !c.Passed {
			allPassed = false
		}
	}

	return &AuditResult{
		UserID:     userID,
		EntryCount: count,
		LedgerXP:   total,
		ProfileXP:  profile.XP,
		Invariants: checks,
		AllPassed:  allPassed,
	}, nil
}

// CheckInvariants validates a profile against the ledger total.
func CheckInvariants(p *domain.GamificationProfile, ledgerXP int) []InvariantCheck {
	checks := make([]InvariantCheck, 0, 4)

	checks = append(checks, InvariantCheck{
		Name:   "xp_ledger_parity",
		Passed: p.XP == ledgerXP,
		Detail: fmt.Sprintf("profile=%d ledger=%d", p.XP, ledgerXP),
	})

	derived := domain.CalculateLevel(p.XP).Level
	checks = append(checks, InvariantCheck{
		Name:   "level_derived_from_xp",
		Passed: p.Level == derived,
		Detail: fmt.Sprintf("stored=%d derived=%d", p.Level, derived),
	})

	checks = append(checks, InvariantCheck{
		Name:   "longest_streak_covers_current",
		Passed: p.LongestStreak >= p.CurrentStreak,
		Detail: fmt.Sprintf("current=%d longest=%d", p.CurrentStreak, p.LongestStreak),
	})

	seen := make(map[string]bool, len(p.Badges))
	var dup string
	for _, b := range p.Badges {
		if seen[b.ID] {
			dup = b.ID
			break
		}
		seen[b.ID] = true
	}
	detail := fmt.Sprintf("%d badges", len(p.Badges))
	if dup != "" {
		detail = "duplicate badge " + dup
	}
	checks = append(checks, InvariantCheck{
		Name:   "badges_unique",
		Passed: dup == "",
		Detail: detail,
	})

	return checks
}
