package projection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/google/uuid"
)

// ActivityTTL bounds how stale a cached heatmap may be.
const ActivityTTL = 2 * time.Minute

func activityKey(userID uuid.UUID) string {
	return fmt.Sprintf("projection:activity:%s", userID)
}

// PutActivity caches a user's heatmap.
func PutActivity(ctx context.Context, store Store, userID uuid.UUID, days []domain.ActivityDay) error {
	return SetJSON(ctx, store, activityKey(userID), days, ActivityTTL)
}

// GetActivity returns a cached heatmap, or an error wrapping ErrMiss.
func GetActivity(ctx context.Context, store Store, userID uuid.UUID) ([]domain.ActivityDay, error) {
	var days []domain.ActivityDay
	if err := GetJSON(ctx, store, activityKey(userID), &days); err != nil {
		return nil, err
	}
	return days, nil
}

// InvalidateActivity drops a user's cached heatmap.
func InvalidateActivity(ctx context.Context, store Store, userID uuid.UUID) error {
	return store.Delete(ctx, activityKey(userID))
}

// MergeActivity sums per-date counts from several sources into a heatmap
// sorted by date ascending.
func MergeActivity(sources ...map[string]int) []domain.ActivityDay {
	totals := make(map[string]int)
	for _, src := range sources {
		for date, n := range src {
			totals[date] += n
		}
	}

	days := make([]domain.ActivityDay, 0, len(totals))
	for date, n := range totals {
		days = append(days, domain.ActivityDay{Date: date, Count: n})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}
