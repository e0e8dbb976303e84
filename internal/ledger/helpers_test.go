package ledger

import (
	"encoding/json"
	"testing"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ensureJSON Tests ---

func TestEnsureJSON(t *testing.T) {
	t.Run("nil returns empty object", func(t *testing.T) {
		result := ensureJSON(nil)
		assert.Equal(t, json.RawMessage(`{}`), result)
	})

	t.Run("non-nil passthrough", func(t *testing.T) {
		data := json.RawMessage(`{"key":"value"}`)
		result := ensureJSON(data)
		assert.Equal(t, data, result)
	})
}

// --- mergeMeta Tests ---

func TestMergeMeta(t *testing.T) {
	t.Run("nil base with extras", func(t *testing.T) {
		result := mergeMeta(nil, map[string]interface{}{"priority": "high", "base_xp": 20})
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(result, &m))
		assert.Equal(t, "high", m["priority"])
		assert.Equal(t, float64(20), m["base_xp"])
	})

	t.Run("existing base with extras", func(t *testing.T) {
		base := json.RawMessage(`{"track_id":"t1"}`)
		result := mergeMeta(base, map[string]interface{}{"is_timed": true})
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(result, &m))
		assert.Equal(t, "t1", m["track_id"])
		assert.Equal(t, true, m["is_timed"])
	})

	t.Run("extras override base", func(t *testing.T) {
		base := json.RawMessage(`{"difficulty":"easy"}`)
		result := mergeMeta(base, map[string]interface{}{"difficulty": "hard"})
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(result, &m))
		assert.Equal(t, "hard", m["difficulty"])
	})
}

// --- CheckInvariants Tests ---

func TestCheckInvariants(t *testing.T) {
	t.Run("consistent profile passes", func(t *testing.T) {
		p := domain.NewGamificationProfile(uuid.New(), fixedNow)
		p.AddXP(120)
		p.CurrentStreak, p.LongestStreak = 2, 5
		p.Badges = []domain.EarnedBadge{{Badge: domain.Badge{ID: domain.BadgeFirstTask}}}

		for _, c := range CheckInvariants(p, 120) {
			assert.True(t, c.Passed, c.Name)
		}
	})

	t.Run("drift is reported", func(t *testing.T) {
		p := domain.NewGamificationProfile(uuid.New(), fixedNow)
		p.XP = 120
		p.Level = 1
		p.CurrentStreak, p.LongestStreak = 4, 3
		first := domain.EarnedBadge{Badge: domain.Badge{ID: domain.BadgeFirstTask}}
		p.Badges = []domain.EarnedBadge{first, first}

		checks := CheckInvariants(p, 100)
		require.Len(t, checks, 4)
		for _, c := range checks {
			assert.False(t, c.Passed, c.Name)
		}
		assert.Equal(t, "duplicate badge first_task", checks[3].Detail)
	})
}
