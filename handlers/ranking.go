// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"math"
	"sort"

	"github.com/nezproject/edenqueue/cliparse"
	"github.com/nezproject/edenqueue/models"
)

// RankedUser is a projection of (points, activity, registration time)
// into a single ordering key. Never persisted; recomputed per query so it
// always agrees with the latest point and activity state.
type RankedUser struct {
	ID        int64
	Handle    string
	Points    int
	CreatedAt int64
	Activity  float64
	Score     float64
}

// loadRanking recomputes the full queue order. Position 1 is the best.
//
// Blend mode compresses points and decayed activity with log1p,
// normalizes each by the population maximum and blends them with equal
// weight. Ties resolve by raw points (desc), then registration time
// (asc, earliest wins), then id, so an all-zero population still has a
// deterministic order. Simple mode is the older points-only ordering.
func loadRanking(db *sql.DB, cfg cliparse.Config, now int64) ([]RankedUser, error) {
	rows, err := db.Query(`
		SELECT u.id, u.handle, u.points, u.created_at,
		       COALESCE(a.score, 0), COALESCE(a.updated_at, 0)
		FROM users u
		LEFT JOIN activity a ON a.user_id = u.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranking []RankedUser
	for rows.Next() {
		var u RankedUser
		var rawScore float64
		var updatedAt int64
		if err := rows.Scan(&u.ID, &u.Handle, &u.Points, &u.CreatedAt, &rawScore, &updatedAt); err != nil {
			return nil, err
		}
		u.Activity = decayScore(rawScore, updatedAt, now, cfg.HalfLifeSeconds())
		ranking = append(ranking, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if cfg.RankingMode == cliparse.RankingSimple {
		sort.Slice(ranking, func(i, j int) bool {
			a, b := ranking[i], ranking[j]
			if a.Points != b.Points {
				return a.Points > b.Points
			}
			if a.CreatedAt != b.CreatedAt {
				return a.CreatedAt < b.CreatedAt
			}
			return a.ID < b.ID
		})
		return ranking, nil
	}

	maxP, maxA := 0.0, 0.0
	for i := range ranking {
		p := math.Log1p(math.Max(0, float64(ranking[i].Points)))
		a := math.Log1p(math.Max(0, ranking[i].Activity))
		if p > maxP {
			maxP = p
		}
		if a > maxA {
			maxA = a
		}
	}
	// Guard the all-zero population: normalizing by 1.0 keeps every
	// blended score at 0 instead of dividing by zero.
	if maxP == 0 {
		maxP = 1.0
	}
	if maxA == 0 {
		maxA = 1.0
	}

	for i := range ranking {
		p := math.Log1p(math.Max(0, float64(ranking[i].Points))) / maxP
		a := math.Log1p(math.Max(0, ranking[i].Activity)) / maxA
		ranking[i].Score = 0.5*p + 0.5*a
	}

	sort.Slice(ranking, func(i, j int) bool {
		a, b := ranking[i], ranking[j]

		// 1. Higher blended score wins
		if a.Score != b.Score {
			return a.Score > b.Score
		}

		// 2. Higher raw points wins
		if a.Points != b.Points {
			return a.Points > b.Points
		}

		// 3. Earlier registrant wins
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}

		// 4. Stable tie-breaking by id
		return a.ID < b.ID
	})

	return ranking, nil
}

// queuePosition returns the 1-based position and the population size.
// An id not present in the ranking yields total+1 ("not yet ranked").
func queuePosition(ranking []RankedUser, userID int64) (pos, total int) {
	total = len(ranking)
	for i, u := range ranking {
		if u.ID == userID {
			return i + 1, total
		}
	}
	return total + 1, total
}

// queueNeighbors returns up to window users immediately above and below.
func queueNeighbors(ranking []RankedUser, userID int64, window int) (above, below []RankedUser) {
	idx := -1
	for i, u := range ranking {
		if u.ID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil
	}

	lo := idx - window
	if lo < 0 {
		lo = 0
	}
	hi := idx + 1 + window
	if hi > len(ranking) {
		hi = len(ranking)
	}
	return ranking[lo:idx], ranking[idx+1 : hi]
}

// neighborAbove returns the user one position better, or nil at the top.
func neighborAbove(ranking []RankedUser, userID int64) *RankedUser {
	for i, u := range ranking {
		if u.ID == userID {
			if i == 0 {
				return nil
			}
			return &ranking[i-1]
		}
	}
	return nil
}

// accessLevel maps a queue position to its lore band.
func accessLevel(pos, total int) string {
	if total == 0 {
		return models.AccessGate
	}
	frac := float64(pos) / float64(total)
	switch {
	case pos == 1 || frac <= 0.1:
		return models.AccessGate
	case frac <= 0.5:
		return models.AccessCorridor
	default:
		return models.AccessOuter
	}
}
