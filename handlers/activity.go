// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"math"
)

// decayScore applies continuous exponential decay to a stored activity
// score. Elapsed time may be any non-negative value; zero elapsed adds
// without decay.
func decayScore(score float64, updatedAt, now int64, halfLifeSec float64) float64 {
	if score <= 0 || updatedAt <= 0 {
		return 0
	}
	elapsed := float64(now - updatedAt)
	if elapsed <= 0 {
		return score
	}
	return score * math.Pow(0.5, elapsed/halfLifeSec)
}

// recordActivity folds new points into the decaying engagement score:
// new = old * 0.5^(elapsed/halfLife) + points. The score is only read
// back lazily, so no background sweep is needed.
func recordActivity(db *sql.DB, userID int64, points float64, now int64, halfLifeSec float64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var score float64
	var updatedAt int64
	err = tx.QueryRow(`
		SELECT score, updated_at FROM activity WHERE user_id = $1
	`, userID).Scan(&score, &updatedAt)

	if err == sql.ErrNoRows {
		_, err = tx.Exec(`
			INSERT INTO activity (user_id, score, updated_at)
			VALUES ($1, $2, $3)
		`, userID, points, now)
		if err != nil {
			return err
		}
		return tx.Commit()
	}
	if err != nil {
		return err
	}

	next := decayScore(score, updatedAt, now, halfLifeSec) + points
	_, err = tx.Exec(`
		UPDATE activity SET score = $1, updated_at = $2 WHERE user_id = $3
	`, next, now, userID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// readActivity returns the decayed-to-now score without writing it back.
func readActivity(db *sql.DB, userID int64, now int64, halfLifeSec float64) (float64, int64, error) {
	var score float64
	var updatedAt int64
	err := db.QueryRow(`
		SELECT score, updated_at FROM activity WHERE user_id = $1
	`, userID).Scan(&score, &updatedAt)
	if err == sql.ErrNoRows {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	return decayScore(score, updatedAt, now, halfLifeSec), updatedAt, nil
}
