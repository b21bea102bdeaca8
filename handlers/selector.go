// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"math/rand/v2"

	"github.com/nezproject/edenqueue/cliparse"
	"github.com/nezproject/edenqueue/models"
)

// Common packet flavor pool. Duplicates across consecutive packets are
// acceptable; no anti-repeat memory.
var noclassPayloads = []string{
	"Noise-band data. No semantic layer recovered. [NOCLASS]",
	"Ambient interference. Resonance marker false. [NOCLASS]",
	"Third-layer bleed, trace lost within seconds. [NOCLASS]",
	"Packet truncated. Reflection marker unconfirmed. [NOCLASS]",
}

// rarityChance returns the Class S probability for a queue position.
// Closer to position 1 means a higher chance.
func rarityChance(pos, total int, base, spread float64) float64 {
	if total <= 0 {
		return base
	}
	x := 1.0 - float64(pos)/float64(total)
	if x < 0 {
		x = 0
	}
	if x > 1 {
		x = 1
	}
	return base + x*spread
}

// choosePayload classifies a new packet for a user at the given position
// and picks its payload. A rare draw against an empty asset pool falls
// back to a common payload; packet creation never blocks on asset
// availability.
func choosePayload(db *sql.DB, cfg cliparse.Config, pos, total int) (kind, payload string, err error) {
	chance := rarityChance(pos, total, cfg.RarityBase, cfg.RaritySpread)
	if rand.Float64() < chance {
		ref, err := pickRareAsset(db)
		if err != nil {
			return "", "", err
		}
		if ref != "" {
			return models.KindClassS, ref, nil
		}
	}
	return models.KindNoClass, noclassPayloads[rand.IntN(len(noclassPayloads))], nil
}

// pickRareAsset draws uniformly from the Class S pool, "" when empty.
func pickRareAsset(db *sql.DB) (string, error) {
	var ref string
	err := db.QueryRow(`
		SELECT asset_ref FROM rare_assets ORDER BY RANDOM() LIMIT 1
	`).Scan(&ref)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return ref, nil
}
