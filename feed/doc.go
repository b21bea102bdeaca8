// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package feed implements the push channel to connected travelers.
// Handlers write anomaly drops, duel outcomes, and digests to the hub;
// travelers without an open connection simply miss the push and see the
// state on their next poll.
package feed
