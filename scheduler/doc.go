// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package scheduler drives the daily anomaly drops and queue digests.
// It wakes on local hour boundaries and re-draws the day's random drop
// hours at midnight, leaving all delivery work to the handlers package.
package scheduler
