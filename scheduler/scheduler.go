// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/nezproject/edenqueue/cliparse"
	"github.com/nezproject/edenqueue/models"
)

// Anomaly drops land at random whole hours inside this local-time
// window; digests go out at fixed slots.
const (
	anomalyWindowStart = 11
	anomalyWindowEnd   = 22
)

var digestHours = []int{10, 16, 22}

// Broadcaster is the slice of AnomalyHandler the scheduler drives.
type Broadcaster interface {
	PushPackets(ctx context.Context) (models.BroadcastResponse, error)
	PushDigest(ctx context.Context) (models.BroadcastResponse, error)
}

type Scheduler struct {
	cfg cliparse.Config
	b   Broadcaster
}

func New(cfg cliparse.Config, b Broadcaster) *Scheduler {
	return &Scheduler{cfg: cfg, b: b}
}

// Run wakes at every local hour boundary and fires whatever that hour
// calls for. The day's anomaly hours are re-drawn when the local date
// changes, so each day gets its own drop pattern. Run blocks until the
// context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	now := time.Now().Unix()
	day := localDay(now, s.cfg.TZOffset)
	anomalyHours := randomAnomalyHours(s.cfg.BroadcastsPerDay)
	slog.Info("scheduler started", "anomaly_hours", anomalyHours, "digest_hours", digestHours)

	for {
		wait := time.Duration(secondsUntilNextHour(time.Now().Unix(), s.cfg.TZOffset)) * time.Second
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-time.After(wait):
		}

		now = time.Now().Unix()
		if d := localDay(now, s.cfg.TZOffset); d != day {
			day = d
			anomalyHours = randomAnomalyHours(s.cfg.BroadcastsPerDay)
			slog.Info("scheduler re-drew anomaly hours", "anomaly_hours", anomalyHours)
		}

		hour := localHour(now, s.cfg.TZOffset)
		if slices.Contains(anomalyHours, hour) {
			res, err := s.b.PushPackets(ctx)
			if err != nil {
				slog.Error("scheduled anomaly push failed", "error", err)
			} else {
				slog.Info("scheduled anomaly push", "hour", hour, "created", res.Created, "delivered", res.Delivered, "skipped", res.Skipped)
			}
		}
		if slices.Contains(digestHours, hour) {
			res, err := s.b.PushDigest(ctx)
			if err != nil {
				slog.Error("scheduled digest failed", "error", err)
			} else {
				slog.Info("scheduled digest", "hour", hour, "delivered", res.Delivered, "skipped", res.Skipped)
			}
		}
	}
}

// localHour returns the hour of day (0-23) at the configured UTC
// offset.
func localHour(ts int64, tzOffsetHours int) int {
	shifted := ts + int64(tzOffsetHours)*3600
	return int((shifted % 86400) / 3600)
}

// localDay returns the day number at the configured UTC offset, used
// only to detect date rollover.
func localDay(ts int64, tzOffsetHours int) int64 {
	return (ts + int64(tzOffsetHours)*3600) / 86400
}

// secondsUntilNextHour returns the seconds remaining until the next
// local hour boundary, never zero.
func secondsUntilNextHour(ts int64, tzOffsetHours int) int64 {
	shifted := ts + int64(tzOffsetHours)*3600
	rem := 3600 - shifted%3600
	if rem == 0 {
		rem = 3600
	}
	return rem
}

// randomAnomalyHours draws n distinct whole hours from the drop window,
// sorted ascending. n is clamped to the window size.
func randomAnomalyHours(n int) []int {
	window := make([]int, 0, anomalyWindowEnd-anomalyWindowStart+1)
	for h := anomalyWindowStart; h <= anomalyWindowEnd; h++ {
		window = append(window, h)
	}
	if n > len(window) {
		n = len(window)
	}
	if n < 0 {
		n = 0
	}
	rand.Shuffle(len(window), func(i, j int) {
		window[i], window[j] = window[j], window[i]
	})
	hours := window[:n]
	slices.Sort(hours)
	return hours
}
