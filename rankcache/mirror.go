// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package rankcache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

const rankingKey = "eden:queue:ranking"

// Entry is one ranked traveler as pushed into the mirror.
type Entry struct {
	UserID int64
	Handle string
	Rank   int
	Points int
}

// Mirror keeps the computed queue order in a Redis sorted set so other
// services can read positions without touching the database. The
// database stays the source of truth; the mirror is rebuilt wholesale
// after every points change.
type Mirror struct {
	client *redis.Client
}

func New(addr string) (*Mirror, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("rankcache: ping %s: %w", addr, err)
	}
	return &Mirror{client: client}, nil
}

// Rebuild replaces the mirrored ranking with the given entries. The
// delete and re-add run in one transaction so readers never see a
// half-built set.
func (m *Mirror) Rebuild(ctx context.Context, entries []Entry) error {
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, rankingKey)
	for _, e := range entries {
		pipe.ZAdd(ctx, rankingKey, &redis.Z{
			Score:  float64(e.Rank),
			Member: strconv.FormatInt(e.UserID, 10),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rankcache: rebuild: %w", err)
	}
	return nil
}

// Top returns the first n user IDs in queue order.
func (m *Mirror) Top(ctx context.Context, n int64) ([]int64, error) {
	members, err := m.client.ZRangeWithScores(ctx, rankingKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("rankcache: top: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, z := range members {
		s, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Position returns the mirrored 1-based position of a traveler, or 0
// when the traveler is not in the set.
func (m *Mirror) Position(ctx context.Context, userID int64) (int, error) {
	rank, err := m.client.ZRank(ctx, rankingKey, strconv.FormatInt(userID, 10)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("rankcache: position: %w", err)
	}
	return int(rank) + 1, nil
}

func (m *Mirror) Close() error {
	return m.client.Close()
}
