// Package redisstore persists room state to Redis so live games survive
// a process restart. Rooms are written through on every committed
// mutation and reloaded at startup via the live index.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Nateight8/neolink-sub000/internal/obslog"
	"github.com/Nateight8/neolink-sub000/internal/room"
)

const (
	ttlLive     = 24 * time.Hour
	ttlFinished = 2 * time.Hour
)

type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) keyRoom(id string) string      { return "room:" + strings.TrimSpace(id) }
func (s *Store) keyLive() string               { return "room:index:live" }
func (s *Store) keyUserIdx(user string) string { return "room:index:user:" + strings.TrimSpace(user) }

// SaveRoom writes the full room state. Terminal rooms leave the live
// index and keep a short TTL for late reconnects.
func (s *Store) SaveRoom(ctx context.Context, r *room.Room) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal room %s: %w", r.ID, err)
	}

	ttl := ttlLive
	if r.Status.Terminal() {
		ttl = ttlFinished
	}
	if err := s.rdb.Set(ctx, s.keyRoom(r.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save room %s: %w", r.ID, err)
	}

	if r.Status.Terminal() {
		_ = s.rdb.SRem(ctx, s.keyLive(), r.ID).Err()
	} else {
		if err := s.rdb.SAdd(ctx, s.keyLive(), r.ID).Err(); err != nil {
			return fmt.Errorf("index room %s: %w", r.ID, err)
		}
	}

	for _, p := range r.Players {
		if p.Bot {
			continue
		}
		_ = s.rdb.SAdd(ctx, s.keyUserIdx(p.Identity), r.ID).Err()
		_ = s.rdb.Expire(ctx, s.keyUserIdx(p.Identity), ttlLive).Err()
	}
	return nil
}

// LoadRoom returns nil without error when the room is unknown.
func (s *Store) LoadRoom(ctx context.Context, id string) (*room.Room, error) {
	raw, err := s.rdb.Get(ctx, s.keyRoom(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", id, err)
	}
	var r room.Room
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", id, err)
	}
	return &r, nil
}

// ListLive loads every non-terminal room for restart recovery. Index
// entries whose room key has expired are pruned as they are found.
func (s *Store) ListLive(ctx context.Context) ([]*room.Room, error) {
	ids, err := s.rdb.SMembers(ctx, s.keyLive()).Result()
	if err != nil {
		return nil, fmt.Errorf("list live rooms: %w", err)
	}
	var out []*room.Room
	for _, id := range ids {
		r, err := s.LoadRoom(ctx, id)
		if err != nil {
			obslog.L().Warn("room_load_error", zap.String("room_id", id), zap.Error(err))
			continue
		}
		if r == nil || r.Status.Terminal() {
			_ = s.rdb.SRem(ctx, s.keyLive(), id).Err()
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// RoomsByUser returns the ids of rooms the user has played in.
func (s *Store) RoomsByUser(ctx context.Context, userID string) ([]string, error) {
	return s.rdb.SMembers(ctx, s.keyUserIdx(userID)).Result()
}

// DeleteRoom removes a room and its live index entry.
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, s.keyRoom(id)).Err(); err != nil {
		return fmt.Errorf("delete room %s: %w", id, err)
	}
	return s.rdb.SRem(ctx, s.keyLive(), id).Err()
}
