package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"roomledger/internal/domain"
)

type QueryService struct {
	repo     domain.RoomRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.RoomRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func roomKey(id string) string { return "room:" + id }

// listGenKey holds the generation every list key is versioned with. Bumping it
// supersedes all cached list pages at once, whatever their owner/since/limit
// combination; superseded pages simply age out with their TTL.
const listGenKey = "rooms:gen"

func listGeneration(ctx context.Context, cache domain.Cache) int64 {
	var gen int64
	_, _ = cache.Get(ctx, listGenKey, &gen)
	return gen
}

func roomsKey(q domain.RoomsQuery, gen int64) string {
	owner, since := "", int64(0)
	if q.Owner != nil {
		owner = *q.Owner
	}
	if q.Since != nil {
		since = *q.Since
	}
	return fmt.Sprintf("rooms:%s:%d:%d:g%d", owner, since, q.Limit, gen)
}

func (s *QueryService) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	key := roomKey(id)
	var room domain.Room
	if ok, _ := s.cache.Get(ctx, key, &room); ok {
		return room, nil
	}
	r, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	_ = s.cache.Set(ctx, key, r, int(s.cacheTTL.Seconds()))
	return r, nil
}

func (s *QueryService) ListRooms(ctx context.Context, q domain.RoomsQuery) (domain.RoomsPage, error) {
	key := roomsKey(q, listGeneration(ctx, s.cache))
	var out domain.RoomsPage
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	page, err := s.repo.ListRooms(ctx, q)
	if err != nil {
		return domain.RoomsPage{}, err
	}

	// copy slice to avoid aliasing the repo's backing array (prevents callers from mutating cached value)
	copyPage := deepCopyRoomsPage(page)

	// optional size guard
	if b, _ := json.Marshal(copyPage); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, copyPage, int(s.cacheTTL.Seconds()))
	}
	return copyPage, nil
}

func deepCopyRoomsPage(in domain.RoomsPage) domain.RoomsPage {
	out := domain.RoomsPage{NextCursor: in.NextCursor}
	if n := len(in.Items); n > 0 {
		out.Items = make([]domain.Room, n)
		copy(out.Items, in.Items)
	}
	return out
}

// InvalidateRoom drops the per-room cache entry and bumps the list generation
// so no cached list page (any owner/since/limit) survives a confirmed state
// change. A nanosecond timestamp keeps the generation monotonic without a
// read-modify-write cycle.
func InvalidateRoom(ctx context.Context, cache domain.Cache, id string) {
	_ = cache.Del(ctx, roomKey(id))
	_ = cache.Set(ctx, listGenKey, time.Now().UnixNano(), 0)
}
