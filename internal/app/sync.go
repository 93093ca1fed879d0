package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"roomledger/internal/adapters/observability"
	"roomledger/internal/domain"
)

// SyncService reconciles the store with chain state: it pulls every object a
// watched address holds, normalizes the set, and upserts the survivors.
// Records the normalizer rejects are logged and persisted as skips, never
// surfaced as errors.
type SyncService struct {
	ledger domain.LedgerClient
	repo   domain.RoomRepository
	cache  domain.Cache
}

func NewSyncService(l domain.LedgerClient, r domain.RoomRepository, cache domain.Cache) *SyncService {
	return &SyncService{ledger: l, repo: r, cache: cache}
}

// SyncAddress returns the number of rooms upserted for the address.
func (s *SyncService) SyncAddress(ctx context.Context, address string) (int, error) {
	raws, err := s.ledger.GetOwnedObjects(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("query owned objects for %s: %w", address, err)
	}

	rooms := make([]domain.Room, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		r := NormalizeRoom(raw)
		if r == nil {
			s.recordSkip(ctx, raw)
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		rooms = append(rooms, *r)
	}

	if len(rooms) == 0 {
		return 0, nil
	}
	if err := s.repo.UpsertRooms(ctx, rooms); err != nil {
		return 0, fmt.Errorf("upsert rooms for %s: %w", address, err)
	}
	if s.cache != nil {
		for _, r := range rooms {
			InvalidateRoom(ctx, s.cache, r.ID)
		}
	}
	return len(rooms), nil
}

func (s *SyncService) recordSkip(ctx context.Context, raw map[string]any) {
	observability.ObserveSyncSkip("shape")
	id := skipID(raw)
	if id == "" {
		// nothing to key a skip row on
		return
	}
	if err := s.repo.LogSkip(ctx, id, "unrecognized object shape"); err != nil {
		log.Warn().Str("object", id).Err(err).Msg("persist sync skip failed")
	}
}

// skipID keys a skip row the same way the normalizer resolves ids: the alias
// set at the record's top level first, then inside content.fields.
func skipID(raw map[string]any) string {
	if id := firstStrAlias(raw, "id"); id != "" {
		return id
	}
	if fields, ok := lookupAny(raw, "content.fields").(map[string]any); ok {
		return firstStrAlias(fields, "id")
	}
	return ""
}
