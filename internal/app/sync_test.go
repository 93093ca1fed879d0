package app_test

import (
	"context"
	"testing"

	"roomledger/internal/adapters/simledger"
	"roomledger/internal/app"
	"roomledger/internal/domain"
)

func TestSyncAddress_UpsertsOwnedRooms(t *testing.T) {
	chain := simledger.New("booking")
	repo := newFakeRepo()
	syncer := app.NewSyncService(chain, repo, &fakeCache{})

	n, err := syncer.SyncAddress(context.Background(), "0xsimowner")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 seeded rooms, got %d", n)
	}
	for id, r := range repo.rooms {
		if r.Owner != "0xsimowner" {
			t.Fatalf("room %s owner = %q", id, r.Owner)
		}
	}
}

func TestSyncAddress_NothingOwned(t *testing.T) {
	chain := simledger.New("booking")
	repo := newFakeRepo()
	syncer := app.NewSyncService(chain, repo, &fakeCache{})

	n, err := syncer.SyncAddress(context.Background(), "0xstranger")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if n != 0 || len(repo.rooms) != 0 {
		t.Fatalf("expected empty sync, got n=%d rooms=%+v", n, repo.rooms)
	}
}

func TestSyncAddress_SkipsAndLogsBadRecords(t *testing.T) {
	chain := &scriptedLedger{owned: []map[string]any{
		{"objectId": "0xcoin", "content": map[string]any{
			"dataType": "moveObject",
			"type":     "0x2::coin::Coin<0x2::iota::IOTA>",
			"fields":   map[string]any{"balance": float64(7)},
		}},
		{"objectId": "0xroom", "content": map[string]any{
			"dataType": "moveObject",
			"type":     "0xpkg::booking::Room",
			"fields": map[string]any{
				"hotel_name": "H", "date": float64(20260101), "room_type": "Suite",
				"price": float64(5), "capacity": float64(2),
			},
		}},
	}}
	repo := newFakeRepo()
	syncer := app.NewSyncService(chain, repo, &fakeCache{})

	n, err := syncer.SyncAddress(context.Background(), "0xany")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 room, got %d", n)
	}
	if len(repo.skips) != 1 || repo.skips[0] != "0xcoin" {
		t.Fatalf("expected skip logged for 0xcoin, got %v", repo.skips)
	}
}

func TestSyncAddress_SkipKeyedOnNestedID(t *testing.T) {
	// malformed room record: id only under content.fields, price missing
	chain := &scriptedLedger{owned: []map[string]any{
		{"content": map[string]any{
			"dataType": "moveObject",
			"type":     "0xpkg::booking::Room",
			"fields": map[string]any{
				"object_id":  "0xnested",
				"hotel_name": "H", "date": float64(20260101), "room_type": "Suite",
			},
		}},
	}}
	repo := newFakeRepo()
	syncer := app.NewSyncService(chain, repo, &fakeCache{})

	n, err := syncer.SyncAddress(context.Background(), "0xany")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no rooms, got %d", n)
	}
	if len(repo.skips) != 1 || repo.skips[0] != "0xnested" {
		t.Fatalf("expected skip keyed on nested id, got %v", repo.skips)
	}
}

type scriptedLedger struct{ owned []map[string]any }

func (s *scriptedLedger) GetObject(ctx context.Context, id string) (map[string]any, error) {
	return nil, domain.ErrNotFound
}
func (s *scriptedLedger) GetOwnedObjects(ctx context.Context, address string) ([]map[string]any, error) {
	return s.owned, nil
}
func (s *scriptedLedger) ExecuteMoveCall(ctx context.Context, call domain.MoveCall) (string, error) {
	return "", domain.ErrNotFound
}
func (s *scriptedLedger) GetTransaction(ctx context.Context, digest string) (domain.TxEffects, error) {
	return domain.TxEffects{}, domain.ErrNotFound
}
func (s *scriptedLedger) WaitForTransaction(ctx context.Context, digest string) (domain.TxEffects, error) {
	return domain.TxEffects{}, domain.ErrNotFound
}
